package bills

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rogermolina/residencia-backend/pkg/db/models"
	"github.com/rogermolina/residencia-backend/pkg/enums"
)

const billsTestSchema = `
CREATE TABLE bills (
	id TEXT PRIMARY KEY,
	resident_id TEXT NOT NULL,
	amount NUMERIC NOT NULL,
	description TEXT NOT NULL,
	due_date DATETIME NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	payment_intent_id TEXT,
	paid_at DATETIME,
	payment_transaction_id TEXT,
	payment_amount NUMERIC,
	payment_currency TEXT,
	payment_method TEXT,
	payment_error_message TEXT,
	created_at DATETIME,
	updated_at DATETIME
);
CREATE UNIQUE INDEX idx_bills_payment_intent_id ON bills (payment_intent_id) WHERE payment_intent_id IS NOT NULL;
`

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(billsTestSchema).Error)
	return conn
}

func seedBill(t *testing.T, repo Repository, status enums.BillStatus) *models.Bill {
	t.Helper()
	bill := &models.Bill{
		ID:          uuid.New(),
		ResidentID:  uuid.New(),
		Amount:      decimal.NewFromFloat(150.25),
		Description: "maintenance fee",
		DueDate:     time.Now().Add(72 * time.Hour),
		Status:      status,
	}
	require.NoError(t, repo.Create(context.Background(), bill))
	return bill
}

func TestRepositoryFindByID(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	seeded := seedBill(t, repo, enums.BillStatusPending)

	found, err := repo.FindByID(ctx, seeded.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, seeded.ID, found.ID)
	assert.Equal(t, enums.BillStatusPending, found.Status)
	assert.True(t, seeded.Amount.Equal(found.Amount))

	missing, err := repo.FindByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepositoryFindByPaymentIntentID(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	seeded := seedBill(t, repo, enums.BillStatusPending)
	intentID := "pi_test_123"
	ok, err := repo.UpdateIf(ctx, seeded.ID, enums.BillStatusPending, map[string]any{
		"payment_intent_id": intentID,
	})
	require.NoError(t, err)
	require.True(t, ok)

	found, err := repo.FindByPaymentIntentID(ctx, intentID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, seeded.ID, found.ID)

	missing, err := repo.FindByPaymentIntentID(ctx, "pi_unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)

	empty, err := repo.FindByPaymentIntentID(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestRepositoryUpdateIfGuard(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	bill := seedBill(t, repo, enums.BillStatusPending)

	paidAt := time.Now().UTC()
	ok, err := repo.UpdateIf(ctx, bill.ID, enums.BillStatusPending, map[string]any{
		"status":  enums.BillStatusPaid,
		"paid_at": paidAt,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	// Second writer expected Pending but the bill is already Paid.
	ok, err = repo.UpdateIf(ctx, bill.ID, enums.BillStatusPending, map[string]any{
		"status": enums.BillStatusFailed,
	})
	require.NoError(t, err)
	assert.False(t, ok)

	after, err := repo.FindByID(ctx, bill.ID)
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.Equal(t, enums.BillStatusPaid, after.Status)
	require.NotNil(t, after.PaidAt)

	// Guard miss for an id that does not exist.
	ok, err = repo.UpdateIf(ctx, uuid.New(), enums.BillStatusPending, map[string]any{
		"status": enums.BillStatusPaid,
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepositoryAttachIntentIfGuard(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	bill := seedBill(t, repo, enums.BillStatusPending)

	ok, err := repo.AttachIntentIf(ctx, bill.ID, enums.BillStatusPending, map[string]any{
		"payment_intent_id": "pi_first",
	})
	require.NoError(t, err)
	assert.True(t, ok)

	// The bill is still Pending, but the attached intent blocks a second attach.
	ok, err = repo.AttachIntentIf(ctx, bill.ID, enums.BillStatusPending, map[string]any{
		"payment_intent_id": "pi_second",
	})
	require.NoError(t, err)
	assert.False(t, ok)

	after, err := repo.FindByID(ctx, bill.ID)
	require.NoError(t, err)
	require.NotNil(t, after.PaymentIntentID)
	assert.Equal(t, "pi_first", *after.PaymentIntentID)
}

func TestRepositoryListByResident(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	residentID := uuid.New()
	early := &models.Bill{
		ID:          uuid.New(),
		ResidentID:  residentID,
		Amount:      decimal.NewFromInt(100),
		Description: "water",
		DueDate:     time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Status:      enums.BillStatusPending,
	}
	late := &models.Bill{
		ID:          uuid.New(),
		ResidentID:  residentID,
		Amount:      decimal.NewFromInt(200),
		Description: "maintenance",
		DueDate:     time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		Status:      enums.BillStatusPending,
	}
	other := &models.Bill{
		ID:          uuid.New(),
		ResidentID:  uuid.New(),
		Amount:      decimal.NewFromInt(300),
		Description: "parking",
		DueDate:     time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		Status:      enums.BillStatusPending,
	}
	for _, bill := range []*models.Bill{early, late, other} {
		require.NoError(t, repo.Create(ctx, bill))
	}

	list, err := repo.ListByResident(ctx, residentID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, late.ID, list[0].ID)
	assert.Equal(t, early.ID, list[1].ID)
}

func TestRepositoryListAttachedIntentIDs(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	attached := seedBill(t, repo, enums.BillStatusPending)
	seedBill(t, repo, enums.BillStatusPending)

	ok, err := repo.UpdateIf(ctx, attached.ID, enums.BillStatusPending, map[string]any{
		"payment_intent_id": "pi_attached_1",
	})
	require.NoError(t, err)
	require.True(t, ok)

	ids, err := repo.ListAttachedIntentIDs(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"pi_attached_1"}, ids)

	none, err := repo.ListAttachedIntentIDs(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, none)
}
