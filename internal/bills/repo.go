package bills

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rogermolina/residencia-backend/pkg/db/models"
	"github.com/rogermolina/residencia-backend/pkg/enums"
	"gorm.io/gorm"
)

// Repository handles bill persistence. Status-affecting writes go through
// UpdateIf so that every transition is a compare-and-set on the current
// status, never a read followed by a blind write.
type Repository interface {
	Create(ctx context.Context, bill *models.Bill) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Bill, error)
	FindByPaymentIntentID(ctx context.Context, intentID string) (*models.Bill, error)
	ListByResident(ctx context.Context, residentID uuid.UUID) ([]models.Bill, error)
	ListAttachedIntentIDs(ctx context.Context, since time.Time) ([]string, error)
	UpdateIf(ctx context.Context, id uuid.UUID, expected enums.BillStatus, patch map[string]any) (bool, error)
	AttachIntentIf(ctx context.Context, id uuid.UUID, expected enums.BillStatus, patch map[string]any) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a bill repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, bill *models.Bill) error {
	return r.db.WithContext(ctx).Create(bill).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Bill, error) {
	var bill models.Bill
	if err := r.db.WithContext(ctx).First(&bill, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &bill, nil
}

func (r *repository) FindByPaymentIntentID(ctx context.Context, intentID string) (*models.Bill, error) {
	if intentID == "" {
		return nil, nil
	}
	var bill models.Bill
	if err := r.db.WithContext(ctx).
		Where("payment_intent_id = ?", intentID).
		First(&bill).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &bill, nil
}

func (r *repository) ListByResident(ctx context.Context, residentID uuid.UUID) ([]models.Bill, error) {
	var list []models.Bill
	if err := r.db.WithContext(ctx).
		Where("resident_id = ?", residentID).
		Order("due_date DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) ListAttachedIntentIDs(ctx context.Context, since time.Time) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&models.Bill{}).
		Where("payment_intent_id IS NOT NULL").
		Where("updated_at >= ?", since).
		Pluck("payment_intent_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// UpdateIf applies patch only when the bill still carries the expected status.
// Returns false when the guard missed, meaning another writer got there first.
func (r *repository) UpdateIf(ctx context.Context, id uuid.UUID, expected enums.BillStatus, patch map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Bill{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(patch)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// AttachIntentIf is UpdateIf with the extra guard that no payment intent is
// attached yet, so two concurrent attaches to the same bill resolve to one
// winner inside the database rather than by read-then-write luck.
func (r *repository) AttachIntentIf(ctx context.Context, id uuid.UUID, expected enums.BillStatus, patch map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Bill{}).
		Where("id = ? AND status = ? AND payment_intent_id IS NULL", id, expected).
		Updates(patch)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
