package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rogermolina/residencia-backend/pkg/enums"
)

// PaymentDetails captures the gateway outcome attached to a resolved bill.
// All fields are nil while the bill is pending.
type PaymentDetails struct {
	TransactionID *string          `gorm:"column:transaction_id" json:"transactionId,omitempty"`
	Amount        *decimal.Decimal `gorm:"column:amount;type:numeric(12,2)" json:"amount,omitempty"`
	Currency      *string          `gorm:"column:currency" json:"currency,omitempty"`
	Method        *string          `gorm:"column:method" json:"paymentMethod,omitempty"`
	ErrorMessage  *string          `gorm:"column:error_message" json:"errorMessage,omitempty"`
}

// Bill is a billing obligation owed by a resident.
//
// Status-affecting writes go through the repository's conditional update;
// payment_intent_id is unique so a gateway intent resolves to at most one bill.
type Bill struct {
	ID              uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ResidentID      uuid.UUID        `gorm:"column:resident_id;type:uuid;not null;index" json:"residentId"`
	Amount          decimal.Decimal  `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Description     string           `gorm:"column:description;not null" json:"description"`
	DueDate         time.Time        `gorm:"column:due_date;not null" json:"dueDate"`
	Status          enums.BillStatus `gorm:"column:status;type:text;not null;default:'pending'" json:"status"`
	PaymentIntentID *string          `gorm:"column:payment_intent_id;uniqueIndex" json:"paymentIntentId,omitempty"`
	PaidAt          *time.Time       `gorm:"column:paid_at" json:"paidAt,omitempty"`
	PaymentDetails  PaymentDetails   `gorm:"embedded;embeddedPrefix:payment_" json:"paymentDetails"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
