package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	DepositPending   = "pending"
	DepositSucceeded = "succeeded"
	DepositFailed    = "failed"
)

type Deposit struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	UserID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Amount          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency        string          `gorm:"size:3;not null" json:"currency"`
	Provider        string          `gorm:"size:50;not null" json:"provider"`
	ProviderOrderID *string         `gorm:"size:255;unique" json:"provider_order_id"`
	ProviderTxnID   *string         `gorm:"size:255;unique" json:"provider_txn_id"`
	Status          string          `gorm:"size:20;not null;default:'pending'" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d *Deposit) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = DepositPending
	}
	return nil
}
