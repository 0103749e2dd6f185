package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	TxDeposit        = "deposit"
	TxWithdrawal     = "withdrawal"
	TxSessionPayment = "session_payment"
	TxSessionPayout  = "session_payout"
)

// Transaction is one immutable ledger row. Negative amounts are debits.
type Transaction struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	UserID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Type         string          `gorm:"size:20;not null;index" json:"type"`
	Amount       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Description  string          `gorm:"type:text" json:"description"`
	SessionID    *uuid.UUID      `gorm:"type:uuid;index" json:"session_id,omitempty"`
	WithdrawalID *uuid.UUID      `gorm:"type:uuid" json:"withdrawal_id,omitempty"`
	DepositID    *uuid.UUID      `gorm:"type:uuid" json:"deposit_id,omitempty"`
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`

	User User `gorm:"foreignkey:UserID" json:"-"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
