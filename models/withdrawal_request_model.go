package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	WithdrawalPending  = "pending"
	WithdrawalApproved = "approved"
	WithdrawalRejected = "rejected"
)

type WithdrawalRequest struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	UserID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	UserName    string          `gorm:"size:255" json:"user_name"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Details     string          `gorm:"type:text;not null" json:"details"`
	Status      string          `gorm:"size:20;not null;default:'pending';index" json:"status"`
	AdminNotes  *string         `gorm:"type:text" json:"admin_notes"`
	ProcessedAt *time.Time      `json:"processed_at"`

	User User `gorm:"foreignkey:UserID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

func (w *WithdrawalRequest) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	if w.Status == "" {
		w.Status = WithdrawalPending
	}
	return nil
}
