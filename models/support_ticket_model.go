package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TicketOpen     = "open"
	TicketAnswered = "answered"
	TicketClosed   = "closed"
)

type SupportTicket struct {
	ID      uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID  uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Subject string    `gorm:"size:255;not null" json:"subject"`
	Status  string    `gorm:"size:20;not null;default:'open';index" json:"status"`

	User     User            `gorm:"foreignkey:UserID" json:"user,omitempty"`
	Messages []TicketMessage `gorm:"foreignkey:TicketID" json:"messages,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *SupportTicket) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = TicketOpen
	}
	return nil
}

type TicketMessage struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	TicketID  uuid.UUID `gorm:"type:uuid;not null;index" json:"ticket_id"`
	SenderID  uuid.UUID `gorm:"type:uuid;not null" json:"sender_id"`
	FromAdmin bool      `gorm:"not null;default:false" json:"from_admin"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func (m *TicketMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
