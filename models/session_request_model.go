package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	SessionOpen      = "open"
	SessionAccepted  = "accepted"
	SessionCompleted = "completed"
	SessionCancelled = "cancelled"
)

const (
	GenderAny    = "any"
	GenderMale   = "male"
	GenderFemale = "female"
)

// SessionRequest is a paid help request posted by a student. It moves
// open -> accepted -> completed, and may be cancelled from open or accepted.
type SessionRequest struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	StudentID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"student_id"`
	TutorID      *uuid.UUID      `gorm:"type:uuid;index" json:"tutor_id"`
	Title        string          `gorm:"size:255;not null" json:"title"`
	Field        string          `gorm:"size:100;not null;index" json:"field"`
	Description  string          `gorm:"type:text" json:"description"`
	Price        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	BasePrice    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"base_price"`
	DiscountCode *string         `gorm:"size:32" json:"discount_code"`

	SessionDate string `gorm:"size:10;not null" json:"session_date"`
	SessionTime string `gorm:"size:5;not null" json:"session_time"`
	TutorGender string `gorm:"size:10;not null;default:'any'" json:"tutor_gender"`

	Status      string     `gorm:"size:20;not null;default:'open';index" json:"status"`
	MeetingLink *string    `gorm:"size:255" json:"meeting_link"`
	CancelledBy *uuid.UUID `gorm:"type:uuid" json:"cancelled_by,omitempty"`

	StudentRating *int `json:"student_rating"`
	TutorRating   *int `json:"tutor_rating"`

	ReminderSentAt *time.Time `json:"-"`
	AcceptedAt     *time.Time `json:"accepted_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	ExpiresAt      *time.Time `json:"expires_at"`

	Student *User `gorm:"foreignkey:StudentID" json:"student,omitempty"`
	Tutor   *User `gorm:"foreignkey:TutorID" json:"tutor,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *SessionRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = SessionOpen
	}
	if r.TutorGender == "" {
		r.TutorGender = GenderAny
	}
	return nil
}

// IsParticipant reports whether userID is the student or the assigned tutor.
func (r SessionRequest) IsParticipant(userID uuid.UUID) bool {
	return r.StudentID == userID || (r.TutorID != nil && *r.TutorID == userID)
}

// StartsAt combines SessionDate and SessionTime in loc.
func (r SessionRequest) StartsAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", r.SessionDate+" "+r.SessionTime, loc)
}
