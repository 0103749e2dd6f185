package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	RoleUnset   = "unset"
	RoleStudent = "student"
	RoleTutor   = "tutor"
)

const (
	LocaleArabic  = "ar"
	LocaleEnglish = "en"
)

type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	FullName string    `gorm:"size:255;not null" json:"full_name"`
	Email    string    `gorm:"size:255;not null;unique" json:"email"`
	Password string    `gorm:"not null" json:"-"`
	Role     string    `gorm:"size:20;not null;default:'unset'" json:"role"`
	IsAdmin  bool      `gorm:"not null;default:false" json:"is_admin"`
	Disabled bool      `gorm:"not null;default:false" json:"disabled"`

	Balance     decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"balance"`
	Rating      *float64        `json:"rating"`
	RatingCount int             `gorm:"not null;default:0" json:"rating_count"`

	ReferralCode   *string `gorm:"size:10;unique" json:"referral_code"`
	ReferredByCode *string `gorm:"size:10" json:"referred_by_code"`
	ReferralCount  int     `gorm:"not null;default:0" json:"referral_count"`

	AvatarURL *string `gorm:"size:255" json:"avatar_url"`
	Locale    string  `gorm:"size:5;not null;default:'ar'" json:"locale"`
	Gender    *string `gorm:"size:10" json:"gender"`
	Bio       *string `gorm:"type:text" json:"bio"`

	ResetPasswordToken          *string    `gorm:"size:255;unique" json:"-"`
	ResetPasswordTokenExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleUnset
	}
	if u.Locale == "" {
		u.Locale = LocaleArabic
	}
	return nil
}
