package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DiscountFixed      = "fixed"
	DiscountPercentage = "percentage"
)

var hundred = decimal.NewFromInt(100)

type DiscountCode struct {
	Code       string          `gorm:"size:32;primary_key" json:"code"`
	Type       string          `gorm:"size:20;not null" json:"type"`
	Value      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"value"`
	UsageCount int             `gorm:"not null;default:0" json:"usage_count"`
	UsageLimit int             `gorm:"not null" json:"usage_limit"`
	IsActive   bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Usable reports whether the code may be redeemed once more.
func (d DiscountCode) Usable() bool {
	return d.IsActive && d.UsageCount < d.UsageLimit
}

// Apply returns price after the discount, rounded to cents and never negative.
func (d DiscountCode) Apply(price decimal.Decimal) decimal.Decimal {
	var out decimal.Decimal
	switch d.Type {
	case DiscountFixed:
		out = price.Sub(d.Value)
	case DiscountPercentage:
		out = price.Mul(hundred.Sub(d.Value)).Div(hundred)
	default:
		out = price
	}
	if out.IsNegative() {
		return decimal.Zero
	}
	return out.Round(2)
}
