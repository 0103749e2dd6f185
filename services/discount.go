package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anjiri1684/tutor_marketplace/models"
)

var hundred = decimal.NewFromInt(100)

type DiscountService struct {
	db *gorm.DB
}

func NewDiscountService(db *gorm.DB) *DiscountService {
	return &DiscountService{db: db}
}

type NewDiscountCode struct {
	Code       string
	Type       string
	Value      decimal.Decimal
	UsageLimit int
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *DiscountService) Create(ctx context.Context, in NewDiscountCode) (*models.DiscountCode, error) {
	code := NormalizeCode(in.Code)
	if code == "" {
		return nil, errors.Wrap(ErrInvalidDiscount, "empty code")
	}
	if in.Type != models.DiscountFixed && in.Type != models.DiscountPercentage {
		return nil, errors.Wrapf(ErrInvalidDiscount, "unknown type %q", in.Type)
	}
	if err := checkAmount(in.Value); err != nil {
		return nil, err
	}
	if in.Type == models.DiscountPercentage && in.Value.GreaterThan(hundred) {
		return nil, errors.Wrap(ErrInvalidAmount, "percentage above 100")
	}
	if in.UsageLimit < 1 {
		return nil, errors.Wrap(ErrInvalidAmount, "usage limit must be at least 1")
	}

	dc := models.DiscountCode{
		Code:       code,
		Type:       in.Type,
		Value:      in.Value,
		UsageLimit: in.UsageLimit,
		IsActive:   true,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.DiscountCode{}).Where("code = ?", code).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errors.Wrap(ErrInvalidState, "discount code already exists")
		}
		return tx.Create(&dc).Error
	})
	if err != nil {
		return nil, err
	}
	return &dc, nil
}

func (s *DiscountService) List(ctx context.Context) ([]models.DiscountCode, error) {
	var out []models.DiscountCode
	err := s.db.WithContext(ctx).Order("created_at desc").Find(&out).Error
	return out, errors.Wrap(err, "list discount codes")
}

func (s *DiscountService) SetActive(ctx context.Context, code string, active bool) (*models.DiscountCode, error) {
	code = NormalizeCode(code)
	res := s.db.WithContext(ctx).Model(&models.DiscountCode{}).Where("code = ?", code).Update("is_active", active)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "update discount code")
	}
	if res.RowsAffected == 0 {
		return nil, errors.Wrap(ErrNotFound, "discount code")
	}
	var dc models.DiscountCode
	if err := s.db.WithContext(ctx).First(&dc, "code = ?", code).Error; err != nil {
		return nil, lookupErr(err, "discount code")
	}
	return &dc, nil
}

// Preview computes the discounted price without consuming a use. The result
// is advisory; redemption re-validates the code.
func (s *DiscountService) Preview(ctx context.Context, code string, price decimal.Decimal) (decimal.Decimal, error) {
	if !price.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	var dc models.DiscountCode
	if err := s.db.WithContext(ctx).First(&dc, "code = ?", NormalizeCode(code)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, ErrInvalidDiscount
		}
		return decimal.Zero, errors.Wrap(err, "load discount code")
	}
	if !dc.Usable() {
		return decimal.Zero, ErrInvalidDiscount
	}
	return dc.Apply(price), nil
}

// redeem consumes one use of code inside tx and returns the discounted price.
// The increment is conditional on usage still being below the limit, so the
// limit holds under concurrent redemptions.
func (s *DiscountService) redeem(tx *gorm.DB, code string, price decimal.Decimal) (decimal.Decimal, error) {
	code = NormalizeCode(code)
	var dc models.DiscountCode
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&dc, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, ErrInvalidDiscount
		}
		return decimal.Zero, errors.Wrap(err, "load discount code")
	}
	if !dc.Usable() {
		return decimal.Zero, ErrInvalidDiscount
	}

	res := tx.Model(&models.DiscountCode{}).
		Where("code = ? AND is_active = ? AND usage_count < usage_limit", code, true).
		Update("usage_count", gorm.Expr("usage_count + 1"))
	if res.Error != nil {
		return decimal.Zero, errors.Wrap(res.Error, "redeem discount code")
	}
	if res.RowsAffected == 0 {
		return decimal.Zero, ErrInvalidDiscount
	}
	return dc.Apply(price), nil
}
