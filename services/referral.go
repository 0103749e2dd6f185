package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/anjiri1684/tutor_marketplace/models"
)

// applyReferral credits the owner of code with one referral. Unknown codes
// are ignored and reported as false.
func applyReferral(tx *gorm.DB, code string) (bool, error) {
	if code == "" {
		return false, nil
	}
	res := tx.Model(&models.User{}).
		Where("referral_code = ?", NormalizeCode(code)).
		Update("referral_count", gorm.Expr("referral_count + 1"))
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "apply referral")
	}
	return res.RowsAffected > 0, nil
}

type ReferralStats struct {
	Code     string `json:"referral_code"`
	Count    int    `json:"referral_count"`
	Referred int64  `json:"referred_users"`
}

func (s *AuthService) ReferralStats(ctx context.Context, userID uuid.UUID) (*ReferralStats, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", userID).Error; err != nil {
		return nil, lookupErr(err, "user")
	}
	stats := &ReferralStats{Count: u.ReferralCount}
	if u.ReferralCode != nil {
		stats.Code = *u.ReferralCode
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("referred_by_code = ?", stats.Code).Count(&stats.Referred).Error; err != nil {
			return nil, errors.Wrap(err, "count referred users")
		}
	}
	return stats, nil
}
