package utils

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	mrand "math/rand"

	"gorm.io/gorm"

	"github.com/anjiri1684/tutor_marketplace/models"
)

const referralCodeLength = 8
const letterBytes = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const maxCodeAttempts = 20

// GenerateUniqueReferralCode draws codes until one is not taken in tx.
func GenerateUniqueReferralCode(tx *gorm.DB) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		b := make([]byte, referralCodeLength)
		for j := range b {
			b[j] = letterBytes[mrand.Intn(len(letterBytes))]
		}
		code := string(b)

		var count int64
		if err := tx.Model(&models.User{}).Where("referral_code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", errors.New("could not generate a unique referral code")
}

// RandomToken returns n random bytes hex encoded.
func RandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
