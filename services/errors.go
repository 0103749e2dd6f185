package services

import (
	stderrors "errors"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidState        = errors.New("invalid state for this operation")
	ErrInvalidDiscount     = errors.New("invalid or exhausted discount code")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("access denied")
	ErrAlreadyRated        = errors.New("already rated")
	ErrInvalidAmount       = errors.New("amount must be positive and in whole cents")
	ErrInvalidRating       = errors.New("rating must be between 1 and 5")
	ErrNotConfigured       = errors.New("feature is not configured")
)

// lookupErr turns gorm's record-not-found into ErrNotFound and wraps anything else.
func lookupErr(err error, what string) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrap(ErrNotFound, what)
	}
	return errors.Wrapf(err, "load %s", what)
}
