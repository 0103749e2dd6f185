// Package testutil opens throwaway databases and fixtures for package tests.
package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/anjiri1684/tutor_marketplace/database"
	"github.com/anjiri1684/tutor_marketplace/models"
)

// OpenDB returns a migrated in-memory database private to t. The pool holds a
// single connection so concurrent transactions run one after another.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateUser inserts a user with the given role and balance.
func CreateUser(t *testing.T, db *gorm.DB, role string, balance string) models.User {
	t.Helper()

	id := uuid.New()
	u := models.User{
		ID:       id,
		FullName: role + " " + id.String()[:8],
		Email:    id.String()[:8] + "@example.com",
		Password: "x",
		Role:     role,
		Balance:  decimal.RequireFromString(balance),
		Locale:   models.LocaleEnglish,
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

// CreateSession inserts a session request between student and tutor in the given status.
func CreateSession(t *testing.T, db *gorm.DB, student, tutor models.User, price, status string) models.SessionRequest {
	t.Helper()

	p := decimal.RequireFromString(price)
	r := models.SessionRequest{
		StudentID:   student.ID,
		Title:       "Essay review",
		Field:       "english",
		Price:       p,
		BasePrice:   p,
		SessionDate: "2026-10-20",
		SessionTime: "18:00",
		Status:      status,
	}
	if status != models.SessionOpen {
		r.TutorID = &tutor.ID
	}
	require.NoError(t, db.Create(&r).Error)
	return r
}

// Balance re-reads a user's balance.
func Balance(t *testing.T, db *gorm.DB, userID uuid.UUID) decimal.Decimal {
	t.Helper()

	var u models.User
	require.NoError(t, db.First(&u, "id = ?", userID).Error)
	return u.Balance
}

// LedgerRows returns every ledger row for userID, oldest first.
func LedgerRows(t *testing.T, db *gorm.DB, userID uuid.UUID) []models.Transaction {
	t.Helper()

	var rows []models.Transaction
	require.NoError(t, db.Where("user_id = ?", userID).Order("created_at asc").Find(&rows).Error)
	return rows
}
