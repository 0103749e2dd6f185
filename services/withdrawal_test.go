package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/notifications"
	"github.com/anjiri1684/tutor_marketplace/testutil"
)

func TestWithdrawalRequestAndApprove(t *testing.T) {
	l, db, n := newTestLedger(t)
	svc := NewWithdrawalService(db, l, n, zap.NewNop())
	ctx := context.Background()
	tutor := testutil.CreateUser(t, db, models.RoleTutor, "300")

	w, err := svc.Request(ctx, tutor.ID, dec("120"), "IBAN SA00 0000")
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalPending, w.Status)
	assert.True(t, testutil.Balance(t, db, tutor.ID).Equal(dec("300")), "requesting holds no funds")

	approved, err := svc.Approve(ctx, w.ID, "paid")
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalApproved, approved.Status)
	assert.Equal(t, "paid", *approved.AdminNotes)
	assert.True(t, testutil.Balance(t, db, tutor.ID).Equal(dec("180")))

	_, err = svc.Approve(ctx, w.ID, "")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.True(t, testutil.Balance(t, db, tutor.ID).Equal(dec("180")))
	assert.Equal(t, []string{notifications.KindWithdrawalApproved}, n.kinds())

	mine, err := svc.ListMine(ctx, tutor.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
}

func TestWithdrawalRequestChecks(t *testing.T) {
	l, db, _ := newTestLedger(t)
	svc := NewWithdrawalService(db, l, nil, zap.NewNop())
	ctx := context.Background()
	tutor := testutil.CreateUser(t, db, models.RoleTutor, "50")
	student := testutil.CreateUser(t, db, models.RoleStudent, "500")

	_, err := svc.Request(ctx, tutor.ID, dec("60"), "bank")
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	_, err = svc.Request(ctx, tutor.ID, dec("-1"), "bank")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.Request(ctx, student.ID, dec("10"), "bank")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestWithdrawalApproveRechecksBalance(t *testing.T) {
	l, db, _ := newTestLedger(t)
	svc := NewWithdrawalService(db, l, nil, zap.NewNop())
	ctx := context.Background()
	tutor := testutil.CreateUser(t, db, models.RoleTutor, "100")

	w, err := svc.Request(ctx, tutor.ID, dec("80"), "bank")
	require.NoError(t, err)
	_, err = l.Execute(ctx, Debit(tutor.ID, dec("50"), "correction"))
	require.NoError(t, err)

	_, err = svc.Approve(ctx, w.ID, "")
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	var stored models.WithdrawalRequest
	require.NoError(t, db.First(&stored, "id = ?", w.ID).Error)
	assert.Equal(t, models.WithdrawalPending, stored.Status)
}

func TestWithdrawalReject(t *testing.T) {
	l, db, n := newTestLedger(t)
	svc := NewWithdrawalService(db, l, n, zap.NewNop())
	ctx := context.Background()
	tutor := testutil.CreateUser(t, db, models.RoleTutor, "100")

	w, err := svc.Request(ctx, tutor.ID, dec("80"), "bank")
	require.NoError(t, err)
	rejected, err := svc.Reject(ctx, w.ID, "wrong IBAN")
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalRejected, rejected.Status)
	assert.True(t, testutil.Balance(t, db, tutor.ID).Equal(dec("100")))
	assert.Empty(t, testutil.LedgerRows(t, db, tutor.ID))
	assert.Equal(t, []string{notifications.KindWithdrawalRejected}, n.kinds())

	_, err = svc.Reject(ctx, w.ID, "")
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = svc.Approve(ctx, w.ID, "")
	assert.ErrorIs(t, err, ErrInvalidState)

	pending, err := svc.List(ctx, models.WithdrawalPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestConcurrentWithdrawalApprovalsOnlyOneFits(t *testing.T) {
	l, db, _ := newTestLedger(t)
	svc := NewWithdrawalService(db, l, nil, zap.NewNop())
	ctx := context.Background()
	tutor := testutil.CreateUser(t, db, models.RoleTutor, "100")

	first, err := svc.Request(ctx, tutor.ID, dec("80"), "bank")
	require.NoError(t, err)
	second, err := svc.Request(ctx, tutor.ID, dec("80"), "bank")
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for _, w := range []*models.WithdrawalRequest{first, second} {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := svc.Approve(context.Background(), id, "")
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrInsufficientBalance)
		}(w.ID)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.True(t, testutil.Balance(t, db, tutor.ID).Equal(dec("20")))
	assert.Len(t, testutil.LedgerRows(t, db, tutor.ID), 1)

	var pending int64
	require.NoError(t, db.Model(&models.WithdrawalRequest{}).
		Where("user_id = ? AND status = ?", tutor.ID, models.WithdrawalPending).
		Count(&pending).Error)
	assert.Equal(t, int64(1), pending)
}
