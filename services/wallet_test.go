package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/payments"
	"github.com/anjiri1684/tutor_marketplace/testutil"
)

type fakeGateway struct {
	captureStatus string
	created       int
	captured      int
}

func (g *fakeGateway) CreateOrder(_ context.Context, _ decimal.Decimal, _ string) (*payments.Order, error) {
	g.created++
	return &payments.Order{ID: "ORDER-1", Status: payments.OrderCreated}, nil
}

func (g *fakeGateway) CaptureOrder(_ context.Context, orderID string) (*payments.Order, error) {
	g.captured++
	return &payments.Order{ID: orderID, Status: g.captureStatus}, nil
}

func newTestWallet(t *testing.T, gw PaymentGateway) (*WalletService, *Ledger) {
	t.Helper()
	l, db, _ := newTestLedger(t)
	l.now = func() time.Time { return fixedNow }
	return NewWalletService(db, l, gw, "USD", zap.NewNop()), l
}

func TestDepositCaptureCreditsOnce(t *testing.T) {
	gw := &fakeGateway{captureStatus: payments.OrderCompleted}
	w, l := newTestWallet(t, gw)
	ctx := context.Background()
	student := testutil.CreateUser(t, l.db, models.RoleStudent, "10")

	dep, err := w.CreateDeposit(ctx, student.ID, dec("25.005"))
	require.NoError(t, err)
	assert.Equal(t, models.DepositPending, dep.Status)
	assert.True(t, dep.Amount.Equal(dec("25.01")))

	receipt, err := w.CaptureDeposit(ctx, student.ID, "ORDER-1")
	require.NoError(t, err)
	assert.True(t, receipt.Balances[student.ID].Equal(dec("35.01")))

	_, err = w.CaptureDeposit(ctx, student.ID, "ORDER-1")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 1, gw.captured)

	rows := testutil.LedgerRows(t, l.db, student.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, models.TxDeposit, rows[0].Type)
	require.NotNil(t, rows[0].DepositID)
	assert.Equal(t, dep.ID, *rows[0].DepositID)

	var stored models.Deposit
	require.NoError(t, l.db.First(&stored, "id = ?", dep.ID).Error)
	assert.Equal(t, models.DepositSucceeded, stored.Status)
}

func TestDepositCaptureNotCompletedFails(t *testing.T) {
	w, l := newTestWallet(t, &fakeGateway{captureStatus: "PAYER_ACTION_REQUIRED"})
	ctx := context.Background()
	student := testutil.CreateUser(t, l.db, models.RoleStudent, "10")

	dep, err := w.CreateDeposit(ctx, student.ID, dec("20"))
	require.NoError(t, err)
	_, err = w.CaptureDeposit(ctx, student.ID, "ORDER-1")
	assert.ErrorIs(t, err, ErrInvalidState)

	assert.True(t, testutil.Balance(t, l.db, student.ID).Equal(dec("10")))
	var stored models.Deposit
	require.NoError(t, l.db.First(&stored, "id = ?", dep.ID).Error)
	assert.Equal(t, models.DepositFailed, stored.Status)
}

func TestDepositCaptureOfAnotherUsersOrder(t *testing.T) {
	w, l := newTestWallet(t, &fakeGateway{captureStatus: payments.OrderCompleted})
	ctx := context.Background()
	owner := testutil.CreateUser(t, l.db, models.RoleStudent, "0")
	thief := testutil.CreateUser(t, l.db, models.RoleStudent, "0")

	_, err := w.CreateDeposit(ctx, owner.ID, dec("20"))
	require.NoError(t, err)
	_, err = w.CaptureDeposit(ctx, thief.ID, "ORDER-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDepositCaptureWithoutGateway(t *testing.T) {
	w, l := newTestWallet(t, nil)
	ctx := context.Background()
	student := testutil.CreateUser(t, l.db, models.RoleStudent, "10")
	orderID := "ORDER-STALE"
	dep := models.Deposit{
		UserID:          student.ID,
		Amount:          dec("20"),
		Currency:        "USD",
		Provider:        "paypal",
		ProviderOrderID: &orderID,
		Status:          models.DepositPending,
	}
	require.NoError(t, l.db.Create(&dep).Error)

	_, err := w.CaptureDeposit(ctx, student.ID, orderID)
	assert.ErrorIs(t, err, ErrNotConfigured)

	var stored models.Deposit
	require.NoError(t, l.db.First(&stored, "id = ?", dep.ID).Error)
	assert.Equal(t, models.DepositPending, stored.Status)
	assert.True(t, testutil.Balance(t, l.db, student.ID).Equal(dec("10")))
}

func TestWalletGet(t *testing.T) {
	w, l := newTestWallet(t, nil)
	ctx := context.Background()
	student := testutil.CreateUser(t, l.db, models.RoleStudent, "0")
	_, err := l.Execute(ctx, Credit(student.ID, dec("15"), "top up"))
	require.NoError(t, err)
	_, err = l.Execute(ctx, Debit(student.ID, dec("5"), "fee"))
	require.NoError(t, err)

	wallet, err := w.Get(ctx, student.ID, 1, 20)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(dec("10")))
	assert.Equal(t, "USD", wallet.Currency)
	assert.Equal(t, int64(2), wallet.Total)

	_, err = w.CreateDeposit(ctx, student.ID, dec("10"))
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestStatementHTML(t *testing.T) {
	w, l := newTestWallet(t, nil)
	ctx := context.Background()
	student := testutil.CreateUser(t, l.db, models.RoleStudent, "0")
	_, err := l.Execute(ctx, Credit(student.ID, dec("15"), "top <up>"))
	require.NoError(t, err)
	_, err = l.Execute(ctx, Debit(student.ID, dec("5"), "fee"))
	require.NoError(t, err)
	var user models.User
	require.NoError(t, l.db.First(&user, "id = ?", student.ID).Error)

	var rendered string
	s := NewStatementService(w, func(_ context.Context, html string) ([]byte, error) {
		rendered = html
		return []byte("%PDF"), nil
	})
	from, to, err := StatementRange("2026-10-01", "2026-10-31", fixedNow)
	require.NoError(t, err)

	pdf, err := s.PDF(ctx, user, from, to)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), pdf)
	assert.Contains(t, rendered, `lang="en"`)
	assert.Contains(t, rendered, "15.00")
	assert.Contains(t, rendered, "-5.00")
	assert.Contains(t, rendered, "top &lt;up&gt;")
	assert.Contains(t, rendered, "10.00")

	empty, err := s.HTML(ctx, user, from.AddDate(0, -3, 0), from.AddDate(0, -2, 0))
	require.NoError(t, err)
	assert.True(t, strings.Contains(empty, "No transactions"))
}

func TestStatementRange(t *testing.T) {
	from, to, err := StatementRange("", "", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), to)
	assert.Equal(t, to.AddDate(0, 0, -30), from)

	from, to, err = StatementRange("2026-01-01", "2026-01-31", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), to)

	_, _, err = StatementRange("2026-02-01", "2026-01-01", fixedNow)
	assert.Error(t, err)
	_, _, err = StatementRange("yesterday", "", fixedNow)
	assert.Error(t, err)
}
