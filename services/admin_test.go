package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/testutil"
)

func newTestAdmin(t *testing.T) (*AdminService, *Ledger) {
	t.Helper()
	l, db, _ := newTestLedger(t)
	l.now = func() time.Time { return fixedNow }
	return NewAdminService(db, NewWalletService(db, l, nil, "USD", zap.NewNop())), l
}

func TestAdminDashboard(t *testing.T) {
	svc, l := newTestAdmin(t)
	ctx := context.Background()
	db := l.db
	student := testutil.CreateUser(t, db, models.RoleStudent, "100")
	tutor := testutil.CreateUser(t, db, models.RoleTutor, "0")
	testutil.CreateUser(t, db, models.RoleTutor, "0")
	req := testutil.CreateSession(t, db, student, tutor, "40", models.SessionAccepted)
	testutil.CreateSession(t, db, student, tutor, "25", models.SessionOpen)
	_, err := l.Execute(ctx, SettleSession(req.ID, tutor.ID))
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.WithdrawalRequest{UserID: tutor.ID, Amount: dec("10"), Details: "bank"}).Error)
	_, err = NewSupportService(db, nil).Open(ctx, student.ID, "Help", "body")
	require.NoError(t, err)

	d, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.UsersByRole[models.RoleStudent])
	assert.Equal(t, int64(2), d.UsersByRole[models.RoleTutor])
	assert.Equal(t, int64(1), d.SessionsByStatus[models.SessionCompleted])
	assert.Equal(t, int64(1), d.SessionsByStatus[models.SessionOpen])
	assert.True(t, d.GrossSessionVolume.Equal(dec("40")), d.GrossSessionVolume.String())
	assert.True(t, d.PlatformCommission.Equal(dec("8")), d.PlatformCommission.String())
	assert.Equal(t, int64(1), d.PendingWithdrawals)
	assert.True(t, d.PendingWithdrawn.Equal(dec("10")))
	assert.Equal(t, int64(1), d.OpenSupportTickets)
	assert.True(t, d.TotalUserBalances.Equal(dec("92")), d.TotalUserBalances.String())
}

func TestAdminReportCSV(t *testing.T) {
	svc, l := newTestAdmin(t)
	ctx := context.Background()
	student := testutil.CreateUser(t, l.db, models.RoleStudent, "100")
	tutor := testutil.CreateUser(t, l.db, models.RoleTutor, "0")
	req := testutil.CreateSession(t, l.db, student, tutor, "40", models.SessionAccepted)
	_, err := l.Execute(ctx, SettleSession(req.ID, tutor.ID))
	require.NoError(t, err)

	var buf bytes.Buffer
	from, to, err := StatementRange("2026-10-01", "2026-10-31", fixedNow)
	require.NoError(t, err)
	require.NoError(t, svc.WriteReport(ctx, &buf, from, to))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Transaction ID", records[0][0])

	byType := map[string][]string{}
	for _, r := range records[1:] {
		byType[r[4]] = r
	}
	assert.Equal(t, "-40.00", byType[models.TxSessionPayment][5])
	assert.Equal(t, student.Email, byType[models.TxSessionPayment][3])
	assert.Equal(t, "32.00", byType[models.TxSessionPayout][5])
	assert.Equal(t, req.ID.String(), byType[models.TxSessionPayout][6])

	buf.Reset()
	require.NoError(t, svc.WriteReport(ctx, &buf, from.AddDate(-1, 0, 0), from.AddDate(0, -6, 0)))
	records, err = csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestAdminUserManagement(t *testing.T) {
	svc, l := newTestAdmin(t)
	ctx := context.Background()
	student := testutil.CreateUser(t, l.db, models.RoleStudent, "0")
	admin := testutil.CreateUser(t, l.db, models.RoleUnset, "0")
	require.NoError(t, l.db.Model(&admin).Update("is_admin", true).Error)

	found, err := svc.FindUser(ctx, student.Email)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, student.ID, found.ID)

	found, err = svc.FindUser(ctx, student.ID.String())
	require.NoError(t, err)
	require.NotNil(t, found)

	found, err = svc.FindUser(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, found)

	u, err := svc.SetDisabled(ctx, student.ID, true)
	require.NoError(t, err)
	assert.True(t, u.Disabled)
	_, err = svc.SetDisabled(ctx, admin.ID, true)
	assert.ErrorIs(t, err, ErrNotFound)

	users, total, err := svc.SearchUsers(ctx, UserFilter{Role: models.RoleStudent})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, users, 1)
}
