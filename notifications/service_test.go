package notifications

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/testutil"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []Message
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type recordingPusher struct {
	pushed []uuid.UUID
}

func (p *recordingPusher) Push(userID uuid.UUID, _ interface{}) bool {
	p.pushed = append(p.pushed, userID)
	return true
}

func TestNotifyStoresPushesAndEmails(t *testing.T) {
	db := testutil.OpenDB(t)
	user := testutil.CreateUser(t, db, models.RoleStudent, "0")
	mailer := &recordingMailer{}
	pusher := &recordingPusher{}
	svc := NewService(db, pusher, mailer, zap.NewNop())

	svc.Notify(context.Background(), Notice{
		UserID: user.ID,
		Kind:   KindBalanceCredited,
		Params: map[string]string{"amount": "25.00"},
	})

	var rows []models.Notification
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "Balance credited", rows[0].Title)
	assert.Equal(t, "25.00 was added to your balance.", rows[0].Body)
	assert.False(t, rows[0].Read)

	assert.Equal(t, []uuid.UUID{user.ID}, pusher.pushed)
	require.Eventually(t, func() bool { return mailer.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestNotifyUsesRecipientLocale(t *testing.T) {
	db := testutil.OpenDB(t)
	user := testutil.CreateUser(t, db, models.RoleTutor, "0")
	require.NoError(t, db.Model(&user).Update("locale", models.LocaleArabic).Error)
	svc := NewService(db, nil, nil, zap.NewNop())

	svc.Notify(context.Background(), Notice{UserID: user.ID, Kind: KindWithdrawalApproved, Params: map[string]string{"amount": "10.00"}})

	var n models.Notification
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&n).Error)
	assert.Equal(t, "تمت الموافقة على السحب", n.Title)
}

func TestNotifyUnknownUserIsSwallowed(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := NewService(db, nil, nil, zap.NewNop())

	assert.NotPanics(t, func() {
		svc.Notify(context.Background(), Notice{UserID: uuid.New(), Kind: KindWelcome})
	})
}

func TestEmailOnlyNoticeIsNotStored(t *testing.T) {
	db := testutil.OpenDB(t)
	user := testutil.CreateUser(t, db, models.RoleStudent, "0")
	mailer := &recordingMailer{}
	svc := NewService(db, nil, mailer, zap.NewNop())

	svc.Notify(context.Background(), Notice{UserID: user.ID, Kind: KindPasswordReset, EmailOnly: true,
		Params: map[string]string{"link": "http://x/reset"}})

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
	require.Eventually(t, func() bool { return mailer.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestMarkRead(t *testing.T) {
	db := testutil.OpenDB(t)
	user := testutil.CreateUser(t, db, models.RoleStudent, "0")
	other := testutil.CreateUser(t, db, models.RoleStudent, "0")
	svc := NewService(db, nil, nil, zap.NewNop())
	ctx := context.Background()

	svc.Notify(ctx, Notice{UserID: user.ID, Kind: KindWelcome, Params: map[string]string{"name": "A"}})
	list, err := svc.ListMine(ctx, user.ID, true, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	assert.ErrorIs(t, svc.MarkRead(ctx, other.ID, list[0].ID), gorm.ErrRecordNotFound)
	require.NoError(t, svc.MarkRead(ctx, user.ID, list[0].ID))

	list, err = svc.ListMine(ctx, user.ID, true, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}
