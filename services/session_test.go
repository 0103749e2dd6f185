package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	config "github.com/anjiri1684/tutor_marketplace/configs"
	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/notifications"
	"github.com/anjiri1684/tutor_marketplace/testutil"
)

func newTestSessions(t *testing.T) (*SessionService, *gorm.DB, *recordingNotifier) {
	t.Helper()
	l, db, n := newTestLedger(t)
	meetings := NewMeetingService(db, config.JitsiConfig{Domain: "meet.example.com", TokenTTL: time.Hour})
	svc := NewSessionService(db, l, NewDiscountService(db), meetings, n, zap.NewNop())
	svc.now = func() time.Time { return fixedNow }
	return svc, db, n
}

func sessionInput(price string) NewSessionRequest {
	return NewSessionRequest{
		Title:       "Grammar help",
		Field:       "english",
		Price:       dec(price),
		SessionDate: "2026-10-20",
		SessionTime: "18:00",
	}
}

func TestCreateSessionRequest(t *testing.T) {
	svc, db, _ := newTestSessions(t)
	ctx := context.Background()
	student := testutil.CreateUser(t, db, models.RoleStudent, "100")

	req, err := svc.Create(ctx, student.ID, sessionInput("40"))
	require.NoError(t, err)
	assert.Equal(t, models.SessionOpen, req.Status)
	assert.Equal(t, models.GenderAny, req.TutorGender)
	require.NotNil(t, req.ExpiresAt)
	assert.True(t, req.ExpiresAt.Equal(time.Date(2026, 10, 20, 18, 0, 0, 0, time.UTC)))
	assert.True(t, testutil.Balance(t, db, student.ID).Equal(dec("100")), "posting a request must not move funds")
}

func TestCreateSessionRequestRejectsTutorsAndBadPrices(t *testing.T) {
	svc, db, _ := newTestSessions(t)
	ctx := context.Background()
	tutor := testutil.CreateUser(t, db, models.RoleTutor, "0")
	student := testutil.CreateUser(t, db, models.RoleStudent, "0")

	_, err := svc.Create(ctx, tutor.ID, sessionInput("40"))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Create(ctx, student.ID, sessionInput("0"))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Create(ctx, uuid.New(), sessionInput("10"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateSessionRequestRedeemsDiscount(t *testing.T) {
	svc, db, _ := newTestSessions(t)
	ctx := context.Background()
	student := testutil.CreateUser(t, db, models.RoleStudent, "100")
	_, err := svc.discounts.Create(ctx, NewDiscountCode{Code: "EID10", Type: models.DiscountPercentage, Value: dec("10"), UsageLimit: 2})
	require.NoError(t, err)

	in := sessionInput("50")
	in.DiscountCode = "eid10"
	for i := 0; i < 2; i++ {
		req, err := svc.Create(ctx, student.ID, in)
		require.NoError(t, err)
		assert.True(t, req.Price.Equal(dec("45")))
		assert.True(t, req.BasePrice.Equal(dec("50")))
		require.NotNil(t, req.DiscountCode)
		assert.Equal(t, "EID10", *req.DiscountCode)
	}

	_, err = svc.Create(ctx, student.ID, in)
	assert.ErrorIs(t, err, ErrInvalidDiscount)

	var count int64
	require.NoError(t, db.Model(&models.SessionRequest{}).Count(&count).Error)
	assert.Equal(t, int64(2), count, "a rejected code must not leave a request behind")

	var dc models.DiscountCode
	require.NoError(t, db.First(&dc, "code = ?", "EID10").Error)
	assert.Equal(t, 2, dc.UsageCount)
}

func TestAcceptSessionRequest(t *testing.T) {
	svc, db, n := newTestSessions(t)
	ctx := context.Background()
	student := testutil.CreateUser(t, db, models.RoleStudent, "100")
	tutor := testutil.CreateUser(t, db, models.RoleTutor, "0")
	other := testutil.CreateUser(t, db, models.RoleTutor, "0")
	req, err := svc.Create(ctx, student.ID, sessionInput("40"))
	require.NoError(t, err)

	accepted, err := svc.Accept(ctx, req.ID, tutor.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionAccepted, accepted.Status)
	assert.Equal(t, tutor.ID, *accepted.TutorID)
	assert.Equal(t, "https://meet.example.com/"+RoomName(req.ID), *accepted.MeetingLink)
	assert.Equal(t, []string{notifications.KindSessionAccepted}, n.kinds())

	_, err = svc.Accept(ctx, req.ID, other.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.Accept(ctx, req.ID, student.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAcceptRespectsGenderPreference(t *testing.T) {
	svc, db, _ := newTestSessions(t)
	ctx := context.Background()
	student := testutil.CreateUser(t, db, models.RoleStudent, "100")
	male := testutil.CreateUser(t, db, models.RoleTutor, "0")
	female := testutil.CreateUser(t, db, models.RoleTutor, "0")
	require.NoError(t, db.Model(&male).Update("gender", models.GenderMale).Error)
	require.NoError(t, db.Model(&female).Update("gender", models.GenderFemale).Error)

	in := sessionInput("40")
	in.TutorGender = models.GenderFemale
	req, err := svc.Create(ctx, student.ID, in)
	require.NoError(t, err)

	open, err := svc.ListOpen(ctx, male.ID, OpenFilter{})
	require.NoError(t, err)
	assert.Empty(t, open)

	_, err = svc.Accept(ctx, req.ID, male.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	open, err = svc.ListOpen(ctx, female.ID, OpenFilter{})
	require.NoError(t, err)
	require.Len(t, open, 1)

	_, err = svc.Accept(ctx, req.ID, female.ID)
	require.NoError(t, err)
}

func TestAcceptExpiredRequestFails(t *testing.T) {
	svc, db, _ := newTestSessions(t)
	ctx := context.Background()
	student := testutil.CreateUser(t, db, models.RoleStudent, "100")
	tutor := testutil.CreateUser(t, db, models.RoleTutor, "0")
	req, err := svc.Create(ctx, student.ID, sessionInput("40"))
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Date(2026, 10, 20, 18, 30, 0, 0, time.UTC) }
	_, err = svc.Accept(ctx, req.ID, tutor.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	open, err := svc.ListOpen(ctx, tutor.ID, OpenFilter{})
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestCancelRules(t *testing.T) {
	svc, db, n := newTestSessions(t)
	ctx := context.Background()
	student := testutil.CreateUser(t, db, models.RoleStudent, "100")
	tutor := testutil.CreateUser(t, db, models.RoleTutor, "0")

	open := testutil.CreateSession(t, db, student, tutor, "40", models.SessionOpen)
	_, err := svc.Cancel(ctx, open.ID, tutor.ID)
	assert.ErrorIs(t, err, ErrForbidden, "a tutor is not a participant of an open request")
	cancelled, err := svc.Cancel(ctx, open.ID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCancelled, cancelled.Status)
	assert.Empty(t, n.kinds(), "nobody else to tell about an open request")

	accepted := testutil.CreateSession(t, db, student, tutor, "40", models.SessionAccepted)
	cancelled, err = svc.Cancel(ctx, accepted.ID, tutor.ID)
	require.NoError(t, err)
	assert.Equal(t, tutor.ID, *cancelled.CancelledBy)
	assert.Equal(t, []string{notifications.KindSessionCancelled}, n.kinds())

	done := testutil.CreateSession(t, db, student, tutor, "40", models.SessionCompleted)
	_, err = svc.Cancel(ctx, done.ID, student.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	assert.True(t, testutil.Balance(t, db, student.ID).Equal(dec("100")))
	assert.Empty(t, testutil.LedgerRows(t, db, student.ID))
}

func TestCompleteSettlesThroughLedger(t *testing.T) {
	svc, db, _ := newTestSessions(t)
	ctx := context.Background()
	student := testutil.CreateUser(t, db, models.RoleStudent, "100")
	tutor := testutil.CreateUser(t, db, models.RoleTutor, "0")
	req := testutil.CreateSession(t, db, student, tutor, "40", models.SessionAccepted)

	_, err := svc.Complete(ctx, req.ID, student.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	receipt, err := svc.Complete(ctx, req.ID, tutor.ID)
	require.NoError(t, err)
	assert.True(t, receipt.Balances[student.ID].Equal(dec("60")))
	assert.True(t, receipt.Balances[tutor.ID].Equal(dec("32")))
}

func TestGetVisibility(t *testing.T) {
	svc, db, _ := newTestSessions(t)
	ctx := context.Background()
	student := testutil.CreateUser(t, db, models.RoleStudent, "100")
	tutor := testutil.CreateUser(t, db, models.RoleTutor, "0")
	stranger := testutil.CreateUser(t, db, models.RoleStudent, "0")
	otherTutor := testutil.CreateUser(t, db, models.RoleTutor, "0")

	open := testutil.CreateSession(t, db, student, tutor, "40", models.SessionOpen)
	_, err := svc.Get(ctx, open.ID, otherTutor)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, open.ID, stranger)
	assert.ErrorIs(t, err, ErrForbidden)

	accepted := testutil.CreateSession(t, db, student, tutor, "40", models.SessionAccepted)
	got, err := svc.Get(ctx, accepted.ID, student)
	require.NoError(t, err)
	require.NotNil(t, got.Tutor)
	assert.Equal(t, tutor.FullName, got.Tutor.FullName)
	_, err = svc.Get(ctx, accepted.ID, otherTutor)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Get(ctx, uuid.New(), student)
	assert.ErrorIs(t, err, ErrNotFound)
}
