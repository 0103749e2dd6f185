package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/notifications"
)

func newTestAuth(t *testing.T) (*AuthService, *recordingNotifier) {
	t.Helper()
	_, db, n := newTestLedger(t)
	return NewAuthService(db, n, zap.NewNop(), "test-secret", time.Hour, "https://app.example.com"), n
}

func register(t *testing.T, svc *AuthService, email, referral string) *models.User {
	t.Helper()
	u, err := svc.Register(context.Background(), Registration{
		FullName:       "User " + email,
		Email:          email,
		Password:       "password123",
		Locale:         models.LocaleEnglish,
		ReferredByCode: referral,
	})
	require.NoError(t, err)
	return u
}

func TestRegisterAndReferral(t *testing.T) {
	svc, n := newTestAuth(t)
	ctx := context.Background()

	referrer := register(t, svc, "Amal@Example.com", "")
	assert.Equal(t, "amal@example.com", referrer.Email)
	assert.Equal(t, models.RoleUnset, referrer.Role)
	require.NotNil(t, referrer.ReferralCode)
	assert.Len(t, *referrer.ReferralCode, 8)

	friend := register(t, svc, "friend@example.com", *referrer.ReferralCode)
	require.NotNil(t, friend.ReferredByCode)
	assert.Equal(t, *referrer.ReferralCode, *friend.ReferredByCode)

	stranger := register(t, svc, "stranger@example.com", "NOSUCHCD")
	assert.Nil(t, stranger.ReferredByCode)

	stats, err := svc.ReferralStats(ctx, referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Count)
	assert.Equal(t, int64(1), stats.Referred)

	_, err = svc.Register(ctx, Registration{FullName: "Dup", Email: "amal@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	assert.Equal(t, []string{notifications.KindWelcome, notifications.KindWelcome, notifications.KindWelcome}, n.kinds())
}

func TestLogin(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()
	u := register(t, svc, "tutor@example.com", "")

	token, got, err := svc.Login(ctx, " TUTOR@example.com ", "password123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, u.ID.String(), claims["user_id"])
	assert.Equal(t, false, claims["is_admin"])

	_, _, err = svc.Login(ctx, "tutor@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "ghost@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, svc.db.Model(&models.User{}).Where("id = ?", u.ID).Update("disabled", true).Error)
	_, _, err = svc.Login(ctx, "tutor@example.com", "password123")
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestPasswordReset(t *testing.T) {
	svc, n := newTestAuth(t)
	ctx := context.Background()
	u := register(t, svc, "reset@example.com", "")

	require.NoError(t, svc.ForgotPassword(ctx, "reset@example.com"))
	require.NoError(t, svc.ForgotPassword(ctx, "unknown@example.com"))

	var stored models.User
	require.NoError(t, svc.db.First(&stored, "id = ?", u.ID).Error)
	require.NotNil(t, stored.ResetPasswordToken)
	token := *stored.ResetPasswordToken

	last := n.notices[len(n.notices)-1]
	assert.Equal(t, notifications.KindPasswordReset, last.Kind)
	assert.True(t, last.EmailOnly)
	assert.Equal(t, "https://app.example.com/reset-password?token="+token, last.Params["link"])

	assert.ErrorIs(t, svc.ResetPassword(ctx, "bogus", "newpassword"), ErrInvalidResetToken)
	require.NoError(t, svc.ResetPassword(ctx, token, "newpassword"))
	assert.ErrorIs(t, svc.ResetPassword(ctx, token, "again"), ErrInvalidResetToken, "tokens are single use")

	_, _, err := svc.Login(ctx, "reset@example.com", "newpassword")
	require.NoError(t, err)
}

func TestPasswordResetExpires(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()
	u := register(t, svc, "late@example.com", "")
	require.NoError(t, svc.ForgotPassword(ctx, "late@example.com"))

	var stored models.User
	require.NoError(t, svc.db.First(&stored, "id = ?", u.ID).Error)

	svc.now = func() time.Time { return time.Now().Add(resetTokenTTL + time.Minute) }
	assert.ErrorIs(t, svc.ResetPassword(ctx, *stored.ResetPasswordToken, "newpassword"), ErrInvalidResetToken)
}

func TestChooseRole(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()
	u := register(t, svc, "role@example.com", "")

	_, err := svc.ChooseRole(ctx, u.ID, "admin")
	assert.ErrorIs(t, err, ErrInvalidState)

	updated, err := svc.ChooseRole(ctx, u.ID, models.RoleTutor)
	require.NoError(t, err)
	assert.Equal(t, models.RoleTutor, updated.Role)

	_, err = svc.ChooseRole(ctx, u.ID, models.RoleStudent)
	assert.ErrorIs(t, err, ErrInvalidState)
}
