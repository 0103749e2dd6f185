package services

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/notifications"
	"github.com/anjiri1684/tutor_marketplace/utils"
)

var (
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
)

const resetTokenTTL = 15 * time.Minute

type AuthService struct {
	db          *gorm.DB
	notifier    Notifier
	log         *zap.Logger
	jwtSecret   []byte
	jwtTTL      time.Duration
	frontendURL string
	now         func() time.Time
}

func NewAuthService(db *gorm.DB, notifier Notifier, log *zap.Logger, jwtSecret string, jwtTTL time.Duration, frontendURL string) *AuthService {
	return &AuthService{
		db:          db,
		notifier:    notifier,
		log:         log,
		jwtSecret:   []byte(jwtSecret),
		jwtTTL:      jwtTTL,
		frontendURL: frontendURL,
		now:         time.Now,
	}
}

type Registration struct {
	FullName       string
	Email          string
	Password       string
	Locale         string
	ReferredByCode string
}

// Register creates the account. A known referral code bumps its owner's
// referral count in the same transaction; an unknown one is ignored.
func (s *AuthService) Register(ctx context.Context, in Registration) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	locale := in.Locale
	if locale != models.LocaleEnglish {
		locale = models.LocaleArabic
	}

	var user models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		email := strings.ToLower(strings.TrimSpace(in.Email))
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailTaken
		}

		code, err := utils.GenerateUniqueReferralCode(tx)
		if err != nil {
			return err
		}
		user = models.User{
			FullName:     in.FullName,
			Email:        email,
			Password:     string(hashed),
			Role:         models.RoleUnset,
			Locale:       locale,
			ReferralCode: &code,
		}

		referred, err := applyReferral(tx, in.ReferredByCode)
		if err != nil {
			return err
		}
		if referred {
			by := NormalizeCode(in.ReferredByCode)
			user.ReferredByCode = &by
		} else if in.ReferredByCode != "" {
			s.log.Info("unknown referral code ignored", zap.String("code", in.ReferredByCode))
		}

		if err := tx.Create(&user).Error; err != nil {
			if stderrors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailTaken
			}
			return errors.Wrap(err, "create user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notifications.Notice{UserID: user.ID, Kind: notifications.KindWelcome, Params: map[string]string{"name": user.FullName}})
	return &user, nil
}

// Login checks credentials and returns a signed token with the user id and admin flag.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if user.Disabled {
		return "", nil, ErrAccountDisabled
	}
	token, err := s.IssueToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, &user, nil
}

func (s *AuthService) IssueToken(user models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  user.ID.String(),
		"is_admin": user.IsAdmin,
		"exp":      s.now().Add(s.jwtTTL).Unix(),
	}
	t, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	return t, errors.Wrap(err, "sign token")
}

// ForgotPassword stores a reset token and emails the link. Unknown addresses
// succeed silently.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		return nil
	}

	token, err := utils.RandomToken(32)
	if err != nil {
		return errors.Wrap(err, "generate reset token")
	}
	expiration := s.now().Add(resetTokenTTL)
	err = s.db.WithContext(ctx).Model(&user).Updates(map[string]interface{}{
		"reset_password_token":            token,
		"reset_password_token_expires_at": expiration,
	}).Error
	if err != nil {
		return errors.Wrap(err, "save reset token")
	}

	s.notify(ctx, notifications.Notice{
		UserID:    user.ID,
		Kind:      notifications.KindPasswordReset,
		Params:    map[string]string{"link": s.frontendURL + "/reset-password?token=" + token},
		EmailOnly: true,
	})
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	var user models.User
	if err := s.db.WithContext(ctx).Where("reset_password_token = ?", token).First(&user).Error; err != nil {
		return ErrInvalidResetToken
	}
	resetFields := map[string]interface{}{"reset_password_token": nil, "reset_password_token_expires_at": nil}
	if user.ResetPasswordTokenExpiresAt == nil || user.ResetPasswordTokenExpiresAt.Before(s.now()) {
		s.db.WithContext(ctx).Model(&user).Updates(resetFields)
		return ErrInvalidResetToken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	resetFields["password"] = string(hashed)
	return errors.Wrap(s.db.WithContext(ctx).Model(&user).Updates(resetFields).Error, "update password")
}

// ChooseRole sets the role of a user who has none yet.
func (s *AuthService) ChooseRole(ctx context.Context, userID uuid.UUID, role string) (*models.User, error) {
	if role != models.RoleStudent && role != models.RoleTutor {
		return nil, errors.Wrapf(ErrInvalidState, "unknown role %q", role)
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND role = ?", userID, models.RoleUnset).
		Update("role", role)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "choose role")
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, lookupErr(err, "user")
	}
	if res.RowsAffected == 0 {
		return nil, errors.Wrap(ErrInvalidState, "role already chosen")
	}
	return &user, nil
}

func (s *AuthService) notify(ctx context.Context, notices ...notifications.Notice) {
	if s.notifier != nil {
		s.notifier.Notify(context.WithoutCancel(ctx), notices...)
	}
}
