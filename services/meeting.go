package services

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	config "github.com/anjiri1684/tutor_marketplace/configs"
	"github.com/anjiri1684/tutor_marketplace/models"
)

// MeetingService derives video-call rooms from session ids and signs Jitsi
// JWTs for their participants.
type MeetingService struct {
	db  *gorm.DB
	cfg config.JitsiConfig
	now func() time.Time
}

func NewMeetingService(db *gorm.DB, cfg config.JitsiConfig) *MeetingService {
	return &MeetingService{db: db, cfg: cfg, now: time.Now}
}

func RoomName(sessionID uuid.UUID) string {
	return "session-" + strings.ReplaceAll(sessionID.String(), "-", "")
}

func (s *MeetingService) Link(sessionID uuid.UUID) string {
	return "https://" + s.cfg.Domain + "/" + RoomName(sessionID)
}

type MeetingAccess struct {
	Room      string    `json:"room"`
	Link      string    `json:"link"`
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	Moderator bool      `json:"moderator"`
}

type jitsiUser struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Moderator bool   `json:"moderator"`
}

type jitsiContext struct {
	User jitsiUser `json:"user"`
}

type jitsiClaims struct {
	Room    string       `json:"room"`
	Context jitsiContext `json:"context"`
	jwt.RegisteredClaims
}

// Access returns the room and a signed token for userID, who must take part
// in the accepted session. Without a configured secret the token is omitted.
func (s *MeetingService) Access(ctx context.Context, sessionID, userID uuid.UUID) (*MeetingAccess, error) {
	var req models.SessionRequest
	if err := s.db.WithContext(ctx).First(&req, "id = ?", sessionID).Error; err != nil {
		return nil, lookupErr(err, "session request")
	}
	if !req.IsParticipant(userID) {
		return nil, ErrForbidden
	}
	if req.Status != models.SessionAccepted {
		return nil, errors.Wrapf(ErrInvalidState, "session is %s", req.Status)
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, lookupErr(err, "user")
	}

	now := s.now()
	access := &MeetingAccess{
		Room:      RoomName(req.ID),
		Link:      s.Link(req.ID),
		ExpiresAt: now.Add(s.cfg.TokenTTL),
		Moderator: req.TutorID != nil && *req.TutorID == userID,
	}
	if s.cfg.Secret == "" {
		return access, nil
	}

	claims := jitsiClaims{
		Room: access.Room,
		Context: jitsiContext{User: jitsiUser{
			ID:        user.ID.String(),
			Name:      user.FullName,
			Email:     user.Email,
			Moderator: access.Moderator,
		}},
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{"jitsi"},
			Issuer:    s.cfg.AppID,
			Subject:   s.cfg.Domain,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(access.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, errors.Wrap(err, "sign meeting token")
	}
	access.Token = token
	access.Link += "?jwt=" + token
	return access, nil
}
