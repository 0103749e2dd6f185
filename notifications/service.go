package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"html"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/anjiri1684/tutor_marketplace/locales"
	"github.com/anjiri1684/tutor_marketplace/models"
)

// Pusher delivers an event to a connected user.
type Pusher interface {
	Push(userID uuid.UUID, payload interface{}) bool
}

type Event struct {
	Type         string              `json:"type"`
	Notification models.Notification `json:"notification"`
}

// Service stores, pushes and emails notices. Every step is best effort:
// failures are logged and never returned to the caller.
type Service struct {
	db     *gorm.DB
	hub    Pusher
	mailer Mailer
	log    *zap.Logger
}

func NewService(db *gorm.DB, hub Pusher, mailer Mailer, log *zap.Logger) *Service {
	return &Service{db: db, hub: hub, mailer: mailer, log: log}
}

func (s *Service) Notify(ctx context.Context, notices ...Notice) {
	for _, n := range notices {
		s.notify(ctx, n)
	}
}

func (s *Service) notify(ctx context.Context, n Notice) {
	var user models.User
	err := s.db.WithContext(ctx).Select("id", "full_name", "email", "locale").First(&user, "id = ?", n.UserID).Error
	if err != nil {
		s.log.Warn("notify: recipient lookup failed", zap.Stringer("user_id", n.UserID), zap.String("kind", n.Kind), zap.Error(err))
		return
	}

	title := locales.T(user.Locale, "notifications", n.Kind+".title", n.Params)
	body := locales.T(user.Locale, "notifications", n.Kind+".body", n.Params)

	if !n.EmailOnly {
		row := models.Notification{UserID: user.ID, Kind: n.Kind, Title: title, Body: body}
		if len(n.Params) > 0 {
			if b, err := json.Marshal(n.Params); err == nil {
				row.Data = datatypes.JSON(b)
			}
		}
		if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
			s.log.Warn("notify: store failed", zap.Stringer("user_id", user.ID), zap.String("kind", n.Kind), zap.Error(err))
		} else if s.hub != nil {
			s.hub.Push(user.ID, Event{Type: "notification", Notification: row})
		}
	}

	if s.mailer == nil || user.Email == "" {
		return
	}
	msg := Message{
		ToName:  user.FullName,
		ToEmail: user.Email,
		Subject: title,
		Text:    body,
		HTML:    fmt.Sprintf("<h2>%s</h2><p>%s</p>", html.EscapeString(title), html.EscapeString(body)),
	}
	go func() {
		if err := s.mailer.Send(context.Background(), msg); err != nil {
			s.log.Warn("notify: email failed", zap.String("to", msg.ToEmail), zap.String("kind", n.Kind), zap.Error(err))
		}
	}()
}

func (s *Service) ListMine(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("read = ?", false)
	}
	var out []models.Notification
	err := q.Order("created_at desc").Limit(limit).Find(&out).Error
	return out, errors.Wrap(err, "list notifications")
}

// MarkRead returns gorm.ErrRecordNotFound when id does not belong to userID.
func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		return errors.Wrap(res.Error, "mark notification read")
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true).Error
	return errors.Wrap(err, "mark notifications read")
}
