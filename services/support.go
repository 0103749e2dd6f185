package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/notifications"
)

// SupportService keeps user and admin conversations as ticket threads.
type SupportService struct {
	db       *gorm.DB
	notifier Notifier
	now      func() time.Time
}

func NewSupportService(db *gorm.DB, notifier Notifier) *SupportService {
	return &SupportService{db: db, notifier: notifier, now: time.Now}
}

func (s *SupportService) Open(ctx context.Context, userID uuid.UUID, subject, body string) (*models.SupportTicket, error) {
	ticket := models.SupportTicket{UserID: userID, Subject: subject, Status: models.TicketOpen}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ticket).Error; err != nil {
			return errors.Wrap(err, "create ticket")
		}
		msg := models.TicketMessage{TicketID: ticket.ID, SenderID: userID, Body: body}
		if err := tx.Create(&msg).Error; err != nil {
			return errors.Wrap(err, "create ticket message")
		}
		ticket.Messages = []models.TicketMessage{msg}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (s *SupportService) ListMine(ctx context.Context, userID uuid.UUID) ([]models.SupportTicket, error) {
	var out []models.SupportTicket
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("updated_at desc").Find(&out).Error
	return out, errors.Wrap(err, "list tickets")
}

func (s *SupportService) ListAll(ctx context.Context, status string, page, size int) ([]models.SupportTicket, error) {
	q := s.db.WithContext(ctx).Preload("User", selectContactUser)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.SupportTicket
	err := paginate(q, page, size).Order("updated_at desc").Find(&out).Error
	return out, errors.Wrap(err, "list tickets")
}

// Get returns the ticket with its thread to its owner or an admin.
func (s *SupportService) Get(ctx context.Context, id uuid.UUID, viewer models.User) (*models.SupportTicket, error) {
	var t models.SupportTicket
	err := s.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		First(&t, "id = ?", id).Error
	if err != nil {
		return nil, lookupErr(err, "ticket")
	}
	if t.UserID != viewer.ID && !viewer.IsAdmin {
		return nil, ErrForbidden
	}
	return &t, nil
}

// Reply appends to the thread. An admin reply marks the ticket answered and
// notifies the owner; an owner reply reopens it.
func (s *SupportService) Reply(ctx context.Context, id uuid.UUID, sender models.User, body string) (*models.TicketMessage, error) {
	var (
		ticket models.SupportTicket
		msg    models.TicketMessage
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&ticket, "id = ?", id).Error; err != nil {
			return lookupErr(err, "ticket")
		}
		fromAdmin := sender.IsAdmin && ticket.UserID != sender.ID
		if ticket.UserID != sender.ID && !fromAdmin {
			return ErrForbidden
		}
		if ticket.Status == models.TicketClosed {
			return errors.Wrap(ErrInvalidState, "ticket is closed")
		}

		msg = models.TicketMessage{TicketID: ticket.ID, SenderID: sender.ID, FromAdmin: fromAdmin, Body: body}
		if err := tx.Create(&msg).Error; err != nil {
			return errors.Wrap(err, "create ticket message")
		}
		status := models.TicketOpen
		if fromAdmin {
			status = models.TicketAnswered
		}
		ticket.Status = status
		return errors.Wrap(tx.Model(&ticket).Updates(map[string]interface{}{"status": status, "updated_at": s.now()}).Error, "update ticket")
	})
	if err != nil {
		return nil, err
	}

	if msg.FromAdmin && s.notifier != nil {
		s.notifier.Notify(context.WithoutCancel(ctx), notifications.Notice{
			UserID: ticket.UserID,
			Kind:   notifications.KindTicketReply,
			Params: map[string]string{"subject": ticket.Subject},
		})
	}
	return &msg, nil
}

func (s *SupportService) Close(ctx context.Context, id uuid.UUID, actor models.User) error {
	var ticket models.SupportTicket
	if err := s.db.WithContext(ctx).First(&ticket, "id = ?", id).Error; err != nil {
		return lookupErr(err, "ticket")
	}
	if ticket.UserID != actor.ID && !actor.IsAdmin {
		return ErrForbidden
	}
	res := s.db.WithContext(ctx).Model(&models.SupportTicket{}).
		Where("id = ? AND status <> ?", id, models.TicketClosed).
		Updates(map[string]interface{}{"status": models.TicketClosed, "updated_at": s.now()})
	if res.Error != nil {
		return errors.Wrap(res.Error, "close ticket")
	}
	if res.RowsAffected == 0 {
		return errors.Wrap(ErrInvalidState, "ticket already closed")
	}
	return nil
}
