package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/notifications"
)

type SessionService struct {
	db        *gorm.DB
	ledger    *Ledger
	discounts *DiscountService
	meetings  *MeetingService
	notifier  Notifier
	log       *zap.Logger
	now       func() time.Time
}

func NewSessionService(db *gorm.DB, ledger *Ledger, discounts *DiscountService, meetings *MeetingService, notifier Notifier, log *zap.Logger) *SessionService {
	return &SessionService{
		db:        db,
		ledger:    ledger,
		discounts: discounts,
		meetings:  meetings,
		notifier:  notifier,
		log:       log,
		now:       time.Now,
	}
}

type NewSessionRequest struct {
	Title        string
	Field        string
	Description  string
	Price        decimal.Decimal
	SessionDate  string
	SessionTime  string
	TutorGender  string
	DiscountCode string
}

// Create posts a new open request for studentID. When a discount code is
// given it is redeemed in the same transaction as the insert, so a rejected
// code leaves neither a request nor a consumed use behind.
func (s *SessionService) Create(ctx context.Context, studentID uuid.UUID, in NewSessionRequest) (*models.SessionRequest, error) {
	if !in.Price.IsPositive() {
		return nil, ErrInvalidAmount
	}

	req := models.SessionRequest{
		StudentID:   studentID,
		Title:       in.Title,
		Field:       in.Field,
		Description: in.Description,
		Price:       in.Price.Round(2),
		BasePrice:   in.Price.Round(2),
		SessionDate: in.SessionDate,
		SessionTime: in.SessionTime,
		TutorGender: in.TutorGender,
		Status:      models.SessionOpen,
	}
	if startsAt, err := req.StartsAt(time.UTC); err == nil {
		req.ExpiresAt = &startsAt
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var student models.User
		if err := tx.First(&student, "id = ?", studentID).Error; err != nil {
			return lookupErr(err, "user")
		}
		if student.Role != models.RoleStudent {
			return ErrForbidden
		}

		if in.DiscountCode != "" {
			price, err := s.discounts.redeem(tx, in.DiscountCode, req.BasePrice)
			if err != nil {
				return err
			}
			code := NormalizeCode(in.DiscountCode)
			req.Price = price
			req.DiscountCode = &code
		}
		return errors.Wrap(tx.Create(&req).Error, "create session request")
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("session request created", zap.Stringer("id", req.ID), zap.Stringer("student_id", studentID))
	return &req, nil
}

func (s *SessionService) PreviewDiscount(ctx context.Context, code string, price decimal.Decimal) (decimal.Decimal, error) {
	return s.discounts.Preview(ctx, code, price)
}

func (s *SessionService) Accept(ctx context.Context, id, tutorID uuid.UUID) (*models.SessionRequest, error) {
	var req models.SessionRequest
	var tutor models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&tutor, "id = ?", tutorID).Error; err != nil {
			return lookupErr(err, "user")
		}
		if tutor.Role != models.RoleTutor {
			return ErrForbidden
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&req, "id = ?", id).Error; err != nil {
			return lookupErr(err, "session request")
		}
		if req.StudentID == tutorID {
			return ErrForbidden
		}
		if req.Status != models.SessionOpen {
			return errors.Wrapf(ErrInvalidState, "session is %s", req.Status)
		}
		if req.ExpiresAt != nil && !req.ExpiresAt.After(s.now()) {
			return errors.Wrap(ErrInvalidState, "request has expired")
		}
		if !genderMatches(req.TutorGender, tutor.Gender) {
			return ErrForbidden
		}

		now := s.now()
		link := s.meetings.Link(req.ID)
		res := tx.Model(&models.SessionRequest{}).
			Where("id = ? AND status = ?", req.ID, models.SessionOpen).
			Updates(map[string]interface{}{
				"status":       models.SessionAccepted,
				"tutor_id":     tutorID,
				"accepted_at":  now,
				"meeting_link": link,
				"updated_at":   now,
			})
		if res.Error != nil {
			return errors.Wrap(res.Error, "accept session")
		}
		if res.RowsAffected == 0 {
			return errors.Wrap(ErrInvalidState, "session changed concurrently")
		}
		req.Status = models.SessionAccepted
		req.TutorID = &tutorID
		req.AcceptedAt = &now
		req.MeetingLink = &link
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notifications.Notice{
		UserID: req.StudentID,
		Kind:   notifications.KindSessionAccepted,
		Params: map[string]string{"title": req.Title, "tutor": tutor.FullName, "link": *req.MeetingLink},
	})
	return &req, nil
}

// Cancel moves a request to cancelled. The student may cancel while open or
// accepted, the assigned tutor only once accepted. No funds move.
func (s *SessionService) Cancel(ctx context.Context, id, actorID uuid.UUID) (*models.SessionRequest, error) {
	var req models.SessionRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&req, "id = ?", id).Error; err != nil {
			return lookupErr(err, "session request")
		}

		isStudent := req.StudentID == actorID
		isTutor := req.TutorID != nil && *req.TutorID == actorID
		if !isStudent && !isTutor {
			return ErrForbidden
		}
		switch {
		case req.Status == models.SessionAccepted:
		case req.Status == models.SessionOpen && isStudent:
		default:
			return errors.Wrapf(ErrInvalidState, "cannot cancel a %s session", req.Status)
		}

		now := s.now()
		res := tx.Model(&models.SessionRequest{}).
			Where("id = ? AND status = ?", req.ID, req.Status).
			Updates(map[string]interface{}{"status": models.SessionCancelled, "cancelled_by": actorID, "updated_at": now})
		if res.Error != nil {
			return errors.Wrap(res.Error, "cancel session")
		}
		if res.RowsAffected == 0 {
			return errors.Wrap(ErrInvalidState, "session changed concurrently")
		}
		req.Status = models.SessionCancelled
		req.CancelledBy = &actorID
		return nil
	})
	if err != nil {
		return nil, err
	}

	other := req.StudentID
	if other == actorID {
		if req.TutorID == nil {
			return &req, nil
		}
		other = *req.TutorID
	}
	s.notify(ctx, notifications.Notice{
		UserID: other,
		Kind:   notifications.KindSessionCancelled,
		Params: map[string]string{"title": req.Title},
	})
	return &req, nil
}

// Complete settles an accepted session. Only its tutor may complete it.
func (s *SessionService) Complete(ctx context.Context, id, actorID uuid.UUID) (*Receipt, error) {
	return s.ledger.Execute(ctx, SettleSession(id, actorID))
}

type OpenFilter struct {
	Field string
	Page  int
	Size  int
}

// ListOpen returns unexpired open requests a tutor may accept.
func (s *SessionService) ListOpen(ctx context.Context, tutorID uuid.UUID, f OpenFilter) ([]models.SessionRequest, error) {
	var tutor models.User
	if err := s.db.WithContext(ctx).First(&tutor, "id = ?", tutorID).Error; err != nil {
		return nil, lookupErr(err, "user")
	}
	if tutor.Role != models.RoleTutor {
		return nil, ErrForbidden
	}

	genders := []string{models.GenderAny}
	if tutor.Gender != nil {
		genders = append(genders, *tutor.Gender)
	}
	q := s.db.WithContext(ctx).
		Where("status = ? AND student_id <> ?", models.SessionOpen, tutorID).
		Where("expires_at IS NULL OR expires_at > ?", s.now()).
		Where("tutor_gender IN ?", genders)
	if f.Field != "" {
		q = q.Where("field = ?", f.Field)
	}

	var out []models.SessionRequest
	err := paginate(q, f.Page, f.Size).Order("created_at desc").Find(&out).Error
	return out, errors.Wrap(err, "list open requests")
}

func (s *SessionService) ListForStudent(ctx context.Context, studentID uuid.UUID, status string) ([]models.SessionRequest, error) {
	q := s.db.WithContext(ctx).Preload("Tutor", selectPublicUser).Where("student_id = ?", studentID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.SessionRequest
	err := q.Order("created_at desc").Find(&out).Error
	return out, errors.Wrap(err, "list student requests")
}

func (s *SessionService) ListForTutor(ctx context.Context, tutorID uuid.UUID, status string) ([]models.SessionRequest, error) {
	q := s.db.WithContext(ctx).Preload("Student", selectPublicUser).Where("tutor_id = ?", tutorID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.SessionRequest
	err := q.Order("session_date desc, session_time desc").Find(&out).Error
	return out, errors.Wrap(err, "list tutor sessions")
}

// Get returns a request visible to viewer: its participants, admins, and any
// tutor while the request is still open.
func (s *SessionService) Get(ctx context.Context, id uuid.UUID, viewer models.User) (*models.SessionRequest, error) {
	var req models.SessionRequest
	err := s.db.WithContext(ctx).
		Preload("Student", selectPublicUser).
		Preload("Tutor", selectPublicUser).
		First(&req, "id = ?", id).Error
	if err != nil {
		return nil, lookupErr(err, "session request")
	}
	switch {
	case viewer.IsAdmin, req.IsParticipant(viewer.ID):
	case req.Status == models.SessionOpen && viewer.Role == models.RoleTutor:
	default:
		return nil, ErrForbidden
	}
	return &req, nil
}

func (s *SessionService) notify(ctx context.Context, notices ...notifications.Notice) {
	if s.notifier != nil {
		s.notifier.Notify(context.WithoutCancel(ctx), notices...)
	}
}

func genderMatches(wanted string, tutorGender *string) bool {
	if wanted == "" || wanted == models.GenderAny {
		return true
	}
	return tutorGender != nil && *tutorGender == wanted
}

func selectPublicUser(db *gorm.DB) *gorm.DB {
	return db.Select("id", "full_name", "avatar_url", "gender", "rating", "rating_count", "role")
}

func paginate(q *gorm.DB, page, size int) *gorm.DB {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	return q.Offset((page - 1) * size).Limit(size)
}
