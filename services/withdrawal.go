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

type WithdrawalService struct {
	db       *gorm.DB
	ledger   *Ledger
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewWithdrawalService(db *gorm.DB, ledger *Ledger, notifier Notifier, log *zap.Logger) *WithdrawalService {
	return &WithdrawalService{db: db, ledger: ledger, notifier: notifier, log: log, now: time.Now}
}

// Request files a pending withdrawal. The balance check here is advisory;
// the binding check runs again when an admin approves.
func (s *WithdrawalService) Request(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, details string) (*models.WithdrawalRequest, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, lookupErr(err, "user")
	}
	if user.Role != models.RoleTutor {
		return nil, ErrForbidden
	}
	if user.Balance.LessThan(amount) {
		return nil, ErrInsufficientBalance
	}

	w := models.WithdrawalRequest{
		UserID:   userID,
		UserName: user.FullName,
		Amount:   amount.Round(2),
		Details:  details,
		Status:   models.WithdrawalPending,
	}
	if err := s.db.WithContext(ctx).Create(&w).Error; err != nil {
		return nil, errors.Wrap(err, "create withdrawal request")
	}
	s.log.Info("withdrawal requested", zap.Stringer("id", w.ID), zap.Stringer("user_id", userID), zap.String("amount", w.Amount.String()))
	return &w, nil
}

func (s *WithdrawalService) Approve(ctx context.Context, id uuid.UUID, adminNotes string) (*models.WithdrawalRequest, error) {
	receipt, err := s.ledger.Execute(ctx, SettleWithdrawal(id, adminNotes))
	if err != nil {
		return nil, err
	}
	return receipt.Withdrawal, nil
}

// Reject closes a pending withdrawal without touching the balance or the ledger.
func (s *WithdrawalService) Reject(ctx context.Context, id uuid.UUID, adminNotes string) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&w, "id = ?", id).Error; err != nil {
			return lookupErr(err, "withdrawal request")
		}
		if w.Status != models.WithdrawalPending {
			return errors.Wrapf(ErrInvalidState, "withdrawal is %s", w.Status)
		}
		now := s.now()
		updates := map[string]interface{}{"status": models.WithdrawalRejected, "processed_at": now}
		if adminNotes != "" {
			updates["admin_notes"] = adminNotes
		}
		res := tx.Model(&models.WithdrawalRequest{}).
			Where("id = ? AND status = ?", w.ID, models.WithdrawalPending).
			Updates(updates)
		if res.Error != nil {
			return errors.Wrap(res.Error, "reject withdrawal")
		}
		if res.RowsAffected == 0 {
			return errors.Wrap(ErrInvalidState, "withdrawal changed concurrently")
		}
		w.Status = models.WithdrawalRejected
		w.ProcessedAt = &now
		if adminNotes != "" {
			w.AdminNotes = &adminNotes
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Notify(context.WithoutCancel(ctx), notifications.Notice{
			UserID: w.UserID,
			Kind:   notifications.KindWithdrawalRejected,
			Params: map[string]string{"amount": w.Amount.StringFixed(2), "notes": adminNotes},
		})
	}
	return &w, nil
}

func (s *WithdrawalService) List(ctx context.Context, status string) ([]models.WithdrawalRequest, error) {
	q := s.db.WithContext(ctx)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.WithdrawalRequest
	err := q.Order("created_at asc").Find(&out).Error
	return out, errors.Wrap(err, "list withdrawals")
}

func (s *WithdrawalService) ListMine(ctx context.Context, userID uuid.UUID) ([]models.WithdrawalRequest, error) {
	var out []models.WithdrawalRequest
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&out).Error
	return out, errors.Wrap(err, "list withdrawals")
}
