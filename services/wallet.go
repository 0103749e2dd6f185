package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/payments"
)

// PaymentGateway creates and captures checkout orders at the payment provider.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency string) (*payments.Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*payments.Order, error)
}

type WalletService struct {
	db       *gorm.DB
	ledger   *Ledger
	gateway  PaymentGateway
	currency string
	log      *zap.Logger
}

func NewWalletService(db *gorm.DB, ledger *Ledger, gateway PaymentGateway, currency string, log *zap.Logger) *WalletService {
	return &WalletService{db: db, ledger: ledger, gateway: gateway, currency: currency, log: log}
}

type Wallet struct {
	Balance      decimal.Decimal      `json:"balance"`
	Currency     string               `json:"currency"`
	Transactions []models.Transaction `json:"transactions"`
	Total        int64                `json:"total"`
}

func (s *WalletService) Get(ctx context.Context, userID uuid.UUID, page, size int) (*Wallet, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Select("id", "balance").First(&user, "id = ?", userID).Error; err != nil {
		return nil, lookupErr(err, "user")
	}
	rows, total, err := s.Transactions(ctx, userID, page, size)
	if err != nil {
		return nil, err
	}
	return &Wallet{Balance: user.Balance, Currency: s.currency, Transactions: rows, Total: total}, nil
}

func (s *WalletService) Transactions(ctx context.Context, userID uuid.UUID, page, size int) ([]models.Transaction, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", userID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count transactions")
	}
	var rows []models.Transaction
	if err := paginate(q, page, size).Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, 0, errors.Wrap(err, "list transactions")
	}
	return rows, total, nil
}

// TransactionsBetween returns ledger rows created in [from, to), oldest first.
// A nil userID returns every user's rows.
func (s *WalletService) TransactionsBetween(ctx context.Context, userID *uuid.UUID, from, to time.Time) ([]models.Transaction, error) {
	q := s.db.WithContext(ctx).Preload("User", selectContactUser).Where("created_at >= ? AND created_at < ?", from, to)
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}
	var rows []models.Transaction
	err := q.Order("created_at asc").Find(&rows).Error
	return rows, errors.Wrap(err, "list transactions")
}

// CreateDeposit opens a provider order and records it as a pending deposit.
func (s *WalletService) CreateDeposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.Deposit, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if s.gateway == nil {
		return nil, errors.Wrap(ErrNotConfigured, "payments")
	}
	amount = amount.Round(2)

	order, err := s.gateway.CreateOrder(ctx, amount, s.currency)
	if err != nil {
		return nil, err
	}
	orderID := order.ID
	dep := models.Deposit{
		UserID:          userID,
		Amount:          amount,
		Currency:        s.currency,
		Provider:        "paypal",
		ProviderOrderID: &orderID,
		Status:          models.DepositPending,
	}
	if err := s.db.WithContext(ctx).Create(&dep).Error; err != nil {
		return nil, errors.Wrap(err, "create deposit")
	}
	return &dep, nil
}

// CaptureDeposit captures the provider order and credits the balance. A
// deposit is credited at most once; repeated captures return ErrInvalidState.
func (s *WalletService) CaptureDeposit(ctx context.Context, userID uuid.UUID, orderID string) (*Receipt, error) {
	var dep models.Deposit
	if err := s.db.WithContext(ctx).First(&dep, "provider_order_id = ? AND user_id = ?", orderID, userID).Error; err != nil {
		return nil, lookupErr(err, "deposit")
	}
	if dep.Status != models.DepositPending {
		return nil, errors.Wrapf(ErrInvalidState, "deposit is %s", dep.Status)
	}
	if s.gateway == nil {
		return nil, errors.Wrap(ErrNotConfigured, "payments")
	}

	order, err := s.gateway.CaptureOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != payments.OrderCompleted {
		if err := s.db.WithContext(ctx).Model(&models.Deposit{}).
			Where("id = ? AND status = ?", dep.ID, models.DepositPending).
			Update("status", models.DepositFailed).Error; err != nil {
			s.log.Warn("marking deposit failed", zap.Stringer("deposit_id", dep.ID), zap.Error(err))
		}
		s.log.Warn("deposit capture not completed", zap.Stringer("deposit_id", dep.ID), zap.String("status", order.Status))
		return nil, errors.Wrapf(ErrInvalidState, "payment %s", order.Status)
	}

	receipt, err := s.ledger.Execute(ctx, Credit(userID, dep.Amount, "PayPal deposit").ForDeposit(dep.ID))
	if err != nil {
		return nil, err
	}
	if txnID := order.CaptureID(); txnID != "" {
		if err := s.db.WithContext(ctx).Model(&models.Deposit{}).Where("id = ?", dep.ID).Update("provider_txn_id", txnID).Error; err != nil {
			s.log.Warn("storing capture id failed", zap.Stringer("deposit_id", dep.ID), zap.Error(err))
		}
	}
	return receipt, nil
}

func selectContactUser(db *gorm.DB) *gorm.DB {
	return db.Select("id", "full_name", "email")
}
