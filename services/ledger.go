package services

import (
	"context"
	"fmt"
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

// Notifier receives side-effect notices once a ledger transaction has committed.
type Notifier interface {
	Notify(ctx context.Context, notices ...notifications.Notice)
}

type OpKind int

const (
	OpCredit OpKind = iota + 1
	OpDebit
	OpSettleSession
	OpSettleWithdrawal
)

func (k OpKind) String() string {
	switch k {
	case OpCredit:
		return "credit"
	case OpDebit:
		return "debit"
	case OpSettleSession:
		return "session-settle"
	case OpSettleWithdrawal:
		return "withdrawal-settle"
	}
	return fmt.Sprintf("op(%d)", int(k))
}

// Operation is one balance-moving request. Build it with Credit, Debit,
// SettleSession or SettleWithdrawal.
type Operation struct {
	Kind OpKind

	UserID      uuid.UUID
	Amount      decimal.Decimal
	Description string
	TxType      string
	DepositID   *uuid.UUID

	SessionID uuid.UUID
	ActorID   uuid.UUID

	WithdrawalID uuid.UUID
	AdminNotes   string
}

func Credit(userID uuid.UUID, amount decimal.Decimal, description string) Operation {
	return Operation{Kind: OpCredit, UserID: userID, Amount: amount, Description: description, TxType: models.TxDeposit}
}

func Debit(userID uuid.UUID, amount decimal.Decimal, description string) Operation {
	return Operation{Kind: OpDebit, UserID: userID, Amount: amount, Description: description, TxType: models.TxWithdrawal}
}

// ForDeposit binds a credit to a pending deposit. The deposit is marked
// succeeded in the same transaction, so it can be credited only once.
func (o Operation) ForDeposit(depositID uuid.UUID) Operation {
	o.DepositID = &depositID
	return o
}

// SettleSession completes an accepted session on behalf of actorID, who must be its tutor.
func SettleSession(sessionID, actorID uuid.UUID) Operation {
	return Operation{Kind: OpSettleSession, SessionID: sessionID, ActorID: actorID}
}

func SettleWithdrawal(withdrawalID uuid.UUID, adminNotes string) Operation {
	return Operation{Kind: OpSettleWithdrawal, WithdrawalID: withdrawalID, AdminNotes: adminNotes}
}

// Receipt describes what a committed operation changed.
type Receipt struct {
	Kind         OpKind
	Transactions []models.Transaction
	Balances     map[uuid.UUID]decimal.Decimal
	Session      *models.SessionRequest
	Withdrawal   *models.WithdrawalRequest
}

type Ledger struct {
	db         *gorm.DB
	notifier   Notifier
	log        *zap.Logger
	payoutRate decimal.Decimal
	now        func() time.Time
}

func NewLedger(db *gorm.DB, notifier Notifier, log *zap.Logger, payoutRate decimal.Decimal) *Ledger {
	return &Ledger{
		db:         db,
		notifier:   notifier,
		log:        log,
		payoutRate: payoutRate,
		now:        time.Now,
	}
}

// checkAmount accepts positive amounts in whole cents, the precision of every
// money column.
func checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Round(2)) {
		return errors.Wrapf(ErrInvalidAmount, "%s has fractions of a cent", amount)
	}
	return nil
}

// Payout is the tutor's share of price.
func (l *Ledger) Payout(price decimal.Decimal) decimal.Decimal {
	return price.Mul(l.payoutRate).Round(2)
}

// Execute applies op atomically: every balance change, status change and
// ledger row commits together or not at all. Notifications go out after commit.
func (l *Ledger) Execute(ctx context.Context, op Operation) (*Receipt, error) {
	receipt := &Receipt{Kind: op.Kind, Balances: map[uuid.UUID]decimal.Decimal{}}
	var notices []notifications.Notice

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		switch op.Kind {
		case OpCredit:
			notices, err = l.credit(tx, op, receipt)
		case OpDebit:
			notices, err = l.debit(tx, op, receipt)
		case OpSettleSession:
			notices, err = l.settleSession(tx, op, receipt)
		case OpSettleWithdrawal:
			notices, err = l.settleWithdrawal(tx, op, receipt)
		default:
			err = errors.Errorf("unknown ledger operation %d", op.Kind)
		}
		return err
	})
	if err != nil {
		l.log.Info("ledger operation aborted", zap.Stringer("op", op.Kind), zap.Error(err))
		return nil, err
	}

	l.log.Info("ledger operation committed",
		zap.Stringer("op", op.Kind),
		zap.Int("rows", len(receipt.Transactions)))

	if l.notifier != nil && len(notices) > 0 {
		l.notifier.Notify(context.WithoutCancel(ctx), notices...)
	}
	return receipt, nil
}

func (l *Ledger) credit(tx *gorm.DB, op Operation, r *Receipt) ([]notifications.Notice, error) {
	if err := checkAmount(op.Amount); err != nil {
		return nil, err
	}
	user, err := lockUser(tx, op.UserID)
	if err != nil {
		return nil, err
	}

	if op.DepositID != nil {
		res := tx.Model(&models.Deposit{}).
			Where("id = ? AND user_id = ? AND status = ?", *op.DepositID, op.UserID, models.DepositPending).
			Updates(map[string]interface{}{"status": models.DepositSucceeded, "updated_at": l.now()})
		if res.Error != nil {
			return nil, errors.Wrap(res.Error, "mark deposit succeeded")
		}
		if res.RowsAffected == 0 {
			return nil, errors.Wrap(ErrInvalidState, "deposit is not pending")
		}
	}

	if err := addBalance(tx, op.UserID, op.Amount); err != nil {
		return nil, err
	}
	row := models.Transaction{
		UserID:      op.UserID,
		Type:        txType(op.TxType, models.TxDeposit),
		Amount:      op.Amount,
		Description: op.Description,
		DepositID:   op.DepositID,
	}
	if err := l.record(tx, r, row); err != nil {
		return nil, err
	}
	if err := readBalances(tx, r, op.UserID); err != nil {
		return nil, err
	}

	return []notifications.Notice{{
		UserID: user.ID,
		Kind:   notifications.KindBalanceCredited,
		Params: map[string]string{"amount": op.Amount.StringFixed(2)},
	}}, nil
}

func (l *Ledger) debit(tx *gorm.DB, op Operation, r *Receipt) ([]notifications.Notice, error) {
	if err := checkAmount(op.Amount); err != nil {
		return nil, err
	}
	user, err := lockUser(tx, op.UserID)
	if err != nil {
		return nil, err
	}
	if user.Balance.LessThan(op.Amount) {
		return nil, ErrInsufficientBalance
	}

	if err := subtractBalance(tx, op.UserID, op.Amount); err != nil {
		return nil, err
	}
	row := models.Transaction{
		UserID:      op.UserID,
		Type:        txType(op.TxType, models.TxWithdrawal),
		Amount:      op.Amount.Neg(),
		Description: op.Description,
	}
	if err := l.record(tx, r, row); err != nil {
		return nil, err
	}
	if err := readBalances(tx, r, op.UserID); err != nil {
		return nil, err
	}

	return []notifications.Notice{{
		UserID: user.ID,
		Kind:   notifications.KindBalanceDebited,
		Params: map[string]string{"amount": op.Amount.StringFixed(2)},
	}}, nil
}

func (l *Ledger) settleSession(tx *gorm.DB, op Operation, r *Receipt) ([]notifications.Notice, error) {
	var req models.SessionRequest
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&req, "id = ?", op.SessionID).Error; err != nil {
		return nil, lookupErr(err, "session request")
	}
	if req.Status != models.SessionAccepted || req.TutorID == nil {
		return nil, errors.Wrapf(ErrInvalidState, "session is %s", req.Status)
	}
	if *req.TutorID != op.ActorID {
		return nil, ErrForbidden
	}
	tutorID := *req.TutorID

	student, err := lockUser(tx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if student.Balance.LessThan(req.Price) {
		return nil, ErrInsufficientBalance
	}
	payout := l.Payout(req.Price)

	if err := subtractBalance(tx, req.StudentID, req.Price); err != nil {
		return nil, err
	}
	if err := addBalance(tx, tutorID, payout); err != nil {
		return nil, err
	}

	now := l.now()
	res := tx.Model(&models.SessionRequest{}).
		Where("id = ? AND status = ?", req.ID, models.SessionAccepted).
		Updates(map[string]interface{}{"status": models.SessionCompleted, "completed_at": now, "updated_at": now})
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "complete session")
	}
	if res.RowsAffected == 0 {
		return nil, errors.Wrap(ErrInvalidState, "session changed concurrently")
	}

	sessionID := req.ID
	rows := []models.Transaction{
		{
			UserID:      req.StudentID,
			Type:        models.TxSessionPayment,
			Amount:      req.Price.Neg(),
			Description: "Payment for session: " + req.Title,
			SessionID:   &sessionID,
		},
		{
			UserID:      tutorID,
			Type:        models.TxSessionPayout,
			Amount:      payout,
			Description: "Payout for session: " + req.Title,
			SessionID:   &sessionID,
		},
	}
	for _, row := range rows {
		if err := l.record(tx, r, row); err != nil {
			return nil, err
		}
	}
	if err := readBalances(tx, r, req.StudentID, tutorID); err != nil {
		return nil, err
	}

	req.Status = models.SessionCompleted
	req.CompletedAt = &now
	r.Session = &req

	return []notifications.Notice{
		{
			UserID: req.StudentID,
			Kind:   notifications.KindSessionCompletedStudent,
			Params: map[string]string{"title": req.Title, "amount": req.Price.StringFixed(2)},
		},
		{
			UserID: tutorID,
			Kind:   notifications.KindSessionCompletedTutor,
			Params: map[string]string{"title": req.Title, "amount": payout.StringFixed(2)},
		},
	}, nil
}

func (l *Ledger) settleWithdrawal(tx *gorm.DB, op Operation, r *Receipt) ([]notifications.Notice, error) {
	var w models.WithdrawalRequest
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&w, "id = ?", op.WithdrawalID).Error; err != nil {
		return nil, lookupErr(err, "withdrawal request")
	}
	if w.Status != models.WithdrawalPending {
		return nil, errors.Wrapf(ErrInvalidState, "withdrawal is %s", w.Status)
	}
	if !w.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	user, err := lockUser(tx, w.UserID)
	if err != nil {
		return nil, err
	}
	if user.Balance.LessThan(w.Amount) {
		return nil, ErrInsufficientBalance
	}
	if err := subtractBalance(tx, w.UserID, w.Amount); err != nil {
		return nil, err
	}

	now := l.now()
	updates := map[string]interface{}{"status": models.WithdrawalApproved, "processed_at": now}
	if op.AdminNotes != "" {
		updates["admin_notes"] = op.AdminNotes
	}
	res := tx.Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status = ?", w.ID, models.WithdrawalPending).
		Updates(updates)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "approve withdrawal")
	}
	if res.RowsAffected == 0 {
		return nil, errors.Wrap(ErrInvalidState, "withdrawal changed concurrently")
	}

	withdrawalID := w.ID
	row := models.Transaction{
		UserID:       w.UserID,
		Type:         models.TxWithdrawal,
		Amount:       w.Amount.Neg(),
		Description:  "Withdrawal approved",
		WithdrawalID: &withdrawalID,
	}
	if err := l.record(tx, r, row); err != nil {
		return nil, err
	}
	if err := readBalances(tx, r, w.UserID); err != nil {
		return nil, err
	}

	w.Status = models.WithdrawalApproved
	w.ProcessedAt = &now
	if op.AdminNotes != "" {
		notes := op.AdminNotes
		w.AdminNotes = &notes
	}
	r.Withdrawal = &w

	return []notifications.Notice{{
		UserID: w.UserID,
		Kind:   notifications.KindWithdrawalApproved,
		Params: map[string]string{"amount": w.Amount.StringFixed(2)},
	}}, nil
}

func (l *Ledger) record(tx *gorm.DB, r *Receipt, row models.Transaction) error {
	row.CreatedAt = l.now()
	if err := tx.Create(&row).Error; err != nil {
		return errors.Wrap(err, "insert ledger row")
	}
	r.Transactions = append(r.Transactions, row)
	return nil
}

func lockUser(tx *gorm.DB, id uuid.UUID) (models.User, error) {
	var u models.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&u, "id = ?", id).Error; err != nil {
		return u, lookupErr(err, "user")
	}
	return u, nil
}

func addBalance(tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal) error {
	res := tx.Model(&models.User{}).
		Where("id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return errors.Wrap(res.Error, "credit balance")
	}
	if res.RowsAffected == 0 {
		return errors.Wrap(ErrNotFound, "user")
	}
	return nil
}

// subtractBalance refuses to take a balance below zero even if the row changed
// after it was read.
func subtractBalance(tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal) error {
	res := tx.Model(&models.User{}).
		Where("id = ? AND balance >= ?", userID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return errors.Wrap(res.Error, "debit balance")
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

func readBalances(tx *gorm.DB, r *Receipt, ids ...uuid.UUID) error {
	var users []models.User
	if err := tx.Select("id", "balance").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return errors.Wrap(err, "read balances")
	}
	for _, u := range users {
		r.Balances[u.ID] = u.Balance
	}
	return nil
}

func txType(t, fallback string) string {
	if t == "" {
		return fallback
	}
	return t
}
