package services

import (
	"context"
	"encoding/csv"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/anjiri1684/tutor_marketplace/models"
)

type AdminService struct {
	db     *gorm.DB
	wallet *WalletService
}

func NewAdminService(db *gorm.DB, wallet *WalletService) *AdminService {
	return &AdminService{db: db, wallet: wallet}
}

type UserFilter struct {
	Query string
	Role  string
	Page  int
	Size  int
}

func (s *AdminService) SearchUsers(ctx context.Context, f UserFilter) ([]models.User, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.User{})
	if f.Query != "" {
		like := "%" + strings.ToLower(f.Query) + "%"
		q = q.Where("LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count users")
	}
	var users []models.User
	err := paginate(q, f.Page, f.Size).Order("created_at desc").Find(&users).Error
	return users, total, errors.Wrap(err, "search users")
}

// FindUser looks a user up by id or email. A miss is (nil, nil).
func (s *AdminService) FindUser(ctx context.Context, idOrEmail string) (*models.User, error) {
	q := s.db.WithContext(ctx)
	if id, err := uuid.Parse(idOrEmail); err == nil {
		q = q.Where("id = ?", id)
	} else {
		q = q.Where("email = ?", strings.ToLower(strings.TrimSpace(idOrEmail)))
	}
	var users []models.User
	if err := q.Limit(1).Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "find user")
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

func (s *AdminService) SetDisabled(ctx context.Context, userID uuid.UUID, disabled bool) (*models.User, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ? AND is_admin = ?", userID, false).Update("disabled", disabled)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "update user")
	}
	if res.RowsAffected == 0 {
		return nil, errors.Wrap(ErrNotFound, "user")
	}
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", userID).Error; err != nil {
		return nil, lookupErr(err, "user")
	}
	return &u, nil
}

type Dashboard struct {
	UsersByRole        map[string]int64 `json:"users_by_role"`
	SessionsByStatus   map[string]int64 `json:"sessions_by_status"`
	GrossSessionVolume decimal.Decimal  `json:"gross_session_volume"`
	PlatformCommission decimal.Decimal  `json:"platform_commission"`
	PendingWithdrawals int64            `json:"pending_withdrawals"`
	PendingWithdrawn   decimal.Decimal  `json:"pending_withdrawals_total"`
	OpenSupportTickets int64            `json:"open_support_tickets"`
	TotalUserBalances  decimal.Decimal  `json:"total_user_balances"`
}

type groupCount struct {
	Name  string
	Total int64
}

func (s *AdminService) Dashboard(ctx context.Context) (*Dashboard, error) {
	db := s.db.WithContext(ctx)
	d := &Dashboard{UsersByRole: map[string]int64{}, SessionsByStatus: map[string]int64{}}

	var byRole []groupCount
	if err := db.Model(&models.User{}).Select("role AS name, COUNT(*) AS total").Group("role").Scan(&byRole).Error; err != nil {
		return nil, errors.Wrap(err, "count users by role")
	}
	for _, g := range byRole {
		d.UsersByRole[g.Name] = g.Total
	}

	var byStatus []groupCount
	if err := db.Model(&models.SessionRequest{}).Select("status AS name, COUNT(*) AS total").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, errors.Wrap(err, "count sessions by status")
	}
	for _, g := range byStatus {
		d.SessionsByStatus[g.Name] = g.Total
	}

	payments, err := sumDecimal(db.Model(&models.Transaction{}).Where("type = ?", models.TxSessionPayment), "amount")
	if err != nil {
		return nil, err
	}
	payouts, err := sumDecimal(db.Model(&models.Transaction{}).Where("type = ?", models.TxSessionPayout), "amount")
	if err != nil {
		return nil, err
	}
	d.GrossSessionVolume = payments.Neg()
	d.PlatformCommission = payments.Neg().Sub(payouts)

	pending := db.Model(&models.WithdrawalRequest{}).Where("status = ?", models.WithdrawalPending)
	if err := pending.Count(&d.PendingWithdrawals).Error; err != nil {
		return nil, errors.Wrap(err, "count pending withdrawals")
	}
	if d.PendingWithdrawn, err = sumDecimal(db.Model(&models.WithdrawalRequest{}).Where("status = ?", models.WithdrawalPending), "amount"); err != nil {
		return nil, err
	}
	if err := db.Model(&models.SupportTicket{}).Where("status = ?", models.TicketOpen).Count(&d.OpenSupportTickets).Error; err != nil {
		return nil, errors.Wrap(err, "count open tickets")
	}
	if d.TotalUserBalances, err = sumDecimal(db.Model(&models.User{}), "balance"); err != nil {
		return nil, err
	}
	return d, nil
}

func sumDecimal(q *gorm.DB, column string) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	if err := q.Select("SUM(" + column + ")").Row().Scan(&sum); err != nil {
		return decimal.Zero, errors.Wrapf(err, "sum %s", column)
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal.Round(2), nil
}

// WriteReport writes every ledger row in [from, to) as CSV.
func (s *AdminService) WriteReport(ctx context.Context, w io.Writer, from, to time.Time) error {
	rows, err := s.wallet.TransactionsBetween(ctx, nil, from, to)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Transaction ID", "Date", "User", "Email", "Type", "Amount", "Session ID", "Withdrawal ID", "Deposit ID", "Description"}); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, t := range rows {
		record := []string{
			t.ID.String(),
			t.CreatedAt.UTC().Format("2006-01-02 15:04"),
			t.User.FullName,
			t.User.Email,
			t.Type,
			t.Amount.StringFixed(2),
			optionalID(t.SessionID),
			optionalID(t.WithdrawalID),
			optionalID(t.DepositID),
			t.Description,
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

func optionalID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
