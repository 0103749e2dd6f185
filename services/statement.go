package services

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/anjiri1684/tutor_marketplace/locales"
	"github.com/anjiri1684/tutor_marketplace/models"
)

//go:embed templates/statement.html
var templateFS embed.FS

var statementTmpl = template.Must(template.ParseFS(templateFS, "templates/statement.html"))

// PDFRenderer turns an HTML document into PDF bytes.
type PDFRenderer func(ctx context.Context, html string) ([]byte, error)

type StatementService struct {
	wallet *WalletService
	render PDFRenderer
}

func NewStatementService(wallet *WalletService, render PDFRenderer) *StatementService {
	if render == nil {
		render = ChromePDF
	}
	return &StatementService{wallet: wallet, render: render}
}

type statementRow struct {
	Date        string
	Type        string
	Description string
	Amount      string
	Negative    bool
}

// HTML renders the user's ledger rows between from and to.
func (s *StatementService) HTML(ctx context.Context, user models.User, from, to time.Time) (string, error) {
	userID := user.ID
	txs, err := s.wallet.TransactionsBetween(ctx, &userID, from, to)
	if err != nil {
		return "", err
	}

	lang := user.Locale
	if !locales.Supported(lang) {
		lang = locales.Default
	}
	dir := "ltr"
	if lang == "ar" {
		dir = "rtl"
	}

	data := struct {
		Lang, Dir, Title, UserName, From, To, Currency, Balance string
		Rows                                                    []statementRow
	}{
		Lang:     lang,
		Dir:      dir,
		Title:    locales.T(lang, "app", "wallet", nil),
		UserName: user.FullName,
		From:     from.Format("2006-01-02"),
		To:       to.Add(-time.Second).Format("2006-01-02"),
		Currency: s.wallet.currency,
		Balance:  user.Balance.StringFixed(2),
	}
	for _, t := range txs {
		data.Rows = append(data.Rows, statementRow{
			Date:        t.CreatedAt.Format("2006-01-02 15:04"),
			Type:        t.Type,
			Description: t.Description,
			Amount:      t.Amount.StringFixed(2),
			Negative:    t.Amount.IsNegative(),
		})
	}

	var buf bytes.Buffer
	if err := statementTmpl.Execute(&buf, data); err != nil {
		return "", errors.Wrap(err, "render statement")
	}
	return buf.String(), nil
}

func (s *StatementService) PDF(ctx context.Context, user models.User, from, to time.Time) ([]byte, error) {
	html, err := s.HTML(ctx, user, from, to)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, html)
}

// StatementRange parses YYYY-MM-DD bounds into a half-open [from, to+1d) range,
// defaulting to the last 30 days.
func StatementRange(fromStr, toStr string, now time.Time) (time.Time, time.Time, error) {
	to := now.UTC().Truncate(24*time.Hour).AddDate(0, 0, 1)
	from := to.AddDate(0, 0, -30)
	var err error
	if fromStr != "" {
		if from, err = time.Parse("2006-01-02", fromStr); err != nil {
			return from, to, errors.Wrap(err, "from")
		}
	}
	if toStr != "" {
		var end time.Time
		if end, err = time.Parse("2006-01-02", toStr); err != nil {
			return from, to, errors.Wrap(err, "to")
		}
		to = end.AddDate(0, 0, 1)
	}
	if !from.Before(to) {
		return from, to, errors.New("from must be before to")
	}
	return from, to, nil
}

// ChromePDF prints html with a headless Chrome.
func ChromePDF(ctx context.Context, html string) ([]byte, error) {
	ctx, cancel := chromedp.NewContext(ctx)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, 30*time.Second)
	defer cancelTimeout()

	var pdfBuffer []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			pdf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdfBuffer = pdf
			return nil
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "print statement pdf")
	}
	return pdfBuffer, nil
}

func (s *StatementService) loadUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	var u models.User
	err := s.wallet.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if err != nil {
		return u, lookupErr(err, "user")
	}
	return u, nil
}

// PDFFor loads the user and prints their statement.
func (s *StatementService) PDFFor(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]byte, error) {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.PDF(ctx, u, from, to)
}
