package notifications

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

type Message struct {
	ToName  string
	ToEmail string
	Subject string
	Text    string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

type SendGridMailer struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
}

func NewSendGridMailer(apiKey, senderEmail, senderName, appName string) *SendGridMailer {
	return &SendGridMailer{
		key:        apiKey,
		from:       sgmail.NewEmail(senderName, senderEmail),
		subjPrefix: "[" + appName + "] ",
	}
}

func (m *SendGridMailer) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = m.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToEmail))

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(m.from)
	v3.AddPersonalizations(p)
	v3.AddContent(
		sgmail.NewContent("text/plain", msg.Text),
		sgmail.NewContent("text/html", msg.HTML),
	)
	return v3
}

func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	if msg.ToEmail == "" {
		return errors.New("sendgrid: empty recipient")
	}
	req := sendgrid.GetRequest(m.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(msg))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return errors.Wrap(err, "sendgrid: send")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("sendgrid: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

// ConsoleMailer logs messages instead of sending them. Used when no SendGrid key is set.
type ConsoleMailer struct {
	log *zap.Logger
}

func NewConsoleMailer(log *zap.Logger) *ConsoleMailer {
	return &ConsoleMailer{log: log}
}

func (m *ConsoleMailer) Send(_ context.Context, msg Message) error {
	m.log.Info("email",
		zap.String("to", msg.ToEmail),
		zap.String("subject", msg.Subject),
		zap.String("text", msg.Text))
	return nil
}
