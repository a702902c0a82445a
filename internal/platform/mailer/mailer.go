package mailer

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/yungbote/coursepass-backend/internal/platform/logger"
)

const (
	defaultHost = "https://api.sendgrid.com"
	endpoint    = "/v3/mail/send"
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

type Config struct {
	APIKey    string
	FromName  string
	FromEmail string
	Host      string
}

type sendgridMailer struct {
	key  string
	host string
	from *sgmail.Email
	log  *logger.Logger
}

// New returns a sendgrid mailer, or a logging no-op when no API key is set.
func New(log *logger.Logger, cfg Config) Mailer {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return &nopMailer{log: log.With("service", "NopMailer")}
	}
	host := strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	if host == "" {
		host = defaultHost
	}
	return &sendgridMailer{
		key:  cfg.APIKey,
		host: host,
		from: sgmail.NewEmail(cfg.FromName, cfg.FromEmail),
		log:  log.With("service", "SendgridMailer"),
	}
}

func (m *sendgridMailer) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToEmail))

	out := sgmail.NewV3Mail()
	out.SetFrom(m.from)
	out.AddPersonalizations(p)
	out.AddContent(sgmail.NewContent("text/plain", msg.Text))
	if msg.HTML != "" {
		out.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}
	return out
}

func (m *sendgridMailer) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.ToEmail) == "" {
		return fmt.Errorf("mail recipient required")
	}
	req := sendgrid.GetRequest(m.key, endpoint, m.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(msg))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid send: status %d: %s", res.StatusCode, res.Body)
	}
	m.log.Debug("mail sent", "subject", msg.Subject, "status", res.StatusCode)
	return nil
}

type nopMailer struct {
	log *logger.Logger
}

func (m *nopMailer) Send(_ context.Context, msg Message) error {
	m.log.Debug("mail disabled, dropping message", "subject", msg.Subject)
	return nil
}
