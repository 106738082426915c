package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"registration-backend/internal/shared/telemetry"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// ErrNoRecipient is returned for e-mails without a destination address.
var ErrNoRecipient = errors.New("email has no recipient")

// Email is a single outbound message.
type Email struct {
	ToName    string
	ToAddress string
	Subject   string
	Text      string
	HTML      string
}

// Mailer delivers e-mails.
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

// LogMailer logs e-mails instead of sending them.
type LogMailer struct{}

// Send logs the message envelope.
func (LogMailer) Send(ctx context.Context, msg Email) error {
	if strings.TrimSpace(msg.ToAddress) == "" {
		return ErrNoRecipient
	}
	telemetry.Info("mail.logged", map[string]any{
		"to":      msg.ToAddress,
		"subject": msg.Subject,
	})
	return nil
}

// SendGridMailer sends e-mails through the SendGrid v3 API.
type SendGridMailer struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
	api        func(ctx context.Context, req rest.Request) (*rest.Response, error)
}

// NewSendGridMailer builds a mailer sending as fromName <fromAddress>.
func NewSendGridMailer(key, fromName, fromAddress string) *SendGridMailer {
	return &SendGridMailer{
		key:        key,
		from:       sgmail.NewEmail(fromName, fromAddress),
		subjPrefix: "[" + fromName + "] ",
		api:        sendGridAPI,
	}
}

// sendGridAPI calls the SendGrid API once ctx is still live. The pinned client
// has no context-aware request function.
func sendGridAPI(ctx context.Context, req rest.Request) (*rest.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return sendgrid.API(req)
}

// Send delivers msg. Responses with status >= 400 are errors.
func (m *SendGridMailer) Send(ctx context.Context, msg Email) error {
	if strings.TrimSpace(msg.ToAddress) == "" {
		return ErrNoRecipient
	}

	req := sendgrid.GetRequest(m.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(msg))

	res, err := m.api(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid send: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

func (m *SendGridMailer) prepare(msg Email) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = m.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToAddress))

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(m.from)
	v3.AddPersonalizations(p)
	v3.AddContent(sgmail.NewContent("text/plain", msg.Text))
	if msg.HTML != "" {
		v3.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}
	return v3
}

var (
	_ Mailer = LogMailer{}
	_ Mailer = (*SendGridMailer)(nil)
)
