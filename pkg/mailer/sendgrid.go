package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/cmoscoso25/flujosdigitales-api/pkg/config"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/enums"
	pkgerrors "github.com/cmoscoso25/flujosdigitales-api/pkg/errors"
)

// SendgridMailer sends through the SendGrid v3 mail API.
type SendgridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

// NewSendgrid validates the SendGrid credentials and builds the mailer.
func NewSendgrid(cfg config.SendgridConfig, from string) (*SendgridMailer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfig, "sendgrid api key is required")
	}
	sender := strings.TrimSpace(from)
	if sender == "" {
		sender = strings.TrimSpace(cfg.DefaultFrom)
	}
	if sender == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfig, "sendgrid sender address is required")
	}
	return &SendgridMailer{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   mail.NewEmail("", sender),
	}, nil
}

// Send dispatches one message and reports non-2xx API responses as errors.
func (m *SendgridMailer) Send(ctx context.Context, msg Message) error {
	to := mail.NewEmail("", msg.To)
	text := msg.Text
	if text == "" {
		text = msg.Subject
	}
	html := msg.HTML
	if html == "" {
		html = text
	}
	email := mail.NewSingleEmail(m.from, msg.Subject, to, text, html)

	resp, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "sendgrid send")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgerrors.New(pkgerrors.CodeDelivery, fmt.Sprintf("sendgrid responded %d", resp.StatusCode))
	}
	return nil
}

// Channel reports the delivery channel label.
func (m *SendgridMailer) Channel() enums.DeliveryChannel {
	return enums.DeliveryChannelSendgrid
}
