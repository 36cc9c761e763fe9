package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/cmoscoso25/flujosdigitales-api/pkg/config"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/enums"
	pkgerrors "github.com/cmoscoso25/flujosdigitales-api/pkg/errors"
)

// SMTPMailer talks plain SMTP with STARTTLS when the server offers it.
// No third-party SMTP client is involved; the stdlib protocol support is
// enough for single-recipient transactional sends.
type SMTPMailer struct {
	host string
	port int
	user string
	pass string
	from string

	dialTimeout time.Duration
}

// NewSMTP validates the relay settings and builds the mailer.
func NewSMTP(cfg config.SMTPConfig, from string) (*SMTPMailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfig, "smtp host is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfig, "smtp sender address is required")
	}
	port := cfg.Port
	if port <= 0 {
		port = 587
	}
	return &SMTPMailer{
		host:        cfg.Host,
		port:        port,
		user:        cfg.User,
		pass:        cfg.Password,
		from:        strings.TrimSpace(from),
		dialTimeout: 15 * time.Second,
	}, nil
}

// Send dispatches one message over a fresh connection.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))

	dialer := &net.Dialer{Timeout: m.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "smtp dial")
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		_ = conn.Close()
		return pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "smtp handshake")
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "smtp starttls")
		}
	}

	if m.user != "" {
		auth := smtp.PlainAuth("", m.user, m.pass, m.host)
		if err := client.Auth(auth); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "smtp auth")
		}
	}

	if err := client.Mail(m.from); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "smtp mail from")
	}
	if err := client.Rcpt(msg.To); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "smtp rcpt to")
	}

	writer, err := client.Data()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "smtp data")
	}
	if _, err := writer.Write(m.buildMessage(msg)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "smtp write body")
	}
	if err := writer.Close(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "smtp finish body")
	}

	if err := client.Quit(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "smtp quit")
	}
	return nil
}

// Channel reports the delivery channel label.
func (m *SMTPMailer) Channel() enums.DeliveryChannel {
	return enums.DeliveryChannelSMTP
}

func (m *SMTPMailer) buildMessage(msg Message) []byte {
	contentType := "text/plain; charset=UTF-8"
	body := msg.Text
	if msg.HTML != "" {
		contentType = "text/html; charset=UTF-8"
		body = msg.HTML
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: %s\r\n", contentType)
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
