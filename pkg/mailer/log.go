package mailer

import (
	"context"

	"github.com/cmoscoso25/flujosdigitales-api/pkg/enums"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/logger"
)

// LogMailer logs instead of sending. Default driver for local development
// so the purchase flow works without outbound-email credentials.
type LogMailer struct {
	logg *logger.Logger
}

// NewLog builds the logging mailer.
func NewLog(logg *logger.Logger) *LogMailer {
	return &LogMailer{logg: logg}
}

// Send records the message and reports success.
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if m.logg != nil {
		ctx = m.logg.WithFields(ctx, map[string]any{
			"to":      msg.To,
			"subject": msg.Subject,
		})
		m.logg.Info(ctx, "email skipped (log mailer)")
	}
	return nil
}

// Channel reports the delivery channel label.
func (m *LogMailer) Channel() enums.DeliveryChannel {
	return enums.DeliveryChannelLog
}
