package mailer

import (
	"fmt"
	"strings"

	"github.com/cmoscoso25/flujosdigitales-api/pkg/config"
	pkgerrors "github.com/cmoscoso25/flujosdigitales-api/pkg/errors"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/logger"
)

// FromConfig selects the mailer implementation for the configured driver.
func FromConfig(cfg *config.Config, logg *logger.Logger) (Mailer, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Mailer.Driver))
	switch driver {
	case "sendgrid":
		return NewSendgrid(cfg.Sendgrid, cfg.Mailer.From)
	case "smtp":
		return NewSMTP(cfg.SMTP, cfg.Mailer.From)
	case "", "log":
		return NewLog(logg), nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeConfig, fmt.Sprintf("unknown mailer driver %q", driver))
	}
}
