package fulfillment

import (
	"context"
	"fmt"
	"strings"

	"github.com/cmoscoso25/flujosdigitales-api/pkg/enums"
	pkgerrors "github.com/cmoscoso25/flujosdigitales-api/pkg/errors"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/logger"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/mailer"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/metrics"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/retry"
)

type mailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
	Channel() enums.DeliveryChannel
}

// Deliverer sends the purchased pack to the buyer.
type Deliverer interface {
	Deliver(ctx context.Context, input DeliverInput) error
	Channel() enums.DeliveryChannel
}

// DeliverInput carries everything one delivery needs.
type DeliverInput struct {
	OrderID     string
	Email       string
	ProductName string
	DownloadURL string
}

type deliverer struct {
	mailer  mailSender
	policy  retry.Policy
	metrics *metrics.PaymentMetrics
	logger  *logger.Logger
}

// NewDeliverer builds the email deliverer. Sends are retried with the
// provided policy because mail relays fail transiently.
func NewDeliverer(m mailSender, policy retry.Policy, mets *metrics.PaymentMetrics, logg *logger.Logger) (Deliverer, error) {
	if m == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &deliverer{
		mailer:  m,
		policy:  policy,
		metrics: mets,
		logger:  logg,
	}, nil
}

func (d *deliverer) Channel() enums.DeliveryChannel {
	return d.mailer.Channel()
}

func (d *deliverer) Deliver(ctx context.Context, input DeliverInput) error {
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient email required")
	}
	if strings.TrimSpace(input.DownloadURL) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "download url required")
	}

	msg := buildMessage(email, input)

	ctx = d.logger.WithFields(ctx, map[string]any{
		"order_id": input.OrderID,
		"channel":  string(d.mailer.Channel()),
	})

	err := retry.Do(ctx, d.policy, pkgerrors.Retryable, func(ctx context.Context) error {
		return d.mailer.Send(ctx, msg)
	})
	if err != nil {
		d.metrics.IncDelivery(string(d.mailer.Channel()), "error")
		d.logger.Error(ctx, "delivering pack", err)
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "could not deliver the pack")
	}

	d.metrics.IncDelivery(string(d.mailer.Channel()), "ok")
	d.logger.Info(ctx, "pack delivered")
	return nil
}

func buildMessage(email string, input DeliverInput) mailer.Message {
	product := strings.TrimSpace(input.ProductName)
	if product == "" {
		product = "tu compra"
	}

	text := fmt.Sprintf(
		"¡Gracias por tu compra!\n\n"+
			"Orden: %s\n\n"+
			"Tu pago fue confirmado y ya puedes descargar %s:\n\n%s\n\n"+
			"El enlace es personal, guárdalo. Si tienes problemas con la descarga, responde este correo.\n",
		input.OrderID, product, input.DownloadURL)

	html := fmt.Sprintf(
		`<p>¡Gracias por tu compra!</p>`+
			`<p>Orden: <strong>%s</strong></p>`+
			`<p>Tu pago fue confirmado y ya puedes descargar <strong>%s</strong>:</p>`+
			`<p><a href="%s">Descargar ahora</a></p>`+
			`<p>El enlace es personal, guárdalo. Si tienes problemas con la descarga, responde este correo.</p>`,
		input.OrderID, product, input.DownloadURL)

	return mailer.Message{
		To:      email,
		Subject: fmt.Sprintf("Tu descarga: %s", product),
		Text:    text,
		HTML:    html,
	}
}
