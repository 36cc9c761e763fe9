package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/cmoscoso25/flujosdigitales-api/api/middleware"
	"github.com/cmoscoso25/flujosdigitales-api/api/responses"
	"github.com/cmoscoso25/flujosdigitales-api/internal/confirmation"
	"github.com/cmoscoso25/flujosdigitales-api/internal/pendingtokens"
	pkgerrors "github.com/cmoscoso25/flujosdigitales-api/pkg/errors"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/flow"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/logger"
)

type returnStatusFetcher interface {
	GetStatus(ctx context.Context, token string) (*flow.PaymentStatus, error)
}

type returnQueue interface {
	Enqueue(input confirmation.ConfirmInput) bool
}

type returnResolver interface {
	Resolve(ctx context.Context, fingerprint string) (string, error)
}

type returnResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// FlowReturn handles the browser coming back from the gateway's payment
// page. It only reports status to the payer; fulfillment still runs
// through the webhook path, with an extra enqueue here so a lost
// webhook does not strand a paid order.
func FlowReturn(gateway returnStatusFetcher, queue returnQueue, pending returnResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if gateway == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment gateway unavailable"))
			return
		}

		token := returnToken(ctx, r, pending)
		if token == "" {
			// The gateway posts the return page without a token when the
			// payer navigates back manually. Match the page contract:
			// always 200, ok:false tells the frontend to show a retry.
			responses.WriteSuccess(w, returnResponse{OK: false, Error: "missing token"})
			return
		}

		status, err := gateway.GetStatus(ctx, token)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		switch status.Status {
		case flow.StatusPaid:
			if queue != nil {
				queue.Enqueue(confirmation.ConfirmInput{Token: token})
			}
			responses.WriteSuccess(w, returnResponse{
				OK:      true,
				Message: "Pago confirmado. Revisa tu correo para el link de descarga.",
			})
		case flow.StatusPending:
			responses.WriteSuccess(w, returnResponse{
				OK:      true,
				Message: "Pago pendiente. Si fue transferencia/cupón, puede tardar.",
			})
		default:
			responses.WriteSuccess(w, returnResponse{
				OK:      false,
				Message: "Pago no completado (rechazado/anulado).",
			})
		}
	}
}

func returnToken(ctx context.Context, r *http.Request, pending returnResolver) string {
	if err := r.ParseForm(); err == nil {
		if token := strings.TrimSpace(r.FormValue("token")); token != "" {
			return token
		}
	}
	if pending == nil {
		return ""
	}
	fingerprint := pendingtokens.Fingerprint(middleware.ClientIP(r), r.UserAgent())
	token, err := pending.Resolve(ctx, fingerprint)
	if err != nil {
		return ""
	}
	return token
}
