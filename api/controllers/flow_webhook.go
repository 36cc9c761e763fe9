package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cmoscoso25/flujosdigitales-api/api/responses"
	"github.com/cmoscoso25/flujosdigitales-api/internal/confirmation"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/logger"
)

type webhookQueue interface {
	Enqueue(input confirmation.ConfirmInput) bool
}

type webhookAck struct {
	OK bool `json:"ok"`
}

// FlowWebhook receives the gateway's server-to-server notification.
// It must acknowledge fast and unconditionally: the gateway retries
// aggressively on anything but a prompt 200, so the confirmation work
// runs on the dispatcher instead of this handler.
func FlowWebhook(queue webhookQueue, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token := webhookToken(r)
		if token == "" {
			if logg != nil {
				logg.Warn(ctx, "webhook without payment token")
			}
			responses.WriteSuccess(w, webhookAck{OK: true})
			return
		}

		if queue == nil || !queue.Enqueue(confirmation.ConfirmInput{Token: token}) {
			// The gateway will retry this webhook; dropping here only
			// delays fulfillment.
			if logg != nil {
				logg.Warn(logg.WithToken(ctx, token), "webhook confirmation dropped, queue unavailable")
			}
		}

		responses.WriteSuccess(w, webhookAck{OK: true})
	}
}

// webhookToken digs the payment token out of whatever shape the
// gateway sent: form field, query parameter or JSON body.
func webhookToken(r *http.Request) string {
	if err := r.ParseForm(); err == nil {
		if token := strings.TrimSpace(r.FormValue("token")); token != "" {
			return token
		}
	}
	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err == nil {
		if token := strings.TrimSpace(payload.Token); token != "" {
			return token
		}
	}
	return ""
}
