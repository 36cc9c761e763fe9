package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/cmoscoso25/flujosdigitales-api/api/middleware"
	"github.com/cmoscoso25/flujosdigitales-api/api/responses"
	"github.com/cmoscoso25/flujosdigitales-api/api/validators"
	"github.com/cmoscoso25/flujosdigitales-api/internal/confirmation"
	"github.com/cmoscoso25/flujosdigitales-api/internal/pendingtokens"
	pkgerrors "github.com/cmoscoso25/flujosdigitales-api/pkg/errors"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/logger"
)

type confirmer interface {
	Confirm(ctx context.Context, input confirmation.ConfirmInput) (*confirmation.Result, error)
}

type confirmRequest struct {
	Token string `json:"token" validate:"omitempty,max=128"`
	Email string `json:"email" validate:"omitempty,email"`
	Order string `json:"order" validate:"omitempty,max=128"`
}

type confirmResponse struct {
	OK               bool   `json:"ok"`
	Processed        *bool  `json:"processed,omitempty"`
	AlreadyProcessed bool   `json:"alreadyProcessed,omitempty"`
	OrderID          string `json:"orderId,omitempty"`
	Email            string `json:"email,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

// ConfirmFlowPayment runs a client-driven confirmation: verify the
// payment with the gateway and fulfill the order exactly once.
func ConfirmFlowPayment(svc confirmer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "confirmation service unavailable"))
			return
		}

		var req confirmRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Confirm(ctx, confirmation.ConfirmInput{
			Token:       strings.TrimSpace(req.Token),
			Email:       strings.TrimSpace(req.Email),
			OrderRef:    strings.TrimSpace(req.Order),
			Fingerprint: pendingtokens.Fingerprint(middleware.ClientIP(r), r.UserAgent()),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		switch {
		case result.AlreadyProcessed:
			responses.WriteSuccess(w, confirmResponse{
				OK:               true,
				AlreadyProcessed: true,
				OrderID:          result.OrderID,
				Email:            result.Email,
			})
		case result.Processed:
			responses.WriteSuccess(w, confirmResponse{
				OK:        true,
				Processed: boolPtr(true),
				OrderID:   result.OrderID,
				Email:     result.Email,
			})
		default:
			responses.WriteSuccessStatus(w, http.StatusAccepted, confirmResponse{
				OK:        true,
				Processed: boolPtr(false),
				Reason:    "not_paid",
			})
		}
	}
}

func boolPtr(v bool) *bool {
	return &v
}
