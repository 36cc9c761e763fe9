package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/cmoscoso25/flujosdigitales-api/api/responses"
	"github.com/cmoscoso25/flujosdigitales-api/api/validators"
	"github.com/cmoscoso25/flujosdigitales-api/internal/orders"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/config"
	pkgerrors "github.com/cmoscoso25/flujosdigitales-api/pkg/errors"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/logger"
)

type checkoutStarter interface {
	StartCheckout(ctx context.Context, input orders.StartCheckoutInput) (*orders.StartCheckoutResult, error)
}

type createOrderRequest struct {
	Amount  *int64 `json:"amount" validate:"omitempty,gt=0"`
	Email   string `json:"email" validate:"omitempty,email"`
	Subject string `json:"subject" validate:"omitempty,max=255"`
}

type createOrderResponse struct {
	OK            bool   `json:"ok"`
	Token         string `json:"token"`
	URL           string `json:"url"`
	CommerceOrder string `json:"commerceOrder"`
}

// CreateFlowOrder registers a payment order with the gateway and hands
// the caller the redirect URL for the hosted payment page. Amount
// defaults to the configured product price when omitted.
func CreateFlowOrder(svc checkoutStarter, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		amount := cfg.Product.PriceCLP
		if req.Amount != nil {
			amount = *req.Amount
		}

		result, err := svc.StartCheckout(ctx, orders.StartCheckoutInput{
			Amount:  amount,
			Subject: validators.SanitizeString(req.Subject, 255),
			Email:   strings.ToLower(strings.TrimSpace(req.Email)),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, createOrderResponse{
			OK:            true,
			Token:         result.Token,
			URL:           result.RedirectURL,
			CommerceOrder: result.Order.CommerceOrder,
		})
	}
}
