package orders

import (
	"time"

	"github.com/cmoscoso25/flujosdigitales-api/pkg/db/models"
)

// StartCheckoutInput captures the order data known at initiation.
type StartCheckoutInput struct {
	// Amount in CLP. Required and positive.
	Amount int64
	// Subject defaults to the configured storefront subject.
	Subject string
	// Email is optional: Flow collects it on the payment page when the
	// storefront does not know it yet.
	Email string
}

// StartCheckoutResult carries everything the storefront needs to send
// the buyer to the payment page.
type StartCheckoutResult struct {
	Order       *models.Order `json:"-"`
	Token       string        `json:"token"`
	RedirectURL string        `json:"redirect_url"`
}

// MarkPaidInput carries the confirmed payment data applied to an order.
type MarkPaidInput struct {
	FlowOrder  *int64
	PayerEmail string
	PaidAt     time.Time
}
