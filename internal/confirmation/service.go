package confirmation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/cmoscoso25/flujosdigitales-api/internal/fulfillment"
	"github.com/cmoscoso25/flujosdigitales-api/internal/orders"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/config"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/db/models"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/enums"
	pkgerrors "github.com/cmoscoso25/flujosdigitales-api/pkg/errors"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/flow"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/logger"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/metrics"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/retry"
)

var validate = validator.New()

type statusFetcher interface {
	GetStatus(ctx context.Context, token string) (*flow.PaymentStatus, error)
}

type orderStore interface {
	MarkPaid(ctx context.Context, orderID uuid.UUID, input orders.MarkPaidInput) (*models.Order, error)
	Backfill(ctx context.Context, status *flow.PaymentStatus) (*models.Order, error)
	GetByFlowToken(ctx context.Context, token string) (*models.Order, error)
	GetByCommerceOrder(ctx context.Context, commerceOrder string) (*models.Order, error)
}

type markerStore interface {
	IsFulfilled(ctx context.Context, orderID string) (bool, error)
	MarkFulfilled(ctx context.Context, orderID, email string, channel enums.DeliveryChannel) error
}

type packDeliverer interface {
	Deliver(ctx context.Context, input fulfillment.DeliverInput) error
	Channel() enums.DeliveryChannel
}

type tokenResolver interface {
	Resolve(ctx context.Context, fingerprint string) (string, error)
}

// Service drives a payment confirmation from token to delivered pack.
type Service interface {
	Confirm(ctx context.Context, input ConfirmInput) (*Result, error)
}

// ConfirmInput is one confirmation attempt. Token wins; OrderRef and
// Fingerprint are fallbacks for callers that lost the token.
type ConfirmInput struct {
	Token       string
	Email       string
	OrderRef    string
	Fingerprint string
}

// Result reports the terminal state of a confirmation attempt.
type Result struct {
	Processed        bool
	AlreadyProcessed bool
	Paid             bool
	StatusCode       int
	OrderID          string
	Email            string
}

// ServiceParams carries the confirmation service dependencies.
type ServiceParams struct {
	Gateway     statusFetcher
	Orders      orderStore
	Markers     markerStore
	Deliverer   packDeliverer
	Locker      Locker
	Pending     tokenResolver
	Config      *config.Config
	Logger      *logger.Logger
	Metrics     *metrics.PaymentMetrics
	StatusRetry retry.Policy
}

type service struct {
	gateway     statusFetcher
	orders      orderStore
	markers     markerStore
	deliverer   packDeliverer
	locker      Locker
	pending     tokenResolver
	cfg         *config.Config
	logger      *logger.Logger
	metrics     *metrics.PaymentMetrics
	statusRetry retry.Policy
}

// NewService builds the confirmation service.
func NewService(params ServiceParams) (Service, error) {
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.Markers == nil {
		return nil, fmt.Errorf("fulfillment store required")
	}
	if params.Deliverer == nil {
		return nil, fmt.Errorf("deliverer required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	if params.Config == nil {
		return nil, fmt.Errorf("config required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		gateway:     params.Gateway,
		orders:      params.Orders,
		markers:     params.Markers,
		deliverer:   params.Deliverer,
		locker:      params.Locker,
		pending:     params.Pending,
		cfg:         params.Config,
		logger:      params.Logger,
		metrics:     params.Metrics,
		statusRetry: params.StatusRetry,
	}, nil
}

// Confirm runs the confirmation state machine: resolve a token, check
// the gateway, then deliver exactly once per order identifier.
func (s *service) Confirm(ctx context.Context, input ConfirmInput) (*Result, error) {
	token, err := s.resolveToken(ctx, input)
	if err != nil {
		return nil, err
	}
	ctx = s.logger.WithToken(ctx, token)

	status, err := s.checkStatus(ctx, token)
	if err != nil {
		s.metrics.IncConfirmation(metrics.OutcomeFailed)
		return nil, err
	}

	if !status.Paid {
		s.metrics.IncConfirmation(metrics.OutcomeNotPaid)
		s.logger.Info(ctx, "confirmation for unpaid order")
		return &Result{
			Paid:       false,
			StatusCode: status.Status,
			OrderID:    effectiveOrderID(status),
		}, nil
	}

	// The stored order participates in email resolution, so load it
	// before deciding whether fulfillment can proceed.
	order, err := s.loadOrder(ctx, token)
	if err != nil {
		s.metrics.IncConfirmation(metrics.OutcomeFailed)
		return nil, err
	}

	email, err := resolveEmail(status, input.Email, order)
	if err != nil {
		s.metrics.IncConfirmation(metrics.OutcomeFailed)
		return nil, err
	}

	effective := effectiveOrderID(status)
	ctx = s.logger.WithOrderID(ctx, effective)

	fulfilled, err := s.markers.IsFulfilled(ctx, effective)
	if err != nil {
		s.metrics.IncConfirmation(metrics.OutcomeFailed)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking fulfillment marker")
	}
	if fulfilled {
		return s.alreadyProcessed(ctx, effective, email, status), nil
	}

	lock, acquired, err := s.locker.Acquire(ctx, effective)
	if err != nil {
		s.metrics.IncConfirmation(metrics.OutcomeFailed)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "acquiring fulfillment lock")
	}
	if !acquired {
		s.metrics.IncConfirmation(metrics.OutcomeFailed)
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "confirmation already in progress")
	}
	defer func() {
		if releaseErr := lock.Release(ctx); releaseErr != nil {
			s.logger.Warn(ctx, "releasing fulfillment lock: "+releaseErr.Error())
		}
	}()

	// Someone may have finished between the first check and the lock.
	fulfilled, err = s.markers.IsFulfilled(ctx, effective)
	if err != nil {
		s.metrics.IncConfirmation(metrics.OutcomeFailed)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking fulfillment marker")
	}
	if fulfilled {
		return s.alreadyProcessed(ctx, effective, email, status), nil
	}

	if order == nil {
		order, err = s.orders.Backfill(ctx, status)
		if err != nil {
			s.metrics.IncConfirmation(metrics.OutcomeFailed)
			return nil, err
		}
	}

	order, err = s.orders.MarkPaid(ctx, order.ID, orders.MarkPaidInput{
		FlowOrder:  flowOrderOf(status),
		PayerEmail: email,
		PaidAt:     time.Now().UTC(),
	})
	if err != nil {
		s.metrics.IncConfirmation(metrics.OutcomeFailed)
		return nil, err
	}
	if order.DownloadToken == nil {
		s.metrics.IncConfirmation(metrics.OutcomeFailed)
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "paid order has no download token")
	}

	err = s.deliverer.Deliver(ctx, fulfillment.DeliverInput{
		OrderID:     effective,
		Email:       email,
		ProductName: s.cfg.Product.Name,
		DownloadURL: s.downloadURL(*order.DownloadToken),
	})
	if err != nil {
		// No marker written: the next confirmation retries delivery.
		s.metrics.IncConfirmation(metrics.OutcomeFailed)
		return nil, err
	}

	// Marker goes in after the send. A crash in between re-sends the
	// email on retry; losing the delivery would be worse.
	if err := s.markers.MarkFulfilled(ctx, effective, email, s.deliverer.Channel()); err != nil {
		s.logger.Error(ctx, "delivery succeeded but marker write failed", err)
	}

	s.metrics.IncConfirmation(metrics.OutcomeProcessed)
	s.logger.Info(ctx, "order fulfilled")
	return &Result{
		Processed:  true,
		Paid:       true,
		StatusCode: status.Status,
		OrderID:    effective,
		Email:      email,
	}, nil
}

func (s *service) resolveToken(ctx context.Context, input ConfirmInput) (string, error) {
	token := strings.TrimSpace(input.Token)
	if token != "" {
		return token, nil
	}

	if ref := strings.TrimSpace(input.OrderRef); ref != "" {
		order, err := s.orders.GetByCommerceOrder(ctx, ref)
		if err == nil && order.FlowToken != "" {
			return order.FlowToken, nil
		}
	}

	if s.pending != nil && input.Fingerprint != "" {
		token, err := s.pending.Resolve(ctx, input.Fingerprint)
		if err != nil {
			s.logger.Warn(ctx, "pending token lookup failed: "+err.Error())
		}
		if token != "" {
			return token, nil
		}
	}

	return "", pkgerrors.New(pkgerrors.CodeValidation, "payment token required")
}

func (s *service) checkStatus(ctx context.Context, token string) (*flow.PaymentStatus, error) {
	var status *flow.PaymentStatus
	err := retry.Do(ctx, s.statusRetry, pkgerrors.Retryable, func(ctx context.Context) error {
		var err error
		status, err = s.gateway.GetStatus(ctx, token)
		return err
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

func (s *service) loadOrder(ctx context.Context, token string) (*models.Order, error) {
	order, err := s.orders.GetByFlowToken(ctx, token)
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeNotFound {
			return nil, nil
		}
		return nil, err
	}
	return order, nil
}

func (s *service) alreadyProcessed(ctx context.Context, effective, email string, status *flow.PaymentStatus) *Result {
	s.metrics.IncConfirmation(metrics.OutcomeAlreadyProcessed)
	s.logger.Info(ctx, "order already fulfilled")
	return &Result{
		AlreadyProcessed: true,
		Paid:             true,
		StatusCode:       status.Status,
		OrderID:          effective,
		Email:            email,
	}
}

func (s *service) downloadURL(token string) string {
	return strings.TrimRight(s.cfg.URLs.DownloadBaseURL, "/") + "/download/" + token
}

// effectiveOrderID is the idempotency key: the provider's order id when
// present, the payment token otherwise.
func effectiveOrderID(status *flow.PaymentStatus) string {
	if id := strings.TrimSpace(status.CommerceOrder); id != "" {
		return id
	}
	return status.Token
}

// resolveEmail picks the first syntactically valid address among the
// gateway's payer, the caller's hint and the stored order. Paid with no
// usable address is the one business failure the operator must handle.
func resolveEmail(status *flow.PaymentStatus, requestEmail string, order *models.Order) (string, error) {
	candidates := []string{status.PayerEmail, requestEmail}
	if order != nil {
		candidates = append(candidates, order.Email)
	}
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if validate.Var(candidate, "email") == nil {
			return candidate, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeMissingEmail, "no payer email available for fulfillment")
}

func flowOrderOf(status *flow.PaymentStatus) *int64 {
	if status.FlowOrder == 0 {
		return nil
	}
	flowOrder := status.FlowOrder
	return &flowOrder
}
