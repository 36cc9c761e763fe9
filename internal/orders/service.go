package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cmoscoso25/flujosdigitales-api/pkg/config"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/db/models"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/enums"
	pkgerrors "github.com/cmoscoso25/flujosdigitales-api/pkg/errors"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/flow"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/logger"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/security"
)

type gateway interface {
	CreateOrder(ctx context.Context, params flow.CreateOrderParams) (*flow.CreateOrderResult, error)
}

// Service defines order-level operations beyond repository reads.
type Service interface {
	StartCheckout(ctx context.Context, input StartCheckoutInput) (*StartCheckoutResult, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID, input MarkPaidInput) (*models.Order, error)
	Backfill(ctx context.Context, status *flow.PaymentStatus) (*models.Order, error)
	GetByFlowToken(ctx context.Context, token string) (*models.Order, error)
	GetByCommerceOrder(ctx context.Context, commerceOrder string) (*models.Order, error)
	GetByDownloadToken(ctx context.Context, token string) (*models.Order, error)
}

type service struct {
	repo     Repository
	gateway  gateway
	cfg      *config.Config
	currency enums.Currency
	logger   *logger.Logger
}

// NewService builds the orders service.
func NewService(repo Repository, gw gateway, cfg *config.Config, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if gw == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	currency, err := enums.ParseCurrency(cfg.Commerce.Currency)
	if err != nil {
		return nil, fmt.Errorf("commerce config: %w", err)
	}
	return &service{
		repo:     repo,
		gateway:  gw,
		cfg:      cfg,
		currency: currency,
		logger:   logg,
	}, nil
}

// StartCheckout registers a payment order with the gateway and persists
// the local row. The gateway call goes first: without a token there is
// nothing worth storing.
func (s *service) StartCheckout(ctx context.Context, input StartCheckoutInput) (*StartCheckoutResult, error) {
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a positive integer")
	}
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		subject = s.cfg.Commerce.DefaultSubject
	}
	email := strings.TrimSpace(input.Email)
	commerceOrder := uuid.NewString()

	created, err := s.gateway.CreateOrder(ctx, flow.CreateOrderParams{
		CommerceOrder:   commerceOrder,
		Subject:         subject,
		Currency:        s.currency.String(),
		Amount:          input.Amount,
		Email:           email,
		ConfirmationURL: s.cfg.URLs.PublicBaseURL + "/webhook/flow",
		ReturnURL:       s.cfg.URLs.PublicBaseURL + "/flow/return",
	})
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:            uuid.New(),
		CommerceOrder: commerceOrder,
		FlowToken:     created.Token,
		FlowOrder:     &created.FlowOrder,
		Email:         email,
		Subject:       subject,
		AmountCLP:     input.Amount,
		Currency:      s.currency,
		Status:        enums.OrderStatusPending,
	}
	if created.FlowOrder == 0 {
		order.FlowOrder = nil
	}

	if _, err := s.repo.Create(ctx, order); err != nil {
		ctx = s.logger.WithOrderID(ctx, commerceOrder)
		s.logger.Error(ctx, "persisting order after gateway accepted it", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not store order")
	}

	ctx = s.logger.WithFields(ctx, map[string]any{
		"commerce_order": commerceOrder,
		"token":          logger.Abbrev(created.Token),
		"amount":         order.AmountCLP,
	})
	s.logger.Info(ctx, "checkout started")

	return &StartCheckoutResult{
		Order:       order,
		Token:       created.Token,
		RedirectURL: created.RedirectURL,
	}, nil
}

// MarkPaid flips an order to paid and issues its download token. The
// method tolerates repeats: a second confirmation of the same order
// changes nothing.
func (s *service) MarkPaid(ctx context.Context, orderID uuid.UUID, input MarkPaidInput) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapFindError(err)
	}

	updates := map[string]any{}
	if order.Status != enums.OrderStatusPaid {
		updates["status"] = enums.OrderStatusPaid
	}
	if order.PaidAt == nil {
		paidAt := input.PaidAt
		if paidAt.IsZero() {
			paidAt = time.Now().UTC()
		}
		updates["paid_at"] = paidAt
	}
	if order.FlowOrder == nil && input.FlowOrder != nil {
		updates["flow_order"] = *input.FlowOrder
	}
	if order.Email == "" && input.PayerEmail != "" {
		updates["email"] = strings.TrimSpace(input.PayerEmail)
	}
	if order.DownloadToken == nil {
		token, err := security.NewDownloadToken()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not issue download token")
		}
		updates["download_token"] = token
	}

	if len(updates) > 0 {
		if err := s.repo.Update(ctx, orderID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not update order")
		}
	}

	refreshed, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapFindError(err)
	}
	return refreshed, nil
}

// Backfill stores a minimal order for a confirmation whose checkout row
// never made it to the database. The storefront sells exactly one
// product, so amount and subject come from configuration.
func (s *service) Backfill(ctx context.Context, status *flow.PaymentStatus) (*models.Order, error) {
	if status == nil || strings.TrimSpace(status.Token) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment status with token required")
	}

	commerceOrder := strings.TrimSpace(status.CommerceOrder)
	if commerceOrder == "" {
		commerceOrder = status.Token
	}

	order := &models.Order{
		ID:            uuid.New(),
		CommerceOrder: commerceOrder,
		FlowToken:     status.Token,
		Email:         strings.TrimSpace(status.PayerEmail),
		Subject:       s.cfg.Commerce.DefaultSubject,
		AmountCLP:     s.cfg.Product.PriceCLP,
		Currency:      s.currency,
		Status:        enums.OrderStatusPending,
	}
	if status.FlowOrder != 0 {
		flowOrder := status.FlowOrder
		order.FlowOrder = &flowOrder
	}

	if _, err := s.repo.Create(ctx, order); err != nil {
		// A concurrent confirmation may have inserted the same token.
		if existing, findErr := s.repo.FindByFlowToken(ctx, status.Token); findErr == nil {
			return existing, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not backfill order")
	}

	ctx = s.logger.WithFields(ctx, map[string]any{
		"commerce_order": commerceOrder,
		"token":          logger.Abbrev(status.Token),
	})
	s.logger.Warn(ctx, "order backfilled from gateway status")
	return order, nil
}

func (s *service) GetByFlowToken(ctx context.Context, token string) (*models.Order, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment token required")
	}
	order, err := s.repo.FindByFlowToken(ctx, token)
	if err != nil {
		return nil, mapFindError(err)
	}
	return order, nil
}

func (s *service) GetByCommerceOrder(ctx context.Context, commerceOrder string) (*models.Order, error) {
	commerceOrder = strings.TrimSpace(commerceOrder)
	if commerceOrder == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "commerce order required")
	}
	order, err := s.repo.FindByCommerceOrder(ctx, commerceOrder)
	if err != nil {
		return nil, mapFindError(err)
	}
	return order, nil
}

func (s *service) GetByDownloadToken(ctx context.Context, token string) (*models.Order, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "download token required")
	}
	order, err := s.repo.FindByDownloadToken(ctx, token)
	if err != nil {
		return nil, mapFindError(err)
	}
	return order, nil
}

func mapFindError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
}
