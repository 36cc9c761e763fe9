package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cmoscoso25/flujosdigitales-api/pkg/config"
	pkgerrors "github.com/cmoscoso25/flujosdigitales-api/pkg/errors"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/logger"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/metrics"
)

// Flow payment status codes as documented by the provider.
const (
	StatusPending  = 1
	StatusPaid     = 2
	StatusRejected = 3
	StatusCanceled = 4
)

const maxResponseBytes = 1 << 20

var (
	errAPIKeyRequired  = errors.New("flow api key is required")
	errBaseURLRequired = errors.New("flow base url is required")
	errLoggerRequired  = errors.New("flow logger is required")
)

// Client wraps the Flow REST API with signing, logging and error mapping.
// Neither operation mutates local state.
type Client struct {
	httpClient *http.Client
	signer     *Signer
	apiKey     string
	baseURL    string
	logger     *logger.Logger
	metrics    *metrics.PaymentMetrics
}

// ClientParams carries the Client dependencies.
type ClientParams struct {
	Config  config.FlowConfig
	Logger  *logger.Logger
	Metrics *metrics.PaymentMetrics
	// HTTPClient overrides the default transport, for tests.
	HTTPClient *http.Client
}

// NewClient validates the credentials and builds the Flow wrapper.
func NewClient(ctx context.Context, params ClientParams) (*Client, error) {
	if params.Logger == nil {
		return nil, errLoggerRequired
	}
	apiKey := strings.TrimSpace(params.Config.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(params.Config.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	signer, err := NewSigner(params.Config.SecretKey)
	if err != nil {
		return nil, err
	}

	httpClient := params.HTTPClient
	if httpClient == nil {
		timeout := params.Config.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	c := &Client{
		httpClient: httpClient,
		signer:     signer,
		apiKey:     apiKey,
		baseURL:    baseURL,
		logger:     params.Logger,
		metrics:    params.Metrics,
	}

	params.Logger.Info(ctx, "flow client initialized")
	return c, nil
}

// Signer exposes the request signer, for callers that need to sign
// provider callbacks.
func (c *Client) Signer() *Signer {
	if c == nil {
		return nil
	}
	return c.signer
}

// CreateOrderParams describes one payment order to register with Flow.
type CreateOrderParams struct {
	CommerceOrder   string
	Subject         string
	Currency        string
	Amount          int64
	Email           string
	ConfirmationURL string
	ReturnURL       string
}

// CreateOrderResult is the provider's acceptance of a payment order.
type CreateOrderResult struct {
	Token     string
	URL       string
	FlowOrder int64
	// RedirectURL is where the payer's browser must be sent.
	RedirectURL string
}

// PaymentStatus is the normalized status record for one payment token.
// Only the provider's code 2 means paid; every other code, known or not,
// reports Paid=false without error so callers can poll.
type PaymentStatus struct {
	Token         string
	Paid          bool
	Status        int
	CommerceOrder string
	FlowOrder     int64
	PayerEmail    string
}

// CreateOrder signs and POSTs a payment order, returning the payment
// token and redirect target.
func (c *Client) CreateOrder(ctx context.Context, params CreateOrderParams) (*CreateOrderResult, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	form := map[string]string{
		"apiKey":          c.apiKey,
		"commerceOrder":   params.CommerceOrder,
		"subject":         params.Subject,
		"currency":        params.Currency,
		"amount":          strconv.FormatInt(params.Amount, 10),
		"urlConfirmation": params.ConfirmationURL,
		"urlReturn":       params.ReturnURL,
	}
	if params.Email != "" {
		form["email"] = params.Email
	}

	c.log(ctx, "request", "create", map[string]any{
		"commerce_order": params.CommerceOrder,
		"amount":         params.Amount,
		"currency":       params.Currency,
		"email":          params.Email,
	})

	body, err := c.postForm(ctx, "/payment/create", form)
	if err != nil {
		c.log(ctx, "error", "create", map[string]any{"error": err.Error()})
		return nil, err
	}

	var parsed struct {
		URL       string `json:"url"`
		Token     string `json:"token"`
		FlowOrder int64  `json:"flowOrder"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "flow create response is not valid JSON")
	}
	if parsed.Token == "" || parsed.URL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "flow create response missing token or url")
	}

	result := &CreateOrderResult{
		Token:       parsed.Token,
		URL:         parsed.URL,
		FlowOrder:   parsed.FlowOrder,
		RedirectURL: fmt.Sprintf("%s?token=%s", parsed.URL, url.QueryEscape(parsed.Token)),
	}
	c.log(ctx, "response", "create", map[string]any{
		"token":      result.Token,
		"flow_order": result.FlowOrder,
	})
	return result, nil
}

// GetStatus signs and GETs the payment status for a token.
func (c *Client) GetStatus(ctx context.Context, token string) (*PaymentStatus, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment token is required")
	}

	params := map[string]string{
		"apiKey": c.apiKey,
		"token":  token,
	}
	sig, err := c.signer.Sign(params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfig, err, "signing status request")
	}

	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}
	query.Set("s", sig)

	c.log(ctx, "request", "getStatus", map[string]any{"token": token})

	body, err := c.get(ctx, "/payment/getStatus", query)
	if err != nil {
		c.log(ctx, "error", "getStatus", map[string]any{"error": err.Error()})
		return nil, err
	}

	var parsed struct {
		Status        int    `json:"status"`
		CommerceOrder string `json:"commerceOrder"`
		FlowOrder     int64  `json:"flowOrder"`
		Payer         string `json:"payer"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "flow status response is not valid JSON")
	}

	status := &PaymentStatus{
		Token:         token,
		Paid:          parsed.Status == StatusPaid,
		Status:        parsed.Status,
		CommerceOrder: parsed.CommerceOrder,
		FlowOrder:     parsed.FlowOrder,
		PayerEmail:    strings.TrimSpace(parsed.Payer),
	}
	c.log(ctx, "response", "getStatus", map[string]any{
		"token":  token,
		"status": status.Status,
		"paid":   status.Paid,
	})
	return status, nil
}

func (p CreateOrderParams) validate() error {
	if strings.TrimSpace(p.CommerceOrder) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "commerce order is required")
	}
	if strings.TrimSpace(p.Subject) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subject is required")
	}
	if p.Amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be a positive integer")
	}
	if strings.TrimSpace(p.Currency) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "currency is required")
	}
	if strings.TrimSpace(p.ConfirmationURL) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "confirmation url is required")
	}
	if strings.TrimSpace(p.ReturnURL) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "return url is required")
	}
	return nil
}

// postForm signs the form, POSTs it and returns the body of a 2xx reply.
func (c *Client) postForm(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	sig, err := c.signer.Sign(params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfig, err, "signing request")
	}

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("s", sig)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building flow request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req, "create")
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building flow request")
	}
	return c.do(req, "getStatus")
}

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ObserveGatewayDuration(op, time.Since(start))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "flow api unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "reading flow response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, pkgerrors.New(pkgerrors.CodeGateway,
			fmt.Sprintf("flow %s returned %d: %s", op, resp.StatusCode, snippet(body)))
	}
	return body, nil
}

func snippet(body []byte) string {
	const max = 256
	text := strings.TrimSpace(string(body))
	if len(text) > max {
		return text[:max]
	}
	return text
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("flow %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("flow %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	if lower == "token" {
		return logger.Abbrev(fmt.Sprint(value))
	}
	for _, sensitive := range []string{"email", "secret", "apikey", "signature"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
