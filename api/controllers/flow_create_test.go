package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/cmoscoso25/flujosdigitales-api/internal/orders"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/config"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/db/models"
	pkgerrors "github.com/cmoscoso25/flujosdigitales-api/pkg/errors"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/logger"
)

type stubCheckoutStarter struct {
	input  orders.StartCheckoutInput
	result *orders.StartCheckoutResult
	err    error
	calls  int
}

func (s *stubCheckoutStarter) StartCheckout(_ context.Context, input orders.StartCheckoutInput) (*orders.StartCheckoutResult, error) {
	s.calls++
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})
}

func testConfig() *config.Config {
	return &config.Config{
		Product: config.ProductConfig{
			Name:     "Pack Flujos Digitales",
			FilePath: "assets/pack-flujos.zip",
			PriceCLP: 9990,
		},
	}
}

func checkoutResult(token string) *orders.StartCheckoutResult {
	return &orders.StartCheckoutResult{
		Order:       &models.Order{CommerceOrder: "FD-100"},
		Token:       token,
		RedirectURL: "https://flow.example/pay?token=" + token,
	}
}

func TestCreateFlowOrderReturnsPaymentLink(t *testing.T) {
	svc := &stubCheckoutStarter{result: checkoutResult("tok-1")}
	handler := CreateFlowOrder(svc, testConfig(), testLogger())

	body := `{"amount": 12500, "email": "Buyer@Example.COM", "subject": "Pack"}`
	req := httptest.NewRequest(http.MethodPost, "/flow/create", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var payload struct {
		OK            bool   `json:"ok"`
		Token         string `json:"token"`
		URL           string `json:"url"`
		CommerceOrder string `json:"commerceOrder"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !payload.OK || payload.Token != "tok-1" || payload.CommerceOrder != "FD-100" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.URL != "https://flow.example/pay?token=tok-1" {
		t.Fatalf("unexpected redirect url %q", payload.URL)
	}
	if svc.input.Amount != 12500 {
		t.Fatalf("expected amount 12500, got %d", svc.input.Amount)
	}
	if svc.input.Email != "buyer@example.com" {
		t.Fatalf("expected normalized email, got %q", svc.input.Email)
	}
}

func TestCreateFlowOrderDefaultsAmountToProductPrice(t *testing.T) {
	svc := &stubCheckoutStarter{result: checkoutResult("tok-2")}
	handler := CreateFlowOrder(svc, testConfig(), testLogger())

	req := httptest.NewRequest(http.MethodPost, "/flow/create", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.input.Amount != 9990 {
		t.Fatalf("expected configured price 9990, got %d", svc.input.Amount)
	}
}

func TestCreateFlowOrderRejectsNonPositiveAmount(t *testing.T) {
	for _, body := range []string{`{"amount": 0}`, `{"amount": -100}`} {
		svc := &stubCheckoutStarter{result: checkoutResult("tok-3")}
		handler := CreateFlowOrder(svc, testConfig(), testLogger())

		req := httptest.NewRequest(http.MethodPost, "/flow/create", strings.NewReader(body))
		resp := httptest.NewRecorder()
		handler(resp, req)

		if resp.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, resp.Code)
		}
		if svc.calls != 0 {
			t.Fatalf("body %s: service should not run on invalid input", body)
		}
		var payload struct {
			OK    bool   `json:"ok"`
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if payload.OK || payload.Error != "invalid_request" {
			t.Fatalf("body %s: unexpected payload %+v", body, payload)
		}
	}
}

func TestCreateFlowOrderRejectsMalformedEmail(t *testing.T) {
	svc := &stubCheckoutStarter{result: checkoutResult("tok-4")}
	handler := CreateFlowOrder(svc, testConfig(), testLogger())

	req := httptest.NewRequest(http.MethodPost, "/flow/create", strings.NewReader(`{"email": "not-an-email"}`))
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("service should not run on invalid email")
	}
}

func TestCreateFlowOrderSurfacesGatewayFailure(t *testing.T) {
	svc := &stubCheckoutStarter{err: pkgerrors.New(pkgerrors.CodeGateway, "flow rejected the order")}
	handler := CreateFlowOrder(svc, testConfig(), testLogger())

	req := httptest.NewRequest(http.MethodPost, "/flow/create", strings.NewReader(`{"amount": 9990}`))
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
	var payload struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.OK || payload.Error != "gateway_error" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}
