package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	pkgerrors "github.com/cmoscoso25/flujosdigitales-api/pkg/errors"
	"github.com/cmoscoso25/flujosdigitales-api/pkg/flow"
)

type stubReturnGateway struct {
	status *flow.PaymentStatus
	err    error
	tokens []string
}

func (s *stubReturnGateway) GetStatus(_ context.Context, token string) (*flow.PaymentStatus, error) {
	s.tokens = append(s.tokens, token)
	if s.err != nil {
		return nil, s.err
	}
	return s.status, nil
}

type stubReturnResolver struct {
	token string
	err   error
}

func (s *stubReturnResolver) Resolve(_ context.Context, _ string) (string, error) {
	return s.token, s.err
}

func postReturnForm(handler http.HandlerFunc, token string) *httptest.ResponseRecorder {
	body := ""
	if token != "" {
		body = url.Values{"token": {token}}.Encode()
	}
	req := httptest.NewRequest(http.MethodPost, "/flow/return", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := httptest.NewRecorder()
	handler(resp, req)
	return resp
}

func decodeReturn(t *testing.T, resp *httptest.ResponseRecorder) returnResponse {
	t.Helper()
	var payload returnResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return payload
}

func TestFlowReturnPaidConfirmsAndQueuesFulfillment(t *testing.T) {
	gateway := &stubReturnGateway{status: &flow.PaymentStatus{Token: "tok_1", Paid: true, Status: flow.StatusPaid}}
	queue := &stubWebhookQueue{}
	handler := FlowReturn(gateway, queue, nil, testLogger())

	resp := postReturnForm(handler, "tok_1")

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	payload := decodeReturn(t, resp)
	if !payload.OK || !strings.Contains(payload.Message, "Pago confirmado") {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if len(queue.inputs) != 1 || queue.inputs[0].Token != "tok_1" {
		t.Fatalf("paid return must queue a confirmation, got %+v", queue.inputs)
	}
}

func TestFlowReturnPendingKeepsWaiting(t *testing.T) {
	gateway := &stubReturnGateway{status: &flow.PaymentStatus{Token: "tok_1", Status: flow.StatusPending}}
	queue := &stubWebhookQueue{}
	handler := FlowReturn(gateway, queue, nil, testLogger())

	resp := postReturnForm(handler, "tok_1")

	payload := decodeReturn(t, resp)
	if !payload.OK || !strings.Contains(payload.Message, "Pago pendiente") {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if len(queue.inputs) != 0 {
		t.Fatalf("pending return must not queue a confirmation")
	}
}

func TestFlowReturnRejectedReportsFailure(t *testing.T) {
	gateway := &stubReturnGateway{status: &flow.PaymentStatus{Token: "tok_1", Status: flow.StatusRejected}}
	handler := FlowReturn(gateway, &stubWebhookQueue{}, nil, testLogger())

	resp := postReturnForm(handler, "tok_1")

	if resp.Code != http.StatusOK {
		t.Fatalf("the return page always answers 200, got %d", resp.Code)
	}
	payload := decodeReturn(t, resp)
	if payload.OK || !strings.Contains(payload.Message, "Pago no completado") {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestFlowReturnWithoutTokenStaysSoft(t *testing.T) {
	gateway := &stubReturnGateway{}
	handler := FlowReturn(gateway, &stubWebhookQueue{}, nil, testLogger())

	resp := postReturnForm(handler, "")

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	payload := decodeReturn(t, resp)
	if payload.OK || payload.Error != "missing token" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if len(gateway.tokens) != 0 {
		t.Fatalf("no status lookup should happen without a token")
	}
}

func TestFlowReturnRecoversDroppedTokenFromFingerprint(t *testing.T) {
	gateway := &stubReturnGateway{status: &flow.PaymentStatus{Token: "tok_9", Paid: true, Status: flow.StatusPaid}}
	pending := &stubReturnResolver{token: "tok_9"}
	handler := FlowReturn(gateway, &stubWebhookQueue{}, pending, testLogger())

	resp := postReturnForm(handler, "")

	payload := decodeReturn(t, resp)
	if !payload.OK || !strings.Contains(payload.Message, "Pago confirmado") {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if len(gateway.tokens) != 1 || gateway.tokens[0] != "tok_9" {
		t.Fatalf("expected status lookup for recovered token, got %v", gateway.tokens)
	}
}

func TestFlowReturnSurfacesGatewayFailure(t *testing.T) {
	gateway := &stubReturnGateway{err: pkgerrors.New(pkgerrors.CodeGateway, "status lookup failed")}
	handler := FlowReturn(gateway, &stubWebhookQueue{}, nil, testLogger())

	resp := postReturnForm(handler, "tok_1")

	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
}
