package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientSecretOpenWhenUnconfigured(t *testing.T) {
	var called bool
	handler := ClientSecret("", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/flow/confirm", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called || rec.Code != http.StatusOK {
		t.Fatalf("unconfigured secret must leave the endpoint open, got %d", rec.Code)
	}
}

func TestClientSecretAcceptsMatch(t *testing.T) {
	handler := ClientSecret("s3cret", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/flow/confirm", nil)
	req.Header.Set("X-Client-Secret", "s3cret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestClientSecretRejectsMismatchAndAbsence(t *testing.T) {
	var called bool
	handler := ClientSecret("s3cret", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	for _, provided := range []string{"", "wrong"} {
		req := httptest.NewRequest(http.MethodPost, "/flow/confirm", nil)
		if provided != "" {
			req.Header.Set("X-Client-Secret", provided)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %q, got %d", provided, rec.Code)
		}
		var payload struct {
			OK    bool   `json:"ok"`
			Error string `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode error: %v", err)
		}
		if payload.OK || payload.Error != "unauthorized" {
			t.Fatalf("unexpected payload: %s", rec.Body.String())
		}
	}
	if called {
		t.Fatal("handler must not run on rejected requests")
	}
}
