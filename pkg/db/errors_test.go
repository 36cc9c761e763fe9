package db

import (
	"errors"
	"testing"
)

func TestIsUniqueViolation(t *testing.T) {
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil error is not a violation")
	}
	pg := errors.New(`duplicate key value violates unique constraint "orders_flow_token_key"`)
	if !IsUniqueViolation(pg, "") {
		t.Fatal("postgres wording must match")
	}
	if !IsUniqueViolation(pg, "orders_flow_token_key") {
		t.Fatal("constraint name must match")
	}
	if IsUniqueViolation(pg, "other_constraint") {
		t.Fatal("unrelated constraint must not match")
	}
	lite := errors.New("UNIQUE constraint failed: order_fulfillments.order_id")
	if !IsUniqueViolation(lite, "") {
		t.Fatal("sqlite wording must match")
	}
	if IsUniqueViolation(errors.New("connection refused"), "") {
		t.Fatal("unrelated errors must not match")
	}
}
