package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
		{code: CodeInsufficientStock, status: http.StatusBadRequest, publicMsg: "insufficient stock", detailsOK: true},
		{code: CodeEmptyCart, status: http.StatusBadRequest, publicMsg: "cart is empty"},
		{code: CodeDuplicateReview, status: http.StatusBadRequest, publicMsg: "already reviewed"},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("checkout: %w", New(CodeEmptyCart, "Cart is empty"))
	if got := CodeOf(wrapped); got != CodeEmptyCart {
		t.Fatalf("expected empty cart code through wrapping, got %s", got)
	}
	if got := CodeOf(stdErrors.New("plain")); got != CodeInternal {
		t.Fatalf("untyped errors should map to internal, got %s", got)
	}
}

func TestLogFieldsCollectsChainAndPGFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_reviews_product_user", TableName: "reviews"}
	err := Wrap(CodeDuplicateReview, pgErr, "You have already reviewed this product")

	fields := LogFields(err)
	if fields["error_code"] != CodeDuplicateReview {
		t.Fatalf("unexpected code %v", fields["error_code"])
	}
	if fields["pg_code"] != "23505" || fields["pg_violation"] != "unique_violation" ||
		fields["pg_constraint"] != "ux_reviews_product_user" || fields["pg_table"] != "reviews" {
		t.Fatalf("pg fields not captured: %+v", fields)
	}
	if _, ok := fields["pg_column"]; ok {
		t.Fatalf("empty pg_column should be omitted: %+v", fields)
	}
	if chain, _ := fields["error_chain"].([]string); len(chain) != 2 {
		t.Fatalf("expected two chain entries, got %v", fields["error_chain"])
	}

	pqErr := &pq.Error{Code: "23514", Constraint: "chk_products_stock_nonnegative"}
	fields = LogFields(fmt.Errorf("update stock: %w", pqErr))
	if fields["pg_violation"] != "check_violation" || fields["pg_constraint"] != "chk_products_stock_nonnegative" {
		t.Fatalf("pq fields not captured: %+v", fields)
	}
	if fields["error_code"] != CodeInternal {
		t.Fatalf("untyped cause should log as internal, got %v", fields["error_code"])
	}

	plain := LogFields(New(CodeEmptyCart, "Cart is empty"))
	if _, ok := plain["error_chain"]; ok {
		t.Fatalf("single-link errors carry no chain: %+v", plain)
	}
	if _, ok := plain["pg_code"]; ok {
		t.Fatalf("non-postgres errors carry no pg fields: %+v", plain)
	}
	if len(LogFields(nil)) != 0 {
		t.Fatalf("nil error should produce no fields")
	}
}

func TestInternalCarriesCause(t *testing.T) {
	cause := stdErrors.New("no such table: carts")
	err := Internal(cause, "load cart")
	if err.Code() != CodeInternal {
		t.Fatalf("expected internal code, got %s", err.Code())
	}
	if err.Message() != "load cart: no such table: carts" {
		t.Fatalf("unexpected message %q", err.Message())
	}
	if !stdErrors.Is(err, cause) {
		t.Fatalf("expected cause to unwrap")
	}
	if MetadataFor(err.Code()).HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected 500")
	}

	bare := Internal(nil, "generate order number")
	if bare.Message() != "generate order number" || bare.Unwrap() != nil {
		t.Fatalf("unexpected bare internal error %+v", bare)
	}
}
