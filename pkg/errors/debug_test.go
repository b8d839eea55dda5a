package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestLogFieldsPgxError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23514", ConstraintName: "products_quantity_check", TableName: "products"}
	err := Wrap(CodeInternal, fmt.Errorf("decrement stock: %w", pgErr), "checkout failed")

	fields := LogFields(err)
	if fields["error_code"] != string(CodeInternal) {
		t.Fatalf("expected error_code, got %v", fields["error_code"])
	}
	if fields["pg_code"] != "23514" || fields["pg_constraint"] != "products_quantity_check" {
		t.Fatalf("unexpected pg fields %v", fields)
	}
	if _, ok := fields["pg_column"]; ok {
		t.Fatalf("empty pg values should be omitted: %v", fields)
	}
	if chain, ok := fields["error_chain"].([]string); !ok || len(chain) < 2 {
		t.Fatalf("expected wrap chain, got %v", fields["error_chain"])
	}
}

func TestLogFieldsPqError(t *testing.T) {
	fields := LogFields(&pq.Error{Code: "23505", Table: "sales"})
	if fields["pg_code"] != "23505" || fields["pg_table"] != "sales" {
		t.Fatalf("unexpected pq fields %v", fields)
	}
	if _, ok := fields["error_chain"]; ok {
		t.Fatalf("single error should not carry a chain: %v", fields)
	}
}

func TestLogFieldsPlainAndNil(t *testing.T) {
	fields := LogFields(stdErrors.New("boom"))
	if fields["error"] != "boom" || len(fields) != 1 {
		t.Fatalf("unexpected fields %v", fields)
	}
	if got := LogFields(nil); len(got) != 0 {
		t.Fatalf("expected empty fields for nil, got %v", got)
	}
}
