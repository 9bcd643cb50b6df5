package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
)

func TestMapError_Nil(t *testing.T) {
	t.Parallel()

	if got := MapError(nil, "owned_product", uuid.New()); got != nil {
		t.Errorf("MapError(nil) = %v, want nil", got)
	}
}

func TestMapError_NoRows(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	got := MapError(pgx.ErrNoRows, "owned_product", id)

	if !errors.Is(got, domain.ErrNotFound) {
		t.Errorf("MapError(ErrNoRows) does not wrap domain.ErrNotFound: %v", got)
	}
	if want := fmt.Sprintf("owned_product %s: not found", id); got.Error() != want {
		t.Errorf("MapError(ErrNoRows).Error() = %q, want %q", got.Error(), want)
	}
}

func TestMapError_UniqueViolation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		constraint string
		want       error
	}{
		{name: "barcode index", constraint: BarcodeConstraint, want: domain.ErrDuplicateBarcode},
		{name: "other index", constraint: "usage_entries_pkey", want: domain.ErrAlreadyExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pgErr := &pgconn.PgError{Code: "23505", ConstraintName: tt.constraint}
			got := MapError(pgErr, "catalog_product", uuid.New())
			if !errors.Is(got, tt.want) {
				t.Errorf("MapError() = %v, want wrapping %v", got, tt.want)
			}
		})
	}
}

func TestMapError_ForeignKeyAndCheck(t *testing.T) {
	t.Parallel()

	fk := MapError(&pgconn.PgError{Code: "23503"}, "owned_product", uuid.New())
	if !errors.Is(fk, domain.ErrNotFound) {
		t.Errorf("foreign key violation should map to ErrNotFound: %v", fk)
	}

	check := MapError(&pgconn.PgError{Code: "23514"}, "owned_product", uuid.New())
	if !errors.Is(check, domain.ErrValidation) {
		t.Errorf("check violation should map to ErrValidation: %v", check)
	}
}

func TestMapError_ContextErrorsPassThrough(t *testing.T) {
	t.Parallel()

	got := MapError(context.DeadlineExceeded, "catalog_product", uuid.New())
	if !errors.Is(got, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded to pass through: %v", got)
	}
	if errors.Is(got, domain.ErrStoreUnavailable) {
		t.Error("context errors must not be reported as store unavailable")
	}
}

func TestMapError_Unavailable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
	}{
		{name: "connection exception class", err: &pgconn.PgError{Code: "08006"}},
		{name: "admin shutdown", err: &pgconn.PgError{Code: "57P01"}},
		{name: "too many connections", err: &pgconn.PgError{Code: "53300"}},
		{name: "net error", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}},
		{name: "closed pool", err: errors.New("closed pool")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := MapError(tt.err, "catalog_product", uuid.Nil)
			if !errors.Is(got, domain.ErrStoreUnavailable) {
				t.Errorf("MapError(%v) = %v, want ErrStoreUnavailable", tt.err, got)
			}
		})
	}
}

func TestMapError_OtherPgErrorUnchanged(t *testing.T) {
	t.Parallel()

	pgErr := &pgconn.PgError{Code: "42601", Message: "syntax error"}
	got := MapError(pgErr, "catalog_product", uuid.Nil)

	var target *pgconn.PgError
	if !errors.As(got, &target) {
		t.Fatalf("expected PgError to be preserved: %v", got)
	}
	if errors.Is(got, domain.ErrStoreUnavailable) {
		t.Error("syntax errors are not availability problems")
	}
}
