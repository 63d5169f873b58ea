package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "payment_transactions_pkey"}

	cases := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "postgres", err: fmt.Errorf("insert: %w", pgErr), want: true},
		{name: "postgres constraint match", err: pgErr, constraint: "payment_transactions_pkey", want: true},
		{name: "postgres constraint mismatch", err: pgErr, constraint: "other_key", want: false},
		{name: "postgres other code", err: &pgconn.PgError{Code: "23502"}, want: false},
		{name: "sqlite", err: errors.New("UNIQUE constraint failed: payment_transactions.order_id"), want: true},
		{name: "unrelated", err: errors.New("connection refused"), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsUniqueViolation(tc.err, tc.constraint); got != tc.want {
				t.Fatalf("IsUniqueViolation() = %v, want %v", got, tc.want)
			}
		})
	}
}
