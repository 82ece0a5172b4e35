package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert answer: %w", &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "trivia_session_answers_pkey",
	})

	if !IsUniqueViolation(err, "") {
		t.Fatal("expected any-constraint match")
	}
	if !IsUniqueViolation(err, "trivia_session_answers_pkey") {
		t.Fatal("expected named constraint match")
	}
	if IsUniqueViolation(err, "other") {
		t.Fatal("expected mismatch for other constraint")
	}
	if IsCheckViolation(err, "") {
		t.Fatal("unique violation reported as check violation")
	}
	if IsUniqueViolation(errors.New("boom"), "") {
		t.Fatal("plain error reported as unique violation")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil reported as unique violation")
	}
}
