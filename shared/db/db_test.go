package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestConnectRequiresURL(t *testing.T) {
	if _, err := Connect(context.Background(), ""); err == nil {
		t.Error("expected error for empty database URL")
	}
}

func TestSchemaDefinesTables(t *testing.T) {
	schema := Schema()
	for _, table := range []string{"users", "sessions", "speakers", "deals", "proposals", "firm_offers"} {
		if !strings.Contains(schema, "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Errorf("expected schema to define table %s", table)
		}
	}
	if !strings.Contains(schema, "access_token       TEXT NOT NULL UNIQUE") {
		t.Error("expected proposal access tokens to be unique")
	}
	if !strings.Contains(schema, "CHECK (proposal_id IS NULL OR deal_id IS NULL)") {
		t.Error("expected firm offers to have at most one parent")
	}
	if !strings.Contains(schema, "ON firm_offers (proposal_id) WHERE confirmation->>'status' = 'submitted'") {
		t.Error("expected one submitted confirmation per proposal")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"unique", &pgconn.PgError{Code: "23505"}, true},
		{"wrapped unique", errors.Join(errors.New("insert"), &pgconn.PgError{Code: "23505"}), true},
		{"other code", &pgconn.PgError{Code: "23503"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestViolatedConstraint(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil", nil, ""},
		{"unique", &pgconn.PgError{Code: "23505", ConstraintName: "firm_offers_submitted_proposal_idx"}, "firm_offers_submitted_proposal_idx"},
		{"wrapped", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "speakers_slug_key"}), "speakers_slug_key"},
		{"check violation", &pgconn.PgError{Code: "23514", ConstraintName: "firm_offers_single_parent"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ViolatedConstraint(tt.err); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
