package auth

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cost, _ := bcrypt.Cost([]byte(hash)); cost != BcryptCost {
		t.Errorf("expected cost %d, got %d", BcryptCost, cost)
	}
	if !CheckPassword("correct horse battery", hash) {
		t.Error("expected password to match")
	}
	if CheckPassword("wrong", hash) {
		t.Error("expected wrong password to fail")
	}
}

func TestGenerateSessionToken(t *testing.T) {
	a, err := GenerateSessionToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := GenerateSessionToken()
	if a == b {
		t.Error("expected distinct tokens")
	}
	if len(a) != 44 {
		t.Errorf("expected 44 chars for 32 bytes, got %d", len(a))
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := normalizeEmail("  Ops@Example.COM "); got != "ops@example.com" {
		t.Errorf("expected ops@example.com, got %q", got)
	}
}

func TestPrefixed(t *testing.T) {
	if got := prefixed("u.", "id, email"); got != "u.id, u.email" {
		t.Errorf("expected u.id, u.email, got %q", got)
	}
}

func TestCreateUserValidation(t *testing.T) {
	s := NewService(nil)
	ctx := context.Background()

	if _, err := s.CreateUser(ctx, "ops@example.com", "short", "", "", ""); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("expected ErrWeakPassword, got %v", err)
	}
	if _, err := s.CreateUser(ctx, "not-an-email", "long enough password", "", "", ""); err == nil {
		t.Error("expected error for invalid email")
	}
	if _, err := s.CreateUser(ctx, "ops@example.com", "long enough password", "", "", "owner"); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestValidateSessionRejectsEmptyToken(t *testing.T) {
	s := NewService(nil)
	if _, err := s.ValidateSession(context.Background(), ""); !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("expected ErrSessionInvalid, got %v", err)
	}
}
