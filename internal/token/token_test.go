package token

import (
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		tok, err := New()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !Valid(tok) {
			t.Errorf("generated token %q is not valid", tok)
		}
		if seen[tok] {
			t.Fatalf("duplicate token %q", tok)
		}
		seen[tok] = true
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		expected bool
	}{
		{"empty", "", false},
		{"too short", "abc123", false},
		{"url safe", "Zx9_-aaaaaaaaaaaaaaaaaaa", true},
		{"padded", "aGVsbG8gd29ybGQgaGVsbG8=", true},
		{"path traversal", "../../../../etc/passwd", false},
		{"sql", "x' OR '1'='1 aaaaaaaa", false},
		{"too long", strings.Repeat("a", 200), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Valid(tt.token); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	if !Equal("abc", "abc") {
		t.Error("expected equal tokens to match")
	}
	if Equal("abc", "abd") {
		t.Error("expected different tokens not to match")
	}
	if Equal("", "") {
		t.Error("expected empty tokens never to match")
	}
}

func TestRedact(t *testing.T) {
	if got := Redact("abcdefghijkl"); got != "abcdef..." {
		t.Errorf("expected abcdef..., got %q", got)
	}
	if got := Redact("abc"); got != "***" {
		t.Errorf("expected ***, got %q", got)
	}
}

func TestProposalNumber(t *testing.T) {
	num, err := ProposalNumber(time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !regexp.MustCompile(`^SAA-2026-\d{4}$`).MatchString(num) {
		t.Errorf("unexpected proposal number %q", num)
	}
}
