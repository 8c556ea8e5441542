package email

import (
	"context"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/robert-strong/speak-about-ai-website-sub005/internal/workflow"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/models"
)

type sent struct {
	addr string
	to   []string
	msg  string
}

func newTestService(cfg Config) (*Service, *[]sent) {
	var out []sent
	s := NewService(cfg)
	s.sendMail = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		out = append(out, sent{addr: addr, to: to, msg: string(msg)})
		return nil
	}
	return s, &out
}

var configured = Config{Host: "smtp.example.com", Port: 587, From: "hello@example.com", Agency: "team@example.com"}

func TestIsConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"empty", Config{}, false},
		{"host only", Config{Host: "smtp.example.com"}, false},
		{"host and from", Config{Host: "smtp.example.com", From: "a@b.c"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewService(tt.cfg).IsConfigured(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestUnconfiguredSkips(t *testing.T) {
	s, out := newTestService(Config{})
	p := &models.Proposal{ClientEmail: "client@example.com"}
	if err := s.ProposalSent(context.Background(), p, "https://example.com/proposal/x"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(*out) != 0 {
		t.Errorf("expected no mail, got %d", len(*out))
	}
}

func TestProposalSent(t *testing.T) {
	s, out := newTestService(configured)
	p := &models.Proposal{
		ProposalNumber: "SAA-2026-0001",
		ClientName:     "Dana Reyes",
		ClientEmail:    "dana@example.com",
		EventTitle:     "AI Summit",
		Total:          25000,
		ValidUntil:     time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	link := "https://example.com/proposal/abc"
	if err := s.ProposalSent(context.Background(), p, link); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*out) != 1 {
		t.Fatalf("expected 1 mail, got %d", len(*out))
	}
	m := (*out)[0]
	if m.addr != "smtp.example.com:587" {
		t.Errorf("expected smtp.example.com:587, got %s", m.addr)
	}
	if m.to[0] != "dana@example.com" {
		t.Errorf("expected client recipient, got %v", m.to)
	}
	for _, want := range []string{"Subject: Your proposal SAA-2026-0001", "Hi Dana,", "$25,000", "June 1, 2026", link} {
		if !strings.Contains(m.msg, want) {
			t.Errorf("expected message to contain %q", want)
		}
	}
}

func TestProposalRespondedGoesToAgency(t *testing.T) {
	s, out := newTestService(configured)
	by, notes := "Dana Reyes", "Looking forward to it"
	p := &models.Proposal{
		ProposalNumber:  "SAA-2026-0001",
		Status:          workflow.ProposalAccepted,
		AcceptedBy:      &by,
		AcceptanceNotes: &notes,
	}
	if err := s.ProposalResponded(context.Background(), p, "https://example.com/proposal/abc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := (*out)[0]
	if m.to[0] != "team@example.com" {
		t.Errorf("expected agency recipient, got %v", m.to)
	}
	if !strings.Contains(m.msg, "accepted") || !strings.Contains(m.msg, notes) {
		t.Errorf("expected acceptance details in message")
	}
}

func TestOfferSentWithoutSpeakerEmailSkips(t *testing.T) {
	s, out := newTestService(configured)
	o := &models.FirmOffer{ID: 3}
	if err := s.OfferSent(context.Background(), o, "https://example.com/speaker-review/x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*out) != 0 {
		t.Errorf("expected no mail without a speaker email, got %d", len(*out))
	}
}

func TestOfferResponded(t *testing.T) {
	s, out := newTestService(configured)
	confirmed := true
	o := &models.FirmOffer{
		ID:               9,
		SpeakerConfirmed: &confirmed,
		SpeakerProgram:   models.SpeakerProgram{SpeakerName: "Ada Lovelace"},
	}
	if err := s.OfferResponded(context.Background(), o, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains((*out)[0].msg, "Subject: Firm offer #9 confirmed") {
		t.Errorf("expected confirmed subject, got %q", (*out)[0].msg)
	}
}
