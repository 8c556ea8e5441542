package workflow

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestProposalTransitions(t *testing.T) {
	tests := []struct {
		from, to ProposalStatus
		allowed  bool
	}{
		{ProposalDraft, ProposalSent, true},
		{ProposalDraft, ProposalViewed, true},
		{ProposalDraft, ProposalAccepted, false},
		{ProposalSent, ProposalViewed, true},
		{ProposalSent, ProposalAccepted, true},
		{ProposalSent, ProposalRejected, true},
		{ProposalViewed, ProposalAccepted, true},
		{ProposalViewed, ProposalRejected, true},
		{ProposalViewed, ProposalSent, false},
		{ProposalAccepted, ProposalRejected, false},
		{ProposalAccepted, ProposalViewed, false},
		{ProposalRejected, ProposalAccepted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := CanTransitionProposal(tt.from, tt.to); got != tt.allowed {
				t.Errorf("expected %v, got %v", tt.allowed, got)
			}
		})
	}
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	for _, from := range AllProposalStatuses {
		if !from.Terminal() {
			continue
		}
		for _, to := range AllProposalStatuses {
			if CanTransitionProposal(from, to) {
				t.Errorf("terminal proposal status %s has edge to %s", from, to)
			}
		}
	}
	for _, from := range AllOfferStatuses {
		if !from.Terminal() {
			continue
		}
		for _, to := range AllOfferStatuses {
			if CanTransitionOffer(from, to) {
				t.Errorf("terminal offer status %s has edge to %s", from, to)
			}
		}
	}
}

func TestOnView(t *testing.T) {
	proposalCases := []struct {
		in      ProposalStatus
		out     ProposalStatus
		changed bool
	}{
		{ProposalDraft, ProposalViewed, true},
		{ProposalSent, ProposalViewed, true},
		{ProposalViewed, ProposalViewed, false},
		{ProposalAccepted, ProposalAccepted, false},
		{ProposalRejected, ProposalRejected, false},
	}
	for _, tt := range proposalCases {
		got, changed := ProposalOnView(tt.in)
		if got != tt.out || changed != tt.changed {
			t.Errorf("ProposalOnView(%s): expected (%s, %v), got (%s, %v)", tt.in, tt.out, tt.changed, got, changed)
		}
	}

	offerCases := []struct {
		in      OfferStatus
		out     OfferStatus
		changed bool
	}{
		{OfferDraft, OfferSpeakerViewed, true},
		{OfferSent, OfferSpeakerViewed, true},
		{OfferSpeakerViewed, OfferSpeakerViewed, false},
		{OfferSpeakerConfirmed, OfferSpeakerConfirmed, false},
		{OfferSpeakerDeclined, OfferSpeakerDeclined, false},
		{OfferCompleted, OfferCompleted, false},
	}
	for _, tt := range offerCases {
		got, changed := OfferOnView(tt.in)
		if got != tt.out || changed != tt.changed {
			t.Errorf("OfferOnView(%s): expected (%s, %v), got (%s, %v)", tt.in, tt.out, tt.changed, got, changed)
		}
	}
}

func TestExpired(t *testing.T) {
	validUntil := date(2026, time.March, 15)

	tests := []struct {
		name     string
		now      time.Time
		expected bool
	}{
		{"day before", time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC), false},
		{"start of last day", time.Date(2026, time.March, 15, 0, 0, 1, 0, time.UTC), false},
		{"end of last day", time.Date(2026, time.March, 15, 23, 59, 59, 0, time.UTC), false},
		{"day after", time.Date(2026, time.March, 16, 0, 0, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Expired(validUntil, tt.now); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}

	if Expired(time.Time{}, time.Now()) {
		t.Error("expected zero valid-until to never expire")
	}
}

func TestCheckProposalResponse(t *testing.T) {
	validUntil := date(2026, time.June, 30)
	now := date(2026, time.June, 1)
	late := date(2026, time.July, 1)

	tests := []struct {
		name    string
		from    ProposalStatus
		to      ProposalStatus
		now     time.Time
		wantErr error
	}{
		{"accept sent", ProposalSent, ProposalAccepted, now, nil},
		{"reject viewed", ProposalViewed, ProposalRejected, now, nil},
		{"accept draft", ProposalDraft, ProposalAccepted, now, ErrInvalidTransition},
		{"accept accepted", ProposalAccepted, ProposalAccepted, now, ErrTerminal},
		{"reject accepted", ProposalAccepted, ProposalRejected, now, ErrTerminal},
		{"accept rejected", ProposalRejected, ProposalAccepted, now, ErrTerminal},
		{"accept expired", ProposalViewed, ProposalAccepted, late, ErrExpired},
		{"not a response", ProposalSent, ProposalViewed, now, ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckProposalResponse(tt.from, tt.to, validUntil, tt.now)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCanRespondProposal(t *testing.T) {
	validUntil := date(2026, time.June, 30)
	now := date(2026, time.June, 1)

	if !CanRespondProposal(ProposalViewed, validUntil, now, false) {
		t.Error("expected viewed proposal to be respondable")
	}
	if CanRespondProposal(ProposalViewed, validUntil, now, true) {
		t.Error("expected read-only view to hide response controls")
	}
	if CanRespondProposal(ProposalViewed, validUntil, date(2026, time.July, 2), false) {
		t.Error("expected expired proposal to hide response controls")
	}
	if CanRespondProposal(ProposalAccepted, validUntil, now, false) {
		t.Error("expected accepted proposal to hide response controls")
	}
}

func TestCheckOfferResponse(t *testing.T) {
	yes := true

	tests := []struct {
		name      string
		from      OfferStatus
		confirmed *bool
		to        OfferStatus
		wantErr   error
	}{
		{"confirm sent", OfferSent, nil, OfferSpeakerConfirmed, nil},
		{"decline viewed", OfferSpeakerViewed, nil, OfferSpeakerDeclined, nil},
		{"already confirmed flag", OfferSpeakerViewed, &yes, OfferSpeakerConfirmed, ErrTerminal},
		{"already confirmed status", OfferSpeakerConfirmed, nil, OfferSpeakerDeclined, ErrTerminal},
		{"completed", OfferCompleted, nil, OfferSpeakerConfirmed, ErrTerminal},
		{"draft", OfferDraft, nil, OfferSpeakerConfirmed, ErrInvalidTransition},
		{"not a response", OfferSent, nil, OfferCompleted, ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckOfferResponse(tt.from, tt.confirmed, tt.to)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSourcesFor(t *testing.T) {
	got := ProposalSourcesFor(ProposalAccepted)
	if len(got) != 2 || got[0] != ProposalSent || got[1] != ProposalViewed {
		t.Errorf("expected [sent viewed], got %v", got)
	}

	offer := OfferSourcesFor(OfferCompleted)
	if len(offer) != 1 || offer[0] != OfferSpeakerConfirmed {
		t.Errorf("expected [speaker_confirmed], got %v", offer)
	}
}

func TestParseStatus(t *testing.T) {
	if _, err := ParseProposalStatus("viewed"); err != nil {
		t.Errorf("expected viewed to parse, got %v", err)
	}
	if _, err := ParseProposalStatus("archived"); err == nil {
		t.Error("expected unknown proposal status to fail")
	}
	if _, err := ParseOfferStatus("speaker_declined"); err != nil {
		t.Errorf("expected speaker_declined to parse, got %v", err)
	}
	if _, err := ParseOfferStatus("pending"); err == nil {
		t.Error("expected unknown offer status to fail")
	}
	if ProposalRejected.Label() != "Declined" {
		t.Errorf("expected Declined label, got %s", ProposalRejected.Label())
	}
}
