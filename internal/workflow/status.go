// Package workflow owns the lifecycle of proposals and firm offers: the
// status values, the single transition table for each entity, and the
// guards that decide whether a recipient may still respond.
//
// Stores never compute statuses themselves. They ask this package for the
// allowed-from set of a transition and put it in the WHERE clause of the
// UPDATE, so the check and the write happen in one statement.
package workflow

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidTransition is returned when the table has no edge from -> to.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrTerminal is returned when a record has already reached a final status.
	ErrTerminal = errors.New("status is terminal")
	// ErrExpired is returned when a proposal is past its valid-until date.
	ErrExpired = errors.New("proposal has expired")
)

// ProposalStatus is the lifecycle status of a client proposal.
type ProposalStatus string

// Proposal statuses.
const (
	ProposalDraft    ProposalStatus = "draft"
	ProposalSent     ProposalStatus = "sent"
	ProposalViewed   ProposalStatus = "viewed"
	ProposalAccepted ProposalStatus = "accepted"
	ProposalRejected ProposalStatus = "rejected"
)

// AllProposalStatuses lists proposal statuses in lifecycle order.
var AllProposalStatuses = []ProposalStatus{
	ProposalDraft,
	ProposalSent,
	ProposalViewed,
	ProposalAccepted,
	ProposalRejected,
}

// OfferStatus is the lifecycle status of a firm offer sent to a speaker.
type OfferStatus string

// Firm offer statuses.
const (
	OfferDraft            OfferStatus = "draft"
	OfferSent             OfferStatus = "sent"
	OfferSpeakerViewed    OfferStatus = "speaker_viewed"
	OfferSpeakerConfirmed OfferStatus = "speaker_confirmed"
	OfferSpeakerDeclined  OfferStatus = "speaker_declined"
	OfferCompleted        OfferStatus = "completed"
)

// AllOfferStatuses lists firm offer statuses in lifecycle order.
var AllOfferStatuses = []OfferStatus{
	OfferDraft,
	OfferSent,
	OfferSpeakerViewed,
	OfferSpeakerConfirmed,
	OfferSpeakerDeclined,
	OfferCompleted,
}

var proposalLabels = map[ProposalStatus]string{
	ProposalDraft:    "Draft",
	ProposalSent:     "Sent",
	ProposalViewed:   "Viewed",
	ProposalAccepted: "Accepted",
	ProposalRejected: "Declined",
}

var offerLabels = map[OfferStatus]string{
	OfferDraft:            "Draft",
	OfferSent:             "Sent to Speaker",
	OfferSpeakerViewed:    "Viewed by Speaker",
	OfferSpeakerConfirmed: "Confirmed",
	OfferSpeakerDeclined:  "Declined",
	OfferCompleted:        "Completed",
}

// ParseProposalStatus converts a stored value into a ProposalStatus.
func ParseProposalStatus(s string) (ProposalStatus, error) {
	st := ProposalStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown proposal status %q", s)
	}
	return st, nil
}

// Valid reports whether s is a known proposal status.
func (s ProposalStatus) Valid() bool {
	_, ok := proposalLabels[s]
	return ok
}

// Terminal reports whether no further transitions leave s.
func (s ProposalStatus) Terminal() bool {
	return s == ProposalAccepted || s == ProposalRejected
}

// Label is the human-readable status shown in the admin UI.
func (s ProposalStatus) Label() string {
	if l, ok := proposalLabels[s]; ok {
		return l
	}
	return string(s)
}

// ParseOfferStatus converts a stored value into an OfferStatus.
func ParseOfferStatus(s string) (OfferStatus, error) {
	st := OfferStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown firm offer status %q", s)
	}
	return st, nil
}

// Valid reports whether s is a known firm offer status.
func (s OfferStatus) Valid() bool {
	_, ok := offerLabels[s]
	return ok
}

// Terminal reports whether no further transitions leave s.
func (s OfferStatus) Terminal() bool {
	return s == OfferSpeakerDeclined || s == OfferCompleted
}

// Answered reports whether the speaker has already responded.
func (s OfferStatus) Answered() bool {
	return s == OfferSpeakerConfirmed || s == OfferSpeakerDeclined || s == OfferCompleted
}

// Label is the human-readable status shown in the admin UI.
func (s OfferStatus) Label() string {
	if l, ok := offerLabels[s]; ok {
		return l
	}
	return string(s)
}

// Expired reports whether a proposal valid through validUntil has lapsed at
// now. The offer holds for the whole of its last calendar day (UTC).
func Expired(validUntil, now time.Time) bool {
	if validUntil.IsZero() {
		return false
	}
	return Today(now).After(Today(validUntil))
}

// Today truncates t to its UTC calendar date for comparison against DATE
// columns.
func Today(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
