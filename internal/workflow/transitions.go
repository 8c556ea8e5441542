package workflow

import (
	"fmt"
	"time"
)

var proposalTransitions = map[ProposalStatus][]ProposalStatus{
	ProposalDraft:  {ProposalSent, ProposalViewed},
	ProposalSent:   {ProposalViewed, ProposalAccepted, ProposalRejected},
	ProposalViewed: {ProposalAccepted, ProposalRejected},
}

var offerTransitions = map[OfferStatus][]OfferStatus{
	OfferDraft:            {OfferSent, OfferSpeakerViewed},
	OfferSent:             {OfferSpeakerViewed, OfferSpeakerConfirmed, OfferSpeakerDeclined},
	OfferSpeakerViewed:    {OfferSpeakerConfirmed, OfferSpeakerDeclined},
	OfferSpeakerConfirmed: {OfferCompleted},
}

// CanTransitionProposal reports whether the table has an edge from -> to.
func CanTransitionProposal(from, to ProposalStatus) bool {
	for _, s := range proposalTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanTransitionOffer reports whether the table has an edge from -> to.
func CanTransitionOffer(from, to OfferStatus) bool {
	for _, s := range offerTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ProposalSourcesFor returns every status that may move to `to`.
func ProposalSourcesFor(to ProposalStatus) []ProposalStatus {
	var out []ProposalStatus
	for _, from := range AllProposalStatuses {
		if CanTransitionProposal(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// OfferSourcesFor returns every status that may move to `to`.
func OfferSourcesFor(to OfferStatus) []OfferStatus {
	var out []OfferStatus
	for _, from := range AllOfferStatuses {
		if CanTransitionOffer(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// RespondableProposal lists the statuses in which a client may accept or reject.
var RespondableProposal = []ProposalStatus{ProposalSent, ProposalViewed}

// RespondableOffer lists the statuses in which a speaker may confirm or decline.
var RespondableOffer = []OfferStatus{OfferSent, OfferSpeakerViewed}

// ProposalOnView is the status a proposal moves to when its recipient first
// opens it. The second result is false when the status stays as is.
func ProposalOnView(s ProposalStatus) (ProposalStatus, bool) {
	switch s {
	case ProposalDraft, ProposalSent:
		return ProposalViewed, true
	}
	return s, false
}

// OfferOnView is the status a firm offer moves to when the speaker first
// opens it. Completed offers keep their status.
func OfferOnView(s OfferStatus) (OfferStatus, bool) {
	switch s {
	case OfferDraft, OfferSent:
		return OfferSpeakerViewed, true
	}
	return s, false
}

// CheckProposalResponse validates that a client response moving the
// proposal to `to` is allowed right now.
func CheckProposalResponse(from, to ProposalStatus, validUntil, now time.Time) error {
	if to != ProposalAccepted && to != ProposalRejected {
		return fmt.Errorf("%w: %s is not a response", ErrInvalidTransition, to)
	}
	if from.Terminal() {
		return fmt.Errorf("%w: proposal already %s", ErrTerminal, from)
	}
	if !CanTransitionProposal(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if Expired(validUntil, now) {
		return ErrExpired
	}
	return nil
}

// CanRespondProposal reports whether the accept/reject controls are shown.
func CanRespondProposal(s ProposalStatus, validUntil, now time.Time, readOnly bool) bool {
	if readOnly {
		return false
	}
	return CheckProposalResponse(s, ProposalAccepted, validUntil, now) == nil
}

// CheckOfferResponse validates that a speaker response is allowed. A speaker
// answers once: confirmed must still be nil.
func CheckOfferResponse(from OfferStatus, confirmed *bool, to OfferStatus) error {
	if to != OfferSpeakerConfirmed && to != OfferSpeakerDeclined {
		return fmt.Errorf("%w: %s is not a speaker response", ErrInvalidTransition, to)
	}
	if confirmed != nil || from.Answered() || from.Terminal() {
		return fmt.Errorf("%w: speaker already responded", ErrTerminal)
	}
	if !CanTransitionOffer(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// CanRespondOffer reports whether the confirm/decline controls are shown.
func CanRespondOffer(s OfferStatus, confirmed *bool, readOnly bool) bool {
	if readOnly {
		return false
	}
	return CheckOfferResponse(s, confirmed, OfferSpeakerConfirmed) == nil
}

// OfferResponseStatus maps a speaker's yes/no to its status.
func OfferResponseStatus(confirmed bool) OfferStatus {
	if confirmed {
		return OfferSpeakerConfirmed
	}
	return OfferSpeakerDeclined
}
