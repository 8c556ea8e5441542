// Package pricing computes proposal totals and payment schedules.
package pricing

import (
	"math"
	"time"

	"github.com/robert-strong/speak-about-ai-website-sub005/shared/models"
)

// Totals is the computed money summary of a proposal.
type Totals struct {
	SpeakerFees float64
	Services    float64
	Subtotal    float64
	Discount    float64
	Total       float64
}

// Round rounds an amount to cents.
func Round(v float64) float64 {
	return math.Round(v*100) / 100
}

// Calculate sums speaker fees and services, then applies the discount.
// The discount is clamped to [0, subtotal] so the total is never negative.
func Calculate(speakers []models.ProposalSpeaker, services []models.ProposalService, discount float64) Totals {
	var t Totals
	for _, s := range speakers {
		t.SpeakerFees += s.Fee
	}
	for _, s := range services {
		t.Services += s.Cost
	}
	t.SpeakerFees = Round(t.SpeakerFees)
	t.Services = Round(t.Services)
	t.Subtotal = Round(t.SpeakerFees + t.Services)

	if discount < 0 {
		discount = 0
	}
	if discount > t.Subtotal {
		discount = t.Subtotal
	}
	t.Discount = Round(discount)
	t.Total = Round(t.Subtotal - t.Discount)
	return t
}

// ForProposal returns the stored totals when they are set, otherwise the
// totals computed from the line items.
func ForProposal(p *models.Proposal) Totals {
	computed := Calculate(p.Speakers, p.Services, p.Discount)
	if p.Total > 0 {
		computed.Subtotal = p.Subtotal
		computed.Discount = p.Discount
		computed.Total = p.Total
	}
	return computed
}

// Schedule fills in installment amounts from their percentages. When no
// entries are given it returns the default 50% deposit on signing and 50%
// balance due on the event date. The last installment absorbs rounding so
// the amounts always add up to total.
func Schedule(total float64, entries []models.PaymentScheduleEntry, eventDate *time.Time) []models.PaymentScheduleEntry {
	if len(entries) == 0 {
		balanceDue := "On event date"
		if eventDate != nil {
			balanceDue = eventDate.Format("2006-01-02")
		}
		entries = []models.PaymentScheduleEntry{
			{Label: "Deposit", Percentage: 50, DueDate: "Upon signing"},
			{Label: "Balance", Percentage: 50, DueDate: balanceDue},
		}
	}

	out := make([]models.PaymentScheduleEntry, len(entries))
	copy(out, entries)

	var percentSum, allocated float64
	for _, e := range out {
		percentSum += e.Percentage
	}
	if percentSum <= 0 {
		return out
	}

	for i := range out {
		if i == len(out)-1 && math.Abs(percentSum-100) < 0.001 {
			out[i].Amount = Round(total - allocated)
			break
		}
		out[i].Amount = Round(total * out[i].Percentage / 100)
		allocated += out[i].Amount
	}
	return out
}
