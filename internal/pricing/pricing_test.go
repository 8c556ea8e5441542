package pricing

import (
	"testing"
	"time"

	"github.com/robert-strong/speak-about-ai-website-sub005/shared/models"
)

func TestCalculate(t *testing.T) {
	speakers := []models.ProposalSpeaker{
		{Name: "Ada", Fee: 25000},
		{Name: "Grace", Fee: 15000.5},
	}
	services := []models.ProposalService{
		{Name: "Workshop", Cost: 5000},
	}

	tests := []struct {
		name     string
		discount float64
		subtotal float64
		total    float64
		applied  float64
	}{
		{"no discount", 0, 45000.5, 45000.5, 0},
		{"discount", 2500, 45000.5, 42500.5, 2500},
		{"negative discount ignored", -100, 45000.5, 45000.5, 0},
		{"discount clamped", 100000, 45000.5, 0, 45000.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(speakers, services, tt.discount)
			if got.Subtotal != tt.subtotal {
				t.Errorf("expected subtotal %.2f, got %.2f", tt.subtotal, got.Subtotal)
			}
			if got.Total != tt.total {
				t.Errorf("expected total %.2f, got %.2f", tt.total, got.Total)
			}
			if got.Discount != tt.applied {
				t.Errorf("expected discount %.2f, got %.2f", tt.applied, got.Discount)
			}
		})
	}
}

func TestForProposalPrefersStoredTotals(t *testing.T) {
	p := &models.Proposal{
		Speakers: []models.ProposalSpeaker{{Name: "Ada", Fee: 1000}},
		Subtotal: 1200,
		Discount: 200,
		Total:    1000,
	}
	got := ForProposal(p)
	if got.Total != 1000 || got.Subtotal != 1200 {
		t.Errorf("expected stored totals, got %+v", got)
	}

	p.Total = 0
	got = ForProposal(p)
	if got.Total != 800 {
		t.Errorf("expected computed total 800, got %.2f", got.Total)
	}
}

func TestScheduleDefault(t *testing.T) {
	eventDate := time.Date(2026, time.September, 10, 0, 0, 0, 0, time.UTC)
	got := Schedule(10001, nil, &eventDate)

	if len(got) != 2 {
		t.Fatalf("expected 2 installments, got %d", len(got))
	}
	if got[0].Amount != 5000.5 || got[1].Amount != 5000.5 {
		t.Errorf("expected even split, got %.2f and %.2f", got[0].Amount, got[1].Amount)
	}
	if got[1].DueDate != "2026-09-10" {
		t.Errorf("expected balance due on event date, got %q", got[1].DueDate)
	}
}

func TestScheduleAbsorbsRounding(t *testing.T) {
	entries := []models.PaymentScheduleEntry{
		{Label: "First", Percentage: 33.33},
		{Label: "Second", Percentage: 33.33},
		{Label: "Third", Percentage: 33.34},
	}
	got := Schedule(100, entries, nil)

	var sum float64
	for _, e := range got {
		sum += e.Amount
	}
	if Round(sum) != 100 {
		t.Errorf("expected installments to sum to 100, got %.2f", sum)
	}
	if entries[0].Amount != 0 {
		t.Error("expected input entries to be left untouched")
	}
}
