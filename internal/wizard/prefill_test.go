package wizard

import (
	"testing"
	"time"

	"github.com/robert-strong/speak-about-ai-website-sub005/shared/models"
)

func TestPrefill(t *testing.T) {
	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	by := "Jane Doe"
	p := &models.Proposal{
		ClientName:    "Jane D.",
		ClientEmail:   "jane@acme.test",
		ClientCompany: "Acme Corp",
		EventTitle:    "Acme Summit",
		EventDate:     &date,
		EventLocation: "Moscone Center",
		AttendeeCount: 1200,
		AcceptedBy:    &by,
	}

	f := Prefill(p)
	if f.EventDetails.Organization != "Acme Corp" {
		t.Errorf("expected organization Acme Corp, got %q", f.EventDetails.Organization)
	}
	if f.EventDetails.EventDate != "2026-09-10" {
		t.Errorf("expected event date 2026-09-10, got %q", f.EventDetails.EventDate)
	}
	if f.EventDetails.AttendeeCount != "1200" {
		t.Errorf("expected attendee count 1200, got %q", f.EventDetails.AttendeeCount)
	}
	if f.Confirmation.Name != "Jane Doe" {
		t.Errorf("expected signer from acceptance, got %q", f.Confirmation.Name)
	}
	if fe := f.Validate(StepEventDetails); fe != nil {
		t.Errorf("expected prefilled event details to validate, got %v", fe)
	}
	if fe := f.Validate(StepProgram); fe == nil {
		t.Error("expected program step to still need input")
	}
}

func TestPrefillFallsBackToClientName(t *testing.T) {
	f := Prefill(&models.Proposal{ClientName: "Solo Client", EventFormat: models.FormatVirtual})
	if f.EventDetails.Organization != "Solo Client" {
		t.Errorf("expected organization Solo Client, got %q", f.EventDetails.Organization)
	}
	if f.Program.ProgramType != "Virtual Keynote" {
		t.Errorf("expected virtual keynote, got %q", f.Program.ProgramType)
	}
}
