// Package wizard is the five-step event confirmation form a client fills
// in after accepting a proposal. The accumulated form travels between
// steps as an opaque hidden field and is submitted once, at the end.
package wizard

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrStepInvalid is returned when navigation is blocked by a step's
// required fields.
var ErrStepInvalid = errors.New("step has missing required fields")

// Step is a wizard step index.
type Step int

// Steps in order.
const (
	StepEventDetails Step = iota
	StepProgram
	StepTravel
	StepCommitments
	StepConfirm
)

// StepCount is the number of wizard steps.
const StepCount = 5

var stepTitles = [StepCount]string{
	"Event Details",
	"Speaking Program",
	"Travel",
	"Additional Commitments",
	"Confirm",
}

// Title is the step's heading.
func (s Step) Title() string {
	if s < 0 || int(s) >= StepCount {
		return ""
	}
	return stepTitles[s]
}

// Valid reports whether s is a step index.
func (s Step) Valid() bool {
	return s >= StepEventDetails && s <= StepConfirm
}

// StatusSubmitted tags a completed submission.
const StatusSubmitted = "submitted"

// EventDetails is step 0.
type EventDetails struct {
	Organization  string `json:"organization"`
	EventName     string `json:"event_name"`
	EventDate     string `json:"event_date"`
	Venue         string `json:"venue"`
	VenueAddress  string `json:"venue_address,omitempty"`
	AttendeeCount string `json:"attendee_count,omitempty"`
	ContactName   string `json:"contact_name,omitempty"`
	ContactEmail  string `json:"contact_email,omitempty"`
	ContactPhone  string `json:"contact_phone,omitempty"`
}

// Program is step 1.
type Program struct {
	ProgramType  string `json:"program_type"`
	ProgramTitle string `json:"program_title,omitempty"`
	StartTime    string `json:"start_time"`
	Length       string `json:"length"`
	QAIncluded   bool   `json:"qa_included,omitempty"`
	Description  string `json:"description,omitempty"`
}

// Travel is step 2.
type Travel struct {
	FlyInDate        string `json:"fly_in_date"`
	FlyOutDate       string `json:"fly_out_date"`
	DepartureAirport string `json:"departure_airport,omitempty"`
	HotelName        string `json:"hotel_name,omitempty"`
	HotelAddress     string `json:"hotel_address,omitempty"`
	GroundTransport  string `json:"ground_transport,omitempty"`
	Notes            string `json:"notes,omitempty"`
}

// Commitments is step 3.
type Commitments struct {
	RecordingAllowed bool   `json:"recording_allowed,omitempty"`
	Livestream       bool   `json:"livestream,omitempty"`
	MeetAndGreet     bool   `json:"meet_and_greet,omitempty"`
	BookSigning      bool   `json:"book_signing,omitempty"`
	MediaInterviews  bool   `json:"media_interviews,omitempty"`
	DressCode        string `json:"dress_code,omitempty"`
	AVNotes          string `json:"av_notes,omitempty"`
	SpecialRequests  string `json:"special_requests,omitempty"`
}

// Confirmation is step 4.
type Confirmation struct {
	Name          string     `json:"name,omitempty"`
	Title         string     `json:"title,omitempty"`
	Email         string     `json:"email,omitempty"`
	AgreedToTerms bool       `json:"agreed_to_terms,omitempty"`
	Status        string     `json:"status,omitempty"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
}

// Form is the nested object accumulated across all steps.
type Form struct {
	EventDetails EventDetails `json:"event_details"`
	Program      Program      `json:"program"`
	Travel       Travel       `json:"travel"`
	Commitments  Commitments  `json:"commitments"`
	Confirmation Confirmation `json:"confirmation"`
}

// FieldErrors maps a form field name to its message.
type FieldErrors map[string]string

// StepError reports the fields blocking a step.
type StepError struct {
	Step   Step
	Fields FieldErrors
}

func (e *StepError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	return fmt.Sprintf("step %d (%s): missing %s", e.Step, e.Step.Title(), strings.Join(names, ", "))
}

// Unwrap lets callers match ErrStepInvalid.
func (e *StepError) Unwrap() error {
	return ErrStepInvalid
}

func required(fe FieldErrors, field, value, label string) {
	if strings.TrimSpace(value) == "" {
		fe[field] = label + " is required"
	}
}

// Validate checks a single step. Steps 3 and 4 never block.
func (f *Form) Validate(step Step) FieldErrors {
	fe := FieldErrors{}
	switch step {
	case StepEventDetails:
		required(fe, "organization", f.EventDetails.Organization, "Client / organization name")
		required(fe, "event_name", f.EventDetails.EventName, "Event name")
		required(fe, "event_date", f.EventDetails.EventDate, "Event date")
		required(fe, "venue", f.EventDetails.Venue, "Venue / location")
	case StepProgram:
		required(fe, "program_type", f.Program.ProgramType, "Program type")
		required(fe, "start_time", f.Program.StartTime, "Program start time")
		required(fe, "length", f.Program.Length, "Program length")
	case StepTravel:
		required(fe, "fly_in_date", f.Travel.FlyInDate, "Fly-in date")
		required(fe, "fly_out_date", f.Travel.FlyOutDate, "Fly-out date")
	}
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// Wizard is the navigation state over a Form.
type Wizard struct {
	Step Step `json:"step"`
	Form Form `json:"form"`
}

// New starts a wizard at the first step with a prefilled form.
func New(form Form) *Wizard {
	return &Wizard{Step: StepEventDetails, Form: form}
}

func (w *Wizard) check(step Step) error {
	if fe := w.Form.Validate(step); fe != nil {
		return &StepError{Step: step, Fields: fe}
	}
	return nil
}

// Next advances one step when the current step validates. On error the
// step index is unchanged.
func (w *Wizard) Next() error {
	if w.Step >= StepConfirm {
		return nil
	}
	if err := w.check(w.Step); err != nil {
		return err
	}
	w.Step++
	return nil
}

// Back moves one step back. It is always allowed.
func (w *Wizard) Back() {
	if w.Step > StepEventDetails {
		w.Step--
	}
}

// GoTo jumps to target. Moving back is always allowed; moving forward
// requires every step from the current one up to target to validate.
func (w *Wizard) GoTo(target Step) error {
	if !target.Valid() {
		return fmt.Errorf("unknown step %d", target)
	}
	if target <= w.Step {
		w.Step = target
		return nil
	}
	for s := w.Step; s < target; s++ {
		if err := w.check(s); err != nil {
			return err
		}
	}
	w.Step = target
	return nil
}

// Reachable reports whether the step indicator may link to target.
func (w *Wizard) Reachable(target Step) bool {
	if target <= w.Step {
		return true
	}
	for s := w.Step; s < target; s++ {
		if w.Form.Validate(s) != nil {
			return false
		}
	}
	return true
}

// Submission is the completed form.
type Submission struct {
	Form        Form
	Status      string
	SubmittedAt time.Time
}

// Submit finalizes the form from the confirm step. Every blocking step is
// re-validated since the state came from the client.
func (w *Wizard) Submit(now time.Time) (*Submission, error) {
	if w.Step != StepConfirm {
		return nil, fmt.Errorf("%w: submit is only available on the confirm step", ErrStepInvalid)
	}
	for s := StepEventDetails; s < StepConfirm; s++ {
		if err := w.check(s); err != nil {
			w.Step = s
			return nil, err
		}
	}
	form := w.Form
	form.Confirmation.Status = StatusSubmitted
	form.Confirmation.SubmittedAt = &now
	return &Submission{Form: form, Status: StatusSubmitted, SubmittedAt: now}, nil
}

// Encode serializes the wizard into a hidden form field value.
func (w *Wizard) Encode() (string, error) {
	b, err := json.Marshal(w)
	if err != nil {
		return "", fmt.Errorf("failed to encode wizard state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Decode restores a wizard from Encode's output.
func Decode(s string) (*Wizard, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode wizard state: %w", err)
	}
	var w Wizard
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("failed to parse wizard state: %w", err)
	}
	if !w.Step.Valid() {
		return nil, fmt.Errorf("wizard state has unknown step %d", w.Step)
	}
	return &w, nil
}
