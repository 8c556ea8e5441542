// Package views projects proposals and firm offers into the read-only,
// display-ready documents the public pages render. Nothing here is
// persisted; a view is rebuilt on every request.
package views

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/robert-strong/speak-about-ai-website-sub005/internal/pricing"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/textutil"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/workflow"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/models"
)

// Mode selects how a document is rendered.
type Mode int

const (
	// ModeLive renders a stored document to its recipient.
	ModeLive Mode = iota
	// ModePreview renders an unsaved document; it is always read-only.
	ModePreview
)

// ProposalView is the display projection of a Proposal.
type ProposalView struct {
	Number string
	Token  string

	ClientName    string
	ClientEmail   string
	ClientCompany string
	ClientTitle   string

	EventTitle    string
	EventDate     string
	EventLocation string
	EventFormat   string
	Attendees     string

	Speakers     []SpeakerCard
	Services     []LineItem
	Deliverables []models.Deliverable
	Testimonials []models.Testimonial

	Subtotal    string
	Discount    string
	HasDiscount bool
	Total       string
	Schedule    []Installment

	ExecutiveSummary []string
	WhyUs            []string
	Terms            []string

	ValidUntil  string
	Status      workflow.ProposalStatus
	StatusLabel string

	Expired    bool
	Terminal   bool
	CanRespond bool
	Preview    bool

	Acceptance *Acceptance
	Rejection  *Rejection
}

// SpeakerCard is one pitched speaker.
type SpeakerCard struct {
	Name                  string
	Title                 string
	Bio                   []string
	ImageURL              string
	Topics                []string
	Fee                   string
	AvailabilityConfirmed bool
}

// LineItem is a priced service.
type LineItem struct {
	Name        string
	Description string
	Amount      string
}

// Installment is one payment schedule row.
type Installment struct {
	Label      string
	Percentage string
	Amount     string
	DueDate    string
}

// Acceptance is the banner shown once a proposal is accepted.
type Acceptance struct {
	By    string
	Title string
	Notes string
	At    string
}

// Rejection is the banner shown once a proposal is declined.
type Rejection struct {
	By     string
	Reason string
	At     string
}

var formatLabels = map[string]string{
	models.FormatInPerson: "In person",
	models.FormatVirtual:  "Virtual",
	models.FormatHybrid:   "Hybrid",
}

// Proposal builds the view of p at time now.
func Proposal(p *models.Proposal, now time.Time, mode Mode) *ProposalView {
	preview := mode == ModePreview
	v := &ProposalView{
		Number:        p.ProposalNumber,
		ClientName:    p.ClientName,
		ClientEmail:   p.ClientEmail,
		ClientCompany: p.ClientCompany,
		ClientTitle:   p.ClientTitle,
		EventTitle:    p.EventTitle,
		EventDate:     FormatDatePtr(p.EventDate),
		EventLocation: p.EventLocation,
		EventFormat:   formatLabels[p.EventFormat],
		Deliverables:  p.Deliverables,
		Testimonials:  p.Testimonials,

		ExecutiveSummary: textutil.Paragraphs(p.ExecutiveSummary),
		WhyUs:            textutil.Paragraphs(p.WhyUs),
		Terms:            textutil.Paragraphs(p.Terms),

		ValidUntil:  FormatDate(p.ValidUntil),
		Status:      p.Status,
		StatusLabel: p.Status.Label(),
		Expired:     workflow.Expired(p.ValidUntil, now),
		Terminal:    p.Status.Terminal(),
		CanRespond:  workflow.CanRespondProposal(p.Status, p.ValidUntil, now, preview),
		Preview:     preview,
	}
	if !preview {
		v.Token = p.AccessToken
	}
	if p.AttendeeCount > 0 {
		v.Attendees = FormatCount(p.AttendeeCount)
	}

	for _, s := range p.Speakers {
		v.Speakers = append(v.Speakers, SpeakerCard{
			Name:                  s.Name,
			Title:                 s.Title,
			Bio:                   textutil.Paragraphs(s.Bio),
			ImageURL:              s.ImageURL,
			Topics:                s.Topics,
			Fee:                   FormatMoney(s.Fee),
			AvailabilityConfirmed: s.AvailabilityConfirmed,
		})
	}
	for _, s := range p.Services {
		v.Services = append(v.Services, LineItem{Name: s.Name, Description: s.Description, Amount: FormatMoney(s.Cost)})
	}

	totals := pricing.ForProposal(p)
	v.Subtotal = FormatMoney(totals.Subtotal)
	v.Discount = FormatMoney(totals.Discount)
	v.HasDiscount = totals.Discount > 0
	v.Total = FormatMoney(totals.Total)
	for _, e := range pricing.Schedule(totals.Total, p.PaymentSchedule, p.EventDate) {
		v.Schedule = append(v.Schedule, Installment{
			Label:      e.Label,
			Percentage: strconv.FormatFloat(e.Percentage, 'f', -1, 64) + "%",
			Amount:     FormatMoney(e.Amount),
			DueDate:    formatDueDate(e.DueDate),
		})
	}

	switch p.Status {
	case workflow.ProposalAccepted:
		v.Acceptance = &Acceptance{
			By:    deref(p.AcceptedBy),
			Title: deref(p.AcceptedTitle),
			Notes: deref(p.AcceptanceNotes),
			At:    FormatDatePtr(p.AcceptedAt),
		}
	case workflow.ProposalRejected:
		v.Rejection = &Rejection{
			By:     deref(p.RejectedBy),
			Reason: deref(p.RejectionReason),
			At:     FormatDatePtr(p.RejectedAt),
		}
	}
	return v
}

// FirmOfferView is the display projection of a FirmOffer.
type FirmOfferView struct {
	ID    int
	Token string

	ParentKind      string
	ParentReference string
	ClientName      string
	Company         string

	Event       models.EventOverview
	EventDate   string
	Program     models.SpeakerProgram
	Schedule    models.EventSchedule
	Technical   models.TechnicalRequirements
	Travel      models.TravelAccommodation
	Additional  models.AdditionalInfo
	SpeakerFee  string
	TravelFund  string
	Currency    string
	PaymentTerm string

	Status      workflow.OfferStatus
	StatusLabel string
	Answered    bool
	Confirmed   bool
	Notes       string
	RespondedAt string
	Terminal    bool
	CanRespond  bool
	Preview     bool
}

// FirmOffer builds the speaker-facing view of o.
func FirmOffer(o *models.FirmOffer, mode Mode) *FirmOfferView {
	preview := mode == ModePreview
	v := &FirmOfferView{
		ID:          o.ID,
		Event:       o.EventOverview,
		EventDate:   formatDueDate(o.EventOverview.EventDate),
		Program:     o.SpeakerProgram,
		Schedule:    o.EventSchedule,
		Technical:   o.TechnicalRequirements,
		Travel:      o.TravelAccommodation,
		Additional:  o.AdditionalInfo,
		Currency:    o.FinancialDetails.Currency,
		PaymentTerm: o.FinancialDetails.PaymentTerms,
		Status:      o.Status,
		StatusLabel: o.Status.Label(),
		Answered:    o.SpeakerConfirmed != nil || o.Status.Answered(),
		Notes:       deref(o.SpeakerNotes),
		RespondedAt: FormatDatePtr(o.SpeakerRespondedAt),
		Terminal:    o.Status.Terminal() || o.SpeakerConfirmed != nil,
		CanRespond:  workflow.CanRespondOffer(o.Status, o.SpeakerConfirmed, preview),
		Preview:     preview,
	}
	if !preview {
		v.Token = o.SpeakerAccessToken
	}
	if o.SpeakerConfirmed != nil {
		v.Confirmed = *o.SpeakerConfirmed
	} else {
		v.Confirmed = o.Status == workflow.OfferSpeakerConfirmed || o.Status == workflow.OfferCompleted
	}
	if v.Currency == "" {
		v.Currency = "USD"
	}
	if o.FinancialDetails.SpeakerFee > 0 {
		v.SpeakerFee = FormatMoney(o.FinancialDetails.SpeakerFee)
	}
	if o.FinancialDetails.TravelBudget > 0 {
		v.TravelFund = FormatMoney(o.FinancialDetails.TravelBudget)
	}
	if o.Parent != nil {
		v.ParentKind = o.Parent.Kind
		v.ParentReference = o.Parent.Reference
		v.ClientName = o.Parent.ClientName
		v.Company = o.Parent.Company
		if v.Event.EventName == "" {
			v.Event.EventName = o.Parent.EventTitle
		}
		if v.EventDate == "" {
			v.EventDate = FormatDatePtr(o.Parent.EventDate)
		}
	}
	if v.ClientName == "" {
		v.ClientName = o.EventOverview.ClientName
	}
	if v.Company == "" {
		v.Company = o.EventOverview.CompanyName
	}
	return v
}

// FormatMoney renders an amount in dollars, with cents only when needed.
func FormatMoney(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	cents := int64(math.Round(v * 100))
	whole := strconv.FormatInt(cents/100, 10)

	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	out := "$" + b.String()
	if rem := cents % 100; rem != 0 {
		out += fmt.Sprintf(".%02d", rem)
	}
	if neg {
		out = "-" + out
	}
	return out
}

// FormatCount renders an integer with thousands separators.
func FormatCount(n int) string {
	return strings.TrimPrefix(FormatMoney(float64(n)), "$")
}

// FormatDate renders a date like "March 15, 2026".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006")
}

// FormatDatePtr is FormatDate for optional dates.
func FormatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatDate(*t)
}

// formatDueDate pretty-prints ISO dates and leaves free text alone.
func formatDueDate(s string) string {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return FormatDate(t)
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
