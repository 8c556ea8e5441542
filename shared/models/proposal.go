// Package models defines the records shared by the site server, the stores
// and the CLI.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/workflow"
)

// Event formats.
const (
	FormatInPerson = "in_person"
	FormatVirtual  = "virtual"
	FormatHybrid   = "hybrid"
)

// Proposal is a client-facing sales proposal reachable through its
// access token.
type Proposal struct {
	ID             uuid.UUID `json:"id"`
	ProposalNumber string    `json:"proposal_number"`
	AccessToken    string    `json:"-"`

	ClientName    string `json:"client_name"`
	ClientEmail   string `json:"client_email,omitempty"`
	ClientCompany string `json:"client_company,omitempty"`
	ClientTitle   string `json:"client_title,omitempty"`

	EventTitle    string     `json:"event_title,omitempty"`
	EventDate     *time.Time `json:"event_date,omitempty"`
	EventLocation string     `json:"event_location,omitempty"`
	EventFormat   string     `json:"event_format,omitempty"`
	AttendeeCount int        `json:"attendee_count,omitempty"`

	Speakers        []ProposalSpeaker      `json:"speakers"`
	Services        []ProposalService      `json:"services"`
	Deliverables    []Deliverable          `json:"deliverables"`
	Testimonials    []Testimonial          `json:"testimonials"`
	PaymentSchedule []PaymentScheduleEntry `json:"payment_schedule"`

	Subtotal float64 `json:"subtotal"`
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`

	ExecutiveSummary string `json:"executive_summary,omitempty"`
	WhyUs            string `json:"why_us,omitempty"`
	Terms            string `json:"terms,omitempty"`

	ValidUntil time.Time               `json:"valid_until"`
	Status     workflow.ProposalStatus `json:"status"`

	SentAt          *time.Time `json:"sent_at,omitempty"`
	ViewedAt        *time.Time `json:"viewed_at,omitempty"`
	AcceptedAt      *time.Time `json:"accepted_at,omitempty"`
	AcceptedBy      *string    `json:"accepted_by,omitempty"`
	AcceptedTitle   *string    `json:"accepted_title,omitempty"`
	AcceptanceNotes *string    `json:"acceptance_notes,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectedBy      *string    `json:"rejected_by,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProposalSpeaker is a speaker pitched in a proposal.
type ProposalSpeaker struct {
	Name                  string   `json:"name"`
	Title                 string   `json:"title,omitempty"`
	Bio                   string   `json:"bio,omitempty"`
	ImageURL              string   `json:"image_url,omitempty"`
	Topics                []string `json:"topics,omitempty"`
	Fee                   float64  `json:"fee"`
	AvailabilityConfirmed bool     `json:"availability_confirmed,omitempty"`
}

// ProposalService is an add-on service line item.
type ProposalService struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Cost        float64 `json:"cost"`
}

// Deliverable is something the agency commits to provide.
type Deliverable struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Testimonial is a quote from a previous client.
type Testimonial struct {
	Quote   string `json:"quote"`
	Author  string `json:"author"`
	Title   string `json:"title,omitempty"`
	Company string `json:"company,omitempty"`
}

// PaymentScheduleEntry is one installment of the proposal total.
type PaymentScheduleEntry struct {
	Label      string  `json:"label"`
	Percentage float64 `json:"percentage"`
	Amount     float64 `json:"amount"`
	DueDate    string  `json:"due_date,omitempty"`
}
