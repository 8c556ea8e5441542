package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/workflow"
)

// FirmOffer is the detailed booking document sent to a speaker for
// confirmation. Exactly one of ProposalID and DealID is set.
type FirmOffer struct {
	ID                 int        `json:"id"`
	ProposalID         *uuid.UUID `json:"proposal_id,omitempty"`
	DealID             *int       `json:"deal_id,omitempty"`
	SpeakerAccessToken string     `json:"-"`

	EventOverview         EventOverview         `json:"event_overview"`
	SpeakerProgram        SpeakerProgram        `json:"speaker_program"`
	EventSchedule         EventSchedule         `json:"event_schedule"`
	TechnicalRequirements TechnicalRequirements `json:"technical_requirements"`
	TravelAccommodation   TravelAccommodation   `json:"travel_accommodation"`
	AdditionalInfo        AdditionalInfo        `json:"additional_info"`
	FinancialDetails      FinancialDetails      `json:"financial_details"`
	Confirmation          Confirmation          `json:"confirmation"`

	Status             workflow.OfferStatus `json:"status"`
	SpeakerConfirmed   *bool                `json:"speaker_confirmed,omitempty"`
	SpeakerNotes       *string              `json:"speaker_notes,omitempty"`
	SpeakerViewedAt    *time.Time           `json:"speaker_viewed_at,omitempty"`
	SpeakerRespondedAt *time.Time           `json:"speaker_responded_at,omitempty"`
	SentAt             *time.Time           `json:"sent_at,omitempty"`

	// Parent is filled when the offer is resolved together with its
	// proposal or deal.
	Parent *OfferParent `json:"parent,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Parent kinds.
const (
	ParentProposal = "proposal"
	ParentDeal     = "deal"
)

// OfferParent summarizes the record a firm offer was created from.
type OfferParent struct {
	Kind          string     `json:"kind"`
	Reference     string     `json:"reference"`
	ClientName    string     `json:"client_name"`
	ClientEmail   string     `json:"client_email,omitempty"`
	Company       string     `json:"company,omitempty"`
	EventTitle    string     `json:"event_title,omitempty"`
	EventDate     *time.Time `json:"event_date,omitempty"`
	EventLocation string     `json:"event_location,omitempty"`
}

// EventOverview describes the event and the booking client.
type EventOverview struct {
	ClientName          string `json:"client_name,omitempty"`
	CompanyName         string `json:"company_name,omitempty"`
	EventName           string `json:"event_name,omitempty"`
	EventDate           string `json:"event_date,omitempty"`
	VenueName           string `json:"venue_name,omitempty"`
	VenueAddress        string `json:"venue_address,omitempty"`
	EventWebsite        string `json:"event_website,omitempty"`
	AttendeeCount       int    `json:"attendee_count,omitempty"`
	AudienceDescription string `json:"audience_description,omitempty"`
	ContactName         string `json:"contact_name,omitempty"`
	ContactEmail        string `json:"contact_email,omitempty"`
	ContactPhone        string `json:"contact_phone,omitempty"`
}

// SpeakerProgram describes what the speaker delivers.
type SpeakerProgram struct {
	SpeakerName        string `json:"speaker_name,omitempty"`
	SpeakerEmail       string `json:"speaker_email,omitempty"`
	SpeakerTitle       string `json:"speaker_title,omitempty"`
	ProgramType        string `json:"program_type,omitempty"`
	ProgramTitle       string `json:"program_title,omitempty"`
	ProgramDescription string `json:"program_description,omitempty"`
	QAIncluded         bool   `json:"qa_included,omitempty"`
}

// EventSchedule is the day-of timeline.
type EventSchedule struct {
	Timezone           string `json:"timezone,omitempty"`
	SpeakerArrivalTime string `json:"speaker_arrival_time,omitempty"`
	SoundCheckTime     string `json:"sound_check_time,omitempty"`
	ProgramStartTime   string `json:"program_start_time,omitempty"`
	ProgramLength      string `json:"program_length,omitempty"`
	Notes              string `json:"notes,omitempty"`
}

// TechnicalRequirements lists AV and recording needs.
type TechnicalRequirements struct {
	AVContact        string `json:"av_contact,omitempty"`
	Microphone       string `json:"microphone,omitempty"`
	Presentation     string `json:"presentation,omitempty"`
	RecordingAllowed bool   `json:"recording_allowed,omitempty"`
	Livestream       bool   `json:"livestream,omitempty"`
	Notes            string `json:"notes,omitempty"`
}

// TravelAccommodation covers flights, hotel and ground transport.
type TravelAccommodation struct {
	FlyInDate        string `json:"fly_in_date,omitempty"`
	FlyOutDate       string `json:"fly_out_date,omitempty"`
	DepartureAirport string `json:"departure_airport,omitempty"`
	HotelName        string `json:"hotel_name,omitempty"`
	HotelAddress     string `json:"hotel_address,omitempty"`
	GroundTransport  string `json:"ground_transport,omitempty"`
	CoveredBy        string `json:"covered_by,omitempty"`
	Notes            string `json:"notes,omitempty"`
}

// AdditionalInfo holds the commitments around the program itself.
type AdditionalInfo struct {
	DressCode       string `json:"dress_code,omitempty"`
	MeetAndGreet    bool   `json:"meet_and_greet,omitempty"`
	BookSigning     bool   `json:"book_signing,omitempty"`
	MediaInterviews bool   `json:"media_interviews,omitempty"`
	SpecialRequests string `json:"special_requests,omitempty"`
}

// FinancialDetails holds the agreed money terms.
type FinancialDetails struct {
	SpeakerFee   float64 `json:"speaker_fee,omitempty"`
	TravelBudget float64 `json:"travel_budget,omitempty"`
	Currency     string  `json:"currency,omitempty"`
	PaymentTerms string  `json:"payment_terms,omitempty"`
}

// Confirmation statuses.
const (
	ConfirmationPending   = "pending"
	ConfirmationSubmitted = "submitted"
)

// Confirmation records the client's submission of the confirmation form.
type Confirmation struct {
	Status         string     `json:"status,omitempty"`
	SubmittedBy    string     `json:"submitted_by,omitempty"`
	SubmittedEmail string     `json:"submitted_email,omitempty"`
	SubmittedAt    *time.Time `json:"submitted_at,omitempty"`
	AgreedToTerms  bool       `json:"agreed_to_terms,omitempty"`
}

// Deal is a booking opportunity tracked without a proposal.
type Deal struct {
	ID            int        `json:"id"`
	ClientName    string     `json:"client_name"`
	ClientEmail   string     `json:"client_email,omitempty"`
	Company       string     `json:"company,omitempty"`
	EventTitle    string     `json:"event_title,omitempty"`
	EventDate     *time.Time `json:"event_date,omitempty"`
	EventLocation string     `json:"event_location,omitempty"`
	SpeakerName   string     `json:"speaker_name,omitempty"`
	DealValue     float64    `json:"deal_value"`
	CreatedAt     time.Time  `json:"created_at"`
}
