package firmoffers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/robert-strong/speak-about-ai-website-sub005/internal/pricing"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/token"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/wizard"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/workflow"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/models"
)

var (
	// ErrValidation is returned for malformed or contradictory input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned when the offer's current state rejects the change.
	ErrConflict = errors.New("firm offer cannot be changed in its current state")
	// ErrForbidden is returned when the caller holds neither the speaker
	// token nor an admin session.
	ErrForbidden = errors.New("not allowed to change this firm offer")
)

// Notifier delivers firm offer emails.
type Notifier interface {
	OfferSent(ctx context.Context, o *models.FirmOffer, link string) error
	OfferResponded(ctx context.Context, o *models.FirmOffer, link string) error
	ConfirmationSubmitted(ctx context.Context, o *models.FirmOffer, p *models.Proposal) error
}

// Patch is the body of PATCH /api/firm-offers/{id}. Nil fields are left
// unchanged.
type Patch struct {
	Status           *string `json:"status"`
	SpeakerConfirmed *bool   `json:"speaker_confirmed"`
	SpeakerNotes     *string `json:"speaker_notes"`
}

// Actor identifies who is patching an offer.
type Actor struct {
	Admin        bool
	SpeakerToken string
}

// Service implements the firm offer workflow.
type Service struct {
	store    Store
	notifier Notifier
	baseURL  string
	now      func() time.Time
}

// NewService creates a firm offer service. notifier may be nil.
func NewService(store Store, notifier Notifier, baseURL string) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		baseURL:  strings.TrimRight(baseURL, "/"),
		now:      time.Now,
	}
}

// SetClock overrides the service clock.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Link returns the speaker review URL of an offer.
func (s *Service) Link(o *models.FirmOffer) string {
	return s.baseURL + "/speaker-review/" + o.SpeakerAccessToken
}

// Resolve looks up an offer by speaker token and records the first view.
// A completed offer keeps its status; only the view time is stamped.
func (s *Service) Resolve(ctx context.Context, tok string) (*models.FirmOffer, error) {
	if !token.Valid(tok) {
		return nil, ErrNotFound
	}
	o, err := s.store.GetByToken(ctx, tok)
	if err != nil {
		return nil, err
	}
	if o.SpeakerViewedAt != nil {
		return o, nil
	}

	now := s.now()
	next, _ := workflow.OfferOnView(o.Status)
	changed, err := s.store.MarkViewed(ctx, o.ID, now, []workflow.OfferStatus{workflow.OfferDraft, workflow.OfferSent}, workflow.OfferSpeakerViewed)
	if err != nil {
		slog.Warn("failed to record firm offer view", "error", err, "firm_offer_id", o.ID)
		return o, nil
	}
	if changed {
		o.SpeakerViewedAt = &now
		o.Status = next
		slog.Info("firm offer viewed", "firm_offer_id", o.ID, "status", o.Status)
	}
	return o, nil
}

// Get fetches an offer by ID.
func (s *Service) Get(ctx context.Context, id int) (*models.FirmOffer, error) {
	return s.store.GetByID(ctx, id)
}

// List returns offers for the admin list.
func (s *Service) List(ctx context.Context, f ListFilter) ([]models.FirmOffer, int, error) {
	return s.store.List(ctx, f)
}

// Counts returns the number of offers per status.
func (s *Service) Counts(ctx context.Context) (map[workflow.OfferStatus]int, error) {
	return s.store.CountByStatus(ctx)
}

// ForProposal returns the offer created from a proposal's confirmation.
func (s *Service) ForProposal(ctx context.Context, p *models.Proposal) (*models.FirmOffer, error) {
	return s.store.GetByProposalID(ctx, p.ID)
}

// Apply routes a PATCH to the speaker response or the admin transition.
// A speaker may only answer, with the offer's own token; status-only
// changes need an admin.
func (s *Service) Apply(ctx context.Context, id int, patch Patch, actor Actor) (*models.FirmOffer, error) {
	o, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Admin && !token.Equal(o.SpeakerAccessToken, actor.SpeakerToken) {
		return nil, ErrForbidden
	}

	var status *workflow.OfferStatus
	if patch.Status != nil {
		st, err := workflow.ParseOfferStatus(*patch.Status)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		status = &st
	}

	confirmed := patch.SpeakerConfirmed
	if confirmed == nil && status != nil {
		switch *status {
		case workflow.OfferSpeakerConfirmed:
			yes := true
			confirmed = &yes
		case workflow.OfferSpeakerDeclined:
			no := false
			confirmed = &no
		}
	}

	if confirmed != nil {
		if status != nil && *status != workflow.OfferResponseStatus(*confirmed) {
			return nil, fmt.Errorf("%w: status %s contradicts speaker_confirmed=%t", ErrValidation, *status, *confirmed)
		}
		notes := ""
		if patch.SpeakerNotes != nil {
			notes = strings.TrimSpace(*patch.SpeakerNotes)
		}
		return s.Respond(ctx, id, *confirmed, notes)
	}

	if status != nil {
		if !actor.Admin {
			return nil, ErrForbidden
		}
		return s.Transition(ctx, id, *status)
	}
	return nil, fmt.Errorf("%w: speaker_confirmed or status is required", ErrValidation)
}

// Respond records the speaker's one-time answer.
func (s *Service) Respond(ctx context.Context, id int, confirmed bool, notes string) (*models.FirmOffer, error) {
	to := workflow.OfferResponseStatus(confirmed)
	o, err := s.store.RecordResponse(ctx, id, SpeakerResponse{
		Confirmed: confirmed,
		Notes:     notes,
		From:      workflow.OfferSourcesFor(to),
		At:        s.now(),
	})
	if errors.Is(err, ErrNotApplied) {
		current, getErr := s.store.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if reason := workflow.CheckOfferResponse(current.Status, current.SpeakerConfirmed, to); reason != nil {
			return nil, fmt.Errorf("%w: %w", ErrConflict, reason)
		}
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}

	slog.Info("firm offer answered", "firm_offer_id", o.ID, "status", o.Status)
	if s.notifier != nil {
		if err := s.notifier.OfferResponded(ctx, o, s.Link(o)); err != nil {
			slog.Warn("failed to send speaker response notification", "error", err, "firm_offer_id", o.ID)
		}
	}
	return o, nil
}

// Transition applies an admin status change through the transition table.
// Speaker answers are not admin transitions and must go through Respond.
func (s *Service) Transition(ctx context.Context, id int, to workflow.OfferStatus) (*models.FirmOffer, error) {
	if to == workflow.OfferSpeakerConfirmed || to == workflow.OfferSpeakerDeclined {
		return nil, fmt.Errorf("%w: %s is recorded through the speaker response", ErrValidation, to)
	}
	o, err := s.store.SetStatus(ctx, id, workflow.OfferSourcesFor(to), to, s.now())
	if errors.Is(err, ErrNotApplied) {
		current, getErr := s.store.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: %w: %s -> %s", ErrConflict, workflow.ErrInvalidTransition, current.Status, to)
	}
	if err != nil {
		return nil, err
	}
	slog.Info("firm offer status changed", "firm_offer_id", o.ID, "status", o.Status)
	return o, nil
}

// Send marks a draft offer as sent and emails the speaker their link.
func (s *Service) Send(ctx context.Context, id int) (*models.FirmOffer, error) {
	o, err := s.Transition(ctx, id, workflow.OfferSent)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		if err := s.notifier.OfferSent(ctx, o, s.Link(o)); err != nil {
			slog.Warn("failed to email speaker link", "error", err, "firm_offer_id", o.ID)
		}
	}
	return o, nil
}

// Complete closes out a confirmed engagement.
func (s *Service) Complete(ctx context.Context, id int) (*models.FirmOffer, error) {
	return s.Transition(ctx, id, workflow.OfferCompleted)
}

// CreateFromConfirmation turns a submitted confirmation form into a draft
// firm offer linked to the accepted proposal.
func (s *Service) CreateFromConfirmation(ctx context.Context, p *models.Proposal, sub *wizard.Submission) (*models.FirmOffer, error) {
	if p.Status != workflow.ProposalAccepted {
		return nil, fmt.Errorf("%w: proposal is %s, not accepted", ErrConflict, p.Status)
	}
	if sub == nil || sub.Status != wizard.StatusSubmitted {
		return nil, fmt.Errorf("%w: confirmation has not been submitted", ErrValidation)
	}
	existing, err := s.store.GetByProposalID(ctx, p.ID)
	if err == nil && existing.Confirmation.Status == models.ConfirmationSubmitted {
		return nil, fmt.Errorf("%w: confirmation already submitted", ErrConflict)
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	o := OfferFromConfirmation(p, sub)
	o.ProposalID = &p.ID
	if err := s.create(ctx, o); err != nil {
		return nil, err
	}

	slog.Info("confirmation submitted", "firm_offer_id", o.ID, "proposal_id", p.ID)
	if s.notifier != nil {
		if err := s.notifier.ConfirmationSubmitted(ctx, o, p); err != nil {
			slog.Warn("failed to send confirmation notification", "error", err, "firm_offer_id", o.ID)
		}
	}
	return o, nil
}

// CreateForDeal creates a draft firm offer for a deal that has no proposal.
func (s *Service) CreateForDeal(ctx context.Context, dealID int, speakerEmail string) (*models.FirmOffer, error) {
	d, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	o := &models.FirmOffer{
		DealID: &d.ID,
		EventOverview: models.EventOverview{
			ClientName:   d.ClientName,
			CompanyName:  d.Company,
			EventName:    d.EventTitle,
			VenueAddress: d.EventLocation,
			ContactName:  d.ClientName,
			ContactEmail: d.ClientEmail,
		},
		SpeakerProgram: models.SpeakerProgram{
			SpeakerName:  d.SpeakerName,
			SpeakerEmail: speakerEmail,
		},
		FinancialDetails: models.FinancialDetails{
			SpeakerFee: d.DealValue,
			Currency:   "USD",
		},
		Confirmation: models.Confirmation{Status: models.ConfirmationPending},
	}
	if d.EventDate != nil {
		o.EventOverview.EventDate = d.EventDate.Format("2006-01-02")
	}
	if err := s.create(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// CreateDeal stores a new deal.
func (s *Service) CreateDeal(ctx context.Context, d *models.Deal) error {
	if strings.TrimSpace(d.ClientName) == "" {
		return fmt.Errorf("%w: client name is required", ErrValidation)
	}
	return s.store.CreateDeal(ctx, d)
}

func (s *Service) create(ctx context.Context, o *models.FirmOffer) error {
	now := s.now()
	o.Status = workflow.OfferDraft
	o.CreatedAt = now
	o.UpdatedAt = now

	const attempts = 3
	for i := 0; i < attempts; i++ {
		tok, err := token.New()
		if err != nil {
			return err
		}
		o.SpeakerAccessToken = tok
		err = s.store.Create(ctx, o)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrDuplicate) {
			return err
		}
	}
	return fmt.Errorf("failed to allocate a unique speaker token after %d attempts", attempts)
}

// OfferFromConfirmation maps the wizard form onto the firm offer sections.
// Speaker and money details come from the accepted proposal.
func OfferFromConfirmation(p *models.Proposal, sub *wizard.Submission) *models.FirmOffer {
	f := sub.Form
	o := &models.FirmOffer{
		EventOverview: models.EventOverview{
			ClientName:   p.ClientName,
			CompanyName:  f.EventDetails.Organization,
			EventName:    f.EventDetails.EventName,
			EventDate:    f.EventDetails.EventDate,
			VenueName:    f.EventDetails.Venue,
			VenueAddress: f.EventDetails.VenueAddress,
			ContactName:  f.EventDetails.ContactName,
			ContactEmail: f.EventDetails.ContactEmail,
			ContactPhone: f.EventDetails.ContactPhone,
		},
		SpeakerProgram: models.SpeakerProgram{
			ProgramType:        f.Program.ProgramType,
			ProgramTitle:       f.Program.ProgramTitle,
			ProgramDescription: f.Program.Description,
			QAIncluded:         f.Program.QAIncluded,
		},
		EventSchedule: models.EventSchedule{
			ProgramStartTime: f.Program.StartTime,
			ProgramLength:    f.Program.Length,
		},
		TechnicalRequirements: models.TechnicalRequirements{
			RecordingAllowed: f.Commitments.RecordingAllowed,
			Livestream:       f.Commitments.Livestream,
			Notes:            f.Commitments.AVNotes,
		},
		TravelAccommodation: models.TravelAccommodation{
			FlyInDate:        f.Travel.FlyInDate,
			FlyOutDate:       f.Travel.FlyOutDate,
			DepartureAirport: f.Travel.DepartureAirport,
			HotelName:        f.Travel.HotelName,
			HotelAddress:     f.Travel.HotelAddress,
			GroundTransport:  f.Travel.GroundTransport,
			Notes:            f.Travel.Notes,
		},
		AdditionalInfo: models.AdditionalInfo{
			DressCode:       f.Commitments.DressCode,
			MeetAndGreet:    f.Commitments.MeetAndGreet,
			BookSigning:     f.Commitments.BookSigning,
			MediaInterviews: f.Commitments.MediaInterviews,
			SpecialRequests: f.Commitments.SpecialRequests,
		},
		Confirmation: models.Confirmation{
			Status:         models.ConfirmationSubmitted,
			SubmittedBy:    f.Confirmation.Name,
			SubmittedEmail: f.Confirmation.Email,
			SubmittedAt:    &sub.SubmittedAt,
			AgreedToTerms:  f.Confirmation.AgreedToTerms,
		},
	}
	if n, err := strconv.Atoi(strings.ReplaceAll(f.EventDetails.AttendeeCount, ",", "")); err == nil {
		o.EventOverview.AttendeeCount = n
	}
	if len(p.Speakers) > 0 {
		o.SpeakerProgram.SpeakerName = p.Speakers[0].Name
		o.SpeakerProgram.SpeakerTitle = p.Speakers[0].Title
	}

	totals := pricing.Calculate(p.Speakers, nil, 0)
	o.FinancialDetails = models.FinancialDetails{
		SpeakerFee:   totals.SpeakerFees,
		Currency:     "USD",
		PaymentTerms: paymentTerms(pricing.Schedule(p.Total, p.PaymentSchedule, p.EventDate)),
	}
	return o
}

func paymentTerms(schedule []models.PaymentScheduleEntry) string {
	parts := make([]string, 0, len(schedule))
	for _, e := range schedule {
		part := fmt.Sprintf("%s %g%%", e.Label, e.Percentage)
		if e.DueDate != "" {
			part += " (" + e.DueDate + ")"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}
