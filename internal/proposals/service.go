package proposals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/pricing"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/token"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/workflow"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/models"
)

var (
	// ErrValidation is returned when required input is missing.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned when a response or status change no longer
	// applies to the proposal's current state.
	ErrConflict = errors.New("proposal cannot be changed in its current state")
)

// Notifier delivers proposal emails. Failures are logged, never returned
// to the client.
type Notifier interface {
	ProposalSent(ctx context.Context, p *models.Proposal, link string) error
	ProposalResponded(ctx context.Context, p *models.Proposal, link string) error
}

// AcceptInput is the client's acceptance.
type AcceptInput struct {
	AcceptedBy      string `json:"accepted_by"`
	AcceptedTitle   string `json:"accepted_title"`
	AcceptanceNotes string `json:"acceptance_notes"`
}

// RejectInput is the client's decline.
type RejectInput struct {
	RejectedBy      string `json:"rejected_by"`
	RejectionReason string `json:"rejection_reason"`
}

// Service implements the proposal review workflow.
type Service struct {
	store    Store
	notifier Notifier
	baseURL  string
	now      func() time.Time
}

// NewService creates a proposal service. notifier may be nil.
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

// Link returns the public URL of a proposal.
func (s *Service) Link(p *models.Proposal) string {
	return s.baseURL + "/proposal/" + p.AccessToken
}

// Resolve looks up a proposal by access token and records the first view.
// Recording the view is best effort and never fails the lookup.
func (s *Service) Resolve(ctx context.Context, tok string) (*models.Proposal, error) {
	if !token.Valid(tok) {
		return nil, ErrNotFound
	}
	p, err := s.store.GetByToken(ctx, tok)
	if err != nil {
		return nil, err
	}
	if p.ViewedAt != nil {
		return p, nil
	}

	now := s.now()
	next, _ := workflow.ProposalOnView(p.Status)
	changed, err := s.store.MarkViewed(ctx, p.ID, now, []workflow.ProposalStatus{workflow.ProposalDraft, workflow.ProposalSent}, workflow.ProposalViewed)
	if err != nil {
		slog.Warn("failed to record proposal view", "error", err, "proposal_id", p.ID)
		return p, nil
	}
	if changed {
		p.ViewedAt = &now
		p.Status = next
		slog.Info("proposal viewed", "proposal_id", p.ID, "status", p.Status)
	}
	return p, nil
}

// Accept records the client's acceptance. The status guard is applied by
// the store at write time.
func (s *Service) Accept(ctx context.Context, tok string, in AcceptInput) (*models.Proposal, error) {
	in.AcceptedBy = strings.TrimSpace(in.AcceptedBy)
	if in.AcceptedBy == "" {
		return nil, fmt.Errorf("%w: accepted_by is required", ErrValidation)
	}
	return s.respond(ctx, tok, workflow.ProposalAccepted, in.AcceptedBy, strings.TrimSpace(in.AcceptedTitle), strings.TrimSpace(in.AcceptanceNotes))
}

// Reject records the client's decline.
func (s *Service) Reject(ctx context.Context, tok string, in RejectInput) (*models.Proposal, error) {
	return s.respond(ctx, tok, workflow.ProposalRejected, strings.TrimSpace(in.RejectedBy), "", strings.TrimSpace(in.RejectionReason))
}

func (s *Service) respond(ctx context.Context, tok string, to workflow.ProposalStatus, by, title, notes string) (*models.Proposal, error) {
	if !token.Valid(tok) {
		return nil, ErrNotFound
	}
	now := s.now()
	p, err := s.store.Respond(ctx, tok, Response{
		To:    to,
		From:  workflow.ProposalSourcesFor(to),
		Today: workflow.Today(now),
		At:    now,
		By:    by,
		Title: title,
		Notes: notes,
	})
	if errors.Is(err, ErrNotApplied) {
		return nil, s.classify(ctx, tok, to, now)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("proposal response recorded", "proposal_id", p.ID, "status", p.Status, "token", token.Redact(tok))
	if s.notifier != nil {
		if err := s.notifier.ProposalResponded(ctx, p, s.Link(p)); err != nil {
			slog.Warn("failed to send response notification", "error", err, "proposal_id", p.ID)
		}
	}
	return p, nil
}

// classify explains why a guarded write matched no row.
func (s *Service) classify(ctx context.Context, tok string, to workflow.ProposalStatus, now time.Time) error {
	current, err := s.store.GetByToken(ctx, tok)
	if err != nil {
		return err
	}
	if reason := workflow.CheckProposalResponse(current.Status, to, current.ValidUntil, now); reason != nil {
		return fmt.Errorf("%w: %w", ErrConflict, reason)
	}
	return ErrConflict
}

// Get fetches a proposal by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	return s.store.GetByID(ctx, id)
}

// Lookup finds a proposal by number, ID or access token.
func (s *Service) Lookup(ctx context.Context, ref string) (*models.Proposal, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return s.store.GetByID(ctx, id)
	}
	if strings.HasPrefix(strings.ToUpper(ref), "SAA-") {
		return s.store.GetByNumber(ctx, strings.ToUpper(ref))
	}
	return s.store.GetByToken(ctx, ref)
}

// List returns proposals for the admin list.
func (s *Service) List(ctx context.Context, f ListFilter) ([]models.Proposal, int, error) {
	return s.store.List(ctx, f)
}

// Counts returns the number of proposals per status.
func (s *Service) Counts(ctx context.Context) (map[workflow.ProposalStatus]int, error) {
	return s.store.CountByStatus(ctx)
}

// ExpiringSoon lists open proposals whose validity ends within d.
func (s *Service) ExpiringSoon(ctx context.Context, d time.Duration) ([]models.Proposal, error) {
	until := workflow.Today(s.now().Add(d))
	list, _, err := s.store.List(ctx, ListFilter{
		Statuses:    workflow.RespondableProposal,
		ValidBefore: &until,
		Limit:       50,
	})
	return list, err
}

// Create validates and stores a new draft proposal. Totals and the
// payment schedule are computed from the line items.
func (s *Service) Create(ctx context.Context, p *models.Proposal) (*models.Proposal, error) {
	p.ClientName = strings.TrimSpace(p.ClientName)
	if p.ClientName == "" {
		return nil, fmt.Errorf("%w: client name is required", ErrValidation)
	}
	if p.ValidUntil.IsZero() {
		return nil, fmt.Errorf("%w: valid until date is required", ErrValidation)
	}
	now := s.now()
	if workflow.Expired(p.ValidUntil, now) {
		return nil, fmt.Errorf("%w: valid until date is in the past", ErrValidation)
	}
	if p.EventFormat == "" {
		p.EventFormat = models.FormatInPerson
	}

	totals := pricing.Calculate(p.Speakers, p.Services, p.Discount)
	p.Subtotal, p.Discount, p.Total = totals.Subtotal, totals.Discount, totals.Total
	p.PaymentSchedule = pricing.Schedule(p.Total, p.PaymentSchedule, p.EventDate)
	normalizeSections(p)

	p.ID = uuid.New()
	p.Status = workflow.ProposalDraft
	p.CreatedAt = now
	p.UpdatedAt = now

	const attempts = 3
	for i := 0; i < attempts; i++ {
		tok, err := token.New()
		if err != nil {
			return nil, err
		}
		number, err := token.ProposalNumber(now)
		if err != nil {
			return nil, err
		}
		p.AccessToken = tok
		p.ProposalNumber = number

		err = s.store.Create(ctx, p)
		if err == nil {
			slog.Info("proposal created", "proposal_id", p.ID, "number", p.ProposalNumber)
			return p, nil
		}
		if !errors.Is(err, ErrDuplicate) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("failed to allocate a unique proposal number after %d attempts", attempts)
}

// Send marks a draft proposal as sent and emails the client its link.
func (s *Service) Send(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	p, err := s.store.SetStatus(ctx, id, workflow.ProposalSourcesFor(workflow.ProposalSent), workflow.ProposalSent, s.now())
	if errors.Is(err, ErrNotApplied) {
		current, getErr := s.store.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: %w: %s -> sent", ErrConflict, workflow.ErrInvalidTransition, current.Status)
	}
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.ProposalSent(ctx, p, s.Link(p)); err != nil {
			slog.Warn("failed to email proposal link", "error", err, "proposal_id", p.ID)
		}
	}
	return p, nil
}

func normalizeSections(p *models.Proposal) {
	if p.Speakers == nil {
		p.Speakers = []models.ProposalSpeaker{}
	}
	if p.Services == nil {
		p.Services = []models.ProposalService{}
	}
	if p.Deliverables == nil {
		p.Deliverables = []models.Deliverable{}
	}
	if p.Testimonials == nil {
		p.Testimonials = []models.Testimonial{}
	}
	if p.PaymentSchedule == nil {
		p.PaymentSchedule = []models.PaymentScheduleEntry{}
	}
}
