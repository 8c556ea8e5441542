// Package firmoffers manages the booking documents sent to speakers: token
// resolution, the speaker's one-time confirm/decline, admin status changes
// and creation from a submitted confirmation form.
package firmoffers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/workflow"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/db"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/models"
)

var (
	// ErrNotFound is returned when no firm offer matches.
	ErrNotFound = errors.New("firm offer not found")
	// ErrNotApplied is returned when a guarded update matched no row.
	ErrNotApplied = errors.New("conditional update not applied")
	// ErrDuplicate is returned when the access token collides.
	ErrDuplicate = errors.New("firm offer already exists")
)

// SpeakerResponse is a guarded write of the speaker's answer.
type SpeakerResponse struct {
	Confirmed bool
	Notes     string
	From      []workflow.OfferStatus
	At        time.Time
}

// ListFilter narrows List results.
type ListFilter struct {
	Statuses []workflow.OfferStatus
	Limit    int
	Offset   int
}

// Store persists firm offers and the deals they may hang off.
type Store interface {
	// GetByToken resolves a speaker token, filling Parent from the linked
	// proposal, or else from the linked deal.
	GetByToken(ctx context.Context, token string) (*models.FirmOffer, error)
	GetByID(ctx context.Context, id int) (*models.FirmOffer, error)
	GetByProposalID(ctx context.Context, proposalID uuid.UUID) (*models.FirmOffer, error)
	List(ctx context.Context, f ListFilter) ([]models.FirmOffer, int, error)
	CountByStatus(ctx context.Context) (map[workflow.OfferStatus]int, error)
	Create(ctx context.Context, o *models.FirmOffer) error
	MarkViewed(ctx context.Context, id int, at time.Time, from []workflow.OfferStatus, to workflow.OfferStatus) (bool, error)
	// RecordResponse writes the answer only while speaker_confirmed is
	// still null and the status is one of r.From.
	RecordResponse(ctx context.Context, id int, r SpeakerResponse) (*models.FirmOffer, error)
	SetStatus(ctx context.Context, id int, from []workflow.OfferStatus, to workflow.OfferStatus, at time.Time) (*models.FirmOffer, error)
	CreateDeal(ctx context.Context, d *models.Deal) error
	GetDeal(ctx context.Context, id int) (*models.Deal, error)
}

const offerColumns = `
	fo.id, fo.proposal_id, fo.deal_id, fo.speaker_access_token,
	fo.event_overview, fo.speaker_program, fo.event_schedule, fo.technical_requirements,
	fo.travel_accommodation, fo.additional_info, fo.financial_details, fo.confirmation,
	fo.status, fo.speaker_confirmed, fo.speaker_notes,
	fo.speaker_viewed_at, fo.speaker_responded_at, fo.sent_at,
	fo.created_at, fo.updated_at`

// PGStore is the Postgres-backed Store.
type PGStore struct {
	db db.Querier
}

// NewPGStore creates a store over the given pool or transaction.
func NewPGStore(q db.Querier) *PGStore {
	return &PGStore{db: q}
}

func offerDest(o *models.FirmOffer, status *string) []any {
	return []any{
		&o.ID, &o.ProposalID, &o.DealID, &o.SpeakerAccessToken,
		&o.EventOverview, &o.SpeakerProgram, &o.EventSchedule, &o.TechnicalRequirements,
		&o.TravelAccommodation, &o.AdditionalInfo, &o.FinancialDetails, &o.Confirmation,
		status, &o.SpeakerConfirmed, &o.SpeakerNotes,
		&o.SpeakerViewedAt, &o.SpeakerRespondedAt, &o.SentAt,
		&o.CreatedAt, &o.UpdatedAt,
	}
}

func scanOffer(row pgx.Row) (*models.FirmOffer, error) {
	var o models.FirmOffer
	var status string
	if err := row.Scan(offerDest(&o, &status)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	o.Status = workflow.OfferStatus(status)
	return &o, nil
}

func scanOfferWithParent(row pgx.Row, kind string) (*models.FirmOffer, error) {
	var o models.FirmOffer
	var status string
	parent := models.OfferParent{Kind: kind}
	dest := append(offerDest(&o, &status),
		&parent.Reference, &parent.ClientName, &parent.ClientEmail, &parent.Company,
		&parent.EventTitle, &parent.EventDate, &parent.EventLocation,
	)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	o.Status = workflow.OfferStatus(status)
	o.Parent = &parent
	return &o, nil
}

func statusStrings(statuses []workflow.OfferStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// GetByToken tries the proposal join first, then the deal join.
func (s *PGStore) GetByToken(ctx context.Context, token string) (*models.FirmOffer, error) {
	o, err := scanOfferWithParent(s.db.QueryRow(ctx, `
		SELECT `+offerColumns+`,
		       p.proposal_number, p.client_name, p.client_email, p.client_company,
		       p.event_title, p.event_date, p.event_location
		FROM firm_offers fo
		JOIN proposals p ON p.id = fo.proposal_id
		WHERE fo.speaker_access_token = $1
	`, token), models.ParentProposal)
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to resolve firm offer via proposal: %w", err)
	}

	o, err = scanOfferWithParent(s.db.QueryRow(ctx, `
		SELECT `+offerColumns+`,
		       'Deal #' || d.id::text, d.client_name, d.client_email, d.company,
		       d.event_title, d.event_date, d.event_location
		FROM firm_offers fo
		JOIN deals d ON d.id = fo.deal_id
		WHERE fo.speaker_access_token = $1
	`, token), models.ParentDeal)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to resolve firm offer via deal: %w", err)
	}
	return o, err
}

// GetByID fetches a firm offer without its parent.
func (s *PGStore) GetByID(ctx context.Context, id int) (*models.FirmOffer, error) {
	o, err := scanOffer(s.db.QueryRow(ctx, `SELECT `+offerColumns+` FROM firm_offers fo WHERE fo.id = $1`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to get firm offer: %w", err)
	}
	return o, err
}

// GetByProposalID fetches the most recent firm offer created from a proposal.
func (s *PGStore) GetByProposalID(ctx context.Context, proposalID uuid.UUID) (*models.FirmOffer, error) {
	o, err := scanOffer(s.db.QueryRow(ctx, `
		SELECT `+offerColumns+` FROM firm_offers fo
		WHERE fo.proposal_id = $1
		ORDER BY fo.created_at DESC
		LIMIT 1
	`, proposalID))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to get firm offer by proposal: %w", err)
	}
	return o, err
}

// List returns firm offers newest first with the total match count.
func (s *PGStore) List(ctx context.Context, f ListFilter) ([]models.FirmOffer, int, error) {
	where := ""
	args := []any{}
	if len(f.Statuses) > 0 {
		where = "WHERE fo.status = ANY($1)"
		args = append(args, statusStrings(f.Statuses))
	}

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM firm_offers fo `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count firm offers: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 25
	}
	query := fmt.Sprintf(`SELECT %s FROM firm_offers fo %s ORDER BY fo.created_at DESC LIMIT $%d OFFSET $%d`,
		offerColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, f.Offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list firm offers: %w", err)
	}
	defer rows.Close()

	var out []models.FirmOffer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan firm offer: %w", err)
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate firm offers: %w", err)
	}
	return out, total, nil
}

// CountByStatus returns the number of firm offers per status.
func (s *PGStore) CountByStatus(ctx context.Context) (map[workflow.OfferStatus]int, error) {
	rows, err := s.db.Query(ctx, `SELECT status, COUNT(*) FROM firm_offers GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count firm offers: %w", err)
	}
	defer rows.Close()

	counts := make(map[workflow.OfferStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[workflow.OfferStatus(status)] = n
	}
	return counts, rows.Err()
}

// submittedProposalIndex allows one submitted confirmation per proposal.
const submittedProposalIndex = "firm_offers_submitted_proposal_idx"

// Create inserts a firm offer and sets its ID.
func (s *PGStore) Create(ctx context.Context, o *models.FirmOffer) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO firm_offers (
			proposal_id, deal_id, speaker_access_token,
			event_overview, speaker_program, event_schedule, technical_requirements,
			travel_accommodation, additional_info, financial_details, confirmation,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		RETURNING id
	`, o.ProposalID, o.DealID, o.SpeakerAccessToken,
		o.EventOverview, o.SpeakerProgram, o.EventSchedule, o.TechnicalRequirements,
		o.TravelAccommodation, o.AdditionalInfo, o.FinancialDetails, o.Confirmation,
		string(o.Status), o.CreatedAt,
	).Scan(&o.ID)
	if db.ViolatedConstraint(err) == submittedProposalIndex {
		return fmt.Errorf("%w: confirmation already submitted", ErrConflict)
	}
	if db.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create firm offer: %w", err)
	}
	return nil
}

// MarkViewed stamps speaker_viewed_at once.
func (s *PGStore) MarkViewed(ctx context.Context, id int, at time.Time, from []workflow.OfferStatus, to workflow.OfferStatus) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE firm_offers
		SET speaker_viewed_at = $2,
		    status = CASE WHEN status = ANY($3) THEN $4 ELSE status END,
		    updated_at = $2
		WHERE id = $1 AND speaker_viewed_at IS NULL
	`, id, at, statusStrings(from), string(to))
	if err != nil {
		return false, fmt.Errorf("failed to mark firm offer viewed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// RecordResponse writes the speaker's answer in one guarded statement.
func (s *PGStore) RecordResponse(ctx context.Context, id int, r SpeakerResponse) (*models.FirmOffer, error) {
	o, err := scanOffer(s.db.QueryRow(ctx, `
		UPDATE firm_offers fo
		SET speaker_confirmed = $2, status = $3, speaker_notes = NULLIF($4, ''),
		    speaker_responded_at = $5, updated_at = $5
		WHERE fo.id = $1 AND fo.speaker_confirmed IS NULL AND fo.status = ANY($6)
		RETURNING `+offerColumns,
		id, r.Confirmed, string(workflow.OfferResponseStatus(r.Confirmed)), r.Notes, r.At, statusStrings(r.From)))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotApplied
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record speaker response: %w", err)
	}
	return o, nil
}

// SetStatus applies an admin status change guarded by the current status.
func (s *PGStore) SetStatus(ctx context.Context, id int, from []workflow.OfferStatus, to workflow.OfferStatus, at time.Time) (*models.FirmOffer, error) {
	o, err := scanOffer(s.db.QueryRow(ctx, `
		UPDATE firm_offers fo
		SET status = $2,
		    sent_at = CASE WHEN $2 = 'sent' THEN $3 ELSE fo.sent_at END,
		    updated_at = $3
		WHERE fo.id = $1 AND fo.status = ANY($4)
		RETURNING `+offerColumns,
		id, string(to), at, statusStrings(from)))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotApplied
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update firm offer status: %w", err)
	}
	return o, nil
}

// CreateDeal inserts a deal and sets its ID.
func (s *PGStore) CreateDeal(ctx context.Context, d *models.Deal) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO deals (client_name, client_email, company, event_title, event_date, event_location, speaker_name, deal_value)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, d.ClientName, d.ClientEmail, d.Company, d.EventTitle, d.EventDate, d.EventLocation, d.SpeakerName, d.DealValue,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create deal: %w", err)
	}
	return nil
}

// GetDeal fetches a deal by ID.
func (s *PGStore) GetDeal(ctx context.Context, id int) (*models.Deal, error) {
	var d models.Deal
	err := s.db.QueryRow(ctx, `
		SELECT id, client_name, client_email, company, event_title, event_date, event_location, speaker_name, deal_value, created_at
		FROM deals WHERE id = $1
	`, id).Scan(&d.ID, &d.ClientName, &d.ClientEmail, &d.Company, &d.EventTitle, &d.EventDate, &d.EventLocation, &d.SpeakerName, &d.DealValue, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("deal %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}
	return &d, nil
}
