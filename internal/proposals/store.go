// Package proposals resolves client proposals by access token and records
// the client's accept or reject response.
package proposals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/workflow"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/db"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/models"
)

var (
	// ErrNotFound is returned when no proposal matches.
	ErrNotFound = errors.New("proposal not found")
	// ErrNotApplied is returned by a store when a conditional update's
	// guard did not match any row.
	ErrNotApplied = errors.New("conditional update not applied")
	// ErrDuplicate is returned when a unique column collides.
	ErrDuplicate = errors.New("proposal already exists")
)

// Response is a guarded accept or reject write.
type Response struct {
	To   workflow.ProposalStatus
	From []workflow.ProposalStatus
	// Today is compared against valid_until; the write only applies while
	// valid_until >= Today.
	Today time.Time
	At    time.Time

	By    string
	Title string
	Notes string
}

// ListFilter narrows List results.
type ListFilter struct {
	Statuses    []workflow.ProposalStatus
	Search      string
	ValidBefore *time.Time
	Limit       int
	Offset      int
}

// Store persists proposals.
type Store interface {
	GetByToken(ctx context.Context, token string) (*models.Proposal, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	GetByNumber(ctx context.Context, number string) (*models.Proposal, error)
	List(ctx context.Context, f ListFilter) ([]models.Proposal, int, error)
	CountByStatus(ctx context.Context) (map[workflow.ProposalStatus]int, error)
	Create(ctx context.Context, p *models.Proposal) error
	// MarkViewed stamps viewed_at when unset and moves the status to `to`
	// when it is currently one of `from`. It reports whether a row changed.
	MarkViewed(ctx context.Context, id uuid.UUID, at time.Time, from []workflow.ProposalStatus, to workflow.ProposalStatus) (bool, error)
	// Respond applies r to the proposal with the given token, or returns
	// ErrNotApplied when its guard fails.
	Respond(ctx context.Context, token string, r Response) (*models.Proposal, error)
	// SetStatus moves a proposal from one of `from` to `to`, or returns
	// ErrNotApplied.
	SetStatus(ctx context.Context, id uuid.UUID, from []workflow.ProposalStatus, to workflow.ProposalStatus, at time.Time) (*models.Proposal, error)
}

const proposalColumns = `
	id, proposal_number, access_token,
	client_name, client_email, client_company, client_title,
	event_title, event_date, event_location, event_format, attendee_count,
	speakers, services, deliverables, testimonials, payment_schedule,
	subtotal, discount, total,
	executive_summary, why_us, terms,
	valid_until, status,
	sent_at, viewed_at,
	accepted_at, accepted_by, accepted_title, acceptance_notes,
	rejected_at, rejected_by, rejection_reason,
	created_at, updated_at`

// PGStore is the Postgres-backed Store.
type PGStore struct {
	db db.Querier
}

// NewPGStore creates a store over the given pool or transaction.
func NewPGStore(q db.Querier) *PGStore {
	return &PGStore{db: q}
}

func scanProposal(row pgx.Row) (*models.Proposal, error) {
	var p models.Proposal
	var status string
	err := row.Scan(
		&p.ID, &p.ProposalNumber, &p.AccessToken,
		&p.ClientName, &p.ClientEmail, &p.ClientCompany, &p.ClientTitle,
		&p.EventTitle, &p.EventDate, &p.EventLocation, &p.EventFormat, &p.AttendeeCount,
		&p.Speakers, &p.Services, &p.Deliverables, &p.Testimonials, &p.PaymentSchedule,
		&p.Subtotal, &p.Discount, &p.Total,
		&p.ExecutiveSummary, &p.WhyUs, &p.Terms,
		&p.ValidUntil, &status,
		&p.SentAt, &p.ViewedAt,
		&p.AcceptedAt, &p.AcceptedBy, &p.AcceptedTitle, &p.AcceptanceNotes,
		&p.RejectedAt, &p.RejectedBy, &p.RejectionReason,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Status = workflow.ProposalStatus(status)
	return &p, nil
}

func statusStrings(statuses []workflow.ProposalStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// GetByToken fetches a proposal by its public access token.
func (s *PGStore) GetByToken(ctx context.Context, token string) (*models.Proposal, error) {
	p, err := scanProposal(s.db.QueryRow(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE access_token = $1`, token))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to get proposal by token: %w", err)
	}
	return p, err
}

// GetByID fetches a proposal by ID.
func (s *PGStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	p, err := scanProposal(s.db.QueryRow(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}
	return p, err
}

// GetByNumber fetches a proposal by its human-readable number.
func (s *PGStore) GetByNumber(ctx context.Context, number string) (*models.Proposal, error) {
	p, err := scanProposal(s.db.QueryRow(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE proposal_number = $1`, number))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to get proposal by number: %w", err)
	}
	return p, err
}

// List returns proposals matching f, newest first, plus the total match count.
func (s *PGStore) List(ctx context.Context, f ListFilter) ([]models.Proposal, int, error) {
	var where []string
	var args []any
	argNum := 1

	if len(f.Statuses) > 0 {
		where = append(where, fmt.Sprintf("status = ANY($%d)", argNum))
		args = append(args, statusStrings(f.Statuses))
		argNum++
	}
	if f.Search != "" {
		where = append(where, fmt.Sprintf("(client_name ILIKE $%d OR client_company ILIKE $%d OR event_title ILIKE $%d OR proposal_number ILIKE $%d)", argNum, argNum, argNum, argNum))
		args = append(args, "%"+f.Search+"%")
		argNum++
	}
	if f.ValidBefore != nil {
		where = append(where, fmt.Sprintf("valid_until <= $%d", argNum))
		args = append(args, *f.ValidBefore)
		argNum++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM proposals `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count proposals: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 25
	}
	query := fmt.Sprintf(`SELECT %s FROM proposals %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		proposalColumns, whereClause, argNum, argNum+1)
	args = append(args, limit, f.Offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list proposals: %w", err)
	}
	defer rows.Close()

	var out []models.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan proposal: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate proposals: %w", err)
	}
	return out, total, nil
}

// CountByStatus returns the number of proposals in each status.
func (s *PGStore) CountByStatus(ctx context.Context) (map[workflow.ProposalStatus]int, error) {
	rows, err := s.db.Query(ctx, `SELECT status, COUNT(*) FROM proposals GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count proposals: %w", err)
	}
	defer rows.Close()

	counts := make(map[workflow.ProposalStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[workflow.ProposalStatus(status)] = n
	}
	return counts, rows.Err()
}

// Create inserts a new proposal. ID, token and number must be set.
func (s *PGStore) Create(ctx context.Context, p *models.Proposal) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO proposals (
			id, proposal_number, access_token,
			client_name, client_email, client_company, client_title,
			event_title, event_date, event_location, event_format, attendee_count,
			speakers, services, deliverables, testimonials, payment_schedule,
			subtotal, discount, total,
			executive_summary, why_us, terms,
			valid_until, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23, $24, $25, $26, $26
		)
	`, p.ID, p.ProposalNumber, p.AccessToken,
		p.ClientName, p.ClientEmail, p.ClientCompany, p.ClientTitle,
		p.EventTitle, p.EventDate, p.EventLocation, p.EventFormat, p.AttendeeCount,
		p.Speakers, p.Services, p.Deliverables, p.Testimonials, p.PaymentSchedule,
		p.Subtotal, p.Discount, p.Total,
		p.ExecutiveSummary, p.WhyUs, p.Terms,
		p.ValidUntil, string(p.Status), p.CreatedAt,
	)
	if db.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create proposal: %w", err)
	}
	return nil
}

// MarkViewed stamps the first view.
func (s *PGStore) MarkViewed(ctx context.Context, id uuid.UUID, at time.Time, from []workflow.ProposalStatus, to workflow.ProposalStatus) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE proposals
		SET viewed_at = $2,
		    status = CASE WHEN status = ANY($3) THEN $4 ELSE status END,
		    updated_at = $2
		WHERE id = $1 AND viewed_at IS NULL
	`, id, at, statusStrings(from), string(to))
	if err != nil {
		return false, fmt.Errorf("failed to mark proposal viewed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Respond records an accept or reject in one guarded statement so that of
// two concurrent responses only the first is applied.
func (s *PGStore) Respond(ctx context.Context, token string, r Response) (*models.Proposal, error) {
	var query string
	var args []any
	switch r.To {
	case workflow.ProposalAccepted:
		query = `
			UPDATE proposals
			SET status = $2, accepted_at = $3, accepted_by = $4, accepted_title = NULLIF($5, ''),
			    acceptance_notes = NULLIF($6, ''), updated_at = $3
			WHERE access_token = $1 AND status = ANY($7) AND valid_until >= $8
			RETURNING ` + proposalColumns
		args = []any{token, string(r.To), r.At, r.By, r.Title, r.Notes, statusStrings(r.From), r.Today}
	case workflow.ProposalRejected:
		query = `
			UPDATE proposals
			SET status = $2, rejected_at = $3, rejected_by = NULLIF($4, ''),
			    rejection_reason = NULLIF($5, ''), updated_at = $3
			WHERE access_token = $1 AND status = ANY($6) AND valid_until >= $7
			RETURNING ` + proposalColumns
		args = []any{token, string(r.To), r.At, r.By, r.Notes, statusStrings(r.From), r.Today}
	default:
		return nil, fmt.Errorf("%w: %s", workflow.ErrInvalidTransition, r.To)
	}

	p, err := scanProposal(s.db.QueryRow(ctx, query, args...))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotApplied
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record proposal response: %w", err)
	}
	return p, nil
}

// SetStatus applies an admin status change guarded by the current status.
func (s *PGStore) SetStatus(ctx context.Context, id uuid.UUID, from []workflow.ProposalStatus, to workflow.ProposalStatus, at time.Time) (*models.Proposal, error) {
	p, err := scanProposal(s.db.QueryRow(ctx, `
		UPDATE proposals
		SET status = $2,
		    sent_at = CASE WHEN $2 = 'sent' THEN $3 ELSE sent_at END,
		    updated_at = $3
		WHERE id = $1 AND status = ANY($4)
		RETURNING `+proposalColumns,
		id, string(to), at, statusStrings(from)))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotApplied
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update proposal status: %w", err)
	}
	return p, nil
}
