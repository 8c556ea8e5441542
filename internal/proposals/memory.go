package proposals

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/workflow"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/models"
)

// MemoryStore is an in-process Store. It applies the same guards as the
// Postgres store under a single mutex.
type MemoryStore struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*models.Proposal
	order []uuid.UUID
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[uuid.UUID]*models.Proposal)}
}

func clone(p *models.Proposal) *models.Proposal {
	c := *p
	return &c
}

func (m *MemoryStore) find(match func(*models.Proposal) bool) *models.Proposal {
	for _, id := range m.order {
		if p := m.byID[id]; match(p) {
			return p
		}
	}
	return nil
}

// GetByToken fetches a proposal by access token.
func (m *MemoryStore) GetByToken(_ context.Context, token string) (*models.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p := m.find(func(p *models.Proposal) bool { return p.AccessToken == token }); p != nil {
		return clone(p), nil
	}
	return nil, ErrNotFound
}

// GetByID fetches a proposal by ID.
func (m *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*models.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.byID[id]; ok {
		return clone(p), nil
	}
	return nil, ErrNotFound
}

// GetByNumber fetches a proposal by number.
func (m *MemoryStore) GetByNumber(_ context.Context, number string) (*models.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p := m.find(func(p *models.Proposal) bool { return p.ProposalNumber == number }); p != nil {
		return clone(p), nil
	}
	return nil, ErrNotFound
}

// List returns matching proposals, newest first.
func (m *MemoryStore) List(_ context.Context, f ListFilter) ([]models.Proposal, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []models.Proposal
	search := strings.ToLower(f.Search)
	for _, id := range m.order {
		p := m.byID[id]
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, p.Status) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.ClientName+" "+p.ClientCompany+" "+p.EventTitle+" "+p.ProposalNumber), search) {
			continue
		}
		if f.ValidBefore != nil && p.ValidUntil.After(*f.ValidBefore) {
			continue
		}
		matched = append(matched, *p)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	limit := f.Limit
	if limit <= 0 {
		limit = 25
	}
	if f.Offset >= total {
		return nil, total, nil
	}
	end := min(f.Offset+limit, total)
	return matched[f.Offset:end], total, nil
}

// CountByStatus counts proposals per status.
func (m *MemoryStore) CountByStatus(_ context.Context) (map[workflow.ProposalStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[workflow.ProposalStatus]int)
	for _, p := range m.byID {
		counts[p.Status]++
	}
	return counts, nil
}

// Create stores a new proposal.
func (m *MemoryStore) Create(_ context.Context, p *models.Proposal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[p.ID]; ok {
		return ErrDuplicate
	}
	dup := m.find(func(q *models.Proposal) bool {
		return q.AccessToken == p.AccessToken || q.ProposalNumber == p.ProposalNumber
	})
	if dup != nil {
		return ErrDuplicate
	}
	m.byID[p.ID] = clone(p)
	m.order = append(m.order, p.ID)
	return nil
}

// MarkViewed stamps the first view.
func (m *MemoryStore) MarkViewed(_ context.Context, id uuid.UUID, at time.Time, from []workflow.ProposalStatus, to workflow.ProposalStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok || p.ViewedAt != nil {
		return false, nil
	}
	p.ViewedAt = &at
	if slices.Contains(from, p.Status) {
		p.Status = to
	}
	p.UpdatedAt = at
	return true, nil
}

// Respond applies a guarded accept or reject.
func (m *MemoryStore) Respond(_ context.Context, token string, r Response) (*models.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.find(func(p *models.Proposal) bool { return p.AccessToken == token })
	if p == nil || !slices.Contains(r.From, p.Status) || p.ValidUntil.Before(r.Today) {
		return nil, ErrNotApplied
	}

	at := r.At
	p.Status = r.To
	p.UpdatedAt = at
	switch r.To {
	case workflow.ProposalAccepted:
		p.AcceptedAt = &at
		p.AcceptedBy = optional(r.By)
		p.AcceptedTitle = optional(r.Title)
		p.AcceptanceNotes = optional(r.Notes)
	case workflow.ProposalRejected:
		p.RejectedAt = &at
		p.RejectedBy = optional(r.By)
		p.RejectionReason = optional(r.Notes)
	}
	return clone(p), nil
}

// SetStatus applies a guarded admin status change.
func (m *MemoryStore) SetStatus(_ context.Context, id uuid.UUID, from []workflow.ProposalStatus, to workflow.ProposalStatus, at time.Time) (*models.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok || !slices.Contains(from, p.Status) {
		return nil, ErrNotApplied
	}
	p.Status = to
	if to == workflow.ProposalSent {
		p.SentAt = &at
	}
	p.UpdatedAt = at
	return clone(p), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
