package firmoffers

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/workflow"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/models"
)

// ProposalGetter looks up parent proposals for token resolution.
type ProposalGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
}

// MemoryStore is an in-process Store with the same guards as PGStore.
type MemoryStore struct {
	mu        sync.Mutex
	proposals ProposalGetter
	offers    map[int]*models.FirmOffer
	deals     map[int]*models.Deal
	nextID    int
	nextDeal  int
}

// NewMemoryStore creates an empty store. proposals resolves parent
// proposals and may be nil, in which case only deal-linked offers resolve.
func NewMemoryStore(proposals ProposalGetter) *MemoryStore {
	return &MemoryStore{
		proposals: proposals,
		offers:    make(map[int]*models.FirmOffer),
		deals:     make(map[int]*models.Deal),
	}
}

func cloneOffer(o *models.FirmOffer) *models.FirmOffer {
	c := *o
	return &c
}

// GetByToken resolves via the parent proposal first, then the parent deal.
func (m *MemoryStore) GetByToken(ctx context.Context, token string) (*models.FirmOffer, error) {
	m.mu.Lock()
	var found *models.FirmOffer
	for _, o := range m.offers {
		if o.SpeakerAccessToken == token {
			found = cloneOffer(o)
			break
		}
	}
	m.mu.Unlock()
	if found == nil {
		return nil, ErrNotFound
	}

	if found.ProposalID != nil && m.proposals != nil {
		if p, err := m.proposals.GetByID(ctx, *found.ProposalID); err == nil {
			found.Parent = &models.OfferParent{
				Kind:          models.ParentProposal,
				Reference:     p.ProposalNumber,
				ClientName:    p.ClientName,
				ClientEmail:   p.ClientEmail,
				Company:       p.ClientCompany,
				EventTitle:    p.EventTitle,
				EventDate:     p.EventDate,
				EventLocation: p.EventLocation,
			}
			return found, nil
		}
	}
	if found.DealID != nil {
		m.mu.Lock()
		d, ok := m.deals[*found.DealID]
		m.mu.Unlock()
		if ok {
			found.Parent = &models.OfferParent{
				Kind:          models.ParentDeal,
				Reference:     fmt.Sprintf("Deal #%d", d.ID),
				ClientName:    d.ClientName,
				ClientEmail:   d.ClientEmail,
				Company:       d.Company,
				EventTitle:    d.EventTitle,
				EventDate:     d.EventDate,
				EventLocation: d.EventLocation,
			}
			return found, nil
		}
	}
	return nil, ErrNotFound
}

// GetByID fetches an offer.
func (m *MemoryStore) GetByID(_ context.Context, id int) (*models.FirmOffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.offers[id]; ok {
		return cloneOffer(o), nil
	}
	return nil, ErrNotFound
}

// GetByProposalID fetches the newest offer for a proposal.
func (m *MemoryStore) GetByProposalID(_ context.Context, proposalID uuid.UUID) (*models.FirmOffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.FirmOffer
	for _, o := range m.offers {
		if o.ProposalID != nil && *o.ProposalID == proposalID && (best == nil || o.ID > best.ID) {
			best = o
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return cloneOffer(best), nil
}

// List returns offers newest first.
func (m *MemoryStore) List(_ context.Context, f ListFilter) ([]models.FirmOffer, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.FirmOffer
	for _, o := range m.offers {
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, o.Status) {
			continue
		}
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })

	total := len(out)
	limit := f.Limit
	if limit <= 0 {
		limit = 25
	}
	if f.Offset >= total {
		return nil, total, nil
	}
	return out[f.Offset:min(f.Offset+limit, total)], total, nil
}

// CountByStatus counts offers per status.
func (m *MemoryStore) CountByStatus(_ context.Context) (map[workflow.OfferStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[workflow.OfferStatus]int)
	for _, o := range m.offers {
		counts[o.Status]++
	}
	return counts, nil
}

// Create stores an offer and assigns its ID.
func (m *MemoryStore) Create(_ context.Context, o *models.FirmOffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ProposalID != nil && o.DealID != nil {
		return fmt.Errorf("%w: offer cannot belong to both a proposal and a deal", ErrValidation)
	}
	for _, existing := range m.offers {
		if submittedFor(existing, o.ProposalID) && submittedFor(o, o.ProposalID) {
			return fmt.Errorf("%w: confirmation already submitted", ErrConflict)
		}
	}
	for _, existing := range m.offers {
		if existing.SpeakerAccessToken == o.SpeakerAccessToken {
			return ErrDuplicate
		}
	}
	m.nextID++
	o.ID = m.nextID
	m.offers[o.ID] = cloneOffer(o)
	return nil
}

// MarkViewed stamps speaker_viewed_at once.
func (m *MemoryStore) MarkViewed(_ context.Context, id int, at time.Time, from []workflow.OfferStatus, to workflow.OfferStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offers[id]
	if !ok || o.SpeakerViewedAt != nil {
		return false, nil
	}
	o.SpeakerViewedAt = &at
	if slices.Contains(from, o.Status) {
		o.Status = to
	}
	o.UpdatedAt = at
	return true, nil
}

// RecordResponse writes the speaker's answer once.
func (m *MemoryStore) RecordResponse(_ context.Context, id int, r SpeakerResponse) (*models.FirmOffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offers[id]
	if !ok || o.SpeakerConfirmed != nil || !slices.Contains(r.From, o.Status) {
		return nil, ErrNotApplied
	}
	confirmed := r.Confirmed
	at := r.At
	o.SpeakerConfirmed = &confirmed
	o.Status = workflow.OfferResponseStatus(confirmed)
	if r.Notes != "" {
		notes := r.Notes
		o.SpeakerNotes = &notes
	}
	o.SpeakerRespondedAt = &at
	o.UpdatedAt = at
	return cloneOffer(o), nil
}

// SetStatus applies a guarded admin status change.
func (m *MemoryStore) SetStatus(_ context.Context, id int, from []workflow.OfferStatus, to workflow.OfferStatus, at time.Time) (*models.FirmOffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offers[id]
	if !ok || !slices.Contains(from, o.Status) {
		return nil, ErrNotApplied
	}
	o.Status = to
	if to == workflow.OfferSent {
		o.SentAt = &at
	}
	o.UpdatedAt = at
	return cloneOffer(o), nil
}

// CreateDeal stores a deal and assigns its ID.
func (m *MemoryStore) CreateDeal(_ context.Context, d *models.Deal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextDeal++
	d.ID = m.nextDeal
	c := *d
	m.deals[d.ID] = &c
	return nil
}

// GetDeal fetches a deal.
func (m *MemoryStore) GetDeal(_ context.Context, id int) (*models.Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.deals[id]; ok {
		c := *d
		return &c, nil
	}
	return nil, fmt.Errorf("deal %d: %w", id, ErrNotFound)
}

func submittedFor(o *models.FirmOffer, proposalID *uuid.UUID) bool {
	return proposalID != nil && o.ProposalID != nil && *o.ProposalID == *proposalID &&
		o.Confirmation.Status == models.ConfirmationSubmitted
}
