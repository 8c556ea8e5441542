// Package speakers manages the public speaker directory.
package speakers

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/db"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/models"
)

var (
	// ErrNotFound is returned when no speaker matches.
	ErrNotFound = errors.New("speaker not found")
	// ErrDuplicate is returned when the slug is taken.
	ErrDuplicate = errors.New("speaker slug already exists")
	// ErrValidation is returned for incomplete speaker input.
	ErrValidation = errors.New("invalid speaker")
)

// Store persists speakers.
type Store interface {
	GetBySlug(ctx context.Context, slug string) (*models.Speaker, error)
	GetByID(ctx context.Context, id int) (*models.Speaker, error)
	List(ctx context.Context, activeOnly bool) ([]models.Speaker, error)
	Create(ctx context.Context, sp *models.Speaker) error
	SetImage(ctx context.Context, id int, imageURL string) (*models.Speaker, error)
}

const speakerColumns = `id, slug, name, title, bio, image_url, topics, industries, fee_range, featured, active, created_at, updated_at`

// PGStore is the Postgres-backed Store.
type PGStore struct {
	db db.Querier
}

// NewPGStore creates a store over the given pool.
func NewPGStore(q db.Querier) *PGStore {
	return &PGStore{db: q}
}

func scanSpeaker(row pgx.Row) (*models.Speaker, error) {
	var sp models.Speaker
	err := row.Scan(
		&sp.ID, &sp.Slug, &sp.Name, &sp.Title, &sp.Bio, &sp.ImageURL,
		&sp.Topics, &sp.Industries, &sp.FeeRange, &sp.Featured, &sp.Active,
		&sp.CreatedAt, &sp.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan speaker: %w", err)
	}
	return &sp, nil
}

// GetBySlug fetches a speaker by slug.
func (s *PGStore) GetBySlug(ctx context.Context, slug string) (*models.Speaker, error) {
	return scanSpeaker(s.db.QueryRow(ctx, `SELECT `+speakerColumns+` FROM speakers WHERE slug = $1`, slug))
}

// GetByID fetches a speaker by ID.
func (s *PGStore) GetByID(ctx context.Context, id int) (*models.Speaker, error) {
	return scanSpeaker(s.db.QueryRow(ctx, `SELECT `+speakerColumns+` FROM speakers WHERE id = $1`, id))
}

// List returns speakers, featured first, then by name.
func (s *PGStore) List(ctx context.Context, activeOnly bool) ([]models.Speaker, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+speakerColumns+` FROM speakers
		WHERE active OR NOT $1
		ORDER BY featured DESC, name
	`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list speakers: %w", err)
	}
	defer rows.Close()

	var out []models.Speaker
	for rows.Next() {
		sp, err := scanSpeaker(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sp)
	}
	return out, rows.Err()
}

// Create inserts a speaker and fills in generated columns.
func (s *PGStore) Create(ctx context.Context, sp *models.Speaker) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO speakers (slug, name, title, bio, image_url, topics, industries, fee_range, featured, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`, sp.Slug, sp.Name, sp.Title, sp.Bio, sp.ImageURL, sp.Topics, sp.Industries, sp.FeeRange, sp.Featured, sp.Active,
	).Scan(&sp.ID, &sp.CreatedAt, &sp.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create speaker: %w", err)
	}
	return nil
}

// SetImage replaces a speaker's headshot URL.
func (s *PGStore) SetImage(ctx context.Context, id int, imageURL string) (*models.Speaker, error) {
	return scanSpeaker(s.db.QueryRow(ctx, `
		UPDATE speakers SET image_url = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+speakerColumns, id, imageURL))
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu       sync.Mutex
	speakers map[int]*models.Speaker
	nextID   int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{speakers: make(map[int]*models.Speaker)}
}

// GetBySlug fetches a speaker by slug.
func (m *MemoryStore) GetBySlug(_ context.Context, slug string) (*models.Speaker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sp := range m.speakers {
		if sp.Slug == slug {
			c := *sp
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

// GetByID fetches a speaker by ID.
func (m *MemoryStore) GetByID(_ context.Context, id int) (*models.Speaker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sp, ok := m.speakers[id]; ok {
		c := *sp
		return &c, nil
	}
	return nil, ErrNotFound
}

// List returns speakers, featured first, then by name.
func (m *MemoryStore) List(_ context.Context, activeOnly bool) ([]models.Speaker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Speaker
	for _, sp := range m.speakers {
		if activeOnly && !sp.Active {
			continue
		}
		out = append(out, *sp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Featured != out[j].Featured {
			return out[i].Featured
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Create stores a speaker.
func (m *MemoryStore) Create(_ context.Context, sp *models.Speaker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.speakers {
		if existing.Slug == sp.Slug {
			return ErrDuplicate
		}
	}
	m.nextID++
	sp.ID = m.nextID
	sp.CreatedAt = time.Now()
	sp.UpdatedAt = sp.CreatedAt
	c := *sp
	m.speakers[sp.ID] = &c
	return nil
}

// SetImage replaces a speaker's headshot URL.
func (m *MemoryStore) SetImage(_ context.Context, id int, imageURL string) (*models.Speaker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sp, ok := m.speakers[id]
	if !ok {
		return nil, ErrNotFound
	}
	sp.ImageURL = imageURL
	sp.UpdatedAt = time.Now()
	c := *sp
	return &c, nil
}

// Input is the admin form for a new speaker.
type Input struct {
	Name       string
	Slug       string
	Title      string
	Bio        string
	Topics     string
	Industries string
	FeeRange   string
	Featured   bool
}

// Service wraps a Store with validation.
type Service struct {
	store Store
}

// NewService creates a speaker service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Public returns an active speaker by slug.
func (s *Service) Public(ctx context.Context, slug string) (*models.Speaker, error) {
	sp, err := s.store.GetBySlug(ctx, strings.ToLower(slug))
	if err != nil {
		return nil, err
	}
	if !sp.Active {
		return nil, ErrNotFound
	}
	return sp, nil
}

// Get returns a speaker by ID.
func (s *Service) Get(ctx context.Context, id int) (*models.Speaker, error) {
	return s.store.GetByID(ctx, id)
}

// List returns speakers for the directory or admin table.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]models.Speaker, error) {
	return s.store.List(ctx, activeOnly)
}

// Create validates in and stores a new active speaker.
func (s *Service) Create(ctx context.Context, in Input) (*models.Speaker, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	slug := Slugify(in.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" {
		return nil, fmt.Errorf("%w: name must contain letters or digits", ErrValidation)
	}

	sp := &models.Speaker{
		Slug:       slug,
		Name:       name,
		Title:      strings.TrimSpace(in.Title),
		Bio:        strings.TrimSpace(in.Bio),
		Topics:     SplitList(in.Topics),
		Industries: SplitList(in.Industries),
		FeeRange:   strings.TrimSpace(in.FeeRange),
		Featured:   in.Featured,
		Active:     true,
	}
	if err := s.store.Create(ctx, sp); err != nil {
		return nil, err
	}
	return sp, nil
}

// SetImage records a new headshot URL.
func (s *Service) SetImage(ctx context.Context, id int, imageURL string) (*models.Speaker, error) {
	return s.store.SetImage(ctx, id, imageURL)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and joins its alphanumeric runs with hyphens.
func Slugify(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// SplitList splits a comma-separated field, dropping blanks and duplicates.
func SplitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" && !slices.Contains(out, part) {
			out = append(out, part)
		}
	}
	return out
}
