// Package auth provides password and session management for agency staff.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/db"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	// SessionDuration is how long sessions last (14 days).
	SessionDuration = 14 * 24 * time.Hour
	// SessionTokenLength is the byte length of session tokens.
	SessionTokenLength = 32
	// BcryptCost is the cost factor for bcrypt hashing.
	BcryptCost = 12
	// MinPasswordLength is enforced on create and password change.
	MinPasswordLength = 10
)

var (
	// ErrInvalidCredentials covers unknown email, wrong password and
	// deactivated accounts alike.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrSessionInvalid is returned for unknown or expired sessions.
	ErrSessionInvalid = errors.New("session invalid")
	// ErrUserExists is returned when the email is already registered.
	ErrUserExists = errors.New("user already exists")
	// ErrWeakPassword is returned for passwords under MinPasswordLength.
	ErrWeakPassword = errors.New("password too short")
)

// Roles.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// HashPassword hashes a password using bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword verifies a password against its hash.
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// GenerateSessionToken creates a new secure random session token.
func GenerateSessionToken() (string, error) {
	bytes := make([]byte, SessionTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

// Service provides authentication operations.
type Service struct {
	db db.Querier
}

// NewService creates a new auth service.
func NewService(q db.Querier) *Service {
	return &Service{db: q}
}

const userColumns = `id, email, password_hash, first_name, last_name, role, is_active, last_active_at, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash,
		&u.FirstName, &u.LastName, &u.Role,
		&u.IsActive, &u.LastActiveAt, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate verifies email and password, returns user if valid.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive || !CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if _, err := s.db.Exec(ctx, `UPDATE users SET last_active_at = NOW() WHERE id = $1`, user.ID); err != nil {
		slog.WarnContext(ctx, "failed to update last_active_at", "error", err, "user_id", user.ID)
	}
	return user, nil
}

// CreateSession creates a new session for the user.
func (s *Service) CreateSession(ctx context.Context, userID int) (*models.Session, error) {
	token, err := GenerateSessionToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	expiresAt := now.Add(SessionDuration)
	_, err = s.db.Exec(ctx, `
		INSERT INTO sessions (id, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, token, userID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &models.Session{
		ID:        token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateSession checks if a session token is valid and returns the user.
func (s *Service) ValidateSession(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrSessionInvalid
	}

	var expiresAt time.Time
	row := s.db.QueryRow(ctx, `
		SELECT s.expires_at, `+prefixed("u.", userColumns)+`
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.id = $1
	`, token)

	u := &models.User{}
	err := row.Scan(&expiresAt,
		&u.ID, &u.Email, &u.PasswordHash,
		&u.FirstName, &u.LastName, &u.Role,
		&u.IsActive, &u.LastActiveAt, &u.CreatedAt,
	)
	if err != nil {
		return nil, ErrSessionInvalid
	}

	if time.Now().After(expiresAt) || !u.IsActive {
		if _, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, token); err != nil {
			slog.WarnContext(ctx, "failed to delete expired session", "error", err)
		}
		return nil, ErrSessionInvalid
	}
	return u, nil
}

// DeleteSession removes a session (logout).
func (s *Service) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, token)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// GetUserByEmail fetches a user by email.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE email = $1
	`, normalizeEmail(email)))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByID fetches a user by ID.
func (s *Service) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1
	`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// ListUsers returns every staff account, oldest first.
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// CreateUser registers a staff account.
func (s *Service) CreateUser(ctx context.Context, email, password, firstName, lastName, role string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email %q", email)
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	if role == "" {
		role = RoleAdmin
	}
	if role != RoleAdmin && role != RoleStaff {
		return nil, fmt.Errorf("invalid role %q", role)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u, err := scanUser(s.db.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, first_name, last_name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		email, hash, strings.TrimSpace(firstName), strings.TrimSpace(lastName), role,
	))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// SetPassword replaces a user's password and ends their sessions.
func (s *Service) SetPassword(ctx context.Context, email, password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	var id int
	err = s.db.QueryRow(ctx, `
		UPDATE users SET password_hash = $1 WHERE email = $2 RETURNING id
	`, hash, normalizeEmail(email)).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	// Force re-login everywhere.
	if _, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, id); err != nil {
		slog.WarnContext(ctx, "failed to end sessions", "error", err, "user_id", id)
	}
	return nil
}

// DeactivateUser disables an account and ends its sessions.
func (s *Service) DeactivateUser(ctx context.Context, email string) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET is_active = FALSE WHERE email = $1`, normalizeEmail(email))
	if err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %q not found", email)
	}
	_, err = s.db.Exec(ctx, `
		DELETE FROM sessions WHERE user_id = (SELECT id FROM users WHERE email = $1)
	`, normalizeEmail(email))
	return err
}

// CleanExpiredSessions removes all expired sessions.
func (s *Service) CleanExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to clean expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func prefixed(prefix, cols string) string {
	parts := strings.Split(cols, ", ")
	for i, p := range parts {
		parts[i] = prefix + p
	}
	return strings.Join(parts, ", ")
}
