package models

import "time"

// Speaker is a speaker listed in the public directory.
type Speaker struct {
	ID         int       `json:"id"`
	Slug       string    `json:"slug"`
	Name       string    `json:"name"`
	Title      string    `json:"title,omitempty"`
	Bio        string    `json:"bio,omitempty"`
	ImageURL   string    `json:"image_url,omitempty"`
	Topics     []string  `json:"topics"`
	Industries []string  `json:"industries"`
	FeeRange   string    `json:"fee_range,omitempty"`
	Featured   bool      `json:"featured"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// User is an agency staff member with access to the back office.
type User struct {
	ID           int        `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"first_name,omitempty"`
	LastName     string     `json:"last_name,omitempty"`
	Role         string     `json:"role"` // admin, staff
	IsActive     bool       `json:"is_active"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// DisplayName returns the user's full name, or their email when unset.
func (u *User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Email
	}
	return name
}

// Session is a logged-in admin session.
type Session struct {
	ID        string    `json:"id"`
	UserID    int       `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
