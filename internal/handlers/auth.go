package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/robert-strong/speak-about-ai-website-sub005/internal/middleware"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/templates"
)

const dashboardPath = "/admin/dashboard"

// LoginPage renders the admin login page.
func (h *Handlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	// If already logged in, redirect to dashboard
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if _, err := h.auth.ValidateSession(r.Context(), cookie.Value); err == nil {
			http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
			return
		}
	}

	h.render(w, r, http.StatusOK, "login", templates.PageData{
		Title: "Admin Login",
		Admin: true,
		Flash: flashFromQuery(r),
	})
}

// Login handles the login form submission.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/admin?error=Invalid+form+data", http.StatusSeeOther)
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	if email == "" || password == "" {
		http.Redirect(w, r, "/admin?error=Email+and+password+are+required", http.StatusSeeOther)
		return
	}

	user, err := h.auth.Authenticate(r.Context(), email, password)
	if err != nil {
		slog.Info("failed login attempt", "email", email)
		http.Redirect(w, r, "/admin?error=Invalid+email+or+password", http.StatusSeeOther)
		return
	}

	session, err := h.auth.CreateSession(r.Context(), user.ID)
	if err != nil {
		slog.Error("failed to create session", "error", err, "user_id", user.ID)
		http.Redirect(w, r, "/admin?error=Failed+to+create+session", http.StatusSeeOther)
		return
	}

	middleware.SetSessionCookie(w, r, session.ID)
	slog.Info("user logged in", "user_id", user.ID, "email", user.Email)
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}

// Logout ends the admin session.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if err := h.auth.DeleteSession(r.Context(), cookie.Value); err != nil {
			slog.Error("failed to delete session", "error", err)
		}
	}

	middleware.ClearSessionCookie(w, r)
	http.Redirect(w, r, "/admin?success=Signed+out", http.StatusSeeOther)
}
