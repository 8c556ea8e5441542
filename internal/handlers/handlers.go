// Package handlers provides HTTP handlers for the public review pages, the
// response APIs and the admin back office.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/firmoffers"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/media"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/middleware"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/proposals"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/speakers"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/templates"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/wizard"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/models"
)

// maxJSONBody caps request bodies on the public APIs.
const maxJSONBody = 64 * 1024

// Authenticator is the admin login boundary.
type Authenticator interface {
	middleware.SessionValidator
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	CreateSession(ctx context.Context, userID int) (*models.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

// Deps are the services the handlers need. Media may be nil when object
// storage is not configured.
type Deps struct {
	Proposals *proposals.Service
	Offers    *firmoffers.Service
	Speakers  *speakers.Service
	Media     *media.Store
	Auth      Authenticator
	Templates *templates.Engine
	// Limiter guards the public /api routes; nil disables limiting.
	Limiter *middleware.RateLimiter
}

// Handlers provides HTTP handlers for the site.
type Handlers struct {
	proposals *proposals.Service
	offers    *firmoffers.Service
	speakers  *speakers.Service
	media     *media.Store
	auth      Authenticator
	templates *templates.Engine
	limiter   *middleware.RateLimiter
	now       func() time.Time
}

// New creates a new handlers instance.
func New(d Deps) *Handlers {
	return &Handlers{
		proposals: d.Proposals,
		offers:    d.Offers,
		speakers:  d.Speakers,
		media:     d.Media,
		auth:      d.Auth,
		templates: d.Templates,
		limiter:   d.Limiter,
		now:       time.Now,
	}
}

// Routes registers every page and API route on r.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/speakers/{slug}", h.SpeakerPage)

	// The preview route must be registered before the token route.
	r.Get("/proposal/preview", h.ProposalPreview)
	r.Get("/proposal/{token}", h.ProposalPage)
	r.Get("/proposal/{token}/confirm", h.ConfirmPage)
	r.Post("/proposal/{token}/confirm", h.ConfirmStep)
	r.Get("/speaker-review/{token}", h.SpeakerReviewPage)

	r.Route("/api", func(r chi.Router) {
		if h.limiter != nil {
			r.Use(h.limiter.Middleware)
		}
		r.Post("/proposal/{token}/accept", h.AcceptProposal)
		r.Post("/proposal/{token}/reject", h.RejectProposal)
		r.With(middleware.OptionalUser(h.auth)).Patch("/firm-offers/{id}", h.PatchFirmOffer)
	})

	r.Get("/admin", h.LoginPage)
	r.Post("/admin/login", h.Login)
	r.Get("/admin/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(h.auth))

		r.Get("/admin/dashboard", h.Dashboard)

		r.Get("/admin/proposals", h.AdminProposals)
		r.Get("/admin/proposals/new", h.AdminNewProposal)
		r.Post("/admin/proposals", h.AdminCreateProposal)
		r.Get("/admin/proposals/{id}", h.AdminProposalDetail)
		r.Post("/admin/proposals/{id}/send", h.AdminSendProposal)

		r.Get("/admin/firm-offers", h.AdminFirmOffers)
		r.Get("/admin/firm-offers/{id}", h.AdminFirmOfferDetail)
		r.Post("/admin/firm-offers/{id}/send", h.AdminSendFirmOffer)
		r.Post("/admin/firm-offers/{id}/complete", h.AdminCompleteFirmOffer)

		r.Get("/admin/speakers", h.AdminSpeakers)

		// Writes that change the public directory need an admin.
		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminMiddleware)
			r.Post("/admin/speakers", h.AdminCreateSpeaker)
			r.Post("/admin/speakers/{id}/image", h.AdminUploadSpeakerImage)
			r.Post("/admin/speakers/{id}/image-import", h.AdminImportSpeakerImage)
			r.Post("/admin/uploads", h.AdminUpload)
		})
	})
}

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, proposals.ErrNotFound),
		errors.Is(err, firmoffers.ErrNotFound),
		errors.Is(err, speakers.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, proposals.ErrValidation),
		errors.Is(err, firmoffers.ErrValidation),
		errors.Is(err, speakers.ErrValidation),
		errors.Is(err, wizard.ErrStepInvalid),
		errors.Is(err, media.ErrUnsupportedType):
		return http.StatusBadRequest
	case errors.Is(err, media.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, firmoffers.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, proposals.ErrConflict),
		errors.Is(err, firmoffers.ErrConflict),
		errors.Is(err, speakers.ErrDuplicate):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError writes {"error": ...}. Internal errors are logged and hidden.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "error", err, "path", r.URL.Path)
		msg = "Internal Server Error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return nil
}

// render writes a page, falling back to a plain 500 on template errors.
func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, name string, data templates.PageData) {
	if data.User == nil {
		data.User = middleware.GetUser(r.Context())
	}
	var buf bytes.Buffer
	if err := h.templates.Render(&buf, name, data); err != nil {
		slog.ErrorContext(r.Context(), "failed to render template", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// notFound renders the 404 page.
func (h *Handlers) notFound(w http.ResponseWriter, r *http.Request, what string) {
	h.render(w, r, http.StatusNotFound, "not_found", templates.PageData{
		Title: "Not Found",
		Data:  what,
	})
}

// pageError renders a service error as a page.
func (h *Handlers) pageError(w http.ResponseWriter, r *http.Request, err error, what string) {
	status := statusFor(err)
	if status == http.StatusNotFound {
		h.notFound(w, r, what)
		return
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "page failed", "error", err, "path", r.URL.Path)
		msg = "Something went wrong. Please try again."
	}
	h.render(w, r, status, "error", templates.PageData{
		Title: "Error",
		Data:  msg,
	})
}

// NotFound is the router's fallback handler.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.notFound(w, r, "page")
}

// flashFromQuery reads ?success= and ?error= into a flash message.
func flashFromQuery(r *http.Request) *templates.Flash {
	if msg := r.URL.Query().Get("success"); msg != "" {
		return &templates.Flash{Type: "success", Message: msg}
	}
	if msg := r.URL.Query().Get("error"); msg != "" {
		return &templates.Flash{Type: "error", Message: msg}
	}
	return nil
}
