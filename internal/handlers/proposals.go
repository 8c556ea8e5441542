package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/firmoffers"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/proposals"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/templates"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/token"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/views"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/workflow"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/models"
)

// PreviewErrorMessage is shown when a preview payload cannot be parsed.
const PreviewErrorMessage = "Error loading proposal preview"

// ProposalPageData is the data for the proposal template.
type ProposalPageData struct {
	View *views.ProposalView
	// ConfirmURL links accepted proposals to the event details wizard
	// until it has been submitted.
	ConfirmURL string
	Confirmed  bool
}

// ProposalPage renders a proposal for its client.
func (h *Handlers) ProposalPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tok := chi.URLParam(r, "token")

	p, err := h.proposals.Resolve(ctx, tok)
	if err != nil {
		h.pageError(w, r, err, "proposal")
		return
	}

	data := ProposalPageData{View: views.Proposal(p, h.now(), views.ModeLive)}
	if p.Status == workflow.ProposalAccepted {
		o, err := h.offers.ForProposal(ctx, p)
		switch {
		case err == nil && o.Confirmation.Status == models.ConfirmationSubmitted:
			data.Confirmed = true
		case err == nil || errors.Is(err, firmoffers.ErrNotFound):
			data.ConfirmURL = "/proposal/" + tok + "/confirm"
		default:
			slog.WarnContext(ctx, "failed to look up confirmation", "error", err, "proposal_id", p.ID)
		}
	}

	h.render(w, r, http.StatusOK, "proposal", templates.PageData{
		Title: proposalTitle(p),
		Data:  data,
	})
}

// AcceptProposal records the client's acceptance.
func (h *Handlers) AcceptProposal(w http.ResponseWriter, r *http.Request) {
	tok := chi.URLParam(r, "token")

	var in proposals.AcceptInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	p, err := h.proposals.Accept(r.Context(), tok, in)
	if err != nil {
		slog.InfoContext(r.Context(), "proposal accept refused", "error", err, "token", token.Redact(tok))
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      p.Status,
		"accepted_at": p.AcceptedAt,
	})
}

// RejectProposal records the client's decline.
func (h *Handlers) RejectProposal(w http.ResponseWriter, r *http.Request) {
	tok := chi.URLParam(r, "token")

	var in proposals.RejectInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	p, err := h.proposals.Reject(r.Context(), tok, in)
	if err != nil {
		slog.InfoContext(r.Context(), "proposal reject refused", "error", err, "token", token.Redact(tok))
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      p.Status,
		"rejected_at": p.RejectedAt,
	})
}

// previewPayload is the JSON the admin preview tool sends. Dates may be
// plain YYYY-MM-DD.
type previewPayload struct {
	models.Proposal
	EventDate  string `json:"event_date"`
	ValidUntil string `json:"valid_until"`
}

// ProposalPreview renders an unsaved proposal from ?data=<json>.
func (h *Handlers) ProposalPreview(w http.ResponseWriter, r *http.Request) {
	raw := rawQueryParam(r.URL.RawQuery, "data")

	p, err := parsePreview(raw)
	if err != nil {
		slog.InfoContext(r.Context(), "invalid proposal preview payload", "error", err)
		h.render(w, r, http.StatusBadRequest, "preview_error", templates.PageData{
			Title: "Preview",
			Data:  PreviewErrorMessage,
		})
		return
	}

	h.render(w, r, http.StatusOK, "proposal", templates.PageData{
		Title: "Preview: " + proposalTitle(p),
		Data:  ProposalPageData{View: views.Proposal(p, h.now(), views.ModePreview)},
	})
}

// rawQueryParam returns the first value of key from a raw query string,
// percent-decoded when possible and verbatim when the encoding is broken.
// A literal "+" is kept, not read as a space.
func rawQueryParam(rawQuery, key string) string {
	for _, part := range strings.Split(rawQuery, "&") {
		k, v, _ := strings.Cut(part, "=")
		if k != key {
			continue
		}
		if decoded, err := url.PathUnescape(v); err == nil {
			return decoded
		}
		return v
	}
	return ""
}

func parsePreview(raw string) (*models.Proposal, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("empty preview payload")
	}
	var payload previewPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, err
	}

	p := payload.Proposal
	if d, ok := parseDate(payload.EventDate); ok {
		p.EventDate = &d
	}
	if d, ok := parseDate(payload.ValidUntil); ok {
		p.ValidUntil = d
	}
	if p.Status == "" {
		p.Status = workflow.ProposalDraft
	}
	return &p, nil
}

// parseDate accepts YYYY-MM-DD or RFC 3339.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func proposalTitle(p *models.Proposal) string {
	if p.EventTitle != "" {
		return p.EventTitle + " Proposal"
	}
	if p.ClientCompany != "" {
		return "Proposal for " + p.ClientCompany
	}
	return "Speaker Proposal"
}
