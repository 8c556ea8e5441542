package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/firmoffers"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/middleware"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/templates"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/token"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/views"
)

// SpeakerTokenHeader carries the speaker's access token on PATCH requests.
const SpeakerTokenHeader = "X-Speaker-Token"

// SpeakerReviewPage renders a firm offer for its speaker.
func (h *Handlers) SpeakerReviewPage(w http.ResponseWriter, r *http.Request) {
	tok := chi.URLParam(r, "token")

	o, err := h.offers.Resolve(r.Context(), tok)
	if err != nil {
		h.pageError(w, r, err, "firm offer")
		return
	}

	title := "Speaker Review"
	if o.EventOverview.EventName != "" {
		title = o.EventOverview.EventName + " - Speaker Review"
	}
	h.render(w, r, http.StatusOK, "speaker_review", templates.PageData{
		Title: title,
		Data:  views.FirmOffer(o, views.ModeLive),
	})
}

// PatchFirmOffer applies a speaker response or an admin status change.
func (h *Handlers) PatchFirmOffer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid firm offer ID"})
		return
	}

	var patch firmoffers.Patch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	actor := firmoffers.Actor{
		Admin:        middleware.IsAdmin(ctx),
		SpeakerToken: r.Header.Get(SpeakerTokenHeader),
	}
	o, err := h.offers.Apply(ctx, id, patch, actor)
	if err != nil {
		slog.InfoContext(ctx, "firm offer update refused",
			"error", err,
			"firm_offer_id", id,
			"admin", actor.Admin,
			"token", token.Redact(actor.SpeakerToken),
		)
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
