package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/templates"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/textutil"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/models"
)

// SpeakerPageData is the data for the speaker template.
type SpeakerPageData struct {
	Speaker *models.Speaker
	Bio     []string
}

// SpeakerPage renders a public speaker profile.
func (h *Handlers) SpeakerPage(w http.ResponseWriter, r *http.Request) {
	sp, err := h.speakers.Public(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.pageError(w, r, err, "speaker")
		return
	}
	h.render(w, r, http.StatusOK, "speaker", templates.PageData{
		Title: sp.Name,
		Data: SpeakerPageData{
			Speaker: sp,
			Bio:     textutil.Paragraphs(sp.Bio),
		},
	})
}
