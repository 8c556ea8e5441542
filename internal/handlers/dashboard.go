package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/robert-strong/speak-about-ai-website-sub005/internal/firmoffers"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/proposals"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/templates"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/workflow"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/models"
)

const expiringWindow = 7 * 24 * time.Hour

// StatusCount is one tile of a status breakdown.
type StatusCount struct {
	Status string
	Label  string
	Count  int
}

// DashboardData contains data for the dashboard template.
type DashboardData struct {
	ProposalCounts   []StatusCount
	OfferCounts      []StatusCount
	Expiring         []models.Proposal
	RecentProposals  []models.Proposal
	RecentFirmOffers []models.FirmOffer
}

// Dashboard renders the back-office overview.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := DashboardData{}

	// Counts by status
	pc, err := h.proposals.Counts(ctx)
	if err != nil {
		slog.Error("failed to count proposals", "error", err)
	}
	for _, s := range workflow.AllProposalStatuses {
		data.ProposalCounts = append(data.ProposalCounts, StatusCount{Status: string(s), Label: s.Label(), Count: pc[s]})
	}

	oc, err := h.offers.Counts(ctx)
	if err != nil {
		slog.Error("failed to count firm offers", "error", err)
	}
	for _, s := range workflow.AllOfferStatuses {
		data.OfferCounts = append(data.OfferCounts, StatusCount{Status: string(s), Label: s.Label(), Count: oc[s]})
	}

	// Open proposals about to lapse
	data.Expiring, err = h.proposals.ExpiringSoon(ctx, expiringWindow)
	if err != nil {
		slog.Error("failed to fetch expiring proposals", "error", err)
	}

	// Recent client and speaker answers
	data.RecentProposals, _, err = h.proposals.List(ctx, proposals.ListFilter{
		Statuses: []workflow.ProposalStatus{workflow.ProposalAccepted, workflow.ProposalRejected},
		Limit:    5,
	})
	if err != nil {
		slog.Error("failed to fetch recent proposal responses", "error", err)
	}
	data.RecentFirmOffers, _, err = h.offers.List(ctx, firmoffers.ListFilter{
		Statuses: []workflow.OfferStatus{workflow.OfferSpeakerConfirmed, workflow.OfferSpeakerDeclined},
		Limit:    5,
	})
	if err != nil {
		slog.Error("failed to fetch recent speaker responses", "error", err)
	}

	h.render(w, r, http.StatusOK, "dashboard", templates.PageData{
		Title:     "Dashboard",
		ActiveNav: "dashboard",
		Admin:     true,
		Flash:     flashFromQuery(r),
		Data:      data,
	})
}
