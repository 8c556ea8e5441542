package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/firmoffers"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/media"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/middleware"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/proposals"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/speakers"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/templates"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/views"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/workflow"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/models"
)

const defaultPageSize = 25

// Pagination describes one page of an admin list.
type Pagination struct {
	Page       int
	TotalPages int
	Total      int
	Query      string
}

func paginate(r *http.Request, total int, keep url.Values) Pagination {
	page := pageParam(r)
	totalPages := (total + defaultPageSize - 1) / defaultPageSize
	if totalPages < 1 {
		totalPages = 1
	}
	return Pagination{Page: page, TotalPages: totalPages, Total: total, Query: keep.Encode()}
}

func pageParam(r *http.Request) int {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	return page
}

func redirectWith(w http.ResponseWriter, r *http.Request, path, kind, msg string) {
	http.Redirect(w, r, path+"?"+url.Values{kind: {msg}}.Encode(), http.StatusSeeOther)
}

// ProposalListData contains data for the admin_proposals template.
type ProposalListData struct {
	Proposals []models.Proposal
	Counts    []StatusCount
	Status    string
	Search    string
	Pagination
}

// AdminProposals lists proposals with a status filter.
func (h *Handlers) AdminProposals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := proposals.ListFilter{
		Search: strings.TrimSpace(q.Get("q")),
		Limit:  defaultPageSize,
		Offset: (pageParam(r) - 1) * defaultPageSize,
	}
	status := q.Get("status")
	if status != "" {
		st, err := workflow.ParseProposalStatus(status)
		if err != nil {
			redirectWith(w, r, "/admin/proposals", "error", "Unknown status filter")
			return
		}
		filter.Statuses = []workflow.ProposalStatus{st}
	}

	list, total, err := h.proposals.List(ctx, filter)
	if err != nil {
		slog.Error("failed to list proposals", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	counts, err := h.proposals.Counts(ctx)
	if err != nil {
		slog.Error("failed to count proposals", "error", err)
	}
	data := ProposalListData{
		Proposals:  list,
		Status:     status,
		Search:     filter.Search,
		Pagination: paginate(r, total, url.Values{"status": {status}, "q": {filter.Search}}),
	}
	for _, s := range workflow.AllProposalStatuses {
		data.Counts = append(data.Counts, StatusCount{Status: string(s), Label: s.Label(), Count: counts[s]})
	}

	h.render(w, r, http.StatusOK, "admin_proposals", templates.PageData{
		Title:     "Proposals",
		ActiveNav: "proposals",
		Admin:     true,
		Flash:     flashFromQuery(r),
		Data:      data,
	})
}

// ProposalFormData contains data for the admin_proposal_new template.
type ProposalFormData struct {
	Speakers []models.Speaker
	Formats  []string
}

// AdminNewProposal renders the proposal builder.
func (h *Handlers) AdminNewProposal(w http.ResponseWriter, r *http.Request) {
	list, err := h.speakers.List(r.Context(), true)
	if err != nil {
		slog.Error("failed to list speakers", "error", err)
	}
	h.render(w, r, http.StatusOK, "admin_proposal_new", templates.PageData{
		Title:     "New Proposal",
		ActiveNav: "proposals",
		Admin:     true,
		Flash:     flashFromQuery(r),
		Data: ProposalFormData{
			Speakers: list,
			Formats:  []string{models.FormatInPerson, models.FormatVirtual, models.FormatHybrid},
		},
	})
}

// AdminCreateProposal stores a draft proposal from the builder form.
func (h *Handlers) AdminCreateProposal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := middleware.GetUser(ctx)

	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, "/admin/proposals/new", "error", "Invalid form data")
		return
	}

	p, err := h.proposalFromForm(r)
	if err != nil {
		redirectWith(w, r, "/admin/proposals/new", "error", err.Error())
		return
	}

	created, err := h.proposals.Create(ctx, p)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			slog.Error("failed to create proposal", "error", err)
			redirectWith(w, r, "/admin/proposals/new", "error", "Failed to create proposal")
			return
		}
		redirectWith(w, r, "/admin/proposals/new", "error", err.Error())
		return
	}

	slog.Info("proposal created from admin", "proposal_id", created.ID, "user_id", user.ID)
	redirectWith(w, r, "/admin/proposals/"+created.ID.String(), "success", "Proposal "+created.ProposalNumber+" created")
}

// proposalFromForm reads the builder form. Speakers and services are
// parallel repeated fields.
func (h *Handlers) proposalFromForm(r *http.Request) (*models.Proposal, error) {
	f := r.PostForm
	text := func(name string) string { return strings.TrimSpace(f.Get(name)) }

	p := &models.Proposal{
		ClientName:       text("client_name"),
		ClientEmail:      text("client_email"),
		ClientCompany:    text("client_company"),
		ClientTitle:      text("client_title"),
		EventTitle:       text("event_title"),
		EventLocation:    text("event_location"),
		EventFormat:      text("event_format"),
		ExecutiveSummary: text("executive_summary"),
		WhyUs:            text("why_us"),
		Terms:            text("terms"),
	}
	if d, ok := parseDate(text("event_date")); ok {
		p.EventDate = &d
	}
	if d, ok := parseDate(text("valid_until")); ok {
		p.ValidUntil = d
	} else if text("valid_until") != "" {
		return nil, formError("Valid until must be a date")
	}
	if v := text("attendee_count"); v != "" {
		n, err := strconv.Atoi(strings.ReplaceAll(v, ",", ""))
		if err != nil || n < 0 {
			return nil, formError("Attendee count must be a whole number")
		}
		p.AttendeeCount = n
	}
	if v := text("discount"); v != "" {
		d, err := parseAmount(v)
		if err != nil {
			return nil, formError("Discount must be an amount")
		}
		p.Discount = d
	}

	names, slugs, fees := f["speaker_name"], f["speaker_slug"], f["speaker_fee"]
	for i := 0; i < max(len(names), len(slugs)); i++ {
		s := models.ProposalSpeaker{Name: strings.TrimSpace(at(names, i))}
		if slug := strings.TrimSpace(at(slugs, i)); slug != "" {
			sp, err := h.speakers.Public(r.Context(), slug)
			if err != nil {
				return nil, formError(fmt.Sprintf("Unknown speaker %q", slug))
			}
			if s.Name == "" {
				s.Name = sp.Name
			}
			s.Title, s.Bio, s.ImageURL, s.Topics = sp.Title, sp.Bio, sp.ImageURL, sp.Topics
		}
		if s.Name == "" {
			continue
		}
		if v := strings.TrimSpace(at(fees, i)); v != "" {
			fee, err := parseAmount(v)
			if err != nil {
				return nil, formError("Fee for " + s.Name + " must be an amount")
			}
			s.Fee = fee
		}
		s.AvailabilityConfirmed = at(f["speaker_available"], i) == "yes"
		p.Speakers = append(p.Speakers, s)
	}

	svcNames, descs, costs := f["service_name"], f["service_description"], f["service_cost"]
	for i, name := range svcNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		svc := models.ProposalService{Name: name, Description: strings.TrimSpace(at(descs, i))}
		if v := strings.TrimSpace(at(costs, i)); v != "" {
			cost, err := parseAmount(v)
			if err != nil {
				return nil, formError("Cost for " + name + " must be an amount")
			}
			svc.Cost = cost
		}
		p.Services = append(p.Services, svc)
	}
	return p, nil
}

// formError is a message shown back to the admin as is.
type formError string

func (e formError) Error() string { return string(e) }

func at(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

// parseAmount accepts "$1,250.50" style input.
func parseAmount(s string) (float64, error) {
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, errors.New("invalid amount")
	}
	return v, nil
}

// ProposalDetailData contains data for the admin_proposal template.
type ProposalDetailData struct {
	Proposal   *models.Proposal
	View       *views.ProposalView
	PublicURL  string
	PreviewURL string
	FirmOffer  *models.FirmOffer
	CanSend    bool
}

// AdminProposalDetail shows one proposal with its links and firm offer.
func (h *Handlers) AdminProposalDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.notFound(w, r, "proposal")
		return
	}
	p, err := h.proposals.Get(ctx, id)
	if err != nil {
		h.pageError(w, r, err, "proposal")
		return
	}

	data := ProposalDetailData{
		Proposal:  p,
		View:      views.Proposal(p, h.now(), views.ModePreview),
		PublicURL: h.proposals.Link(p),
		CanSend:   workflow.CanTransitionProposal(p.Status, workflow.ProposalSent),
	}
	if raw, err := json.Marshal(p); err == nil {
		data.PreviewURL = "/proposal/preview?data=" + url.QueryEscape(string(raw))
	}
	if p.Status == workflow.ProposalAccepted {
		o, err := h.offers.ForProposal(ctx, p)
		if err == nil {
			data.FirmOffer = o
		} else if !errors.Is(err, firmoffers.ErrNotFound) {
			slog.Error("failed to fetch firm offer for proposal", "error", err, "proposal_id", p.ID)
		}
	}

	h.render(w, r, http.StatusOK, "admin_proposal", templates.PageData{
		Title:     "Proposal " + p.ProposalNumber,
		ActiveNav: "proposals",
		Admin:     true,
		Flash:     flashFromQuery(r),
		Data:      data,
	})
}

// AdminSendProposal moves a draft to sent and emails the client.
func (h *Handlers) AdminSendProposal(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		h.notFound(w, r, "proposal")
		return
	}

	p, err := h.proposals.Send(r.Context(), id)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			slog.Error("failed to send proposal", "error", err, "proposal_id", id)
			redirectWith(w, r, "/admin/proposals/"+idStr, "error", "Failed to send proposal")
			return
		}
		redirectWith(w, r, "/admin/proposals/"+idStr, "error", err.Error())
		return
	}

	slog.Info("proposal sent", "proposal_id", p.ID, "user_id", middleware.GetUser(r.Context()).ID)
	redirectWith(w, r, "/admin/proposals/"+idStr, "success", "Proposal sent to "+p.ClientEmail)
}

// FirmOfferListData contains data for the admin_firm_offers template.
type FirmOfferListData struct {
	Offers []models.FirmOffer
	Counts []StatusCount
	Status string
	Pagination
}

// AdminFirmOffers lists firm offers with a status filter.
func (h *Handlers) AdminFirmOffers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := firmoffers.ListFilter{
		Limit:  defaultPageSize,
		Offset: (pageParam(r) - 1) * defaultPageSize,
	}
	status := r.URL.Query().Get("status")
	if status != "" {
		st, err := workflow.ParseOfferStatus(status)
		if err != nil {
			redirectWith(w, r, "/admin/firm-offers", "error", "Unknown status filter")
			return
		}
		filter.Statuses = []workflow.OfferStatus{st}
	}

	list, total, err := h.offers.List(ctx, filter)
	if err != nil {
		slog.Error("failed to list firm offers", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	counts, err := h.offers.Counts(ctx)
	if err != nil {
		slog.Error("failed to count firm offers", "error", err)
	}

	data := FirmOfferListData{
		Offers:     list,
		Status:     status,
		Pagination: paginate(r, total, url.Values{"status": {status}}),
	}
	for _, s := range workflow.AllOfferStatuses {
		data.Counts = append(data.Counts, StatusCount{Status: string(s), Label: s.Label(), Count: counts[s]})
	}

	h.render(w, r, http.StatusOK, "admin_firm_offers", templates.PageData{
		Title:     "Firm Offers",
		ActiveNav: "firm-offers",
		Admin:     true,
		Flash:     flashFromQuery(r),
		Data:      data,
	})
}

// FirmOfferDetailData contains data for the admin_firm_offer template.
type FirmOfferDetailData struct {
	Offer       *models.FirmOffer
	View        *views.FirmOfferView
	ReviewURL   string
	CanSend     bool
	CanComplete bool
}

// AdminFirmOfferDetail shows one firm offer.
func (h *Handlers) AdminFirmOfferDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		h.notFound(w, r, "firm offer")
		return
	}
	o, err := h.offers.Get(r.Context(), id)
	if err != nil {
		h.pageError(w, r, err, "firm offer")
		return
	}

	h.render(w, r, http.StatusOK, "admin_firm_offer", templates.PageData{
		Title:     fmt.Sprintf("Firm Offer #%d", o.ID),
		ActiveNav: "firm-offers",
		Admin:     true,
		Flash:     flashFromQuery(r),
		Data: FirmOfferDetailData{
			Offer:       o,
			View:        views.FirmOffer(o, views.ModePreview),
			ReviewURL:   h.offers.Link(o),
			CanSend:     workflow.CanTransitionOffer(o.Status, workflow.OfferSent),
			CanComplete: workflow.CanTransitionOffer(o.Status, workflow.OfferCompleted),
		},
	})
}

// AdminSendFirmOffer moves a draft offer to sent and emails the speaker.
func (h *Handlers) AdminSendFirmOffer(w http.ResponseWriter, r *http.Request) {
	h.offerAction(w, r, "sent to the speaker", h.offers.Send)
}

// AdminCompleteFirmOffer closes a confirmed offer.
func (h *Handlers) AdminCompleteFirmOffer(w http.ResponseWriter, r *http.Request) {
	h.offerAction(w, r, "marked completed", h.offers.Complete)
}

func (h *Handlers) offerAction(w http.ResponseWriter, r *http.Request, done string, action func(ctx context.Context, id int) (*models.FirmOffer, error)) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		h.notFound(w, r, "firm offer")
		return
	}
	back := "/admin/firm-offers/" + idStr

	if _, err := action(r.Context(), id); err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			slog.Error("firm offer action failed", "error", err, "firm_offer_id", id)
			redirectWith(w, r, back, "error", "Something went wrong")
			return
		}
		redirectWith(w, r, back, "error", err.Error())
		return
	}
	slog.Info("firm offer updated", "firm_offer_id", id, "result", done)
	redirectWith(w, r, back, "success", "Firm offer "+done)
}

// SpeakerAdminData contains data for the admin_speakers template.
type SpeakerAdminData struct {
	Speakers      []models.Speaker
	CanEdit       bool
	MediaEnabled  bool
	MaxImageBytes int
}

// AdminSpeakers lists every speaker, active or not.
func (h *Handlers) AdminSpeakers(w http.ResponseWriter, r *http.Request) {
	list, err := h.speakers.List(r.Context(), false)
	if err != nil {
		slog.Error("failed to list speakers", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.render(w, r, http.StatusOK, "admin_speakers", templates.PageData{
		Title:     "Speakers",
		ActiveNav: "speakers",
		Admin:     true,
		Flash:     flashFromQuery(r),
		Data: SpeakerAdminData{
			Speakers:      list,
			CanEdit:       middleware.IsAdmin(r.Context()),
			MediaEnabled:  h.media != nil,
			MaxImageBytes: media.MaxImageSize,
		},
	})
}

// AdminCreateSpeaker adds a speaker to the directory.
func (h *Handlers) AdminCreateSpeaker(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, "/admin/speakers", "error", "Invalid form data")
		return
	}

	sp, err := h.speakers.Create(r.Context(), speakers.Input{
		Name:       r.FormValue("name"),
		Slug:       r.FormValue("slug"),
		Title:      r.FormValue("title"),
		Bio:        r.FormValue("bio"),
		Topics:     r.FormValue("topics"),
		Industries: r.FormValue("industries"),
		FeeRange:   r.FormValue("fee_range"),
		Featured:   r.FormValue("featured") == "on",
	})
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			slog.Error("failed to create speaker", "error", err)
			redirectWith(w, r, "/admin/speakers", "error", "Failed to create speaker")
			return
		}
		redirectWith(w, r, "/admin/speakers", "error", err.Error())
		return
	}

	slog.Info("speaker created", "speaker_id", sp.ID, "slug", sp.Slug)
	redirectWith(w, r, "/admin/speakers", "success", sp.Name+" added")
}

// mediaReady writes a 503 when object storage is not configured.
func (h *Handlers) mediaReady(w http.ResponseWriter) bool {
	if h.media == nil {
		slog.Error("image upload attempted but R2 not configured")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "File uploads are not configured"})
		return false
	}
	return true
}

// storeMultipart saves the "file" part of a multipart upload.
func (h *Handlers) storeMultipart(w http.ResponseWriter, r *http.Request) (*media.Result, error) {
	r.Body = http.MaxBytesReader(w, r.Body, media.MaxImageSize+1<<20)
	if err := r.ParseMultipartForm(media.MaxImageSize); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, media.ErrTooLarge
		}
		return nil, fmt.Errorf("%w: invalid multipart form", speakers.ErrValidation)
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: no file uploaded", speakers.ErrValidation)
	}
	defer file.Close()
	return h.media.StoreUpload(r.Context(), file)
}

// AdminUploadSpeakerImage stores an uploaded headshot and links it.
func (h *Handlers) AdminUploadSpeakerImage(w http.ResponseWriter, r *http.Request) {
	if !h.mediaReady(w) {
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid speaker ID"})
		return
	}
	if _, err := h.speakers.Get(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.storeMultipart(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sp, err := h.speakers.SetImage(r.Context(), id, res.URL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("speaker image uploaded", "speaker_id", id, "key", res.Key, "size", res.Size)
	writeJSON(w, http.StatusOK, sp)
}

// imageImportRequest is the body of an image import.
type imageImportRequest struct {
	URL string `json:"url"`
}

// AdminImportSpeakerImage copies a remote headshot into object storage.
func (h *Handlers) AdminImportSpeakerImage(w http.ResponseWriter, r *http.Request) {
	if !h.mediaReady(w) {
		return
	}
	ctx := r.Context()
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid speaker ID"})
		return
	}

	var req imageImportRequest
	if err := decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.URL) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url is required"})
		return
	}

	sp, err := h.speakers.Get(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.media.ImportSpeakerImage(ctx, strings.TrimSpace(req.URL), sp.Slug)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			slog.Warn("speaker image import failed", "error", err, "speaker_id", id)
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "Failed to fetch image"})
			return
		}
		writeError(w, r, err)
		return
	}
	sp, err = h.speakers.SetImage(ctx, id, res.URL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("speaker image imported", "speaker_id", id, "source", res.SourceURL, "key", res.Key)
	writeJSON(w, http.StatusOK, sp)
}

// AdminUpload stores an image and returns its public URL.
func (h *Handlers) AdminUpload(w http.ResponseWriter, r *http.Request) {
	if !h.mediaReady(w) {
		return
	}
	res, err := h.storeMultipart(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("image uploaded", "key", res.Key, "size", res.Size, "user_id", middleware.GetUser(r.Context()).ID)
	writeJSON(w, http.StatusOK, map[string]string{"url": res.URL})
}
