package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/firmoffers"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/proposals"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/templates"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/wizard"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/workflow"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/models"
)

// StepLink is one entry of the wizard's step indicator.
type StepLink struct {
	Index     int
	Title     string
	Current   bool
	Reachable bool
}

// ConfirmPageData is the data for the confirm_wizard template.
type ConfirmPageData struct {
	Token        string
	Number       string
	ClientName   string
	Step         int
	StepTitle    string
	Steps        []StepLink
	Last         bool
	Form         wizard.Form
	State        string
	Errors       wizard.FieldErrors
	ProgramTypes []string
}

// ConfirmDoneData is the data for the confirm_done template.
type ConfirmDoneData struct {
	Token       string
	Number      string
	SubmittedBy string
	SubmittedAt string
}

// confirmable resolves a token to a proposal whose confirmation form is
// open. It writes the error page and returns nil otherwise.
func (h *Handlers) confirmable(w http.ResponseWriter, r *http.Request) (*models.Proposal, bool) {
	ctx := r.Context()
	tok := chi.URLParam(r, "token")

	p, err := h.proposals.Resolve(ctx, tok)
	if err != nil {
		h.pageError(w, r, err, "proposal")
		return nil, false
	}
	if p.Status != workflow.ProposalAccepted {
		h.pageError(w, r, fmt.Errorf("%w: event details can only be confirmed after the proposal is accepted", proposals.ErrConflict), "proposal")
		return nil, false
	}

	o, err := h.offers.ForProposal(ctx, p)
	switch {
	case err == nil && o.Confirmation.Status == models.ConfirmationSubmitted:
		data := ConfirmDoneData{
			Token:       tok,
			Number:      p.ProposalNumber,
			SubmittedBy: o.Confirmation.SubmittedBy,
		}
		if o.Confirmation.SubmittedAt != nil {
			data.SubmittedAt = o.Confirmation.SubmittedAt.Format("January 2, 2006")
		}
		h.render(w, r, http.StatusOK, "confirm_done", templates.PageData{
			Title: "Event Details Received",
			Data:  data,
		})
		return nil, false
	case err != nil && !errors.Is(err, firmoffers.ErrNotFound):
		h.pageError(w, r, err, "proposal")
		return nil, false
	}
	return p, true
}

// ConfirmPage starts the event confirmation wizard for an accepted proposal.
func (h *Handlers) ConfirmPage(w http.ResponseWriter, r *http.Request) {
	p, ok := h.confirmable(w, r)
	if !ok {
		return
	}
	h.renderWizard(w, r, http.StatusOK, p, wizard.New(wizard.Prefill(p)), nil)
}

// ConfirmStep handles one wizard form post. The action field is "next",
// "back", "goto:<step>" or "submit".
func (h *Handlers) ConfirmStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, ok := h.confirmable(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.pageError(w, r, fmt.Errorf("%w: invalid form data", proposals.ErrValidation), "proposal")
		return
	}

	wiz, err := wizard.Decode(r.PostFormValue("state"))
	if err != nil {
		slog.InfoContext(ctx, "restarting wizard from invalid state", "error", err, "proposal_id", p.ID)
		h.renderWizard(w, r, http.StatusBadRequest, p, wizard.New(wizard.Prefill(p)), nil)
		return
	}
	wiz.Form.Bind(wiz.Step, r.PostForm)

	action := r.PostFormValue("action")
	switch {
	case action == "back":
		wiz.Back()
	case strings.HasPrefix(action, "goto:"):
		target, convErr := strconv.Atoi(strings.TrimPrefix(action, "goto:"))
		if convErr != nil {
			err = fmt.Errorf("%w: invalid step", wizard.ErrStepInvalid)
			break
		}
		err = wiz.GoTo(wizard.Step(target))
	case action == "submit":
		var sub *wizard.Submission
		sub, err = wiz.Submit(h.now())
		if err != nil {
			break
		}
		if _, err := h.offers.CreateFromConfirmation(ctx, p, sub); err != nil {
			h.pageError(w, r, err, "proposal")
			return
		}
		http.Redirect(w, r, "/proposal/"+chi.URLParam(r, "token")+"/confirm", http.StatusSeeOther)
		return
	default:
		err = wiz.Next()
	}

	if err != nil {
		var stepErr *wizard.StepError
		if errors.As(err, &stepErr) {
			h.renderWizard(w, r, http.StatusBadRequest, p, wiz, stepErr.Fields)
			return
		}
		h.renderWizard(w, r, http.StatusBadRequest, p, wiz, wizard.FieldErrors{"step": err.Error()})
		return
	}
	h.renderWizard(w, r, http.StatusOK, p, wiz, nil)
}

func (h *Handlers) renderWizard(w http.ResponseWriter, r *http.Request, status int, p *models.Proposal, wiz *wizard.Wizard, fe wizard.FieldErrors) {
	state, err := wiz.Encode()
	if err != nil {
		h.pageError(w, r, err, "proposal")
		return
	}

	steps := make([]StepLink, wizard.StepCount)
	for i := range steps {
		s := wizard.Step(i)
		steps[i] = StepLink{
			Index:     i,
			Title:     s.Title(),
			Current:   s == wiz.Step,
			Reachable: wiz.Reachable(s),
		}
	}

	h.render(w, r, status, "confirm_wizard", templates.PageData{
		Title: "Confirm Event Details",
		Data: ConfirmPageData{
			Token:        chi.URLParam(r, "token"),
			Number:       p.ProposalNumber,
			ClientName:   p.ClientName,
			Step:         int(wiz.Step),
			StepTitle:    wiz.Step.Title(),
			Steps:        steps,
			Last:         wiz.Step == wizard.StepConfirm,
			Form:         wiz.Form,
			State:        state,
			Errors:       fe,
			ProgramTypes: wizard.ProgramTypes,
		},
	})
}
