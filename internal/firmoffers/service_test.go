package firmoffers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/token"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/wizard"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/workflow"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/models"
)

var testNow = time.Date(2026, time.May, 4, 15, 30, 0, 0, time.UTC)

type proposalMap map[uuid.UUID]*models.Proposal

func (m proposalMap) GetByID(_ context.Context, id uuid.UUID) (*models.Proposal, error) {
	if p, ok := m[id]; ok {
		return p, nil
	}
	return nil, errors.New("no proposal")
}

type recordingNotifier struct {
	mu        sync.Mutex
	sent      []string
	responded []workflow.OfferStatus
	submitted int
}

func (n *recordingNotifier) OfferSent(_ context.Context, _ *models.FirmOffer, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, link)
	return nil
}

func (n *recordingNotifier) OfferResponded(_ context.Context, o *models.FirmOffer, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.responded = append(n.responded, o.Status)
	return nil
}

func (n *recordingNotifier) ConfirmationSubmitted(_ context.Context, _ *models.FirmOffer, _ *models.Proposal) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.submitted++
	return nil
}

type fixture struct {
	svc       *Service
	store     *MemoryStore
	notifier  *recordingNotifier
	proposals proposalMap
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	proposals := proposalMap{}
	store := NewMemoryStore(proposals)
	notifier := &recordingNotifier{}
	svc := NewService(store, notifier, "https://speakabout.ai")
	svc.SetClock(func() time.Time { return testNow })
	return &fixture{svc: svc, store: store, notifier: notifier, proposals: proposals}
}

func (f *fixture) acceptedProposal() *models.Proposal {
	eventDate := time.Date(2026, time.September, 10, 0, 0, 0, 0, time.UTC)
	p := &models.Proposal{
		ID:             uuid.New(),
		ProposalNumber: "SAA-2026-0142",
		ClientName:     "Jane Doe",
		ClientCompany:  "Acme Corp",
		EventTitle:     "Acme Leadership Summit",
		EventDate:      &eventDate,
		Speakers:       []models.ProposalSpeaker{{Name: "Ada Lovelace", Title: "Futurist", Fee: 20000}},
		Total:          20000,
		Status:         workflow.ProposalAccepted,
	}
	f.proposals[p.ID] = p
	return p
}

func (f *fixture) offerWithStatus(t *testing.T, status workflow.OfferStatus) *models.FirmOffer {
	t.Helper()
	p := f.acceptedProposal()
	o := &models.FirmOffer{
		ProposalID:   &p.ID,
		Status:       status,
		Confirmation: models.Confirmation{Status: models.ConfirmationSubmitted},
	}
	tok, _ := token.New()
	o.SpeakerAccessToken = tok
	if err := f.store.Create(context.Background(), o); err != nil {
		t.Fatalf("failed to create offer: %v", err)
	}
	return o
}

func submission() *wizard.Submission {
	form := wizard.Form{
		EventDetails: wizard.EventDetails{
			Organization:  "Acme Corp",
			EventName:     "Acme Leadership Summit",
			EventDate:     "2026-09-10",
			Venue:         "Moscone Center",
			AttendeeCount: "1,200",
		},
		Program: wizard.Program{ProgramType: "Keynote", StartTime: "09:00", Length: "60 minutes"},
		Travel:  wizard.Travel{FlyInDate: "2026-09-09", FlyOutDate: "2026-09-11"},
		Commitments: wizard.Commitments{
			BookSigning: true,
			DressCode:   "Business casual",
		},
		Confirmation: wizard.Confirmation{Name: "Jane Doe", Email: "jane@acme.test"},
	}
	w := &wizard.Wizard{Step: wizard.StepConfirm, Form: form}
	sub, err := w.Submit(testNow)
	if err != nil {
		panic(err)
	}
	return sub
}

func TestResolveUnknownToken(t *testing.T) {
	f := newFixture(t)
	tok, _ := token.New()

	if _, err := f.svc.Resolve(context.Background(), tok); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.svc.Resolve(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for malformed token, got %v", err)
	}
}

func TestResolveMarksViewedOnce(t *testing.T) {
	f := newFixture(t)
	o := f.offerWithStatus(t, workflow.OfferSent)

	got, err := f.svc.Resolve(context.Background(), o.SpeakerAccessToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != workflow.OfferSpeakerViewed {
		t.Errorf("expected speaker_viewed, got %s", got.Status)
	}
	if got.SpeakerViewedAt == nil || !got.SpeakerViewedAt.Equal(testNow) {
		t.Fatalf("expected speaker_viewed_at %v, got %v", testNow, got.SpeakerViewedAt)
	}
	if got.Parent == nil || got.Parent.Kind != models.ParentProposal || got.Parent.Company != "Acme Corp" {
		t.Errorf("expected proposal parent, got %+v", got.Parent)
	}

	f.svc.SetClock(func() time.Time { return testNow.Add(48 * time.Hour) })
	again, err := f.svc.Resolve(context.Background(), o.SpeakerAccessToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !again.SpeakerViewedAt.Equal(testNow) {
		t.Errorf("expected speaker_viewed_at unchanged, got %v", again.SpeakerViewedAt)
	}
}

func TestResolveKeepsCompletedStatus(t *testing.T) {
	f := newFixture(t)
	o := f.offerWithStatus(t, workflow.OfferCompleted)

	got, err := f.svc.Resolve(context.Background(), o.SpeakerAccessToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != workflow.OfferCompleted {
		t.Errorf("expected completed to be kept, got %s", got.Status)
	}
	if got.SpeakerViewedAt == nil {
		t.Error("expected view time to be stamped")
	}
}

func TestResolveFallsBackToDeal(t *testing.T) {
	f := newFixture(t)
	deal := &models.Deal{ClientName: "Globex", Company: "Globex Inc", EventTitle: "Globex Offsite", DealValue: 15000}
	if err := f.svc.CreateDeal(context.Background(), deal); err != nil {
		t.Fatalf("failed to create deal: %v", err)
	}
	o, err := f.svc.CreateForDeal(context.Background(), deal.ID, "speaker@example.test")
	if err != nil {
		t.Fatalf("failed to create offer for deal: %v", err)
	}

	got, err := f.svc.Resolve(context.Background(), o.SpeakerAccessToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Parent == nil || got.Parent.Kind != models.ParentDeal || got.Parent.Reference != "Deal #1" {
		t.Errorf("expected deal parent, got %+v", got.Parent)
	}
	if got.FinancialDetails.SpeakerFee != 15000 {
		t.Errorf("expected fee from deal value, got %.2f", got.FinancialDetails.SpeakerFee)
	}
}

func TestResolveOrphanIsNotFound(t *testing.T) {
	f := newFixture(t)
	missing := uuid.New()
	o := &models.FirmOffer{ProposalID: &missing, Status: workflow.OfferSent, SpeakerAccessToken: "orphan-token-aaaaaaaaaaaa"}
	if err := f.store.Create(context.Background(), o); err != nil {
		t.Fatalf("failed to create offer: %v", err)
	}

	if _, err := f.svc.Resolve(context.Background(), o.SpeakerAccessToken); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound when neither parent resolves, got %v", err)
	}
}

func TestApplySpeakerResponse(t *testing.T) {
	yes, no := true, false
	confirmedStatus := string(workflow.OfferSpeakerConfirmed)
	declinedStatus := string(workflow.OfferSpeakerDeclined)
	notes := "  Happy to do a book signing  "

	tests := []struct {
		name       string
		patch      Patch
		wantStatus workflow.OfferStatus
		wantErr    error
	}{
		{"confirm", Patch{SpeakerConfirmed: &yes, SpeakerNotes: &notes}, workflow.OfferSpeakerConfirmed, nil},
		{"decline", Patch{SpeakerConfirmed: &no}, workflow.OfferSpeakerDeclined, nil},
		{"status implies confirm", Patch{Status: &confirmedStatus}, workflow.OfferSpeakerConfirmed, nil},
		{"matching status and flag", Patch{Status: &declinedStatus, SpeakerConfirmed: &no}, workflow.OfferSpeakerDeclined, nil},
		{"contradiction", Patch{Status: &declinedStatus, SpeakerConfirmed: &yes}, "", ErrValidation},
		{"empty patch", Patch{SpeakerNotes: &notes}, "", ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			o := f.offerWithStatus(t, workflow.OfferSpeakerViewed)

			got, err := f.svc.Apply(context.Background(), o.ID, tt.patch, Actor{SpeakerToken: o.SpeakerAccessToken})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("expected %s, got %s", tt.wantStatus, got.Status)
			}
			if got.SpeakerConfirmed == nil || *got.SpeakerConfirmed != (tt.wantStatus == workflow.OfferSpeakerConfirmed) {
				t.Errorf("unexpected speaker_confirmed %v", got.SpeakerConfirmed)
			}
		})
	}
}

func TestSpeakerConfirmedIsWriteOnce(t *testing.T) {
	f := newFixture(t)
	o := f.offerWithStatus(t, workflow.OfferSent)
	actor := Actor{SpeakerToken: o.SpeakerAccessToken}
	yes, no := true, false

	if _, err := f.svc.Apply(context.Background(), o.ID, Patch{SpeakerConfirmed: &yes}, actor); err != nil {
		t.Fatalf("first response failed: %v", err)
	}
	_, err := f.svc.Apply(context.Background(), o.ID, Patch{SpeakerConfirmed: &no}, actor)
	if !errors.Is(err, ErrConflict) || !errors.Is(err, workflow.ErrTerminal) {
		t.Fatalf("expected terminal conflict, got %v", err)
	}

	stored, _ := f.store.GetByID(context.Background(), o.ID)
	if stored.Status != workflow.OfferSpeakerConfirmed || !*stored.SpeakerConfirmed {
		t.Errorf("expected original confirmation preserved, got %s", stored.Status)
	}
	if len(f.notifier.responded) != 1 {
		t.Errorf("expected exactly one notification, got %d", len(f.notifier.responded))
	}
}

func TestRespondToDraftConflicts(t *testing.T) {
	f := newFixture(t)
	o := f.offerWithStatus(t, workflow.OfferDraft)
	yes := true

	_, err := f.svc.Apply(context.Background(), o.ID, Patch{SpeakerConfirmed: &yes}, Actor{Admin: true})
	if !errors.Is(err, ErrConflict) || !errors.Is(err, workflow.ErrInvalidTransition) {
		t.Errorf("expected invalid transition conflict, got %v", err)
	}
}

func TestApplyAuthorization(t *testing.T) {
	f := newFixture(t)
	o := f.offerWithStatus(t, workflow.OfferSent)
	other := f.offerWithStatus(t, workflow.OfferSent)
	yes := true
	completed := string(workflow.OfferCompleted)

	tests := []struct {
		name  string
		patch Patch
		actor Actor
	}{
		{"no credentials", Patch{SpeakerConfirmed: &yes}, Actor{}},
		{"other offer token", Patch{SpeakerConfirmed: &yes}, Actor{SpeakerToken: other.SpeakerAccessToken}},
		{"speaker status change", Patch{Status: &completed}, Actor{SpeakerToken: o.SpeakerAccessToken}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Apply(context.Background(), o.ID, tt.patch, tt.actor); !errors.Is(err, ErrForbidden) {
				t.Errorf("expected ErrForbidden, got %v", err)
			}
		})
	}

	if _, err := f.svc.Apply(context.Background(), 999, Patch{SpeakerConfirmed: &yes}, Actor{Admin: true}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestAdminTransitions(t *testing.T) {
	f := newFixture(t)
	o := f.offerWithStatus(t, workflow.OfferDraft)

	sent, err := f.svc.Send(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if sent.Status != workflow.OfferSent || sent.SentAt == nil {
		t.Errorf("expected sent with timestamp, got %s", sent.Status)
	}
	if len(f.notifier.sent) != 1 || f.notifier.sent[0] != "https://speakabout.ai/speaker-review/"+o.SpeakerAccessToken {
		t.Errorf("unexpected links %v", f.notifier.sent)
	}

	if _, err := f.svc.Complete(context.Background(), o.ID); !errors.Is(err, ErrConflict) {
		t.Errorf("expected completing an unanswered offer to conflict, got %v", err)
	}
	if _, err := f.svc.Transition(context.Background(), o.ID, workflow.OfferSpeakerConfirmed); !errors.Is(err, ErrValidation) {
		t.Errorf("expected admin confirm to be rejected, got %v", err)
	}

	if _, err := f.svc.Respond(context.Background(), o.ID, true, ""); err != nil {
		t.Fatalf("respond failed: %v", err)
	}
	done, err := f.svc.Complete(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if done.Status != workflow.OfferCompleted {
		t.Errorf("expected completed, got %s", done.Status)
	}
}

func TestCreateFromConfirmation(t *testing.T) {
	f := newFixture(t)
	p := f.acceptedProposal()

	o, err := f.svc.CreateFromConfirmation(context.Background(), p, submission())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Status != workflow.OfferDraft {
		t.Errorf("expected draft, got %s", o.Status)
	}
	if o.ProposalID == nil || *o.ProposalID != p.ID {
		t.Error("expected offer linked to proposal")
	}
	if o.Confirmation.Status != models.ConfirmationSubmitted || o.Confirmation.SubmittedBy != "Jane Doe" {
		t.Errorf("unexpected confirmation %+v", o.Confirmation)
	}
	if o.EventOverview.VenueName != "Moscone Center" || o.EventOverview.AttendeeCount != 1200 {
		t.Errorf("unexpected event overview %+v", o.EventOverview)
	}
	if o.SpeakerProgram.SpeakerName != "Ada Lovelace" || o.EventSchedule.ProgramStartTime != "09:00" {
		t.Errorf("unexpected program %+v / %+v", o.SpeakerProgram, o.EventSchedule)
	}
	if !o.AdditionalInfo.BookSigning || o.AdditionalInfo.DressCode != "Business casual" {
		t.Errorf("unexpected additional info %+v", o.AdditionalInfo)
	}
	if o.FinancialDetails.SpeakerFee != 20000 || o.FinancialDetails.PaymentTerms == "" {
		t.Errorf("unexpected financials %+v", o.FinancialDetails)
	}
	if f.notifier.submitted != 1 {
		t.Errorf("expected one submission notification, got %d", f.notifier.submitted)
	}

	if _, err := f.svc.CreateFromConfirmation(context.Background(), p, submission()); !errors.Is(err, ErrConflict) {
		t.Errorf("expected duplicate submission to conflict, got %v", err)
	}
}

func TestCreateFromConfirmationRequiresAcceptance(t *testing.T) {
	f := newFixture(t)
	p := f.acceptedProposal()
	p.Status = workflow.ProposalViewed

	if _, err := f.svc.CreateFromConfirmation(context.Background(), p, submission()); !errors.Is(err, ErrConflict) {
		t.Errorf("expected conflict for unaccepted proposal, got %v", err)
	}
}

// lookupBarrier holds every GetByProposalID until n callers have read, so
// concurrent submissions all observe "no offer yet" before inserting.
type lookupBarrier struct {
	*MemoryStore
	wg *sync.WaitGroup
}

func (b lookupBarrier) GetByProposalID(ctx context.Context, id uuid.UUID) (*models.FirmOffer, error) {
	o, err := b.MemoryStore.GetByProposalID(ctx, id)
	b.wg.Done()
	b.wg.Wait()
	return o, err
}

func TestConcurrentConfirmationsStoreOneOffer(t *testing.T) {
	f := newFixture(t)
	p := f.acceptedProposal()

	const submitters = 2
	var wg sync.WaitGroup
	wg.Add(submitters)
	svc := NewService(lookupBarrier{MemoryStore: f.store, wg: &wg}, nil, "https://speakabout.ai")
	svc.SetClock(func() time.Time { return testNow })

	errs := make([]error, submitters)
	var done sync.WaitGroup
	for i := 0; i < submitters; i++ {
		i := i
		done.Add(1)
		go func() {
			defer done.Done()
			_, errs[i] = svc.CreateFromConfirmation(context.Background(), p, submission())
		}()
	}
	done.Wait()

	conflicts := 0
	for _, err := range errs {
		switch {
		case err == nil:
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if conflicts != submitters-1 {
		t.Errorf("expected %d conflict, got %d (%v)", submitters-1, conflicts, errs)
	}

	list, total, err := f.svc.List(context.Background(), ListFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(list) != 1 {
		t.Errorf("expected exactly one firm offer for the proposal, got %d", total)
	}
}

func TestMemoryStoreRejectsTwoParents(t *testing.T) {
	f := newFixture(t)
	p := f.acceptedProposal()
	dealID := 7
	o := &models.FirmOffer{ProposalID: &p.ID, DealID: &dealID, SpeakerAccessToken: "tok"}

	if err := f.store.Create(context.Background(), o); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
