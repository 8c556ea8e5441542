package proposals

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/robert-strong/speak-about-ai-website-sub005/internal/token"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/workflow"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/models"
)

var testNow = time.Date(2026, time.May, 4, 15, 30, 0, 0, time.UTC)

type recordingNotifier struct {
	mu        sync.Mutex
	sent      []string
	responded []workflow.ProposalStatus
	err       error
}

func (n *recordingNotifier) ProposalSent(_ context.Context, p *models.Proposal, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, link)
	return n.err
}

func (n *recordingNotifier) ProposalResponded(_ context.Context, p *models.Proposal, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.responded = append(n.responded, p.Status)
	return n.err
}

func newTestService(t *testing.T) (*Service, *MemoryStore, *recordingNotifier) {
	t.Helper()
	store := NewMemoryStore()
	notifier := &recordingNotifier{}
	svc := NewService(store, notifier, "https://speakabout.ai/")
	svc.SetClock(func() time.Time { return testNow })
	return svc, store, notifier
}

func seedProposal(t *testing.T, store *MemoryStore, status workflow.ProposalStatus, validUntil time.Time) *models.Proposal {
	t.Helper()
	svc := NewService(store, nil, "")
	svc.SetClock(func() time.Time { return testNow.AddDate(0, -1, 0) })
	p, err := svc.Create(context.Background(), &models.Proposal{
		ClientName:    "Jane Doe",
		ClientCompany: "Acme Corp",
		EventTitle:    "Acme Leadership Summit",
		Speakers:      []models.ProposalSpeaker{{Name: "Ada Lovelace", Fee: 20000}},
		ValidUntil:    validUntil,
	})
	if err != nil {
		t.Fatalf("failed to seed proposal: %v", err)
	}
	if status != workflow.ProposalDraft {
		if _, err := store.SetStatus(context.Background(), p.ID, []workflow.ProposalStatus{workflow.ProposalDraft}, status, testNow); err != nil {
			t.Fatalf("failed to set seed status: %v", err)
		}
		p.Status = status
	}
	return p
}

func tomorrow() time.Time  { return workflow.Today(testNow).AddDate(0, 0, 1) }
func yesterday() time.Time { return workflow.Today(testNow).AddDate(0, 0, -1) }

func TestResolveUnknownToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	for _, tok := range []string{"", "short", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"} {
		if _, err := svc.Resolve(context.Background(), tok); !errors.Is(err, ErrNotFound) {
			t.Errorf("token %q: expected ErrNotFound, got %v", tok, err)
		}
	}
}

func TestResolveMarksViewedOnce(t *testing.T) {
	svc, store, _ := newTestService(t)
	p := seedProposal(t, store, workflow.ProposalSent, tomorrow())

	got, err := svc.Resolve(context.Background(), p.AccessToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != workflow.ProposalViewed {
		t.Errorf("expected status viewed, got %s", got.Status)
	}
	if got.ViewedAt == nil || !got.ViewedAt.Equal(testNow) {
		t.Fatalf("expected viewed_at %v, got %v", testNow, got.ViewedAt)
	}

	svc.SetClock(func() time.Time { return testNow.Add(time.Hour) })
	again, err := svc.Resolve(context.Background(), p.AccessToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !again.ViewedAt.Equal(testNow) {
		t.Errorf("expected viewed_at to stay %v, got %v", testNow, again.ViewedAt)
	}
	if again.Status != workflow.ProposalViewed {
		t.Errorf("expected status to stay viewed, got %s", again.Status)
	}
}

func TestResolveDoesNotReopenTerminal(t *testing.T) {
	svc, store, _ := newTestService(t)
	p := seedProposal(t, store, workflow.ProposalSent, tomorrow())
	if _, err := svc.Accept(context.Background(), p.AccessToken, AcceptInput{AcceptedBy: "Jane Doe"}); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	got, err := svc.Resolve(context.Background(), p.AccessToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != workflow.ProposalAccepted {
		t.Errorf("expected accepted to survive first view, got %s", got.Status)
	}
}

func TestAccept(t *testing.T) {
	svc, store, notifier := newTestService(t)
	p := seedProposal(t, store, workflow.ProposalSent, tomorrow())

	got, err := svc.Accept(context.Background(), p.AccessToken, AcceptInput{
		AcceptedBy:      "  Jane Doe ",
		AcceptedTitle:   "VP Events",
		AcceptanceNotes: "Looking forward to it",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != workflow.ProposalAccepted {
		t.Errorf("expected accepted, got %s", got.Status)
	}
	if got.AcceptedBy == nil || *got.AcceptedBy != "Jane Doe" {
		t.Errorf("expected accepted_by Jane Doe, got %v", got.AcceptedBy)
	}
	if got.AcceptedAt == nil || !got.AcceptedAt.Equal(testNow) {
		t.Errorf("expected accepted_at %v, got %v", testNow, got.AcceptedAt)
	}
	if len(notifier.responded) != 1 || notifier.responded[0] != workflow.ProposalAccepted {
		t.Errorf("expected one acceptance notification, got %v", notifier.responded)
	}

	stored, _ := store.GetByToken(context.Background(), p.AccessToken)
	if stored.Status != workflow.ProposalAccepted {
		t.Errorf("expected stored status accepted, got %s", stored.Status)
	}
}

func TestAcceptRequiresName(t *testing.T) {
	svc, store, _ := newTestService(t)
	p := seedProposal(t, store, workflow.ProposalViewed, tomorrow())

	_, err := svc.Accept(context.Background(), p.AccessToken, AcceptInput{AcceptedBy: "   "})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	stored, _ := store.GetByToken(context.Background(), p.AccessToken)
	if stored.Status != workflow.ProposalViewed {
		t.Errorf("expected status unchanged, got %s", stored.Status)
	}
}

func TestRespondGuards(t *testing.T) {
	tests := []struct {
		name       string
		status     workflow.ProposalStatus
		validUntil time.Time
		accept     bool
		wantErr    error
		reason     error
	}{
		{"accept sent", workflow.ProposalSent, tomorrow(), true, nil, nil},
		{"reject viewed", workflow.ProposalViewed, tomorrow(), false, nil, nil},
		{"accept on last valid day", workflow.ProposalViewed, workflow.Today(testNow), true, nil, nil},
		{"accept expired", workflow.ProposalViewed, yesterday(), true, ErrConflict, workflow.ErrExpired},
		{"reject expired", workflow.ProposalSent, yesterday(), false, ErrConflict, workflow.ErrExpired},
		{"accept draft", workflow.ProposalDraft, tomorrow(), true, ErrConflict, workflow.ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newTestService(t)
			p := seedProposal(t, store, tt.status, tt.validUntil)

			var err error
			if tt.accept {
				_, err = svc.Accept(context.Background(), p.AccessToken, AcceptInput{AcceptedBy: "Jane Doe"})
			} else {
				_, err = svc.Reject(context.Background(), p.AccessToken, RejectInput{RejectedBy: "Jane Doe", RejectionReason: "Budget"})
			}

			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if !errors.Is(err, tt.reason) {
				t.Errorf("expected reason %v, got %v", tt.reason, err)
			}
			stored, _ := store.GetByToken(context.Background(), p.AccessToken)
			if stored.Status != tt.status {
				t.Errorf("expected stored status %s unchanged, got %s", tt.status, stored.Status)
			}
		})
	}
}

func TestAcceptAndRejectAreMutuallyExclusive(t *testing.T) {
	svc, store, _ := newTestService(t)
	p := seedProposal(t, store, workflow.ProposalSent, tomorrow())

	if _, err := svc.Accept(context.Background(), p.AccessToken, AcceptInput{AcceptedBy: "Jane Doe"}); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	_, err := svc.Reject(context.Background(), p.AccessToken, RejectInput{RejectionReason: "changed our minds"})
	if !errors.Is(err, ErrConflict) || !errors.Is(err, workflow.ErrTerminal) {
		t.Fatalf("expected terminal conflict, got %v", err)
	}
	_, err = svc.Accept(context.Background(), p.AccessToken, AcceptInput{AcceptedBy: "John Roe"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected second accept to conflict, got %v", err)
	}

	stored, _ := store.GetByToken(context.Background(), p.AccessToken)
	if stored.Status != workflow.ProposalAccepted || *stored.AcceptedBy != "Jane Doe" {
		t.Errorf("expected original acceptance preserved, got %s by %v", stored.Status, *stored.AcceptedBy)
	}
	if stored.RejectedAt != nil || stored.RejectionReason != nil {
		t.Error("expected no rejection fields after failed reject")
	}
}

func TestConcurrentResponsesOnlyFirstWins(t *testing.T) {
	svc, store, _ := newTestService(t)
	p := seedProposal(t, store, workflow.ProposalViewed, tomorrow())

	const workers = 10
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, errs[i] = svc.Accept(context.Background(), p.AccessToken, AcceptInput{AcceptedBy: "Jane Doe"})
			} else {
				_, errs[i] = svc.Reject(context.Background(), p.AccessToken, RejectInput{RejectedBy: "Jane Doe"})
			}
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, ErrConflict):
			t.Errorf("expected conflict for losing writer, got %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("expected exactly one winning response, got %d", succeeded)
	}
}

func TestRespondUnknownToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	tok, _ := token.New()

	_, err := svc.Accept(context.Background(), tok, AcceptInput{AcceptedBy: "Jane Doe"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestNotificationFailureDoesNotFailResponse(t *testing.T) {
	svc, store, notifier := newTestService(t)
	notifier.err = errors.New("smtp down")
	p := seedProposal(t, store, workflow.ProposalSent, tomorrow())

	if _, err := svc.Reject(context.Background(), p.AccessToken, RejectInput{RejectionReason: "Dates moved"}); err != nil {
		t.Fatalf("expected reject to succeed despite notifier error, got %v", err)
	}
}

func TestCreate(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), &models.Proposal{ValidUntil: tomorrow()})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error without client name, got %v", err)
	}
	_, err = svc.Create(context.Background(), &models.Proposal{ClientName: "Jane", ValidUntil: yesterday()})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error for past valid-until, got %v", err)
	}

	p, err := svc.Create(context.Background(), &models.Proposal{
		ClientName: "Jane Doe",
		Speakers:   []models.ProposalSpeaker{{Name: "Ada", Fee: 30000}},
		Services:   []models.ProposalService{{Name: "Book bundle", Cost: 2000}},
		Discount:   2000,
		ValidUntil: tomorrow(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != workflow.ProposalDraft {
		t.Errorf("expected draft, got %s", p.Status)
	}
	if !token.Valid(p.AccessToken) {
		t.Errorf("expected a valid access token, got %q", p.AccessToken)
	}
	if p.Total != 30000 || p.Subtotal != 32000 {
		t.Errorf("expected subtotal 32000 and total 30000, got %.2f and %.2f", p.Subtotal, p.Total)
	}
	if len(p.PaymentSchedule) != 2 {
		t.Errorf("expected default two-part schedule, got %d entries", len(p.PaymentSchedule))
	}
	if p.EventFormat != models.FormatInPerson {
		t.Errorf("expected default format in_person, got %q", p.EventFormat)
	}
}

func TestSend(t *testing.T) {
	svc, store, notifier := newTestService(t)
	p := seedProposal(t, store, workflow.ProposalDraft, tomorrow())

	sent, err := svc.Send(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent.Status != workflow.ProposalSent || sent.SentAt == nil {
		t.Errorf("expected sent with timestamp, got %s %v", sent.Status, sent.SentAt)
	}
	if len(notifier.sent) != 1 || notifier.sent[0] != "https://speakabout.ai/proposal/"+p.AccessToken {
		t.Errorf("unexpected notification links %v", notifier.sent)
	}

	if _, err := svc.Send(context.Background(), p.ID); !errors.Is(err, ErrConflict) {
		t.Errorf("expected resend to conflict, got %v", err)
	}
}

func TestLookup(t *testing.T) {
	svc, store, _ := newTestService(t)
	p := seedProposal(t, store, workflow.ProposalSent, tomorrow())

	for _, ref := range []string{p.ID.String(), p.ProposalNumber, p.AccessToken} {
		got, err := svc.Lookup(context.Background(), ref)
		if err != nil {
			t.Errorf("lookup %q: unexpected error %v", ref, err)
			continue
		}
		if got.ID != p.ID {
			t.Errorf("lookup %q: expected %s, got %s", ref, p.ID, got.ID)
		}
	}
}

func TestExpiringSoon(t *testing.T) {
	svc, store, _ := newTestService(t)
	soon := seedProposal(t, store, workflow.ProposalSent, tomorrow())
	seedProposal(t, store, workflow.ProposalSent, workflow.Today(testNow).AddDate(0, 1, 0))
	seedProposal(t, store, workflow.ProposalDraft, tomorrow())

	got, err := svc.ExpiringSoon(context.Background(), 7*24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != soon.ID {
		t.Errorf("expected only the soon-expiring sent proposal, got %d results", len(got))
	}
}
