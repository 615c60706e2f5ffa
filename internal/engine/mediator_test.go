package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alchemi/discovery-orchestrator/internal/domain"
)

func TestMediator_QueueBound(t *testing.T) {
	med := NewMediator(&scriptTranslator{}, time.Second, 3)

	for i := 0; i < 3; i++ {
		if _, err := med.Submit(fmt.Sprintf("request %d", i)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := med.Submit("one too many"); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Submit past bound = %v, want ErrQueueFull", err)
	}

	// Review drains the queue, freeing capacity
	med.ProcessQueued(context.Background(), domain.PhaseResearch)
	if _, err := med.Submit("fits again"); err != nil {
		t.Errorf("Submit after review = %v, want nil", err)
	}
}

func TestMediator_ReviewOrderAndStatuses(t *testing.T) {
	med := NewMediator(&scriptTranslator{}, time.Second, 10)

	med.Submit("first")
	med.Submit("second")

	hints, rejected := med.ProcessQueued(context.Background(), domain.PhaseHypothesis)
	if len(rejected) != 0 {
		t.Fatalf("rejected = %d, want 0", len(rejected))
	}
	want := []string{"user request: first", "user request: second"}
	if len(hints) != 2 || hints[0] != want[0] || hints[1] != want[1] {
		t.Fatalf("hints = %v, want %v (FIFO order)", hints, want)
	}

	for _, cr := range med.Requests() {
		if cr.Status != domain.ChangeApplied {
			t.Errorf("request %q status = %s, want %s", cr.Text, cr.Status, domain.ChangeApplied)
		}
		if len(cr.Hints) == 0 {
			t.Errorf("request %q carries no hints", cr.Text)
		}
	}
}

func TestMediator_TranslationFailureRejectsOnlyThatRequest(t *testing.T) {
	med := NewMediator(&scriptTranslator{fail: true}, time.Second, 10)
	cr, err := med.Submit("untranslatable")
	if err != nil {
		t.Fatal(err)
	}

	hints, rejected := med.ProcessQueued(context.Background(), domain.PhaseResearch)
	if len(hints) != 0 {
		t.Errorf("hints = %v, want none", hints)
	}
	if len(rejected) != 1 {
		t.Fatalf("rejected = %d, want 1", len(rejected))
	}
	var te *TranslationError
	if !errors.As(rejected[0].Err, &te) || te.RequestID != cr.ID {
		t.Errorf("rejection error = %v, want TranslationError for %s", rejected[0].Err, cr.ID)
	}

	got := med.Requests()
	if len(got) != 1 || got[0].Status != domain.ChangeRejected {
		t.Fatalf("requests = %+v, want one rejected", got)
	}
}
