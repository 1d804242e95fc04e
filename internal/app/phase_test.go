package app

import (
	"context"
	"sync"
	"testing"

	"retroboard/api/internal/events"
	"retroboard/api/internal/store"
)

type recordingCloseListener struct {
	mu         sync.Mutex
	boards     []store.Board
	unfinished [][]store.ActionItem
}

func (l *recordingCloseListener) BoardClosed(_ context.Context, board store.Board, unfinished []store.ActionItem) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.boards = append(l.boards, board)
	l.unfinished = append(l.unfinished, unfinished)
}

func TestAdvancePhaseFollowsTheLadder(t *testing.T) {
	svc, fs, broker := newTestService()
	seedBoard(fs, store.PhaseWriting)
	rec := &eventRecorder{}
	cancel := broker.Subscribe("b1", rec.handle)
	defer cancel()

	steps := []string{store.PhaseVoting, store.PhaseDiscussion, store.PhaseActionItems, store.PhaseClosed}
	for _, next := range steps {
		board, err := svc.AdvancePhase(context.Background(), "sprint-12", "p-fac", next)
		if err != nil {
			t.Fatalf("advance to %s: %v", next, err)
		}
		if board.Phase != next {
			t.Fatalf("phase = %s, want %s", board.Phase, next)
		}
	}
	if rec.count(events.PhaseChanged) != len(steps) {
		t.Fatalf("expected %d phase-changed events, got %d", len(steps), rec.count(events.PhaseChanged))
	}

	board, _ := fs.GetBoard(context.Background(), "b1")
	if board.ClosedAt == nil {
		t.Fatal("closing must stamp closedAt")
	}
}

func TestAdvancePhaseRejectsSkipsAndBackwardMoves(t *testing.T) {
	svc, fs, _ := newTestService()
	seedBoard(fs, store.PhaseWriting)

	// Scenario: WRITING -> DISCUSSION skips VOTING.
	_, err := svc.AdvancePhase(context.Background(), "sprint-12", "p-fac", store.PhaseDiscussion)
	wantDomainError(t, err, 400)

	_, err = svc.AdvancePhase(context.Background(), "sprint-12", "p-fac", store.PhaseWriting)
	wantDomainError(t, err, 400)
}

func TestAdvancePhaseClosedIsTerminal(t *testing.T) {
	svc, fs, _ := newTestService()
	seedBoard(fs, store.PhaseClosed)

	for _, target := range []string{store.PhaseWriting, store.PhaseVoting, store.PhaseDiscussion, store.PhaseActionItems, store.PhaseClosed} {
		_, err := svc.AdvancePhase(context.Background(), "sprint-12", "p-fac", target)
		wantDomainError(t, err, 400)
	}
}

func TestAdvancePhaseIsFacilitatorOnly(t *testing.T) {
	svc, fs, _ := newTestService()
	seedBoard(fs, store.PhaseWriting)

	_, err := svc.AdvancePhase(context.Background(), "sprint-12", "p1", store.PhaseVoting)
	wantDomainError(t, err, 403)
}

func TestAdvancePhaseGuardOrdering(t *testing.T) {
	svc, fs, _ := newTestService()
	seedBoard(fs, store.PhaseWriting)
	fs.putBoard(store.Board{ID: "b2", Slug: "other", Phase: store.PhaseWriting})
	fs.putParticipant(store.Participant{ID: "p-other", BoardID: "b2", IsFacilitator: true})

	// Missing board wins over everything else.
	_, err := svc.AdvancePhase(context.Background(), "nope", "p-fac", store.PhaseVoting)
	wantDomainError(t, err, 404)

	// Unknown participant.
	_, err = svc.AdvancePhase(context.Background(), "sprint-12", "ghost", store.PhaseVoting)
	wantDomainError(t, err, 404)

	// Cross-board participant is a bad request, not a missing one.
	_, err = svc.AdvancePhase(context.Background(), "sprint-12", "p-other", store.PhaseVoting)
	wantDomainError(t, err, 400)
}

func TestClosingNotifiesListenersWithUnfinishedItems(t *testing.T) {
	svc, fs, _ := newTestService()
	seedBoard(fs, store.PhaseActionItems)
	fs.putItem(store.ActionItem{ID: "a1", BoardID: "b1", Content: "fix CI", Status: store.StatusOpen})
	fs.putItem(store.ActionItem{ID: "a2", BoardID: "b1", Content: "done already", Status: store.StatusDone})
	fs.putItem(store.ActionItem{ID: "a3", BoardID: "b1", Content: "pair more", Status: store.StatusInProgress})

	listener := &recordingCloseListener{}
	svc.AddCloseListener(listener)

	if _, err := svc.AdvancePhase(context.Background(), "sprint-12", "p-fac", store.PhaseClosed); err != nil {
		t.Fatalf("close: %v", err)
	}

	if len(listener.boards) != 1 {
		t.Fatalf("listener called %d times, want 1", len(listener.boards))
	}
	if len(listener.unfinished[0]) != 2 {
		t.Fatalf("unfinished = %d items, want 2 (DONE excluded)", len(listener.unfinished[0]))
	}
}
