package app

import (
	"context"
	"testing"

	"retroboard/api/internal/events"
	"retroboard/api/internal/store"
)

func TestTimerIsFacilitatorOnly(t *testing.T) {
	svc, fs, _ := newTestService()
	seedBoard(fs, store.PhaseWriting)

	_, err := svc.ControlTimer(context.Background(), "sprint-12", "p1", "START", 300)
	wantDomainError(t, err, 403)
}

func TestTimerStateMachine(t *testing.T) {
	svc, fs, broker := newTestService()
	seedBoard(fs, store.PhaseWriting)
	rec := &eventRecorder{}
	cancel := broker.Subscribe("b1", rec.handle)
	defer cancel()

	// PAUSE before START is invalid.
	_, err := svc.ControlTimer(context.Background(), "sprint-12", "p-fac", "PAUSE", 0)
	wantDomainError(t, err, 400)

	state, err := svc.ControlTimer(context.Background(), "sprint-12", "p-fac", "START", 300)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if state.State != TimerRunning || state.Seconds != 300 || state.StartedAt == 0 {
		t.Fatalf("state = %+v", state)
	}

	if state, err = svc.ControlTimer(context.Background(), "sprint-12", "p-fac", "PAUSE", 0); err != nil || state.State != TimerPaused {
		t.Fatalf("pause: %v %+v", err, state)
	}
	if state, err = svc.ControlTimer(context.Background(), "sprint-12", "p-fac", "RESUME", 0); err != nil || state.State != TimerRunning {
		t.Fatalf("resume: %v %+v", err, state)
	}
	if state, err = svc.ControlTimer(context.Background(), "sprint-12", "p-fac", "RESET", 0); err != nil || state.State != TimerIdle {
		t.Fatalf("reset: %v %+v", err, state)
	}

	_, err = svc.ControlTimer(context.Background(), "sprint-12", "p-fac", "START", 0)
	wantDomainError(t, err, 400)

	_, err = svc.ControlTimer(context.Background(), "sprint-12", "p-fac", "FLIP", 0)
	wantDomainError(t, err, 400)

	if rec.count(events.TimerUpdated) != 4 {
		t.Fatalf("timer events = %d, want 4", rec.count(events.TimerUpdated))
	}
}

func TestTimerClosedBoard(t *testing.T) {
	svc, fs, _ := newTestService()
	seedBoard(fs, store.PhaseClosed)

	_, err := svc.ControlTimer(context.Background(), "sprint-12", "p-fac", "START", 300)
	wantDomainError(t, err, 400)
}
