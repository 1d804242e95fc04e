package app

import (
	"context"
	"time"

	"retroboard/api/internal/events"
	"retroboard/api/internal/store"
)

// Timer control shares the facilitator-only authorization and event shape of
// the rest of the engine. Tick mechanics live in the clients; the server only
// relays control state.

const (
	TimerIdle    = "IDLE"
	TimerRunning = "RUNNING"
	TimerPaused  = "PAUSED"
)

type TimerState struct {
	State     string `json:"state"`
	Seconds   int    `json:"seconds"`
	StartedAt int64  `json:"startedAt,omitempty"`
}

// ControlTimer handles START, PAUSE, RESUME and RESET for a board's shared
// timer. Only a facilitator may drive it.
func (s *Service) ControlTimer(ctx context.Context, slug, participantID, action string, seconds int) (TimerState, error) {
	board, err := s.boardBySlug(ctx, slug)
	if err != nil {
		return TimerState{}, err
	}
	if err := requirePhase(board, store.PhaseWriting, store.PhaseVoting, store.PhaseDiscussion, store.PhaseActionItems); err != nil {
		return TimerState{}, err
	}
	actor, err := s.actingParticipant(ctx, board, participantID)
	if err != nil {
		return TimerState{}, err
	}
	if !actor.IsFacilitator {
		return TimerState{}, forbidden("only a facilitator can control the timer")
	}

	s.timerMu.Lock()
	state := s.timers[board.ID]
	if state.State == "" {
		state.State = TimerIdle
	}
	switch action {
	case "START":
		if seconds <= 0 {
			s.timerMu.Unlock()
			return TimerState{}, badRequest("timer duration must be positive")
		}
		state = TimerState{State: TimerRunning, Seconds: seconds, StartedAt: time.Now().UnixMilli()}
	case "PAUSE":
		if state.State != TimerRunning {
			s.timerMu.Unlock()
			return TimerState{}, badRequest("timer is not running")
		}
		state.State = TimerPaused
	case "RESUME":
		if state.State != TimerPaused {
			s.timerMu.Unlock()
			return TimerState{}, badRequest("timer is not paused")
		}
		state.State = TimerRunning
		state.StartedAt = time.Now().UnixMilli()
	case "RESET":
		state = TimerState{State: TimerIdle}
	default:
		s.timerMu.Unlock()
		return TimerState{}, badRequest("unknown timer action " + action)
	}
	s.timers[board.ID] = state
	s.timerMu.Unlock()

	s.publish(ctx, board.ID, events.TimerUpdated, actor.ID, events.TimerData{
		State:     state.State,
		Seconds:   state.Seconds,
		StartedAt: state.StartedAt,
	})
	return state, nil
}
