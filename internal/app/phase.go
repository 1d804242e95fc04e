package app

import (
	"context"
	"time"

	"retroboard/api/internal/events"
	"retroboard/api/internal/store"
)

// phaseSuccessor is the full transition table. Phases advance forward only,
// one step at a time; CLOSED has no successor.
var phaseSuccessor = map[string]string{
	store.PhaseWriting:     store.PhaseVoting,
	store.PhaseVoting:      store.PhaseDiscussion,
	store.PhaseDiscussion:  store.PhaseActionItems,
	store.PhaseActionItems: store.PhaseClosed,
}

func requirePhase(board store.Board, phases ...string) error {
	for _, phase := range phases {
		if board.Phase == phase {
			return nil
		}
	}
	return badRequest("operation not allowed in phase " + board.Phase)
}

// CloseListener is notified after a board reaches CLOSED. Snapshot capture,
// export and analytics collaborators hang off this hook.
type CloseListener interface {
	BoardClosed(ctx context.Context, board store.Board, unfinished []store.ActionItem)
}

// AdvancePhase moves the board to the requested phase. Only a facilitator may
// advance, and only to the single statically-defined successor of the current
// phase; everything else is a BadRequest.
func (s *Service) AdvancePhase(ctx context.Context, slug, participantID, requestedPhase string) (store.Board, error) {
	board, err := s.boardBySlug(ctx, slug)
	if err != nil {
		return store.Board{}, err
	}
	actor, err := s.actingParticipant(ctx, board, participantID)
	if err != nil {
		return store.Board{}, err
	}
	if !actor.IsFacilitator {
		return store.Board{}, forbidden("only a facilitator can advance the phase")
	}

	successor, ok := phaseSuccessor[board.Phase]
	if !ok {
		return store.Board{}, badRequest("board is closed")
	}
	if requestedPhase != successor {
		return store.Board{}, badRequest("phase can only advance from " + board.Phase + " to " + successor)
	}

	var closedAt *time.Time
	if successor == store.PhaseClosed {
		now := time.Now().UTC()
		closedAt = &now
	}
	if err := s.boards.UpdateBoardPhase(ctx, board.ID, successor, closedAt); err != nil {
		return store.Board{}, err
	}
	board.Phase = successor
	board.ClosedAt = closedAt

	s.publish(ctx, board.ID, events.PhaseChanged, actor.ID, events.PhaseData{
		Phase:    board.Phase,
		ClosedAt: closedAt,
	})

	if successor == store.PhaseClosed {
		s.notifyClosed(ctx, board)
	}
	return board, nil
}

func (s *Service) notifyClosed(ctx context.Context, board store.Board) {
	unfinished, err := s.actionItems.ListUnfinishedActionItems(ctx, board.ID)
	if err != nil {
		s.logf("list unfinished action items for close hooks: %v", err)
		unfinished = nil
	}
	for _, listener := range s.closeListeners {
		listener.BoardClosed(ctx, board, unfinished)
	}
}
