package app

import (
	"context"
	"errors"

	"retroboard/api/internal/store"
)

// The guard check order is fixed across every mutating operation:
//
//	1. board exists            -> NotFound
//	2. target entity exists    -> NotFound
//	3. entity board matches    -> BadRequest
//	4. phase permits operation -> BadRequest
//	5. acting participant      -> NotFound (BadRequest when cross-board)
//	6. capability tier         -> Forbidden
//
// Callers compose the pieces below in that order.

func (s *Service) boardBySlug(ctx context.Context, slug string) (store.Board, error) {
	board, err := s.boards.GetBoardBySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		return store.Board{}, notFound("board not found")
	}
	if err != nil {
		return store.Board{}, err
	}
	return board, nil
}

func (s *Service) actingParticipant(ctx context.Context, board store.Board, participantID string) (store.Participant, error) {
	participant, err := s.participants.GetParticipant(ctx, participantID)
	if errors.Is(err, store.ErrNotFound) {
		return store.Participant{}, notFound("participant not found")
	}
	if err != nil {
		return store.Participant{}, err
	}
	if participant.BoardID != board.ID {
		return store.Participant{}, badRequest("participant belongs to a different board")
	}
	return participant, nil
}

func sameBoard(board store.Board, entityBoardID string) error {
	if entityBoardID != board.ID {
		return badRequest("entity belongs to a different board")
	}
	return nil
}

// Capability tiers. Card and memo content edits are author-only; deletes admit
// the facilitator. Action items use the wider assignee-or-facilitator tier for
// every mutation.

func isAuthor(authorID *string, participant store.Participant) bool {
	return authorID != nil && *authorID == participant.ID
}

func canEditCard(card store.Card, participant store.Participant) bool {
	return isAuthor(card.AuthorID, participant)
}

func canDeleteCard(card store.Card, participant store.Participant) bool {
	return isAuthor(card.AuthorID, participant) || participant.IsFacilitator
}

func canEditMemo(memo store.Memo, participant store.Participant) bool {
	return isAuthor(memo.AuthorID, participant)
}

func canDeleteMemo(memo store.Memo, participant store.Participant) bool {
	return isAuthor(memo.AuthorID, participant) || participant.IsFacilitator
}

func canManageActionItem(item store.ActionItem, participant store.Participant) bool {
	if participant.IsFacilitator {
		return true
	}
	return item.AssigneeID != nil && *item.AssigneeID == participant.ID
}
