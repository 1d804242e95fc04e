package app

import (
	"context"
	"errors"
	"strings"

	"retroboard/api/internal/events"
	"retroboard/api/internal/store"
	"retroboard/api/internal/util"
)

func (s *Service) getMemo(ctx context.Context, memoID string) (store.Memo, error) {
	memo, err := s.memos.GetMemo(ctx, memoID)
	if errors.Is(err, store.ErrNotFound) {
		return store.Memo{}, notFound("memo not found")
	}
	if err != nil {
		return store.Memo{}, err
	}
	return memo, nil
}

func memoEventData(memo store.Memo) events.MemoData {
	return events.MemoData{
		ID:             memo.ID,
		CardID:         memo.CardID,
		Content:        memo.Content,
		AuthorID:       memo.AuthorID,
		AuthorNickname: memo.AuthorNickname,
	}
}

// CreateMemo records a discussion note on a card. Memos open up once the
// board enters the discussion phases.
func (s *Service) CreateMemo(ctx context.Context, slug, cardID, participantID, content string) (store.Memo, error) {
	board, err := s.boardBySlug(ctx, slug)
	if err != nil {
		return store.Memo{}, err
	}
	card, err := s.getCard(ctx, cardID)
	if err != nil {
		return store.Memo{}, err
	}
	if err := sameBoard(board, card.BoardID); err != nil {
		return store.Memo{}, err
	}
	if err := requirePhase(board, store.PhaseDiscussion, store.PhaseActionItems); err != nil {
		return store.Memo{}, err
	}
	author, err := s.actingParticipant(ctx, board, participantID)
	if err != nil {
		return store.Memo{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return store.Memo{}, badRequest("memo content is required")
	}

	memo := store.Memo{
		ID:             util.NewID("mmo"),
		BoardID:        board.ID,
		CardID:         card.ID,
		Content:        content,
		AuthorID:       &author.ID,
		AuthorNickname: author.Nickname,
	}
	if err := s.memos.InsertMemo(ctx, memo); err != nil {
		return store.Memo{}, err
	}
	s.publish(ctx, board.ID, events.MemoCreated, author.ID, memoEventData(memo))
	return memo, nil
}

func (s *Service) UpdateMemoContent(ctx context.Context, slug, memoID, participantID, content string) (store.Memo, error) {
	board, err := s.boardBySlug(ctx, slug)
	if err != nil {
		return store.Memo{}, err
	}
	memo, err := s.getMemo(ctx, memoID)
	if err != nil {
		return store.Memo{}, err
	}
	if err := sameBoard(board, memo.BoardID); err != nil {
		return store.Memo{}, err
	}
	if err := requirePhase(board, store.PhaseDiscussion, store.PhaseActionItems); err != nil {
		return store.Memo{}, err
	}
	actor, err := s.actingParticipant(ctx, board, participantID)
	if err != nil {
		return store.Memo{}, err
	}
	if !canEditMemo(memo, actor) {
		return store.Memo{}, forbidden("only the author can edit this memo")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return store.Memo{}, badRequest("memo content is required")
	}

	if err := s.memos.UpdateMemoContent(ctx, memo.ID, content); err != nil {
		return store.Memo{}, err
	}
	memo.Content = content
	s.publish(ctx, board.ID, events.MemoUpdated, actor.ID, memoEventData(memo))
	return memo, nil
}

func (s *Service) DeleteMemo(ctx context.Context, slug, memoID, participantID string) error {
	board, err := s.boardBySlug(ctx, slug)
	if err != nil {
		return err
	}
	memo, err := s.getMemo(ctx, memoID)
	if err != nil {
		return err
	}
	if err := sameBoard(board, memo.BoardID); err != nil {
		return err
	}
	if err := requirePhase(board, store.PhaseDiscussion, store.PhaseActionItems); err != nil {
		return err
	}
	actor, err := s.actingParticipant(ctx, board, participantID)
	if err != nil {
		return err
	}
	if !canDeleteMemo(memo, actor) {
		return forbidden("only the author or a facilitator can delete this memo")
	}

	if err := s.memos.DeleteMemo(ctx, memo.ID); err != nil {
		return err
	}
	s.publish(ctx, board.ID, events.MemoDeleted, actor.ID, events.MemoDeletedData{
		MemoID: memo.ID,
		CardID: memo.CardID,
	})
	return nil
}
