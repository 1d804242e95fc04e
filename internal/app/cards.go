package app

import (
	"context"
	"errors"
	"strings"

	"retroboard/api/internal/events"
	"retroboard/api/internal/store"
	"retroboard/api/internal/util"
)

func (s *Service) getCard(ctx context.Context, cardID string) (store.Card, error) {
	card, err := s.cards.GetCard(ctx, cardID)
	if errors.Is(err, store.ErrNotFound) {
		return store.Card{}, notFound("card not found")
	}
	if err != nil {
		return store.Card{}, err
	}
	return card, nil
}

func cardEventData(card store.Card) events.CardData {
	return events.CardData{
		ID:              card.ID,
		ColumnID:        card.ColumnID,
		Content:         card.Content,
		AuthorID:        card.AuthorID,
		AuthorNickname:  card.AuthorNickname,
		SortOrder:       card.SortOrder,
		IsDiscussed:     card.IsDiscussed,
		DiscussionOrder: card.DiscussionOrder,
	}
}

// CreateCard writes a card into a column during the WRITING phase. The author
// nickname is snapshotted so the card survives the participant leaving; on
// anonymous boards the snapshot is a placeholder.
func (s *Service) CreateCard(ctx context.Context, slug, columnID, participantID, content string) (store.Card, error) {
	board, err := s.boardBySlug(ctx, slug)
	if err != nil {
		return store.Card{}, err
	}
	column, err := s.columns.GetColumn(ctx, columnID)
	if errors.Is(err, store.ErrNotFound) {
		return store.Card{}, notFound("column not found")
	}
	if err != nil {
		return store.Card{}, err
	}
	if err := sameBoard(board, column.BoardID); err != nil {
		return store.Card{}, err
	}
	if err := requirePhase(board, store.PhaseWriting); err != nil {
		return store.Card{}, err
	}
	author, err := s.actingParticipant(ctx, board, participantID)
	if err != nil {
		return store.Card{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return store.Card{}, badRequest("card content is required")
	}

	siblings, err := s.cards.ListColumnCards(ctx, column.ID, "")
	if err != nil {
		return store.Card{}, err
	}
	nickname := author.Nickname
	if board.IsAnonymous {
		nickname = "Anonymous"
	}
	columnRef := column.ID
	card := store.Card{
		ID:             util.NewID("crd"),
		BoardID:        board.ID,
		ColumnID:       &columnRef,
		Content:        content,
		AuthorID:       &author.ID,
		AuthorNickname: nickname,
		SortOrder:      len(siblings),
	}
	if err := s.cards.InsertCard(ctx, card); err != nil {
		return store.Card{}, err
	}
	s.publish(ctx, board.ID, events.CardCreated, author.ID, cardEventData(card))
	return card, nil
}

// UpdateCardContent is author-only; even the facilitator cannot rewrite
// someone else's words.
func (s *Service) UpdateCardContent(ctx context.Context, slug, cardID, participantID, content string) (store.Card, error) {
	board, err := s.boardBySlug(ctx, slug)
	if err != nil {
		return store.Card{}, err
	}
	card, err := s.getCard(ctx, cardID)
	if err != nil {
		return store.Card{}, err
	}
	if err := sameBoard(board, card.BoardID); err != nil {
		return store.Card{}, err
	}
	if err := requirePhase(board, store.PhaseWriting, store.PhaseVoting, store.PhaseDiscussion, store.PhaseActionItems); err != nil {
		return store.Card{}, err
	}
	actor, err := s.actingParticipant(ctx, board, participantID)
	if err != nil {
		return store.Card{}, err
	}
	if !canEditCard(card, actor) {
		return store.Card{}, forbidden("only the author can edit this card")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return store.Card{}, badRequest("card content is required")
	}

	if err := s.cards.UpdateCardContent(ctx, card.ID, content); err != nil {
		return store.Card{}, err
	}
	card.Content = content
	s.publish(ctx, board.ID, events.CardUpdated, actor.ID, cardEventData(card))
	return card, nil
}

func (s *Service) DeleteCard(ctx context.Context, slug, cardID, participantID string) error {
	board, err := s.boardBySlug(ctx, slug)
	if err != nil {
		return err
	}
	card, err := s.getCard(ctx, cardID)
	if err != nil {
		return err
	}
	if err := sameBoard(board, card.BoardID); err != nil {
		return err
	}
	if err := requirePhase(board, store.PhaseWriting, store.PhaseVoting, store.PhaseDiscussion, store.PhaseActionItems); err != nil {
		return err
	}
	actor, err := s.actingParticipant(ctx, board, participantID)
	if err != nil {
		return err
	}
	if !canDeleteCard(card, actor) {
		return forbidden("only the author or a facilitator can delete this card")
	}

	if err := s.cards.DeleteCard(ctx, card.ID); err != nil {
		return err
	}
	s.publish(ctx, board.ID, events.CardDeleted, actor.ID, events.CardDeletedData{CardID: card.ID})
	return nil
}

// MoveCard relocates a card per the drag target. overID names either a column
// (append at end) or another card (insert before it). Dropping a card on its
// current position is a no-op: no write, no event.
func (s *Service) MoveCard(ctx context.Context, slug, cardID, overID, participantID string) (store.Card, bool, error) {
	board, err := s.boardBySlug(ctx, slug)
	if err != nil {
		return store.Card{}, false, err
	}
	card, err := s.getCard(ctx, cardID)
	if err != nil {
		return store.Card{}, false, err
	}
	if err := sameBoard(board, card.BoardID); err != nil {
		return store.Card{}, false, err
	}
	if err := requirePhase(board, store.PhaseWriting, store.PhaseVoting, store.PhaseDiscussion, store.PhaseActionItems); err != nil {
		return store.Card{}, false, err
	}
	actor, err := s.actingParticipant(ctx, board, participantID)
	if err != nil {
		return store.Card{}, false, err
	}

	target, err := s.resolveDropTarget(ctx, board, card, overID)
	if err != nil {
		return store.Card{}, false, err
	}
	if isNoopMove(card, target) {
		return card, false, nil
	}

	columnRef := target.ColumnID
	if err := s.cards.UpdateCardPlacement(ctx, board.ID, card.ID, &columnRef, target.SortOrder); err != nil {
		return store.Card{}, false, err
	}
	card.ColumnID = &columnRef
	card.SortOrder = target.SortOrder
	s.publish(ctx, board.ID, events.CardMoved, actor.ID, events.CardMovedData{
		CardID:    card.ID,
		ColumnID:  card.ColumnID,
		SortOrder: card.SortOrder,
	})
	return card, true, nil
}

func (s *Service) resolveDropTarget(ctx context.Context, board store.Board, card store.Card, overID string) (placement, error) {
	column, err := s.columns.GetColumn(ctx, overID)
	if err == nil {
		if err := sameBoard(board, column.BoardID); err != nil {
			return placement{}, err
		}
		siblings, err := s.cards.ListColumnCards(ctx, column.ID, card.ID)
		if err != nil {
			return placement{}, err
		}
		return placeAtColumnEnd(column.ID, siblings), nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return placement{}, err
	}

	overCard, err := s.cards.GetCard(ctx, overID)
	if errors.Is(err, store.ErrNotFound) {
		return placement{}, notFound("drop target not found")
	}
	if err != nil {
		return placement{}, err
	}
	if err := sameBoard(board, overCard.BoardID); err != nil {
		return placement{}, err
	}
	if overCard.ColumnID == nil {
		return placement{}, badRequest("drop target is not in a column")
	}
	siblings, err := s.cards.ListColumnCards(ctx, *overCard.ColumnID, card.ID)
	if err != nil {
		return placement{}, err
	}
	return placeBeforeCard(*overCard.ColumnID, siblings, overCard.ID), nil
}

// MarkCardDiscussed stamps discussion progress during the discussion phases.
// Any participant can advance the discussion cursor.
func (s *Service) MarkCardDiscussed(ctx context.Context, slug, cardID, participantID string, discussed bool, discussionOrder int) (store.Card, error) {
	board, err := s.boardBySlug(ctx, slug)
	if err != nil {
		return store.Card{}, err
	}
	card, err := s.getCard(ctx, cardID)
	if err != nil {
		return store.Card{}, err
	}
	if err := sameBoard(board, card.BoardID); err != nil {
		return store.Card{}, err
	}
	if err := requirePhase(board, store.PhaseDiscussion, store.PhaseActionItems); err != nil {
		return store.Card{}, err
	}
	actor, err := s.actingParticipant(ctx, board, participantID)
	if err != nil {
		return store.Card{}, err
	}

	if err := s.cards.SetCardDiscussed(ctx, card.ID, discussed, discussionOrder); err != nil {
		return store.Card{}, err
	}
	card.IsDiscussed = discussed
	card.DiscussionOrder = discussionOrder
	s.publish(ctx, board.ID, events.CardUpdated, actor.ID, cardEventData(card))
	return card, nil
}

// ConvertCardToActionItem creates an action item sourced from a card while it
// is being discussed. The card itself is untouched.
func (s *Service) ConvertCardToActionItem(ctx context.Context, slug, cardID, participantID string, assigneeID *string) (store.ActionItem, error) {
	board, err := s.boardBySlug(ctx, slug)
	if err != nil {
		return store.ActionItem{}, err
	}
	card, err := s.getCard(ctx, cardID)
	if err != nil {
		return store.ActionItem{}, err
	}
	if err := sameBoard(board, card.BoardID); err != nil {
		return store.ActionItem{}, err
	}
	if err := requirePhase(board, store.PhaseDiscussion, store.PhaseActionItems); err != nil {
		return store.ActionItem{}, err
	}
	actor, err := s.actingParticipant(ctx, board, participantID)
	if err != nil {
		return store.ActionItem{}, err
	}
	if assigneeID != nil {
		if _, err := s.actingParticipant(ctx, board, *assigneeID); err != nil {
			return store.ActionItem{}, err
		}
	}

	existing, err := s.actionItems.ListActionItems(ctx, board.ID)
	if err != nil {
		return store.ActionItem{}, err
	}
	cardRef := card.ID
	item := store.ActionItem{
		ID:         util.NewID("act"),
		BoardID:    board.ID,
		CardID:     &cardRef,
		Content:    card.Content,
		AssigneeID: assigneeID,
		Status:     store.StatusOpen,
		Priority:   store.PriorityMedium,
		SortOrder:  len(existing),
	}
	if err := s.actionItems.InsertActionItem(ctx, item); err != nil {
		return store.ActionItem{}, err
	}
	s.publish(ctx, board.ID, events.ActionItemCreated, actor.ID, actionItemEventData(item))
	return item, nil
}
