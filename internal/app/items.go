package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"retroboard/api/internal/events"
	"retroboard/api/internal/store"
	"retroboard/api/internal/util"
)

func (s *Service) getActionItem(ctx context.Context, itemID string) (store.ActionItem, error) {
	item, err := s.actionItems.GetActionItem(ctx, itemID)
	if errors.Is(err, store.ErrNotFound) {
		return store.ActionItem{}, notFound("action item not found")
	}
	if err != nil {
		return store.ActionItem{}, err
	}
	return item, nil
}

func actionItemEventData(item store.ActionItem) events.ActionItemData {
	return events.ActionItemData{
		ID:         item.ID,
		CardID:     item.CardID,
		Content:    item.Content,
		AssigneeID: item.AssigneeID,
		Status:     item.Status,
		Priority:   item.Priority,
		DueDate:    item.DueDate,
		SortOrder:  item.SortOrder,
	}
}

func validPriority(priority string) bool {
	switch priority {
	case store.PriorityHigh, store.PriorityMedium, store.PriorityLow:
		return true
	}
	return false
}

type CreateActionItemInput struct {
	Content    string     `json:"content"`
	AssigneeID *string    `json:"assigneeId,omitempty"`
	Priority   string     `json:"priority"`
	DueDate    *time.Time `json:"dueDate,omitempty"`
}

func (s *Service) CreateActionItem(ctx context.Context, slug, participantID string, input CreateActionItemInput) (store.ActionItem, error) {
	board, err := s.boardBySlug(ctx, slug)
	if err != nil {
		return store.ActionItem{}, err
	}
	if err := requirePhase(board, store.PhaseActionItems); err != nil {
		return store.ActionItem{}, err
	}
	actor, err := s.actingParticipant(ctx, board, participantID)
	if err != nil {
		return store.ActionItem{}, err
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return store.ActionItem{}, badRequest("action item content is required")
	}
	priority := input.Priority
	if priority == "" {
		priority = store.PriorityMedium
	}
	if !validPriority(priority) {
		return store.ActionItem{}, badRequest("unknown priority " + priority)
	}
	if input.AssigneeID != nil {
		if _, err := s.actingParticipant(ctx, board, *input.AssigneeID); err != nil {
			return store.ActionItem{}, err
		}
	}

	existing, err := s.actionItems.ListActionItems(ctx, board.ID)
	if err != nil {
		return store.ActionItem{}, err
	}
	item := store.ActionItem{
		ID:         util.NewID("act"),
		BoardID:    board.ID,
		Content:    content,
		AssigneeID: input.AssigneeID,
		Status:     store.StatusOpen,
		Priority:   priority,
		DueDate:    input.DueDate,
		SortOrder:  len(existing),
	}
	if err := s.actionItems.InsertActionItem(ctx, item); err != nil {
		return store.ActionItem{}, err
	}
	s.publish(ctx, board.ID, events.ActionItemCreated, actor.ID, actionItemEventData(item))
	return item, nil
}

type UpdateActionItemInput struct {
	Content    *string    `json:"content,omitempty"`
	AssigneeID *string    `json:"assigneeId,omitempty"`
	Priority   *string    `json:"priority,omitempty"`
	DueDate    *time.Time `json:"dueDate,omitempty"`
}

// UpdateActionItem edits content/assignee/priority/due date. Unlike cards and
// memos, the facilitator shares edit rights with the assignee.
func (s *Service) UpdateActionItem(ctx context.Context, slug, itemID, participantID string, input UpdateActionItemInput) (store.ActionItem, error) {
	board, err := s.boardBySlug(ctx, slug)
	if err != nil {
		return store.ActionItem{}, err
	}
	item, err := s.getActionItem(ctx, itemID)
	if err != nil {
		return store.ActionItem{}, err
	}
	if err := sameBoard(board, item.BoardID); err != nil {
		return store.ActionItem{}, err
	}
	if err := requirePhase(board, store.PhaseActionItems); err != nil {
		return store.ActionItem{}, err
	}
	actor, err := s.actingParticipant(ctx, board, participantID)
	if err != nil {
		return store.ActionItem{}, err
	}
	if !canManageActionItem(item, actor) {
		return store.ActionItem{}, forbidden("only the assignee or a facilitator can edit this action item")
	}

	if input.Content != nil {
		content := strings.TrimSpace(*input.Content)
		if content == "" {
			return store.ActionItem{}, badRequest("action item content is required")
		}
		item.Content = content
	}
	if input.AssigneeID != nil {
		if *input.AssigneeID == "" {
			item.AssigneeID = nil
		} else {
			if _, err := s.actingParticipant(ctx, board, *input.AssigneeID); err != nil {
				return store.ActionItem{}, err
			}
			item.AssigneeID = input.AssigneeID
		}
	}
	if input.Priority != nil {
		if !validPriority(*input.Priority) {
			return store.ActionItem{}, badRequest("unknown priority " + *input.Priority)
		}
		item.Priority = *input.Priority
	}
	if input.DueDate != nil {
		item.DueDate = input.DueDate
	}

	if err := s.actionItems.UpdateActionItem(ctx, item); err != nil {
		return store.ActionItem{}, err
	}
	s.publish(ctx, board.ID, events.ActionItemUpdated, actor.ID, actionItemEventData(item))
	return item, nil
}

func (s *Service) UpdateActionItemStatus(ctx context.Context, slug, itemID, participantID, status string) (store.ActionItem, error) {
	board, err := s.boardBySlug(ctx, slug)
	if err != nil {
		return store.ActionItem{}, err
	}
	item, err := s.getActionItem(ctx, itemID)
	if err != nil {
		return store.ActionItem{}, err
	}
	if err := sameBoard(board, item.BoardID); err != nil {
		return store.ActionItem{}, err
	}
	if err := requirePhase(board, store.PhaseActionItems); err != nil {
		return store.ActionItem{}, err
	}
	actor, err := s.actingParticipant(ctx, board, participantID)
	if err != nil {
		return store.ActionItem{}, err
	}
	if !canManageActionItem(item, actor) {
		return store.ActionItem{}, forbidden("only the assignee or a facilitator can change this status")
	}
	if !validStatus(status) {
		return store.ActionItem{}, badRequest("unknown status " + status)
	}

	if err := s.actionItems.UpdateActionItemStatus(ctx, item.ID, status); err != nil {
		return store.ActionItem{}, err
	}
	item.Status = status
	s.publish(ctx, board.ID, events.ActionItemStatusChanged, actor.ID, actionItemEventData(item))
	return item, nil
}

func (s *Service) DeleteActionItem(ctx context.Context, slug, itemID, participantID string) error {
	board, err := s.boardBySlug(ctx, slug)
	if err != nil {
		return err
	}
	item, err := s.getActionItem(ctx, itemID)
	if err != nil {
		return err
	}
	if err := sameBoard(board, item.BoardID); err != nil {
		return err
	}
	if err := requirePhase(board, store.PhaseActionItems); err != nil {
		return err
	}
	actor, err := s.actingParticipant(ctx, board, participantID)
	if err != nil {
		return err
	}
	if !canManageActionItem(item, actor) {
		return forbidden("only the assignee or a facilitator can delete this action item")
	}

	if err := s.actionItems.DeleteActionItem(ctx, item.ID); err != nil {
		return err
	}
	s.publish(ctx, board.ID, events.ActionItemDeleted, actor.ID, events.ActionItemDeletedData{ActionItemID: item.ID})
	return nil
}
