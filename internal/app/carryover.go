package app

import (
	"context"
	"errors"
	"time"

	"retroboard/api/internal/events"
	"retroboard/api/internal/store"
)

// CarryOverItem is an unfinished action item from the team's previous session,
// stamped with where it came from. It is derived, never persisted.
type CarryOverItem struct {
	Item             store.ActionItem `json:"item"`
	SourceBoardID    string           `json:"sourceBoardId"`
	SourceBoardTitle string           `json:"sourceBoardTitle"`
	SourceClosedAt   time.Time        `json:"sourceClosedAt"`
}

// CarryOverItems selects the non-DONE action items of the most recent closed
// board sharing this board's team name. Boards without a team name never see
// carryover. Selection and stamping only; the source items stay untouched.
func (s *Service) CarryOverItems(ctx context.Context, slug string) ([]CarryOverItem, error) {
	board, err := s.boardBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if board.TeamName == "" {
		return []CarryOverItem{}, nil
	}
	source, err := s.boards.LatestClosedBoardByTeam(ctx, board.TeamName, board.ID)
	if errors.Is(err, store.ErrNotFound) {
		return []CarryOverItem{}, nil
	}
	if err != nil {
		return nil, err
	}

	unfinished, err := s.actionItems.ListUnfinishedActionItems(ctx, source.ID)
	if err != nil {
		return nil, err
	}

	items := make([]CarryOverItem, 0, len(unfinished))
	for _, item := range unfinished {
		stamped := CarryOverItem{
			Item:          item,
			SourceBoardID: source.ID,
		}
		stamped.SourceBoardTitle = source.Title
		if source.ClosedAt != nil {
			stamped.SourceClosedAt = *source.ClosedAt
		}
		items = append(items, stamped)
	}
	return items, nil
}

// UpdateCarryOverStatus lets the new session's facilitator move a carried-over
// item through its statuses even though the source board is closed. The item
// must belong to the board the carryover was selected from.
func (s *Service) UpdateCarryOverStatus(ctx context.Context, slug, itemID, participantID, status string) (store.ActionItem, error) {
	board, err := s.boardBySlug(ctx, slug)
	if err != nil {
		return store.ActionItem{}, err
	}
	item, err := s.actionItems.GetActionItem(ctx, itemID)
	if errors.Is(err, store.ErrNotFound) {
		return store.ActionItem{}, notFound("action item not found")
	}
	if err != nil {
		return store.ActionItem{}, err
	}
	if board.TeamName == "" {
		return store.ActionItem{}, badRequest("board has no team; nothing carries over")
	}
	source, err := s.boards.LatestClosedBoardByTeam(ctx, board.TeamName, board.ID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && item.BoardID != source.ID) {
		return store.ActionItem{}, badRequest("action item is not part of this team's carryover")
	}
	if err != nil {
		return store.ActionItem{}, err
	}
	if !validStatus(status) {
		return store.ActionItem{}, badRequest("unknown status " + status)
	}
	actor, err := s.actingParticipant(ctx, board, participantID)
	if err != nil {
		return store.ActionItem{}, err
	}
	if !actor.IsFacilitator {
		return store.ActionItem{}, forbidden("only a facilitator can update carryover items")
	}

	if err := s.actionItems.UpdateActionItemStatus(ctx, item.ID, status); err != nil {
		return store.ActionItem{}, err
	}
	item.Status = status

	// Broadcast on the new session's channel so its subscribers see the change.
	s.publish(ctx, board.ID, events.ActionItemStatusChanged, actor.ID, events.ActionItemData{
		ID:         item.ID,
		CardID:     item.CardID,
		Content:    item.Content,
		AssigneeID: item.AssigneeID,
		Status:     item.Status,
		Priority:   item.Priority,
		DueDate:    item.DueDate,
		SortOrder:  item.SortOrder,
	})
	return item, nil
}

func validStatus(status string) bool {
	switch status {
	case store.StatusOpen, store.StatusInProgress, store.StatusDone:
		return true
	}
	return false
}
