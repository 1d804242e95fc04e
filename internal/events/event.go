// Package events defines the typed event envelope emitted once per successful
// board mutation, and the broker that fans events out to every session
// subscribed to a board. Delivery is at-least-once with no strict ordering, so
// consumers must apply events idempotently.
package events

import (
	"encoding/json"
	"time"
)

type Type string

const (
	CardCreated Type = "card-created"
	CardUpdated Type = "card-updated"
	CardDeleted Type = "card-deleted"
	CardMoved   Type = "card-moved"

	VoteAdded   Type = "vote-added"
	VoteRemoved Type = "vote-removed"

	ReactionAdded   Type = "reaction-added"
	ReactionRemoved Type = "reaction-removed"

	MemoCreated Type = "memo-created"
	MemoUpdated Type = "memo-updated"
	MemoDeleted Type = "memo-deleted"

	ActionItemCreated       Type = "action-item-created"
	ActionItemUpdated       Type = "action-item-updated"
	ActionItemDeleted       Type = "action-item-deleted"
	ActionItemStatusChanged Type = "action-item-status-changed"

	PhaseChanged Type = "phase-changed"

	ParticipantJoined  Type = "participant-joined"
	ParticipantOnline  Type = "participant-online"
	ParticipantOffline Type = "participant-offline"

	TimerUpdated Type = "timer-updated"
)

// Event is the wire envelope. ParticipantID identifies the actor that caused
// the mutation; vote events use it to scope quota adjustments on the client.
type Event struct {
	ID            string          `json:"id"`
	BoardID       string          `json:"boardId"`
	Type          Type            `json:"type"`
	ParticipantID string          `json:"participantId,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
	Time          int64           `json:"time"`
}

// Payloads. Each carries the minimal delta a reducer needs.

type CardData struct {
	ID              string  `json:"id"`
	ColumnID        *string `json:"columnId"`
	Content         string  `json:"content"`
	AuthorID        *string `json:"authorId,omitempty"`
	AuthorNickname  string  `json:"authorNickname"`
	SortOrder       int     `json:"sortOrder"`
	IsDiscussed     bool    `json:"isDiscussed"`
	DiscussionOrder int     `json:"discussionOrder"`
}

type CardMovedData struct {
	CardID    string  `json:"cardId"`
	ColumnID  *string `json:"columnId"`
	SortOrder int     `json:"sortOrder"`
}

type CardDeletedData struct {
	CardID string `json:"cardId"`
}

type VoteData struct {
	VoteID        string `json:"voteId"`
	CardID        string `json:"cardId"`
	ParticipantID string `json:"participantId"`
}

type ReactionData struct {
	ReactionID    string `json:"reactionId"`
	CardID        string `json:"cardId"`
	ParticipantID string `json:"participantId"`
	Emoji         string `json:"emoji"`
}

type MemoData struct {
	ID             string  `json:"id"`
	CardID         string  `json:"cardId"`
	Content        string  `json:"content"`
	AuthorID       *string `json:"authorId,omitempty"`
	AuthorNickname string  `json:"authorNickname"`
}

type MemoDeletedData struct {
	MemoID string `json:"memoId"`
	CardID string `json:"cardId"`
}

type ActionItemData struct {
	ID         string     `json:"id"`
	CardID     *string    `json:"cardId,omitempty"`
	Content    string     `json:"content"`
	AssigneeID *string    `json:"assigneeId,omitempty"`
	Status     string     `json:"status"`
	Priority   string     `json:"priority"`
	DueDate    *time.Time `json:"dueDate,omitempty"`
	SortOrder  int        `json:"sortOrder"`
}

type ActionItemDeletedData struct {
	ActionItemID string `json:"actionItemId"`
}

type PhaseData struct {
	Phase    string     `json:"phase"`
	ClosedAt *time.Time `json:"closedAt,omitempty"`
}

type ParticipantData struct {
	ID            string `json:"id"`
	Nickname      string `json:"nickname"`
	IsFacilitator bool   `json:"isFacilitator"`
	IsOnline      bool   `json:"isOnline"`
}

type TimerData struct {
	State     string `json:"state"`
	Seconds   int    `json:"seconds"`
	StartedAt int64  `json:"startedAt,omitempty"`
}

// Marshal wraps a payload into a raw message; a payload that cannot marshal is
// a programming error, so the failure surfaces to the caller.
func Marshal(payload any) (json.RawMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return data, nil
}
