package store

import "time"

// Phase values a board can be in. Transitions are validated by the app layer;
// the store only persists whatever value it is handed.
const (
	PhaseWriting     = "WRITING"
	PhaseVoting      = "VOTING"
	PhaseDiscussion  = "DISCUSSION"
	PhaseActionItems = "ACTION_ITEMS"
	PhaseClosed      = "CLOSED"
)

const (
	StatusOpen       = "OPEN"
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
)

const (
	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
	PriorityLow    = "LOW"
)

type Board struct {
	ID              string
	Slug            string
	Title           string
	Framework       string
	Phase           string
	MaxVotesPerUser int
	IsAnonymous     bool
	TeamName        string
	ClosedAt        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Column struct {
	ID        string
	BoardID   string
	Name      string
	Color     string
	SortOrder int
}

type Card struct {
	ID              string
	BoardID         string
	ColumnID        *string
	Content         string
	AuthorID        *string
	AuthorNickname  string
	SortOrder       int
	IsDiscussed     bool
	DiscussionOrder int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Vote struct {
	ID            string
	BoardID       string
	CardID        string
	ParticipantID string
	CreatedAt     time.Time
}

type Reaction struct {
	ID            string
	BoardID       string
	CardID        string
	ParticipantID string
	Emoji         string
	CreatedAt     time.Time
}

type Memo struct {
	ID             string
	BoardID        string
	CardID         string
	Content        string
	AuthorID       *string
	AuthorNickname string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type ActionItem struct {
	ID         string
	BoardID    string
	CardID     *string
	Content    string
	AssigneeID *string
	Status     string
	Priority   string
	DueDate    *time.Time
	SortOrder  int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Participant struct {
	ID            string
	BoardID       string
	Nickname      string
	IsFacilitator bool
	IsOnline      bool
	CreatedAt     time.Time
}
