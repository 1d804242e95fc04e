package app

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"retroboard/api/internal/config"
	"retroboard/api/internal/events"
	"retroboard/api/internal/store"
	"retroboard/api/internal/util"
)

// Ports, one per aggregate. The Postgres store implements all of them; tests
// substitute narrow fakes.

type BoardStore interface {
	CreateBoard(ctx context.Context, board store.Board, columns []store.Column, facilitator store.Participant) error
	GetBoard(ctx context.Context, boardID string) (store.Board, error)
	GetBoardBySlug(ctx context.Context, slug string) (store.Board, error)
	UpdateBoardPhase(ctx context.Context, boardID, phase string, closedAt *time.Time) error
	LatestClosedBoardByTeam(ctx context.Context, teamName, excludeID string) (store.Board, error)
}

type ColumnStore interface {
	GetColumn(ctx context.Context, columnID string) (store.Column, error)
	ListColumns(ctx context.Context, boardID string) ([]store.Column, error)
}

type ParticipantStore interface {
	CreateParticipant(ctx context.Context, participant store.Participant) error
	GetParticipant(ctx context.Context, participantID string) (store.Participant, error)
	ListParticipants(ctx context.Context, boardID string) ([]store.Participant, error)
	SetParticipantOnline(ctx context.Context, participantID string, online bool) error
}

type CardStore interface {
	InsertCard(ctx context.Context, card store.Card) error
	GetCard(ctx context.Context, cardID string) (store.Card, error)
	ListCards(ctx context.Context, boardID string) ([]store.Card, error)
	ListColumnCards(ctx context.Context, columnID, excludeCardID string) ([]store.Card, error)
	UpdateCardContent(ctx context.Context, cardID, content string) error
	UpdateCardPlacement(ctx context.Context, boardID, cardID string, columnID *string, sortOrder int) error
	SetCardDiscussed(ctx context.Context, cardID string, discussed bool, discussionOrder int) error
	DeleteCard(ctx context.Context, cardID string) error
}

type VoteStore interface {
	InsertVote(ctx context.Context, vote store.Vote, maxVotes int) error
	GetVote(ctx context.Context, cardID, participantID string) (store.Vote, error)
	DeleteVote(ctx context.Context, voteID string) error
	CountVotes(ctx context.Context, boardID, participantID string) (int, error)
	ListVotes(ctx context.Context, boardID string) ([]store.Vote, error)
}

type ReactionStore interface {
	InsertReaction(ctx context.Context, reaction store.Reaction) error
	GetReaction(ctx context.Context, cardID, participantID, emoji string) (store.Reaction, error)
	DeleteReaction(ctx context.Context, reactionID string) error
	ListReactions(ctx context.Context, boardID string) ([]store.Reaction, error)
}

type MemoStore interface {
	InsertMemo(ctx context.Context, memo store.Memo) error
	GetMemo(ctx context.Context, memoID string) (store.Memo, error)
	UpdateMemoContent(ctx context.Context, memoID, content string) error
	DeleteMemo(ctx context.Context, memoID string) error
	ListMemos(ctx context.Context, boardID string) ([]store.Memo, error)
}

type ActionItemStore interface {
	InsertActionItem(ctx context.Context, item store.ActionItem) error
	GetActionItem(ctx context.Context, itemID string) (store.ActionItem, error)
	UpdateActionItem(ctx context.Context, item store.ActionItem) error
	UpdateActionItemStatus(ctx context.Context, itemID, status string) error
	DeleteActionItem(ctx context.Context, itemID string) error
	ListActionItems(ctx context.Context, boardID string) ([]store.ActionItem, error)
	ListUnfinishedActionItems(ctx context.Context, boardID string) ([]store.ActionItem, error)
}

// Stores bundles the aggregate ports for construction.
type Stores struct {
	Boards       BoardStore
	Columns      ColumnStore
	Participants ParticipantStore
	Cards        CardStore
	Votes        VoteStore
	Reactions    ReactionStore
	Memos        MemoStore
	ActionItems  ActionItemStore
}

type pinger interface {
	Ping(ctx context.Context) error
}

type Service struct {
	cfg            config.Config
	boards         BoardStore
	columns        ColumnStore
	participants   ParticipantStore
	cards          CardStore
	votes          VoteStore
	reactions      ReactionStore
	memos          MemoStore
	actionItems    ActionItemStore
	broker         events.Broker
	db             pinger
	closeListeners []CloseListener

	timerMu sync.Mutex
	timers  map[string]TimerState
}

func New(cfg config.Config, stores Stores, broker events.Broker) *Service {
	return &Service{
		cfg:          cfg,
		boards:       stores.Boards,
		columns:      stores.Columns,
		participants: stores.Participants,
		cards:        stores.Cards,
		votes:        stores.Votes,
		reactions:    stores.Reactions,
		memos:        stores.Memos,
		actionItems:  stores.ActionItems,
		broker:       broker,
		timers:       make(map[string]TimerState),
	}
}

// NewWithStore wires every port to the one persistent store.
func NewWithStore(cfg config.Config, dataStore *store.PostgresStore, broker events.Broker) *Service {
	service := New(cfg, Stores{
		Boards:       dataStore,
		Columns:      dataStore,
		Participants: dataStore,
		Cards:        dataStore,
		Votes:        dataStore,
		Reactions:    dataStore,
		Memos:        dataStore,
		ActionItems:  dataStore,
	}, broker)
	service.db = dataStore
	return service
}

// AddCloseListener registers a collaborator notified when a board closes.
func (s *Service) AddCloseListener(listener CloseListener) {
	s.closeListeners = append(s.closeListeners, listener)
}

func (s *Service) Ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Ping(ctx)
}

func (s *Service) logf(format string, args ...any) {
	log.Printf(format, args...)
}

// publish emits exactly one event for a successful mutation. Broadcast is
// best-effort: a delivery failure never fails the mutation.
func (s *Service) publish(ctx context.Context, boardID string, eventType events.Type, actorID string, payload any) {
	data, err := events.Marshal(payload)
	if err != nil {
		s.logf("marshal %s event: %v", eventType, err)
		return
	}
	event := events.Event{
		ID:            util.NewID("evt"),
		BoardID:       boardID,
		Type:          eventType,
		ParticipantID: actorID,
		Data:          data,
		Time:          time.Now().UnixMilli(),
	}
	if err := s.broker.Publish(ctx, event); err != nil {
		s.logf("publish %s event for board %s: %v", eventType, boardID, err)
	}
}

// Boards

// frameworkColumns seeds the column set for a new board.
var frameworkColumns = map[string][]struct {
	Name  string
	Color string
}{
	"kpt": {
		{Name: "Keep", Color: "green"},
		{Name: "Problem", Color: "red"},
		{Name: "Try", Color: "blue"},
	},
	"start-stop-continue": {
		{Name: "Start", Color: "green"},
		{Name: "Stop", Color: "red"},
		{Name: "Continue", Color: "blue"},
	},
	"mad-sad-glad": {
		{Name: "Mad", Color: "red"},
		{Name: "Sad", Color: "yellow"},
		{Name: "Glad", Color: "green"},
	},
	"4ls": {
		{Name: "Liked", Color: "green"},
		{Name: "Learned", Color: "blue"},
		{Name: "Lacked", Color: "yellow"},
		{Name: "Longed For", Color: "purple"},
	},
}

type CreateBoardInput struct {
	Title               string `json:"title"`
	Framework           string `json:"framework"`
	TeamName            string `json:"teamName"`
	MaxVotesPerPerson   int    `json:"maxVotesPerPerson"`
	IsAnonymous         bool   `json:"isAnonymous"`
	FacilitatorNickname string `json:"facilitatorNickname"`
}

type CreatedBoard struct {
	Board       store.Board       `json:"board"`
	Columns     []store.Column    `json:"columns"`
	Facilitator store.Participant `json:"facilitator"`
	CarryOver   []CarryOverItem   `json:"carryOver"`
}

func (s *Service) CreateBoard(ctx context.Context, input CreateBoardInput) (CreatedBoard, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return CreatedBoard{}, badRequest("title is required")
	}
	framework := strings.TrimSpace(input.Framework)
	if framework == "" {
		framework = "kpt"
	}
	seed, ok := frameworkColumns[framework]
	if !ok {
		return CreatedBoard{}, badRequest("unknown framework " + framework)
	}
	nickname := strings.TrimSpace(input.FacilitatorNickname)
	if nickname == "" {
		return CreatedBoard{}, badRequest("facilitator nickname is required")
	}
	maxVotes := input.MaxVotesPerPerson
	if maxVotes <= 0 {
		maxVotes = s.cfg.DefaultMaxVotes
	}

	board := store.Board{
		ID:              util.NewID("brd"),
		Slug:            util.NewSlug(title),
		Title:           title,
		Framework:       framework,
		Phase:           store.PhaseWriting,
		MaxVotesPerUser: maxVotes,
		IsAnonymous:     input.IsAnonymous,
		TeamName:        strings.TrimSpace(input.TeamName),
	}
	columns := make([]store.Column, 0, len(seed))
	for i, c := range seed {
		columns = append(columns, store.Column{
			ID:        util.NewID("col"),
			BoardID:   board.ID,
			Name:      c.Name,
			Color:     c.Color,
			SortOrder: i,
		})
	}
	facilitator := store.Participant{
		ID:            util.NewID("prt"),
		BoardID:       board.ID,
		Nickname:      nickname,
		IsFacilitator: true,
		IsOnline:      true,
	}
	if err := s.boards.CreateBoard(ctx, board, columns, facilitator); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return CreatedBoard{}, conflict("board slug already exists")
		}
		return CreatedBoard{}, err
	}

	carryOver, err := s.CarryOverItems(ctx, board.Slug)
	if err != nil {
		return CreatedBoard{}, err
	}
	return CreatedBoard{Board: board, Columns: columns, Facilitator: facilitator, CarryOver: carryOver}, nil
}

// RegisterParticipant persists a participant resolved by the external join
// flow and announces the arrival. Nickname collisions are allowed; identity
// resolution is not this service's concern.
func (s *Service) RegisterParticipant(ctx context.Context, slug, nickname string, isFacilitator bool) (store.Participant, error) {
	board, err := s.boardBySlug(ctx, slug)
	if err != nil {
		return store.Participant{}, err
	}
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return store.Participant{}, badRequest("nickname is required")
	}
	participant := store.Participant{
		ID:            util.NewID("prt"),
		BoardID:       board.ID,
		Nickname:      nickname,
		IsFacilitator: isFacilitator,
		IsOnline:      false,
	}
	if err := s.participants.CreateParticipant(ctx, participant); err != nil {
		return store.Participant{}, err
	}
	s.publish(ctx, board.ID, events.ParticipantJoined, participant.ID, events.ParticipantData{
		ID:            participant.ID,
		Nickname:      participant.Nickname,
		IsFacilitator: participant.IsFacilitator,
		IsOnline:      participant.IsOnline,
	})
	return participant, nil
}

// BoardSnapshot is the full board graph clients resync from.
type BoardSnapshot struct {
	Board        store.Board         `json:"board"`
	Columns      []store.Column      `json:"columns"`
	Cards        []store.Card        `json:"cards"`
	Votes        []store.Vote        `json:"votes"`
	Reactions    []store.Reaction    `json:"reactions"`
	Memos        []store.Memo        `json:"memos"`
	ActionItems  []store.ActionItem  `json:"actionItems"`
	Participants []store.Participant `json:"participants"`
	Quota        *VoteQuota          `json:"quota,omitempty"`
}

// GetBoardSnapshot assembles the whole board graph. When participantID is
// non-empty the snapshot includes that participant's vote quota.
func (s *Service) GetBoardSnapshot(ctx context.Context, slug, participantID string) (BoardSnapshot, error) {
	board, err := s.boardBySlug(ctx, slug)
	if err != nil {
		return BoardSnapshot{}, err
	}

	snapshot := BoardSnapshot{Board: board}
	if snapshot.Columns, err = s.columns.ListColumns(ctx, board.ID); err != nil {
		return BoardSnapshot{}, err
	}
	if snapshot.Cards, err = s.cards.ListCards(ctx, board.ID); err != nil {
		return BoardSnapshot{}, err
	}
	if snapshot.Votes, err = s.votes.ListVotes(ctx, board.ID); err != nil {
		return BoardSnapshot{}, err
	}
	if snapshot.Reactions, err = s.reactions.ListReactions(ctx, board.ID); err != nil {
		return BoardSnapshot{}, err
	}
	if snapshot.Memos, err = s.memos.ListMemos(ctx, board.ID); err != nil {
		return BoardSnapshot{}, err
	}
	if snapshot.ActionItems, err = s.actionItems.ListActionItems(ctx, board.ID); err != nil {
		return BoardSnapshot{}, err
	}
	if snapshot.Participants, err = s.participants.ListParticipants(ctx, board.ID); err != nil {
		return BoardSnapshot{}, err
	}
	if participantID != "" {
		quota, err := s.voteQuota(ctx, board.ID, board.MaxVotesPerUser, participantID)
		if err != nil {
			return BoardSnapshot{}, err
		}
		snapshot.Quota = &quota
	}
	return snapshot, nil
}

// SetParticipantPresence flips the online flag and broadcasts it. Wired to the
// stream subscription lifetime: attach marks online, detach marks offline.
func (s *Service) SetParticipantPresence(ctx context.Context, slug, participantID string, online bool) error {
	board, err := s.boardBySlug(ctx, slug)
	if err != nil {
		return err
	}
	participant, err := s.actingParticipant(ctx, board, participantID)
	if err != nil {
		return err
	}
	if err := s.participants.SetParticipantOnline(ctx, participant.ID, online); err != nil {
		return err
	}
	eventType := events.ParticipantOnline
	if !online {
		eventType = events.ParticipantOffline
	}
	s.publish(ctx, board.ID, eventType, participant.ID, events.ParticipantData{
		ID:            participant.ID,
		Nickname:      participant.Nickname,
		IsFacilitator: participant.IsFacilitator,
		IsOnline:      online,
	})
	return nil
}

// Subscribe attaches a handler to the board's event feed for the lifetime of
// one session. The returned cancel must run on leave.
func (s *Service) Subscribe(boardID string, handler events.Handler) func() {
	return s.broker.Subscribe(boardID, handler)
}
