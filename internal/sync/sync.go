// Package sync implements the client-side board cache: a single mutable
// state container fed by two write paths, optimistic local mutations and
// inbound board events. Reducers are idempotent so duplicate or out-of-order
// delivery converges on server truth.
package sync

import (
	"context"
	"sort"
	stdsync "sync"
	"time"

	"retroboard/api/internal/store"
)

// Snapshot is the full board graph as returned by the server.
type Snapshot struct {
	Board        store.Board         `json:"board"`
	Columns      []store.Column      `json:"columns"`
	Cards        []store.Card        `json:"cards"`
	Votes        []store.Vote        `json:"votes"`
	Reactions    []store.Reaction    `json:"reactions"`
	Memos        []store.Memo        `json:"memos"`
	ActionItems  []store.ActionItem  `json:"actionItems"`
	Participants []store.Participant `json:"participants"`
	Quota        *Quota              `json:"quota,omitempty"`
}

// Quota is the local participant's vote budget on the current board.
type Quota struct {
	Max       int `json:"max"`
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
}

// NoticeLevel classifies a transient notification.
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

const (
	infoNoticeTTL  = 4 * time.Second
	errorNoticeTTL = 8 * time.Second
)

// Notice is a transient, auto-expiring notification surfaced to the user.
type Notice struct {
	Level   NoticeLevel
	Message string
	Until   time.Time
}

// Fetcher retrieves the full board snapshot, used for reconciliation when
// optimistic state must be discarded.
type Fetcher interface {
	FetchSnapshot(ctx context.Context) (Snapshot, error)
}

// Store is the canonical client cache for one board session. All access is
// serialized through its mutex; reducers and views never block on I/O.
type Store struct {
	mu stdsync.Mutex

	board        store.Board
	columns      []store.Column
	cards        map[string]store.Card
	votes        map[string]store.Vote
	reactions    map[string]store.Reaction
	memos        map[string]store.Memo
	actionItems  map[string]store.ActionItem
	participants map[string]store.Participant

	localParticipantID string
	quota              Quota
	connected          bool
	notices            []Notice

	now func() time.Time
}

// NewStore seeds a cache from a snapshot for the given local participant.
func NewStore(snap Snapshot, localParticipantID string) *Store {
	s := &Store{
		localParticipantID: localParticipantID,
		connected:          true,
		now:                time.Now,
	}
	s.replace(snap)
	return s
}

// Replace discards the whole cache in favor of server truth.
func (s *Store) Replace(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(snap)
}

func (s *Store) replace(snap Snapshot) {
	s.board = snap.Board
	s.columns = append([]store.Column(nil), snap.Columns...)
	sort.Slice(s.columns, func(i, j int) bool { return s.columns[i].SortOrder < s.columns[j].SortOrder })

	s.cards = make(map[string]store.Card, len(snap.Cards))
	for _, c := range snap.Cards {
		s.cards[c.ID] = c
	}
	s.votes = make(map[string]store.Vote, len(snap.Votes))
	for _, v := range snap.Votes {
		s.votes[v.ID] = v
	}
	s.reactions = make(map[string]store.Reaction, len(snap.Reactions))
	for _, r := range snap.Reactions {
		s.reactions[r.ID] = r
	}
	s.memos = make(map[string]store.Memo, len(snap.Memos))
	for _, m := range snap.Memos {
		s.memos[m.ID] = m
	}
	s.actionItems = make(map[string]store.ActionItem, len(snap.ActionItems))
	for _, a := range snap.ActionItems {
		s.actionItems[a.ID] = a
	}
	s.participants = make(map[string]store.Participant, len(snap.Participants))
	for _, p := range snap.Participants {
		s.participants[p.ID] = p
	}

	if snap.Quota != nil {
		s.quota = *snap.Quota
	} else {
		s.quota = Quota{Max: snap.Board.MaxVotesPerUser}
		s.quota.Used = s.localVoteCount()
		s.quota.Remaining = remaining(s.quota.Max, s.quota.Used)
	}
}

func (s *Store) localVoteCount() int {
	n := 0
	for _, v := range s.votes {
		if v.ParticipantID == s.localParticipantID {
			n++
		}
	}
	return n
}

func remaining(max, used int) int {
	if used >= max {
		return 0
	}
	return max - used
}

// Board returns the cached board row.
func (s *Store) Board() store.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board
}

// LocalParticipant returns the cached local participant, if known.
func (s *Store) LocalParticipant() (store.Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[s.localParticipantID]
	return p, ok
}

// Quota returns the local participant's vote budget.
func (s *Store) Quota() Quota {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quota
}

// Connected reports the connectivity flag.
func (s *Store) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// SetConnected flips the connectivity flag and reports whether this call was
// a reconnect (disconnected -> connected). Callers resync on reconnect rather
// than trusting any buffered event stream.
func (s *Store) SetConnected(connected bool) (reconnected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reconnected = connected && !s.connected
	s.connected = connected
	return reconnected
}

// Notify records a transient notice; info expires after 4s, errors after 8s.
func (s *Store) Notify(level NoticeLevel, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ttl := infoNoticeTTL
	if level == NoticeError {
		ttl = errorNoticeTTL
	}
	s.notices = append(s.notices, Notice{Level: level, Message: message, Until: s.now().Add(ttl)})
}

// Notices returns the not-yet-expired notices and prunes the rest.
func (s *Store) Notices() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	kept := s.notices[:0]
	for _, n := range s.notices {
		if n.Until.After(now) {
			kept = append(kept, n)
		}
	}
	s.notices = kept
	return append([]Notice(nil), kept...)
}
