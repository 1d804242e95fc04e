package sync

import (
	"context"
	"sort"

	"retroboard/api/internal/store"
	"retroboard/api/internal/util"
)

// Remote is the narrow port to the server. Calls return the server-confirmed
// entity; the eventual broadcast event is a harmless idempotent re-application
// on top of it.
type Remote interface {
	Fetcher
	CreateCard(ctx context.Context, columnID, content string) (store.Card, error)
	UpdateCardContent(ctx context.Context, cardID, content string) (store.Card, error)
	DeleteCard(ctx context.Context, cardID string) error
	MoveCard(ctx context.Context, cardID, overID string) (store.Card, error)
	AddVote(ctx context.Context, cardID string) (store.Vote, Quota, error)
	RemoveVote(ctx context.Context, cardID string) (Quota, error)
	AddReaction(ctx context.Context, cardID, emoji string) (store.Reaction, error)
	RemoveReaction(ctx context.Context, cardID, emoji string) error
}

// Result is the reconciled outcome of an optimistic operation.
type Result struct {
	Err      error
	Resynced bool // the cache was replaced wholesale with server truth
	NoOp     bool // nothing to do; no remote call was made
}

// Session binds the cache to the remote port and implements the optimistic
// write path: synchronous local transform, remote call, explicit
// reconciliation. Failed moves force a full resync; everything else leaves
// the optimistic state in place and surfaces a transient error notice.
type Session struct {
	store  *Store
	remote Remote
}

func NewSession(st *Store, remote Remote) *Session {
	return &Session{store: st, remote: remote}
}

// Store exposes the underlying cache for views and event wiring.
func (s *Session) Store() *Store {
	return s.store
}

// Resync replaces the cache with a fresh server snapshot.
func (s *Session) Resync(ctx context.Context) error {
	snap, err := s.remote.FetchSnapshot(ctx)
	if err != nil {
		return err
	}
	s.store.Replace(snap)
	return nil
}

// HandleConnectivity records connectivity changes. A reconnect discards the
// cache in favor of a fresh snapshot rather than trusting buffered events.
func (s *Session) HandleConnectivity(ctx context.Context, connected bool) error {
	if s.store.SetConnected(connected) {
		return s.Resync(ctx)
	}
	return nil
}

func (s *Session) fail(msg string, err error) Result {
	s.store.Notify(NoticeError, msg+": "+err.Error())
	return Result{Err: err}
}

// CreateCard appends a card to the column optimistically, then swaps in the
// server-assigned row on success.
func (s *Session) CreateCard(ctx context.Context, columnID, content string) Result {
	localID := util.NewID("local")
	s.store.insertLocalCard(localID, columnID, content)

	card, err := s.remote.CreateCard(ctx, columnID, content)
	if err != nil {
		return s.fail("create card failed", err)
	}
	s.store.confirmLocalCard(localID, card)
	return Result{}
}

// UpdateCardContent edits the card content in place.
func (s *Session) UpdateCardContent(ctx context.Context, cardID, content string) Result {
	s.store.setCardContent(cardID, content)

	card, err := s.remote.UpdateCardContent(ctx, cardID, content)
	if err != nil {
		return s.fail("update card failed", err)
	}
	s.store.putCard(card)
	return Result{}
}

// DeleteCard removes the card and its dependents optimistically.
func (s *Session) DeleteCard(ctx context.Context, cardID string) Result {
	s.store.removeCard(cardID)

	if err := s.remote.DeleteCard(ctx, cardID); err != nil {
		return s.fail("delete card failed", err)
	}
	return Result{}
}

// MoveCard computes the placement locally, applies it, and calls the server.
// A drop on the card's own current position is a no-op with no remote call.
// A failed move discards local divergence via full resync instead of trying
// to invert the optimistic delta.
func (s *Session) MoveCard(ctx context.Context, cardID, overID string) Result {
	moved := s.store.applyLocalMove(cardID, overID)
	if !moved {
		return Result{NoOp: true}
	}

	if _, err := s.remote.MoveCard(ctx, cardID, overID); err != nil {
		s.store.Notify(NoticeError, "move card failed: "+err.Error())
		if rerr := s.Resync(ctx); rerr != nil {
			return Result{Err: err}
		}
		return Result{Err: err, Resynced: true}
	}
	return Result{}
}

// AddVote inserts the vote and decrements the local quota optimistically.
func (s *Session) AddVote(ctx context.Context, cardID string) Result {
	localID := util.NewID("local")
	if !s.store.insertLocalVote(localID, cardID) {
		return Result{NoOp: true}
	}

	vote, quota, err := s.remote.AddVote(ctx, cardID)
	if err != nil {
		return s.fail("vote failed", err)
	}
	s.store.confirmLocalVote(localID, vote, quota)
	return Result{}
}

// RemoveVote removes the local participant's vote on the card.
func (s *Session) RemoveVote(ctx context.Context, cardID string) Result {
	if !s.store.removeLocalVote(cardID) {
		return Result{NoOp: true}
	}

	quota, err := s.remote.RemoveVote(ctx, cardID)
	if err != nil {
		return s.fail("remove vote failed", err)
	}
	s.store.setQuota(quota)
	return Result{}
}

// AddReaction records the local participant's emoji reaction.
func (s *Session) AddReaction(ctx context.Context, cardID, emoji string) Result {
	localID := util.NewID("local")
	if !s.store.insertLocalReaction(localID, cardID, emoji) {
		return Result{NoOp: true}
	}

	reaction, err := s.remote.AddReaction(ctx, cardID, emoji)
	if err != nil {
		return s.fail("reaction failed", err)
	}
	s.store.confirmLocalReaction(localID, reaction)
	return Result{}
}

// RemoveReaction removes the local participant's emoji reaction.
func (s *Session) RemoveReaction(ctx context.Context, cardID, emoji string) Result {
	if !s.store.removeLocalReaction(cardID, emoji) {
		return Result{NoOp: true}
	}

	if err := s.remote.RemoveReaction(ctx, cardID, emoji); err != nil {
		return s.fail("remove reaction failed", err)
	}
	return Result{}
}

// Optimistic cache transforms. Each takes the lock once and applies the same
// delta the eventual broadcast event will re-apply idempotently.

func (s *Store) insertLocalCard(localID, columnID, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nickname := ""
	if p, ok := s.participants[s.localParticipantID]; ok {
		nickname = p.Nickname
	}
	colID := columnID
	authorID := s.localParticipantID
	s.cards[localID] = store.Card{
		ID:             localID,
		BoardID:        s.board.ID,
		ColumnID:       &colID,
		Content:        content,
		AuthorID:       &authorID,
		AuthorNickname: nickname,
		SortOrder:      len(s.columnCardsLocked(columnID, "")),
	}
}

func (s *Store) confirmLocalCard(localID string, card store.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cards, localID)
	s.cards[card.ID] = card
}

func (s *Store) setCardContent(cardID, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[cardID]
	if !ok {
		return
	}
	card.Content = content
	s.cards[cardID] = card
}

func (s *Store) putCard(card store.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards[card.ID] = card
}

func (s *Store) removeCard(cardID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cards, cardID)
	for id, v := range s.votes {
		if v.CardID == cardID {
			if v.ParticipantID == s.localParticipantID {
				s.adjustQuota(-1)
			}
			delete(s.votes, id)
		}
	}
	for id, r := range s.reactions {
		if r.CardID == cardID {
			delete(s.reactions, id)
		}
	}
	for id, m := range s.memos {
		if m.CardID == cardID {
			delete(s.memos, id)
		}
	}
}

// applyLocalMove resolves the drop target the same way the server does:
// a column target appends, a card target inserts before it. Returns false
// when the computed position equals the current one.
func (s *Store) applyLocalMove(cardID, overID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	card, ok := s.cards[cardID]
	if !ok {
		return false
	}

	var targetColumn string
	sortOrder := -1

	for _, col := range s.columns {
		if col.ID == overID {
			targetColumn = col.ID
			sortOrder = len(s.columnCardsLocked(col.ID, cardID))
			break
		}
	}
	if sortOrder < 0 {
		over, ok := s.cards[overID]
		if !ok || over.ColumnID == nil {
			return false
		}
		targetColumn = *over.ColumnID
		siblings := s.columnCardsLocked(targetColumn, cardID)
		sortOrder = len(siblings)
		for i, sib := range siblings {
			if sib.ID == overID {
				sortOrder = i
				break
			}
		}
	}

	if card.ColumnID != nil && *card.ColumnID == targetColumn && card.SortOrder == sortOrder {
		return false
	}

	card.ColumnID = &targetColumn
	card.SortOrder = sortOrder
	s.cards[cardID] = card
	return true
}

func (s *Store) columnCardsLocked(columnID, excludeCardID string) []store.Card {
	var cards []store.Card
	for _, c := range s.cards {
		if c.ID == excludeCardID || c.ColumnID == nil || *c.ColumnID != columnID {
			continue
		}
		cards = append(cards, c)
	}
	sort.Slice(cards, func(i, j int) bool {
		if cards[i].SortOrder != cards[j].SortOrder {
			return cards[i].SortOrder < cards[j].SortOrder
		}
		return cards[i].ID < cards[j].ID
	})
	return cards
}

func (s *Store) insertLocalVote(localID, cardID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quota.Remaining <= 0 {
		return false
	}
	for _, v := range s.votes {
		if v.CardID == cardID && v.ParticipantID == s.localParticipantID {
			return false
		}
	}
	s.votes[localID] = store.Vote{ID: localID, BoardID: s.board.ID, CardID: cardID, ParticipantID: s.localParticipantID}
	s.adjustQuota(1)
	return true
}

func (s *Store) confirmLocalVote(localID string, vote store.Vote, quota Quota) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.votes, localID)
	s.votes[vote.ID] = vote
	s.quota = quota
}

func (s *Store) removeLocalVote(cardID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, v := range s.votes {
		if v.CardID == cardID && v.ParticipantID == s.localParticipantID {
			delete(s.votes, id)
			s.adjustQuota(-1)
			return true
		}
	}
	return false
}

func (s *Store) setQuota(quota Quota) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quota = quota
}

func (s *Store) insertLocalReaction(localID, cardID, emoji string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reactions {
		if r.CardID == cardID && r.ParticipantID == s.localParticipantID && r.Emoji == emoji {
			return false
		}
	}
	s.reactions[localID] = store.Reaction{
		ID: localID, BoardID: s.board.ID,
		CardID: cardID, ParticipantID: s.localParticipantID, Emoji: emoji,
	}
	return true
}

func (s *Store) confirmLocalReaction(localID string, reaction store.Reaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reactions, localID)
	s.reactions[reaction.ID] = reaction
}

func (s *Store) removeLocalReaction(cardID, emoji string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.reactions {
		if r.CardID == cardID && r.ParticipantID == s.localParticipantID && r.Emoji == emoji {
			delete(s.reactions, id)
			return true
		}
	}
	return false
}
