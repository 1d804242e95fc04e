package sync

import (
	"sort"

	"retroboard/api/internal/store"
)

// ReactionGroup aggregates one emoji's reactions on a card.
type ReactionGroup struct {
	Emoji   string `json:"emoji"`
	Count   int    `json:"count"`
	Reacted bool   `json:"reacted"` // the local participant is among them
}

// Columns returns the board's columns in sortOrder.
func (s *Store) Columns() []store.Column {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.Column(nil), s.columns...)
}

// ColumnCards returns a column's cards sorted by sortOrder ascending, ties
// broken by id so the ordering is stable under the gaps and duplicates that
// moves accumulate.
func (s *Store) ColumnCards(columnID string) []store.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.columnCardsLocked(columnID, "")
}

// OrderedCards returns a column's cards ranked for the discussion view:
// vote count descending, then sortOrder ascending, then id.
func (s *Store) OrderedCards(columnID string) []store.Card {
	s.mu.Lock()
	defer s.mu.Unlock()

	cards := s.columnCardsLocked(columnID, "")
	counts := make(map[string]int, len(cards))
	for _, v := range s.votes {
		counts[v.CardID]++
	}
	sort.SliceStable(cards, func(i, j int) bool {
		ci, cj := counts[cards[i].ID], counts[cards[j].ID]
		if ci != cj {
			return ci > cj
		}
		if cards[i].SortOrder != cards[j].SortOrder {
			return cards[i].SortOrder < cards[j].SortOrder
		}
		return cards[i].ID < cards[j].ID
	})
	return cards
}

// VoteCount returns the number of votes on a card.
func (s *Store) VoteCount(cardID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.votes {
		if v.CardID == cardID {
			n++
		}
	}
	return n
}

// HasVoted reports whether the local participant has voted on the card.
func (s *Store) HasVoted(cardID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.votes {
		if v.CardID == cardID && v.ParticipantID == s.localParticipantID {
			return true
		}
	}
	return false
}

// ReactionGroups aggregates a card's reactions per emoji, sorted by count
// descending then emoji for a stable render order.
func (s *Store) ReactionGroups(cardID string) []ReactionGroup {
	s.mu.Lock()
	defer s.mu.Unlock()

	byEmoji := make(map[string]*ReactionGroup)
	for _, r := range s.reactions {
		if r.CardID != cardID {
			continue
		}
		g, ok := byEmoji[r.Emoji]
		if !ok {
			g = &ReactionGroup{Emoji: r.Emoji}
			byEmoji[r.Emoji] = g
		}
		g.Count++
		if r.ParticipantID == s.localParticipantID {
			g.Reacted = true
		}
	}

	groups := make([]ReactionGroup, 0, len(byEmoji))
	for _, g := range byEmoji {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Emoji < groups[j].Emoji
	})
	return groups
}

// CardMemos returns a card's memos ordered by id for stability.
func (s *Store) CardMemos(cardID string) []store.Memo {
	s.mu.Lock()
	defer s.mu.Unlock()
	var memos []store.Memo
	for _, m := range s.memos {
		if m.CardID == cardID {
			memos = append(memos, m)
		}
	}
	sort.Slice(memos, func(i, j int) bool { return memos[i].ID < memos[j].ID })
	return memos
}

// ActionItems returns the board's action items sorted by sortOrder then id.
func (s *Store) ActionItems() []store.ActionItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]store.ActionItem, 0, len(s.actionItems))
	for _, a := range s.actionItems {
		items = append(items, a)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].SortOrder != items[j].SortOrder {
			return items[i].SortOrder < items[j].SortOrder
		}
		return items[i].ID < items[j].ID
	})
	return items
}

// Participants returns all known participants, facilitators first, then by
// nickname.
func (s *Store) Participants() []store.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps := make([]store.Participant, 0, len(s.participants))
	for _, p := range s.participants {
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].IsFacilitator != ps[j].IsFacilitator {
			return ps[i].IsFacilitator
		}
		if ps[i].Nickname != ps[j].Nickname {
			return ps[i].Nickname < ps[j].Nickname
		}
		return ps[i].ID < ps[j].ID
	})
	return ps
}

// Card looks up a card by id.
func (s *Store) Card(cardID string) (store.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[cardID]
	return c, ok
}
