package sync

import (
	"encoding/json"

	"github.com/sirupsen/logrus"

	"retroboard/api/internal/events"
	"retroboard/api/internal/store"
)

// Apply merges one inbound event into the cache. Reducers are idempotent and
// tolerate replays, duplicates, and references to ids the cache has never
// seen: an unknown id leaves the graph unchanged. Quota counters move only
// for the local participant's own vote events.
func (s *Store) Apply(evt events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if evt.BoardID != s.board.ID {
		return
	}

	switch evt.Type {
	case events.CardCreated, events.CardUpdated:
		s.applyCard(evt)
	case events.CardMoved:
		s.applyCardMoved(evt)
	case events.CardDeleted:
		s.applyCardDeleted(evt)
	case events.VoteAdded:
		s.applyVoteAdded(evt)
	case events.VoteRemoved:
		s.applyVoteRemoved(evt)
	case events.ReactionAdded:
		s.applyReactionAdded(evt)
	case events.ReactionRemoved:
		s.applyReactionRemoved(evt)
	case events.MemoCreated, events.MemoUpdated:
		s.applyMemo(evt)
	case events.MemoDeleted:
		s.applyMemoDeleted(evt)
	case events.ActionItemCreated, events.ActionItemUpdated, events.ActionItemStatusChanged:
		s.applyActionItem(evt)
	case events.ActionItemDeleted:
		s.applyActionItemDeleted(evt)
	case events.PhaseChanged:
		s.applyPhaseChanged(evt)
	case events.ParticipantJoined, events.ParticipantOnline, events.ParticipantOffline:
		s.applyParticipant(evt)
	}
}

func decode(evt events.Event, dst any) bool {
	if err := json.Unmarshal(evt.Data, dst); err != nil {
		logrus.WithError(err).WithField("type", evt.Type).Warn("sync: undecodable event payload")
		return false
	}
	return true
}

func (s *Store) applyCard(evt events.Event) {
	var d events.CardData
	if !decode(evt, &d) {
		return
	}
	card, ok := s.cards[d.ID]
	if !ok {
		card = store.Card{ID: d.ID, BoardID: s.board.ID}
	}
	card.ColumnID = d.ColumnID
	card.Content = d.Content
	card.AuthorID = d.AuthorID
	card.AuthorNickname = d.AuthorNickname
	card.SortOrder = d.SortOrder
	card.IsDiscussed = d.IsDiscussed
	card.DiscussionOrder = d.DiscussionOrder
	s.cards[d.ID] = card
}

func (s *Store) applyCardMoved(evt events.Event) {
	var d events.CardMovedData
	if !decode(evt, &d) {
		return
	}
	card, ok := s.cards[d.CardID]
	if !ok {
		return
	}
	card.ColumnID = d.ColumnID
	card.SortOrder = d.SortOrder
	s.cards[d.CardID] = card
}

func (s *Store) applyCardDeleted(evt events.Event) {
	var d events.CardDeletedData
	if !decode(evt, &d) {
		return
	}
	if _, ok := s.cards[d.CardID]; !ok {
		return
	}
	delete(s.cards, d.CardID)
	for id, v := range s.votes {
		if v.CardID == d.CardID {
			if v.ParticipantID == s.localParticipantID {
				s.adjustQuota(-1)
			}
			delete(s.votes, id)
		}
	}
	for id, r := range s.reactions {
		if r.CardID == d.CardID {
			delete(s.reactions, id)
		}
	}
	for id, m := range s.memos {
		if m.CardID == d.CardID {
			delete(s.memos, id)
		}
	}
}

func (s *Store) applyVoteAdded(evt events.Event) {
	var d events.VoteData
	if !decode(evt, &d) {
		return
	}
	if _, ok := s.votes[d.VoteID]; ok {
		return
	}
	// The optimistic path may have inserted the same vote under a
	// locally-generated id; replace it with the server row.
	for id, v := range s.votes {
		if v.CardID == d.CardID && v.ParticipantID == d.ParticipantID {
			delete(s.votes, id)
			s.votes[d.VoteID] = store.Vote{ID: d.VoteID, BoardID: s.board.ID, CardID: d.CardID, ParticipantID: d.ParticipantID}
			return
		}
	}
	s.votes[d.VoteID] = store.Vote{ID: d.VoteID, BoardID: s.board.ID, CardID: d.CardID, ParticipantID: d.ParticipantID}
	if d.ParticipantID == s.localParticipantID {
		s.adjustQuota(1)
	}
}

func (s *Store) applyVoteRemoved(evt events.Event) {
	var d events.VoteData
	if !decode(evt, &d) {
		return
	}
	removed := false
	if _, ok := s.votes[d.VoteID]; ok {
		delete(s.votes, d.VoteID)
		removed = true
	} else {
		for id, v := range s.votes {
			if v.CardID == d.CardID && v.ParticipantID == d.ParticipantID {
				delete(s.votes, id)
				removed = true
				break
			}
		}
	}
	if removed && d.ParticipantID == s.localParticipantID {
		s.adjustQuota(-1)
	}
}

func (s *Store) applyReactionAdded(evt events.Event) {
	var d events.ReactionData
	if !decode(evt, &d) {
		return
	}
	if _, ok := s.reactions[d.ReactionID]; ok {
		return
	}
	for id, r := range s.reactions {
		if r.CardID == d.CardID && r.ParticipantID == d.ParticipantID && r.Emoji == d.Emoji {
			delete(s.reactions, id)
			break
		}
	}
	s.reactions[d.ReactionID] = store.Reaction{
		ID: d.ReactionID, BoardID: s.board.ID,
		CardID: d.CardID, ParticipantID: d.ParticipantID, Emoji: d.Emoji,
	}
}

func (s *Store) applyReactionRemoved(evt events.Event) {
	var d events.ReactionData
	if !decode(evt, &d) {
		return
	}
	if _, ok := s.reactions[d.ReactionID]; ok {
		delete(s.reactions, d.ReactionID)
		return
	}
	for id, r := range s.reactions {
		if r.CardID == d.CardID && r.ParticipantID == d.ParticipantID && r.Emoji == d.Emoji {
			delete(s.reactions, id)
			return
		}
	}
}

func (s *Store) applyMemo(evt events.Event) {
	var d events.MemoData
	if !decode(evt, &d) {
		return
	}
	memo, ok := s.memos[d.ID]
	if !ok {
		memo = store.Memo{ID: d.ID, BoardID: s.board.ID}
	}
	memo.CardID = d.CardID
	memo.Content = d.Content
	memo.AuthorID = d.AuthorID
	memo.AuthorNickname = d.AuthorNickname
	s.memos[d.ID] = memo
}

func (s *Store) applyMemoDeleted(evt events.Event) {
	var d events.MemoDeletedData
	if !decode(evt, &d) {
		return
	}
	delete(s.memos, d.MemoID)
}

func (s *Store) applyActionItem(evt events.Event) {
	var d events.ActionItemData
	if !decode(evt, &d) {
		return
	}
	item, ok := s.actionItems[d.ID]
	if !ok {
		item = store.ActionItem{ID: d.ID, BoardID: s.board.ID}
	}
	item.CardID = d.CardID
	item.Content = d.Content
	item.AssigneeID = d.AssigneeID
	item.Status = d.Status
	item.Priority = d.Priority
	item.DueDate = d.DueDate
	item.SortOrder = d.SortOrder
	s.actionItems[d.ID] = item
}

func (s *Store) applyActionItemDeleted(evt events.Event) {
	var d events.ActionItemDeletedData
	if !decode(evt, &d) {
		return
	}
	delete(s.actionItems, d.ActionItemID)
}

func (s *Store) applyPhaseChanged(evt events.Event) {
	var d events.PhaseData
	if !decode(evt, &d) {
		return
	}
	s.board.Phase = d.Phase
	if d.ClosedAt != nil {
		s.board.ClosedAt = d.ClosedAt
	}
}

func (s *Store) applyParticipant(evt events.Event) {
	var d events.ParticipantData
	if !decode(evt, &d) {
		return
	}
	p, ok := s.participants[d.ID]
	if !ok {
		p = store.Participant{ID: d.ID, BoardID: s.board.ID}
	}
	p.Nickname = d.Nickname
	p.IsFacilitator = d.IsFacilitator
	p.IsOnline = d.IsOnline
	s.participants[d.ID] = p
}

func (s *Store) adjustQuota(delta int) {
	s.quota.Used += delta
	if s.quota.Used < 0 {
		s.quota.Used = 0
	}
	s.quota.Remaining = remaining(s.quota.Max, s.quota.Used)
}
