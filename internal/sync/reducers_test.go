package sync

import (
	"testing"

	"retroboard/api/internal/events"
	"retroboard/api/internal/store"
)

func col(id string) *string { return &id }

func testSnapshot() Snapshot {
	return Snapshot{
		Board: store.Board{ID: "b1", Slug: "sprint-12", Phase: store.PhaseVoting, MaxVotesPerUser: 5},
		Columns: []store.Column{
			{ID: "col-1", BoardID: "b1", Name: "Keep", SortOrder: 0},
			{ID: "col-2", BoardID: "b1", Name: "Problem", SortOrder: 1},
		},
		Cards: []store.Card{
			{ID: "cA", BoardID: "b1", ColumnID: col("col-1"), Content: "A", SortOrder: 0},
			{ID: "cB", BoardID: "b1", ColumnID: col("col-1"), Content: "B", SortOrder: 1},
		},
		Participants: []store.Participant{
			{ID: "p1", BoardID: "b1", Nickname: "Alex"},
			{ID: "p2", BoardID: "b1", Nickname: "Sam"},
		},
		Quota: &Quota{Max: 5, Used: 0, Remaining: 5},
	}
}

func event(t *testing.T, typ events.Type, participantID string, payload any) events.Event {
	t.Helper()
	data, err := events.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return events.Event{ID: "e1", BoardID: "b1", Type: typ, ParticipantID: participantID, Data: data}
}

func TestApplyCardCreatedIsIdempotent(t *testing.T) {
	st := NewStore(testSnapshot(), "p1")

	evt := event(t, events.CardCreated, "p2", events.CardData{
		ID: "cC", ColumnID: col("col-2"), Content: "new idea", SortOrder: 0,
	})
	st.Apply(evt)
	st.Apply(evt) // replay

	cards := st.ColumnCards("col-2")
	if len(cards) != 1 || cards[0].Content != "new idea" {
		t.Fatalf("cards = %+v", cards)
	}
}

func TestApplyIgnoresForeignBoard(t *testing.T) {
	st := NewStore(testSnapshot(), "p1")

	evt := event(t, events.CardDeleted, "p2", events.CardDeletedData{CardID: "cA"})
	evt.BoardID = "someone-else"
	st.Apply(evt)

	if _, ok := st.Card("cA"); !ok {
		t.Fatal("foreign-board event must not touch the cache")
	}
}

func TestApplyCardMovedUnknownIDIsNoop(t *testing.T) {
	st := NewStore(testSnapshot(), "p1")

	st.Apply(event(t, events.CardMoved, "p2", events.CardMovedData{CardID: "ghost", ColumnID: col("col-2"), SortOrder: 3}))

	if len(st.ColumnCards("col-1")) != 2 || len(st.ColumnCards("col-2")) != 0 {
		t.Fatal("unknown-id move must leave the graph unchanged")
	}
}

func TestApplyCardMoved(t *testing.T) {
	st := NewStore(testSnapshot(), "p1")

	st.Apply(event(t, events.CardMoved, "p2", events.CardMovedData{CardID: "cA", ColumnID: col("col-2"), SortOrder: 0}))

	card, _ := st.Card("cA")
	if *card.ColumnID != "col-2" || card.SortOrder != 0 {
		t.Fatalf("card = %+v", card)
	}
}

func TestVoteQuotaTracksOnlyLocalParticipant(t *testing.T) {
	st := NewStore(testSnapshot(), "p1")

	st.Apply(event(t, events.VoteAdded, "p2", events.VoteData{VoteID: "v-p2", CardID: "cA", ParticipantID: "p2"}))
	if q := st.Quota(); q.Used != 0 || q.Remaining != 5 {
		t.Fatalf("other participant's vote moved the quota: %+v", q)
	}

	local := event(t, events.VoteAdded, "p1", events.VoteData{VoteID: "v-p1", CardID: "cA", ParticipantID: "p1"})
	st.Apply(local)
	if q := st.Quota(); q.Used != 1 || q.Remaining != 4 {
		t.Fatalf("quota = %+v", q)
	}
	st.Apply(local) // replay must not double-count
	if q := st.Quota(); q.Used != 1 {
		t.Fatalf("replay double-counted: %+v", q)
	}

	st.Apply(event(t, events.VoteRemoved, "p1", events.VoteData{VoteID: "v-p1", CardID: "cA", ParticipantID: "p1"}))
	if q := st.Quota(); q.Used != 0 || q.Remaining != 5 {
		t.Fatalf("quota after removal = %+v", q)
	}
	// Removing an unknown vote is a no-op, quota included.
	st.Apply(event(t, events.VoteRemoved, "p1", events.VoteData{VoteID: "ghost", CardID: "cB", ParticipantID: "p1"}))
	if q := st.Quota(); q.Used != 0 {
		t.Fatalf("unknown removal moved the quota: %+v", q)
	}
}

func TestVoteAddedReplacesOptimisticTwin(t *testing.T) {
	st := NewStore(testSnapshot(), "p1")
	if !st.insertLocalVote("local-1", "cA") {
		t.Fatal("optimistic insert failed")
	}
	if q := st.Quota(); q.Used != 1 {
		t.Fatalf("quota = %+v", q)
	}

	// The confirming broadcast carries the server id; the local twin is
	// swapped out without touching the already-adjusted quota.
	st.Apply(event(t, events.VoteAdded, "p1", events.VoteData{VoteID: "v-server", CardID: "cA", ParticipantID: "p1"}))
	if q := st.Quota(); q.Used != 1 {
		t.Fatalf("confirmation double-counted: %+v", q)
	}
	if st.VoteCount("cA") != 1 {
		t.Fatalf("vote count = %d", st.VoteCount("cA"))
	}
}

func TestCardDeletedCascadesAndAdjustsQuota(t *testing.T) {
	st := NewStore(testSnapshot(), "p1")
	st.Apply(event(t, events.VoteAdded, "p1", events.VoteData{VoteID: "v1", CardID: "cA", ParticipantID: "p1"}))
	st.Apply(event(t, events.ReactionAdded, "p2", events.ReactionData{ReactionID: "r1", CardID: "cA", ParticipantID: "p2", Emoji: "👍"}))

	st.Apply(event(t, events.CardDeleted, "p2", events.CardDeletedData{CardID: "cA"}))

	if _, ok := st.Card("cA"); ok {
		t.Fatal("card still present")
	}
	if st.VoteCount("cA") != 0 || len(st.ReactionGroups("cA")) != 0 {
		t.Fatal("dependents survived the delete")
	}
	if q := st.Quota(); q.Used != 0 || q.Remaining != 5 {
		t.Fatalf("quota = %+v", q)
	}
}

func TestReactionGroupsAggregate(t *testing.T) {
	st := NewStore(testSnapshot(), "p1")
	st.Apply(event(t, events.ReactionAdded, "p1", events.ReactionData{ReactionID: "r1", CardID: "cA", ParticipantID: "p1", Emoji: "👍"}))
	st.Apply(event(t, events.ReactionAdded, "p2", events.ReactionData{ReactionID: "r2", CardID: "cA", ParticipantID: "p2", Emoji: "👍"}))
	st.Apply(event(t, events.ReactionAdded, "p2", events.ReactionData{ReactionID: "r3", CardID: "cA", ParticipantID: "p2", Emoji: "🎉"}))

	groups := st.ReactionGroups("cA")
	if len(groups) != 2 {
		t.Fatalf("groups = %+v", groups)
	}
	if groups[0].Emoji != "👍" || groups[0].Count != 2 || !groups[0].Reacted {
		t.Fatalf("thumbs group = %+v", groups[0])
	}
	if groups[1].Emoji != "🎉" || groups[1].Count != 1 || groups[1].Reacted {
		t.Fatalf("party group = %+v", groups[1])
	}

	// Removing p1's reaction leaves p2's intact.
	st.Apply(event(t, events.ReactionRemoved, "p1", events.ReactionData{ReactionID: "r1", CardID: "cA", ParticipantID: "p1", Emoji: "👍"}))
	groups = st.ReactionGroups("cA")
	for _, g := range groups {
		if g.Emoji == "👍" && (g.Count != 1 || g.Reacted) {
			t.Fatalf("after removal, group = %+v", g)
		}
	}
}

func TestApplyPhaseChanged(t *testing.T) {
	st := NewStore(testSnapshot(), "p1")

	st.Apply(event(t, events.PhaseChanged, "p-fac", events.PhaseData{Phase: store.PhaseDiscussion}))
	if st.Board().Phase != store.PhaseDiscussion {
		t.Fatalf("phase = %s", st.Board().Phase)
	}
}

func TestApplyParticipantEvents(t *testing.T) {
	st := NewStore(testSnapshot(), "p1")

	st.Apply(event(t, events.ParticipantJoined, "p3", events.ParticipantData{ID: "p3", Nickname: "Nia", IsOnline: true}))
	if len(st.Participants()) != 3 {
		t.Fatalf("participants = %+v", st.Participants())
	}

	st.Apply(event(t, events.ParticipantOffline, "p3", events.ParticipantData{ID: "p3", Nickname: "Nia", IsOnline: false}))
	for _, p := range st.Participants() {
		if p.ID == "p3" && p.IsOnline {
			t.Fatal("p3 should be offline")
		}
	}
}

func TestOrderedCardsRankByVotesThenSortOrder(t *testing.T) {
	st := NewStore(testSnapshot(), "p1")
	st.Apply(event(t, events.VoteAdded, "p2", events.VoteData{VoteID: "v1", CardID: "cB", ParticipantID: "p2"}))

	ordered := st.OrderedCards("col-1")
	if ordered[0].ID != "cB" || ordered[1].ID != "cA" {
		t.Fatalf("ordered = [%s %s], want [cB cA]", ordered[0].ID, ordered[1].ID)
	}

	// With the vote gone, sortOrder ascending decides again.
	st.Apply(event(t, events.VoteRemoved, "p2", events.VoteData{VoteID: "v1", CardID: "cB", ParticipantID: "p2"}))
	ordered = st.OrderedCards("col-1")
	if ordered[0].ID != "cA" {
		t.Fatalf("ordered = %+v", ordered)
	}
}

func TestUndecodablePayloadIsIgnored(t *testing.T) {
	st := NewStore(testSnapshot(), "p1")

	st.Apply(events.Event{ID: "e1", BoardID: "b1", Type: events.CardCreated, Data: []byte("{not json")})

	if len(st.ColumnCards("col-1")) != 2 {
		t.Fatal("garbage payload mutated the cache")
	}
}
