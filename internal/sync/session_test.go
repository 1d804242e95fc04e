package sync

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"retroboard/api/internal/store"
)

// fakeRemote satisfies Remote with per-call overrides and counters.
type fakeRemote struct {
	snapshot  Snapshot
	fetches   int
	moveErr   error
	moveCalls int
	voteErr   error
	vote      store.Vote
	voteQuota Quota
}

func (f *fakeRemote) FetchSnapshot(ctx context.Context) (Snapshot, error) {
	f.fetches++
	return f.snapshot, nil
}

func (f *fakeRemote) CreateCard(ctx context.Context, columnID, content string) (store.Card, error) {
	return store.Card{ID: "srv-card", BoardID: "b1", ColumnID: &columnID, Content: content}, nil
}

func (f *fakeRemote) UpdateCardContent(ctx context.Context, cardID, content string) (store.Card, error) {
	return store.Card{ID: cardID, BoardID: "b1", Content: content}, nil
}

func (f *fakeRemote) DeleteCard(ctx context.Context, cardID string) error { return nil }

func (f *fakeRemote) MoveCard(ctx context.Context, cardID, overID string) (store.Card, error) {
	f.moveCalls++
	if f.moveErr != nil {
		return store.Card{}, f.moveErr
	}
	return store.Card{ID: cardID, BoardID: "b1"}, nil
}

func (f *fakeRemote) AddVote(ctx context.Context, cardID string) (store.Vote, Quota, error) {
	if f.voteErr != nil {
		return store.Vote{}, Quota{}, f.voteErr
	}
	return f.vote, f.voteQuota, nil
}

func (f *fakeRemote) RemoveVote(ctx context.Context, cardID string) (Quota, error) {
	return f.voteQuota, nil
}

func (f *fakeRemote) AddReaction(ctx context.Context, cardID, emoji string) (store.Reaction, error) {
	return store.Reaction{ID: "srv-react", BoardID: "b1", CardID: cardID, ParticipantID: "p1", Emoji: emoji}, nil
}

func (f *fakeRemote) RemoveReaction(ctx context.Context, cardID, emoji string) error { return nil }

func newTestSession() (*Session, *fakeRemote) {
	remote := &fakeRemote{snapshot: testSnapshot()}
	st := NewStore(testSnapshot(), "p1")
	return NewSession(st, remote), remote
}

func TestCreateCardConfirmsServerRow(t *testing.T) {
	sess, _ := newTestSession()

	res := sess.CreateCard(context.Background(), "col-2", "try mob programming")
	if res.Err != nil || res.NoOp {
		t.Fatalf("result = %+v", res)
	}

	cards := sess.Store().ColumnCards("col-2")
	if len(cards) != 1 || cards[0].ID != "srv-card" {
		t.Fatalf("cards = %+v", cards)
	}
	if strings.HasPrefix(cards[0].ID, "local") {
		t.Fatal("optimistic id survived confirmation")
	}
}

func TestMoveCardOwnPositionIsNoOp(t *testing.T) {
	sess, remote := newTestSession()

	// cB already sits last in col-1; dropping it on its own column keeps its
	// position, so no remote call is made.
	res := sess.MoveCard(context.Background(), "cB", "col-1")
	if !res.NoOp || res.Err != nil {
		t.Fatalf("result = %+v", res)
	}
	if remote.moveCalls != 0 {
		t.Fatalf("remote called %d times", remote.moveCalls)
	}
}

func TestMoveCardAppliesOptimistically(t *testing.T) {
	sess, remote := newTestSession()

	res := sess.MoveCard(context.Background(), "cA", "col-2")
	if res.Err != nil || res.NoOp || res.Resynced {
		t.Fatalf("result = %+v", res)
	}
	if remote.moveCalls != 1 {
		t.Fatalf("remote called %d times", remote.moveCalls)
	}
	card, _ := sess.Store().Card("cA")
	if card.ColumnID == nil || *card.ColumnID != "col-2" || card.SortOrder != 0 {
		t.Fatalf("card = %+v", card)
	}
}

func TestMoveCardOntoCardInsertsBefore(t *testing.T) {
	sess, _ := newTestSession()

	res := sess.MoveCard(context.Background(), "cB", "cA")
	if res.Err != nil || res.NoOp {
		t.Fatalf("result = %+v", res)
	}
	card, _ := sess.Store().Card("cB")
	if card.SortOrder != 0 {
		t.Fatalf("sortOrder = %d, want 0", card.SortOrder)
	}
}

func TestFailedMoveForcesResync(t *testing.T) {
	sess, remote := newTestSession()
	remote.moveErr = errors.New("board advanced")
	// The server snapshot has cA back in col-1; a successful resync must win
	// over the optimistic move.
	remote.snapshot = testSnapshot()

	res := sess.MoveCard(context.Background(), "cA", "col-2")
	if res.Err == nil || !res.Resynced {
		t.Fatalf("result = %+v", res)
	}
	if remote.fetches != 1 {
		t.Fatalf("fetches = %d", remote.fetches)
	}

	card, _ := sess.Store().Card("cA")
	if card.ColumnID == nil || *card.ColumnID != "col-1" {
		t.Fatalf("optimistic move survived resync: %+v", card)
	}

	notices := sess.Store().Notices()
	if len(notices) != 1 || notices[0].Level != NoticeError {
		t.Fatalf("notices = %+v", notices)
	}
}

func TestAddVoteConfirmSwapsIDAndQuota(t *testing.T) {
	sess, remote := newTestSession()
	remote.vote = store.Vote{ID: "v-srv", BoardID: "b1", CardID: "cA", ParticipantID: "p1"}
	remote.voteQuota = Quota{Max: 5, Used: 1, Remaining: 4}

	res := sess.AddVote(context.Background(), "cA")
	if res.Err != nil || res.NoOp {
		t.Fatalf("result = %+v", res)
	}
	if q := sess.Store().Quota(); q != (Quota{Max: 5, Used: 1, Remaining: 4}) {
		t.Fatalf("quota = %+v", q)
	}
	if !sess.Store().HasVoted("cA") {
		t.Fatal("vote missing after confirmation")
	}

	// Doubling up on the same card never reaches the server.
	res = sess.AddVote(context.Background(), "cA")
	if !res.NoOp {
		t.Fatalf("duplicate vote result = %+v", res)
	}
}

func TestAddVoteExhaustedQuotaIsNoOp(t *testing.T) {
	snap := testSnapshot()
	snap.Quota = &Quota{Max: 5, Used: 5, Remaining: 0}
	remote := &fakeRemote{snapshot: snap}
	sess := NewSession(NewStore(snap, "p1"), remote)

	res := sess.AddVote(context.Background(), "cA")
	if !res.NoOp {
		t.Fatalf("result = %+v", res)
	}
}

func TestFailedVoteKeepsOptimisticState(t *testing.T) {
	sess, remote := newTestSession()
	remote.voteErr = errors.New("quota exceeded")

	res := sess.AddVote(context.Background(), "cA")
	if res.Err == nil || res.Resynced {
		t.Fatalf("result = %+v", res)
	}
	// The optimistic vote stays for manual retry; only a notice is raised.
	if !sess.Store().HasVoted("cA") {
		t.Fatal("optimistic vote was rolled back")
	}
	if remote.fetches != 0 {
		t.Fatalf("vote failure triggered a resync (%d fetches)", remote.fetches)
	}
	notices := sess.Store().Notices()
	if len(notices) != 1 || notices[0].Level != NoticeError {
		t.Fatalf("notices = %+v", notices)
	}
}

func TestRemoveVoteWithoutVoteIsNoOp(t *testing.T) {
	sess, _ := newTestSession()

	if res := sess.RemoveVote(context.Background(), "cA"); !res.NoOp {
		t.Fatalf("result = %+v", res)
	}
}

func TestRemoveVoteAdoptsServerQuota(t *testing.T) {
	sess, remote := newTestSession()
	remote.vote = store.Vote{ID: "v-srv", BoardID: "b1", CardID: "cA", ParticipantID: "p1"}
	remote.voteQuota = Quota{Max: 5, Used: 1, Remaining: 4}
	sess.AddVote(context.Background(), "cA")

	remote.voteQuota = Quota{Max: 5, Used: 0, Remaining: 5}
	res := sess.RemoveVote(context.Background(), "cA")
	if res.Err != nil || res.NoOp {
		t.Fatalf("result = %+v", res)
	}
	if q := sess.Store().Quota(); q.Used != 0 || q.Remaining != 5 {
		t.Fatalf("quota = %+v", q)
	}
	if sess.Store().HasVoted("cA") {
		t.Fatal("vote survived removal")
	}
}

func TestReactionDuplicateIsNoOp(t *testing.T) {
	sess, _ := newTestSession()

	if res := sess.AddReaction(context.Background(), "cA", "👍"); res.Err != nil {
		t.Fatalf("result = %+v", res)
	}
	if res := sess.AddReaction(context.Background(), "cA", "👍"); !res.NoOp {
		t.Fatalf("duplicate result = %+v", res)
	}
	// A different emoji on the same card goes through.
	if res := sess.AddReaction(context.Background(), "cA", "🎉"); res.Err != nil || res.NoOp {
		t.Fatalf("second emoji result = %+v", res)
	}
}

func TestDeleteCardCascadesLocally(t *testing.T) {
	sess, remote := newTestSession()
	remote.vote = store.Vote{ID: "v-srv", BoardID: "b1", CardID: "cA", ParticipantID: "p1"}
	remote.voteQuota = Quota{Max: 5, Used: 1, Remaining: 4}
	sess.AddVote(context.Background(), "cA")

	if res := sess.DeleteCard(context.Background(), "cA"); res.Err != nil {
		t.Fatalf("result = %+v", res)
	}
	if _, ok := sess.Store().Card("cA"); ok {
		t.Fatal("card still cached")
	}
	if q := sess.Store().Quota(); q.Used != 0 {
		t.Fatalf("quota = %+v", q)
	}
}

func TestReconnectTriggersResync(t *testing.T) {
	sess, remote := newTestSession()

	if err := sess.HandleConnectivity(context.Background(), false); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if remote.fetches != 0 {
		t.Fatal("disconnect must not fetch")
	}
	if sess.Store().Connected() {
		t.Fatal("still marked connected")
	}

	if err := sess.HandleConnectivity(context.Background(), true); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if remote.fetches != 1 {
		t.Fatalf("fetches = %d, want 1", remote.fetches)
	}
	// A repeated connected signal is not a reconnect.
	if err := sess.HandleConnectivity(context.Background(), true); err != nil {
		t.Fatalf("repeat: %v", err)
	}
	if remote.fetches != 1 {
		t.Fatalf("fetches = %d after repeat", remote.fetches)
	}
}

func TestNoticesExpire(t *testing.T) {
	st := NewStore(testSnapshot(), "p1")
	base := time.Now()
	current := base
	st.now = func() time.Time { return current }

	st.Notify(NoticeInfo, "phase changed")
	st.Notify(NoticeError, "move card failed")

	if got := len(st.Notices()); got != 2 {
		t.Fatalf("notices = %d", got)
	}
	current = base.Add(5 * time.Second) // info (4s) gone, error (8s) alive
	notices := st.Notices()
	if len(notices) != 1 || notices[0].Level != NoticeError {
		t.Fatalf("notices = %+v", notices)
	}
	current = base.Add(9 * time.Second)
	if got := len(st.Notices()); got != 0 {
		t.Fatalf("notices = %d after expiry", got)
	}
}
