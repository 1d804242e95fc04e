package app

import (
	"context"
	"testing"

	"retroboard/api/internal/store"
)

// The guard runs its checks in a fixed order; each test below removes one
// precondition at a time and asserts the error kind that layer produces.

func TestGuardOrderBoardMissingFirst(t *testing.T) {
	svc, fs, _ := newTestService()
	seedBoard(fs, store.PhaseClosed) // wrong phase AND missing card, but board wins
	_, err := svc.UpdateCardContent(context.Background(), "missing-board", "no-card", "ghost", "x")
	wantDomainError(t, err, 404)
}

func TestGuardOrderEntityMissingSecond(t *testing.T) {
	svc, fs, _ := newTestService()
	seedBoard(fs, store.PhaseClosed) // phase would also fail, entity check comes first
	_, err := svc.UpdateCardContent(context.Background(), "sprint-12", "no-card", "ghost", "x")
	wantDomainError(t, err, 404)
}

func TestGuardOrderCrossBoardBeforePhase(t *testing.T) {
	svc, fs, _ := newTestService()
	seedBoard(fs, store.PhaseClosed)
	fs.putBoard(store.Board{ID: "b2", Slug: "other", Phase: store.PhaseWriting})
	other := "col-x"
	fs.putColumn(store.Column{ID: other, BoardID: "b2"})
	foreign := store.Card{ID: "c-foreign", BoardID: "b2", ColumnID: &other}
	fs.putCard(foreign)

	// The card exists but belongs to b2: BadRequest even though the phase
	// check would also fail.
	_, err := svc.UpdateCardContent(context.Background(), "sprint-12", "c-foreign", "ghost", "x")
	wantDomainError(t, err, 400)
}

func TestGuardOrderPhaseBeforeParticipant(t *testing.T) {
	svc, fs, _ := newTestService()
	seedBoard(fs, store.PhaseClosed)
	seedCard(fs, "c1", "col-1", "p1", 0)

	// Ghost participant would be NotFound, but the phase check runs first.
	_, err := svc.UpdateCardContent(context.Background(), "sprint-12", "c1", "ghost", "x")
	wantDomainError(t, err, 400)
}

func TestGuardOrderParticipantBeforeCapability(t *testing.T) {
	svc, fs, _ := newTestService()
	seedBoard(fs, store.PhaseWriting)
	seedCard(fs, "c1", "col-1", "p1", 0)

	_, err := svc.UpdateCardContent(context.Background(), "sprint-12", "c1", "ghost", "x")
	wantDomainError(t, err, 404)
}

func TestCardEditIsAuthorOnly(t *testing.T) {
	svc, fs, _ := newTestService()
	seedBoard(fs, store.PhaseWriting)
	seedCard(fs, "c1", "col-1", "p1", 0)

	// Scenario: non-author, non-facilitator p2 cannot edit.
	_, err := svc.UpdateCardContent(context.Background(), "sprint-12", "c1", "p2", "rewritten")
	wantDomainError(t, err, 403)

	// Even the facilitator cannot rewrite someone else's card.
	_, err = svc.UpdateCardContent(context.Background(), "sprint-12", "c1", "p-fac", "rewritten")
	wantDomainError(t, err, 403)

	card, err := svc.UpdateCardContent(context.Background(), "sprint-12", "c1", "p1", "rewritten")
	if err != nil {
		t.Fatalf("author edit: %v", err)
	}
	if card.Content != "rewritten" {
		t.Fatalf("content = %q", card.Content)
	}
}

func TestCardDeleteAdmitsFacilitator(t *testing.T) {
	svc, fs, _ := newTestService()
	seedBoard(fs, store.PhaseWriting)
	seedCard(fs, "c1", "col-1", "p1", 0)
	seedCard(fs, "c2", "col-1", "p1", 1)

	if err := svc.DeleteCard(context.Background(), "sprint-12", "c1", "p2"); err == nil {
		t.Fatal("outsider delete should fail")
	} else {
		wantDomainError(t, err, 403)
	}

	if err := svc.DeleteCard(context.Background(), "sprint-12", "c1", "p-fac"); err != nil {
		t.Fatalf("facilitator delete: %v", err)
	}
	if err := svc.DeleteCard(context.Background(), "sprint-12", "c2", "p1"); err != nil {
		t.Fatalf("author delete: %v", err)
	}
}

func TestActionItemCapabilityIsAssigneeOrFacilitator(t *testing.T) {
	svc, fs, _ := newTestService()
	seedBoard(fs, store.PhaseActionItems)
	assignee := "p1"
	fs.putItem(store.ActionItem{ID: "a1", BoardID: "b1", Content: "follow up", AssigneeID: &assignee, Status: store.StatusOpen, Priority: store.PriorityMedium})

	_, err := svc.UpdateActionItemStatus(context.Background(), "sprint-12", "a1", "p2", store.StatusInProgress)
	wantDomainError(t, err, 403)

	if _, err := svc.UpdateActionItemStatus(context.Background(), "sprint-12", "a1", "p1", store.StatusInProgress); err != nil {
		t.Fatalf("assignee status change: %v", err)
	}
	if _, err := svc.UpdateActionItemStatus(context.Background(), "sprint-12", "a1", "p-fac", store.StatusDone); err != nil {
		t.Fatalf("facilitator status change: %v", err)
	}

	if err := svc.DeleteActionItem(context.Background(), "sprint-12", "a1", "p2"); err == nil {
		t.Fatal("outsider delete should fail")
	}
	if err := svc.DeleteActionItem(context.Background(), "sprint-12", "a1", "p-fac"); err != nil {
		t.Fatalf("facilitator delete: %v", err)
	}
}

func TestMemoCapabilities(t *testing.T) {
	svc, fs, _ := newTestService()
	seedBoard(fs, store.PhaseDiscussion)
	seedCard(fs, "c1", "col-1", "p1", 0)

	memo, err := svc.CreateMemo(context.Background(), "sprint-12", "c1", "p1", "remember this")
	if err != nil {
		t.Fatalf("create memo: %v", err)
	}

	_, err = svc.UpdateMemoContent(context.Background(), "sprint-12", memo.ID, "p-fac", "changed")
	wantDomainError(t, err, 403)

	if _, err := svc.UpdateMemoContent(context.Background(), "sprint-12", memo.ID, "p1", "changed"); err != nil {
		t.Fatalf("author memo edit: %v", err)
	}
	if err := svc.DeleteMemo(context.Background(), "sprint-12", memo.ID, "p-fac"); err != nil {
		t.Fatalf("facilitator memo delete: %v", err)
	}
}
