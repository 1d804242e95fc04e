package app

import (
	"context"
	"testing"
	"time"

	"retroboard/api/internal/store"
)

func seedClosedTeamBoard(fs *fakeStore, id, team string, closedAt time.Time) store.Board {
	board := store.Board{
		ID:       id,
		Slug:     "closed-" + id,
		Title:    "Retro " + id,
		Phase:    store.PhaseClosed,
		TeamName: team,
		ClosedAt: &closedAt,
	}
	fs.putBoard(board)
	return board
}

func TestCarryOverSurfacesUnfinishedItems(t *testing.T) {
	svc, fs, _ := newTestService()
	closed := time.Date(2026, 8, 20, 17, 0, 0, 0, time.UTC)
	seedClosedTeamBoard(fs, "old", "Team A", closed)
	fs.putItem(store.ActionItem{ID: "a-open", BoardID: "old", Content: "fix CI", Status: store.StatusOpen})
	fs.putItem(store.ActionItem{ID: "a-wip", BoardID: "old", Content: "pair more", Status: store.StatusInProgress})
	fs.putItem(store.ActionItem{ID: "a-done", BoardID: "old", Content: "done", Status: store.StatusDone})

	board := seedBoard(fs, store.PhaseWriting)
	board.TeamName = "Team A"
	fs.putBoard(board)

	// Scenario: the new Team A board sees the two unfinished items, stamped
	// with source provenance.
	items, err := svc.CarryOverItems(context.Background(), "sprint-12")
	if err != nil {
		t.Fatalf("carryover: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("carryover items = %d, want 2", len(items))
	}
	for _, item := range items {
		if item.SourceBoardID != "old" || item.SourceBoardTitle != "Retro old" {
			t.Fatalf("provenance = %+v", item)
		}
		if !item.SourceClosedAt.Equal(closed) {
			t.Fatalf("closedAt = %v, want %v", item.SourceClosedAt, closed)
		}
		if item.Item.Status == store.StatusDone {
			t.Fatal("DONE items must not carry over")
		}
	}
}

func TestCarryOverPicksMostRecentClosedBoard(t *testing.T) {
	svc, fs, _ := newTestService()
	seedClosedTeamBoard(fs, "older", "Team A", time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC))
	seedClosedTeamBoard(fs, "newer", "Team A", time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	fs.putItem(store.ActionItem{ID: "a-old", BoardID: "older", Content: "stale", Status: store.StatusOpen})
	fs.putItem(store.ActionItem{ID: "a-new", BoardID: "newer", Content: "fresh", Status: store.StatusOpen})

	board := seedBoard(fs, store.PhaseWriting)
	board.TeamName = "Team A"
	fs.putBoard(board)

	items, err := svc.CarryOverItems(context.Background(), "sprint-12")
	if err != nil {
		t.Fatalf("carryover: %v", err)
	}
	if len(items) != 1 || items[0].Item.ID != "a-new" {
		t.Fatalf("items = %+v, want only the most recent board's", items)
	}
}

func TestCarryOverRespectsTeamBoundary(t *testing.T) {
	svc, fs, _ := newTestService()
	seedClosedTeamBoard(fs, "old", "Team A", time.Now().UTC())
	fs.putItem(store.ActionItem{ID: "a1", BoardID: "old", Content: "x", Status: store.StatusOpen})

	// Scenario: Team B sees nothing from Team A.
	boardB := seedBoard(fs, store.PhaseWriting)
	boardB.TeamName = "Team B"
	fs.putBoard(boardB)
	items, err := svc.CarryOverItems(context.Background(), "sprint-12")
	if err != nil {
		t.Fatalf("carryover: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("Team B got %d carryover items", len(items))
	}

	// A board without a team never sees carryover.
	boardB.TeamName = ""
	fs.putBoard(boardB)
	items, err = svc.CarryOverItems(context.Background(), "sprint-12")
	if err != nil {
		t.Fatalf("carryover: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("teamless board got %d carryover items", len(items))
	}
}

func TestUpdateCarryOverStatus(t *testing.T) {
	svc, fs, broker := newTestService()
	seedClosedTeamBoard(fs, "old", "Team A", time.Now().UTC())
	fs.putItem(store.ActionItem{ID: "a1", BoardID: "old", Content: "x", Status: store.StatusOpen, Priority: store.PriorityMedium})

	board := seedBoard(fs, store.PhaseWriting)
	board.TeamName = "Team A"
	fs.putBoard(board)
	rec := &eventRecorder{}
	cancel := broker.Subscribe("b1", rec.handle)
	defer cancel()

	// Only the new session's facilitator may move the status.
	_, err := svc.UpdateCarryOverStatus(context.Background(), "sprint-12", "a1", "p1", store.StatusDone)
	wantDomainError(t, err, 403)

	item, err := svc.UpdateCarryOverStatus(context.Background(), "sprint-12", "a1", "p-fac", store.StatusDone)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if item.Status != store.StatusDone {
		t.Fatalf("status = %s", item.Status)
	}
	stored, _ := fs.GetActionItem(context.Background(), "a1")
	if stored.Status != store.StatusDone {
		t.Fatal("status change must persist on the source item")
	}
	if len(rec.types()) != 1 {
		t.Fatalf("expected one event on the new board's channel, got %v", rec.types())
	}

	_, err = svc.UpdateCarryOverStatus(context.Background(), "sprint-12", "a1", "p-fac", "WONTFIX")
	wantDomainError(t, err, 400)
}

func TestUpdateCarryOverStatusRejectsForeignItems(t *testing.T) {
	svc, fs, _ := newTestService()
	seedClosedTeamBoard(fs, "old", "Team A", time.Now().UTC())
	seedClosedTeamBoard(fs, "other-team", "Team B", time.Now().UTC())
	fs.putItem(store.ActionItem{ID: "a-b", BoardID: "other-team", Content: "x", Status: store.StatusOpen})

	board := seedBoard(fs, store.PhaseWriting)
	board.TeamName = "Team A"
	fs.putBoard(board)

	// An item from another team's lineage is not part of this carryover.
	_, err := svc.UpdateCarryOverStatus(context.Background(), "sprint-12", "a-b", "p-fac", store.StatusDone)
	wantDomainError(t, err, 400)
}

func TestCreateBoardReturnsCarryOver(t *testing.T) {
	svc, fs, _ := newTestService()
	seedClosedTeamBoard(fs, "old", "Team A", time.Now().UTC())
	fs.putItem(store.ActionItem{ID: "a1", BoardID: "old", Content: "follow up", Status: store.StatusOpen})

	created, err := svc.CreateBoard(context.Background(), CreateBoardInput{
		Title:               "Next Retro",
		TeamName:            "Team A",
		FacilitatorNickname: "Dana",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(created.CarryOver) != 1 || created.CarryOver[0].Item.ID != "a1" {
		t.Fatalf("carryover = %+v", created.CarryOver)
	}
}
