package db

import (
	"context"
	"testing"

	"guest_tracker/models"
)

func TestGenerateSeatsPreviewAndCreate(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	ev := seedEvent(t, r, true)
	if ev.SeatingMode != models.SeatingModeNone {
		t.Fatalf("expected none mode for event without tables, got %q", ev.SeatingMode)
	}
	if _, _, err := r.UpsertTable(ctx, ev.ID, TableInput{Number: "1", Capacity: 3}); err != nil {
		t.Fatalf("upsert table: %v", err)
	}

	preview, err := r.GenerateSeats(ctx, ev.ID, true)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if len(preview.Planned) != 3 || preview.Created != 0 {
		t.Fatalf("unexpected preview: %+v", preview)
	}

	res, err := r.GenerateSeats(ctx, ev.ID, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Created != 3 {
		t.Fatalf("expected 3 seats created, got %d", res.Created)
	}
	again, err := r.GenerateSeats(ctx, ev.ID, false)
	if err != nil {
		t.Fatalf("generate again: %v", err)
	}
	if again.Created != 0 {
		t.Errorf("generation should be idempotent, created %d", again.Created)
	}

	updated, err := r.FindEventByID(ctx, ev.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.SeatingMode != models.SeatingModeInventory {
		t.Errorf("expected inventory mode after seats exist, got %q", updated.SeatingMode)
	}
}

func TestApplySeatingArrangementMergeAndSync(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	ev := seedEvent(t, r, false)

	initial := models.SeatingArrangement{Tables: []models.ArrangementTable{
		{Number: "1", Capacity: 4},
		{Number: "2", Capacity: 2},
	}}
	assigned := true
	if _, err := r.ApplySeatingArrangement(ctx, ev.ID, initial, &assigned, ArrangementOptions{}); err != nil {
		t.Fatalf("initial apply: %v", err)
	}

	shrunk := models.SeatingArrangement{Tables: []models.ArrangementTable{{Number: "1", Capacity: 2}}}
	preview, err := r.ApplySeatingArrangement(ctx, ev.ID, shrunk, nil, ArrangementOptions{Preview: true, Merge: true, Sync: true})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if preview.SeatsRemoved != 2 || preview.TablesUpdated != 1 {
		t.Errorf("unexpected preview: %+v", preview)
	}
	tables, _ := r.ListTables(ctx, ev.ID)
	if len(tables) != 2 || len(tables[0].Seats) != 4 {
		t.Fatalf("preview must not write, got %+v", tables)
	}

	if _, err := r.ApplySeatingArrangement(ctx, ev.ID, shrunk, nil, ArrangementOptions{Merge: true, Sync: true}); err != nil {
		t.Fatalf("merge+sync: %v", err)
	}
	tables, err = r.ListTables(ctx, ev.ID)
	if err != nil {
		t.Fatal(err)
	}
	// merge 保留表 2；sync 只裁剪表 1 多余的座位
	if len(tables) != 2 {
		t.Fatalf("expected table 2 kept by merge, got %d tables", len(tables))
	}
	if tables[0].Number != "1" || len(tables[0].Seats) != 2 {
		t.Errorf("expected table 1 pruned to 2 seats, got %+v", tables[0])
	}

	updated, _ := r.FindEventByID(ctx, ev.ID)
	if !updated.HasAssignedSeating || len(updated.SeatingArrangement.Tables) != 1 {
		t.Errorf("event config not persisted: %+v", updated)
	}
}

func TestReplaceArrangementKeepsAssignedTables(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	ev := seedEvent(t, r, true)
	arr := models.SeatingArrangement{Tables: []models.ArrangementTable{{Number: "1", Capacity: 2}, {Number: "2", Capacity: 2}}}
	if _, err := r.ApplySeatingArrangement(ctx, ev.ID, arr, nil, ArrangementOptions{}); err != nil {
		t.Fatal(err)
	}
	seedInvitations(t, r, ev.ID, 1)
	if _, err := r.AssignSeats(ctx, ev.ID, []SeatAssignment{{Table: "2", Seat: "1", Guest: "guest0@example.com"}}); err != nil {
		t.Fatal(err)
	}

	res, err := r.ApplySeatingArrangement(ctx, ev.ID, models.SeatingArrangement{Tables: []models.ArrangementTable{{Number: "9", Capacity: 1}}}, nil, ArrangementOptions{})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if res.TablesRemoved != 1 || res.TablesCreated != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
	tables, _ := r.ListTables(ctx, ev.ID)
	if len(tables) != 2 || tables[0].Number != "2" || tables[1].Number != "9" {
		t.Errorf("expected tables 2 and 9, got %+v", tables)
	}
}

func TestAssignSeatsReportsProblems(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	ev := seedEvent(t, r, true)
	if _, _, err := r.UpsertTable(ctx, ev.ID, TableInput{Number: "1", Capacity: 2}); err != nil {
		t.Fatal(err)
	}
	invs := seedInvitations(t, r, ev.ID, 2)

	res, err := r.AssignSeats(ctx, ev.ID, []SeatAssignment{
		{Table: "1", Seat: "1", Guest: invs[0].BarcodeNumber},
		{Table: "1", Seat: "1", Guest: invs[1].UniqueCode},
		{Table: "7", Seat: "1", Guest: invs[1].UniqueCode},
		{Table: "1", Seat: "2", Guest: "nobody@example.com"},
	})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if res.Assigned != 1 || len(res.Errors) != 3 {
		t.Errorf("expected 1 assignment and 3 errors, got %+v", res)
	}
}

func TestSeatingChartGroupsByTable(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	ev := seedEvent(t, r, true, models.ArrangementTable{Number: "1", Capacity: 1}, models.ArrangementTable{Number: "2", Capacity: 5})
	for _, inv := range seedInvitations(t, r, ev.ID, 3) {
		if _, err := r.CheckIn(ctx, CheckInInput{InvitationID: inv.ID}); err != nil {
			t.Fatal(err)
		}
	}
	chart, err := r.SeatingChart(ctx, ev.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(chart) != 2 || chart[0].Table != "1" || len(chart[0].Guests) != 1 || len(chart[1].Guests) != 2 {
		t.Errorf("unexpected chart: %+v", chart)
	}
}
