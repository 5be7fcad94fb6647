package importer

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"guest_tracker/db"
	"guest_tracker/models"
)

func newRepo(t *testing.T) *db.Repo {
	t.Helper()
	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db.NewRepo(conn)
}

func newEvent(t *testing.T, r *db.Repo) *models.Event {
	t.Helper()
	ev := &models.Event{Name: "Gala", Date: time.Now().UTC().Add(24 * time.Hour), HasAssignedSeating: true}
	if err := r.CreateEvent(context.Background(), ev); err != nil {
		t.Fatalf("create event: %v", err)
	}
	return ev
}

const guestsCSV = "\ufeffFirst_Name,Last_Name,Email,Phone,Rank,Institution\n" +
	"Ada,Lovelace,ADA@example.com,555-0100,Countess,Analytical Society\n" +
	"Charles,Babbage,charles@example.com,,,\n" +
	",,,,,\n" +
	"Broken,Row,not-an-email,,,\n" +
	"Ada,Lovelace,ada@example.com,,,\n"

func TestImportGuests(t *testing.T) {
	r := newRepo(t)
	ev := newEvent(t, r)
	ctx := context.Background()

	rep, err := ImportGuests(ctx, r, strings.NewReader(guestsCSV), GuestOptions{EventID: ev.ID, CreateInvitations: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Rows != 4 {
		t.Errorf("blank rows should be skipped, got %d rows", rep.Rows)
	}
	if rep.GuestsCreated != 2 || rep.GuestsExisting != 1 || rep.InvitationsCreated != 2 {
		t.Errorf("unexpected report %+v", rep)
	}
	if len(rep.Errors) != 1 || !strings.HasPrefix(rep.Errors[0], "row 5:") {
		t.Errorf("expected one error for row 5, got %v", rep.Errors)
	}
	g, err := r.FindGuestByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("find guest: %v", err)
	}
	if g.Institution != "Analytical Society" {
		t.Errorf("optional columns not imported: %+v", g)
	}
}

func TestImportGuestsMissingColumns(t *testing.T) {
	r := newRepo(t)
	_, err := ImportGuests(context.Background(), r, strings.NewReader("first_name,email\nAda,ada@example.com\n"), GuestOptions{})
	if !errors.Is(err, ErrMissingColumns) {
		t.Fatalf("expected ErrMissingColumns, got %v", err)
	}
}

func TestImportTablesAndSeating(t *testing.T) {
	r := newRepo(t)
	ev := newEvent(t, r)
	ctx := context.Background()

	tables := "number,capacity,section\n1,2,North\n2,x,\n10,1,South\n"
	rep, err := ImportTables(ctx, r, ev.ID, strings.NewReader(tables), true, true)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if len(rep.Tables) != 2 || rep.Created != 0 || len(rep.Errors) != 1 {
		t.Errorf("unexpected preview %+v", rep)
	}

	rep, err = ImportTables(ctx, r, ev.ID, strings.NewReader(tables), false, true)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if rep.Created != 2 || rep.SeatsCreated != 3 {
		t.Errorf("unexpected import %+v", rep)
	}

	if _, err := ImportGuests(ctx, r, strings.NewReader(guestsCSV), GuestOptions{EventID: ev.ID, CreateInvitations: true}); err != nil {
		t.Fatalf("guests: %v", err)
	}
	seating := "table,seat,guest\n1,1,ada@example.com\n10,1,charles@example.com\n9,1,ada@example.com\n"
	srep, err := ImportSeating(ctx, r, ev.ID, strings.NewReader(seating), false)
	if err != nil {
		t.Fatalf("seating: %v", err)
	}
	if srep.Assigned != 2 || len(srep.Errors) != 1 {
		t.Errorf("unexpected seating report %+v", srep)
	}
}

func TestParseEventConfig(t *testing.T) {
	var cases = []struct {
		name    string
		body    string
		tables  int
		wantErr bool
	}{
		{"Object", `{"seating_arrangement":{"tables":[{"number":1,"capacity":8},{"number":"2","capacity":6}]},"has_assigned_seating":true}`, 2, false},
		{"String encoded", `{"seating_arrangement":"{\"tables\":[{\"number\":\"A\",\"capacity\":4}]}"}`, 1, false},
		{"Top level tables", `{"tables":[{"number":"1","capacity":2}]}`, 1, false},
		{"Missing", `{"has_assigned_seating":true}`, 0, true},
		{"Negative capacity", `{"tables":[{"number":"1","capacity":-1}]}`, 0, true},
	}
	for _, tcase := range cases {
		t.Run(tcase.name, func(t *testing.T) {
			cfg, err := ParseEventConfig(strings.NewReader(tcase.body))
			if tcase.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(cfg.SeatingArrangement.Tables) != tcase.tables {
				t.Errorf("expected %d tables, got %d", tcase.tables, len(cfg.SeatingArrangement.Tables))
			}
		})
	}
}

func TestImportEventConfig(t *testing.T) {
	r := newRepo(t)
	ev := newEvent(t, r)
	ctx := context.Background()
	body := `{"seating_arrangement":{"tables":[{"number":"1","capacity":2},{"number":"2","capacity":3}]},"has_assigned_seating":true}`
	res, err := ImportEventConfig(ctx, r, ev.ID, strings.NewReader(body), db.ArrangementOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TablesCreated != 2 || res.SeatsCreated != 5 || res.SeatingMode != models.SeatingModeInventory {
		t.Errorf("unexpected result %+v", res)
	}
}
