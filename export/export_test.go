package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"guest_tracker/db"
	"guest_tracker/models"
)

func sampleRows() []GuestRow {
	at := time.Date(2026, 5, 10, 18, 30, 0, 0, time.UTC)
	invs := []models.Invitation{
		{
			Status: models.InvitationResponded, CheckedIn: true, CheckInTime: &at,
			TableNumber: "2", SeatNumber: "1", BarcodeNumber: "100000000001",
			Guest: models.Guest{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Institution: "Analytical Society"},
			RSVP:  &models.RSVP{Response: models.RSVPYes, PlusOnes: 1, DietaryRestrictions: "vegetarian"},
		},
		{
			Status:        models.InvitationSent,
			BarcodeNumber: "100000000002",
			Guest:         models.Guest{FirstName: "José", LastName: "Núñez", Email: "jose@example.com"},
		},
	}
	return GuestRows(invs)
}

func TestGuestRows(t *testing.T) {
	rows := sampleRows()
	if rows[0].Name != "Ada Lovelace" || rows[0].RSVP != "yes" || rows[0].PlusOnes != 1 {
		t.Errorf("unexpected first row %+v", rows[0])
	}
	if rows[1].RSVP != "" || rows[1].CheckedIn {
		t.Errorf("unexpected second row %+v", rows[1])
	}
}

func TestWriteGuestsCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteGuestsCSV(&buf, sampleRows()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	recs, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(recs))
	}
	if recs[1][11] != "Yes" || recs[1][12] != "2026-05-10 18:30:00" {
		t.Errorf("unexpected check-in columns %v", recs[1])
	}
}

func TestWriteCheckInsCSV(t *testing.T) {
	var buf bytes.Buffer
	rows := []db.CheckInLogRow{{
		CheckedInAt: time.Date(2026, 5, 10, 18, 0, 0, 0, time.UTC),
		GuestName:   "Ada Lovelace", TableNumber: "2", SeatNumber: "1", Operator: "ops@example.com",
	}}
	if err := WriteCheckInsCSV(&buf, rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "2026-05-10 18:00:00,Ada Lovelace") {
		t.Errorf("unexpected csv %q", buf.String())
	}
}

func TestWriteGuestsXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteGuestsXLSX(&buf, sampleRows()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(guestSheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 || rows[0][0] != "Name" || rows[2][0] != "José Núñez" {
		t.Errorf("unexpected sheet contents %v", rows)
	}
}

func TestWritePDFs(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteGuestsPDF(&buf, "Spring Gala", sampleRows(), time.Now()); err != nil {
		t.Fatalf("guests pdf: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Error("guest list is not a pdf")
	}

	buf.Reset()
	chart := []db.SeatingChartTable{
		{Table: "1", Guests: []db.SeatingChartEntry{{GuestName: "Ada Lovelace", SeatNumber: "1", CheckedIn: true}}},
		{Table: "Unassigned", Guests: []db.SeatingChartEntry{{GuestName: "José Núñez"}}},
	}
	if err := WriteSeatingPDF(&buf, "Spring Gala", chart); err != nil {
		t.Fatalf("seating pdf: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Error("seating chart is not a pdf")
	}
}
