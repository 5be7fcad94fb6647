package export

import (
	"encoding/csv"
	"io"

	"guest_tracker/db"
)

var checkInHeader = []string{
	"Checked In At", "Guest", "Email", "Rank", "Institution", "Table", "Seat", "Barcode", "Operator",
}

func WriteGuestsCSV(w io.Writer, rows []GuestRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(guestHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.strings()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteCheckInsCSV(w io.Writer, rows []db.CheckInLogRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(checkInHeader); err != nil {
		return err
	}
	for _, r := range rows {
		at := r.CheckedInAt
		rec := []string{
			formatTime(&at), r.GuestName, r.Email, r.Rank, r.Institution,
			r.TableNumber, r.SeatNumber, r.BarcodeNumber, r.Operator,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
