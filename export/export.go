// Package export 把报表行写成 CSV / XLSX / PDF
package export

import (
	"strconv"
	"time"

	"guest_tracker/models"
)

const timeLayout = "2006-01-02 15:04:05"

type GuestRow struct {
	Name          string
	Email         string
	Phone         string
	Rank          string
	Institution   string
	Status        string
	RSVP          string
	PlusOnes      int
	Dietary       string
	TableNumber   string
	SeatNumber    string
	CheckedIn     bool
	CheckInTime   *time.Time
	BarcodeNumber string
}

var guestHeader = []string{
	"Name", "Email", "Phone", "Rank", "Institution", "Status", "RSVP", "Plus Ones",
	"Dietary Restrictions", "Table", "Seat", "Checked In", "Check-in Time", "Barcode",
}

// GuestRows 邀请需预加载 Guest 和 RSVP
func GuestRows(invs []models.Invitation) []GuestRow {
	out := make([]GuestRow, 0, len(invs))
	for _, inv := range invs {
		row := GuestRow{
			Name:          inv.Guest.FullName(),
			Email:         inv.Guest.Email,
			Phone:         inv.Guest.Phone,
			Rank:          inv.Guest.Rank,
			Institution:   inv.Guest.Institution,
			Status:        inv.Status,
			TableNumber:   inv.TableNumber,
			SeatNumber:    inv.SeatNumber,
			CheckedIn:     inv.CheckedIn,
			CheckInTime:   inv.CheckInTime,
			BarcodeNumber: inv.BarcodeNumber,
		}
		if inv.RSVP != nil {
			row.RSVP = inv.RSVP.Response
			row.PlusOnes = inv.RSVP.PlusOnes
			row.Dietary = inv.RSVP.DietaryRestrictions
		}
		out = append(out, row)
	}
	return out
}

func (g GuestRow) strings() []string {
	return []string{
		g.Name, g.Email, g.Phone, g.Rank, g.Institution, g.Status, g.RSVP,
		strconv.Itoa(g.PlusOnes), g.Dietary, g.TableNumber, g.SeatNumber,
		yesNo(g.CheckedIn), formatTime(g.CheckInTime), g.BarcodeNumber,
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(timeLayout)
}
