package export

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"guest_tracker/db"
)

type pdfColumn struct {
	title string
	width float64
}

var guestPDFColumns = []pdfColumn{
	{"Name", 55}, {"Email", 65}, {"Institution", 45}, {"RSVP", 18},
	{"Table", 18}, {"Seat", 15}, {"Checked In", 22}, {"Barcode", 32},
}

func newPDF(title string) (*fpdf.Fpdf, func(string) string) {
	pdf := fpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title, true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	return pdf, tr
}

func pdfTitle(pdf *fpdf.Fpdf, tr func(string) string, title, subtitle string) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr(subtitle), "", 1, "L", false, 0, "")
	pdf.Ln(4)
}

// WriteGuestsPDF 横向 A4 宾客名单，表头每页重复
func WriteGuestsPDF(w io.Writer, eventName string, rows []GuestRow, generated time.Time) error {
	pdf, tr := newPDF(eventName + " guest list")
	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(221, 235, 247)
		for _, c := range guestPDFColumns {
			pdf.CellFormat(c.width, 7, c.title, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
	}
	pdf.AddPage()
	pdfTitle(pdf, tr, eventName, fmt.Sprintf("Guest list, %d guests, generated %s", len(rows), generated.UTC().Format(timeLayout)))
	header()
	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, r := range rows {
		if pdf.GetY()+6 > pageH-bottom-15 {
			pdf.AddPage()
			header()
		}
		vals := []string{r.Name, r.Email, r.Institution, r.RSVP, r.TableNumber, r.SeatNumber, yesNo(r.CheckedIn), r.BarcodeNumber}
		for i, c := range guestPDFColumns {
			pdf.CellFormat(c.width, 6, tr(vals[i]), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	return pdf.Output(w)
}

func WriteSeatingPDF(w io.Writer, eventName string, chart []db.SeatingChartTable) error {
	pdf, tr := newPDF(eventName + " seating chart")
	pdf.AddPage()
	pdfTitle(pdf, tr, eventName, "Seating chart")
	for _, t := range chart {
		pdf.SetFont("Helvetica", "B", 12)
		label := "Table " + t.Table
		if t.Table == "Unassigned" {
			label = t.Table
		}
		pdf.CellFormat(0, 8, tr(fmt.Sprintf("%s (%d)", label, len(t.Guests))), "B", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		for _, g := range t.Guests {
			mark := ""
			if g.CheckedIn {
				mark = "checked in"
			}
			pdf.CellFormat(20, 6, tr(g.SeatNumber), "", 0, "L", false, 0, "")
			pdf.CellFormat(80, 6, tr(g.GuestName), "", 0, "L", false, 0, "")
			pdf.CellFormat(90, 6, tr(g.Email), "", 0, "L", false, 0, "")
			pdf.CellFormat(0, 6, mark, "", 1, "L", false, 0, "")
		}
		pdf.Ln(3)
	}
	return pdf.Output(w)
}
