package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"guest_tracker/db"
	"guest_tracker/export"
)

type ExportController struct{ *Srv }

func GetExportController(s *Srv) *ExportController { return &ExportController{Srv: s} }

const (
	mimeCSV  = "text/csv; charset=utf-8"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimePDF  = "application/pdf"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func attachment(c *gin.Context, name, mime string, body []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, mime, body)
}

func fileName(event, suffix string) string {
	base := strings.Trim(unsafeName.ReplaceAllString(event, "_"), "_")
	if base == "" {
		base = "event"
	}
	return base + "_" + suffix
}

// GET /api/events/:id/export/guests.{csv,xlsx,pdf}
func (ec *ExportController) Guests(format string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		ctx := c.Request.Context()
		ev, err := ec.Repo.FindEventByID(ctx, id)
		if err != nil {
			fail(c, err)
			return
		}
		invs, err := ec.Repo.ListInvitations(ctx, db.InvitationsQuery{EventID: id})
		if err != nil {
			fail(c, err)
			return
		}
		rows := export.GuestRows(invs)

		var buf bytes.Buffer
		switch format {
		case "csv":
			err = export.WriteGuestsCSV(&buf, rows)
		case "xlsx":
			err = export.WriteGuestsXLSX(&buf, rows)
		case "pdf":
			err = export.WriteGuestsPDF(&buf, ev.Name, rows, time.Now())
		}
		if err != nil {
			fail(c, err)
			return
		}
		mime := map[string]string{"csv": mimeCSV, "xlsx": mimeXLSX, "pdf": mimePDF}[format]
		attachment(c, fileName(ev.Name, "guests."+format), mime, buf.Bytes())
	}
}

// GET /api/events/:id/export/seating.pdf
func (ec *ExportController) SeatingPDF(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	ev, err := ec.Repo.FindEventByID(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	chart, err := ec.Repo.SeatingChart(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteSeatingPDF(&buf, ev.Name, chart); err != nil {
		fail(c, err)
		return
	}
	attachment(c, fileName(ev.Name, "seating.pdf"), mimePDF, buf.Bytes())
}

// GET /api/events/:id/export/checkins.csv?start=&end=
func (ec *ExportController) CheckInsCSV(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	start, ok := queryTime(c, "start")
	if !ok {
		return
	}
	end, ok := queryTime(c, "end")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	ev, err := ec.Repo.FindEventByID(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	rows, err := ec.Repo.CheckInLogRows(ctx, id, start, end)
	if err != nil {
		fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCheckInsCSV(&buf, rows); err != nil {
		fail(c, err)
		return
	}
	attachment(c, fileName(ev.Name, "checkins.csv"), mimeCSV, buf.Bytes())
}
