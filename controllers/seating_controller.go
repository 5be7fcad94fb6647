package controllers

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"guest_tracker/app"
	"guest_tracker/db"
	"guest_tracker/importer"
	"guest_tracker/models"
)

type SeatingController struct{ *Srv }

func GetSeatingController(s *Srv) *SeatingController { return &SeatingController{Srv: s} }

// GET /api/events/:id/tables
func (sc *SeatingController) ListTables(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	tables, err := sc.Repo.ListTables(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"tables": tables})
}

// POST /api/events/:id/tables {number, capacity, section}
func (sc *SeatingController) UpsertTable(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in db.TableInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	t, created, err := sc.Repo.UpsertTable(c.Request.Context(), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	c.JSON(code, app.H{"table": t, "created": created})
}

// DELETE /api/events/:id/tables/:tableId
func (sc *SeatingController) DeleteTable(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	tableID, ok := idParam(c, "tableId")
	if !ok {
		return
	}
	if err := sc.Repo.DeleteTable(c.Request.Context(), id, tableID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// POST /api/events/:id/seats/generate {preview}
func (sc *SeatingController) GenerateSeats(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		Preview bool `json:"preview"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	if _, err := sc.Repo.FindEventByID(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	res, err := sc.Repo.GenerateSeats(c.Request.Context(), id, in.Preview)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// PUT /api/events/:id/seating-arrangement
// {seating_arrangement:{tables:[...]}, has_assigned_seating, preview, merge, sync}
func (sc *SeatingController) ApplyArrangement(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		SeatingArrangement *models.SeatingArrangement `json:"seating_arrangement"`
		Tables             []models.ArrangementTable  `json:"tables"`
		HasAssignedSeating *bool                      `json:"has_assigned_seating"`
		db.ArrangementOptions
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	arr := models.SeatingArrangement{Tables: in.Tables}
	if in.SeatingArrangement != nil {
		arr = *in.SeatingArrangement
	}
	for _, t := range arr.Tables {
		if t.Number == "" || t.Capacity < 0 {
			badRequest(c, "every table needs a number and a non-negative capacity")
			return
		}
	}
	res, err := sc.Repo.ApplySeatingArrangement(c.Request.Context(), id, arr, in.HasAssignedSeating, in.ArrangementOptions)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/events/:id/seats/assign {assignments:[{table, seat, guest}]}
func (sc *SeatingController) AssignSeats(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		Assignments []struct {
			Table string `json:"table" binding:"required"`
			Seat  string `json:"seat" binding:"required"`
			Guest string `json:"guest" binding:"required"`
		} `json:"assignments" binding:"required,dive"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	rows := make([]db.SeatAssignment, 0, len(in.Assignments))
	for _, a := range in.Assignments {
		rows = append(rows, db.SeatAssignment{Table: a.Table, Seat: a.Seat, Guest: a.Guest})
	}
	res, err := sc.Repo.AssignSeats(c.Request.Context(), id, rows)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func uploadedFile(c *gin.Context) (multipart.File, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return nil, false
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return f, true
}

// POST /api/events/:id/seating/import  multipart: file, type=tables|seating, preview, createSeats
func (sc *SeatingController) Import(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	f, ok := uploadedFile(c)
	if !ok {
		return
	}
	defer f.Close()

	preview := truthy(c.PostForm("preview"))
	ctx := c.Request.Context()
	switch c.DefaultPostForm("type", "tables") {
	case "tables":
		rep, err := importer.ImportTables(ctx, sc.Repo, id, f, preview, truthy(c.PostForm("createSeats")))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, rep)
	case "seating":
		rep, err := importer.ImportSeating(ctx, sc.Repo, id, f, preview)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, rep)
	default:
		badRequest(c, "type must be tables or seating")
	}
}
