package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"guest_tracker/app"
	"guest_tracker/db"
	"guest_tracker/models"
)

type EventController struct{ *Srv }

func GetEventController(s *Srv) *EventController { return &EventController{Srv: s} }

// GET /api/events?upcoming=1&mine=1&page=&size=
func (ec *EventController) List(c *gin.Context) {
	q := db.EventsQuery{
		Upcoming: c.Query("upcoming") == "1",
		Past:     c.Query("past") == "1",
		Page:     queryInt(c, "page", 1),
		Size:     queryInt(c, "size", 20),
	}
	if c.Query("mine") == "1" {
		q.CreatedBy = c.GetString(app.CtxUserID)
	}
	res, err := ec.Repo.ListEvents(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/events/past
func (ec *EventController) Past(c *gin.Context) {
	res, err := ec.Repo.ListEvents(c.Request.Context(), db.EventsQuery{
		Past: true, Page: queryInt(c, "page", 1), Size: queryInt(c, "size", 20),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type createEventRequest struct {
	db.EventInput
	SeatingArrangement *models.SeatingArrangement `json:"seatingArrangement"`
}

func (ec *EventController) Create(c *gin.Context) {
	var in createEventRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	if in.RSVPDeadline != nil && in.RSVPDeadline.After(in.Date) {
		badRequest(c, "rsvpDeadline must be before the event date")
		return
	}
	ev := &models.Event{
		Name:               in.Name,
		Description:        in.Description,
		Date:               in.Date.UTC(),
		Location:           in.Location,
		CreatedBy:          c.GetString(app.CtxUserID),
		RSVPDeadline:       in.RSVPDeadline,
		MaxGuests:          in.MaxGuests,
		HasAssignedSeating: in.HasAssignedSeating,
	}
	ctx := c.Request.Context()
	if err := ec.Repo.CreateEvent(ctx, ev); err != nil {
		fail(c, err)
		return
	}
	// 带座位配置时同时生成桌子和座位
	if in.SeatingArrangement != nil && len(in.SeatingArrangement.Tables) > 0 {
		if _, err := ec.Repo.ApplySeatingArrangement(ctx, ev.ID, *in.SeatingArrangement, nil, db.ArrangementOptions{Merge: true}); err != nil {
			fail(c, err)
			return
		}
		reloaded, err := ec.Repo.FindEventByID(ctx, ev.ID)
		if err != nil {
			fail(c, err)
			return
		}
		ev = reloaded
	}
	c.JSON(http.StatusCreated, app.H{"event": ev})
}

func (ec *EventController) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ev, err := ec.Repo.FindEventByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"event": ev})
}

func (ec *EventController) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in db.EventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	if in.RSVPDeadline != nil && in.RSVPDeadline.After(in.Date) {
		badRequest(c, "rsvpDeadline must be before the event date")
		return
	}
	in.Date = in.Date.UTC()
	ev, err := ec.Repo.UpdateEvent(c.Request.Context(), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"event": ev})
}

func (ec *EventController) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := ec.Repo.DeleteEvent(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// GET /api/events/:id/dashboard
func (ec *EventController) Dashboard(c *gin.Context) {
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
	stats, err := ec.Repo.EventDashboard(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	recent, err := ec.Repo.RecentCheckIns(ctx, id, 10)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"event": ev, "stats": stats, "recentCheckIns": recent})
}

// GET /api/events/:id/seating
func (ec *EventController) SeatingChart(c *gin.Context) {
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
	c.JSON(http.StatusOK, app.H{"event": ev.Name, "tables": chart})
}

// GET /api/events/:id/analytics
func (ec *EventController) Analytics(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if _, err := ec.Repo.FindEventByID(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	a, err := ec.Repo.EventAnalytics(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// GET /api/analytics?mine=1
func (ec *EventController) GlobalAnalytics(c *gin.Context) {
	createdBy := ""
	if c.Query("mine") == "1" {
		createdBy = c.GetString(app.CtxUserID)
	}
	a, err := ec.Repo.Analytics(c.Request.Context(), createdBy, time.Now().UTC())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}
