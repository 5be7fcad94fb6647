package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"guest_tracker/app"
	"guest_tracker/db"
	"guest_tracker/models"
	"guest_tracker/session"
)

type CheckInController struct{ *Srv }

func GetCheckInController(s *Srv) *CheckInController { return &CheckInController{Srv: s} }

// flexBool 扫码端会发 true / "true" / "1" / 1
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*b = flexBool(truthy(v))
	return nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t == 1
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "true" || s == "1" || s == "yes" || s == "on"
	}
	return false
}

// flexString 数字或字符串都收
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*s = ""
	case string:
		*s = flexString(strings.TrimSpace(t))
	case float64:
		*s = flexString(fmt.Sprintf("%.0f", t))
	default:
		return fmt.Errorf("unexpected value %s", string(data))
	}
	return nil
}

type checkInRequest struct {
	BarcodeNumber flexString `json:"barcode_number"`
	Barcode       flexString `json:"barcode"`
	UniqueCode    flexString `json:"unique_code"`
	EventID       flexString `json:"event_id"`
	Event         flexString `json:"event"`
	TableNumber   flexString `json:"table_number"`
	SeatNumber    flexString `json:"seat_number"`
	CheckIn       flexBool   `json:"check_in"`
	Undo          flexBool   `json:"undo"`
}

func (r checkInRequest) barcode() string {
	if r.BarcodeNumber != "" {
		return string(r.BarcodeNumber)
	}
	return string(r.Barcode)
}

func (r checkInRequest) eventID() (uint, error) {
	raw := string(r.EventID)
	if raw == "" {
		raw = string(r.Event)
	}
	if raw == "" {
		return 0, nil
	}
	var n uint
	if _, err := fmt.Sscanf(raw, "%d", &n); err != nil || n == 0 {
		return 0, fmt.Errorf("invalid event_id %q", raw)
	}
	return n, nil
}

// JSON 或表单
func bindCheckIn(c *gin.Context) (checkInRequest, error) {
	var req checkInRequest
	if c.ContentType() == binding.MIMEJSON {
		if err := c.ShouldBindJSON(&req); err != nil {
			return req, err
		}
		return req, nil
	}
	form := func(k string) flexString { return flexString(strings.TrimSpace(c.PostForm(k))) }
	req = checkInRequest{
		BarcodeNumber: form("barcode_number"),
		Barcode:       form("barcode"),
		UniqueCode:    form("unique_code"),
		EventID:       form("event_id"),
		Event:         form("event"),
		TableNumber:   form("table_number"),
		SeatNumber:    form("seat_number"),
		CheckIn:       flexBool(truthy(c.PostForm("check_in"))),
		Undo:          flexBool(truthy(c.PostForm("undo"))),
	}
	return req, nil
}

func checkInError(c *gin.Context, code int, msg string) {
	c.JSON(code, app.H{"status": "error", "message": msg})
}

type invitationView struct {
	ID               uint       `json:"id"`
	GuestName        string     `json:"guest_name"`
	GuestRank        string     `json:"guest_rank"`
	GuestInstitution string     `json:"guest_institution"`
	Email            string     `json:"email"`
	Event            string     `json:"event"`
	EventID          uint       `json:"event_id"`
	CheckedIn        bool       `json:"checked_in"`
	CheckInTime      *time.Time `json:"check_in_time"`
	TableNumber      string     `json:"table_number"`
	SeatNumber       string     `json:"seat_number"`
	BarcodeNumber    string     `json:"barcode_number"`
	UniqueCode       string     `json:"unique_code"`
}

func viewInvitation(inv *models.Invitation) invitationView {
	return invitationView{
		ID:               inv.ID,
		GuestName:        inv.Guest.FullName(),
		GuestRank:        inv.Guest.Rank,
		GuestInstitution: inv.Guest.Institution,
		Email:            inv.Guest.Email,
		Event:            inv.Event.Name,
		EventID:          inv.EventID,
		CheckedIn:        inv.CheckedIn,
		CheckInTime:      inv.CheckInTime,
		TableNumber:      inv.TableNumber,
		SeatNumber:       inv.SeatNumber,
		BarcodeNumber:    inv.BarcodeNumber,
		UniqueCode:       inv.UniqueCode,
	}
}

// POST /api/check-in/
// 没有 check_in / undo 时只查询
func (cc *CheckInController) CheckIn(c *gin.Context) {
	req, err := bindCheckIn(c)
	if err != nil {
		checkInError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	barcode, code := req.barcode(), string(req.UniqueCode)
	if barcode == "" && code == "" {
		checkInError(c, http.StatusBadRequest, "barcode_number or unique_code is required")
		return
	}
	// 只约束真正的签到；查询和撤销仍可用邀请码
	if cc.Cfg.CheckIn.RequireBarcode && bool(req.CheckIn) && !bool(req.Undo) && barcode == "" {
		checkInError(c, http.StatusBadRequest, "barcode_number is required")
		return
	}
	eventID, err := req.eventID()
	if err != nil {
		checkInError(c, http.StatusBadRequest, err.Error())
		return
	}
	ctx := c.Request.Context()

	if cc.Cfg.CheckIn.EnforceSession {
		if eventID == 0 {
			checkInError(c, http.StatusBadRequest, "event_id is required")
			return
		}
		active, err := cc.CheckIns.Active(ctx, eventID)
		if err != nil {
			fail(c, err)
			return
		}
		if active == nil {
			checkInError(c, http.StatusBadRequest, "no active check-in session for this event")
			return
		}
	}

	var inv *models.Invitation
	if barcode != "" {
		inv, err = cc.Repo.FindInvitationByBarcode(ctx, barcode, eventID)
	} else {
		inv, err = cc.Repo.FindInvitationByCode(ctx, code, eventID)
	}
	if errors.Is(err, db.ErrInvitationNotFound) {
		checkInError(c, http.StatusNotFound, "invitation not found")
		return
	}
	if err != nil {
		fail(c, err)
		return
	}

	op := c.GetString(app.CtxUserID)
	switch {
	case bool(req.Undo):
		undone, err := cc.Repo.UndoCheckIn(ctx, inv.ID, op)
		switch {
		case errors.Is(err, db.ErrNotCheckedIn):
			checkInError(c, http.StatusBadRequest, "guest is not checked in")
			return
		case err != nil:
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, app.H{
			"success":    true,
			"message":    "check-in undone for " + undone.Guest.FullName(),
			"guest_name": undone.Guest.FullName(),
			"checked_in": false,
		})
	case bool(req.CheckIn):
		res, err := cc.Repo.CheckIn(ctx, db.CheckInInput{
			InvitationID: inv.ID,
			Table:        string(req.TableNumber),
			Seat:         string(req.SeatNumber),
			OperatorID:   op,
		})
		switch {
		case errors.Is(err, db.ErrSeatTaken):
			checkInError(c, http.StatusConflict, "seat is already taken")
			return
		case errors.Is(err, db.ErrInvitationNotFound):
			checkInError(c, http.StatusNotFound, "invitation not found")
			return
		case err != nil:
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, app.H{
			"status":           "ok",
			"newly_checked_in": res.NewlyCheckedIn,
			"invitation":       viewInvitation(res.Invitation),
		})
	default:
		c.JSON(http.StatusOK, app.H{
			"status":           "ok",
			"newly_checked_in": false,
			"invitation":       viewInvitation(inv),
		})
	}
}

// GET /api/check-in/recent?event_id=&limit=
func (cc *CheckInController) Recent(c *gin.Context) {
	rows, err := cc.Repo.RecentCheckIns(c.Request.Context(), queryUint(c, "event_id"), queryInt(c, "limit", 20))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"recent": rows})
}

// GET /api/check-in/live
func (cc *CheckInController) Live(c *gin.Context) {
	d, err := cc.Repo.LiveDashboard(c.Request.Context(), time.Now().UTC())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// GET /api/events/:id/checkin-summary?start=&end=
func (cc *CheckInController) Summary(c *gin.Context) {
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
	if _, err := cc.Repo.FindEventByID(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	sum, err := cc.Repo.CheckInSummary(c.Request.Context(), id, start, end)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// ===== 签到会话 =====

type sessionRequest struct {
	EventID flexString `json:"event_id"`
	Join    flexBool   `json:"join"`
}

func (r sessionRequest) id() (uint, error) {
	return checkInRequest{EventID: r.EventID}.eventID()
}

// POST /api/checkin-sessions/start {event_id, join}
func (cc *CheckInController) StartSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	eventID, err := req.id()
	if err != nil || eventID == 0 {
		badRequest(c, "event_id is required")
		return
	}
	ctx := c.Request.Context()
	res, err := cc.CheckIns.Start(ctx, eventID, currentOperator(c), bool(req.Join))
	if errors.Is(err, session.ErrSessionActive) {
		active, _ := cc.CheckIns.Active(ctx, eventID)
		c.JSON(http.StatusConflict, app.H{
			"error":    "a check-in session is already active for this event",
			"can_join": true,
			"session":  active,
		})
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"session": res.Session, "joined": res.Joined})
}

// POST /api/checkin-sessions/end {event_id}
func (cc *CheckInController) EndSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	eventID, err := req.id()
	if err != nil || eventID == 0 {
		badRequest(c, "event_id is required")
		return
	}
	ended, err := cc.CheckIns.End(c.Request.Context(), eventID, currentOperator(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ended": ended})
}

// GET /api/checkin-sessions/active[?event_id=]
func (cc *CheckInController) ActiveSessions(c *gin.Context) {
	ctx := c.Request.Context()
	if id := queryUint(c, "event_id"); id != 0 {
		s, err := cc.CheckIns.Active(ctx, id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, app.H{"active": s != nil, "session": s})
		return
	}
	list, err := cc.CheckIns.ListActive(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"sessions": list})
}

// GET /api/events/:id/checkin-sessions 历史记录
func (cc *CheckInController) SessionHistory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	rows, err := cc.Repo.CheckInSessionHistory(c.Request.Context(), id, queryInt(c, "limit", 50))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"sessions": rows})
}
