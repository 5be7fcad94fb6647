package controllers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"guest_tracker/app"
	"guest_tracker/codes"
	"guest_tracker/db"
	"guest_tracker/models"
)

// RSVPController 嘉宾端公开接口，凭邀请码访问
type RSVPController struct{ *Srv }

func GetRSVPController(s *Srv) *RSVPController { return &RSVPController{Srv: s} }

func (rc *RSVPController) invitation(c *gin.Context) (*models.Invitation, bool) {
	inv, err := rc.Repo.FindInvitationByCode(c.Request.Context(), c.Param("code"), 0)
	if errors.Is(err, db.ErrInvitationNotFound) {
		c.JSON(http.StatusNotFound, app.H{"error": "invitation not found"})
		return nil, false
	}
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return inv, true
}

type publicEvent struct {
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Date         time.Time  `json:"date"`
	Location     string     `json:"location"`
	RSVPDeadline *time.Time `json:"rsvpDeadline,omitempty"`
	MaxGuests    *int       `json:"maxGuests,omitempty"`
}

func (rc *RSVPController) payload(inv *models.Invitation) app.H {
	ev := inv.Event
	open := ev.RSVPDeadline == nil || time.Now().Before(*ev.RSVPDeadline)
	return app.H{
		"guest":           inv.Guest.FullName(),
		"personalMessage": inv.PersonalMessage,
		"status":          inv.Status,
		"rsvp":            inv.RSVP,
		"rsvpOpen":        open,
		"event": publicEvent{
			Name: ev.Name, Description: ev.Description, Date: ev.Date, Location: ev.Location,
			RSVPDeadline: ev.RSVPDeadline, MaxGuests: ev.MaxGuests,
		},
		"qr":      "/i/" + inv.UniqueCode + "/qr.png",
		"barcode": "/i/" + inv.UniqueCode + "/barcode.png",
	}
}

// GET /rsvp/:code 记录首次打开
func (rc *RSVPController) Show(c *gin.Context) {
	inv, ok := rc.invitation(c)
	if !ok {
		return
	}
	if inv.OpenedAt == nil {
		if err := rc.Repo.MarkInvitationOpened(c.Request.Context(), inv.ID); err != nil {
			log.Printf("mark opened invitation=%d: %v", inv.ID, err)
		} else if inv.Status == models.InvitationDraft || inv.Status == models.InvitationSent {
			inv.Status = models.InvitationOpened
		}
	}
	c.JSON(http.StatusOK, rc.payload(inv))
}

// POST /rsvp/:code {response, plusOnes, dietaryRestrictions, specialRequests}
func (rc *RSVPController) Submit(c *gin.Context) {
	inv, ok := rc.invitation(c)
	if !ok {
		return
	}
	var in db.RSVPInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	rsvp, err := rc.Repo.SubmitRSVP(c.Request.Context(), inv.ID, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true, "rsvp": rsvp, "totalGuests": rsvp.TotalGuests()})
}

func pngResponse(c *gin.Context, data []byte) {
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/png", data)
}

// GET /i/:code/qr.png  内容为 RSVP 链接
func (rc *RSVPController) QR(c *gin.Context) {
	inv, ok := rc.invitation(c)
	if !ok {
		return
	}
	size := queryInt(c, "size", codes.QRSize)
	if size > 1000 {
		size = 1000
	}
	png, err := codes.QRPNG(rc.Mail.Composer.RSVPURL(inv.UniqueCode), size)
	if err != nil {
		fail(c, err)
		return
	}
	pngResponse(c, png)
}

// GET /i/:code/barcode.png  Code128 条码，门口扫码用
func (rc *RSVPController) Barcode(c *gin.Context) {
	inv, ok := rc.invitation(c)
	if !ok {
		return
	}
	png, err := codes.Code128PNG(inv.BarcodeNumber, codes.BarcodeWidth, codes.BarcodeHeight)
	if err != nil {
		fail(c, err)
		return
	}
	pngResponse(c, png)
}
