package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"guest_tracker/app"
	"guest_tracker/db"
)

type InvitationController struct{ *Srv }

func GetInvitationController(s *Srv) *InvitationController { return &InvitationController{Srv: s} }

// GET /api/events/:id/invitations?status=&checked_in=&q=
func (ic *InvitationController) List(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	invs, err := ic.Repo.ListInvitations(c.Request.Context(), db.InvitationsQuery{
		EventID:   id,
		Status:    c.Query("status"),
		CheckedIn: checkedInFilter(c),
		Q:         c.Query("q"),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"invitations": invs, "total": len(invs)})
}

// POST /api/events/:id/invitations {guestId, personalMessage}
func (ic *InvitationController) Create(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		GuestID         uint   `json:"guestId" binding:"required"`
		PersonalMessage string `json:"personalMessage"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	if _, err := ic.Repo.FindEventByID(ctx, id); err != nil {
		fail(c, err)
		return
	}
	if _, err := ic.Repo.FindGuestByID(ctx, in.GuestID); err != nil {
		fail(c, err)
		return
	}
	inv, err := ic.Repo.CreateInvitation(ctx, id, in.GuestID, in.PersonalMessage)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"invitation": inv})
}

func (ic *InvitationController) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	inv, err := ic.Repo.FindInvitationByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"invitation": inv, "event": inv.Event})
}

func (ic *InvitationController) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := ic.Repo.DeleteInvitation(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// POST /api/events/:id/invitations/send {invitation_ids, resend}
func (ic *InvitationController) Send(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		InvitationIDs []uint `json:"invitation_ids"`
		Resend        bool   `json:"resend"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	ic.send(c, id, in.InvitationIDs, in.Resend)
}

// POST /api/events/:id/invitations/resend-all
func (ic *InvitationController) ResendAll(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ic.send(c, id, nil, true)
}

func (ic *InvitationController) send(c *gin.Context, eventID uint, ids []uint, resend bool) {
	ctx := c.Request.Context()
	if _, err := ic.Repo.FindEventByID(ctx, eventID); err != nil {
		fail(c, err)
		return
	}
	rep, err := ic.Mail.SendInvitations(ctx, ic.Repo, eventID, ids, resend)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// POST /api/invitations/:id/resend
func (ic *InvitationController) Resend(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	inv, err := ic.Repo.FindInvitationByID(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	if err := ic.Mail.SendInvitation(ctx, ic.Repo, inv); err != nil {
		c.JSON(http.StatusBadGateway, app.H{"error": "failed to send email: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true, "message": "invitation sent to " + inv.Guest.Email})
}

// POST /api/invitations/:id/remind
func (ic *InvitationController) Remind(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	inv, err := ic.Repo.FindInvitationByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if inv.IsResponded() {
		badRequest(c, "guest has already responded")
		return
	}
	if err := ic.Mail.SendReminder(inv); err != nil {
		c.JSON(http.StatusBadGateway, app.H{"error": "failed to send email: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true, "message": "reminder sent to " + inv.Guest.Email})
}

// POST /api/events/:id/invitations/remind 所有未回复的
func (ic *InvitationController) RemindAll(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	rep, err := ic.Mail.SendReminders(c.Request.Context(), ic.Repo, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}
