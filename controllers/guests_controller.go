package controllers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"guest_tracker/app"
	"guest_tracker/db"
	"guest_tracker/importer"
)

type GuestController struct{ *Srv }

func GetGuestController(s *Srv) *GuestController { return &GuestController{Srv: s} }

// GET /api/guests?q=&page=&size=
func (gc *GuestController) List(c *gin.Context) {
	res, err := gc.Repo.ListGuests(c.Request.Context(), c.Query("q"), queryInt(c, "page", 1), queryInt(c, "size", 50))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type createGuestRequest struct {
	db.GuestInput
	EventID         uint   `json:"eventId"`
	SendInvitation  bool   `json:"sendInvitation"`
	PersonalMessage string `json:"personalMessage"`
}

// POST /api/guests
// 可选 eventId：同时创建邀请，sendInvitation 时立即发信
func (gc *GuestController) Create(c *gin.Context) {
	var in createGuestRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	if in.EventID != 0 {
		if _, err := gc.Repo.FindEventByID(ctx, in.EventID); err != nil {
			fail(c, err)
			return
		}
	}
	g, created, err := gc.Repo.GetOrCreateGuest(ctx, in.Guest())
	if err != nil {
		fail(c, err)
		return
	}
	resp := app.H{"guest": g, "created": created}
	if in.EventID == 0 {
		c.JSON(http.StatusCreated, resp)
		return
	}

	inv, err := gc.Repo.CreateInvitation(ctx, in.EventID, g.ID, in.PersonalMessage)
	if errors.Is(err, db.ErrAlreadyInvited) {
		c.JSON(http.StatusConflict, app.H{"error": "guest is already invited to this event", "guest": g})
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	if in.SendInvitation {
		full, err := gc.Repo.FindInvitationByID(ctx, inv.ID)
		if err == nil {
			err = gc.Mail.SendInvitation(ctx, gc.Repo, full)
		}
		if err != nil {
			log.Printf("[mail] invitation=%d: %v", inv.ID, err)
			resp["emailError"] = err.Error()
		}
		resp["emailSent"] = err == nil
	}
	resp["invitation"] = inv
	c.JSON(http.StatusCreated, resp)
}

func (gc *GuestController) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	g, err := gc.Repo.FindGuestByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"guest": g})
}

func (gc *GuestController) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in db.GuestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	g, err := gc.Repo.UpdateGuest(c.Request.Context(), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"guest": g})
}

func (gc *GuestController) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := gc.Repo.DeleteGuest(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// POST /api/events/:id/guests/import  multipart: file, createInvitations
func (gc *GuestController) Import(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	f, ok := uploadedFile(c)
	if !ok {
		return
	}
	defer f.Close()

	createInv := c.PostForm("createInvitations") != "false"
	rep, err := importer.ImportGuests(c.Request.Context(), gc.Repo, f, importer.GuestOptions{
		EventID: id, CreateInvitations: createInv,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// 供邀请列表使用
func checkedInFilter(c *gin.Context) *bool {
	switch c.Query("checked_in") {
	case "1", "true":
		v := true
		return &v
	case "0", "false":
		v := false
		return &v
	}
	return nil
}

