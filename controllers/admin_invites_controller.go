package controllers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"guest_tracker/app"
)

type InviteController struct{ *Srv }

func GetInviteController(s *Srv) *InviteController { return &InviteController{Srv: s} }

// POST /admin/invites
func (ic *InviteController) CreateInvite(c *gin.Context) {
	var in struct {
		Email   string `json:"email" binding:"required,email"`
		Expires int    `json:"expiresDays"` // 默认 1 天
		Staff   *bool  `json:"staff"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	if in.Expires <= 0 {
		in.Expires = 1
	}
	staff := in.Staff == nil || *in.Staff

	token, err := app.NewInviteToken()
	if err != nil {
		fail(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	inv, err := ic.Repo.CreateInvite(ctx, strings.ToLower(in.Email), token, staff,
		time.Now().AddDate(0, 0, in.Expires), c.GetString(app.CtxUsername))
	if err != nil {
		fail(c, err)
		return
	}

	link := app.InviteLink(ic.Cfg, token)
	// 未配置 SMTP 时只打日志，不报错
	if err := ic.Mail.SendStaffInvite(inv.Email, link, staff, in.Expires); err != nil {
		log.Printf("[mail] staff invite %s: %v", inv.Email, err)
	}

	c.JSON(http.StatusCreated, app.H{
		"token":  token,
		"link":   link, // 方便开发环境直接点
		"invite": inv,
	})
}

// GET /admin/invites?pending=1
func (ic *InviteController) ListInvites(c *gin.Context) {
	pending := c.Query("pending") == "1" || c.Query("pending") == "true"
	invs, err := ic.Repo.ListInvites(c.Request.Context(), pending)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"invites": invs})
}
