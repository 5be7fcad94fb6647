package controllers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"

	"guest_tracker/app"
	"guest_tracker/db"
)

func (s *Srv) WhoAmI(c *app.Ctx) {
	c.JSON(200, app.H{
		"userID":    c.GetString(app.CtxUserID),
		"username":  c.GetString(app.CtxUsername),
		"isAdmin":   c.GetBool(app.CtxIsAdmin),
		"isStaff":   c.GetBool(app.CtxIsStaff),
		"canExport": c.GetBool(app.CtxCanExport),
	})
}

func (s *Srv) Logout(c *gin.Context) {
	if ck, err := c.Request.Cookie(app.AppSessionCookie); err == nil && ck.Value != "" {
		_ = s.AppSess.Delete(c.Request.Context(), ck.Value)
	}
	s.setAppCookie(c.Writer, "", -time.Second)
	c.JSON(200, app.H{"ok": true})
}

var registrationOpts = []webauthn.RegistrationOption{
	webauthn.WithResidentKeyRequirement(protocol.ResidentKeyRequirementRequired),
	webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
		UserVerification: protocol.VerificationRequired,
	}),
}

// ===== 注册（凭员工邀请） =====

func (s *Srv) BeginRegistration(c *gin.Context) {
	var in struct {
		InviteToken string `json:"inviteToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(400, app.H{"error": err.Error()})
		return
	}
	ctx, cancel := context.WithTimeout(c, 3*time.Second)
	defer cancel()

	inv, err := s.Repo.GetInviteByToken(ctx, in.InviteToken)
	if err != nil || !inv.Usable(time.Now()) {
		c.JSON(403, app.H{"error": "invalid or expired invite"})
		return
	}

	// 用户名强制 = 邀请邮箱
	u, err := s.Repo.FindOrCreateUser(ctx, inv.Email, uuid.NewString(), inv.Staff)
	if err != nil {
		fail(c, err)
		return
	}

	opts, sd, err := s.WA.BeginRegistration(s.waUserFor(ctx, u), registrationOpts...)
	if err != nil {
		c.JSON(500, app.H{"error": err.Error()})
		return
	}
	if err := s.Sess.SaveRegByToken(ctx, in.InviteToken, sd); err != nil {
		fail(c, err)
		return
	}
	c.JSON(200, app.H{"opts": opts})
}

func (s *Srv) FinishRegistration(c *gin.Context) {
	token := c.Query("inviteToken")
	if token == "" {
		c.JSON(400, app.H{"error": "missing inviteToken"})
		return
	}

	ctx, cancel := context.WithTimeout(c, 3*time.Second)
	defer cancel()
	inv, err := s.Repo.GetInviteByToken(ctx, token)
	if err != nil || !inv.Usable(time.Now()) {
		c.JSON(403, app.H{"error": "invalid or expired invite"})
		return
	}
	wUser, err := s.loadWAUserByUsername(ctx, inv.Email)
	if err != nil {
		c.JSON(404, app.H{"error": "user not found"})
		return
	}

	sd, err := s.Sess.LoadRegByToken(ctx, token)
	if err != nil {
		c.JSON(400, app.H{"error": "session expired or invalid"})
		return
	}

	cred, err := s.WA.FinishRegistration(wUser, *sd, c.Request)
	if err != nil {
		c.JSON(400, app.H{"error": err.Error()})
		return
	}
	if err := s.Repo.AddCredential(ctx, fromWaCred(wUser.user.ID, cred)); err != nil {
		fail(c, err)
		return
	}
	s.Sess.DelRegByToken(ctx, token)
	if err := s.Repo.MarkInviteUsed(ctx, token); err != nil {
		log.Printf("mark invite used: %v", err)
	}

	// 首个管理员邀请或配置中的管理员邮箱
	if inv.CreatedBy == app.BootstrapCreator || s.Cfg.IsAdminEmail(inv.Email) {
		yes := true
		if _, err := s.Repo.SetUserRoles(ctx, wUser.user.ID, db.UserRoles{IsAdmin: &yes, IsStaff: &yes}); err != nil {
			log.Printf("grant admin %s: %v", inv.Email, err)
		}
	}

	// 注册即登录
	if err := s.issueSession(ctx, c.Writer, wUser.user.ID, c.ClientIP(), c.Request.UserAgent()); err != nil {
		c.JSON(500, app.H{"error": "create app session failed"})
		return
	}
	c.JSON(200, app.H{"ok": true, "username": wUser.user.Username})
}

// ===== 添加新凭据（已登录） =====

func (s *Srv) BeginAddCredential(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c, 3*time.Second)
	defer cancel()

	wUser, err := s.loadWAUserByID(ctx, c.GetString(app.CtxUserID))
	if err != nil {
		c.JSON(401, app.H{"error": "unauthorized"})
		return
	}

	opts, sd, err := s.WA.BeginRegistration(wUser, registrationOpts...)
	if err != nil {
		c.JSON(500, app.H{"error": err.Error()})
		return
	}
	if err := s.Sess.SaveReg(ctx, wUser.user.Username, sd); err != nil {
		fail(c, err)
		return
	}
	c.JSON(200, app.H{"opts": opts})
}

func (s *Srv) FinishAddCredential(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c, 3*time.Second)
	defer cancel()

	wUser, err := s.loadWAUserByID(ctx, c.GetString(app.CtxUserID))
	if err != nil {
		c.JSON(401, app.H{"error": "unauthorized"})
		return
	}

	sd, err := s.Sess.LoadReg(ctx, wUser.user.Username)
	if err != nil {
		c.JSON(400, app.H{"error": "session expired or invalid"})
		return
	}

	cred, err := s.WA.FinishRegistration(wUser, *sd, c.Request)
	if err != nil {
		c.JSON(400, app.H{"error": err.Error()})
		return
	}
	if err := s.Repo.AddCredential(ctx, fromWaCred(wUser.user.ID, cred)); err != nil {
		fail(c, err)
		return
	}
	s.Sess.DelReg(ctx, wUser.user.Username)
	c.JSON(200, app.H{"ok": true})
}

// ===== 登录 =====

type loginBeginReq struct {
	Username     string `json:"username"`
	Discoverable bool   `json:"discoverable"`
}
type loginBeginResp struct {
	Options   *protocol.CredentialAssertion `json:"options"`
	SessionID string                        `json:"sessionId"`
}

func (s *Srv) BeginLogin(c *gin.Context) {
	var req loginBeginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, app.H{"error": "bad request"})
		return
	}
	ctx, cancel := context.WithTimeout(c, 3*time.Second)
	defer cancel()

	var (
		opts *protocol.CredentialAssertion
		sd   *webauthn.SessionData
		err  error
	)
	if req.Discoverable {
		opts, sd, err = s.WA.BeginDiscoverableLogin(webauthn.WithUserVerification(protocol.VerificationRequired))
	} else {
		wUser, err2 := s.loadWAUserByUsername(ctx, req.Username)
		if err2 != nil {
			c.JSON(404, app.H{"error": "user not found"})
			return
		}
		opts, sd, err = s.WA.BeginLogin(wUser, webauthn.WithUserVerification(protocol.VerificationRequired))
	}
	if err != nil {
		c.JSON(500, app.H{"error": err.Error()})
		return
	}

	sid := uuid.NewString()
	if err := s.Sess.SaveAuth(ctx, sid, sd); err != nil {
		fail(c, err)
		return
	}
	c.JSON(200, loginBeginResp{Options: opts, SessionID: sid})
}

func (s *Srv) FinishLogin(c *gin.Context) {
	sid := c.Query("sessionId")
	if sid == "" {
		c.JSON(400, app.H{"error": "missing sessionId"})
		return
	}
	ip, ua := c.ClientIP(), c.Request.UserAgent()

	ctx, cancel := context.WithTimeout(c, 3*time.Second)
	defer cancel()
	sd, err := s.Sess.LoadAuth(ctx, sid)
	if err != nil {
		c.JSON(400, app.H{"error": "session expired or invalid"})
		return
	}

	var (
		userID string
		cred   *webauthn.Credential
	)
	if username := c.Query("username"); username != "" {
		wUser, err := s.loadWAUserByUsername(ctx, username)
		if err != nil {
			c.JSON(404, app.H{"error": "user not found"})
			return
		}
		cred, err = s.WA.FinishLogin(wUser, *sd, c.Request)
		if err != nil {
			c.JSON(401, app.H{"error": err.Error()})
			return
		}
		userID = wUser.user.ID
	} else {
		handler := func(rawID, _ []byte) (webauthn.User, error) {
			u, err := s.Repo.FindUserByCredentialID(ctx, rawID)
			if err != nil {
				return nil, protocol.ErrBadRequest.WithDetails("credential not found")
			}
			return s.waUserFor(ctx, u), nil
		}
		user, c2, err := s.WA.FinishPasskeyLogin(handler, *sd, c.Request)
		if err != nil {
			c.JSON(401, app.H{"error": err.Error()})
			return
		}
		userID = user.(*waUser).user.ID
		cred = c2
	}
	s.Sess.DelAuth(ctx, sid)
	if err := s.Repo.UpdateCredentialUse(ctx, cred.ID, cred.Authenticator.SignCount, cred.Authenticator.CloneWarning); err != nil {
		log.Printf("update credential use: %v", err)
	}

	if err := s.issueSession(ctx, c.Writer, userID, ip, ua); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": "create app session failed"})
		return
	}
	c.JSON(200, app.H{"ok": true, "redirect": "/dashboard"})
}
