package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"

	"guest_tracker/app"
	"guest_tracker/config"
	"guest_tracker/db"
	"guest_tracker/importer"
	"guest_tracker/mail"
	"guest_tracker/models"
	"guest_tracker/session"
)

type Srv struct {
	WA       *webauthn.WebAuthn
	Repo     *db.Repo
	Sess     *session.Store
	AppSess  *session.AppSessionStore
	CheckIns *session.CheckInSessions
	Mail     *mail.Service
	Cfg      config.Config
}

func GetSrv(a *app.App) *Srv {
	return &Srv{
		WA:       a.WA,
		Repo:     a.Repo,
		Sess:     a.Ceremonies(),
		AppSess:  a.AppSessions(),
		CheckIns: a.CheckInSessions(),
		Mail:     a.Mail,
		Cfg:      a.Config,
	}
}

// --- helpers ---

// 统一的错误 → HTTP 状态映射
func statusFor(err error) int {
	switch {
	case errors.Is(err, db.ErrEventNotFound),
		errors.Is(err, db.ErrGuestNotFound),
		errors.Is(err, db.ErrInvitationNotFound),
		errors.Is(err, db.ErrTableNotFound),
		errors.Is(err, db.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSessionActive),
		errors.Is(err, db.ErrSeatTaken),
		errors.Is(err, db.ErrAlreadyInvited),
		errors.Is(err, db.ErrInviteUsed):
		return http.StatusConflict
	case errors.Is(err, db.ErrNotCheckedIn),
		errors.Is(err, db.ErrInvalidRSVP),
		errors.Is(err, db.ErrRSVPClosed),
		errors.Is(err, db.ErrTooManyGuests),
		errors.Is(err, db.ErrInvalidTable),
		errors.Is(err, importer.ErrMissingColumns):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.Printf("[api] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(code, app.H{"error": "internal error"})
		return
	}
	c.JSON(code, app.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, app.H{"error": msg})
}

func idParam(c *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(n), true
}

// queryUint 缺省或非法时返回 0
func queryUint(c *gin.Context, name string) uint {
	n, _ := strconv.ParseUint(c.Query(name), 10, 64)
	return uint(n)
}

func queryInt(c *gin.Context, name string, def int) int {
	if n, err := strconv.Atoi(c.Query(name)); err == nil {
		return n
	}
	return def
}

// queryTime 接受 RFC3339 或 2006-01-02
func queryTime(c *gin.Context, name string) (*time.Time, bool) {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t, true
		}
	}
	badRequest(c, "invalid "+name)
	return nil, false
}

func currentOperator(c *gin.Context) session.Operator {
	return session.Operator{ID: c.GetString(app.CtxUserID), Username: c.GetString(app.CtxUsername)}
}

// 统一设置业务会话 Cookie
func (s *Srv) setAppCookie(w http.ResponseWriter, sessionID string, maxAge time.Duration) {
	secure := strings.HasPrefix(s.Cfg.WebOrigin, "https://")
	http.SetCookie(w, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
		MaxAge:   int(maxAge / time.Second),
	})
}

// 登录成功：创建会话 + 记录登录快照
func (s *Srv) issueSession(ctx context.Context, w http.ResponseWriter, userID string, ip, ua string) error {
	if err := s.Repo.TouchUserLogin(ctx, userID, ip, ua); err != nil {
		log.Printf("touch login %s: %v", userID, err)
	}
	id := uuid.NewString()
	if err := s.AppSess.Create(ctx, id, userID); err != nil {
		return err
	}
	s.setAppCookie(w, id, s.AppSess.TTL())
	return nil
}

// WebAuthn: DB user -> waUser
type waUser struct {
	user  models.User
	creds []webauthn.Credential
}

func (u *waUser) WebAuthnID() []byte                         { id, _ := uuid.Parse(u.user.ID); return id[:] }
func (u *waUser) WebAuthnName() string                       { return u.user.Username }
func (u *waUser) WebAuthnDisplayName() string                { return u.user.DisplayName }
func (u *waUser) WebAuthnCredentials() []webauthn.Credential { return u.creds }

func toWaCred(c models.Credential) webauthn.Credential {
	return webauthn.Credential{
		ID:              c.CredentialID,
		PublicKey:       c.PublicKey,
		AttestationType: c.AttestationType,
		Authenticator: webauthn.Authenticator{
			AAGUID:       c.AAGUID,
			SignCount:    c.SignCount,
			CloneWarning: c.CloneWarning,
		},
		Flags: webauthn.CredentialFlags{
			BackupEligible: c.BackupEligible,
			BackupState:    c.BackupState,
		},
	}
}

func fromWaCred(userID string, cred *webauthn.Credential) *models.Credential {
	return &models.Credential{
		UserID:          userID,
		CredentialID:    cred.ID,
		PublicKey:       cred.PublicKey,
		AttestationType: cred.AttestationType,
		AAGUID:          cred.Authenticator.AAGUID,
		SignCount:       cred.Authenticator.SignCount,
		CloneWarning:    cred.Authenticator.CloneWarning,
		BackupEligible:  cred.Flags.BackupEligible,
		BackupState:     cred.Flags.BackupState,
	}
}

func (s *Srv) waUserFor(ctx context.Context, u *models.User) *waUser {
	cs, _ := s.Repo.LoadUserCredentials(ctx, u.ID)
	ws := make([]webauthn.Credential, 0, len(cs))
	for _, c := range cs {
		ws = append(ws, toWaCred(c))
	}
	return &waUser{user: *u, creds: ws}
}

func (s *Srv) loadWAUserByID(ctx context.Context, id string) (*waUser, error) {
	u, err := s.Repo.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.waUserFor(ctx, u), nil
}

func (s *Srv) loadWAUserByUsername(ctx context.Context, username string) (*waUser, error) {
	u, err := s.Repo.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.waUserFor(ctx, u), nil
}
