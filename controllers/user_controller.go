package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"guest_tracker/app"
	"guest_tracker/db"
)

type UserController struct{ *Srv }

func GetUserController(s *Srv) *UserController { return &UserController{Srv: s} }

// GET /api/users?q=alice&page=1&size=20
func (uc *UserController) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	res, err := uc.Repo.ListUsers(c.Request.Context(), c.Query("q"), page, size)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"total": res.Total, "users": res.Users})
}

func (uc *UserController) userID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		badRequest(c, "invalid uuid")
		return "", false
	}
	return id, true
}

// GET /api/users/:id
func (uc *UserController) GetUser(c *gin.Context) {
	id, ok := uc.userID(c)
	if !ok {
		return
	}
	user, err := uc.Repo.FindUserByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	creds, _ := uc.Repo.CountCredentials(c.Request.Context(), id)
	c.JSON(http.StatusOK, app.H{"user": user, "credentials": creds})
}

// PUT /api/users/:id/roles {isAdmin, isStaff, canExportCheckIns}
func (uc *UserController) SetRoles(c *gin.Context) {
	id, ok := uc.userID(c)
	if !ok {
		return
	}
	var in db.UserRoles
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	if id == c.GetString(app.CtxUserID) && in.IsAdmin != nil && !*in.IsAdmin {
		badRequest(c, "cannot remove your own admin role")
		return
	}
	u, err := uc.Repo.SetUserRoles(c.Request.Context(), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	// 收回权限后立即失效
	if (in.IsStaff != nil && !*in.IsStaff) || (in.IsAdmin != nil && !*in.IsAdmin) {
		_ = uc.AppSess.RevokeAllForUser(c.Request.Context(), id)
	}
	c.JSON(http.StatusOK, app.H{"user": u})
}

// DELETE /api/users/:id
func (uc *UserController) DeleteUser(c *gin.Context) {
	id, ok := uc.userID(c)
	if !ok {
		return
	}

	// 不允许删除自己，避免锁死
	if id == c.GetString(app.CtxUserID) {
		badRequest(c, "cannot delete yourself")
		return
	}

	target, err := uc.Repo.FindUserByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if uc.Cfg.IsAdminEmail(target.Username) {
		c.JSON(http.StatusForbidden, app.H{"error": "cannot delete an admin"})
		return
	}

	if err := uc.Repo.DeleteUserByID(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	// 撤销该用户的所有登录会话
	_ = uc.AppSess.RevokeAllForUser(c.Request.Context(), id)
	c.JSON(http.StatusOK, app.H{"ok": true})
}
