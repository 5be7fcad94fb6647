package app

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"guest_tracker/config"
	"guest_tracker/db"
	"guest_tracker/session"
)

const AppSessionCookie = "app_session"

// 上下文键
const (
	CtxUserID    = "userID"
	CtxUsername  = "username"
	CtxIsAdmin   = "isAdmin"
	CtxIsStaff   = "isStaff"
	CtxCanExport = "canExport"
)

func AuthRequired(appSess *session.AppSessionStore, repo *db.Repo, cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ck, err := c.Request.Cookie(AppSessionCookie)
		if err != nil || ck.Value == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		as, err := appSess.Get(c.Request.Context(), ck.Value)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "invalid session"})
			return
		}

		// 确认用户仍存在，角色只查一次
		u, err := repo.FindUserByID(c.Request.Context(), as.UserID)
		if err != nil {
			_ = appSess.Delete(c.Request.Context(), ck.Value)
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		admin := u.IsAdmin || cfg.IsAdminEmail(u.Username)
		c.Set(CtxUserID, u.ID)
		c.Set(CtxUsername, u.Username)
		c.Set(CtxIsAdmin, admin)
		c.Set(CtxIsStaff, admin || u.IsStaff)
		c.Set(CtxCanExport, admin || u.CanExportCheckIns)

		c.Next()
	}
}

func requireFlag(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(CtxUserID); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		if !c.GetBool(key) {
			c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// StaffOnly 签到相关接口
func StaffOnly() gin.HandlerFunc { return requireFlag(CtxIsStaff) }

func AdminOnly() gin.HandlerFunc { return requireFlag(CtxIsAdmin) }

// ExportOnly 签到汇总/日志导出需要 can_export_checkins
func ExportOnly() gin.HandlerFunc { return requireFlag(CtxCanExport) }
