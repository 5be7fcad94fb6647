package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"guest_tracker/app"
	"guest_tracker/controllers"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	// 控制器与依赖
	s := controllers.GetSrv(a)
	uc := controllers.GetUserController(s)
	inviteCtl := controllers.GetInviteController(s)
	checkInCtl := controllers.GetCheckInController(s)
	eventCtl := controllers.GetEventController(s)
	guestCtl := controllers.GetGuestController(s)
	invitationCtl := controllers.GetInvitationController(s)
	seatingCtl := controllers.GetSeatingController(s)
	exportCtl := controllers.GetExportController(s)
	rsvpCtl := controllers.GetRSVPController(s)

	// 复用的中间件
	authMW := app.AuthRequired(a.AppSessions(), a.Repo, a.Config)
	seenMW := app.TouchLastSeen(a.Repo, a.RDB, 5*time.Minute)
	staffMW := app.StaffOnly()
	adminMW := app.AdminOnly()
	exportMW := app.ExportOnly()
	checkInLimit := app.RateLimit(a.RDB, "checkin", a.Config.CheckIn.RateLimit, a.Config.CheckIn.RateWindow)
	publicLimit := app.RateLimit(a.RDB, "public", 120, time.Minute)

	r.GET("/healthz", func(c *app.Ctx) { c.JSON(http.StatusOK, app.H{"ok": true}) })

	// ------------------------------
	// WebAuthn（公开+受保护）
	// ------------------------------
	wa := r.Group("/webauthn")
	{
		// 注册需要邀请 token
		wa.POST("/register/begin", s.BeginRegistration)
		wa.POST("/register/finish", s.FinishRegistration)

		wa.POST("/login/begin", s.BeginLogin)
		wa.POST("/login/finish", s.FinishLogin)
	}

	waAuth := wa.Group("", authMW, seenMW)
	{
		waAuth.GET("/whoami", s.WhoAmI)
		waAuth.POST("/logout", s.Logout)
	}

	// 已登录用户添加新凭据（绑定手机等）
	creds := r.Group("/api/credentials", authMW, seenMW)
	{
		creds.POST("/add/begin", s.BeginAddCredential)
		creds.POST("/add/finish", s.FinishAddCredential)
	}

	// ------------------------------
	// 邀请工作人员（仅管理员）
	// ------------------------------
	admin := r.Group("/admin", authMW, adminMW)
	{
		admin.POST("/invites", inviteCtl.CreateInvite)
		admin.GET("/invites", inviteCtl.ListInvites)
	}

	// ------------------------------
	// 用户管理（仅管理员）
	// ------------------------------
	users := r.Group("/api/users", authMW, adminMW)
	{
		users.GET("", uc.ListUsers)   // ?q=&page=&size=
		users.GET("/:id", uc.GetUser) // 精确查单个
		users.PUT("/:id/roles", uc.SetRoles)
		users.DELETE("/:id", uc.DeleteUser)
	}

	// ------------------------------
	// 签到（工作人员）
	// ------------------------------
	checkIn := r.Group("/api/check-in", authMW, seenMW, staffMW, checkInLimit)
	{
		checkIn.POST("/", checkInCtl.CheckIn)
		checkIn.GET("/recent", checkInCtl.Recent)
		checkIn.GET("/live", checkInCtl.Live)
	}

	sessions := r.Group("/api/checkin-sessions", authMW, seenMW, staffMW)
	{
		sessions.POST("/start", checkInCtl.StartSession)
		sessions.POST("/end", checkInCtl.EndSession)
		sessions.GET("/active", checkInCtl.ActiveSessions)
	}

	// ------------------------------
	// 活动 / 座位 / 邀请（工作人员）
	// ------------------------------
	events := r.Group("/api/events", authMW, seenMW, staffMW)
	{
		events.GET("", eventCtl.List)
		events.GET("/past", eventCtl.Past)
		events.POST("", eventCtl.Create)
		events.GET("/:id", eventCtl.Get)
		events.PUT("/:id", eventCtl.Update)
		events.DELETE("/:id", eventCtl.Delete)
		events.GET("/:id/dashboard", eventCtl.Dashboard)
		events.GET("/:id/seating", eventCtl.SeatingChart)
		events.GET("/:id/analytics", eventCtl.Analytics)
		events.GET("/:id/checkin-sessions", checkInCtl.SessionHistory)

		events.GET("/:id/tables", seatingCtl.ListTables)
		events.POST("/:id/tables", seatingCtl.UpsertTable)
		events.DELETE("/:id/tables/:tableId", seatingCtl.DeleteTable)
		events.POST("/:id/seats/generate", seatingCtl.GenerateSeats)
		events.POST("/:id/seats/assign", seatingCtl.AssignSeats)
		events.PUT("/:id/seating-arrangement", seatingCtl.ApplyArrangement)
		events.POST("/:id/seating/import", seatingCtl.Import)

		events.POST("/:id/guests/import", guestCtl.Import)

		events.GET("/:id/invitations", invitationCtl.List)
		events.POST("/:id/invitations", invitationCtl.Create)
		events.POST("/:id/invitations/send", invitationCtl.Send)
		events.POST("/:id/invitations/resend-all", invitationCtl.ResendAll)
		events.POST("/:id/invitations/remind", invitationCtl.RemindAll)

		events.GET("/:id/export/guests.csv", exportCtl.Guests("csv"))
		events.GET("/:id/export/guests.xlsx", exportCtl.Guests("xlsx"))
		events.GET("/:id/export/guests.pdf", exportCtl.Guests("pdf"))
		events.GET("/:id/export/seating.pdf", exportCtl.SeatingPDF)
	}

	// 签到明细需要导出权限（管理员默认拥有）
	exports := r.Group("/api/events", authMW, seenMW, exportMW)
	{
		exports.GET("/:id/checkin-summary", checkInCtl.Summary)
		exports.GET("/:id/export/checkins.csv", exportCtl.CheckInsCSV)
	}

	guests := r.Group("/api/guests", authMW, seenMW, staffMW)
	{
		guests.GET("", guestCtl.List)
		guests.POST("", guestCtl.Create)
		guests.GET("/:id", guestCtl.Get)
		guests.PUT("/:id", guestCtl.Update)
		guests.DELETE("/:id", guestCtl.Delete)
	}

	invitations := r.Group("/api/invitations", authMW, seenMW, staffMW)
	{
		invitations.GET("/:id", invitationCtl.Get)
		invitations.DELETE("/:id", invitationCtl.Delete)
		invitations.POST("/:id/resend", invitationCtl.Resend)
		invitations.POST("/:id/remind", invitationCtl.Remind)
	}

	r.GET("/api/analytics", authMW, seenMW, staffMW, eventCtl.GlobalAnalytics)

	// ------------------------------
	// 嘉宾公开入口（凭邀请码）
	// ------------------------------
	rsvp := r.Group("", publicLimit)
	{
		rsvp.GET("/rsvp/:code", rsvpCtl.Show)
		rsvp.POST("/rsvp/:code", rsvpCtl.Submit)
		rsvp.GET("/i/:code/qr.png", rsvpCtl.QR)
		rsvp.GET("/i/:code/barcode.png", rsvpCtl.Barcode)
	}
}
