package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"guest_tracker/config"
	"guest_tracker/db"
	"guest_tracker/mail"
	"guest_tracker/session"
)

// 简化别名，便于 handlers 调用
type Ctx = gin.Context
type H = gin.H

// App 聚合各依赖
type App struct {
	Router *gin.Engine
	DB     *gorm.DB
	RDB    *redis.Client
	WA     *webauthn.WebAuthn
	Config config.Config
	Repo   *db.Repo
	Mail   *mail.Service

	appSess    *session.AppSessionStore
	ceremonies *session.Store
	checkIns   *session.CheckInSessions
}

func (a *App) AppSessions() *session.AppSessionStore      { return a.appSess }
func (a *App) Ceremonies() *session.Store                 { return a.ceremonies }
func (a *App) CheckInSessions() *session.CheckInSessions { return a.checkIns }

func MustNew(cfg config.Config) *App {
	dbConn := db.ConnectDB(cfg)

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: cfg.RedisDB})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis: %v", err)
	}

	a, err := New(cfg, dbConn, rdb, mail.New(cfg.SMTP))
	if err != nil {
		log.Fatalf("app: %v", err)
	}
	return a
}

// New 组装已连接的依赖；测试用 sqlite + miniredis 走这里
func New(cfg config.Config, dbConn *gorm.DB, rdb *redis.Client, sender mail.Sender) (*App, error) {
	// --- WebAuthn RP ---
	wa, err := webauthn.New(&webauthn.Config{
		RPDisplayName: cfg.RPDisplayName,
		RPID:          cfg.RPID,
		RPOrigins:     cfg.RPOrigins,
	})
	if err != nil {
		return nil, fmt.Errorf("webauthn: %w", err)
	}

	composer, err := mail.NewComposer(cfg.SMTP.AppName, cfg.PublicBaseURL)
	if err != nil {
		return nil, err
	}

	repo := db.NewRepo(dbConn)

	// --- Gin ---
	r := gin.Default()
	useCORS(r, cfg)
	return &App{
		Router: r, DB: dbConn, RDB: rdb, WA: wa, Config: cfg, Repo: repo,
		Mail:       mail.NewService(sender, composer),
		appSess:    session.NewAppSessionStore(rdb, cfg.AppSessionTTL),
		ceremonies: session.NewStore(rdb, cfg.SessionTTL),
		checkIns: session.NewCheckInSessions(
			session.NewCheckInCache(rdb, cfg.CheckIn.SessionTimeout), repo),
	}, nil
}

func (a *App) Close() { _ = a.RDB.Close() }

// 帮助函数：新用户 ID（UUID 字符串 → []byte 作为 userHandle）
func NewUserID() []byte { id := uuid.New(); return id[:] }
