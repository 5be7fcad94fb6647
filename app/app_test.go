package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"guest_tracker/config"
	"guest_tracker/db"
	"guest_tracker/models"
	"guest_tracker/session"
)

func init() { gin.SetMode(gin.TestMode) }

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func newRepo(t *testing.T) *db.Repo {
	t.Helper()
	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db.NewRepo(conn)
}

func TestRateLimit(t *testing.T) {
	_, rdb := newRedis(t)
	r := gin.New()
	r.GET("/x", RateLimit(rdb, "test", 2, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := []int{}
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		codes = append(codes, w.Code)
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Errorf("unexpected status sequence %v", codes)
	}
}

func TestAuthAndRoleGuards(t *testing.T) {
	_, rdb := newRedis(t)
	repo := newRepo(t)
	ctx := context.Background()
	sessions := session.NewAppSessionStore(rdb, time.Hour)
	cfg := config.Config{AdminEmails: []string{"boss@example.com"}}

	users := []*models.User{
		{ID: "00000000-0000-0000-0000-000000000001", Username: "viewer@example.com"},
		{ID: "00000000-0000-0000-0000-000000000002", Username: "staff@example.com", IsStaff: true},
		{ID: "00000000-0000-0000-0000-000000000003", Username: "boss@example.com"},
	}
	for i, u := range users {
		if err := repo.CreateUser(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
		if err := sessions.Create(ctx, "sess"+string(rune('a'+i)), u.ID); err != nil {
			t.Fatalf("create session: %v", err)
		}
	}

	r := gin.New()
	authed := r.Group("/", AuthRequired(sessions, repo, cfg))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	authed.GET("/staff", StaffOnly(), ok)
	authed.GET("/admin", AdminOnly(), ok)
	authed.GET("/export", ExportOnly(), ok)

	var cases = []struct {
		name   string
		cookie string
		path   string
		want   int
	}{
		{"No cookie", "", "/staff", http.StatusUnauthorized},
		{"Unknown session", "nope", "/staff", http.StatusUnauthorized},
		{"Viewer is not staff", "sessa", "/staff", http.StatusForbidden},
		{"Staff can check in", "sessb", "/staff", http.StatusOK},
		{"Staff is not admin", "sessb", "/admin", http.StatusForbidden},
		{"Staff cannot export", "sessb", "/export", http.StatusForbidden},
		{"Configured admin", "sessc", "/admin", http.StatusOK},
		{"Admin can export", "sessc", "/export", http.StatusOK},
		{"Admin counts as staff", "sessc", "/staff", http.StatusOK},
	}
	for _, tcase := range cases {
		t.Run(tcase.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tcase.path, nil)
			if tcase.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AppSessionCookie, Value: tcase.cookie})
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tcase.want {
				t.Errorf("expected %d, got %d", tcase.want, w.Code)
			}
		})
	}
}

func TestTouchLastSeenThrottles(t *testing.T) {
	mr, rdb := newRedis(t)
	repo := newRepo(t)
	u := &models.User{ID: "00000000-0000-0000-0000-000000000009", Username: "ops@example.com"}
	if err := repo.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	r := gin.New()
	r.GET("/", func(c *gin.Context) { c.Set(CtxUserID, u.ID) }, TouchLastSeen(repo, rdb, time.Minute),
		func(c *gin.Context) { c.Status(http.StatusOK) })
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !mr.Exists("guests:lastseen:" + u.ID) {
		t.Error("expected throttle key")
	}
	got, err := repo.FindUserByID(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if got.LastSeenAt == nil {
		t.Error("expected last seen to be recorded")
	}
}

func TestBootstrapFirstAdmin(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	cfg := config.Config{BootstrapEmail: "first@example.com", WebOrigin: "https://app.example.com"}

	link, err := BootstrapFirstAdmin(ctx, cfg, repo)
	if err != nil || link == "" {
		t.Fatalf("expected invite link, got %q %v", link, err)
	}
	invites, err := repo.ListInvites(ctx, true)
	if err != nil || len(invites) != 1 || invites[0].CreatedBy != BootstrapCreator {
		t.Fatalf("unexpected invites %+v %v", invites, err)
	}

	admin := true
	u := &models.User{ID: "00000000-0000-0000-0000-000000000010", Username: "first@example.com"}
	if err := repo.CreateUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.SetUserRoles(ctx, u.ID, db.UserRoles{IsAdmin: &admin}); err != nil {
		t.Fatal(err)
	}
	if link, _ := BootstrapFirstAdmin(ctx, cfg, repo); link != "" {
		t.Error("no invite expected once an admin exists")
	}
}
