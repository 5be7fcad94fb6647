package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"guest_tracker/db"
	"guest_tracker/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fixture struct {
	mr       *miniredis.Miniredis
	rdb      *redis.Client
	repo     *db.Repo
	sessions *CheckInSessions
	event    *models.Event
	op       Operator
}

const testTTL = time.Hour

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

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
	repo := db.NewRepo(conn)
	ctx := context.Background()

	ev := &models.Event{Name: "Reception", Date: time.Now().UTC()}
	if err := repo.CreateEvent(ctx, ev); err != nil {
		t.Fatalf("create event: %v", err)
	}
	u := &models.User{ID: "11111111-1111-1111-1111-111111111111", Username: "usher@example.com", IsStaff: true}
	if err := repo.CreateUser(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}

	return &fixture{
		mr:       mr,
		rdb:      rdb,
		repo:     repo,
		sessions: NewCheckInSessions(NewCheckInCache(rdb, testTTL), repo),
		event:    ev,
		op:       Operator{ID: u.ID, Username: u.Username},
	}
}

func TestStartConflictsAndJoin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	started, err := f.sessions.Start(ctx, f.event.ID, f.op, false)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Joined {
		t.Error("first start should not be a join")
	}
	if started.Session.EventName != "Reception" || started.Session.StartedBy != f.op.Username {
		t.Errorf("unexpected session: %+v", started.Session)
	}

	if _, err := f.sessions.Start(ctx, f.event.ID, f.op, false); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}

	joined, err := f.sessions.Start(ctx, f.event.ID, f.op, true)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if !joined.Joined || joined.Session.SessionID != started.Session.SessionID {
		t.Errorf("join should return the existing session, got %+v", joined)
	}
}

func TestJoinRehydratesExpiredCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	started, err := f.sessions.Start(ctx, f.event.ID, f.op, false)
	if err != nil {
		t.Fatal(err)
	}
	f.mr.FastForward(testTTL + time.Second)

	if active, _ := f.sessions.Active(ctx, f.event.ID); active != nil {
		t.Fatal("cache entry should have expired")
	}
	// 数据库记录仍未结束，不加入时仍视为冲突
	if _, err := f.sessions.Start(ctx, f.event.ID, f.op, false); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}

	joined, err := f.sessions.Start(ctx, f.event.ID, f.op, true)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if !joined.Joined || joined.Session.SessionID != started.Session.SessionID {
		t.Errorf("expected rehydrated session %s, got %+v", started.Session.SessionID, joined)
	}
	if joined.Session.StartedBy != f.op.Username {
		t.Errorf("rehydrated starter should be %s, got %q", f.op.Username, joined.Session.StartedBy)
	}
	if active, _ := f.sessions.Active(ctx, f.event.ID); active == nil {
		t.Error("cache entry should be back")
	}
}

func TestEndAfterCacheExpiryStampsRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.sessions.Start(ctx, f.event.ID, f.op, false); err != nil {
		t.Fatal(err)
	}
	f.mr.FastForward(testTTL + time.Second)

	ended, err := f.sessions.End(ctx, f.event.ID, f.op)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if !ended {
		t.Error("expected the durable record to be ended")
	}
	if _, err := f.repo.OpenCheckInSession(ctx, f.event.ID); !errors.Is(err, db.ErrNoOpenSession) {
		t.Errorf("expected no open record, got %v", err)
	}
	history, err := f.repo.CheckInSessionHistory(ctx, f.event.ID, 5)
	if err != nil || len(history) != 1 || history[0].EndedAt == nil || history[0].EndedBy == nil {
		t.Errorf("record not stamped: %+v %v", history, err)
	}
}

func TestEndClearsCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.sessions.Start(ctx, f.event.ID, f.op, false); err != nil {
		t.Fatal(err)
	}
	if _, err := f.sessions.End(ctx, f.event.ID, f.op); err != nil {
		t.Fatal(err)
	}
	if f.mr.Exists("guests:checkin_session:" + itoa(f.event.ID)) {
		t.Error("cache key should be deleted")
	}
	again, err := f.sessions.Start(ctx, f.event.ID, f.op, false)
	if err != nil {
		t.Fatalf("restart after end: %v", err)
	}
	if again.Joined {
		t.Error("restart should create a new session")
	}
}

func TestStaleCacheDoesNotBlockStart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stale := ActiveSession{EventID: f.event.ID, EventName: "old", SessionID: "999", StartedAt: time.Now().UTC()}
	if err := NewCheckInCache(f.rdb, testTTL).Set(ctx, stale); err != nil {
		t.Fatal(err)
	}
	res, err := f.sessions.Start(ctx, f.event.ID, f.op, false)
	if err != nil {
		t.Fatalf("start over stale cache: %v", err)
	}
	if res.Session.SessionID == "999" || res.Joined {
		t.Errorf("expected a fresh session, got %+v", res)
	}
}

func TestJoinWithNothingActiveStarts(t *testing.T) {
	f := newFixture(t)
	res, err := f.sessions.Start(context.Background(), f.event.ID, f.op, true)
	if err != nil {
		t.Fatal(err)
	}
	if res.Joined {
		t.Error("joining with nothing active should start a new session")
	}
}

func TestListActiveReportsCacheState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.sessions.Start(ctx, f.event.ID, f.op, false); err != nil {
		t.Fatal(err)
	}

	list, err := f.sessions.ListActive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || !list[0].Cached {
		t.Fatalf("expected one cached session, got %+v", list)
	}

	f.mr.FastForward(testTTL + time.Second)
	list, err = f.sessions.ListActive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Cached || list[0].StartedBy != f.op.Username {
		t.Fatalf("expected one uncached session, got %+v", list)
	}
}

func TestStartUnknownEvent(t *testing.T) {
	f := newFixture(t)
	if _, err := f.sessions.Start(context.Background(), 4040, f.op, false); !errors.Is(err, db.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}
