package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"guest_tracker/db"
	"guest_tracker/models"

	"github.com/redis/go-redis/v9"
)

// ErrSessionActive 已有进行中的签到会话，调用方可以选择加入
var ErrSessionActive = errors.New("check-in session already active")

// ActiveSession 缓存中的会话快照，扫码端低延迟读取
type ActiveSession struct {
	EventID     uint      `json:"event_id"`
	EventName   string    `json:"event_name"`
	StartedBy   string    `json:"started_by"`
	StartedByID string    `json:"started_by_id,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	SessionID   string    `json:"session_id"`
}

func checkInKey(eventID uint) string { return fmt.Sprintf("guests:checkin_session:%d", eventID) }

// CheckInCache 共享的 TTL 缓存；TTL 即会话的过期时间
type CheckInCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCheckInCache(rdb *redis.Client, ttl time.Duration) *CheckInCache {
	return &CheckInCache{rdb: rdb, ttl: ttl}
}

// Get 不存在时返回 (nil, nil)
func (c *CheckInCache) Get(ctx context.Context, eventID uint) (*ActiveSession, error) {
	var s ActiveSession
	err := loadJSON(ctx, c.rdb, checkInKey(eventID), &s)
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *CheckInCache) Set(ctx context.Context, s ActiveSession) error {
	return saveJSON(ctx, c.rdb, checkInKey(s.EventID), s, c.ttl)
}

func (c *CheckInCache) Delete(ctx context.Context, eventID uint) (bool, error) {
	n, err := c.rdb.Del(ctx, checkInKey(eventID)).Result()
	return n > 0, err
}

// SessionRecords 持久化的会话记录（以数据库为准）
type SessionRecords interface {
	FindEventByID(ctx context.Context, id uint) (*models.Event, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	OpenCheckInSession(ctx context.Context, eventID uint) (*models.CheckInSession, error)
	CreateCheckInSession(ctx context.Context, eventID uint, startedBy string, at time.Time) (*models.CheckInSession, error)
	EndCheckInSession(ctx context.Context, eventID uint, endedBy string, at time.Time) (int64, error)
	ListOpenCheckInSessions(ctx context.Context) ([]db.OpenSessionRow, error)
}

type Operator struct {
	ID       string
	Username string
}

type StartResult struct {
	Session ActiveSession `json:"session"`
	Joined  bool          `json:"joined"`
}

type ActiveListing struct {
	ActiveSession
	Cached bool `json:"cached"`
}

// CheckInSessions 协调缓存与数据库两处状态
type CheckInSessions struct {
	cache   *CheckInCache
	records SessionRecords
	now     func() time.Time
}

func NewCheckInSessions(cache *CheckInCache, records SessionRecords) *CheckInSessions {
	return &CheckInSessions{cache: cache, records: records, now: time.Now}
}

func sessionFromRecord(rec *models.CheckInSession, eventName, startedBy string) ActiveSession {
	s := ActiveSession{
		EventID:   rec.EventID,
		EventName: eventName,
		StartedBy: startedBy,
		StartedAt: rec.StartedAt.UTC(),
		SessionID: strconv.FormatUint(uint64(rec.ID), 10),
	}
	if rec.StartedBy != nil {
		s.StartedByID = *rec.StartedBy
	}
	return s
}

func (m *CheckInSessions) openRecord(ctx context.Context, eventID uint) (*models.CheckInSession, error) {
	rec, err := m.records.OpenCheckInSession(ctx, eventID)
	if errors.Is(err, db.ErrNoOpenSession) {
		return nil, nil
	}
	return rec, err
}

func (m *CheckInSessions) starterName(ctx context.Context, rec *models.CheckInSession) string {
	if rec.StartedBy == nil {
		return ""
	}
	u, err := m.records.FindUserByID(ctx, *rec.StartedBy)
	if err != nil {
		return ""
	}
	return u.Username
}

// Start join=false 时若已有会话返回 ErrSessionActive；join=true 时加入现有会话，
// 缓存过期但数据库记录仍未结束则用原 session_id 重建缓存。
func (m *CheckInSessions) Start(ctx context.Context, eventID uint, op Operator, join bool) (*StartResult, error) {
	ev, err := m.records.FindEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	cached, err := m.cache.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	rec, err := m.openRecord(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if rec != nil {
		if !join {
			return nil, ErrSessionActive
		}
		if cached != nil {
			return &StartResult{Session: *cached, Joined: true}, nil
		}
		s := sessionFromRecord(rec, ev.Name, m.starterName(ctx, rec))
		if err := m.cache.Set(ctx, s); err != nil {
			return nil, err
		}
		log.Printf("[session] event=%d rehydrated session %s for %s", eventID, s.SessionID, op.Username)
		return &StartResult{Session: s, Joined: true}, nil
	}

	if cached != nil {
		log.Printf("[session] event=%d dropping stale cache entry %s", eventID, cached.SessionID)
		if _, err := m.cache.Delete(ctx, eventID); err != nil {
			return nil, err
		}
	}

	rec, err = m.records.CreateCheckInSession(ctx, eventID, op.ID, m.now())
	if errors.Is(err, db.ErrSessionOpen) {
		if !join {
			return nil, ErrSessionActive
		}
		// 并发启动时另一方已写入，改为加入
		return m.Start(ctx, eventID, op, true)
	}
	if err != nil {
		return nil, err
	}
	s := sessionFromRecord(rec, ev.Name, op.Username)
	if err := m.cache.Set(ctx, s); err != nil {
		return nil, err
	}
	log.Printf("[session] event=%d started session %s by %s", eventID, s.SessionID, op.Username)
	return &StartResult{Session: s, Joined: false}, nil
}

// End 清除缓存并给数据库记录盖上结束时间（缓存已过期也照常处理）
func (m *CheckInSessions) End(ctx context.Context, eventID uint, op Operator) (bool, error) {
	hadCache, err := m.cache.Delete(ctx, eventID)
	if err != nil {
		return false, err
	}
	n, err := m.records.EndCheckInSession(ctx, eventID, op.ID, m.now())
	if err != nil {
		return hadCache, err
	}
	log.Printf("[session] event=%d ended by %s (cache=%v records=%d)", eventID, op.Username, hadCache, n)
	return hadCache || n > 0, nil
}

func (m *CheckInSessions) Active(ctx context.Context, eventID uint) (*ActiveSession, error) {
	return m.cache.Get(ctx, eventID)
}

// ListActive 所有未结束的数据库记录，并标记缓存是否仍在
func (m *CheckInSessions) ListActive(ctx context.Context) ([]ActiveListing, error) {
	rows, err := m.records.ListOpenCheckInSessions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ActiveListing, 0, len(rows))
	for i := range rows {
		row := rows[i]
		cached, err := m.cache.Get(ctx, row.EventID)
		if err != nil {
			return nil, err
		}
		if cached != nil {
			out = append(out, ActiveListing{ActiveSession: *cached, Cached: true})
			continue
		}
		out = append(out, ActiveListing{
			ActiveSession: sessionFromRecord(&row.CheckInSession, row.EventName, m.starterName(ctx, &row.CheckInSession)),
		})
	}
	return out, nil
}
