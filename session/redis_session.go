package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/redis/go-redis/v9"
)

// Store WebAuthn 注册/登录仪式的临时数据
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store { return &Store{rdb: rdb, ttl: ttl} }

type ceremony string

const (
	ceremonyAddCredential ceremony = "reg"     // 已登录操作员追加 passkey，按用户名
	ceremonyInvite        ceremony = "reg:inv" // 凭员工邀请注册，按 token
	ceremonyLogin         ceremony = "auth"    // 登录，按一次性 sessionId
)

func ceremonyKey(c ceremony, id string) string { return fmt.Sprintf("guests:webauthn:%s:%s", c, id) }

func saveJSON(ctx context.Context, rdb *redis.Client, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, b, ttl).Err()
}

func loadJSON(ctx context.Context, rdb *redis.Client, key string, v any) error {
	b, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func (s *Store) save(ctx context.Context, c ceremony, id string, sd *webauthn.SessionData) error {
	return saveJSON(ctx, s.rdb, ceremonyKey(c, id), sd, s.ttl)
}

func (s *Store) load(ctx context.Context, c ceremony, id string) (*webauthn.SessionData, error) {
	var sd webauthn.SessionData
	if err := loadJSON(ctx, s.rdb, ceremonyKey(c, id), &sd); err != nil {
		return nil, err
	}
	return &sd, nil
}

func (s *Store) del(ctx context.Context, c ceremony, id string) {
	_ = s.rdb.Del(ctx, ceremonyKey(c, id)).Err()
}

func (s *Store) SaveReg(ctx context.Context, username string, sd *webauthn.SessionData) error {
	return s.save(ctx, ceremonyAddCredential, username, sd)
}

func (s *Store) LoadReg(ctx context.Context, username string) (*webauthn.SessionData, error) {
	return s.load(ctx, ceremonyAddCredential, username)
}

func (s *Store) DelReg(ctx context.Context, username string) { s.del(ctx, ceremonyAddCredential, username) }

func (s *Store) SaveRegByToken(ctx context.Context, token string, sd *webauthn.SessionData) error {
	return s.save(ctx, ceremonyInvite, token, sd)
}

func (s *Store) LoadRegByToken(ctx context.Context, token string) (*webauthn.SessionData, error) {
	return s.load(ctx, ceremonyInvite, token)
}

func (s *Store) DelRegByToken(ctx context.Context, token string) { s.del(ctx, ceremonyInvite, token) }

func (s *Store) SaveAuth(ctx context.Context, sid string, sd *webauthn.SessionData) error {
	return s.save(ctx, ceremonyLogin, sid, sd)
}

func (s *Store) LoadAuth(ctx context.Context, sid string) (*webauthn.SessionData, error) {
	return s.load(ctx, ceremonyLogin, sid)
}

func (s *Store) DelAuth(ctx context.Context, sid string) { s.del(ctx, ceremonyLogin, sid) }
