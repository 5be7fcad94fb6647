package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"guest_tracker/config"
	"guest_tracker/db"
)

// BootstrapCreator 首个管理员邀请的 created_by 标记，注册时据此授予 admin
const BootstrapCreator = "bootstrap"

func NewInviteToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func InviteLink(cfg config.Config, token string) string {
	return fmt.Sprintf("%s/login?inviteToken=%s", cfg.WebOrigin, token)
}

// BootstrapFirstAdmin 没有任何管理员时为 BOOTSTRAP_ADMIN_EMAIL 生成一次性邀请
func BootstrapFirstAdmin(ctx context.Context, cfg config.Config, repo *db.Repo) (string, error) {
	if cfg.BootstrapEmail == "" {
		return "", nil
	}
	n, err := repo.CountAdmins(ctx)
	if err != nil {
		return "", err
	}
	if n > 0 {
		return "", nil
	}

	token, err := NewInviteToken()
	if err != nil {
		return "", err
	}
	if _, err := repo.CreateInvite(ctx, cfg.BootstrapEmail, token, true, time.Now().Add(24*time.Hour), BootstrapCreator); err != nil {
		return "", fmt.Errorf("bootstrap invite: %w", err)
	}

	link := InviteLink(cfg, token)
	log.Printf("[BOOTSTRAP] No admin found, created an admin invite for %s", cfg.BootstrapEmail)
	log.Printf("[BOOTSTRAP] Open this URL to register the first admin: %s", link)
	return link, nil
}
