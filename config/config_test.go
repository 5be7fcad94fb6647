package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RP_ORIGINS", "")
	t.Setenv("ADMIN_EMAILS", "")
	t.Setenv("WEB_ORIGIN", "https://tracker.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "3001" {
		t.Errorf("expected default port 3001, got %q", cfg.Port)
	}
	if cfg.CheckIn.SessionTimeout != 8*time.Hour {
		t.Errorf("expected 8h check-in session timeout, got %v", cfg.CheckIn.SessionTimeout)
	}
	if cfg.CheckIn.EnforceSession {
		t.Error("session enforcement should be off by default")
	}
	if len(cfg.RPOrigins) != 1 || cfg.RPOrigins[0] != "https://tracker.example.com" {
		t.Errorf("expected RP origins to fall back to web origin, got %v", cfg.RPOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ADMIN_EMAILS", " Admin@Example.com, ops@example.com ,")
	t.Setenv("CHECKIN_SESSION_ENFORCE", "true")
	t.Setenv("CHECKIN_SESSION_TIMEOUT", "30m")
	t.Setenv("PUBLIC_BASE_URL", "https://guests.example.com/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.CheckIn.EnforceSession {
		t.Error("expected enforcement to be enabled")
	}
	if cfg.CheckIn.SessionTimeout != 30*time.Minute {
		t.Errorf("expected 30m, got %v", cfg.CheckIn.SessionTimeout)
	}
	if !cfg.IsAdminEmail("admin@example.com") || !cfg.IsAdminEmail("OPS@example.com") {
		t.Errorf("admin emails not normalized: %v", cfg.AdminEmails)
	}
	if cfg.IsAdminEmail("guest@example.com") {
		t.Error("unexpected admin match")
	}
	if cfg.PublicBaseURL != "https://guests.example.com" {
		t.Errorf("trailing slash not trimmed: %q", cfg.PublicBaseURL)
	}
}

func TestSMTPEnabled(t *testing.T) {
	var cases = []struct {
		name string
		smtp SMTPConfig
		want bool
	}{
		{"No host", SMTPConfig{Username: "a@example.com"}, false},
		{"Host without identity", SMTPConfig{Host: "smtp.example.com"}, false},
		{"Host and username", SMTPConfig{Host: "smtp.example.com", Username: "a@example.com"}, true},
		{"Host and from", SMTPConfig{Host: "smtp.example.com", From: "noreply@example.com"}, true},
	}
	for _, tcase := range cases {
		t.Run(tcase.name, func(t *testing.T) {
			if got := tcase.smtp.Enabled(); got != tcase.want {
				t.Errorf("expected %v, got %v", tcase.want, got)
			}
		})
	}
}
