package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config 从环境变量读取
type Config struct {
	Port string `env:"PORT" envDefault:"3001"`

	DBDriver   string `env:"DB_DRIVER" envDefault:"postgres"` // postgres | sqlite
	DBHost     string `env:"DB_HOST" envDefault:"127.0.0.1"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"guest_tracker"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"guest_tracker.db"`

	RedisAddr string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	RedisPwd  string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	WebOrigin     string   `env:"WEB_ORIGIN" envDefault:"http://localhost:5173"`
	PublicBaseURL string   `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:3001"`
	RPID          string   `env:"RP_ID" envDefault:"localhost"`
	RPOrigins     []string `env:"RP_ORIGINS" envSeparator:","`
	RPDisplayName string   `env:"RP_DISPLAY_NAME" envDefault:"Guest Tracker Passkeys"`

	// WebAuthn 注册/登录仪式的临时数据
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"10m"`
	AppSessionTTL time.Duration `env:"APP_SESSION_TTL" envDefault:"24h"`

	AdminEmails    []string `env:"ADMIN_EMAILS" envSeparator:","`
	BootstrapEmail string   `env:"BOOTSTRAP_ADMIN_EMAIL"`

	CheckIn CheckInConfig

	SMTP SMTPConfig
}

type CheckInConfig struct {
	EnforceSession bool          `env:"CHECKIN_SESSION_ENFORCE" envDefault:"false"`
	SessionTimeout time.Duration `env:"CHECKIN_SESSION_TIMEOUT" envDefault:"8h"`
	RequireBarcode bool          `env:"CHECKIN_REQUIRE_BARCODE" envDefault:"false"`
	RateLimit      int64         `env:"CHECKIN_RATE_LIMIT" envDefault:"600"`
	RateWindow     time.Duration `env:"CHECKIN_RATE_WINDOW" envDefault:"1h"`
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"` // 为空时回退 Username
	AppName  string `env:"APP_NAME" envDefault:"Guest Tracker"`
}

// Enabled reports whether enough SMTP settings exist to actually send mail.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && (s.Username != "" || s.From != "")
}

func (s SMTPConfig) Sender() string {
	if s.From != "" {
		return s.From
	}
	return s.Username
}

// LoadEnv 读取 .env（不存在时忽略）
func LoadEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		log.Printf("no .env loaded: %v", err)
	}
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

func (c *Config) normalize() {
	var origins []string
	for _, o := range c.RPOrigins {
		if s := strings.TrimSpace(o); s != "" {
			origins = append(origins, s)
		}
	}
	if len(origins) == 0 {
		origins = []string{c.WebOrigin}
	}
	c.RPOrigins = origins

	var admins []string
	for _, s := range c.AdminEmails {
		if t := strings.TrimSpace(s); t != "" {
			admins = append(admins, strings.ToLower(t))
		}
	}
	c.AdminEmails = admins
	c.PublicBaseURL = strings.TrimRight(c.PublicBaseURL, "/")
}

// IsAdminEmail 配置里的管理员邮箱
func (c Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, admin := range c.AdminEmails {
		if email == admin {
			return true
		}
	}
	return false
}
