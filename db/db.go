package db

import (
	"fmt"
	"log"
	"time"

	"guest_tracker/config"
	"guest_tracker/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func ConnectDB(cfg config.Config) *gorm.DB {
	conn, err := Open(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}
	if err := Migrate(conn); err != nil {
		log.Fatal("Failed to migrate models: ", err)
	}
	log.Printf("Database connected (%s)", cfg.DBDriver)
	return conn
}

func Open(cfg config.Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
	switch cfg.DBDriver {
	case "sqlite":
		return OpenSQLite(cfg.SQLitePath)
	case "postgres", "":
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
		)
		return gorm.Open(postgres.Open(dsn), gcfg)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}

// OpenSQLite 本地开发与测试用；SQLite 只有一个写者，连接数限制为 1
func OpenSQLite(path string) (*gorm.DB, error) {
	conn, err := gorm.Open(sqlite.Open(path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return conn, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{}, &models.Credential{}, &models.StaffInvite{},
		&models.Event{}, &models.Guest{}, &models.Invitation{}, &models.RSVP{},
		&models.Table{}, &models.Seat{},
		&models.CheckInLog{}, &models.CheckInSession{},
	); err != nil {
		return err
	}

	// 同一座位最多分配给一张邀请，同一邀请最多占一个座位
	if err := db.Exec(fmt.Sprintf(`
	  CREATE UNIQUE INDEX IF NOT EXISTS %s_one_seat_per_invitation
	  ON %s (assigned_invitation_id)
	  WHERE assigned_invitation_id IS NOT NULL;
	`, models.SeatTable, models.SeatTable)).Error; err != nil {
		return err
	}

	// 同一活动最多一个未结束的签到会话
	if err := db.Exec(fmt.Sprintf(`
	  CREATE UNIQUE INDEX IF NOT EXISTS %s_one_open_per_event
	  ON %s (event_id)
	  WHERE ended_at IS NULL;
	`, models.CheckInSessionTable, models.CheckInSessionTable)).Error; err != nil {
		return err
	}

	// 最近签到列表
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_event_checkin_time
	  ON %s (event_id, check_in_time)
	  WHERE checked_in = TRUE;
	`, models.InvitationTable, models.InvitationTable)).Error; err != nil {
		return err
	}

	return nil
}
