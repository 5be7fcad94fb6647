package models

import "time"

const (
	CheckInLogTable     = "gt_checkin_logs"
	CheckInSessionTable = "gt_checkin_sessions"
)

// CheckInLog 只追加的签到审计记录，写入后不再修改
type CheckInLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	EventID      uint      `gorm:"not null;index" json:"eventId"`
	InvitationID uint      `gorm:"not null;index" json:"invitationId"`
	GuestID      uint      `gorm:"not null;index" json:"guestId"`
	CheckedInBy  *string   `gorm:"size:36" json:"checkedInBy,omitempty"`
	CheckedInAt  time.Time `gorm:"index;not null" json:"checkedInAt"`
	TableNumber  string    `gorm:"size:50" json:"tableNumber"`
	SeatNumber   string    `gorm:"size:50" json:"seatNumber"`
}

func (CheckInLog) TableName() string { return CheckInLogTable }

// CheckInSession 签到窗口的持久记录（缓存过期后仍可据此恢复）
type CheckInSession struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	EventID   uint       `gorm:"not null;index" json:"eventId"`
	StartedBy *string    `gorm:"size:36" json:"startedBy,omitempty"`
	StartedAt time.Time  `gorm:"not null" json:"startedAt"`
	EndedBy   *string    `gorm:"size:36" json:"endedBy,omitempty"`
	EndedAt   *time.Time `gorm:"index" json:"endedAt,omitempty"`

	Starter *User `gorm:"foreignKey:StartedBy" json:"-"`
}

func (CheckInSession) TableName() string { return CheckInSessionTable }

func (s CheckInSession) Open() bool { return s.EndedAt == nil }
