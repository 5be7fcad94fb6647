package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const EventTable = "gt_events"

// 座位来源：每个活动解析一次，座位数据变化时重新计算
const (
	SeatingModeNone      = "none"
	SeatingModeInventory = "inventory" // 规范化的 Table/Seat 行
	SeatingModeCapacity  = "capacity"  // 仅有 seating_arrangement JSON
)

type Event struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Name         string     `gorm:"size:200;not null" json:"name"`
	Description  string     `gorm:"type:text" json:"description"`
	Date         time.Time  `gorm:"index;not null" json:"date"`
	Location     string     `gorm:"size:300" json:"location"`
	CreatedBy    string     `gorm:"size:36;index" json:"createdBy"`
	RSVPDeadline *time.Time `json:"rsvpDeadline,omitempty"`
	MaxGuests    *int       `json:"maxGuests,omitempty"`

	HasAssignedSeating bool               `gorm:"not null;default:false" json:"hasAssignedSeating"`
	SeatingArrangement SeatingArrangement `gorm:"type:text" json:"seatingArrangement"`
	SeatingMode        string             `gorm:"size:20;not null;default:''" json:"seatingMode"`

	// 与签到日志在同一事务中维护
	CheckedInCount int64 `gorm:"not null;default:0" json:"checkedInCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Event) TableName() string { return EventTable }

type ArrangementTable struct {
	Number   string `json:"number"`
	Capacity int    `json:"capacity"`
	Section  string `json:"section,omitempty"`
}

// SeatingArrangement 反规范化的座位配置，按配置顺序保存
type SeatingArrangement struct {
	Tables []ArrangementTable `json:"tables"`
}

func (s SeatingArrangement) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *SeatingArrangement) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*s = SeatingArrangement{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("seating arrangement: unsupported type %T", src)
	}
	if len(b) == 0 {
		*s = SeatingArrangement{}
		return nil
	}
	return json.Unmarshal(b, s)
}

// UnmarshalJSON accepts table numbers given as JSON strings or numbers.
func (t *ArrangementTable) UnmarshalJSON(b []byte) error {
	var raw struct {
		Number   json.RawMessage `json:"number"`
		Capacity *int            `json:"capacity"`
		Section  string          `json:"section"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	t.Number = ""
	if len(raw.Number) > 0 && string(raw.Number) != "null" {
		var s string
		if err := json.Unmarshal(raw.Number, &s); err != nil {
			var n json.Number
			if err := json.Unmarshal(raw.Number, &n); err != nil {
				return fmt.Errorf("table number: %w", err)
			}
			s = n.String()
		}
		t.Number = s
	}
	t.Capacity = 0
	if raw.Capacity != nil {
		t.Capacity = *raw.Capacity
	}
	t.Section = raw.Section
	return nil
}
