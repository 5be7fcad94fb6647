package models

const (
	TableTable = "gt_tables"
	SeatTable  = "gt_seats"
)

// Table 一个活动下的桌子
type Table struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	EventID  uint   `gorm:"not null;uniqueIndex:ux_table_event_number" json:"eventId"`
	Number   string `gorm:"size:50;not null;uniqueIndex:ux_table_event_number" json:"number"`
	Capacity int    `gorm:"not null;default:0" json:"capacity"`
	Section  string `gorm:"size:100" json:"section"`
	Seats    []Seat `gorm:"constraint:OnDelete:CASCADE" json:"seats,omitempty"`
}

func (Table) TableName() string { return TableTable }

type Seat struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	TableID uint   `gorm:"not null;uniqueIndex:ux_seat_table_number" json:"tableId"`
	Number  string `gorm:"size:50;not null;uniqueIndex:ux_seat_table_number" json:"number"`
	// 唯一部分索引见 db.Migrate
	AssignedInvitationID *uint `json:"assignedInvitationId,omitempty"`
}

func (Seat) TableName() string { return SeatTable }
