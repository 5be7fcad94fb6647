package models

import (
	"strings"
	"time"
)

const GuestTable = "gt_guests"

type Guest struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FirstName   string    `gorm:"size:100;not null;uniqueIndex:ux_guest_identity" json:"firstName"`
	LastName    string    `gorm:"size:100;not null;uniqueIndex:ux_guest_identity" json:"lastName"`
	Email       string    `gorm:"size:254;not null;index;uniqueIndex:ux_guest_identity" json:"email"`
	Phone       string    `gorm:"size:20" json:"phone"`
	Address     string    `gorm:"type:text" json:"address"`
	Notes       string    `gorm:"type:text" json:"notes"`
	Rank        string    `gorm:"size:100" json:"rank"`        // 军衔/职称
	Institution string    `gorm:"size:200" json:"institution"` // 单位
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Guest) TableName() string { return GuestTable }

func (g Guest) FullName() string {
	return strings.TrimSpace(g.FirstName + " " + g.LastName)
}
