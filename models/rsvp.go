package models

import "time"

const (
	RSVPYes   = "yes"
	RSVPNo    = "no"
	RSVPMaybe = "maybe"
)

type RSVP struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	InvitationID        uint      `gorm:"uniqueIndex;not null" json:"invitationId"`
	Response            string    `gorm:"size:5;not null" json:"response"`
	PlusOnes            int       `gorm:"not null;default:0" json:"plusOnes"`
	DietaryRestrictions string    `gorm:"type:text" json:"dietaryRestrictions"`
	SpecialRequests     string    `gorm:"type:text" json:"specialRequests"`
	RespondedAt         time.Time `gorm:"autoCreateTime" json:"respondedAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

func (RSVP) TableName() string { return "gt_rsvps" }

// TotalGuests 本人加随行人数，仅在确认出席时计算
func (r RSVP) TotalGuests() int {
	if r.Response != RSVPYes {
		return 0
	}
	return 1 + r.PlusOnes
}

func ValidRSVPResponse(s string) bool {
	switch s {
	case RSVPYes, RSVPNo, RSVPMaybe:
		return true
	}
	return false
}
