package models

import "time"

const InvitationTable = "gt_invitations"

const (
	InvitationDraft     = "draft"
	InvitationSent      = "sent"
	InvitationOpened    = "opened"
	InvitationResponded = "responded"
)

type Invitation struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	EventID       uint   `gorm:"not null;uniqueIndex:ux_invitation_event_guest" json:"eventId"`
	GuestID       uint   `gorm:"not null;uniqueIndex:ux_invitation_event_guest;index" json:"guestId"`
	UniqueCode    string `gorm:"size:36;uniqueIndex;not null" json:"uniqueCode"`
	BarcodeNumber string `gorm:"size:32;uniqueIndex;not null" json:"barcodeNumber"`

	Status          string     `gorm:"size:20;not null;default:'draft'" json:"status"`
	EmailSent       bool       `gorm:"not null;default:false" json:"emailSent"`
	EmailSentAt     *time.Time `json:"emailSentAt,omitempty"`
	OpenedAt        *time.Time `json:"openedAt,omitempty"`
	PersonalMessage string     `gorm:"type:text" json:"personalMessage,omitempty"`

	CheckedIn   bool       `gorm:"not null;default:false;index" json:"checkedIn"`
	CheckInTime *time.Time `gorm:"index" json:"checkInTime,omitempty"`
	TableNumber string     `gorm:"size:50" json:"tableNumber"`
	SeatNumber  string     `gorm:"size:50" json:"seatNumber"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Event Event `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Guest Guest `gorm:"constraint:OnDelete:CASCADE" json:"guest"`
	// 可能尚未回复
	RSVP *RSVP `json:"rsvp,omitempty"`
}

func (Invitation) TableName() string { return InvitationTable }

func (i Invitation) IsResponded() bool { return i.RSVP != nil }

func (i Invitation) Seated() bool { return i.TableNumber != "" }
