package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"guest_tracker/models"

	"gorm.io/gorm"
)

var (
	ErrInvalidRSVP   = errors.New("invalid rsvp response")
	ErrRSVPClosed    = errors.New("rsvp deadline has passed")
	ErrTooManyGuests = errors.New("plus ones exceed the event limit")
)

type RSVPInput struct {
	Response            string `json:"response" binding:"required"`
	PlusOnes            int    `json:"plusOnes" binding:"min=0,max=20"`
	DietaryRestrictions string `json:"dietaryRestrictions"`
	SpecialRequests     string `json:"specialRequests"`
}

// SubmitRSVP 创建或覆盖回复，并把邀请状态置为 responded
func (r *Repo) SubmitRSVP(ctx context.Context, invitationID uint, in RSVPInput) (*models.RSVP, error) {
	if !models.ValidRSVPResponse(in.Response) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRSVP, in.Response)
	}
	if in.Response != models.RSVPYes {
		in.PlusOnes = 0
	}

	var out models.RSVP
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invitation
		if err := tx.Preload("Event").First(&inv, "id = ?", invitationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvitationNotFound
			}
			return err
		}
		if d := inv.Event.RSVPDeadline; d != nil && time.Now().After(*d) {
			return ErrRSVPClosed
		}
		if max := inv.Event.MaxGuests; max != nil && *max > 0 && in.PlusOnes+1 > *max {
			return ErrTooManyGuests
		}

		err := tx.Where("invitation_id = ?", invitationID).First(&out).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			out = models.RSVP{InvitationID: invitationID}
		case err != nil:
			return err
		}
		out.Response = in.Response
		out.PlusOnes = in.PlusOnes
		out.DietaryRestrictions = in.DietaryRestrictions
		out.SpecialRequests = in.SpecialRequests
		if err := tx.Save(&out).Error; err != nil {
			return err
		}
		return tx.Model(&models.Invitation{}).Where("id = ?", invitationID).
			Update("status", models.InvitationResponded).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
