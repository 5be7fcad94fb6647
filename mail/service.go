package mail

import (
	"context"
	"log"

	"guest_tracker/models"
)

// InvitationStore 发送流程需要的仓储方法，*db.Repo 实现
type InvitationStore interface {
	InvitationsForSending(ctx context.Context, eventID uint, ids []uint, resend bool) ([]models.Invitation, error)
	PendingRSVPs(ctx context.Context, eventID uint) ([]models.Invitation, error)
	MarkInvitationSent(ctx context.Context, id uint) error
}

type Service struct {
	Sender   Sender
	Composer *Composer
}

func NewService(s Sender, c *Composer) *Service {
	return &Service{Sender: s, Composer: c}
}

type Report struct {
	Sent   int      `json:"sent"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors,omitempty"`
}

func (r *Report) fail(inv models.Invitation, err error) {
	r.Failed++
	r.Errors = append(r.Errors, inv.Guest.Email+": "+err.Error())
}

func (s *Service) SendInvitation(ctx context.Context, store InvitationStore, inv *models.Invitation) error {
	msg, err := s.Composer.Invitation(inv)
	if err != nil {
		return err
	}
	if err := s.Sender.Send(msg); err != nil {
		return err
	}
	return store.MarkInvitationSent(ctx, inv.ID)
}

// SendInvitations 单封失败不终止整批
func (s *Service) SendInvitations(ctx context.Context, store InvitationStore, eventID uint, ids []uint, resend bool) (*Report, error) {
	invs, err := store.InvitationsForSending(ctx, eventID, ids, resend)
	if err != nil {
		return nil, err
	}
	rep := &Report{}
	for i := range invs {
		if err := s.SendInvitation(ctx, store, &invs[i]); err != nil {
			log.Printf("[mail] invitation=%d: %v", invs[i].ID, err)
			rep.fail(invs[i], err)
			continue
		}
		rep.Sent++
	}
	return rep, nil
}

func (s *Service) SendReminder(inv *models.Invitation) error {
	msg, err := s.Composer.Reminder(inv)
	if err != nil {
		return err
	}
	return s.Sender.Send(msg)
}

func (s *Service) SendReminders(ctx context.Context, store InvitationStore, eventID uint) (*Report, error) {
	invs, err := store.PendingRSVPs(ctx, eventID)
	if err != nil {
		return nil, err
	}
	rep := &Report{}
	for i := range invs {
		if err := s.SendReminder(&invs[i]); err != nil {
			log.Printf("[mail] reminder invitation=%d: %v", invs[i].ID, err)
			rep.fail(invs[i], err)
			continue
		}
		rep.Sent++
	}
	return rep, nil
}

func (s *Service) SendStaffInvite(email, link string, staff bool, expiresDays int) error {
	msg, err := s.Composer.StaffInvite(email, link, staff, expiresDays)
	if err != nil {
		return err
	}
	return s.Sender.Send(msg)
}
