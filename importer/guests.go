package importer

import (
	"context"
	"io"
	"log"
	"net/mail"
	"strings"

	"guest_tracker/models"
)

type GuestOptions struct {
	// EventID 非 0 时为每位宾客创建邀请
	EventID           uint
	CreateInvitations bool
}

type GuestReport struct {
	Rows               int      `json:"rows"`
	GuestsCreated      int      `json:"guestsCreated"`
	GuestsExisting     int      `json:"guestsExisting"`
	InvitationsCreated int      `json:"invitationsCreated"`
	Errors             []string `json:"errors,omitempty"`
}

// ImportGuests columns: first_name,last_name,email[,phone,address,rank,institution,notes]
func ImportGuests(ctx context.Context, s Store, r io.Reader, opts GuestOptions) (*GuestReport, error) {
	t, err := readCSV(r, "first_name", "last_name", "email")
	if err != nil {
		return nil, err
	}
	if opts.CreateInvitations && opts.EventID != 0 {
		if _, err := s.FindEventByID(ctx, opts.EventID); err != nil {
			return nil, err
		}
	}
	rep := &GuestReport{Rows: len(t.rows)}
	for i, row := range t.rows {
		g := models.Guest{
			FirstName:   t.get(row, "first_name"),
			LastName:    t.get(row, "last_name"),
			Email:       strings.ToLower(t.get(row, "email")),
			Phone:       t.get(row, "phone"),
			Address:     t.get(row, "address"),
			Rank:        t.get(row, "rank"),
			Institution: t.get(row, "institution"),
			Notes:       t.get(row, "notes"),
		}
		if g.FirstName == "" || g.LastName == "" || g.Email == "" {
			rep.Errors = append(rep.Errors, t.rowError(i, "first_name, last_name and email are required"))
			continue
		}
		if _, err := mail.ParseAddress(g.Email); err != nil {
			rep.Errors = append(rep.Errors, t.rowError(i, "invalid email %q", g.Email))
			continue
		}
		guest, created, err := s.GetOrCreateGuest(ctx, g)
		if err != nil {
			return rep, err
		}
		if created {
			rep.GuestsCreated++
		} else {
			rep.GuestsExisting++
		}
		if !opts.CreateInvitations || opts.EventID == 0 {
			continue
		}
		_, created, err = s.GetOrCreateInvitation(ctx, opts.EventID, guest.ID)
		if err != nil {
			return rep, err
		}
		if created {
			rep.InvitationsCreated++
		}
	}
	log.Printf("[import] guests rows=%d created=%d existing=%d invitations=%d errors=%d",
		rep.Rows, rep.GuestsCreated, rep.GuestsExisting, rep.InvitationsCreated, len(rep.Errors))
	return rep, nil
}
