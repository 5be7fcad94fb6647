package db

import "errors"

var (
	ErrEventNotFound      = errors.New("event not found")
	ErrGuestNotFound      = errors.New("guest not found")
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrTableNotFound      = errors.New("table not found")
	ErrUserNotFound       = errors.New("user not found")

	ErrAlreadyInvited = errors.New("guest already invited to this event")
	ErrNotCheckedIn   = errors.New("guest is not checked in")
	ErrSeatTaken      = errors.New("seat already assigned to another invitation")
	ErrInviteUsed     = errors.New("invite already used or not found")
)
