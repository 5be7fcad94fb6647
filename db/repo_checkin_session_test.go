package db

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCheckInSessionLifecycle(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	ev := seedEvent(t, r, false)
	u := seedUser(t, r, "usher@example.com")
	now := time.Now().UTC()

	s, err := r.CreateCheckInSession(ctx, ev.ID, u.ID, now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !s.Open() {
		t.Fatal("new session should be open")
	}
	if _, err := r.CreateCheckInSession(ctx, ev.ID, u.ID, now); !errors.Is(err, ErrSessionOpen) {
		t.Fatalf("expected ErrSessionOpen, got %v", err)
	}

	open, err := r.ListOpenCheckInSessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 1 || open[0].EventName != ev.Name {
		t.Fatalf("unexpected open sessions: %+v", open)
	}

	n, err := r.EndCheckInSession(ctx, ev.ID, u.ID, now.Add(time.Minute))
	if err != nil || n != 1 {
		t.Fatalf("end: n=%d err=%v", n, err)
	}
	if _, err := r.OpenCheckInSession(ctx, ev.ID); !errors.Is(err, ErrNoOpenSession) {
		t.Fatalf("expected ErrNoOpenSession, got %v", err)
	}
	if _, err := r.CreateCheckInSession(ctx, ev.ID, "", now); err != nil {
		t.Fatalf("restart after end: %v", err)
	}
}

func TestCheckInSessionUnknownEvent(t *testing.T) {
	r := newTestRepo(t)
	if _, err := r.CreateCheckInSession(context.Background(), 404, "", time.Now()); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}
