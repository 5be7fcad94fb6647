package db

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"guest_tracker/models"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	conn, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewRepo(conn)
}

func seedEvent(t *testing.T, r *Repo, assigned bool, tables ...models.ArrangementTable) *models.Event {
	t.Helper()
	ev := &models.Event{
		Name:               "Gala",
		Date:               time.Now().UTC().Add(2 * time.Hour),
		HasAssignedSeating: assigned,
		SeatingArrangement: models.SeatingArrangement{Tables: tables},
	}
	if err := r.CreateEvent(context.Background(), ev); err != nil {
		t.Fatalf("create event: %v", err)
	}
	return ev
}

func seedInvitations(t *testing.T, r *Repo, eventID uint, n int) []*models.Invitation {
	t.Helper()
	ctx := context.Background()
	out := make([]*models.Invitation, 0, n)
	for i := 0; i < n; i++ {
		g, _, err := r.GetOrCreateGuest(ctx, models.Guest{
			FirstName: fmt.Sprintf("Guest%d", i),
			LastName:  "Test",
			Email:     fmt.Sprintf("guest%d@example.com", i),
		})
		if err != nil {
			t.Fatalf("create guest: %v", err)
		}
		inv, err := r.CreateInvitation(ctx, eventID, g.ID, "")
		if err != nil {
			t.Fatalf("create invitation: %v", err)
		}
		out = append(out, inv)
	}
	return out
}

func seedUser(t *testing.T, r *Repo, username string) *models.User {
	t.Helper()
	u := &models.User{ID: fmt.Sprintf("00000000-0000-0000-0000-%012d", len(username)), Username: username, IsStaff: true}
	if err := r.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func countLogs(t *testing.T, r *Repo, invitationID uint) int64 {
	t.Helper()
	var n int64
	if err := r.DB.Model(&models.CheckInLog{}).Where("invitation_id = ?", invitationID).Count(&n).Error; err != nil {
		t.Fatalf("count logs: %v", err)
	}
	return n
}

func checkedInCount(t *testing.T, r *Repo, eventID uint) int64 {
	t.Helper()
	ev, err := r.FindEventByID(context.Background(), eventID)
	if err != nil {
		t.Fatalf("find event: %v", err)
	}
	return ev.CheckedInCount
}
