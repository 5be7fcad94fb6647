package db

import (
	"context"
	"errors"
	"sync"
	"testing"

	"guest_tracker/models"
)

func TestCheckInIsIdempotent(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	ev := seedEvent(t, r, false)
	inv := seedInvitations(t, r, ev.ID, 1)[0]

	first, err := r.CheckIn(ctx, CheckInInput{InvitationID: inv.ID})
	if err != nil {
		t.Fatalf("first check-in: %v", err)
	}
	if !first.NewlyCheckedIn || !first.Invitation.CheckedIn || first.Invitation.CheckInTime == nil {
		t.Fatalf("expected a fresh check-in, got %+v", first)
	}

	second, err := r.CheckIn(ctx, CheckInInput{InvitationID: inv.ID})
	if err != nil {
		t.Fatalf("second check-in: %v", err)
	}
	if second.NewlyCheckedIn {
		t.Error("second check-in should not be new")
	}
	if got := checkedInCount(t, r, ev.ID); got != 1 {
		t.Errorf("expected counter 1, got %d", got)
	}
	if got := countLogs(t, r, inv.ID); got != 1 {
		t.Errorf("expected 1 log row, got %d", got)
	}
}

func TestCheckInUnknownInvitation(t *testing.T) {
	r := newTestRepo(t)
	if _, err := r.CheckIn(context.Background(), CheckInInput{InvitationID: 9999}); !errors.Is(err, ErrInvitationNotFound) {
		t.Fatalf("expected ErrInvitationNotFound, got %v", err)
	}
}

func TestUndoThenRecheckAppendsLog(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	ev := seedEvent(t, r, false)
	inv := seedInvitations(t, r, ev.ID, 1)[0]

	if _, err := r.CheckIn(ctx, CheckInInput{InvitationID: inv.ID, Table: "A1", Seat: "3"}); err != nil {
		t.Fatalf("check-in: %v", err)
	}
	undone, err := r.UndoCheckIn(ctx, inv.ID, "")
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if undone.CheckedIn || undone.CheckInTime != nil || undone.TableNumber != "" || undone.SeatNumber != "" {
		t.Errorf("undo left state behind: %+v", undone)
	}
	if got := checkedInCount(t, r, ev.ID); got != 0 {
		t.Errorf("expected counter 0 after undo, got %d", got)
	}
	if got := countLogs(t, r, inv.ID); got != 1 {
		t.Errorf("undo must not touch logs, got %d rows", got)
	}

	again, err := r.CheckIn(ctx, CheckInInput{InvitationID: inv.ID})
	if err != nil {
		t.Fatalf("re-check-in: %v", err)
	}
	if !again.NewlyCheckedIn {
		t.Error("re-check-in after undo should be new")
	}
	if got := countLogs(t, r, inv.ID); got != 2 {
		t.Errorf("expected 2 log rows, got %d", got)
	}
	if got := checkedInCount(t, r, ev.ID); got != 1 {
		t.Errorf("expected counter 1, got %d", got)
	}
}

func TestUndoWhenNotCheckedIn(t *testing.T) {
	r := newTestRepo(t)
	ev := seedEvent(t, r, false)
	inv := seedInvitations(t, r, ev.ID, 1)[0]

	if _, err := r.UndoCheckIn(context.Background(), inv.ID, ""); !errors.Is(err, ErrNotCheckedIn) {
		t.Fatalf("expected ErrNotCheckedIn, got %v", err)
	}
}

func TestCapacitySeating(t *testing.T) {
	var cases = []struct {
		name   string
		tables []models.ArrangementTable
		want   [][2]string
	}{
		{
			"Single table overflows to unseated",
			[]models.ArrangementTable{{Number: "1", Capacity: 2}},
			[][2]string{{"1", "1"}, {"1", "2"}, {"", ""}},
		},
		{
			"Overflow to next table in config order",
			[]models.ArrangementTable{{Number: "1", Capacity: 2}, {Number: "B", Capacity: 4}},
			[][2]string{{"1", "1"}, {"1", "2"}, {"B", "1"}},
		},
	}
	for _, tcase := range cases {
		t.Run(tcase.name, func(t *testing.T) {
			r := newTestRepo(t)
			ctx := context.Background()
			ev := seedEvent(t, r, true, tcase.tables...)
			if ev.SeatingMode != models.SeatingModeCapacity {
				t.Fatalf("expected capacity mode, got %q", ev.SeatingMode)
			}
			invs := seedInvitations(t, r, ev.ID, len(tcase.want))
			for i, inv := range invs {
				res, err := r.CheckIn(ctx, CheckInInput{InvitationID: inv.ID})
				if err != nil {
					t.Fatalf("check-in %d: %v", i, err)
				}
				got := [2]string{res.Invitation.TableNumber, res.Invitation.SeatNumber}
				if got != tcase.want[i] {
					t.Errorf("invitation %d: expected %v, got %v", i, tcase.want[i], got)
				}
			}
		})
	}
}

func TestInventorySeatingUsesNaturalOrder(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	ev := seedEvent(t, r, true)
	arr := models.SeatingArrangement{Tables: []models.ArrangementTable{
		{Number: "10", Capacity: 1},
		{Number: "2", Capacity: 2},
	}}
	res, err := r.ApplySeatingArrangement(ctx, ev.ID, arr, nil, ArrangementOptions{})
	if err != nil {
		t.Fatalf("apply arrangement: %v", err)
	}
	if res.SeatingMode != models.SeatingModeInventory || res.SeatsCreated != 3 {
		t.Fatalf("unexpected arrangement result: %+v", res)
	}

	invs := seedInvitations(t, r, ev.ID, 4)
	want := [][2]string{{"2", "1"}, {"2", "2"}, {"10", "1"}, {"", ""}}
	for i, inv := range invs {
		res, err := r.CheckIn(ctx, CheckInInput{InvitationID: inv.ID})
		if err != nil {
			t.Fatalf("check-in %d: %v", i, err)
		}
		got := [2]string{res.Invitation.TableNumber, res.Invitation.SeatNumber}
		if got != want[i] {
			t.Errorf("invitation %d: expected %v, got %v", i, want[i], got)
		}
	}
}

func TestConcurrentCheckInsNeverShareSeat(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	ev := seedEvent(t, r, true)
	arr := models.SeatingArrangement{Tables: []models.ArrangementTable{{Number: "1", Capacity: 3}, {Number: "2", Capacity: 3}}}
	if _, err := r.ApplySeatingArrangement(ctx, ev.ID, arr, nil, ArrangementOptions{}); err != nil {
		t.Fatalf("apply arrangement: %v", err)
	}
	invs := seedInvitations(t, r, ev.ID, 8)

	var wg sync.WaitGroup
	errs := make(chan error, len(invs))
	for _, inv := range invs {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			if _, err := r.CheckIn(ctx, CheckInInput{InvitationID: id}); err != nil {
				errs <- err
			}
		}(inv.ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent check-in failed: %v", err)
	}

	var checked []models.Invitation
	if err := r.DB.Where("event_id = ? AND checked_in = ?", ev.ID, true).Find(&checked).Error; err != nil {
		t.Fatalf("load invitations: %v", err)
	}
	seen := map[[2]string]bool{}
	seated := 0
	for _, inv := range checked {
		if inv.TableNumber == "" {
			continue
		}
		key := [2]string{inv.TableNumber, inv.SeatNumber}
		if seen[key] {
			t.Errorf("seat %v assigned twice", key)
		}
		seen[key] = true
		seated++
	}
	if seated != 6 {
		t.Errorf("expected 6 seated guests, got %d", seated)
	}
	if got := checkedInCount(t, r, ev.ID); got != 8 {
		t.Errorf("expected counter 8, got %d", got)
	}
}

func TestExplicitSeatTaken(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	ev := seedEvent(t, r, true)
	arr := models.SeatingArrangement{Tables: []models.ArrangementTable{{Number: "1", Capacity: 2}}}
	if _, err := r.ApplySeatingArrangement(ctx, ev.ID, arr, nil, ArrangementOptions{}); err != nil {
		t.Fatalf("apply arrangement: %v", err)
	}
	invs := seedInvitations(t, r, ev.ID, 2)

	if _, err := r.CheckIn(ctx, CheckInInput{InvitationID: invs[0].ID, Table: "1", Seat: "2"}); err != nil {
		t.Fatalf("first explicit check-in: %v", err)
	}
	_, err := r.CheckIn(ctx, CheckInInput{InvitationID: invs[1].ID, Table: "1", Seat: "2"})
	if !errors.Is(err, ErrSeatTaken) {
		t.Fatalf("expected ErrSeatTaken, got %v", err)
	}
	other, err := r.FindInvitationByID(ctx, invs[1].ID)
	if err != nil {
		t.Fatal(err)
	}
	if other.CheckedIn {
		t.Error("failed check-in must roll back")
	}
	if got := checkedInCount(t, r, ev.ID); got != 1 {
		t.Errorf("expected counter 1, got %d", got)
	}
	if got := countLogs(t, r, invs[1].ID); got != 0 {
		t.Errorf("expected no log rows for rolled back check-in, got %d", got)
	}

	// 只给桌号时取该桌第一个空位
	res, err := r.CheckIn(ctx, CheckInInput{InvitationID: invs[1].ID, Table: "1"})
	if err != nil {
		t.Fatalf("table-only check-in: %v", err)
	}
	if res.Invitation.TableNumber != "1" || res.Invitation.SeatNumber != "1" {
		t.Errorf("expected seat 1/1, got %s/%s", res.Invitation.TableNumber, res.Invitation.SeatNumber)
	}
}

func TestExplicitSeatWithoutInventoryStoredAsIs(t *testing.T) {
	r := newTestRepo(t)
	ev := seedEvent(t, r, false)
	inv := seedInvitations(t, r, ev.ID, 1)[0]

	res, err := r.CheckIn(context.Background(), CheckInInput{InvitationID: inv.ID, Table: " A1 ", Seat: "3"})
	if err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if res.Invitation.TableNumber != "A1" || res.Invitation.SeatNumber != "3" {
		t.Errorf("expected A1/3, got %s/%s", res.Invitation.TableNumber, res.Invitation.SeatNumber)
	}
}

func TestExplicitSeatWithoutInventoryIsExclusive(t *testing.T) {
	var cases = []struct {
		name  string
		seats bool // 有座位库存但座位号不在其中
		seat  string
	}{
		{"Capacity seating", false, "1"},
		{"Seat outside inventory", true, "9"},
	}
	for _, tcase := range cases {
		t.Run(tcase.name, func(t *testing.T) {
			r := newTestRepo(t)
			ctx := context.Background()
			table := models.ArrangementTable{Number: "1", Capacity: 2}
			ev := seedEvent(t, r, true, table)
			if tcase.seats {
				arr := models.SeatingArrangement{Tables: []models.ArrangementTable{table}}
				if _, err := r.ApplySeatingArrangement(ctx, ev.ID, arr, nil, ArrangementOptions{}); err != nil {
					t.Fatalf("apply arrangement: %v", err)
				}
			}
			invs := seedInvitations(t, r, ev.ID, 2)

			if _, err := r.CheckIn(ctx, CheckInInput{InvitationID: invs[0].ID, Table: "1", Seat: tcase.seat}); err != nil {
				t.Fatalf("first check-in: %v", err)
			}
			_, err := r.CheckIn(ctx, CheckInInput{InvitationID: invs[1].ID, Table: "1", Seat: tcase.seat})
			if !errors.Is(err, ErrSeatTaken) {
				t.Fatalf("expected ErrSeatTaken, got %v", err)
			}
			second, err := r.FindInvitationByID(ctx, invs[1].ID)
			if err != nil {
				t.Fatalf("find invitation: %v", err)
			}
			if second.CheckedIn || second.TableNumber != "" {
				t.Errorf("rejected check-in left state behind: %+v", second)
			}
			if got := checkedInCount(t, r, ev.ID); got != 1 {
				t.Errorf("expected counter 1, got %d", got)
			}
			if got := countLogs(t, r, invs[1].ID); got != 0 {
				t.Errorf("expected no log rows for the rejected check-in, got %d", got)
			}
		})
	}
}

func TestPreassignedSeatIsKept(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	ev := seedEvent(t, r, true)
	arr := models.SeatingArrangement{Tables: []models.ArrangementTable{{Number: "1", Capacity: 4}}}
	if _, err := r.ApplySeatingArrangement(ctx, ev.ID, arr, nil, ArrangementOptions{}); err != nil {
		t.Fatalf("apply arrangement: %v", err)
	}
	inv := seedInvitations(t, r, ev.ID, 1)[0]

	res, err := r.AssignSeats(ctx, ev.ID, []SeatAssignment{{Table: "1", Seat: "4", Guest: "GUEST0@example.com"}})
	if err != nil {
		t.Fatalf("assign seats: %v", err)
	}
	if res.Assigned != 1 {
		t.Fatalf("expected 1 assignment, got %+v", res)
	}

	out, err := r.CheckIn(ctx, CheckInInput{InvitationID: inv.ID})
	if err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if out.Invitation.TableNumber != "1" || out.Invitation.SeatNumber != "4" {
		t.Errorf("expected pre-assigned 1/4, got %s/%s", out.Invitation.TableNumber, out.Invitation.SeatNumber)
	}

	if _, err := r.UndoCheckIn(ctx, inv.ID, ""); err != nil {
		t.Fatalf("undo: %v", err)
	}
	var held int64
	r.DB.Model(&models.Seat{}).Where("assigned_invitation_id = ?", inv.ID).Count(&held)
	if held != 0 {
		t.Error("undo should release the claimed seat")
	}
}

func TestRecountCheckedIn(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	ev := seedEvent(t, r, false)
	invs := seedInvitations(t, r, ev.ID, 3)
	for _, inv := range invs[:2] {
		if _, err := r.CheckIn(ctx, CheckInInput{InvitationID: inv.ID}); err != nil {
			t.Fatal(err)
		}
	}
	// 模拟历史漂移
	if err := r.DB.Model(&models.Event{}).Where("id = ?", ev.ID).Update("checked_in_count", 7).Error; err != nil {
		t.Fatal(err)
	}
	n, err := r.RecountCheckedIn(ctx, ev.ID)
	if err != nil {
		t.Fatalf("recount: %v", err)
	}
	if n != 2 || checkedInCount(t, r, ev.ID) != 2 {
		t.Errorf("expected recount to 2, got %d / %d", n, checkedInCount(t, r, ev.ID))
	}
}

func TestLookupByBarcodeAndCode(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	ev := seedEvent(t, r, false)
	other := seedEvent(t, r, false)
	inv := seedInvitations(t, r, ev.ID, 1)[0]

	if got, err := r.FindInvitationByBarcode(ctx, inv.BarcodeNumber, 0); err != nil || got.ID != inv.ID {
		t.Errorf("barcode lookup: %v %v", got, err)
	}
	if _, err := r.FindInvitationByBarcode(ctx, inv.BarcodeNumber, other.ID); !errors.Is(err, ErrInvitationNotFound) {
		t.Errorf("expected not found for other event, got %v", err)
	}
	if got, err := r.FindInvitationByCode(ctx, inv.UniqueCode, ev.ID); err != nil || got.ID != inv.ID {
		t.Errorf("code lookup: %v %v", got, err)
	}
	if _, err := r.FindInvitationByCode(ctx, "not-a-uuid", 0); !errors.Is(err, ErrInvitationNotFound) {
		t.Errorf("expected not found for malformed code, got %v", err)
	}
	if len(inv.BarcodeNumber) != 12 {
		t.Errorf("expected 12 digit barcode, got %q", inv.BarcodeNumber)
	}
}

func TestDeletingCheckedInInvitationAdjustsCounter(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	ev := seedEvent(t, r, false)
	invs := seedInvitations(t, r, ev.ID, 3)
	for _, inv := range invs[:2] {
		if _, err := r.CheckIn(ctx, CheckInInput{InvitationID: inv.ID}); err != nil {
			t.Fatalf("check-in: %v", err)
		}
	}

	if err := r.DeleteInvitation(ctx, invs[0].ID); err != nil {
		t.Fatalf("delete invitation: %v", err)
	}
	if got := checkedInCount(t, r, ev.ID); got != 1 {
		t.Errorf("expected counter 1 after deleting an invitation, got %d", got)
	}
	if err := r.DeleteGuest(ctx, invs[1].GuestID); err != nil {
		t.Fatalf("delete guest: %v", err)
	}
	if got := checkedInCount(t, r, ev.ID); got != 0 {
		t.Errorf("expected counter 0 after deleting a guest, got %d", got)
	}
	// 未签到的删除不影响计数
	if err := r.DeleteInvitation(ctx, invs[2].ID); err != nil {
		t.Fatalf("delete unchecked invitation: %v", err)
	}
	if got := checkedInCount(t, r, ev.ID); got != 0 {
		t.Errorf("expected counter to stay 0, got %d", got)
	}
	if err := r.DeleteInvitation(ctx, invs[2].ID); !errors.Is(err, ErrInvitationNotFound) {
		t.Errorf("expected ErrInvitationNotFound, got %v", err)
	}
}
