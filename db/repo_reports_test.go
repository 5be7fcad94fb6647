package db

import (
	"context"
	"testing"
	"time"

	"guest_tracker/models"
)

func TestCheckInSummaryAggregates(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	ev := seedEvent(t, r, false)
	invs := seedInvitations(t, r, ev.ID, 3)

	base := time.Date(2026, 5, 1, 18, 10, 0, 0, time.UTC)
	logs := []models.CheckInLog{
		{EventID: ev.ID, InvitationID: invs[0].ID, GuestID: invs[0].GuestID, CheckedInAt: base, TableNumber: "1"},
		{EventID: ev.ID, InvitationID: invs[1].ID, GuestID: invs[1].GuestID, CheckedInAt: base.Add(20 * time.Minute), TableNumber: "1"},
		{EventID: ev.ID, InvitationID: invs[2].ID, GuestID: invs[2].GuestID, CheckedInAt: base.Add(time.Hour), TableNumber: "2"},
	}
	if err := r.DB.Create(&logs).Error; err != nil {
		t.Fatal(err)
	}

	sum, err := r.CheckInSummary(ctx, ev.ID, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Total != 3 {
		t.Errorf("expected total 3, got %d", sum.Total)
	}
	if len(sum.TableAgg) != 2 || sum.TableAgg[0].TableNumber != "1" || sum.TableAgg[0].Count != 2 {
		t.Errorf("unexpected table agg: %+v", sum.TableAgg)
	}
	if len(sum.HourAgg) != 2 || !sum.HourAgg[0].Hour.Equal(base.Truncate(time.Hour)) || sum.HourAgg[0].Count != 2 {
		t.Errorf("unexpected hour agg: %+v", sum.HourAgg)
	}

	start := base.Add(30 * time.Minute)
	filtered, err := r.CheckInSummary(ctx, ev.ID, &start, nil)
	if err != nil {
		t.Fatal(err)
	}
	if filtered.Total != 1 {
		t.Errorf("expected 1 log after start filter, got %d", filtered.Total)
	}
}

func TestEventDashboardCountsRSVPs(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	ev := seedEvent(t, r, false)
	invs := seedInvitations(t, r, ev.ID, 3)

	if _, err := r.SubmitRSVP(ctx, invs[0].ID, RSVPInput{Response: models.RSVPYes, PlusOnes: 2}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.SubmitRSVP(ctx, invs[1].ID, RSVPInput{Response: models.RSVPNo, PlusOnes: 3}); err != nil {
		t.Fatal(err)
	}

	st, err := r.EventDashboard(ctx, ev.ID)
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalInvitations != 3 || st.RSVPYes != 1 || st.RSVPNo != 1 || st.NoResponse != 1 {
		t.Errorf("unexpected stats: %+v", st)
	}
	if st.TotalExpectedGuests != 3 {
		t.Errorf("expected 3 expected guests, got %d", st.TotalExpectedGuests)
	}

	inv, _ := r.FindInvitationByID(ctx, invs[0].ID)
	if inv.Status != models.InvitationResponded || !inv.IsResponded() {
		t.Errorf("invitation not marked responded: %+v", inv)
	}
}

func TestLiveDashboardTimeline(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	ev := seedEvent(t, r, false)
	invs := seedInvitations(t, r, ev.ID, 2)
	for _, inv := range invs {
		if _, err := r.CheckIn(ctx, CheckInInput{InvitationID: inv.ID}); err != nil {
			t.Fatal(err)
		}
	}

	live, err := r.LiveDashboard(ctx, time.Now().Add(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if live.TotalCheckedIn != 2 || live.ArrivalRate != 2 {
		t.Errorf("unexpected totals: %+v", live)
	}
	if len(live.TimelineData) != 12 || live.TimelineData[11] != 2 {
		t.Errorf("expected both arrivals in the last bucket, got %v", live.TimelineData)
	}
	if len(live.RecentCheckIns) != 2 {
		t.Errorf("expected 2 recent check-ins, got %d", len(live.RecentCheckIns))
	}
}
