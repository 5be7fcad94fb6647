package db

import (
	"context"
	"math"
	"sort"
	"strconv"
	"time"

	"guest_tracker/models"
)

type TableCount struct {
	TableNumber string `json:"table_number"`
	Count       int64  `json:"count"`
}

type HourCount struct {
	Hour  time.Time `json:"hour"`
	Count int64     `json:"count"`
}

type CheckInSummary struct {
	Total    int64        `json:"total"`
	TableAgg []TableCount `json:"table_agg"`
	HourAgg  []HourCount  `json:"hour_agg"`
}

func (r *Repo) checkInLogQuery(ctx context.Context, eventID uint, start, end *time.Time) ([]models.CheckInLog, error) {
	q := r.DB.WithContext(ctx).Where("event_id = ?", eventID)
	if start != nil {
		q = q.Where("checked_in_at >= ?", start.UTC())
	}
	if end != nil {
		q = q.Where("checked_in_at <= ?", end.UTC())
	}
	var logs []models.CheckInLog
	return logs, q.Order("checked_in_at").Find(&logs).Error
}

// CheckInSummary 按桌号、按小时聚合审计日志；小时分桶在 Go 中完成以兼容不同数据库
func (r *Repo) CheckInSummary(ctx context.Context, eventID uint, start, end *time.Time) (*CheckInSummary, error) {
	logs, err := r.checkInLogQuery(ctx, eventID, start, end)
	if err != nil {
		return nil, err
	}
	byTable := map[string]int64{}
	byHour := map[time.Time]int64{}
	for _, l := range logs {
		byTable[l.TableNumber]++
		byHour[l.CheckedInAt.UTC().Truncate(time.Hour)]++
	}

	out := &CheckInSummary{Total: int64(len(logs))}
	for t, n := range byTable {
		out.TableAgg = append(out.TableAgg, TableCount{TableNumber: t, Count: n})
	}
	sort.Slice(out.TableAgg, func(i, j int) bool {
		if out.TableAgg[i].Count != out.TableAgg[j].Count {
			return out.TableAgg[i].Count > out.TableAgg[j].Count
		}
		return out.TableAgg[i].TableNumber < out.TableAgg[j].TableNumber
	})
	for h, n := range byHour {
		out.HourAgg = append(out.HourAgg, HourCount{Hour: h, Count: n})
	}
	sort.Slice(out.HourAgg, func(i, j int) bool { return out.HourAgg[i].Hour.Before(out.HourAgg[j].Hour) })
	return out, nil
}

type CheckInLogRow struct {
	CheckedInAt   time.Time
	GuestName     string
	Email         string
	Rank          string
	Institution   string
	TableNumber   string
	SeatNumber    string
	BarcodeNumber string
	Operator      string
}

// CheckInLogRows 导出用，操作员以用户名展示
func (r *Repo) CheckInLogRows(ctx context.Context, eventID uint, start, end *time.Time) ([]CheckInLogRow, error) {
	logs, err := r.checkInLogQuery(ctx, eventID, start, end)
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, nil
	}
	invIDs := make([]uint, 0, len(logs))
	userIDs := []string{}
	for _, l := range logs {
		invIDs = append(invIDs, l.InvitationID)
		if l.CheckedInBy != nil {
			userIDs = append(userIDs, *l.CheckedInBy)
		}
	}
	var invs []models.Invitation
	if err := r.DB.WithContext(ctx).Preload("Guest").Where("id IN ?", invIDs).Find(&invs).Error; err != nil {
		return nil, err
	}
	byInv := make(map[uint]models.Invitation, len(invs))
	for _, inv := range invs {
		byInv[inv.ID] = inv
	}
	usernames := map[string]string{}
	if len(userIDs) > 0 {
		var users []models.User
		if err := r.DB.WithContext(ctx).Select("id", "username").Where("id IN ?", userIDs).Find(&users).Error; err != nil {
			return nil, err
		}
		for _, u := range users {
			usernames[u.ID] = u.Username
		}
	}

	out := make([]CheckInLogRow, 0, len(logs))
	for _, l := range logs {
		inv := byInv[l.InvitationID]
		row := CheckInLogRow{
			CheckedInAt:   l.CheckedInAt,
			GuestName:     inv.Guest.FullName(),
			Email:         inv.Guest.Email,
			Rank:          inv.Guest.Rank,
			Institution:   inv.Guest.Institution,
			TableNumber:   l.TableNumber,
			SeatNumber:    l.SeatNumber,
			BarcodeNumber: inv.BarcodeNumber,
		}
		if l.CheckedInBy != nil {
			row.Operator = usernames[*l.CheckedInBy]
		}
		out = append(out, row)
	}
	return out, nil
}

type LiveCheckIn struct {
	Time        time.Time `json:"time"`
	GuestName   string    `json:"guest_name"`
	Rank        string    `json:"rank"`
	EventName   string    `json:"event_name"`
	TableNumber string    `json:"table_number"`
}

type LiveDashboard struct {
	TotalCheckedIn      int64         `json:"total_checked_in"`
	TotalExpected       int64         `json:"total_expected"`
	ArrivalRate         int64         `json:"arrival_rate"`
	PercentageCheckedIn float64       `json:"percentage_checked_in"`
	TimelineLabels      []string      `json:"timeline_labels"`
	TimelineData        []int64       `json:"timeline_data"`
	RecentCheckIns      []LiveCheckIn `json:"recent_checkins"`
}

const (
	liveBuckets  = 12
	liveInterval = 5 * time.Minute
)

// LiveDashboard 今日签到总览：到场率、近 5 分钟到达数、最近一小时 12 个 5 分钟区间
func (r *Repo) LiveDashboard(ctx context.Context, now time.Time) (*LiveDashboard, error) {
	now = now.UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var invs []models.Invitation
	if err := r.DB.WithContext(ctx).Preload("Guest").Preload("Event").
		Where("checked_in = ? AND check_in_time >= ?", true, dayStart).
		Order("check_in_time DESC").
		Find(&invs).Error; err != nil {
		return nil, err
	}

	var expected int64
	if err := r.DB.WithContext(ctx).Model(&models.Invitation{}).
		Joins("JOIN "+models.EventTable+" e ON e.id = "+models.InvitationTable+".event_id").
		Where("e.date >= ? AND e.date <= ?", dayStart, now.Add(24*time.Hour)).
		Count(&expected).Error; err != nil {
		return nil, err
	}

	out := &LiveDashboard{
		TotalCheckedIn: int64(len(invs)),
		TotalExpected:  expected,
		TimelineLabels: make([]string, liveBuckets),
		TimelineData:   make([]int64, liveBuckets),
	}
	if expected > 0 {
		out.PercentageCheckedIn = math.Round(float64(out.TotalCheckedIn)/float64(expected)*1000) / 10
	}

	windowStart := now.Add(-liveBuckets * liveInterval)
	for i := range out.TimelineLabels {
		out.TimelineLabels[i] = windowStart.Add(time.Duration(i) * liveInterval).Format("15:04")
	}
	for _, inv := range invs {
		at := *inv.CheckInTime
		if !at.Before(now.Add(-liveInterval)) {
			out.ArrivalRate++
		}
		if !at.Before(windowStart) && at.Before(now) {
			out.TimelineData[int(at.Sub(windowStart)/liveInterval)]++
		}
	}
	for i, inv := range invs {
		if i == 10 {
			break
		}
		out.RecentCheckIns = append(out.RecentCheckIns, LiveCheckIn{
			Time:        *inv.CheckInTime,
			GuestName:   inv.Guest.FullName(),
			Rank:        inv.Guest.Rank,
			EventName:   inv.Event.Name,
			TableNumber: inv.TableNumber,
		})
	}
	return out, nil
}

type CountByLabel struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

type EventPerformance struct {
	EventID     uint   `json:"eventId"`
	Name        string `json:"name"`
	Invitations int64  `json:"invitations"`
	Responses   int64  `json:"responses"`
	CheckedIn   int64  `json:"checkedIn"`
}

type Analytics struct {
	TotalEvents      int64              `json:"totalEvents"`
	UpcomingEvents   int64              `json:"upcomingEvents"`
	TotalGuests      int64              `json:"totalGuests"`
	TotalInvitations int64              `json:"totalInvitations"`
	TotalRSVPs       int64              `json:"totalRsvps"`
	ResponseRate     float64            `json:"responseRate"`
	RSVPDistribution []CountByLabel     `json:"rsvpDistribution"`
	EventsByMonth    []CountByLabel     `json:"eventsByMonth"`
	ResponseDays     []CountByLabel     `json:"responseDays"`
	Performance      []EventPerformance `json:"performance"`
}

// Analytics 图表数据；createdBy 为空时统计全部活动
func (r *Repo) Analytics(ctx context.Context, createdBy string, now time.Time) (*Analytics, error) {
	db := r.DB.WithContext(ctx)
	evq := db.Model(&models.Event{})
	if createdBy != "" {
		evq = evq.Where("created_by = ?", createdBy)
	}
	var events []models.Event
	if err := evq.Order("date DESC").Find(&events).Error; err != nil {
		return nil, err
	}
	out := &Analytics{TotalEvents: int64(len(events))}
	if err := db.Model(&models.Guest{}).Count(&out.TotalGuests).Error; err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(events))
	months := map[string]int64{}
	for _, e := range events {
		ids = append(ids, e.ID)
		if !e.Date.Before(now) {
			out.UpcomingEvents++
		}
		months[e.Date.UTC().Format("2006-01")]++
	}
	for m, n := range months {
		out.EventsByMonth = append(out.EventsByMonth, CountByLabel{Label: m, Count: n})
	}
	sort.Slice(out.EventsByMonth, func(i, j int) bool { return out.EventsByMonth[i].Label < out.EventsByMonth[j].Label })
	if len(ids) == 0 {
		return out, nil
	}

	var invs []models.Invitation
	if err := db.Preload("RSVP").Where("event_id IN ?", ids).Find(&invs).Error; err != nil {
		return nil, err
	}
	perf := make(map[uint]*EventPerformance, len(events))
	for _, e := range events {
		perf[e.ID] = &EventPerformance{EventID: e.ID, Name: e.Name}
	}
	dist := map[string]int64{}
	days := map[int]int64{}
	for _, inv := range invs {
		p := perf[inv.EventID]
		p.Invitations++
		if inv.CheckedIn {
			p.CheckedIn++
		}
		if inv.RSVP == nil {
			continue
		}
		p.Responses++
		dist[inv.RSVP.Response]++
		if inv.EmailSentAt != nil {
			d := int(inv.RSVP.RespondedAt.Sub(*inv.EmailSentAt).Hours() / 24)
			if d < 0 {
				d = 0
			}
			days[d]++
		}
	}
	out.TotalInvitations = int64(len(invs))
	for _, resp := range []string{models.RSVPYes, models.RSVPNo, models.RSVPMaybe} {
		if n := dist[resp]; n > 0 {
			out.RSVPDistribution = append(out.RSVPDistribution, CountByLabel{Label: resp, Count: n})
		}
		out.TotalRSVPs += dist[resp]
	}
	if out.TotalInvitations > 0 {
		out.ResponseRate = math.Round(float64(out.TotalRSVPs)/float64(out.TotalInvitations)*1000) / 10
	}
	dayKeys := make([]int, 0, len(days))
	for d := range days {
		dayKeys = append(dayKeys, d)
	}
	sort.Ints(dayKeys)
	for _, d := range dayKeys {
		out.ResponseDays = append(out.ResponseDays, CountByLabel{Label: strconv.Itoa(d), Count: days[d]})
	}
	for i, e := range events {
		if i == 10 {
			break
		}
		out.Performance = append(out.Performance, *perf[e.ID])
	}
	return out, nil
}

type EventAnalytics struct {
	EventStats
	DailyResponses []CountByLabel `json:"dailyResponses"`
	OpenRate       float64        `json:"openRate"`
	ResponseRate   float64        `json:"responseRate"`
}

func (r *Repo) EventAnalytics(ctx context.Context, eventID uint) (*EventAnalytics, error) {
	st, err := r.EventDashboard(ctx, eventID)
	if err != nil {
		return nil, err
	}
	out := &EventAnalytics{EventStats: *st}

	var rsvps []models.RSVP
	if err := r.DB.WithContext(ctx).
		Joins("JOIN "+models.InvitationTable+" i ON i.id = gt_rsvps.invitation_id").
		Where("i.event_id = ?", eventID).
		Find(&rsvps).Error; err != nil {
		return nil, err
	}
	daily := map[string]int64{}
	for _, rs := range rsvps {
		daily[rs.RespondedAt.UTC().Format("2006-01-02")]++
	}
	for d, n := range daily {
		out.DailyResponses = append(out.DailyResponses, CountByLabel{Label: d, Count: n})
	}
	sort.Slice(out.DailyResponses, func(i, j int) bool { return out.DailyResponses[i].Label < out.DailyResponses[j].Label })

	var opened int64
	if err := r.DB.WithContext(ctx).Model(&models.Invitation{}).
		Where("event_id = ? AND opened_at IS NOT NULL", eventID).
		Count(&opened).Error; err != nil {
		return nil, err
	}
	if st.EmailsSent > 0 {
		out.OpenRate = math.Round(float64(opened)/float64(st.EmailsSent)*1000) / 10
	}
	if st.TotalInvitations > 0 {
		responded := st.RSVPYes + st.RSVPNo + st.RSVPMaybe
		out.ResponseRate = math.Round(float64(responded)/float64(st.TotalInvitations)*1000) / 10
	}
	return out, nil
}
