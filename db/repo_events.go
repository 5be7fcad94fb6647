package db

import (
	"context"
	"errors"
	"time"

	"guest_tracker/models"

	"gorm.io/gorm"
)

func (r *Repo) CreateEvent(ctx context.Context, ev *models.Event) error {
	if ev.SeatingMode == "" {
		ev.SeatingMode = seatingModeFromArrangement(ev.SeatingArrangement, 0)
	}
	return r.DB.WithContext(ctx).Create(ev).Error
}

func (r *Repo) FindEventByID(ctx context.Context, id uint) (*models.Event, error) {
	var ev models.Event
	if err := r.DB.WithContext(ctx).First(&ev, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &ev, nil
}

type EventsQuery struct {
	CreatedBy string // 为空时不过滤
	Upcoming  bool
	Past      bool
	Page      int
	Size      int
}

type PagedEvents struct {
	Total  int64          `json:"total"`
	Events []models.Event `json:"events"`
}

func (r *Repo) ListEvents(ctx context.Context, q EventsQuery) (*PagedEvents, error) {
	q.Page, q.Size = normalizePage(q.Page, q.Size, 200)
	now := time.Now().UTC()

	tx := r.DB.WithContext(ctx).Model(&models.Event{})
	if q.CreatedBy != "" {
		tx = tx.Where("created_by = ?", q.CreatedBy)
	}
	switch {
	case q.Upcoming:
		tx = tx.Where("date >= ?", now)
	case q.Past:
		tx = tx.Where("date < ?", now)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, err
	}
	order := "date DESC"
	if q.Upcoming {
		order = "date ASC"
	}
	var events []models.Event
	if err := tx.Order(order).Offset((q.Page - 1) * q.Size).Limit(q.Size).Find(&events).Error; err != nil {
		return nil, err
	}
	return &PagedEvents{Total: total, Events: events}, nil
}

type EventInput struct {
	Name               string     `json:"name" binding:"required,max=200"`
	Description        string     `json:"description"`
	Date               time.Time  `json:"date" binding:"required"`
	Location           string     `json:"location" binding:"max=300"`
	RSVPDeadline       *time.Time `json:"rsvpDeadline"`
	MaxGuests          *int       `json:"maxGuests" binding:"omitempty,min=0"`
	HasAssignedSeating bool       `json:"hasAssignedSeating"`
}

func (r *Repo) UpdateEvent(ctx context.Context, id uint, in EventInput) (*models.Event, error) {
	res := r.DB.WithContext(ctx).Model(&models.Event{}).Where("id = ?", id).
		Updates(map[string]any{
			"name":                 in.Name,
			"description":          in.Description,
			"date":                 in.Date,
			"location":             in.Location,
			"rsvp_deadline":        in.RSVPDeadline,
			"max_guests":           in.MaxGuests,
			"has_assigned_seating": in.HasAssignedSeating,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrEventNotFound
	}
	return r.FindEventByID(ctx, id)
}

// DeleteEvent 删除活动及其下属数据
func (r *Repo) DeleteEvent(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invIDs := tx.Model(&models.Invitation{}).Select("id").Where("event_id = ?", id)
		tableIDs := tx.Model(&models.Table{}).Select("id").Where("event_id = ?", id)
		steps := []func() error{
			func() error { return tx.Where("invitation_id IN (?)", invIDs).Delete(&models.RSVP{}).Error },
			func() error { return tx.Where("event_id = ?", id).Delete(&models.CheckInLog{}).Error },
			func() error { return tx.Where("event_id = ?", id).Delete(&models.CheckInSession{}).Error },
			func() error { return tx.Where("table_id IN (?)", tableIDs).Delete(&models.Seat{}).Error },
			func() error { return tx.Where("event_id = ?", id).Delete(&models.Table{}).Error },
			func() error { return tx.Where("event_id = ?", id).Delete(&models.Invitation{}).Error },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}
		res := tx.Delete(&models.Event{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrEventNotFound
		}
		return nil
	})
}

type EventStats struct {
	TotalInvitations    int64 `json:"totalInvitations"`
	RSVPYes             int64 `json:"rsvpYes"`
	RSVPNo              int64 `json:"rsvpNo"`
	RSVPMaybe           int64 `json:"rsvpMaybe"`
	NoResponse          int64 `json:"noResponse"`
	TotalExpectedGuests int64 `json:"totalExpectedGuests"`
	CheckedIn           int64 `json:"checkedIn"`
	EmailsSent          int64 `json:"emailsSent"`
}

// EventDashboard 活动统计（邀请/回复/预计到场）
func (r *Repo) EventDashboard(ctx context.Context, eventID uint) (*EventStats, error) {
	db := r.DB.WithContext(ctx)
	var st EventStats
	if err := db.Model(&models.Invitation{}).Where("event_id = ?", eventID).Count(&st.TotalInvitations).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Invitation{}).Where("event_id = ? AND checked_in = ?", eventID, true).Count(&st.CheckedIn).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Invitation{}).Where("event_id = ? AND email_sent = ?", eventID, true).Count(&st.EmailsSent).Error; err != nil {
		return nil, err
	}

	var rows []struct {
		Response string
		N        int64
		Extra    int64
	}
	if err := db.Table(models.InvitationTable+" i").
		Select("r.response AS response, COUNT(*) AS n, COALESCE(SUM(r.plus_ones), 0) AS extra").
		Joins("JOIN gt_rsvps r ON r.invitation_id = i.id").
		Where("i.event_id = ?", eventID).
		Group("r.response").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		switch row.Response {
		case models.RSVPYes:
			st.RSVPYes = row.N
			st.TotalExpectedGuests = row.N + row.Extra
		case models.RSVPNo:
			st.RSVPNo = row.N
		case models.RSVPMaybe:
			st.RSVPMaybe = row.N
		}
	}
	st.NoResponse = st.TotalInvitations - (st.RSVPYes + st.RSVPNo + st.RSVPMaybe)
	return &st, nil
}

// RecountCheckedIn 用实际签到数修正计数器
func (r *Repo) RecountCheckedIn(ctx context.Context, eventID uint) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockEvent(tx, eventID); err != nil {
			return err
		}
		if err := tx.Model(&models.Invitation{}).
			Where("event_id = ? AND checked_in = ?", eventID, true).
			Count(&n).Error; err != nil {
			return err
		}
		return tx.Model(&models.Event{}).Where("id = ?", eventID).
			Update("checked_in_count", n).Error
	})
	return n, err
}

func (r *Repo) EventIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	return ids, r.DB.WithContext(ctx).Model(&models.Event{}).Order("id").Pluck("id", &ids).Error
}
