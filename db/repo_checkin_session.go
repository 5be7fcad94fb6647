package db

import (
	"context"
	"errors"
	"time"

	"guest_tracker/models"

	"gorm.io/gorm"
)

var (
	ErrSessionOpen   = errors.New("check-in session already open")
	ErrNoOpenSession = errors.New("no open check-in session")
)

func (r *Repo) OpenCheckInSession(ctx context.Context, eventID uint) (*models.CheckInSession, error) {
	var s models.CheckInSession
	err := r.DB.WithContext(ctx).
		Where("event_id = ? AND ended_at IS NULL", eventID).
		Order("started_at DESC").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoOpenSession
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateCheckInSession 部分唯一索引保证每个活动最多一个未结束的会话
func (r *Repo) CreateCheckInSession(ctx context.Context, eventID uint, startedBy string, at time.Time) (*models.CheckInSession, error) {
	s := &models.CheckInSession{EventID: eventID, StartedBy: operatorRef(startedBy), StartedAt: at.UTC()}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findEvent(tx, eventID); err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&models.CheckInSession{}).
			Where("event_id = ? AND ended_at IS NULL", eventID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrSessionOpen
		}
		return tx.Omit("Starter").Create(s).Error
	})
	if err == nil {
		return s, nil
	}
	if errors.Is(err, ErrSessionOpen) || errors.Is(err, ErrEventNotFound) {
		return nil, err
	}
	// 并发插入撞上唯一索引
	if _, openErr := r.OpenCheckInSession(ctx, eventID); openErr == nil {
		return nil, ErrSessionOpen
	}
	return nil, err
}

// EndCheckInSession 给所有未结束的记录盖上结束时间和操作员
func (r *Repo) EndCheckInSession(ctx context.Context, eventID uint, endedBy string, at time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.CheckInSession{}).
		Where("event_id = ? AND ended_at IS NULL", eventID).
		Updates(map[string]any{"ended_at": at.UTC(), "ended_by": operatorRef(endedBy)})
	return res.RowsAffected, res.Error
}

type OpenSessionRow struct {
	models.CheckInSession
	EventName string
}

func (r *Repo) ListOpenCheckInSessions(ctx context.Context) ([]OpenSessionRow, error) {
	var sessions []models.CheckInSession
	if err := r.DB.WithContext(ctx).
		Where("ended_at IS NULL").
		Order("started_at DESC").
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	ids := make([]uint, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.EventID)
	}
	var events []models.Event
	if err := r.DB.WithContext(ctx).Select("id", "name").Where("id IN ?", ids).Find(&events).Error; err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(events))
	for _, e := range events {
		names[e.ID] = e.Name
	}
	out := make([]OpenSessionRow, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, OpenSessionRow{CheckInSession: s, EventName: names[s.EventID]})
	}
	return out, nil
}

func (r *Repo) CheckInSessionHistory(ctx context.Context, eventID uint, limit int) ([]models.CheckInSession, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var out []models.CheckInSession
	return out, r.DB.WithContext(ctx).Where("event_id = ?", eventID).
		Order("started_at DESC").Limit(limit).Find(&out).Error
}
