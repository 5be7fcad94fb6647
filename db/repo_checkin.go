package db

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"guest_tracker/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CheckInInput struct {
	InvitationID uint
	// 可选：门口手动指定的桌号/座号
	Table string
	Seat  string
	// 为空表示系统操作（CLI 等）
	OperatorID string
}

type CheckInResult struct {
	Invitation     *models.Invitation
	NewlyCheckedIn bool
}

func lockEvent(tx *gorm.DB, eventID uint) (*models.Event, error) {
	var ev models.Event
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&ev, "id = ?", eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &ev, nil
}

func lockInvitation(tx *gorm.DB, id uint) (*models.Invitation, error) {
	var inv models.Invitation
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&inv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// lockForCheckIn 固定加锁顺序：先活动，再邀请
func lockForCheckIn(tx *gorm.DB, invitationID uint) (*models.Event, *models.Invitation, error) {
	var eventIDs []uint
	if err := tx.Model(&models.Invitation{}).Where("id = ?", invitationID).Pluck("event_id", &eventIDs).Error; err != nil {
		return nil, nil, err
	}
	if len(eventIDs) == 0 {
		return nil, nil, ErrInvitationNotFound
	}
	ev, err := lockEvent(tx, eventIDs[0])
	if err != nil {
		return nil, nil, err
	}
	inv, err := lockInvitation(tx, invitationID)
	if err != nil {
		return nil, nil, err
	}
	return ev, inv, nil
}

// decrementCheckedIn 计数器减 n（不低于 0）
func decrementCheckedIn(tx *gorm.DB, eventID uint, n int64) error {
	if n <= 0 {
		return nil
	}
	return tx.Model(&models.Event{}).Where("id = ?", eventID).
		Update("checked_in_count", gorm.Expr("CASE WHEN checked_in_count > ? THEN checked_in_count - ? ELSE 0 END", n, n)).Error
}

func operatorRef(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

// CheckIn 原子签到：座位分配、计数器加一、写审计日志在同一事务内完成。
// 已签到的邀请直接返回 NewlyCheckedIn=false，不产生任何写入。
func (r *Repo) CheckIn(ctx context.Context, in CheckInInput) (*CheckInResult, error) {
	newly := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev, inv, err := lockForCheckIn(tx, in.InvitationID)
		if err != nil {
			return err
		}
		if inv.CheckedIn {
			return nil
		}

		table, seat, err := resolveSeat(tx, ev, inv, strings.TrimSpace(in.Table), strings.TrimSpace(in.Seat))
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := tx.Model(&models.Invitation{}).Where("id = ?", inv.ID).
			Updates(map[string]any{
				"checked_in":    true,
				"check_in_time": now,
				"table_number":  table,
				"seat_number":   seat,
			}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Event{}).Where("id = ?", ev.ID).
			Update("checked_in_count", gorm.Expr("checked_in_count + 1")).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.CheckInLog{
			EventID:      ev.ID,
			InvitationID: inv.ID,
			GuestID:      inv.GuestID,
			CheckedInBy:  operatorRef(in.OperatorID),
			CheckedInAt:  now,
			TableNumber:  table,
			SeatNumber:   seat,
		}).Error; err != nil {
			return err
		}
		newly = true
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrInvitationNotFound) && !errors.Is(err, ErrSeatTaken) {
			log.Printf("[checkin] invitation=%d rolled back: %v", in.InvitationID, err)
		}
		return nil, err
	}

	inv, err := r.FindInvitationByID(ctx, in.InvitationID)
	if err != nil {
		return nil, err
	}
	return &CheckInResult{Invitation: inv, NewlyCheckedIn: newly}, nil
}

// resolveSeat 优先级：显式指定 > 预分配 > 自动分配
func resolveSeat(tx *gorm.DB, ev *models.Event, inv *models.Invitation, table, seat string) (string, string, error) {
	if table != "" {
		return claimExplicitSeat(tx, ev.ID, inv.ID, table, seat)
	}

	held, err := heldSeat(tx, inv.ID)
	if err != nil {
		return "", "", err
	}
	if held != nil {
		return held.TableNumber, held.SeatNumber, nil
	}
	if inv.TableNumber != "" {
		return inv.TableNumber, inv.SeatNumber, nil
	}
	if !ev.HasAssignedSeating {
		return "", "", nil
	}

	mode, err := resolveSeatingMode(tx, ev)
	if err != nil {
		return "", "", err
	}
	t, s, ok, err := SeatingSourceFor(mode).Allocate(tx, ev, inv.ID)
	if err != nil {
		return "", "", err
	}
	if !ok && mode != models.SeatingModeNone {
		log.Printf("[checkin] event=%d has no free seat, invitation=%d checked in unseated", ev.ID, inv.ID)
	}
	return t, s, nil
}

func heldSeat(tx *gorm.DB, invitationID uint) (*freeSeat, error) {
	var rows []freeSeat
	err := tx.Table(models.SeatTable+" s").
		Select("s.id AS id, t.number AS table_number, s.number AS seat_number").
		Joins("JOIN "+models.TableTable+" t ON t.id = s.table_id").
		Where("s.assigned_invitation_id = ?", invitationID).
		Limit(1).
		Scan(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func releaseSeats(tx *gorm.DB, invitationID uint) error {
	return tx.Model(&models.Seat{}).Where("assigned_invitation_id = ?", invitationID).
		Update("assigned_invitation_id", nil).Error
}

// seatHeldByOther 库存之外的座位：同一活动里是否已有其他邀请占用该桌号+座位号。
// 调用方已锁定活动行。
func seatHeldByOther(tx *gorm.DB, eventID, invitationID uint, table, seat string) error {
	if seat == "" {
		return nil
	}
	var n int64
	if err := tx.Model(&models.Invitation{}).
		Where("event_id = ? AND table_number = ? AND seat_number = ? AND id <> ?", eventID, table, seat, invitationID).
		Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrSeatTaken
	}
	return nil
}

// claimExplicitSeat 桌号存在于座位库存时占用对应 Seat 行，否则按桌号+座位号查重后保存
func claimExplicitSeat(tx *gorm.DB, eventID, invitationID uint, table, seat string) (string, string, error) {
	var tables []models.Table
	res := tx.Where("event_id = ? AND number = ?", eventID, table).Limit(1).Find(&tables)
	if res.Error != nil {
		return "", "", res.Error
	}
	if res.RowsAffected == 0 {
		if err := seatHeldByOther(tx, eventID, invitationID, table, seat); err != nil {
			return "", "", err
		}
		return table, seat, nil
	}
	t := tables[0]

	held, err := heldSeat(tx, invitationID)
	if err != nil {
		return "", "", err
	}

	if seat == "" {
		if held != nil && held.TableNumber == table {
			return held.TableNumber, held.SeatNumber, nil
		}
		if err := releaseSeats(tx, invitationID); err != nil {
			return "", "", err
		}
		tn, sn, ok, err := claimFirstFreeSeat(tx, eventID, table, invitationID)
		if err != nil {
			return "", "", err
		}
		if !ok {
			return table, "", nil
		}
		return tn, sn, nil
	}

	var seats []models.Seat
	res = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("table_id = ? AND number = ?", t.ID, seat).Limit(1).Find(&seats)
	if res.Error != nil {
		return "", "", res.Error
	}
	if res.RowsAffected == 0 {
		if err := seatHeldByOther(tx, eventID, invitationID, table, seat); err != nil {
			return "", "", err
		}
		return table, seat, nil
	}
	s := seats[0]
	if s.AssignedInvitationID != nil {
		if *s.AssignedInvitationID == invitationID {
			return table, seat, nil
		}
		return "", "", ErrSeatTaken
	}
	if held != nil {
		if err := releaseSeats(tx, invitationID); err != nil {
			return "", "", err
		}
	}
	res = tx.Model(&models.Seat{}).
		Where("id = ? AND assigned_invitation_id IS NULL", s.ID).
		Update("assigned_invitation_id", invitationID)
	if res.Error != nil {
		return "", "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", "", ErrSeatTaken
	}
	return table, seat, nil
}

// UndoCheckIn 撤销签到并释放座位；审计日志保留，计数器减一（不低于 0）
func (r *Repo) UndoCheckIn(ctx context.Context, invitationID uint, operatorID string) (*models.Invitation, error) {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev, inv, err := lockForCheckIn(tx, invitationID)
		if err != nil {
			return err
		}
		if !inv.CheckedIn {
			return ErrNotCheckedIn
		}
		if err := tx.Model(&models.Invitation{}).Where("id = ?", inv.ID).
			Updates(map[string]any{
				"checked_in":    false,
				"check_in_time": nil,
				"table_number":  "",
				"seat_number":   "",
			}).Error; err != nil {
			return err
		}
		if err := releaseSeats(tx, inv.ID); err != nil {
			return err
		}
		return decrementCheckedIn(tx, ev.ID, 1)
	})
	if err != nil {
		if !errors.Is(err, ErrInvitationNotFound) && !errors.Is(err, ErrNotCheckedIn) {
			log.Printf("[checkin] undo invitation=%d rolled back: %v", invitationID, err)
		}
		return nil, err
	}
	if operatorID == "" {
		operatorID = "system"
	}
	log.Printf("[checkin] undo invitation=%d by %s", invitationID, operatorID)
	return r.FindInvitationByID(ctx, invitationID)
}

type RecentCheckIn struct {
	InvitationID  uint       `json:"invitationId"`
	EventID       uint       `json:"eventId"`
	GuestName     string     `json:"guestName"`
	Rank          string     `json:"rank"`
	Institution   string     `json:"institution"`
	CheckInTime   *time.Time `json:"checkInTime"`
	TableNumber   string     `json:"tableNumber"`
	SeatNumber    string     `json:"seatNumber"`
	BarcodeNumber string     `json:"barcodeNumber"`
}

// RecentCheckIns eventID 为 0 时包含全部活动
func (r *Repo) RecentCheckIns(ctx context.Context, eventID uint, limit int) ([]RecentCheckIn, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	q := r.DB.WithContext(ctx).Preload("Guest").Where("checked_in = ?", true)
	if eventID != 0 {
		q = q.Where("event_id = ?", eventID)
	}
	var invs []models.Invitation
	if err := q.Order("check_in_time DESC").Limit(limit).Find(&invs).Error; err != nil {
		return nil, err
	}
	out := make([]RecentCheckIn, 0, len(invs))
	for _, inv := range invs {
		out = append(out, RecentCheckIn{
			InvitationID:  inv.ID,
			EventID:       inv.EventID,
			GuestName:     inv.Guest.FullName(),
			Rank:          inv.Guest.Rank,
			Institution:   inv.Guest.Institution,
			CheckInTime:   inv.CheckInTime,
			TableNumber:   inv.TableNumber,
			SeatNumber:    inv.SeatNumber,
			BarcodeNumber: inv.BarcodeNumber,
		})
	}
	return out, nil
}
