package db

import (
	"strconv"

	"guest_tracker/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeatingSource 自动分配座位的策略，每个活动解析一次（见 events.seating_mode）
type SeatingSource interface {
	Mode() string
	// Allocate 在签到事务内为邀请挑选座位；ok=false 表示已满，嘉宾无座签到
	Allocate(tx *gorm.DB, ev *models.Event, invitationID uint) (table, seat string, ok bool, err error)
}

func SeatingSourceFor(mode string) SeatingSource {
	switch mode {
	case models.SeatingModeInventory:
		return inventorySeating{}
	case models.SeatingModeCapacity:
		return capacitySeating{}
	default:
		return noSeating{}
	}
}

func seatingModeFromArrangement(arr models.SeatingArrangement, seatCount int64) string {
	switch {
	case seatCount > 0:
		return models.SeatingModeInventory
	case len(arr.Tables) > 0:
		return models.SeatingModeCapacity
	default:
		return models.SeatingModeNone
	}
}

// naturalSeatOrder "2" 排在 "10" 前面
const naturalSeatOrder = "LENGTH(t.number), t.number, LENGTH(s.number), s.number"

func countEventSeats(tx *gorm.DB, eventID uint) (int64, error) {
	var n int64
	err := tx.Table(models.SeatTable+" s").
		Joins("JOIN "+models.TableTable+" t ON t.id = s.table_id").
		Where("t.event_id = ?", eventID).
		Count(&n).Error
	return n, err
}

// resolveSeatingMode 旧数据没有 seating_mode 时现算并写回
func resolveSeatingMode(tx *gorm.DB, ev *models.Event) (string, error) {
	if ev.SeatingMode != "" {
		return ev.SeatingMode, nil
	}
	n, err := countEventSeats(tx, ev.ID)
	if err != nil {
		return "", err
	}
	mode := seatingModeFromArrangement(ev.SeatingArrangement, n)
	if err := tx.Model(&models.Event{}).Where("id = ?", ev.ID).Update("seating_mode", mode).Error; err != nil {
		return "", err
	}
	ev.SeatingMode = mode
	return mode, nil
}

type noSeating struct{}

func (noSeating) Mode() string { return models.SeatingModeNone }

func (noSeating) Allocate(*gorm.DB, *models.Event, uint) (string, string, bool, error) {
	return "", "", false, nil
}

type inventorySeating struct{}

func (inventorySeating) Mode() string { return models.SeatingModeInventory }

type freeSeat struct {
	ID          uint
	TableNumber string
	SeatNumber  string
}

func (inventorySeating) Allocate(tx *gorm.DB, ev *models.Event, invitationID uint) (string, string, bool, error) {
	return claimFirstFreeSeat(tx, ev.ID, "", invitationID)
}

// claimFirstFreeSeat tableNumber 为空时在整个活动范围内挑选
func claimFirstFreeSeat(tx *gorm.DB, eventID uint, tableNumber string, invitationID uint) (string, string, bool, error) {
	for attempt := 0; attempt < 3; attempt++ {
		q := tx.Table(models.SeatTable+" s").
			Select("s.id AS id, t.number AS table_number, s.number AS seat_number").
			Joins("JOIN "+models.TableTable+" t ON t.id = s.table_id").
			Where("t.event_id = ? AND s.assigned_invitation_id IS NULL", eventID)
		if tableNumber != "" {
			q = q.Where("t.number = ?", tableNumber)
		}
		var rows []freeSeat
		if err := q.Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "s"}}).
			Order(naturalSeatOrder).Limit(1).
			Scan(&rows).Error; err != nil {
			return "", "", false, err
		}
		if len(rows) == 0 {
			return "", "", false, nil
		}
		got := rows[0]
		res := tx.Model(&models.Seat{}).
			Where("id = ? AND assigned_invitation_id IS NULL", got.ID).
			Update("assigned_invitation_id", invitationID)
		if res.Error != nil {
			return "", "", false, res.Error
		}
		if res.RowsAffected == 1 {
			return got.TableNumber, got.SeatNumber, true, nil
		}
	}
	return "", "", false, nil
}

type capacitySeating struct{}

func (capacitySeating) Mode() string { return models.SeatingModeCapacity }

// Allocate 按配置顺序找第一张未坐满的桌子，取 1..capacity 中最小的空位号
func (capacitySeating) Allocate(tx *gorm.DB, ev *models.Event, invitationID uint) (string, string, bool, error) {
	for _, t := range ev.SeatingArrangement.Tables {
		if t.Number == "" || t.Capacity <= 0 {
			continue
		}
		var occupied int64
		if err := tx.Model(&models.Invitation{}).
			Where("event_id = ? AND checked_in = ? AND table_number = ? AND id <> ?", ev.ID, true, t.Number, invitationID).
			Count(&occupied).Error; err != nil {
			return "", "", false, err
		}
		if occupied >= int64(t.Capacity) {
			continue
		}
		var held []string
		if err := tx.Model(&models.Invitation{}).
			Where("event_id = ? AND table_number = ? AND id <> ?", ev.ID, t.Number, invitationID).
			Pluck("seat_number", &held).Error; err != nil {
			return "", "", false, err
		}
		taken := make(map[string]bool, len(held))
		for _, s := range held {
			taken[s] = true
		}
		for n := 1; n <= t.Capacity; n++ {
			if s := strconv.Itoa(n); !taken[s] {
				return t.Number, s, true, nil
			}
		}
	}
	return "", "", false, nil
}
