package db

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"guest_tracker/models"

	"gorm.io/gorm"
)

var ErrInvalidTable = errors.New("table number is required")

func (r *Repo) ListTables(ctx context.Context, eventID uint) ([]models.Table, error) {
	var out []models.Table
	err := r.DB.WithContext(ctx).
		Preload("Seats", func(db *gorm.DB) *gorm.DB { return db.Order("LENGTH(number), number") }).
		Where("event_id = ?", eventID).
		Order("LENGTH(number), number").
		Find(&out).Error
	return out, err
}

type TableInput struct {
	Number   string `json:"number" binding:"required,max=50"`
	Capacity int    `json:"capacity" binding:"min=0,max=500"`
	Section  string `json:"section" binding:"max=100"`
}

// UpsertTable 按 (活动, 桌号) 创建或更新
func (r *Repo) UpsertTable(ctx context.Context, eventID uint, in TableInput) (*models.Table, bool, error) {
	in.Number = strings.TrimSpace(in.Number)
	if in.Number == "" {
		return nil, false, ErrInvalidTable
	}
	var (
		t       models.Table
		created bool
	)
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findEvent(tx, eventID); err != nil {
			return err
		}
		err := tx.Where("event_id = ? AND number = ?", eventID, in.Number).First(&t).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			t = models.Table{EventID: eventID, Number: in.Number, Capacity: in.Capacity, Section: in.Section}
			created = true
			if err := tx.Omit("Seats").Create(&t).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := tx.Model(&t).Updates(map[string]any{"capacity": in.Capacity, "section": in.Section}).Error; err != nil {
				return err
			}
		}
		return refreshSeatingMode(tx, eventID)
	})
	if err != nil {
		return nil, false, err
	}
	return &t, created, nil
}

func (r *Repo) DeleteTable(ctx context.Context, eventID, tableID uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("table_id = ?", tableID).Delete(&models.Seat{}).Error; err != nil {
			return err
		}
		res := tx.Where("event_id = ?", eventID).Delete(&models.Table{}, tableID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTableNotFound
		}
		return refreshSeatingMode(tx, eventID)
	})
}

// RefreshSeatingMode 座位数据变化后重新确定座位来源
func (r *Repo) RefreshSeatingMode(ctx context.Context, eventID uint) error {
	return refreshSeatingMode(r.DB.WithContext(ctx), eventID)
}

func refreshSeatingMode(tx *gorm.DB, eventID uint) error {
	ev, err := findEvent(tx, eventID)
	if err != nil {
		return err
	}
	n, err := countEventSeats(tx, eventID)
	if err != nil {
		return err
	}
	mode := seatingModeFromArrangement(ev.SeatingArrangement, n)
	if mode == ev.SeatingMode {
		return nil
	}
	return tx.Model(&models.Event{}).Where("id = ?", eventID).Update("seating_mode", mode).Error
}

func findEvent(tx *gorm.DB, eventID uint) (*models.Event, error) {
	var ev models.Event
	if err := tx.First(&ev, "id = ?", eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &ev, nil
}

type PlannedSeat struct {
	TableID     uint   `json:"tableId"`
	TableNumber string `json:"tableNumber"`
	SeatNumber  string `json:"seatNumber"`
}

type GenerateSeatsResult struct {
	Preview bool          `json:"preview"`
	Created int           `json:"created"`
	Planned []PlannedSeat `json:"planned"`
}

// GenerateSeats 为每张桌子补齐 1..capacity 号座位；eventID 为 0 时处理全部活动
func (r *Repo) GenerateSeats(ctx context.Context, eventID uint, preview bool) (*GenerateSeatsResult, error) {
	res := &GenerateSeatsResult{Preview: preview}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Preload("Seats").Order("event_id, id")
		if eventID != 0 {
			q = q.Where("event_id = ?", eventID)
		}
		var tables []models.Table
		if err := q.Find(&tables).Error; err != nil {
			return err
		}
		touched := map[uint]bool{}
		for _, t := range tables {
			for _, p := range missingSeats(t, t.Capacity) {
				res.Planned = append(res.Planned, p)
				if preview {
					continue
				}
				if err := tx.Create(&models.Seat{TableID: t.ID, Number: p.SeatNumber}).Error; err != nil {
					return err
				}
				res.Created++
				touched[t.EventID] = true
			}
		}
		for id := range touched {
			if err := refreshSeatingMode(tx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func missingSeats(t models.Table, capacity int) []PlannedSeat {
	have := make(map[string]bool, len(t.Seats))
	for _, s := range t.Seats {
		have[s.Number] = true
	}
	var out []PlannedSeat
	for i := 1; i <= capacity; i++ {
		if n := strconv.Itoa(i); !have[n] {
			out = append(out, PlannedSeat{TableID: t.ID, TableNumber: t.Number, SeatNumber: n})
		}
	}
	return out
}

type ArrangementOptions struct {
	Preview bool `json:"preview"`
	// Merge 保留已有桌子/座位；否则先清空未被占用的
	Merge bool `json:"merge"`
	// Sync 删除超出容量且未分配的座位
	Sync bool `json:"sync"`
}

type ArrangementResult struct {
	Preview       bool   `json:"preview"`
	TablesCreated int    `json:"tablesCreated"`
	TablesUpdated int    `json:"tablesUpdated"`
	TablesRemoved int    `json:"tablesRemoved"`
	SeatsCreated  int    `json:"seatsCreated"`
	SeatsRemoved  int    `json:"seatsRemoved"`
	SeatingMode   string `json:"seatingMode"`
}

// ApplySeatingArrangement 保存座位配置 JSON，并据此生成规范化的 Table/Seat 行
func (r *Repo) ApplySeatingArrangement(ctx context.Context, eventID uint, arr models.SeatingArrangement, hasAssigned *bool, opts ArrangementOptions) (*ArrangementResult, error) {
	res := &ArrangementResult{Preview: opts.Preview}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev, err := lockEvent(tx, eventID)
		if err != nil {
			return err
		}

		var existing []models.Table
		if err := tx.Preload("Seats").Where("event_id = ?", eventID).Find(&existing).Error; err != nil {
			return err
		}
		byNumber := make(map[string]models.Table, len(existing))
		for _, t := range existing {
			byNumber[t.Number] = t
		}

		if !opts.Merge {
			// 已分配给嘉宾的座位保留，避免丢失预分配
			for _, t := range existing {
				if tableHasAssignments(t) {
					continue
				}
				res.TablesRemoved++
				res.SeatsRemoved += len(t.Seats)
				delete(byNumber, t.Number)
				if opts.Preview {
					continue
				}
				if err := tx.Where("table_id = ?", t.ID).Delete(&models.Seat{}).Error; err != nil {
					return err
				}
				if err := tx.Delete(&models.Table{}, t.ID).Error; err != nil {
					return err
				}
			}
		}

		for _, at := range arr.Tables {
			num := strings.TrimSpace(at.Number)
			if num == "" {
				continue
			}
			t, ok := byNumber[num]
			switch {
			case !ok:
				res.TablesCreated++
				t = models.Table{EventID: eventID, Number: num, Capacity: at.Capacity, Section: at.Section}
				if !opts.Preview {
					if err := tx.Omit("Seats").Create(&t).Error; err != nil {
						return err
					}
				}
			case t.Capacity != at.Capacity || (at.Section != "" && t.Section != at.Section):
				res.TablesUpdated++
				if at.Capacity > 0 {
					t.Capacity = at.Capacity
				}
				if at.Section != "" {
					t.Section = at.Section
				}
				if !opts.Preview {
					if err := tx.Model(&models.Table{}).Where("id = ?", t.ID).
						Updates(map[string]any{"capacity": t.Capacity, "section": t.Section}).Error; err != nil {
						return err
					}
				}
			}

			missing := missingSeats(t, at.Capacity)
			res.SeatsCreated += len(missing)
			if !opts.Preview {
				for _, p := range missing {
					if err := tx.Create(&models.Seat{TableID: t.ID, Number: p.SeatNumber}).Error; err != nil {
						return err
					}
				}
			}

			if opts.Sync {
				keep := make(map[string]bool, at.Capacity)
				for i := 1; i <= at.Capacity; i++ {
					keep[strconv.Itoa(i)] = true
				}
				for _, s := range t.Seats {
					if keep[s.Number] || s.AssignedInvitationID != nil {
						continue
					}
					res.SeatsRemoved++
					if !opts.Preview {
						if err := tx.Delete(&models.Seat{}, s.ID).Error; err != nil {
							return err
						}
					}
				}
			}
		}

		if opts.Preview {
			res.SeatingMode = ev.SeatingMode
			return nil
		}
		upd := map[string]any{"seating_arrangement": arr}
		if hasAssigned != nil {
			upd["has_assigned_seating"] = *hasAssigned
		}
		if err := tx.Model(&models.Event{}).Where("id = ?", eventID).Updates(upd).Error; err != nil {
			return err
		}
		if err := refreshSeatingMode(tx, eventID); err != nil {
			return err
		}
		updated, err := findEvent(tx, eventID)
		if err != nil {
			return err
		}
		res.SeatingMode = updated.SeatingMode
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func tableHasAssignments(t models.Table) bool {
	for _, s := range t.Seats {
		if s.AssignedInvitationID != nil {
			return true
		}
	}
	return false
}

// SeatAssignment 座位导入的一行：桌号、座号、嘉宾标识（邮箱/条码/邀请码）
type SeatAssignment struct {
	Table string
	Seat  string
	Guest string
}

type AssignResult struct {
	Assigned int      `json:"assigned"`
	Errors   []string `json:"errors,omitempty"`
}

// AssignSeats 预分配座位（签到时沿用）
func (r *Repo) AssignSeats(ctx context.Context, eventID uint, rows []SeatAssignment) (*AssignResult, error) {
	res := &AssignResult{}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockEvent(tx, eventID); err != nil {
			return err
		}
		for i, row := range rows {
			msg, err := assignSeat(tx, eventID, row)
			if err != nil {
				return err
			}
			if msg != "" {
				res.Errors = append(res.Errors, "row "+strconv.Itoa(i+1)+": "+msg)
				continue
			}
			res.Assigned++
		}
		return refreshSeatingMode(tx, eventID)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func assignSeat(tx *gorm.DB, eventID uint, row SeatAssignment) (string, error) {
	var t models.Table
	if err := tx.Where("event_id = ? AND number = ?", eventID, row.Table).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "table " + row.Table + " not found", nil
		}
		return "", err
	}
	inv, err := findInvitationForAssignment(tx, eventID, row.Guest)
	if err != nil {
		return "", err
	}
	if inv == nil {
		return "invitation not found for guest " + row.Guest, nil
	}

	var seat models.Seat
	err = tx.Where("table_id = ? AND number = ?", t.ID, row.Seat).First(&seat).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		seat = models.Seat{TableID: t.ID, Number: row.Seat}
		if err := tx.Create(&seat).Error; err != nil {
			return "", err
		}
	case err != nil:
		return "", err
	}
	if seat.AssignedInvitationID != nil {
		if *seat.AssignedInvitationID == inv.ID {
			return "", nil
		}
		return "seat " + row.Table + "/" + row.Seat + " already assigned", nil
	}

	// 一张邀请只占一个座位
	if err := tx.Model(&models.Seat{}).Where("assigned_invitation_id = ?", inv.ID).
		Update("assigned_invitation_id", nil).Error; err != nil {
		return "", err
	}
	if err := tx.Model(&models.Seat{}).Where("id = ?", seat.ID).
		Update("assigned_invitation_id", inv.ID).Error; err != nil {
		return "", err
	}
	if inv.CheckedIn {
		return "", tx.Model(&models.Invitation{}).Where("id = ?", inv.ID).
			Updates(map[string]any{"table_number": t.Number, "seat_number": seat.Number}).Error
	}
	return "", nil
}

func findInvitationForAssignment(tx *gorm.DB, eventID uint, ident string) (*models.Invitation, error) {
	ident = strings.TrimSpace(ident)
	var inv models.Invitation
	err := tx.Joins("JOIN "+models.GuestTable+" g ON g.id = "+models.InvitationTable+".guest_id").
		Where(models.InvitationTable+".event_id = ?", eventID).
		Where("LOWER(g.email) = ? OR "+models.InvitationTable+".barcode_number = ? OR "+models.InvitationTable+".unique_code = ?",
			strings.ToLower(ident), ident, strings.ToLower(ident)).
		Order(models.InvitationTable + ".id").
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

type SeatingChartEntry struct {
	GuestName   string `json:"guestName"`
	Email       string `json:"email"`
	SeatNumber  string `json:"seatNumber"`
	CheckedIn   bool   `json:"checkedIn"`
	RSVP        string `json:"rsvp"`
	TotalGuests int    `json:"totalGuests"`
}

type SeatingChartTable struct {
	Table  string              `json:"table"`
	Guests []SeatingChartEntry `json:"guests"`
}

// SeatingChart 按桌号分组，无桌号的归到 "Unassigned"
func (r *Repo) SeatingChart(ctx context.Context, eventID uint) ([]SeatingChartTable, error) {
	var invs []models.Invitation
	if err := r.DB.WithContext(ctx).Preload("Guest").Preload("RSVP").
		Where("event_id = ? AND (table_number <> '' OR seat_number <> '')", eventID).
		Order("LENGTH(table_number), table_number, LENGTH(seat_number), seat_number").
		Find(&invs).Error; err != nil {
		return nil, err
	}
	var out []SeatingChartTable
	index := map[string]int{}
	for _, inv := range invs {
		key := inv.TableNumber
		if key == "" {
			key = "Unassigned"
		}
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, SeatingChartTable{Table: key})
		}
		e := SeatingChartEntry{
			GuestName:  inv.Guest.FullName(),
			Email:      inv.Guest.Email,
			SeatNumber: inv.SeatNumber,
			CheckedIn:  inv.CheckedIn,
		}
		if inv.RSVP != nil {
			e.RSVP = inv.RSVP.Response
			e.TotalGuests = inv.RSVP.TotalGuests()
		}
		out[i].Guests = append(out[i].Guests, e)
	}
	return out, nil
}
