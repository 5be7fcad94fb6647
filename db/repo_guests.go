package db

import (
	"context"
	"errors"
	"strings"

	"guest_tracker/models"

	"gorm.io/gorm"
)

func normalizeGuest(g *models.Guest) {
	g.FirstName = strings.TrimSpace(g.FirstName)
	g.LastName = strings.TrimSpace(g.LastName)
	g.Email = strings.ToLower(strings.TrimSpace(g.Email))
	g.Phone = strings.TrimSpace(g.Phone)
}

func (r *Repo) CreateGuest(ctx context.Context, g *models.Guest) error {
	normalizeGuest(g)
	return r.DB.WithContext(ctx).Create(g).Error
}

func (r *Repo) FindGuestByID(ctx context.Context, id uint) (*models.Guest, error) {
	var g models.Guest
	if err := r.DB.WithContext(ctx).First(&g, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGuestNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (r *Repo) FindGuestByEmail(ctx context.Context, email string) (*models.Guest, error) {
	var g models.Guest
	err := r.DB.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Order("id").First(&g).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGuestNotFound
		}
		return nil, err
	}
	return &g, nil
}

// GetOrCreateGuest 按 (名, 姓, 邮箱) 去重；已存在时补齐空字段
func (r *Repo) GetOrCreateGuest(ctx context.Context, in models.Guest) (*models.Guest, bool, error) {
	normalizeGuest(&in)
	var g models.Guest
	err := r.DB.WithContext(ctx).
		Where("first_name = ? AND last_name = ? AND email = ?", in.FirstName, in.LastName, in.Email).
		First(&g).Error
	if err == nil {
		upd := map[string]any{}
		if g.Phone == "" && in.Phone != "" {
			upd["phone"] = in.Phone
		}
		if g.Address == "" && in.Address != "" {
			upd["address"] = in.Address
		}
		if g.Rank == "" && in.Rank != "" {
			upd["rank"] = in.Rank
		}
		if g.Institution == "" && in.Institution != "" {
			upd["institution"] = in.Institution
		}
		if len(upd) > 0 {
			if err := r.DB.WithContext(ctx).Model(&g).Updates(upd).Error; err != nil {
				return nil, false, err
			}
		}
		return &g, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	if err := r.DB.WithContext(ctx).Create(&in).Error; err != nil {
		return nil, false, err
	}
	return &in, true, nil
}

type PagedGuests struct {
	Total  int64          `json:"total"`
	Guests []models.Guest `json:"guests"`
}

func (r *Repo) ListGuests(ctx context.Context, q string, page, size int) (*PagedGuests, error) {
	page, size = normalizePage(page, size, 200)

	tx := r.DB.WithContext(ctx).Model(&models.Guest{})
	if q = strings.TrimSpace(q); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		tx = tx.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(institution) LIKE ?",
			like, like, like, like)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, err
	}
	var guests []models.Guest
	if err := tx.Order("last_name, first_name").
		Offset((page - 1) * size).Limit(size).
		Find(&guests).Error; err != nil {
		return nil, err
	}
	return &PagedGuests{Total: total, Guests: guests}, nil
}

type GuestInput struct {
	FirstName   string `json:"firstName" binding:"required,max=100"`
	LastName    string `json:"lastName" binding:"required,max=100"`
	Email       string `json:"email" binding:"required,email"`
	Phone       string `json:"phone" binding:"max=20"`
	Address     string `json:"address"`
	Notes       string `json:"notes"`
	Rank        string `json:"rank" binding:"max=100"`
	Institution string `json:"institution" binding:"max=200"`
}

func (in GuestInput) Guest() models.Guest {
	return models.Guest{
		FirstName: in.FirstName, LastName: in.LastName, Email: in.Email,
		Phone: in.Phone, Address: in.Address, Notes: in.Notes,
		Rank: in.Rank, Institution: in.Institution,
	}
}

func (r *Repo) UpdateGuest(ctx context.Context, id uint, in GuestInput) (*models.Guest, error) {
	g := in.Guest()
	normalizeGuest(&g)
	res := r.DB.WithContext(ctx).Model(&models.Guest{}).Where("id = ?", id).
		Updates(map[string]any{
			"first_name":  g.FirstName,
			"last_name":   g.LastName,
			"email":       g.Email,
			"phone":       g.Phone,
			"address":     g.Address,
			"notes":       g.Notes,
			"rank":        g.Rank,
			"institution": g.Institution,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrGuestNotFound
	}
	return r.FindGuestByID(ctx, id)
}

// DeleteGuest 同时删除该嘉宾的邀请、回复并释放座位
func (r *Repo) DeleteGuest(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var checked []struct {
			EventID uint
			N       int64
		}
		if err := tx.Model(&models.Invitation{}).Select("event_id, COUNT(*) AS n").
			Where("guest_id = ? AND checked_in = ?", id, true).
			Group("event_id").Order("event_id").Scan(&checked).Error; err != nil {
			return err
		}
		for _, c := range checked {
			if _, err := lockEvent(tx, c.EventID); err != nil {
				return err
			}
			if err := decrementCheckedIn(tx, c.EventID, c.N); err != nil {
				return err
			}
		}

		invIDs := tx.Model(&models.Invitation{}).Select("id").Where("guest_id = ?", id)
		if err := tx.Model(&models.Seat{}).Where("assigned_invitation_id IN (?)", invIDs).
			Update("assigned_invitation_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("invitation_id IN (?)", invIDs).Delete(&models.RSVP{}).Error; err != nil {
			return err
		}
		if err := tx.Where("guest_id = ?", id).Delete(&models.Invitation{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Guest{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrGuestNotFound
		}
		return nil
	})
}
