package db

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"guest_tracker/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const barcodeDigits = 12

var barcodeMax = new(big.Int).Exp(big.NewInt(10), big.NewInt(barcodeDigits), nil)

// NewBarcodeNumber 12 位数字，首位不为 0，方便 Code128 扫码枪读取
func NewBarcodeNumber() (string, error) {
	for {
		n, err := rand.Int(rand.Reader, barcodeMax)
		if err != nil {
			return "", err
		}
		s := fmt.Sprintf("%0*d", barcodeDigits, n)
		if s[0] != '0' {
			return s, nil
		}
	}
}

// CreateInvitation 为 (活动, 嘉宾) 生成邀请；已存在时返回 ErrAlreadyInvited
func (r *Repo) CreateInvitation(ctx context.Context, eventID, guestID uint, message string) (*models.Invitation, error) {
	var inv *models.Invitation
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Invitation{}).
			Where("event_id = ? AND guest_id = ?", eventID, guestID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrAlreadyInvited
		}
		var err error
		inv, err = newInvitation(tx, eventID, guestID, message)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.FindInvitationByID(ctx, inv.ID)
}

// GetOrCreateInvitation 导入时使用
func (r *Repo) GetOrCreateInvitation(ctx context.Context, eventID, guestID uint) (*models.Invitation, bool, error) {
	var inv models.Invitation
	err := r.DB.WithContext(ctx).
		Where("event_id = ? AND guest_id = ?", eventID, guestID).
		First(&inv).Error
	if err == nil {
		return &inv, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	created, err := newInvitation(r.DB.WithContext(ctx), eventID, guestID, "")
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

func newInvitation(tx *gorm.DB, eventID, guestID uint, message string) (*models.Invitation, error) {
	// 条码冲突概率极低，重试几次即可
	for attempt := 0; attempt < 5; attempt++ {
		code, err := NewBarcodeNumber()
		if err != nil {
			return nil, err
		}
		var n int64
		if err := tx.Model(&models.Invitation{}).Where("barcode_number = ?", code).Count(&n).Error; err != nil {
			return nil, err
		}
		if n > 0 {
			continue
		}
		inv := &models.Invitation{
			EventID:         eventID,
			GuestID:         guestID,
			UniqueCode:      uuid.NewString(),
			BarcodeNumber:   code,
			Status:          models.InvitationDraft,
			PersonalMessage: message,
		}
		if err := tx.Omit("Event", "Guest", "RSVP").Create(inv).Error; err != nil {
			return nil, err
		}
		return inv, nil
	}
	return nil, errors.New("could not allocate a unique barcode number")
}

func (r *Repo) invitationQuery(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).Preload("Guest").Preload("RSVP").Preload("Event")
}

func (r *Repo) FindInvitationByID(ctx context.Context, id uint) (*models.Invitation, error) {
	var inv models.Invitation
	if err := r.invitationQuery(ctx).First(&inv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// FindInvitationByBarcode eventID 为 0 时不限活动
func (r *Repo) FindInvitationByBarcode(ctx context.Context, barcode string, eventID uint) (*models.Invitation, error) {
	return r.findInvitationBy(ctx, "barcode_number", strings.TrimSpace(barcode), eventID)
}

func (r *Repo) FindInvitationByCode(ctx context.Context, code string, eventID uint) (*models.Invitation, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if _, err := uuid.Parse(code); err != nil {
		return nil, ErrInvitationNotFound
	}
	return r.findInvitationBy(ctx, "unique_code", code, eventID)
}

func (r *Repo) findInvitationBy(ctx context.Context, column, value string, eventID uint) (*models.Invitation, error) {
	if value == "" {
		return nil, ErrInvitationNotFound
	}
	q := r.invitationQuery(ctx).Where(column+" = ?", value)
	if eventID != 0 {
		q = q.Where("event_id = ?", eventID)
	}
	var inv models.Invitation
	if err := q.First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}
	return &inv, nil
}

type InvitationsQuery struct {
	EventID   uint
	Status    string
	CheckedIn *bool
	Q         string
}

func (r *Repo) ListInvitations(ctx context.Context, q InvitationsQuery) ([]models.Invitation, error) {
	tx := r.DB.WithContext(ctx).Preload("Guest").Preload("RSVP").
		Joins("JOIN "+models.GuestTable+" g ON g.id = "+models.InvitationTable+".guest_id").
		Where(models.InvitationTable+".event_id = ?", q.EventID)
	if q.Status != "" {
		tx = tx.Where(models.InvitationTable+".status = ?", q.Status)
	}
	if q.CheckedIn != nil {
		tx = tx.Where(models.InvitationTable+".checked_in = ?", *q.CheckedIn)
	}
	if s := strings.TrimSpace(q.Q); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		tx = tx.Where("LOWER(g.first_name) LIKE ? OR LOWER(g.last_name) LIKE ? OR LOWER(g.email) LIKE ? OR "+
			models.InvitationTable+".barcode_number LIKE ?", like, like, like, like)
	}
	var out []models.Invitation
	return out, tx.Order("g.last_name, g.first_name").Find(&out).Error
}

// InvitationsForSending resend=false 时只取未发送的
func (r *Repo) InvitationsForSending(ctx context.Context, eventID uint, ids []uint, resend bool) ([]models.Invitation, error) {
	tx := r.invitationQuery(ctx).Where("event_id = ?", eventID)
	if len(ids) > 0 {
		tx = tx.Where("id IN ?", ids)
	}
	if !resend {
		tx = tx.Where("email_sent = ?", false)
	}
	var out []models.Invitation
	return out, tx.Order("id").Find(&out).Error
}

// PendingRSVPs 已发送但未回复（提醒邮件）
func (r *Repo) PendingRSVPs(ctx context.Context, eventID uint) ([]models.Invitation, error) {
	var out []models.Invitation
	err := r.invitationQuery(ctx).
		Where("event_id = ? AND email_sent = ?", eventID, true).
		Where("NOT EXISTS (SELECT 1 FROM gt_rsvps r WHERE r.invitation_id = " + models.InvitationTable + ".id)").
		Order("id").Find(&out).Error
	return out, err
}

func (r *Repo) MarkInvitationSent(ctx context.Context, id uint) error {
	now := time.Now().UTC()
	return r.DB.WithContext(ctx).Model(&models.Invitation{}).Where("id = ?", id).
		Updates(map[string]any{
			"email_sent":    true,
			"email_sent_at": now,
			"status":        gorm.Expr("CASE WHEN status = ? THEN ? ELSE status END", models.InvitationDraft, models.InvitationSent),
		}).Error
}

// MarkInvitationOpened 仅记录第一次打开
func (r *Repo) MarkInvitationOpened(ctx context.Context, id uint) error {
	now := time.Now().UTC()
	return r.DB.WithContext(ctx).Model(&models.Invitation{}).
		Where("id = ? AND opened_at IS NULL", id).
		Updates(map[string]any{
			"opened_at": now,
			"status": gorm.Expr("CASE WHEN status IN (?, ?) THEN ? ELSE status END",
				models.InvitationDraft, models.InvitationSent, models.InvitationOpened),
		}).Error
}

// DeleteInvitation 已签到的邀请同时从活动计数中扣除
func (r *Repo) DeleteInvitation(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev, inv, err := lockForCheckIn(tx, id)
		if err != nil {
			return err
		}
		if inv.CheckedIn {
			if err := decrementCheckedIn(tx, ev.ID, 1); err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Seat{}).Where("assigned_invitation_id = ?", id).
			Update("assigned_invitation_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("invitation_id = ?", id).Delete(&models.RSVP{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Invitation{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvitationNotFound
		}
		return nil
	})
}
