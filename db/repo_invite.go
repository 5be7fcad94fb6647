package db

import (
	"context"
	"strings"
	"time"

	"guest_tracker/models"
)

func (r *Repo) CreateInvite(ctx context.Context, email, token string, staff bool, expiresAt time.Time, createdBy string) (*models.StaffInvite, error) {
	inv := &models.StaffInvite{
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Token:     token,
		Staff:     staff,
		ExpiresAt: expiresAt,
		CreatedBy: createdBy,
	}
	return inv, r.DB.WithContext(ctx).Create(inv).Error
}

func (r *Repo) GetInviteByToken(ctx context.Context, token string) (*models.StaffInvite, error) {
	var inv models.StaffInvite
	if err := r.DB.WithContext(ctx).Where("token = ?", token).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *Repo) MarkInviteUsed(ctx context.Context, token string) error {
	now := time.Now().UTC()
	res := r.DB.WithContext(ctx).Model(&models.StaffInvite{}).
		Where("token = ? AND used_at IS NULL", token).
		Update("used_at", &now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInviteUsed
	}
	return nil
}

func (r *Repo) ListInvites(ctx context.Context, pendingOnly bool) ([]models.StaffInvite, error) {
	q := r.DB.WithContext(ctx).Order("created_at DESC")
	if pendingOnly {
		q = q.Where("used_at IS NULL AND expires_at > ?", time.Now().UTC())
	}
	var out []models.StaffInvite
	return out, q.Find(&out).Error
}
