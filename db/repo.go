package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"guest_tracker/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct{ DB *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{DB: db} }

// Users

func (r *Repo) TouchUserLogin(ctx context.Context, userID, ip, ua string) error {
	now := time.Now().UTC()
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"last_login_at": now,
			"last_seen_at":  now,
			"login_count":   gorm.Expr("COALESCE(login_count, 0) + 1"),
			"last_login_ip": ip,
			"last_login_ua": ua,
		}).Error
}

func (r *Repo) TouchUserSeen(ctx context.Context, userID string) error {
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_seen_at", time.Now().UTC()).Error
}

func (r *Repo) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repo) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).Where("username = ?", strings.ToLower(username)).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repo) CreateUser(ctx context.Context, u *models.User) error {
	u.Username = strings.ToLower(strings.TrimSpace(u.Username))
	if u.DisplayName == "" {
		u.DisplayName = u.Username
	}
	return r.DB.WithContext(ctx).Create(u).Error
}

// FindOrCreateUser 用户名即邀请邮箱
func (r *Repo) FindOrCreateUser(ctx context.Context, username, newID string, staff bool) (*models.User, error) {
	u, err := r.FindUserByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		u = &models.User{ID: newID, Username: username, IsStaff: staff}
		if err := r.CreateUser(ctx, u); err != nil {
			return nil, err
		}
		return u, nil
	}
	return u, err
}

// 列表（分页 + 关键词，关键词匹配用户名/显示名）
type ListUsersResult struct {
	Users []models.User `json:"users"`
	Total int64         `json:"total"`
}

func (r *Repo) ListUsers(ctx context.Context, q string, page, size int) (ListUsersResult, error) {
	page, size = normalizePage(page, size, 100)

	tx := r.DB.WithContext(ctx).Model(&models.User{})
	if q = strings.TrimSpace(q); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		tx = tx.Where("LOWER(username) LIKE ? OR LOWER(display_name) LIKE ?", like, like)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return ListUsersResult{}, err
	}

	var users []models.User
	if err := tx.
		Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&users).Error; err != nil {
		return ListUsersResult{}, err
	}
	return ListUsersResult{Users: users, Total: total}, nil
}

type UserRoles struct {
	IsAdmin           *bool `json:"isAdmin"`
	IsStaff           *bool `json:"isStaff"`
	CanExportCheckIns *bool `json:"canExportCheckIns"`
}

func (r *Repo) SetUserRoles(ctx context.Context, userID string, roles UserRoles) (*models.User, error) {
	upd := map[string]any{}
	if roles.IsAdmin != nil {
		upd["is_admin"] = *roles.IsAdmin
	}
	if roles.IsStaff != nil {
		upd["is_staff"] = *roles.IsStaff
	}
	if roles.CanExportCheckIns != nil {
		upd["can_export_check_ins"] = *roles.CanExportCheckIns
	}
	if len(upd) > 0 {
		res := r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(upd)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrUserNotFound
		}
	}
	return r.FindUserByID(ctx, userID)
}

func (r *Repo) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("is_admin = ?", true).
		Count(&n).Error
	return n, err
}

// 删除用户（显式删凭据）
func (r *Repo) DeleteUserByID(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.Credential{}).Error; err != nil {
			return err
		}
		// 会话记录保留，只断开操作员引用
		if err := tx.Model(&models.CheckInSession{}).Where("started_by = ?", id).
			Update("started_by", nil).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.Returning{}).Delete(&models.User{ID: id}).Error
	})
}

// Credentials

func (r *Repo) LoadUserCredentials(ctx context.Context, userID string) ([]models.Credential, error) {
	var cs []models.Credential
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&cs).Error; err != nil {
		return nil, err
	}
	return cs, nil
}

func (r *Repo) AddCredential(ctx context.Context, c *models.Credential) error {
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *Repo) CountCredentials(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Credential{}).
		Where("user_id = ?", userID).
		Count(&n).Error
	return n, err
}

func (r *Repo) UpdateCredentialUse(ctx context.Context, credID []byte, newCount uint32, cloneWarn bool) error {
	return r.DB.WithContext(ctx).Model(&models.Credential{}).
		Where("credential_id = ?", credID).
		Updates(map[string]any{
			"sign_count":    newCount,
			"clone_warning": cloneWarn,
			"last_used_at":  time.Now().UTC(),
		}).Error
}

func (r *Repo) FindUserByCredentialID(ctx context.Context, credID []byte) (*models.User, error) {
	var c models.Credential
	if err := r.DB.WithContext(ctx).Where("credential_id = ?", credID).First(&c).Error; err != nil {
		return nil, err
	}
	return r.FindUserByID(ctx, c.UserID)
}

func normalizePage(page, size, max int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > max {
		size = 20
	}
	return page, size
}
