package models

import (
	"time"
)

const UserTable = "gt_users"

// User 即操作员（组织者/引导员/管理员），使用 UUID 字节作为 WebAuthn userHandle
type User struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	Username    string `gorm:"uniqueIndex;size:255;not null" json:"username"`
	DisplayName string `gorm:"size:255;not null" json:"displayName"`

	IsAdmin           bool `gorm:"not null;default:false" json:"isAdmin"`
	IsStaff           bool `gorm:"not null;default:false" json:"isStaff"`
	CanExportCheckIns bool `gorm:"not null;default:false" json:"canExportCheckIns"`

	LastLoginAt *time.Time `gorm:"index" json:"lastLoginAt,omitempty"`
	LastSeenAt  *time.Time `gorm:"index" json:"lastSeenAt,omitempty"`
	LoginCount  int64      `gorm:"not null;default:0" json:"loginCount"`
	LastLoginIP string     `gorm:"size:45" json:"-"`
	LastLoginUA string     `gorm:"size:255" json:"-"`

	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	Credentials []Credential `json:"-"`
}

func (User) TableName() string { return UserTable }

// CanCheckIn 只有 staff 或管理员可以签到
func (u User) CanCheckIn() bool { return u.IsStaff || u.IsAdmin }

func (u User) CanExport() bool { return u.CanExportCheckIns || u.IsAdmin }

// Credential 为每个注册的 Passkey 存档
type Credential struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          string    `gorm:"size:36;index" json:"userId"`
	CredentialID    []byte    `gorm:"uniqueIndex" json:"credentialId"`
	PublicKey       []byte    `json:"publicKey"`
	AttestationType string    `gorm:"size:64" json:"attestationType"`
	AAGUID          []byte    `json:"aaguid"`
	SignCount       uint32    `json:"signCount"`
	CloneWarning    bool      `json:"cloneWarning"`
	BackupEligible  bool      `json:"backupEligible"`
	BackupState     bool      `json:"backupState"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`

	LastUsedAt *time.Time `gorm:"index" json:"lastUsedAt,omitempty"`
}

func (Credential) TableName() string { return "gt_credentials" }
