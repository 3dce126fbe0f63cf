package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ============================================================
// Identity & Access Tables
// ============================================================

// User lifecycle statuses
const (
	UserStatusActive      = "active"
	UserStatusInactive    = "inactive"
	UserStatusSuspended   = "suspended"
	UserStatusPendingKYC  = "pending_kyc"
	UserStatusKYCRejected = "kyc_rejected"
)

// User represents users table
type User struct {
	ID             uuid.UUID      `gorm:"type:char(36);primaryKey" json:"id"`
	Username       string         `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email          string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	PhoneNumber    string         `gorm:"uniqueIndex;size:20;not null" json:"phone_number"`
	HashedPassword string         `gorm:"size:255;not null" json:"-"`
	IsVerified     bool           `gorm:"default:false" json:"is_verified"`
	IsSuperuser    bool           `gorm:"default:false;not null;index" json:"is_superuser"`
	Status         string         `gorm:"size:20;default:'pending_kyc';index" json:"status"`
	TwoFASecret    *string        `gorm:"size:64" json:"-"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	Staff *Staff `gorm:"foreignKey:UserID" json:"staff,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IsActive reports whether the account may authenticate
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// UserResponse DTO
type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	IsVerified  bool      `json:"is_verified"`
	IsSuperuser bool      `json:"is_superuser"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		IsVerified:  u.IsVerified,
		IsSuperuser: u.IsSuperuser,
		Status:      u.Status,
		CreatedAt:   u.CreatedAt,
	}
}

// Staff roles. RoleSuperuser is a reserved sentinel value: at most one
// staff row may carry it.
const (
	RoleSuperuser  = "superuser"
	RoleAdmin      = "admin"
	RoleSupport    = "support"
	RoleCompliance = "compliance"
	RoleManager    = "manager"
	RoleGeneral    = "general"
)

// Staff departments. DepartmentSuperuser is reserved the same way the
// superuser role is.
const (
	DepartmentSuperuser  = "superuser"
	DepartmentIT         = "it"
	DepartmentOperations = "operations"
	DepartmentCompliance = "compliance"
	DepartmentSupport    = "support"
)

// Staff represents staffs table - the authorization attachment to a User
type Staff struct {
	ID         uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:char(36);uniqueIndex;not null" json:"user_id"`
	Department string    `gorm:"size:50;not null;index" json:"department"`
	Role       string    `gorm:"size:50;not null;index" json:"role"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	User        *User        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Permissions []Permission `gorm:"many2many:staff_permissions;constraint:OnDelete:CASCADE" json:"permissions,omitempty"`
}

func (Staff) TableName() string {
	return "staffs"
}

func (s *Staff) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// HasPermission checks the loaded permission set for an exact,
// case-sensitive name match
func (s *Staff) HasPermission(name string) bool {
	for _, p := range s.Permissions {
		if p.Name == name {
			return true
		}
	}
	return false
}

// StaffResponse DTO
type StaffResponse struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Department  string    `json:"department"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *Staff) ToResponse() *StaffResponse {
	perms := make([]string, len(s.Permissions))
	for i, p := range s.Permissions {
		perms[i] = p.Name
	}
	return &StaffResponse{
		ID:          s.ID,
		UserID:      s.UserID,
		Department:  s.Department,
		Role:        s.Role,
		Permissions: perms,
		CreatedAt:   s.CreatedAt,
	}
}

// Permission represents permissions table - a closed vocabulary seeded
// at startup
type Permission struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Permission) TableName() string {
	return "permissions"
}

func (p *Permission) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Session represents sessions table - one row per issued refresh token
type Session struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:char(36);index;not null" json:"user_id"`
	TokenHash string    `gorm:"uniqueIndex;size:64;not null" json:"-"`
	IsValid   bool      `gorm:"default:true;not null" json:"is_valid"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	UserAgent *string   `gorm:"size:255" json:"user_agent"`
	IPAddress *string   `gorm:"size:45" json:"ip_address"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (Session) TableName() string {
	return "sessions"
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// ActivityLog represents activity_logs table. Append-only: no code
// path updates or deletes rows once written.
type ActivityLog struct {
	ID           uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	UserID       *uuid.UUID `gorm:"type:char(36);index" json:"user_id"`
	ActivityType string     `gorm:"size:100;not null;index" json:"activity_type"`
	Description  string     `gorm:"type:text" json:"description"`
	IPAddress    *string    `gorm:"size:45" json:"ip_address"`
	UserAgent    *string    `gorm:"type:text" json:"user_agent"`
	CreatedAt    time.Time  `gorm:"autoCreateTime;index" json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}

func (a *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// APIKey represents api_keys table
type APIKey struct {
	ID        uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:char(36);index;not null" json:"user_id"`
	KeyHash   string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	IsActive  bool       `gorm:"default:true;not null" json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	User        *User        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Permissions []Permission `gorm:"many2many:api_key_permissions;constraint:OnDelete:CASCADE" json:"permissions,omitempty"`
}

func (APIKey) TableName() string {
	return "api_keys"
}

func (k *APIKey) BeforeCreate(tx *gorm.DB) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	return nil
}

func (k *APIKey) IsExpired() bool {
	return k.ExpiresAt != nil && time.Now().After(*k.ExpiresAt)
}

// HasPermission checks the key's granted set by exact name
func (k *APIKey) HasPermission(name string) bool {
	for _, p := range k.Permissions {
		if p.Name == name {
			return true
		}
	}
	return false
}

// KYC verification statuses
const (
	KYCStatusPending  = "pending"
	KYCStatusApproved = "approved"
	KYCStatusRejected = "rejected"
)

// KYCVerification represents kyc_verifications table. Each submission
// is a new row - history is kept, never overwritten.
type KYCVerification struct {
	ID           uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	UserID       uuid.UUID  `gorm:"type:char(36);index;not null" json:"user_id"`
	DocumentType string     `gorm:"size:50;not null" json:"document_type"`
	DocumentRef  string     `gorm:"size:255;not null" json:"document_ref"`
	Status       string     `gorm:"size:20;default:'pending';index" json:"status"`
	ReviewedBy   *uuid.UUID `gorm:"type:char(36)" json:"reviewed_by"`
	Note         string     `gorm:"type:text" json:"note"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (KYCVerification) TableName() string {
	return "kyc_verifications"
}

func (k *KYCVerification) BeforeCreate(tx *gorm.DB) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	return nil
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all identity tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Staff{},
		&Permission{},
		&Session{},
		&ActivityLog{},
		&APIKey{},
		&KYCVerification{},
	)
}
