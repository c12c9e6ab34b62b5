// Package models contains domain entities and business models for the account backend
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Account is the single polymorphic user entity; the kind (company or
// self_employed) lives in AccountType. The unique index on business_email is
// global across kinds and is the authoritative guard against duplicate
// signups — application-level pre-checks are best-effort only.
type Account struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	UUID          uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:uk_accounts_uuid" json:"uuid"`
	AccountTypeID uint        `gorm:"not null;index:idx_accounts_account_type_id" json:"account_type_id"`
	AccountType   AccountType `gorm:"foreignKey:AccountTypeID;references:ID" json:"account_type,omitempty"`

	// BusinessEmail is stored lower-cased; writers must normalize first.
	BusinessEmail string `gorm:"size:255;not null;uniqueIndex:uk_accounts_business_email" json:"business_email"`
	PasswordHash  string `gorm:"size:255;not null" json:"-"` // Never serialize password hash

	// Active defaults to false and flips to true exactly once, on a verified
	// payment event. There is no deactivation path.
	Active      *bool      `gorm:"default:false;index:idx_accounts_active" json:"active"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`

	// Profile is an opaque key-value payload; the schema is not enforced
	// beyond the uniqueness key.
	Profile json.RawMessage `gorm:"type:jsonb" json:"profile,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_accounts_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	AuditLogs []AuditLog `gorm:"foreignKey:AccountID" json:"-"`
}

func (Account) TableName() string {
	return "accounts"
}

// AccountFilter represents filter criteria for account queries
type AccountFilter struct {
	ID              *uint
	UUID            *uuid.UUID
	AccountTypeID   *uint
	AccountTypeName *string
	BusinessEmail   *string
	Active          *bool
	CreatedAfter    *time.Time
	CreatedBefore   *time.Time
}

func (a *Account) IsCompany() bool {
	return a.AccountType.TypeName == AccountTypeCompany
}

func (a *Account) IsSelfEmployed() bool {
	return a.AccountType.TypeName == AccountTypeSelfEmployed
}

func (a *Account) IsActive() bool {
	return a.Active != nil && *a.Active
}
