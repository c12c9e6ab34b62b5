// Package models contains domain entities and business models for the account backend
package models

import (
	"time"
)

type AccountType struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TypeName    string    `gorm:"size:30;not null;uniqueIndex" json:"type_name"`
	DisplayName string    `gorm:"size:50;not null" json:"display_name"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (AccountType) TableName() string {
	return "account_types"
}

// Account type constants
const (
	AccountTypeCompany      = "company"
	AccountTypeSelfEmployed = "self_employed"
)

// AccountTypeNames lists every kind the platform accepts, in seed order.
var AccountTypeNames = []string{AccountTypeCompany, AccountTypeSelfEmployed}

// IsValidAccountTypeName reports whether the given kind is one the platform accepts.
func IsValidAccountTypeName(name string) bool {
	return name == AccountTypeCompany || name == AccountTypeSelfEmployed
}

// AccountTypeDisplayName returns the human-readable label for a kind.
func AccountTypeDisplayName(name string) string {
	switch name {
	case AccountTypeCompany:
		return "Company"
	case AccountTypeSelfEmployed:
		return "Self-Employed"
	default:
		return name
	}
}

// AccountTypeFilter represents filter criteria for account type queries
type AccountTypeFilter struct {
	ID            *uint
	TypeName      *string
	DisplayName   *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
