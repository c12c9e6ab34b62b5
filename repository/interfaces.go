// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/Icekid35/elementor-node-backend/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// AccountTypeRepository defines operations for account types
type AccountTypeRepository interface {
	Repository[models.AccountType, models.AccountTypeFilter]
	ByTypeName(ctx context.Context, typeName string) (*models.AccountType, error)
}

// AccountRepository defines operations for accounts of both kinds
type AccountRepository interface {
	Repository[models.Account, models.AccountFilter]
	// ByEmail matches on the normalized business email across both kinds.
	// Returns nil when no account matches.
	ByEmail(ctx context.Context, email string) (*models.Account, error)
	// ByEmailAndType matches on the normalized business email within a
	// single kind. Returns nil when no account matches.
	ByEmailAndType(ctx context.Context, email, typeName string) (*models.Account, error)
	ByUUID(ctx context.Context, accountUUID string) (*models.Account, error)
	ListAll(ctx context.Context) ([]*models.Account, error)
	Update(ctx context.Context, account *models.Account) error
	Delete(ctx context.Context, account *models.Account) error
	// SetActive flips the activation flag to true. Safe to call on an
	// already-active account.
	SetActive(ctx context.Context, accountID uint) error
}

// PaymentEventRepository defines operations for payment webhook events
type PaymentEventRepository interface {
	Repository[models.PaymentEvent, models.PaymentEventFilter]
	ByEventID(ctx context.Context, eventID string) (*models.PaymentEvent, error)
	MarkStatus(ctx context.Context, eventID, status string, errMessage *string) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByAccount(ctx context.Context, accountID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
}
