// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Icekid35/elementor-node-backend/models"
	"github.com/Icekid35/elementor-node-backend/utils"
	"gorm.io/gorm"
)

// AccountRepositoryImpl implements AccountRepository interface
type AccountRepositoryImpl struct {
	*BaseRepository[models.Account, models.AccountFilter]
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &AccountRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Account, models.AccountFilter](db),
	}
}

// ByEmail retrieves an account by its business email, across both kinds.
// The lookup is case-insensitive; stored emails are normalized at write time.
func (r *AccountRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.Account, error) {
	db := r.getDB(ctx)

	var account models.Account
	err := db.Preload("AccountType").
		Where("LOWER(business_email) = ?", utils.NormalizeEmail(email)).
		Last(&account).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find account by email: %w", err)
	}

	return &account, nil
}

// ByEmailAndType retrieves an account by business email within a single kind
func (r *AccountRepositoryImpl) ByEmailAndType(ctx context.Context, email, typeName string) (*models.Account, error) {
	db := r.getDB(ctx)

	var account models.Account
	err := db.Preload("AccountType").
		Joins("JOIN account_types ON accounts.account_type_id = account_types.id").
		Where("LOWER(accounts.business_email) = ?", utils.NormalizeEmail(email)).
		Where("account_types.type_name = ?", typeName).
		Last(&account).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find account by email and type: %w", err)
	}

	return &account, nil
}

// ByUUID retrieves an account by its UUID
func (r *AccountRepositoryImpl) ByUUID(ctx context.Context, accountUUID string) (*models.Account, error) {
	db := r.getDB(ctx)

	var account models.Account
	err := db.Preload("AccountType").
		Where("uuid = ?", accountUUID).
		Last(&account).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find account by UUID: %w", err)
	}

	return &account, nil
}

// ListAll retrieves every account with its kind preloaded
func (r *AccountRepositoryImpl) ListAll(ctx context.Context) ([]*models.Account, error) {
	db := r.getDB(ctx)

	var accounts []*models.Account
	err := db.Preload("AccountType").
		Order("id ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	return accounts, nil
}

// Update persists changes to an existing account
func (r *AccountRepositoryImpl) Update(ctx context.Context, account *models.Account) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	account.UpdatedAt = utils.UTCNow()
	err = db.Save(account).Error
	if err != nil {
		if isUniqueViolation(err) {
			err = fmt.Errorf("failed to update account: %w", ErrDuplicateKey)
			return err
		}
		err = fmt.Errorf("failed to update account: %w", err)
		return err
	}

	return nil
}

// Delete removes an account permanently
func (r *AccountRepositoryImpl) Delete(ctx context.Context, account *models.Account) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Delete(account).Error
	if err != nil {
		err = fmt.Errorf("failed to delete account: %w", err)
		return err
	}

	return nil
}

// SetActive marks an account as activated. The update is idempotent: an
// already-active account is left untouched, including its activation time.
func (r *AccountRepositoryImpl) SetActive(ctx context.Context, accountID uint) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Model(&models.Account{}).
		Where("id = ?", accountID).
		Where("active IS NOT TRUE").
		Updates(map[string]interface{}{
			"active":       true,
			"activated_at": utils.UTCNow(),
			"updated_at":   utils.UTCNow(),
		}).Error
	if err != nil {
		err = fmt.Errorf("failed to activate account: %w", err)
		return err
	}

	return nil
}

// ByFilter retrieves accounts based on filter criteria
func (r *AccountRepositoryImpl) ByFilter(ctx context.Context, filter models.AccountFilter, orderBy string, limit, offset int) ([]*models.Account, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Account{}), filter)

	// Apply ordering (default to id DESC)
	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	// Apply pagination
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var accounts []*models.Account
	err := query.Preload("AccountType").Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find accounts by filter: %w", err)
	}

	return accounts, nil
}

// Count returns the number of accounts matching the filter
func (r *AccountRepositoryImpl) Count(ctx context.Context, filter models.AccountFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Account{}), filter)

	var count int64
	err := query.Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	return count, nil
}

// Exists checks if any account matching the filter exists
func (r *AccountRepositoryImpl) Exists(ctx context.Context, filter models.AccountFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *AccountRepositoryImpl) applyFilter(query *gorm.DB, filter models.AccountFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("accounts.id = ?", *filter.ID)
	}

	if filter.UUID != nil {
		query = query.Where("accounts.uuid = ?", *filter.UUID)
	}

	if filter.AccountTypeID != nil {
		query = query.Where("accounts.account_type_id = ?", *filter.AccountTypeID)
	}

	if filter.AccountTypeName != nil {
		query = query.Joins("JOIN account_types ON accounts.account_type_id = account_types.id").
			Where("account_types.type_name = ?", *filter.AccountTypeName)
	}

	if filter.BusinessEmail != nil {
		query = query.Where("LOWER(accounts.business_email) = ?", utils.NormalizeEmail(*filter.BusinessEmail))
	}

	if filter.Active != nil {
		query = query.Where("accounts.active = ?", *filter.Active)
	}

	if filter.CreatedAfter != nil {
		query = query.Where("accounts.created_at >= ?", *filter.CreatedAfter)
	}

	if filter.CreatedBefore != nil {
		query = query.Where("accounts.created_at <= ?", *filter.CreatedBefore)
	}

	return query
}
