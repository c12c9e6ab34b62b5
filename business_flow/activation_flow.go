package businessflow

import (
	"context"
	"fmt"
	"log"

	"github.com/Icekid35/elementor-node-backend/models"
	"github.com/Icekid35/elementor-node-backend/repository"
	"github.com/Icekid35/elementor-node-backend/utils"
	"gorm.io/gorm"
)

// ActivationFlow flips an account to active after a verified payment
type ActivationFlow interface {
	Activate(ctx context.Context, customerEmail string) error
}

// ActivationFlowImpl implements the account activation flow
type ActivationFlowImpl struct {
	accountRepo repository.AccountRepository
	auditRepo   repository.AuditLogRepository
	db          *gorm.DB
}

// NewActivationFlow creates a new activation flow instance
func NewActivationFlow(
	accountRepo repository.AccountRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) ActivationFlow {
	return &ActivationFlowImpl{
		accountRepo: accountRepo,
		auditRepo:   auditRepo,
		db:          db,
	}
}

// Activate marks the account with the given email as active. The operation is
// idempotent: an already-active account and an unknown email both resolve
// without error, since the payment provider may redeliver events or reference
// customers that signed up elsewhere.
func (a *ActivationFlowImpl) Activate(ctx context.Context, customerEmail string) error {
	if customerEmail == "" {
		return ErrMissingCustomerEmail
	}

	email := utils.NormalizeEmail(customerEmail)

	account, err := a.accountRepo.ByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to look up account for activation: %w", err)
	}
	if account == nil {
		log.Printf("activation skipped: no account for email %s", email)
		return nil
	}
	if account.IsActive() {
		return nil
	}

	err = repository.WithTransaction(ctx, a.db, func(txCtx context.Context) error {
		return a.accountRepo.SetActive(txCtx, account.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to activate account %d: %w", account.ID, err)
	}

	desc := fmt.Sprintf("Account activated: %d", account.ID)
	audit := &models.AuditLog{
		AccountID:   &account.ID,
		Action:      models.AuditActionAccountActivated,
		Description: &desc,
		Success:     utils.ToPtr(true),
	}
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		audit.RequestID = &requestID
	}
	_ = a.auditRepo.Save(ctx, audit)

	return nil
}
