// Package businessflow contains the core business logic and use cases for account workflows
package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/Icekid35/elementor-node-backend/app/dto"
	"github.com/Icekid35/elementor-node-backend/app/services"
	"github.com/Icekid35/elementor-node-backend/models"
	"github.com/Icekid35/elementor-node-backend/repository"
	"github.com/Icekid35/elementor-node-backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SignupFlow handles the complete signup business logic
type SignupFlow interface {
	Signup(ctx context.Context, accountTypeName string, req *dto.SignupRequest, metadata *ClientMetadata) (*dto.SignupResponse, error)
}

// SignupFlowImpl implements the signup business flow
type SignupFlowImpl struct {
	accountRepo     repository.AccountRepository
	accountTypeRepo repository.AccountTypeRepository
	auditRepo       repository.AuditLogRepository
	tokenService    services.TokenService
	bcryptCost      int
	db              *gorm.DB
}

// NewSignupFlow creates a new signup flow instance
func NewSignupFlow(
	accountRepo repository.AccountRepository,
	accountTypeRepo repository.AccountTypeRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	bcryptCost int,
	db *gorm.DB,
) SignupFlow {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &SignupFlowImpl{
		accountRepo:     accountRepo,
		accountTypeRepo: accountTypeRepo,
		auditRepo:       auditRepo,
		tokenService:    tokenService,
		bcryptCost:      bcryptCost,
		db:              db,
	}
}

// Signup registers a new account of the given kind. The account starts
// inactive; activation happens later through the payment webhook.
func (s *SignupFlowImpl) Signup(ctx context.Context, accountTypeName string, req *dto.SignupRequest, metadata *ClientMetadata) (*dto.SignupResponse, error) {
	if !models.IsValidAccountTypeName(accountTypeName) {
		return nil, NewBusinessError("SIGNUP_VALIDATION_FAILED", "Signup validation failed", ErrInvalidAccountType)
	}

	// Best-effort pre-check; the unique index on business_email is the
	// authoritative guard under concurrency.
	existing, err := s.accountRepo.ByEmail(ctx, req.BusinessEmail)
	if err != nil {
		return nil, NewBusinessError("SIGNUP_FAILED", "Signup failed", err)
	}
	if existing != nil {
		return nil, NewBusinessError("SIGNUP_VALIDATION_FAILED", "Signup validation failed", ErrEmailAlreadyExists)
	}

	var account *models.Account

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		var err error
		account, err = s.createAccount(txCtx, accountTypeName, req)
		return err
	})

	if err != nil {
		// A concurrent signup may slip past the pre-check; the constraint
		// violation surfaces here.
		if errors.Is(err, repository.ErrDuplicateKey) {
			err = ErrEmailAlreadyExists
		}

		errMsg := fmt.Sprintf("Signup failed: %s", err.Error())
		_ = s.createAuditLog(ctx, account, models.AuditActionSignupFailed, errMsg, false, &errMsg, metadata)

		if IsEmailAlreadyExists(err) {
			return nil, NewBusinessError("SIGNUP_VALIDATION_FAILED", "Signup validation failed", err)
		}
		return nil, NewBusinessError("SIGNUP_FAILED", "Signup failed", err)
	}

	msg := fmt.Sprintf("Signup completed successfully: %d", account.ID)
	_ = s.createAuditLog(ctx, account, models.AuditActionSignupCompleted, msg, true, nil, metadata)

	accessToken, refreshToken, err := s.tokenService.GenerateTokens(account.ID)
	if err != nil {
		return nil, NewBusinessError("SIGNUP_FAILED", "Signup failed", err)
	}

	return &dto.SignupResponse{
		Message:      "Signup completed successfully",
		Account:      ToAccountDTO(*account),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    utils.AccessTokenTTLSeconds,
	}, nil
}

// Private helper methods

func (s *SignupFlowImpl) createAccount(ctx context.Context, accountTypeName string, req *dto.SignupRequest) (*models.Account, error) {
	// Get account type
	accountType, err := s.accountTypeRepo.ByTypeName(ctx, accountTypeName)
	if err != nil {
		return nil, err
	}
	if accountType == nil {
		return nil, ErrAccountTypeNotFound
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	var profile json.RawMessage
	if len(req.Profile) > 0 {
		profile, err = json.Marshal(req.Profile)
		if err != nil {
			return nil, err
		}
	}

	account := &models.Account{
		UUID:          uuid.New(),
		AccountTypeID: accountType.ID,
		BusinessEmail: utils.NormalizeEmail(req.BusinessEmail),
		PasswordHash:  string(hashedPassword),
		Active:        utils.ToPtr(false),
		Profile:       profile,
	}

	err = s.accountRepo.Save(ctx, account)
	if err != nil {
		return nil, err
	}

	account.AccountType = *accountType
	return account, nil
}

func (s *SignupFlowImpl) createAuditLog(ctx context.Context, account *models.Account, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	var accountID *uint
	if account != nil {
		accountID = &account.ID
	}

	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		AccountID:    accountID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}

	// Extract request ID from context if available
	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	return s.auditRepo.Save(ctx, audit)
}
