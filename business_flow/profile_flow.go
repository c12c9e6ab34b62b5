package businessflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/Icekid35/elementor-node-backend/app/dto"
	"github.com/Icekid35/elementor-node-backend/models"
	"github.com/Icekid35/elementor-node-backend/repository"
	"github.com/Icekid35/elementor-node-backend/utils"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type ProfileFlow interface {
	GetProfile(ctx context.Context, accountTypeName, businessEmail string) (*dto.GetProfileResponse, error)
	UpdateProfile(ctx context.Context, req *dto.UpdateProfileRequest, metadata *ClientMetadata) (*dto.GetProfileResponse, error)
	DeleteAccount(ctx context.Context, req *dto.DeleteAccountRequest, metadata *ClientMetadata) error
	ListAccounts(ctx context.Context) (*dto.AccountListResponse, error)
	ExportAccounts(ctx context.Context) ([]byte, error)
}

type ProfileFlowImpl struct {
	accountRepo repository.AccountRepository
	auditRepo   repository.AuditLogRepository
	db          *gorm.DB
}

func NewProfileFlow(accountRepo repository.AccountRepository, auditRepo repository.AuditLogRepository, db *gorm.DB) ProfileFlow {
	return &ProfileFlowImpl{
		accountRepo: accountRepo,
		auditRepo:   auditRepo,
		db:          db,
	}
}

// GetProfile fetches one account scoped to its kind. Requesting a
// self-employed account through the company kind is a miss, not a match.
func (f *ProfileFlowImpl) GetProfile(ctx context.Context, accountTypeName, businessEmail string) (*dto.GetProfileResponse, error) {
	if !models.IsValidAccountTypeName(accountTypeName) {
		return nil, NewBusinessError("INVALID_ACCOUNT_TYPE", "Invalid account type", ErrInvalidAccountType)
	}

	account, err := f.accountRepo.ByEmailAndType(ctx, businessEmail, accountTypeName)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_FETCH_FAILED", "Failed to fetch account", err)
	}
	if account == nil {
		return nil, NewBusinessError("ACCOUNT_NOT_FOUND", notFoundMessage(accountTypeName), ErrAccountNotFound)
	}

	return &dto.GetProfileResponse{
		Message: "Profile retrieved",
		Account: ToAccountDTO(*account),
	}, nil
}

// UpdateProfile merges the submitted fields into the stored profile payload.
// The business email and kind are identifiers here and stay immutable.
func (f *ProfileFlowImpl) UpdateProfile(ctx context.Context, req *dto.UpdateProfileRequest, metadata *ClientMetadata) (*dto.GetProfileResponse, error) {
	if !models.IsValidAccountTypeName(req.AccountType) {
		return nil, NewBusinessError("INVALID_ACCOUNT_TYPE", "Invalid account type", ErrInvalidAccountType)
	}

	var account *models.Account

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		var err error
		account, err = f.accountRepo.ByEmailAndType(txCtx, req.BusinessEmail, req.AccountType)
		if err != nil {
			return err
		}
		if account == nil {
			return ErrAccountNotFound
		}

		merged := make(map[string]any)
		if len(account.Profile) > 0 {
			if err := json.Unmarshal(account.Profile, &merged); err != nil {
				// A corrupt stored profile should not block the update.
				merged = make(map[string]any)
			}
		}
		for k, v := range req.Updates {
			if v == nil {
				delete(merged, k)
				continue
			}
			merged[k] = v
		}

		profile, err := json.Marshal(merged)
		if err != nil {
			return err
		}
		account.Profile = profile

		return f.accountRepo.Update(txCtx, account)
	})

	if err != nil {
		if IsAccountNotFound(err) {
			return nil, NewBusinessError("ACCOUNT_NOT_FOUND", notFoundMessage(req.AccountType), err)
		}
		return nil, NewBusinessError("PROFILE_UPDATE_FAILED", "Profile update failed", err)
	}

	msg := fmt.Sprintf("Profile updated: %d", account.ID)
	_ = f.createAuditLog(ctx, &account.ID, models.AuditActionProfileUpdated, msg, true, nil, metadata)

	return &dto.GetProfileResponse{
		Message: "Profile updated",
		Account: ToAccountDTO(*account),
	}, nil
}

// DeleteAccount removes an account permanently, scoped to its kind
func (f *ProfileFlowImpl) DeleteAccount(ctx context.Context, req *dto.DeleteAccountRequest, metadata *ClientMetadata) error {
	if !models.IsValidAccountTypeName(req.AccountType) {
		return NewBusinessError("INVALID_ACCOUNT_TYPE", "Invalid account type", ErrInvalidAccountType)
	}

	var accountID uint

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		account, err := f.accountRepo.ByEmailAndType(txCtx, req.BusinessEmail, req.AccountType)
		if err != nil {
			return err
		}
		if account == nil {
			return ErrAccountNotFound
		}

		accountID = account.ID
		return f.accountRepo.Delete(txCtx, account)
	})

	if err != nil {
		if IsAccountNotFound(err) {
			return NewBusinessError("ACCOUNT_NOT_FOUND", notFoundMessage(req.AccountType), err)
		}
		return NewBusinessError("ACCOUNT_DELETE_FAILED", "Account deletion failed", err)
	}

	msg := fmt.Sprintf("Account deleted: %d", accountID)
	_ = f.createAuditLog(ctx, nil, models.AuditActionAccountDeleted, msg, true, nil, metadata)

	return nil
}

// ListAccounts returns every account partitioned by kind
func (f *ProfileFlowImpl) ListAccounts(ctx context.Context) (*dto.AccountListResponse, error) {
	accounts, err := f.accountRepo.ListAll(ctx)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_LIST_FAILED", "Failed to list accounts", err)
	}

	resp := &dto.AccountListResponse{
		Message:      "Accounts retrieved",
		Companies:    []dto.AccountDTO{},
		SelfEmployed: []dto.AccountDTO{},
	}

	for _, account := range accounts {
		d := ToAccountDTO(*account)
		switch account.AccountType.TypeName {
		case models.AccountTypeCompany:
			resp.Companies = append(resp.Companies, d)
		case models.AccountTypeSelfEmployed:
			resp.SelfEmployed = append(resp.SelfEmployed, d)
		}
	}

	return resp, nil
}

// ExportAccounts renders every account as an XLSX workbook, one sheet per kind
func (f *ProfileFlowImpl) ExportAccounts(ctx context.Context) ([]byte, error) {
	accounts, err := f.accountRepo.ListAll(ctx)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_EXPORT_FAILED", "Failed to export accounts", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheetByType := map[string]string{
		models.AccountTypeCompany:      "Companies",
		models.AccountTypeSelfEmployed: "Self-Employed",
	}

	header := []string{"id", "uuid", "business_email", "account_type", "active", "activated_at", "created_at"}
	nextRow := map[string]int{}

	for i, typeName := range models.AccountTypeNames {
		name := sheetByType[typeName]
		if i == 0 {
			// Rename default sheet
			xl.SetSheetName(xl.GetSheetName(0), name)
		} else {
			_, _ = xl.NewSheet(name)
		}
		_ = xl.SetSheetRow(name, "A1", &header)
		nextRow[typeName] = 2
	}

	for _, account := range accounts {
		typeName := account.AccountType.TypeName
		name, ok := sheetByType[typeName]
		if !ok {
			continue
		}

		activatedAt := ""
		if account.ActivatedAt != nil {
			activatedAt = account.ActivatedAt.UTC().Format("2006-01-02 15:04:05")
		}

		row := []any{
			account.ID,
			account.UUID.String(),
			account.BusinessEmail,
			typeName,
			account.IsActive(),
			activatedAt,
			account.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		}

		cellRef, _ := excelize.CoordinatesToCellName(1, nextRow[typeName])
		_ = xl.SetSheetRow(name, cellRef, &row)
		nextRow[typeName]++
	}

	var buf bytes.Buffer
	if err := xl.Write(&buf); err != nil {
		return nil, NewBusinessError("ACCOUNT_EXPORT_FAILED", "Failed to export accounts", err)
	}

	return buf.Bytes(), nil
}

func notFoundMessage(accountTypeName string) string {
	if accountTypeName == models.AccountTypeCompany {
		return "Company not found"
	}
	return "Self-employed account not found"
}

func (f *ProfileFlowImpl) createAuditLog(ctx context.Context, accountID *uint, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
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

	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		if requestIDStr, ok := requestID.(string); ok {
			audit.RequestID = &requestIDStr
		}
	}

	return f.auditRepo.Save(ctx, audit)
}
