package tests

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Icekid35/elementor-node-backend/app/dto"
	"github.com/Icekid35/elementor-node-backend/app/services"
	businessflow "github.com/Icekid35/elementor-node-backend/business_flow"
	"github.com/Icekid35/elementor-node-backend/models"
	"github.com/Icekid35/elementor-node-backend/repository"
	testingutil "github.com/Icekid35/elementor-node-backend/testing"
	"github.com/Icekid35/elementor-node-backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test-secret-key-which-is-long-enough"

func newTestTokenService(t *testing.T) services.TokenService {
	t.Helper()
	tokenService, err := services.NewTokenService(1*time.Hour, 24*time.Hour, "test-issuer", "test-audience", false, "", "", testJWTSecret)
	require.NoError(t, err)
	return tokenService
}

func testMetadata() *businessflow.ClientMetadata {
	return businessflow.NewClientMetadata("127.0.0.1", "test-agent")
}

func TestSignup(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		accountRepo := repository.NewAccountRepository(testDB.DB)
		accountTypeRepo := repository.NewAccountTypeRepository(testDB.DB)
		auditRepo := repository.NewAuditLogRepository(testDB.DB)

		tokenService := newTestTokenService(t)

		signupFlow := businessflow.NewSignupFlow(
			accountRepo,
			accountTypeRepo,
			auditRepo,
			tokenService,
			bcrypt.MinCost,
			testDB.DB,
		)

		t.Run("SuccessfulCompanySignup", func(t *testing.T) {
			req := &dto.SignupRequest{
				BusinessEmail:   "owner@acme.com",
				Password:        "SecurePass123",
				ConfirmPassword: "SecurePass123",
				Profile: map[string]any{
					"company_name": "Acme GmbH",
					"city":         "Berlin",
				},
			}

			result, err := signupFlow.Signup(context.Background(), models.AccountTypeCompany, req, testMetadata())
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.NotEmpty(t, result.AccessToken)
			assert.NotEmpty(t, result.RefreshToken)
			assert.Equal(t, "Bearer", result.TokenType)
			assert.Equal(t, utils.AccessTokenTTLSeconds, result.ExpiresIn)
			assert.Equal(t, models.AccountTypeCompany, result.Account.AccountType)
			assert.False(t, result.Account.Active)

			// Verify the stored account
			account, err := accountRepo.ByEmail(context.Background(), "owner@acme.com")
			require.NoError(t, err)
			require.NotNil(t, account)
			assert.Equal(t, "owner@acme.com", account.BusinessEmail)
			assert.NotEmpty(t, account.UUID)
			assert.False(t, account.IsActive())
			assert.Nil(t, account.ActivatedAt)

			// Password must be stored as a bcrypt hash, never plaintext
			assert.NotEqual(t, req.Password, account.PasswordHash)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)))

			// Verify audit log was created
			auditLogs, err := auditRepo.ByFilter(context.Background(), models.AuditLogFilter{
				AccountID: &account.ID,
				Action:    utils.ToPtr(models.AuditActionSignupCompleted),
			}, "", 0, 0)
			require.NoError(t, err)
			require.Len(t, auditLogs, 1)
		})

		t.Run("SuccessfulSelfEmployedSignup", func(t *testing.T) {
			req := &dto.SignupRequest{
				BusinessEmail:   "freelancer@example.com",
				Password:        "SecurePass123",
				ConfirmPassword: "SecurePass123",
			}

			result, err := signupFlow.Signup(context.Background(), models.AccountTypeSelfEmployed, req, testMetadata())
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, models.AccountTypeSelfEmployed, result.Account.AccountType)

			account, err := accountRepo.ByEmailAndType(context.Background(), "freelancer@example.com", models.AccountTypeSelfEmployed)
			require.NoError(t, err)
			require.NotNil(t, account)
			assert.False(t, account.IsActive())
		})

		t.Run("DuplicateEmailSameKind", func(t *testing.T) {
			req := &dto.SignupRequest{
				BusinessEmail:   "owner@acme.com",
				Password:        "AnotherPass123",
				ConfirmPassword: "AnotherPass123",
			}

			result, err := signupFlow.Signup(context.Background(), models.AccountTypeCompany, req, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsEmailAlreadyExists(err))
		})

		t.Run("DuplicateEmailAcrossKinds", func(t *testing.T) {
			// The uniqueness guard spans both kinds: a self-employed signup
			// cannot reuse a company email.
			req := &dto.SignupRequest{
				BusinessEmail:   "owner@acme.com",
				Password:        "AnotherPass123",
				ConfirmPassword: "AnotherPass123",
			}

			result, err := signupFlow.Signup(context.Background(), models.AccountTypeSelfEmployed, req, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsEmailAlreadyExists(err))
		})

		t.Run("DuplicateEmailCaseInsensitive", func(t *testing.T) {
			req := &dto.SignupRequest{
				BusinessEmail:   "OWNER@Acme.Com",
				Password:        "AnotherPass123",
				ConfirmPassword: "AnotherPass123",
			}

			result, err := signupFlow.Signup(context.Background(), models.AccountTypeCompany, req, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsEmailAlreadyExists(err))
		})

		t.Run("EmailNormalizedOnSignup", func(t *testing.T) {
			req := &dto.SignupRequest{
				BusinessEmail:   "  Mixed.Case@Example.COM  ",
				Password:        "SecurePass123",
				ConfirmPassword: "SecurePass123",
			}

			result, err := signupFlow.Signup(context.Background(), models.AccountTypeCompany, req, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, "mixed.case@example.com", result.Account.BusinessEmail)

			account, err := accountRepo.ByEmail(context.Background(), "mixed.case@example.com")
			require.NoError(t, err)
			require.NotNil(t, account)
			assert.Equal(t, strings.ToLower(strings.TrimSpace(req.BusinessEmail)), account.BusinessEmail)
		})

		t.Run("UnknownAccountType", func(t *testing.T) {
			req := &dto.SignupRequest{
				BusinessEmail:   "nobody@example.com",
				Password:        "SecurePass123",
				ConfirmPassword: "SecurePass123",
			}

			result, err := signupFlow.Signup(context.Background(), "agency", req, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
		})

		return nil
	})
	require.NoError(t, err)
}
