// Package tests contains integration tests for the account service flows
package tests

import (
	"context"
	"testing"

	"github.com/Icekid35/elementor-node-backend/app/dto"
	businessflow "github.com/Icekid35/elementor-node-backend/business_flow"
	"github.com/Icekid35/elementor-node-backend/models"
	"github.com/Icekid35/elementor-node-backend/repository"
	testingutil "github.com/Icekid35/elementor-node-backend/testing"
	"github.com/Icekid35/elementor-node-backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		accountRepo := repository.NewAccountRepository(testDB.DB)
		auditRepo := repository.NewAuditLogRepository(testDB.DB)

		tokenService := newTestTokenService(t)

		loginFlow := businessflow.NewLoginFlow(
			accountRepo,
			auditRepo,
			tokenService,
			testDB.DB,
		)

		company, err := fixtures.CreateTestAccountWithEmail(models.AccountTypeCompany, "login.company@example.com")
		require.NoError(t, err)

		_, err = fixtures.CreateTestAccountWithEmail(models.AccountTypeSelfEmployed, "login.freelancer@example.com")
		require.NoError(t, err)

		t.Run("SuccessfulCompanyLogin", func(t *testing.T) {
			req := &dto.LoginRequest{
				BusinessEmail: "login.company@example.com",
				Password:      testingutil.TestPassword,
			}

			result, err := loginFlow.Login(context.Background(), req, testMetadata())
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.NotEmpty(t, result.AccessToken)
			assert.NotEmpty(t, result.RefreshToken)
			assert.Equal(t, "Bearer", result.TokenType)
			assert.Equal(t, models.AccountTypeCompany, result.AccountType)
			assert.Equal(t, company.ID, result.Account.ID)

			// Verify audit log was created
			auditLogs, err := auditRepo.ByFilter(context.Background(), models.AuditLogFilter{
				AccountID: &company.ID,
				Action:    utils.ToPtr(models.AuditActionLoginSuccess),
			}, "", 0, 0)
			require.NoError(t, err)
			require.Len(t, auditLogs, 1)
		})

		t.Run("LoginSpansBothKinds", func(t *testing.T) {
			// A single login endpoint serves both kinds; the matched kind is
			// echoed back.
			req := &dto.LoginRequest{
				BusinessEmail: "login.freelancer@example.com",
				Password:      testingutil.TestPassword,
			}

			result, err := loginFlow.Login(context.Background(), req, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, models.AccountTypeSelfEmployed, result.AccountType)
		})

		t.Run("CaseInsensitiveEmailLookup", func(t *testing.T) {
			req := &dto.LoginRequest{
				BusinessEmail: "Login.Company@Example.COM",
				Password:      testingutil.TestPassword,
			}

			result, err := loginFlow.Login(context.Background(), req, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, company.ID, result.Account.ID)
		})

		t.Run("WrongPassword", func(t *testing.T) {
			req := &dto.LoginRequest{
				BusinessEmail: "login.company@example.com",
				Password:      "WrongPass123",
			}

			result, err := loginFlow.Login(context.Background(), req, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsInvalidCredentials(err))
		})

		t.Run("UnknownEmail", func(t *testing.T) {
			// Unknown accounts and wrong passwords are indistinguishable.
			req := &dto.LoginRequest{
				BusinessEmail: "nobody@example.com",
				Password:      testingutil.TestPassword,
			}

			result, err := loginFlow.Login(context.Background(), req, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsInvalidCredentials(err))
		})

		t.Run("InactiveAccountCanLogin", func(t *testing.T) {
			// Activation gates nothing at login time; payment status and
			// authentication are independent.
			assert.False(t, company.IsActive())

			req := &dto.LoginRequest{
				BusinessEmail: "login.company@example.com",
				Password:      testingutil.TestPassword,
			}

			result, err := loginFlow.Login(context.Background(), req, testMetadata())
			require.NoError(t, err)
			require.NotNil(t, result)
		})

		return nil
	})
	require.NoError(t, err)
}
