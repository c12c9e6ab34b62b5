package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/Icekid35/elementor-node-backend/app/dto"
	businessflow "github.com/Icekid35/elementor-node-backend/business_flow"
	"github.com/Icekid35/elementor-node-backend/models"
	"github.com/Icekid35/elementor-node-backend/repository"
	testingutil "github.com/Icekid35/elementor-node-backend/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestProfileFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		accountRepo := repository.NewAccountRepository(testDB.DB)
		auditRepo := repository.NewAuditLogRepository(testDB.DB)

		profileFlow := businessflow.NewProfileFlow(accountRepo, auditRepo, testDB.DB)

		company, err := fixtures.CreateTestAccountWithEmail(models.AccountTypeCompany, "profile.company@example.com")
		require.NoError(t, err)

		_, err = fixtures.CreateTestAccountWithEmail(models.AccountTypeSelfEmployed, "profile.freelancer@example.com")
		require.NoError(t, err)

		t.Run("GetProfile", func(t *testing.T) {
			res, err := profileFlow.GetProfile(context.Background(), models.AccountTypeCompany, "profile.company@example.com")
			require.NoError(t, err)
			require.NotNil(t, res)
			assert.Equal(t, company.ID, res.Account.ID)
			assert.Equal(t, models.AccountTypeCompany, res.Account.AccountType)
		})

		t.Run("GetProfileKindScoped", func(t *testing.T) {
			// A self-employed account is invisible through the company kind.
			res, err := profileFlow.GetProfile(context.Background(), models.AccountTypeCompany, "profile.freelancer@example.com")
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, businessflow.IsAccountNotFound(err))

			var businessErr *businessflow.BusinessError
			require.ErrorAs(t, err, &businessErr)
			assert.Equal(t, "Company not found", businessErr.Message)
		})

		t.Run("GetProfileSelfEmployedNotFoundMessage", func(t *testing.T) {
			res, err := profileFlow.GetProfile(context.Background(), models.AccountTypeSelfEmployed, "nobody@example.com")
			require.Error(t, err)
			assert.Nil(t, res)

			var businessErr *businessflow.BusinessError
			require.ErrorAs(t, err, &businessErr)
			assert.Equal(t, "Self-employed account not found", businessErr.Message)
		})

		t.Run("GetProfileInvalidKind", func(t *testing.T) {
			res, err := profileFlow.GetProfile(context.Background(), "agency", "profile.company@example.com")
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, businessflow.IsInvalidAccountType(err))
		})

		t.Run("UpdateProfileMergesFields", func(t *testing.T) {
			req := &dto.UpdateProfileRequest{
				BusinessEmail: "profile.company@example.com",
				AccountType:   models.AccountTypeCompany,
				Updates: map[string]any{
					"city":  "Hamburg",
					"phone": "+4930123456",
				},
			}

			res, err := profileFlow.UpdateProfile(context.Background(), req, testMetadata())
			require.NoError(t, err)
			require.NotNil(t, res)

			var profile map[string]any
			require.NoError(t, json.Unmarshal(res.Account.Profile, &profile))
			// The fixture's "name" survives the merge
			assert.Equal(t, "Test Account", profile["name"])
			assert.Equal(t, "Hamburg", profile["city"])
			assert.Equal(t, "+4930123456", profile["phone"])
		})

		t.Run("UpdateProfileNullRemovesField", func(t *testing.T) {
			req := &dto.UpdateProfileRequest{
				BusinessEmail: "profile.company@example.com",
				AccountType:   models.AccountTypeCompany,
				Updates: map[string]any{
					"phone": nil,
				},
			}

			res, err := profileFlow.UpdateProfile(context.Background(), req, testMetadata())
			require.NoError(t, err)

			var profile map[string]any
			require.NoError(t, json.Unmarshal(res.Account.Profile, &profile))
			_, exists := profile["phone"]
			assert.False(t, exists)
			assert.Equal(t, "Hamburg", profile["city"])
		})

		t.Run("UpdateProfileUnknownAccount", func(t *testing.T) {
			req := &dto.UpdateProfileRequest{
				BusinessEmail: "nobody@example.com",
				AccountType:   models.AccountTypeCompany,
				Updates:       map[string]any{"city": "Munich"},
			}

			res, err := profileFlow.UpdateProfile(context.Background(), req, testMetadata())
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, businessflow.IsAccountNotFound(err))
		})

		t.Run("ListAccountsPartitionsByKind", func(t *testing.T) {
			res, err := profileFlow.ListAccounts(context.Background())
			require.NoError(t, err)
			require.NotNil(t, res)
			require.Len(t, res.Companies, 1)
			require.Len(t, res.SelfEmployed, 1)
			assert.Equal(t, "profile.company@example.com", res.Companies[0].BusinessEmail)
			assert.Equal(t, "profile.freelancer@example.com", res.SelfEmployed[0].BusinessEmail)
		})

		t.Run("ExportAccountsProducesWorkbook", func(t *testing.T) {
			data, err := profileFlow.ExportAccounts(context.Background())
			require.NoError(t, err)
			require.NotEmpty(t, data)

			xl, err := excelize.OpenReader(bytes.NewReader(data))
			require.NoError(t, err)
			defer xl.Close()

			sheets := xl.GetSheetList()
			assert.Contains(t, sheets, "Companies")
			assert.Contains(t, sheets, "Self-Employed")

			rows, err := xl.GetRows("Companies")
			require.NoError(t, err)
			// Header plus one company account
			require.Len(t, rows, 2)
			assert.Contains(t, rows[1], "profile.company@example.com")
		})

		t.Run("DeleteAccount", func(t *testing.T) {
			req := &dto.DeleteAccountRequest{
				BusinessEmail: "profile.freelancer@example.com",
				AccountType:   models.AccountTypeSelfEmployed,
			}

			err := profileFlow.DeleteAccount(context.Background(), req, testMetadata())
			require.NoError(t, err)

			account, err := accountRepo.ByEmail(context.Background(), "profile.freelancer@example.com")
			require.NoError(t, err)
			assert.Nil(t, account)
		})

		t.Run("DeleteAccountTwice", func(t *testing.T) {
			req := &dto.DeleteAccountRequest{
				BusinessEmail: "profile.freelancer@example.com",
				AccountType:   models.AccountTypeSelfEmployed,
			}

			err := profileFlow.DeleteAccount(context.Background(), req, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsAccountNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}
