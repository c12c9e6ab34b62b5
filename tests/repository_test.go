// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"context"
	"testing"

	"github.com/Icekid35/elementor-node-backend/models"
	"github.com/Icekid35/elementor-node-backend/repository"
	testingutil "github.com/Icekid35/elementor-node-backend/testing"
	"github.com/Icekid35/elementor-node-backend/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		accountRepo := repository.NewAccountRepository(testDB.DB)

		t.Run("SaveAndByEmail", func(t *testing.T) {
			account, err := fixtures.CreateTestAccountWithEmail(models.AccountTypeCompany, "repo.company@example.com")
			require.NoError(t, err)

			found, err := accountRepo.ByEmail(context.Background(), "repo.company@example.com")
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, account.ID, found.ID)
			assert.Equal(t, models.AccountTypeCompany, found.AccountType.TypeName)
		})

		t.Run("ByEmailCaseInsensitive", func(t *testing.T) {
			found, err := accountRepo.ByEmail(context.Background(), "  Repo.Company@EXAMPLE.com ")
			require.NoError(t, err)
			require.NotNil(t, found)
		})

		t.Run("ByEmailMissingReturnsNil", func(t *testing.T) {
			found, err := accountRepo.ByEmail(context.Background(), "absent@example.com")
			require.NoError(t, err)
			assert.Nil(t, found)
		})

		t.Run("ByEmailAndTypeScopesKind", func(t *testing.T) {
			found, err := accountRepo.ByEmailAndType(context.Background(), "repo.company@example.com", models.AccountTypeSelfEmployed)
			require.NoError(t, err)
			assert.Nil(t, found)

			found, err = accountRepo.ByEmailAndType(context.Background(), "repo.company@example.com", models.AccountTypeCompany)
			require.NoError(t, err)
			require.NotNil(t, found)
		})

		t.Run("DuplicateEmailTranslatedToErrDuplicateKey", func(t *testing.T) {
			var accountType models.AccountType
			require.NoError(t, testDB.DB.Where("type_name = ?", models.AccountTypeSelfEmployed).Last(&accountType).Error)

			dup := &models.Account{
				UUID:          uuid.New(),
				AccountTypeID: accountType.ID,
				BusinessEmail: "repo.company@example.com",
				PasswordHash:  "irrelevant",
				Active:        utils.ToPtr(false),
			}

			err := accountRepo.Save(context.Background(), dup)
			require.Error(t, err)
			assert.ErrorIs(t, err, repository.ErrDuplicateKey)
		})

		t.Run("SetActiveIsIdempotent", func(t *testing.T) {
			account, err := fixtures.CreateTestAccountWithEmail(models.AccountTypeSelfEmployed, "repo.activate@example.com")
			require.NoError(t, err)
			require.False(t, account.IsActive())

			require.NoError(t, accountRepo.SetActive(context.Background(), account.ID))

			activated, err := accountRepo.ByID(context.Background(), account.ID)
			require.NoError(t, err)
			require.True(t, activated.IsActive())
			require.NotNil(t, activated.ActivatedAt)
			firstActivatedAt := *activated.ActivatedAt

			// Activating again must not move the activation timestamp
			require.NoError(t, accountRepo.SetActive(context.Background(), account.ID))

			again, err := accountRepo.ByID(context.Background(), account.ID)
			require.NoError(t, err)
			require.NotNil(t, again.ActivatedAt)
			assert.True(t, again.ActivatedAt.Equal(firstActivatedAt))
		})

		t.Run("ListAllPreloadsKind", func(t *testing.T) {
			accounts, err := accountRepo.ListAll(context.Background())
			require.NoError(t, err)
			require.NotEmpty(t, accounts)
			for _, a := range accounts {
				assert.NotEmpty(t, a.AccountType.TypeName)
			}
		})

		t.Run("DeleteRemovesRow", func(t *testing.T) {
			account, err := fixtures.CreateTestAccountWithEmail(models.AccountTypeCompany, "repo.delete@example.com")
			require.NoError(t, err)

			require.NoError(t, accountRepo.Delete(context.Background(), account))

			found, err := accountRepo.ByEmail(context.Background(), "repo.delete@example.com")
			require.NoError(t, err)
			assert.Nil(t, found)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestPaymentEventRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		eventRepo := repository.NewPaymentEventRepository(testDB.DB)

		t.Run("SaveAndByEventID", func(t *testing.T) {
			event, err := fixtures.CreateTestPaymentEvent("evt_repo_1", "checkout.session.completed", "payer@example.com")
			require.NoError(t, err)

			found, err := eventRepo.ByEventID(context.Background(), "evt_repo_1")
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, event.ID, found.ID)
			assert.Equal(t, models.PaymentEventStatusReceived, found.Status)
		})

		t.Run("DuplicateEventIDRejected", func(t *testing.T) {
			dup := &models.PaymentEvent{
				EventID:   "evt_repo_1",
				EventType: "checkout.session.completed",
				Status:    models.PaymentEventStatusReceived,
			}

			err := eventRepo.Save(context.Background(), dup)
			require.Error(t, err)
			assert.ErrorIs(t, err, repository.ErrDuplicateKey)
		})

		t.Run("MarkStatus", func(t *testing.T) {
			require.NoError(t, eventRepo.MarkStatus(context.Background(), "evt_repo_1", models.PaymentEventStatusProcessed, nil))

			found, err := eventRepo.ByEventID(context.Background(), "evt_repo_1")
			require.NoError(t, err)
			assert.Equal(t, models.PaymentEventStatusProcessed, found.Status)
			assert.NotNil(t, found.ProcessedAt)
			assert.True(t, found.IsProcessed())
		})

		t.Run("MarkStatusWithError", func(t *testing.T) {
			_, err := fixtures.CreateTestPaymentEvent("evt_repo_2", "checkout.session.completed", "other@example.com")
			require.NoError(t, err)

			errMsg := "activation timed out"
			require.NoError(t, eventRepo.MarkStatus(context.Background(), "evt_repo_2", models.PaymentEventStatusFailed, &errMsg))

			found, err := eventRepo.ByEventID(context.Background(), "evt_repo_2")
			require.NoError(t, err)
			assert.Equal(t, models.PaymentEventStatusFailed, found.Status)
			require.NotNil(t, found.ErrorMessage)
			assert.Equal(t, errMsg, *found.ErrorMessage)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestAuditLogRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		auditRepo := repository.NewAuditLogRepository(testDB.DB)

		account, err := fixtures.CreateTestAccount(models.AccountTypeCompany)
		require.NoError(t, err)

		desc := "login from test"
		audit := &models.AuditLog{
			AccountID:   &account.ID,
			Action:      models.AuditActionLoginSuccess,
			Description: &desc,
			Success:     utils.ToPtr(true),
		}
		require.NoError(t, auditRepo.Save(context.Background(), audit))

		t.Run("ListByAccount", func(t *testing.T) {
			logs, err := auditRepo.ListByAccount(context.Background(), account.ID, 10, 0)
			require.NoError(t, err)
			require.Len(t, logs, 1)
			assert.Equal(t, models.AuditActionLoginSuccess, logs[0].Action)
		})

		t.Run("ListByAction", func(t *testing.T) {
			logs, err := auditRepo.ListByAction(context.Background(), models.AuditActionLoginSuccess, 10, 0)
			require.NoError(t, err)
			require.Len(t, logs, 1)
		})

		return nil
	})
	require.NoError(t, err)
}
