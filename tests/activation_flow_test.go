package tests

import (
	"context"
	"testing"

	businessflow "github.com/Icekid35/elementor-node-backend/business_flow"
	"github.com/Icekid35/elementor-node-backend/models"
	"github.com/Icekid35/elementor-node-backend/repository"
	testingutil "github.com/Icekid35/elementor-node-backend/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivationFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		accountRepo := repository.NewAccountRepository(testDB.DB)
		auditRepo := repository.NewAuditLogRepository(testDB.DB)
		activationFlow := businessflow.NewActivationFlow(accountRepo, auditRepo, testDB.DB)

		account, err := fixtures.CreateTestAccountWithEmail(models.AccountTypeCompany, "activate.me@example.com")
		require.NoError(t, err)
		require.False(t, account.IsActive())

		t.Run("MissingEmail", func(t *testing.T) {
			err := activationFlow.Activate(context.Background(), "")
			require.Error(t, err)
			assert.True(t, businessflow.IsMissingCustomerEmail(err))
		})

		t.Run("UnknownEmailIsNoOp", func(t *testing.T) {
			require.NoError(t, activationFlow.Activate(context.Background(), "stranger@example.com"))
		})

		t.Run("ActivationCarriesRequestIDIntoAudit", func(t *testing.T) {
			ctx := context.WithValue(context.Background(), businessflow.RequestIDKey, "req-123")
			require.NoError(t, activationFlow.Activate(ctx, "activate.me@example.com"))

			stored, err := accountRepo.ByID(context.Background(), account.ID)
			require.NoError(t, err)
			require.True(t, stored.IsActive())

			audits, err := auditRepo.ListByAccount(context.Background(), account.ID, 10, 0)
			require.NoError(t, err)

			found := false
			for _, a := range audits {
				if a.Action != models.AuditActionAccountActivated {
					continue
				}
				found = true
				require.NotNil(t, a.RequestID)
				assert.Equal(t, "req-123", *a.RequestID)
			}
			assert.True(t, found, "expected an activation audit record")
		})

		t.Run("ReactivationIsNoOp", func(t *testing.T) {
			require.NoError(t, activationFlow.Activate(context.Background(), "activate.me@example.com"))
		})

		return nil
	})
	require.NoError(t, err)
}
