package tests

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	businessflow "github.com/Icekid35/elementor-node-backend/business_flow"
	"github.com/Icekid35/elementor-node-backend/models"
	"github.com/Icekid35/elementor-node-backend/repository"
	testingutil "github.com/Icekid35/elementor-node-backend/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test_shared_secret"

// spyActivationFlow records activation attempts without touching storage
type spyActivationFlow struct {
	mu    sync.Mutex
	calls []string
}

func (s *spyActivationFlow) Activate(ctx context.Context, customerEmail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, customerEmail)
	return nil
}

func (s *spyActivationFlow) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// flakyEventRepo fails the next Save, then behaves like the wrapped repo
type flakyEventRepo struct {
	repository.PaymentEventRepository
	mu       sync.Mutex
	failNext bool
}

func (r *flakyEventRepo) Save(ctx context.Context, event *models.PaymentEvent) error {
	r.mu.Lock()
	fail := r.failNext
	r.failNext = false
	r.mu.Unlock()

	if fail {
		return errors.New("storage offline")
	}
	return r.PaymentEventRepository.Save(ctx, event)
}

func checkoutEventBody(t *testing.T, eventID, eventType, email string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":   eventID,
		"type": eventType,
		"data": map[string]any{
			"object": map[string]any{
				"customer_details": map[string]any{
					"email": email,
				},
			},
		},
	})
	require.NoError(t, err)
	return body
}

func TestHandlePaymentWebhook(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		accountRepo := repository.NewAccountRepository(testDB.DB)
		eventRepo := repository.NewPaymentEventRepository(testDB.DB)
		auditRepo := repository.NewAuditLogRepository(testDB.DB)

		activationFlow := businessflow.NewActivationFlow(accountRepo, auditRepo, testDB.DB)
		webhookFlow := businessflow.NewWebhookFlow(
			eventRepo,
			auditRepo,
			activationFlow,
			nil, // cache-level dedup off; the event table carries it alone
			testWebhookSecret,
			10*time.Second,
			testDB.DB,
		)

		account, err := fixtures.CreateTestAccountWithEmail(models.AccountTypeCompany, "payer@example.com")
		require.NoError(t, err)
		require.False(t, account.IsActive())

		t.Run("CompletedCheckoutActivatesAccount", func(t *testing.T) {
			body := checkoutEventBody(t, "evt_001", "checkout.session.completed", "payer@example.com")
			sig := businessflow.ComputeWebhookSignature(body, testWebhookSecret)

			err := webhookFlow.HandlePaymentWebhook(context.Background(), body, sig, testMetadata())
			require.NoError(t, err)

			// Activation is detached; poll until it lands
			require.Eventually(t, func() bool {
				stored, err := accountRepo.ByID(context.Background(), account.ID)
				return err == nil && stored != nil && stored.IsActive()
			}, 5*time.Second, 50*time.Millisecond)

			stored, err := accountRepo.ByID(context.Background(), account.ID)
			require.NoError(t, err)
			require.NotNil(t, stored.ActivatedAt)

			require.Eventually(t, func() bool {
				event, err := eventRepo.ByEventID(context.Background(), "evt_001")
				return err == nil && event != nil && event.Status == models.PaymentEventStatusProcessed
			}, 5*time.Second, 50*time.Millisecond)
		})

		t.Run("RedeliveryIsIdempotent", func(t *testing.T) {
			body := checkoutEventBody(t, "evt_001", "checkout.session.completed", "payer@example.com")
			sig := businessflow.ComputeWebhookSignature(body, testWebhookSecret)

			// Second delivery of the same event acknowledges without error
			err := webhookFlow.HandlePaymentWebhook(context.Background(), body, sig, testMetadata())
			require.NoError(t, err)

			events, err := eventRepo.ByFilter(context.Background(), models.PaymentEventFilter{
				EventID: ptr("evt_001"),
			}, "", 0, 0)
			require.NoError(t, err)
			assert.Len(t, events, 1)

			stored, err := accountRepo.ByID(context.Background(), account.ID)
			require.NoError(t, err)
			assert.True(t, stored.IsActive())
		})

		t.Run("TamperedSignatureRejectedBeforeActivation", func(t *testing.T) {
			spy := &spyActivationFlow{}
			spiedFlow := businessflow.NewWebhookFlow(
				eventRepo,
				auditRepo,
				spy,
				nil,
				testWebhookSecret,
				10*time.Second,
				testDB.DB,
			)

			body := checkoutEventBody(t, "evt_bad_sig", "checkout.session.completed", "payer@example.com")
			sig := businessflow.ComputeWebhookSignature(body, "wrong-secret")

			err := spiedFlow.HandlePaymentWebhook(context.Background(), body, sig, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsInvalidSignature(err))

			// Nothing downstream of the gate ran
			assert.Zero(t, spy.callCount())
			event, err := eventRepo.ByEventID(context.Background(), "evt_bad_sig")
			require.NoError(t, err)
			assert.Nil(t, event)

			// The rejection is audited
			audits, err := auditRepo.ListByAction(context.Background(), models.AuditActionWebhookRejected, 10, 0)
			require.NoError(t, err)
			assert.NotEmpty(t, audits)
		})

		t.Run("MissingSignatureRejected", func(t *testing.T) {
			body := checkoutEventBody(t, "evt_no_sig", "checkout.session.completed", "payer@example.com")

			err := webhookFlow.HandlePaymentWebhook(context.Background(), body, "", testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsInvalidSignature(err))
		})

		t.Run("MalformedBodyRejectedAfterSignature", func(t *testing.T) {
			body := []byte("{not json")
			sig := businessflow.ComputeWebhookSignature(body, testWebhookSecret)

			err := webhookFlow.HandlePaymentWebhook(context.Background(), body, sig, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsMalformedEvent(err))
		})

		t.Run("NonMatchingEventTypeSkipped", func(t *testing.T) {
			inactive, err := fixtures.CreateTestAccountWithEmail(models.AccountTypeSelfEmployed, "pending@example.com")
			require.NoError(t, err)

			body := checkoutEventBody(t, "evt_other", "invoice.paid", "pending@example.com")
			sig := businessflow.ComputeWebhookSignature(body, testWebhookSecret)

			err = webhookFlow.HandlePaymentWebhook(context.Background(), body, sig, testMetadata())
			require.NoError(t, err)

			event, err := eventRepo.ByEventID(context.Background(), "evt_other")
			require.NoError(t, err)
			require.NotNil(t, event)
			assert.Equal(t, models.PaymentEventStatusSkipped, event.Status)

			stored, err := accountRepo.ByID(context.Background(), inactive.ID)
			require.NoError(t, err)
			assert.False(t, stored.IsActive())
		})

		t.Run("MissingCustomerEmailMarksEventFailed", func(t *testing.T) {
			body := checkoutEventBody(t, "evt_no_email", "checkout.session.completed", "")
			sig := businessflow.ComputeWebhookSignature(body, testWebhookSecret)

			// The delivery is still acknowledged; the failure stays internal
			err := webhookFlow.HandlePaymentWebhook(context.Background(), body, sig, testMetadata())
			require.NoError(t, err)

			require.Eventually(t, func() bool {
				event, err := eventRepo.ByEventID(context.Background(), "evt_no_email")
				return err == nil && event != nil && event.Status == models.PaymentEventStatusFailed
			}, 5*time.Second, 50*time.Millisecond)
		})

		t.Run("UnknownCustomerEmailProcessedWithoutActivation", func(t *testing.T) {
			body := checkoutEventBody(t, "evt_stranger", "checkout.session.completed", "stranger@example.com")
			sig := businessflow.ComputeWebhookSignature(body, testWebhookSecret)

			err := webhookFlow.HandlePaymentWebhook(context.Background(), body, sig, testMetadata())
			require.NoError(t, err)

			require.Eventually(t, func() bool {
				event, err := eventRepo.ByEventID(context.Background(), "evt_stranger")
				return err == nil && event != nil && event.Status == models.PaymentEventStatusProcessed
			}, 5*time.Second, 50*time.Millisecond)
		})

		t.Run("PersistFailureLeavesRetryOpen", func(t *testing.T) {
			retryAccount, err := fixtures.CreateTestAccountWithEmail(models.AccountTypeCompany, "retry@example.com")
			require.NoError(t, err)

			flaky := &flakyEventRepo{PaymentEventRepository: eventRepo, failNext: true}
			flakyFlow := businessflow.NewWebhookFlow(
				flaky, auditRepo, activationFlow, nil, testWebhookSecret, 10*time.Second, testDB.DB,
			)

			body := checkoutEventBody(t, "evt_retry", "checkout.session.completed", "retry@example.com")
			sig := businessflow.ComputeWebhookSignature(body, testWebhookSecret)

			// First delivery dies at the persist step; the provider sees an
			// error response and will redeliver.
			err = flakyFlow.HandlePaymentWebhook(context.Background(), body, sig, testMetadata())
			require.Error(t, err)
			assert.False(t, businessflow.IsInvalidSignature(err))

			event, err := eventRepo.ByEventID(context.Background(), "evt_retry")
			require.NoError(t, err)
			require.Nil(t, event)

			// The redelivery must get a clean pass: nothing recorded the
			// failed delivery as already seen.
			err = flakyFlow.HandlePaymentWebhook(context.Background(), body, sig, testMetadata())
			require.NoError(t, err)

			require.Eventually(t, func() bool {
				stored, err := accountRepo.ByID(context.Background(), retryAccount.ID)
				return err == nil && stored != nil && stored.IsActive()
			}, 5*time.Second, 50*time.Millisecond)
		})

		t.Run("FailedEventRedeliveryRetriesActivation", func(t *testing.T) {
			recovered, err := fixtures.CreateTestAccountWithEmail(models.AccountTypeSelfEmployed, "recovered@example.com")
			require.NoError(t, err)

			// A first attempt that was persisted but whose activation task
			// failed afterwards.
			_, err = fixtures.CreateTestPaymentEvent("evt_failed_once", "checkout.session.completed", "recovered@example.com")
			require.NoError(t, err)
			errMsg := "activation timed out"
			require.NoError(t, eventRepo.MarkStatus(context.Background(), "evt_failed_once", models.PaymentEventStatusFailed, &errMsg))

			body := checkoutEventBody(t, "evt_failed_once", "checkout.session.completed", "recovered@example.com")
			sig := businessflow.ComputeWebhookSignature(body, testWebhookSecret)

			err = webhookFlow.HandlePaymentWebhook(context.Background(), body, sig, testMetadata())
			require.NoError(t, err)

			require.Eventually(t, func() bool {
				stored, err := accountRepo.ByID(context.Background(), recovered.ID)
				return err == nil && stored != nil && stored.IsActive()
			}, 5*time.Second, 50*time.Millisecond)

			require.Eventually(t, func() bool {
				event, err := eventRepo.ByEventID(context.Background(), "evt_failed_once")
				return err == nil && event != nil && event.Status == models.PaymentEventStatusProcessed
			}, 5*time.Second, 50*time.Millisecond)
		})

		t.Run("EventWithoutIDFallsBackToDigest", func(t *testing.T) {
			body := checkoutEventBody(t, "", "invoice.paid", "payer@example.com")
			sig := businessflow.ComputeWebhookSignature(body, testWebhookSecret)

			err := webhookFlow.HandlePaymentWebhook(context.Background(), body, sig, testMetadata())
			require.NoError(t, err)

			events, err := eventRepo.ByFilter(context.Background(), models.PaymentEventFilter{
				EventType: ptr("invoice.paid"),
			}, "", 0, 0)
			require.NoError(t, err)

			found := false
			for _, e := range events {
				if len(e.EventID) > 7 && e.EventID[:7] == "sha256:" {
					found = true
				}
			}
			assert.True(t, found, "expected a digest-derived event ID")
		})

		return nil
	})
	require.NoError(t, err)
}

func ptr[T any](v T) *T {
	return &v
}

// TestWebhookEventOrdering verifies the signature gate runs before any parse:
// a body that is both malformed and badly signed reports the signature error.
func TestWebhookEventOrdering(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		eventRepo := repository.NewPaymentEventRepository(testDB.DB)
		auditRepo := repository.NewAuditLogRepository(testDB.DB)
		accountRepo := repository.NewAccountRepository(testDB.DB)

		activationFlow := businessflow.NewActivationFlow(accountRepo, auditRepo, testDB.DB)
		webhookFlow := businessflow.NewWebhookFlow(
			eventRepo, auditRepo, activationFlow, nil, testWebhookSecret, 10*time.Second, testDB.DB,
		)

		body := []byte("{broken")
		sig := fmt.Sprintf("%064d", 0)

		err := webhookFlow.HandlePaymentWebhook(context.Background(), body, sig, testMetadata())
		require.Error(t, err)
		assert.True(t, businessflow.IsInvalidSignature(err))
		assert.False(t, businessflow.IsMalformedEvent(err))

		return nil
	})
	require.NoError(t, err)
}
