package businessflow

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Icekid35/elementor-node-backend/app/dto"
	"github.com/Icekid35/elementor-node-backend/models"
	"github.com/Icekid35/elementor-node-backend/repository"
	"github.com/Icekid35/elementor-node-backend/utils"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// WebhookFlow handles verified payment provider callbacks
type WebhookFlow interface {
	// HandlePaymentWebhook verifies the signature over the exact raw body,
	// records the event, and kicks off activation for completed checkouts.
	// It returns once the event is acknowledged; activation continues in the
	// background.
	HandlePaymentWebhook(ctx context.Context, raw []byte, signature string, metadata *ClientMetadata) error
}

// WebhookFlowImpl implements the payment webhook flow
type WebhookFlowImpl struct {
	eventRepo         repository.PaymentEventRepository
	auditRepo         repository.AuditLogRepository
	activationFlow    ActivationFlow
	redisClient       *redis.Client
	secret            string
	activationTimeout time.Duration
	db                *gorm.DB
}

// NewWebhookFlow creates a new webhook flow instance. redisClient may be nil;
// the event table then carries deduplication alone.
func NewWebhookFlow(
	eventRepo repository.PaymentEventRepository,
	auditRepo repository.AuditLogRepository,
	activationFlow ActivationFlow,
	redisClient *redis.Client,
	secret string,
	activationTimeout time.Duration,
	db *gorm.DB,
) WebhookFlow {
	if activationTimeout <= 0 {
		activationTimeout = 30 * time.Second
	}
	return &WebhookFlowImpl{
		eventRepo:         eventRepo,
		auditRepo:         auditRepo,
		activationFlow:    activationFlow,
		redisClient:       redisClient,
		secret:            secret,
		activationTimeout: activationTimeout,
		db:                db,
	}
}

// HandlePaymentWebhook processes a single webhook delivery
func (f *WebhookFlowImpl) HandlePaymentWebhook(ctx context.Context, raw []byte, signature string, metadata *ClientMetadata) error {
	// The signature gate comes first; nothing downstream (parsing included)
	// runs on an unverified body.
	if len(raw) == 0 || signature == "" {
		_ = f.createAuditLog(ctx, models.AuditActionWebhookRejected, "missing body or signature header", false, metadata)
		return NewBusinessError("WEBHOOK_FORBIDDEN", "Invalid webhook signature", ErrInvalidSignature)
	}
	if !VerifyWebhookSignature(raw, signature, f.secret) {
		_ = f.createAuditLog(ctx, models.AuditActionWebhookRejected, "signature mismatch", false, metadata)
		return NewBusinessError("WEBHOOK_FORBIDDEN", "Invalid webhook signature", ErrInvalidSignature)
	}

	var payload dto.PaymentEventPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		_ = f.createAuditLog(ctx, models.AuditActionWebhookRejected, "invalid json", false, metadata)
		return NewBusinessError("WEBHOOK_INVALID", "Malformed webhook event", ErrMalformedEvent)
	}

	_ = f.createAuditLog(ctx, models.AuditActionWebhookReceived, fmt.Sprintf("event %s (%s)", payload.ID, payload.Type), true, metadata)

	eventID := payload.ID
	if eventID == "" {
		// Providers occasionally omit IDs on test deliveries; fall back to a
		// digest of the body so the uniqueness guard still applies.
		sum := sha256.Sum256(raw)
		eventID = "sha256:" + hex.EncodeToString(sum[:])
	}

	// Redelivery check. The cache is a fast path; the unique index on
	// event_id is the durable one.
	if f.alreadySeen(ctx, eventID) {
		return nil
	}

	event, err := f.recordEvent(ctx, raw, eventID, &payload)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			f.retryIfFailed(ctx, eventID, payload.Data.Object.CustomerDetails.Email)
			return nil
		}
		// No cache marker has been written yet, so the provider's retry of
		// this failed persist gets a clean pass through the flow.
		return NewBusinessError("WEBHOOK_PERSIST_FAILED", "Failed to record webhook event", err)
	}

	// The event is durable now; only now may the cache short-circuit
	// redeliveries.
	f.markSeen(ctx, eventID)

	if payload.Type != utils.CheckoutSessionCompleted {
		_ = f.eventRepo.MarkStatus(ctx, event.EventID, models.PaymentEventStatusSkipped, nil)
		return nil
	}

	// Detached activation: the provider gets its acknowledgement regardless
	// of how activation fares. Failures are logged and recorded on the event.
	go f.activateInBackground(event.EventID, payload.Data.Object.CustomerDetails.Email)

	return nil
}

// retryIfFailed re-dispatches activation when a redelivered event's first
// attempt ended in failure. Redelivery is the provider's recovery mechanism;
// a failed event must not stay failed just because the row already exists.
func (f *WebhookFlowImpl) retryIfFailed(ctx context.Context, eventID, customerEmail string) {
	stored, err := f.eventRepo.ByEventID(ctx, eventID)
	if err != nil || stored == nil {
		return
	}
	if stored.Status != models.PaymentEventStatusFailed {
		return
	}
	if stored.EventType != utils.CheckoutSessionCompleted {
		return
	}

	go f.activateInBackground(eventID, customerEmail)
}

func (f *WebhookFlowImpl) activateInBackground(eventID, customerEmail string) {
	ctx, cancel := context.WithTimeout(context.Background(), f.activationTimeout)
	defer cancel()

	if err := f.activationFlow.Activate(ctx, customerEmail); err != nil {
		log.Printf("account activation failed for event %s: %v", eventID, err)
		errMsg := err.Error()
		_ = f.eventRepo.MarkStatus(ctx, eventID, models.PaymentEventStatusFailed, &errMsg)
		return
	}

	_ = f.eventRepo.MarkStatus(ctx, eventID, models.PaymentEventStatusProcessed, nil)
}

// alreadySeen consults the cache-level dedup marker. Any cache failure counts
// as unseen so a flaky cache never drops events. The check is read-only; the
// marker is written by markSeen only after the event is durably stored,
// otherwise a failed persist would poison every retry inside the TTL window.
func (f *WebhookFlowImpl) alreadySeen(ctx context.Context, eventID string) bool {
	if f.redisClient == nil {
		return false
	}

	n, err := f.redisClient.Exists(ctx, "webhook:event:"+eventID).Result()
	if err != nil {
		return false
	}
	return n > 0
}

// markSeen records the dedup marker for a durably persisted event
func (f *WebhookFlowImpl) markSeen(ctx context.Context, eventID string) {
	if f.redisClient == nil {
		return
	}

	_ = f.redisClient.SetNX(ctx, "webhook:event:"+eventID, 1, utils.WebhookEventDedupTTL).Err()
}

func (f *WebhookFlowImpl) recordEvent(ctx context.Context, raw []byte, eventID string, payload *dto.PaymentEventPayload) (*models.PaymentEvent, error) {
	event := &models.PaymentEvent{
		EventID:    eventID,
		EventType:  payload.Type,
		Payload:    json.RawMessage(raw),
		Status:     models.PaymentEventStatusReceived,
		ReceivedAt: utils.UTCNow(),
	}
	if email := payload.Data.Object.CustomerDetails.Email; email != "" {
		normalized := utils.NormalizeEmail(email)
		event.CustomerEmail = &normalized
	}

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		return f.eventRepo.Save(txCtx, event)
	})
	if err != nil {
		return nil, err
	}

	return event, nil
}

func (f *WebhookFlowImpl) createAuditLog(ctx context.Context, action, description string, success bool, metadata *ClientMetadata) error {
	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		Action:      action,
		Description: &description,
		Success:     utils.ToPtr(success),
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}

	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		if requestIDStr, ok := requestID.(string); ok {
			audit.RequestID = &requestIDStr
		}
	}

	return f.auditRepo.Save(ctx, audit)
}

// VerifyWebhookSignature checks the hex-encoded HMAC-SHA256 of the raw body
// against the signature header using a constant-time comparison.
func VerifyWebhookSignature(raw []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(raw)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ComputeWebhookSignature produces the hex-encoded HMAC-SHA256 a caller must
// attach to a webhook body.
func ComputeWebhookSignature(raw []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(raw)
	return hex.EncodeToString(mac.Sum(nil))
}
