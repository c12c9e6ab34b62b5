package handlers

import (
	"context"
	"log"
	"time"

	"github.com/Icekid35/elementor-node-backend/app/dto"
	"github.com/Icekid35/elementor-node-backend/app/middleware"
	businessflow "github.com/Icekid35/elementor-node-backend/business_flow"
	"github.com/Icekid35/elementor-node-backend/utils"
	"github.com/gofiber/fiber/v3"
)

type WebhookHandlerInterface interface {
	HandlePaymentWebhook(c fiber.Ctx) error
}

type WebhookHandler struct {
	flow businessflow.WebhookFlow
}

func NewWebhookHandler(flow businessflow.WebhookFlow) *WebhookHandler {
	return &WebhookHandler{flow: flow}
}

func (h *WebhookHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// HandlePaymentWebhook receives payment provider callbacks. The raw body is
// handed to the flow untouched; any re-serialization would break signature
// verification.
func (h *WebhookHandler) HandlePaymentWebhook(c fiber.Ctx) error {
	raw := c.Body()
	signature := c.Get(utils.WebhookSignatureHeader)

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	ctx, cancel := h.createRequestContext(c)
	defer cancel()

	err := h.flow.HandlePaymentWebhook(ctx, raw, signature, metadata)
	if err != nil {
		if businessflow.IsInvalidSignature(err) {
			middleware.RecordWebhookDelivery("rejected")
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid signature", "WEBHOOK_FORBIDDEN", nil)
		}
		if businessflow.IsMalformedEvent(err) {
			middleware.RecordWebhookDelivery("rejected")
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Malformed event", "WEBHOOK_INVALID", nil)
		}

		log.Println("Webhook processing failed", err)
		middleware.RecordWebhookDelivery("failed")
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Webhook processing failed", "WEBHOOK_FAILED", nil)
	}

	// The provider only needs to know the delivery landed.
	middleware.RecordWebhookDelivery("accepted")
	return c.Status(fiber.StatusOK).JSON(dto.WebhookAckResponse{Message: "received"})
}

func (h *WebhookHandler) createRequestContext(c fiber.Ctx) (context.Context, context.CancelFunc) {
	return createRequestContextWithTimeout(c, "/webhook", 30*time.Second)
}
