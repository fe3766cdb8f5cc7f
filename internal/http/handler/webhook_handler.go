package handler

import (
	"context"
	"errors"

	"github.com/ClipsonBusiness/tracking-system-sub000/internal/app/service"
	"github.com/ClipsonBusiness/tracking-system-sub000/internal/payment"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// WebhookDeps groups dependencies required by the webhook handler.
type WebhookDeps struct {
	Logger      *zap.Logger
	Webhooks    service.WebhookService
	Attribution service.AttributionService
}

// WebhookHandler receives signed processor deliveries.
type WebhookHandler struct {
	logger      *zap.Logger
	webhooks    service.WebhookService
	attribution service.AttributionService
}

// NewWebhookHandler creates a webhook handler with the provided dependencies.
func NewWebhookHandler(deps WebhookDeps) *WebhookHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{
		logger:      logger,
		webhooks:    deps.Webhooks,
		attribution: deps.Attribution,
	}
}

// Register wires the webhook route.
func (h *WebhookHandler) Register(router fiber.Router) {
	router.Post("/webhooks/payment", h.Receive)
}

// Receive authenticates, stores and dispatches one delivery. Signature
// and payload failures are 400 (the sender must not retry auth
// failures); any processing failure is 500 so the sender redelivers.
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	body := c.Body()
	sigHeader := c.Get(payment.SignatureHeader)
	accountHint := c.Query("account")

	event, resolved, err := h.webhooks.VerifyAndStore(ctx, body, sigHeader, accountHint)
	if err != nil {
		if isRejectable(err) {
			h.logger.Warn("webhook delivery rejected", zap.Error(err))
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid signature or payload",
			})
		}
		h.logger.Error("webhook storage failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal error",
		})
	}

	if err := h.attribution.Process(ctx, event, resolved); err != nil {
		// Partial processing counts as failure: a 5xx makes the sender
		// redeliver, and the idempotent stores absorb the replay.
		h.logger.Error("webhook processing failed",
			zap.Error(err),
			zap.String("event_id", event.ID),
			zap.String("event_type", event.Type))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "processing failed",
		})
	}

	if err := h.webhooks.MarkProcessed(ctx, event.ID); err != nil {
		h.logger.Warn("failed to mark event processed",
			zap.Error(err),
			zap.String("event_id", event.ID))
	}

	return c.JSON(fiber.Map{"received": true})
}

func isRejectable(err error) bool {
	return errors.Is(err, service.ErrUnverified) ||
		errors.Is(err, service.ErrBadPayload) ||
		errors.Is(err, payment.ErrBadSignature) ||
		errors.Is(err, payment.ErrMalformedSignature) ||
		errors.Is(err, payment.ErrStaleTimestamp)
}
