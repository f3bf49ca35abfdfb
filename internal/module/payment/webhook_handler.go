package payment

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/omnistore/server/internal/shared/metrics"
	"github.com/omnistore/server/internal/shared/response"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

// Webhook event types this handler acts on.
const (
	eventPaymentSucceeded = "payment_intent.succeeded"
	eventPaymentFailed    = "payment_intent.payment_failed"
)

// WebhookHandler receives processor webhook deliveries. It lives outside the
// authenticated API group: the signature is the authentication.
type WebhookHandler struct {
	service *Service
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(service *Service, m *metrics.Metrics, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{service: service, metrics: m, logger: logger}
}

// RegisterRoutes registers the webhook routes.
func (h *WebhookHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/stripe", h.HandleStripe)
}

// HandleStripe processes a Stripe webhook delivery. Bad signatures and
// malformed payloads are rejected with 400 so the processor redelivers;
// everything the handler cannot act on is acknowledged with 200.
func (h *WebhookHandler) HandleStripe(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20))
	if err != nil {
		response.BadRequest(c, "cannot read payload")
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if err := h.service.VerifyWebhookSignature(payload, signature); err != nil {
		h.logger.Warn("webhook signature verification failed", zap.Error(err))
		h.metrics.RecordWebhookEvent("unknown", "invalid_signature")
		response.BadRequest(c, "invalid signature")
		return
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		response.BadRequest(c, "malformed payload")
		return
	}

	ctx := c.Request.Context()

	if err := h.service.RecordWebhookEvent(ctx, event.ID, string(event.Type)); err != nil {
		if errors.Is(err, ErrWebhookEventExists) {
			// A delivery that failed mid-processing is retried; a fully
			// handled one is acknowledged without effect.
			stored, getErr := h.service.GetWebhookEvent(ctx, event.ID)
			if getErr == nil && stored.Processed {
				h.logger.Debug("webhook event already handled", zap.String("event_id", event.ID))
				h.metrics.RecordWebhookEvent(string(event.Type), "duplicate")
				c.JSON(http.StatusOK, gin.H{"received": true})
				return
			}
		} else {
			response.InternalError(c, "")
			return
		}
	}

	switch string(event.Type) {
	case eventPaymentSucceeded, eventPaymentFailed:
		intentID, err := intentIDFromEvent(&event)
		if err != nil {
			h.logger.Warn("webhook payload missing intent id",
				zap.String("event_id", event.ID), zap.Error(err))
			h.metrics.RecordWebhookEvent(string(event.Type), "malformed")
			response.BadRequest(c, "malformed payload")
			return
		}

		if string(event.Type) == eventPaymentSucceeded {
			err = h.service.HandlePaymentSucceeded(ctx, intentID)
		} else {
			err = h.service.HandlePaymentFailed(ctx, intentID)
		}
		if err != nil {
			h.logger.Error("webhook processing failed",
				zap.String("event_id", event.ID), zap.Error(err))
			h.metrics.RecordWebhookEvent(string(event.Type), "error")
			response.InternalError(c, "")
			return
		}
		h.metrics.RecordWebhookEvent(string(event.Type), "processed")
	default:
		// Unhandled event types are acknowledged so the processor stops
		// redelivering them.
		h.logger.Debug("ignoring webhook event", zap.String("type", string(event.Type)))
		h.metrics.RecordWebhookEvent(string(event.Type), "ignored")
	}

	if err := h.service.MarkWebhookEventProcessed(ctx, event.ID); err != nil {
		h.logger.Error("mark webhook event processed",
			zap.String("event_id", event.ID), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func intentIDFromEvent(event *stripe.Event) (string, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return "", err
	}
	if intent.ID == "" {
		return "", errors.New("empty payment intent id")
	}
	return intent.ID, nil
}
