package payment

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newWebhookFixture(t *testing.T, orders ...*OrderInfo) (*fixture, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := newFixture(t, nil, "requires_payment_method", orders...)
	handler := NewWebhookHandler(f.service, nil, zap.NewNop())

	router := gin.New()
	handler.RegisterRoutes(router.Group("/webhooks"))
	return f, router
}

func postWebhook(router *gin.Engine, signature, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(body))
	req.Header.Set("Stripe-Signature", signature)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func eventPayload(eventID, eventType, intentID string) string {
	return fmt.Sprintf(`{"id":%q,"type":%q,"data":{"object":{"id":%q}}}`, eventID, eventType, intentID)
}

func TestWebhook_InvalidSignature(t *testing.T) {
	order := pendingOrder("20.00")
	f, router := newWebhookFixture(t, order)
	payment := stripePayment(f, t, order)

	w := postWebhook(router, "bogus", eventPayload("evt_1", eventPaymentSucceeded, payment.Stripe.PaymentIntentID))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, StatusInitiated, f.repo.status(t, payment.ID))
	assert.Equal(t, 0, f.orders.settleCount(order.ID))
}

func TestWebhook_MalformedPayload(t *testing.T) {
	_, router := newWebhookFixture(t)

	w := postWebhook(router, "valid", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhook_PaymentSucceeded(t *testing.T) {
	order := pendingOrder("20.00")
	f, router := newWebhookFixture(t, order)
	payment := stripePayment(f, t, order)

	w := postWebhook(router, "valid", eventPayload("evt_1", eventPaymentSucceeded, payment.Stripe.PaymentIntentID))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, StatusSucceeded, f.repo.status(t, payment.ID))
	assert.Equal(t, 1, f.orders.settleCount(order.ID))
}

func TestWebhook_RedeliveredEventIsDeduped(t *testing.T) {
	order := pendingOrder("20.00")
	f, router := newWebhookFixture(t, order)
	payment := stripePayment(f, t, order)

	body := eventPayload("evt_1", eventPaymentSucceeded, payment.Stripe.PaymentIntentID)
	require.Equal(t, http.StatusOK, postWebhook(router, "valid", body).Code)
	require.Equal(t, http.StatusOK, postWebhook(router, "valid", body).Code)

	assert.Equal(t, 1, f.orders.settleCount(order.ID))
}

func TestWebhook_PaymentFailed(t *testing.T) {
	order := pendingOrder("20.00")
	f, router := newWebhookFixture(t, order)
	payment := stripePayment(f, t, order)

	w := postWebhook(router, "valid", eventPayload("evt_1", eventPaymentFailed, payment.Stripe.PaymentIntentID))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, StatusFailed, f.repo.status(t, payment.ID))
	assert.Equal(t, 0, f.orders.settleCount(order.ID))
}

func TestWebhook_StaleSuccessAfterFailureDoesNotSettle(t *testing.T) {
	order := pendingOrder("20.00")
	f, router := newWebhookFixture(t, order)
	payment := stripePayment(f, t, order)
	intentID := payment.Stripe.PaymentIntentID

	failed := eventPayload("evt_1", eventPaymentFailed, intentID)
	succeeded := eventPayload("evt_2", eventPaymentSucceeded, intentID)

	require.Equal(t, http.StatusOK, postWebhook(router, "valid", failed).Code)
	require.Equal(t, http.StatusOK, postWebhook(router, "valid", succeeded).Code)

	assert.Equal(t, StatusFailed, f.repo.status(t, payment.ID))
	assert.Equal(t, 0, f.orders.settleCount(order.ID))
}

func TestWebhook_UnknownEventTypeIsAcknowledged(t *testing.T) {
	f, router := newWebhookFixture(t)

	w := postWebhook(router, "valid", eventPayload("evt_1", "charge.refunded", "pi_irrelevant"))

	assert.Equal(t, http.StatusOK, w.Code)
	f.repo.mu.Lock()
	defer f.repo.mu.Unlock()
	require.Contains(t, f.repo.webhooks, "evt_1")
	assert.True(t, f.repo.webhooks["evt_1"].Processed)
}

func TestWebhook_UnknownIntentIsAcknowledged(t *testing.T) {
	_, router := newWebhookFixture(t)

	w := postWebhook(router, "valid", eventPayload("evt_1", eventPaymentSucceeded, "pi_unknown"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhook_MissingIntentID(t *testing.T) {
	_, router := newWebhookFixture(t)

	w := postWebhook(router, "valid", `{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{}}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhook_ProcessingErrorReturns500(t *testing.T) {
	order := pendingOrder("20.00")
	f, router := newWebhookFixture(t, order)
	payment := stripePayment(f, t, order)

	f.orders.markPaidErr = context.DeadlineExceeded

	body := eventPayload("evt_1", eventPaymentSucceeded, payment.Stripe.PaymentIntentID)
	w := postWebhook(router, "valid", body)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 0, f.orders.settleCount(order.ID))

	// The stored event is not marked processed, so the redelivery completes
	// the work instead of being swallowed by dedup.
	f.orders.markPaidErr = nil
	w = postWebhook(router, "valid", body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.orders.settleCount(order.ID))
}
