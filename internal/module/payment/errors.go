package payment

import "errors"

// Payment module errors.
var (
	// ErrPaymentNotFound indicates no payment record matches the lookup.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrOrderNotFound indicates the referenced order does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrDuplicatePayment indicates a concurrent writer already created a live
	// record for the same order and provider.
	ErrDuplicatePayment = errors.New("duplicate payment for order")

	// ErrInvalidWebhookSignature indicates a webhook payload failed signature
	// verification.
	ErrInvalidWebhookSignature = errors.New("invalid webhook signature")

	// ErrWebhookEventExists indicates the webhook event id was seen before.
	ErrWebhookEventExists = errors.New("webhook event already recorded")

	// ErrWebhookEventNotFound indicates no stored event matches the id.
	ErrWebhookEventNotFound = errors.New("webhook event not found")

	// ErrPaymentInProgress indicates another request holds the per-order
	// creation lock.
	ErrPaymentInProgress = errors.New("payment creation already in progress")
)
