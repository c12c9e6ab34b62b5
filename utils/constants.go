package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// AccessTokenTTLSeconds is the time-to-live for access tokens in seconds (86400 seconds = 24 hours)
	AccessTokenTTLSeconds = 86400

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Webhook constants
const (
	// WebhookSignatureHeader carries the hex-encoded HMAC-SHA256 of the raw request body.
	WebhookSignatureHeader = "X-Webhook-Signature"

	// WebhookEventDedupTTL is how long a processed event ID is remembered in the cache.
	WebhookEventDedupTTL = 24 * time.Hour

	// CheckoutSessionCompleted is the only event type that triggers account activation.
	CheckoutSessionCompleted = "checkout.session.completed"
)
