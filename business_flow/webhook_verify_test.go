package businessflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "test-webhook-secret"
	body := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"customer_details":{"email":"x@y.com"}}}}`)

	t.Run("valid signature passes", func(t *testing.T) {
		sig := ComputeWebhookSignature(body, secret)
		assert.True(t, VerifyWebhookSignature(body, sig, secret))
	})

	t.Run("tampered body fails", func(t *testing.T) {
		sig := ComputeWebhookSignature(body, secret)
		tampered := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"customer_details":{"email":"attacker@y.com"}}}}`)
		assert.False(t, VerifyWebhookSignature(tampered, sig, secret))
	})

	t.Run("tampered signature fails", func(t *testing.T) {
		sig := ComputeWebhookSignature(body, secret)
		bad := sig[:len(sig)-1] + "0"
		if bad == sig {
			bad = sig[:len(sig)-1] + "1"
		}
		assert.False(t, VerifyWebhookSignature(body, bad, secret))
	})

	t.Run("wrong secret fails", func(t *testing.T) {
		sig := ComputeWebhookSignature(body, "other-secret")
		assert.False(t, VerifyWebhookSignature(body, sig, secret))
	})

	t.Run("empty signature fails", func(t *testing.T) {
		assert.False(t, VerifyWebhookSignature(body, "", secret))
	})

	t.Run("signature is over exact bytes", func(t *testing.T) {
		// Re-serialized JSON with different whitespace must not verify.
		sig := ComputeWebhookSignature(body, secret)
		reserialized := []byte(`{"id": "evt_1", "type": "checkout.session.completed", "data": {"object": {"customer_details": {"email": "x@y.com"}}}}`)
		assert.False(t, VerifyWebhookSignature(reserialized, sig, secret))
	})
}
