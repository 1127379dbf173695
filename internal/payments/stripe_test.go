package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"atelier_back_end/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v83"
)

const testWebhookSecret = "whsec_test_secret"

// signPayload reproduit le schéma de signature Stripe : t=<ts>,v1=<hmac sha256>
func signPayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts.Unix(), payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func webhookPayload(t *testing.T, eventType string, metadata map[string]string) []byte {
	t.Helper()

	pi := map[string]interface{}{
		"id":       "pi_test_123",
		"amount":   15000,
		"currency": "eur",
		"metadata": metadata,
	}
	raw, err := json.Marshal(pi)
	require.NoError(t, err)

	event := map[string]interface{}{
		"id":          "evt_test_1",
		"object":      "event",
		"type":        eventType,
		"api_version": stripe.APIVersion,
		"data":        map[string]interface{}{"object": json.RawMessage(raw)},
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return payload
}

func validMetadata(t *testing.T) map[string]string {
	t.Helper()
	lines := []models.PaymentLine{
		{ServiceID: "svc-logo", Name: "Création de logo", Price: 75, Quantity: 2},
	}
	cart, err := json.Marshal(lines)
	require.NoError(t, err)
	return map[string]string{
		"user_id":    "user-1",
		"email":      "client@example.com",
		"name":       "Jean Dupont",
		"order_type": models.OrderTypeOneTime,
		"cart":       string(cart),
	}
}

func TestVerifyAndParseWebhookValidSignature(t *testing.T) {
	g := &StripeGateway{webhookSecret: testWebhookSecret}
	payload := webhookPayload(t, "payment_intent.succeeded", validMetadata(t))

	evt, err := g.VerifyAndParseWebhook(payload, signPayload(payload, testWebhookSecret, time.Now()))
	require.NoError(t, err)
	require.NotNil(t, evt)

	assert.Equal(t, "pi_test_123", evt.TransactionRef)
	assert.Equal(t, 150.0, evt.Amount)
	assert.Equal(t, "EUR", evt.Currency)
	assert.Equal(t, "client@example.com", evt.Email)
	assert.Equal(t, models.PaymentMethodCard, evt.PaymentMethod)
	require.Len(t, evt.Lines, 1)
	assert.Equal(t, "svc-logo", evt.Lines[0].ServiceID)
	assert.Equal(t, 2, evt.Lines[0].Quantity)
}

func TestVerifyAndParseWebhookRejectsBadSignature(t *testing.T) {
	g := &StripeGateway{webhookSecret: testWebhookSecret}
	payload := webhookPayload(t, "payment_intent.succeeded", validMetadata(t))

	_, err := g.VerifyAndParseWebhook(payload, signPayload(payload, "whsec_autre_secret", time.Now()))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyAndParseWebhookRejectsTamperedPayload(t *testing.T) {
	g := &StripeGateway{webhookSecret: testWebhookSecret}
	payload := webhookPayload(t, "payment_intent.succeeded", validMetadata(t))
	signature := signPayload(payload, testWebhookSecret, time.Now())

	// Le corps change après signature : rejet
	tampered := webhookPayload(t, "payment_intent.succeeded", map[string]string{
		"user_id": "attaquant",
		"email":   "attaquant@example.com",
	})
	_, err := g.VerifyAndParseWebhook(tampered, signature)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyAndParseWebhookRejectsStaleTimestamp(t *testing.T) {
	g := &StripeGateway{webhookSecret: testWebhookSecret}
	payload := webhookPayload(t, "payment_intent.succeeded", validMetadata(t))

	// Signature valide mais vieille d'une heure : hors tolérance, rejouable
	_, err := g.VerifyAndParseWebhook(payload, signPayload(payload, testWebhookSecret, time.Now().Add(-time.Hour)))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyAndParseWebhookIgnoresOtherEvents(t *testing.T) {
	g := &StripeGateway{webhookSecret: testWebhookSecret}
	payload := webhookPayload(t, "payment_intent.created", validMetadata(t))

	evt, err := g.VerifyAndParseWebhook(payload, signPayload(payload, testWebhookSecret, time.Now()))
	require.NoError(t, err)
	assert.Nil(t, evt)
}

func TestEventFromMetadataGuestAndCoupon(t *testing.T) {
	g := &StripeGateway{webhookSecret: testWebhookSecret}

	meta := validMetadata(t)
	meta["guest"] = "1"
	meta["phone"] = "+32470000000"
	coupon, err := json.Marshal(models.OrderCoupon{Code: "ETE2026", DiscountType: "percent", DiscountValue: 10})
	require.NoError(t, err)
	meta["coupon"] = string(coupon)

	payload := webhookPayload(t, "payment_intent.succeeded", meta)
	evt, err := g.VerifyAndParseWebhook(payload, signPayload(payload, testWebhookSecret, time.Now()))
	require.NoError(t, err)

	assert.True(t, evt.Guest)
	require.NotNil(t, evt.GuestInfo)
	assert.Equal(t, "client@example.com", evt.GuestInfo.Email)
	assert.Equal(t, "+32470000000", evt.GuestInfo.Phone)
	require.NotNil(t, evt.Coupon)
	assert.Equal(t, "ETE2026", evt.Coupon.Code)
}

func TestEventFromMetadataUnreadableCart(t *testing.T) {
	g := &StripeGateway{webhookSecret: testWebhookSecret}

	meta := validMetadata(t)
	meta["cart"] = "{pas du json"

	payload := webhookPayload(t, "payment_intent.succeeded", meta)
	_, err := g.VerifyAndParseWebhook(payload, signPayload(payload, testWebhookSecret, time.Now()))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidSignature)
}

func TestUnitAmountCents(t *testing.T) {
	// 19.99 × 100 vaut 1998.999… en flottant : la conversion directe tronque
	assert.Equal(t, int64(1999), unitAmountCents(19.99))
	assert.Equal(t, int64(5000), unitAmountCents(50))
	assert.Equal(t, int64(10), unitAmountCents(0.10))
	assert.Equal(t, int64(0), unitAmountCents(0))
}
