package payement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"atelier_back_end/internal/models"
	"atelier_back_end/internal/payments"
	"atelier_back_end/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGateway : passerelle scriptée pour les tests de handlers
type stubGateway struct {
	session       *payments.CheckoutSession
	sessionErr    error
	event         *models.CompletedPaymentEvent
	webhookErr    error
	snapshot      *payments.OrderSnapshot
	retrieveErr   error
	lastPayload   []byte
	lastSignature string
}

func (g *stubGateway) CreateCheckoutSession(_ context.Context, _ *payments.CheckoutRequest) (*payments.CheckoutSession, error) {
	return g.session, g.sessionErr
}

func (g *stubGateway) VerifyAndParseWebhook(payload []byte, signature string) (*models.CompletedPaymentEvent, error) {
	g.lastPayload = payload
	g.lastSignature = signature
	return g.event, g.webhookErr
}

func (g *stubGateway) RetrieveOrderDetails(_ context.Context, _ string) (*payments.OrderSnapshot, error) {
	return g.snapshot, g.retrieveErr
}

func newTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/payments/webhook", h.StripeWebhook)
	r.POST("/payments/checkout-session", h.CreateCheckoutSession)
	r.POST("/payments/success", h.ConfirmWalletOrder)
	return r
}

func TestStripeWebhookRejectsInvalidSignature(t *testing.T) {
	card := &stubGateway{webhookErr: fmt.Errorf("%w: hmac mismatch", payments.ErrInvalidSignature)}
	r := newTestRouter(NewHandler(card, &stubGateway{}, nil))

	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewBufferString(`{"type":"x"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=mauvaise")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// 400 et surtout aucune commande créée (Reconciler jamais touché)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "t=1,v1=mauvaise", card.lastSignature)
}

func TestStripeWebhookAcknowledgesIgnoredEvents(t *testing.T) {
	// Événement authentique mais d'un autre type : (nil, nil)
	card := &stubGateway{}
	r := newTestRouter(NewHandler(card, &stubGateway{}, nil))

	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewBufferString(`{"type":"payment_intent.created"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["received"])
}

func TestStripeWebhookRejectsInvalidEventWithoutRetry(t *testing.T) {
	// Événement authentique mais définitivement invalide (pas d'email payeur) :
	// 400, pas 500, sinon Stripe rejoue l'événement pour rien
	card := &stubGateway{event: &models.CompletedPaymentEvent{
		TransactionRef: "pi_sans_email",
		Amount:         10,
		Currency:       "EUR",
		Lines:          []models.PaymentLine{{ServiceID: "svc-logo", Name: "Logo", Price: 10, Quantity: 1}},
	}}
	r := newTestRouter(NewHandler(card, &stubGateway{}, &services.ReconcileService{}))

	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewBufferString(`{"type":"payment_intent.succeeded"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStripeWebhookPassesRawBody(t *testing.T) {
	card := &stubGateway{}
	r := newTestRouter(NewHandler(card, &stubGateway{}, nil))

	raw := `{"type":"payment_intent.created","spaces":  "  intactes  "}`
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewBufferString(raw))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// Le corps arrive octet pour octet à la vérification de signature
	assert.Equal(t, raw, string(card.lastPayload))
}

func TestCreateCheckoutSessionValidation(t *testing.T) {
	r := newTestRouter(NewHandler(&stubGateway{}, &stubGateway{}, nil))

	cases := map[string]string{
		"corps vide":        `{}`,
		"lignes vides":      `{"items":[]}`,
		"quantité nulle":    `{"items":[{"service_id":"s","name":"n","price":10,"quantity":0}]}`,
		"invité sans email": `{"items":[{"service_id":"s","name":"n","price":10,"quantity":1}],"guest_info":{"name":"X"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/payments/checkout-session", bytes.NewBufferString(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCreateCheckoutSessionGatewayDown(t *testing.T) {
	card := &stubGateway{sessionErr: &payments.GatewayError{Provider: "stripe", Op: "create", Err: fmt.Errorf("timeout")}}
	r := newTestRouter(NewHandler(card, &stubGateway{}, nil))

	body := `{"items":[{"service_id":"s","name":"n","price":10,"quantity":1}],"guest_info":{"email":"g@example.com"}}`
	req := httptest.NewRequest(http.MethodPost, "/payments/checkout-session", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestCreateCheckoutSessionGuestSuccess(t *testing.T) {
	card := &stubGateway{session: &payments.CheckoutSession{ID: "cs_1", RedirectURL: "https://stripe/pay"}}
	r := newTestRouter(NewHandler(card, &stubGateway{}, nil))

	body := `{"items":[{"service_id":"svc-logo","name":"Logo","price":50,"quantity":2}],"guest_info":{"email":"g@example.com","name":"Invité"}}`
	req := httptest.NewRequest(http.MethodPost, "/payments/checkout-session", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "cs_1", resp["session_id"])
	assert.Equal(t, 100.0, resp["amount"])
}

func TestConfirmWalletOrderRejectsIncompletePayment(t *testing.T) {
	// Le fournisseur dit APPROVED, pas COMPLETED : on refuse, pas de commande
	wallet := &stubGateway{snapshot: &payments.OrderSnapshot{
		ProviderOrderID: "PAYPAL-1",
		TransactionRef:  "PAYPAL-1",
		Status:          "APPROVED",
	}}
	r := newTestRouter(NewHandler(&stubGateway{}, wallet, nil))

	body := `{"provider_order_id":"PAYPAL-1","items":[{"service_id":"s","name":"n","price":10,"quantity":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/payments/success", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestConfirmWalletOrderGatewayDown(t *testing.T) {
	wallet := &stubGateway{retrieveErr: &payments.GatewayError{Provider: "paypal", Op: "retrieve", Err: fmt.Errorf("timeout")}}
	r := newTestRouter(NewHandler(&stubGateway{}, wallet, nil))

	body := `{"provider_order_id":"PAYPAL-1","items":[{"service_id":"s","name":"n","price":10,"quantity":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/payments/success", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}
