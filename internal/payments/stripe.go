package payments

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"

	"atelier_back_end/internal/models"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/checkout/session"
	"github.com/stripe/stripe-go/v83/paymentintent"
	"github.com/stripe/stripe-go/v83/webhook"

	"context"
)

// StripeGateway : fournisseur famille carte. Le panier sérialisé et le contexte
// acheteur voyagent dans les metadata du PaymentIntent et reviennent intacts
// dans le webhook payment_intent.succeeded.
type StripeGateway struct {
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{webhookSecret: webhookSecret}
}

// unitAmountCents convertit un prix décimal en centimes. L'arrondi évite la
// troncature binaire (19.99 × 100 = 1998.9999… → 1998 en conversion directe).
func unitAmountCents(price float64) int64 {
	return int64(math.Round(price * 100))
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Lines))
	for _, line := range req.Lines {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(req.Currency)),
				UnitAmount: stripe.Int64(unitAmountCents(line.Price)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Name),
				},
			},
			Quantity: stripe.Int64(int64(line.Quantity)),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems:  lineItems,
		Metadata:   req.Metadata,
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: req.Metadata,
		},
	}
	params.Context = ctx

	s, err := session.New(params)
	if err != nil {
		return nil, &GatewayError{Provider: "stripe", Op: "create-checkout-session", Err: err}
	}

	log.Printf("💳 Session Stripe créée : %s (%.2f %s)", s.ID, req.Amount, req.Currency)
	return &CheckoutSession{ID: s.ID, RedirectURL: s.URL}, nil
}

func (g *StripeGateway) VerifyAndParseWebhook(payload []byte, signature string) (*models.CompletedPaymentEvent, error) {
	// La signature porte sur le corps brut : surtout ne rien parser avant
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	if event.Type != "payment_intent.succeeded" {
		log.Printf("ℹ️ Événement Stripe ignoré : %s", event.Type)
		return nil, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("décodage PaymentIntent: %v", err)
	}

	return eventFromMetadata(&pi)
}

// eventFromMetadata reconstruit l'événement neutre à partir des metadata
// restituées par Stripe (aller-retour du checkout)
func eventFromMetadata(pi *stripe.PaymentIntent) (*models.CompletedPaymentEvent, error) {
	meta := pi.Metadata

	var lines []models.PaymentLine
	if cart := meta["cart"]; cart != "" {
		if err := json.Unmarshal([]byte(cart), &lines); err != nil {
			return nil, fmt.Errorf("panier illisible dans les metadata: %v", err)
		}
	}

	evt := &models.CompletedPaymentEvent{
		TransactionRef: pi.ID,
		Amount:         float64(pi.Amount) / 100,
		Currency:       strings.ToUpper(string(pi.Currency)),
		Email:          meta["email"],
		DisplayName:    meta["name"],
		Phone:          meta["phone"],
		Lines:          lines,
		OrderType:      meta["order_type"],
		PromoCode:      meta["promo_code"],
		PaymentMethod:  models.PaymentMethodCard,
		Guest:          meta["guest"] == "1",
	}

	if evt.Guest && meta["email"] != "" {
		evt.GuestInfo = &models.GuestInfo{
			Email: meta["email"],
			Name:  meta["name"],
			Phone: meta["phone"],
		}
	}

	if coupon := meta["coupon"]; coupon != "" {
		var oc models.OrderCoupon
		if err := json.Unmarshal([]byte(coupon), &oc); err == nil {
			evt.Coupon = &oc
		} else {
			log.Printf("⚠️ Coupon illisible dans les metadata de %s: %v", pi.ID, err)
		}
	}

	return evt, nil
}

func (g *StripeGateway) RetrieveOrderDetails(ctx context.Context, providerOrderID string) (*OrderSnapshot, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(providerOrderID, params)
	if err != nil {
		return nil, &GatewayError{Provider: "stripe", Op: "retrieve-order-details", Err: err}
	}

	return &OrderSnapshot{
		ProviderOrderID: pi.ID,
		TransactionRef:  pi.ID,
		Status:          string(pi.Status),
		Amount:          float64(pi.Amount) / 100,
		Currency:        strings.ToUpper(string(pi.Currency)),
		PayerEmail:      pi.ReceiptEmail,
	}, nil
}
