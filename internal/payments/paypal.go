package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"atelier_back_end/internal/models"
)

const (
	paypalSandboxURL = "https://api-m.sandbox.paypal.com"
	paypalLiveURL    = "https://api-m.paypal.com"
)

// PayPalGateway : fournisseur famille wallet redirect. Le paiement est
// confirmé par un callback piloté par le client : le serveur doit toujours
// relire la commande chez PayPal plutôt que croire un success=true.
type PayPalGateway struct {
	clientID string
	secret   string
	baseURL  string
	http     *http.Client
}

func NewPayPalGateway(clientID, secret, mode string) *PayPalGateway {
	baseURL := paypalSandboxURL
	if strings.ToLower(mode) == "live" {
		baseURL = paypalLiveURL
	}
	return &PayPalGateway{
		clientID: clientID,
		secret:   secret,
		baseURL:  baseURL,
		// Timeout conservateur : un timeout est une GatewayError, jamais un succès silencieux
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *PayPalGateway) token(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(g.clientID, g.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token HTTP %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.AccessToken, nil
}

func (g *PayPalGateway) call(ctx context.Context, method, path string, payload, out interface{}) error {
	token, err := g.token(ctx)
	if err != nil {
		return err
	}

	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("HTTP %d sur %s", resp.StatusCode, path)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

type paypalOrder struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
	Payer struct {
		Email string `json:"email_address"`
		Name  struct {
			GivenName string `json:"given_name"`
			Surname   string `json:"surname"`
		} `json:"name"`
	} `json:"payer"`
	PurchaseUnits []struct {
		Amount struct {
			CurrencyCode string `json:"currency_code"`
			Value        string `json:"value"`
		} `json:"amount"`
		Payments struct {
			Captures []struct {
				ID string `json:"id"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

func (g *PayPalGateway) CreateCheckoutSession(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error) {
	payload := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{{
			"amount": map[string]string{
				"currency_code": strings.ToUpper(req.Currency),
				"value":         fmt.Sprintf("%.2f", req.Amount),
			},
			"custom_id": req.Metadata["user_id"],
		}},
		"application_context": map[string]string{
			"return_url": req.SuccessURL,
			"cancel_url": req.CancelURL,
		},
	}

	var order paypalOrder
	if err := g.call(ctx, http.MethodPost, "/v2/checkout/orders", payload, &order); err != nil {
		return nil, &GatewayError{Provider: "paypal", Op: "create-redirect-order", Err: err}
	}

	session := &CheckoutSession{ID: order.ID}
	for _, link := range order.Links {
		if link.Rel == "approve" {
			session.RedirectURL = link.Href
		}
	}
	if session.RedirectURL == "" {
		return nil, &GatewayError{Provider: "paypal", Op: "create-redirect-order",
			Err: fmt.Errorf("pas de lien d'approbation dans la réponse")}
	}

	log.Printf("💳 Commande PayPal créée : %s (%.2f %s)", order.ID, req.Amount, req.Currency)
	return session, nil
}

// VerifyAndParseWebhook : PayPal est utilisé en mode redirect uniquement, il ne
// pousse pas de webhook ici. La confirmation passe par RetrieveOrderDetails.
func (g *PayPalGateway) VerifyAndParseWebhook(payload []byte, signature string) (*models.CompletedPaymentEvent, error) {
	return nil, &GatewayError{Provider: "paypal", Op: "verify-webhook",
		Err: fmt.Errorf("le fournisseur redirect ne pousse pas de webhooks")}
}

func (g *PayPalGateway) RetrieveOrderDetails(ctx context.Context, providerOrderID string) (*OrderSnapshot, error) {
	var order paypalOrder
	if err := g.call(ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(providerOrderID), nil, &order); err != nil {
		return nil, &GatewayError{Provider: "paypal", Op: "retrieve-order-details", Err: err}
	}

	snapshot := &OrderSnapshot{
		ProviderOrderID: order.ID,
		TransactionRef:  order.ID,
		Status:          order.Status,
		PayerEmail:      order.Payer.Email,
		PayerName:       strings.TrimSpace(order.Payer.Name.GivenName + " " + order.Payer.Name.Surname),
	}

	if len(order.PurchaseUnits) > 0 {
		unit := order.PurchaseUnits[0]
		snapshot.Currency = unit.Amount.CurrencyCode
		if amount, err := strconv.ParseFloat(unit.Amount.Value, 64); err == nil {
			snapshot.Amount = amount
		}
		// La capture fait une meilleure clé d'idempotence que l'id de commande
		if len(unit.Payments.Captures) > 0 {
			snapshot.TransactionRef = unit.Payments.Captures[0].ID
		}
	}

	return snapshot, nil
}
