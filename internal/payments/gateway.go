package payments

import (
	"context"
	"errors"
	"fmt"

	"atelier_back_end/internal/models"
)

// ErrInvalidSignature : le webhook ne vient pas du fournisseur, on ne traite rien
var ErrInvalidSignature = errors.New("signature du webhook invalide")

// GatewayError : erreur réseau/API côté fournisseur. Distincte des erreurs de
// validation pour que les handlers répondent 502 et jamais un faux succès.
type GatewayError struct {
	Provider string
	Op       string
	Err      error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("erreur fournisseur %s (%s): %v", e.Provider, e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// CheckoutRequest : démarrage d'un paiement. Metadata doit être restitué tel
// quel par le fournisseur dans l'événement de complétion.
type CheckoutRequest struct {
	Amount     float64
	Currency   string
	Lines      []models.PaymentLine
	Metadata   map[string]string
	SuccessURL string
	CancelURL  string
}

// CheckoutSession : de quoi rediriger (ou confirmer côté client) le paiement
type CheckoutSession struct {
	ID           string `json:"id"`
	RedirectURL  string `json:"redirect_url,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
}

// OrderSnapshot : état faisant foi d'une commande fournisseur, récupéré
// côté serveur. Ne jamais se fier au flag success=true envoyé par le client.
type OrderSnapshot struct {
	ProviderOrderID string
	TransactionRef  string
	Status          string
	Amount          float64
	Currency        string
	PayerName       string
	PayerEmail      string
}

// Completed indique si le paiement est réellement abouti côté fournisseur
func (s *OrderSnapshot) Completed() bool {
	return s.Status == "COMPLETED" || s.Status == "succeeded"
}

// Gateway : surface neutre d'un fournisseur de paiement. Une implémentation
// par famille (carte → Stripe, wallet redirect → PayPal). Construit une seule
// fois au démarrage et injecté, jamais de client global paresseux.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error)
	// VerifyAndParseWebhook vérifie la signature sur le corps brut AVANT tout
	// parsing. Retourne (nil, nil) pour un événement authentique mais ignoré.
	VerifyAndParseWebhook(payload []byte, signature string) (*models.CompletedPaymentEvent, error)
	RetrieveOrderDetails(ctx context.Context, providerOrderID string) (*OrderSnapshot, error)
}
