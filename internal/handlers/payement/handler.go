package payement

import (
	"atelier_back_end/internal/payments"
	"atelier_back_end/internal/services"
)

// Handler : endpoints de paiement. Les passerelles sont construites une fois
// au démarrage et injectées, une par famille de paiement.
type Handler struct {
	Card       payments.Gateway // Stripe
	Wallet     payments.Gateway // PayPal
	Reconciler *services.ReconcileService
}

func NewHandler(card, wallet payments.Gateway, reconciler *services.ReconcileService) *Handler {
	return &Handler{Card: card, Wallet: wallet, Reconciler: reconciler}
}

// gatewayFor retourne la passerelle correspondant à la méthode demandée
func (h *Handler) gatewayFor(method string) payments.Gateway {
	if method == "paypal" {
		return h.Wallet
	}
	return h.Card
}
