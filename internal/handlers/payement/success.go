package payement

import (
	"errors"
	"log"
	"net/http"

	"atelier_back_end/internal/models"
	"atelier_back_end/internal/payments"
	"atelier_back_end/internal/services"

	"github.com/gin-gonic/gin"
)

// ConfirmWalletOrder finalise un paiement wallet après le retour de redirection.
// Le client n'est jamais cru sur parole : on relit l'état de la commande chez
// le fournisseur et on exige un paiement réellement abouti.
func (h *Handler) ConfirmWalletOrder(c *gin.Context) {
	var req struct {
		ProviderOrderID string               `json:"provider_order_id" binding:"required"`
		OrderType       string               `json:"order_type"`
		PromoCode       string               `json:"promo_code"`
		Items           []models.PaymentLine `json:"items" binding:"required"`
		GuestInfo       *models.GuestInfo    `json:"guest_info"`
		Coupon          *models.OrderCoupon  `json:"coupon"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	snapshot, err := h.Wallet.RetrieveOrderDetails(c.Request.Context(), req.ProviderOrderID)
	if err != nil {
		var gwErr *payments.GatewayError
		if errors.As(err, &gwErr) {
			log.Printf("❌ Relecture commande %s échouée : %v", req.ProviderOrderID, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Fournisseur de paiement indisponible"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur vérification paiement"})
		return
	}

	if !snapshot.Completed() {
		log.Printf("⚠️ Commande %s non aboutie côté fournisseur (statut %s)", req.ProviderOrderID, snapshot.Status)
		c.JSON(http.StatusConflict, gin.H{"error": "Paiement non abouti", "status": snapshot.Status})
		return
	}

	userID := c.GetString("user_id")
	email := c.GetString("email")
	guest := userID == ""
	if email == "" {
		email = snapshot.PayerEmail
	}

	evt := &models.CompletedPaymentEvent{
		TransactionRef:  snapshot.TransactionRef,
		ProviderOrderID: snapshot.ProviderOrderID,
		Amount:          snapshot.Amount,
		Currency:        snapshot.Currency,
		Email:           email,
		DisplayName:     snapshot.PayerName,
		Lines:           req.Items,
		OrderType:       req.OrderType,
		PromoCode:       req.PromoCode,
		PaymentMethod:   models.PaymentMethodPayPal,
		Guest:           guest,
		GuestInfo:       req.GuestInfo,
		Coupon:          req.Coupon,
	}

	order, created, err := h.Reconciler.Reconcile(c.Request.Context(), evt)
	if err != nil {
		var vErr *services.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Reason})
			return
		}
		log.Printf("❌ Réconciliation de %s échouée : %v", evt.TransactionRef, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Réconciliation échouée"})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"order": order, "created": created})
}
