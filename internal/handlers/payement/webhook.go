package payement

import (
	"errors"
	"log"
	"net/http"

	"atelier_back_end/internal/payments"
	"atelier_back_end/internal/services"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20 // 1 MB, largement au-dessus des payloads Stripe

// StripeWebhook reçoit les événements poussés par Stripe.
// La signature se vérifie sur le corps BRUT : toute lecture/réécriture du body
// avant la vérification casse la signature.
func (h *Handler) StripeWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)

	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Corps illisible"})
		return
	}

	evt, err := h.Card.VerifyAndParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payments.ErrInvalidSignature) {
			log.Printf("⚠️ Webhook Stripe rejeté : %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Signature invalide"})
			return
		}
		log.Printf("❌ Webhook Stripe illisible : %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Événement illisible"})
		return
	}

	// Événement authentique mais sans intérêt (autre type) : on acquitte
	if evt == nil {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	order, created, err := h.Reconciler.Reconcile(c.Request.Context(), evt)
	if err != nil {
		// Événement définitivement invalide : 400, inutile que Stripe le rejoue
		var vErr *services.ValidationError
		if errors.As(err, &vErr) {
			log.Printf("⚠️ Événement %s invalide : %v", evt.TransactionRef, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Reason})
			return
		}
		// 500 → Stripe re-livrera l'événement, la réconciliation est idempotente
		log.Printf("❌ Réconciliation de %s échouée : %v", evt.TransactionRef, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Réconciliation échouée"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"received": true,
		"order_id": order.ID,
		"created":  created,
	})
}
