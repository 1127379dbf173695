package orders

import (
	"errors"
	"net/http"

	"atelier_back_end/internal/store"

	"github.com/gin-gonic/gin"
)

// ListMine retourne les commandes de l'utilisateur connecté
func (h *Handler) ListMine(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Non authentifié"})
		return
	}

	list, err := h.Orders.GetOrdersByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture commandes"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list, "count": len(list)})
}

// Detail retourne la commande avec ses lignes, son coupon et ses révisions
func (h *Handler) Detail(c *gin.Context) {
	order, ok := h.loadOwnedOrder(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	items, err := h.Orders.GetItems(ctx, order.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture lignes"})
		return
	}

	revisions, err := h.Orders.ListRevisions(ctx, order.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture révisions"})
		return
	}

	response := gin.H{
		"order":     order,
		"items":     items,
		"revisions": revisions,
	}

	coupon, err := h.Orders.GetCoupon(ctx, order.ID)
	if err == nil {
		response["coupon"] = coupon
	} else if !errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture coupon"})
		return
	}

	c.JSON(http.StatusOK, response)
}
