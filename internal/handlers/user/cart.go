package user

import (
	"net/http"

	"atelier_back_end/internal/models"
	"atelier_back_end/internal/store"

	"github.com/gin-gonic/gin"
)

// CartHandler : panier persistant de l'utilisateur connecté
type CartHandler struct {
	Cart *store.RedisCartStore
}

func NewCartHandler(cart *store.RedisCartStore) *CartHandler {
	return &CartHandler{Cart: cart}
}

// GetCart retourne le panier avec total et compteur
func (h *CartHandler) GetCart(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Non authentifié"})
		return
	}

	cart, err := h.Cart.Get(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture panier"})
		return
	}

	total := 0.0
	for _, item := range cart {
		total += item.Price * float64(item.Quantity)
	}

	c.JSON(http.StatusOK, gin.H{"items": cart, "total": total, "count": len(cart)})
}

// SaveCart remplace le panier entier (le front envoie toujours l'état complet)
func (h *CartHandler) SaveCart(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Non authentifié"})
		return
	}

	var req struct {
		Items []models.CartItem `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	for _, item := range req.Items {
		if item.ServiceID == "" || item.Quantity <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Ligne de panier invalide"})
			return
		}
	}

	if err := h.Cart.Save(c.Request.Context(), userID, req.Items); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur sauvegarde panier"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": true, "count": len(req.Items)})
}

// ClearCart vide le panier
func (h *CartHandler) ClearCart(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Non authentifié"})
		return
	}

	if err := h.Cart.Clear(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur vidage panier"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}
