package orders

import (
	"errors"
	"net/http"

	"atelier_back_end/internal/models"
	"atelier_back_end/internal/services"
	"atelier_back_end/internal/store"

	"github.com/gin-gonic/gin"
)

// Handler : endpoints de consultation et de suivi des commandes
type Handler struct {
	Orders    store.OrderStore
	Status    *services.StatusService
	Revisions *services.RevisionService
}

func NewHandler(orders store.OrderStore, status *services.StatusService, revisions *services.RevisionService) *Handler {
	return &Handler{Orders: orders, Status: status, Revisions: revisions}
}

// isStaff : admin ou ingénieur d'après le rôle du token
func isStaff(c *gin.Context) bool {
	role := c.GetString("role")
	return role == models.RoleAdmin || role == models.RoleEngineer
}

// loadOwnedOrder charge la commande et vérifie que l'appelant est le
// propriétaire ou un membre de l'équipe. Répond lui-même en cas de refus.
func (h *Handler) loadOwnedOrder(c *gin.Context) (*models.Order, bool) {
	order, err := h.Orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture commande"})
		}
		return nil, false
	}

	if !isStaff(c) && order.UserID != c.GetString("user_id") {
		// 404 plutôt que 403 : ne pas confirmer l'existence d'une commande d'autrui
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
		return nil, false
	}
	return order, true
}

// respondServiceError traduit les erreurs domaine en codes HTTP
func respondServiceError(c *gin.Context, err error) {
	var vErr *services.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Reason})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Ressource introuvable"})
	case errors.Is(err, store.ErrQuotaExhausted):
		c.JSON(http.StatusConflict, gin.H{"error": "Quota de révisions épuisé"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne"})
	}
}
