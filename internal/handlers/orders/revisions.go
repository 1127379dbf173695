package orders

import (
	"net/http"

	"atelier_back_end/internal/models"
	"atelier_back_end/internal/services"

	"github.com/gin-gonic/gin"
)

// RequestRevision : demande de révision par l'acheteur sur une ligne
func (h *Handler) RequestRevision(c *gin.Context) {
	order, ok := h.loadOwnedOrder(c)
	if !ok {
		return
	}

	var req struct {
		ServiceID      string `json:"service_id" binding:"required"`
		Message        string `json:"message" binding:"required"`
		TransactionRef string `json:"transaction_ref"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "service_id et message requis"})
		return
	}

	outcome, err := h.Revisions.RequestRevision(c.Request.Context(),
		order.ID, req.ServiceID, c.GetString("user_id"), req.Message, req.TransactionRef)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, outcome)
}

// DeliverRevision : livraison des fichiers d'une révision par l'équipe
func (h *Handler) DeliverRevision(c *gin.Context) {
	orderID := c.Param("id")
	revisionID := c.Param("revisionId")

	links, ok := collectDeliveryLinks(c, orderID, revisionID)
	if !ok {
		return
	}

	outcome, err := h.Revisions.DeliverFiles(c.Request.Context(), orderID, revisionID, links)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// SetReadFlag : bascule d'un badge "non lu" sur une ligne ou une révision.
// L'acteur vient du rôle : l'équipe gère ses badges, l'acheteur les siens.
func (h *Handler) SetReadFlag(c *gin.Context) {
	order, ok := h.loadOwnedOrder(c)
	if !ok {
		return
	}

	var req struct {
		ServiceID string `json:"service_id"`
		Type      string `json:"type" binding:"required"` // "order" ou "revision"
		Value     *bool  `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	actor := models.ActorBuyer
	if isStaff(c) {
		actor = models.ActorAdmin
	}

	if req.Type == services.ReadFlagOrder && req.ServiceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "service_id requis pour un badge de ligne"})
		return
	}

	if err := h.Revisions.SetReadFlag(c.Request.Context(), order.ID, req.ServiceID, actor, req.Type, *req.Value); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}
