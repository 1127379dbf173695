package orders

import (
	"net/http"

	"atelier_back_end/internal/services"

	"github.com/gin-gonic/gin"
)

// UpdateStatus : écriture du statut par l'équipe
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status *int `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Statut requis"})
		return
	}

	order, err := h.Status.SetStatus(c.Request.Context(), c.Param("id"), *req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// DeliverItem : livraison des fichiers d'une ligne par l'équipe.
// Accepte un multipart (upload MinIO) ou un JSON {links: [...]}.
func (h *Handler) DeliverItem(c *gin.Context) {
	orderID := c.Param("id")
	serviceID := c.Param("serviceId")

	links, ok := collectDeliveryLinks(c, orderID, serviceID)
	if !ok {
		return
	}

	order, item, err := h.Status.DeliverItem(c.Request.Context(), orderID, serviceID, links)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "item": item})
}

// collectDeliveryLinks rassemble les liens livrés : fichiers multipart uploadés
// dans le bucket, ou liens directs envoyés en JSON
func collectDeliveryLinks(c *gin.Context, orderID, serviceID string) ([]string, bool) {
	contentType := c.ContentType()

	if contentType == "multipart/form-data" {
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Formulaire invalide"})
			return nil, false
		}

		files := form.File["files"]
		if len(files) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Aucun fichier fourni"})
			return nil, false
		}

		links := make([]string, 0, len(files))
		for _, file := range files {
			url, err := services.UploadDeliverable(c.Request.Context(), orderID, serviceID, file)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload échoué : " + file.Filename})
				return nil, false
			}
			links = append(links, url)
		}
		return links, true
	}

	var req struct {
		Links []string `json:"links" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Links) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Liens requis"})
		return nil, false
	}
	return req.Links, true
}

// SetRevisionQuota : override admin du quota d'une ligne, seul chemin
// autorisé à remonter un quota
func (h *Handler) SetRevisionQuota(c *gin.Context) {
	var req struct {
		Quota *int `json:"quota" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || *req.Quota < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quota invalide"})
		return
	}

	if err := h.Orders.SetRevisionQuota(c.Request.Context(), c.Param("id"), c.Param("serviceId"), *req.Quota); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quota": *req.Quota})
}
