package orders

import (
	"fmt"
	"log"
	"net/http"

	"atelier_back_end/internal/utils"

	"github.com/gin-gonic/gin"
)

// Invoice génère et retourne la facture PDF de la commande
func (h *Handler) Invoice(c *gin.Context) {
	order, ok := h.loadOwnedOrder(c)
	if !ok {
		return
	}

	pdf, err := utils.GenerateInvoicePDF(order)
	if err != nil {
		log.Printf("❌ Génération facture pour %s échouée: %v", order.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Génération de la facture échouée"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="facture_%s.pdf"`, order.ID))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
