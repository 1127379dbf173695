package payement

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"

	"atelier_back_end/internal/models"
	"atelier_back_end/internal/payments"

	"github.com/gin-gonic/gin"
)

// CreateCheckoutSession démarre un paiement carte ou wallet.
// Accessible connecté OU invité : un invité fournit ses coordonnées dans guest_info.
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	var req struct {
		Items []struct {
			ServiceID   string  `json:"service_id" binding:"required"`
			Name        string  `json:"name" binding:"required"`
			Price       float64 `json:"price"`
			Quantity    int     `json:"quantity" binding:"required"`
			ServiceType string  `json:"service_type"`
		} `json:"items" binding:"required"`
		Method    string  `json:"method"` // "card" (défaut) ou "paypal"
		Currency  string  `json:"currency"`
		OrderType string  `json:"order_type"`
		PromoCode string  `json:"promo_code"`
		GuestInfo *struct {
			Email string `json:"email"`
			Name  string `json:"name"`
			Phone string `json:"phone"`
		} `json:"guest_info"`
		Coupon *models.OrderCoupon `json:"coupon"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	userID := c.GetString("user_id")
	email := c.GetString("email")

	guest := userID == ""
	name := ""
	phone := ""
	if guest {
		if req.GuestInfo == nil || req.GuestInfo.Email == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Coordonnées invité requises"})
			return
		}
		email = req.GuestInfo.Email
		name = req.GuestInfo.Name
		phone = req.GuestInfo.Phone
	}

	lines := make([]models.PaymentLine, 0, len(req.Items))
	total := 0.0
	for _, item := range req.Items {
		if item.Quantity <= 0 || item.Price < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Ligne invalide : " + item.ServiceID})
			return
		}
		lineTotal := item.Price * float64(item.Quantity)
		lines = append(lines, models.PaymentLine{
			ServiceID:   item.ServiceID,
			Name:        item.Name,
			Price:       item.Price,
			Quantity:    item.Quantity,
			Total:       lineTotal,
			ServiceType: item.ServiceType,
		})
		total += lineTotal
	}
	if len(lines) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Aucune ligne à payer"})
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = "EUR"
	}
	orderType := req.OrderType
	if orderType != models.OrderTypeSubscription {
		orderType = models.OrderTypeOneTime
	}

	// Le panier et le contexte acheteur voyagent dans les metadata et
	// reviennent tels quels dans l'événement de complétion
	cartJSON, err := json.Marshal(lines)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur sérialisation panier"})
		return
	}

	metadata := map[string]string{
		"user_id":    userID,
		"email":      email,
		"name":       name,
		"phone":      phone,
		"order_type": orderType,
		"promo_code": req.PromoCode,
		"cart":       string(cartJSON),
	}
	if guest {
		metadata["guest"] = "1"
	}
	if req.Coupon != nil {
		if couponJSON, err := json.Marshal(req.Coupon); err == nil {
			metadata["coupon"] = string(couponJSON)
		}
	}

	frontend := os.Getenv("FRONTEND_URL")
	if frontend == "" {
		frontend = "http://localhost:5173"
	}

	session, err := h.gatewayFor(req.Method).CreateCheckoutSession(c.Request.Context(), &payments.CheckoutRequest{
		Amount:     total,
		Currency:   currency,
		Lines:      lines,
		Metadata:   metadata,
		SuccessURL: frontend + "/checkout/success",
		CancelURL:  frontend + "/checkout/cancel",
	})
	if err != nil {
		var gwErr *payments.GatewayError
		if errors.As(err, &gwErr) {
			log.Printf("❌ Erreur passerelle: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Fournisseur de paiement indisponible"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création paiement"})
		return
	}

	log.Printf("💳 Checkout créé: %s (%.2f %s, %d ligne(s)) pour %s", session.ID, total, currency, len(lines), email)

	c.JSON(http.StatusOK, gin.H{
		"session_id":    session.ID,
		"redirect_url":  session.RedirectURL,
		"client_secret": session.ClientSecret,
		"amount":        total,
		"currency":      currency,
		"items_count":   len(lines),
	})
}
