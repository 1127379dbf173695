package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"strings"
	"time"

	"atelier_back_end/internal/models"
)

// GenerateGiftCode : code cadeau court, lisible, non devinable
func GenerateGiftCode() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand ne tombe pas en pratique ; on ne casse pas l'émission pour autant
		return strings.ToUpper(hex.EncodeToString([]byte(time.Now().Format("150405.000"))))[:12]
	}
	return strings.ToUpper(hex.EncodeToString(buf))
}

// issueGiftCodes émet un code par unité de la famille carte-cadeau et
// l'envoie à l'acheteur. Post-commit : un échec se logge, rien de plus.
func (s *ReconcileService) issueGiftCodes(ctx context.Context, order *models.Order, items []models.OrderItem) {
	for _, item := range items {
		if item.ServiceType != models.ServiceTypeGiftCard {
			continue
		}
		for i := 0; i < item.Quantity; i++ {
			gc := &models.GiftCode{
				Code:      GenerateGiftCode(),
				OrderID:   order.ID,
				ServiceID: item.ServiceID,
				Amount:    item.Price,
				IssuedTo:  order.PayerEmail,
				CreatedAt: time.Now(),
			}
			if err := s.Orders.InsertGiftCode(ctx, gc); err != nil {
				log.Printf("❌ Enregistrement du code cadeau pour %s échoué: %v", order.ID, err)
				continue
			}
			log.Printf("🎁 Code cadeau %s émis pour la commande %s", gc.Code, order.ID)
			if s.Notify != nil {
				s.Notify.GiftCodeIssued(order, gc)
			}
		}
	}
}
