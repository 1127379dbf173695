package orders

import (
	"context"
	"log"
	"net/http"
	"time"

	"atelier_back_end/internal/database"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Autoriser toutes les origines (à ajuster en production)
		return true
	},
}

// OrdersWebSocket pousse les mises à jour de commandes de l'utilisateur en
// temps réel (nouvelle commande, livraison, révision)
func (h *Handler) OrdersWebSocket(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(401, gin.H{"error": "Non authentifié"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ Erreur upgrade WebSocket: %v", err)
		return
	}
	defer conn.Close()

	ctx := context.Background()

	// S'abonner au canal Redis pour ce user
	pubsub := database.Redis.Subscribe(ctx, "orders:"+userID)
	defer pubsub.Close()

	ch := pubsub.Channel()

	if err := conn.WriteJSON(map[string]interface{}{
		"type":    "connected",
		"message": "Suivi de commandes activé",
	}); err != nil {
		log.Printf("❌ Erreur envoi WebSocket: %v", err)
		return
	}

	for {
		select {
		case msg := <-ch:
			if msg.Payload != "updated" {
				continue
			}

			// Relire les commandes et pousser l'état complet
			list, err := h.Orders.GetOrdersByUser(ctx, userID)
			if err != nil {
				log.Printf("❌ Erreur lecture commandes WebSocket: %v", err)
				continue
			}

			response := map[string]interface{}{
				"type":   "orders_updated",
				"orders": list,
				"count":  len(list),
			}
			if err := conn.WriteJSON(response); err != nil {
				log.Printf("❌ Erreur envoi WebSocket: %v", err)
				return
			}
		case <-time.After(30 * time.Second):
			// Ping pour garder la connexion active
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
