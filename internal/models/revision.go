package models

import "time"

const (
	RevisionStatusPending   = "pending"
	RevisionStatusDelivered = "delivered"
)

// Revision : demande de modification d'un acheteur sur une ligne de commande.
// Les révisions d'une commande sont triées de la plus ancienne à la plus récente.
type Revision struct {
	OrderID        string    `json:"order_id"`
	RevisionID     string    `json:"revision_id"`
	UserID         string    `json:"user_id"`
	ServiceID      string    `json:"service_id"`
	TransactionRef string    `json:"transaction_ref,omitempty"`
	Message        string    `json:"message"`
	Files          []string  `json:"files"`
	Status         string    `json:"status"`
	AdminUnread    bool      `json:"admin_unread"`
	BuyerUnread    bool      `json:"buyer_unread"`
	CreatedAt      time.Time `json:"created_at"`
}
