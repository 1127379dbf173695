package models

// CartItem : ligne du panier persistant (stocké en JSON dans Redis, clé "cart:<user_id>")
type CartItem struct {
	ServiceID   string  `json:"service_id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	ServiceType string  `json:"service_type,omitempty"`
}
