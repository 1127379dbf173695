package models

// PaymentLine : ligne achetée telle que rapportée par le fournisseur de paiement
type PaymentLine struct {
	ServiceID   string  `json:"service_id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Total       float64 `json:"total"`
	ServiceType string  `json:"service_type,omitempty"`
}

// GuestInfo : coordonnées saisies lors d'un checkout invité. Prioritaires sur
// le nom rapporté par le fournisseur.
type GuestInfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// CompletedPaymentEvent : représentation neutre d'un paiement abouti, quelle
// que soit sa provenance (webhook Stripe ou callback redirect PayPal).
// TransactionRef est la clé d'idempotence de toute la réconciliation.
type CompletedPaymentEvent struct {
	TransactionRef  string        `json:"transaction_ref"`
	ProviderOrderID string        `json:"provider_order_id,omitempty"`
	Amount          float64       `json:"amount"`
	Currency        string        `json:"currency"`
	Email           string        `json:"email"`
	DisplayName     string        `json:"display_name,omitempty"`
	Phone           string        `json:"phone,omitempty"`
	Lines           []PaymentLine `json:"lines"`
	OrderType       string        `json:"order_type"`
	PromoCode       string        `json:"promo_code,omitempty"`
	PaymentMethod   string        `json:"payment_method"`
	Guest           bool          `json:"guest"`
	GuestInfo       *GuestInfo    `json:"guest_info,omitempty"`
	Coupon          *OrderCoupon  `json:"coupon,omitempty"`
}
