package models

import "time"

// Codes de statut de commande — codes entiers hérités de l'ancien système,
// conservés tels quels pour la compatibilité avec les dashboards existants
const (
	OrderStatusPending           = 0
	OrderStatusInProgress        = 1
	OrderStatusDelivered         = 2
	OrderStatusCancelled         = 3
	OrderStatusRevisionRequested = 4
)

const (
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

const (
	OrderTypeOneTime      = "one_time"
	OrderTypeSubscription = "subscription"
)

const (
	PaymentMethodCard   = "card"
	PaymentMethodPayPal = "paypal"
)

// ServiceTypeGiftCard déclenche l'émission d'un code cadeau à la réconciliation
const ServiceTypeGiftCard = "gift_card"

// RevisionsPerUnit : allocation de révisions par unité achetée
const RevisionsPerUnit = 3

// Acteurs des badges "non lu"
const (
	ActorAdmin = "admin"
	ActorBuyer = "buyer"
)

type Order struct {
	ID              string    `json:"order_id"`
	UserID          string    `json:"user_id"`
	TransactionRef  string    `json:"transaction_ref"`
	Amount          float64   `json:"amount"`
	Currency        string    `json:"currency"`
	PromoCode       string    `json:"promo_code,omitempty"`
	PayerName       string    `json:"payer_name"`
	PayerEmail      string    `json:"payer_email"`
	PaymentStatus   string    `json:"payment_status"`
	OrderStatus     int       `json:"order_status"`
	OrderType       string    `json:"order_type"`
	PaymentMethod   string    `json:"payment_method"`
	ProviderOrderID string    `json:"provider_order_id,omitempty"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type OrderItem struct {
	OrderID     string   `json:"order_id"`
	ServiceID   string   `json:"service_id"`
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Quantity    int      `json:"quantity"`
	Total       float64  `json:"total"`
	ServiceType string   `json:"service_type"`
	MaxRevision int      `json:"max_revision"`
	Files       []string `json:"files"`
	AdminUnread bool     `json:"admin_unread"`
	BuyerUnread bool     `json:"buyer_unread"`
}

// OrderCoupon : photo du coupon appliqué au moment du paiement, jamais modifiée
type OrderCoupon struct {
	OrderID       string   `json:"order_id"`
	Code          string   `json:"code"`
	DiscountType  string   `json:"discount_type"`
	DiscountValue float64  `json:"discount_value"`
	ProductIDs    []string `json:"product_ids,omitempty"`
}

type GiftCode struct {
	Code      string    `json:"code"`
	OrderID   string    `json:"order_id"`
	ServiceID string    `json:"service_id"`
	Amount    float64   `json:"amount"`
	IssuedTo  string    `json:"issued_to"`
	CreatedAt time.Time `json:"created_at"`
}

func IsValidOrderStatus(status int) bool {
	return status >= OrderStatusPending && status <= OrderStatusRevisionRequested
}

// OrderStatusLabel : libellé lisible pour les emails et les logs
func OrderStatusLabel(status int) string {
	switch status {
	case OrderStatusPending:
		return "pending"
	case OrderStatusInProgress:
		return "in_progress"
	case OrderStatusDelivered:
		return "delivered"
	case OrderStatusCancelled:
		return "cancelled"
	case OrderStatusRevisionRequested:
		return "revision_requested"
	default:
		return "unknown"
	}
}
