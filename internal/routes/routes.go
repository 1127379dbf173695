package routes

import (
	"os"
	"strings"
	"time"

	"atelier_back_end/internal/handlers/orders"
	"atelier_back_end/internal/handlers/payement"
	"atelier_back_end/internal/handlers/user"
	"atelier_back_end/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers : tout ce que le routeur doit brancher
type Handlers struct {
	Payments *payement.Handler
	Orders   *orders.Handler
	Cart     *user.CartHandler
}

func RegisterRoutes(r *gin.Engine, h *Handlers) {
	origins := strings.Split(os.Getenv("CORS_ORIGINS"), ",")
	if len(origins) == 1 && origins[0] == "" {
		origins = []string{"http://localhost:5173", "http://localhost:5174"}
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Stripe-Signature"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Paiement. Le webhook n'a ni auth ni rate-limit IP (le fournisseur pousse
	// en rafale) : la signature fait office d'authentification. Les autres
	// endpoints sont ouverts aux invités, les claims sont posés si un token est là.
	pay := r.Group("/payments")
	{
		pay.POST("/webhook", h.Payments.StripeWebhook)
		pay.POST("/checkout-session", middleware.APIRateLimit(), middleware.OptionalAuth(), h.Payments.CreateCheckoutSession)
		pay.POST("/success", middleware.APIRateLimit(), middleware.OptionalAuth(), h.Payments.ConfirmWalletOrder)
	}

	// Panier : utilisateur connecté uniquement
	cart := r.Group("/cart")
	cart.Use(middleware.APIRateLimit(), middleware.AuthRequired())
	{
		cart.GET("", h.Cart.GetCart)
		cart.PUT("", middleware.CartRateLimit(), h.Cart.SaveCart)
		cart.DELETE("", h.Cart.ClearCart)
	}

	// Commandes : propriétaire ou équipe
	ord := r.Group("/orders")
	ord.Use(middleware.APIRateLimit(), middleware.AuthRequired())
	{
		ord.GET("", h.Orders.ListMine)
		ord.GET("/:id", h.Orders.Detail)
		ord.GET("/:id/invoice", h.Orders.Invoice)
		ord.PUT("/:id/read-flag", h.Orders.SetReadFlag)
		ord.POST("/:id/revisions", middleware.RevisionRateLimit(), h.Orders.RequestRevision)

		// Écritures réservées à l'équipe
		staff := ord.Group("")
		staff.Use(middleware.RequireStaff)
		{
			staff.PUT("/:id/status", h.Orders.UpdateStatus)
			staff.POST("/:id/items/:serviceId/delivery", h.Orders.DeliverItem)
			staff.POST("/:id/revisions/:revisionId/files", h.Orders.DeliverRevision)
		}
	}

	// Back-office admin
	admin := r.Group("/admin")
	admin.Use(middleware.APIRateLimit(), middleware.AuthRequired(), middleware.RequireAdmin)
	{
		admin.GET("/orders/search", h.Orders.Search)
		admin.PUT("/orders/:id/items/:serviceId/quota", h.Orders.SetRevisionQuota)
	}

	// WebSocket de suivi des commandes
	ws := r.Group("/ws")
	ws.Use(middleware.AuthRequired())
	{
		ws.GET("/orders", h.Orders.OrdersWebSocket)
	}
}
