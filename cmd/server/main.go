package main

import (
	"log"
	"os"

	"atelier_back_end/internal/config"
	"atelier_back_end/internal/database"
	"atelier_back_end/internal/handlers/orders"
	"atelier_back_end/internal/handlers/payement"
	"atelier_back_end/internal/handlers/user"
	"atelier_back_end/internal/payments"
	"atelier_back_end/internal/routes"
	"atelier_back_end/internal/services"
	"atelier_back_end/internal/store"

	"github.com/gin-gonic/gin"
)

func main() {
	config.Load()

	stripeKey := os.Getenv("STRIPE_SECRET_KEY")
	if stripeKey == "" {
		log.Fatal("❌ Impossible d'initialiser Stripe : clé manquante")
	}
	card := payments.NewStripeGateway(stripeKey, os.Getenv("STRIPE_WEBHOOK_SECRET"))
	log.Println("✅ Stripe initialisé")

	wallet := payments.NewPayPalGateway(
		os.Getenv("PAYPAL_CLIENT_ID"),
		os.Getenv("PAYPAL_SECRET"),
		os.Getenv("PAYPAL_MODE"),
	)
	log.Println("✅ PayPal initialisé")

	database.ConnectDatabases()
	defer database.CloseScylla()

	// Stores
	userStore := store.NewScyllaUserStore()
	orderStore := store.NewScyllaOrderStore()
	cartStore := store.NewRedisCartStore()

	// Services
	notifier := services.NewMailNotifier(userStore)
	identity := services.NewIdentityResolver(userStore)
	reconciler := &services.ReconcileService{
		Orders:   orderStore,
		Identity: identity,
		Notify:   notifier,
		Cart:     cartStore,
		Index:    services.ElasticOrderIndex{},
	}
	statusSvc := &services.StatusService{Orders: orderStore, Notify: notifier}
	revisionSvc := &services.RevisionService{Orders: orderStore, Notify: notifier}

	// Handlers
	h := &routes.Handlers{
		Payments: payement.NewHandler(card, wallet, reconciler),
		Orders:   orders.NewHandler(orderStore, statusSvc, revisionSvc),
		Cart:     user.NewCartHandler(cartStore),
	}

	r := gin.Default()
	routes.RegisterRoutes(r, h)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Println("🚀 Serveur Atelier lancé sur le port", port)
	r.Run(":" + port)
}
