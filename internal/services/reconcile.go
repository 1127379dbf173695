package services

import (
	"context"
	"errors"
	"log"
	"time"

	"atelier_back_end/internal/models"
	"atelier_back_end/internal/store"

	"github.com/google/uuid"
)

// Notifier : fan-out de notifications déclenché par les transitions d'état.
// Les implémentations ne retournent rien : un envoi raté se logge, ne casse
// jamais une écriture déjà commitée.
type Notifier interface {
	OrderReceived(order *models.Order, items []models.OrderItem)
	OrderDelivered(order *models.Order, item *models.OrderItem)
	RevisionRequested(order *models.Order, rev *models.Revision)
	RevisionDelivered(order *models.Order, rev *models.Revision)
	StatusChanged(order *models.Order, oldStatus int)
	GiftCodeIssued(order *models.Order, gc *models.GiftCode)
}

// CartCleaner : retrait des lignes payées du panier persistant
type CartCleaner interface {
	RemoveLines(ctx context.Context, userID string, serviceIDs []string) error
}

// OrderIndexer : indexation de la commande pour la recherche admin
type OrderIndexer interface {
	IndexOrder(order *models.Order, items []models.OrderItem)
}

// ReconcileService : convertit un événement de paiement abouti en exactement
// une commande persistée, quelle que soit la répétition des webhooks.
type ReconcileService struct {
	Orders   store.OrderStore
	Identity *IdentityResolver
	Notify   Notifier
	Cart     CartCleaner  // optionnel
	Index    OrderIndexer // optionnel
}

// Reconcile retourne la commande et un booléen "créée par cet appel".
// Un doublon de référence de transaction n'est pas une erreur : on retourne
// la commande existante sans re-créer les lignes ni re-notifier.
func (s *ReconcileService) Reconcile(ctx context.Context, evt *models.CompletedPaymentEvent) (*models.Order, bool, error) {
	if err := validateEvent(evt); err != nil {
		return nil, false, err
	}

	// 1. Contrôle d'idempotence rapide avant toute écriture
	if existing, err := s.Orders.GetOrderByTransactionRef(ctx, evt.TransactionRef); err == nil {
		log.Printf("🔁 Transaction %s déjà réconciliée, commande %s retournée", evt.TransactionRef, existing.ID)
		return existing, false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	// 2. Résolution d'identité. Priorité : coordonnées invité, puis nom
	// rapporté par le fournisseur, puis découpe naïve.
	email, displayName, phone := payerContact(evt)
	user, err := s.Identity.ResolveOrCreate(ctx, email, displayName, phone)
	if err != nil {
		return nil, false, err
	}

	// 3. Construction + écriture atomique commande/lignes/coupon
	now := time.Now()
	order := &models.Order{
		ID:              uuid.NewString(),
		UserID:          user.ID,
		TransactionRef:  evt.TransactionRef,
		Amount:          evt.Amount,
		Currency:        evt.Currency,
		PromoCode:       evt.PromoCode,
		PayerName:       displayName,
		PayerEmail:      email,
		PaymentStatus:   models.PaymentStatusPaid,
		OrderStatus:     models.OrderStatusPending,
		OrderType:       orderType(evt),
		PaymentMethod:   evt.PaymentMethod,
		ProviderOrderID: evt.ProviderOrderID,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	items := make([]models.OrderItem, 0, len(evt.Lines))
	for _, line := range evt.Lines {
		total := line.Total
		if total == 0 {
			total = line.Price * float64(line.Quantity)
		}
		items = append(items, models.OrderItem{
			OrderID:     order.ID,
			ServiceID:   line.ServiceID,
			Name:        line.Name,
			Price:       line.Price,
			Quantity:    line.Quantity,
			Total:       total,
			ServiceType: line.ServiceType,
			MaxRevision: line.Quantity * models.RevisionsPerUnit,
			Files:       []string{},
			AdminUnread: true,
		})
	}

	var coupon *models.OrderCoupon
	if evt.Coupon != nil {
		c := *evt.Coupon
		c.OrderID = order.ID
		coupon = &c
	}

	created, winnerID, err := s.Orders.CreateOrder(ctx, order, items, coupon)
	if err != nil {
		return nil, false, err
	}
	if !created {
		// Course perdue contre un webhook concurrent : le gagnant fait foi
		winner, err := s.Orders.GetOrder(ctx, winnerID)
		if err != nil {
			return nil, false, err
		}
		return winner, false, nil
	}

	log.Printf("✅ Commande %s réconciliée (tx %s, %.2f %s, %d ligne(s))",
		order.ID, order.TransactionRef, order.Amount, order.Currency, len(items))

	// 4. Effets de bord post-commit : jamais bloquants, jamais fatals
	s.postCommit(ctx, order, items)

	return order, true, nil
}

func (s *ReconcileService) postCommit(ctx context.Context, order *models.Order, items []models.OrderItem) {
	s.issueGiftCodes(ctx, order, items)

	if order.OrderType == models.OrderTypeOneTime && s.Cart != nil {
		serviceIDs := make([]string, 0, len(items))
		for _, item := range items {
			serviceIDs = append(serviceIDs, item.ServiceID)
		}
		if err := s.Cart.RemoveLines(ctx, order.UserID, serviceIDs); err != nil {
			log.Printf("❌ Nettoyage du panier de %s échoué: %v", order.UserID, err)
		}
	}

	if s.Notify != nil {
		s.Notify.OrderReceived(order, items)
	}

	if s.Index != nil {
		s.Index.IndexOrder(order, items)
	}
}

func validateEvent(evt *models.CompletedPaymentEvent) error {
	if evt == nil {
		return invalidf("événement de paiement vide")
	}
	if evt.TransactionRef == "" {
		return invalidf("référence de transaction manquante")
	}
	email, _, _ := payerContact(evt)
	if email == "" {
		return invalidf("email du payeur manquant")
	}
	if len(evt.Lines) == 0 {
		return invalidf("aucune ligne achetée dans l'événement")
	}
	for _, line := range evt.Lines {
		if line.ServiceID == "" {
			return invalidf("ligne sans identifiant de service")
		}
		if line.Quantity <= 0 {
			return invalidf("quantité invalide pour le service %s", line.ServiceID)
		}
	}
	return nil
}

// payerContact applique la préséance : coordonnées invité > nom fournisseur
func payerContact(evt *models.CompletedPaymentEvent) (email, displayName, phone string) {
	email = evt.Email
	displayName = evt.DisplayName
	phone = evt.Phone

	if evt.Guest && evt.GuestInfo != nil {
		if evt.GuestInfo.Email != "" {
			email = evt.GuestInfo.Email
		}
		if evt.GuestInfo.Name != "" {
			displayName = evt.GuestInfo.Name
		}
		if evt.GuestInfo.Phone != "" {
			phone = evt.GuestInfo.Phone
		}
	}
	return email, displayName, phone
}

func orderType(evt *models.CompletedPaymentEvent) string {
	if evt.OrderType == models.OrderTypeSubscription {
		return models.OrderTypeSubscription
	}
	return models.OrderTypeOneTime
}
