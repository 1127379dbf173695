package services

import (
	"context"
	"sync"
	"testing"

	"atelier_back_end/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReconcileFixture() (*ReconcileService, *fakeOrderStore, *fakeUserStore, *fakeNotifier, *fakeCart, *fakeIndex) {
	orders := newFakeOrderStore()
	users := newFakeUserStore()
	notify := &fakeNotifier{}
	cart := newFakeCart()
	index := &fakeIndex{}
	svc := &ReconcileService{
		Orders:   orders,
		Identity: NewIdentityResolver(users),
		Notify:   notify,
		Cart:     cart,
		Index:    index,
	}
	return svc, orders, users, notify, cart, index
}

func paidEvent(txRef string) *models.CompletedPaymentEvent {
	return &models.CompletedPaymentEvent{
		TransactionRef: txRef,
		Amount:         150,
		Currency:       "EUR",
		Email:          "client@example.com",
		DisplayName:    "Jean Dupont",
		Lines: []models.PaymentLine{
			{ServiceID: "svc-logo", Name: "Création de logo", Price: 50, Quantity: 2},
			{ServiceID: "svc-site", Name: "Maquette de site", Price: 50, Quantity: 1},
		},
		OrderType:     models.OrderTypeOneTime,
		PaymentMethod: models.PaymentMethodCard,
	}
}

func TestReconcileCreatesOrderWithItems(t *testing.T) {
	svc, orders, _, notify, _, index := newReconcileFixture()

	order, created, err := svc.Reconcile(context.Background(), paidEvent("pi_001"))
	require.NoError(t, err)
	require.True(t, created)
	require.NotEmpty(t, order.ID)

	assert.Equal(t, "pi_001", order.TransactionRef)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, models.OrderStatusPending, order.OrderStatus)
	assert.True(t, order.Active)

	items, err := orders.GetItems(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, item := range items {
		// Quota de révisions : 3 par unité achetée
		assert.Equal(t, item.Quantity*models.RevisionsPerUnit, item.MaxRevision)
		assert.True(t, item.AdminUnread)
		assert.False(t, item.BuyerUnread)
		assert.Equal(t, item.Price*float64(item.Quantity), item.Total)
	}

	assert.Equal(t, []string{order.ID}, notify.ordersReceived)
	assert.Equal(t, []string{order.ID}, index.indexed)
}

func TestReconcileIsIdempotent(t *testing.T) {
	svc, _, _, notify, _, _ := newReconcileFixture()
	ctx := context.Background()

	first, created, err := svc.Reconcile(ctx, paidEvent("pi_dup"))
	require.NoError(t, err)
	require.True(t, created)

	// Même webhook re-livré : même commande, pas de re-création, pas de re-notif
	second, created, err := svc.Reconcile(ctx, paidEvent("pi_dup"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, notify.ordersReceived, 1)
}

func TestReconcileConcurrentDuplicates(t *testing.T) {
	svc, orders, _, _, _, _ := newReconcileFixture()

	const workers = 8
	results := make([]*models.Order, workers)
	createdFlags := make([]bool, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			order, created, err := svc.Reconcile(context.Background(), paidEvent("pi_race"))
			assert.NoError(t, err)
			results[i] = order
			createdFlags[i] = created
		}(i)
	}
	wg.Wait()

	// Exactement un gagnant, tous voient la même commande
	winners := 0
	for i := 0; i < workers; i++ {
		if createdFlags[i] {
			winners++
		}
		assert.Equal(t, results[0].ID, results[i].ID)
	}
	assert.Equal(t, 1, winners)

	all, err := orders.GetOrdersByUser(context.Background(), results[0].UserID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestReconcileValidation(t *testing.T) {
	svc, _, _, _, _, _ := newReconcileFixture()
	ctx := context.Background()

	cases := map[string]func(*models.CompletedPaymentEvent){
		"référence manquante": func(e *models.CompletedPaymentEvent) { e.TransactionRef = "" },
		"email manquant":      func(e *models.CompletedPaymentEvent) { e.Email = "" },
		"aucune ligne":        func(e *models.CompletedPaymentEvent) { e.Lines = nil },
		"quantité nulle":      func(e *models.CompletedPaymentEvent) { e.Lines[0].Quantity = 0 },
		"ligne sans service":  func(e *models.CompletedPaymentEvent) { e.Lines[0].ServiceID = "" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			evt := paidEvent("pi_bad_" + name)
			mutate(evt)
			_, _, err := svc.Reconcile(ctx, evt)
			var vErr *ValidationError
			assert.ErrorAs(t, err, &vErr)
		})
	}
}

func TestReconcileGuestAccountReuse(t *testing.T) {
	svc, _, users, _, _, _ := newReconcileFixture()
	ctx := context.Background()

	evt := paidEvent("pi_guest_1")
	evt.Guest = true
	evt.GuestInfo = &models.GuestInfo{Email: "Invite@Example.com", Name: "Marie Curie", Phone: "+32400000000"}

	first, _, err := svc.Reconcile(ctx, evt)
	require.NoError(t, err)

	account, err := users.GetByEmail(ctx, "invite@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleGuest, account.Role)
	assert.Equal(t, "Marie", account.FirstName)
	assert.Equal(t, "Curie", account.LastName)

	// Deuxième achat du même invité : même compte, pas de doublon
	evt2 := paidEvent("pi_guest_2")
	evt2.Guest = true
	evt2.GuestInfo = &models.GuestInfo{Email: "invite@example.com", Name: "Marie Curie"}

	second, _, err := svc.Reconcile(ctx, evt2)
	require.NoError(t, err)
	assert.Equal(t, first.UserID, second.UserID)
}

func TestReconcileGuestInfoPrecedence(t *testing.T) {
	svc, _, _, _, _, _ := newReconcileFixture()

	evt := paidEvent("pi_precedence")
	evt.DisplayName = "Nom Fournisseur"
	evt.Guest = true
	evt.GuestInfo = &models.GuestInfo{Email: "vrai@example.com", Name: "Vrai Nom"}

	order, _, err := svc.Reconcile(context.Background(), evt)
	require.NoError(t, err)
	assert.Equal(t, "vrai@example.com", order.PayerEmail)
	assert.Equal(t, "Vrai Nom", order.PayerName)
}

func TestReconcileIssuesGiftCodes(t *testing.T) {
	svc, orders, _, notify, _, _ := newReconcileFixture()

	evt := paidEvent("pi_gift")
	evt.Lines = []models.PaymentLine{
		{ServiceID: "svc-gift", Name: "Carte cadeau 50€", Price: 50, Quantity: 2, ServiceType: models.ServiceTypeGiftCard},
		{ServiceID: "svc-logo", Name: "Création de logo", Price: 50, Quantity: 1},
	}

	_, _, err := svc.Reconcile(context.Background(), evt)
	require.NoError(t, err)

	// Un code par unité de la famille carte-cadeau, rien pour les autres lignes
	require.Len(t, orders.giftCodes, 2)
	assert.NotEqual(t, orders.giftCodes[0].Code, orders.giftCodes[1].Code)
	assert.Len(t, notify.giftCodes, 2)
}

func TestReconcileClearsCartForOneTime(t *testing.T) {
	svc, _, _, _, cart, _ := newReconcileFixture()

	order, _, err := svc.Reconcile(context.Background(), paidEvent("pi_cart"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"svc-logo", "svc-site"}, cart.removed[order.UserID])
}

func TestReconcileKeepsCartForSubscription(t *testing.T) {
	svc, _, _, _, cart, _ := newReconcileFixture()

	evt := paidEvent("pi_sub")
	evt.OrderType = models.OrderTypeSubscription

	order, _, err := svc.Reconcile(context.Background(), evt)
	require.NoError(t, err)
	assert.Equal(t, models.OrderTypeSubscription, order.OrderType)
	assert.Empty(t, cart.removed[order.UserID])
}

func TestReconcileCartFailureDoesNotFailOrder(t *testing.T) {
	svc, _, _, _, cart, _ := newReconcileFixture()
	cart.err = assert.AnError

	// Le nettoyage du panier est post-commit : son échec se logge, c'est tout
	_, created, err := svc.Reconcile(context.Background(), paidEvent("pi_cart_ko"))
	require.NoError(t, err)
	assert.True(t, created)
}

func TestReconcileStoresCouponSnapshot(t *testing.T) {
	svc, orders, _, _, _, _ := newReconcileFixture()

	evt := paidEvent("pi_coupon")
	evt.Coupon = &models.OrderCoupon{Code: "ETE2026", DiscountType: "percent", DiscountValue: 10}

	order, _, err := svc.Reconcile(context.Background(), evt)
	require.NoError(t, err)

	coupon, err := orders.GetCoupon(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "ETE2026", coupon.Code)
	assert.Equal(t, order.ID, coupon.OrderID)
}
