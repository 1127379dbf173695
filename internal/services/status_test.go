package services

import (
	"context"
	"testing"

	"atelier_back_end/internal/models"
	"atelier_back_end/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStatusFixture() (*StatusService, *fakeOrderStore, *fakeNotifier) {
	orders := newFakeOrderStore()
	notify := &fakeNotifier{}
	svc := &StatusService{Orders: orders, Notify: notify}

	order := &models.Order{
		ID:             "ord-1",
		UserID:         "user-1",
		TransactionRef: "pi_status",
		PayerEmail:     "client@example.com",
		OrderStatus:    models.OrderStatusPending,
	}
	items := []models.OrderItem{{
		OrderID:   "ord-1",
		ServiceID: "svc-logo",
		Name:      "Création de logo",
		Quantity:  1,
	}}
	orders.CreateOrder(context.Background(), order, items, nil)
	return svc, orders, notify
}

func TestSetStatus(t *testing.T) {
	svc, orders, notify := newStatusFixture()
	ctx := context.Background()

	order, err := svc.SetStatus(ctx, "ord-1", models.OrderStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusInProgress, order.OrderStatus)

	stored, _ := orders.GetOrder(ctx, "ord-1")
	assert.Equal(t, models.OrderStatusInProgress, stored.OrderStatus)
	assert.Len(t, notify.statusChanges, 1)
}

func TestSetStatusAllowsAnyJump(t *testing.T) {
	svc, _, _ := newStatusFixture()
	ctx := context.Background()

	// Machine volontairement permissive : delivered → pending passe
	_, err := svc.SetStatus(ctx, "ord-1", models.OrderStatusDelivered)
	require.NoError(t, err)
	order, err := svc.SetStatus(ctx, "ord-1", models.OrderStatusPending)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.OrderStatus)
}

func TestSetStatusNoOpOnSameStatus(t *testing.T) {
	svc, _, notify := newStatusFixture()

	_, err := svc.SetStatus(context.Background(), "ord-1", models.OrderStatusPending)
	require.NoError(t, err)
	assert.Empty(t, notify.statusChanges)
}

func TestSetStatusRejectsUnknownCode(t *testing.T) {
	svc, _, _ := newStatusFixture()

	_, err := svc.SetStatus(context.Background(), "ord-1", 42)
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)

	_, err = svc.SetStatus(context.Background(), "ord-inconnu", models.OrderStatusInProgress)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeliverItem(t *testing.T) {
	svc, orders, notify := newStatusFixture()
	ctx := context.Background()

	order, item, err := svc.DeliverItem(ctx, "ord-1", "svc-logo", []string{"https://files/logo.zip"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, order.OrderStatus)
	assert.Equal(t, []string{"https://files/logo.zip"}, item.Files)
	assert.True(t, item.BuyerUnread)

	stored, _ := orders.GetItem(ctx, "ord-1", "svc-logo")
	assert.Equal(t, []string{"https://files/logo.zip"}, stored.Files)
	assert.Len(t, notify.ordersDelivered, 1)

	// Nouvelle livraison sur la même ligne : les liens s'ajoutent
	_, item, err = svc.DeliverItem(ctx, "ord-1", "svc-logo", []string{"https://files/logo-v2.zip"})
	require.NoError(t, err)
	assert.Len(t, item.Files, 2)
}

func TestDeliverItemValidation(t *testing.T) {
	svc, _, _ := newStatusFixture()
	ctx := context.Background()

	_, _, err := svc.DeliverItem(ctx, "ord-1", "svc-logo", nil)
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)

	_, _, err = svc.DeliverItem(ctx, "ord-1", "svc-inconnu", []string{"lien"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
