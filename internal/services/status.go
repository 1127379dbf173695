package services

import (
	"context"
	"log"

	"atelier_back_end/internal/models"
	"atelier_back_end/internal/store"
)

// StatusService : propriétaire du champ order_status.
// La machine d'états est volontairement permissive : l'ancien système
// n'interdisait aucun saut (delivered → pending compris) et les dashboards
// existants en dépendent. Ne pas ajouter de garde de transition ici sans
// décision produit explicite.
type StatusService struct {
	Orders store.OrderStore
	Notify Notifier
}

// SetStatus : écriture directe du statut par un admin/ingénieur
func (s *StatusService) SetStatus(ctx context.Context, orderID string, status int) (*models.Order, error) {
	if !models.IsValidOrderStatus(status) {
		return nil, invalidf("code de statut inconnu: %d", status)
	}

	order, err := s.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	old := order.OrderStatus
	if old == status {
		return order, nil
	}

	if err := s.Orders.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return nil, err
	}
	order.OrderStatus = status

	log.Printf("📋 Commande %s : statut %s → %s", orderID,
		models.OrderStatusLabel(old), models.OrderStatusLabel(status))

	if s.Notify != nil {
		s.Notify.StatusChanged(order, old)
	}
	return order, nil
}

// DeliverItem : l'ingénieur attache les livrables d'une ligne. La commande
// passe à delivered et le badge acheteur s'allume.
func (s *StatusService) DeliverItem(ctx context.Context, orderID, serviceID string, links []string) (*models.Order, *models.OrderItem, error) {
	if len(links) == 0 {
		return nil, nil, invalidf("aucun fichier livré")
	}

	order, err := s.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	item, err := s.Orders.GetItem(ctx, orderID, serviceID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.Orders.AppendItemFiles(ctx, orderID, serviceID, links); err != nil {
		return nil, nil, err
	}
	if err := s.Orders.SetItemUnread(ctx, orderID, serviceID, models.ActorBuyer, true); err != nil {
		return nil, nil, err
	}
	if err := s.Orders.UpdateOrderStatus(ctx, orderID, models.OrderStatusDelivered); err != nil {
		return nil, nil, err
	}

	order.OrderStatus = models.OrderStatusDelivered
	item.Files = append(item.Files, links...)
	item.BuyerUnread = true

	log.Printf("📦 Commande %s : %d fichier(s) livré(s) pour le service %s", orderID, len(links), serviceID)

	if s.Notify != nil {
		s.Notify.OrderDelivered(order, item)
	}
	return order, item, nil
}
