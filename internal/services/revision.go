package services

import (
	"context"
	"errors"
	"log"
	"time"

	"atelier_back_end/internal/models"
	"atelier_back_end/internal/store"
)

// RevisionService : consomme le quota de révisions d'une ligne de commande,
// enregistre les demandes et accepte les livraisons de révision.
type RevisionService struct {
	Orders store.OrderStore
	Notify Notifier
}

// RevisionOutcome : état complet renvoyé après chaque opération pour que le
// front puisse se redessiner sans second aller-retour.
type RevisionOutcome struct {
	OrderStatus    int               `json:"order_status"`
	RemainingQuota int               `json:"remaining_quota"`
	Revisions      []models.Revision `json:"revisions"`
}

// RequestRevision : demande de révision d'un acheteur.
// Si transactionRef correspond à une révision existante de la même ligne
// (re-soumission avant livraison), on met son message à jour au lieu de créer
// un doublon. Le quota est décrémenté d'exactement un dans les deux cas.
func (s *RevisionService) RequestRevision(ctx context.Context, orderID, serviceID, requesterID, message, transactionRef string) (*RevisionOutcome, error) {
	if message == "" {
		return nil, invalidf("message de révision manquant")
	}

	order, err := s.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Orders.GetItem(ctx, orderID, serviceID); err != nil {
		return nil, err
	}

	var existing *models.Revision
	if transactionRef != "" {
		existing, err = s.Orders.FindRevisionByTransactionRef(ctx, orderID, serviceID, transactionRef)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	// Contrôle + décrément atomiques : deux demandes concurrentes ne passent
	// jamais toutes les deux avec un quota à 1
	remaining, err := s.Orders.DecrementRevisionQuota(ctx, orderID, serviceID)
	if err != nil {
		return nil, err
	}

	// Si l'écriture de la révision échoue après le décrément, on rend le point
	// de quota consommé, comme CreateOrder relâche sa réclamation de référence
	// quand le batch échoue.
	restoreQuota := func(cause error) error {
		if rErr := s.Orders.RestoreRevisionQuota(ctx, orderID, serviceID); rErr != nil {
			log.Printf("❌ Restauration du quota de %s/%s échouée: %v", orderID, serviceID, rErr)
		}
		return cause
	}

	var rev *models.Revision
	if existing != nil {
		if err := s.Orders.UpdateRevisionMessage(ctx, orderID, existing.RevisionID, message); err != nil {
			return nil, restoreQuota(err)
		}
		if err := s.Orders.SetRevisionUnread(ctx, orderID, existing.RevisionID, models.ActorAdmin, true); err != nil {
			return nil, restoreQuota(err)
		}
		existing.Message = message
		existing.AdminUnread = true
		rev = existing
		log.Printf("🔁 Révision %s re-soumise (commande %s, tx %s)", rev.RevisionID, orderID, transactionRef)
	} else {
		rev = &models.Revision{
			OrderID:        orderID,
			UserID:         requesterID,
			ServiceID:      serviceID,
			TransactionRef: transactionRef,
			Message:        message,
			Files:          []string{},
			Status:         models.RevisionStatusPending,
			AdminUnread:    true,
			CreatedAt:      time.Now(),
		}
		if err := s.Orders.InsertRevision(ctx, rev); err != nil {
			return nil, restoreQuota(err)
		}
		log.Printf("📝 Révision %s créée (commande %s, service %s, quota restant %d)",
			rev.RevisionID, orderID, serviceID, remaining)
	}

	if err := s.Orders.UpdateOrderStatus(ctx, orderID, models.OrderStatusRevisionRequested); err != nil {
		return nil, err
	}
	order.OrderStatus = models.OrderStatusRevisionRequested

	if s.Notify != nil {
		s.Notify.RevisionRequested(order, rev)
	}

	revisions, err := s.Orders.ListRevisions(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return &RevisionOutcome{
		OrderStatus:    models.OrderStatusRevisionRequested,
		RemainingQuota: remaining,
		Revisions:      revisions,
	}, nil
}

// DeliverFiles : l'ingénieur attache les fichiers de la révision livrée.
// Les liens s'ajoutent à la liste existante, jamais d'écrasement.
func (s *RevisionService) DeliverFiles(ctx context.Context, orderID, revisionID string, links []string) (*RevisionOutcome, error) {
	if len(links) == 0 {
		return nil, invalidf("aucun fichier de révision fourni")
	}

	order, err := s.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	rev, err := s.Orders.GetRevision(ctx, orderID, revisionID)
	if err != nil {
		return nil, err
	}

	if err := s.Orders.AppendRevisionFiles(ctx, orderID, revisionID, links); err != nil {
		return nil, err
	}
	if err := s.Orders.UpdateRevisionStatus(ctx, orderID, revisionID, models.RevisionStatusDelivered); err != nil {
		return nil, err
	}
	if err := s.Orders.SetRevisionUnread(ctx, orderID, revisionID, models.ActorBuyer, true); err != nil {
		return nil, err
	}
	if err := s.Orders.SetItemUnread(ctx, orderID, rev.ServiceID, models.ActorBuyer, true); err != nil {
		return nil, err
	}
	if err := s.Orders.UpdateOrderStatus(ctx, orderID, models.OrderStatusDelivered); err != nil {
		return nil, err
	}

	order.OrderStatus = models.OrderStatusDelivered
	rev.Files = append(rev.Files, links...)
	rev.Status = models.RevisionStatusDelivered

	log.Printf("📦 Révision %s livrée (commande %s, %d fichier(s))", revisionID, orderID, len(links))

	if s.Notify != nil {
		s.Notify.RevisionDelivered(order, rev)
	}

	revisions, err := s.Orders.ListRevisions(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return &RevisionOutcome{
		OrderStatus: models.OrderStatusDelivered,
		Revisions:   revisions,
	}, nil
}

// Types de badge ciblés par SetReadFlag
const (
	ReadFlagOrder    = "order"
	ReadFlagRevision = "revision"
)

// SetReadFlag : bascule d'un badge "non lu".
// Pour type=revision, l'ancien système ne cible pas une révision par id : il
// prend la PLUS ANCIENNE révision de la ligne dont le badge de l'acteur est
// encore levé. Les clients existants dépendent de cette sémantique
// "marquer la plus vieille chose non vue", on la conserve telle quelle.
func (s *RevisionService) SetReadFlag(ctx context.Context, orderID, serviceID, actor, flagType string, value bool) error {
	if actor != models.ActorAdmin && actor != models.ActorBuyer {
		return invalidf("acteur inconnu: %s", actor)
	}

	switch flagType {
	case ReadFlagOrder:
		if _, err := s.Orders.GetItem(ctx, orderID, serviceID); err != nil {
			return err
		}
		return s.Orders.SetItemUnread(ctx, orderID, serviceID, actor, value)

	case ReadFlagRevision:
		revisions, err := s.Orders.ListRevisions(ctx, orderID)
		if err != nil {
			return err
		}
		for _, rev := range revisions {
			if serviceID != "" && rev.ServiceID != serviceID {
				continue
			}
			unread := rev.AdminUnread
			if actor == models.ActorBuyer {
				unread = rev.BuyerUnread
			}
			if unread == value {
				continue
			}
			return s.Orders.SetRevisionUnread(ctx, orderID, rev.RevisionID, actor, value)
		}
		return nil

	default:
		return invalidf("type de badge inconnu: %s", flagType)
	}
}
