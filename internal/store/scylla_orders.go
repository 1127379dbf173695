package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"atelier_back_end/internal/database"
	"atelier_back_end/internal/models"

	"github.com/gocql/gocql"
)

// ScyllaOrderStore : implémentation ScyllaDB de OrderStore.
// Les trois frontières de concurrence (référence de transaction, quota de
// révisions, création de compte) sont protégées par des LWT côté stockage.
type ScyllaOrderStore struct{}

func NewScyllaOrderStore() *ScyllaOrderStore { return &ScyllaOrderStore{} }

// quotaCASRetries : nombre d'essais du compare-and-set sur max_revision
const quotaCASRetries = 5

func (s *ScyllaOrderStore) CreateOrder(ctx context.Context, o *models.Order, items []models.OrderItem, coupon *models.OrderCoupon) (bool, string, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return false, "", err
	}

	// 1. Réclamer la référence de transaction. C'est la seule défense contre
	// les webhooks rejoués et la course webhook / callback de succès.
	prev := map[string]interface{}{}
	applied, err := session.Query(
		"INSERT INTO orders_by_txref (transaction_ref, order_id) VALUES (?, ?) IF NOT EXISTS",
		o.TransactionRef, o.ID).WithContext(ctx).MapScanCAS(prev)
	if err != nil {
		return false, "", err
	}
	if !applied {
		winnerID, _ := prev["order_id"].(string)
		log.Printf("🔁 Transaction %s déjà réconciliée (commande %s)", o.TransactionRef, winnerID)
		return false, winnerID, nil
	}

	// 2. Écrire commande + lignes + coupon en un seul batch loggé :
	// pas de commande partielle visible.
	batch := session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(`INSERT INTO orders (order_id, user_id, transaction_ref, amount, currency, promo_code,
		payer_name, payer_email, payment_status, order_status, order_type, payment_method,
		provider_order_id, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.UserID, o.TransactionRef, o.Amount, o.Currency, o.PromoCode,
		o.PayerName, o.PayerEmail, o.PaymentStatus, o.OrderStatus, o.OrderType, o.PaymentMethod,
		o.ProviderOrderID, o.Active, o.CreatedAt, o.UpdatedAt)
	batch.Query("INSERT INTO orders_by_user (user_id, created_at, order_id) VALUES (?, ?, ?)",
		o.UserID, o.CreatedAt, o.ID)

	for _, item := range items {
		batch.Query(`INSERT INTO order_items (order_id, service_id, name, price, quantity, total,
			service_type, max_revision, files, admin_unread, buyer_unread)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.OrderID, item.ServiceID, item.Name, item.Price, item.Quantity, item.Total,
			item.ServiceType, item.MaxRevision, item.Files, item.AdminUnread, item.BuyerUnread)
	}

	if coupon != nil {
		batch.Query(`INSERT INTO order_coupons (order_id, code, discount_type, discount_value, product_ids)
			VALUES (?, ?, ?, ?, ?)`,
			o.ID, coupon.Code, coupon.DiscountType, coupon.DiscountValue, coupon.ProductIDs)
	}

	if err := session.ExecuteBatch(batch); err != nil {
		// Compensation : on libère la référence pour qu'un retry du provider aboutisse
		if delErr := session.Query("DELETE FROM orders_by_txref WHERE transaction_ref = ?",
			o.TransactionRef).WithContext(ctx).Exec(); delErr != nil {
			log.Printf("❌ Libération txref %s échouée: %v", o.TransactionRef, delErr)
		}
		return false, "", err
	}

	return true, o.ID, nil
}

func (s *ScyllaOrderStore) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	o := models.Order{ID: orderID}
	err = session.Query(`SELECT user_id, transaction_ref, amount, currency, promo_code,
		payer_name, payer_email, payment_status, order_status, order_type, payment_method,
		provider_order_id, active, created_at, updated_at
		FROM orders WHERE order_id = ?`, orderID).WithContext(ctx).
		Scan(&o.UserID, &o.TransactionRef, &o.Amount, &o.Currency, &o.PromoCode,
			&o.PayerName, &o.PayerEmail, &o.PaymentStatus, &o.OrderStatus, &o.OrderType,
			&o.PaymentMethod, &o.ProviderOrderID, &o.Active, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *ScyllaOrderStore) GetOrderByTransactionRef(ctx context.Context, ref string) (*models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	var orderID string
	err = session.Query("SELECT order_id FROM orders_by_txref WHERE transaction_ref = ?", ref).
		WithContext(ctx).Scan(&orderID)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, orderID)
}

func (s *ScyllaOrderStore) GetOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query("SELECT order_id FROM orders_by_user WHERE user_id = ?", userID).
		WithContext(ctx).Iter()

	var ids []string
	var id string
	for iter.Scan(&id) {
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(ids))
	for _, id := range ids {
		o, err := s.GetOrder(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, nil
}

func (s *ScyllaOrderStore) UpdateOrderStatus(ctx context.Context, orderID string, status int) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}
	return session.Query("UPDATE orders SET order_status = ?, updated_at = ? WHERE order_id = ?",
		status, time.Now(), orderID).WithContext(ctx).Exec()
}

func (s *ScyllaOrderStore) GetItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query(`SELECT service_id, name, price, quantity, total, service_type,
		max_revision, files, admin_unread, buyer_unread
		FROM order_items WHERE order_id = ?`, orderID).WithContext(ctx).Iter()

	var items []models.OrderItem
	item := models.OrderItem{OrderID: orderID}
	for iter.Scan(&item.ServiceID, &item.Name, &item.Price, &item.Quantity, &item.Total,
		&item.ServiceType, &item.MaxRevision, &item.Files, &item.AdminUnread, &item.BuyerUnread) {
		items = append(items, item)
		item = models.OrderItem{OrderID: orderID}
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *ScyllaOrderStore) GetItem(ctx context.Context, orderID, serviceID string) (*models.OrderItem, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	item := models.OrderItem{OrderID: orderID, ServiceID: serviceID}
	err = session.Query(`SELECT name, price, quantity, total, service_type, max_revision,
		files, admin_unread, buyer_unread
		FROM order_items WHERE order_id = ? AND service_id = ?`, orderID, serviceID).
		WithContext(ctx).
		Scan(&item.Name, &item.Price, &item.Quantity, &item.Total, &item.ServiceType,
			&item.MaxRevision, &item.Files, &item.AdminUnread, &item.BuyerUnread)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *ScyllaOrderStore) AppendItemFiles(ctx context.Context, orderID, serviceID string, links []string) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}
	// Append CQL sur la liste : on n'écrase jamais les livraisons précédentes
	return session.Query("UPDATE order_items SET files = files + ? WHERE order_id = ? AND service_id = ?",
		links, orderID, serviceID).WithContext(ctx).Exec()
}

func unreadColumn(actor string) (string, error) {
	switch actor {
	case models.ActorAdmin:
		return "admin_unread", nil
	case models.ActorBuyer:
		return "buyer_unread", nil
	}
	return "", fmt.Errorf("acteur inconnu: %s", actor)
}

func (s *ScyllaOrderStore) SetItemUnread(ctx context.Context, orderID, serviceID, actor string, value bool) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}
	col, err := unreadColumn(actor)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("UPDATE order_items SET %s = ? WHERE order_id = ? AND service_id = ?", col)
	return session.Query(query, value, orderID, serviceID).WithContext(ctx).Exec()
}

func (s *ScyllaOrderStore) DecrementRevisionQuota(ctx context.Context, orderID, serviceID string) (int, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return 0, err
	}

	// Boucle compare-and-set : deux demandes concurrentes ne peuvent pas
	// toutes les deux passer le contrôle "> 0" sur une lecture périmée.
	for attempt := 0; attempt < quotaCASRetries; attempt++ {
		var current int
		err := session.Query("SELECT max_revision FROM order_items WHERE order_id = ? AND service_id = ?",
			orderID, serviceID).WithContext(ctx).Scan(&current)
		if errors.Is(err, gocql.ErrNotFound) {
			return 0, ErrNotFound
		}
		if err != nil {
			return 0, err
		}
		if current <= 0 {
			return 0, ErrQuotaExhausted
		}

		prev := map[string]interface{}{}
		applied, err := session.Query(
			"UPDATE order_items SET max_revision = ? WHERE order_id = ? AND service_id = ? IF max_revision = ?",
			current-1, orderID, serviceID, current).WithContext(ctx).MapScanCAS(prev)
		if err != nil {
			return 0, err
		}
		if applied {
			return current - 1, nil
		}
		// Quelqu'un est passé avant nous, on relit et on réessaie
	}
	return 0, fmt.Errorf("décrément du quota abandonné après %d essais (commande %s)", quotaCASRetries, orderID)
}

// RestoreRevisionQuota rend le point de quota consommé par un décrément dont
// l'écriture de la révision a échoué. Même boucle CAS que le décrément, pour
// ne pas écraser un décrément concurrent avec une lecture périmée.
func (s *ScyllaOrderStore) RestoreRevisionQuota(ctx context.Context, orderID, serviceID string) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	for attempt := 0; attempt < quotaCASRetries; attempt++ {
		var current int
		err := session.Query("SELECT max_revision FROM order_items WHERE order_id = ? AND service_id = ?",
			orderID, serviceID).WithContext(ctx).Scan(&current)
		if errors.Is(err, gocql.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		prev := map[string]interface{}{}
		applied, err := session.Query(
			"UPDATE order_items SET max_revision = ? WHERE order_id = ? AND service_id = ? IF max_revision = ?",
			current+1, orderID, serviceID, current).WithContext(ctx).MapScanCAS(prev)
		if err != nil {
			return err
		}
		if applied {
			return nil
		}
	}
	return fmt.Errorf("restauration du quota abandonnée après %d essais (commande %s)", quotaCASRetries, orderID)
}

func (s *ScyllaOrderStore) SetRevisionQuota(ctx context.Context, orderID, serviceID string, quota int) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}
	return session.Query("UPDATE order_items SET max_revision = ? WHERE order_id = ? AND service_id = ?",
		quota, orderID, serviceID).WithContext(ctx).Exec()
}

func (s *ScyllaOrderStore) GetCoupon(ctx context.Context, orderID string) (*models.OrderCoupon, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	c := models.OrderCoupon{OrderID: orderID}
	err = session.Query(`SELECT code, discount_type, discount_value, product_ids
		FROM order_coupons WHERE order_id = ?`, orderID).WithContext(ctx).
		Scan(&c.Code, &c.DiscountType, &c.DiscountValue, &c.ProductIDs)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *ScyllaOrderStore) ListRevisions(ctx context.Context, orderID string) ([]models.Revision, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	// Clustering ASC sur revision_id (timeuuid) : plus ancienne en premier
	iter := session.Query(`SELECT revision_id, user_id, service_id, transaction_ref, message,
		files, status, admin_unread, buyer_unread, created_at
		FROM revisions WHERE order_id = ?`, orderID).WithContext(ctx).Iter()

	var revisions []models.Revision
	rev := models.Revision{OrderID: orderID}
	for iter.Scan(&rev.RevisionID, &rev.UserID, &rev.ServiceID, &rev.TransactionRef, &rev.Message,
		&rev.Files, &rev.Status, &rev.AdminUnread, &rev.BuyerUnread, &rev.CreatedAt) {
		revisions = append(revisions, rev)
		rev = models.Revision{OrderID: orderID}
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return revisions, nil
}

func (s *ScyllaOrderStore) GetRevision(ctx context.Context, orderID, revisionID string) (*models.Revision, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	rev := models.Revision{OrderID: orderID, RevisionID: revisionID}
	err = session.Query(`SELECT user_id, service_id, transaction_ref, message, files, status,
		admin_unread, buyer_unread, created_at
		FROM revisions WHERE order_id = ? AND revision_id = ?`, orderID, revisionID).
		WithContext(ctx).
		Scan(&rev.UserID, &rev.ServiceID, &rev.TransactionRef, &rev.Message, &rev.Files,
			&rev.Status, &rev.AdminUnread, &rev.BuyerUnread, &rev.CreatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

func (s *ScyllaOrderStore) FindRevisionByTransactionRef(ctx context.Context, orderID, serviceID, ref string) (*models.Revision, error) {
	// La partition d'une commande contient peu de révisions : on filtre en mémoire
	revisions, err := s.ListRevisions(ctx, orderID)
	if err != nil {
		return nil, err
	}
	for i := range revisions {
		if revisions[i].ServiceID == serviceID && revisions[i].TransactionRef == ref {
			return &revisions[i], nil
		}
	}
	return nil, ErrNotFound
}

func (s *ScyllaOrderStore) InsertRevision(ctx context.Context, rev *models.Revision) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	if rev.RevisionID == "" {
		rev.RevisionID = gocql.TimeUUID().String()
	}
	return session.Query(`INSERT INTO revisions (order_id, revision_id, user_id, service_id,
		transaction_ref, message, files, status, admin_unread, buyer_unread, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rev.OrderID, rev.RevisionID, rev.UserID, rev.ServiceID, rev.TransactionRef,
		rev.Message, rev.Files, rev.Status, rev.AdminUnread, rev.BuyerUnread, rev.CreatedAt).
		WithContext(ctx).Exec()
}

func (s *ScyllaOrderStore) UpdateRevisionMessage(ctx context.Context, orderID, revisionID, message string) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}
	return session.Query("UPDATE revisions SET message = ? WHERE order_id = ? AND revision_id = ?",
		message, orderID, revisionID).WithContext(ctx).Exec()
}

func (s *ScyllaOrderStore) AppendRevisionFiles(ctx context.Context, orderID, revisionID string, links []string) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}
	return session.Query("UPDATE revisions SET files = files + ? WHERE order_id = ? AND revision_id = ?",
		links, orderID, revisionID).WithContext(ctx).Exec()
}

func (s *ScyllaOrderStore) UpdateRevisionStatus(ctx context.Context, orderID, revisionID, status string) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}
	return session.Query("UPDATE revisions SET status = ? WHERE order_id = ? AND revision_id = ?",
		status, orderID, revisionID).WithContext(ctx).Exec()
}

func (s *ScyllaOrderStore) SetRevisionUnread(ctx context.Context, orderID, revisionID, actor string, value bool) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}
	col, err := unreadColumn(actor)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("UPDATE revisions SET %s = ? WHERE order_id = ? AND revision_id = ?", col)
	return session.Query(query, value, orderID, revisionID).WithContext(ctx).Exec()
}

func (s *ScyllaOrderStore) InsertGiftCode(ctx context.Context, gc *models.GiftCode) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}
	return session.Query(`INSERT INTO gift_codes (code, order_id, service_id, amount, issued_to, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		gc.Code, gc.OrderID, gc.ServiceID, gc.Amount, gc.IssuedTo, gc.CreatedAt).
		WithContext(ctx).Exec()
}
