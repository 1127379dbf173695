package services

import (
	"context"
	"fmt"
	"sync"

	"atelier_back_end/internal/models"
	"atelier_back_end/internal/store"
)

// fakeUserStore : comptes en mémoire avec la même sémantique de course que le
// store Scylla (un seul gagnant par email)
type fakeUserStore struct {
	mu      sync.Mutex
	byID    map[string]*models.User
	byEmail map[string]string // email → user_id
	failAll bool
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]string),
	}
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return nil, fmt.Errorf("store indisponible")
	}
	id, ok := s.byEmail[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	u := *s.byID[id]
	return &u, nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) CreateUser(_ context.Context, u *models.User) (bool, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return false, "", fmt.Errorf("store indisponible")
	}
	if winner, ok := s.byEmail[u.Email]; ok {
		return false, winner, nil
	}
	cp := *u
	s.byEmail[u.Email] = u.ID
	s.byID[u.ID] = &cp
	return true, u.ID, nil
}

func (s *fakeUserStore) ListByRole(_ context.Context, role string) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, u := range s.byID {
		if u.Role == role {
			out = append(out, *u)
		}
	}
	return out, nil
}

// fakeOrderStore : commandes en mémoire, mêmes garanties d'atomicité que le
// store Scylla (référence de transaction unique, quota jamais négatif)
type fakeOrderStore struct {
	mu        sync.Mutex
	orders    map[string]*models.Order
	byTxRef   map[string]string // transaction_ref → order_id
	items     map[string]map[string]*models.OrderItem
	coupons   map[string]*models.OrderCoupon
	revisions map[string][]*models.Revision // triées de la plus ancienne à la plus récente
	giftCodes []*models.GiftCode
	revSeq    int

	// pannes injectables sur les écritures de révision
	insertRevisionErr        error
	updateRevisionMessageErr error
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{
		orders:    make(map[string]*models.Order),
		byTxRef:   make(map[string]string),
		items:     make(map[string]map[string]*models.OrderItem),
		coupons:   make(map[string]*models.OrderCoupon),
		revisions: make(map[string][]*models.Revision),
	}
}

func (s *fakeOrderStore) CreateOrder(_ context.Context, o *models.Order, items []models.OrderItem, coupon *models.OrderCoupon) (bool, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if winner, ok := s.byTxRef[o.TransactionRef]; ok {
		return false, winner, nil
	}
	s.byTxRef[o.TransactionRef] = o.ID
	cp := *o
	s.orders[o.ID] = &cp
	s.items[o.ID] = make(map[string]*models.OrderItem)
	for i := range items {
		it := items[i]
		s.items[o.ID][it.ServiceID] = &it
	}
	if coupon != nil {
		c := *coupon
		s.coupons[o.ID] = &c
	}
	return true, o.ID, nil
}

func (s *fakeOrderStore) GetOrder(_ context.Context, orderID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *fakeOrderStore) GetOrderByTransactionRef(_ context.Context, ref string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byTxRef[ref]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s.orders[id]
	return &cp, nil
}

func (s *fakeOrderStore) GetOrdersByUser(_ context.Context, userID string) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *fakeOrderStore) UpdateOrderStatus(_ context.Context, orderID string, status int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return store.ErrNotFound
	}
	o.OrderStatus = status
	return nil
}

func (s *fakeOrderStore) GetItems(_ context.Context, orderID string) ([]models.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.OrderItem
	for _, it := range s.items[orderID] {
		out = append(out, *it)
	}
	return out, nil
}

func (s *fakeOrderStore) GetItem(_ context.Context, orderID, serviceID string) (*models.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[orderID][serviceID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (s *fakeOrderStore) AppendItemFiles(_ context.Context, orderID, serviceID string, links []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[orderID][serviceID]
	if !ok {
		return store.ErrNotFound
	}
	it.Files = append(it.Files, links...)
	return nil
}

func (s *fakeOrderStore) SetItemUnread(_ context.Context, orderID, serviceID, actor string, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[orderID][serviceID]
	if !ok {
		return store.ErrNotFound
	}
	if actor == models.ActorAdmin {
		it.AdminUnread = value
	} else {
		it.BuyerUnread = value
	}
	return nil
}

func (s *fakeOrderStore) DecrementRevisionQuota(_ context.Context, orderID, serviceID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[orderID][serviceID]
	if !ok {
		return 0, store.ErrNotFound
	}
	if it.MaxRevision <= 0 {
		return 0, store.ErrQuotaExhausted
	}
	it.MaxRevision--
	return it.MaxRevision, nil
}

func (s *fakeOrderStore) RestoreRevisionQuota(_ context.Context, orderID, serviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[orderID][serviceID]
	if !ok {
		return store.ErrNotFound
	}
	it.MaxRevision++
	return nil
}

func (s *fakeOrderStore) SetRevisionQuota(_ context.Context, orderID, serviceID string, quota int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[orderID][serviceID]
	if !ok {
		return store.ErrNotFound
	}
	it.MaxRevision = quota
	return nil
}

func (s *fakeOrderStore) GetCoupon(_ context.Context, orderID string) (*models.OrderCoupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.coupons[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *fakeOrderStore) ListRevisions(_ context.Context, orderID string) ([]models.Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Revision, 0, len(s.revisions[orderID]))
	for _, rev := range s.revisions[orderID] {
		out = append(out, *rev)
	}
	return out, nil
}

func (s *fakeOrderStore) GetRevision(_ context.Context, orderID, revisionID string) (*models.Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rev := range s.revisions[orderID] {
		if rev.RevisionID == revisionID {
			cp := *rev
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *fakeOrderStore) FindRevisionByTransactionRef(_ context.Context, orderID, serviceID, ref string) (*models.Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rev := range s.revisions[orderID] {
		if rev.ServiceID == serviceID && rev.TransactionRef == ref {
			cp := *rev
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *fakeOrderStore) InsertRevision(_ context.Context, rev *models.Revision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertRevisionErr != nil {
		return s.insertRevisionErr
	}
	if rev.RevisionID == "" {
		s.revSeq++
		rev.RevisionID = fmt.Sprintf("rev-%03d", s.revSeq)
	}
	cp := *rev
	s.revisions[rev.OrderID] = append(s.revisions[rev.OrderID], &cp)
	return nil
}

func (s *fakeOrderStore) UpdateRevisionMessage(_ context.Context, orderID, revisionID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateRevisionMessageErr != nil {
		return s.updateRevisionMessageErr
	}
	for _, rev := range s.revisions[orderID] {
		if rev.RevisionID == revisionID {
			rev.Message = message
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *fakeOrderStore) AppendRevisionFiles(_ context.Context, orderID, revisionID string, links []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rev := range s.revisions[orderID] {
		if rev.RevisionID == revisionID {
			rev.Files = append(rev.Files, links...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *fakeOrderStore) UpdateRevisionStatus(_ context.Context, orderID, revisionID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rev := range s.revisions[orderID] {
		if rev.RevisionID == revisionID {
			rev.Status = status
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *fakeOrderStore) SetRevisionUnread(_ context.Context, orderID, revisionID, actor string, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rev := range s.revisions[orderID] {
		if rev.RevisionID == revisionID {
			if actor == models.ActorAdmin {
				rev.AdminUnread = value
			} else {
				rev.BuyerUnread = value
			}
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *fakeOrderStore) InsertGiftCode(_ context.Context, gc *models.GiftCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *gc
	s.giftCodes = append(s.giftCodes, &cp)
	return nil
}

// fakeNotifier enregistre les appels, de façon synchrone pour les assertions
type fakeNotifier struct {
	mu                 sync.Mutex
	ordersReceived     []string
	ordersDelivered    []string
	revisionsRequested []string
	revisionsDelivered []string
	statusChanges      []string
	giftCodes          []string
}

func (n *fakeNotifier) OrderReceived(order *models.Order, _ []models.OrderItem) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ordersReceived = append(n.ordersReceived, order.ID)
}

func (n *fakeNotifier) OrderDelivered(order *models.Order, _ *models.OrderItem) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ordersDelivered = append(n.ordersDelivered, order.ID)
}

func (n *fakeNotifier) RevisionRequested(_ *models.Order, rev *models.Revision) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.revisionsRequested = append(n.revisionsRequested, rev.RevisionID)
}

func (n *fakeNotifier) RevisionDelivered(_ *models.Order, rev *models.Revision) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.revisionsDelivered = append(n.revisionsDelivered, rev.RevisionID)
}

func (n *fakeNotifier) StatusChanged(order *models.Order, _ int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statusChanges = append(n.statusChanges, order.ID)
}

func (n *fakeNotifier) GiftCodeIssued(_ *models.Order, gc *models.GiftCode) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.giftCodes = append(n.giftCodes, gc.Code)
}

// fakeCart enregistre les retraits de lignes
type fakeCart struct {
	mu      sync.Mutex
	removed map[string][]string // user_id → service_ids retirés
	err     error
}

func newFakeCart() *fakeCart {
	return &fakeCart{removed: make(map[string][]string)}
}

func (c *fakeCart) RemoveLines(_ context.Context, userID string, serviceIDs []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.removed[userID] = append(c.removed[userID], serviceIDs...)
	return nil
}

// fakeIndex compte les indexations
type fakeIndex struct {
	mu      sync.Mutex
	indexed []string
}

func (i *fakeIndex) IndexOrder(order *models.Order, _ []models.OrderItem) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.indexed = append(i.indexed, order.ID)
}
