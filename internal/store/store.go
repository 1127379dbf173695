package store

import (
	"context"
	"errors"

	"atelier_back_end/internal/models"
)

// Erreurs domaine retournées par la couche de persistance. Les handlers les
// traduisent en codes HTTP, jamais en comparant des messages.
var (
	ErrNotFound       = errors.New("ressource introuvable")
	ErrQuotaExhausted = errors.New("quota de révisions épuisé")
)

// UserStore : accès aux comptes. CreateUser est atomique sur l'email :
// si un autre appel a gagné la course, created vaut false et winnerID
// contient l'id du compte existant.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) (created bool, winnerID string, err error)
	ListByRole(ctx context.Context, role string) ([]models.User, error)
}

// OrderStore : accès aux commandes et à tout ce qui s'y rattache.
type OrderStore interface {
	// CreateOrder réclame d'abord la référence de transaction de façon
	// atomique. Si elle est déjà prise, created vaut false et winnerID
	// contient l'id de la commande existante — aucune écriture n'a eu lieu.
	CreateOrder(ctx context.Context, o *models.Order, items []models.OrderItem, coupon *models.OrderCoupon) (created bool, winnerID string, err error)
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	GetOrderByTransactionRef(ctx context.Context, ref string) (*models.Order, error)
	GetOrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status int) error

	GetItems(ctx context.Context, orderID string) ([]models.OrderItem, error)
	GetItem(ctx context.Context, orderID, serviceID string) (*models.OrderItem, error)
	AppendItemFiles(ctx context.Context, orderID, serviceID string, links []string) error
	SetItemUnread(ctx context.Context, orderID, serviceID, actor string, value bool) error

	// DecrementRevisionQuota décrémente max_revision d'exactement un, de
	// façon atomique. Retourne ErrQuotaExhausted si le quota est à zéro ;
	// le quota ne passe jamais en négatif.
	DecrementRevisionQuota(ctx context.Context, orderID, serviceID string) (remaining int, err error)
	// RestoreRevisionQuota ré-incrémente max_revision d'exactement un.
	// Compensation d'un décrément dont l'écriture suivante a échoué.
	RestoreRevisionQuota(ctx context.Context, orderID, serviceID string) error
	// SetRevisionQuota : override admin, seul chemin autorisé à remonter le quota.
	SetRevisionQuota(ctx context.Context, orderID, serviceID string, quota int) error

	GetCoupon(ctx context.Context, orderID string) (*models.OrderCoupon, error)

	ListRevisions(ctx context.Context, orderID string) ([]models.Revision, error)
	GetRevision(ctx context.Context, orderID, revisionID string) (*models.Revision, error)
	FindRevisionByTransactionRef(ctx context.Context, orderID, serviceID, ref string) (*models.Revision, error)
	InsertRevision(ctx context.Context, rev *models.Revision) error
	UpdateRevisionMessage(ctx context.Context, orderID, revisionID, message string) error
	AppendRevisionFiles(ctx context.Context, orderID, revisionID string, links []string) error
	UpdateRevisionStatus(ctx context.Context, orderID, revisionID, status string) error
	SetRevisionUnread(ctx context.Context, orderID, revisionID, actor string, value bool) error

	InsertGiftCode(ctx context.Context, gc *models.GiftCode) error
}
