package store

import (
	"context"
	"errors"
	"log"
	"time"

	"atelier_back_end/internal/database"
	"atelier_back_end/internal/models"

	"github.com/gocql/gocql"
)

// ScyllaUserStore : implémentation ScyllaDB de UserStore. L'unicité de
// l'email repose sur une LWT (INSERT ... IF NOT EXISTS) sur users_by_email.
type ScyllaUserStore struct{}

func NewScyllaUserStore() *ScyllaUserStore { return &ScyllaUserStore{} }

func (s *ScyllaUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	session, err := database.GetUsersSession()
	if err != nil {
		return nil, err
	}

	var userID string
	err = session.Query("SELECT user_id FROM users_by_email WHERE email = ?", email).
		WithContext(ctx).Scan(&userID)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, userID)
}

func (s *ScyllaUserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	session, err := database.GetUsersSession()
	if err != nil {
		return nil, err
	}

	u := models.User{ID: id}
	err = session.Query(`SELECT email, first_name, last_name, phone, password, role, active
		FROM users WHERE user_id = ?`, id).WithContext(ctx).
		Scan(&u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.Password, &u.Role, &u.Active)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *ScyllaUserStore) CreateUser(ctx context.Context, u *models.User) (bool, string, error) {
	session, err := database.GetUsersSession()
	if err != nil {
		return false, "", err
	}

	// Réclamer l'email en premier : deux réconciliations concurrentes pour un
	// même nouvel email ne peuvent pas créer deux comptes.
	prev := map[string]interface{}{}
	applied, err := session.Query(
		"INSERT INTO users_by_email (email, user_id) VALUES (?, ?) IF NOT EXISTS",
		u.Email, u.ID).WithContext(ctx).MapScanCAS(prev)
	if err != nil {
		return false, "", err
	}
	if !applied {
		winnerID, _ := prev["user_id"].(string)
		log.Printf("🔁 Email %s déjà réclamé par user %s", u.Email, winnerID)
		return false, winnerID, nil
	}

	now := time.Now()
	batch := session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(`INSERT INTO users (user_id, email, first_name, last_name, phone, password, role, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.FirstName, u.LastName, u.Phone, u.Password, u.Role, u.Active, now, now)
	batch.Query("INSERT INTO users_by_role (role, user_id, email) VALUES (?, ?, ?)",
		u.Role, u.ID, u.Email)

	if err := session.ExecuteBatch(batch); err != nil {
		// Compensation : on libère l'email pour ne pas laisser une réclamation orpheline
		if delErr := session.Query("DELETE FROM users_by_email WHERE email = ?", u.Email).
			WithContext(ctx).Exec(); delErr != nil {
			log.Printf("❌ Libération email %s échouée: %v", u.Email, delErr)
		}
		return false, "", err
	}

	return true, u.ID, nil
}

func (s *ScyllaUserStore) ListByRole(ctx context.Context, role string) ([]models.User, error) {
	session, err := database.GetUsersSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query("SELECT user_id, email FROM users_by_role WHERE role = ?", role).
		WithContext(ctx).Iter()

	var users []models.User
	var id, email string
	for iter.Scan(&id, &email) {
		users = append(users, models.User{ID: id, Email: email, Role: role})
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return users, nil
}
