package store

import (
	"context"
	"encoding/json"
	"log"

	"atelier_back_end/internal/database"
	"atelier_back_end/internal/models"
)

// RedisCartStore : panier persistant en JSON dans Redis, clé "cart:<user_id>".
// Chaque modification publie sur le canal du panier pour la synchro WebSocket.
type RedisCartStore struct{}

func NewRedisCartStore() *RedisCartStore { return &RedisCartStore{} }

func cartKey(userID string) string { return "cart:" + userID }

func (s *RedisCartStore) Get(ctx context.Context, userID string) ([]models.CartItem, error) {
	data, err := database.Redis.Get(ctx, cartKey(userID)).Result()
	if err != nil || data == "" {
		return []models.CartItem{}, nil // panier vide
	}

	var cart []models.CartItem
	if err := json.Unmarshal([]byte(data), &cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *RedisCartStore) Save(ctx context.Context, userID string, items []models.CartItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	if err := database.Redis.Set(ctx, cartKey(userID), data, 0).Err(); err != nil {
		return err
	}
	database.Redis.Publish(ctx, cartKey(userID), "updated")
	return nil
}

func (s *RedisCartStore) Clear(ctx context.Context, userID string) error {
	if err := database.Redis.Del(ctx, cartKey(userID)).Err(); err != nil {
		return err
	}
	database.Redis.Publish(ctx, cartKey(userID), "cleared")
	return nil
}

// RemoveLines retire du panier les services qui viennent d'être payés.
// Appelé par la réconciliation pour les achats one-time.
func (s *RedisCartStore) RemoveLines(ctx context.Context, userID string, serviceIDs []string) error {
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if len(cart) == 0 {
		return nil
	}

	paid := make(map[string]bool, len(serviceIDs))
	for _, id := range serviceIDs {
		paid[id] = true
	}

	kept := cart[:0]
	for _, item := range cart {
		if !paid[item.ServiceID] {
			kept = append(kept, item)
		}
	}

	if len(kept) == len(cart) {
		return nil
	}
	log.Printf("🧹 Panier de %s : %d ligne(s) retirée(s) après paiement", userID, len(cart)-len(kept))
	return s.Save(ctx, userID, kept)
}
