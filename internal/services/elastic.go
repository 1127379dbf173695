package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"atelier_back_end/internal/database"
	"atelier_back_end/internal/models"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

//
// --- INDEXATION DANS ELASTICSEARCH ---
//

// ElasticOrderIndex : copie de recherche des commandes pour le back-office.
// L'index n'est jamais la source de vérité, Scylla l'est.
type ElasticOrderIndex struct{}

type orderDocument struct {
	OrderID        string   `json:"order_id"`
	UserID         string   `json:"user_id"`
	TransactionRef string   `json:"transaction_ref"`
	PayerName      string   `json:"payer_name"`
	PayerEmail     string   `json:"payer_email"`
	Amount         float64  `json:"amount"`
	Currency       string   `json:"currency"`
	OrderStatus    int      `json:"order_status"`
	StatusLabel    string   `json:"status_label"`
	OrderType      string   `json:"order_type"`
	ServiceNames   []string `json:"service_names"`
	CreatedAt      string   `json:"created_at"`
}

// IndexOrder pousse la commande dans l'index "orders"
func (ElasticOrderIndex) IndexOrder(order *models.Order, items []models.OrderItem) {
	if database.Elastic == nil {
		log.Println("⚠️ Elastic non initialisé, impossible d’indexer la commande:", order.ID)
		return
	}

	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}

	doc := orderDocument{
		OrderID:        order.ID,
		UserID:         order.UserID,
		TransactionRef: order.TransactionRef,
		PayerName:      order.PayerName,
		PayerEmail:     order.PayerEmail,
		Amount:         order.Amount,
		Currency:       order.Currency,
		OrderStatus:    order.OrderStatus,
		StatusLabel:    models.OrderStatusLabel(order.OrderStatus),
		OrderType:      order.OrderType,
		ServiceNames:   names,
		CreatedAt:      order.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}

	data, _ := json.Marshal(doc)
	req := esapi.IndexRequest{
		Index:      "orders",
		DocumentID: order.ID,
		Body:       bytes.NewReader(data),
		Refresh:    "true", // rend la commande immédiatement cherchable
	}

	res, err := req.Do(context.Background(), database.Elastic)
	if err != nil {
		log.Println("❌ Erreur envoi Elastic:", err)
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Printf("⚠️ Elastic a renvoyé une erreur pour %s: %s", order.ID, res.String())
	} else {
		log.Printf("✅ Commande indexée dans Elasticsearch: %s", order.ID)
	}
}

//
// --- RECHERCHE DANS ELASTICSEARCH ---
//

// SearchOrders cherche dans les commandes par payeur, référence ou service
func SearchOrders(query string) ([]map[string]interface{}, error) {
	if database.Elastic == nil {
		return nil, errors.New("client Elasticsearch non initialisé")
	}

	var buf bytes.Buffer
	q := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"payer_name", "payer_email", "transaction_ref", "service_names", "status_label"},
			},
		},
	}

	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, fmt.Errorf("erreur encodage requête: %v", err)
	}

	req := esapi.SearchRequest{
		Index: []string{"orders"},
		Body:  &buf,
	}
	res, err := req.Do(context.Background(), database.Elastic)
	if err != nil {
		return nil, fmt.Errorf("erreur requête Elastic: %v", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		json.NewDecoder(res.Body).Decode(&e)
		log.Printf("❌ Elasticsearch erreur: %+v", e)
		return nil, errors.New("index non trouvé ou vide")
	}

	var r map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("erreur décodage JSON: %v", err)
	}

	hitsData, ok := r["hits"].(map[string]interface{})
	if !ok {
		return nil, errors.New("réponse Elastic invalide (pas de hits)")
	}

	hitsArray, ok := hitsData["hits"].([]interface{})
	if !ok {
		return nil, errors.New("aucun résultat trouvé")
	}

	results := make([]map[string]interface{}, 0, len(hitsArray))
	for _, hit := range hitsArray {
		hitMap, _ := hit.(map[string]interface{})
		if source, ok := hitMap["_source"].(map[string]interface{}); ok {
			results = append(results, source)
		}
	}

	return results, nil
}
