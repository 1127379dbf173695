package services

import (
	"context"
	"fmt"
	"log"
	"os"

	"atelier_back_end/internal/database"
	"atelier_back_end/internal/models"
	"atelier_back_end/internal/store"
	"atelier_back_end/internal/utils"
)

// MailNotifier : fan-out email + badge temps réel. Tous les envois partent en
// goroutine : on ne retient jamais la réponse HTTP pour un email, et un envoi
// raté vers un destinataire n'empêche pas les autres.
type MailNotifier struct {
	Users store.UserStore
}

func NewMailNotifier(users store.UserStore) *MailNotifier {
	return &MailNotifier{Users: users}
}

func frontendOrderLink(orderID string) string {
	base := os.Getenv("FRONTEND_URL")
	if base == "" {
		base = "http://localhost:5173"
	}
	return fmt.Sprintf("%s/orders/%s", base, orderID)
}

func adminOrderLink(orderID string) string {
	base := os.Getenv("ADMIN_URL")
	if base == "" {
		base = "http://localhost:5174"
	}
	return fmt.Sprintf("%s/orders/%s", base, orderID)
}

// sendTo : envoi isolé par destinataire
func sendTo(email, subject, html string, attachment []byte, attachmentName string) {
	if email == "" {
		return
	}
	if err := utils.SendMail(email, subject, html, attachment, attachmentName); err != nil {
		log.Printf("❌ Envoi email à %s échoué: %v", email, err)
	} else {
		log.Printf("📧 Email envoyé à %s : %s", email, subject)
	}
}

// staffEmails : admins + tous les ingénieurs
func (n *MailNotifier) staffEmails() (admins, engineers []string) {
	ctx := context.Background()
	if users, err := n.Users.ListByRole(ctx, models.RoleAdmin); err == nil {
		for _, u := range users {
			admins = append(admins, u.Email)
		}
	} else {
		log.Printf("❌ Lecture des comptes admin échouée: %v", err)
	}
	if users, err := n.Users.ListByRole(ctx, models.RoleEngineer); err == nil {
		for _, u := range users {
			engineers = append(engineers, u.Email)
		}
	} else {
		log.Printf("❌ Lecture des comptes ingénieur échouée: %v", err)
	}
	return admins, engineers
}

// publishBadge réveille le WebSocket des badges de l'utilisateur
func publishBadge(userID string) {
	if database.Redis == nil || userID == "" {
		return
	}
	if err := database.Redis.Publish(context.Background(), "orders:"+userID, "updated").Err(); err != nil {
		log.Printf("❌ Publication badge pour %s échouée: %v", userID, err)
	}
}

func (n *MailNotifier) OrderReceived(order *models.Order, items []models.OrderItem) {
	go func() {
		// Facture en pièce jointe pour l'acheteur ; nil si le rendu échoue
		pdf, err := utils.GenerateInvoicePDF(order)
		if err != nil {
			log.Printf("❌ Génération facture PDF pour %s échouée: %v", order.ID, err)
			pdf = nil
		}

		sendTo(order.PayerEmail, "✅ Commande reçue - Atelier",
			utils.OrderReceivedHTML(order, items, frontendOrderLink(order.ID)), pdf, "facture_atelier.pdf")

		admins, engineers := n.staffEmails()
		staffHTML := utils.OrderReceivedStaffHTML(order, items, adminOrderLink(order.ID))
		for _, email := range admins {
			sendTo(email, "🛒 Nouvelle commande - Atelier", staffHTML, nil, "")
		}
		for _, email := range engineers {
			sendTo(email, "🛒 Nouvelle commande à traiter - Atelier", staffHTML, nil, "")
		}

		publishBadge(order.UserID)
	}()
}

func (n *MailNotifier) OrderDelivered(order *models.Order, item *models.OrderItem) {
	go func() {
		sendTo(order.PayerEmail, "📦 Vos fichiers sont prêts - Atelier",
			utils.DeliveryHTML(order, item, frontendOrderLink(order.ID)), nil, "")
		publishBadge(order.UserID)
	}()
}

func (n *MailNotifier) RevisionRequested(order *models.Order, rev *models.Revision) {
	go func() {
		html := utils.RevisionRequestedHTML(order, rev, adminOrderLink(order.ID))
		admins, engineers := n.staffEmails()
		for _, email := range admins {
			sendTo(email, "📝 Demande de révision - Atelier", html, nil, "")
		}
		for _, email := range engineers {
			sendTo(email, "📝 Demande de révision à traiter - Atelier", html, nil, "")
		}
		sendTo(order.PayerEmail, "📝 Votre demande de révision est enregistrée - Atelier",
			utils.RevisionAcknowledgedHTML(order, rev, frontendOrderLink(order.ID)), nil, "")
		publishBadge(order.UserID)
	}()
}

func (n *MailNotifier) RevisionDelivered(order *models.Order, rev *models.Revision) {
	go func() {
		sendTo(order.PayerEmail, "📦 Révision livrée - Atelier",
			utils.RevisionDeliveredHTML(order, rev, frontendOrderLink(order.ID)), nil, "")
		admins, _ := n.staffEmails()
		for _, email := range admins {
			sendTo(email, "📦 Révision livrée - Atelier",
				utils.RevisionDeliveredHTML(order, rev, adminOrderLink(order.ID)), nil, "")
		}
		publishBadge(order.UserID)
	}()
}

func (n *MailNotifier) StatusChanged(order *models.Order, oldStatus int) {
	go func() {
		sendTo(order.PayerEmail, "📋 Mise à jour de votre commande - Atelier",
			utils.StatusChangedHTML(order, oldStatus, frontendOrderLink(order.ID)), nil, "")
		publishBadge(order.UserID)
	}()
}

func (n *MailNotifier) GiftCodeIssued(order *models.Order, gc *models.GiftCode) {
	go func() {
		qr, err := utils.GenerateGiftQR(gc.Code)
		if err != nil {
			log.Printf("❌ QR du code cadeau %s échoué: %v", gc.Code, err)
			qr = ""
		}
		sendTo(order.PayerEmail, "🎁 Votre carte cadeau - Atelier",
			utils.GiftCodeHTML(gc, qr), nil, "")
	}()
}
