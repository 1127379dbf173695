package utils

import (
	"fmt"

	"atelier_back_end/internal/models"
)

// Gabarit commun des emails : carte blanche centrée sur fond gris
func emailShell(title, inner string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>%s</title>
</head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		%s
		<p style="margin-top: 30px; color: #555;">
			Cordialement,<br>
			<strong>L'équipe Atelier</strong>
		</p>
	</div>
</body>
</html>`, title, inner)
}

func ctaButton(link, label string) string {
	return fmt.Sprintf(`
		<table role="presentation" style="width: 100%%; margin: 30px 0;">
			<tr>
				<td style="text-align: center;">
					<a href="%s" style="display: inline-block; padding: 14px 36px; background-color: #667eea; color: #ffffff; text-decoration: none; border-radius: 8px; font-weight: 600; font-size: 16px;">
						%s
					</a>
				</td>
			</tr>
		</table>`, link, label)
}

func itemsTable(items []models.OrderItem, total float64) string {
	itemsHTML := ""
	for _, item := range items {
		itemsHTML += fmt.Sprintf(`
			<tr>
				<td style="padding: 10px; border: 1px solid #ddd;">%s</td>
				<td style="padding: 10px; border: 1px solid #ddd;">%d</td>
				<td style="padding: 10px; border: 1px solid #ddd;">%.2f€</td>
				<td style="padding: 10px; border: 1px solid #ddd;">%.2f€</td>
			</tr>`, item.Name, item.Quantity, item.Price, item.Total)
	}

	return fmt.Sprintf(`
		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background-color: #f0f0f0;">
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Service</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Quantité</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Prix unitaire</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Total</th>
				</tr>
			</thead>
			<tbody>
				%s
			</tbody>
			<tfoot>
				<tr>
					<td colspan="3" style="padding: 10px; text-align: right; font-weight: bold;">Total:</td>
					<td style="padding: 10px; font-weight: bold;">%.2f€</td>
				</tr>
			</tfoot>
		</table>`, itemsHTML, total)
}

// OrderReceivedHTML : confirmation envoyée à l'acheteur
func OrderReceivedHTML(order *models.Order, items []models.OrderItem, link string) string {
	inner := fmt.Sprintf(`
		<h2 style="color: #333;">✅ Commande reçue</h2>
		<p>Bonjour %s,</p>
		<p>Nous avons bien reçu votre paiement (référence <strong>%s</strong>). Votre commande est en file de production.</p>
		<h3>Détails de la commande</h3>
		%s
		%s`,
		order.PayerName, order.TransactionRef,
		itemsTable(items, order.Amount),
		ctaButton(link, "Suivre ma commande"))
	return emailShell("Commande reçue", inner)
}

// OrderReceivedStaffHTML : alerte envoyée aux admins et ingénieurs
func OrderReceivedStaffHTML(order *models.Order, items []models.OrderItem, link string) string {
	inner := fmt.Sprintf(`
		<h2 style="color: #333;">🛒 Nouvelle commande à traiter</h2>
		<p><strong>%s</strong> (%s) vient de payer <strong>%.2f %s</strong>.</p>
		<p>Référence de transaction : <strong>%s</strong></p>
		%s
		%s`,
		order.PayerName, order.PayerEmail, order.Amount, order.Currency,
		order.TransactionRef,
		itemsTable(items, order.Amount),
		ctaButton(link, "Ouvrir dans le back-office"))
	return emailShell("Nouvelle commande", inner)
}

// DeliveryHTML : fichiers livrés sur une ligne de commande
func DeliveryHTML(order *models.Order, item *models.OrderItem, link string) string {
	filesHTML := ""
	for _, f := range item.Files {
		filesHTML += fmt.Sprintf(`<li style="margin: 5px 0;"><a href="%s">%s</a></li>`, f, f)
	}

	inner := fmt.Sprintf(`
		<h2 style="color: #333;">📦 Vos fichiers sont prêts</h2>
		<p>Bonjour %s,</p>
		<p>Les livrables du service <strong>%s</strong> sont disponibles :</p>
		<ul>%s</ul>
		%s`,
		order.PayerName, item.Name, filesHTML,
		ctaButton(link, "Voir ma commande"))
	return emailShell("Fichiers livrés", inner)
}

// RevisionRequestedHTML : demande de révision, côté staff
func RevisionRequestedHTML(order *models.Order, rev *models.Revision, link string) string {
	inner := fmt.Sprintf(`
		<h2 style="color: #333;">📝 Demande de révision</h2>
		<p><strong>%s</strong> demande une révision sur la commande <strong>%s</strong> (service %s).</p>
		<blockquote style="margin: 20px 0; padding: 15px; background-color: #f8f9fa; border-left: 4px solid #667eea; color: #333;">
			%s
		</blockquote>
		%s`,
		order.PayerName, order.ID, rev.ServiceID, rev.Message,
		ctaButton(link, "Traiter la demande"))
	return emailShell("Demande de révision", inner)
}

// RevisionAcknowledgedHTML : accusé de réception, côté acheteur
func RevisionAcknowledgedHTML(order *models.Order, rev *models.Revision, link string) string {
	inner := fmt.Sprintf(`
		<h2 style="color: #333;">📝 Demande de révision enregistrée</h2>
		<p>Bonjour %s,</p>
		<p>Votre demande de révision sur la commande <strong>%s</strong> est bien enregistrée. Notre équipe s'en occupe.</p>
		<blockquote style="margin: 20px 0; padding: 15px; background-color: #f8f9fa; border-left: 4px solid #667eea; color: #333;">
			%s
		</blockquote>
		%s`,
		order.PayerName, order.ID, rev.Message,
		ctaButton(link, "Suivre ma commande"))
	return emailShell("Demande de révision enregistrée", inner)
}

// RevisionDeliveredHTML : révision livrée
func RevisionDeliveredHTML(order *models.Order, rev *models.Revision, link string) string {
	filesHTML := ""
	for _, f := range rev.Files {
		filesHTML += fmt.Sprintf(`<li style="margin: 5px 0;"><a href="%s">%s</a></li>`, f, f)
	}

	inner := fmt.Sprintf(`
		<h2 style="color: #333;">📦 Révision livrée</h2>
		<p>La révision demandée sur la commande <strong>%s</strong> est livrée :</p>
		<ul>%s</ul>
		%s`,
		order.ID, filesHTML,
		ctaButton(link, "Voir la commande"))
	return emailShell("Révision livrée", inner)
}

// StatusChangedHTML : changement de statut visible par l'acheteur
func StatusChangedHTML(order *models.Order, oldStatus int, link string) string {
	inner := fmt.Sprintf(`
		<h2 style="color: #333;">📋 Mise à jour de votre commande</h2>
		<p>Bonjour %s,</p>
		<p>Votre commande <strong>%s</strong> est passée de <strong>%s</strong> à <strong>%s</strong>.</p>
		%s`,
		order.PayerName, order.ID,
		models.OrderStatusLabel(oldStatus), models.OrderStatusLabel(order.OrderStatus),
		ctaButton(link, "Voir ma commande"))
	return emailShell("Mise à jour de commande", inner)
}

// GiftCodeHTML : carte cadeau avec QR
func GiftCodeHTML(gc *models.GiftCode, qrBase64 string) string {
	qrHTML := ""
	if qrBase64 != "" {
		qrHTML = fmt.Sprintf(`
			<div style="text-align: center; margin: 20px 0;">
				<img src="%s" alt="QR code" style="width: 180px; height: 180px;">
			</div>`, qrBase64)
	}

	inner := fmt.Sprintf(`
		<h2 style="color: #333;">🎁 Votre carte cadeau</h2>
		<p>Merci pour votre achat ! Voici votre code cadeau d'une valeur de <strong>%.2f€</strong> :</p>
		<div style="text-align: center; margin: 25px 0;">
			<span style="display: inline-block; padding: 15px 30px; background-color: #f0f0f0; border-radius: 8px; font-size: 24px; font-weight: bold; letter-spacing: 3px;">
				%s
			</span>
		</div>
		%s
		<p style="color: #666; font-size: 13px;">Ce code est utilisable une seule fois, sans date d'expiration.</p>`,
		gc.Amount, gc.Code, qrHTML)
	return emailShell("Carte cadeau", inner)
}
