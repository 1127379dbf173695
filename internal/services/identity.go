package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"atelier_back_end/internal/models"
	"atelier_back_end/internal/store"
	"atelier_back_end/internal/utils"

	"github.com/google/uuid"
)

// IdentityResolver : retrouve le compte du payeur ou provisionne un invité.
// Ne duplique jamais un compte pour un même email, ne touche jamais au rôle
// ni au mot de passe d'un compte existant, n'envoie aucun email.
type IdentityResolver struct {
	Users store.UserStore
}

func NewIdentityResolver(users store.UserStore) *IdentityResolver {
	return &IdentityResolver{Users: users}
}

func (r *IdentityResolver) ResolveOrCreate(ctx context.Context, email, displayName, phone string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, invalidf("email du payeur manquant")
	}

	if existing, err := r.Users.GetByEmail(ctx, email); err == nil {
		return existing, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	firstName, lastName := SplitDisplayName(displayName)

	// Mot de passe placeholder inutilisable : un invité ne se connecte pas
	// tant qu'il ne passe pas par l'inscription classique
	placeholder, err := utils.GuestPasswordPlaceholder()
	if err != nil {
		return nil, err
	}

	guest := &models.User{
		ID:        uuid.NewString(),
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		Phone:     phone,
		Password:  placeholder,
		Role:      models.RoleGuest,
		Active:    true,
	}

	created, winnerID, err := r.Users.CreateUser(ctx, guest)
	if err != nil {
		return nil, err
	}
	if !created {
		// Course perdue sur un email tout neuf : on retourne le gagnant
		log.Printf("🔁 Création invité %s perdue, réutilisation du compte %s", email, winnerID)
		return r.Users.GetByID(ctx, winnerID)
	}

	log.Printf("👤 Compte invité créé pour %s (%s)", email, guest.ID)
	return guest, nil
}

// SplitDisplayName : découpe naïve "Prénom Nom" utilisée en dernier recours,
// derrière les coordonnées invité et le nom rapporté par le fournisseur
func SplitDisplayName(displayName string) (string, string) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return "", ""
	}
	parts := strings.SplitN(displayName, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
