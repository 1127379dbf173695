package models

import "time"

// Rôles canoniques (casse unique partout, la compat se fait à la frontière HTTP)
const (
	RoleAdmin    = "admin"
	RoleEngineer = "engineer"
	RoleBuyer    = "buyer"
	RoleGuest    = "guest"
)

type User struct {
	ID        string     `json:"user_id"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name,omitempty"`
	LastName  string     `json:"last_name,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Password  string     `json:"-"`
	Role      string     `json:"role,omitempty"`
	Active    bool       `json:"active"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// IsStaff indique si le rôle donne accès aux commandes des autres utilisateurs
func (u *User) IsStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleEngineer
}

// DisplayName reconstruit le nom affiché à partir des deux parties
func (u *User) DisplayName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleEngineer, RoleBuyer, RoleGuest:
		return true
	}
	return false
}
