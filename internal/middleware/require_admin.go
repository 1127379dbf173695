package middleware

import (
	"net/http"

	"atelier_back_end/internal/models"

	"github.com/gin-gonic/gin"
)

// RequireAdmin vérifie que l'utilisateur a le rôle "admin"
func RequireAdmin(c *gin.Context) {
	role, exists := c.Get("role")
	if !exists || role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès réservé aux administrateurs"})
		c.Abort()
		return
	}
	c.Next()
}

// RequireStaff vérifie que l'utilisateur est admin ou ingénieur
func RequireStaff(c *gin.Context) {
	role, exists := c.Get("role")
	if !exists || (role != models.RoleAdmin && role != models.RoleEngineer) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès réservé à l'équipe"})
		c.Abort()
		return
	}
	c.Next()
}
