package handlers

import (
	"crypto/subtle"
	"net/http"

	"racebook/internal/auth"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	adminPassword string
}

func NewAuthHandler(adminPassword string) *AuthHandler {
	return &AuthHandler{adminPassword: adminPassword}
}

// AdminLoginRequest carries the operator password
type AdminLoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// AdminLogin exchanges the operator password for an admin JWT
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.adminPassword)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := auth.GenerateAdminToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
