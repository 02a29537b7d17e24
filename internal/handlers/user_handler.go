package handlers

import (
	"net/http"

	"fieldops-api/internal/identity"

	"github.com/gin-gonic/gin"
)

// UserHandler lists the staff that tasks can be assigned to.
type UserHandler struct {
	dir identity.Lister
}

// NewUserHandler creates a handler listing actors from dir.
func NewUserHandler(dir identity.Lister) *UserHandler {
	return &UserHandler{dir: dir}
}

// GetAllUsers returns all users (protected)
// GET /api/users
func (h *UserHandler) GetAllUsers(c *gin.Context) {
	users, err := h.dir.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"count": len(users),
	})
}
