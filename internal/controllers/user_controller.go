package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"meaktask-api/internal/middleware"
	"meaktask-api/internal/models"
)

type UserController struct{}

func NewUserController() *UserController {
	return &UserController{}
}

// Me handles GET /api/users/me. Must run behind middleware.AuthMiddleware.
func (uc *UserController) Me(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.NewErrorResponse(msgNotAuthorized))
		return
	}

	c.JSON(http.StatusOK, models.UserResponse{Success: true, Data: identity})
}
