package controllers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"meaktask-api/internal/metrics"
	"meaktask-api/internal/models"
	"meaktask-api/internal/service"
)

type AuthController struct {
	authService service.AuthService
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

func NewAuthController(authService service.AuthService, logger *slog.Logger, m *metrics.Metrics) *AuthController {
	return &AuthController{
		authService: authService,
		logger:      logger,
		metrics:     m,
	}
}

// Register handles POST /api/auth/register
func (ac *AuthController) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// An unreadable body carries no usable fields
		respondError(c, ac.logger, ac.metrics, metrics.OpRegister, service.ErrMissingFields, msgRegisterMissingFields)
		return
	}

	response, err := ac.authService.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, ac.logger, ac.metrics, metrics.OpRegister, err, msgRegisterMissingFields)
		return
	}

	ac.metrics.RecordAuth(metrics.OpRegister, metrics.OutcomeSuccess)
	c.JSON(http.StatusCreated, response)
}

// Login handles POST /api/auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ac.logger, ac.metrics, metrics.OpLogin, service.ErrMissingFields, msgLoginMissingFields)
		return
	}

	response, err := ac.authService.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, ac.logger, ac.metrics, metrics.OpLogin, err, msgLoginMissingFields)
		return
	}

	ac.metrics.RecordAuth(metrics.OpLogin, metrics.OutcomeSuccess)
	c.JSON(http.StatusOK, response)
}
