package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"meaktask-api/internal/controllers"
	"meaktask-api/internal/metrics"
	"meaktask-api/internal/middleware"
	"meaktask-api/internal/models"
	"meaktask-api/internal/service"
)

// RouterConfig carries what the HTTP surface needs
type RouterConfig struct {
	AuthService        service.AuthService
	Logger             *slog.Logger
	Registry           *prometheus.Registry
	Metrics            *metrics.Metrics
	CORSOrigins        []string
	RateLimitAuthRPS   float64
	RateLimitAuthBurst int
}

// NewRouter builds the gin engine. Rate limiter sweeps stop when ctx is done.
func NewRouter(ctx context.Context, rc RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.Recovery(rc.Logger),
		middleware.RequestLogger(rc.Logger, rc.Metrics),
		cors.New(corsConfig(rc.CORSOrigins)),
	)

	authController := controllers.NewAuthController(rc.AuthService, rc.Logger, rc.Metrics)
	userController := controllers.NewUserController()
	authRateLimiter := middleware.NewRateLimiter(ctx, rate.Limit(rc.RateLimitAuthRPS), rc.RateLimitAuthBurst, rc.Metrics)

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "API is running")
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	if rc.Registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(rc.Registry, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		auth.Use(authRateLimiter.LimitMiddleware())
		{
			auth.POST("/register", authController.Register)
			auth.POST("/login", authController.Login)
		}

		users := api.Group("/users")
		users.Use(middleware.AuthMiddleware(rc.AuthService, rc.Logger, rc.Metrics))
		{
			users.GET("/me", userController.Me)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.NewErrorResponse("Route not found"))
	})

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Content-Type", "Authorization"},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
