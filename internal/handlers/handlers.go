package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"usersvc/api/internal/auth"
	"usersvc/api/internal/config"
	"usersvc/api/internal/middleware"
	"usersvc/api/internal/models"
	"usersvc/api/internal/repository"
	"usersvc/api/internal/service"
)

type HandlerSet struct {
	log   zerolog.Logger
	cfg   *config.AppConfig
	users *service.UserService
	db    *mongo.Database
	cache *redis.Client
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, users *service.UserService, db *mongo.Database, cache *redis.Client) HandlerSet {
	return HandlerSet{
		log:   log,
		cfg:   cfg,
		users: users,
		db:    db,
		cache: cache,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	v1.Use(middleware.Identity(h.cfg.Security.JWTSecret))

	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", h.RegisterUser)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/forgot-password", h.ForgotPassword)
		authGroup.POST("/password-reset", h.PasswordReset)
		authGroup.POST("/logout", middleware.RequireCapabilities(), h.Logout)
		authGroup.GET("/me", middleware.RequireCapabilities(), h.Me)
	}

	users := v1.Group("/users")
	{
		users.GET("", middleware.RequireCapabilities(string(models.RoleAdmin), string(models.RoleSupervisor)), h.ListUsers)
		users.PUT("/billing", middleware.RequireCapabilities(), h.UpdateBilling)
		users.GET("/:id", middleware.RequireCapabilities(string(models.RoleAdmin), string(models.RoleSupervisor), auth.CapabilityIsOwnUser), h.GetUser)
		users.PUT("/:id", middleware.RequireCapabilities(string(models.RoleAdmin), string(models.RoleSupervisor), auth.CapabilityIsOwnUser), h.UpdateUser)
		users.DELETE("/:id", middleware.RequireCapabilities(string(models.RoleAdmin)), h.DeleteUser)
		users.PATCH("/:id/verified", middleware.RequireCapabilities(string(models.RoleAdmin)), h.SetVerified)
	}

	admin := v1.Group("/admin")
	admin.Use(middleware.RequireCapabilities(string(models.RoleAdmin)))
	admin.GET("/stats", h.AdminStats)
}

// errorStatus maps the service error taxonomy onto HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrResetTokenExpired), errors.Is(err, service.ErrInvalidCursor):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrEmailTaken):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (h HandlerSet) abortWithError(c *gin.Context, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(status, gin.H{"error": "internal_server_error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
