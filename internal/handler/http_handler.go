package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/wes-io-live/dm-service/internal/audit"
	"github.com/weiawesome/wes-io-live/dm-service/internal/domain"
	"github.com/weiawesome/wes-io-live/dm-service/internal/hub"
	"github.com/weiawesome/wes-io-live/dm-service/internal/repository"
	"github.com/weiawesome/wes-io-live/dm-service/internal/service"
	"github.com/weiawesome/wes-io-live/dm-service/pkg/jwt"
	"github.com/weiawesome/wes-io-live/dm-service/pkg/log"
	"github.com/weiawesome/wes-io-live/dm-service/pkg/middleware"
	"github.com/weiawesome/wes-io-live/dm-service/pkg/response"
)

// Handler handles HTTP requests for the messaging service.
type Handler struct {
	store          repository.IdentityStore
	history        *service.HistoryService
	lifecycle      *service.Lifecycle
	hub            *hub.Hub
	tokens         *jwt.Manager
	authMiddleware *middleware.AuthMiddleware
	cookieSecure   bool
}

// NewHandler creates a new HTTP handler.
func NewHandler(
	store repository.IdentityStore,
	history *service.HistoryService,
	lifecycle *service.Lifecycle,
	h *hub.Hub,
	tokens *jwt.Manager,
	authMiddleware *middleware.AuthMiddleware,
	cookieSecure bool,
) *Handler {
	return &Handler{
		store:          store,
		history:        history,
		lifecycle:      lifecycle,
		hub:            h,
		tokens:         tokens,
		authMiddleware: authMiddleware,
		cookieSecure:   cookieSecure,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.HealthCheck)

	api := r.Group("/api/v1")
	{
		// Public routes
		api.POST("/login", h.Login)
		api.POST("/logout", h.Logout)

		// Protected routes
		protected := api.Group("")
		protected.Use(h.authMiddleware.RequireAuth())
		{
			protected.GET("/users", h.ListUsers)
			protected.GET("/messages/:username", h.GetMessages)
		}
	}
}

// Login issues a token for the requested username and sets it as a cookie.
func (h *Handler) Login(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid login request")
		response.BadRequest(c, err.Error())
		return
	}

	username, err := domain.NormalizeUsername(req.Username)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	token, expiresAt, err := h.tokens.GenerateToken(username)
	if err != nil {
		l.Error().Err(err).Msg("failed to issue token")
		response.InternalError(c, "failed to login")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, token, int(h.tokens.Duration().Seconds()), "/", "", h.cookieSecure, true)
	c.Set(log.FieldUsername, username)
	audit.Log(ctx, audit.ActionLogin, username, "token issued")

	response.Success(c, &domain.LoginResponse{
		Username:  username,
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

// Logout clears the token cookie. Issued tokens stay valid until expiry.
func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", h.cookieSecure, true)
	response.Success(c, gin.H{"logged_out": true})
}

// ListUsers returns every known username and who is online.
func (h *Handler) ListUsers(c *gin.Context) {
	ctx := c.Request.Context()
	users, err := h.store.ListUsers(ctx)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("list users failed")
		response.InternalError(c, "failed to list users")
		return
	}

	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}

	response.Success(c, &domain.UsersResponse{
		Users:  names,
		Online: h.lifecycle.Online(),
	})
}

// GetMessages returns the conversation between the caller and :username.
func (h *Handler) GetMessages(c *gin.Context) {
	ctx := c.Request.Context()
	me := middleware.GetUsername(c)
	other := c.Param("username")

	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			response.BadRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := h.history.GetConversation(ctx, me, other, limit)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCurrentUserNotFound):
			response.NotFound(c, "current user not found")
		case errors.Is(err, domain.ErrUnknownUser):
			response.NotFound(c, "user not found")
		default:
			l := log.Ctx(ctx)
			l.Error().Err(err).Msg("get messages failed")
			response.InternalError(c, "failed to get messages")
		}
		return
	}

	response.Success(c, entries)
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"online":      h.lifecycle.OnlineCount(),
		"connections": h.hub.ClientCount(),
	})
}
