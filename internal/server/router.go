package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/personachat/backend/internal/ai"
	"github.com/personachat/backend/internal/chat"
	"github.com/personachat/backend/internal/identity"
	"github.com/personachat/backend/internal/profiles"
	"github.com/personachat/backend/internal/users"
	"go.uber.org/zap"
)

const (
	identityContextKey  = "personachat_identity"
	requestIDContextKey = "personachat_request_id"
	requestIDHeader     = "X-Request-ID"
)

var (
	errMissingUsersService    = errors.New("users service dependency required")
	errMissingProfilesService = errors.New("profiles service dependency required")
	errMissingChatService     = errors.New("chat service dependency required")
	errMissingAIClient        = errors.New("ai client dependency required")
)

// Dependencies wires the HTTP layer to the services beneath it.
type Dependencies struct {
	UsersService    *users.Service
	ProfilesService *profiles.Service
	ChatService     *chat.Service
	AIClient        *ai.Client
	Logger          *zap.Logger
	IdentityHeader  string
	AllowedOrigins  []string
}

// NewHTTPHandler assembles the gin router with the full API surface.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.UsersService == nil {
		return nil, errMissingUsersService
	}
	if deps.ProfilesService == nil {
		return nil, errMissingProfilesService
	}
	if deps.ChatService == nil {
		return nil, errMissingChatService
	}
	if deps.AIClient == nil {
		return nil, errMissingAIClient
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	identityHeader := deps.IdentityHeader
	if identityHeader == "" {
		identityHeader = "X-LDAP"
	}
	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", identityHeader, requestIDHeader},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		users:          deps.UsersService,
		profiles:       deps.ProfilesService,
		chat:           deps.ChatService,
		ai:             deps.AIClient,
		logger:         logger,
		identityHeader: identityHeader,
	}

	router.Use(handler.tagRequest)
	router.Use(handler.logRequest)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	api.Use(handler.requireIdentity)

	api.GET("/users/me", handler.handleCurrentUser)
	api.PUT("/users/me", handler.handleUpdateCurrentUser)

	api.GET("/profiles", handler.handleListProfiles)
	api.POST("/profiles", handler.handleCreateProfile)
	api.GET("/profiles/:id", handler.handleGetProfile)
	api.PUT("/profiles/:id", handler.handleUpdateProfile)
	api.DELETE("/profiles/:id", handler.handleDeleteProfile)
	api.POST("/profiles/:id/match-rooms", handler.handleMatchRooms)

	api.GET("/chatrooms", handler.handleListRooms)
	api.POST("/chatrooms", handler.handleCreateRoom)
	api.GET("/chatrooms/:id", handler.handleRoomDetail)
	api.DELETE("/chatrooms/:id", handler.handleDeleteRoom)
	api.POST("/chatrooms/:id/read", handler.handleMarkRead)
	api.GET("/chatrooms/:id/messages", handler.handleListMessages)
	api.GET("/chatrooms/:id/messages/poll", handler.handlePollMessages)
	api.POST("/chatrooms/:id/messages", handler.handleSendMessage)
	api.POST("/chatrooms/:id/messages/read", handler.handleMarkMessagesRead)

	api.POST("/messages/:id/reactions", handler.handleAddReaction)
	api.DELETE("/messages/:id/reactions", handler.handleRemoveReaction)

	api.POST("/ai/guard", handler.handleGuard)
	api.POST("/ai/transform", handler.handleTransform)
	api.POST("/ai/suggest-reactions", handler.handleSuggestReactions)

	api.GET("/emoticons", handler.handleListEmoticons)

	return router, nil
}

type httpHandler struct {
	users          *users.Service
	profiles       *profiles.Service
	chat           *chat.Service
	ai             *ai.Client
	logger         *zap.Logger
	identityHeader string
}

// tagRequest assigns a request id, honoring one supplied by the caller.
func (h *httpHandler) tagRequest(c *gin.Context) {
	requestID := c.GetHeader(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	c.Writer.Header().Set(requestIDHeader, requestID)
	c.Next()
}

func (h *httpHandler) logRequest(c *gin.Context) {
	start := time.Now()
	c.Next()
	h.logger.Info("http request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("duration", time.Since(start)),
		zap.String("requestId", c.GetString(requestIDContextKey)))
}

// requireIdentity reads the trusted identity header, rejects requests
// without one, and threads the claim through the request context.
func (h *httpHandler) requireIdentity(c *gin.Context) {
	claim := identity.Normalize(c.GetHeader(h.identityHeader))
	if claim == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity header missing"})
		return
	}
	c.Set(identityContextKey, claim)
	c.Request = c.Request.WithContext(identity.NewContext(c.Request.Context(), claim))
	c.Next()
}

// currentUser resolves the request identity to an account, creating it on
// first sight.
func (h *httpHandler) currentUser(c *gin.Context) (*users.User, bool) {
	claim, err := identity.FromContext(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}
	user, err := h.users.FindOrCreate(c.Request.Context(), claim)
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	return user, true
}

// respondError maps service errors onto HTTP statuses.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrNotFound), errors.Is(err, profiles.ErrNotFound), errors.Is(err, users.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, chat.ErrInvalidArgument), errors.Is(err, profiles.ErrInvalidArgument), errors.Is(err, users.ErrInvalidHandle):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, identity.ErrNoIdentity):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	default:
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("requestId", c.GetString(requestIDContextKey)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
