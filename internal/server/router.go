package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/creatordesk/internal/auth"
	"github.com/MarcoPoloResearchLab/creatordesk/internal/calendar"
	"github.com/MarcoPoloResearchLab/creatordesk/internal/creators"
	"github.com/MarcoPoloResearchLab/creatordesk/internal/metrics"
	"github.com/MarcoPoloResearchLab/creatordesk/internal/users"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	usernameContextKey  = "creatordesk_username"
	requestIDContextKey = "creatordesk_request_id"
	requestIDHeader     = "X-Request-ID"
)

var (
	errMissingTokenManager   = errors.New("token manager dependency required")
	errMissingUserDirectory  = errors.New("user directory dependency required")
	errMissingCreatorService = errors.New("creator service dependency required")
	errMissingCalendar       = errors.New("calendar service dependency required")
	errInvalidAuthorization  = errors.New("authorization header missing or invalid")
)

// TokenManager issues bearer tokens at login and validates them on protected routes.
type TokenManager interface {
	IssueToken(ctx context.Context, identity auth.Identity) (string, int64, error)
	ValidateToken(token string) (auth.Identity, error)
}

// UserDirectory registers and authenticates accounts.
type UserDirectory interface {
	Register(ctx context.Context, registration users.Registration) (users.User, error)
	Authenticate(ctx context.Context, username, password string) (users.User, error)
}

// Dependencies wires the HTTP surface. Metrics is optional.
type Dependencies struct {
	TokenManager TokenManager
	Users        UserDirectory
	Creators     *creators.Service
	Calendar     *calendar.Service
	Metrics      *metrics.Recorder
	Logger       *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.Users == nil {
		return nil, errMissingUserDirectory
	}
	if deps.Creators == nil {
		return nil, errMissingCreatorService
	}
	if deps.Calendar == nil {
		return nil, errMissingCalendar
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	router.Use(corsMiddleware())

	handler := &httpHandler{
		tokens:   deps.TokenManager,
		users:    deps.Users,
		creators: deps.Creators,
		calendar: deps.Calendar,
		logger:   logger,
	}

	api := router.Group("/api")
	api.POST("/register", handler.handleRegister)
	api.POST("/login", handler.handleLogin)

	protected := api.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.GET("/creators", handler.handleListCreators)
	protected.POST("/creators", handler.handleCreateCreator)
	protected.DELETE("/creators", handler.handleDeleteAllCreators)
	protected.PUT("/creators/:id", handler.handleUpdateCreator)
	protected.DELETE("/creators/:id", handler.handleDeleteCreator)
	protected.GET("/calendar", handler.handleListCalendar)
	protected.POST("/calendar", handler.handleCreateCalendarEntry)
	protected.PUT("/calendar/:id", handler.handleUpdateCalendarEntry)
	protected.DELETE("/calendar/:id", handler.handleDeleteCalendarEntry)

	return router, nil
}

type httpHandler struct {
	tokens   TokenManager
	users    UserDirectory
	creators *creators.Service
	calendar *calendar.Service
	logger   *zap.Logger
}

func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Authorization", "Content-Type", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	})
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			if generated, err := uuid.NewV7(); err == nil {
				requestID = generated.String()
			}
		}
		c.Set(requestIDContextKey, requestID)
		c.Header(requestIDHeader, requestID)

		started := time.Now()
		c.Next()

		logger.Info("http request",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(started)),
		)
	}
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": errInvalidAuthorization.Error()})
		return
	}
	identity, err := h.tokens.ValidateToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Invalid token"})
		return
	}
	c.Set(usernameContextKey, identity.Username)
	c.Next()
}

func requesterOf(c *gin.Context) string {
	return c.GetString(usernameContextKey)
}
