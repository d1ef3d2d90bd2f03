// Package handler provides the HTTP surface of the routing engine.
package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/cometlabs/comet-router/internal/domain"
)

// Context keys set by the middleware chain.
const (
	ctxRequestID = "request_id"
	ctxAuthUser  = "auth_user_id"
	ctxAuthTier  = "auth_tier"
)

// CORSMiddleware enables permissive CORS so web clients can call the API
// directly.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestIDMiddleware tags every request with a uuid, echoed in the
// X-Request-ID response header.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(ctxRequestID, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// LoggingMiddleware logs one line per completed request. The logger is
// expected to sit behind the redacting handler, so attribute values are safe
// even if a credential slips into a URL.
func LoggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		requestID, _ := c.Get(ctxRequestID)
		id, _ := requestID.(string)

		logger.Info("request completed",
			slog.String("request_id", id),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		)
	}
}

// RecoveryMiddleware converts handler panics into a 500 envelope.
func RecoveryMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					slog.Any("error", err),
					slog.String("path", c.Request.URL.Path),
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error": gin.H{
						"kind":    "configuration_error",
						"message": "internal server error",
					},
				})
			}
		}()

		c.Next()
	}
}

// authClaims are the JWT claims the platform issues: identity plus tier.
type authClaims struct {
	UserID string `json:"user_id"`
	Tier   int    `json:"tier"`
	jwt.RegisteredClaims
}

// JWTAuthMiddleware verifies an HS256 bearer token when a secret is
// configured. Valid claims are stashed in the context and take precedence
// over body-supplied identity and tier. An empty secret disables auth.
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"kind":    "unauthorized",
					"message": "missing bearer token",
				},
			})
			return
		}

		claims := &authClaims{}
		token, err := jwt.ParseWithClaims(strings.TrimPrefix(auth, "Bearer "), claims,
			func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"kind":    "unauthorized",
					"message": "invalid token",
				},
			})
			return
		}

		if claims.UserID != "" {
			c.Set(ctxAuthUser, claims.UserID)
		}
		if domain.Tier(claims.Tier).IsValid() {
			c.Set(ctxAuthTier, domain.Tier(claims.Tier))
		}
		c.Next()
	}
}

// authIdentity returns the JWT identity when present, the fallback otherwise.
func authIdentity(c *gin.Context, fallback string) string {
	if v, ok := c.Get(ctxAuthUser); ok {
		if id, ok := v.(string); ok && id != "" {
			return id
		}
	}
	return fallback
}

// authTier returns the JWT tier when present, the fallback otherwise.
func authTier(c *gin.Context, fallback domain.Tier) domain.Tier {
	if v, ok := c.Get(ctxAuthTier); ok {
		if t, ok := v.(domain.Tier); ok {
			return t
		}
	}
	return fallback
}
