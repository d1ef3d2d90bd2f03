package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"github.com/cometlabs/comet-router/internal/domain"
)

const testJWTSecret = "test-secret"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func signToken(t *testing.T, userID string, tier int) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"tier":    tier,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func authProbe(secret string) (*gin.Engine, *struct {
	identity string
	tier     domain.Tier
}) {
	captured := &struct {
		identity string
		tier     domain.Tier
	}{}

	engine := gin.New()
	engine.Use(JWTAuthMiddleware(secret))
	engine.GET("/probe", func(c *gin.Context) {
		captured.identity = authIdentity(c, "body-user")
		captured.tier = authTier(c, domain.TierFree)
		c.Status(http.StatusOK)
	})
	return engine, captured
}

func TestJWTAuthMiddleware_ValidToken(t *testing.T) {
	engine, captured := authProbe(testJWTSecret)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "jwt-user", 3))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if captured.identity != "jwt-user" {
		t.Errorf("identity = %q, want jwt-user (claims override body)", captured.identity)
	}
	if captured.tier != domain.TierPremium {
		t.Errorf("tier = %d, want premium (claims override body)", captured.tier)
	}
}

func TestJWTAuthMiddleware_MissingToken(t *testing.T) {
	engine, _ := authProbe(testJWTSecret)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestJWTAuthMiddleware_BadSignature(t *testing.T) {
	engine, _ := authProbe(testJWTSecret)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "x"})
	signed, _ := token.SignedString([]byte("wrong-secret"))

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestJWTAuthMiddleware_DisabledWithoutSecret(t *testing.T) {
	engine, captured := authProbe("")

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with auth disabled", w.Code)
	}
	if captured.identity != "body-user" {
		t.Errorf("identity = %q, want body fallback", captured.identity)
	}
	if captured.tier != domain.TierFree {
		t.Errorf("tier = %d, want body fallback", captured.tier)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestIDMiddleware())
	engine.GET("/probe", func(c *gin.Context) { c.Status(http.StatusOK) })

	// Generated when absent.
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not set")
	}

	// Echoed when supplied.
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("X-Request-ID", "caller-id")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "caller-id" {
		t.Errorf("X-Request-ID = %q, want caller-id", got)
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	engine := gin.New()
	engine.Use(CORSMiddleware())
	engine.POST("/model/route", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/model/route", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing Access-Control-Allow-Origin header")
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := discardLogger()
	engine := gin.New()
	engine.Use(RecoveryMiddleware(logger))
	engine.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
