package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func authRouter(role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	grp := r.Group("/", Auth(testSecret))
	if role != "" {
		grp.Use(RequireRole(role))
	}
	grp.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"actor": c.GetString(ActorIDKey),
			"role":  c.GetString(ActorRoleKey),
		})
	})
	return r
}

func doGet(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMissingToken(t *testing.T) {
	if w := doGet(authRouter(""), ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAuthValidToken(t *testing.T) {
	token := signToken(t, testSecret, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Name: "User One",
		Role: "manager",
	})
	w := doGet(authRouter(""), token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	token := signToken(t, "other-secret", Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
	})
	if w := doGet(authRouter(""), token); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong secret, got %d", w.Code)
	}
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	token := signToken(t, testSecret, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	if w := doGet(authRouter(""), token); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", w.Code)
	}
}

func TestAuthRejectsMissingSubject(t *testing.T) {
	token := signToken(t, testSecret, Claims{Role: "manager"})
	if w := doGet(authRouter(""), token); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a subject claim, got %d", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	manager := signToken(t, testSecret, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "m1"},
		Role:             "manager",
	})
	technician := signToken(t, testSecret, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "t1"},
		Role:             "technician",
	})

	r := authRouter("manager")
	if w := doGet(r, manager); w.Code != http.StatusOK {
		t.Fatalf("manager should pass the role gate, got %d", w.Code)
	}
	if w := doGet(r, technician); w.Code != http.StatusForbidden {
		t.Fatalf("technician should be rejected, got %d", w.Code)
	}
}
