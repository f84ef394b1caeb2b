package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"slotbook/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestOwnerOnly_AllowsOwner(t *testing.T) {
	jwtService := jwt.New("test-secret-123", time.Hour)
	token, _ := jwtService.GenerateToken(1, "acme", "owner")

	router := gin.New()
	router.Use(JWTAuth(jwtService), OwnerOnly())
	router.DELETE("/destructive", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("DELETE", "/destructive", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOwnerOnly_ForbidsOtherRoles(t *testing.T) {
	jwtService := jwt.New("test-secret-123", time.Hour)
	token, _ := jwtService.GenerateToken(2, "acme", "staff")

	router := gin.New()
	router.Use(JWTAuth(jwtService), OwnerOnly())
	router.DELETE("/destructive", func(c *gin.Context) {
		t.Fatal("handler should not be reached")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("DELETE", "/destructive", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "FORBIDDEN")
}

func TestRequireRole_MissingRoleIsUnauthorized(t *testing.T) {
	router := gin.New()
	router.Use(RequireRole("owner"))
	router.GET("/destructive", func(c *gin.Context) {
		t.Fatal("handler should not be reached")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/destructive", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
