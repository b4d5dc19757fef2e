package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"food-marketplace-api/apperr"
	"food-marketplace-api/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticResolver map[string]models.Actor

func (s staticResolver) Resolve(_ context.Context, id string) (models.Actor, error) {
	a, ok := s[id]
	if !ok {
		return models.Actor{}, apperr.NotFound("User")
	}
	return a, nil
}

func newRouter(tokens *TokenIssuer, users ActorResolver, guards ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{AuthRequired(tokens, users)}, guards...)
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetActor(c).ID, "role": GetActor(c).Role})
	})
	r.GET("/me", handlers...)
	return r
}

func get(r http.Handler, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenIssuer("secret", time.Hour)
	user := &models.User{ID: "u-1", Email: "ann@example.com", Role: models.RoleMerchant}

	token, err := tokens.GenerateToken(user)
	require.NoError(t, err)

	claims, err := tokens.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, models.RoleMerchant, claims.Role)
}

func TestParseTokenRejects(t *testing.T) {
	user := &models.User{ID: "u-1", Role: models.RoleCustomer}

	expired, err := NewTokenIssuer("secret", -time.Minute).GenerateToken(user)
	require.NoError(t, err)
	_, err = NewTokenIssuer("secret", time.Hour).ParseToken(expired)
	assert.Error(t, err)

	foreign, err := NewTokenIssuer("other", time.Hour).GenerateToken(user)
	require.NoError(t, err)
	_, err = NewTokenIssuer("secret", time.Hour).ParseToken(foreign)
	assert.Error(t, err)

	_, err = NewTokenIssuer("secret", time.Hour).ParseToken("not-a-token")
	assert.Error(t, err)
}

func TestAuthRequired(t *testing.T) {
	tokens := NewTokenIssuer("secret", time.Hour)
	users := staticResolver{
		"active":   {ID: "active", Role: models.RoleCustomer, IsActive: true},
		"inactive": {ID: "inactive", Role: models.RoleCustomer},
	}
	r := newRouter(tokens, users)

	token := func(id string) string {
		s, err := tokens.GenerateToken(&models.User{ID: id, Role: models.RoleAdmin})
		require.NoError(t, err)
		return s
	}

	t.Run("missing header", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "").Code)
	})
	t.Run("bad token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "garbage").Code)
	})
	t.Run("unknown user", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(r, "/me", token("gone")).Code)
	})
	t.Run("deactivated user", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, get(r, "/me", token("inactive")).Code)
	})
	t.Run("role comes from the store", func(t *testing.T) {
		w := get(r, "/me", token("active"))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":"active","role":"customer"}`, w.Body.String())
	})
	t.Run("query token", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, get(r, "/me?access_token="+token("active"), "").Code)
	})
}

func TestRoleRequired(t *testing.T) {
	tokens := NewTokenIssuer("secret", time.Hour)
	users := staticResolver{
		"c": {ID: "c", Role: models.RoleCustomer, IsActive: true},
		"m": {ID: "m", Role: models.RoleMerchant, IsActive: true},
	}
	r := newRouter(tokens, users, RoleRequired(models.RoleMerchant, models.RoleAdmin))

	customer, err := tokens.GenerateToken(&models.User{ID: "c"})
	require.NoError(t, err)
	merchant, err := tokens.GenerateToken(&models.User{ID: "m"})
	require.NoError(t, err)

	w := get(r, "/me", customer)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "merchant, admin")

	assert.Equal(t, http.StatusOK, get(r, "/me", merchant).Code)
}
