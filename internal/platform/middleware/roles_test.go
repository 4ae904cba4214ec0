package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docgate/internal/platform/logger"
	"docgate/pkg/requestcontext"
)

func TestRoleCapabilities(t *testing.T) {
	assert.True(t, RoleManager.Can(CapManageRoster))
	assert.True(t, RoleManager.Can(CapReviewCases))
	assert.True(t, RoleHandler.Can(CapReviewCases))
	assert.False(t, RoleHandler.Can(CapManageRoster))
	assert.False(t, RoleHandler.Can(CapManageRules))
	assert.True(t, RoleRuleAdmin.Can(CapManageRules))
	assert.False(t, RoleRuleAdmin.Can(CapReviewCases))
	assert.True(t, RolePermissionAdmin.Can(CapManageRoster))
	assert.False(t, RolePermissionAdmin.Can(CapReviewCases))
}

func TestRequireCapability(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	gate := RequireCapability(CapManageRoster, logger.NewNop())(next)

	t.Run("allows manager", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/handlers", nil)
		ctx := requestcontext.WithActor(req.Context(), requestcontext.Actor{ID: "M001", Role: string(RoleManager)})
		w := httptest.NewRecorder()
		gate.ServeHTTP(w, req.WithContext(ctx))
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("denies handler", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/handlers", nil)
		ctx := requestcontext.WithActor(req.Context(), requestcontext.Actor{ID: "E001", Role: string(RoleHandler)})
		w := httptest.NewRecorder()
		gate.ServeHTTP(w, req.WithContext(ctx))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("denies anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/handlers", nil)
		w := httptest.NewRecorder()
		gate.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestTokenValidator(t *testing.T) {
	validator := NewTokenValidator("test-signing-key")

	sign := func(t *testing.T, claims Claims) string {
		t.Helper()
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString([]byte("test-signing-key"))
		require.NoError(t, err)
		return signed
	}

	t.Run("valid token yields actor", func(t *testing.T) {
		signed := sign(t, Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "E001",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			Name: "Chang Hsiao-Ming",
			Role: string(RoleHandler),
		})

		actor, err := validator.Validate(signed)
		require.NoError(t, err)
		assert.Equal(t, "E001", actor.ID)
		assert.Equal(t, "Chang Hsiao-Ming", actor.Name)
		assert.Equal(t, string(RoleHandler), actor.Role)
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		signed := sign(t, Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "E001"},
			Role:             "superuser",
		})
		_, err := validator.Validate(signed)
		require.Error(t, err)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		signed := sign(t, Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "E001",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
			Role: string(RoleHandler),
		})
		_, err := validator.Validate(signed)
		require.Error(t, err)
	})

	t.Run("rejects wrong signature", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "E001"},
			Role:             string(RoleHandler),
		})
		signed, err := token.SignedString([]byte("other-key"))
		require.NoError(t, err)
		_, err = validator.Validate(signed)
		require.Error(t, err)
	})
}
