package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/restguard/internal/domain"
	"go.uber.org/zap"
)

func newKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func signToken(t *testing.T, key *rsa.PrivateKey, claims domain.CustomClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	s, err := token.SignedString(key)
	require.NoError(t, err)
	return s
}

func claimsFor(userID string, caps map[string]bool) domain.CustomClaims {
	return domain.CustomClaims{
		UserID:       userID,
		Capabilities: caps,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "restguard-console",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestBaseValidator(t *testing.T) {
	key := newKey(t)
	v := NewBaseValidator(&key.PublicKey, "restguard-console")

	t.Run("valid token with bearer prefix", func(t *testing.T) {
		tok := signToken(t, key, claimsFor("7", map[string]bool{"list_users": true}))
		claims, err := v.VerifyToken("Bearer " + tok)
		require.NoError(t, err)
		assert.Equal(t, "7", claims.UserID)
		assert.True(t, claims.Capabilities["list_users"])
	})

	t.Run("foreign key", func(t *testing.T) {
		tok := signToken(t, newKey(t), claimsFor("7", nil))
		_, err := v.VerifyToken(tok)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		c := claimsFor("7", nil)
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		_, err := v.VerifyToken(signToken(t, key, c))
		assert.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		c := claimsFor("7", nil)
		c.Issuer = "someone-else"
		_, err := v.VerifyToken(signToken(t, key, c))
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.VerifyToken("Bearer not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("no user id", func(t *testing.T) {
		_, err := v.VerifyToken(signToken(t, key, claimsFor("", map[string]bool{"manage_options": true})))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestOptionalMiddleware(t *testing.T) {
	key := newKey(t)
	mw := NewOptionalMiddleware(NewBaseValidator(&key.PublicKey, ""), zap.NewNop())

	var got *domain.Identity
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = IdentityFromContext(r.Context())
	}))

	t.Run("no header is guest", func(t *testing.T) {
		got = &domain.Identity{}
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Nil(t, got)
	})

	t.Run("invalid token is guest", func(t *testing.T) {
		got = &domain.Identity{}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer broken")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Nil(t, got)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, key, claimsFor("3", map[string]bool{"read": true, "list_users": false})))
		h.ServeHTTP(httptest.NewRecorder(), req)
		require.NotNil(t, got)
		assert.Equal(t, "3", got.UserID)
		assert.True(t, got.Can("read"))
		assert.False(t, got.Can("list_users"))
	})
}

func TestRequiredMiddlewareAndCapability(t *testing.T) {
	key := newKey(t)
	chain := func(h http.Handler) http.Handler {
		return NewMiddleware(NewBaseValidator(&key.PublicKey, ""), zap.NewNop())(RequireCapability("manage_options")(h))
	}
	ok := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"invalid", "Bearer nope", http.StatusUnauthorized},
		{"no capability", "Bearer " + signToken(t, key, claimsFor("1", map[string]bool{"read": true})), http.StatusForbidden},
		{"admin", "Bearer " + signToken(t, key, claimsFor("1", map[string]bool{"manage_options": true})), http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/settings", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			ok.ServeHTTP(rr, req)
			assert.Equal(t, tc.want, rr.Code)
		})
	}
}

func TestNonceManager(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewNonceManager("secret")
	m.now = func() time.Time { return base }

	n := m.Create("1", "test_protection")

	assert.NoError(t, m.Verify(n, "1", "test_protection"))
	assert.ErrorIs(t, m.Verify(n, "2", "test_protection"), ErrInvalidNonce)
	assert.ErrorIs(t, m.Verify(n, "1", "other"), ErrInvalidNonce)
	assert.ErrorIs(t, m.Verify("", "1", "test_protection"), ErrInvalidNonce)

	t.Run("previous tick still valid", func(t *testing.T) {
		m.now = func() time.Time { return base.Add(NonceTick) }
		assert.NoError(t, m.Verify(n, "1", "test_protection"))
	})

	t.Run("two ticks later expired", func(t *testing.T) {
		m.now = func() time.Time { return base.Add(2 * NonceTick) }
		assert.ErrorIs(t, m.Verify(n, "1", "test_protection"), ErrInvalidNonce)
	})

	t.Run("different secret", func(t *testing.T) {
		other := NewNonceManager("other")
		other.now = func() time.Time { return base }
		assert.ErrorIs(t, other.Verify(n, "1", "test_protection"), ErrInvalidNonce)
	})
}
