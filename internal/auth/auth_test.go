package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/siahsang/inkwell/internal/cache"
	"github.com/siahsang/inkwell/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	BcryptCost = bcrypt.MinCost
}

func newAuth(t *testing.T) *Auth {
	t.Helper()
	a, err := New("test-secret", time.Hour, "session", false, cache.NewMemory())
	require.NoError(t, err)
	return a
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)

	ok, err := IsPasswordMatch(hash, "s3cret-pass")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = IsPasswordMatch(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	a := newAuth(t)
	user := &models.User{ID: "user-1", Email: "a@example.com", Name: "A", Role: models.RoleAdmin}

	token, claim, err := a.GenerateToken(user)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claim.Subject)
	assert.NotEmpty(t, claim.ID)

	t.Run("valid", func(t *testing.T) {
		got, err := a.Authenticate(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.Subject)
		assert.Equal(t, models.RoleAdmin, got.Role)
	})

	t.Run("tampered", func(t *testing.T) {
		_, err := a.Authenticate(ctx, token+"x")
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("other secret", func(t *testing.T) {
		other, err := New("other", time.Hour, "session", false, cache.NewMemory())
		require.NoError(t, err)
		_, err = other.Authenticate(ctx, token)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("expired", func(t *testing.T) {
		a.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { a.now = time.Now }()
		_, err := a.Authenticate(ctx, token)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("revoked", func(t *testing.T) {
		require.NoError(t, a.Revoke(ctx, claim))
		_, err := a.Authenticate(ctx, token)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})
}

func TestRejectsUnsignedTokens(t *testing.T) {
	a := newAuth(t)
	token := jwt.NewWithClaims(jwt.SigningMethodNone, &UserClaim{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "x", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = a.Authenticate(context.Background(), signed)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestTokenFromRequest(t *testing.T) {
	a := newAuth(t)
	tests := []struct {
		name   string
		header string
		cookie string
		want   string
	}{
		{"token scheme", "Token abc", "", "abc"},
		{"bearer scheme", "Bearer abc", "", "abc"},
		{"header wins over cookie", "Bearer abc", "def", "abc"},
		{"cookie", "", "def", "def"},
		{"unknown scheme", "Basic abc", "def", ""},
		{"nothing", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: "session", Value: tt.cookie})
			}
			assert.Equal(t, tt.want, a.TokenFromRequest(r))
		})
	}
}

func TestSessionCookie(t *testing.T) {
	a := newAuth(t)
	_, claim, err := a.GenerateToken(&models.User{ID: "u"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	a.SetSessionCookie(rec, "tok", claim)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, "tok", cookies[0].Value)

	rec = httptest.NewRecorder()
	a.ClearSessionCookie(rec)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestContextUser(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, IsUserAuthenticated(r))
	assert.Nil(t, CurrentUser(r))

	user := &models.User{ID: "u"}
	r = SetAuthenticatedUser(r, user, &UserClaim{})
	got, err := GetAuthenticatedUser(r)
	require.NoError(t, err)
	assert.Same(t, user, got)
	assert.NotNil(t, CurrentClaim(r))
}
