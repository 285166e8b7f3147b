package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/cache"
	"github.com/siahsang/inkwell/internal/web"
	"github.com/siahsang/inkwell/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	UserCtxKey  web.ContextKey = "user_data"
	ClaimCtxKey web.ContextKey = "token_claim"
)

var (
	NotAuthenticatedUser = xerrors.Message("Not authenticated user")
	ErrInvalidToken      = xerrors.Message("invalid or expired token")
)

// BcryptCost is lowered by tests.
var BcryptCost = 12

type Auth struct {
	secret       []byte
	ttl          time.Duration
	cookieName   string
	secureCookie bool
	revoked      cache.Cache
	now          func() time.Time
}

func New(secret string, ttl time.Duration, cookieName string, secureCookie bool, revoked cache.Cache) (*Auth, error) {
	if secret == "" {
		return nil, xerrors.New("jwt secret must not be empty")
	}
	return &Auth{
		secret:       []byte(secret),
		ttl:          ttl,
		cookieName:   cookieName,
		secureCookie: secureCookie,
		revoked:      revoked,
		now:          time.Now,
	}, nil
}

func HashPassword(plainTextPassword string) ([]byte, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), BcryptCost)
	if err != nil {
		return nil, xerrors.New(err)
	}
	return hashedPassword, nil
}

func IsPasswordMatch(hashedPassword []byte, plainTextPassword string) (bool, error) {
	err := bcrypt.CompareHashAndPassword(hashedPassword, []byte(plainTextPassword))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, xerrors.New(err)
	}

	return true, nil
}

// GenerateToken signs an HS256 token for user valid for the configured ttl.
func (auth *Auth) GenerateToken(user *models.User) (string, *UserClaim, error) {
	now := auth.now()
	claim := &UserClaim{
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(auth.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claim)
	signedString, err := token.SignedString(auth.secret)
	if err != nil {
		return "", nil, xerrors.New(err)
	}
	return signedString, claim, nil
}

// Authenticate verifies the signature, expiry and revocation state of tokenString.
func (auth *Auth) Authenticate(ctx context.Context, tokenString string) (*UserClaim, error) {
	parsedToken, err := jwt.ParseWithClaims(tokenString, &UserClaim{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, xerrors.New("unexpected signing method")
		}
		return auth.secret, nil
	}, jwt.WithTimeFunc(auth.now), jwt.WithExpirationRequired())

	if err != nil {
		return nil, xerrors.Newf("%w: %v", ErrInvalidToken, err)
	}

	claim, ok := parsedToken.Claims.(*UserClaim)
	if !ok || !parsedToken.Valid || claim.Subject == "" {
		return nil, xerrors.New(ErrInvalidToken)
	}

	revoked, err := auth.revoked.Exists(ctx, revokedKey(claim.ID))
	if err != nil {
		return nil, xerrors.New(err)
	}
	if revoked {
		return nil, xerrors.New(ErrInvalidToken)
	}
	return claim, nil
}

// Revoke rejects the token from now until it would have expired anyway.
func (auth *Auth) Revoke(ctx context.Context, claim *UserClaim) error {
	ttl := time.Minute
	if claim.ExpiresAt != nil {
		ttl = claim.ExpiresAt.Sub(auth.now())
	}
	if ttl <= 0 {
		return nil
	}
	if err := auth.revoked.Set(ctx, revokedKey(claim.ID), "1", ttl); err != nil {
		return xerrors.New(err)
	}
	return nil
}

func revokedKey(jti string) string {
	return "auth:revoked:" + jti
}

// TokenFromRequest reads "Authorization: Token|Bearer <jwt>" and falls back
// to the session cookie.
func (auth *Auth) TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && (strings.EqualFold(scheme, "Token") || strings.EqualFold(scheme, "Bearer")) {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie(auth.cookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func (auth *Auth) SetSessionCookie(w http.ResponseWriter, token string, claim *UserClaim) {
	cookie := &http.Cookie{
		Name:     auth.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   auth.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	if claim.ExpiresAt != nil {
		cookie.Expires = claim.ExpiresAt.Time
	}
	http.SetCookie(w, cookie)
}

func (auth *Auth) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   auth.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func GetAuthenticatedUser(r *http.Request) (*models.User, error) {
	user, ok := web.GetValueFromContext[*models.User](r, UserCtxKey)
	if !ok || user == nil {
		return nil, xerrors.New(NotAuthenticatedUser)
	}

	return user, nil
}

// CurrentUser is nil for anonymous requests.
func CurrentUser(r *http.Request) *models.User {
	user, _ := web.GetValueFromContext[*models.User](r, UserCtxKey)
	return user
}

func CurrentClaim(r *http.Request) *UserClaim {
	claim, _ := web.GetValueFromContext[*UserClaim](r, ClaimCtxKey)
	return claim
}

func SetAuthenticatedUser(r *http.Request, user *models.User, claim *UserClaim) *http.Request {
	r = web.AddValueToContext(r, UserCtxKey, user)
	return web.AddValueToContext(r, ClaimCtxKey, claim)
}

func IsUserAuthenticated(r *http.Request) bool {
	_, err := GetAuthenticatedUser(r)
	return err == nil
}
