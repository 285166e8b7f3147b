package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/auth"
	"github.com/siahsang/inkwell/internal/core"
	"github.com/siahsang/inkwell/internal/ratelimit"
	"github.com/siahsang/inkwell/models"
	"golang.org/x/time/rate"
)

// authenticate resolves the session cookie or Authorization header to a
// user. A bad header is rejected; a stale cookie is dropped and the request
// continues anonymously.
func (app *application) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Authorization")
		w.Header().Add("Vary", "Cookie")

		token := app.auth.TokenFromRequest(r)
		if token == "" {
			if r.Header.Get("Authorization") != "" {
				app.invalidAuthenticationTokenResponse(w, r, xerrors.New("Authorization header must be in the format 'Token <token>'"))
				return
			}
			next.ServeHTTP(w, r)
			return
		}
		fromHeader := r.Header.Get("Authorization") != ""

		claim, err := app.auth.Authenticate(r.Context(), token)
		if err == nil {
			var user *models.User
			user, err = app.core.User(r.Context(), claim.Subject)
			if err == nil {
				next.ServeHTTP(w, auth.SetAuthenticatedUser(r, user, claim))
				return
			}
		}

		if !errors.Is(err, auth.ErrInvalidToken) && !errors.Is(err, core.ErrNotFound) {
			app.internalErrorResponse(w, r, err)
			return
		}
		if fromHeader {
			app.invalidAuthenticationTokenResponse(w, r, err)
			return
		}
		app.auth.ClearSessionCookie(w)
		next.ServeHTTP(w, r)
	})
}

func (app *application) requireAuthenticatedUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsUserAuthenticated(r) {
			app.authenticationRequiredResponse(w, r, xerrors.Newf("authentication required"))
			return
		}
		next(w, r)
	}
}

// requirePageUser sends anonymous visitors to the login form.
func (app *application) requirePageUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsUserAuthenticated(r) {
			app.pageErrorResponse(w, r, xerrors.New(core.ErrUnauthorized))
			return
		}
		next(w, r)
	}
}

func (app *application) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return app.requireAuthenticatedUser(func(w http.ResponseWriter, r *http.Request) {
		if !auth.CurrentUser(r).IsAdmin() {
			app.forbiddenResponse(w, r, xerrors.New(core.ErrForbidden))
			return
		}
		next(w, r)
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.internalErrorResponse(w, r, xerrors.New(fmt.Sprintf("panic: %v", err)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// rateLimit fails open when the limiter backend is unavailable. The warning
// is logged at most once a minute while the backend stays down.
func (app *application) rateLimit(next http.Handler) http.Handler {
	warn := &rate.Sometimes{First: 1, Interval: time.Minute}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, err := app.limiter.Allow(r.Context(), ratelimit.ClientIP(r))
		if err != nil {
			warn.Do(func() {
				app.logger.Warn("rate limiter unavailable", slog.String("error", err.Error()))
			})
			allowed = true
		}
		if !allowed {
			w.Header().Set("Retry-After", "60")
			app.rateLimitExceededResponse(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (app *application) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "origin-when-cross-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; img-src 'self' data: https:; style-src 'self'; script-src 'self'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

func (app *application) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		app.logger.LogAttrs(r.Context(), slog.LevelDebug, "request",
			slog.String("method", r.Method),
			slog.String("uri", r.URL.RequestURI()),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
			slog.String("client_ip", ratelimit.ClientIP(r)),
		)
	})
}
