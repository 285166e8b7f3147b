package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"path"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/auth"
	"github.com/siahsang/inkwell/internal/core"
	"github.com/siahsang/inkwell/internal/web"
)

type AppError struct {
	ErrorStack   error
	ErrorMessage string
	ErrorDetails map[string]string
}

func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, appError *AppError) {
	if appError.ErrorMessage == "" {
		appError.ErrorMessage = "Validation failed"
	}
	app.errorResponse(w, r, http.StatusBadRequest, appError)
}

func (app *application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, &AppError{
		ErrorMessage: "The requested resource could not be found.",
	})
}

func (app *application) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusMethodNotAllowed, &AppError{
		ErrorMessage: "The " + r.Method + " method is not supported for this resource.",
	})
}

func (app *application) authenticationRequiredResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusUnauthorized, &AppError{
		ErrorStack:   err,
		ErrorMessage: core.ErrUnauthorized.Error(),
	})
}

func (app *application) invalidAuthenticationTokenResponse(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("WWW-Authenticate", "Token")
	app.errorResponse(w, r, http.StatusUnauthorized, &AppError{
		ErrorStack:   err,
		ErrorMessage: "Invalid or expired authentication token",
	})
}

func (app *application) forbiddenResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusForbidden, &AppError{
		ErrorStack:   err,
		ErrorMessage: core.ErrForbidden.Error(),
	})
}

func (app *application) conflictResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusConflict, &AppError{
		ErrorStack:   err,
		ErrorMessage: "The resource was modified concurrently, please try again",
	})
}

func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusTooManyRequests, &AppError{
		ErrorMessage: "Too many requests. Please try again later.",
	})
}

func (app *application) internalErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	message := "An internal server error occurred."
	if !app.config.IsProduction() && err != nil {
		message = err.Error()
	}
	app.errorResponse(w, r, http.StatusInternalServerError, &AppError{
		ErrorStack:   err,
		ErrorMessage: message,
	})
}

// coreErrorResponse maps an error returned by core to its API status.
func (app *application) coreErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *core.ValidationError
	switch {
	case errors.As(err, &validationErr):
		app.badRequestResponse(w, r, &AppError{ErrorStack: err, ErrorDetails: validationErr.Errors})
	case errors.Is(err, core.ErrInvalidCredentials):
		app.errorResponse(w, r, http.StatusUnauthorized, &AppError{ErrorStack: err, ErrorMessage: core.ErrInvalidCredentials.Error()})
	case errors.Is(err, core.ErrUnauthorized):
		app.authenticationRequiredResponse(w, r, err)
	case errors.Is(err, core.ErrForbidden):
		app.forbiddenResponse(w, r, err)
	case errors.Is(err, core.ErrNotFound):
		app.notFoundResponse(w, r)
	case errors.Is(err, core.ErrDuplicate):
		app.conflictResponse(w, r, err)
	default:
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) errorResponse(w http.ResponseWriter, r *http.Request, status int, appError *AppError) {
	body := envelope{"error": appError.ErrorMessage}
	if len(appError.ErrorDetails) > 0 {
		body["details"] = appError.ErrorDetails
	}

	var attrs []slog.Attr
	attrs = append(attrs, slog.Int("status", status))
	attrs = append(attrs, slog.String("request_url", r.URL.String()))
	attrs = append(attrs, slog.String("request_method", r.Method))
	if appError.ErrorStack != nil {
		attrs = append(attrs, slog.String("stack", xerrors.Sprint(appError.ErrorStack)))
	}

	for key, valueData := range appError.ErrorDetails {
		attrs = append(attrs, slog.Any(key, valueData))
	}

	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	app.logger.LogAttrs(r.Context(), level, "error handling request", attrs...)

	if err := app.writeJSON(w, status, body, nil); err != nil {
		app.logger.Error(err.Error())
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (app *application) writeJSON(w http.ResponseWriter, status int, data envelope, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}

	// Append a newline to make it easier to view in terminal applications.
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(js); err != nil {
		app.logger.Error(err.Error())
		return err
	}

	return nil
}

// pageErrorResponse is the HTML counterpart of coreErrorResponse.
// Anonymous visitors hitting a members-only page are sent to the login form.
func (app *application) pageErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrUnauthorized):
		next := r.URL.RequestURI()
		if r.Method != http.MethodGet {
			next = path.Dir(r.URL.Path)
		}
		http.Redirect(w, r, "/login?next="+url.QueryEscape(next), http.StatusSeeOther)
	case errors.Is(err, core.ErrForbidden):
		app.errorPage(w, r, http.StatusForbidden, err)
	case errors.Is(err, core.ErrNotFound):
		app.errorPage(w, r, http.StatusNotFound, nil)
	case errors.Is(err, core.ErrInvalidInput):
		app.errorPage(w, r, http.StatusBadRequest, err)
	default:
		app.errorPage(w, r, http.StatusInternalServerError, err)
	}
}

func (app *application) pageNotFound(w http.ResponseWriter, r *http.Request) {
	app.errorPage(w, r, http.StatusNotFound, nil)
}

func (app *application) errorPage(w http.ResponseWriter, r *http.Request, status int, err error) {
	if err != nil {
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		app.logger.LogAttrs(r.Context(), level, "error rendering page",
			slog.Int("status", status),
			slog.String("request_url", r.URL.String()),
			slog.String("stack", xerrors.Sprint(err)),
		)
	}

	data := app.pageData(r, http.StatusText(status))
	data.StatusCode = status
	data.Heading = http.StatusText(status)
	if err := app.renderer.Render(w, status, "error", data); err != nil {
		app.logger.Error("render error page", slog.String("error", err.Error()))
		http.Error(w, http.StatusText(status), status)
	}
}

func (app *application) pageData(r *http.Request, title string) *web.PageData {
	return &web.PageData{
		Site:        app.core.Site(),
		Title:       title,
		Path:        r.URL.Path,
		RawQuery:    r.URL.RawQuery,
		CurrentUser: auth.CurrentUser(r),
		Flash:       flashMessages[r.URL.Query().Get("flash")],
	}
}
