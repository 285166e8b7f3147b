package main

import (
	"net/http"
	"strings"

	"github.com/siahsang/inkwell/internal/auth"
	"github.com/siahsang/inkwell/internal/core"
	"github.com/siahsang/inkwell/internal/validator"
	"github.com/siahsang/inkwell/models"
)

func (app *application) registerUserHandler(w http.ResponseWriter, r *http.Request) {
	var in core.RegisterInput
	if !app.decodeOrReject(w, r, &in) {
		return
	}

	user, err := app.core.Register(r.Context(), in)
	if err != nil {
		app.coreErrorResponse(w, r, err)
		return
	}

	token, err := app.startSession(w, user)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}
	if err := app.writeJSON(w, http.StatusCreated, userResponse(user, token), nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) loginHandler(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !app.decodeOrReject(w, r, &payload) {
		return
	}

	v := validator.New()
	v.CheckNotBlank(payload.Email, "email", "must be provided")
	v.CheckNotBlank(payload.Password, "password", "must be provided")
	if !v.IsValid() {
		app.badRequestResponse(w, r, &AppError{ErrorDetails: v.Errors})
		return
	}

	user, err := app.core.Login(r.Context(), strings.TrimSpace(payload.Email), payload.Password)
	if err != nil {
		app.coreErrorResponse(w, r, err)
		return
	}

	token, err := app.startSession(w, user)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}
	if err := app.writeJSON(w, http.StatusOK, userResponse(user, token), nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) logoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.endSession(w, r); err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}
	if err := app.writeJSON(w, http.StatusOK, envelope{"success": true}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) showProfileHandler(w http.ResponseWriter, r *http.Request) {
	profile, err := app.core.Profile(r.Context(), auth.CurrentUser(r))
	if err != nil {
		app.coreErrorResponse(w, r, err)
		return
	}
	if err := app.writeJSON(w, http.StatusOK, envelope{"profile": profile}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var in core.ProfileInput
	if !app.decodeOrReject(w, r, &in) {
		return
	}

	profile, err := app.core.UpdateProfile(r.Context(), auth.CurrentUser(r), in)
	if err != nil {
		app.coreErrorResponse(w, r, err)
		return
	}
	if err := app.writeJSON(w, http.StatusOK, envelope{"profile": profile}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

// startSession issues a token for user and stores it in the session cookie.
func (app *application) startSession(w http.ResponseWriter, user *models.User) (string, error) {
	token, claim, err := app.auth.GenerateToken(user)
	if err != nil {
		return "", err
	}
	app.auth.SetSessionCookie(w, token, claim)
	return token, nil
}

// endSession revokes the current token, if any, and clears the cookie.
func (app *application) endSession(w http.ResponseWriter, r *http.Request) error {
	if claim := auth.CurrentClaim(r); claim != nil {
		if err := app.auth.Revoke(r.Context(), claim); err != nil {
			return err
		}
		app.logger.Info("user logged out", "user_id", claim.Subject)
	}
	app.auth.ClearSessionCookie(w)
	return nil
}

func userResponse(user *models.User, token string) envelope {
	return envelope{"user": user, "token": token}
}
