package main

import (
	"net/http"

	"github.com/siahsang/inkwell/internal/auth"
	"github.com/siahsang/inkwell/internal/validator"
)

func (app *application) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := app.core.Stats(r.Context(), auth.CurrentUser(r))
	if err != nil {
		app.coreErrorResponse(w, r, err)
		return
	}
	if err := app.writeJSON(w, http.StatusOK, envelope{"stats": stats}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) adminCommentsHandler(w http.ResponseWriter, r *http.Request) {
	v := validator.New()
	query := r.URL.Query()
	status := app.readString(query, "status", "")
	f := app.readFilter(query, v)
	v.Check(validator.PermittedValue(status, "", "pending", "approved"), "status", "must be pending or approved")
	if !v.IsValid() {
		app.badRequestResponse(w, r, &AppError{ErrorDetails: v.Errors})
		return
	}

	page, err := app.core.AdminComments(r.Context(), auth.CurrentUser(r), status, f)
	if err != nil {
		app.coreErrorResponse(w, r, err)
		return
	}
	if err := app.writeJSON(w, http.StatusOK, envelope{"comments": page.Comments, "pagination": page.Pagination}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}
