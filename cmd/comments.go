package main

import (
	"net/http"

	"github.com/siahsang/inkwell/internal/auth"
	"github.com/siahsang/inkwell/internal/core"
)

func (app *application) listCommentsHandler(w http.ResponseWriter, r *http.Request) {
	comments, err := app.core.ListComments(r.Context(), auth.CurrentUser(r), app.readParam(r, "id"))
	if err != nil {
		app.coreErrorResponse(w, r, err)
		return
	}
	if err := app.writeJSON(w, http.StatusOK, envelope{"comments": comments}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) createCommentHandler(w http.ResponseWriter, r *http.Request) {
	var in core.CommentInput
	if !app.decodeOrReject(w, r, &in) {
		return
	}

	comment, err := app.core.CreateComment(r.Context(), auth.CurrentUser(r), app.readParam(r, "id"), in)
	if err != nil {
		app.coreErrorResponse(w, r, err)
		return
	}

	message := "Comment posted."
	if !comment.Approved {
		message = "Comment submitted and awaiting moderation."
	}
	if err := app.writeJSON(w, http.StatusCreated, envelope{"comment": comment, "message": message}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) moderateCommentHandler(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Approved *bool `json:"approved"`
	}
	if !app.decodeOrReject(w, r, &payload) {
		return
	}
	if payload.Approved == nil {
		app.badRequestResponse(w, r, &AppError{ErrorDetails: map[string]string{"approved": "must be provided"}})
		return
	}

	comment, err := app.core.ModerateComment(r.Context(), auth.CurrentUser(r), app.readParam(r, "id"), *payload.Approved)
	if err != nil {
		app.coreErrorResponse(w, r, err)
		return
	}
	if err := app.writeJSON(w, http.StatusOK, envelope{"comment": comment}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) deleteCommentHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.core.DeleteComment(r.Context(), auth.CurrentUser(r), app.readParam(r, "id")); err != nil {
		app.coreErrorResponse(w, r, err)
		return
	}
	if err := app.writeJSON(w, http.StatusOK, envelope{"success": true}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}
