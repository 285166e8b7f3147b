package main

import (
	"context"
	"net/http"

	"github.com/siahsang/inkwell/internal/auth"
	"github.com/siahsang/inkwell/internal/core"
	"github.com/siahsang/inkwell/internal/validator"
)

func (app *application) listPostsHandler(w http.ResponseWriter, r *http.Request) {
	v := validator.New()
	query := r.URL.Query()

	pf := core.PostFilter{
		Category: app.readString(query, "category", ""),
		Tag:      app.readString(query, "tag", ""),
		AuthorID: app.readString(query, "author", ""),
		Featured: app.readBool(query, "featured", v),
		Search:   app.readString(query, "search", ""),
		Filter:   app.readFilter(query, v),
	}
	if !v.IsValid() {
		app.badRequestResponse(w, r, &AppError{ErrorDetails: v.Errors})
		return
	}

	page, err := app.core.ListPosts(r.Context(), pf)
	if err != nil {
		app.coreErrorResponse(w, r, err)
		return
	}
	if err := app.writeJSON(w, http.StatusOK, envelope{"posts": page.Posts, "pagination": page.Pagination}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) createPostHandler(w http.ResponseWriter, r *http.Request) {
	var in core.PostInput
	if !app.decodeOrReject(w, r, &in) {
		return
	}

	post, err := app.core.CreatePost(r.Context(), auth.CurrentUser(r), in)
	if err != nil {
		app.coreErrorResponse(w, r, err)
		return
	}
	app.warmFeeds()

	headers := make(http.Header)
	headers.Set("Location", "/api/posts/"+post.ID)
	if err := app.writeJSON(w, http.StatusCreated, envelope{"post": post}, headers); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) showPostHandler(w http.ResponseWriter, r *http.Request) {
	post, err := app.core.GetPost(r.Context(), auth.CurrentUser(r), app.readParam(r, "id"))
	if err != nil {
		app.coreErrorResponse(w, r, err)
		return
	}
	if err := app.writeJSON(w, http.StatusOK, envelope{"post": post}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) updatePostHandler(w http.ResponseWriter, r *http.Request) {
	var in core.PostInput
	if !app.decodeOrReject(w, r, &in) {
		return
	}

	post, err := app.core.UpdatePost(r.Context(), auth.CurrentUser(r), app.readParam(r, "id"), in)
	if err != nil {
		app.coreErrorResponse(w, r, err)
		return
	}
	app.warmFeeds()

	if err := app.writeJSON(w, http.StatusOK, envelope{"post": post}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) deletePostHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.core.DeletePost(r.Context(), auth.CurrentUser(r), app.readParam(r, "id")); err != nil {
		app.coreErrorResponse(w, r, err)
		return
	}
	app.warmFeeds()

	if err := app.writeJSON(w, http.StatusOK, envelope{"success": true}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) ratePostHandler(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Rating int `json:"rating"`
	}
	if !app.decodeOrReject(w, r, &payload) {
		return
	}

	rating, created, err := app.core.RatePost(r.Context(), auth.CurrentUser(r), app.readParam(r, "id"), payload.Rating)
	if err != nil {
		app.coreErrorResponse(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	if err := app.writeJSON(w, status, envelope{"rating": rating}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

// warmFeeds rebuilds the cached feeds after a post write so the next
// reader does not pay for it.
func (app *application) warmFeeds() {
	app.doInBackground(func() {
		ctx, cancel := context.WithTimeout(context.Background(), app.config.Server.WriteTimeout)
		defer cancel()
		if _, err := app.core.RSS(ctx); err != nil {
			app.logger.Warn("warm rss feed", "error", err.Error())
		}
		if _, err := app.core.Sitemap(ctx); err != nil {
			app.logger.Warn("warm sitemap", "error", err.Error())
		}
	})
}
