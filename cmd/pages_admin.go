package main

import (
	"net/http"

	"github.com/siahsang/inkwell/internal/auth"
	"github.com/siahsang/inkwell/internal/validator"
)

func (app *application) adminPage(w http.ResponseWriter, r *http.Request) {
	stats, err := app.core.Stats(r.Context(), auth.CurrentUser(r))
	if err != nil {
		app.pageErrorResponse(w, r, err)
		return
	}
	data := app.pageData(r, "Admin")
	data.Stats = stats
	app.render(w, r, http.StatusOK, "admin", data)
}

func (app *application) adminPostsPage(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	status := app.readString(query, "status", "all")
	search := app.readString(query, "search", "")

	page, err := app.core.AdminPosts(r.Context(), auth.CurrentUser(r), status, search, app.pageFilter(r))
	if err != nil {
		app.pageErrorResponse(w, r, err)
		return
	}
	data := app.pageData(r, "Posts")
	data.Status = status
	data.Form = map[string]string{"search": search}
	data.Posts = page.Posts
	data.Pagination = &page.Pagination
	app.render(w, r, http.StatusOK, "admin_posts", data)
}

func (app *application) adminCommentsPage(w http.ResponseWriter, r *http.Request) {
	status := app.readString(r.URL.Query(), "status", "all")

	page, err := app.core.AdminComments(r.Context(), auth.CurrentUser(r), status, app.pageFilter(r))
	if err != nil {
		app.pageErrorResponse(w, r, err)
		return
	}
	data := app.pageData(r, "Comments")
	data.Status = status
	data.Comments = page.Comments
	data.Pagination = &page.Pagination
	app.render(w, r, http.StatusOK, "admin_comments", data)
}

func (app *application) adminUsersPage(w http.ResponseWriter, r *http.Request) {
	page, err := app.core.AdminUsers(r.Context(), auth.CurrentUser(r), app.pageFilter(r))
	if err != nil {
		app.pageErrorResponse(w, r, err)
		return
	}
	data := app.pageData(r, "Users")
	data.Authors = page.Authors
	data.Pagination = &page.Pagination
	app.render(w, r, http.StatusOK, "admin_users", data)
}

// adminCommentAction handles the approve, reject and delete buttons of the
// moderation queue.
func (app *application) adminCommentAction(w http.ResponseWriter, r *http.Request) {
	viewer := auth.CurrentUser(r)
	id, action := app.readParam(r, "id"), app.readParam(r, "action")
	if !validator.PermittedValue(action, "approve", "reject", "delete") {
		app.pageNotFound(w, r)
		return
	}

	var err error
	flash := "comment-deleted"
	switch action {
	case "approve":
		_, err = app.core.ModerateComment(r.Context(), viewer, id, true)
		flash = "comment-approved"
	case "reject":
		_, err = app.core.ModerateComment(r.Context(), viewer, id, false)
		flash = "comment-rejected"
	case "delete":
		err = app.core.DeleteComment(r.Context(), viewer, id)
	}
	if err != nil {
		app.pageErrorResponse(w, r, err)
		return
	}
	http.Redirect(w, r, "/admin/comments?flash="+flash, http.StatusSeeOther)
}
