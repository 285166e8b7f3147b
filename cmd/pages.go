package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/siahsang/inkwell/internal/auth"
	"github.com/siahsang/inkwell/internal/core"
	"github.com/siahsang/inkwell/internal/filter"
	"github.com/siahsang/inkwell/internal/utils/functional"
	"github.com/siahsang/inkwell/internal/utils/stringutils"
	"github.com/siahsang/inkwell/internal/validator"
	"github.com/siahsang/inkwell/internal/web"
	"github.com/siahsang/inkwell/models"
)

const maxFormBytes = 1 << 20

var flashMessages = map[string]string{
	"comment-pending":  "Thanks! Your comment will appear once a moderator approves it.",
	"comment-posted":   "Your comment has been posted.",
	"rated":            "Thanks for rating this post.",
	"saved":            "Post saved.",
	"logged-out":       "You have been logged out.",
	"comment-approved": "Comment approved.",
	"comment-rejected": "Comment hidden.",
	"comment-deleted":  "Comment deleted.",
}

func (app *application) render(w http.ResponseWriter, r *http.Request, status int, page string, data *web.PageData) {
	if err := app.renderer.Render(w, status, page, data); err != nil {
		app.errorPage(w, r, http.StatusInternalServerError, err)
	}
}

func (app *application) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		app.errorPage(w, r, http.StatusBadRequest, err)
		return false
	}
	return true
}

// formErrors reports whether err carries field messages and, if so,
// returns them for re-rendering a form.
func formErrors(err error) (map[string]string, bool) {
	var validationErr *core.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Errors, true
	}
	return nil, false
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

func (app *application) homePage(w http.ResponseWriter, r *http.Request) {
	home, err := app.core.Home(r.Context())
	if err != nil {
		app.pageErrorResponse(w, r, err)
		return
	}
	data := app.pageData(r, "")
	data.Featured = home.Featured
	data.Posts = home.Latest
	data.Tags = home.Tags
	app.render(w, r, http.StatusOK, "home", data)
}

func (app *application) postsPage(w http.ResponseWriter, r *http.Request) {
	v := validator.New()
	query := r.URL.Query()
	pf := core.PostFilter{
		Category: app.readString(query, "category", ""),
		Tag:      app.readString(query, "tag", ""),
		Search:   app.readString(query, "search", ""),
		Filter:   app.readFilter(query, v),
	}
	if !v.IsValid() {
		pf.Filter = filter.NewFilter(1, filter.DefaultLimit)
	}

	page, err := app.core.ListPosts(r.Context(), pf)
	if err != nil {
		app.pageErrorResponse(w, r, err)
		return
	}
	data := app.pageData(r, "Posts")
	data.Heading = "All posts"
	if pf.Search != "" {
		data.Heading = "Posts matching “" + pf.Search + "”"
	}
	data.Posts = page.Posts
	data.Pagination = &page.Pagination
	app.render(w, r, http.StatusOK, "posts", data)
}

func (app *application) postPage(w http.ResponseWriter, r *http.Request) {
	app.renderPost(w, r, http.StatusOK, nil, nil)
}

// renderPost shows a post with its comments and related posts. form and
// formErrors refill the comment form after a rejected submission.
func (app *application) renderPost(w http.ResponseWriter, r *http.Request, status int, form, formErrors map[string]string) {
	viewer := auth.CurrentUser(r)
	post, err := app.core.GetPostBySlug(r.Context(), viewer, app.readParam(r, "slug"))
	if err != nil {
		app.pageErrorResponse(w, r, err)
		return
	}
	comments, err := app.core.ListComments(r.Context(), viewer, post.ID)
	if err != nil {
		app.pageErrorResponse(w, r, err)
		return
	}
	related, err := app.core.RelatedPosts(r.Context(), post)
	if err != nil {
		app.pageErrorResponse(w, r, err)
		return
	}

	data := app.pageData(r, post.Title)
	data.Post = post
	data.Comments = comments
	data.Related = related
	data.Form = form
	data.FormErrors = formErrors
	if len(formErrors) > 0 {
		data.FormError = "Please fix the errors below."
	}
	app.render(w, r, status, "post", data)
}

func (app *application) categoriesPage(w http.ResponseWriter, r *http.Request) {
	categories, err := app.core.ListCategories(r.Context())
	if err != nil {
		app.pageErrorResponse(w, r, err)
		return
	}
	data := app.pageData(r, "Categories")
	data.Categories = categories
	app.render(w, r, http.StatusOK, "categories", data)
}

func (app *application) pageFilter(r *http.Request) filter.Filter {
	v := validator.New()
	f := app.readFilter(r.URL.Query(), v)
	if !v.IsValid() {
		return filter.NewFilter(1, filter.DefaultLimit)
	}
	return f
}

func (app *application) categoryPage(w http.ResponseWriter, r *http.Request) {
	category, page, err := app.core.CategoryPosts(r.Context(), app.readParam(r, "slug"), app.pageFilter(r))
	if err != nil {
		app.pageErrorResponse(w, r, err)
		return
	}
	data := app.pageData(r, category.Name)
	data.Heading = category.Name
	data.Category = category
	data.Posts = page.Posts
	data.Pagination = &page.Pagination
	app.render(w, r, http.StatusOK, "posts", data)
}

func (app *application) tagPage(w http.ResponseWriter, r *http.Request) {
	tag, page, err := app.core.TagPosts(r.Context(), app.readParam(r, "slug"), app.pageFilter(r))
	if err != nil {
		app.pageErrorResponse(w, r, err)
		return
	}
	data := app.pageData(r, "#"+tag.Name)
	data.Heading = "#" + tag.Name
	data.Tag = tag
	data.Posts = page.Posts
	data.Pagination = &page.Pagination
	app.render(w, r, http.StatusOK, "posts", data)
}

func (app *application) authorPage(w http.ResponseWriter, r *http.Request) {
	author, page, err := app.core.AuthorPosts(r.Context(), app.readParam(r, "id"), app.pageFilter(r))
	if err != nil {
		app.pageErrorResponse(w, r, err)
		return
	}
	data := app.pageData(r, author.Name)
	data.Heading = author.Name
	data.Author = author
	data.Posts = page.Posts
	data.Pagination = &page.Pagination

	if viewer := auth.CurrentUser(r); viewer != nil && viewer.ID == author.UserID {
		drafts, err := app.core.DraftsOf(r.Context(), viewer, filter.NewFilter(1, filter.MaxLimit))
		if err != nil {
			app.pageErrorResponse(w, r, err)
			return
		}
		data.Drafts = drafts.Posts
	}
	app.render(w, r, http.StatusOK, "posts", data)
}

func (app *application) searchPage(w http.ResponseWriter, r *http.Request) {
	data := app.pageData(r, "Search")
	data.Query = strings.TrimSpace(r.URL.Query().Get("q"))
	if data.Query != "" {
		posts, err := app.core.Search(r.Context(), data.Query)
		if err != nil {
			app.pageErrorResponse(w, r, err)
			return
		}
		data.Posts = posts
	}
	app.render(w, r, http.StatusOK, "search", data)
}

func postForm(post *models.Post) map[string]string {
	names := func(n []string) string { return strings.Join(n, ", ") }
	return map[string]string{
		"title":         post.Title,
		"content":       post.Content,
		"excerpt":       stringutils.Deref(post.Excerpt),
		"thumbnail_url": stringutils.Deref(post.ThumbnailURL),
		"categories":    names(functional.Map(post.Categories, func(c *models.Category) string { return c.Name })),
		"tags":          names(functional.Map(post.Tags, func(t *models.Tag) string { return t.Name })),
		"featured":      strconv.FormatBool(post.Featured),
		"published":     strconv.FormatBool(post.Published),
	}
}

// postInputFromForm maps the editor fields. Unchecked boxes are absent from
// the form and mean false.
func postInputFromForm(r *http.Request) (core.PostInput, map[string]string) {
	form := make(map[string]string)
	for _, key := range []string{"title", "content", "excerpt", "thumbnail_url", "categories", "tags", "featured", "published"} {
		form[key] = r.PostForm.Get(key)
	}
	title, content := form["title"], form["content"]
	excerpt, thumbnail := form["excerpt"], form["thumbnail_url"]
	featured, published := form["featured"] == "true", form["published"] == "true"
	return core.PostInput{
		Title:        &title,
		Content:      &content,
		Excerpt:      &excerpt,
		ThumbnailURL: &thumbnail,
		Featured:     &featured,
		Published:    &published,
		Categories:   splitList(form["categories"]),
		Tags:         splitList(form["tags"]),
	}, form
}

func (app *application) editorPage(w http.ResponseWriter, r *http.Request, status int, heading string, form, errs map[string]string) {
	data := app.pageData(r, heading)
	data.Heading = heading
	data.Form = form
	data.FormErrors = errs
	if len(errs) > 0 {
		data.FormError = "Please fix the errors below."
	}
	app.render(w, r, status, "editor", data)
}

func (app *application) newPostPage(w http.ResponseWriter, r *http.Request) {
	app.editorPage(w, r, http.StatusOK, "New post", map[string]string{"published": "true"}, nil)
}

func (app *application) createPostForm(w http.ResponseWriter, r *http.Request) {
	if !app.parseForm(w, r) {
		return
	}
	in, form := postInputFromForm(r)

	post, err := app.core.CreatePost(r.Context(), auth.CurrentUser(r), in)
	if err != nil {
		if errs, ok := formErrors(err); ok {
			app.editorPage(w, r, http.StatusUnprocessableEntity, "New post", form, errs)
			return
		}
		app.pageErrorResponse(w, r, err)
		return
	}
	app.warmFeeds()
	http.Redirect(w, r, "/posts/"+post.Slug+"?flash=saved", http.StatusSeeOther)
}

func (app *application) editPostPage(w http.ResponseWriter, r *http.Request) {
	post, err := app.core.PostForEdit(r.Context(), auth.CurrentUser(r), app.readParam(r, "slug"))
	if err != nil {
		app.pageErrorResponse(w, r, err)
		return
	}
	app.editorPage(w, r, http.StatusOK, "Edit post", postForm(post), nil)
}

func (app *application) updatePostForm(w http.ResponseWriter, r *http.Request) {
	viewer := auth.CurrentUser(r)
	post, err := app.core.PostForEdit(r.Context(), viewer, app.readParam(r, "slug"))
	if err != nil {
		app.pageErrorResponse(w, r, err)
		return
	}
	if !app.parseForm(w, r) {
		return
	}
	in, form := postInputFromForm(r)

	post, err = app.core.UpdatePost(r.Context(), viewer, post.ID, in)
	if err != nil {
		if errs, ok := formErrors(err); ok {
			app.editorPage(w, r, http.StatusUnprocessableEntity, "Edit post", form, errs)
			return
		}
		app.pageErrorResponse(w, r, err)
		return
	}
	app.warmFeeds()
	http.Redirect(w, r, "/posts/"+post.Slug+"?flash=saved", http.StatusSeeOther)
}

func (app *application) commentForm(w http.ResponseWriter, r *http.Request) {
	viewer := auth.CurrentUser(r)
	postID, err := app.core.ResolveSlug(r.Context(), viewer, app.readParam(r, "slug"))
	if err != nil {
		app.pageErrorResponse(w, r, err)
		return
	}
	if !app.parseForm(w, r) {
		return
	}

	in := core.CommentInput{
		Content:     r.PostForm.Get("content"),
		AuthorName:  r.PostForm.Get("author_name"),
		AuthorEmail: r.PostForm.Get("author_email"),
	}
	if parentID := strings.TrimSpace(r.PostForm.Get("parent_id")); parentID != "" {
		in.ParentID = &parentID
	}

	comment, err := app.core.CreateComment(r.Context(), viewer, postID, in)
	if err != nil {
		if errs, ok := formErrors(err); ok {
			app.renderPost(w, r, http.StatusUnprocessableEntity, map[string]string{
				"content":      in.Content,
				"author_name":  in.AuthorName,
				"author_email": in.AuthorEmail,
			}, errs)
			return
		}
		app.pageErrorResponse(w, r, err)
		return
	}

	flash := "comment-posted"
	if !comment.Approved {
		flash = "comment-pending"
	}
	http.Redirect(w, r, "/posts/"+app.readParam(r, "slug")+"?flash="+flash+"#comment-"+comment.ID, http.StatusSeeOther)
}

func (app *application) rateForm(w http.ResponseWriter, r *http.Request) {
	viewer := auth.CurrentUser(r)
	slug := app.readParam(r, "slug")
	postID, err := app.core.ResolveSlug(r.Context(), viewer, slug)
	if err != nil {
		app.pageErrorResponse(w, r, err)
		return
	}
	if !app.parseForm(w, r) {
		return
	}

	value, err := strconv.Atoi(r.PostForm.Get("rating"))
	if err != nil {
		value = 0
	}
	if _, _, err := app.core.RatePost(r.Context(), viewer, postID, value); err != nil {
		app.pageErrorResponse(w, r, err)
		return
	}
	http.Redirect(w, r, "/posts/"+slug+"?flash=rated", http.StatusSeeOther)
}

func (app *application) loginPage(w http.ResponseWriter, r *http.Request) {
	data := app.pageData(r, "Log in")
	data.Form = map[string]string{"next": r.URL.Query().Get("next")}
	app.render(w, r, http.StatusOK, "login", data)
}

func (app *application) loginForm(w http.ResponseWriter, r *http.Request) {
	if !app.parseForm(w, r) {
		return
	}
	email := strings.TrimSpace(r.PostForm.Get("email"))
	next := r.PostForm.Get("next")
	if next == "" {
		next = r.URL.Query().Get("next")
	}

	user, err := app.core.Login(r.Context(), email, r.PostForm.Get("password"))
	if err != nil {
		if !errors.Is(err, core.ErrInvalidCredentials) {
			app.pageErrorResponse(w, r, err)
			return
		}
		data := app.pageData(r, "Log in")
		data.Form = map[string]string{"email": email, "next": next}
		data.FormError = core.ErrInvalidCredentials.Error()
		app.render(w, r, http.StatusUnauthorized, "login", data)
		return
	}

	if _, err := app.startSession(w, user); err != nil {
		app.pageErrorResponse(w, r, err)
		return
	}
	http.Redirect(w, r, safeNext(next), http.StatusSeeOther)
}

func (app *application) registerPage(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusOK, "register", app.pageData(r, "Register"))
}

func (app *application) registerForm(w http.ResponseWriter, r *http.Request) {
	if !app.parseForm(w, r) {
		return
	}
	in := core.RegisterInput{
		Name:     r.PostForm.Get("name"),
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
	}

	user, err := app.core.Register(r.Context(), in)
	if err != nil {
		if errs, ok := formErrors(err); ok {
			data := app.pageData(r, "Register")
			data.Form = map[string]string{"name": in.Name, "email": in.Email}
			data.FormErrors = errs
			data.FormError = "Please fix the errors below."
			app.render(w, r, http.StatusUnprocessableEntity, "register", data)
			return
		}
		app.pageErrorResponse(w, r, err)
		return
	}

	if _, err := app.startSession(w, user); err != nil {
		app.pageErrorResponse(w, r, err)
		return
	}
	http.Redirect(w, r, "/authors/"+user.ID, http.StatusSeeOther)
}

func (app *application) logoutForm(w http.ResponseWriter, r *http.Request) {
	if err := app.endSession(w, r); err != nil {
		app.pageErrorResponse(w, r, err)
		return
	}
	http.Redirect(w, r, "/?flash=logged-out", http.StatusSeeOther)
}
