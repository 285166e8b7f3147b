package main

import (
	"net/http"
	"os"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/siahsang/inkwell/internal/web"
)

func (app *application) routes() http.Handler {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(app.notFound)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	// JSON API
	router.HandlerFunc(http.MethodGet, "/api/posts", app.listPostsHandler)
	router.HandlerFunc(http.MethodPost, "/api/posts", app.requireAuthenticatedUser(app.createPostHandler))
	router.HandlerFunc(http.MethodGet, "/api/posts/:id", app.showPostHandler)
	router.HandlerFunc(http.MethodPut, "/api/posts/:id", app.requireAuthenticatedUser(app.updatePostHandler))
	router.HandlerFunc(http.MethodDelete, "/api/posts/:id", app.requireAuthenticatedUser(app.deletePostHandler))
	router.HandlerFunc(http.MethodGet, "/api/posts/:id/comments", app.listCommentsHandler)
	router.HandlerFunc(http.MethodPost, "/api/posts/:id/comments", app.createCommentHandler)
	router.HandlerFunc(http.MethodPost, "/api/posts/:id/rate", app.requireAuthenticatedUser(app.ratePostHandler))

	router.HandlerFunc(http.MethodGet, "/api/categories", app.listCategoriesHandler)
	router.HandlerFunc(http.MethodGet, "/api/tags", app.listTagsHandler)
	router.HandlerFunc(http.MethodGet, "/api/search", app.searchHandler)

	router.HandlerFunc(http.MethodGet, "/api/upload", app.requireAuthenticatedUser(app.listUploadsHandler))
	router.HandlerFunc(http.MethodPost, "/api/upload", app.requireAuthenticatedUser(app.uploadImageHandler))
	router.HandlerFunc(http.MethodDelete, "/api/upload", app.requireAuthenticatedUser(app.deleteUploadHandler))

	router.HandlerFunc(http.MethodGet, "/api/admin/stats", app.requireAdmin(app.statsHandler))
	router.HandlerFunc(http.MethodGet, "/api/admin/comments", app.requireAdmin(app.adminCommentsHandler))
	router.HandlerFunc(http.MethodPatch, "/api/admin/comments/:id", app.requireAdmin(app.moderateCommentHandler))
	router.HandlerFunc(http.MethodDelete, "/api/admin/comments/:id", app.requireAdmin(app.deleteCommentHandler))

	router.HandlerFunc(http.MethodPost, "/api/auth/register", app.registerUserHandler)
	router.HandlerFunc(http.MethodPost, "/api/auth/login", app.loginHandler)
	router.HandlerFunc(http.MethodPost, "/api/auth/logout", app.logoutHandler)
	router.HandlerFunc(http.MethodGet, "/api/profile", app.requireAuthenticatedUser(app.showProfileHandler))
	router.HandlerFunc(http.MethodPut, "/api/profile", app.requireAuthenticatedUser(app.updateProfileHandler))

	// Feeds
	router.HandlerFunc(http.MethodGet, "/rss.xml", app.rssHandler)
	router.HandlerFunc(http.MethodGet, "/sitemap.xml", app.sitemapHandler)
	router.HandlerFunc(http.MethodGet, "/robots.txt", app.robotsHandler)

	// Pages
	router.HandlerFunc(http.MethodGet, "/", app.homePage)
	router.HandlerFunc(http.MethodGet, "/posts", app.postsPage)
	router.HandlerFunc(http.MethodGet, "/posts/:slug", app.postPage)
	router.HandlerFunc(http.MethodGet, "/posts/:slug/edit", app.requirePageUser(app.editPostPage))
	router.HandlerFunc(http.MethodPost, "/posts/:slug/edit", app.requirePageUser(app.updatePostForm))
	router.HandlerFunc(http.MethodPost, "/posts/:slug/comments", app.commentForm)
	router.HandlerFunc(http.MethodPost, "/posts/:slug/rate", app.requirePageUser(app.rateForm))
	router.HandlerFunc(http.MethodGet, "/categories", app.categoriesPage)
	router.HandlerFunc(http.MethodGet, "/categories/:slug", app.categoryPage)
	router.HandlerFunc(http.MethodGet, "/tags/:slug", app.tagPage)
	router.HandlerFunc(http.MethodGet, "/authors/:id", app.authorPage)
	router.HandlerFunc(http.MethodGet, "/search", app.searchPage)
	router.HandlerFunc(http.MethodGet, "/create", app.requirePageUser(app.newPostPage))
	router.HandlerFunc(http.MethodPost, "/create", app.requirePageUser(app.createPostForm))
	router.HandlerFunc(http.MethodGet, "/login", app.loginPage)
	router.HandlerFunc(http.MethodPost, "/login", app.loginForm)
	router.HandlerFunc(http.MethodGet, "/register", app.registerPage)
	router.HandlerFunc(http.MethodPost, "/register", app.registerForm)
	router.HandlerFunc(http.MethodPost, "/logout", app.logoutForm)

	router.HandlerFunc(http.MethodGet, "/admin", app.requirePageUser(app.adminPage))
	router.HandlerFunc(http.MethodGet, "/admin/posts", app.requirePageUser(app.adminPostsPage))
	router.HandlerFunc(http.MethodGet, "/admin/comments", app.requirePageUser(app.adminCommentsPage))
	router.HandlerFunc(http.MethodGet, "/admin/users", app.requirePageUser(app.adminUsersPage))
	router.HandlerFunc(http.MethodPost, "/admin/comments/:id/:action", app.requirePageUser(app.adminCommentAction))

	router.ServeFiles("/static/*filepath", web.Static())
	if app.mediaDir != "" {
		router.ServeFiles("/media/*filepath", filesOnly{http.Dir(app.mediaDir)})
	}

	return app.recoverPanic(app.securityHeaders(app.logRequest(app.rateLimit(app.authenticate(router)))))
}

// notFound answers JSON under /api and an HTML page everywhere else.
func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		app.notFoundResponse(w, r)
		return
	}
	app.pageNotFound(w, r)
}

// filesOnly hides directory listings of the upload directory.
type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}
