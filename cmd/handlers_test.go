package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/auth"
	"github.com/siahsang/inkwell/internal/cache"
	"github.com/siahsang/inkwell/internal/config"
	"github.com/siahsang/inkwell/internal/core"
	"github.com/siahsang/inkwell/internal/database/memory"
	"github.com/siahsang/inkwell/internal/feed"
	"github.com/siahsang/inkwell/internal/ratelimit"
	"github.com/siahsang/inkwell/internal/storage"
	"github.com/siahsang/inkwell/internal/task"
	"github.com/siahsang/inkwell/internal/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	auth.BcryptCost = bcrypt.MinCost
	os.Exit(m.Run())
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

type testServer struct {
	app     *application
	handler http.Handler
}

func newTestServer(t *testing.T, requestsPerMinute int) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := cache.NewMemory()

	mediaDir := t.TempDir()
	bucket, err := storage.NewLocal(mediaDir, "/media")
	require.NoError(t, err)

	authenticator, err := auth.New("test-secret", time.Hour, "blog_session", false, c)
	require.NoError(t, err)

	renderer, err := web.NewRenderer()
	require.NoError(t, err)

	app := &application{
		config: &config.Config{
			App:    config.App{Env: "test"},
			Server: config.Server{WriteTimeout: 5 * time.Second},
		},
		logger:    logger,
		auth:      authenticator,
		limiter:   ratelimit.NewMemory(requestsPerMinute),
		renderer:  renderer,
		scheduler: task.NewScheduler(logger),
		mediaDir:  mediaDir,
		core: core.NewCore(memory.New(), c, bucket, logger, core.Options{
			Site:        feed.Site{Title: "Inkwell", Description: "A blog", BaseURL: "https://blog.example.com"},
			AdminEmails: []string{"admin@example.com"},
		}),
	}
	t.Cleanup(app.wg.Wait)
	return &testServer{app: app, handler: app.routes()}
}

func (ts *testServer) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		js, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(js)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) form(t *testing.T, target string, values url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

// register creates an account and returns its id and token.
func (ts *testServer) register(t *testing.T, name string) (string, string) {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": name + "@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	return body["user"].(map[string]any)["id"].(string), body["token"].(string)
}

func (ts *testServer) createPost(t *testing.T, token string, payload map[string]any) map[string]any {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/posts", token, payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec)["post"].(map[string]any)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, 100)

	for i := range 100 {
		rec := ts.do(t, http.MethodGet, "/robots.txt", "", nil)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := ts.do(t, http.MethodGet, "/robots.txt", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many requests. Please try again later.", decode(t, rec)["error"])

	req := httptest.NewRequest(http.MethodGet, "/robots.txt", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	other := httptest.NewRecorder()
	ts.handler.ServeHTTP(other, req)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestSecurityHeaders(t *testing.T) {
	ts := newTestServer(t, 1000)
	rec := ts.do(t, http.MethodGet, "/", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestCoreErrorStatus(t *testing.T) {
	ts := newTestServer(t, 1000)
	tests := []struct {
		err  error
		want int
	}{
		{xerrors.New(core.ErrDuplicate), http.StatusConflict},
		{xerrors.New(core.ErrNotFound), http.StatusNotFound},
		{xerrors.New(core.ErrForbidden), http.StatusForbidden},
		{xerrors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		ts.app.coreErrorResponse(rec, httptest.NewRequest(http.MethodPost, "/api/posts", nil), tt.err)
		assert.Equal(t, tt.want, rec.Code, tt.err.Error())
	}
}

type downLimiter struct{}

func (downLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}

func TestRateLimitFailsOpen(t *testing.T) {
	ts := newTestServer(t, 1000)
	var logs bytes.Buffer
	ts.app.logger = slog.New(slog.NewTextHandler(&logs, nil))
	ts.app.limiter = downLimiter{}
	handler := ts.app.routes()

	for range 3 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/robots.txt", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 1, strings.Count(logs.String(), "rate limiter unavailable"))
}

func TestNotFound(t *testing.T) {
	ts := newTestServer(t, 1000)

	rec := ts.do(t, http.MethodGet, "/api/nothing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	rec = ts.do(t, http.MethodGet, "/nothing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t, 1000)
	_, token := ts.register(t, "ann")

	t.Run("duplicate email", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
			"name": "Ann again", "email": "ANN@example.com", "password": "password123",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode(t, rec)["details"], "email")
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email": "ann@example.com", "password": "nope-nope",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid email or password", decode(t, rec)["error"])
	})

	t.Run("login sets the session cookie", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email": "ann@example.com", "password": "password123",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "blog_session", cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)

		req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
		req.AddCookie(cookies[0])
		profile := httptest.NewRecorder()
		ts.handler.ServeHTTP(profile, req)
		assert.Equal(t, http.StatusOK, profile.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
		req.Header.Set("Authorization", "Basic abc")
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("logout revokes the token", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/profile", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = ts.do(t, http.MethodPost, "/api/auth/logout", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = ts.do(t, http.MethodGet, "/api/profile", token, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("profile requires a user", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/profile", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Authentication required", decode(t, rec)["error"])
	})
}

func TestPostsAPI(t *testing.T) {
	ts := newTestServer(t, 1000)
	_, ann := ts.register(t, "ann")
	_, bob := ts.register(t, "bob")

	draft := ts.createPost(t, ann, map[string]any{
		"title": "Hello World", "content": "Some words here", "categories": []string{"Go"}, "tags": []string{"web"},
	})
	id := draft["id"].(string)
	assert.Equal(t, "hello-world", draft["slug"])
	assert.Nil(t, draft["published_at"])

	t.Run("validation", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/posts", ann, map[string]any{"title": " "})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		details := decode(t, rec)["details"].(map[string]any)
		assert.Contains(t, details, "title")
		assert.Contains(t, details, "content")

		rec = ts.do(t, http.MethodPost, "/api/posts", ann, map[string]any{"title": "x", "content": "y", "bogus": 1})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = ts.do(t, http.MethodPost, "/api/posts", "", map[string]any{"title": "x", "content": "y"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("drafts are hidden from everybody but the owner", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/posts/"+id, "", nil).Code)
		assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/posts/"+id, bob, nil).Code)
		assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/posts/"+id, ann, nil).Code)
		assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/posts/hello-world", "", nil).Code)
	})

	t.Run("only the owner may update", func(t *testing.T) {
		rec := ts.do(t, http.MethodPut, "/api/posts/"+id, bob, map[string]any{"published": true})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	var publishedAt any
	t.Run("publishing sets published_at once", func(t *testing.T) {
		rec := ts.do(t, http.MethodPut, "/api/posts/"+id, ann, map[string]any{"published": true})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		publishedAt = decode(t, rec)["post"].(map[string]any)["published_at"]
		require.NotNil(t, publishedAt)

		rec = ts.do(t, http.MethodPut, "/api/posts/"+id, ann, map[string]any{"published": false})
		require.Equal(t, http.StatusOK, rec.Code)
		rec = ts.do(t, http.MethodPut, "/api/posts/"+id, ann, map[string]any{"published": true, "title": "Renamed"})
		require.Equal(t, http.StatusOK, rec.Code)
		post := decode(t, rec)["post"].(map[string]any)
		assert.Equal(t, publishedAt, post["published_at"])
		assert.Equal(t, "hello-world", post["slug"])
	})

	t.Run("list filters", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/posts?category=go", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Len(t, body["posts"], 1)

		rec = ts.do(t, http.MethodGet, "/api/posts?category=missing&page=3", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body = decode(t, rec)
		assert.Empty(t, body["posts"])
		pagination := body["pagination"].(map[string]any)
		assert.EqualValues(t, 0, pagination["totalPages"])
		assert.EqualValues(t, 3, pagination["page"])

		rec = ts.do(t, http.MethodGet, "/api/posts?page=abc", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = ts.do(t, http.MethodGet, "/api/posts?page=4611686018427387905&limit=2", "", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode(t, rec)["details"], "page")

		rec = ts.do(t, http.MethodGet, "/api/posts?limit=500", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("second post with the same title gets a suffix", func(t *testing.T) {
		post := ts.createPost(t, ann, map[string]any{"title": "Hello World", "content": "again", "published": true})
		assert.Regexp(t, `^hello-world-[0-9a-f]{8}$`, post["slug"])
	})

	t.Run("delete", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodDelete, "/api/posts/"+id, bob, nil).Code)

		rec := ts.do(t, http.MethodDelete, "/api/posts/"+id, ann, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, decode(t, rec)["success"])
		assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/posts/"+id, ann, nil).Code)
	})
}

func TestRatingsAPI(t *testing.T) {
	ts := newTestServer(t, 1000)
	_, ann := ts.register(t, "ann")
	post := ts.createPost(t, ann, map[string]any{"title": "Rated", "content": "body", "published": true})
	target := "/api/posts/" + post["id"].(string) + "/rate"

	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodPost, target, "", map[string]int{"rating": 3}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, target, ann, map[string]int{"rating": 6}).Code)

	rec := ts.do(t, http.MethodPost, target, ann, map[string]int{"rating": 3})
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec = ts.do(t, http.MethodPost, target, ann, map[string]int{"rating": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 5, decode(t, rec)["rating"].(map[string]any)["rating"])

	rec = ts.do(t, http.MethodGet, "/api/posts/"+post["id"].(string), ann, nil)
	got := decode(t, rec)["post"].(map[string]any)
	assert.EqualValues(t, 1, got["rating_count"])
	assert.EqualValues(t, 5, got["user_rating"])
}

func TestCommentsAPI(t *testing.T) {
	ts := newTestServer(t, 1000)
	_, ann := ts.register(t, "ann")
	_, admin := ts.register(t, "admin")
	post := ts.createPost(t, ann, map[string]any{"title": "Discuss", "content": "body", "published": true})
	target := "/api/posts/" + post["id"].(string) + "/comments"

	rec := ts.do(t, http.MethodPost, target, "", map[string]string{"content": "hi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, target, "", map[string]string{
		"content": "<b>guest</b> says hi", "author_name": "Guest", "author_email": "guest@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	guest := decode(t, rec)["comment"].(map[string]any)
	assert.Equal(t, false, guest["approved"])
	assert.Equal(t, "guest says hi", guest["content"])

	rec = ts.do(t, http.MethodPost, target, ann, map[string]string{"content": "member here"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, decode(t, rec)["comment"].(map[string]any)["approved"])

	listed := decode(t, ts.do(t, http.MethodGet, target, "", nil))["comments"].([]any)
	assert.Len(t, listed, 1)

	moderate := "/api/admin/comments/" + guest["id"].(string)
	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodPatch, moderate, ann, map[string]bool{"approved": true}).Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodPatch, moderate, "", map[string]bool{"approved": true}).Code)

	rec = ts.do(t, http.MethodPatch, moderate, admin, map[string]bool{"approved": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	listed = decode(t, ts.do(t, http.MethodGet, target, "", nil))["comments"].([]any)
	assert.Len(t, listed, 2)

	rec = ts.do(t, http.MethodGet, "/api/admin/stats", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode(t, rec)["stats"].(map[string]any)
	assert.EqualValues(t, 2, stats["total_comments"])

	rec = ts.do(t, http.MethodDelete, moderate, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed = decode(t, ts.do(t, http.MethodGet, target, "", nil))["comments"].([]any)
	assert.Len(t, listed, 1)
}

func TestSearchAPI(t *testing.T) {
	ts := newTestServer(t, 1000)
	_, ann := ts.register(t, "ann")
	ts.createPost(t, ann, map[string]any{"title": "Concurrency in Go", "content": "channels", "published": true})
	ts.createPost(t, ann, map[string]any{"title": "Baking bread", "content": "flour", "published": true})

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/search?q=", "", nil).Code)

	rec := ts.do(t, http.MethodGet, "/api/search?q=channels", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	posts := decode(t, rec)["posts"].([]any)
	require.Len(t, posts, 1)
	assert.Equal(t, "Concurrency in Go", posts[0].(map[string]any)["title"])

	rec = ts.do(t, http.MethodGet, "/api/tags", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["tags"])
}

func uploadRequest(t *testing.T, token, filename, contentType string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	return req
}

func TestUploadsAPI(t *testing.T) {
	ts := newTestServer(t, 1000)
	annID, ann := ts.register(t, "ann")
	_, bob := ts.register(t, "bob")

	send := func(req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, send(uploadRequest(t, "", "a.png", "image/png", pngHeader)).Code)

	t.Run("rejects large and non image files", func(t *testing.T) {
		big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, core.MaxUploadSize)...)
		assert.Equal(t, http.StatusBadRequest, send(uploadRequest(t, ann, "big.png", "image/png", big)).Code)
		assert.Equal(t, http.StatusBadRequest, send(uploadRequest(t, ann, "a.pdf", "application/pdf", pngHeader)).Code)
		assert.Equal(t, http.StatusBadRequest, send(uploadRequest(t, ann, "a.png", "image/png", []byte("plain text"))).Code)
	})

	rec := send(uploadRequest(t, ann, "a.png", "image/png", pngHeader))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	stored := decode(t, rec)
	path := stored["path"].(string)
	assert.True(t, strings.HasPrefix(path, annID+"/"))
	assert.Equal(t, "/media/"+path, stored["url"])
	assert.Equal(t, "image/png", stored["type"])

	t.Run("served from the media route", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/media/"+path, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, pngHeader, rec.Body.Bytes())

		rec = ts.do(t, http.MethodGet, "/media/"+annID+"/", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("list", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/upload", ann, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode(t, rec)["files"], 1)

		rec = ts.do(t, http.MethodGet, "/api/upload?prefix="+url.QueryEscape(annID+"/"), bob, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("delete outside the own prefix is forbidden", func(t *testing.T) {
		rec := ts.do(t, http.MethodDelete, "/api/upload?path="+url.QueryEscape(path), bob, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = ts.do(t, http.MethodDelete, "/api/upload?path="+url.QueryEscape(path), ann, nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = ts.do(t, http.MethodDelete, "/api/upload?path="+url.QueryEscape(path), ann, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestFeedsRoutes(t *testing.T) {
	ts := newTestServer(t, 1000)
	_, ann := ts.register(t, "ann")
	ts.createPost(t, ann, map[string]any{"title": "Tips & <Tricks>", "content": "body", "published": true})

	rec := ts.do(t, http.MethodGet, "/rss.xml", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/rss+xml; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Tips &amp; &lt;Tricks&gt;")

	rec = ts.do(t, http.MethodGet, "/sitemap.xml", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://blog.example.com/posts/tips-tricks")

	rec = ts.do(t, http.MethodGet, "/robots.txt", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Disallow: /api/")
}

func TestPages(t *testing.T) {
	ts := newTestServer(t, 1000)
	annID, ann := ts.register(t, "ann")
	ts.createPost(t, ann, map[string]any{
		"title": "Readable", "content": "# Intro\n\nHello", "published": true, "tags": []string{"go"}, "categories": []string{"Notes"},
	})
	ts.createPost(t, ann, map[string]any{"title": "Secret draft", "content": "wip"})

	for _, path := range []string{"/", "/posts", "/posts/readable", "/categories", "/categories/notes", "/tags/go", "/authors/" + annID, "/search?q=hello", "/login", "/register"} {
		rec := ts.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html", path)
	}

	t.Run("huge page numbers render", func(t *testing.T) {
		for _, path := range []string{"/posts?page=4611686018427387905&limit=2", "/tags/go?page=4611686018427387905&limit=2"} {
			assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, path, "", nil).Code, path)
		}
	})

	t.Run("unknown terms are 404", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/categories/nope", "", nil).Code)
		assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/tags/nope", "", nil).Code)
		assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/authors/nope", "", nil).Code)
	})

	t.Run("drafts show on the owner's author page only", func(t *testing.T) {
		assert.NotContains(t, ts.do(t, http.MethodGet, "/authors/"+annID, "", nil).Body.String(), "Secret draft")
		assert.Contains(t, ts.do(t, http.MethodGet, "/authors/"+annID, ann, nil).Body.String(), "Secret draft")
	})

	t.Run("members only pages redirect to login", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/create", "", nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login?next=%2Fcreate", rec.Header().Get("Location"))

		rec = ts.form(t, "/posts/readable/rate", url.Values{"rating": {"4"}})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login?next=%2Fposts%2Freadable", rec.Header().Get("Location"))
	})

	t.Run("admin pages are forbidden to authors", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodGet, "/admin", ann, nil).Code)
	})
}

func TestPageForms(t *testing.T) {
	ts := newTestServer(t, 1000)

	rec := ts.form(t, "/register", url.Values{"name": {"Ann"}, "email": {"bad"}, "password": {"short"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = ts.form(t, "/register", url.Values{"name": {"Ann"}, "email": {"ann@example.com"}, "password": {"password123"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = ts.form(t, "/login", url.Values{"email": {"ann@example.com"}, "password": {"wrong-password"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.form(t, "/login", url.Values{"email": {"ann@example.com"}, "password": {"password123"}, "next": {"//evil.example.com"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	session := rec.Result().Cookies()[0]

	rec = ts.form(t, "/create", url.Values{"title": {""}, "content": {"x"}}, session)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = ts.form(t, "/create", url.Values{
		"title": {"From the form"}, "content": {"Body"}, "tags": {"go, web ,"}, "published": {"true"},
	}, session)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/posts/from-the-form?flash=saved", rec.Header().Get("Location"))

	rec = ts.form(t, "/posts/from-the-form/comments", url.Values{"content": {"Nice"}, "author_name": {"Guest"}, "author_email": {"guest@example.com"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "flash=comment-pending")

	rec = ts.form(t, "/posts/from-the-form/comments", url.Values{"content": {""}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = ts.form(t, "/posts/from-the-form/rate", url.Values{"rating": {"4"}}, session)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/posts/from-the-form/edit", nil)
	req.AddCookie(session)
	edit := httptest.NewRecorder()
	ts.handler.ServeHTTP(edit, req)
	require.Equal(t, http.StatusOK, edit.Code)
	assert.Contains(t, edit.Body.String(), `value="go, web"`)

	rec = ts.form(t, "/logout", nil, session)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	rec = ts.form(t, "/create", url.Values{"title": {"x"}, "content": {"y"}}, session)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/login"))
}
