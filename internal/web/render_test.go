package web

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/siahsang/inkwell/internal/feed"
	"github.com/siahsang/inkwell/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	site := feed.Site{Title: "Inkwell", BaseURL: "http://localhost"}
	published := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	avg := 4.5
	post := &models.Post{
		ID:            "p1",
		Title:         "<Hello>",
		Slug:          "hello",
		Content:       "# Heading\n\n<script>alert(1)</script>",
		Published:     true,
		PublishedAt:   &published,
		AuthorID:      "u1",
		Author:        &models.Author{UserID: "u1", Name: "Ann"},
		Tags:          []*models.Tag{{Name: "go", Slug: "go"}},
		RatingCount:   2,
		AverageRating: &avg,
	}

	t.Run("every page renders with empty data", func(t *testing.T) {
		for name := range renderer.pages {
			rec := httptest.NewRecorder()
			err := renderer.Render(rec, http.StatusOK, name, &PageData{Site: site})
			assert.NoError(t, err, name)
		}
	})

	t.Run("post page escapes and sanitises", func(t *testing.T) {
		rec := httptest.NewRecorder()
		err := renderer.Render(rec, http.StatusOK, "post", &PageData{
			Site:        site,
			Title:       post.Title,
			Post:        post,
			CurrentUser: &models.User{ID: "u1", Name: "Ann"},
			Comments: []*models.Comment{{
				ID:      "c1",
				Content: "<b>hi</b>",
				Replies: []*models.Comment{{ID: "c2", Content: "reply"}},
			}},
		})
		require.NoError(t, err)

		body := rec.Body.String()
		assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Contains(t, body, "&lt;Hello&gt;")
		assert.Contains(t, body, ">Heading</h1>")
		assert.NotContains(t, body, "<script>alert(1)</script>")
		assert.Contains(t, body, "&lt;b&gt;hi&lt;/b&gt;")
		assert.Contains(t, body, `/posts/hello/edit`)
		assert.Contains(t, body, "4.5")
	})

	t.Run("pagination keeps the query", func(t *testing.T) {
		rec := httptest.NewRecorder()
		err := renderer.Render(rec, http.StatusOK, "posts", &PageData{
			Site:       site,
			Path:       "/posts",
			RawQuery:   "tag=go&page=1",
			Posts:      []*models.Post{post},
			Pagination: &models.Pagination{Page: 1, Limit: 1, Total: 2, TotalPages: 2},
		})
		require.NoError(t, err)
		assert.Contains(t, rec.Body.String(), `/posts?page=2&amp;tag=go`)
	})

	t.Run("unknown page", func(t *testing.T) {
		err := renderer.Render(httptest.NewRecorder(), http.StatusOK, "missing", &PageData{})
		assert.Error(t, err)
	})
}

func TestStatic(t *testing.T) {
	f, err := Static().Open("app.js")
	require.NoError(t, err)
	defer f.Close()
	info, err := f.Stat()
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
