package core

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeeds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ann := f.user(t, "ann")
	f.post(t, ann, "Tips & <Tricks>", true, []string{"Go"}, []string{"web"})
	f.post(t, ann, "Unpublished thoughts", false, nil, nil)

	t.Run("rss escapes titles and skips drafts", func(t *testing.T) {
		body, err := f.core.RSS(ctx)
		require.NoError(t, err)
		rss := string(body)
		assert.Contains(t, rss, "Tips &amp; &lt;Tricks&gt;")
		assert.Contains(t, rss, "ann@example.com (ann)")
		assert.NotContains(t, rss, "Unpublished thoughts")
	})

	t.Run("rss is cached until a post changes", func(t *testing.T) {
		cached, err := f.cache.Get(ctx, rssCacheKey)
		require.NoError(t, err)
		assert.Contains(t, cached, "Tricks")

		f.post(t, ann, "Fresh post", true, nil, nil)
		_, err = f.cache.Get(ctx, rssCacheKey)
		assert.Error(t, err)

		body, err := f.core.RSS(ctx)
		require.NoError(t, err)
		assert.Contains(t, string(body), "Fresh post")
	})

	t.Run("sitemap lists posts and terms", func(t *testing.T) {
		body, err := f.core.Sitemap(ctx)
		require.NoError(t, err)
		sitemap := string(body)
		for _, loc := range []string{
			"https://blog.example.com/posts/tips-tricks",
			"https://blog.example.com/categories/go",
			"https://blog.example.com/tags/web",
			"https://blog.example.com/search",
		} {
			assert.Contains(t, sitemap, "<loc>"+loc+"</loc>")
		}
		assert.NotContains(t, sitemap, "unpublished-thoughts")
	})

	t.Run("robots", func(t *testing.T) {
		robots := f.core.Robots()
		assert.True(t, strings.Contains(robots, "Disallow: /api/"))
		assert.Contains(t, robots, "Sitemap: https://blog.example.com/sitemap.xml")
	})
}

func TestHome(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ann := f.user(t, "ann")
	for _, title := range []string{"One", "Two", "Three", "Four"} {
		p := f.post(t, ann, title, true, nil, []string{"misc"})
		_, err := f.core.UpdatePost(ctx, ann, p.ID, PostInput{Featured: ptr(true)})
		require.NoError(t, err)
	}

	home, err := f.core.Home(ctx)
	require.NoError(t, err)
	assert.Len(t, home.Featured, featuredOnHome)
	assert.Equal(t, "Four", home.Featured[0].Title)
	assert.Len(t, home.Latest, 4)
	require.Len(t, home.Tags, 1)
	assert.Equal(t, "misc", home.Tags[0].Slug)
}
