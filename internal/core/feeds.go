package core

import (
	"context"
	"errors"
	"time"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/cache"
	"github.com/siahsang/inkwell/internal/database"
	"github.com/siahsang/inkwell/internal/feed"
)

const (
	feedTTL      = time.Hour
	feedItems    = 20
	rssCacheKey  = "feed:rss"
	sitemapCache = "feed:sitemap"
)

// RSS returns the feed of the latest published posts, cached for an hour.
func (c *Core) RSS(ctx context.Context) ([]byte, error) {
	return c.cached(ctx, rssCacheKey, func() ([]byte, error) {
		posts, err := c.publishedAmong(ctx, nil, feedItems)
		if err != nil {
			return nil, err
		}
		if err := c.annotate(ctx, posts, nil); err != nil {
			return nil, err
		}
		return feed.RSS(c.site, posts, c.now())
	})
}

// Sitemap lists the static pages, every published post, category and tag.
func (c *Core) Sitemap(ctx context.Context) ([]byte, error) {
	return c.cached(ctx, sitemapCache, func() ([]byte, error) {
		published := true
		posts, _, err := c.store.ListPosts(ctx, database.PostQuery{Published: &published})
		if err != nil {
			return nil, xerrors.New(err)
		}
		categories, err := c.ListCategories(ctx)
		if err != nil {
			return nil, err
		}
		tags, err := c.ListTags(ctx)
		if err != nil {
			return nil, err
		}
		return feed.Sitemap(c.site, posts, categories, tags, c.now())
	})
}

func (c *Core) Robots() string {
	return feed.Robots(c.site)
}

// cached serves key from the cache, building and storing it on a miss.
// Cache failures only cost a rebuild.
func (c *Core) cached(ctx context.Context, key string, build func() ([]byte, error)) ([]byte, error) {
	value, err := c.cache.Get(ctx, key)
	if err == nil {
		return []byte(value), nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		c.log.Warn("cache read failed", "key", key, "error", err)
	}

	body, err := build()
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, string(body), feedTTL); err != nil {
		c.log.Warn("cache write failed", "key", key, "error", err)
	}
	return body, nil
}

func (c *Core) invalidateFeeds(ctx context.Context) {
	if err := c.cache.Delete(ctx, rssCacheKey, sitemapCache); err != nil {
		c.log.Warn("feed cache invalidation failed", "error", err)
	}
}
