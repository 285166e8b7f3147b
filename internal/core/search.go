package core

import (
	"context"
	"errors"
	"strings"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/database"
	"github.com/siahsang/inkwell/models"
)

const searchLimit = 20

// Search runs ranked full-text search over published posts and falls back
// to substring matching when the store cannot rank.
func (c *Core) Search(ctx context.Context, query string) ([]*models.Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalidField("q", "must be provided")
	}

	posts, err := c.store.SearchPosts(ctx, query, searchLimit)
	if err != nil {
		if !errors.Is(err, database.ErrUnsupported) {
			c.log.Warn("full-text search failed, falling back to substring match", "query", query, "error", err)
		}
		published := true
		posts, _, err = c.store.ListPosts(ctx, database.PostQuery{
			Published: &published,
			Search:    query,
			Limit:     searchLimit,
		})
		if err != nil {
			return nil, xerrors.New(err)
		}
	}

	if err := c.annotate(ctx, posts, nil); err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return posts, nil
}
