package core

import (
	"context"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/database"
	"github.com/siahsang/inkwell/internal/utils/functional"
	"github.com/siahsang/inkwell/models"
)

const relatedLimit = 3

// RelatedPosts picks up to three published posts for an annotated post:
// those sharing a category first, then a tag, then the latest posts.
func (c *Core) RelatedPosts(ctx context.Context, post *models.Post) ([]*models.Post, error) {
	related := make([]*models.Post, 0, relatedLimit)
	picked := map[string]bool{post.ID: true}

	add := func(candidates []*models.Post) {
		for _, p := range candidates {
			if len(related) == relatedLimit {
				return
			}
			if !picked[p.ID] {
				picked[p.ID] = true
				related = append(related, p)
			}
		}
	}

	categoryIDs := functional.Map(post.Categories, func(cat *models.Category) string { return cat.ID })
	if len(categoryIDs) > 0 {
		ids, err := c.store.PostIDsForCategories(ctx, categoryIDs)
		if err != nil {
			return nil, xerrors.New(err)
		}
		candidates, err := c.publishedAmong(ctx, ids, len(picked)+relatedLimit)
		if err != nil {
			return nil, err
		}
		add(candidates)
	}

	tagIDs := functional.Map(post.Tags, func(t *models.Tag) string { return t.ID })
	if len(related) < relatedLimit && len(tagIDs) > 0 {
		ids, err := c.store.PostIDsForTags(ctx, tagIDs)
		if err != nil {
			return nil, xerrors.New(err)
		}
		candidates, err := c.publishedAmong(ctx, ids, len(picked)+relatedLimit)
		if err != nil {
			return nil, err
		}
		add(candidates)
	}

	if len(related) < relatedLimit {
		candidates, err := c.publishedAmong(ctx, nil, len(picked)+relatedLimit)
		if err != nil {
			return nil, err
		}
		add(candidates)
	}

	if err := c.annotate(ctx, related, nil); err != nil {
		return nil, err
	}
	return related, nil
}

// publishedAmong lists the newest published posts, restricted to ids when
// ids is not nil.
func (c *Core) publishedAmong(ctx context.Context, ids []string, limit int) ([]*models.Post, error) {
	if ids != nil && len(ids) == 0 {
		return nil, nil
	}
	published := true
	posts, _, err := c.store.ListPosts(ctx, database.PostQuery{
		IDs:       ids,
		Published: &published,
		Limit:     limit,
	})
	if err != nil {
		return nil, xerrors.New(err)
	}
	return posts, nil
}
