package core

import (
	"context"
	"errors"
	"strings"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/database"
	"github.com/siahsang/inkwell/internal/filter"
	"github.com/siahsang/inkwell/internal/utils/functional"
	"github.com/siahsang/inkwell/models"
)

// linkTerms resolves category and tag names, creating missing ones, and
// replaces the post's links. A nil list leaves that link set untouched.
func (c *Core) linkTerms(ctx context.Context, postID string, categoryNames, tagNames []string) error {
	if categoryNames != nil {
		ids, err := c.resolveCategories(ctx, categoryNames)
		if err != nil {
			return err
		}
		if err := c.store.ReplacePostCategories(ctx, postID, ids); err != nil {
			return xerrors.New(err)
		}
	}
	if tagNames != nil {
		ids, err := c.resolveTags(ctx, tagNames)
		if err != nil {
			return err
		}
		if err := c.store.ReplacePostTags(ctx, postID, ids); err != nil {
			return xerrors.New(err)
		}
	}
	return nil
}

type term struct {
	name string
	slug string
}

// terms trims names and drops those without a usable slug or repeating an
// earlier slug.
func terms(names []string) []term {
	seen := make(map[string]bool, len(names))
	result := make([]term, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		slug := Slugify(name)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		result = append(result, term{name: name, slug: slug})
	}
	return result
}

func (c *Core) resolveCategories(ctx context.Context, names []string) ([]string, error) {
	ids := make([]string, 0, len(names))
	for _, t := range terms(names) {
		category, err := c.store.GetCategoryBySlug(ctx, t.slug)
		if errors.Is(err, database.ErrNotFound) {
			category = &models.Category{Name: t.name, Slug: t.slug, CreatedAt: c.now()}
			err = c.store.CreateCategory(ctx, category)
		}
		if err != nil {
			return nil, xerrors.New(err)
		}
		ids = append(ids, category.ID)
	}
	return functional.Distinct(ids), nil
}

func (c *Core) resolveTags(ctx context.Context, names []string) ([]string, error) {
	ids := make([]string, 0, len(names))
	for _, t := range terms(names) {
		tag, err := c.store.GetTagBySlug(ctx, t.slug)
		if errors.Is(err, database.ErrNotFound) {
			tag = &models.Tag{Name: t.name, Slug: t.slug, CreatedAt: c.now()}
			err = c.store.CreateTag(ctx, tag)
		}
		if err != nil {
			return nil, xerrors.New(err)
		}
		ids = append(ids, tag.ID)
	}
	return functional.Distinct(ids), nil
}

// ListCategories orders by name and carries published post counts.
func (c *Core) ListCategories(ctx context.Context) ([]*models.Category, error) {
	categories, err := c.store.ListCategories(ctx)
	if err != nil {
		return nil, xerrors.New(err)
	}
	return categories, nil
}

func (c *Core) ListTags(ctx context.Context) ([]*models.Tag, error) {
	tags, err := c.store.ListTags(ctx)
	if err != nil {
		return nil, xerrors.New(err)
	}
	return tags, nil
}

// CategoryPosts returns the category and a page of its published posts.
// An unknown slug is ErrNotFound.
func (c *Core) CategoryPosts(ctx context.Context, slug string, f filter.Filter) (*models.Category, *models.PostPage, error) {
	category, err := c.store.GetCategoryBySlug(ctx, slug)
	if err != nil {
		return nil, nil, xerrors.New(err)
	}
	page, err := c.ListPosts(ctx, PostFilter{Category: slug, Filter: f})
	if err != nil {
		return nil, nil, err
	}
	return category, page, nil
}

func (c *Core) TagPosts(ctx context.Context, slug string, f filter.Filter) (*models.Tag, *models.PostPage, error) {
	tag, err := c.store.GetTagBySlug(ctx, slug)
	if err != nil {
		return nil, nil, xerrors.New(err)
	}
	page, err := c.ListPosts(ctx, PostFilter{Tag: slug, Filter: f})
	if err != nil {
		return nil, nil, err
	}
	return tag, page, nil
}
