package core

import (
	"context"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/database"
	"github.com/siahsang/inkwell/internal/filter"
	"github.com/siahsang/inkwell/models"
)

const recentLimit = 5

// Stats summarises the site for the admin dashboard.
func (c *Core) Stats(ctx context.Context, viewer *models.User) (*models.SiteStats, error) {
	if err := requireAdmin(viewer); err != nil {
		return nil, err
	}

	stats := &models.SiteStats{}
	var err error

	if stats.TotalPosts, err = c.store.CountPosts(ctx, nil); err != nil {
		return nil, xerrors.New(err)
	}
	published := true
	if stats.PublishedPosts, err = c.store.CountPosts(ctx, &published); err != nil {
		return nil, xerrors.New(err)
	}
	stats.DraftPosts = stats.TotalPosts - stats.PublishedPosts

	if stats.RecentComments, stats.TotalComments, err = c.store.ListComments(ctx, database.CommentQuery{
		Limit:  recentLimit,
		Newest: true,
	}); err != nil {
		return nil, xerrors.New(err)
	}
	pending := false
	if _, stats.PendingComments, err = c.store.ListComments(ctx, database.CommentQuery{
		Approved: &pending,
		Limit:    1,
	}); err != nil {
		return nil, xerrors.New(err)
	}

	if stats.TotalAuthors, err = c.store.CountAuthors(ctx); err != nil {
		return nil, xerrors.New(err)
	}
	if stats.TotalViews, err = c.store.SumViews(ctx); err != nil {
		return nil, xerrors.New(err)
	}

	if stats.RecentPosts, _, err = c.store.ListPosts(ctx, database.PostQuery{
		Limit:          recentLimit,
		OrderByCreated: true,
	}); err != nil {
		return nil, xerrors.New(err)
	}
	if err := c.annotate(ctx, stats.RecentPosts, nil); err != nil {
		return nil, err
	}
	if err := c.attachAuthors(ctx, stats.RecentComments); err != nil {
		return nil, err
	}
	return stats, nil
}

// AdminPosts pages through every post, newest first. status is
// "published", "draft" or anything else for all; search matches title,
// content and excerpt.
func (c *Core) AdminPosts(ctx context.Context, viewer *models.User, status, search string, f filter.Filter) (*models.PostPage, error) {
	if err := requireAdmin(viewer); err != nil {
		return nil, err
	}
	f = f.Normalize()
	q := database.PostQuery{
		Search:         search,
		Limit:          f.Limit,
		Offset:         f.Offset(),
		OrderByCreated: true,
	}
	switch status {
	case "published":
		published := true
		q.Published = &published
	case "draft":
		published := false
		q.Published = &published
	}
	posts, total, err := c.store.ListPosts(ctx, q)
	if err != nil {
		return nil, xerrors.New(err)
	}
	if err := c.annotate(ctx, posts, nil); err != nil {
		return nil, err
	}
	return &models.PostPage{Posts: posts, Pagination: f.Metadata(total)}, nil
}
