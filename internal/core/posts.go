package core

import (
	"context"
	"errors"
	"strings"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/database"
	"github.com/siahsang/inkwell/internal/filter"
	"github.com/siahsang/inkwell/internal/utils/collectionutils"
	"github.com/siahsang/inkwell/internal/utils/functional"
	"github.com/siahsang/inkwell/internal/utils/stringutils"
	"github.com/siahsang/inkwell/internal/validator"
	"github.com/siahsang/inkwell/models"
)

const maxTitleLength = 200

// PostFilter selects published posts for a listing page.
type PostFilter struct {
	Category string
	Tag      string
	AuthorID string
	Featured *bool
	Search   string
	filter.Filter
}

// PostInput is a create or update request. Nil fields are left untouched
// on update; nil Categories or Tags keep the existing links.
type PostInput struct {
	Title        *string  `json:"title"`
	Content      *string  `json:"content"`
	Excerpt      *string  `json:"excerpt"`
	ThumbnailURL *string  `json:"thumbnail_url"`
	Featured     *bool    `json:"featured"`
	Published    *bool    `json:"published"`
	Categories   []string `json:"categories"`
	Tags         []string `json:"tags"`
}

func emptyPostPage(f filter.Filter) *models.PostPage {
	return &models.PostPage{Posts: []*models.Post{}, Pagination: f.Metadata(0)}
}

func (c *Core) ListPosts(ctx context.Context, pf PostFilter) (*models.PostPage, error) {
	f := pf.Filter.Normalize()

	var ids []string
	if pf.Category != "" {
		category, err := c.store.GetCategoryBySlug(ctx, pf.Category)
		if errors.Is(err, database.ErrNotFound) {
			return emptyPostPage(f), nil
		}
		if err != nil {
			return nil, xerrors.New(err)
		}
		ids, err = c.store.PostIDsForCategories(ctx, []string{category.ID})
		if err != nil {
			return nil, xerrors.New(err)
		}
		if len(ids) == 0 {
			return emptyPostPage(f), nil
		}
	}
	if pf.Tag != "" {
		tag, err := c.store.GetTagBySlug(ctx, pf.Tag)
		if errors.Is(err, database.ErrNotFound) {
			return emptyPostPage(f), nil
		}
		if err != nil {
			return nil, xerrors.New(err)
		}
		tagged, err := c.store.PostIDsForTags(ctx, []string{tag.ID})
		if err != nil {
			return nil, xerrors.New(err)
		}
		if ids == nil {
			ids = tagged
		} else {
			ids = functional.Intersect(ids, tagged)
		}
		if len(ids) == 0 {
			return emptyPostPage(f), nil
		}
	}

	published := true
	posts, total, err := c.store.ListPosts(ctx, database.PostQuery{
		IDs:       ids,
		AuthorID:  pf.AuthorID,
		Featured:  pf.Featured,
		Published: &published,
		Search:    pf.Search,
		Limit:     f.Limit,
		Offset:    f.Offset(),
	})
	if err != nil {
		return nil, xerrors.New(err)
	}
	if err := c.annotate(ctx, posts, nil); err != nil {
		return nil, err
	}
	return &models.PostPage{Posts: posts, Pagination: f.Metadata(total)}, nil
}

// annotate fills the response-only fields of posts: author profile, terms
// and rating aggregate, plus viewer's own rating when viewer is set.
func (c *Core) annotate(ctx context.Context, posts []*models.Post, viewer *models.User) error {
	if len(posts) == 0 {
		return nil
	}
	postIDs := functional.Map(posts, func(p *models.Post) string { return p.ID })

	authorIDs := functional.Distinct(functional.Map(posts, func(p *models.Post) string { return p.AuthorID }))
	authors, err := c.store.GetAuthorsByUserIDs(ctx, authorIDs)
	if err != nil {
		return xerrors.New(err)
	}
	authorsByID := collectionutils.Associate(authors, func(a *models.Author) (string, *models.Author) { return a.UserID, a })

	categories, err := c.store.CategoriesForPosts(ctx, postIDs)
	if err != nil {
		return xerrors.New(err)
	}
	tags, err := c.store.TagsForPosts(ctx, postIDs)
	if err != nil {
		return xerrors.New(err)
	}
	ratings, err := c.store.RatingsForPosts(ctx, postIDs)
	if err != nil {
		return xerrors.New(err)
	}
	ratingsByPost := collectionutils.GroupBy(ratings, func(r *models.Rating) string { return r.PostID })

	for _, post := range posts {
		post.Author = authorsByID[post.AuthorID]
		post.Categories = collectionutils.GetOrDefault(categories, post.ID, []*models.Category{})
		post.Tags = collectionutils.GetOrDefault(tags, post.ID, []*models.Tag{})

		postRatings := ratingsByPost[post.ID]
		post.RatingCount = len(postRatings)
		post.AverageRating = nil
		post.UserRating = nil
		if len(postRatings) > 0 {
			sum := 0
			for _, r := range postRatings {
				sum += r.Rating
				if viewer != nil && r.UserID == viewer.ID {
					value := r.Rating
					post.UserRating = &value
				}
			}
			avg := float64(sum) / float64(len(postRatings))
			post.AverageRating = &avg
		}
	}
	return nil
}

// GetPost returns a post visible to viewer and counts the read.
func (c *Core) GetPost(ctx context.Context, viewer *models.User, id string) (*models.Post, error) {
	post, err := c.store.GetPostByID(ctx, id)
	if err != nil {
		return nil, xerrors.New(err)
	}
	return c.readPost(ctx, viewer, post)
}

func (c *Core) GetPostBySlug(ctx context.Context, viewer *models.User, slug string) (*models.Post, error) {
	post, err := c.store.GetPostBySlug(ctx, slug)
	if err != nil {
		return nil, xerrors.New(err)
	}
	return c.readPost(ctx, viewer, post)
}

func (c *Core) readPost(ctx context.Context, viewer *models.User, post *models.Post) (*models.Post, error) {
	if !canSee(post, viewer) {
		return nil, xerrors.New(ErrNotFound)
	}
	if err := c.store.IncrementViews(ctx, post.ID); err != nil {
		return nil, xerrors.New(err)
	}
	post.Views++
	if err := c.annotate(ctx, []*models.Post{post}, viewer); err != nil {
		return nil, err
	}
	return post, nil
}

// PostForEdit loads a post by slug for its owner without counting a view.
func (c *Core) PostForEdit(ctx context.Context, viewer *models.User, slug string) (*models.Post, error) {
	if err := requireUser(viewer); err != nil {
		return nil, err
	}
	post, err := c.store.GetPostBySlug(ctx, slug)
	if err != nil {
		return nil, xerrors.New(err)
	}
	if post.AuthorID != viewer.ID {
		return nil, xerrors.New(ErrForbidden)
	}
	return c.loadPost(ctx, viewer, post.ID)
}

func (c *Core) loadPost(ctx context.Context, viewer *models.User, id string) (*models.Post, error) {
	post, err := c.store.GetPostByID(ctx, id)
	if err != nil {
		return nil, xerrors.New(err)
	}
	if err := c.annotate(ctx, []*models.Post{post}, viewer); err != nil {
		return nil, err
	}
	return post, nil
}

// ResolveSlug returns the id of a post viewer may read, without counting
// a view. Form handlers use it before commenting or rating.
func (c *Core) ResolveSlug(ctx context.Context, viewer *models.User, slug string) (string, error) {
	post, err := c.store.GetPostBySlug(ctx, slug)
	if err != nil {
		return "", xerrors.New(err)
	}
	if !canSee(post, viewer) {
		return "", xerrors.New(ErrNotFound)
	}
	return post.ID, nil
}

// visiblePost loads a post viewer may read, without annotations.
func (c *Core) visiblePost(ctx context.Context, viewer *models.User, id string) (*models.Post, error) {
	post, err := c.store.GetPostByID(ctx, id)
	if err != nil {
		return nil, xerrors.New(err)
	}
	if !canSee(post, viewer) {
		return nil, xerrors.New(ErrNotFound)
	}
	return post, nil
}

func validatePostInput(in PostInput, creating bool) error {
	v := validator.New()
	if creating || in.Title != nil {
		v.CheckNotBlank(stringutils.Deref(in.Title), "title", "must be provided")
		v.CheckMaxChars(strings.TrimSpace(stringutils.Deref(in.Title)), maxTitleLength, "title")
	}
	if creating || in.Content != nil {
		v.CheckNotBlank(stringutils.Deref(in.Content), "content", "must be provided")
	}
	if !v.IsValid() {
		return invalid(v.Errors)
	}
	return nil
}

func (c *Core) CreatePost(ctx context.Context, viewer *models.User, in PostInput) (*models.Post, error) {
	if err := requireUser(viewer); err != nil {
		return nil, err
	}
	if err := validatePostInput(in, true); err != nil {
		return nil, err
	}

	now := c.now()
	post := &models.Post{
		Title:        strings.TrimSpace(*in.Title),
		Content:      *in.Content,
		Excerpt:      stringutils.NilIfBlank(stringutils.Deref(in.Excerpt)),
		ThumbnailURL: stringutils.NilIfBlank(stringutils.Deref(in.ThumbnailURL)),
		AuthorID:     viewer.ID,
		Featured:     in.Featured != nil && *in.Featured,
		Published:    in.Published != nil && *in.Published,
		ReadingTime:  ReadingTime(*in.Content),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if post.Published {
		post.PublishedAt = &now
	}

	// A concurrent writer can take the slug between the check and the
	// insert; the second attempt sees it and picks a suffix.
	var err error
	for attempt := range createAttempts {
		err = c.store.WithinTx(ctx, func(ctx context.Context) error {
			slug, err := c.uniqueSlug(ctx, post.Title)
			if err != nil {
				return err
			}
			post.Slug = slug
			if err := c.store.CreatePost(ctx, post); err != nil {
				return xerrors.New(err)
			}
			return c.linkTerms(ctx, post.ID, in.Categories, in.Tags)
		})
		if !errors.Is(err, database.ErrDuplicate) {
			break
		}
		c.log.Warn("post slug taken concurrently", "slug", post.Slug, "attempt", attempt+1)
		post.ID = ""
	}
	if err != nil {
		return nil, err
	}

	c.log.Info("post created", "post_id", post.ID, "slug", post.Slug, "author_id", viewer.ID)
	c.invalidateFeeds(ctx)
	return c.loadPost(ctx, viewer, post.ID)
}

func (c *Core) UpdatePost(ctx context.Context, viewer *models.User, id string, in PostInput) (*models.Post, error) {
	post, err := c.ownedPost(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if err := validatePostInput(in, false); err != nil {
		return nil, err
	}

	if in.Title != nil {
		post.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		post.Content = *in.Content
		post.ReadingTime = ReadingTime(post.Content)
	}
	if in.Excerpt != nil {
		post.Excerpt = stringutils.NilIfBlank(*in.Excerpt)
	}
	if in.ThumbnailURL != nil {
		post.ThumbnailURL = stringutils.NilIfBlank(*in.ThumbnailURL)
	}
	if in.Featured != nil {
		post.Featured = *in.Featured
	}
	if in.Published != nil {
		post.Published = *in.Published
		if post.Published && post.PublishedAt == nil {
			now := c.now()
			post.PublishedAt = &now
		}
	}

	err = c.store.WithinTx(ctx, func(ctx context.Context) error {
		if err := c.store.UpdatePost(ctx, post); err != nil {
			return xerrors.New(err)
		}
		return c.linkTerms(ctx, post.ID, in.Categories, in.Tags)
	})
	if err != nil {
		return nil, err
	}

	c.invalidateFeeds(ctx)
	return c.loadPost(ctx, viewer, post.ID)
}

func (c *Core) DeletePost(ctx context.Context, viewer *models.User, id string) error {
	post, err := c.ownedPost(ctx, viewer, id)
	if err != nil {
		return err
	}
	if err := c.store.DeletePost(ctx, post.ID); err != nil {
		return xerrors.New(err)
	}
	c.log.Info("post deleted", "post_id", post.ID, "author_id", viewer.ID)
	c.invalidateFeeds(ctx)
	return nil
}

func (c *Core) ownedPost(ctx context.Context, viewer *models.User, id string) (*models.Post, error) {
	if err := requireUser(viewer); err != nil {
		return nil, err
	}
	post, err := c.store.GetPostByID(ctx, id)
	if err != nil {
		return nil, xerrors.New(err)
	}
	if post.AuthorID != viewer.ID {
		return nil, xerrors.New(ErrForbidden)
	}
	return post, nil
}

// AuthorPosts lists an author's published posts.
func (c *Core) AuthorPosts(ctx context.Context, authorID string, f filter.Filter) (*models.Author, *models.PostPage, error) {
	author, err := c.store.GetAuthor(ctx, authorID)
	if err != nil {
		return nil, nil, xerrors.New(err)
	}
	page, err := c.ListPosts(ctx, PostFilter{AuthorID: authorID, Filter: f})
	if err != nil {
		return nil, nil, err
	}
	return author, page, nil
}

// DraftsOf lists viewer's unpublished posts, newest first.
func (c *Core) DraftsOf(ctx context.Context, viewer *models.User, f filter.Filter) (*models.PostPage, error) {
	if err := requireUser(viewer); err != nil {
		return nil, err
	}
	f = f.Normalize()
	published := false
	posts, total, err := c.store.ListPosts(ctx, database.PostQuery{
		AuthorID:       viewer.ID,
		Published:      &published,
		Limit:          f.Limit,
		Offset:         f.Offset(),
		OrderByCreated: true,
	})
	if err != nil {
		return nil, xerrors.New(err)
	}
	if err := c.annotate(ctx, posts, viewer); err != nil {
		return nil, err
	}
	return &models.PostPage{Posts: posts, Pagination: f.Metadata(total)}, nil
}
