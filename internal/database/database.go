// Package database defines the persistence boundary of the blog. Adapters
// live in the postgres and memory subpackages.
package database

import (
	"context"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/models"
)

var (
	ErrNotFound    = xerrors.Message("record not found")
	ErrDuplicate   = xerrors.Message("duplicate record")
	ErrUnsupported = xerrors.Message("operation not supported by this store")
)

// PostQuery filters a post listing. Nil fields are not applied.
type PostQuery struct {
	IDs       []string
	AuthorID  string
	Featured  *bool
	Published *bool
	Search    string
	ExcludeID string
	Limit     int
	Offset    int
	// OrderByCreated orders by creation time instead of publication time.
	OrderByCreated bool
}

// CommentQuery filters a comment listing.
type CommentQuery struct {
	PostID    string
	ParentIDs []string
	// TopLevel restricts to comments without a parent.
	TopLevel bool
	Approved *bool
	Limit    int
	Offset   int
	// Newest orders by creation time descending.
	Newest bool
}

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type AuthorStore interface {
	UpsertAuthor(ctx context.Context, author *models.Author) error
	GetAuthor(ctx context.Context, userID string) (*models.Author, error)
	GetAuthorsByUserIDs(ctx context.Context, userIDs []string) ([]*models.Author, error)
	// ListAuthors returns a page of authors with their post counts.
	ListAuthors(ctx context.Context, limit, offset int) ([]*models.Author, int, error)
	CountAuthors(ctx context.Context) (int, error)
}

type PostStore interface {
	CreatePost(ctx context.Context, post *models.Post) error
	UpdatePost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, id string) error
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	GetPostBySlug(ctx context.Context, slug string) (*models.Post, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	// ListPosts returns the requested window and the total match count.
	ListPosts(ctx context.Context, q PostQuery) ([]*models.Post, int, error)
	// SearchPosts runs ranked full-text search over published posts.
	SearchPosts(ctx context.Context, query string, limit int) ([]*models.Post, error)
	IncrementViews(ctx context.Context, id string) error
	CountPosts(ctx context.Context, published *bool) (int, error)
	// SumViews totals the views of published posts.
	SumViews(ctx context.Context) (int64, error)
}

type TaxonomyStore interface {
	GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	// ListCategories orders by name and fills PostCount with published posts.
	ListCategories(ctx context.Context) ([]*models.Category, error)
	CategoriesForPosts(ctx context.Context, postIDs []string) (map[string][]*models.Category, error)
	ReplacePostCategories(ctx context.Context, postID string, categoryIDs []string) error
	PostIDsForCategories(ctx context.Context, categoryIDs []string) ([]string, error)

	GetTagBySlug(ctx context.Context, slug string) (*models.Tag, error)
	CreateTag(ctx context.Context, tag *models.Tag) error
	ListTags(ctx context.Context) ([]*models.Tag, error)
	TagsForPosts(ctx context.Context, postIDs []string) (map[string][]*models.Tag, error)
	ReplacePostTags(ctx context.Context, postID string, tagIDs []string) error
	PostIDsForTags(ctx context.Context, tagIDs []string) ([]string, error)
}

type CommentStore interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetComment(ctx context.Context, id string) (*models.Comment, error)
	SetCommentApproval(ctx context.Context, id string, approved bool) (*models.Comment, error)
	// DeleteComment removes the comment and its replies.
	DeleteComment(ctx context.Context, id string) error
	ListComments(ctx context.Context, q CommentQuery) ([]*models.Comment, int, error)
}

type RatingStore interface {
	GetRating(ctx context.Context, postID, userID string) (*models.Rating, error)
	CreateRating(ctx context.Context, rating *models.Rating) error
	UpdateRating(ctx context.Context, rating *models.Rating) error
	RatingsForPosts(ctx context.Context, postIDs []string) ([]*models.Rating, error)
}

// Store is the whole collaborator surface.
type Store interface {
	UserStore
	AuthorStore
	PostStore
	TaxonomyStore
	CommentStore
	RatingStore

	// WithinTx runs fn so that every store call made with the context it
	// receives commits or rolls back together.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	Close() error
}
