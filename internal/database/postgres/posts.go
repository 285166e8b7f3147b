package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/database"
	"github.com/siahsang/inkwell/internal/utils/databaseutils"
	"github.com/siahsang/inkwell/models"
)

const postColumns = `p.id, p.title, p.slug, p.content, p.excerpt, p.thumbnail_url, p.author_id, p.featured,
	p.published, p.published_at, p.reading_time, p.views, p.created_at, p.updated_at`

func scanPost(rows *sql.Rows) (*models.Post, error) {
	var post models.Post
	if err := rows.Scan(
		&post.ID,
		&post.Title,
		&post.Slug,
		&post.Content,
		&post.Excerpt,
		&post.ThumbnailURL,
		&post.AuthorID,
		&post.Featured,
		&post.Published,
		&post.PublishedAt,
		&post.ReadingTime,
		&post.Views,
		&post.CreatedAt,
		&post.UpdatedAt,
	); err != nil {
		return nil, xerrors.New(err)
	}
	return &post, nil
}

func (s *PostgresStorage) CreatePost(ctx context.Context, post *models.Post) error {
	query := `
		INSERT INTO posts (id, title, slug, content, excerpt, thumbnail_url, author_id, featured,
		                   published, published_at, reading_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`
	if post.ID == "" {
		post.ID = newID()
	}
	args := []any{post.ID, post.Title, post.Slug, post.Content, post.Excerpt, post.ThumbnailURL,
		post.AuthorID, post.Featured, post.Published, post.PublishedAt, post.ReadingTime}

	_, err := databaseutils.ExecuteSingleQuery(s.sqlTemplate, ctx, query, func(rows *sql.Rows) (*models.Post, error) {
		if err := rows.Scan(&post.CreatedAt, &post.UpdatedAt); err != nil {
			return nil, xerrors.New(err)
		}
		return post, nil
	}, args...)
	return mapError(err)
}

func (s *PostgresStorage) UpdatePost(ctx context.Context, post *models.Post) error {
	query := `
		UPDATE posts
		SET title = $2, slug = $3, content = $4, excerpt = $5, thumbnail_url = $6, featured = $7,
		    published = $8, published_at = $9, reading_time = $10, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at, views
	`
	args := []any{post.ID, post.Title, post.Slug, post.Content, post.Excerpt, post.ThumbnailURL,
		post.Featured, post.Published, post.PublishedAt, post.ReadingTime}

	_, err := databaseutils.ExecuteSingleQuery(s.sqlTemplate, ctx, query, func(rows *sql.Rows) (*models.Post, error) {
		if err := rows.Scan(&post.CreatedAt, &post.UpdatedAt, &post.Views); err != nil {
			return nil, xerrors.New(err)
		}
		return post, nil
	}, args...)
	return mapError(err)
}

func (s *PostgresStorage) DeletePost(ctx context.Context, id string) error {
	return requireAffected(databaseutils.Exec(s.sqlTemplate, ctx, `DELETE FROM posts WHERE id = $1`, id))
}

func (s *PostgresStorage) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts p WHERE p.id = $1`
	post, err := databaseutils.ExecuteSingleQuery(s.sqlTemplate, ctx, query, scanPost, id)
	if err != nil {
		return nil, mapError(err)
	}
	return post, nil
}

func (s *PostgresStorage) GetPostBySlug(ctx context.Context, slug string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts p WHERE p.slug = $1`
	post, err := databaseutils.ExecuteSingleQuery(s.sqlTemplate, ctx, query, scanPost, slug)
	if err != nil {
		return nil, mapError(err)
	}
	return post, nil
}

func (s *PostgresStorage) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := databaseutils.QueryScalar(s.sqlTemplate, ctx, `SELECT EXISTS (SELECT 1 FROM posts WHERE slug = $1)`, &exists, slug)
	if err != nil {
		return false, mapError(err)
	}
	return exists, nil
}

// whereClause accumulates AND-ed conditions with positional arguments.
type whereClause struct {
	conditions []string
	args       []any
}

// add appends a condition; each %d in cond is replaced by the next placeholder.
func (w *whereClause) add(cond string, args ...any) {
	indexes := make([]any, len(args))
	for i, arg := range args {
		w.args = append(w.args, arg)
		indexes[i] = len(w.args)
	}
	w.conditions = append(w.conditions, fmt.Sprintf(cond, indexes...))
}

func (w *whereClause) String() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conditions, " AND ")
}

func (s *PostgresStorage) ListPosts(ctx context.Context, q database.PostQuery) ([]*models.Post, int, error) {
	if q.IDs != nil && len(q.IDs) == 0 {
		return []*models.Post{}, 0, nil
	}

	var where whereClause
	if q.IDs != nil {
		where.add("p.id = ANY($%d::uuid[])", pq.Array(q.IDs))
	}
	if q.AuthorID != "" {
		where.add("p.author_id = $%d", q.AuthorID)
	}
	if q.Featured != nil {
		where.add("p.featured = $%d", *q.Featured)
	}
	if q.Published != nil {
		where.add("p.published = $%d", *q.Published)
	}
	if q.ExcludeID != "" {
		where.add("p.id <> $%d", q.ExcludeID)
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		where.add(`(p.title ILIKE $%[1]d OR p.content ILIKE $%[1]d OR coalesce(p.excerpt, '') ILIKE $%[1]d)`, likePattern(search))
	}

	var total int
	countQuery := `SELECT count(*) FROM posts p ` + where.String()
	if err := databaseutils.QueryScalar(s.sqlTemplate, ctx, countQuery, &total, where.args...); err != nil {
		return nil, 0, mapError(err)
	}

	order := "coalesce(p.published_at, p.created_at) DESC"
	if q.OrderByCreated {
		order = "p.created_at DESC"
	}
	args := append(where.args, nullableLimit(q.Limit), q.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM posts p
		%s
		ORDER BY %s, p.created_at DESC, p.id
		LIMIT $%d OFFSET $%d
	`, postColumns, where.String(), order, len(args)-1, len(args))

	posts, err := databaseutils.ExecuteQuery(s.sqlTemplate, ctx, query, scanPost, args...)
	if err != nil {
		return nil, 0, mapError(err)
	}
	return orEmpty(posts), total, nil
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func (s *PostgresStorage) SearchPosts(ctx context.Context, query string, limit int) ([]*models.Post, error) {
	sqlQuery := `
		SELECT ` + postColumns + `
		FROM posts p, websearch_to_tsquery('english', $1) q
		WHERE p.published AND p.search @@ q
		ORDER BY ts_rank(p.search, q) DESC, p.published_at DESC
		LIMIT $2
	`
	posts, err := databaseutils.ExecuteQuery(s.sqlTemplate, ctx, sqlQuery, scanPost, query, limit)
	if err != nil {
		return nil, mapError(err)
	}
	return orEmpty(posts), nil
}

func (s *PostgresStorage) IncrementViews(ctx context.Context, id string) error {
	return requireAffected(databaseutils.Exec(s.sqlTemplate, ctx, `UPDATE posts SET views = views + 1 WHERE id = $1`, id))
}

func (s *PostgresStorage) CountPosts(ctx context.Context, published *bool) (int, error) {
	var n int
	var err error
	if published == nil {
		err = databaseutils.QueryScalar(s.sqlTemplate, ctx, `SELECT count(*) FROM posts`, &n)
	} else {
		err = databaseutils.QueryScalar(s.sqlTemplate, ctx, `SELECT count(*) FROM posts WHERE published = $1`, &n, *published)
	}
	if err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

func (s *PostgresStorage) SumViews(ctx context.Context) (int64, error) {
	var total int64
	err := databaseutils.QueryScalar(s.sqlTemplate, ctx, `SELECT coalesce(sum(views), 0) FROM posts WHERE published`, &total)
	if err != nil {
		return 0, mapError(err)
	}
	return total, nil
}
