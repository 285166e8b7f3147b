package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/database"
	"github.com/siahsang/inkwell/internal/utils/databaseutils"
	"github.com/siahsang/inkwell/models"
)

const commentColumns = `c.id, c.post_id, c.author_id, c.author_name, c.author_email, c.content, c.parent_id,
	c.approved, c.created_at, c.updated_at, p.title, p.slug`

func scanComment(rows *sql.Rows) (*models.Comment, error) {
	var comment models.Comment
	if err := rows.Scan(
		&comment.ID,
		&comment.PostID,
		&comment.AuthorID,
		&comment.AuthorName,
		&comment.AuthorEmail,
		&comment.Content,
		&comment.ParentID,
		&comment.Approved,
		&comment.CreatedAt,
		&comment.UpdatedAt,
		&comment.PostTitle,
		&comment.PostSlug,
	); err != nil {
		return nil, xerrors.New(err)
	}
	return &comment, nil
}

func (s *PostgresStorage) CreateComment(ctx context.Context, comment *models.Comment) error {
	query := `
		INSERT INTO comments (id, post_id, author_id, author_name, author_email, content, parent_id, approved)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	if comment.ID == "" {
		comment.ID = newID()
	}
	args := []any{comment.ID, comment.PostID, comment.AuthorID, comment.AuthorName, comment.AuthorEmail,
		comment.Content, comment.ParentID, comment.Approved}

	_, err := databaseutils.ExecuteSingleQuery(s.sqlTemplate, ctx, query, func(rows *sql.Rows) (*models.Comment, error) {
		if err := rows.Scan(&comment.CreatedAt, &comment.UpdatedAt); err != nil {
			return nil, xerrors.New(err)
		}
		return comment, nil
	}, args...)
	return mapError(err)
}

func (s *PostgresStorage) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments c JOIN posts p ON p.id = c.post_id WHERE c.id = $1`
	comment, err := databaseutils.ExecuteSingleQuery(s.sqlTemplate, ctx, query, scanComment, id)
	if err != nil {
		return nil, mapError(err)
	}
	return comment, nil
}

func (s *PostgresStorage) SetCommentApproval(ctx context.Context, id string, approved bool) (*models.Comment, error) {
	err := requireAffected(databaseutils.Exec(s.sqlTemplate, ctx,
		`UPDATE comments SET approved = $2, updated_at = now() WHERE id = $1`, id, approved))
	if err != nil {
		return nil, err
	}
	return s.GetComment(ctx, id)
}

// DeleteComment relies on the parent_id cascade to remove replies.
func (s *PostgresStorage) DeleteComment(ctx context.Context, id string) error {
	return requireAffected(databaseutils.Exec(s.sqlTemplate, ctx, `DELETE FROM comments WHERE id = $1`, id))
}

func (s *PostgresStorage) ListComments(ctx context.Context, q database.CommentQuery) ([]*models.Comment, int, error) {
	var where whereClause
	if q.PostID != "" {
		where.add("c.post_id = $%d", q.PostID)
	}
	if q.TopLevel {
		where.add("c.parent_id IS NULL")
	}
	if q.ParentIDs != nil {
		where.add("c.parent_id = ANY($%d::uuid[])", pq.Array(q.ParentIDs))
	}
	if q.Approved != nil {
		where.add("c.approved = $%d", *q.Approved)
	}

	var total int
	countQuery := `SELECT count(*) FROM comments c ` + where.String()
	if err := databaseutils.QueryScalar(s.sqlTemplate, ctx, countQuery, &total, where.args...); err != nil {
		return nil, 0, mapError(err)
	}

	order := "ASC"
	if q.Newest {
		order = "DESC"
	}
	args := append(where.args, nullableLimit(q.Limit), q.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM comments c
		JOIN posts p ON p.id = c.post_id
		%s
		ORDER BY c.created_at %s, c.id
		LIMIT $%d OFFSET $%d
	`, commentColumns, where.String(), order, len(args)-1, len(args))

	comments, err := databaseutils.ExecuteQuery(s.sqlTemplate, ctx, query, scanComment, args...)
	if err != nil {
		return nil, 0, mapError(err)
	}
	return orEmpty(comments), total, nil
}
