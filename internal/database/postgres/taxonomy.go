package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/utils/databaseutils"
	"github.com/siahsang/inkwell/internal/utils/stringutils"
	"github.com/siahsang/inkwell/models"
)

func scanCategory(rows *sql.Rows) (*models.Category, error) {
	var category models.Category
	if err := rows.Scan(&category.ID, &category.Name, &category.Slug, &category.Description, &category.CreatedAt); err != nil {
		return nil, xerrors.New(err)
	}
	return &category, nil
}

func scanTag(rows *sql.Rows) (*models.Tag, error) {
	var tag models.Tag
	if err := rows.Scan(&tag.ID, &tag.Name, &tag.Slug, &tag.CreatedAt); err != nil {
		return nil, xerrors.New(err)
	}
	return &tag, nil
}

func (s *PostgresStorage) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	query := `SELECT id, name, slug, description, created_at FROM categories WHERE slug = $1`
	category, err := databaseutils.ExecuteSingleQuery(s.sqlTemplate, ctx, query, scanCategory, slug)
	if err != nil {
		return nil, mapError(err)
	}
	return category, nil
}

func (s *PostgresStorage) CreateCategory(ctx context.Context, category *models.Category) error {
	query := `
		INSERT INTO categories (id, name, slug, description)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	if category.ID == "" {
		category.ID = newID()
	}
	err := databaseutils.QueryScalar(s.sqlTemplate, ctx, query, &category.CreatedAt,
		category.ID, category.Name, category.Slug, category.Description)
	return mapError(err)
}

func (s *PostgresStorage) ListCategories(ctx context.Context) ([]*models.Category, error) {
	query := `
		SELECT c.id, c.name, c.slug, c.description, c.created_at, count(p.id)
		FROM categories c
		LEFT JOIN post_categories pc ON pc.category_id = c.id
		LEFT JOIN posts p ON p.id = pc.post_id AND p.published
		GROUP BY c.id
		ORDER BY c.name
	`
	categories, err := databaseutils.ExecuteQuery(s.sqlTemplate, ctx, query, func(rows *sql.Rows) (*models.Category, error) {
		var category models.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.Slug, &category.Description,
			&category.CreatedAt, &category.PostCount); err != nil {
			return nil, xerrors.New(err)
		}
		return &category, nil
	})
	if err != nil {
		return nil, mapError(err)
	}
	return orEmpty(categories), nil
}

func (s *PostgresStorage) CategoriesForPosts(ctx context.Context, postIDs []string) (map[string][]*models.Category, error) {
	result := make(map[string][]*models.Category, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}

	placeholders, args := stringutils.INCluse(1, postIDs)
	query := fmt.Sprintf(`
		SELECT pc.post_id, c.id, c.name, c.slug, c.description, c.created_at
		FROM post_categories pc
		JOIN categories c ON c.id = pc.category_id
		WHERE pc.post_id IN (%s)
		ORDER BY c.name
	`, strings.Join(placeholders, ", "))

	type link struct {
		postID   string
		category *models.Category
	}
	links, err := databaseutils.ExecuteQuery(s.sqlTemplate, ctx, query, func(rows *sql.Rows) (link, error) {
		var l link
		l.category = &models.Category{}
		err := rows.Scan(&l.postID, &l.category.ID, &l.category.Name, &l.category.Slug,
			&l.category.Description, &l.category.CreatedAt)
		return l, err
	}, args...)
	if err != nil {
		return nil, mapError(err)
	}
	for _, l := range links {
		result[l.postID] = append(result[l.postID], l.category)
	}
	return result, nil
}

func (s *PostgresStorage) ReplacePostCategories(ctx context.Context, postID string, categoryIDs []string) error {
	return s.session.DoTransactionally(ctx, func(txCtx context.Context) error {
		if _, err := databaseutils.Exec(s.sqlTemplate, txCtx, `DELETE FROM post_categories WHERE post_id = $1`, postID); err != nil {
			return mapError(err)
		}
		if len(categoryIDs) == 0 {
			return nil
		}
		_, err := databaseutils.Exec(s.sqlTemplate, txCtx, `
			INSERT INTO post_categories (post_id, category_id)
			SELECT $1, unnest($2::uuid[])
			ON CONFLICT DO NOTHING
		`, postID, pq.Array(categoryIDs))
		return mapError(err)
	})
}

func (s *PostgresStorage) PostIDsForCategories(ctx context.Context, categoryIDs []string) ([]string, error) {
	return s.linkedPosts(ctx, `SELECT DISTINCT post_id FROM post_categories WHERE category_id = ANY($1::uuid[]) ORDER BY post_id`, categoryIDs)
}

func (s *PostgresStorage) GetTagBySlug(ctx context.Context, slug string) (*models.Tag, error) {
	query := `SELECT id, name, slug, created_at FROM tags WHERE slug = $1`
	tag, err := databaseutils.ExecuteSingleQuery(s.sqlTemplate, ctx, query, scanTag, slug)
	if err != nil {
		return nil, mapError(err)
	}
	return tag, nil
}

func (s *PostgresStorage) CreateTag(ctx context.Context, tag *models.Tag) error {
	query := `
		INSERT INTO tags (id, name, slug)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	if tag.ID == "" {
		tag.ID = newID()
	}
	err := databaseutils.QueryScalar(s.sqlTemplate, ctx, query, &tag.CreatedAt, tag.ID, tag.Name, tag.Slug)
	return mapError(err)
}

func (s *PostgresStorage) ListTags(ctx context.Context) ([]*models.Tag, error) {
	tags, err := databaseutils.ExecuteQuery(s.sqlTemplate, ctx, `SELECT id, name, slug, created_at FROM tags ORDER BY name`, scanTag)
	if err != nil {
		return nil, mapError(err)
	}
	return orEmpty(tags), nil
}

func (s *PostgresStorage) TagsForPosts(ctx context.Context, postIDs []string) (map[string][]*models.Tag, error) {
	result := make(map[string][]*models.Tag, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}

	placeholders, args := stringutils.INCluse(1, postIDs)
	query := fmt.Sprintf(`
		SELECT pt.post_id, t.id, t.name, t.slug, t.created_at
		FROM post_tags pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE pt.post_id IN (%s)
		ORDER BY t.name
	`, strings.Join(placeholders, ", "))

	type link struct {
		postID string
		tag    *models.Tag
	}
	links, err := databaseutils.ExecuteQuery(s.sqlTemplate, ctx, query, func(rows *sql.Rows) (link, error) {
		var l link
		l.tag = &models.Tag{}
		err := rows.Scan(&l.postID, &l.tag.ID, &l.tag.Name, &l.tag.Slug, &l.tag.CreatedAt)
		return l, err
	}, args...)
	if err != nil {
		return nil, mapError(err)
	}
	for _, l := range links {
		result[l.postID] = append(result[l.postID], l.tag)
	}
	return result, nil
}

func (s *PostgresStorage) ReplacePostTags(ctx context.Context, postID string, tagIDs []string) error {
	return s.session.DoTransactionally(ctx, func(txCtx context.Context) error {
		if _, err := databaseutils.Exec(s.sqlTemplate, txCtx, `DELETE FROM post_tags WHERE post_id = $1`, postID); err != nil {
			return mapError(err)
		}
		if len(tagIDs) == 0 {
			return nil
		}
		_, err := databaseutils.Exec(s.sqlTemplate, txCtx, `
			INSERT INTO post_tags (post_id, tag_id)
			SELECT $1, unnest($2::uuid[])
			ON CONFLICT DO NOTHING
		`, postID, pq.Array(tagIDs))
		return mapError(err)
	})
}

func (s *PostgresStorage) PostIDsForTags(ctx context.Context, tagIDs []string) ([]string, error) {
	return s.linkedPosts(ctx, `SELECT DISTINCT post_id FROM post_tags WHERE tag_id = ANY($1::uuid[]) ORDER BY post_id`, tagIDs)
}

func (s *PostgresStorage) linkedPosts(ctx context.Context, query string, termIDs []string) ([]string, error) {
	if len(termIDs) == 0 {
		return []string{}, nil
	}
	ids, err := databaseutils.ExecuteQuery(s.sqlTemplate, ctx, query, func(rows *sql.Rows) (string, error) {
		var id string
		err := rows.Scan(&id)
		return id, err
	}, pq.Array(termIDs))
	if err != nil {
		return nil, mapError(err)
	}
	return orEmpty(ids), nil
}
