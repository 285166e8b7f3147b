package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/utils/databaseutils"
	"github.com/siahsang/inkwell/internal/utils/stringutils"
	"github.com/siahsang/inkwell/models"
)

const ratingColumns = `id, post_id, user_id, rating, created_at, updated_at`

func scanRating(rows *sql.Rows) (*models.Rating, error) {
	var rating models.Rating
	if err := rows.Scan(&rating.ID, &rating.PostID, &rating.UserID, &rating.Rating, &rating.CreatedAt, &rating.UpdatedAt); err != nil {
		return nil, xerrors.New(err)
	}
	return &rating, nil
}

func (s *PostgresStorage) GetRating(ctx context.Context, postID, userID string) (*models.Rating, error) {
	query := `SELECT ` + ratingColumns + ` FROM ratings WHERE post_id = $1 AND user_id = $2`
	rating, err := databaseutils.ExecuteSingleQuery(s.sqlTemplate, ctx, query, scanRating, postID, userID)
	if err != nil {
		return nil, mapError(err)
	}
	return rating, nil
}

func (s *PostgresStorage) CreateRating(ctx context.Context, rating *models.Rating) error {
	query := `
		INSERT INTO ratings (id, post_id, user_id, rating)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + ratingColumns
	if rating.ID == "" {
		rating.ID = newID()
	}
	created, err := databaseutils.ExecuteSingleQuery(s.sqlTemplate, ctx, query, scanRating,
		rating.ID, rating.PostID, rating.UserID, rating.Rating)
	if err != nil {
		return mapError(err)
	}
	*rating = *created
	return nil
}

func (s *PostgresStorage) UpdateRating(ctx context.Context, rating *models.Rating) error {
	query := `
		UPDATE ratings
		SET rating = $3, updated_at = now()
		WHERE post_id = $1 AND user_id = $2
		RETURNING ` + ratingColumns
	updated, err := databaseutils.ExecuteSingleQuery(s.sqlTemplate, ctx, query, scanRating,
		rating.PostID, rating.UserID, rating.Rating)
	if err != nil {
		return mapError(err)
	}
	*rating = *updated
	return nil
}

func (s *PostgresStorage) RatingsForPosts(ctx context.Context, postIDs []string) ([]*models.Rating, error) {
	if len(postIDs) == 0 {
		return []*models.Rating{}, nil
	}

	placeholders, args := stringutils.INCluse(1, postIDs)
	query := fmt.Sprintf(`
		SELECT %s
		FROM ratings
		WHERE post_id IN (%s)
		ORDER BY created_at
	`, ratingColumns, strings.Join(placeholders, ", "))

	ratings, err := databaseutils.ExecuteQuery(s.sqlTemplate, ctx, query, scanRating, args...)
	if err != nil {
		return nil, mapError(err)
	}
	return orEmpty(ratings), nil
}
