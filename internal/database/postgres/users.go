package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/utils/databaseutils"
	"github.com/siahsang/inkwell/internal/utils/stringutils"
	"github.com/siahsang/inkwell/models"
)

const userColumns = `id, email, name, password, role, created_at`

func scanUser(rows *sql.Rows) (*models.User, error) {
	var user models.User
	if err := rows.Scan(&user.ID, &user.Email, &user.Name, &user.Password, &user.Role, &user.CreatedAt); err != nil {
		return nil, xerrors.New(err)
	}
	return &user, nil
}

func (s *PostgresStorage) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, name, password, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	if user.ID == "" {
		user.ID = newID()
	}
	err := databaseutils.QueryScalar(s.sqlTemplate, ctx, query, &user.CreatedAt,
		user.ID, user.Email, user.Name, user.Password, user.Role)
	return mapError(err)
}

func (s *PostgresStorage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := databaseutils.ExecuteSingleQuery(s.sqlTemplate, ctx, query, scanUser, id)
	if err != nil {
		return nil, mapError(err)
	}
	return user, nil
}

func (s *PostgresStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	user, err := databaseutils.ExecuteSingleQuery(s.sqlTemplate, ctx, query, scanUser, email)
	if err != nil {
		return nil, mapError(err)
	}
	return user, nil
}

const authorColumns = `a.user_id, a.name, a.email, a.bio, a.avatar_url, a.social_links, a.created_at, a.updated_at`

func scanAuthor(rows *sql.Rows, extra ...any) (*models.Author, error) {
	var author models.Author
	var links []byte
	dest := append([]any{
		&author.UserID, &author.Name, &author.Email, &author.Bio, &author.AvatarURL,
		&links, &author.CreatedAt, &author.UpdatedAt,
	}, extra...)
	if err := rows.Scan(dest...); err != nil {
		return nil, xerrors.New(err)
	}
	if err := json.Unmarshal(links, &author.SocialLinks); err != nil {
		return nil, xerrors.Newf("decode social links: %w", err)
	}
	return &author, nil
}

func (s *PostgresStorage) UpsertAuthor(ctx context.Context, author *models.Author) error {
	query := `
		INSERT INTO authors (user_id, name, email, bio, avatar_url, social_links)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET name = EXCLUDED.name,
		    email = EXCLUDED.email,
		    bio = EXCLUDED.bio,
		    avatar_url = EXCLUDED.avatar_url,
		    social_links = EXCLUDED.social_links,
		    updated_at = now()
		RETURNING created_at, updated_at
	`
	links := author.SocialLinks
	if links == nil {
		links = map[string]string{}
	}
	encoded, err := json.Marshal(links)
	if err != nil {
		return xerrors.New(err)
	}

	_, err = databaseutils.ExecuteSingleQuery(s.sqlTemplate, ctx, query, func(rows *sql.Rows) (*models.Author, error) {
		if err := rows.Scan(&author.CreatedAt, &author.UpdatedAt); err != nil {
			return nil, xerrors.New(err)
		}
		return author, nil
	}, author.UserID, author.Name, author.Email, author.Bio, author.AvatarURL, encoded)
	return mapError(err)
}

func (s *PostgresStorage) GetAuthor(ctx context.Context, userID string) (*models.Author, error) {
	query := `SELECT ` + authorColumns + ` FROM authors a WHERE a.user_id = $1`
	author, err := databaseutils.ExecuteSingleQuery(s.sqlTemplate, ctx, query, func(rows *sql.Rows) (*models.Author, error) {
		return scanAuthor(rows)
	}, userID)
	if err != nil {
		return nil, mapError(err)
	}
	return author, nil
}

func (s *PostgresStorage) GetAuthorsByUserIDs(ctx context.Context, userIDs []string) ([]*models.Author, error) {
	if len(userIDs) == 0 {
		return []*models.Author{}, nil
	}

	placeholders, args := stringutils.INCluse(1, userIDs)
	query := fmt.Sprintf(`
		SELECT %s
		FROM authors a
		WHERE a.user_id IN (%s)
	`, authorColumns, strings.Join(placeholders, ", "))

	authors, err := databaseutils.ExecuteQuery(s.sqlTemplate, ctx, query, func(rows *sql.Rows) (*models.Author, error) {
		return scanAuthor(rows)
	}, args...)
	if err != nil {
		return nil, mapError(err)
	}
	return authors, nil
}

func (s *PostgresStorage) ListAuthors(ctx context.Context, limit, offset int) ([]*models.Author, int, error) {
	total, err := s.CountAuthors(ctx)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + authorColumns + `, count(p.id)
		FROM authors a
		LEFT JOIN posts p ON p.author_id = a.user_id
		GROUP BY a.user_id
		ORDER BY a.created_at DESC
		LIMIT $1 OFFSET $2
	`
	authors, err := databaseutils.ExecuteQuery(s.sqlTemplate, ctx, query, func(rows *sql.Rows) (*models.Author, error) {
		var count int
		author, err := scanAuthor(rows, &count)
		if err != nil {
			return nil, err
		}
		author.PostCount = count
		return author, nil
	}, nullableLimit(limit), offset)
	if err != nil {
		return nil, 0, mapError(err)
	}
	return orEmpty(authors), total, nil
}

func (s *PostgresStorage) CountAuthors(ctx context.Context) (int, error) {
	var n int
	if err := databaseutils.QueryScalar(s.sqlTemplate, ctx, `SELECT count(*) FROM authors`, &n); err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

// nullableLimit turns a zero limit into LIMIT NULL, which Postgres reads as no limit.
func nullableLimit(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
