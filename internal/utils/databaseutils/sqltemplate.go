package databaseutils

import (
	"context"
	"database/sql"
	"time"
)

// SQLTemplate runs queries against the executor found in the context with a
// per-query timeout.
type SQLTemplate struct {
	Session Session
	Timeout time.Duration
}

func NewSQLTemplate(session Session, timeout time.Duration) *SQLTemplate {
	return &SQLTemplate{
		Session: session,
		Timeout: timeout,
	}
}

func ExecuteQuery[T any](sqlTemplate *SQLTemplate, ctx context.Context, query string, extractor func(rows *sql.Rows) (T, error), args ...any) ([]T, error) {
	ctx, cancel := context.WithTimeout(ctx, sqlTemplate.Timeout)
	defer cancel()
	rows, err := sqlTemplate.Session.GetExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []T
	for rows.Next() {
		t, err := extractor(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// ExecuteSingleQuery returns sql.ErrNoRows when the query yields nothing.
func ExecuteSingleQuery[T any](sqlTemplate *SQLTemplate, ctx context.Context, query string, extractor func(rows *sql.Rows) (T, error), args ...any) (T, error) {
	var zero T
	results, err := ExecuteQuery(sqlTemplate, ctx, query, extractor, args...)
	if err != nil {
		return zero, err
	}
	if len(results) == 0 {
		return zero, sql.ErrNoRows
	}
	return results[0], nil
}

// Exec returns the number of affected rows.
func Exec(sqlTemplate *SQLTemplate, ctx context.Context, query string, args ...any) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, sqlTemplate.Timeout)
	defer cancel()
	result, err := sqlTemplate.Session.GetExecutor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// QueryScalar scans a single-column, single-row result into dst.
func QueryScalar(sqlTemplate *SQLTemplate, ctx context.Context, query string, dst any, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, sqlTemplate.Timeout)
	defer cancel()
	return sqlTemplate.Session.GetExecutor(ctx).QueryRowContext(ctx, query, args...).Scan(dst)
}
