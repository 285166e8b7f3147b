// Package postgres implements database.Store on PostgreSQL through lib/pq.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/database"
	"github.com/siahsang/inkwell/internal/utils/databaseutils"
)

//go:embed schema.sql
var schema string

type PostgresStorage struct {
	db          *sql.DB
	log         *slog.Logger
	session     databaseutils.Session
	sqlTemplate *databaseutils.SQLTemplate
}

var _ database.Store = (*PostgresStorage)(nil)

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string, log *slog.Logger, queryTimeout time.Duration) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, xerrors.New(err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(10 * time.Second)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, xerrors.New(err)
	}

	return New(db, log, queryTimeout), nil
}

func New(db *sql.DB, log *slog.Logger, queryTimeout time.Duration) *PostgresStorage {
	session := databaseutils.NewSession(db, log)
	return &PostgresStorage{
		db:          db,
		log:         log,
		session:     session,
		sqlTemplate: databaseutils.NewSQLTemplate(session, queryTimeout),
	}
}

// Migrate creates missing tables and indexes.
func (s *PostgresStorage) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return xerrors.New(err)
	}
	return nil
}

func (s *PostgresStorage) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.session.DoTransactionally(ctx, fn)
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

func newID() string {
	return uuid.NewString()
}

// mapError translates driver errors into the database sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return xerrors.New(database.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return xerrors.New(database.ErrDuplicate)
		case "23503", "22P02":
			// dangling reference or malformed uuid
			return xerrors.New(database.ErrNotFound)
		}
	}
	return xerrors.New(err)
}

func requireAffected(n int64, err error) error {
	if err != nil {
		return mapError(err)
	}
	if n == 0 {
		return xerrors.New(database.ErrNotFound)
	}
	return nil
}
