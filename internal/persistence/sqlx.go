package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // registers the "postgres" database/sql driver

	"erythu/portal/internal/config"
)

type sqlxFactory struct {
	db *sqlx.DB
}

func openSQLX(cfg config.UnitConfig) (Factory, error) {
	db, err := sqlx.Open(DriverPostgres, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres database: %w", err)
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(int(cfg.MaxConns))
	}
	return newSQLXFactory(db), nil
}

func newSQLXFactory(db *sqlx.DB) *sqlxFactory {
	return &sqlxFactory{db: db}
}

func (f *sqlxFactory) CreateSession(ctx context.Context) (Session, error) {
	conn, err := f.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	return &sqlxSession{conn: conn}, nil
}

func (f *sqlxFactory) Ping(ctx context.Context) error {
	return f.db.PingContext(ctx)
}

func (f *sqlxFactory) Close() {
	if err := f.db.Close(); err != nil {
		slog.Warn("closing database", "err", err)
	}
}

type sqlxSession struct {
	conn *sqlx.Conn
}

func (s *sqlxSession) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlxTx{tx: tx}, nil
}

func (s *sqlxSession) Close() {
	if err := s.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		slog.Warn("releasing connection", "err", err)
	}
}

type sqlxTx struct {
	tx *sqlx.Tx
}

func (t *sqlxTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t *sqlxTx) Commit(context.Context) error {
	return t.tx.Commit()
}

func (t *sqlxTx) Rollback(context.Context) error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
