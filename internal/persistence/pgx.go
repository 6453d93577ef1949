package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"erythu/portal/internal/config"
)

type pgxFactory struct {
	pool *pgxpool.Pool
}

func openPGX(ctx context.Context, cfg config.UnitConfig) (Factory, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing postgres DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("opening postgres pool: %w", err)
	}
	return &pgxFactory{pool: pool}, nil
}

func (f *pgxFactory) CreateSession(ctx context.Context) (Session, error) {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	return &pgxSession{conn: conn}, nil
}

func (f *pgxFactory) Ping(ctx context.Context) error {
	return f.pool.Ping(ctx)
}

func (f *pgxFactory) Close() {
	f.pool.Close()
}

type pgxSession struct {
	conn *pgxpool.Conn
}

func (s *pgxSession) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxTx{tx: tx}, nil
}

func (s *pgxSession) Close() {
	s.conn.Release()
}

type pgxTx struct {
	tx pgx.Tx
}

func (t *pgxTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *pgxTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback treats an already-closed transaction as rolled back; pgx closes
// the transaction itself when Commit fails.
func (t *pgxTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}
