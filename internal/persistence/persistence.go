// Package persistence opens named persistence units and runs a unit of work
// inside a single transaction with guaranteed cleanup.
//
// A unit resolves to a Factory (a connection pool), which hands out Sessions
// (one pooled connection each), which begin Txs. Two backends are provided:
// pgx ("pgx", the default) and database/sql through sqlx and lib/pq
// ("postgres").
package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"erythu/portal/internal/config"
)

// Driver names accepted in config.UnitConfig.Driver.
const (
	DriverPGX      = "pgx"
	DriverPostgres = "postgres"
)

var (
	// ErrUnknownUnit is returned when a unit name is not present in config.
	ErrUnknownUnit = errors.New("unknown persistence unit")
	// ErrUnknownDriver is returned for an unsupported UnitConfig.Driver.
	ErrUnknownDriver = errors.New("unknown persistence driver")
)

// Tx is a single open transaction.
type Tx interface {
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Session is one connection checked out of a Factory.
type Session interface {
	Begin(ctx context.Context) (Tx, error)
	Close()
}

// Factory owns the pool behind a persistence unit.
type Factory interface {
	CreateSession(ctx context.Context) (Session, error)
	Ping(ctx context.Context) error
	Close()
}

// OpenFunc opens the Factory for a unit.
type OpenFunc func(ctx context.Context) (Factory, error)

// Work is the body of a unit of work. Returning an error rolls the
// transaction back.
type Work func(ctx context.Context, tx Tx) error

// Noop is the default unit body: the transaction is opened and committed
// with nothing inside it.
func Noop(context.Context, Tx) error { return nil }

// Resolve looks up the unit called name in cfg. An empty name selects
// cfg.Unit, and failing that config.DefaultUnit. Names are matched
// case-insensitively, since viper lowercases map keys; the resolved
// (lowercase) name is returned alongside its settings.
func Resolve(cfg config.PersistenceConfig, name string) (string, config.UnitConfig, error) {
	if name == "" {
		name = cfg.Unit
	}
	if name == "" {
		name = config.DefaultUnit
	}
	name = strings.ToLower(name)

	unit, ok := cfg.Units[name]
	if !ok {
		return "", config.UnitConfig{}, fmt.Errorf("%w: %q", ErrUnknownUnit, name)
	}
	return name, unit, nil
}

// Open builds the Factory for cfg using the configured driver. No connection
// is established until the first session or ping.
func Open(ctx context.Context, cfg config.UnitConfig) (Factory, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", DriverPGX:
		return openPGX(ctx, cfg)
	case DriverPostgres:
		return openSQLX(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
