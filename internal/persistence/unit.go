package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"erythu/portal/internal/config"
)

// RunUnit opens a factory, checks out one session, and runs work inside a
// single transaction.
//
// If work fails or panics, or the commit fails, the transaction is rolled
// back exactly once and the failure is returned (a panic is re-raised after
// cleanup). Whatever happens, every session and factory that was opened is
// closed exactly once, session first.
func RunUnit(ctx context.Context, open OpenFunc, work Work) error {
	factory, err := open(ctx)
	if err != nil {
		return fmt.Errorf("opening session factory: %w", err)
	}
	defer factory.Close()

	session, err := factory.CreateSession(ctx)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	defer session.Close()

	tx, err := session.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	rolledBack := false
	fail := func(cause error) error {
		rolledBack = true
		return rollback(ctx, tx, cause)
	}

	defer func() {
		if p := recover(); p != nil {
			if !rolledBack {
				_ = rollback(ctx, tx, fmt.Errorf("panic in unit of work: %v", p))
			}
			panic(p)
		}
	}()

	if err := work(ctx, tx); err != nil {
		return fail(fmt.Errorf("unit of work: %w", err))
	}
	if err := tx.Commit(ctx); err != nil {
		return fail(fmt.Errorf("committing transaction: %w", err))
	}
	return nil
}

// rollback logs cause, rolls tx back, and returns cause joined with any
// rollback failure. The rollback is not bound to ctx's cancellation.
func rollback(ctx context.Context, tx Tx, cause error) error {
	slog.ErrorContext(ctx, "persistence unit failed, rolling back", "error", cause)

	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
		slog.ErrorContext(ctx, "rollback failed", "error", err)
		return errors.Join(cause, fmt.Errorf("rolling back transaction: %w", err))
	}
	return cause
}

// Unit is a named persistence unit bound to its unit-of-work body.
type Unit struct {
	name    string
	open    OpenFunc
	work    Work
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
}

// NewUnit resolves the unit called name (empty selects the configured
// default) and binds it to the no-op body. Nothing is dialled here.
func NewUnit(cfg config.PersistenceConfig, name string, cb *gobreaker.CircuitBreaker) (*Unit, error) {
	name, unitCfg, err := Resolve(cfg, name)
	if err != nil {
		return nil, err
	}

	return &Unit{
		name: name,
		open: func(ctx context.Context) (Factory, error) {
			return Open(ctx, unitCfg)
		},
		work:    Noop,
		timeout: cfg.Timeout,
		cb:      cb,
	}, nil
}

// WithWork replaces the unit body.
func (u *Unit) WithWork(work Work) *Unit {
	u.work = work
	return u
}

// Name returns the resolved unit name.
func (u *Unit) Name() string {
	return u.name
}

// Run executes the unit body once through RunUnit, bounded by the configured
// persistence timeout.
func (u *Unit) Run(ctx context.Context) error {
	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}
	return RunUnit(ctx, u.open, u.work)
}
