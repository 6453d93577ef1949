package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockFactory wraps a sqlmock connection in the sqlx-backed Factory.
func newMockFactory(t *testing.T) (*sqlxFactory, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	return newSQLXFactory(sqlx.NewDb(db, "sqlmock")), mock
}

func TestSQLXRunUnit_Commits(t *testing.T) {
	t.Parallel()

	factory, mock := newMockFactory(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectClose()

	err := RunUnit(context.Background(), openerFor(factory, nil), Noop)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLXRunUnit_RollsBackOnBodyError(t *testing.T) {
	t.Parallel()

	factory, mock := newMockFactory(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO farmers").
		WithArgs("ravi").
		WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()
	mock.ExpectClose()

	err := RunUnit(context.Background(), openerFor(factory, nil), func(ctx context.Context, tx Tx) error {
		_, err := tx.Exec(ctx, "INSERT INTO farmers (name) VALUES ($1)", "ravi")
		return err
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate key")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLXRunUnit_RollsBackOnCommitError(t *testing.T) {
	t.Parallel()

	factory, mock := newMockFactory(t)
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("could not serialize access"))
	mock.ExpectClose()

	err := RunUnit(context.Background(), openerFor(factory, nil), Noop)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "committing transaction")

	// database/sql marks the tx done after a failed commit, so the rollback
	// never reaches the driver and is treated as already rolled back.
	assert.NotContains(t, err.Error(), "rolling back")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLXTx_ExecReportsRowsAffected(t *testing.T) {
	t.Parallel()

	factory, mock := newMockFactory(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE crops").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()
	mock.ExpectClose()

	var rows int64
	err := RunUnit(context.Background(), openerFor(factory, nil), func(ctx context.Context, tx Tx) error {
		var err error
		rows, err = tx.Exec(ctx, "UPDATE crops SET season = 'kharif'")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), rows)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLXRunUnit_BeginFailure(t *testing.T) {
	t.Parallel()

	factory, mock := newMockFactory(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))
	mock.ExpectClose()

	err := RunUnit(context.Background(), openerFor(factory, nil), Noop)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "beginning transaction")

	assert.NoError(t, mock.ExpectationsWereMet())
}
