package database

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTxMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestWithinTxCommits(t *testing.T) {
	db, mock, cleanup := newTxMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE grade_results").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := NewTransactor(db).WithinTx(context.Background(), func(ctx context.Context) error {
		_, ok := TxFromContext(ctx)
		require.True(t, ok)
		_, err := Conn(ctx, db).ExecContext(ctx, "UPDATE grade_results SET status = 'STALE'")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newTxMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := NewTransactor(db).WithinTx(context.Background(), func(ctx context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxRollsBackOnPanic(t *testing.T) {
	db, mock, cleanup := newTxMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = NewTransactor(db).WithinTx(context.Background(), func(ctx context.Context) error {
			panic("unexpected")
		})
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxJoinsOuterTransaction(t *testing.T) {
	db, mock, cleanup := newTxMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectCommit()

	tr := NewTransactor(db)
	err := tr.WithinTx(context.Background(), func(ctx context.Context) error {
		outer, _ := TxFromContext(ctx)
		return tr.WithinTx(ctx, func(inner context.Context) error {
			tx, _ := TxFromContext(inner)
			assert.Same(t, outer, tx)
			return nil
		})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnFallsBackToDB(t *testing.T) {
	db, _, cleanup := newTxMock(t)
	defer cleanup()

	assert.Equal(t, db, Conn(context.Background(), db))
}
