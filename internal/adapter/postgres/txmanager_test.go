package postgres_test

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/beautyshelf-backend/internal/adapter/postgres"
	"github.com/heartmarshall/beautyshelf-backend/internal/adapter/postgres/testhelper"
	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestRunInTx_CommitsOnSuccess(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE owned_products").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	tm := postgres.NewTxManager(mock)
	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		assert.True(t, postgres.InTx(ctx))
		_, err := postgres.QuerierFromCtx(ctx, mock).Exec(ctx, "UPDATE owned_products SET quantity = 1")
		return err
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTx_RollsBackOnError(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	sentinel := errors.New("business logic error")
	tm := postgres.NewTxManager(mock)
	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		return sentinel
	})

	assert.ErrorIs(t, err, sentinel)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTx_BeginFailureIsStoreUnavailable(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	mock.ExpectBegin().WillReturnError(&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")})

	called := false
	tm := postgres.NewTxManager(mock)
	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.False(t, called, "fn must not run without a transaction")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTx_NestedCallJoinsOuterTx(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	tm := postgres.NewTxManager(mock)
	err := tm.RunInTx(context.Background(), func(outer context.Context) error {
		return tm.RunInTx(outer, func(inner context.Context) error {
			assert.Equal(t, postgres.QuerierFromCtx(outer, mock), postgres.QuerierFromCtx(inner, mock))
			return nil
		})
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTx_RollsBackOnPanic(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	tm := postgres.NewTxManager(mock)
	assert.PanicsWithValue(t, "test panic", func() {
		_ = tm.RunInTx(context.Background(), func(ctx context.Context) error {
			panic("test panic")
		})
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuerierFromCtx_FallsBackOutsideTx(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	assert.False(t, postgres.InTx(context.Background()))
	assert.Equal(t, postgres.Querier(mock), postgres.QuerierFromCtx(context.Background(), mock))
}

// catalogRowExists checks whether a catalog row with the given ID exists.
func catalogRowExists(t *testing.T, q postgres.Querier, id uuid.UUID) bool {
	t.Helper()
	var exists bool
	err := q.QueryRow(context.Background(),
		`SELECT EXISTS(SELECT 1 FROM catalog_products WHERE id = $1)`, id,
	).Scan(&exists)
	require.NoError(t, err)
	return exists
}

func TestRunInTx_Integration_RollbackDiscardsWrites(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)

	id := uuid.New()
	sentinel := errors.New("owned insert failed")

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, pool)
		_, execErr := q.Exec(ctx,
			`INSERT INTO catalog_products (id, name, name_normalized, brand, brand_normalized, source)
			 VALUES ($1, 'Rollback Balm', 'rollback balm', '', '', 'MANUAL')`, id)
		require.NoError(t, execErr)
		assert.True(t, catalogRowExists(t, q, id))
		return sentinel
	})

	require.ErrorIs(t, err, sentinel)
	assert.False(t, catalogRowExists(t, pool, id))
}
