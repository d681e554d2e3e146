package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func newMockLatch(t *testing.T) (*FireLatch, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	latch, err := NewFireLatchWithPool(mock, "")
	require.NoError(t, err)
	latch.now = func() time.Time { return time.Unix(1735171200, 0) }
	return latch, mock
}

func TestAcquireFirstTime(t *testing.T) {
	t.Parallel()

	latch, mock := newMockLatch(t)
	mock.ExpectExec("INSERT INTO certificate_fires").
		WithArgs("123:2024", time.Unix(1735171200, 0).UTC()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ok, err := latch.Acquire(context.Background(), "123:2024")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquireAlreadyFired(t *testing.T) {
	t.Parallel()

	latch, mock := newMockLatch(t)
	mock.ExpectExec("INSERT INTO certificate_fires").
		WithArgs("123:2024", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	ok, err := latch.Acquire(context.Background(), "123:2024")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquireExecError(t *testing.T) {
	t.Parallel()

	latch, mock := newMockLatch(t)
	mock.ExpectExec("INSERT INTO certificate_fires").
		WithArgs("k", pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	_, err := latch.Acquire(context.Background(), "k")
	require.Error(t, err)

	_, err = latch.Acquire(context.Background(), "")
	require.Error(t, err)
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	latch, mock := newMockLatch(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS certificate_fires").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, latch.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewFireLatchWithPoolValidates(t *testing.T) {
	t.Parallel()

	_, err := NewFireLatchWithPool(nil, "")
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	_, err = NewFireLatchWithPool(mock, "bad-name;")
	require.Error(t, err)
}

func TestNewFireLatchRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := NewFireLatch(context.Background(), FireLatchConfig{})
	require.Error(t, err)
}

func TestReleaseDeletesKey(t *testing.T) {
	t.Parallel()

	latch, mock := newMockLatch(t)
	mock.ExpectExec("DELETE FROM certificate_fires").
		WithArgs("123:2024").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM certificate_fires").
		WithArgs("123:2024").
		WillReturnError(errors.New("connection reset"))

	require.NoError(t, latch.Release(context.Background(), "123:2024"))
	require.Error(t, latch.Release(context.Background(), "123:2024"))
	require.Error(t, latch.Release(context.Background(), ""))
	require.NoError(t, mock.ExpectationsWereMet())
}
