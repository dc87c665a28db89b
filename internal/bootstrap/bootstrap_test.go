package bootstrap

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBootstrapper(t *testing.T) (*Bootstrapper, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	b := New(db, Options{
		Attempts:  3,
		BaseDelay: time.Millisecond,
		MaxDelay:  5 * time.Millisecond,
	})
	return b, mock
}

func TestBootstrapper_AppliesSchemaOnce(t *testing.T) {
	b, mock := newTestBootstrapper(t)
	mock.ExpectExec("CREATE EXTENSION").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, b.Ensure(context.Background()))
	assert.Equal(t, StateDone, b.State())

	// Second call must not run the script again.
	require.NoError(t, b.Ensure(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBootstrapper_RetriesThenSucceeds(t *testing.T) {
	b, mock := newTestBootstrapper(t)
	mock.ExpectExec("CREATE EXTENSION").WillReturnError(errors.New("connection refused"))
	mock.ExpectExec("CREATE EXTENSION").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, b.Ensure(context.Background()))
	assert.Equal(t, StateDone, b.State())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBootstrapper_TerminalFailure(t *testing.T) {
	b, mock := newTestBootstrapper(t)
	for i := 0; i < 3; i++ {
		mock.ExpectExec("CREATE EXTENSION").WillReturnError(errors.New("connection refused"))
	}

	err := b.Ensure(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database initialization failed")
	assert.Equal(t, StateFailed, b.State())

	// Failure is terminal: no further attempts, same error.
	err2 := b.Ensure(context.Background())
	assert.Equal(t, err.Error(), err2.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBootstrapper_ConcurrentCallersShareOneAttempt(t *testing.T) {
	b, mock := newTestBootstrapper(t)
	mock.ExpectExec("CREATE EXTENSION").WillReturnResult(sqlmock.NewResult(0, 0))

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = b.Ensure(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBootstrapper_CancelledRunnerNotTerminal(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// The first attempt fails into an hour-long backoff; cancelling the
	// owning context must release the caller immediately and must not
	// fail the bootstrapper for everyone else.
	mock.ExpectExec("CREATE EXTENSION").WillReturnError(errors.New("connection refused"))
	b := New(db, Options{Attempts: 3, BaseDelay: time.Hour, MaxDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	require.ErrorIs(t, b.Ensure(ctx), context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StateNotStarted, b.State())

	// The next caller starts a fresh attempt.
	mock.ExpectExec("CREATE EXTENSION").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, b.Ensure(context.Background()))
	assert.Equal(t, StateDone, b.State())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBootstrapper_WaiterHonorsContext(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// One slow attempt holds the in-progress state while the second
	// caller's context expires.
	mock.ExpectExec("CREATE EXTENSION").
		WillDelayFor(200 * time.Millisecond).
		WillReturnResult(sqlmock.NewResult(0, 0))

	b := New(db, Options{Attempts: 1, BaseDelay: time.Millisecond})

	go b.Ensure(context.Background())

	// Give the first caller time to take ownership.
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, b.Ensure(ctx), context.DeadlineExceeded)
}
