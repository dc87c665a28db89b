// Package bootstrap applies the database schema on first use. The
// schema lives in the database, never in rewritten source files; every
// instance converges by running the same idempotent script.
package bootstrap

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log"
	"sync"
	"time"
)

//go:embed schema.sql
var schemaSQL string

// State of the one schema application this process will attempt.
type State int

const (
	StateNotStarted State = iota
	StateInProgress
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateInProgress:
		return "in_progress"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type Options struct {
	// Attempts is the number of tries before the bootstrapper fails
	// terminally.
	Attempts int
	// BaseDelay seeds the exponential backoff between attempts.
	BaseDelay time.Duration
	// MaxDelay caps the backoff.
	MaxDelay time.Duration
}

const (
	defaultAttempts  = 3
	defaultBaseDelay = time.Second
	defaultMaxDelay  = 10 * time.Second
)

// Bootstrapper applies the schema exactly once per process. Concurrent
// callers share a single in-flight attempt; once it fails terminally,
// every later call observes the same error without touching the
// database again.
type Bootstrapper struct {
	db   *sql.DB
	opts Options

	mu    sync.Mutex
	state State
	err   error
	done  chan struct{}
}

func New(db *sql.DB, opts Options) *Bootstrapper {
	if opts.Attempts <= 0 {
		opts.Attempts = defaultAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = defaultBaseDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = defaultMaxDelay
	}
	return &Bootstrapper{db: db, opts: opts}
}

// State returns the current bootstrap state.
func (b *Bootstrapper) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Ensure blocks until the schema is applied, the attempt fails
// terminally, or ctx is cancelled. The first caller runs the attempt;
// everyone else waits for its outcome. A cancelled runner does not
// fail the bootstrapper: the next caller starts a fresh attempt.
func (b *Bootstrapper) Ensure(ctx context.Context) error {
	for {
		b.mu.Lock()
		switch b.state {
		case StateDone:
			b.mu.Unlock()
			return nil
		case StateFailed:
			err := b.err
			b.mu.Unlock()
			return err
		case StateInProgress:
			done := b.done
			b.mu.Unlock()
			select {
			case <-done:
				// Re-read the state: the runner may have been
				// cancelled rather than finished.
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		b.state = StateInProgress
		b.done = make(chan struct{})
		done := b.done
		b.mu.Unlock()

		err := b.run(ctx)

		b.mu.Lock()
		switch {
		case err == nil:
			b.state = StateDone
		case ctx.Err() != nil:
			b.state = StateNotStarted
		default:
			b.state = StateFailed
			b.err = err
		}
		b.mu.Unlock()
		close(done)

		return err
	}
}

// Err returns the terminal error, nil unless the state is failed.
func (b *Bootstrapper) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

func (b *Bootstrapper) run(ctx context.Context) error {
	var err error
	delay := b.opts.BaseDelay

	for attempt := 1; attempt <= b.opts.Attempts; attempt++ {
		if _, err = b.db.ExecContext(ctx, schemaSQL); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		log.Printf("bootstrap attempt %d/%d failed: %v", attempt, b.opts.Attempts, err)
		if attempt < b.opts.Attempts {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
			delay *= 2
			if delay > b.opts.MaxDelay {
				delay = b.opts.MaxDelay
			}
		}
	}

	return fmt.Errorf("database initialization failed after %d attempts: %w", b.opts.Attempts, err)
}
