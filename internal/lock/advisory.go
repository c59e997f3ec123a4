// Package lock serialises seed runs with MySQL advisory locks.
package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrLockTimeout is returned when another instance holds the run lock.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// Timeouts for GET_LOCK, in seconds.
const (
	TimeoutImmediate = 0
	TimeoutShort     = 1
	TimeoutMedium    = 10
	TimeoutLong      = 60
	TimeoutInfinite  = -1 // MySQL treats negative values as infinite wait
)

// AdvisoryLock is a named MySQL lock. GET_LOCK is owned by a session, so
// the lock pins one connection from the pool while it is held and returns
// it on release.
type AdvisoryLock struct {
	db       *sql.DB
	lockName string
	conn     *sql.Conn
}

// NewAdvisoryLock creates a lock named lockName. Nothing is acquired yet.
func NewAdvisoryLock(db *sql.DB, lockName string) *AdvisoryLock {
	return &AdvisoryLock{db: db, lockName: lockName}
}

// AcquireLock waits up to timeoutSeconds for the lock.
//
// GET_LOCK returns 1 when obtained, 0 on timeout and NULL on error.
func (a *AdvisoryLock) AcquireLock(ctx context.Context, timeoutSeconds int) (bool, error) {
	if a.conn != nil {
		return true, nil
	}
	if a.db == nil {
		return false, fmt.Errorf("database connection is nil")
	}

	conn, err := a.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to reserve connection for lock %q: %w", a.lockName, err)
	}

	var result sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", a.lockName, timeoutSeconds).Scan(&result); err != nil {
		_ = conn.Close()
		return false, fmt.Errorf("failed to execute GET_LOCK: %w", err)
	}
	if !result.Valid {
		_ = conn.Close()
		return false, fmt.Errorf("GET_LOCK returned NULL for lock %q (possible database error)", a.lockName)
	}

	switch result.Int64 {
	case 1:
		a.conn = conn
		return true, nil
	case 0:
		_ = conn.Close()
		return false, nil
	default:
		_ = conn.Close()
		return false, fmt.Errorf("unexpected GET_LOCK return value: %d", result.Int64)
	}
}

// ReleaseLock releases the lock and returns the pinned connection to the
// pool. It reports false when the lock was not held.
//
// RELEASE_LOCK returns 1 when released, 0 when another session owns the
// lock and NULL when no such lock exists.
func (a *AdvisoryLock) ReleaseLock(ctx context.Context) (bool, error) {
	if a.conn == nil {
		return false, nil
	}
	conn := a.conn
	a.conn = nil
	defer func() { _ = conn.Close() }()

	var result sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT RELEASE_LOCK(?)", a.lockName).Scan(&result); err != nil {
		return false, fmt.Errorf("failed to execute RELEASE_LOCK: %w", err)
	}
	if !result.Valid {
		return false, fmt.Errorf("RELEASE_LOCK returned NULL for lock %q (lock did not exist)", a.lockName)
	}

	switch result.Int64 {
	case 1:
		return true, nil
	case 0:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected RELEASE_LOCK return value: %d", result.Int64)
	}
}

// IsHeld reports whether this instance holds the lock.
func (a *AdvisoryLock) IsHeld() bool {
	return a.conn != nil
}

// LockName returns the lock name.
func (a *AdvisoryLock) LockName() string {
	return a.lockName
}

// AcquireOrFail takes the lock with TimeoutShort. ErrLockTimeout means
// another instance is running.
func (a *AdvisoryLock) AcquireOrFail(ctx context.Context) error {
	acquired, err := a.AcquireLock(ctx, TimeoutShort)
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("%w: lock %q is held by another instance", ErrLockTimeout, a.lockName)
	}
	return nil
}

// WithLock runs fn while holding the lock and releases it afterwards, even
// if fn panics.
func (a *AdvisoryLock) WithLock(ctx context.Context, timeoutSeconds int, fn func() error) error {
	acquired, err := a.AcquireLock(ctx, timeoutSeconds)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("%w: lock %q is held by another instance", ErrLockTimeout, a.lockName)
	}

	defer func() {
		// The run context may already be cancelled here.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = a.ReleaseLock(releaseCtx)
	}()

	return fn()
}

// RunLockName returns the lock name for seed runs of kind, e.g.
// "goseed:run:baseline". Characters outside [A-Za-z0-9_-] become '_'.
func RunLockName(kind string) string {
	sanitized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, kind)
	return "goseed:run:" + sanitized
}

// NewRunLock creates the advisory lock guarding runs of kind.
func NewRunLock(db *sql.DB, kind string) *AdvisoryLock {
	return NewAdvisoryLock(db, RunLockName(kind))
}

// WithRunLock runs fn while holding the run lock of kind. A concurrent run
// of the same kind yields ErrLockTimeout.
func WithRunLock(ctx context.Context, db *sql.DB, kind string, fn func() error) error {
	return NewRunLock(db, kind).WithLock(ctx, TimeoutShort, fn)
}

// WithRunLocks runs fn while holding the run locks of every kind. Locks are
// taken in sorted order so two callers never wait on each other crosswise.
func WithRunLocks(ctx context.Context, db *sql.DB, kinds []string, fn func() error) error {
	sorted := append([]string(nil), kinds...)
	sort.Strings(sorted)

	var acquire func(i int) error
	acquire = func(i int) error {
		if i == len(sorted) {
			return fn()
		}
		if i > 0 && sorted[i] == sorted[i-1] {
			return acquire(i + 1)
		}
		return WithRunLock(ctx, db, sorted[i], func() error { return acquire(i + 1) })
	}
	return acquire(0)
}
