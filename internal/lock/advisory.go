// Package lock serialises sync runs against one wallet store with a MySQL
// advisory lock.
package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dbsmedya/godelegate/internal/logger"
)

// ErrLockTimeout is returned when another instance holds the lock.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// Timeouts for Acquire, in seconds.
const (
	TimeoutImmediate = 0
	TimeoutShort     = 1
	TimeoutMedium    = 10
	// TimeoutInfinite waits until the lock is free. MySQL treats negative
	// values as infinite.
	TimeoutInfinite = -1
)

// maxLockNameLength is MySQL's limit for GET_LOCK names.
const maxLockNameLength = 64

// AdvisoryLock is a named GET_LOCK held on one pinned connection. MySQL ties
// advisory locks to the session, so acquire and release must run on the same
// connection rather than on whatever the pool hands out.
type AdvisoryLock struct {
	db     *sql.DB
	name   string
	logger *logger.Logger

	conn *sql.Conn
}

// NewAdvisoryLock creates an unacquired lock.
func NewAdvisoryLock(db *sql.DB, name string, log *logger.Logger) *AdvisoryLock {
	if log == nil {
		log = logger.NewDefault()
	}
	return &AdvisoryLock{db: db, name: name, logger: log}
}

// NewSyncLock creates the lock guarding sync runs for storeName.
func NewSyncLock(db *sql.DB, storeName string, log *logger.Logger) *AdvisoryLock {
	return NewAdvisoryLock(db, SyncLockName(storeName), log)
}

// SyncLockName returns "godelegate:sync:{storeName}" with unsafe characters
// replaced and the result cut to MySQL's name limit.
func SyncLockName(storeName string) string {
	sanitized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, storeName)

	name := "godelegate:sync:" + sanitized
	if len(name) > maxLockNameLength {
		name = name[:maxLockNameLength]
	}
	return name
}

// Name returns the lock name.
func (a *AdvisoryLock) Name() string {
	return a.name
}

// IsHeld reports whether this instance holds the lock.
func (a *AdvisoryLock) IsHeld() bool {
	return a.conn != nil
}

// Acquire waits up to timeoutSeconds for the lock. It reports false when the
// wait ran out because another session holds it.
//
// GET_LOCK returns 1 on success, 0 on timeout and NULL on error.
func (a *AdvisoryLock) Acquire(ctx context.Context, timeoutSeconds int) (bool, error) {
	if a.conn != nil {
		return true, nil
	}
	if a.db == nil {
		return false, fmt.Errorf("database connection is nil")
	}

	conn, err := a.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to reserve connection for lock %q: %w", a.name, err)
	}

	var result sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", a.name, timeoutSeconds).Scan(&result); err != nil {
		_ = conn.Close()
		return false, fmt.Errorf("failed to execute GET_LOCK: %w", err)
	}

	if !result.Valid {
		_ = conn.Close()
		return false, fmt.Errorf("GET_LOCK returned NULL for lock %q (possible database error)", a.name)
	}

	switch result.Int64 {
	case 1:
		a.conn = conn
		a.logger.Debugf("Acquired lock %q", a.name)
		return true, nil
	case 0:
		_ = conn.Close()
		return false, nil
	default:
		_ = conn.Close()
		return false, fmt.Errorf("unexpected GET_LOCK return value: %d", result.Int64)
	}
}

// TryAcquire is Acquire without waiting.
func (a *AdvisoryLock) TryAcquire(ctx context.Context) (bool, error) {
	return a.Acquire(ctx, TimeoutImmediate)
}

// AcquireOrFail acquires with TimeoutShort and returns ErrLockTimeout when
// another instance holds the lock.
func (a *AdvisoryLock) AcquireOrFail(ctx context.Context) error {
	acquired, err := a.Acquire(ctx, TimeoutShort)
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("%w: lock %q is held by another instance", ErrLockTimeout, a.name)
	}
	return nil
}

// Release frees the lock and returns its connection to the pool. It reports
// false when the lock was not held.
func (a *AdvisoryLock) Release(ctx context.Context) (bool, error) {
	if a.conn == nil {
		return false, nil
	}
	conn := a.conn
	a.conn = nil
	defer func() {
		if err := conn.Close(); err != nil {
			a.logger.Warnf("Failed to close lock connection: %v", err)
		}
	}()

	var result sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT RELEASE_LOCK(?)", a.name).Scan(&result); err != nil {
		return false, fmt.Errorf("failed to execute RELEASE_LOCK: %w", err)
	}
	if !result.Valid {
		return false, fmt.Errorf("RELEASE_LOCK returned NULL for lock %q (lock did not exist)", a.name)
	}

	a.logger.Debugf("Released lock %q", a.name)
	return result.Int64 == 1, nil
}

// WithLock runs fn while holding the lock. The lock is released on every
// exit path, panics included.
func (a *AdvisoryLock) WithLock(ctx context.Context, timeoutSeconds int, fn func() error) error {
	acquired, err := a.Acquire(ctx, timeoutSeconds)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("%w: lock %q is held by another instance", ErrLockTimeout, a.name)
	}

	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := a.Release(releaseCtx); err != nil {
			a.logger.Warnf("Failed to release lock %q (released when the connection closes): %v", a.name, err)
		}
	}()

	return fn()
}

// WithSyncLock runs fn under the sync lock of storeName.
func WithSyncLock(ctx context.Context, db *sql.DB, storeName string, log *logger.Logger, fn func() error) error {
	return NewSyncLock(db, storeName, log).WithLock(ctx, TimeoutShort, fn)
}

// IsSyncRunning probes the sync lock of storeName without keeping it. The
// answer may be stale as soon as it returns.
func IsSyncRunning(ctx context.Context, db *sql.DB, storeName string, log *logger.Logger) (bool, error) {
	l := NewSyncLock(db, storeName, log)

	acquired, err := l.TryAcquire(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check sync lock for %q: %w", storeName, err)
	}
	if acquired {
		if _, err := l.Release(ctx); err != nil {
			l.logger.Warnf("Failed to release probe lock %q: %v", l.name, err)
		}
		return false, nil
	}
	return true, nil
}
