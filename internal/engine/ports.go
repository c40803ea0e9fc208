package engine

import (
	"context"
	"errors"
	"time"

	"traffic-fines-service/internal/domain/traffic"
)

var (
	// ErrInvalidInput marks malformed arguments; never retried.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDataUnavailable marks a transiently unreachable store or history
	// lookup; safe to retry with backoff. Fine computation never substitutes
	// a default history count for it.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrConflict marks a lost compare-and-swap race on a user score. The
	// ledger retries it internally; callers only ever see ErrDataUnavailable
	// once retries are exhausted.
	ErrConflict = errors.New("concurrent update conflict")
)

// ViolationHistory answers how many qualifying violations a vehicle had in a
// lookback window. Implementations must be read-only point-in-time queries.
type ViolationHistory interface {
	// CountRecent counts violations for the vehicle with timestamps in
	// [asOf - windowDays, asOf]. A store failure surfaces as
	// ErrDataUnavailable.
	CountRecent(ctx context.Context, vehicleNumber string, windowDays int, asOf time.Time) (int, error)
}

// ScoreStore is the persistence port for user scores. UpdateCAS must be a
// compare-and-swap on the stored version: it returns ErrConflict when the
// row changed since it was read, committing points and badge tier together.
type ScoreStore interface {
	Get(ctx context.Context, userID string) (traffic.UserScore, int64, error)
	UpdateCAS(ctx context.Context, score traffic.UserScore, expectedVersion int64) error
	// Snapshot returns every user's score as a single consistent read.
	Snapshot(ctx context.Context) ([]traffic.ScoreSnapshot, error)
}

// LeaderboardStore publishes a day's entry set as one atomic batch. Replace
// overwrites any previous board for the date; readers never observe a
// partial set.
type LeaderboardStore interface {
	Replace(ctx context.Context, date time.Time, entries []traffic.LeaderboardEntry) error
}

// Clock abstracts the current time so due dates and history windows are
// deterministic under test.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
func SystemClock() Clock { return systemClock{} }
