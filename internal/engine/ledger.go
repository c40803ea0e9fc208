package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"traffic-fines-service/internal/domain/traffic"
)

// casMaxAttempts bounds the optimistic-retry loop on a lost score update
// race before the failure is surfaced to the caller.
const casMaxAttempts = 5

// Event is a scoring event applied through the ledger.
type Event interface {
	apply(score *traffic.UserScore) error
}

// ReportApproved rewards a reporter for an approved report.
type ReportApproved struct {
	RewardPoints int
}

func (e ReportApproved) apply(score *traffic.UserScore) error {
	if e.RewardPoints < 0 {
		return fmt.Errorf("%w: reward points must be non-negative, got %d", ErrInvalidInput, e.RewardPoints)
	}
	score.Points += e.RewardPoints
	score.ReportsCount++
	return nil
}

// ViolationConfirmed counts a confirmed violation against the user's record.
type ViolationConfirmed struct{}

func (ViolationConfirmed) apply(score *traffic.UserScore) error {
	score.ViolationsCount++
	return nil
}

// PointLedger applies scoring events to user scores. Concurrent Apply calls
// for the same user serialize on a per-user lock; different users never
// contend. The store's compare-and-swap backstops updates racing from other
// processes sharing the same storage. The caller owns event-level
// idempotency (a report is approved once, by its own state machine).
type PointLedger struct {
	scores ScoreStore
	clock  Clock
	log    zerolog.Logger

	userLocks sync.Map // userID -> *sync.Mutex
}

func NewPointLedger(scores ScoreStore, clock Clock, log zerolog.Logger) *PointLedger {
	return &PointLedger{
		scores: scores,
		clock:  clock,
		log:    log,
	}
}

func (l *PointLedger) lockUser(userID string) *sync.Mutex {
	mu, _ := l.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Apply applies one event to the user's score and recomputes the badge tier.
// The points delta and the tier are committed together; no interleaving can
// observe one without the other. A lost update race is retried up to
// casMaxAttempts, then surfaced as ErrDataUnavailable.
func (l *PointLedger) Apply(ctx context.Context, userID string, event Event) (traffic.UserScore, error) {
	if userID == "" {
		return traffic.UserScore{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	mu := l.lockUser(userID)
	mu.Lock()
	defer mu.Unlock()

	for attempt := 1; attempt <= casMaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return traffic.UserScore{}, err
		}

		score, version, err := l.scores.Get(ctx, userID)
		if err != nil {
			return traffic.UserScore{}, err
		}

		if err := event.apply(&score); err != nil {
			return traffic.UserScore{}, err
		}
		score.BadgeTier = BadgeForPoints(score.Points)
		score.UpdatedAt = l.clock.Now()

		err = l.scores.UpdateCAS(ctx, score, version)
		if err == nil {
			return score, nil
		}
		if !errors.Is(err, ErrConflict) {
			return traffic.UserScore{}, err
		}

		l.log.Debug().
			Str("user_id", userID).
			Int("attempt", attempt).
			Msg("score update lost race, retrying")
	}

	l.log.Warn().
		Str("user_id", userID).
		Int("attempts", casMaxAttempts).
		Msg("score update retries exhausted")
	return traffic.UserScore{}, fmt.Errorf("%w: score update for user %s lost %d races", ErrDataUnavailable, userID, casMaxAttempts)
}
