package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"traffic-fines-service/internal/domain/traffic"
)

type fakeClock struct {
	now time.Time
}

func (c fakeClock) Now() time.Time { return c.now }

// memoryScoreStore implements ScoreStore with real compare-and-swap
// semantics so the ledger's retry loop is exercised under contention.
type memoryScoreStore struct {
	mu       sync.Mutex
	scores   map[string]traffic.UserScore
	versions map[string]int64
}

func newMemoryScoreStore(scores ...traffic.UserScore) *memoryScoreStore {
	s := &memoryScoreStore{
		scores:   make(map[string]traffic.UserScore),
		versions: make(map[string]int64),
	}
	for _, score := range scores {
		s.scores[score.UserID] = score
	}
	return s
}

func (s *memoryScoreStore) Get(_ context.Context, userID string) (traffic.UserScore, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	score, ok := s.scores[userID]
	if !ok {
		return traffic.UserScore{}, 0, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	return score, s.versions[userID], nil
}

func (s *memoryScoreStore) UpdateCAS(_ context.Context, score traffic.UserScore, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.versions[score.UserID] != expectedVersion {
		return fmt.Errorf("%w: user %s", ErrConflict, score.UserID)
	}
	s.scores[score.UserID] = score
	s.versions[score.UserID] = expectedVersion + 1
	return nil
}

func (s *memoryScoreStore) Snapshot(context.Context) ([]traffic.ScoreSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]traffic.ScoreSnapshot, 0, len(s.scores))
	for _, score := range s.scores {
		snapshot = append(snapshot, traffic.ScoreSnapshot{
			UserID:          score.UserID,
			Points:          score.Points,
			VerifiedReports: score.ReportsCount,
			BadgeTier:       score.BadgeTier,
		})
	}
	return snapshot, nil
}

// conflictingScoreStore loses every compare-and-swap.
type conflictingScoreStore struct {
	memoryScoreStore
}

func (s *conflictingScoreStore) UpdateCAS(_ context.Context, score traffic.UserScore, _ int64) error {
	return fmt.Errorf("%w: user %s", ErrConflict, score.UserID)
}

func newLedger(store ScoreStore) *PointLedger {
	return NewPointLedger(store, fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}, zerolog.Nop())
}

func TestApplyReportApproved(t *testing.T) {
	store := newMemoryScoreStore(traffic.UserScore{UserID: "u1", Points: 950, ReportsCount: 3, BadgeTier: traffic.BadgeBronze})
	ledger := newLedger(store)

	score, err := ledger.Apply(context.Background(), "u1", ReportApproved{RewardPoints: 50})
	require.NoError(t, err)

	assert.Equal(t, 1000, score.Points)
	assert.Equal(t, 4, score.ReportsCount)
	assert.Equal(t, traffic.BadgeSilver, score.BadgeTier, "tier must be recomputed with the points delta")
}

func TestApplyViolationConfirmed(t *testing.T) {
	store := newMemoryScoreStore(traffic.UserScore{UserID: "u1", Points: 10, BadgeTier: traffic.BadgeBronze})
	ledger := newLedger(store)

	score, err := ledger.Apply(context.Background(), "u1", ViolationConfirmed{})
	require.NoError(t, err)

	assert.Equal(t, 1, score.ViolationsCount)
	assert.Equal(t, 10, score.Points)
}

func TestApplyNegativeRewardRejected(t *testing.T) {
	store := newMemoryScoreStore(traffic.UserScore{UserID: "u1", Points: 100, BadgeTier: traffic.BadgeBronze})
	ledger := newLedger(store)

	_, err := ledger.Apply(context.Background(), "u1", ReportApproved{RewardPoints: -5})
	assert.ErrorIs(t, err, ErrInvalidInput)

	score, _, err := store.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 100, score.Points, "rejected event must not mutate the score")
}

func TestApplyUnknownUser(t *testing.T) {
	ledger := newLedger(newMemoryScoreStore())

	_, err := ledger.Apply(context.Background(), "ghost", ReportApproved{RewardPoints: 10})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyConflictRetriesExhausted(t *testing.T) {
	store := &conflictingScoreStore{}
	store.scores = map[string]traffic.UserScore{"u1": {UserID: "u1", BadgeTier: traffic.BadgeBronze}}
	store.versions = map[string]int64{}
	ledger := newLedger(store)

	_, err := ledger.Apply(context.Background(), "u1", ReportApproved{RewardPoints: 10})
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestApplyConcurrentSameUserLosesNoUpdates(t *testing.T) {
	const workers = 32
	store := newMemoryScoreStore(traffic.UserScore{UserID: "u1", Points: 100, ReportsCount: 2, BadgeTier: traffic.BadgeBronze})
	ledger := newLedger(store)

	var g errgroup.Group
	total := 0
	for i := 0; i < workers; i++ {
		reward := 10 + i
		total += reward
		g.Go(func() error {
			_, err := ledger.Apply(context.Background(), "u1", ReportApproved{RewardPoints: reward})
			return err
		})
	}
	require.NoError(t, g.Wait())

	score, _, err := store.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 100+total, score.Points)
	assert.Equal(t, 2+workers, score.ReportsCount)
	assert.Equal(t, BadgeForPoints(score.Points), score.BadgeTier)
}

func TestApplyConcurrentDistinctUsers(t *testing.T) {
	const users = 16
	scores := make([]traffic.UserScore, 0, users)
	for i := 0; i < users; i++ {
		scores = append(scores, traffic.UserScore{UserID: fmt.Sprintf("u%02d", i), BadgeTier: traffic.BadgeBronze})
	}
	store := newMemoryScoreStore(scores...)
	ledger := newLedger(store)

	var g errgroup.Group
	for i := 0; i < users; i++ {
		userID := fmt.Sprintf("u%02d", i)
		g.Go(func() error {
			_, err := ledger.Apply(context.Background(), userID, ReportApproved{RewardPoints: 25})
			return err
		})
	}
	require.NoError(t, g.Wait())

	for i := 0; i < users; i++ {
		score, _, err := store.Get(context.Background(), fmt.Sprintf("u%02d", i))
		require.NoError(t, err)
		assert.Equal(t, 25, score.Points)
		assert.Equal(t, 1, score.ReportsCount)
	}
}

func TestApplyCancelledContext(t *testing.T) {
	store := newMemoryScoreStore(traffic.UserScore{UserID: "u1", Points: 100, BadgeTier: traffic.BadgeBronze})
	ledger := newLedger(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ledger.Apply(ctx, "u1", ReportApproved{RewardPoints: 10})
	assert.ErrorIs(t, err, context.Canceled)

	score, _, err := store.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 100, score.Points, "abandoned apply must leave no partial state")
}
