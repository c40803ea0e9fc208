package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traffic-fines-service/internal/domain/traffic"
	"traffic-fines-service/internal/engine"
)

type memLeaderboardStore struct {
	boards   map[string][]traffic.LeaderboardEntry
	replaces int
}

func newMemLeaderboardStore() *memLeaderboardStore {
	return &memLeaderboardStore{boards: make(map[string][]traffic.LeaderboardEntry)}
}

func dayKey(date time.Time) string { return date.Format("2006-01-02") }

func (s *memLeaderboardStore) Replace(_ context.Context, date time.Time, entries []traffic.LeaderboardEntry) error {
	s.replaces++
	s.boards[dayKey(date)] = entries
	return nil
}

func (s *memLeaderboardStore) FindByDate(_ context.Context, date time.Time) ([]traffic.LeaderboardEntry, error) {
	return s.boards[dayKey(date)], nil
}

func newLeaderboardFixture() (*LeaderboardService, *memLeaderboardStore, *memScoreStore) {
	scores := newMemScoreStore(
		traffic.UserScore{UserID: "alice", Points: 4800, ReportsCount: 20, BadgeTier: traffic.BadgeGold},
		traffic.UserScore{UserID: "bob", Points: 1200, ReportsCount: 9, BadgeTier: traffic.BadgeSilver},
		traffic.UserScore{UserID: "carol", Points: 1200, ReportsCount: 4, BadgeTier: traffic.BadgeSilver},
	)
	boards := newMemLeaderboardStore()
	svc := NewLeaderboardService(scores, boards, boards, fakeClock{now: testNow}, zerolog.Nop())
	return svc, boards, scores
}

func TestGenerateLeaderboard(t *testing.T) {
	svc, boards, _ := newLeaderboardFixture()

	entries, err := svc.Generate(context.Background(), testNow)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, []string{"alice", "bob", "carol"}, []string{entries[0].UserID, entries[1].UserID, entries[2].UserID})
	assert.Equal(t, []int{1, 2, 3}, []int{entries[0].Rank, entries[1].Rank, entries[2].Rank})

	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, day, entries[0].Date, "entries are keyed by the UTC calendar day")

	published, err := boards.FindByDate(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, entries, published)
}

func TestGenerateLeaderboardOverwritesDeterministically(t *testing.T) {
	svc, boards, _ := newLeaderboardFixture()

	first, err := svc.Generate(context.Background(), testNow)
	require.NoError(t, err)
	second, err := svc.Generate(context.Background(), testNow)
	require.NoError(t, err)

	assert.Equal(t, first, second, "re-generating the same date must yield the identical board")
	assert.Equal(t, 2, boards.replaces, "each generation publishes one atomic replace")
}

func TestGenerateLeaderboardZeroDate(t *testing.T) {
	svc, _, _ := newLeaderboardFixture()

	_, err := svc.Generate(context.Background(), time.Time{})
	assert.ErrorIs(t, err, engine.ErrInvalidInput)
}

func TestTodayLeaderboardReadsPublishedBoard(t *testing.T) {
	svc, _, _ := newLeaderboardFixture()

	entries, err := svc.Today(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing published yet")

	_, err = svc.GenerateToday(context.Background())
	require.NoError(t, err)

	entries, err = svc.Today(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}
