package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"traffic-fines-service/internal/domain/traffic"
	"traffic-fines-service/internal/engine"
)

// LeaderboardReader fetches a published board.
type LeaderboardReader interface {
	FindByDate(ctx context.Context, date time.Time) ([]traffic.LeaderboardEntry, error)
}

// SnapshotSource captures the consistent score snapshot ranking runs on.
type SnapshotSource interface {
	Snapshot(ctx context.Context) ([]traffic.ScoreSnapshot, error)
}

type LeaderboardService struct {
	scores SnapshotSource
	boards engine.LeaderboardStore
	reader LeaderboardReader
	clock  engine.Clock
	log    zerolog.Logger
}

func NewLeaderboardService(
	scores SnapshotSource,
	boards engine.LeaderboardStore,
	reader LeaderboardReader,
	clock engine.Clock,
	log zerolog.Logger,
) *LeaderboardService {
	return &LeaderboardService{
		scores: scores,
		boards: boards,
		reader: reader,
		clock:  clock,
		log:    log,
	}
}

// truncateToDay normalizes a timestamp to its UTC calendar day, the key a
// board is published under.
func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Generate ranks the current score snapshot and publishes it as the board
// for the given date. Re-generating an existing date deterministically
// overwrites it: the same snapshot always yields the same board.
func (s *LeaderboardService) Generate(ctx context.Context, date time.Time) ([]traffic.LeaderboardEntry, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", engine.ErrInvalidInput)
	}
	day := truncateToDay(date)

	snapshot, err := s.scores.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	entries := engine.Rank(snapshot, day)

	if err := s.boards.Replace(ctx, day, entries); err != nil {
		return nil, err
	}

	s.log.Info().
		Time("date", day).
		Int("entries", len(entries)).
		Msg("leaderboard generated")

	return entries, nil
}

// GenerateToday publishes the board for the injected clock's current day.
func (s *LeaderboardService) GenerateToday(ctx context.Context) ([]traffic.LeaderboardEntry, error) {
	return s.Generate(ctx, s.clock.Now())
}

func (s *LeaderboardService) ForDate(ctx context.Context, date time.Time) ([]traffic.LeaderboardEntry, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", engine.ErrInvalidInput)
	}
	return s.reader.FindByDate(ctx, truncateToDay(date))
}

func (s *LeaderboardService) Today(ctx context.Context) ([]traffic.LeaderboardEntry, error) {
	return s.reader.FindByDate(ctx, truncateToDay(s.clock.Now()))
}
