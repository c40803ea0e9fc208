package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"traffic-fines-service/internal/domain/traffic"
	"traffic-fines-service/internal/engine"
)

// ScoreReader covers the read side of user scores.
type ScoreReader interface {
	Get(ctx context.Context, userID string) (traffic.UserScore, int64, error)
	TopContributors(ctx context.Context, limit int) ([]traffic.UserScore, error)
}

type ProfileService struct {
	scores ScoreReader
	ledger *engine.PointLedger
	log    zerolog.Logger
}

func NewProfileService(scores ScoreReader, ledger *engine.PointLedger, log zerolog.Logger) *ProfileService {
	return &ProfileService{
		scores: scores,
		ledger: ledger,
		log:    log,
	}
}

func (s *ProfileService) GetScore(ctx context.Context, userID string) (traffic.UserScore, error) {
	if userID == "" {
		return traffic.UserScore{}, fmt.Errorf("%w: user id is required", engine.ErrInvalidInput)
	}
	score, _, err := s.scores.Get(ctx, userID)
	return score, err
}

// AwardReportApproval applies a report-approval reward directly through the
// ledger. The badge tier in the returned score always matches the new points.
func (s *ProfileService) AwardReportApproval(ctx context.Context, userID string, rewardPoints int) (traffic.UserScore, error) {
	score, err := s.ledger.Apply(ctx, userID, engine.ReportApproved{RewardPoints: rewardPoints})
	if err != nil {
		return traffic.UserScore{}, err
	}
	s.log.Info().
		Str("user_id", userID).
		Int("reward_points", rewardPoints).
		Int("points", score.Points).
		Msg("points awarded")
	return score, nil
}

func (s *ProfileService) TopContributors(ctx context.Context, limit int) ([]traffic.UserScore, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return s.scores.TopContributors(ctx, limit)
}
