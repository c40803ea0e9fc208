package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"traffic-fines-service/internal/domain/traffic"
	"traffic-fines-service/internal/engine"
)

// ReportStore covers what the report service needs from persistence.
type ReportStore interface {
	Create(ctx context.Context, report *traffic.Report) error
	Get(ctx context.Context, id string) (traffic.Report, error)
	Review(ctx context.Context, id string, status traffic.ReportStatus, reviewedBy string, reviewedAt time.Time, comments string, rewardPoints int) error
	FindByStatus(ctx context.Context, status traffic.ReportStatus, limit, offset int) ([]traffic.Report, error)
}

type ReportService struct {
	reports       ReportStore
	violations    ViolationGetter
	scores        ScoreEnsurer
	ledger        *engine.PointLedger
	clock         engine.Clock
	defaultReward int
	log           zerolog.Logger
}

func NewReportService(
	reports ReportStore,
	violations ViolationGetter,
	scores ScoreEnsurer,
	ledger *engine.PointLedger,
	clock engine.Clock,
	defaultReward int,
	log zerolog.Logger,
) *ReportService {
	return &ReportService{
		reports:       reports,
		violations:    violations,
		scores:        scores,
		ledger:        ledger,
		clock:         clock,
		defaultReward: defaultReward,
		log:           log,
	}
}

type SubmitReportInput struct {
	ViolationID  string
	ReporterID   string
	Description  string
	EvidenceURLs []string
}

func (s *ReportService) Submit(ctx context.Context, input SubmitReportInput) (traffic.Report, error) {
	if input.ViolationID == "" {
		return traffic.Report{}, fmt.Errorf("%w: violation id is required", engine.ErrInvalidInput)
	}
	if input.ReporterID == "" {
		return traffic.Report{}, fmt.Errorf("%w: reporter id is required", engine.ErrInvalidInput)
	}

	if _, err := s.violations.Get(ctx, input.ViolationID); err != nil {
		return traffic.Report{}, err
	}

	evidence, err := json.Marshal(input.EvidenceURLs)
	if err != nil {
		return traffic.Report{}, fmt.Errorf("%w: evidence urls: %v", engine.ErrInvalidInput, err)
	}

	now := s.clock.Now()
	report := traffic.Report{
		ID:           uuid.NewString(),
		ViolationID:  input.ViolationID,
		ReporterID:   input.ReporterID,
		Description:  input.Description,
		EvidenceURLs: evidence,
		Status:       traffic.ReportSubmitted,
		SubmittedAt:  now,
	}

	if err := s.scores.Ensure(ctx, input.ReporterID, now); err != nil {
		return traffic.Report{}, err
	}
	if err := s.reports.Create(ctx, &report); err != nil {
		s.log.Error().Err(err).Str("violation_id", input.ViolationID).Msg("failed to create report")
		return traffic.Report{}, err
	}

	s.log.Info().
		Str("report_id", report.ID).
		Str("violation_id", report.ViolationID).
		Str("reporter_id", report.ReporterID).
		Msg("report submitted")

	return report, nil
}

// Approve moves the report to APPROVED and rewards the reporter. The
// SUBMITTED-guarded state transition runs first, so a report can award
// points at most once no matter how many approval requests race.
func (s *ReportService) Approve(ctx context.Context, reportID, reviewerID string, rewardPoints int) (traffic.UserScore, error) {
	if rewardPoints == 0 {
		rewardPoints = s.defaultReward
	}
	if rewardPoints < 0 {
		return traffic.UserScore{}, fmt.Errorf("%w: reward points must be non-negative, got %d", engine.ErrInvalidInput, rewardPoints)
	}

	report, err := s.reports.Get(ctx, reportID)
	if err != nil {
		return traffic.UserScore{}, err
	}

	if err := s.reports.Review(ctx, reportID, traffic.ReportApproved, reviewerID, s.clock.Now(), "", rewardPoints); err != nil {
		return traffic.UserScore{}, err
	}

	score, err := s.ledger.Apply(ctx, report.ReporterID, engine.ReportApproved{RewardPoints: rewardPoints})
	if err != nil {
		s.log.Error().
			Err(err).
			Str("report_id", reportID).
			Str("reporter_id", report.ReporterID).
			Msg("report approved but reward could not be applied")
		return traffic.UserScore{}, err
	}

	s.log.Info().
		Str("report_id", reportID).
		Str("reporter_id", report.ReporterID).
		Int("reward_points", rewardPoints).
		Int("points", score.Points).
		Int("badge_tier", int(score.BadgeTier)).
		Msg("report approved")

	return score, nil
}

func (s *ReportService) Reject(ctx context.Context, reportID, reviewerID, reason string) error {
	if err := s.reports.Review(ctx, reportID, traffic.ReportRejected, reviewerID, s.clock.Now(), reason, 0); err != nil {
		return err
	}
	s.log.Info().Str("report_id", reportID).Str("reason", reason).Msg("report rejected")
	return nil
}

func (s *ReportService) Get(ctx context.Context, id string) (traffic.Report, error) {
	return s.reports.Get(ctx, id)
}

func (s *ReportService) PendingReviews(ctx context.Context, limit, offset int) ([]traffic.Report, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.reports.FindByStatus(ctx, traffic.ReportSubmitted, limit, offset)
}
