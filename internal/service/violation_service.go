package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"traffic-fines-service/internal/domain/traffic"
	"traffic-fines-service/internal/engine"
	"traffic-fines-service/internal/repository"
	"traffic-fines-service/internal/utils"
)

// ViolationStore covers what the violation service needs from persistence.
type ViolationStore interface {
	Create(ctx context.Context, v *traffic.Violation) error
	Get(ctx context.Context, id string) (traffic.Violation, error)
	Verify(ctx context.Context, id, verifiedBy string, verifiedAt time.Time) error
	Find(ctx context.Context, filter repository.ViolationFilter) ([]traffic.Violation, error)
	Statistics(ctx context.Context) (repository.ViolationStats, error)
}

// ScoreEnsurer makes sure a reporter has a score row before events target it.
type ScoreEnsurer interface {
	Ensure(ctx context.Context, userID string, now time.Time) error
}

type ViolationService struct {
	violations ViolationStore
	scores     ScoreEnsurer
	ledger     *engine.PointLedger
	clock      engine.Clock
	log        zerolog.Logger
}

func NewViolationService(
	violations ViolationStore,
	scores ScoreEnsurer,
	ledger *engine.PointLedger,
	clock engine.Clock,
	log zerolog.Logger,
) *ViolationService {
	return &ViolationService{
		violations: violations,
		scores:     scores,
		ledger:     ledger,
		clock:      clock,
		log:        log,
	}
}

type SubmitViolationInput struct {
	ViolatorName  string
	VehicleNumber string
	Type          traffic.ViolationType
	Severity      traffic.Severity
	Location      string
	Latitude      *float64
	Longitude     *float64
	Description   string
	ViolationTime time.Time
	ReportedBy    string
	EvidenceURL   *string
}

func (s *ViolationService) Submit(ctx context.Context, input SubmitViolationInput) (traffic.Violation, error) {
	if input.VehicleNumber == "" {
		return traffic.Violation{}, fmt.Errorf("%w: vehicle number is required", engine.ErrInvalidInput)
	}
	if !input.Type.Valid() {
		return traffic.Violation{}, fmt.Errorf("%w: unknown violation type %q", engine.ErrInvalidInput, input.Type)
	}
	if !input.Severity.Valid() {
		return traffic.Violation{}, fmt.Errorf("%w: severity must be in [1,4], got %d", engine.ErrInvalidInput, input.Severity)
	}
	if input.ReportedBy == "" {
		return traffic.Violation{}, fmt.Errorf("%w: reporter is required", engine.ErrInvalidInput)
	}
	if input.ViolationTime.IsZero() {
		return traffic.Violation{}, fmt.Errorf("%w: violation time is required", engine.ErrInvalidInput)
	}

	normalized := utils.NormalizeVehicleNumber(input.VehicleNumber)
	if normalized == "" {
		return traffic.Violation{}, fmt.Errorf("%w: vehicle number cannot be empty after normalization", engine.ErrInvalidInput)
	}

	now := s.clock.Now()
	violation := traffic.Violation{
		ID:            uuid.NewString(),
		ViolatorName:  input.ViolatorName,
		VehicleNumber: normalized,
		Type:          input.Type,
		Severity:      input.Severity,
		Location:      input.Location,
		Latitude:      input.Latitude,
		Longitude:     input.Longitude,
		Description:   input.Description,
		ViolationTime: input.ViolationTime,
		ReportedBy:    input.ReportedBy,
		ReportedAt:    now,
		EvidenceURL:   input.EvidenceURL,
	}

	if err := s.scores.Ensure(ctx, input.ReportedBy, now); err != nil {
		return traffic.Violation{}, err
	}
	if err := s.violations.Create(ctx, &violation); err != nil {
		s.log.Error().Err(err).Str("vehicle", normalized).Msg("failed to create violation")
		return traffic.Violation{}, err
	}

	s.log.Info().
		Str("violation_id", violation.ID).
		Str("vehicle", normalized).
		Str("type", string(violation.Type)).
		Int("severity", int(violation.Severity)).
		Msg("violation submitted")

	return violation, nil
}

// Verify confirms a violation once and counts the confirmation against the
// reporter's running tally through the ledger.
func (s *ViolationService) Verify(ctx context.Context, id, verifiedBy string) (traffic.Violation, error) {
	if id == "" {
		return traffic.Violation{}, fmt.Errorf("%w: violation id is required", engine.ErrInvalidInput)
	}
	if verifiedBy == "" {
		return traffic.Violation{}, fmt.Errorf("%w: verifier is required", engine.ErrInvalidInput)
	}

	if err := s.violations.Verify(ctx, id, verifiedBy, s.clock.Now()); err != nil {
		return traffic.Violation{}, err
	}

	violation, err := s.violations.Get(ctx, id)
	if err != nil {
		return traffic.Violation{}, err
	}

	if _, err := s.ledger.Apply(ctx, violation.ReportedBy, engine.ViolationConfirmed{}); err != nil {
		s.log.Error().
			Err(err).
			Str("violation_id", id).
			Str("user_id", violation.ReportedBy).
			Msg("failed to record violation confirmation")
		return traffic.Violation{}, err
	}

	s.log.Info().
		Str("violation_id", id).
		Str("verified_by", verifiedBy).
		Msg("violation verified")

	return violation, nil
}

func (s *ViolationService) Get(ctx context.Context, id string) (traffic.Violation, error) {
	return s.violations.Get(ctx, id)
}

func (s *ViolationService) Find(ctx context.Context, filter repository.ViolationFilter) ([]traffic.Violation, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.VehicleNumber != nil {
		normalized := utils.NormalizeVehicleNumber(*filter.VehicleNumber)
		filter.VehicleNumber = &normalized
	}
	return s.violations.Find(ctx, filter)
}

func (s *ViolationService) PendingReview(ctx context.Context, limit, offset int) ([]traffic.Violation, error) {
	unverified := false
	return s.Find(ctx, repository.ViolationFilter{
		Verified: &unverified,
		Limit:    limit,
		Offset:   offset,
	})
}

func (s *ViolationService) Statistics(ctx context.Context) (repository.ViolationStats, error) {
	return s.violations.Statistics(ctx)
}
