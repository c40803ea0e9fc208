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

// FineStore is the persistence port the fine service writes through.
type FineStore interface {
	Create(ctx context.Context, fine *traffic.FineRecord) error
	Get(ctx context.Context, id string) (traffic.FineRecord, error)
	GetByViolation(ctx context.Context, violationID string) (traffic.FineRecord, error)
	MarkPaid(ctx context.Context, id string, paidDate time.Time, method, transactionID string) error
	Overdue(ctx context.Context, asOf time.Time) ([]traffic.FineRecord, error)
	Revenue(ctx context.Context) (repository.RevenueReport, error)
}

// ViolationGetter resolves the violation a fine is being computed for.
type ViolationGetter interface {
	Get(ctx context.Context, id string) (traffic.Violation, error)
}

type FineService struct {
	violations ViolationGetter
	history    engine.ViolationHistory
	fines      FineStore
	clock      engine.Clock
	dueDays    int
	log        zerolog.Logger
}

func NewFineService(
	violations ViolationGetter,
	history engine.ViolationHistory,
	fines FineStore,
	clock engine.Clock,
	dueDays int,
	log zerolog.Logger,
) *FineService {
	return &FineService{
		violations: violations,
		history:    history,
		fines:      fines,
		clock:      clock,
		dueDays:    dueDays,
		log:        log,
	}
}

// ComputeFine computes and persists the fine for a violation. The repeat
// count comes from a fixed 180-day history window for the vehicle; if that
// lookup fails, no fine is computed — a wrong history is worse than a loud
// failure.
func (s *FineService) ComputeFine(ctx context.Context, violationID string, baseAmount float64) (traffic.FineRecord, error) {
	if violationID == "" {
		return traffic.FineRecord{}, fmt.Errorf("%w: violation id is required", engine.ErrInvalidInput)
	}

	violation, err := s.violations.Get(ctx, violationID)
	if err != nil {
		return traffic.FineRecord{}, err
	}

	now := s.clock.Now()
	vehicle := utils.NormalizeVehicleNumber(violation.VehicleNumber)

	repeatCount, err := s.history.CountRecent(ctx, vehicle, engine.RepeatOffenseWindowDays, now)
	if err != nil {
		s.log.Error().
			Err(err).
			Str("violation_id", violationID).
			Str("vehicle", vehicle).
			Msg("violation history unavailable, fine not computed")
		return traffic.FineRecord{}, err
	}

	draft, err := engine.CalculateFine(baseAmount, violation.Severity, repeatCount)
	if err != nil {
		return traffic.FineRecord{}, err
	}

	fine := traffic.FineRecord{
		ID:                       uuid.NewString(),
		ViolationID:              violation.ID,
		BaseAmount:               draft.BaseAmount,
		SeverityMultiplier:       draft.SeverityMultiplier,
		RepeatOffenderMultiplier: draft.RepeatOffenderMultiplier,
		FinalAmount:              draft.FinalAmount,
		DiscountPercentage:       draft.DiscountPercentage,
		AmountAfterDiscount:      draft.AmountAfterDiscount,
		PaymentStatus:            traffic.PaymentPending,
		DueDate:                  now.AddDate(0, 0, s.dueDays),
		CreatedAt:                now,
	}

	if err := s.fines.Create(ctx, &fine); err != nil {
		return traffic.FineRecord{}, err
	}

	s.log.Info().
		Str("fine_id", fine.ID).
		Str("violation_id", violation.ID).
		Str("vehicle", vehicle).
		Int("repeat_count", repeatCount).
		Float64("final_amount", fine.FinalAmount).
		Int("discount_percentage", fine.DiscountPercentage).
		Msg("fine computed")

	return fine, nil
}

func (s *FineService) GetFine(ctx context.Context, id string) (traffic.FineRecord, error) {
	return s.fines.Get(ctx, id)
}

func (s *FineService) GetFineForViolation(ctx context.Context, violationID string) (traffic.FineRecord, error) {
	return s.fines.GetByViolation(ctx, violationID)
}

func (s *FineService) MarkPaid(ctx context.Context, id, method, transactionID string) error {
	if id == "" {
		return fmt.Errorf("%w: fine id is required", engine.ErrInvalidInput)
	}
	if method == "" {
		method = "online"
	}
	if err := s.fines.MarkPaid(ctx, id, s.clock.Now(), method, transactionID); err != nil {
		return err
	}
	s.log.Info().Str("fine_id", id).Str("payment_method", method).Msg("fine marked as paid")
	return nil
}

func (s *FineService) OverdueFines(ctx context.Context) ([]traffic.FineRecord, error) {
	return s.fines.Overdue(ctx, s.clock.Now())
}

func (s *FineService) RevenueReport(ctx context.Context) (repository.RevenueReport, error) {
	return s.fines.Revenue(ctx)
}
