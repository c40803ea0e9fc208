package engine

import (
	"fmt"
	"math"

	"traffic-fines-service/internal/domain/traffic"
)

// RepeatOffenseWindowDays is the fixed lookback used to count prior
// violations for the same vehicle.
const RepeatOffenseWindowDays = 180

// rehabilitation discount: 10% off once a vehicle reaches this many repeat
// offenses in the window.
const (
	rehabDiscountThreshold  = 5
	rehabDiscountPercentage = 10
)

// FineDraft is a fully computed fine before the caller assigns an identifier
// and due date.
type FineDraft struct {
	BaseAmount               float64
	SeverityMultiplier       float64
	RepeatOffenderMultiplier float64
	FinalAmount              float64
	DiscountPercentage       int
	AmountAfterDiscount      float64
}

// roundCurrency rounds to 2 decimal places, half-up (ties away from zero).
// Both fine amounts go through this exact helper so the two are always
// rounded identically.
func roundCurrency(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// CalculateFine turns a base amount, a severity and a repeat-offense count
// into a fine draft. Pure: identical inputs always produce identical drafts.
//
//	severity_multiplier        = 1.0 + severity*0.5
//	repeat_offender_multiplier = max(1.0, 1.0 + repeatCount*0.2)
//	final_amount               = round(base * sev_mult * repeat_mult)
//	amount_after_discount      = round(final * (1 - discount/100))
func CalculateFine(baseAmount float64, severity traffic.Severity, repeatCount int) (FineDraft, error) {
	if baseAmount <= 0 {
		return FineDraft{}, fmt.Errorf("%w: base amount must be positive, got %.2f", ErrInvalidInput, baseAmount)
	}
	if !severity.Valid() {
		return FineDraft{}, fmt.Errorf("%w: severity must be in [1,4], got %d", ErrInvalidInput, severity)
	}
	if repeatCount < 0 {
		return FineDraft{}, fmt.Errorf("%w: repeat count must be non-negative, got %d", ErrInvalidInput, repeatCount)
	}

	severityMultiplier := 1.0 + float64(severity)*0.5
	repeatMultiplier := math.Max(1.0, 1.0+float64(repeatCount)*0.2)

	finalAmount := roundCurrency(baseAmount * severityMultiplier * repeatMultiplier)

	discount := 0
	if repeatCount >= rehabDiscountThreshold {
		discount = rehabDiscountPercentage
	}
	afterDiscount := roundCurrency(finalAmount * (1 - float64(discount)/100))

	return FineDraft{
		BaseAmount:               baseAmount,
		SeverityMultiplier:       severityMultiplier,
		RepeatOffenderMultiplier: repeatMultiplier,
		FinalAmount:              finalAmount,
		DiscountPercentage:       discount,
		AmountAfterDiscount:      afterDiscount,
	}, nil
}
