package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"traffic-fines-service/internal/domain/traffic"
	"traffic-fines-service/internal/engine"
)

type ViolationRepository struct {
	db *gorm.DB
}

func NewViolationRepository(db *gorm.DB) *ViolationRepository {
	return &ViolationRepository{db: db}
}

type violationRow struct {
	ID            string `gorm:"primaryKey"`
	ViolatorName  string `gorm:"not null"`
	VehicleNumber string `gorm:"not null;index"`
	ViolationType string `gorm:"not null"`
	Severity      int    `gorm:"not null"`
	Location      string `gorm:"not null"`
	Latitude      *float64
	Longitude     *float64
	Description   string    `gorm:"not null"`
	ViolationTime time.Time `gorm:"not null"`
	ReportedBy    string    `gorm:"not null"`
	ReportedAt    time.Time
	EvidenceURL   *string
	IsVerified    bool
	VerifiedBy    *string
	VerifiedAt    *time.Time
}

func (violationRow) TableName() string { return "violations" }

func toViolation(row violationRow) traffic.Violation {
	return traffic.Violation{
		ID:            row.ID,
		ViolatorName:  row.ViolatorName,
		VehicleNumber: row.VehicleNumber,
		Type:          traffic.ViolationType(row.ViolationType),
		Severity:      traffic.Severity(row.Severity),
		Location:      row.Location,
		Latitude:      row.Latitude,
		Longitude:     row.Longitude,
		Description:   row.Description,
		ViolationTime: row.ViolationTime,
		ReportedBy:    row.ReportedBy,
		ReportedAt:    row.ReportedAt,
		EvidenceURL:   row.EvidenceURL,
		IsVerified:    row.IsVerified,
		VerifiedBy:    row.VerifiedBy,
		VerifiedAt:    row.VerifiedAt,
	}
}

func (r *ViolationRepository) Create(ctx context.Context, v *traffic.Violation) error {
	row := violationRow{
		ID:            v.ID,
		ViolatorName:  v.ViolatorName,
		VehicleNumber: v.VehicleNumber,
		ViolationType: string(v.Type),
		Severity:      int(v.Severity),
		Location:      v.Location,
		Latitude:      v.Latitude,
		Longitude:     v.Longitude,
		Description:   v.Description,
		ViolationTime: v.ViolationTime,
		ReportedBy:    v.ReportedBy,
		ReportedAt:    v.ReportedAt,
		EvidenceURL:   v.EvidenceURL,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	return nil
}

func (r *ViolationRepository) Get(ctx context.Context, id string) (traffic.Violation, error) {
	var row violationRow
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return traffic.Violation{}, fmt.Errorf("%w: violation %s", engine.ErrNotFound, id)
	}
	if err != nil {
		return traffic.Violation{}, err
	}
	return toViolation(row), nil
}

// Verify marks a violation as verified exactly once. A second verification
// attempt is a no-op on the row and is reported as invalid.
func (r *ViolationRepository) Verify(ctx context.Context, id, verifiedBy string, verifiedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&violationRow{}).
		Where("id = ? AND is_verified = FALSE", id).
		Updates(map[string]interface{}{
			"is_verified": true,
			"verified_by": verifiedBy,
			"verified_at": verifiedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&violationRow{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: violation %s", engine.ErrNotFound, id)
		}
		return fmt.Errorf("%w: violation %s is already verified", engine.ErrInvalidInput, id)
	}
	return nil
}

// CountRecent implements engine.ViolationHistory: a read-only point-in-time
// count of violations for the vehicle in [asOf - windowDays, asOf]. Store
// failures surface as ErrDataUnavailable so no fine is ever computed against
// an unknown history.
func (r *ViolationRepository) CountRecent(ctx context.Context, vehicleNumber string, windowDays int, asOf time.Time) (int, error) {
	since := asOf.AddDate(0, 0, -windowDays)
	var count int64
	err := r.db.WithContext(ctx).Model(&violationRow{}).
		Where("vehicle_number = ? AND violation_time >= ? AND violation_time <= ?", vehicleNumber, since, asOf).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("%w: count recent violations: %v", engine.ErrDataUnavailable, err)
	}
	return int(count), nil
}

type ViolationFilter struct {
	VehicleNumber *string
	Type          *traffic.ViolationType
	Verified      *bool
	Limit         int
	Offset        int
}

func (r *ViolationRepository) Find(ctx context.Context, filter ViolationFilter) ([]traffic.Violation, error) {
	query := r.db.WithContext(ctx).Model(&violationRow{})

	if filter.VehicleNumber != nil {
		query = query.Where("vehicle_number = ?", *filter.VehicleNumber)
	}
	if filter.Type != nil {
		query = query.Where("violation_type = ?", string(*filter.Type))
	}
	if filter.Verified != nil {
		query = query.Where("is_verified = ?", *filter.Verified)
	}

	query = query.Order("reported_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []violationRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	violations := make([]traffic.Violation, 0, len(rows))
	for _, row := range rows {
		violations = append(violations, toViolation(row))
	}
	return violations, nil
}

type ViolationStats struct {
	Total      int64            `json:"total"`
	Verified   int64            `json:"verified"`
	Pending    int64            `json:"pending"`
	ByType     map[string]int64 `json:"by_type"`
	BySeverity map[int]int64    `json:"by_severity"`
}

func (r *ViolationRepository) Statistics(ctx context.Context) (ViolationStats, error) {
	stats := ViolationStats{
		ByType:     make(map[string]int64),
		BySeverity: make(map[int]int64),
	}

	if err := r.db.WithContext(ctx).Model(&violationRow{}).Count(&stats.Total).Error; err != nil {
		return ViolationStats{}, err
	}
	if err := r.db.WithContext(ctx).Model(&violationRow{}).Where("is_verified = TRUE").Count(&stats.Verified).Error; err != nil {
		return ViolationStats{}, err
	}
	stats.Pending = stats.Total - stats.Verified

	var byType []struct {
		ViolationType string
		Count         int64
	}
	if err := r.db.WithContext(ctx).Model(&violationRow{}).
		Select("violation_type, COUNT(*) as count").
		Group("violation_type").
		Scan(&byType).Error; err != nil {
		return ViolationStats{}, err
	}
	for _, row := range byType {
		stats.ByType[row.ViolationType] = row.Count
	}

	var bySeverity []struct {
		Severity int
		Count    int64
	}
	if err := r.db.WithContext(ctx).Model(&violationRow{}).
		Select("severity, COUNT(*) as count").
		Group("severity").
		Scan(&bySeverity).Error; err != nil {
		return ViolationStats{}, err
	}
	for _, row := range bySeverity {
		stats.BySeverity[row.Severity] = row.Count
	}

	return stats, nil
}
