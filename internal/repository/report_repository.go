package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"traffic-fines-service/internal/domain/traffic"
	"traffic-fines-service/internal/engine"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

type reportRow struct {
	ID             string `gorm:"primaryKey"`
	ViolationID    string `gorm:"not null"`
	ReporterID     string `gorm:"not null"`
	Description    string `gorm:"not null"`
	EvidenceURLs   datatypes.JSON
	Status         string `gorm:"not null"`
	SubmittedAt    time.Time
	ReviewedAt     *time.Time
	ReviewedBy     *string
	ReviewComments string
	RewardPoints   int
}

func (reportRow) TableName() string { return "reports" }

func toReport(row reportRow) traffic.Report {
	return traffic.Report{
		ID:             row.ID,
		ViolationID:    row.ViolationID,
		ReporterID:     row.ReporterID,
		Description:    row.Description,
		EvidenceURLs:   row.EvidenceURLs,
		Status:         traffic.ReportStatus(row.Status),
		SubmittedAt:    row.SubmittedAt,
		ReviewedAt:     row.ReviewedAt,
		ReviewedBy:     row.ReviewedBy,
		ReviewComments: row.ReviewComments,
		RewardPoints:   row.RewardPoints,
	}
}

func (r *ReportRepository) Create(ctx context.Context, report *traffic.Report) error {
	row := reportRow{
		ID:           report.ID,
		ViolationID:  report.ViolationID,
		ReporterID:   report.ReporterID,
		Description:  report.Description,
		EvidenceURLs: report.EvidenceURLs,
		Status:       string(report.Status),
		SubmittedAt:  report.SubmittedAt,
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *ReportRepository) Get(ctx context.Context, id string) (traffic.Report, error) {
	var row reportRow
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return traffic.Report{}, fmt.Errorf("%w: report %s", engine.ErrNotFound, id)
	}
	if err != nil {
		return traffic.Report{}, err
	}
	return toReport(row), nil
}

// Review transitions a report out of SUBMITTED exactly once. The guarded
// update is what makes report approval idempotent: a report that already
// left SUBMITTED can never award points again.
func (r *ReportRepository) Review(ctx context.Context, id string, status traffic.ReportStatus, reviewedBy string, reviewedAt time.Time, comments string, rewardPoints int) error {
	res := r.db.WithContext(ctx).Model(&reportRow{}).
		Where("id = ? AND status = ?", id, string(traffic.ReportSubmitted)).
		Updates(map[string]interface{}{
			"status":          string(status),
			"reviewed_by":     reviewedBy,
			"reviewed_at":     reviewedAt,
			"review_comments": comments,
			"reward_points":   rewardPoints,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&reportRow{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: report %s", engine.ErrNotFound, id)
		}
		return fmt.Errorf("%w: report %s was already reviewed", engine.ErrInvalidInput, id)
	}
	return nil
}

func (r *ReportRepository) FindByStatus(ctx context.Context, status traffic.ReportStatus, limit, offset int) ([]traffic.Report, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", string(status)).
		Order("submitted_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []reportRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	reports := make([]traffic.Report, 0, len(rows))
	for _, row := range rows {
		reports = append(reports, toReport(row))
	}
	return reports, nil
}
