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

type ScoreRepository struct {
	db *gorm.DB
}

func NewScoreRepository(db *gorm.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

type userScoreRow struct {
	UserID          string `gorm:"primaryKey"`
	Points          int    `gorm:"not null"`
	ViolationsCount int    `gorm:"not null"`
	ReportsCount    int    `gorm:"not null"`
	BadgeTier       int    `gorm:"not null"`
	Version         int64  `gorm:"not null"`
	UpdatedAt       time.Time
}

func (userScoreRow) TableName() string { return "user_scores" }

// Ensure creates a zeroed score row for the user if none exists yet.
func (r *ScoreRepository) Ensure(ctx context.Context, userID string, now time.Time) error {
	row := userScoreRow{
		UserID:    userID,
		BadgeTier: int(traffic.BadgeBronze),
		UpdatedAt: now,
	}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		FirstOrCreate(&row).Error
	if err != nil {
		return fmt.Errorf("ensure score for user %s: %w", userID, err)
	}
	return nil
}

func (r *ScoreRepository) Get(ctx context.Context, userID string) (traffic.UserScore, int64, error) {
	var row userScoreRow
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return traffic.UserScore{}, 0, fmt.Errorf("%w: user %s", engine.ErrNotFound, userID)
	}
	if err != nil {
		return traffic.UserScore{}, 0, err
	}
	return traffic.UserScore{
		UserID:          row.UserID,
		Points:          row.Points,
		ViolationsCount: row.ViolationsCount,
		ReportsCount:    row.ReportsCount,
		BadgeTier:       traffic.BadgeTier(row.BadgeTier),
		UpdatedAt:       row.UpdatedAt,
	}, row.Version, nil
}

// UpdateCAS writes points, counters and badge tier in one statement guarded
// by the row version. Zero rows affected means the version moved underneath
// us and the update lost its race.
func (r *ScoreRepository) UpdateCAS(ctx context.Context, score traffic.UserScore, expectedVersion int64) error {
	res := r.db.WithContext(ctx).Model(&userScoreRow{}).
		Where("user_id = ? AND version = ?", score.UserID, expectedVersion).
		Updates(map[string]interface{}{
			"points":           score.Points,
			"violations_count": score.ViolationsCount,
			"reports_count":    score.ReportsCount,
			"badge_tier":       int(score.BadgeTier),
			"version":          expectedVersion + 1,
			"updated_at":       score.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: user %s version %d", engine.ErrConflict, score.UserID, expectedVersion)
	}
	return nil
}

// Snapshot reads every user's score plus submitted-report totals in a single
// statement, so ranking always sees one point in time.
func (r *ScoreRepository) Snapshot(ctx context.Context) ([]traffic.ScoreSnapshot, error) {
	var rows []struct {
		UserID           string
		Points           int
		ReportsSubmitted int
		VerifiedReports  int
		BadgeTier        int
	}
	err := r.db.WithContext(ctx).
		Table("user_scores").
		Select(`user_scores.user_id,
			user_scores.points,
			COALESCE(submitted.total, 0) AS reports_submitted,
			user_scores.reports_count AS verified_reports,
			user_scores.badge_tier`).
		Joins(`LEFT JOIN (
			SELECT reporter_id, COUNT(*) AS total FROM reports GROUP BY reporter_id
		) submitted ON submitted.reporter_id = user_scores.user_id`).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: score snapshot: %v", engine.ErrDataUnavailable, err)
	}

	snapshot := make([]traffic.ScoreSnapshot, 0, len(rows))
	for _, row := range rows {
		snapshot = append(snapshot, traffic.ScoreSnapshot{
			UserID:           row.UserID,
			Points:           row.Points,
			ReportsSubmitted: row.ReportsSubmitted,
			VerifiedReports:  row.VerifiedReports,
			BadgeTier:        traffic.BadgeTier(row.BadgeTier),
		})
	}
	return snapshot, nil
}

// TopContributors returns the highest reports_count users, most active first.
func (r *ScoreRepository) TopContributors(ctx context.Context, limit int) ([]traffic.UserScore, error) {
	var rows []userScoreRow
	err := r.db.WithContext(ctx).
		Order("reports_count DESC, user_id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	scores := make([]traffic.UserScore, 0, len(rows))
	for _, row := range rows {
		scores = append(scores, traffic.UserScore{
			UserID:          row.UserID,
			Points:          row.Points,
			ViolationsCount: row.ViolationsCount,
			ReportsCount:    row.ReportsCount,
			BadgeTier:       traffic.BadgeTier(row.BadgeTier),
			UpdatedAt:       row.UpdatedAt,
		})
	}
	return scores, nil
}
