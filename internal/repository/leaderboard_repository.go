package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"traffic-fines-service/internal/domain/traffic"
	"traffic-fines-service/internal/engine"
)

type LeaderboardRepository struct {
	db *gorm.DB
}

func NewLeaderboardRepository(db *gorm.DB) *LeaderboardRepository {
	return &LeaderboardRepository{db: db}
}

type leaderboardRow struct {
	UserID           string    `gorm:"primaryKey"`
	Date             time.Time `gorm:"primaryKey"`
	Rank             int       `gorm:"not null"`
	Points           int       `gorm:"not null"`
	ReportsSubmitted int       `gorm:"not null"`
	VerifiedReports  int       `gorm:"not null"`
	BadgeTier        int       `gorm:"not null"`
}

func (leaderboardRow) TableName() string { return "leaderboard_entries" }

// Replace publishes a day's board as one atomic swap: the old entry set stays
// fully readable until the transaction replacing it commits.
func (r *LeaderboardRepository) Replace(ctx context.Context, date time.Time, entries []traffic.LeaderboardEntry) error {
	rows := make([]leaderboardRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, leaderboardRow{
			UserID:           e.UserID,
			Date:             date,
			Rank:             e.Rank,
			Points:           e.Points,
			ReportsSubmitted: e.ReportsSubmitted,
			VerifiedReports:  e.VerifiedReports,
			BadgeTier:        int(e.BadgeTier),
		})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("date = ?", date).Delete(&leaderboardRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("%w: replace leaderboard for %s: %v", engine.ErrDataUnavailable, date.Format("2006-01-02"), err)
	}
	return nil
}

func (r *LeaderboardRepository) FindByDate(ctx context.Context, date time.Time) ([]traffic.LeaderboardEntry, error) {
	var rows []leaderboardRow
	err := r.db.WithContext(ctx).
		Where("date = ?", date).
		Order("rank ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]traffic.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, traffic.LeaderboardEntry{
			UserID:           row.UserID,
			Date:             row.Date,
			Rank:             row.Rank,
			Points:           row.Points,
			ReportsSubmitted: row.ReportsSubmitted,
			VerifiedReports:  row.VerifiedReports,
			BadgeTier:        traffic.BadgeTier(row.BadgeTier),
		})
	}
	return entries, nil
}
