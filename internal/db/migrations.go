package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE TABLE IF NOT EXISTS violations (
		id                  TEXT PRIMARY KEY,
		violator_name       TEXT NOT NULL,
		vehicle_number      TEXT NOT NULL,
		violation_type      TEXT NOT NULL,
		severity            INT NOT NULL,
		location            TEXT NOT NULL,
		latitude            DOUBLE PRECISION,
		longitude           DOUBLE PRECISION,
		description         TEXT NOT NULL,
		violation_time      TIMESTAMPTZ NOT NULL,
		reported_by         TEXT NOT NULL,
		reported_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
		evidence_url        TEXT,
		is_verified         BOOLEAN NOT NULL DEFAULT FALSE,
		verified_by         TEXT,
		verified_at         TIMESTAMPTZ
	);`,
	`CREATE INDEX IF NOT EXISTS idx_violations_vehicle_time ON violations(vehicle_number, violation_time);`,
	`CREATE INDEX IF NOT EXISTS idx_violations_type ON violations(violation_type, reported_at DESC);`,
	`CREATE TABLE IF NOT EXISTS fines (
		id                          TEXT PRIMARY KEY,
		violation_id                TEXT NOT NULL UNIQUE REFERENCES violations(id),
		base_amount                 NUMERIC(10,2) NOT NULL,
		severity_multiplier         DOUBLE PRECISION NOT NULL,
		repeat_offender_multiplier  DOUBLE PRECISION NOT NULL,
		final_amount                NUMERIC(10,2) NOT NULL,
		discount_percentage         INT NOT NULL DEFAULT 0,
		amount_after_discount       NUMERIC(10,2) NOT NULL,
		payment_status              TEXT NOT NULL DEFAULT 'PENDING',
		due_date                    DATE NOT NULL,
		paid_date                   DATE,
		payment_method              TEXT,
		transaction_id              TEXT UNIQUE,
		created_at                  TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_fines_status_due ON fines(payment_status, due_date);`,
	`CREATE TABLE IF NOT EXISTS user_scores (
		user_id             TEXT PRIMARY KEY,
		points              INT NOT NULL DEFAULT 0 CHECK (points >= 0),
		violations_count    INT NOT NULL DEFAULT 0,
		reports_count       INT NOT NULL DEFAULT 0 CHECK (reports_count >= 0),
		badge_tier          INT NOT NULL DEFAULT 1,
		version             BIGINT NOT NULL DEFAULT 0,
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_user_scores_points ON user_scores(points DESC);`,
	`CREATE TABLE IF NOT EXISTS reports (
		id              TEXT PRIMARY KEY,
		violation_id    TEXT NOT NULL REFERENCES violations(id),
		reporter_id     TEXT NOT NULL,
		description     TEXT NOT NULL,
		evidence_urls   JSONB NOT NULL DEFAULT '[]',
		status          TEXT NOT NULL DEFAULT 'SUBMITTED',
		submitted_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		reviewed_at     TIMESTAMPTZ,
		reviewed_by     TEXT,
		review_comments TEXT NOT NULL DEFAULT '',
		reward_points   INT NOT NULL DEFAULT 0 CHECK (reward_points >= 0)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status, submitted_at DESC);`,
	`CREATE TABLE IF NOT EXISTS leaderboard_entries (
		user_id             TEXT NOT NULL,
		date                DATE NOT NULL,
		rank                INT NOT NULL,
		points              INT NOT NULL,
		reports_submitted   INT NOT NULL,
		verified_reports    INT NOT NULL,
		badge_tier          INT NOT NULL,
		PRIMARY KEY (user_id, date)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_leaderboard_date_rank ON leaderboard_entries(date, rank);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
