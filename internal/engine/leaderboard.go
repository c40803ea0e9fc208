package engine

import (
	"sort"
	"time"

	"traffic-fines-service/internal/domain/traffic"
)

// Rank orders a point-in-time snapshot of user scores into a day's
// leaderboard with dense 1-based ranks. Tied users still receive distinct,
// consecutive ranks (never shared "competition" ranks); the ordering is
//
//	points desc, verified_reports desc, user id asc
//
// so the output is a pure function of the snapshot — ranking the same
// snapshot and date twice yields identical entries. The input slice is not
// modified.
func Rank(snapshot []traffic.ScoreSnapshot, date time.Time) []traffic.LeaderboardEntry {
	ordered := make([]traffic.ScoreSnapshot, len(snapshot))
	copy(ordered, snapshot)

	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Points != ordered[j].Points {
			return ordered[i].Points > ordered[j].Points
		}
		if ordered[i].VerifiedReports != ordered[j].VerifiedReports {
			return ordered[i].VerifiedReports > ordered[j].VerifiedReports
		}
		return ordered[i].UserID < ordered[j].UserID
	})

	entries := make([]traffic.LeaderboardEntry, 0, len(ordered))
	for i, s := range ordered {
		entries = append(entries, traffic.LeaderboardEntry{
			UserID:           s.UserID,
			Date:             date,
			Rank:             i + 1,
			Points:           s.Points,
			ReportsSubmitted: s.ReportsSubmitted,
			VerifiedReports:  s.VerifiedReports,
			BadgeTier:        s.BadgeTier,
		})
	}
	return entries
}
