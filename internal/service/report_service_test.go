package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traffic-fines-service/internal/domain/traffic"
	"traffic-fines-service/internal/engine"
)

type memScoreStore struct {
	mu       sync.Mutex
	scores   map[string]traffic.UserScore
	versions map[string]int64
	ensured  []string
}

func newMemScoreStore(scores ...traffic.UserScore) *memScoreStore {
	s := &memScoreStore{
		scores:   make(map[string]traffic.UserScore),
		versions: make(map[string]int64),
	}
	for _, score := range scores {
		s.scores[score.UserID] = score
	}
	return s
}

func (s *memScoreStore) Ensure(_ context.Context, userID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensured = append(s.ensured, userID)
	if _, ok := s.scores[userID]; !ok {
		s.scores[userID] = traffic.UserScore{UserID: userID, BadgeTier: traffic.BadgeBronze, UpdatedAt: now}
	}
	return nil
}

func (s *memScoreStore) Get(_ context.Context, userID string) (traffic.UserScore, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	score, ok := s.scores[userID]
	if !ok {
		return traffic.UserScore{}, 0, fmt.Errorf("%w: user %s", engine.ErrNotFound, userID)
	}
	return score, s.versions[userID], nil
}

func (s *memScoreStore) UpdateCAS(_ context.Context, score traffic.UserScore, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.versions[score.UserID] != expectedVersion {
		return fmt.Errorf("%w: user %s", engine.ErrConflict, score.UserID)
	}
	s.scores[score.UserID] = score
	s.versions[score.UserID] = expectedVersion + 1
	return nil
}

func (s *memScoreStore) Snapshot(context.Context) ([]traffic.ScoreSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]traffic.ScoreSnapshot, 0, len(s.scores))
	for _, score := range s.scores {
		snapshot = append(snapshot, traffic.ScoreSnapshot{
			UserID:          score.UserID,
			Points:          score.Points,
			VerifiedReports: score.ReportsCount,
			BadgeTier:       score.BadgeTier,
		})
	}
	return snapshot, nil
}

type memReportStore struct {
	mu      sync.Mutex
	reports map[string]traffic.Report
}

func newMemReportStore(reports ...traffic.Report) *memReportStore {
	s := &memReportStore{reports: make(map[string]traffic.Report)}
	for _, r := range reports {
		s.reports[r.ID] = r
	}
	return s
}

func (s *memReportStore) Create(_ context.Context, report *traffic.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.ID] = *report
	return nil
}

func (s *memReportStore) Get(_ context.Context, id string) (traffic.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.reports[id]
	if !ok {
		return traffic.Report{}, fmt.Errorf("%w: report %s", engine.ErrNotFound, id)
	}
	return report, nil
}

func (s *memReportStore) Review(_ context.Context, id string, status traffic.ReportStatus, reviewedBy string, reviewedAt time.Time, comments string, rewardPoints int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.reports[id]
	if !ok {
		return fmt.Errorf("%w: report %s", engine.ErrNotFound, id)
	}
	if report.Status != traffic.ReportSubmitted {
		return fmt.Errorf("%w: report %s was already reviewed", engine.ErrInvalidInput, id)
	}
	report.Status = status
	report.ReviewedBy = &reviewedBy
	report.ReviewedAt = &reviewedAt
	report.ReviewComments = comments
	report.RewardPoints = rewardPoints
	s.reports[id] = report
	return nil
}

func (s *memReportStore) FindByStatus(_ context.Context, status traffic.ReportStatus, _, _ int) ([]traffic.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []traffic.Report
	for _, r := range s.reports {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out, nil
}

func newReportFixture(t *testing.T) (*ReportService, *memReportStore, *memScoreStore) {
	t.Helper()
	clock := fakeClock{now: testNow}
	scores := newMemScoreStore(traffic.UserScore{UserID: "reporter-1", Points: 980, ReportsCount: 7, BadgeTier: traffic.BadgeBronze})
	reports := newMemReportStore(traffic.Report{
		ID:          "r1",
		ViolationID: "v1",
		ReporterID:  "reporter-1",
		Status:      traffic.ReportSubmitted,
		SubmittedAt: testNow.Add(-time.Hour),
	})
	violations := &fakeViolationGetter{violations: map[string]traffic.Violation{
		"v1": {ID: "v1", VehicleNumber: "KA01AB1234", Severity: traffic.SeverityLow},
	}}
	ledger := engine.NewPointLedger(scores, clock, zerolog.Nop())
	svc := NewReportService(reports, violations, scores, ledger, clock, 50, zerolog.Nop())
	return svc, reports, scores
}

func TestApproveReportAwardsPoints(t *testing.T) {
	svc, reports, _ := newReportFixture(t)

	score, err := svc.Approve(context.Background(), "r1", "admin", 50)
	require.NoError(t, err)

	assert.Equal(t, 1030, score.Points)
	assert.Equal(t, 8, score.ReportsCount)
	assert.Equal(t, traffic.BadgeSilver, score.BadgeTier)

	report, err := reports.Get(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, traffic.ReportApproved, report.Status)
	assert.Equal(t, 50, report.RewardPoints)
}

func TestApproveReportTwiceAwardsOnce(t *testing.T) {
	svc, _, scores := newReportFixture(t)

	_, err := svc.Approve(context.Background(), "r1", "admin", 50)
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), "r1", "admin", 50)
	assert.ErrorIs(t, err, engine.ErrInvalidInput, "second approval must be rejected by the state machine")

	score, _, err := scores.Get(context.Background(), "reporter-1")
	require.NoError(t, err)
	assert.Equal(t, 1030, score.Points, "reward must be applied exactly once")
}

func TestApproveReportDefaultReward(t *testing.T) {
	svc, reports, _ := newReportFixture(t)

	_, err := svc.Approve(context.Background(), "r1", "admin", 0)
	require.NoError(t, err)

	report, err := reports.Get(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, 50, report.RewardPoints)
}

func TestApproveReportNegativeReward(t *testing.T) {
	svc, reports, _ := newReportFixture(t)

	_, err := svc.Approve(context.Background(), "r1", "admin", -10)
	assert.ErrorIs(t, err, engine.ErrInvalidInput)

	report, err := reports.Get(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, traffic.ReportSubmitted, report.Status)
}

func TestApproveReportUnknown(t *testing.T) {
	svc, _, _ := newReportFixture(t)

	_, err := svc.Approve(context.Background(), "nope", "admin", 50)
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestRejectReport(t *testing.T) {
	svc, reports, scores := newReportFixture(t)

	require.NoError(t, svc.Reject(context.Background(), "r1", "admin", "blurry evidence"))

	report, err := reports.Get(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, traffic.ReportRejected, report.Status)
	assert.Equal(t, "blurry evidence", report.ReviewComments)

	score, _, err := scores.Get(context.Background(), "reporter-1")
	require.NoError(t, err)
	assert.Equal(t, 980, score.Points, "rejection must not touch the score")
}

func TestSubmitReport(t *testing.T) {
	svc, _, scores := newReportFixture(t)

	report, err := svc.Submit(context.Background(), SubmitReportInput{
		ViolationID:  "v1",
		ReporterID:   "reporter-2",
		Description:  "ran the light at 5th and Main",
		EvidenceURLs: []string{"https://evidence.example/1.jpg"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, traffic.ReportSubmitted, report.Status)
	assert.Contains(t, scores.ensured, "reporter-2", "submitting must create the reporter's score row")
}

func TestSubmitReportUnknownViolation(t *testing.T) {
	svc, _, _ := newReportFixture(t)

	_, err := svc.Submit(context.Background(), SubmitReportInput{
		ViolationID: "missing",
		ReporterID:  "reporter-2",
	})
	assert.ErrorIs(t, err, engine.ErrNotFound)
}
