package traffic

import (
	"time"

	"gorm.io/datatypes"
)

// Severity is the ordinal seriousness of a violation: 1 (Low) to 4 (Critical).
type Severity int

const (
	SeverityLow      Severity = 1
	SeverityMedium   Severity = 2
	SeverityHigh     Severity = 3
	SeverityCritical Severity = 4
)

func (s Severity) Valid() bool {
	return s >= SeverityLow && s <= SeverityCritical
}

type ViolationType string

const (
	ViolationSpeeding    ViolationType = "SPEEDING"
	ViolationSignalJump  ViolationType = "SIGNAL_JUMP"
	ViolationParking     ViolationType = "PARKING"
	ViolationLaneChange  ViolationType = "LANE_CHANGE"
	ViolationNoHelmet    ViolationType = "NO_HELMET"
	ViolationRashDriving ViolationType = "RASH_DRIVING"
	ViolationOther       ViolationType = "OTHER"
)

func (t ViolationType) Valid() bool {
	switch t {
	case ViolationSpeeding, ViolationSignalJump, ViolationParking,
		ViolationLaneChange, ViolationNoHelmet, ViolationRashDriving, ViolationOther:
		return true
	}
	return false
}

type Violation struct {
	ID            string     `json:"violation_id"`
	ViolatorName  string     `json:"violator_name"`
	VehicleNumber string     `json:"vehicle_number"`
	Type          ViolationType `json:"violation_type"`
	Severity      Severity   `json:"severity"`
	Location      string     `json:"location"`
	Latitude      *float64   `json:"latitude,omitempty"`
	Longitude     *float64   `json:"longitude,omitempty"`
	Description   string     `json:"description"`
	ViolationTime time.Time  `json:"violation_time"`
	ReportedBy    string     `json:"reported_by"`
	ReportedAt    time.Time  `json:"reported_at"`
	EvidenceURL   *string    `json:"evidence_image,omitempty"`
	IsVerified    bool       `json:"is_verified"`
	VerifiedBy    *string    `json:"verified_by,omitempty"`
	VerifiedAt    *time.Time `json:"verified_at,omitempty"`
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentOverdue PaymentStatus = "OVERDUE"
	PaymentWaived  PaymentStatus = "WAIVED"
)

// FineRecord holds the audited outcome of a fine computation for one
// violation. The amount fields never change after creation; only the
// payment fields do.
type FineRecord struct {
	ID                       string        `json:"fine_id"`
	ViolationID              string        `json:"violation_id"`
	BaseAmount               float64       `json:"base_amount"`
	SeverityMultiplier       float64       `json:"severity_multiplier"`
	RepeatOffenderMultiplier float64       `json:"repeat_offender_multiplier"`
	FinalAmount              float64       `json:"final_amount"`
	DiscountPercentage       int           `json:"discount_percentage"`
	AmountAfterDiscount      float64       `json:"amount_after_discount"`
	PaymentStatus            PaymentStatus `json:"payment_status"`
	DueDate                  time.Time     `json:"due_date"`
	PaidDate                 *time.Time    `json:"paid_date,omitempty"`
	PaymentMethod            *string       `json:"payment_method,omitempty"`
	TransactionID            *string       `json:"transaction_id,omitempty"`
	CreatedAt                time.Time     `json:"created_at"`
}

// BadgeTier is the gamification level derived from accumulated points:
// Bronze=1, Silver=2, Gold=3, Platinum=4.
type BadgeTier int

const (
	BadgeBronze   BadgeTier = 1
	BadgeSilver   BadgeTier = 2
	BadgeGold     BadgeTier = 3
	BadgePlatinum BadgeTier = 4
)

func (b BadgeTier) String() string {
	switch b {
	case BadgeBronze:
		return "Bronze"
	case BadgeSilver:
		return "Silver"
	case BadgeGold:
		return "Gold"
	case BadgePlatinum:
		return "Platinum"
	}
	return "Unknown"
}

// UserScore is a reporter's gamification state. It is mutated only through
// the point ledger; badge tier always matches the points value.
type UserScore struct {
	UserID          string    `json:"user_id"`
	Points          int       `json:"points"`
	ViolationsCount int       `json:"violations_count"`
	ReportsCount    int       `json:"reports_count"`
	BadgeTier       BadgeTier `json:"badge_tier"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ScoreSnapshot is one row of a point-in-time read of all user scores,
// captured before ranking begins.
type ScoreSnapshot struct {
	UserID           string    `json:"user_id"`
	Points           int       `json:"points"`
	ReportsSubmitted int       `json:"reports_submitted"`
	VerifiedReports  int       `json:"verified_reports"`
	BadgeTier        BadgeTier `json:"badge_tier"`
}

// LeaderboardEntry is write-once per (user, date); the set for a date is
// published as a single batch.
type LeaderboardEntry struct {
	UserID           string    `json:"user_id"`
	Date             time.Time `json:"date"`
	Rank             int       `json:"rank"`
	Points           int       `json:"points"`
	ReportsSubmitted int       `json:"reports_submitted"`
	VerifiedReports  int       `json:"verified_reports"`
	BadgeTier        BadgeTier `json:"badge_tier"`
}

type ReportStatus string

const (
	ReportSubmitted   ReportStatus = "SUBMITTED"
	ReportUnderReview ReportStatus = "UNDER_REVIEW"
	ReportApproved    ReportStatus = "APPROVED"
	ReportRejected    ReportStatus = "REJECTED"
)

// Report is a peer-to-peer traffic report filed against a violation. Its
// state machine guards double-award: approval transitions it out of
// SUBMITTED exactly once.
type Report struct {
	ID             string         `json:"report_id"`
	ViolationID    string         `json:"violation_id"`
	ReporterID     string         `json:"reporter_id"`
	Description    string         `json:"description"`
	EvidenceURLs   datatypes.JSON `json:"evidence_urls"`
	Status         ReportStatus   `json:"status"`
	SubmittedAt    time.Time      `json:"submitted_at"`
	ReviewedAt     *time.Time     `json:"reviewed_at,omitempty"`
	ReviewedBy     *string        `json:"reviewed_by,omitempty"`
	ReviewComments string         `json:"review_comments,omitempty"`
	RewardPoints   int            `json:"reward_points"`
}
