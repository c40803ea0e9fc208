package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"traffic-fines-service/internal/domain/traffic"
	"traffic-fines-service/internal/engine"
	"traffic-fines-service/internal/repository"
	"traffic-fines-service/internal/service"
)

type Handler struct {
	violations  *service.ViolationService
	reports     *service.ReportService
	fines       *service.FineService
	profiles    *service.ProfileService
	leaderboard *service.LeaderboardService
	log         zerolog.Logger
}

func NewHandler(
	violations *service.ViolationService,
	reports *service.ReportService,
	fines *service.FineService,
	profiles *service.ProfileService,
	leaderboard *service.LeaderboardService,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		violations:  violations,
		reports:     reports,
		fines:       fines,
		profiles:    profiles,
		leaderboard: leaderboard,
		log:         log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	// Public endpoints
	public := r.Group("/api/v1")
	{
		public.GET("/violations", h.listViolations)
		public.GET("/violations/statistics", h.violationStatistics)
		public.GET("/violations/:id", h.getViolation)
		public.GET("/profiles/top", h.topContributors)
		public.GET("/profiles/:id", h.getProfile)
		public.GET("/leaderboard", h.getLeaderboard)
		public.GET("/leaderboard/today", h.todayLeaderboard)
	}

	// Review and fine management require authentication
	protected := r.Group("/api/v1")
	protected.Use(authMiddleware)
	{
		protected.POST("/violations", h.submitViolation)
		protected.POST("/violations/:id/verify", h.verifyViolation)
		protected.POST("/reports", h.submitReport)
		protected.GET("/reports/pending", h.pendingReports)
		protected.POST("/reports/:id/approve", h.approveReport)
		protected.POST("/reports/:id/reject", h.rejectReport)
		protected.POST("/fines", h.computeFine)
		protected.GET("/fines/overdue", h.overdueFines)
		protected.GET("/fines/revenue", h.revenueReport)
		protected.GET("/fines/:id", h.getFine)
		protected.POST("/fines/:id/pay", h.payFine)
		protected.POST("/profiles/:id/points", h.awardPoints)
		protected.POST("/leaderboard/generate", h.generateLeaderboard)
	}
}

type submitViolationRequest struct {
	ViolatorName  string    `json:"violator_name"`
	VehicleNumber string    `json:"vehicle_number" binding:"required"`
	ViolationType string    `json:"violation_type" binding:"required"`
	Severity      int       `json:"severity" binding:"required"`
	Location      string    `json:"location"`
	Latitude      *float64  `json:"latitude"`
	Longitude     *float64  `json:"longitude"`
	Description   string    `json:"description"`
	ViolationTime time.Time `json:"violation_time"`
	EvidenceURL   *string   `json:"evidence_image"`
}

func (h *Handler) submitViolation(c *gin.Context) {
	var req submitViolationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	if req.ViolationTime.IsZero() {
		req.ViolationTime = time.Now()
	}

	violation, err := h.violations.Submit(c.Request.Context(), service.SubmitViolationInput{
		ViolatorName:  req.ViolatorName,
		VehicleNumber: req.VehicleNumber,
		Type:          traffic.ViolationType(req.ViolationType),
		Severity:      traffic.Severity(req.Severity),
		Location:      req.Location,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Description:   req.Description,
		ViolationTime: req.ViolationTime,
		ReportedBy:    authenticatedUser(c, "anonymous"),
		EvidenceURL:   req.EvidenceURL,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(violation))
}

func (h *Handler) verifyViolation(c *gin.Context) {
	violation, err := h.violations.Verify(c.Request.Context(), c.Param("id"), authenticatedUser(c, "system"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(violation))
}

func (h *Handler) getViolation(c *gin.Context) {
	violation, err := h.violations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(violation))
}

func (h *Handler) listViolations(c *gin.Context) {
	filter := repository.ViolationFilter{
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	}
	if vehicle := strings.TrimSpace(c.Query("vehicle")); vehicle != "" {
		filter.VehicleNumber = &vehicle
	}
	if vt := strings.TrimSpace(c.Query("type")); vt != "" {
		t := traffic.ViolationType(vt)
		filter.Type = &t
	}
	if v := strings.TrimSpace(c.Query("verified")); v != "" {
		verified := v == "true"
		filter.Verified = &verified
	}

	violations, err := h.violations.Find(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(violations))
}

func (h *Handler) violationStatistics(c *gin.Context) {
	stats, err := h.violations.Statistics(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(stats))
}

type submitReportRequest struct {
	ViolationID  string   `json:"violation_id" binding:"required"`
	Description  string   `json:"description"`
	EvidenceURLs []string `json:"evidence_urls"`
}

func (h *Handler) submitReport(c *gin.Context) {
	var req submitReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	report, err := h.reports.Submit(c.Request.Context(), service.SubmitReportInput{
		ViolationID:  req.ViolationID,
		ReporterID:   authenticatedUser(c, "anonymous"),
		Description:  req.Description,
		EvidenceURLs: req.EvidenceURLs,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(report))
}

type approveReportRequest struct {
	Reward int `json:"reward"`
}

func (h *Handler) approveReport(c *gin.Context) {
	var req approveReportRequest
	_ = c.ShouldBindJSON(&req)

	score, err := h.reports.Approve(c.Request.Context(), c.Param("id"), authenticatedUser(c, "system"), req.Reward)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "report approved",
		"score":  score,
	})
}

type rejectReportRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) rejectReport(c *gin.Context) {
	var req rejectReportRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.reports.Reject(c.Request.Context(), c.Param("id"), authenticatedUser(c, "system"), req.Reason); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "report rejected"})
}

func (h *Handler) pendingReports(c *gin.Context) {
	reports, err := h.reports.PendingReviews(c.Request.Context(), queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(reports))
}

type computeFineRequest struct {
	ViolationID string  `json:"violation_id" binding:"required"`
	BaseAmount  float64 `json:"base_amount" binding:"required"`
}

func (h *Handler) computeFine(c *gin.Context) {
	var req computeFineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	fine, err := h.fines.ComputeFine(c.Request.Context(), req.ViolationID, req.BaseAmount)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(fine))
}

func (h *Handler) getFine(c *gin.Context) {
	fine, err := h.fines.GetFine(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(fine))
}

type payFineRequest struct {
	PaymentMethod string `json:"payment_method"`
	TransactionID string `json:"transaction_id"`
}

func (h *Handler) payFine(c *gin.Context) {
	var req payFineRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.fines.MarkPaid(c.Request.Context(), c.Param("id"), req.PaymentMethod, req.TransactionID); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "fine marked as paid"})
}

func (h *Handler) overdueFines(c *gin.Context) {
	fines, err := h.fines.OverdueFines(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(fines))
}

func (h *Handler) revenueReport(c *gin.Context) {
	report, err := h.fines.RevenueReport(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(report))
}

func (h *Handler) getProfile(c *gin.Context) {
	score, err := h.profiles.GetScore(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(score))
}

type awardPointsRequest struct {
	Points int `json:"points" binding:"required"`
}

func (h *Handler) awardPoints(c *gin.Context) {
	var req awardPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	score, err := h.profiles.AwardReportApproval(c.Request.Context(), c.Param("id"), req.Points)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(score))
}

func (h *Handler) topContributors(c *gin.Context) {
	scores, err := h.profiles.TopContributors(c.Request.Context(), queryInt(c, "limit", 10))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(scores))
}

func (h *Handler) getLeaderboard(c *gin.Context) {
	dateParam := strings.TrimSpace(c.Query("date"))
	if dateParam == "" {
		c.JSON(http.StatusBadRequest, errorResponse("date parameter is required"))
		return
	}
	date, err := time.Parse("2006-01-02", dateParam)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid date format, expected YYYY-MM-DD"))
		return
	}

	entries, err := h.leaderboard.ForDate(c.Request.Context(), date)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(entries))
}

func (h *Handler) todayLeaderboard(c *gin.Context) {
	entries, err := h.leaderboard.Today(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(entries))
}

type generateLeaderboardRequest struct {
	Date string `json:"date"`
}

func (h *Handler) generateLeaderboard(c *gin.Context) {
	var req generateLeaderboardRequest
	_ = c.ShouldBindJSON(&req)

	var entries []traffic.LeaderboardEntry
	var err error
	if req.Date == "" {
		entries, err = h.leaderboard.GenerateToday(c.Request.Context())
	} else {
		var date time.Time
		date, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid date format, expected YYYY-MM-DD"))
			return
		}
		entries, err = h.leaderboard.Generate(c.Request.Context(), date)
	}
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(entries))
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, engine.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, engine.ErrDataUnavailable):
		c.JSON(http.StatusServiceUnavailable, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}

func queryInt(c *gin.Context, name string, fallback int) int {
	if raw := c.Query(name); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			return parsed
		}
	}
	return fallback
}
