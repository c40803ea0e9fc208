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

type FineRepository struct {
	db *gorm.DB
}

func NewFineRepository(db *gorm.DB) *FineRepository {
	return &FineRepository{db: db}
}

type fineRow struct {
	ID                       string  `gorm:"primaryKey"`
	ViolationID              string  `gorm:"not null;uniqueIndex"`
	BaseAmount               float64 `gorm:"not null"`
	SeverityMultiplier       float64 `gorm:"not null"`
	RepeatOffenderMultiplier float64 `gorm:"not null"`
	FinalAmount              float64 `gorm:"not null"`
	DiscountPercentage       int     `gorm:"not null"`
	AmountAfterDiscount      float64 `gorm:"not null"`
	PaymentStatus            string  `gorm:"not null"`
	DueDate                  time.Time
	PaidDate                 *time.Time
	PaymentMethod            *string
	TransactionID            *string
	CreatedAt                time.Time
}

func (fineRow) TableName() string { return "fines" }

func toFineRecord(row fineRow) traffic.FineRecord {
	return traffic.FineRecord{
		ID:                       row.ID,
		ViolationID:              row.ViolationID,
		BaseAmount:               row.BaseAmount,
		SeverityMultiplier:       row.SeverityMultiplier,
		RepeatOffenderMultiplier: row.RepeatOffenderMultiplier,
		FinalAmount:              row.FinalAmount,
		DiscountPercentage:       row.DiscountPercentage,
		AmountAfterDiscount:      row.AmountAfterDiscount,
		PaymentStatus:            traffic.PaymentStatus(row.PaymentStatus),
		DueDate:                  row.DueDate,
		PaidDate:                 row.PaidDate,
		PaymentMethod:            row.PaymentMethod,
		TransactionID:            row.TransactionID,
		CreatedAt:                row.CreatedAt,
	}
}

// Create persists a newly computed fine. A violation can carry at most one
// fine; a second computation for the same violation is rejected.
func (r *FineRepository) Create(ctx context.Context, fine *traffic.FineRecord) error {
	row := fineRow{
		ID:                       fine.ID,
		ViolationID:              fine.ViolationID,
		BaseAmount:               fine.BaseAmount,
		SeverityMultiplier:       fine.SeverityMultiplier,
		RepeatOffenderMultiplier: fine.RepeatOffenderMultiplier,
		FinalAmount:              fine.FinalAmount,
		DiscountPercentage:       fine.DiscountPercentage,
		AmountAfterDiscount:      fine.AmountAfterDiscount,
		PaymentStatus:            string(fine.PaymentStatus),
		DueDate:                  fine.DueDate,
		CreatedAt:                fine.CreatedAt,
	}
	err := r.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: fine already exists for violation %s", engine.ErrInvalidInput, fine.ViolationID)
	}
	return err
}

func (r *FineRepository) Get(ctx context.Context, id string) (traffic.FineRecord, error) {
	var row fineRow
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return traffic.FineRecord{}, fmt.Errorf("%w: fine %s", engine.ErrNotFound, id)
	}
	if err != nil {
		return traffic.FineRecord{}, err
	}
	return toFineRecord(row), nil
}

func (r *FineRepository) GetByViolation(ctx context.Context, violationID string) (traffic.FineRecord, error) {
	var row fineRow
	err := r.db.WithContext(ctx).Where("violation_id = ?", violationID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return traffic.FineRecord{}, fmt.Errorf("%w: fine for violation %s", engine.ErrNotFound, violationID)
	}
	if err != nil {
		return traffic.FineRecord{}, err
	}
	return toFineRecord(row), nil
}

// MarkPaid transitions a fine to PAID with its payment metadata. Only the
// payment fields of a fine ever mutate.
func (r *FineRepository) MarkPaid(ctx context.Context, id string, paidDate time.Time, method, transactionID string) error {
	res := r.db.WithContext(ctx).Model(&fineRow{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"payment_status": string(traffic.PaymentPaid),
			"paid_date":      paidDate,
			"payment_method": method,
			"transaction_id": transactionID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: fine %s", engine.ErrNotFound, id)
	}
	return nil
}

// Overdue lists fines still PENDING past their due date as of the given day.
func (r *FineRepository) Overdue(ctx context.Context, asOf time.Time) ([]traffic.FineRecord, error) {
	var rows []fineRow
	err := r.db.WithContext(ctx).
		Where("payment_status = ? AND due_date < ?", string(traffic.PaymentPending), asOf).
		Order("due_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	fines := make([]traffic.FineRecord, 0, len(rows))
	for _, row := range rows {
		fines = append(fines, toFineRecord(row))
	}
	return fines, nil
}

type RevenueReport struct {
	TotalFineAmount float64 `json:"total_fine_amount"`
	CollectedAmount float64 `json:"collected_amount"`
	PendingCount    int64   `json:"pending_count"`
}

func (r *FineRepository) Revenue(ctx context.Context) (RevenueReport, error) {
	var report RevenueReport

	err := r.db.WithContext(ctx).Model(&fineRow{}).
		Select("COALESCE(SUM(final_amount), 0)").
		Scan(&report.TotalFineAmount).Error
	if err != nil {
		return RevenueReport{}, err
	}

	err = r.db.WithContext(ctx).Model(&fineRow{}).
		Where("payment_status = ?", string(traffic.PaymentPaid)).
		Select("COALESCE(SUM(amount_after_discount), 0)").
		Scan(&report.CollectedAmount).Error
	if err != nil {
		return RevenueReport{}, err
	}

	err = r.db.WithContext(ctx).Model(&fineRow{}).
		Where("payment_status = ?", string(traffic.PaymentPending)).
		Count(&report.PendingCount).Error
	if err != nil {
		return RevenueReport{}, err
	}

	return report, nil
}
