package repositories

import (
	"context"

	"pointjournaliere/internal/adapters/persistence/models"
	"pointjournaliere/internal/core/domain"

	"gorm.io/gorm"
)

// receiptRepository implements ReceiptRepository interface
type receiptRepository struct {
	db *gorm.DB
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db *gorm.DB) ReceiptRepository {
	return &receiptRepository{db: db}
}

// Create inserts a submission receipt
func (r *receiptRepository) Create(ctx context.Context, receipt *models.SubmissionReceipt) error {
	return r.db.WithContext(ctx).Create(receipt).Error
}

// ReceiptRecorder stores controller receipts through a ReceiptRepository
type ReceiptRecorder struct {
	repo ReceiptRepository
}

// NewReceiptRecorder wraps repo for the session controller
func NewReceiptRecorder(repo ReceiptRepository) *ReceiptRecorder {
	return &ReceiptRecorder{repo: repo}
}

// Record persists one successful submit
func (r *ReceiptRecorder) Record(ctx context.Context, receipt domain.Receipt) error {
	return r.repo.Create(ctx, &models.SubmissionReceipt{
		Email:      receipt.Email,
		CentreName: receipt.CentreName,
		Saved:      receipt.Saved,
		ItemCount:  receipt.ItemCount,
		DateUTC:    receipt.DateUTC,
		TimeUTC:    receipt.TimeUTC,
	})
}
