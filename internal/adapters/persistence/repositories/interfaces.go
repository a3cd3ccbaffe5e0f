package repositories

import (
	"context"

	"pointjournaliere/internal/adapters/persistence/models"
)

// ReceiptRepository defines submission receipt repository interface
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *models.SubmissionReceipt) error
}
