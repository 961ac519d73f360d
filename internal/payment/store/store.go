package store

import (
	"context"

	"tuitionhub/internal/payment/models"
)

// PaymentStore is the append-only settlement ledger.
//
// Insert must enforce transaction id uniqueness atomically: concurrent
// settlements of the same transaction yield exactly one inserted row, the rest
// sentinel.ErrConflict. There is no update or delete.
type PaymentStore interface {
	Insert(ctx context.Context, record *models.PaymentRecord) error
	FindByTransactionID(ctx context.Context, transactionID string) (*models.PaymentRecord, error)
	ListByTutor(ctx context.Context, tutorEmail string) ([]*models.PaymentRecord, error)
	ListByStudent(ctx context.Context, studentEmail string) ([]*models.PaymentRecord, error)
	ListAll(ctx context.Context) ([]*models.PaymentRecord, error)
}
