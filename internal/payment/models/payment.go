package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentRecord is one row in the append-only payment ledger. TransactionID is
// unique; its index is what makes concurrent settlement of the same payment
// produce exactly one row.
type PaymentRecord struct {
	ID            uuid.UUID `json:"id"`
	ApplicationID uuid.UUID `json:"applicationId"`
	TransactionID string    `json:"transactionId"`
	TrackingID    string    `json:"trackingId"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	TutorEmail    string    `json:"tutorEmail"`
	StudentEmail  string    `json:"studentEmail"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Receipt is the settlement response. Replays of the same session return the
// same receipt.
type Receipt struct {
	TransactionID string `json:"transactionId"`
	TrackingID    string `json:"trackingId"`
	Amount        int64  `json:"amount"`
}

// Report is the admin earnings summary.
type Report struct {
	TotalEarnings    int64            `json:"totalEarnings"`
	TransactionCount int              `json:"transactionCount"`
	Payments         []*PaymentRecord `json:"payments"`
}
