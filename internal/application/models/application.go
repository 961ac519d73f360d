package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "tuitionhub/pkg/domain-errors"
)

// Status of a tutor's application.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusWithdrawn Status = "withdrawn"
)

// ParseStatus validates a client-supplied status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected, StatusWithdrawn:
		return Status(s), nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "unknown application status: "+s)
	}
}

// PaymentStatus of an application. Paid is terminal and only settlement sets it.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// Application is a tutor's offer on a tuition post. The settlement fields
// (TransactionID onward) are nil until a payment settles; TransactionID is
// never reassigned once set.
type Application struct {
	ID             uuid.UUID     `json:"id"`
	TuitionID      uuid.UUID     `json:"tuitionId"`
	StudentEmail   string        `json:"studentEmail"`
	TutorEmail     string        `json:"tutorEmail"`
	ExpectedSalary int64         `json:"expectedSalary"`
	Status         Status        `json:"status"`
	PaymentStatus  PaymentStatus `json:"paymentStatus"`
	TransactionID  *string       `json:"transactionId,omitempty"`
	TrackingID     *string       `json:"trackingId,omitempty"`
	PaidAmount     *int64        `json:"paidAmount,omitempty"`
	PaidAt         *time.Time    `json:"paidAt,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// NewApplication constructs a pending, unpaid application.
func NewApplication(tuitionID uuid.UUID, studentEmail, tutorEmail string, expectedSalary int64, now time.Time) (*Application, error) {
	if expectedSalary < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "expected salary must not be negative")
	}
	return &Application{
		ID:             uuid.New(),
		TuitionID:      tuitionID,
		StudentEmail:   strings.ToLower(strings.TrimSpace(studentEmail)),
		TutorEmail:     strings.ToLower(strings.TrimSpace(tutorEmail)),
		ExpectedSalary: expectedSalary,
		Status:         StatusPending,
		PaymentStatus:  PaymentUnpaid,
		CreatedAt:      now,
	}, nil
}

// Settlement carries the fields written when a payment settles.
type Settlement struct {
	TransactionID string
	TrackingID    string
	PaidAmount    int64
	PaidAt        time.Time
}
