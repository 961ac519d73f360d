package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "tuitionhub/pkg/domain-errors"
)

// Status of a tuition post. New posts start pending and become visible to
// tutors once an admin approves them.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus validates a client-supplied status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected:
		return Status(s), nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "unknown tuition status: "+s)
	}
}

// Tuition is a student's posted request for a tutor. Salary is in whole
// currency units per month.
type Tuition struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Subject      string    `json:"subject"`
	ClassLevel   string    `json:"classLevel"`
	Location     string    `json:"location"`
	StudentEmail string    `json:"studentEmail"`
	Salary       int64     `json:"salary"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewTuition constructs a pending tuition post owned by studentEmail.
func NewTuition(title, subject, classLevel, location, studentEmail string, salary int64, now time.Time) (*Tuition, error) {
	title = strings.TrimSpace(title)
	subject = strings.TrimSpace(subject)
	if title == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if subject == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "subject is required")
	}
	if salary < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "salary must not be negative")
	}
	return &Tuition{
		ID:           uuid.New(),
		Title:        title,
		Subject:      subject,
		ClassLevel:   strings.TrimSpace(classLevel),
		Location:     strings.TrimSpace(location),
		StudentEmail: strings.ToLower(strings.TrimSpace(studentEmail)),
		Salary:       salary,
		Status:       StatusPending,
		CreatedAt:    now,
	}, nil
}

// Update carries the owner-editable fields. Status is separate: only admins
// change it, through the moderation path.
type Update struct {
	Title      *string `json:"title"`
	Subject    *string `json:"subject"`
	ClassLevel *string `json:"classLevel"`
	Location   *string `json:"location"`
	Salary     *int64  `json:"salary"`
	Status     *Status `json:"status"`
}

// Sort keys accepted by the listing.
const (
	SortBySalary    = "salary"
	SortByCreatedAt = "createdAt"
)

// Filter narrows and orders the public tuition listing. Subject and Location
// match as substrings; Search matches title, subject, or location. Zero values
// mean "no constraint".
type Filter struct {
	Status       Status
	StudentEmail string
	ClassLevel   string
	Subject      string
	Location     string
	Search       string
	SortBy       string
	SortAsc      bool
}
