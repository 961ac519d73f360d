package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "tuitionhub/pkg/domain-errors"
)

// Role is the marketplace role stored server-side for every user. It is the
// only source consulted by authorization checks.
type Role string

const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
	RoleAdmin   Role = "admin"
)

// DefaultRole is answered for emails with no stored record.
const DefaultRole = RoleStudent

// ParseRole validates a client-supplied role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStudent, RoleTutor, RoleAdmin:
		return Role(s), nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "unknown role: "+s)
	}
}

// Status of a user account.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// User is the persisted identity record, uniquely keyed by email.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	PhotoURL  string    `json:"photoURL"`
	Phone     string    `json:"phone"`
	Role      Role      `json:"role"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewUser constructs an active user, defaulting the role when absent.
func NewUser(email, name, photoURL, phone string, role Role, now time.Time) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeValidation, "a valid email is required")
	}
	if role == "" {
		role = DefaultRole
	}
	return &User{
		ID:        uuid.New(),
		Email:     email,
		Name:      strings.TrimSpace(name),
		PhotoURL:  strings.TrimSpace(photoURL),
		Phone:     strings.TrimSpace(phone),
		Role:      role,
		Status:    StatusActive,
		CreatedAt: now,
	}, nil
}

// ProfileUpdate carries the owner-editable profile fields. Role and status
// are absent on purpose: they change only through admin operations.
type ProfileUpdate struct {
	Name     *string `json:"name"`
	PhotoURL *string `json:"photoURL"`
	Phone    *string `json:"phone"`
}

// AdminUpdate carries the fields an admin may change on any user.
type AdminUpdate struct {
	Role   *Role   `json:"role"`
	Status *Status `json:"status"`
}
