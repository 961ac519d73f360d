// Package provider defines the checkout provider boundary. The marketplace
// never trusts client-supplied payment data: every settlement input is
// re-resolved from the provider through this interface.
package provider

import "context"

// Metadata is attached to a checkout session at creation and read back at
// settlement. It is the only link from a provider session to marketplace
// state.
type Metadata struct {
	ApplicationID string
	TutorEmail    string
	StudentEmail  string
}

// Session is a provider-owned checkout session. AmountTotal is in the smallest
// currency unit.
type Session struct {
	ID              string
	URL             string
	PaymentIntentID string
	AmountTotal     int64
	Currency        string
	PaymentStatus   string
	Metadata        Metadata
}

// Paid reports whether the provider considers the session paid.
func (s *Session) Paid() bool {
	return s.PaymentStatus == "paid"
}

// CreateSessionInput describes a new checkout session. AmountTotal is in the
// smallest currency unit.
type CreateSessionInput struct {
	AmountTotal   int64
	Currency      string
	ProductName   string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      Metadata
}

// CheckoutProvider creates and retrieves checkout sessions. Implementations
// return sentinel.ErrNotFound for unknown session ids and wrap transport or
// provider failures in ordinary errors.
type CheckoutProvider interface {
	CreateSession(ctx context.Context, input CreateSessionInput) (*Session, error)
	RetrieveSession(ctx context.Context, id string) (*Session, error)
}
