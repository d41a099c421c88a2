package provisioning

import (
	"context"
	"errors"

	"compliance-training/internal/domain/accounts"
	"compliance-training/internal/domain/courses"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

// GrantRequest is the input of the idempotent grant operation.
type GrantRequest struct {
	PaymentID   string
	CourseID    uint
	AccountID   uuid.UUID
	BuyerID     uint
	Seats       int64
	EnrollBuyer bool
}

type GrantOutcome struct {
	Created    bool
	GrantID    uint
	TotalSeats int64
	Enrolled   bool
}

// Store is everything the processor and resolver need from persistence.
// ApplyGrant is the single mutual-exclusion point of the purchase flow: it
// must be a no-op for a (payment, course) pair it has already applied.
type Store interface {
	CourseBySlug(ctx context.Context, slug string) (*courses.Course, error)
	AccountByID(ctx context.Context, id uuid.UUID) (*accounts.Account, error)
	PersonalAccount(ctx context.Context, userID uint) (*accounts.Account, error)
	EnsureTeamAccount(ctx context.Context, buyerID uint, name string) (*accounts.Account, error)
	ApplyGrant(ctx context.Context, req GrantRequest) (GrantOutcome, error)
	TeamAccountForPayment(ctx context.Context, buyerID uint, paymentID string) (*accounts.Account, error)
}
