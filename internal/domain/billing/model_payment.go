package billing

import (
	"time"

	"github.com/google/uuid"
)

// SeatGrant is the number of seats an account holds for a course, summed over
// every payment that contributed to it.
type SeatGrant struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	AccountID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_seat_grants_account_course,priority:1" json:"account_id"`
	CourseID      uint      `gorm:"not null;uniqueIndex:idx_seat_grants_account_course,priority:2" json:"course_id"`
	TotalSeats    int64     `gorm:"not null;default:0" json:"total_seats"`
	AssignedSeats int64     `gorm:"not null;default:0" json:"assigned_seats"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GrantPayment records that a payment has already been applied to a grant.
// (payment, course) is the idempotency key of the whole purchase flow.
type GrantPayment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PaymentID string    `gorm:"not null;uniqueIndex:idx_grant_payments_payment_course,priority:1" json:"payment_id"`
	CourseID  uint      `gorm:"not null;uniqueIndex:idx_grant_payments_payment_course,priority:2" json:"course_id"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;index" json:"account_id"`
	BuyerID   uint      `gorm:"not null;index" json:"buyer_id"`
	Seats     int64     `gorm:"not null" json:"seats"`

	CreatedAt time.Time `json:"created_at"`
}
