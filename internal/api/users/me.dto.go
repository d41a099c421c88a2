package users

import (
	"time"

	"github.com/google/uuid"
)

type MeResponse struct {
	User        UserDTO         `json:"user"`
	Accounts    []AccountDTO    `json:"accounts"`
	Enrollments []EnrollmentDTO `json:"enrollments"`
}

/* ---------- USER ---------- */

type UserDTO struct {
	ID           uint   `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Lastname     string `json:"lastname"`
	Role         string `json:"role"`
	AuthProvider string `json:"auth_provider"`
}

/* ---------- ACCOUNTS ---------- */

type AccountDTO struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	IsPersonal bool      `json:"is_personal"`
	Role       string    `json:"role"` // owner|team_manager|member
	SeatsURL   *string   `json:"seats_url,omitempty"`
}

/* ---------- LEARNING ---------- */

type EnrollmentDTO struct {
	Course          string     `json:"course"`
	Title           string     `json:"title"`
	ProgressPercent int        `json:"progress_percent"`
	EnrolledAt      time.Time  `json:"enrolled_at"`
	CompletedAt     *time.Time `json:"completed_at"`
}

/* ---------- PURCHASES ---------- */

type PurchaseDTO struct {
	PaymentID   string    `json:"payment_id"`
	Course      string    `json:"course"`
	Seats       int64     `json:"seats"`
	AccountID   uuid.UUID `json:"account_id"`
	AccountName string    `json:"account_name"`
	TeamAccount bool      `json:"team_account"`
	CreatedAt   time.Time `json:"created_at"`
}
