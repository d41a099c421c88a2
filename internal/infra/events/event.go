// Package events publishes purchase domain events to the message broker.
package events

import (
	"time"

	"github.com/google/uuid"
)

const ProvisionedQueue = "purchase.provisioned"

// ProvisionedEvent is emitted once per newly applied (payment, course) pair.
// Downstream consumers (invitation mailer, reporting) read it instead of
// polling the database.
type ProvisionedEvent struct {
	SessionID   string    `json:"session_id"`
	BuyerID     uint      `json:"buyer_id"`
	AccountID   uuid.UUID `json:"account_id"`
	TeamAccount bool      `json:"team_account"`
	Course      string    `json:"course"`
	Seats       int64     `json:"seats"`
	Enrolled    bool      `json:"enrolled"`
	At          time.Time `json:"at"`
}
