package accounts

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleOwner       = "owner"
	RoleTeamManager = "team_manager"
	RoleMember      = "member"
)

// Account owns seat grants. Every user has exactly one personal account; team
// accounts are created for multi-seat purchases.
type Account struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	IsPersonal  bool      `gorm:"not null;default:false;index" json:"is_personal"`
	OwnerUserID uint      `gorm:"not null;index" json:"owner_user_id"`
	Name        string    `gorm:"not null" json:"name"`
	Slug        string    `gorm:"not null;uniqueIndex:idx_accounts_slug" json:"slug"`

	// PurchaseTeamOwnerID is set only on the team account a buyer's multi-seat
	// purchases land in. The unique index makes team creation race-safe.
	PurchaseTeamOwnerID *uint `gorm:"uniqueIndex:idx_accounts_purchase_team_owner" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

type Membership struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_account_user,priority:1" json:"account_id"`
	Account   *Account  `gorm:"constraint:OnDelete:CASCADE;" json:"account,omitempty"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_memberships_account_user,priority:2;index" json:"user_id"`
	Role      string    `gorm:"type:varchar(20);not null" json:"role"`

	CreatedAt time.Time `json:"created_at"`
}
