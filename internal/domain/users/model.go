package users

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           uint `gorm:"primaryKey"`
	Name         string
	Lastname     string
	Email        string  `gorm:"not null;uniqueIndex:idx_users_email"`
	Password     *string `gorm:""`
	AuthProvider string  `gorm:"type:varchar(20);not null;default:'local'"`
	GoogleSub    *string `gorm:"uniqueIndex:idx_users_google_sub"`
	Role         string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName is what a buyer is called on accounts created on their behalf.
func (u User) DisplayName() string {
	switch {
	case u.Name != "" && u.Lastname != "":
		return u.Name + " " + u.Lastname
	case u.Name != "":
		return u.Name
	default:
		return u.Email
	}
}
