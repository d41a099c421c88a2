package courses

import "time"

type Course struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Slug       string `gorm:"not null;uniqueIndex:idx_courses_slug" json:"slug"`
	Title      string `gorm:"not null" json:"title"`
	PriceCents int64  `gorm:"not null;default:0" json:"price_cents"`
	Currency   string `gorm:"type:varchar(3);not null;default:'usd'" json:"currency"`
	Active     bool   `gorm:"not null;default:true" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
