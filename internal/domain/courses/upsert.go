package courses

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Upsert inserts the course or refreshes its catalog fields, keyed by slug.
// A zero PriceCents or empty Currency leaves the stored value alone.
func Upsert(db *gorm.DB, c *Course) error {
	updates := map[string]interface{}{
		"title":      c.Title,
		"active":     c.Active,
		"updated_at": time.Now(),
	}
	if c.PriceCents > 0 {
		updates["price_cents"] = c.PriceCents
	}
	if c.Currency != "" {
		updates["currency"] = c.Currency
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.Assignments(updates),
	}).Create(c).Error
}
