package app

import (
	"fmt"

	"compliance-training/internal/domain/courses"
	"compliance-training/internal/infra/stripe"

	"gorm.io/gorm"
)

// SeedCourses makes sure every course in the price catalog exists. Titles
// already refreshed from the provider are overwritten only when the catalog
// carries one.
func SeedCourses(db *gorm.DB, catalog *stripe.PriceCatalog) (int, error) {
	n := 0
	for _, e := range catalog.Entries() {
		title := e.Title
		if title == "" {
			title = e.Course
		}
		if err := courses.Upsert(db, &courses.Course{Slug: e.Course, Title: title, Active: true}); err != nil {
			return n, fmt.Errorf("seed course %s: %w", e.Course, err)
		}
		n++
	}
	return n, nil
}
