package courses

import (
	"net/http"

	"compliance-training/internal/domain/courses"
	"compliance-training/internal/infra/stripe"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CourseDTO struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	PriceCents  int64  `json:"price_cents"`
	Currency    string `json:"currency"`
	Purchasable bool   `json:"purchasable"`
}

type Handler struct {
	db      *gorm.DB
	catalog *stripe.PriceCatalog
}

func NewHandler(db *gorm.DB, catalog *stripe.PriceCatalog) *Handler {
	return &Handler{db: db, catalog: catalog}
}

// GET /courses
func (h *Handler) ListCourses(c *gin.Context) {
	var list []courses.Course
	if err := h.db.WithContext(c.Request.Context()).
		Where("active = true").
		Order("title ASC").
		Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load courses"})
		return
	}
	c.JSON(http.StatusOK, BuildCourseDTOs(list, h.catalog))
}

// BuildCourseDTOs marks a course purchasable only when a price is mapped to it.
func BuildCourseDTOs(list []courses.Course, catalog *stripe.PriceCatalog) []CourseDTO {
	out := make([]CourseDTO, 0, len(list))
	for _, c := range list {
		_, ok := catalog.PriceForCourse(c.Slug)
		out = append(out, CourseDTO{
			Slug:        c.Slug,
			Title:       c.Title,
			PriceCents:  c.PriceCents,
			Currency:    c.Currency,
			Purchasable: ok,
		})
	}
	return out
}
