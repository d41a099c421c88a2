package users

import (
	"net/http"

	"compliance-training/internal/domain/accounts"
	"compliance-training/internal/domain/billing"
	"compliance-training/internal/domain/enrollments"
	"compliance-training/internal/domain/users"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// GET /me
func (h *Handler) GetCurrentUser(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	db := h.db.WithContext(c.Request.Context())

	var user users.User
	if err := db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var memberships []accounts.Membership
	if err := db.Preload("Account").Where("user_id = ?", userID).Order("created_at ASC").Find(&memberships).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load accounts"})
		return
	}

	list, err := h.enrollmentsOf(db, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load courses"})
		return
	}

	c.JSON(http.StatusOK, MeResponse{
		User:        BuildUserDTO(user),
		Accounts:    BuildAccountDTOs(memberships),
		Enrollments: list,
	})
}

// GET /my/courses
func (h *Handler) MyCourses(c *gin.Context) {
	list, err := h.enrollmentsOf(h.db.WithContext(c.Request.Context()), c.GetUint("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load courses"})
		return
	}
	c.JSON(http.StatusOK, list)
}

// GET /purchases
func (h *Handler) Purchases(c *gin.Context) {
	var rows []PurchaseDTO
	err := h.db.WithContext(c.Request.Context()).
		Model(&billing.GrantPayment{}).
		Select(`grant_payments.payment_id, courses.slug AS course, grant_payments.seats,
			grant_payments.account_id, accounts.name AS account_name,
			NOT accounts.is_personal AS team_account, grant_payments.created_at`).
		Joins("JOIN courses ON courses.id = grant_payments.course_id").
		Joins("JOIN accounts ON accounts.id = grant_payments.account_id").
		Where("grant_payments.buyer_id = ?", c.GetUint("user_id")).
		Order("grant_payments.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load purchases"})
		return
	}
	if rows == nil {
		rows = []PurchaseDTO{}
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) enrollmentsOf(db *gorm.DB, userID uint) ([]EnrollmentDTO, error) {
	rows := []EnrollmentDTO{}
	err := db.Model(&enrollments.Enrollment{}).
		Select(`courses.slug AS course, courses.title, enrollments.progress_percent,
			enrollments.enrolled_at, enrollments.completed_at`).
		Joins("JOIN courses ON courses.id = enrollments.course_id").
		Where("enrollments.user_id = ?", userID).
		Order("enrollments.enrolled_at DESC").
		Scan(&rows).Error
	return rows, err
}
