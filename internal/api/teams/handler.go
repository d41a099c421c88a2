package teams

import (
	"net/http"

	"compliance-training/internal/domain/accounts"
	"compliance-training/internal/domain/billing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SeatDTO struct {
	Course         string `json:"course"`
	Title          string `json:"title"`
	TotalSeats     int64  `json:"total_seats"`
	AssignedSeats  int64  `json:"assigned_seats"`
	AvailableSeats int64  `json:"available_seats"`
}

type MemberDTO struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

type SeatsResponse struct {
	Account accounts.Account `json:"account"`
	Seats   []SeatDTO        `json:"seats"`
	Members []MemberDTO      `json:"members"`
}

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// GET /teams/:id/seats
//
// Mounted behind RequireTeamManager, which stores the parsed id.
func (h *Handler) Seats(c *gin.Context) {
	accountID, ok := c.Get("account_id")
	id, isUUID := accountID.(uuid.UUID)
	if !ok || !isUUID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid account id"})
		return
	}
	db := h.db.WithContext(c.Request.Context())

	var resp SeatsResponse
	if err := db.First(&resp.Account, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
		return
	}

	resp.Seats = []SeatDTO{}
	if err := db.Model(&billing.SeatGrant{}).
		Select(`courses.slug AS course, courses.title, seat_grants.total_seats, seat_grants.assigned_seats,
			seat_grants.total_seats - seat_grants.assigned_seats AS available_seats`).
		Joins("JOIN courses ON courses.id = seat_grants.course_id").
		Where("seat_grants.account_id = ?", id).
		Order("courses.title ASC").
		Scan(&resp.Seats).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load seats"})
		return
	}

	resp.Members = []MemberDTO{}
	if err := db.Model(&accounts.Membership{}).
		Select(`memberships.user_id, users.email, TRIM(users.name || ' ' || users.lastname) AS name, memberships.role`).
		Joins("JOIN users ON users.id = memberships.user_id").
		Where("memberships.account_id = ?", id).
		Order("memberships.created_at ASC").
		Scan(&resp.Members).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load members"})
		return
	}

	c.JSON(http.StatusOK, resp)
}
