package admin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"compliance-training/internal/domain/billing"
	"compliance-training/internal/domain/courses"
	"compliance-training/internal/domain/purchase"
	"compliance-training/internal/infra/stripe"
	"compliance-training/internal/provisioning"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Gateway interface {
	GetSession(ctx context.Context, id string) (*stripe.Session, error)
	GetPrice(ctx context.Context, id string) (*stripe.Price, error)
}

type SessionProcessor interface {
	ProcessSession(ctx context.Context, sess *stripe.Session) (provisioning.Summary, error)
}

type Handler struct {
	db        *gorm.DB
	gateway   Gateway
	processor SessionProcessor
	catalog   *stripe.PriceCatalog
	log       *slog.Logger
}

func NewHandler(db *gorm.DB, gateway Gateway, processor SessionProcessor, catalog *stripe.PriceCatalog, log *slog.Logger) *Handler {
	return &Handler{db: db, gateway: gateway, processor: processor, catalog: catalog, log: log}
}

type AdminGrant struct {
	ID            uint      `json:"id"`
	AccountID     uuid.UUID `json:"account_id"`
	AccountName   string    `json:"account_name"`
	TeamAccount   bool      `json:"team_account"`
	Course        string    `json:"course"`
	TotalSeats    int64     `json:"total_seats"`
	AssignedSeats int64     `json:"assigned_seats"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type ReconcileItem struct {
	PriceID   string     `json:"price_id"`
	Course    string     `json:"course,omitempty"`
	Quantity  int64      `json:"quantity"`
	Outcome   string     `json:"outcome,omitempty"`
	AccountID *uuid.UUID `json:"account_id,omitempty"`
	Error     string     `json:"error,omitempty"`
}

func limitParam(c *gin.Context) int {
	n, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || n <= 0 || n > 500 {
		return 100
	}
	return n
}

// GET /admin/grants
func (h *Handler) ListGrants(c *gin.Context) {
	rows := []AdminGrant{}
	err := h.db.WithContext(c.Request.Context()).
		Model(&billing.SeatGrant{}).
		Select(`seat_grants.id, seat_grants.account_id, accounts.name AS account_name,
			NOT accounts.is_personal AS team_account, courses.slug AS course,
			seat_grants.total_seats, seat_grants.assigned_seats, seat_grants.updated_at`).
		Joins("JOIN accounts ON accounts.id = seat_grants.account_id").
		Joins("JOIN courses ON courses.id = seat_grants.course_id").
		Order("seat_grants.updated_at DESC").
		Limit(limitParam(c)).
		Scan(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load grants"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GET /admin/webhook-events
func (h *Handler) ListWebhookEvents(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Order("created_at DESC").Limit(limitParam(c))
	if c.Query("failed") == "1" {
		q = q.Where("processing_error <> ''")
	}
	if sid := c.Query("session_id"); sid != "" {
		q = q.Where("session_id = ?", sid)
	}

	events := []billing.WebhookEvent{}
	if err := q.Find(&events).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load webhook events"})
		return
	}
	c.JSON(http.StatusOK, events)
}

// POST /admin/reconcile/:session_id
//
// Re-runs provisioning for one session. Safe to repeat: already applied items
// come back as already_existed.
func (h *Handler) Reconcile(c *gin.Context) {
	sessionID := c.Param("session_id")
	ctx := c.Request.Context()

	sess, err := h.gateway.GetSession(ctx, sessionID)
	if err != nil {
		h.log.Error("reconcile: fetch session", slog.String("session_id", sessionID), slog.Any("error", err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch session from Stripe"})
		return
	}

	sum, err := h.processor.ProcessSession(ctx, sess)
	switch {
	case errors.Is(err, purchase.ErrNotPurchase):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Not a training purchase session"})
		return
	case errors.Is(err, purchase.ErrNotPaid):
		c.JSON(http.StatusConflict, gin.H{"error": "Session is not paid"})
		return
	case err != nil:
		h.log.Error("reconcile", slog.String("session_id", sessionID), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Reconciliation failed"})
		return
	}

	h.log.Info("reconciled session",
		slog.String("session_id", sessionID),
		slog.Int("succeeded", sum.Succeeded()),
		slog.Int("failed", sum.Failed()),
		slog.String("by", c.GetString("email")),
	)
	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"succeeded":  sum.Succeeded(),
		"failed":     sum.Failed(),
		"items":      BuildReconcileItems(sum),
	})
}

func BuildReconcileItems(sum provisioning.Summary) []ReconcileItem {
	out := make([]ReconcileItem, 0, len(sum.Items))
	for _, it := range sum.Items {
		item := ReconcileItem{PriceID: it.PriceID, Course: it.Course, Quantity: it.Quantity}
		if it.Err != nil {
			item.Error = it.Err.Error()
		} else {
			id := it.Result.AccountID
			item.AccountID = &id
			item.Outcome = string(it.Result.Outcome)
		}
		out = append(out, item)
	}
	return out
}

// POST /admin/sync-courses
//
// Refreshes title, price and availability of every catalog course from
// Stripe. Unreachable prices are reported and skipped.
func (h *Handler) SyncCourses(c *gin.Context) {
	ctx := c.Request.Context()
	db := h.db.WithContext(ctx)

	synced := 0
	skipped := []gin.H{}
	for _, entry := range h.catalog.Entries() {
		p, err := h.gateway.GetPrice(ctx, entry.PriceID)
		if err != nil {
			h.log.Warn("sync courses: price lookup", slog.String("price_id", entry.PriceID), slog.Any("error", err))
			skipped = append(skipped, gin.H{"price_id": entry.PriceID, "course": entry.Course, "error": "price not found"})
			continue
		}

		title := p.ProductName
		if title == "" {
			title = entry.Title
		}
		course := courses.Course{
			Slug:       entry.Course,
			Title:      title,
			PriceCents: p.UnitAmount,
			Currency:   p.Currency,
			Active:     p.Active,
		}
		if err := courses.Upsert(db, &course); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store course", "course": entry.Course})
			return
		}
		synced++
	}

	c.JSON(http.StatusOK, gin.H{"synced": synced, "skipped": skipped})
}
