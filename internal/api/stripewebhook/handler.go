package stripewebhooks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"compliance-training/internal/domain/purchase"
	"compliance-training/internal/infra/stripe"
	"compliance-training/internal/metrics"
	"compliance-training/internal/provisioning"

	"github.com/gin-gonic/gin"
	stripego "github.com/stripe/stripe-go/v75"
)

const maxBodyBytes = 65536

const (
	eventCheckoutCompleted     = "checkout.session.completed"
	eventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
)

type LineItemLister interface {
	ListLineItems(ctx context.Context, sessionID string) ([]stripe.LineItem, error)
}

type SessionProcessor interface {
	ProcessSession(ctx context.Context, sess *stripe.Session) (provisioning.Summary, error)
}

// EventLog keeps an audit trail of deliveries. It is not consulted for
// deduplication; repeated deliveries are absorbed by the grant ledger.
type EventLog interface {
	RecordDelivery(ctx context.Context, eventID, eventType, sessionID string) error
	MarkProcessed(ctx context.Context, eventID string, procErr error) error
}

type Handler struct {
	secret    string
	items     LineItemLister
	processor SessionProcessor
	events    EventLog
	log       *slog.Logger
}

// NewHandler builds the webhook receiver. events may be nil.
func NewHandler(secret string, items LineItemLister, processor SessionProcessor, events EventLog, log *slog.Logger) *Handler {
	return &Handler{secret: secret, items: items, processor: processor, events: events, log: log}
}

// POST /webhook
func (h *Handler) StripeWebhook(c *gin.Context) {
	if h.secret == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "STRIPE_WEBHOOK_SECRET not configured"})
		return
	}

	payload, err := readStripeBody(c, maxBodyBytes)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	event, err := stripe.VerifyEvent(payload, c.GetHeader("Stripe-Signature"), h.secret)
	if err != nil {
		h.log.Warn("stripe signature verification failed", slog.Any("error", err))
		metrics.WebhookEvents.WithLabelValues("unknown", "invalid_signature").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}

	eventType := string(event.Type)
	switch eventType {
	case eventCheckoutCompleted, eventAsyncPaymentSucceeded:
		start := time.Now()
		status, body, outcome := h.handleSessionEvent(c.Request.Context(), event.ID, eventType, event)
		metrics.WebhookProcessingTime.Observe(time.Since(start).Seconds())
		metrics.WebhookEvents.WithLabelValues(eventType, outcome).Inc()
		c.JSON(status, body)
	default:
		// Acknowledge unknown events to avoid retries
		metrics.WebhookEvents.WithLabelValues(eventType, "ignored").Inc()
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}

func (h *Handler) handleSessionEvent(ctx context.Context, eventID, eventType string, event stripego.Event) (int, gin.H, string) {
	log := h.log.With(slog.String("event_id", eventID), slog.String("event_type", eventType))

	sess, err := stripe.SessionFromEvent(event)
	if err != nil {
		log.Error("decode checkout session", slog.Any("error", err))
		return http.StatusBadRequest, gin.H{"error": "Failed to parse session"}, "malformed"
	}
	log = log.With(slog.String("session_id", sess.ID))

	if _, err := purchase.ParseIntent(sess.Metadata); err != nil {
		if !errors.Is(err, purchase.ErrNotPurchase) {
			log.Error("purchase session with unreadable intent", slog.Any("error", err))
		}
		return http.StatusOK, gin.H{"received": true}, "ignored"
	}
	if stripe.NormalizePaymentStatus(sess.PaymentStatus) != stripe.PaymentPaid {
		// Delayed payment methods complete unpaid and are provisioned on
		// async_payment_succeeded.
		log.Info("checkout completed without payment yet", slog.String("payment_status", sess.PaymentStatus))
		return http.StatusOK, gin.H{"received": true}, "unpaid"
	}

	h.recordDelivery(ctx, log, eventID, eventType, sess.ID)

	items, err := h.items.ListLineItems(ctx, sess.ID)
	if err != nil {
		log.Error("list line items", slog.Any("error", err))
		h.markProcessed(ctx, log, eventID, err)
		return http.StatusInternalServerError, gin.H{"error": "Failed to load line items"}, "upstream_error"
	}
	sess.LineItems = items

	sum, err := h.processor.ProcessSession(ctx, sess)
	if err != nil {
		h.markProcessed(ctx, log, eventID, err)
		if purchase.IsPermanent(err) || errors.Is(err, purchase.ErrNotPaid) {
			log.Warn("session not processable", slog.Any("error", err))
			return http.StatusOK, gin.H{"received": true}, "ignored"
		}
		log.Error("process session", slog.Any("error", err))
		return http.StatusInternalServerError, gin.H{"error": "Processing failed"}, "failed"
	}

	h.markProcessed(ctx, log, eventID, sum.Err())
	if sum.ShouldRetry() {
		log.Error("no line item applied, asking provider to retry", slog.Any("error", sum.Err()))
		return http.StatusInternalServerError, gin.H{"error": "Processing failed"}, "failed"
	}
	if sum.Failed() > 0 {
		log.Warn("session partially applied",
			slog.Int("succeeded", sum.Succeeded()),
			slog.Int("failed", sum.Failed()),
			slog.Any("error", sum.Err()),
		)
		return http.StatusOK, gin.H{"received": true}, "partial"
	}
	return http.StatusOK, gin.H{"received": true}, "processed"
}

func (h *Handler) recordDelivery(ctx context.Context, log *slog.Logger, eventID, eventType, sessionID string) {
	if h.events == nil {
		return
	}
	if err := h.events.RecordDelivery(ctx, eventID, eventType, sessionID); err != nil {
		log.Warn("record webhook delivery", slog.Any("error", err))
	}
}

func (h *Handler) markProcessed(ctx context.Context, log *slog.Logger, eventID string, procErr error) {
	if h.events == nil {
		return
	}
	if err := h.events.MarkProcessed(ctx, eventID, procErr); err != nil {
		log.Warn("mark webhook processed", slog.Any("error", err))
	}
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
