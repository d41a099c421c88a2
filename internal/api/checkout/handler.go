package checkout

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"compliance-training/internal/domain/accounts"
	"compliance-training/internal/domain/purchase"
	"compliance-training/internal/infra/events"
	"compliance-training/internal/infra/stripe"
	"compliance-training/internal/metrics"
	"compliance-training/internal/provisioning"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SessionCreator interface {
	CreateCheckoutSession(ctx context.Context, req stripe.CheckoutRequest) (*stripe.CheckoutSession, error)
}

type AccountLookup interface {
	PersonalAccount(ctx context.Context, userID uint) (*accounts.Account, error)
}

type Resolver interface {
	Resolve(ctx context.Context, sessionID string) provisioning.Resolution
}

type ProvisionWaiter interface {
	WaitProvisioned(ctx context.Context, sessionID string) (events.ProvisionedEvent, error)
}

type Options struct {
	// AppURL is the frontend the buyer is sent back to; APIURL is where the
	// provider redirects after payment.
	AppURL string
	APIURL string
}

type Handler struct {
	sessions SessionCreator
	catalog  *stripe.PriceCatalog
	accounts AccountLookup
	resolver Resolver
	waiter   ProvisionWaiter
	opts     Options
	log      *slog.Logger
}

// NewHandler builds the checkout endpoints. waiter may be nil, in which case
// the event stream is unavailable and clients rely on /checkout/complete.
func NewHandler(sessions SessionCreator, catalog *stripe.PriceCatalog, accts AccountLookup, resolver Resolver, waiter ProvisionWaiter, opts Options, log *slog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		catalog:  catalog,
		accounts: accts,
		resolver: resolver,
		waiter:   waiter,
		opts:     opts,
		log:      log,
	}
}

// POST /checkout
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	var body struct {
		Items purchase.Cart `json:"items"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid cart"})
		return
	}
	if err := body.Items.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lineItems := make([]stripe.LineItem, 0, len(body.Items))
	for _, item := range body.Items {
		priceID, ok := h.catalog.PriceForCourse(item.CourseID)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": purchase.ErrUnknownCourse.Error() + ": " + item.CourseID})
			return
		}
		lineItems = append(lineItems, stripe.LineItem{PriceID: priceID, Quantity: item.Quantity})
	}

	ctx := c.Request.Context()
	log := h.log.With(slog.Uint64("user_id", uint64(userID)))

	// A missing personal account is not fatal; the processor resolves the
	// destination from the buyer when the intent carries none.
	purchaseAccountID := uuid.Nil
	acct, err := h.accounts.PersonalAccount(ctx, userID)
	switch {
	case err == nil:
		purchaseAccountID = acct.ID
	case errors.Is(err, provisioning.ErrNotFound):
		log.Warn("checkout: buyer has no personal account")
	default:
		log.Error("checkout: load personal account", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load account"})
		return
	}

	intent := purchase.NewIntent(userID, purchaseAccountID, body.Items)
	md, err := intent.Metadata()
	if err != nil {
		log.Error("checkout: encode intent", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to prepare checkout"})
		return
	}

	// The session is referenced by the purchasing account; a buyer without one
	// falls back to the user id.
	clientRef := md["userId"]
	if purchaseAccountID != uuid.Nil {
		clientRef = purchaseAccountID.String()
	}

	s, err := h.sessions.CreateCheckoutSession(ctx, stripe.CheckoutRequest{
		LineItems:         lineItems,
		SuccessURL:        h.opts.APIURL + "/checkout/complete?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:         h.opts.AppURL + "/cart?canceled=1",
		CustomerEmail:     c.GetString("email"),
		ClientReferenceID: clientRef,
		Metadata:          md,
	})
	if err != nil {
		log.Error("checkout: create session", slog.Any("error", err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment provider unavailable, please try again"})
		return
	}

	metrics.CheckoutSessions.WithLabelValues(string(intent.AccountType)).Inc()
	log.Info("checkout session created",
		slog.String("session_id", s.ID),
		slog.String("account_type", string(intent.AccountType)),
		slog.Int64("seats", body.Items.TotalQuantity()),
	)
	c.JSON(http.StatusOK, gin.H{"url": s.URL, "session_id": s.ID})
}
