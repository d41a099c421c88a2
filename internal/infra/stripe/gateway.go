package stripe

import (
	"context"
	"encoding/json"
	"fmt"

	"compliance-training/internal/domain/purchase"

	stripego "github.com/stripe/stripe-go/v75"
	checkoutsession "github.com/stripe/stripe-go/v75/checkout/session"
	"github.com/stripe/stripe-go/v75/price"
	"github.com/stripe/stripe-go/v75/webhook"
)

type LineItem struct {
	PriceID     string
	Quantity    int64
	Description string
}

// Session is the subset of a checkout session the purchase flow reads.
type Session struct {
	ID              string
	Metadata        map[string]string
	PaymentStatus   string
	CustomerEmail   string
	CustomerName    string
	PaymentIntentID string

	// LineItems is nil when the session was decoded from a webhook payload,
	// which never embeds them.
	LineItems []LineItem
}

func (s *Session) TotalQuantity() int64 {
	var total int64
	for _, li := range s.LineItems {
		total += li.Quantity
	}
	return total
}

type CheckoutRequest struct {
	LineItems         []LineItem
	SuccessURL        string
	CancelURL         string
	CustomerEmail     string
	ClientReferenceID string
	Metadata          map[string]string
}

type CheckoutSession struct {
	ID  string
	URL string
}

type Price struct {
	ID          string
	ProductName string
	UnitAmount  int64
	Currency    string
	Active      bool
}

// Gateway is the payment provider as seen by the purchase flow.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	ListLineItems(ctx context.Context, sessionID string) ([]LineItem, error)
	GetPrice(ctx context.Context, id string) (*Price, error)
}

type Client struct {
	sessions checkoutsession.Client
	prices   price.Client
}

func NewClient(secretKey string) *Client {
	backend := stripego.GetBackend(stripego.APIBackend)
	return &Client{
		sessions: checkoutsession.Client{B: backend, Key: secretKey},
		prices:   price.Client{B: backend, Key: secretKey},
	}
}

func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := &stripego.CheckoutSessionParams{
		Mode:              stripego.String(string(stripego.CheckoutSessionModePayment)),
		SuccessURL:        stripego.String(req.SuccessURL),
		CancelURL:         stripego.String(req.CancelURL),
		ClientReferenceID: stripego.String(req.ClientReferenceID),
	}
	params.Context = ctx
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripego.String(req.CustomerEmail)
	}
	for _, li := range req.LineItems {
		params.LineItems = append(params.LineItems, &stripego.CheckoutSessionLineItemParams{
			Price:    stripego.String(li.PriceID),
			Quantity: stripego.Int64(li.Quantity),
		})
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := c.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: create checkout session: %w", purchase.ErrUpstream, err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// GetSession fetches the session with its line items.
func (c *Client) GetSession(ctx context.Context, id string) (*Session, error) {
	params := &stripego.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items")

	s, err := c.sessions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("%w: get checkout session %s: %w", purchase.ErrUpstream, id, err)
	}
	out := toSession(s)

	// The expansion is truncated for large carts; page through the rest.
	if s.LineItems == nil || s.LineItems.HasMore {
		items, err := c.ListLineItems(ctx, id)
		if err != nil {
			return nil, err
		}
		out.LineItems = items
	}
	return out, nil
}

func (c *Client) ListLineItems(ctx context.Context, sessionID string) ([]LineItem, error) {
	params := &stripego.CheckoutSessionListLineItemsParams{
		Session: stripego.String(sessionID),
	}
	params.Context = ctx

	var items []LineItem
	it := c.sessions.ListLineItems(params)
	for it.Next() {
		items = append(items, toLineItem(it.LineItem()))
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("%w: list line items for %s: %w", purchase.ErrUpstream, sessionID, err)
	}
	return items, nil
}

func (c *Client) GetPrice(ctx context.Context, id string) (*Price, error) {
	params := &stripego.PriceParams{}
	params.Context = ctx
	params.AddExpand("product")

	p, err := c.prices.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("%w: get price %s: %w", purchase.ErrUpstream, id, err)
	}
	out := &Price{
		ID:         p.ID,
		UnitAmount: p.UnitAmount,
		Currency:   string(p.Currency),
		Active:     p.Active,
	}
	if p.Product != nil {
		out.ProductName = p.Product.Name
	}
	return out, nil
}

// VerifyEvent checks the signature header against the endpoint secret and
// decodes the event. Any failure is reported as ErrInvalidSignature.
func VerifyEvent(payload []byte, header, secret string) (stripego.Event, error) {
	event, err := webhook.ConstructEventWithOptions(
		payload,
		header,
		secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return stripego.Event{}, fmt.Errorf("%w: %w", purchase.ErrInvalidSignature, err)
	}
	return event, nil
}

// SessionFromEvent decodes the checkout session embedded in an event.
func SessionFromEvent(event stripego.Event) (*Session, error) {
	var cs stripego.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	return toSession(&cs), nil
}

func toSession(s *stripego.CheckoutSession) *Session {
	out := &Session{
		ID:            s.ID,
		Metadata:      s.Metadata,
		PaymentStatus: string(s.PaymentStatus),
		CustomerEmail: s.CustomerEmail,
	}
	if s.CustomerDetails != nil {
		if out.CustomerEmail == "" {
			out.CustomerEmail = s.CustomerDetails.Email
		}
		out.CustomerName = s.CustomerDetails.Name
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	if s.LineItems != nil {
		out.LineItems = make([]LineItem, 0, len(s.LineItems.Data))
		for _, li := range s.LineItems.Data {
			out.LineItems = append(out.LineItems, toLineItem(li))
		}
	}
	return out
}

func toLineItem(li *stripego.LineItem) LineItem {
	out := LineItem{Quantity: li.Quantity, Description: li.Description}
	if li.Price != nil {
		out.PriceID = li.Price.ID
	}
	return out
}
