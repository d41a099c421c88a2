package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"compliance-training/internal/domain/accounts"
	"compliance-training/internal/domain/purchase"
	"compliance-training/internal/infra/events"
	"compliance-training/internal/infra/stripe"
	"compliance-training/internal/provisioning"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubCreator struct {
	got *stripe.CheckoutRequest
	err error
}

func (s *stubCreator) CreateCheckoutSession(_ context.Context, req stripe.CheckoutRequest) (*stripe.CheckoutSession, error) {
	s.got = &req
	if s.err != nil {
		return nil, s.err
	}
	return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.test/c/pay/cs_test_1"}, nil
}

type stubAccounts struct {
	acct *accounts.Account
	err  error
}

func (s stubAccounts) PersonalAccount(context.Context, uint) (*accounts.Account, error) {
	return s.acct, s.err
}

type stubResolver struct {
	res provisioning.Resolution
	got string
}

func (s *stubResolver) Resolve(_ context.Context, id string) provisioning.Resolution {
	s.got = id
	return s.res
}

type stubWaiter struct {
	ev  events.ProvisionedEvent
	err error
}

func (s stubWaiter) WaitProvisioned(context.Context, string) (events.ProvisionedEvent, error) {
	return s.ev, s.err
}

var testOpts = Options{AppURL: "https://app.test", APIURL: "https://api.test"}

func newTestHandler(creator *stubCreator, accts AccountLookup, resolver Resolver, waiter ProvisionWaiter) *Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(creator, stripe.DefaultPriceCatalog(), accts, resolver, waiter, testOpts, log)
}

func postCheckout(h *Handler, userID uint, body string) *httptest.ResponseRecorder {
	r := gin.New()
	r.POST("/checkout", func(c *gin.Context) {
		if userID != 0 {
			c.Set("user_id", userID)
			c.Set("email", "buyer@example.com")
		}
	}, h.CreateCheckoutSession)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(body)))
	return w
}

func TestCreateCheckoutSessionTeamCart(t *testing.T) {
	personal := &accounts.Account{ID: uuid.New(), IsPersonal: true, OwnerUserID: 7}
	creator := &stubCreator{}
	h := newTestHandler(creator, stubAccounts{acct: personal}, nil, nil)

	w := postCheckout(h, 7, `{"items":[{"courseId":"epa-rcra","quantity":3},{"courseId":"dot-hazmat","quantity":1}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		URL       string `json:"url"`
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.URL == "" || resp.SessionID != "cs_test_1" {
		t.Fatalf("resp = %+v", resp)
	}

	req := creator.got
	if len(req.LineItems) != 2 || req.LineItems[0].PriceID != "price_epa_rcra" || req.LineItems[0].Quantity != 3 {
		t.Fatalf("line items = %+v", req.LineItems)
	}
	if !strings.HasPrefix(req.SuccessURL, "https://api.test/checkout/complete?session_id=") {
		t.Fatalf("success url = %s", req.SuccessURL)
	}
	if req.CustomerEmail != "buyer@example.com" {
		t.Fatalf("customer email = %q", req.CustomerEmail)
	}
	if req.ClientReferenceID != personal.ID.String() {
		t.Fatalf("client reference id = %q, want account %s", req.ClientReferenceID, personal.ID)
	}

	intent, err := purchase.ParseIntent(req.Metadata)
	if err != nil {
		t.Fatalf("metadata does not parse: %v", err)
	}
	if intent.AccountType != purchase.AccountTeam || intent.UserID != 7 || intent.PurchaseAccountID != personal.ID {
		t.Fatalf("intent = %+v", intent)
	}
}

func TestCreateCheckoutSessionSingleSeatIsPersonal(t *testing.T) {
	creator := &stubCreator{}
	personal := &accounts.Account{ID: uuid.New(), IsPersonal: true}
	h := newTestHandler(creator, stubAccounts{acct: personal}, nil, nil)

	w := postCheckout(h, 7, `{"items":[{"courseId":"dot-hazmat","quantity":1}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if creator.got.Metadata["accountType"] != "personal" {
		t.Fatalf("metadata = %v", creator.got.Metadata)
	}
	if creator.got.ClientReferenceID != personal.ID.String() {
		t.Fatalf("client reference id = %q, want account %s", creator.got.ClientReferenceID, personal.ID)
	}
}

func TestCreateCheckoutSessionErrors(t *testing.T) {
	cases := []struct {
		name    string
		userID  uint
		body    string
		creator *stubCreator
		accts   AccountLookup
		want    int
	}{
		{"unauthenticated", 0, `{"items":[{"courseId":"dot-hazmat","quantity":1}]}`, &stubCreator{}, stubAccounts{}, http.StatusUnauthorized},
		{"empty cart", 7, `{"items":[]}`, &stubCreator{}, stubAccounts{}, http.StatusBadRequest},
		{"zero quantity", 7, `{"items":[{"courseId":"dot-hazmat","quantity":0}]}`, &stubCreator{}, stubAccounts{}, http.StatusBadRequest},
		{"unknown course", 7, `{"items":[{"courseId":"forklift","quantity":1}]}`, &stubCreator{}, stubAccounts{}, http.StatusBadRequest},
		{"malformed", 7, `{"items":`, &stubCreator{}, stubAccounts{}, http.StatusBadRequest},
		{"provider down", 7, `{"items":[{"courseId":"dot-hazmat","quantity":1}]}`,
			&stubCreator{err: purchase.ErrUpstream}, stubAccounts{acct: &accounts.Account{ID: uuid.New()}}, http.StatusBadGateway},
		{"account store down", 7, `{"items":[{"courseId":"dot-hazmat","quantity":1}]}`,
			&stubCreator{}, stubAccounts{err: errors.New("db down")}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(tc.creator, tc.accts, nil, nil)
			w := postCheckout(h, tc.userID, tc.body)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestCreateCheckoutSessionWithoutPersonalAccount(t *testing.T) {
	creator := &stubCreator{}
	h := newTestHandler(creator, stubAccounts{err: provisioning.ErrNotFound}, nil, nil)

	w := postCheckout(h, 7, `{"items":[{"courseId":"dot-hazmat","quantity":1}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if creator.got.Metadata["purchaseAccountId"] != uuid.Nil.String() {
		t.Fatalf("metadata = %v", creator.got.Metadata)
	}
	if creator.got.ClientReferenceID != "7" {
		t.Fatalf("client reference id = %q, want the user id", creator.got.ClientReferenceID)
	}
}
