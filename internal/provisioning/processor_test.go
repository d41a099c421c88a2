package provisioning

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"compliance-training/internal/domain/purchase"
	"compliance-training/internal/infra/events"
	"compliance-training/internal/infra/stripe"

	"github.com/google/uuid"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []events.ProvisionedEvent
	err    error
}

func (n *recordingNotifier) PublishProvisioned(_ context.Context, ev events.ProvisionedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func paidSession(t *testing.T, id string, userID uint, acct uuid.UUID, cart purchase.Cart) *stripe.Session {
	t.Helper()
	md, err := purchase.NewIntent(userID, acct, cart).Metadata()
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	catalog := stripe.DefaultPriceCatalog()
	sess := &stripe.Session{ID: id, Metadata: md, PaymentStatus: "paid", CustomerName: "Dana Reyes", LineItems: []stripe.LineItem{}}
	for _, it := range cart {
		priceID, ok := catalog.PriceForCourse(it.CourseID)
		if !ok {
			priceID = "price_" + it.CourseID
		}
		sess.LineItems = append(sess.LineItems, stripe.LineItem{PriceID: priceID, Quantity: it.Quantity})
	}
	return sess
}

func TestProcessSingleSeatEnrollsBuyer(t *testing.T) {
	store := newMemStore()
	personal := store.addUser(7)
	n := &recordingNotifier{}
	p := NewProcessor(store, stripe.DefaultPriceCatalog(), discardLogger(), n)

	res, err := p.Process(context.Background(), Request{
		Course: "dot-hazmat", DestinationAccountID: personal.ID, BuyerID: 7,
		PaymentID: "cs_1", Quantity: 1, AccountType: purchase.AccountPersonal,
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Outcome != OutcomeCreated || res.AccountID != personal.ID || res.TeamAccount || !res.Enrolled {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(n.events) != 1 || n.events[0].SessionID != "cs_1" {
		t.Fatalf("notifications = %+v", n.events)
	}
	if g := store.grant(personal.ID, 1); g == nil || g.TotalSeats != 1 || g.AssignedSeats != 1 {
		t.Fatalf("grant = %+v", g)
	}
}

func TestProcessIsIdempotentPerPayment(t *testing.T) {
	store := newMemStore()
	personal := store.addUser(7)
	n := &recordingNotifier{}
	p := NewProcessor(store, stripe.DefaultPriceCatalog(), discardLogger(), n)
	req := Request{Course: "epa-rcra", DestinationAccountID: personal.ID, BuyerID: 7, PaymentID: "cs_1", Quantity: 1}

	first, err := p.Process(context.Background(), req)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := p.Process(context.Background(), req)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first.Outcome != OutcomeCreated || second.Outcome != OutcomeExisted {
		t.Fatalf("outcomes = %s, %s", first.Outcome, second.Outcome)
	}
	if second.AccountID != first.AccountID {
		t.Fatalf("account changed between calls")
	}
	if g := store.grant(personal.ID, 2); g.TotalSeats != 1 {
		t.Fatalf("total seats = %d, want 1", g.TotalSeats)
	}
	if len(n.events) != 1 {
		t.Fatalf("notified %d times, want 1", len(n.events))
	}
}

func TestProcessMultiSeatCreatesTeam(t *testing.T) {
	store := newMemStore()
	personal := store.addUser(7)
	p := NewProcessor(store, stripe.DefaultPriceCatalog(), discardLogger())

	res, err := p.Process(context.Background(), Request{
		Course: "epa-rcra", DestinationAccountID: personal.ID, BuyerID: 7,
		BuyerName: "Dana Reyes", PaymentID: "cs_team", Quantity: 5, AccountType: purchase.AccountTeam,
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !res.TeamAccount || res.AccountID == personal.ID || res.Enrolled {
		t.Fatalf("expected team grant without enrollment: %+v", res)
	}
	team, _ := store.AccountByID(context.Background(), res.AccountID)
	if team.IsPersonal || team.OwnerUserID != 7 || team.Name != "Dana Reyes's Team" {
		t.Fatalf("team = %+v", team)
	}
	if store.teamFor(7) == nil {
		t.Fatal("buyer is not team manager")
	}
	if g := store.grant(team.ID, 2); g.TotalSeats != 5 || g.AssignedSeats != 0 {
		t.Fatalf("grant = %+v", g)
	}
	if store.enrolled[enrollKey{7, 2}] {
		t.Fatal("buyer must not be enrolled by a team purchase")
	}
}

func TestProcessReusesBuyersTeam(t *testing.T) {
	store := newMemStore()
	personal := store.addUser(7)
	p := NewProcessor(store, stripe.DefaultPriceCatalog(), discardLogger())
	ctx := context.Background()

	a, err := p.Process(ctx, Request{Course: "epa-rcra", DestinationAccountID: personal.ID, BuyerID: 7, PaymentID: "cs_a", Quantity: 3})
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.Process(ctx, Request{Course: "epa-rcra", DestinationAccountID: personal.ID, BuyerID: 7, PaymentID: "cs_b", Quantity: 2})
	if err != nil {
		t.Fatal(err)
	}
	if a.AccountID != b.AccountID || store.teamCreates != 1 {
		t.Fatalf("expected one team, got %s and %s (%d creates)", a.AccountID, b.AccountID, store.teamCreates)
	}
	if g := store.grant(a.AccountID, 2); g.TotalSeats != 5 {
		t.Fatalf("total seats = %d, want 5", g.TotalSeats)
	}
}

func TestProcessConcurrentDeliveries(t *testing.T) {
	store := newMemStore()
	personal := store.addUser(7)
	p := NewProcessor(store, stripe.DefaultPriceCatalog(), discardLogger())
	req := Request{Course: "advanced-hazmat", DestinationAccountID: personal.ID, BuyerID: 7, PaymentID: "cs_race", Quantity: 4}

	const workers = 8
	outcomes := make(chan Outcome, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := p.Process(context.Background(), req)
			if err != nil {
				t.Errorf("Process: %v", err)
				return
			}
			outcomes <- res.Outcome
		}()
	}
	wg.Wait()
	close(outcomes)

	created := 0
	for o := range outcomes {
		if o == OutcomeCreated {
			created++
		}
	}
	if created != 1 {
		t.Fatalf("created %d times, want 1", created)
	}
	if store.teamCreates != 1 {
		t.Fatalf("team created %d times", store.teamCreates)
	}
	team := store.teamFor(7)
	if g := store.grant(team.ID, 3); g.TotalSeats != 4 {
		t.Fatalf("total seats = %d, want 4", g.TotalSeats)
	}
}

func TestProcessErrors(t *testing.T) {
	store := newMemStore()
	personal := store.addUser(7)
	p := NewProcessor(store, stripe.DefaultPriceCatalog(), discardLogger())
	ctx := context.Background()

	_, err := p.Process(ctx, Request{Course: "forklift", DestinationAccountID: personal.ID, BuyerID: 7, PaymentID: "cs", Quantity: 1})
	if !errors.Is(err, purchase.ErrUnknownCourse) {
		t.Fatalf("unknown course: %v", err)
	}

	_, err = p.Process(ctx, Request{Course: "dot-hazmat", BuyerID: 99, PaymentID: "cs", Quantity: 1})
	if !errors.Is(err, purchase.ErrAccountResolution) {
		t.Fatalf("no personal account: %v", err)
	}

	_, err = p.Process(ctx, Request{Course: "dot-hazmat", BuyerID: 7, Quantity: 1})
	if !errors.Is(err, purchase.ErrInvalidCart) {
		t.Fatalf("missing payment id: %v", err)
	}

	store.grantErr = errors.New("connection reset")
	_, err = p.Process(ctx, Request{Course: "dot-hazmat", DestinationAccountID: personal.ID, BuyerID: 7, PaymentID: "cs", Quantity: 1})
	if !errors.Is(err, purchase.ErrDatabase) {
		t.Fatalf("grant failure: %v", err)
	}
}

func TestProcessIgnoresForeignDestination(t *testing.T) {
	store := newMemStore()
	store.addUser(7)
	other := store.addUser(8)
	p := NewProcessor(store, stripe.DefaultPriceCatalog(), discardLogger())

	res, err := p.Process(context.Background(), Request{
		Course: "dot-hazmat", DestinationAccountID: other.ID, BuyerID: 7, PaymentID: "cs", Quantity: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.AccountID == other.ID {
		t.Fatal("grant landed in an account the buyer does not own")
	}
}

func TestProcessNotifierFailureIsNotFatal(t *testing.T) {
	store := newMemStore()
	personal := store.addUser(7)
	n := &recordingNotifier{err: errors.New("broker down")}
	p := NewProcessor(store, stripe.DefaultPriceCatalog(), discardLogger(), nil, n)

	res, err := p.Process(context.Background(), Request{Course: "dot-hazmat", DestinationAccountID: personal.ID, BuyerID: 7, PaymentID: "cs", Quantity: 1})
	if err != nil || res.Outcome != OutcomeCreated {
		t.Fatalf("res = %+v, err = %v", res, err)
	}
}

func TestProcessSessionPartialBatch(t *testing.T) {
	store := newMemStore()
	personal := store.addUser(7)
	p := NewProcessor(store, stripe.DefaultPriceCatalog(), discardLogger())

	sess := paidSession(t, "cs_mixed", 7, personal.ID, purchase.Cart{
		{CourseID: "dot-hazmat", Quantity: 2},
		{CourseID: "retired-course", Quantity: 1},
	})
	sum, err := p.ProcessSession(context.Background(), sess)
	if err != nil {
		t.Fatalf("ProcessSession: %v", err)
	}
	if sum.Succeeded() != 1 || sum.Failed() != 1 {
		t.Fatalf("succeeded=%d failed=%d", sum.Succeeded(), sum.Failed())
	}
	if sum.ShouldRetry() {
		t.Fatal("a partially applied session must not be retried")
	}
	if !errors.Is(sum.Err(), purchase.ErrUnknownPriceMapping) {
		t.Fatalf("summary err = %v", sum.Err())
	}
}

func TestProcessSessionRetryPolicy(t *testing.T) {
	store := newMemStore()
	personal := store.addUser(7)
	p := NewProcessor(store, stripe.DefaultPriceCatalog(), discardLogger())
	ctx := context.Background()

	unmapped := paidSession(t, "cs_unmapped", 7, personal.ID, purchase.Cart{{CourseID: "retired-course", Quantity: 1}})
	sum, err := p.ProcessSession(ctx, unmapped)
	if err != nil {
		t.Fatal(err)
	}
	if sum.ShouldRetry() {
		t.Fatal("unknown price mappings never succeed on retry")
	}

	store.grantErr = errors.New("deadlock detected")
	failing := paidSession(t, "cs_db", 7, personal.ID, purchase.Cart{{CourseID: "dot-hazmat", Quantity: 1}})
	sum, err = p.ProcessSession(ctx, failing)
	if err != nil {
		t.Fatal(err)
	}
	if !sum.ShouldRetry() {
		t.Fatal("database failures with nothing applied should be retried")
	}
}

func TestProcessSessionTeamCartSharesOneAccount(t *testing.T) {
	store := newMemStore()
	personal := store.addUser(7)
	p := NewProcessor(store, stripe.DefaultPriceCatalog(), discardLogger())

	sess := paidSession(t, "cs_two", 7, personal.ID, purchase.Cart{
		{CourseID: "dot-hazmat", Quantity: 1},
		{CourseID: "epa-rcra", Quantity: 1},
	})
	sum, err := p.ProcessSession(context.Background(), sess)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Succeeded() != 2 {
		t.Fatalf("succeeded = %d: %v", sum.Succeeded(), sum.Err())
	}
	a, b := sum.Items[0].Result, sum.Items[1].Result
	if !a.TeamAccount || a.AccountID != b.AccountID {
		t.Fatalf("items landed in different accounts: %+v %+v", a, b)
	}
}

func TestProcessSessionRejects(t *testing.T) {
	store := newMemStore()
	personal := store.addUser(7)
	p := NewProcessor(store, stripe.DefaultPriceCatalog(), discardLogger())
	ctx := context.Background()

	unpaid := paidSession(t, "cs_unpaid", 7, personal.ID, purchase.Cart{{CourseID: "dot-hazmat", Quantity: 1}})
	unpaid.PaymentStatus = "unpaid"
	if _, err := p.ProcessSession(ctx, unpaid); !errors.Is(err, purchase.ErrNotPaid) {
		t.Fatalf("unpaid: %v", err)
	}

	foreign := &stripe.Session{ID: "cs_sub", Metadata: map[string]string{"type": "subscription"}, PaymentStatus: "paid"}
	if _, err := p.ProcessSession(ctx, foreign); !errors.Is(err, purchase.ErrNotPurchase) {
		t.Fatalf("foreign: %v", err)
	}

	free := paidSession(t, "cs_free", 7, personal.ID, purchase.Cart{{CourseID: "dot-hazmat", Quantity: 1}})
	free.PaymentStatus = "no_payment_required"
	if sum, err := p.ProcessSession(ctx, free); err != nil || sum.Succeeded() != 1 {
		t.Fatalf("no payment required: %+v %v", sum, err)
	}
}
