// Package provisioning turns paid checkout sessions into seat grants and
// enrollments. The webhook, the post-payment redirect and the ops CLI all go
// through Processor.
package provisioning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"compliance-training/internal/domain/accounts"
	"compliance-training/internal/domain/purchase"
	"compliance-training/internal/infra/events"
	"compliance-training/internal/infra/stripe"
	"compliance-training/internal/metrics"

	"github.com/google/uuid"
)

type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeExisted Outcome = "already_existed"
)

// PriceLookup maps a provider price id to a course slug.
type PriceLookup interface {
	CourseForPrice(priceID string) (string, bool)
}

// Notifier receives an event for every newly applied grant.
type Notifier interface {
	PublishProvisioned(ctx context.Context, ev events.ProvisionedEvent) error
}

type Request struct {
	Course               string
	DestinationAccountID uuid.UUID
	BuyerID              uint
	BuyerName            string
	PaymentID            string
	Quantity             int64
	AccountType          purchase.AccountType
}

// Team reports whether the request must land in a team account. Quantity is
// authoritative; the intent's account type also counts so that every item of
// a multi-course cart lands in the same account.
func (r Request) Team() bool {
	return r.Quantity >= 2 || r.AccountType == purchase.AccountTeam
}

type Result struct {
	Outcome     Outcome
	AccountID   uuid.UUID
	TeamAccount bool
	Course      string
	Seats       int64
	Enrolled    bool
}

type Processor struct {
	store     Store
	prices    PriceLookup
	notifiers []Notifier
	log       *slog.Logger
	now       func() time.Time
}

// NewProcessor wires the processor. Nil notifiers are skipped.
func NewProcessor(store Store, prices PriceLookup, log *slog.Logger, notifiers ...Notifier) *Processor {
	p := &Processor{store: store, prices: prices, log: log, now: time.Now}
	for _, n := range notifiers {
		if n != nil {
			p.notifiers = append(p.notifiers, n)
		}
	}
	return p
}

// Process applies one purchased course. Repeating a request for the same
// (payment, course) pair returns OutcomeExisted and changes nothing.
func (p *Processor) Process(ctx context.Context, req Request) (Result, error) {
	if req.PaymentID == "" || req.BuyerID == 0 || req.Quantity <= 0 {
		return Result{}, fmt.Errorf("%w: payment %q buyer %d quantity %d",
			purchase.ErrInvalidCart, req.PaymentID, req.BuyerID, req.Quantity)
	}

	course, err := p.store.CourseBySlug(ctx, req.Course)
	if errors.Is(err, ErrNotFound) {
		return Result{}, fmt.Errorf("%w: %s", purchase.ErrUnknownCourse, req.Course)
	}
	if err != nil {
		return Result{}, fmt.Errorf("%w: load course %s: %w", purchase.ErrDatabase, req.Course, err)
	}

	acct, err := p.resolveAccount(ctx, req)
	if err != nil {
		return Result{}, err
	}
	team := !acct.IsPersonal

	out, err := p.store.ApplyGrant(ctx, GrantRequest{
		PaymentID:   req.PaymentID,
		CourseID:    course.ID,
		AccountID:   acct.ID,
		BuyerID:     req.BuyerID,
		Seats:       req.Quantity,
		EnrollBuyer: !team,
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: apply grant: %w", purchase.ErrDatabase, err)
	}

	res := Result{
		Outcome:     OutcomeExisted,
		AccountID:   acct.ID,
		TeamAccount: team,
		Course:      req.Course,
		Seats:       req.Quantity,
		Enrolled:    out.Enrolled,
	}
	if out.Created {
		res.Outcome = OutcomeCreated
		p.notify(ctx, req, res)
	}
	return res, nil
}

func (p *Processor) resolveAccount(ctx context.Context, req Request) (*accounts.Account, error) {
	var dest *accounts.Account
	if req.DestinationAccountID != uuid.Nil {
		a, err := p.store.AccountByID(ctx, req.DestinationAccountID)
		switch {
		case err == nil:
			// The destination is only honoured when the buyer owns it.
			if a.OwnerUserID == req.BuyerID {
				dest = a
			}
		case !errors.Is(err, ErrNotFound):
			return nil, fmt.Errorf("%w: load account %s: %w", purchase.ErrAccountResolution, req.DestinationAccountID, err)
		}
	}

	if req.Team() {
		if dest != nil && !dest.IsPersonal {
			return dest, nil
		}
		a, err := p.store.EnsureTeamAccount(ctx, req.BuyerID, accounts.TeamName(req.BuyerName))
		if err != nil {
			return nil, fmt.Errorf("%w: team account for user %d: %w", purchase.ErrAccountResolution, req.BuyerID, err)
		}
		return a, nil
	}

	if dest != nil && dest.IsPersonal {
		return dest, nil
	}
	a, err := p.store.PersonalAccount(ctx, req.BuyerID)
	if err != nil {
		return nil, fmt.Errorf("%w: personal account for user %d: %w", purchase.ErrAccountResolution, req.BuyerID, err)
	}
	return a, nil
}

func (p *Processor) notify(ctx context.Context, req Request, res Result) {
	ev := events.ProvisionedEvent{
		SessionID:   req.PaymentID,
		BuyerID:     req.BuyerID,
		AccountID:   res.AccountID,
		TeamAccount: res.TeamAccount,
		Course:      res.Course,
		Seats:       res.Seats,
		Enrolled:    res.Enrolled,
		At:          p.now().UTC(),
	}
	for _, n := range p.notifiers {
		if err := n.PublishProvisioned(ctx, ev); err != nil {
			p.log.Warn("provisioned notification failed",
				slog.String("session_id", req.PaymentID),
				slog.String("course", req.Course),
				slog.Any("error", err),
			)
		}
	}
}

// ItemResult is the outcome of one line item of a session.
type ItemResult struct {
	PriceID  string
	Course   string
	Quantity int64
	Result   Result
	Err      error
}

type Summary struct {
	SessionID string
	Items     []ItemResult
}

func (s Summary) Succeeded() int {
	n := 0
	for _, it := range s.Items {
		if it.Err == nil {
			n++
		}
	}
	return n
}

func (s Summary) Failed() int {
	return len(s.Items) - s.Succeeded()
}

// ShouldRetry is true when nothing was applied and at least one failure could
// go away on redelivery. A partially applied session is acknowledged; the
// failed items are left for manual reconciliation.
func (s Summary) ShouldRetry() bool {
	if s.Succeeded() > 0 {
		return false
	}
	for _, it := range s.Items {
		if it.Err != nil && !purchase.IsPermanent(it.Err) {
			return true
		}
	}
	return false
}

func (s Summary) Err() error {
	var errs []error
	for _, it := range s.Items {
		if it.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", it.PriceID, it.Err))
		}
	}
	return errors.Join(errs...)
}

// ProcessSession applies every line item of a paid purchase session. Item
// failures are collected in the summary; the returned error is reserved for
// sessions that cannot be processed at all.
func (p *Processor) ProcessSession(ctx context.Context, sess *stripe.Session) (Summary, error) {
	sum := Summary{SessionID: sess.ID}

	intent, err := purchase.ParseIntent(sess.Metadata)
	if err != nil {
		if errors.Is(err, purchase.ErrNotPurchase) {
			return sum, err
		}
		return sum, fmt.Errorf("%w: session %s: %w", purchase.ErrNotPurchase, sess.ID, err)
	}
	if stripe.NormalizePaymentStatus(sess.PaymentStatus) != stripe.PaymentPaid {
		return sum, fmt.Errorf("%w: session %s is %q", purchase.ErrNotPaid, sess.ID, sess.PaymentStatus)
	}
	if sess.LineItems == nil {
		return sum, fmt.Errorf("session %s has no line items loaded", sess.ID)
	}

	log := p.log.With(slog.String("session_id", sess.ID), slog.Uint64("user_id", uint64(intent.UserID)))

	for _, li := range sess.LineItems {
		item := ItemResult{PriceID: li.PriceID, Quantity: li.Quantity}

		course, ok := p.prices.CourseForPrice(li.PriceID)
		if !ok {
			item.Err = fmt.Errorf("%w: %s", purchase.ErrUnknownPriceMapping, li.PriceID)
			log.Warn("skipping line item", slog.String("price_id", li.PriceID), slog.Any("error", item.Err))
			metrics.PurchaseItems.WithLabelValues("skipped").Inc()
			sum.Items = append(sum.Items, item)
			continue
		}
		item.Course = course

		item.Result, item.Err = p.Process(ctx, Request{
			Course:               course,
			DestinationAccountID: intent.PurchaseAccountID,
			BuyerID:              intent.UserID,
			BuyerName:            sess.CustomerName,
			PaymentID:            sess.ID,
			Quantity:             li.Quantity,
			AccountType:          intent.AccountType,
		})
		if item.Err != nil {
			log.Error("line item failed", slog.String("course", course), slog.Any("error", item.Err))
			metrics.PurchaseItems.WithLabelValues("failed").Inc()
		} else {
			log.Info("line item processed",
				slog.String("course", course),
				slog.String("outcome", string(item.Result.Outcome)),
				slog.String("account_id", item.Result.AccountID.String()),
				slog.Int64("seats", li.Quantity),
			)
			metrics.PurchaseItems.WithLabelValues(string(item.Result.Outcome)).Inc()
		}
		sum.Items = append(sum.Items, item)
	}
	return sum, nil
}
