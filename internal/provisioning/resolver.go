package provisioning

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"compliance-training/internal/domain/accounts"
	"compliance-training/internal/domain/purchase"
	"compliance-training/internal/infra/stripe"
	"compliance-training/internal/metrics"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
)

type State string

const (
	StateCheckingSession  State = "checking-session"
	StatePollingTeam      State = "polling-team-membership"
	StateResolvedTeam     State = "resolved-team"
	StateResolvedPersonal State = "resolved-personal"
	StatePending          State = "timed-out-pending"
)

// Resolution is where the buyer should be sent after payment. Trail lists
// every state visited, in order.
type Resolution struct {
	State     State
	AccountID uuid.UUID
	Fallback  bool
	Trail     []State
}

type SessionFetcher interface {
	GetSession(ctx context.Context, id string) (*stripe.Session, error)
}

type TeamLookup interface {
	TeamAccountForPayment(ctx context.Context, buyerID uint, paymentID string) (*accounts.Account, error)
}

type SessionProcessor interface {
	ProcessSession(ctx context.Context, sess *stripe.Session) (Summary, error)
}

type ResolverOptions struct {
	Attempts uint
	Delay    time.Duration
}

type Resolver struct {
	sessions  SessionFetcher
	teams     TeamLookup
	processor SessionProcessor
	attempts  uint
	delay     time.Duration
	log       *slog.Logger
}

func NewResolver(sessions SessionFetcher, teams TeamLookup, processor SessionProcessor, opts ResolverOptions, log *slog.Logger) *Resolver {
	// retry-go treats zero attempts as unbounded.
	if opts.Attempts == 0 {
		opts.Attempts = 1
	}
	return &Resolver{
		sessions:  sessions,
		teams:     teams,
		processor: processor,
		attempts:  opts.Attempts,
		delay:     opts.Delay,
		log:       log,
	}
}

var errNotProvisioned = errors.New("team grant not provisioned yet")

// Resolve runs the post-payment state machine for one session. It never
// returns an error: anything unexpected degrades to StatePending, and a
// cancelled context (the buyer left the page) stops polling the same way.
func (r *Resolver) Resolve(ctx context.Context, sessionID string) Resolution {
	res := r.resolve(ctx, sessionID)
	metrics.FailsafeResolutions.WithLabelValues(string(res.State)).Inc()
	return res
}

func (r *Resolver) resolve(ctx context.Context, sessionID string) Resolution {
	res := Resolution{}
	enter := func(s State) {
		res.State = s
		res.Trail = append(res.Trail, s)
	}
	log := r.log.With(slog.String("session_id", sessionID))

	enter(StateCheckingSession)
	sess, err := r.sessions.GetSession(ctx, sessionID)
	if err != nil {
		log.Warn("failsafe: fetch session", slog.Any("error", err))
		enter(StatePending)
		return res
	}
	intent, err := purchase.ParseIntent(sess.Metadata)
	if err != nil {
		log.Warn("failsafe: session has no purchase intent", slog.Any("error", err))
		enter(StatePending)
		return res
	}

	qty := sess.TotalQuantity()
	switch {
	case qty == 1:
		enter(StateResolvedPersonal)
		return res
	case qty < 1:
		log.Warn("failsafe: session has no line items")
		enter(StatePending)
		return res
	}

	enter(StatePollingTeam)
	acct, err := r.poll(ctx, intent.UserID, sess.ID)
	if err == nil {
		res.AccountID = acct.ID
		enter(StateResolvedTeam)
		return res
	}
	if ctx.Err() != nil {
		enter(StatePending)
		return res
	}
	if !errors.Is(err, errNotProvisioned) {
		log.Error("failsafe: team lookup", slog.Any("error", err))
	}

	// Webhook still has not landed: reconcile from here, then look once more.
	res.Fallback = true
	sum, err := r.processor.ProcessSession(ctx, sess)
	if err != nil {
		log.Warn("failsafe: fallback processing", slog.Any("error", err))
	} else if sum.Failed() > 0 {
		log.Warn("failsafe: fallback processing had failures",
			slog.Int("succeeded", sum.Succeeded()),
			slog.Any("error", sum.Err()),
		)
	}

	acct, err = r.lookup(ctx, intent.UserID, sess.ID)
	if err != nil {
		enter(StatePending)
		return res
	}
	res.AccountID = acct.ID
	enter(StateResolvedTeam)
	return res
}

func (r *Resolver) poll(ctx context.Context, buyerID uint, sessionID string) (*accounts.Account, error) {
	var found *accounts.Account
	err := retry.Do(
		func() error {
			a, err := r.lookup(ctx, buyerID, sessionID)
			if err != nil {
				return err
			}
			found = a
			return nil
		},
		retry.Attempts(r.attempts),
		retry.Delay(r.delay),
		retry.DelayType(retry.FixedDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return errors.Is(err, errNotProvisioned) }),
	)
	return found, err
}

func (r *Resolver) lookup(ctx context.Context, buyerID uint, sessionID string) (*accounts.Account, error) {
	a, err := r.teams.TeamAccountForPayment(ctx, buyerID, sessionID)
	if errors.Is(err, ErrNotFound) {
		return nil, errNotProvisioned
	}
	return a, err
}
