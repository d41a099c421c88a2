package provisioning

import (
	"context"
	"errors"
	"time"

	"compliance-training/database"
	"compliance-training/internal/domain/accounts"
	"compliance-training/internal/domain/billing"
	"compliance-training/internal/domain/courses"
	"compliance-training/internal/domain/enrollments"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CourseBySlug(ctx context.Context, slug string) (*courses.Course, error) {
	var c courses.Course
	err := s.db.WithContext(ctx).First(&c, "slug = ? AND active = true", slug).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *GormStore) AccountByID(ctx context.Context, id uuid.UUID) (*accounts.Account, error) {
	var a accounts.Account
	if err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (s *GormStore) PersonalAccount(ctx context.Context, userID uint) (*accounts.Account, error) {
	var a accounts.Account
	err := s.db.WithContext(ctx).
		Where("owner_user_id = ? AND is_personal = true", userID).
		Order("created_at ASC").
		First(&a).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// EnsureTeamAccount returns the team the buyer manages, creating it on first
// use. Lookup is by membership, never by payment, so retries of the same
// payment and later purchases land in the same team.
func (s *GormStore) EnsureTeamAccount(ctx context.Context, buyerID uint, name string) (*accounts.Account, error) {
	var out accounts.Account
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		err := tx.Model(&accounts.Account{}).
			Joins("JOIN memberships m ON m.account_id = accounts.id").
			Where("m.user_id = ? AND m.role = ? AND accounts.is_personal = false", buyerID, accounts.RoleTeamManager).
			Order("accounts.created_at ASC").
			First(&out).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		owner := buyerID
		acct := accounts.Account{
			ID:                  uuid.New(),
			OwnerUserID:         buyerID,
			Name:                name,
			PurchaseTeamOwnerID: &owner,
		}
		acct.Slug = accounts.AccountSlug(name, acct.ID)

		// A concurrent purchase by the same buyer may have created the team
		// first; the unique owner index turns our insert into a no-op.
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&acct).Error; err != nil {
			return err
		}
		if err := tx.Where("purchase_team_owner_id = ?", buyerID).First(&out).Error; err != nil {
			return err
		}

		m := accounts.Membership{AccountID: out.ID, UserID: buyerID, Role: accounts.RoleTeamManager}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&m).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *GormStore) ApplyGrant(ctx context.Context, req GrantRequest) (GrantOutcome, error) {
	var out GrantOutcome
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		out = GrantOutcome{}

		ledger := billing.GrantPayment{
			PaymentID: req.PaymentID,
			CourseID:  req.CourseID,
			AccountID: req.AccountID,
			BuyerID:   req.BuyerID,
			Seats:     req.Seats,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "payment_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).Create(&ledger)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			// Already applied; report the grant the first application touched.
			var prior billing.GrantPayment
			if err := tx.Where("payment_id = ? AND course_id = ?", req.PaymentID, req.CourseID).First(&prior).Error; err != nil {
				return err
			}
			var g billing.SeatGrant
			if err := tx.Where("account_id = ? AND course_id = ?", prior.AccountID, prior.CourseID).First(&g).Error; err != nil {
				return err
			}
			out.GrantID = g.ID
			out.TotalSeats = g.TotalSeats
			return nil
		}

		grant := billing.SeatGrant{AccountID: req.AccountID, CourseID: req.CourseID, TotalSeats: req.Seats}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "account_id"}, {Name: "course_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"total_seats": gorm.Expr("seat_grants.total_seats + EXCLUDED.total_seats"),
				"updated_at":  time.Now(),
			}),
		}).Create(&grant).Error; err != nil {
			return err
		}
		if err := tx.Where("account_id = ? AND course_id = ?", req.AccountID, req.CourseID).First(&grant).Error; err != nil {
			return err
		}
		out.Created = true
		out.GrantID = grant.ID
		out.TotalSeats = grant.TotalSeats

		if !req.EnrollBuyer {
			return nil
		}
		e := enrollments.Enrollment{
			UserID:     req.BuyerID,
			CourseID:   req.CourseID,
			AccountID:  req.AccountID,
			EnrolledAt: time.Now(),
		}
		res = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&e)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			out.Enrolled = true
			return tx.Model(&billing.SeatGrant{}).
				Where("id = ?", grant.ID).
				Update("assigned_seats", gorm.Expr("assigned_seats + 1")).Error
		}
		return nil
	})
	return out, err
}

func (s *GormStore) TeamAccountForPayment(ctx context.Context, buyerID uint, paymentID string) (*accounts.Account, error) {
	var a accounts.Account
	err := s.db.WithContext(ctx).Model(&accounts.Account{}).
		Joins("JOIN grant_payments gp ON gp.account_id = accounts.id").
		Joins("JOIN memberships m ON m.account_id = accounts.id").
		Where("gp.payment_id = ? AND m.user_id = ? AND m.role = ? AND accounts.is_personal = false",
			paymentID, buyerID, accounts.RoleTeamManager).
		First(&a).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// RecordDelivery upserts the audit row of a webhook delivery.
func (s *GormStore) RecordDelivery(ctx context.Context, eventID, eventType, sessionID string) error {
	ev := billing.WebhookEvent{ProviderEventID: eventID, EventType: eventType, SessionID: sessionID}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider_event_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"deliveries": gorm.Expr("webhook_events.deliveries + 1"),
			"updated_at": time.Now(),
		}),
	}).Create(&ev).Error
}

func (s *GormStore) MarkProcessed(ctx context.Context, eventID string, procErr error) error {
	updates := map[string]interface{}{"processing_error": ""}
	if procErr != nil {
		updates["processing_error"] = procErr.Error()
	} else {
		updates["processed_at"] = time.Now()
	}
	return s.db.WithContext(ctx).Model(&billing.WebhookEvent{}).
		Where("provider_event_id = ?", eventID).
		Updates(updates).Error
}

func (s *GormStore) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return retry.Do(
		func() error {
			return s.db.WithContext(ctx).Transaction(fn)
		},
		retry.Attempts(3),
		retry.Delay(50*time.Millisecond),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.RetryIf(database.IsRetryable),
	)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
