package provisioning

import (
	"context"
	"sync"

	"compliance-training/internal/domain/accounts"
	"compliance-training/internal/domain/billing"
	"compliance-training/internal/domain/courses"

	"github.com/google/uuid"
)

type ledgerKey struct {
	payment string
	course  uint
}

type grantKey struct {
	account uuid.UUID
	course  uint
}

type enrollKey struct {
	user   uint
	course uint
}

// memStore mirrors the uniqueness rules of the gorm store.
type memStore struct {
	mu          sync.Mutex
	courses     map[string]*courses.Course
	accounts    map[uuid.UUID]*accounts.Account
	memberships []accounts.Membership
	ledger      map[ledgerKey]billing.GrantPayment
	grants      map[grantKey]*billing.SeatGrant
	enrolled    map[enrollKey]bool
	teamCreates int
	grantErr    error
	lookupCalls int
}

func newMemStore() *memStore {
	s := &memStore{
		courses:  map[string]*courses.Course{},
		accounts: map[uuid.UUID]*accounts.Account{},
		ledger:   map[ledgerKey]billing.GrantPayment{},
		grants:   map[grantKey]*billing.SeatGrant{},
		enrolled: map[enrollKey]bool{},
	}
	for i, slug := range []string{"dot-hazmat", "epa-rcra", "advanced-hazmat"} {
		s.courses[slug] = &courses.Course{ID: uint(i + 1), Slug: slug, Title: slug, Active: true}
	}
	return s
}

func (s *memStore) addUser(id uint) *accounts.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := &accounts.Account{ID: uuid.New(), IsPersonal: true, OwnerUserID: id, Name: "personal"}
	s.accounts[a.ID] = a
	s.memberships = append(s.memberships, accounts.Membership{AccountID: a.ID, UserID: id, Role: accounts.RoleOwner})
	return a
}

func (s *memStore) CourseBySlug(_ context.Context, slug string) (*courses.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courses[slug]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *memStore) AccountByID(_ context.Context, id uuid.UUID) (*accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

func (s *memStore) PersonalAccount(_ context.Context, userID uint) (*accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.IsPersonal && a.OwnerUserID == userID {
			return a, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) EnsureTeamAccount(_ context.Context, buyerID uint, name string) (*accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.teamFor(buyerID); a != nil {
		return a, nil
	}
	a := &accounts.Account{ID: uuid.New(), OwnerUserID: buyerID, Name: name}
	s.accounts[a.ID] = a
	s.memberships = append(s.memberships, accounts.Membership{AccountID: a.ID, UserID: buyerID, Role: accounts.RoleTeamManager})
	s.teamCreates++
	return a, nil
}

func (s *memStore) teamFor(buyerID uint) *accounts.Account {
	for _, m := range s.memberships {
		if m.UserID == buyerID && m.Role == accounts.RoleTeamManager && !s.accounts[m.AccountID].IsPersonal {
			return s.accounts[m.AccountID]
		}
	}
	return nil
}

func (s *memStore) ApplyGrant(_ context.Context, req GrantRequest) (GrantOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grantErr != nil {
		return GrantOutcome{}, s.grantErr
	}

	lk := ledgerKey{req.PaymentID, req.CourseID}
	if prior, ok := s.ledger[lk]; ok {
		g := s.grants[grantKey{prior.AccountID, prior.CourseID}]
		return GrantOutcome{GrantID: g.ID, TotalSeats: g.TotalSeats}, nil
	}
	s.ledger[lk] = billing.GrantPayment{
		PaymentID: req.PaymentID, CourseID: req.CourseID, AccountID: req.AccountID,
		BuyerID: req.BuyerID, Seats: req.Seats,
	}

	gk := grantKey{req.AccountID, req.CourseID}
	g, ok := s.grants[gk]
	if !ok {
		g = &billing.SeatGrant{ID: uint(len(s.grants) + 1), AccountID: req.AccountID, CourseID: req.CourseID}
		s.grants[gk] = g
	}
	g.TotalSeats += req.Seats

	out := GrantOutcome{Created: true, GrantID: g.ID, TotalSeats: g.TotalSeats}
	ek := enrollKey{req.BuyerID, req.CourseID}
	if req.EnrollBuyer && !s.enrolled[ek] {
		s.enrolled[ek] = true
		g.AssignedSeats++
		out.Enrolled = true
	}
	return out, nil
}

func (s *memStore) TeamAccountForPayment(_ context.Context, buyerID uint, paymentID string) (*accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookupCalls++
	team := s.teamFor(buyerID)
	if team == nil {
		return nil, ErrNotFound
	}
	for k, row := range s.ledger {
		if k.payment == paymentID && row.AccountID == team.ID {
			return team, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) grant(account uuid.UUID, course uint) *billing.SeatGrant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grants[grantKey{account, course}]
}
