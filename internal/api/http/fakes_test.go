package http

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/bongitrade/policy-service/internal/domain"
	"github.com/bongitrade/policy-service/internal/repository"
)

// fakeDB is a single-map store. Transactions run fn directly, which is
// enough to drive the handlers end to end.
type fakeDB struct {
	mu            sync.Mutex
	seq           int
	users         map[string]domain.User
	policies      map[string]domain.Policy
	beneficiaries []domain.Beneficiary
	claims        map[string]domain.Claim
}

// fakeIDPattern stands in for the uuid column type: ids outside the
// kind-suffix form are rejected the way Postgres rejects a non-UUID.
var fakeIDPattern = regexp.MustCompile(`^[a-z]+-[a-z0-9]+$`)

func checkID(id string) error {
	if !fakeIDPattern.MatchString(id) {
		return repository.ErrInvalidID
	}
	return nil
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		users:    map[string]domain.User{},
		policies: map[string]domain.Policy{},
		claims:   map[string]domain.Claim{},
	}
}

func (db *fakeDB) nextID(kind string) string {
	db.seq++
	return fmt.Sprintf("%s-%d", kind, db.seq)
}

func (db *fakeDB) repos() repository.Repositories {
	return repository.Repositories{
		Users:         fakeUsers{db},
		Policies:      fakePolicies{db},
		Beneficiaries: fakeBeneficiaries{db},
		Claims:        fakeClaims{db},
	}
}

func (db *fakeDB) WithinTx(_ context.Context, fn func(repository.Repositories) error) error {
	return fn(db.repos())
}

func (db *fakeDB) addUser(id string, role domain.Role, phone string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users[id] = domain.User{ID: id, Name: id, Role: role, Phone: &phone}
}

func (db *fakeDB) addPolicy(p domain.Policy) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.policies[p.ID] = p
}

type fakeUsers struct{ db *fakeDB }

func (r fakeUsers) Create(_ context.Context, user *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if (u.Email != nil && user.Email != nil && *u.Email == *user.Email) ||
			(u.Username != nil && user.Username != nil && *u.Username == *user.Username) {
			return repository.ErrDuplicateUser
		}
	}
	user.ID = r.db.nextID("user")
	r.db.users[user.ID] = *user
	return nil
}

func (r fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r fakeUsers) GetByLogin(_ context.Context, login string) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if (u.Username != nil && *u.Username == login) || (u.Email != nil && *u.Email == login) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r fakeUsers) CountByRole(_ context.Context, role domain.Role) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := 0
	for _, u := range r.db.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

type fakePolicies struct{ db *fakeDB }

func (r fakePolicies) Create(_ context.Context, p *domain.Policy) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if p.OwnerID != nil {
		if err := checkID(*p.OwnerID); err != nil {
			return err
		}
		if _, ok := r.db.users[*p.OwnerID]; !ok {
			return fmt.Errorf("%w: policies_owner_id_fkey", repository.ErrUnknownReference)
		}
	}
	p.ID = r.db.nextID("policy")
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	r.db.policies[p.ID] = *p
	return nil
}

func (r fakePolicies) Update(_ context.Context, p *domain.Policy) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.policies[p.ID] = *p
	return nil
}

func (r fakePolicies) GetByID(_ context.Context, id string) (*domain.Policy, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.policies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r fakePolicies) GetByIDForUpdate(ctx context.Context, id string) (*domain.Policy, error) {
	return r.GetByID(ctx, id)
}

func (r fakePolicies) List(_ context.Context, filter repository.PolicyFilter) ([]domain.Policy, error) {
	if filter.OwnerID != nil {
		if err := checkID(*filter.OwnerID); err != nil {
			return nil, err
		}
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]domain.Policy, 0)
	for _, p := range r.db.policies {
		if filter.OwnerID != nil && (p.OwnerID == nil || *p.OwnerID != *filter.OwnerID) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

type fakeBeneficiaries struct{ db *fakeDB }

func (r fakeBeneficiaries) Create(_ context.Context, b *domain.Beneficiary) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b.ID = r.db.nextID("beneficiary")
	r.db.beneficiaries = append(r.db.beneficiaries, *b)
	return nil
}

func (r fakeBeneficiaries) ListByPolicy(_ context.Context, policyID string) ([]domain.Beneficiary, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]domain.Beneficiary, 0)
	for _, b := range r.db.beneficiaries {
		if b.PolicyID == policyID {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakeClaims struct{ db *fakeDB }

func (r fakeClaims) Create(_ context.Context, c *domain.Claim) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c.ID = r.db.nextID("claim")
	for i := range c.Documents {
		c.Documents[i].ClaimID = c.ID
		c.Documents[i].Position = i
	}
	r.db.claims[c.ID] = *c
	return nil
}

func (r fakeClaims) Update(_ context.Context, c *domain.Claim) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.claims[c.ID] = *c
	return nil
}

func (r fakeClaims) GetByID(_ context.Context, id string) (*domain.Claim, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.claims[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r fakeClaims) GetByIDForUpdate(ctx context.Context, id string) (*domain.Claim, error) {
	return r.GetByID(ctx, id)
}

func (r fakeClaims) ListByPolicy(_ context.Context, policyID string) ([]domain.Claim, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]domain.Claim, 0)
	for _, c := range r.db.claims {
		if c.PolicyID == policyID {
			out = append(out, c)
		}
	}
	return out, nil
}
