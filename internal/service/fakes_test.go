package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/bongitrade/policy-service/internal/domain"
	"github.com/bongitrade/policy-service/internal/repository"
	"github.com/bongitrade/policy-service/internal/storage"
)

// memState is a snapshot of every table. Transactions work on a clone that
// replaces the committed state only on success.
type memState struct {
	seq           int
	users         map[string]domain.User
	policies      map[string]domain.Policy
	beneficiaries []domain.Beneficiary
	claims        map[string]domain.Claim
}

func newMemState() *memState {
	return &memState{
		users:    map[string]domain.User{},
		policies: map[string]domain.Policy{},
		claims:   map[string]domain.Claim{},
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		seq:           s.seq,
		users:         make(map[string]domain.User, len(s.users)),
		policies:      make(map[string]domain.Policy, len(s.policies)),
		beneficiaries: append([]domain.Beneficiary(nil), s.beneficiaries...),
		claims:        make(map[string]domain.Claim, len(s.claims)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.policies {
		c.policies[k] = v
	}
	for k, v := range s.claims {
		v.Documents = append([]domain.Document(nil), v.Documents...)
		c.claims[k] = v
	}
	return c
}

func (s *memState) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

type memStore struct {
	mu    sync.Mutex
	state *memState

	txCount     int
	failCommit  error
	failClaimOn int // fail Claims.Create when > 0
}

func newMemStore() *memStore {
	return &memStore{state: newMemState()}
}

// Repos returns repositories over the committed state.
func (s *memStore) Repos() repository.Repositories {
	return s.bind(nil)
}

func (s *memStore) bind(tx *memState) repository.Repositories {
	v := &memView{store: s, tx: tx}
	return repository.Repositories{
		Users:         memUsers{v},
		Policies:      memPolicies{v},
		Beneficiaries: memBeneficiaries{v},
		Claims:        memClaims{v},
	}
}

func (s *memStore) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txCount++

	working := s.state.clone()
	if err := fn(s.bind(working)); err != nil {
		return err
	}
	if s.failCommit != nil {
		return s.failCommit
	}
	s.state = working
	return nil
}

func (s *memStore) policyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.policies)
}

func (s *memStore) beneficiaryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.beneficiaries)
}

func (s *memStore) claimCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.claims)
}

func (s *memStore) addUser(u domain.User) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = s.state.nextID("user")
	}
	s.state.users[u.ID] = u
	return u
}

func (s *memStore) addPolicy(p domain.Policy) domain.Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = s.state.nextID("policy")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	s.state.policies[p.ID] = p
	return p
}

func (s *memStore) policy(id string) domain.Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.policies[id]
}

func (s *memStore) claim(id string) domain.Claim {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.claims[id]
}

// memView resolves the state to operate on: the tx clone when inside
// WithinTx, the committed state (under lock) otherwise.
type memView struct {
	store *memStore
	tx    *memState
}

func (v *memView) do(fn func(st *memState) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.state)
}

type memUsers struct{ v *memView }

func (r memUsers) Create(_ context.Context, user *domain.User) error {
	return r.v.do(func(st *memState) error {
		for _, existing := range st.users {
			if sameOptional(existing.Username, user.Username) || sameOptional(existing.Email, user.Email) {
				return repository.ErrDuplicateUser
			}
			if user.Role == domain.RoleAdmin && existing.Role == domain.RoleAdmin {
				return repository.ErrAdminExists
			}
		}
		user.ID = st.nextID("user")
		user.CreatedAt = time.Now()
		st.users[user.ID] = *user
		return nil
	})
}

func (r memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.v.do(func(st *memState) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r memUsers) GetByLogin(_ context.Context, login string) (*domain.User, error) {
	var out *domain.User
	err := r.v.do(func(st *memState) error {
		for _, u := range st.users {
			if (u.Username != nil && *u.Username == login) || (u.Email != nil && *u.Email == login) {
				found := u
				out = &found
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r memUsers) CountByRole(_ context.Context, role domain.Role) (int, error) {
	count := 0
	err := r.v.do(func(st *memState) error {
		for _, u := range st.users {
			if u.Role == role {
				count++
			}
		}
		return nil
	})
	return count, err
}

func sameOptional(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

type memPolicies struct{ v *memView }

func (r memPolicies) Create(_ context.Context, policy *domain.Policy) error {
	return r.v.do(func(st *memState) error {
		for _, existing := range st.policies {
			if existing.PolicyNumber == policy.PolicyNumber {
				return repository.ErrDuplicatePolicyNumber
			}
		}
		policy.ID = st.nextID("policy")
		policy.CreatedAt = time.Now()
		policy.UpdatedAt = policy.CreatedAt
		st.policies[policy.ID] = *policy
		return nil
	})
}

func (r memPolicies) Update(_ context.Context, policy *domain.Policy) error {
	return r.v.do(func(st *memState) error {
		if _, ok := st.policies[policy.ID]; !ok {
			return repository.ErrNotFound
		}
		policy.UpdatedAt = time.Now()
		st.policies[policy.ID] = *policy
		return nil
	})
}

func (r memPolicies) GetByID(_ context.Context, id string) (*domain.Policy, error) {
	var out *domain.Policy
	err := r.v.do(func(st *memState) error {
		p, ok := st.policies[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (r memPolicies) GetByIDForUpdate(ctx context.Context, id string) (*domain.Policy, error) {
	return r.GetByID(ctx, id)
}

func (r memPolicies) List(_ context.Context, filter repository.PolicyFilter) ([]domain.Policy, error) {
	out := make([]domain.Policy, 0)
	err := r.v.do(func(st *memState) error {
		for _, p := range st.policies {
			if filter.OwnerID != nil && (p.OwnerID == nil || *p.OwnerID != *filter.OwnerID) {
				continue
			}
			if filter.Status != nil && p.Status != *filter.Status {
				continue
			}
			if filter.PolicyType != nil && p.PolicyType != *filter.PolicyType {
				continue
			}
			out = append(out, p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []domain.Policy{}, err
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, err
}

type memBeneficiaries struct{ v *memView }

func (r memBeneficiaries) Create(_ context.Context, b *domain.Beneficiary) error {
	return r.v.do(func(st *memState) error {
		if _, ok := st.policies[b.PolicyID]; !ok {
			return errors.New("foreign key violation")
		}
		b.ID = st.nextID("beneficiary")
		st.beneficiaries = append(st.beneficiaries, *b)
		return nil
	})
}

func (r memBeneficiaries) ListByPolicy(_ context.Context, policyID string) ([]domain.Beneficiary, error) {
	out := make([]domain.Beneficiary, 0)
	err := r.v.do(func(st *memState) error {
		for _, b := range st.beneficiaries {
			if b.PolicyID == policyID {
				out = append(out, b)
			}
		}
		return nil
	})
	return out, err
}

type memClaims struct{ v *memView }

func (r memClaims) Create(_ context.Context, claim *domain.Claim) error {
	if r.v.store.failClaimOn > 0 {
		return errors.New("claim insert failed")
	}
	return r.v.do(func(st *memState) error {
		claim.ID = st.nextID("claim")
		claim.SubmittedAt = time.Now()
		for i := range claim.Documents {
			claim.Documents[i].ClaimID = claim.ID
			claim.Documents[i].Position = i
			claim.Documents[i].ID = st.nextID("doc")
		}
		stored := *claim
		stored.Documents = append([]domain.Document(nil), claim.Documents...)
		st.claims[claim.ID] = stored
		return nil
	})
}

func (r memClaims) Update(_ context.Context, claim *domain.Claim) error {
	return r.v.do(func(st *memState) error {
		if _, ok := st.claims[claim.ID]; !ok {
			return repository.ErrNotFound
		}
		st.claims[claim.ID] = *claim
		return nil
	})
}

func (r memClaims) GetByID(_ context.Context, id string) (*domain.Claim, error) {
	var out *domain.Claim
	err := r.v.do(func(st *memState) error {
		c, ok := st.claims[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (r memClaims) GetByIDForUpdate(ctx context.Context, id string) (*domain.Claim, error) {
	return r.GetByID(ctx, id)
}

func (r memClaims) ListByPolicy(_ context.Context, policyID string) ([]domain.Claim, error) {
	out := make([]domain.Claim, 0)
	err := r.v.do(func(st *memState) error {
		for _, c := range st.claims {
			if c.PolicyID == policyID {
				out = append(out, c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

// sequenceNumbers hands out the given numbers in order, then a counter.
type sequenceNumbers struct {
	mu      sync.Mutex
	numbers []string
	n       int
}

func (g *sequenceNumbers) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.numbers) > 0 {
		next := g.numbers[0]
		g.numbers = g.numbers[1:]
		return next
	}
	g.n++
	return fmt.Sprintf("POL-%010d", g.n)
}

type memDocumentStore struct {
	mu      sync.Mutex
	saved   map[string]domain.Document
	deleted []string
	failOn  int // fail the nth Save (1-based) when > 0
	saves   int
}

func newMemDocumentStore() *memDocumentStore {
	return &memDocumentStore{saved: map[string]domain.Document{}}
}

func (s *memDocumentStore) Save(_ context.Context, prefix string, upload storage.Upload) (domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.failOn > 0 && s.saves == s.failOn {
		return domain.Document{}, errors.New("disk full")
	}
	n, _ := io.Copy(io.Discard, upload.Body)
	doc := domain.Document{
		StorageKey:  fmt.Sprintf("%s/%d", prefix, s.saves),
		FileName:    storage.SanitizeFileName(upload.FileName),
		ContentType: "application/pdf",
		SizeBytes:   n,
	}
	s.saved[doc.StorageKey] = doc
	return doc, nil
}

func (s *memDocumentStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saved, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *memDocumentStore) live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}
