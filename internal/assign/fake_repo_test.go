package assign

import (
	"context"
	"strings"
	"sync"

	"example.com/abonos/internal/domain"
	"example.com/abonos/internal/events"
)

type pairKey struct {
	kind     domain.ResourceKind
	match    int64
	resource int64
}

// fakeRepo enforces the (match, resource) key the way the database does:
// the check and the write happen under one lock inside Insert.
type fakeRepo struct {
	mu          sync.Mutex
	matches     map[int64]domain.Match
	seats       map[int64]bool
	slots       map[int64]bool
	customers   map[int64]domain.Customer
	assignments map[pairKey]domain.Assignment
	nextID      int64

	// preCheckBlind makes Find report nothing, so racing callers reach Insert.
	preCheckBlind bool
	// insertErr is returned by Insert in place of the write.
	insertErr error

	calls map[string]int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		matches:     map[int64]domain.Match{},
		seats:       map[int64]bool{},
		slots:       map[int64]bool{},
		customers:   map[int64]domain.Customer{},
		assignments: map[pairKey]domain.Assignment{},
		calls:       map[string]int{},
	}
}

func (r *fakeRepo) count(name string) {
	r.calls[name]++
}

func (r *fakeRepo) Match(_ context.Context, id int64) (domain.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count("Match")
	m, ok := r.matches[id]
	if !ok {
		return domain.Match{}, domain.ErrMatchNotFound
	}
	return m, nil
}

func (r *fakeRepo) Customer(_ context.Context, id int64) (domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count("Customer")
	c, ok := r.customers[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return c, nil
}

func (r *fakeRepo) ResourceExists(_ context.Context, kind domain.ResourceKind, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count("ResourceExists")
	switch kind {
	case domain.KindSeat:
		if !r.seats[id] {
			return domain.ErrSeatNotFound
		}
	case domain.KindParking:
		if !r.slots[id] {
			return domain.ErrParkingNotFound
		}
	}
	return nil
}

func (r *fakeRepo) Find(_ context.Context, kind domain.ResourceKind, matchID, resourceID int64) (*domain.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count("Find")
	if r.preCheckBlind {
		return nil, nil
	}
	a, ok := r.assignments[pairKey{kind, matchID, resourceID}]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *fakeRepo) Insert(_ context.Context, a domain.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count("Insert")
	if r.insertErr != nil {
		return r.insertErr
	}
	k := pairKey{a.Kind, a.MatchID, a.ResourceID}
	if _, ok := r.assignments[k]; ok {
		return domain.ErrAlreadyAssigned
	}
	r.assignments[k] = a
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, kind domain.ResourceKind, matchID, resourceID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count("Delete")
	k := pairKey{kind, matchID, resourceID}
	if _, ok := r.assignments[k]; !ok {
		return false, nil
	}
	delete(r.assignments, k)
	return true, nil
}

func (r *fakeRepo) FindByName(_ context.Context, name string) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.customers {
		if strings.EqualFold(c.Name, name) {
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) insertCustomer(name string) (domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.customers {
		if strings.EqualFold(c.Name, name) {
			return domain.Customer{}, domain.ErrCustomerExists
		}
	}
	r.nextID++
	c := domain.Customer{ID: 1000 + r.nextID, Name: name}
	r.customers[c.ID] = c
	return c, nil
}

func (r *fakeRepo) callCount(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[name]
}

// customerRepo adapts fakeRepo to CustomerRepository; Insert collides with
// the assignment Insert on fakeRepo.
type customerRepo struct{ *fakeRepo }

func (c customerRepo) Insert(_ context.Context, name string) (domain.Customer, error) {
	return c.fakeRepo.insertCustomer(name)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}
