package httpapi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"example.com/abonos/internal/assign"
	"example.com/abonos/internal/cache"
	"example.com/abonos/internal/domain"
	"example.com/abonos/internal/reconcile"
	"example.com/abonos/internal/store"
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func (f *fakeUsers) Get(_ context.Context, username string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) Create(_ context.Context, u domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.Username]; ok {
		return domain.ErrUserExists
	}
	f.users[u.Username] = u
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, username, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	f.users[username] = u
	return nil
}

type fakeReads struct {
	matches []domain.MatchSummary
	detail  map[int64]domain.MatchDetail
}

func (f *fakeReads) UpcomingMatches(context.Context) ([]domain.MatchSummary, error) {
	return f.matches, nil
}

func (f *fakeReads) Match(_ context.Context, id int64) (domain.Match, error) {
	d, ok := f.detail[id]
	if !ok {
		return domain.Match{}, domain.ErrMatchNotFound
	}
	return d.Match, nil
}

func (f *fakeReads) MatchDetail(_ context.Context, id int64) (domain.MatchDetail, error) {
	d, ok := f.detail[id]
	if !ok {
		return domain.MatchDetail{}, domain.ErrMatchNotFound
	}
	return d, nil
}

func (f *fakeReads) AssignmentContext(_ context.Context, kind domain.ResourceKind, matchID, _ int64) (domain.AssignmentContext, error) {
	d, ok := f.detail[matchID]
	if !ok {
		return domain.AssignmentContext{}, domain.ErrMatchNotFound
	}
	return domain.AssignmentContext{Kind: kind, Match: d.Match}, nil
}

func (f *fakeReads) CustomerOptions(context.Context) ([]domain.Customer, error) {
	return []domain.Customer{{ID: 1, Name: "Ana"}}, nil
}

func (f *fakeReads) Stats() []cache.Stats { return []cache.Stats{{Name: "match_list"}} }

type assignCall struct {
	matchID    int64
	kind       domain.ResourceKind
	resourceID int64
	customerID int64
	actor      string
}

type fakeEngine struct {
	mu       sync.Mutex
	calls    []assignCall
	err      error
	bulk     assign.BulkResult
	released map[string]bool
}

func (f *fakeEngine) AssignSingle(_ context.Context, matchID int64, kind domain.ResourceKind, resourceID, customerID int64, actor string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, assignCall{matchID, kind, resourceID, customerID, actor})
	return f.err
}

func (f *fakeEngine) AssignBulk(context.Context, int64, []int64, []int64, int64, string) (assign.BulkResult, error) {
	return f.bulk, f.err
}

func (f *fakeEngine) Release(_ context.Context, matchID int64, kind domain.ResourceKind, resourceID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.released == nil {
		f.released = map[string]bool{}
	}
	key := fmt.Sprintf("%s:%d:%d", kind, matchID, resourceID)
	if f.released[key] {
		return false, nil
	}
	f.released[key] = true
	return true, nil
}

func (f *fakeEngine) CreateCustomerIfNew(_ context.Context, name string) (domain.Customer, error) {
	name, err := domain.CleanName("name", name)
	if err != nil {
		return domain.Customer{}, err
	}
	if f.err != nil {
		return domain.Customer{}, f.err
	}
	return domain.Customer{ID: 9, Name: name}, nil
}

type fakeMatches struct {
	inserted []domain.Match
}

func (f *fakeMatches) Insert(_ context.Context, m domain.Match) (domain.Match, error) {
	m.ID = int64(len(f.inserted) + 1)
	f.inserted = append(f.inserted, m)
	return m, nil
}

func (f *fakeMatches) Update(_ context.Context, m domain.Match) error {
	for i := range f.inserted {
		if f.inserted[i].ID == m.ID {
			f.inserted[i] = m
			return nil
		}
	}
	return domain.ErrMatchNotFound
}

func (f *fakeMatches) Delete(_ context.Context, id int64) (bool, error) {
	for i := range f.inserted {
		if f.inserted[i].ID == id {
			f.inserted = append(f.inserted[:i], f.inserted[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type fakeSeats struct {
	seats []domain.Seat
}

func (f *fakeSeats) List(context.Context) ([]domain.Seat, error) { return f.seats, nil }

func (f *fakeSeats) Insert(_ context.Context, s domain.Seat) (domain.Seat, error) {
	for _, cur := range f.seats {
		if cur.Sector == s.Sector && cur.Gate == s.Gate && cur.Row == s.Row && cur.Number == s.Number {
			return domain.Seat{}, domain.ErrSeatExists
		}
	}
	s.ID = int64(len(f.seats) + 1)
	f.seats = append(f.seats, s)
	return s, nil
}

func (f *fakeSeats) SetOwner(_ context.Context, id int64, owner *int64) error {
	for i := range f.seats {
		if f.seats[i].ID == id {
			f.seats[i].OwnerID = owner
			return nil
		}
	}
	return domain.ErrSeatNotFound
}

func (f *fakeSeats) Delete(_ context.Context, id int64) (bool, error) {
	for i := range f.seats {
		if f.seats[i].ID == id {
			f.seats = append(f.seats[:i], f.seats[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type fakeParking struct{}

func (fakeParking) List(context.Context) ([]domain.ParkingSlot, error) { return nil, nil }
func (fakeParking) Insert(_ context.Context, p domain.ParkingSlot) (domain.ParkingSlot, error) {
	if p.ID == 7 {
		return domain.ParkingSlot{}, domain.ErrParkingExists
	}
	return p, nil
}
func (fakeParking) SetOwner(context.Context, int64, *int64) error { return domain.ErrParkingNotFound }
func (fakeParking) Delete(context.Context, int64) (bool, error)   { return false, nil }

type fakeCustomers struct{}

func (fakeCustomers) Delete(_ context.Context, id int64) (bool, error) { return id == 1, nil }
func (fakeCustomers) Agenda(context.Context, int64, time.Time) ([]store.AgendaEntry, error) {
	return []store.AgendaEntry{}, nil
}

type fakeTotals struct{}

func (fakeTotals) Totals(context.Context, time.Time) (store.Totals, error) {
	return store.Totals{Seats: 3}, nil
}

type fakeSync struct {
	res   reconcile.Result
	force []bool
}

func (f *fakeSync) Sync(_ context.Context, force bool) reconcile.Result {
	f.force = append(f.force, force)
	return f.res
}
