package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/abonos/internal/domain"
	"example.com/abonos/internal/ledger"
	"example.com/abonos/internal/testutil"
)

func newTestStore(t *testing.T) (*Store, *ledger.Ledger) {
	t.Helper()
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t)
	testutil.TruncateAll(t, context.Background(), pool)

	l := ledger.New()
	return New(pool, l, nil), l
}

func ptr[T any](v T) *T { return &v }

func seedMatch(t *testing.T, s *Store, home bool) domain.Match {
	t.Helper()
	kick := time.Now().Add(72 * time.Hour).Truncate(time.Second)
	m, err := s.Matches.Insert(context.Background(), domain.Match{
		Opponent: "Sevilla", Kickoff: &kick, Home: home, HomeTeam: "Atleti", AwayTeam: "Sevilla",
	})
	require.NoError(t, err)
	return m
}

func TestAssignmentInsert_ConcurrentSamePair(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	m := seedMatch(t, s, true)
	seat, err := s.Seats.Insert(ctx, domain.Seat{Sector: 1, Gate: 2, Row: 3, Number: 4})
	require.NoError(t, err)
	c, err := s.Customers.Insert(ctx, "Ana")
	require.NoError(t, err)

	const n = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok, taken int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Assignments.Insert(ctx, domain.Assignment{
				Kind: domain.KindSeat, MatchID: m.ID, ResourceID: seat.ID, CustomerID: c.ID,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrConflict):
				taken++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, taken)
}

func TestAssignmentInsert_MissingCustomerIsNotFound(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	m := seedMatch(t, s, true)
	seat, err := s.Seats.Insert(ctx, domain.Seat{Sector: 1, Gate: 1, Row: 1, Number: 1})
	require.NoError(t, err)

	err = s.Assignments.Insert(ctx, domain.Assignment{Kind: domain.KindSeat, MatchID: m.ID, ResourceID: seat.ID, CustomerID: 999})
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)
}

func TestMatchUpsert_IdempotentAndBumpsOnlyOnChange(t *testing.T) {
	s, l := newTestStore(t)
	ctx := context.Background()

	kick := time.Date(2030, 3, 1, 21, 0, 0, 0, time.UTC)
	m := domain.Match{
		APIID: ptr(int64(1035001)), Round: ptr(27), Opponent: "Betis", Kickoff: &kick, Home: true,
		Competition: "La Liga", Venue: "Metropolitano", HomeTeam: "Atleti", AwayTeam: "Betis",
	}

	changed, err := s.Matches.UpsertByAPIID(ctx, m)
	require.NoError(t, err)
	require.True(t, changed)
	v1 := l.Version(ledger.TagMatches)

	changed, err = s.Matches.UpsertByAPIID(ctx, m)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.True(t, l.Version(ledger.TagMatches).Equal(v1))

	n, err := s.Matches.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	m.Venue = "Riyadh Air Metropolitano"
	changed, err = s.Matches.UpsertByAPIID(ctx, m)
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := s.Matches.GetByAPIID(ctx, 1035001)
	require.NoError(t, err)
	assert.Equal(t, "Riyadh Air Metropolitano", got.Venue)
	assert.False(t, l.Version(ledger.TagMatches).Equal(v1))
}

func TestCustomer_CaseInsensitiveUnique(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Customers.Insert(ctx, "Ana")
	require.NoError(t, err)
	_, err = s.Customers.Insert(ctx, "ANA")
	require.ErrorIs(t, err, domain.ErrCustomerExists)

	found, err := s.Customers.FindByName(ctx, "aNa")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Ana", found.Name)
}

func TestCustomerDelete_CascadesAndNullsOwnership(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	m := seedMatch(t, s, true)
	c, err := s.Customers.Insert(ctx, "Luis")
	require.NoError(t, err)
	seat, err := s.Seats.Insert(ctx, domain.Seat{Sector: 5, Gate: 5, Row: 5, Number: 5, OwnerID: &c.ID})
	require.NoError(t, err)
	slot, err := s.Parking.Insert(ctx, domain.ParkingSlot{ID: 42, Name: "P-42", OwnerID: &c.ID})
	require.NoError(t, err)
	require.NoError(t, s.Assignments.Insert(ctx, domain.Assignment{Kind: domain.KindSeat, MatchID: m.ID, ResourceID: seat.ID, CustomerID: c.ID}))
	require.NoError(t, s.Assignments.Insert(ctx, domain.Assignment{Kind: domain.KindParking, MatchID: m.ID, ResourceID: slot.ID, CustomerID: c.ID}))

	deleted, err := s.Customers.Delete(ctx, c.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	gotSeat, err := s.Seats.Get(ctx, seat.ID)
	require.NoError(t, err)
	assert.Nil(t, gotSeat.OwnerID)
	gotSlot, err := s.Parking.Get(ctx, slot.ID)
	require.NoError(t, err)
	assert.Nil(t, gotSlot.OwnerID)

	a, err := s.Assignments.Find(ctx, domain.KindSeat, m.ID, seat.ID)
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestDuplicateInventory(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Seats.Insert(ctx, domain.Seat{Sector: 1, Gate: 2, Row: 3, Number: 4})
	require.NoError(t, err)
	_, err = s.Seats.Insert(ctx, domain.Seat{Sector: 1, Gate: 2, Row: 3, Number: 4})
	require.ErrorIs(t, err, domain.ErrSeatExists)

	_, err = s.Parking.Insert(ctx, domain.ParkingSlot{ID: 7, Name: "P-7"})
	require.NoError(t, err)
	_, err = s.Parking.Insert(ctx, domain.ParkingSlot{ID: 7, Name: "otra"})
	require.ErrorIs(t, err, domain.ErrParkingExists)
}

func TestWithTx_BumpsAfterCommitOnly(t *testing.T) {
	s, l := newTestStore(t)
	ctx := context.Background()
	before := l.Version(ledger.TagCustomers)

	boom := errors.New("boom")
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.Customers.Insert(ctx, "Rollback"); err != nil {
			return err
		}
		assert.True(t, l.Version(ledger.TagCustomers).Equal(before), "bumped before commit")
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.True(t, l.Version(ledger.TagCustomers).Equal(before))

	found, err := s.Customers.FindByName(ctx, "Rollback")
	require.NoError(t, err)
	assert.Nil(t, found)

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		_, err := s.Customers.Insert(ctx, "Commit")
		return err
	})
	require.NoError(t, err)
	assert.False(t, l.Version(ledger.TagCustomers).Equal(before))
}

func TestReleaseAndDetail(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	m := seedMatch(t, s, true)
	c, err := s.Customers.Insert(ctx, "Eva")
	require.NoError(t, err)
	s1, err := s.Seats.Insert(ctx, domain.Seat{Sector: 1, Gate: 1, Row: 1, Number: 1})
	require.NoError(t, err)
	_, err = s.Seats.Insert(ctx, domain.Seat{Sector: 1, Gate: 1, Row: 1, Number: 2})
	require.NoError(t, err)
	require.NoError(t, s.Assignments.Insert(ctx, domain.Assignment{Kind: domain.KindSeat, MatchID: m.ID, ResourceID: s1.ID, CustomerID: c.ID, Assignor: ""}))

	d, err := s.Assignments.MatchDetail(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, d.SeatAssignments, 1)
	assert.Equal(t, "Eva", d.SeatAssignments[0].CustomerName)
	assert.Len(t, d.AvailableSeats, 1)

	list, err := s.Matches.Upcoming(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].AvailableSeats)

	deleted, err := s.Assignments.Delete(ctx, domain.KindSeat, m.ID, s1.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = s.Assignments.Delete(ctx, domain.KindSeat, m.ID, s1.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}
