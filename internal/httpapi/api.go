// Package httpapi exposes the JSON API over net/http.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"example.com/abonos/internal/assign"
	"example.com/abonos/internal/auth"
	"example.com/abonos/internal/cache"
	"example.com/abonos/internal/clock"
	"example.com/abonos/internal/domain"
	"example.com/abonos/internal/reconcile"
	"example.com/abonos/internal/store"
)

type Reads interface {
	UpcomingMatches(ctx context.Context) ([]domain.MatchSummary, error)
	Match(ctx context.Context, id int64) (domain.Match, error)
	MatchDetail(ctx context.Context, matchID int64) (domain.MatchDetail, error)
	AssignmentContext(ctx context.Context, kind domain.ResourceKind, matchID, resourceID int64) (domain.AssignmentContext, error)
	CustomerOptions(ctx context.Context) ([]domain.Customer, error)
	Stats() []cache.Stats
}

type Assigner interface {
	AssignSingle(ctx context.Context, matchID int64, kind domain.ResourceKind, resourceID, customerID int64, actor string) error
	AssignBulk(ctx context.Context, matchID int64, seatIDs, slotIDs []int64, customerID int64, actor string) (assign.BulkResult, error)
	Release(ctx context.Context, matchID int64, kind domain.ResourceKind, resourceID int64) (bool, error)
	CreateCustomerIfNew(ctx context.Context, name string) (domain.Customer, error)
}

type MatchWriter interface {
	Insert(ctx context.Context, m domain.Match) (domain.Match, error)
	Update(ctx context.Context, m domain.Match) error
	Delete(ctx context.Context, id int64) (bool, error)
}

type SeatStore interface {
	List(ctx context.Context) ([]domain.Seat, error)
	Insert(ctx context.Context, s domain.Seat) (domain.Seat, error)
	SetOwner(ctx context.Context, id int64, owner *int64) error
	Delete(ctx context.Context, id int64) (bool, error)
}

type ParkingStore interface {
	List(ctx context.Context) ([]domain.ParkingSlot, error)
	Insert(ctx context.Context, p domain.ParkingSlot) (domain.ParkingSlot, error)
	SetOwner(ctx context.Context, id int64, owner *int64) error
	Delete(ctx context.Context, id int64) (bool, error)
}

type CustomerStore interface {
	Delete(ctx context.Context, id int64) (bool, error)
	Agenda(ctx context.Context, customerID int64, since time.Time) ([]store.AgendaEntry, error)
}

type UserStore interface {
	Get(ctx context.Context, username string) (domain.User, error)
	Create(ctx context.Context, u domain.User) error
	UpdatePassword(ctx context.Context, username, hash string) error
}

type TotalsSource interface {
	Totals(ctx context.Context, since time.Time) (store.Totals, error)
}

type Syncer interface {
	Sync(ctx context.Context, force bool) reconcile.Result
}

// Deps are the collaborators of the API. Every field is required.
type Deps struct {
	Log       *slog.Logger
	Auth      *auth.Service
	Users     UserStore
	Reads     Reads
	Engine    Assigner
	Matches   MatchWriter
	Seats     SeatStore
	Parking   ParkingStore
	Customers CustomerStore
	Totals    TotalsSource
	Sync      Syncer
	Hub       *Hub
	Limiter   *IPLimiter

	ClubName string
	Location *time.Location
	Clock    clock.Clock
}

type API struct {
	Deps
}

func New(d Deps) *API {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Clock == nil {
		d.Clock = clock.NewSystem()
	}
	if d.Limiter == nil {
		d.Limiter = NewIPLimiter(5, 120*time.Second)
	}
	return &API{Deps: d}
}

// Routes builds the request multiplexer wrapped in the request logger.
func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()

	authed := AuthMiddleware(a.Auth)
	user := func(h http.HandlerFunc) http.Handler { return authed(h) }
	admin := func(h http.HandlerFunc) http.Handler { return authed(RequireAdmin(h)) }

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("POST /api/auth/login", a.Limiter.Limit(http.HandlerFunc(a.login)))
	mux.Handle("GET /api/me", user(a.me))
	mux.Handle("POST /api/me/password", user(a.changePassword))
	mux.Handle("POST /api/users", admin(a.createUser))

	mux.Handle("GET /api/matches", user(a.listMatches))
	mux.Handle("POST /api/matches", admin(a.createMatch))
	mux.Handle("GET /api/matches/{id}", user(a.matchDetail))
	mux.Handle("PUT /api/matches/{id}", admin(a.updateMatch))
	mux.Handle("DELETE /api/matches/{id}", admin(a.deleteMatch))

	mux.Handle("POST /api/matches/{id}/assignments", user(a.assignSingle))
	mux.Handle("POST /api/matches/{id}/assignments/bulk", user(a.assignBulk))
	mux.Handle("GET /api/matches/{id}/assignments/{kind}/{resourceId}", user(a.assignmentContext))
	mux.Handle("DELETE /api/matches/{id}/assignments/{kind}/{resourceId}", user(a.release))

	mux.Handle("GET /api/seats", user(a.listSeats))
	mux.Handle("POST /api/seats", user(a.createSeat))
	mux.Handle("PUT /api/seats/{id}/owner", user(a.setSeatOwner))
	mux.Handle("DELETE /api/seats/{id}", user(a.deleteSeat))

	mux.Handle("GET /api/parking", user(a.listParking))
	mux.Handle("POST /api/parking", user(a.createParking))
	mux.Handle("PUT /api/parking/{id}/owner", user(a.setParkingOwner))
	mux.Handle("DELETE /api/parking/{id}", user(a.deleteParking))

	mux.Handle("GET /api/customers", user(a.listCustomers))
	mux.Handle("POST /api/customers", user(a.createCustomer))
	mux.Handle("DELETE /api/customers/{id}", user(a.deleteCustomer))
	mux.Handle("GET /api/customers/{id}/agenda", user(a.customerAgenda))

	mux.Handle("POST /api/sync", admin(a.sync))
	mux.Handle("GET /api/stats", admin(a.stats))

	if a.Hub != nil {
		mux.Handle("GET /api/ws", a.Hub)
	}

	return RequestLog(a.Log)(mux)
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeDomainError(w, r, a.Log, err)
}

// pathID parses a positive integer path value.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id < 1 {
		return 0, domain.Invalid(name, "must be a positive integer")
	}
	return id, nil
}
