// Package catalog serves the read side of the service through ledger-checked
// caches. Every query shape has its own cache bound to the tags of the
// tables it reads.
package catalog

import (
	"context"
	"sync/atomic"
	"time"

	"example.com/abonos/internal/cache"
	"example.com/abonos/internal/clock"
	"example.com/abonos/internal/domain"
	"example.com/abonos/internal/ledger"
)

type MatchReader interface {
	Get(ctx context.Context, id int64) (domain.Match, error)
	Upcoming(ctx context.Context, since time.Time) ([]domain.MatchSummary, error)
}

type AssignmentReader interface {
	MatchDetail(ctx context.Context, matchID int64) (domain.MatchDetail, error)
	Context(ctx context.Context, kind domain.ResourceKind, matchID, resourceID int64) (domain.AssignmentContext, error)
}

type CustomerReader interface {
	List(ctx context.Context) ([]domain.Customer, error)
}

// TTLs bounds the age of each query shape.
type TTLs struct {
	MatchList         time.Duration
	MatchDetail       time.Duration
	AssignmentContext time.Duration
	CustomerOptions   time.Duration
	Match             time.Duration
}

func DefaultTTLs() TTLs {
	return TTLs{
		MatchList:         30 * time.Second,
		MatchDetail:       15 * time.Second,
		AssignmentContext: 15 * time.Second,
		CustomerOptions:   60 * time.Second,
		Match:             60 * time.Second,
	}
}

func (t TTLs) withDefaults() TTLs {
	d := DefaultTTLs()
	if t.MatchList <= 0 {
		t.MatchList = d.MatchList
	}
	if t.MatchDetail <= 0 {
		t.MatchDetail = d.MatchDetail
	}
	if t.AssignmentContext <= 0 {
		t.AssignmentContext = d.AssignmentContext
	}
	if t.CustomerOptions <= 0 {
		t.CustomerOptions = d.CustomerOptions
	}
	if t.Match <= 0 {
		t.Match = d.Match
	}
	return t
}

type contextKey struct {
	kind     domain.ResourceKind
	match    int64
	resource int64
}

type Catalog struct {
	matches     MatchReader
	assignments AssignmentReader
	customers   CustomerReader
	clock       clock.Clock

	upcoming *cache.Cache[string, []domain.MatchSummary]
	detail   *cache.Cache[int64, domain.MatchDetail]
	context  *cache.Cache[contextKey, domain.AssignmentContext]
	options  *cache.Cache[string, []domain.Customer]
	match    *cache.Cache[int64, domain.Match]

	running atomic.Bool
}

type Option func(*Catalog)

func WithClock(c clock.Clock) Option {
	return func(cat *Catalog) {
		if c != nil {
			cat.clock = c
		}
	}
}

var (
	assignmentTags = []ledger.Tag{ledger.TagAssignments, ledger.TagSeatAssign, ledger.TagSlotAssign}
	inventoryTags  = []ledger.Tag{ledger.TagSeats, ledger.TagParking, ledger.TagCustomers}
)

func New(ver cache.Versioner, matches MatchReader, assignments AssignmentReader, customers CustomerReader, ttls TTLs, opts ...Option) *Catalog {
	ttls = ttls.withDefaults()

	listTags := append([]ledger.Tag{ledger.TagMatches, ledger.TagSeats, ledger.TagParking}, assignmentTags...)
	detailTags := append(append([]ledger.Tag{ledger.TagMatches}, inventoryTags...), assignmentTags...)

	c := &Catalog{
		matches:     matches,
		assignments: assignments,
		customers:   customers,
		clock:       clock.NewSystem(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.upcoming = cache.New[string, []domain.MatchSummary]("match_list", ver, c.clock, ttls.MatchList, listTags...)
	c.detail = cache.New[int64, domain.MatchDetail]("match_detail", ver, c.clock, ttls.MatchDetail, detailTags...)
	c.context = cache.New[contextKey, domain.AssignmentContext]("assignment_context", ver, c.clock, ttls.AssignmentContext, detailTags...)
	c.options = cache.New[string, []domain.Customer]("customer_options", ver, c.clock, ttls.CustomerOptions, ledger.TagCustomers)
	c.match = cache.New[int64, domain.Match]("match", ver, c.clock, ttls.Match, ledger.TagMatches)
	return c
}

// UpcomingMatches lists matches kicking off from now on, plus unscheduled
// ones, with availability counts for home matches.
func (c *Catalog) UpcomingMatches(ctx context.Context) ([]domain.MatchSummary, error) {
	return c.upcoming.Get(ctx, "upcoming", func(ctx context.Context) ([]domain.MatchSummary, error) {
		return c.matches.Upcoming(ctx, c.clock.Now())
	})
}

func (c *Catalog) Match(ctx context.Context, id int64) (domain.Match, error) {
	return c.match.Get(ctx, id, func(ctx context.Context) (domain.Match, error) {
		return c.matches.Get(ctx, id)
	})
}

func (c *Catalog) MatchDetail(ctx context.Context, matchID int64) (domain.MatchDetail, error) {
	return c.detail.Get(ctx, matchID, func(ctx context.Context) (domain.MatchDetail, error) {
		return c.assignments.MatchDetail(ctx, matchID)
	})
}

func (c *Catalog) AssignmentContext(ctx context.Context, kind domain.ResourceKind, matchID, resourceID int64) (domain.AssignmentContext, error) {
	key := contextKey{kind: kind, match: matchID, resource: resourceID}
	return c.context.Get(ctx, key, func(ctx context.Context) (domain.AssignmentContext, error) {
		return c.assignments.Context(ctx, kind, matchID, resourceID)
	})
}

func (c *Catalog) CustomerOptions(ctx context.Context) ([]domain.Customer, error) {
	return c.options.Get(ctx, "options", func(ctx context.Context) ([]domain.Customer, error) {
		return c.customers.List(ctx)
	})
}

func (c *Catalog) Stats() []cache.Stats {
	return []cache.Stats{
		c.upcoming.Stats(),
		c.match.Stats(),
		c.detail.Stats(),
		c.context.Stats(),
		c.options.Stats(),
	}
}

// Start launches the expiry sweepers of every cache.
func (c *Catalog) Start() {
	if !c.running.CompareAndSwap(false, true) {
		return
	}
	go c.upcoming.Start()
	go c.match.Start()
	go c.detail.Start()
	go c.context.Start()
	go c.options.Start()
}

// Stop halts the sweepers started by Start.
func (c *Catalog) Stop() {
	if !c.running.CompareAndSwap(true, false) {
		return
	}
	c.upcoming.Stop()
	c.match.Stop()
	c.detail.Stop()
	c.context.Stop()
	c.options.Stop()
}
