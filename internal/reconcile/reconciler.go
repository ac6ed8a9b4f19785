// Package reconcile keeps the local match calendar in line with the
// upstream fixtures source.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"example.com/abonos/internal/clock"
	"example.com/abonos/internal/domain"
	"example.com/abonos/internal/events"
	"example.com/abonos/internal/fixtures"
)

type Source interface {
	Upcoming(ctx context.Context, teamID int64, next int) ([]fixtures.Fixture, error)
}

type MatchUpserter interface {
	UpsertByAPIID(ctx context.Context, m domain.Match) (bool, error)
}

// Transactor runs fn in one transaction; ctx passed to fn carries it.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type noTx struct{}

func (noTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type Config struct {
	TeamID   int64
	TeamName string
	Next     int
	Interval time.Duration
	Location *time.Location
}

type Status string

const (
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
	StatusSynced  Status = "synced"
)

// Result describes one Sync call. Errors never escape Sync; a failed
// attempt carries its reason in Error.
type Result struct {
	Status  Status `json:"status"`
	Fetched int    `json:"fetched"`
	Changed int    `json:"changed"`
	Ignored int    `json:"ignored"`
	Error   string `json:"error,omitempty"`
}

// Updated reports whether any match row changed.
func (r Result) Updated() bool { return r.Changed > 0 }

type Reconciler struct {
	cfg    Config
	source Source
	store  MatchUpserter
	tx     Transactor
	gate   Gate
	clock  clock.Clock
	events events.Publisher
	log    *slog.Logger
}

type Option func(*Reconciler)

func WithGate(g Gate) Option {
	return func(r *Reconciler) {
		if g != nil {
			r.gate = g
		}
	}
}

// WithTransactor makes each sync all-or-nothing.
func WithTransactor(t Transactor) Option {
	return func(r *Reconciler) {
		if t != nil {
			r.tx = t
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(r *Reconciler) {
		if c != nil {
			r.clock = c
		}
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(r *Reconciler) {
		if p != nil {
			r.events = p
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.log = l
		}
	}
}

func New(cfg Config, source Source, store MatchUpserter, opts ...Option) *Reconciler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	r := &Reconciler{
		cfg:    cfg,
		source: source,
		store:  store,
		tx:     noTx{},
		clock:  clock.NewSystem(),
		events: events.Nop{},
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.gate == nil {
		r.gate = NewMemoryGate(r.clock)
	}
	return r
}

// Sync fetches the next fixtures and upserts them by external id. Unless
// force is set, calls within the configured interval of the previous
// attempt are skipped. Failed fetches still count as attempts. With a
// Transactor, a failing upsert rolls back the whole batch.
func (r *Reconciler) Sync(ctx context.Context, force bool) Result {
	ok, err := r.gate.Claim(ctx, r.cfg.Interval, force)
	if err != nil {
		r.log.Warn("sync gate unavailable", "err", err)
		return Result{Status: StatusFailed, Error: err.Error()}
	}
	if !ok {
		r.log.Debug("sync skipped, interval not elapsed", "interval", r.cfg.Interval)
		return Result{Status: StatusSkipped}
	}

	list, err := r.source.Upcoming(ctx, r.cfg.TeamID, r.cfg.Next)
	if err != nil {
		r.log.Warn("fixtures fetch failed", "team", r.cfg.TeamID, "err", err)
		return Result{Status: StatusFailed, Error: err.Error()}
	}

	res := Result{Status: StatusSynced, Fetched: len(list)}
	err = r.tx.WithTx(ctx, func(ctx context.Context) error {
		res.Changed, res.Ignored = 0, 0
		for _, f := range list {
			m, ok := r.toMatch(f)
			if !ok {
				res.Ignored++
				continue
			}
			changed, err := r.store.UpsertByAPIID(ctx, m)
			if err != nil {
				return fmt.Errorf("upsert fixture %d: %w", f.ID, err)
			}
			if changed {
				res.Changed++
			}
		}
		return nil
	})
	if err != nil {
		r.log.Error("fixtures sync aborted", "err", err)
		return Result{Status: StatusFailed, Fetched: len(list), Error: err.Error()}
	}

	r.log.Info("fixtures synced",
		"team", r.cfg.TeamID, "fetched", res.Fetched, "changed", res.Changed, "ignored", res.Ignored)
	if res.Changed > 0 {
		ev := events.New(events.MatchesSynced, r.clock.Now())
		ev.Changed = res.Changed
		if err := r.events.Publish(ctx, ev); err != nil {
			r.log.Warn("event publish failed", "type", ev.Type, "err", err)
		}
	}
	return res
}

// toMatch maps a fixture onto a match of the tracked team. Fixtures
// without an id, or in which the team cannot be found, are rejected.
func (r *Reconciler) toMatch(f fixtures.Fixture) (domain.Match, bool) {
	if f.ID == 0 {
		return domain.Match{}, false
	}

	var home bool
	switch r.cfg.TeamID {
	case f.Home.ID:
		home = true
	case f.Away.ID:
		home = false
	default:
		team := domain.NormalizeTeamName(r.cfg.TeamName)
		h, a := domain.NormalizeTeamName(f.Home.Name), domain.NormalizeTeamName(f.Away.Name)
		if team == "" || (h != team && a != team) {
			r.log.Debug("fixture ignored, team not found", "api_id", f.ID, "home", f.Home.Name, "away", f.Away.Name)
			return domain.Match{}, false
		}
		home = h == team
	}

	opponent := f.Home.Name
	if home {
		opponent = f.Away.Name
	}
	homeTeam, awayTeam := domain.BuildTeamNames(home, r.cfg.TeamName, opponent)
	if opponent == "" {
		opponent = domain.PendingOpponent
	}

	raw := f.Date
	if raw == "" && f.Timestamp > 0 {
		raw = time.Unix(f.Timestamp, 0).UTC().Format(time.RFC3339)
	}
	kickoff, err := domain.NormalizeKickoff(raw, r.cfg.Location)
	if err != nil {
		r.log.Debug("fixture kickoff unparsable", "api_id", f.ID, "date", raw)
		kickoff = nil
	}

	id := f.ID
	return domain.Match{
		APIID:       &id,
		Round:       domain.ParseRound(f.Round),
		Opponent:    opponent,
		Kickoff:     kickoff,
		Home:        home,
		Competition: f.Competition,
		Venue:       f.Venue,
		HomeTeam:    homeTeam,
		AwayTeam:    awayTeam,
		HomeLogo:    f.Home.Logo,
		AwayLogo:    f.Away.Logo,
	}, true
}
