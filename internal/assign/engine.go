// Package assign binds seats and parking slots to customers for home
// matches.
//
// The store's (match, resource) key is the only guarantee against double
// booking. The lookups made here before inserting exist to return a precise
// reason early; a uniqueness violation on insert is always reported as
// domain.ErrAlreadyAssigned.
package assign

import (
	"context"
	"errors"
	"log/slog"

	"example.com/abonos/internal/clock"
	"example.com/abonos/internal/domain"
	"example.com/abonos/internal/events"
)

type Repository interface {
	Match(ctx context.Context, id int64) (domain.Match, error)
	Customer(ctx context.Context, id int64) (domain.Customer, error)
	ResourceExists(ctx context.Context, kind domain.ResourceKind, id int64) error
	Find(ctx context.Context, kind domain.ResourceKind, matchID, resourceID int64) (*domain.Assignment, error)
	Insert(ctx context.Context, a domain.Assignment) error
	Delete(ctx context.Context, kind domain.ResourceKind, matchID, resourceID int64) (bool, error)
}

type CustomerRepository interface {
	FindByName(ctx context.Context, name string) (*domain.Customer, error)
	Insert(ctx context.Context, name string) (domain.Customer, error)
}

type Engine struct {
	repo      Repository
	customers CustomerRepository
	clock     clock.Clock
	events    events.Publisher
	log       *slog.Logger
}

type Option func(*Engine)

func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithPublisher sends assignment events to p after each committed change.
func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) {
		if p != nil {
			e.events = p
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func NewEngine(repo Repository, customers CustomerRepository, opts ...Option) *Engine {
	e := &Engine{
		repo:      repo,
		customers: customers,
		clock:     clock.NewSystem(),
		events:    events.Nop{},
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// homeMatch loads the match and rejects away fixtures.
func (e *Engine) homeMatch(ctx context.Context, matchID int64) (domain.Match, error) {
	if err := domain.ValidateID("matchId", matchID); err != nil {
		return domain.Match{}, err
	}
	m, err := e.repo.Match(ctx, matchID)
	if err != nil {
		return domain.Match{}, err
	}
	if !m.Home {
		return domain.Match{}, domain.ErrAwayMatch
	}
	return m, nil
}

// AssignSingle binds one resource to customerID for matchID on behalf of actor.
func (e *Engine) AssignSingle(ctx context.Context, matchID int64, kind domain.ResourceKind, resourceID, customerID int64, actor string) error {
	if _, err := domain.ParseResourceKind(string(kind)); err != nil {
		return err
	}
	if err := domain.ValidateID("resourceId", resourceID); err != nil {
		return err
	}
	if err := domain.ValidateID("customerId", customerID); err != nil {
		return err
	}
	if _, err := e.homeMatch(ctx, matchID); err != nil {
		return err
	}
	if err := e.repo.ResourceExists(ctx, kind, resourceID); err != nil {
		return err
	}
	if _, err := e.repo.Customer(ctx, customerID); err != nil {
		return err
	}

	existing, err := e.repo.Find(ctx, kind, matchID, resourceID)
	if err != nil {
		return err
	}
	if existing != nil {
		return domain.ErrAlreadyAssigned
	}

	a := domain.Assignment{
		Kind:       kind,
		MatchID:    matchID,
		ResourceID: resourceID,
		CustomerID: customerID,
		Assignor:   actor,
		CreatedAt:  e.clock.Now(),
	}
	if err := e.repo.Insert(ctx, a); err != nil {
		return err
	}

	e.log.Info("resource assigned",
		"kind", kind, "match_id", matchID, "resource_id", resourceID, "customer_id", customerID, "actor", actor)
	e.publish(ctx, events.Created(a))
	return nil
}

// BulkResult counts the outcome of a bulk assignment. Missing counts
// resources that no longer exist.
type BulkResult struct {
	Assigned        int `json:"assigned"`
	AlreadyAssigned int `json:"alreadyAssigned"`
	Missing         int `json:"missing"`
}

// AssignBulk assigns every listed resource independently. A resource that
// is already taken is counted and skipped; the others are still inserted.
// Unexpected store errors stop the loop and are returned with the counts
// reached so far.
func (e *Engine) AssignBulk(ctx context.Context, matchID int64, seatIDs, slotIDs []int64, customerID int64, actor string) (BulkResult, error) {
	var res BulkResult
	if len(seatIDs) == 0 && len(slotIDs) == 0 {
		return res, domain.Invalid("resources", "select at least one seat or parking slot")
	}
	if err := domain.ValidateID("customerId", customerID); err != nil {
		return res, err
	}
	if _, err := e.homeMatch(ctx, matchID); err != nil {
		return res, err
	}
	if _, err := e.repo.Customer(ctx, customerID); err != nil {
		return res, err
	}

	batches := []struct {
		kind domain.ResourceKind
		ids  []int64
	}{
		{domain.KindSeat, dedupe(seatIDs)},
		{domain.KindParking, dedupe(slotIDs)},
	}
	for _, b := range batches {
		for _, id := range b.ids {
			a := domain.Assignment{
				Kind:       b.kind,
				MatchID:    matchID,
				ResourceID: id,
				CustomerID: customerID,
				Assignor:   actor,
				CreatedAt:  e.clock.Now(),
			}
			err := e.insertOne(ctx, a)
			switch {
			case err == nil:
				res.Assigned++
			case errors.Is(err, domain.ErrConflict):
				res.AlreadyAssigned++
			case missingResource(err):
				res.Missing++
			default:
				return res, err
			}
		}
	}

	e.log.Info("bulk assignment",
		"match_id", matchID, "customer_id", customerID, "actor", actor,
		"assigned", res.Assigned, "already_assigned", res.AlreadyAssigned, "missing", res.Missing)
	return res, nil
}

// missingResource reports errors that concern only the resource being
// assigned. A vanished match, customer or assignor fails the whole request.
func missingResource(err error) bool {
	return errors.Is(err, domain.ErrSeatNotFound) ||
		errors.Is(err, domain.ErrParkingNotFound) ||
		errors.Is(err, domain.ErrValidation)
}

func (e *Engine) insertOne(ctx context.Context, a domain.Assignment) error {
	if a.ResourceID < 1 {
		return domain.Invalid("resourceId", "must be a positive integer")
	}
	if err := e.repo.ResourceExists(ctx, a.Kind, a.ResourceID); err != nil {
		return err
	}
	if err := e.repo.Insert(ctx, a); err != nil {
		return err
	}
	e.publish(ctx, events.Created(a))
	return nil
}

// Release removes the assignment of a resource for a match. It reports
// whether anything was removed; releasing a free resource is not an error.
func (e *Engine) Release(ctx context.Context, matchID int64, kind domain.ResourceKind, resourceID int64) (bool, error) {
	if _, err := domain.ParseResourceKind(string(kind)); err != nil {
		return false, err
	}
	deleted, err := e.repo.Delete(ctx, kind, matchID, resourceID)
	if err != nil {
		return false, err
	}
	if deleted {
		e.log.Info("resource released", "kind", kind, "match_id", matchID, "resource_id", resourceID)
		e.publish(ctx, events.Released(kind, matchID, resourceID, e.clock.Now()))
	}
	return deleted, nil
}

// CreateCustomerIfNew stores a customer unless one with the same name,
// ignoring case and surrounding spaces, exists.
func (e *Engine) CreateCustomerIfNew(ctx context.Context, name string) (domain.Customer, error) {
	name, err := domain.CleanName("name", name)
	if err != nil {
		return domain.Customer{}, err
	}
	existing, err := e.customers.FindByName(ctx, name)
	if err != nil {
		return domain.Customer{}, err
	}
	if existing != nil {
		return domain.Customer{}, domain.ErrCustomerExists
	}
	c, err := e.customers.Insert(ctx, name)
	if err != nil {
		return domain.Customer{}, err
	}
	e.log.Info("customer created", "customer_id", c.ID)
	return c, nil
}

func (e *Engine) publish(ctx context.Context, ev events.Event) {
	if err := e.events.Publish(ctx, ev); err != nil {
		e.log.Warn("event publish failed", "type", ev.Type, "err", err)
	}
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
