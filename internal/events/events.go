// Package events defines the domain events published to the message broker.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"example.com/abonos/internal/domain"
)

type Type string

const (
	AssignmentCreated  Type = "assignment.created"
	AssignmentReleased Type = "assignment.released"
	MatchesSynced      Type = "matches.synced"
)

type Event struct {
	ID         string              `json:"id"`
	Type       Type                `json:"type"`
	OccurredAt time.Time           `json:"occurred_at"`
	Kind       domain.ResourceKind `json:"kind,omitempty"`
	MatchID    int64               `json:"match_id,omitempty"`
	ResourceID int64               `json:"resource_id,omitempty"`
	CustomerID int64               `json:"customer_id,omitempty"`
	Actor      string              `json:"actor,omitempty"`
	Changed    int                 `json:"changed,omitempty"`
}

func New(t Type, at time.Time) Event {
	return Event{ID: uuid.NewString(), Type: t, OccurredAt: at.UTC()}
}

func Created(a domain.Assignment) Event {
	e := New(AssignmentCreated, a.CreatedAt)
	e.Kind, e.MatchID, e.ResourceID, e.CustomerID, e.Actor = a.Kind, a.MatchID, a.ResourceID, a.CustomerID, a.Assignor
	return e
}

func Released(kind domain.ResourceKind, matchID, resourceID int64, at time.Time) Event {
	e := New(AssignmentReleased, at)
	e.Kind, e.MatchID, e.ResourceID = kind, matchID, resourceID
	return e
}

// Publisher delivers events. Publishing is best effort: callers log failures
// and carry on.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
