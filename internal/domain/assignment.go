package domain

import (
	"fmt"
	"time"
)

// ResourceKind distinguishes the two assignable inventories.
type ResourceKind string

const (
	KindSeat    ResourceKind = "seat"
	KindParking ResourceKind = "parking"
)

func ParseResourceKind(s string) (ResourceKind, error) {
	switch ResourceKind(s) {
	case KindSeat, KindParking:
		return ResourceKind(s), nil
	}
	return "", Invalid("kind", fmt.Sprintf("unknown resource kind %q", s))
}

type Assignment struct {
	Kind       ResourceKind `json:"kind"`
	MatchID    int64        `json:"matchId"`
	ResourceID int64        `json:"resourceId"`
	CustomerID int64        `json:"customerId"`
	Assignor   string       `json:"assignor"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// AssignmentView is an assignment joined with display names.
type AssignmentView struct {
	Assignment
	CustomerName  string `json:"customerName"`
	ResourceLabel string `json:"resourceLabel"`
}

// AssignmentContext describes one resource for one match: who owns it and
// who, if anyone, holds it for that match.
type AssignmentContext struct {
	Kind       ResourceKind    `json:"kind"`
	Match      Match           `json:"match"`
	Seat       *Seat           `json:"seat,omitempty"`
	Parking    *ParkingSlot    `json:"parking,omitempty"`
	Assignment *AssignmentView `json:"assignment,omitempty"`
}
