// Package store is the Postgres persistence layer.
package store

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store groups the typed stores over one pool.
type Store struct {
	DB          *DB
	Matches     *MatchStore
	Seats       *SeatStore
	Parking     *ParkingStore
	Customers   *CustomerStore
	Assignments *AssignmentStore
	Users       *UserStore
	Stats       *StatsStore
}

func New(pool *pgxpool.Pool, bump Bumper, log *slog.Logger) *Store {
	db := NewDB(pool, bump, log)
	return &Store{
		DB:          db,
		Matches:     NewMatchStore(db),
		Seats:       NewSeatStore(db),
		Parking:     NewParkingStore(db),
		Customers:   NewCustomerStore(db),
		Assignments: NewAssignmentStore(db),
		Users:       NewUserStore(db),
		Stats:       NewStatsStore(db),
	}
}
