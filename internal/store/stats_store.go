package store

import (
	"context"
	"fmt"
	"time"
)

// Totals summarises the inventory and the upcoming calendar.
type Totals struct {
	Seats           int `json:"seats"`
	Parking         int `json:"parking"`
	Customers       int `json:"customers"`
	UpcomingMatches int `json:"upcomingMatches"`
	SeatAssigned    int `json:"seatAssigned"`
	ParkingAssigned int `json:"parkingAssigned"`
}

type StatsStore struct {
	db *DB
}

func NewStatsStore(db *DB) *StatsStore {
	return &StatsStore{db: db}
}

func (s *StatsStore) Totals(ctx context.Context, since time.Time) (Totals, error) {
	var t Totals
	err := s.db.queryRow(ctx, `
SELECT
	(SELECT COUNT(*) FROM abonos),
	(SELECT COUNT(*) FROM parkings),
	(SELECT COUNT(*) FROM clientes),
	(SELECT COUNT(*) FROM partidos WHERE fecha IS NULL OR fecha >= $1),
	(SELECT COUNT(*) FROM asignaciones_abonos aa JOIN partidos p ON p.id = aa.id_partido WHERE p.fecha >= $1),
	(SELECT COUNT(*) FROM asignaciones_parkings ap JOIN partidos p ON p.id = ap.id_partido WHERE p.fecha >= $1)
`, since).Scan(&t.Seats, &t.Parking, &t.Customers, &t.UpcomingMatches, &t.SeatAssigned, &t.ParkingAssigned)
	if err != nil {
		return Totals{}, fmt.Errorf("totals: %w", err)
	}
	return t, nil
}
