package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"example.com/abonos/internal/domain"
)

type SeatStore struct {
	db *DB
}

func NewSeatStore(db *DB) *SeatStore {
	return &SeatStore{db: db}
}

const seatColumns = `a.id, a.sector, a.puerta, a.fila, a.asiento, a.id_propietario, COALESCE(c.nombre, '')`

func scanSeat(row pgx.Row) (domain.Seat, error) {
	var s domain.Seat
	err := row.Scan(&s.ID, &s.Sector, &s.Gate, &s.Row, &s.Number, &s.OwnerID, &s.OwnerName)
	return s, err
}

func collectSeats(rows pgx.Rows, err error) ([]domain.Seat, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.Seat{}
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (s *SeatStore) List(ctx context.Context) ([]domain.Seat, error) {
	seats, err := collectSeats(s.db.query(ctx, `
SELECT `+seatColumns+`
FROM abonos a LEFT JOIN clientes c ON c.id = a.id_propietario
ORDER BY a.sector, a.puerta, a.fila, a.asiento`))
	if err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}
	return seats, nil
}

func (s *SeatStore) Get(ctx context.Context, id int64) (domain.Seat, error) {
	seat, err := scanSeat(s.db.queryRow(ctx, `
SELECT `+seatColumns+`
FROM abonos a LEFT JOIN clientes c ON c.id = a.id_propietario
WHERE a.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Seat{}, domain.ErrSeatNotFound
	}
	if err != nil {
		return domain.Seat{}, fmt.Errorf("get seat: %w", err)
	}
	return seat, nil
}

// Available lists the seats with no assignment for matchID.
func (s *SeatStore) Available(ctx context.Context, matchID int64) ([]domain.Seat, error) {
	seats, err := collectSeats(s.db.query(ctx, `
SELECT `+seatColumns+`
FROM abonos a LEFT JOIN clientes c ON c.id = a.id_propietario
WHERE NOT EXISTS (
	SELECT 1 FROM asignaciones_abonos aa WHERE aa.id_partido = $1 AND aa.abono_id = a.id
)
ORDER BY a.sector, a.puerta, a.fila, a.asiento`, matchID))
	if err != nil {
		return nil, fmt.Errorf("list available seats: %w", err)
	}
	return seats, nil
}

func (s *SeatStore) Insert(ctx context.Context, seat domain.Seat) (domain.Seat, error) {
	_, err := s.db.write(ctx, WriteSeatInsert, func(ctx context.Context) (int64, error) {
		err := s.db.queryRow(ctx, `
INSERT INTO abonos (sector, puerta, fila, asiento, id_propietario)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`, seat.Sector, seat.Gate, seat.Row, seat.Number, seat.OwnerID).Scan(&seat.ID)
		if err != nil {
			return 0, err
		}
		return 1, nil
	})
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.Seat{}, domain.ErrSeatExists
		case isForeignKeyViolation(err):
			return domain.Seat{}, domain.ErrCustomerNotFound
		}
		return domain.Seat{}, fmt.Errorf("insert seat: %w", err)
	}
	return seat, nil
}

// SetOwner changes the owning customer; a nil owner clears it.
func (s *SeatStore) SetOwner(ctx context.Context, id int64, owner *int64) error {
	n, err := s.db.write(ctx, WriteSeatOwner, func(ctx context.Context) (int64, error) {
		tag, err := s.db.exec(ctx, `UPDATE abonos SET id_propietario = $2 WHERE id = $1`, id, owner)
		return tag.RowsAffected(), err
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrCustomerNotFound
		}
		return fmt.Errorf("set seat owner: %w", err)
	}
	if n == 0 {
		return domain.ErrSeatNotFound
	}
	return nil
}

func (s *SeatStore) Delete(ctx context.Context, id int64) (bool, error) {
	n, err := s.db.write(ctx, WriteSeatDelete, func(ctx context.Context) (int64, error) {
		tag, err := s.db.exec(ctx, `DELETE FROM abonos WHERE id = $1`, id)
		return tag.RowsAffected(), err
	})
	if err != nil {
		return false, fmt.Errorf("delete seat: %w", err)
	}
	return n > 0, nil
}
