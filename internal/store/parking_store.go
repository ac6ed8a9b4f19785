package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"example.com/abonos/internal/domain"
)

type ParkingStore struct {
	db *DB
}

func NewParkingStore(db *DB) *ParkingStore {
	return &ParkingStore{db: db}
}

const parkingColumns = `p.id, p.nombre, p.id_propietario, COALESCE(c.nombre, '')`

func scanParking(row pgx.Row) (domain.ParkingSlot, error) {
	var p domain.ParkingSlot
	err := row.Scan(&p.ID, &p.Name, &p.OwnerID, &p.OwnerName)
	return p, err
}

func collectParking(rows pgx.Rows, err error) ([]domain.ParkingSlot, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.ParkingSlot{}
	for rows.Next() {
		p, err := scanParking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *ParkingStore) List(ctx context.Context) ([]domain.ParkingSlot, error) {
	slots, err := collectParking(s.db.query(ctx, `
SELECT `+parkingColumns+`
FROM parkings p LEFT JOIN clientes c ON c.id = p.id_propietario
ORDER BY p.id`))
	if err != nil {
		return nil, fmt.Errorf("list parking: %w", err)
	}
	return slots, nil
}

func (s *ParkingStore) Get(ctx context.Context, id int64) (domain.ParkingSlot, error) {
	p, err := scanParking(s.db.queryRow(ctx, `
SELECT `+parkingColumns+`
FROM parkings p LEFT JOIN clientes c ON c.id = p.id_propietario
WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ParkingSlot{}, domain.ErrParkingNotFound
	}
	if err != nil {
		return domain.ParkingSlot{}, fmt.Errorf("get parking: %w", err)
	}
	return p, nil
}

func (s *ParkingStore) Available(ctx context.Context, matchID int64) ([]domain.ParkingSlot, error) {
	slots, err := collectParking(s.db.query(ctx, `
SELECT `+parkingColumns+`
FROM parkings p LEFT JOIN clientes c ON c.id = p.id_propietario
WHERE NOT EXISTS (
	SELECT 1 FROM asignaciones_parkings ap WHERE ap.id_partido = $1 AND ap.parking_id = p.id
)
ORDER BY p.id`, matchID))
	if err != nil {
		return nil, fmt.Errorf("list available parking: %w", err)
	}
	return slots, nil
}

// Insert stores a slot under its externally assigned id.
func (s *ParkingStore) Insert(ctx context.Context, p domain.ParkingSlot) (domain.ParkingSlot, error) {
	_, err := s.db.write(ctx, WriteParkingInsert, func(ctx context.Context) (int64, error) {
		tag, err := s.db.exec(ctx, `INSERT INTO parkings (id, nombre, id_propietario) VALUES ($1, $2, $3)`,
			p.ID, p.Name, p.OwnerID)
		return tag.RowsAffected(), err
	})
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.ParkingSlot{}, domain.ErrParkingExists
		case isForeignKeyViolation(err):
			return domain.ParkingSlot{}, domain.ErrCustomerNotFound
		}
		return domain.ParkingSlot{}, fmt.Errorf("insert parking: %w", err)
	}
	return p, nil
}

func (s *ParkingStore) SetOwner(ctx context.Context, id int64, owner *int64) error {
	n, err := s.db.write(ctx, WriteParkingOwner, func(ctx context.Context) (int64, error) {
		tag, err := s.db.exec(ctx, `UPDATE parkings SET id_propietario = $2 WHERE id = $1`, id, owner)
		return tag.RowsAffected(), err
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrCustomerNotFound
		}
		return fmt.Errorf("set parking owner: %w", err)
	}
	if n == 0 {
		return domain.ErrParkingNotFound
	}
	return nil
}

func (s *ParkingStore) Delete(ctx context.Context, id int64) (bool, error) {
	n, err := s.db.write(ctx, WriteParkingDelete, func(ctx context.Context) (int64, error) {
		tag, err := s.db.exec(ctx, `DELETE FROM parkings WHERE id = $1`, id)
		return tag.RowsAffected(), err
	})
	if err != nil {
		return false, fmt.Errorf("delete parking: %w", err)
	}
	return n > 0, nil
}
