package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"example.com/abonos/internal/domain"
)

type CustomerStore struct {
	db *DB
}

func NewCustomerStore(db *DB) *CustomerStore {
	return &CustomerStore{db: db}
}

func (s *CustomerStore) List(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.query(ctx, `SELECT id, nombre FROM clientes ORDER BY lower(nombre), id`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	out := []domain.Customer{}
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *CustomerStore) Get(ctx context.Context, id int64) (domain.Customer, error) {
	var c domain.Customer
	err := s.db.queryRow(ctx, `SELECT id, nombre FROM clientes WHERE id = $1`, id).Scan(&c.ID, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

// FindByName looks a customer up case-insensitively. A missing customer is
// reported as (nil, nil).
func (s *CustomerStore) FindByName(ctx context.Context, name string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.queryRow(ctx, `SELECT id, nombre FROM clientes WHERE lower(nombre) = lower($1)`, name).
		Scan(&c.ID, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find customer by name: %w", err)
	}
	return &c, nil
}

// Insert relies on the lower(nombre) unique index: a concurrent insert of
// the same name surfaces as ErrCustomerExists.
func (s *CustomerStore) Insert(ctx context.Context, name string) (domain.Customer, error) {
	c := domain.Customer{Name: name}
	_, err := s.db.write(ctx, WriteCustomerInsert, func(ctx context.Context) (int64, error) {
		if err := s.db.queryRow(ctx, `INSERT INTO clientes (nombre) VALUES ($1) RETURNING id`, name).Scan(&c.ID); err != nil {
			return 0, err
		}
		return 1, nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Customer{}, domain.ErrCustomerExists
		}
		return domain.Customer{}, fmt.Errorf("insert customer: %w", err)
	}
	return c, nil
}

// Delete removes the customer. Ownership references are nulled and their
// assignments removed by the foreign keys.
func (s *CustomerStore) Delete(ctx context.Context, id int64) (bool, error) {
	n, err := s.db.write(ctx, WriteCustomerDelete, func(ctx context.Context) (int64, error) {
		tag, err := s.db.exec(ctx, `DELETE FROM clientes WHERE id = $1`, id)
		return tag.RowsAffected(), err
	})
	if err != nil {
		return false, fmt.Errorf("delete customer: %w", err)
	}
	return n > 0, nil
}

// AgendaEntry is one upcoming match a customer holds resources for.
type AgendaEntry struct {
	Match   domain.Match         `json:"match"`
	Seats   []domain.Seat        `json:"seats"`
	Parking []domain.ParkingSlot `json:"parking"`
}

// Agenda groups the customer's assignments on matches kicking off at or
// after since, ordered by kickoff.
func (s *CustomerStore) Agenda(ctx context.Context, customerID int64, since time.Time) ([]AgendaEntry, error) {
	const query = `
SELECT ` + matchColumns + `, 'seat', a.id, a.sector, a.puerta, a.fila, a.asiento, ''
FROM asignaciones_abonos aa
JOIN abonos a ON a.id = aa.abono_id
JOIN partidos p ON p.id = aa.id_partido
WHERE aa.id_cliente = $1 AND p.fecha >= $2
UNION ALL
SELECT ` + matchColumns + `, 'parking', pk.id, 0, 0, 0, 0, pk.nombre
FROM asignaciones_parkings ap
JOIN parkings pk ON pk.id = ap.parking_id
JOIN partidos p ON p.id = ap.id_partido
WHERE ap.id_cliente = $1 AND p.fecha >= $2
ORDER BY 5, 1`

	rows, err := s.db.query(ctx, query, customerID, since)
	if err != nil {
		return nil, fmt.Errorf("customer agenda: %w", err)
	}
	defer rows.Close()

	out := []AgendaEntry{}
	index := map[int64]int{}
	for rows.Next() {
		var (
			kind string
			id   int64
			seat domain.Seat
			name string
		)
		m, err := scanMatch(rows, &kind, &id, &seat.Sector, &seat.Gate, &seat.Row, &seat.Number, &name)
		if err != nil {
			return nil, fmt.Errorf("scan agenda: %w", err)
		}
		i, ok := index[m.ID]
		if !ok {
			i = len(out)
			index[m.ID] = i
			out = append(out, AgendaEntry{Match: m, Seats: []domain.Seat{}, Parking: []domain.ParkingSlot{}})
		}
		switch domain.ResourceKind(kind) {
		case domain.KindSeat:
			seat.ID = id
			out[i].Seats = append(out[i].Seats, seat)
		case domain.KindParking:
			out[i].Parking = append(out[i].Parking, domain.ParkingSlot{ID: id, Name: name})
		}
	}
	return out, rows.Err()
}
