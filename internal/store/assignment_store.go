package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"example.com/abonos/internal/domain"
)

type assignTable struct {
	table   string
	column  string
	insert  Write
	release Write
}

var assignTables = map[domain.ResourceKind]assignTable{
	domain.KindSeat:    {"asignaciones_abonos", "abono_id", WriteSeatAssign, WriteSeatRelease},
	domain.KindParking: {"asignaciones_parkings", "parking_id", WriteParkingAssign, WriteParkingRelease},
}

func tableFor(kind domain.ResourceKind) (assignTable, error) {
	t, ok := assignTables[kind]
	if !ok {
		return assignTable{}, domain.Invalid("kind", fmt.Sprintf("unknown resource kind %q", kind))
	}
	return t, nil
}

// AssignmentStore persists seat and parking assignments. The primary key
// (match, resource) of each assignment table is what prevents double
// booking; Insert translates its violation into ErrAlreadyAssigned.
type AssignmentStore struct {
	db        *DB
	matches   *MatchStore
	seats     *SeatStore
	parking   *ParkingStore
	customers *CustomerStore
}

func NewAssignmentStore(db *DB) *AssignmentStore {
	return &AssignmentStore{
		db:        db,
		matches:   NewMatchStore(db),
		seats:     NewSeatStore(db),
		parking:   NewParkingStore(db),
		customers: NewCustomerStore(db),
	}
}

func (s *AssignmentStore) Match(ctx context.Context, id int64) (domain.Match, error) {
	return s.matches.Get(ctx, id)
}

func (s *AssignmentStore) Customer(ctx context.Context, id int64) (domain.Customer, error) {
	return s.customers.Get(ctx, id)
}

// ResourceExists returns the kind's not-found error when the resource is missing.
func (s *AssignmentStore) ResourceExists(ctx context.Context, kind domain.ResourceKind, id int64) error {
	var (
		query   string
		missing error
	)
	switch kind {
	case domain.KindSeat:
		query, missing = `SELECT EXISTS (SELECT 1 FROM abonos WHERE id = $1)`, domain.ErrSeatNotFound
	case domain.KindParking:
		query, missing = `SELECT EXISTS (SELECT 1 FROM parkings WHERE id = $1)`, domain.ErrParkingNotFound
	default:
		return domain.Invalid("kind", fmt.Sprintf("unknown resource kind %q", kind))
	}
	var ok bool
	if err := s.db.queryRow(ctx, query, id).Scan(&ok); err != nil {
		return fmt.Errorf("check %s: %w", kind, err)
	}
	if !ok {
		return missing
	}
	return nil
}

func (s *AssignmentStore) Find(ctx context.Context, kind domain.ResourceKind, matchID, resourceID int64) (*domain.Assignment, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
SELECT id_partido, %[2]s, id_cliente, COALESCE(asignador, ''), created_at
FROM %[1]s WHERE id_partido = $1 AND %[2]s = $2`, t.table, t.column)

	a := domain.Assignment{Kind: kind}
	err = s.db.queryRow(ctx, query, matchID, resourceID).
		Scan(&a.MatchID, &a.ResourceID, &a.CustomerID, &a.Assignor, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s assignment: %w", kind, err)
	}
	return &a, nil
}

func (s *AssignmentStore) Insert(ctx context.Context, a domain.Assignment) error {
	t, err := tableFor(a.Kind)
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf(`
INSERT INTO %s (id_partido, %s, id_cliente, asignador)
VALUES ($1, $2, $3, NULLIF($4, ''))`, t.table, t.column)

	_, err = s.db.write(ctx, t.insert, func(ctx context.Context) (int64, error) {
		tag, err := s.db.exec(ctx, stmt, a.MatchID, a.ResourceID, a.CustomerID, a.Assignor)
		return tag.RowsAffected(), err
	})
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return domain.ErrAlreadyAssigned
	}
	if isForeignKeyViolation(err) {
		return missingReference(a.Kind, violatedConstraint(err))
	}
	return fmt.Errorf("insert %s assignment: %w", a.Kind, err)
}

// missingReference maps a foreign key name to the entity that disappeared
// between the existence checks and the insert.
func missingReference(kind domain.ResourceKind, constraint string) error {
	switch {
	case strings.Contains(constraint, "id_partido"):
		return domain.ErrMatchNotFound
	case strings.Contains(constraint, "id_cliente"):
		return domain.ErrCustomerNotFound
	case strings.Contains(constraint, "asignador"):
		return domain.ErrUserNotFound
	case kind == domain.KindParking:
		return domain.ErrParkingNotFound
	default:
		return domain.ErrSeatNotFound
	}
}

func (s *AssignmentStore) Delete(ctx context.Context, kind domain.ResourceKind, matchID, resourceID int64) (bool, error) {
	t, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	stmt := fmt.Sprintf(`DELETE FROM %s WHERE id_partido = $1 AND %s = $2`, t.table, t.column)

	n, err := s.db.write(ctx, t.release, func(ctx context.Context) (int64, error) {
		tag, err := s.db.exec(ctx, stmt, matchID, resourceID)
		return tag.RowsAffected(), err
	})
	if err != nil {
		return false, fmt.Errorf("release %s: %w", kind, err)
	}
	return n > 0, nil
}

// ListForMatch returns the assignments of one kind for a match with
// customer names and resource labels.
func (s *AssignmentStore) ListForMatch(ctx context.Context, kind domain.ResourceKind, matchID int64) ([]domain.AssignmentView, error) {
	var query string
	switch kind {
	case domain.KindSeat:
		query = `
SELECT x.id_partido, x.abono_id, x.id_cliente, COALESCE(x.asignador, ''), x.created_at, c.nombre,
	a.sector, a.puerta, a.fila, a.asiento, ''
FROM asignaciones_abonos x
JOIN clientes c ON c.id = x.id_cliente
JOIN abonos a ON a.id = x.abono_id
WHERE x.id_partido = $1
ORDER BY a.sector, a.puerta, a.fila, a.asiento`
	case domain.KindParking:
		query = `
SELECT x.id_partido, x.parking_id, x.id_cliente, COALESCE(x.asignador, ''), x.created_at, c.nombre,
	0, 0, 0, 0, pk.nombre
FROM asignaciones_parkings x
JOIN clientes c ON c.id = x.id_cliente
JOIN parkings pk ON pk.id = x.parking_id
WHERE x.id_partido = $1
ORDER BY x.parking_id`
	default:
		return nil, domain.Invalid("kind", fmt.Sprintf("unknown resource kind %q", kind))
	}

	rows, err := s.db.query(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("list %s assignments: %w", kind, err)
	}
	defer rows.Close()

	out := []domain.AssignmentView{}
	for rows.Next() {
		v := domain.AssignmentView{Assignment: domain.Assignment{Kind: kind}}
		var (
			seat domain.Seat
			name string
		)
		if err := rows.Scan(&v.MatchID, &v.ResourceID, &v.CustomerID, &v.Assignor, &v.CreatedAt, &v.CustomerName,
			&seat.Sector, &seat.Gate, &seat.Row, &seat.Number, &name); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		if kind == domain.KindSeat {
			v.ResourceLabel = seat.Label()
		} else {
			v.ResourceLabel = name
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// MatchDetail loads a match with assigned and available inventory.
func (s *AssignmentStore) MatchDetail(ctx context.Context, matchID int64) (domain.MatchDetail, error) {
	var d domain.MatchDetail
	m, err := s.matches.Get(ctx, matchID)
	if err != nil {
		return d, err
	}
	d.Match = m
	if d.SeatAssignments, err = s.ListForMatch(ctx, domain.KindSeat, matchID); err != nil {
		return d, err
	}
	if d.SlotAssignments, err = s.ListForMatch(ctx, domain.KindParking, matchID); err != nil {
		return d, err
	}
	if d.AvailableSeats, err = s.seats.Available(ctx, matchID); err != nil {
		return d, err
	}
	if d.AvailableParking, err = s.parking.Available(ctx, matchID); err != nil {
		return d, err
	}
	return d, nil
}

// Context describes one resource for one match.
func (s *AssignmentStore) Context(ctx context.Context, kind domain.ResourceKind, matchID, resourceID int64) (domain.AssignmentContext, error) {
	out := domain.AssignmentContext{Kind: kind}
	m, err := s.matches.Get(ctx, matchID)
	if err != nil {
		return out, err
	}
	out.Match = m

	switch kind {
	case domain.KindSeat:
		seat, err := s.seats.Get(ctx, resourceID)
		if err != nil {
			return out, err
		}
		out.Seat = &seat
	case domain.KindParking:
		p, err := s.parking.Get(ctx, resourceID)
		if err != nil {
			return out, err
		}
		out.Parking = &p
	default:
		return out, domain.Invalid("kind", fmt.Sprintf("unknown resource kind %q", kind))
	}

	a, err := s.Find(ctx, kind, matchID, resourceID)
	if err != nil || a == nil {
		return out, err
	}
	c, err := s.customers.Get(ctx, a.CustomerID)
	if err != nil {
		return out, err
	}
	v := domain.AssignmentView{Assignment: *a, CustomerName: c.Name}
	if out.Seat != nil {
		v.ResourceLabel = out.Seat.Label()
	} else {
		v.ResourceLabel = out.Parking.Name
	}
	out.Assignment = &v
	return out, nil
}
