package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"example.com/abonos/internal/domain"
)

type MatchStore struct {
	db *DB
}

func NewMatchStore(db *DB) *MatchStore {
	return &MatchStore{db: db}
}

const matchColumns = `p.id, p.api_id, p.jornada, p.rival, p.fecha, p.localia, p.competicion, p.estadio,
	p.equipo_local, p.equipo_visitante, p.logo_local, p.logo_visitante`

func scanMatch(row pgx.Row, extra ...any) (domain.Match, error) {
	var m domain.Match
	dest := []any{
		&m.ID, &m.APIID, &m.Round, &m.Opponent, &m.Kickoff, &m.Home, &m.Competition, &m.Venue,
		&m.HomeTeam, &m.AwayTeam, &m.HomeLogo, &m.AwayLogo,
	}
	err := row.Scan(append(dest, extra...)...)
	return m, err
}

func (s *MatchStore) Get(ctx context.Context, id int64) (domain.Match, error) {
	m, err := scanMatch(s.db.queryRow(ctx, `SELECT `+matchColumns+` FROM partidos p WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Match{}, domain.ErrMatchNotFound
	}
	if err != nil {
		return domain.Match{}, fmt.Errorf("get match: %w", err)
	}
	return m, nil
}

func (s *MatchStore) GetByAPIID(ctx context.Context, apiID int64) (domain.Match, error) {
	m, err := scanMatch(s.db.queryRow(ctx, `SELECT `+matchColumns+` FROM partidos p WHERE p.api_id = $1`, apiID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Match{}, domain.ErrMatchNotFound
	}
	if err != nil {
		return domain.Match{}, fmt.Errorf("get match by api id: %w", err)
	}
	return m, nil
}

// Upcoming lists matches kicking off at or after since, plus unscheduled
// ones, with the free inventory of home matches.
func (s *MatchStore) Upcoming(ctx context.Context, since time.Time) ([]domain.MatchSummary, error) {
	const query = `
SELECT ` + matchColumns + `,
	CASE WHEN p.localia THEN
		(SELECT COUNT(*) FROM abonos) - (SELECT COUNT(*) FROM asignaciones_abonos aa WHERE aa.id_partido = p.id)
	ELSE 0 END,
	CASE WHEN p.localia THEN
		(SELECT COUNT(*) FROM parkings) - (SELECT COUNT(*) FROM asignaciones_parkings ap WHERE ap.id_partido = p.id)
	ELSE 0 END
FROM partidos p
WHERE p.fecha IS NULL OR p.fecha >= $1
ORDER BY p.fecha ASC NULLS LAST, p.id ASC`

	rows, err := s.db.query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("list upcoming matches: %w", err)
	}
	defer rows.Close()

	out := []domain.MatchSummary{}
	for rows.Next() {
		var sum domain.MatchSummary
		m, err := scanMatch(rows, &sum.AvailableSeats, &sum.AvailableParking)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		sum.Match = m
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *MatchStore) Insert(ctx context.Context, m domain.Match) (domain.Match, error) {
	const stmt = `
INSERT INTO partidos (api_id, jornada, rival, fecha, localia, competicion, estadio,
	equipo_local, equipo_visitante, logo_local, logo_visitante)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id`

	_, err := s.db.write(ctx, WriteMatchInsert, func(ctx context.Context) (int64, error) {
		err := s.db.queryRow(ctx, stmt,
			m.APIID, m.Round, m.Opponent, m.Kickoff, m.Home, m.Competition, m.Venue,
			m.HomeTeam, m.AwayTeam, m.HomeLogo, m.AwayLogo,
		).Scan(&m.ID)
		if err != nil {
			return 0, err
		}
		return 1, nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Match{}, domain.ErrMatchExists
		}
		return domain.Match{}, fmt.Errorf("insert match: %w", err)
	}
	return m, nil
}

func (s *MatchStore) Update(ctx context.Context, m domain.Match) error {
	const stmt = `
UPDATE partidos SET jornada = $2, rival = $3, fecha = $4, localia = $5, competicion = $6,
	estadio = $7, equipo_local = $8, equipo_visitante = $9
WHERE id = $1`

	n, err := s.db.write(ctx, WriteMatchUpdate, func(ctx context.Context) (int64, error) {
		tag, err := s.db.exec(ctx, stmt,
			m.ID, m.Round, m.Opponent, m.Kickoff, m.Home, m.Competition, m.Venue, m.HomeTeam, m.AwayTeam)
		return tag.RowsAffected(), err
	})
	if err != nil {
		return fmt.Errorf("update match: %w", err)
	}
	if n == 0 {
		return domain.ErrMatchNotFound
	}
	return nil
}

// UpsertByAPIID inserts m or updates the row with the same api_id. Rows
// whose fields already match are left untouched and reported unchanged.
func (s *MatchStore) UpsertByAPIID(ctx context.Context, m domain.Match) (bool, error) {
	if m.APIID == nil {
		return false, domain.Invalid("api_id", "is required for upsert")
	}
	const stmt = `
INSERT INTO partidos (api_id, jornada, rival, fecha, localia, competicion, estadio,
	equipo_local, equipo_visitante, logo_local, logo_visitante)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (api_id) DO UPDATE SET
	jornada = EXCLUDED.jornada,
	rival = EXCLUDED.rival,
	fecha = EXCLUDED.fecha,
	localia = EXCLUDED.localia,
	competicion = EXCLUDED.competicion,
	estadio = EXCLUDED.estadio,
	equipo_local = EXCLUDED.equipo_local,
	equipo_visitante = EXCLUDED.equipo_visitante,
	logo_local = EXCLUDED.logo_local,
	logo_visitante = EXCLUDED.logo_visitante
WHERE (partidos.jornada, partidos.rival, partidos.fecha, partidos.localia, partidos.competicion,
	partidos.estadio, partidos.equipo_local, partidos.equipo_visitante, partidos.logo_local, partidos.logo_visitante)
	IS DISTINCT FROM
	(EXCLUDED.jornada, EXCLUDED.rival, EXCLUDED.fecha, EXCLUDED.localia, EXCLUDED.competicion,
	EXCLUDED.estadio, EXCLUDED.equipo_local, EXCLUDED.equipo_visitante, EXCLUDED.logo_local, EXCLUDED.logo_visitante)`

	n, err := s.db.write(ctx, WriteMatchUpsert, func(ctx context.Context) (int64, error) {
		tag, err := s.db.exec(ctx, stmt,
			m.APIID, m.Round, m.Opponent, m.Kickoff, m.Home, m.Competition, m.Venue,
			m.HomeTeam, m.AwayTeam, m.HomeLogo, m.AwayLogo,
		)
		return tag.RowsAffected(), err
	})
	if err != nil {
		return false, fmt.Errorf("upsert match %d: %w", *m.APIID, err)
	}
	return n > 0, nil
}

// Delete removes the match and, through the cascade, its assignments.
func (s *MatchStore) Delete(ctx context.Context, id int64) (bool, error) {
	n, err := s.db.write(ctx, WriteMatchDelete, func(ctx context.Context) (int64, error) {
		tag, err := s.db.exec(ctx, `DELETE FROM partidos WHERE id = $1`, id)
		return tag.RowsAffected(), err
	})
	if err != nil {
		return false, fmt.Errorf("delete match: %w", err)
	}
	return n > 0, nil
}

func (s *MatchStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.queryRow(ctx, `SELECT COUNT(*) FROM partidos`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count matches: %w", err)
	}
	return n, nil
}
