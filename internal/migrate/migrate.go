package migrate

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"example.com/abonos/internal/store/migrations"
)

// Up applies all pending embedded migrations.
//
// It returns an error (no log.Fatal) so the caller can decide how to handle it.
func Up(dbURL string, log *slog.Logger) error {
	return run(dbURL, log, func(db *sql.DB) error { return goose.Up(db, ".") })
}

// Down rolls back the most recent migration.
func Down(dbURL string, log *slog.Logger) error {
	return run(dbURL, log, func(db *sql.DB) error { return goose.Down(db, ".") })
}

// Version reports the current schema version.
func Version(dbURL string, log *slog.Logger) (int64, error) {
	var v int64
	err := run(dbURL, log, func(db *sql.DB) error {
		var err error
		v, err = goose.GetDBVersion(db)
		return err
	})
	return v, err
}

func run(dbURL string, log *slog.Logger, fn func(db *sql.DB) error) error {
	if log == nil {
		log = slog.Default()
	}
	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("migrations: open db: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			log.Error("database close error", "err", err)
		}
	}(db)

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migrations: set dialect: %w", err)
	}

	log.Info("running database migrations")
	if err := fn(db); err != nil {
		return fmt.Errorf("migrations: goose: %w", err)
	}
	log.Info("database migrations done")
	return nil
}
