// Package migrations holds the journal schema and applies it with golang-migrate.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var files embed.FS

// ErrNotMigrated is returned by Inspect for a database that never had the
// journal schema applied.
var ErrNotMigrated = errors.New("journal has no schema version")

// State is a journal database's schema version next to the newest one this
// binary carries.
type State struct {
	Version uint
	Latest  uint
	Dirty   bool
}

// Err returns nil when the database is exactly at the latest schema.
func (s State) Err() error {
	switch {
	case s.Dirty:
		return fmt.Errorf("journal schema %d is dirty, a migration stopped part way", s.Version)
	case s.Version < s.Latest:
		return fmt.Errorf("journal schema %d is older than %d, run savekeep once to upgrade it", s.Version, s.Latest)
	case s.Version > s.Latest:
		return fmt.Errorf("journal schema %d was written by a newer savekeep (this one knows %d)", s.Version, s.Latest)
	}
	return nil
}

// Inspect reads the schema state of db without changing it.
func Inspect(db *sql.DB) (State, error) {
	latest, err := Latest()
	if err != nil {
		return State{}, err
	}
	m, err := open(db)
	if err != nil {
		return State{}, err
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return State{Latest: latest}, ErrNotMigrated
	}
	if err != nil {
		return State{}, fmt.Errorf("reading journal schema version: %w", err)
	}
	return State{Version: version, Latest: latest, Dirty: dirty}, nil
}

// Check returns nil when db is migrated to the latest schema.
func Check(db *sql.DB) error {
	st, err := Inspect(db)
	if err != nil {
		return err
	}
	return st.Err()
}

// Up applies every pending migration. A current database is left alone.
func Up(db *sql.DB) error {
	return run(db, "up", (*migrate.Migrate).Up)
}

// Down reverts every migration, dropping the journal tables.
func Down(db *sql.DB) error {
	return run(db, "down", (*migrate.Migrate).Down)
}

func run(db *sql.DB, direction string, step func(*migrate.Migrate) error) error {
	m, err := open(db)
	if err != nil {
		return err
	}
	if err := step(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrating journal %s: %w", direction, err)
	}
	return nil
}

// Latest returns the newest schema version embedded in the binary.
func Latest() (uint, error) {
	names, err := fs.Glob(files, "files/*.up.sql")
	if err != nil {
		return 0, fmt.Errorf("listing journal migrations: %w", err)
	}
	var latest uint
	for _, name := range names {
		mig, err := source.Parse(path.Base(name))
		if err != nil {
			return 0, fmt.Errorf("parsing migration name %s: %w", name, err)
		}
		latest = max(latest, mig.Version)
	}
	if latest == 0 {
		return 0, errors.New("no journal migrations embedded")
	}
	return latest, nil
}

// open builds a migrator over db. It is never closed: that would close db,
// which belongs to the caller.
func open(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(files, "files")
	if err != nil {
		return nil, fmt.Errorf("loading journal migrations: %w", err)
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("preparing journal database: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("preparing journal migrator: %w", err)
	}
	return m, nil
}
