// Package sqlsink implements the process-wide SqlStorage and {{...}}
// placeholder expansion of spec §4.7, grounded on the teacher's
// internal/impl/sql driver-open and squirrel placeholder-format idioms.
package sqlsink

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"

	// Driver registrations, mirroring the teacher's blank-imported sql
	// driver pattern.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver enumerates the SqlStorage driver schemes of spec §3.
type Driver int

const (
	SQLite Driver = iota
	MySQL
	MariaDB
	PostgreSQL
)

func (d Driver) sqlDriverName() string {
	switch d {
	case SQLite:
		return "sqlite"
	case MySQL, MariaDB:
		return "mysql"
	case PostgreSQL:
		return "postgres"
	default:
		return ""
	}
}

// Storage is the process-wide SqlStorage of spec §3: one connection pool,
// created at startup and torn down on shutdown, shared by every Sql output.
type Storage struct {
	db      *sql.DB
	driver  Driver
	markers squirrel.PlaceholderFormat
}

// Open creates the connection pool for driver/connectionString. Parameter
// markers are computed once here from the driver scheme (spec §4.7's design
// note: "compute the marker style from the connection scheme at sink
// construction time").
func Open(driver Driver, connectionString string) (*Storage, error) {
	name := driver.sqlDriverName()
	if name == "" {
		return nil, fmt.Errorf("unknown sql_storage driver %d", driver)
	}
	db, err := sql.Open(name, connectionString)
	if err != nil {
		return nil, err
	}
	markers := squirrel.PlaceholderFormat(squirrel.Question)
	if driver == PostgreSQL {
		markers = squirrel.Dollar
	}
	return &Storage{db: db, driver: driver, markers: markers}, nil
}

// Close tears down the connection pool.
func (s *Storage) Close() error {
	return s.db.Close()
}

// execRow expands one row's "?"-marked SQL into the driver's parameter
// style and executes it, binding values in placeholder order.
func (s *Storage) execRow(ctx context.Context, questionSQL string, binds []interface{}) error {
	finalSQL, err := s.markers.ReplacePlaceholders(questionSQL)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, finalSQL, binds...)
	return err
}
