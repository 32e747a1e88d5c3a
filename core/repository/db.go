package repository

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

// DB wraps the sql connection pool shared by the repositories.
type DB struct {
	DB *sql.DB
}

// NewDB connects to the tasker database over the postgres driver and
// verifies the connection.
func NewDB(databaseURL string) (*DB, error) {
	return NewDBWithDriver("postgres", databaseURL)
}

// NewDBWithDriver connects using an explicit driver name. Tests use it to
// run the repositories against an embedded database.
func NewDBWithDriver(driver, dsn string) (*DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{DB: db}, nil
}

// Query runs a query that returns rows.
func (d *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return d.DB.Query(query, args...)
}

// QueryRow runs a query expected to return at most one row.
func (d *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return d.DB.QueryRow(query, args...)
}

// Exec runs a statement without returning rows.
func (d *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return d.DB.Exec(query, args...)
}

// Close releases the connection pool.
func (d *DB) Close() error {
	return d.DB.Close()
}
