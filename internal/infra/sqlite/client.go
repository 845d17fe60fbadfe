// Package sqlite is the relational store behind the dashboard, built on the
// pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a referenced batch does not exist.
var ErrNotFound = errors.New("sqlite: not found")

const busyTimeout = 5 * time.Second

var (
	clientsMu sync.Mutex
	clients   = make(map[string]*sql.DB)
)

// DSN builds the driver connection string for a database file with foreign
// keys enabled.
func DSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	return "file:" + path + "?" + q.Encode()
}

// Client returns the process-wide handle for the database at path, opening
// and pinging it on first use. Later calls with the same path share it.
func Client(ctx context.Context, path string) (*sql.DB, error) {
	dsn := DSN(path)

	clientsMu.Lock()
	defer clientsMu.Unlock()

	if db, ok := clients[dsn]; ok {
		return db, nil
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("Client: opening %s: %w", path, err)
	}
	// One writer at a time; SQLite serialises writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("Client: connecting to %s: %w", path, err)
	}

	clients[dsn] = db
	return db, nil
}

// CloseAll closes every shared handle. Only tests and shutdown need it.
func CloseAll() error {
	clientsMu.Lock()
	defer clientsMu.Unlock()

	var errs []error
	for dsn, db := range clients {
		errs = append(errs, db.Close())
		delete(clients, dsn)
	}
	return errors.Join(errs...)
}
