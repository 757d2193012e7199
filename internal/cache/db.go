// Package cache implements the small embedded relational store that sits
// alongside the engine: recent-repository entries, user settings, and PR
// templates. The engine itself never reads or writes through this package;
// it exists for the command layer that passes a handle through.
package cache

import (
	"database/sql"
	"fmt"

	"emperror.dev/errors"
	_ "modernc.org/sqlite" // driver registration

	"github.com/sirupsen/logrus"
)

// schemaVersion is bumped whenever createSchema changes shape; migrations
// are applied in migrate.go from whatever version a database was opened at.
const schemaVersion = 1

// DB wraps a *sql.DB opened against the embedded store, with schema
// migration already applied.
type DB struct {
	conn *sql.DB
	log  *logrus.Entry
}

// Open opens (creating if necessary) the SQLite database at path, in WAL
// mode with a busy timeout, and brings its schema up to date.
func Open(path string) (*DB, error) {
	log := logrus.WithField("component", "cache")

	conn, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
		path,
	))
	if err != nil {
		return nil, errors.Wrap(err, "open cache database")
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "ping cache database")
	}

	// SQLite only supports a single writer; serialize through one
	// connection to avoid SQLITE_BUSY under concurrent access.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := migrate(conn); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "migrate cache schema")
	}

	log.WithField("path", path).Debug("cache database ready")
	return &DB{conn: conn, log: log}, nil
}

// Close releases the underlying connection.
func (d *DB) Close() error {
	return d.conn.Close()
}
