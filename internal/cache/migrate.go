package cache

import (
	"database/sql"

	"emperror.dev/errors"
)

// migrate brings a database from whatever schema_version it is at up to
// schemaVersion, creating the schema fresh on an empty database.
func migrate(db *sql.DB) error {
	current, err := getSchemaVersion(db)
	if err != nil {
		return errors.Wrap(err, "read schema version")
	}

	if current == 0 {
		return createSchema(db)
	}
	if current == schemaVersion {
		return nil
	}
	return errors.Errorf("cache schema version %d is newer than supported version %d", current, schemaVersion)
}

func getSchemaVersion(db *sql.DB) (int, error) {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`); err != nil {
		return 0, errors.Wrap(err, "create schema_version table")
	}

	var version int
	err := db.QueryRow(`SELECT version FROM schema_version ORDER BY version DESC LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "scan schema version")
	}
	return version, nil
}

func createSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS repositories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL UNIQUE,
			owner TEXT NOT NULL,
			name TEXT NOT NULL,
			last_opened DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pull_requests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			repo_id INTEGER NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
			number INTEGER NOT NULL,
			data TEXT NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE(repo_id, number)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pull_requests_repo ON pull_requests(repo_id)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pr_templates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			body TEXT NOT NULL,
			is_default INTEGER NOT NULL DEFAULT 0 CHECK (is_default IN (0, 1)),
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return errors.Wrapf(err, "execute: %s", stmt)
		}
	}

	if _, err := db.Exec(`INSERT OR REPLACE INTO schema_version (version) VALUES (?)`, schemaVersion); err != nil {
		return errors.Wrap(err, "set schema version")
	}
	return nil
}
