package cache

import (
	"database/sql"
	"time"

	"emperror.dev/errors"
)

// ErrNotFound is returned by lookups that find no matching row.
var ErrNotFound = errors.New("cache: not found")

// Repository is a recently-opened repository entry.
type Repository struct {
	ID         int64
	Path       string
	Owner      string
	Name       string
	LastOpened time.Time
}

// UpsertRepository records path as opened at the given time, creating the
// row if it doesn't exist or updating owner/name/last_opened if it does.
func (d *DB) UpsertRepository(path, owner, name string, openedAt time.Time) (*Repository, error) {
	_, err := d.conn.Exec(`
		INSERT INTO repositories (path, owner, name, last_opened)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			owner = excluded.owner,
			name = excluded.name,
			last_opened = excluded.last_opened
	`, path, owner, name, openedAt)
	if err != nil {
		return nil, errors.Wrap(err, "upsert repository")
	}
	return d.GetRepositoryByPath(path)
}

// GetRepositoryByPath looks up a repository entry by its filesystem path.
func (d *DB) GetRepositoryByPath(path string) (*Repository, error) {
	row := d.conn.QueryRow(`
		SELECT id, path, owner, name, last_opened FROM repositories WHERE path = ?
	`, path)
	return scanRepository(row)
}

// ListRecentRepositories returns up to limit repositories ordered by most
// recently opened.
func (d *DB) ListRecentRepositories(limit int) ([]Repository, error) {
	rows, err := d.conn.Query(`
		SELECT id, path, owner, name, last_opened
		FROM repositories
		ORDER BY last_opened DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list recent repositories")
	}
	defer rows.Close()

	var out []Repository
	for rows.Next() {
		var r Repository
		if err := rows.Scan(&r.ID, &r.Path, &r.Owner, &r.Name, &r.LastOpened); err != nil {
			return nil, errors.Wrap(err, "scan repository row")
		}
		out = append(out, r)
	}
	return out, errors.Wrap(rows.Err(), "iterate repository rows")
}

// DeleteRepository removes a repository entry and its cached pull requests
// (via ON DELETE CASCADE) by path.
func (d *DB) DeleteRepository(path string) error {
	_, err := d.conn.Exec(`DELETE FROM repositories WHERE path = ?`, path)
	return errors.Wrap(err, "delete repository")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRepository(row scannable) (*Repository, error) {
	var r Repository
	err := row.Scan(&r.ID, &r.Path, &r.Owner, &r.Name, &r.LastOpened)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan repository")
	}
	return &r, nil
}
