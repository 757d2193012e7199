package cache

import (
	"database/sql"
	"time"

	"emperror.dev/errors"
)

// CachedPullRequest is one row of the per-repository pull-request cache.
// Data carries the provider-neutral JSON payload verbatim; the cache does
// not interpret it.
type CachedPullRequest struct {
	ID        int64
	RepoID    int64
	Number    int64
	Data      string
	UpdatedAt time.Time
}

// UpsertPullRequest stores or replaces the cached row for (repoID, number).
func (d *DB) UpsertPullRequest(repoID, number int64, data string, updatedAt time.Time) error {
	_, err := d.conn.Exec(`
		INSERT INTO pull_requests (repo_id, number, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(repo_id, number) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`, repoID, number, data, updatedAt)
	return errors.Wrap(err, "upsert pull request")
}

// GetPullRequest returns the cached row for (repoID, number).
func (d *DB) GetPullRequest(repoID, number int64) (*CachedPullRequest, error) {
	row := d.conn.QueryRow(`
		SELECT id, repo_id, number, data, updated_at
		FROM pull_requests WHERE repo_id = ? AND number = ?
	`, repoID, number)

	var pr CachedPullRequest
	err := row.Scan(&pr.ID, &pr.RepoID, &pr.Number, &pr.Data, &pr.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan pull request")
	}
	return &pr, nil
}

// ListPullRequests returns every cached row for a repository.
func (d *DB) ListPullRequests(repoID int64) ([]CachedPullRequest, error) {
	rows, err := d.conn.Query(`
		SELECT id, repo_id, number, data, updated_at
		FROM pull_requests WHERE repo_id = ?
		ORDER BY number
	`, repoID)
	if err != nil {
		return nil, errors.Wrap(err, "list pull requests")
	}
	defer rows.Close()

	var out []CachedPullRequest
	for rows.Next() {
		var pr CachedPullRequest
		if err := rows.Scan(&pr.ID, &pr.RepoID, &pr.Number, &pr.Data, &pr.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scan pull request row")
		}
		out = append(out, pr)
	}
	return out, errors.Wrap(rows.Err(), "iterate pull request rows")
}

// DeletePullRequest removes a single cached row.
func (d *DB) DeletePullRequest(repoID, number int64) error {
	_, err := d.conn.Exec(`DELETE FROM pull_requests WHERE repo_id = ? AND number = ?`, repoID, number)
	return errors.Wrap(err, "delete pull request")
}
