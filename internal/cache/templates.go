package cache

import (
	"database/sql"
	"time"

	"emperror.dev/errors"
)

// PRTemplate is a saved pull-request description template.
type PRTemplate struct {
	ID        int64
	Name      string
	Body      string
	IsDefault bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateTemplate inserts a new template. If isDefault is true, any
// previously-default template is cleared first so at most one row carries
// is_default=1.
func (d *DB) CreateTemplate(name, body string, isDefault bool, now time.Time) (*PRTemplate, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return nil, errors.Wrap(err, "begin create template")
	}
	defer tx.Rollback() //nolint:errcheck

	if isDefault {
		if _, err := tx.Exec(`UPDATE pr_templates SET is_default = 0 WHERE is_default = 1`); err != nil {
			return nil, errors.Wrap(err, "clear previous default template")
		}
	}

	res, err := tx.Exec(`
		INSERT INTO pr_templates (name, body, is_default, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, name, body, boolToInt(isDefault), now, now)
	if err != nil {
		return nil, errors.Wrap(err, "insert template")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "read inserted template id")
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit create template")
	}

	return &PRTemplate{ID: id, Name: name, Body: body, IsDefault: isDefault, CreatedAt: now, UpdatedAt: now}, nil
}

// GetDefaultTemplate returns the template with is_default=1, or ErrNotFound
// if none is set.
func (d *DB) GetDefaultTemplate() (*PRTemplate, error) {
	row := d.conn.QueryRow(`
		SELECT id, name, body, is_default, created_at, updated_at
		FROM pr_templates WHERE is_default = 1 LIMIT 1
	`)
	return scanTemplate(row)
}

// ListTemplates returns every saved template, most recently updated first.
func (d *DB) ListTemplates() ([]PRTemplate, error) {
	rows, err := d.conn.Query(`
		SELECT id, name, body, is_default, created_at, updated_at
		FROM pr_templates ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "list templates")
	}
	defer rows.Close()

	var out []PRTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, errors.Wrap(rows.Err(), "iterate template rows")
}

// DeleteTemplate removes a template by id.
func (d *DB) DeleteTemplate(id int64) error {
	_, err := d.conn.Exec(`DELETE FROM pr_templates WHERE id = ?`, id)
	return errors.Wrap(err, "delete template")
}

func scanTemplate(row scannable) (*PRTemplate, error) {
	var (
		t         PRTemplate
		isDefault int
	)
	err := row.Scan(&t.ID, &t.Name, &t.Body, &isDefault, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan template")
	}
	t.IsDefault = isDefault != 0
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
