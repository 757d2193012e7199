package cache

import (
	"database/sql"

	"emperror.dev/errors"
)

// GetSetting returns the stored value for key, or ErrNotFound.
func (d *DB) GetSetting(key string) (string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "get setting")
	}
	return value, nil
}

// SetSetting stores or replaces the value for key.
func (d *DB) SetSetting(key, value string) error {
	_, err := d.conn.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return errors.Wrap(err, "set setting")
}

// DeleteSetting removes key, if present.
func (d *DB) DeleteSetting(key string) error {
	_, err := d.conn.Exec(`DELETE FROM settings WHERE key = ?`, key)
	return errors.Wrap(err, "delete setting")
}
