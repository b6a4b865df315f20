package db

import (
	"database/sql"
	"errors"
	"fmt"
)

// LastProjectKey holds the id of the project detail view that was open last
const LastProjectKey = "last_project_id"

// GetSetting retrieves a setting value by key. ok is false when the key is absent.
func (db *DB) GetSetting(key string) (value string, ok bool, err error) {
	err = db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetSetting sets a setting value
func (db *DB) SetSetting(key, value string) error {
	return db.SetSettings(map[string]string{key: value})
}

// SetSettings writes all entries in a single transaction
func (db *DB) SetSettings(entries map[string]string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for key, value := range entries {
		_, err := tx.Exec(`
			INSERT INTO settings (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
		`, key, value)
		if err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// DeleteSettings removes the given keys in a single transaction
func (db *DB) DeleteSettings(keys ...string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, key := range keys {
		if _, err := tx.Exec("DELETE FROM settings WHERE key = ?", key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return tx.Commit()
}
