package repositories

import (
	"database/sql"
	"fmt"
	"time"
)

const (
	CredentialsTable = "credentials"
	PreferencesTable = "preferences"
)

// KeyValueRepository stores string values by key in a two-column table.
type KeyValueRepository struct {
	db    *sql.DB
	table string
}

// NewCredentialRepository is the durable half of the credential store.
func NewCredentialRepository(db *sql.DB) *KeyValueRepository {
	return &KeyValueRepository{db: db, table: CredentialsTable}
}

// NewPreferenceRepository stores UI preferences such as the theme.
func NewPreferenceRepository(db *sql.DB) *KeyValueRepository {
	return &KeyValueRepository{db: db, table: PreferencesTable}
}

// Get returns the value for key, or "" when the key is absent.
func (r *KeyValueRepository) Get(key string) (string, error) {
	query := fmt.Sprintf("SELECT value FROM %s WHERE key = ?", r.table)

	var value string
	err := r.db.QueryRow(query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query %s: %w", r.table, err)
	}
	return value, nil
}

// Set inserts or replaces the value for key.
func (r *KeyValueRepository) Set(key, value string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, r.table)

	if _, err := r.db.Exec(query, key, value, time.Now()); err != nil {
		return fmt.Errorf("failed to write %s: %w", r.table, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (r *KeyValueRepository) Delete(key string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE key = ?", r.table)
	if _, err := r.db.Exec(query, key); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", r.table, err)
	}
	return nil
}
