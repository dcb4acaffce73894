package models

import (
	"time"
)

// Model is implemented by every entity kept in SQLite.
type Model interface {
	ID() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
	// Validate reports the first missing or malformed field.
	Validate() error
}

// Repository is the CRUD surface shared by the SQLite repositories.
//
// Delete is a soft delete; Get and List never return deleted rows.
type Repository[T Model] interface {
	Create(model T) error
	Get(id string) (T, error)
	Update(model T) error
	Delete(id string) error
	// List accepts "limit" (int) plus entity-specific string filters.
	List(criteria map[string]any) ([]T, error)
}
