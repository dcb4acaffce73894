package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/scribe/internal/models"
	"github.com/desertthunder/scribe/internal/shared"
)

var _ models.Repository[*models.RunRecord] = (*RunRepository)(nil)

const runColumns = `id, sequence, kind, target_language, input, output, status, error, started_at, finished_at, created_at, updated_at`

// RunRepository implements [models.Repository] for [models.RunRecord] persistence.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new [RunRepository] with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run record with generated ID and sequence.
func (r *RunRepository) Create(record *models.RunRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequence, err := nextSequence(tx, "runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	if record.ID() == "" {
		record.SetID(shared.GenerateID())
	}

	query := `
		INSERT INTO runs (id, sequence, kind, target_language, input, output, status, error, started_at, finished_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.Exec(query,
		record.ID(), sequence, string(record.Kind()), string(record.TargetLanguage()),
		record.Input(), record.Output(), string(record.Status()), record.ErrorText(),
		record.StartedAt(), nullTime(record.FinishedAt()), record.CreatedAt(), record.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	record.SetSequence(sequence)
	return nil
}

// Get retrieves a run by ID, excluding soft-deleted runs
func (r *RunRepository) Get(id string) (*models.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ? AND deleted_at IS NULL`

	record, err := scanRun(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	return record, nil
}

// GetBySequence retrieves a run by its human-readable sequence number.
func (r *RunRepository) GetBySequence(sequence int) (*models.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE sequence = ? AND deleted_at IS NULL`

	record, err := scanRun(r.db.QueryRow(query, sequence))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: #%d", shared.ErrRunNotFound, sequence)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	return record, nil
}

// Update rewrites the mutable fields (output, status, error) of an existing run.
func (r *RunRepository) Update(record *models.RunRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	record.SetUpdatedAt(now)

	query := `
		UPDATE runs
		SET output = ?, status = ?, error = ?, finished_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, record.Output(), string(record.Status()), record.ErrorText(), nullTime(record.FinishedAt()), now, record.ID())
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w or already deleted: %s", shared.ErrRunNotFound, record.ID())
	}

	return nil
}

// Delete soft-deletes a run by ID
func (r *RunRepository) Delete(id string) error {
	query := `UPDATE runs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w or already deleted: %s", shared.ErrRunNotFound, id)
	}

	return nil
}

// Clear soft-deletes every run and returns how many were removed.
func (r *RunRepository) Clear() (int64, error) {
	result, err := r.db.Exec(`UPDATE runs SET deleted_at = ? WHERE deleted_at IS NULL`, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to clear runs: %w", err)
	}
	return result.RowsAffected()
}

// List retrieves runs newest first, excluding soft-deleted runs.
//
// Supported criteria: "kind" (string), "status" (string), "limit" (int).
func (r *RunRepository) List(criteria map[string]any) ([]*models.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE deleted_at IS NULL`
	args := []any{}

	if kind, ok := criteria["kind"].(string); ok && kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}
	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var records []*models.RunRecord
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*models.RunRecord, error) {
	var (
		id, kind, target, input, output, status, errText string
		sequence                                         int
		startedAt, createdAt, updatedAt                  time.Time
		finishedAt                                       sql.NullTime
	)

	err := s.Scan(&id, &sequence, &kind, &target, &input, &output, &status, &errText, &startedAt, &finishedAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	var finished time.Time
	if finishedAt.Valid {
		finished = finishedAt.Time
	}

	return models.RestoreRunRecord(id, sequence, models.Kind(kind), models.Language(target), input, output,
		models.Status(status), errText, startedAt, finished, createdAt, updatedAt), nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
