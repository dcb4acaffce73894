package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/scribe/internal/models"
	"github.com/desertthunder/scribe/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func finishedRun(kind models.Kind, output string) models.Run {
	start := time.Now().Add(-time.Second)
	req := models.NewRequest(kind, "the input")
	if kind == models.Translate {
		req = models.NewTranslation("the input", models.Spanish)
	}
	return models.Run{
		ID:         shared.GenerateID(),
		Request:    req,
		Status:     models.StatusCompleted,
		Output:     output,
		StartedAt:  start,
		FinishedAt: start.Add(200 * time.Millisecond),
	}
}

func TestKeyValueRepository(t *testing.T) {
	t.Run("Get Missing Key", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewCredentialRepository(db)
		value, err := repo.Get("token")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if value != "" {
			t.Errorf("expected empty value, got %q", value)
		}
	})

	t.Run("Set Overwrites", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewCredentialRepository(db)
		if err := repo.Set("token", "first"); err != nil {
			t.Fatalf("failed to set: %v", err)
		}
		if err := repo.Set("token", "second"); err != nil {
			t.Fatalf("failed to overwrite: %v", err)
		}

		value, err := repo.Get("token")
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if value != "second" {
			t.Errorf("expected second, got %q", value)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewCredentialRepository(db)
		repo.Set("token", "value")

		if err := repo.Delete("token"); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if err := repo.Delete("token"); err != nil {
			t.Errorf("deleting a missing key should not fail, got %v", err)
		}

		value, _ := repo.Get("token")
		if value != "" {
			t.Errorf("expected token removed, got %q", value)
		}
	})

	t.Run("Tables Are Independent", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		creds := NewCredentialRepository(db)
		prefs := NewPreferenceRepository(db)

		creds.Set("theme", "not-a-theme")
		prefs.Set("theme", "dark")

		if v, _ := prefs.Get("theme"); v != "dark" {
			t.Errorf("expected dark, got %q", v)
		}
		if v, _ := creds.Get("theme"); v != "not-a-theme" {
			t.Errorf("credentials table should be untouched, got %q", v)
		}
	})

	t.Run("Closed Database", func(t *testing.T) {
		db := setupTestDB(t)
		db.Close()

		repo := NewCredentialRepository(db)
		if _, err := repo.Get("token"); err == nil {
			t.Error("expected error on closed database")
		}
		if err := repo.Set("token", "x"); err == nil {
			t.Error("expected error on closed database")
		}
	})
}

func TestRunRepository(t *testing.T) {
	t.Run("Create And Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := finishedRun(models.Expand, "Hello")
		record := models.NewRunRecord(0, run)

		if err := repo.Create(record); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
		if record.ID() == "" {
			t.Error("record ID should be set after creation")
		}
		if record.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", record.Sequence())
		}

		got, err := repo.Get(record.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Output() != "Hello" {
			t.Errorf("expected output Hello, got %q", got.Output())
		}
		if got.Kind() != models.Expand {
			t.Errorf("expected kind expand, got %s", got.Kind())
		}
		if got.FinishedAt().IsZero() {
			t.Error("expected finished_at to round-trip")
		}

		bySeq, err := repo.GetBySequence(1)
		if err != nil {
			t.Fatalf("failed to get by sequence: %v", err)
		}
		if bySeq.ID() != record.ID() {
			t.Errorf("expected %s, got %s", record.ID(), bySeq.ID())
		}
	})

	t.Run("Create Rejects Non-Terminal Run", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := finishedRun(models.Summarize, "")
		run.Status = models.StatusStreaming

		if err := repo.Create(models.NewRunRecord(0, run)); err == nil {
			t.Fatal("expected validation error for streaming run")
		}
	})

	t.Run("Get NotFound", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		if _, err := repo.Get("missing"); !errors.Is(err, shared.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		record := models.NewRunRecord(0, finishedRun(models.Paraphrase, "draft"))
		if err := repo.Create(record); err != nil {
			t.Fatalf("failed to create: %v", err)
		}

		record.SetOutput("final")
		record.SetStatus(models.StatusFailed, "boom")
		if err := repo.Update(record); err != nil {
			t.Fatalf("failed to update: %v", err)
		}

		got, _ := repo.Get(record.ID())
		if got.Output() != "final" || got.Status() != models.StatusFailed || got.ErrorText() != "boom" {
			t.Errorf("update not persisted: %q %s %q", got.Output(), got.Status(), got.ErrorText())
		}
	})

	t.Run("Delete And List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		var ids []string
		for _, kind := range []models.Kind{models.Expand, models.Summarize, models.Translate} {
			record := models.NewRunRecord(0, finishedRun(kind, string(kind)))
			if err := repo.Create(record); err != nil {
				t.Fatalf("failed to create %s: %v", kind, err)
			}
			ids = append(ids, record.ID())
		}

		all, err := repo.List(nil)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(all))
		}
		if all[0].Kind() != models.Translate {
			t.Errorf("expected newest first, got %s", all[0].Kind())
		}

		if err := repo.Delete(ids[0]); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if err := repo.Delete(ids[0]); err == nil {
			t.Error("expected error deleting twice")
		}

		limited, _ := repo.List(map[string]any{"limit": 1})
		if len(limited) != 1 {
			t.Errorf("expected 1 run with limit, got %d", len(limited))
		}

		byKind, _ := repo.List(map[string]any{"kind": "summarize"})
		if len(byKind) != 1 || byKind[0].Kind() != models.Summarize {
			t.Errorf("expected one summarize run, got %d", len(byKind))
		}

		cleared, err := repo.Clear()
		if err != nil {
			t.Fatalf("failed to clear: %v", err)
		}
		if cleared != 2 {
			t.Errorf("expected 2 cleared, got %d", cleared)
		}
	})

	t.Run("RunRecorder", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		recorder := NewRunRecorder(repo)
		run := finishedRun(models.Expand, "Hello")

		if err := recorder.RecordRun(run); err != nil {
			t.Fatalf("failed to record: %v", err)
		}

		got, err := repo.Get(run.ID)
		if err != nil {
			t.Fatalf("expected record under run ID: %v", err)
		}
		if got.Output() != "Hello" {
			t.Errorf("expected Hello, got %q", got.Output())
		}
	})
}
