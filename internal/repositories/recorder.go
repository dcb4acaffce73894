package repositories

import (
	"github.com/desertthunder/scribe/internal/models"
)

// RunRecorder implements stream.Recorder using [RunRepository].
//
// Only terminal runs are stored; the streaming client treats errors as best-effort.
type RunRecorder struct {
	repo *RunRepository
}

// NewRunRecorder creates a new [RunRecorder] with the given repository
func NewRunRecorder(repo *RunRepository) *RunRecorder {
	return &RunRecorder{repo: repo}
}

// RecordRun persists a finished run snapshot under the run's own ID.
func (a *RunRecorder) RecordRun(run models.Run) error {
	record := models.NewRunRecord(0, run)
	record.SetID(run.ID)
	return a.repo.Create(record)
}
