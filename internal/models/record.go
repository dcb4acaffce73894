package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/scribe/internal/shared"
)

var _ Model = (*RunRecord)(nil)

// RunRecord is a terminal [Run] persisted to local history.
type RunRecord struct {
	id         string
	sequence   int
	kind       Kind
	target     Language
	input      string
	output     string
	status     Status
	errText    string
	startedAt  time.Time
	finishedAt time.Time
	createdAt  time.Time
	updatedAt  time.Time
	deletedAt  *time.Time
}

// NewRunRecord captures a finished run. The ID is assigned by the repository.
func NewRunRecord(sequence int, run Run) *RunRecord {
	now := time.Now()
	return &RunRecord{
		sequence:   sequence,
		kind:       run.Request.Kind,
		target:     run.Request.TargetLanguage,
		input:      run.Request.Text,
		output:     run.Output,
		status:     run.Status,
		errText:    shared.Message(run.Err),
		startedAt:  run.StartedAt,
		finishedAt: run.FinishedAt,
		createdAt:  now,
		updatedAt:  now,
	}
}

// RestoreRunRecord rebuilds a record from stored columns.
func RestoreRunRecord(id string, sequence int, kind Kind, target Language, input, output string, status Status, errText string, startedAt, finishedAt, createdAt, updatedAt time.Time) *RunRecord {
	return &RunRecord{
		id:         id,
		sequence:   sequence,
		kind:       kind,
		target:     target,
		input:      input,
		output:     output,
		status:     status,
		errText:    errText,
		startedAt:  startedAt,
		finishedAt: finishedAt,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}

func (r *RunRecord) ID() string                     { return r.id }
func (r *RunRecord) SetID(id string)                { r.id = id }
func (r *RunRecord) Sequence() int                  { return r.sequence }
func (r *RunRecord) SetSequence(seq int)            { r.sequence = seq }
func (r *RunRecord) Kind() Kind                     { return r.kind }
func (r *RunRecord) TargetLanguage() Language       { return r.target }
func (r *RunRecord) Input() string                  { return r.input }
func (r *RunRecord) Output() string                 { return r.output }
func (r *RunRecord) Status() Status                 { return r.status }
func (r *RunRecord) ErrorText() string              { return r.errText }
func (r *RunRecord) StartedAt() time.Time           { return r.startedAt }
func (r *RunRecord) FinishedAt() time.Time          { return r.finishedAt }
func (r *RunRecord) CreatedAt() time.Time           { return r.createdAt }
func (r *RunRecord) UpdatedAt() time.Time           { return r.updatedAt }
func (r *RunRecord) SetUpdatedAt(t time.Time)       { r.updatedAt = t }
func (r *RunRecord) DeletedAt() *time.Time          { return r.deletedAt }
func (r *RunRecord) SetDeletedAt(t *time.Time)      { r.deletedAt = t }
func (r *RunRecord) SetOutput(output string)        { r.output = output }
func (r *RunRecord) SetStatus(s Status, err string) { r.status, r.errText = s, err }

// Request reconstructs the submitted [Request].
func (r *RunRecord) Request() Request {
	return Request{Kind: r.kind, Text: r.input, TargetLanguage: r.target}
}

// Validate ensures the record describes a finished, well-formed run.
func (r *RunRecord) Validate() error {
	if err := r.Request().Validate(); err != nil {
		return err
	}
	if !r.status.Terminal() {
		return fmt.Errorf("%w: run status %q is not terminal", shared.ErrInvalidInput, r.status)
	}
	if r.startedAt.IsZero() {
		return fmt.Errorf("%w: run has no start time", shared.ErrInvalidInput)
	}
	return nil
}
