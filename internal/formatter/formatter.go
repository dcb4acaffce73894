// package formatter exports finished runs to plain text, Markdown, JSON and CSV
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/scribe/internal/models"
	"github.com/desertthunder/scribe/internal/shared"
)

// Format names an export encoding.
type Format string

const (
	Text     Format = "text"
	Markdown Format = "markdown"
	JSON     Format = "json"
)

// ParseFormat converts a flag value to a [Format]. "md" and "txt" are accepted aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return Text, nil
	case "markdown", "md":
		return Markdown, nil
	case "json":
		return JSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, s)
	}
}

// FormatFromPath infers a [Format] from a file extension, defaulting to [Text].
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return Markdown
	case ".json":
		return JSON
	default:
		return Text
	}
}

// RunExport is the JSON shape of an exported run.
type RunExport struct {
	ID             string    `json:"id"`
	Sequence       int       `json:"sequence"`
	Operation      string    `json:"operation"`
	TargetLanguage string    `json:"target_language,omitempty"`
	Status         string    `json:"status"`
	Input          string    `json:"input"`
	Output         string    `json:"output"`
	Error          string    `json:"error,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at,omitzero"`
}

// NewRunExport flattens a record for serialization.
func NewRunExport(record *models.RunRecord) RunExport {
	return RunExport{
		ID:             record.ID(),
		Sequence:       record.Sequence(),
		Operation:      record.Kind().String(),
		TargetLanguage: record.TargetLanguage().String(),
		Status:         record.Status().String(),
		Input:          record.Input(),
		Output:         record.Output(),
		Error:          record.ErrorText(),
		StartedAt:      record.StartedAt().UTC(),
		FinishedAt:     record.FinishedAt().UTC(),
	}
}

// Export encodes record in format.
func Export(record *models.RunRecord, format Format) ([]byte, error) {
	switch format {
	case Text:
		return ExportToText(record)
	case Markdown:
		return ExportToMarkdown(record)
	case JSON:
		return ExportToJSON(record)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
}

// ExportToText returns the output alone, ending in a newline. Failed runs append the error.
func ExportToText(record *models.RunRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(record.Output())
	if !strings.HasSuffix(record.Output(), "\n") {
		buf.WriteString("\n")
	}
	if record.Status() == models.StatusFailed {
		fmt.Fprintf(&buf, "\nError: %s\n", record.ErrorText())
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown renders a titled document with the input quoted above the output.
func ExportToMarkdown(record *models.RunRecord) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title(record))
	fmt.Fprintf(&buf, "**Status**: %s\n", record.Status())
	fmt.Fprintf(&buf, "**Started**: %s\n", record.StartedAt().Format(time.RFC3339))
	if !record.FinishedAt().IsZero() {
		fmt.Fprintf(&buf, "**Duration**: %s\n", record.FinishedAt().Sub(record.StartedAt()).Round(time.Millisecond))
	}
	buf.WriteString("\n## Input\n\n")
	for line := range strings.SplitSeq(strings.TrimRight(record.Input(), "\n"), "\n") {
		buf.WriteString("> " + line + "\n")
	}

	buf.WriteString("\n## Output\n\n")
	buf.WriteString(strings.TrimRight(record.Output(), "\n"))
	buf.WriteString("\n")

	if record.Status() == models.StatusFailed {
		fmt.Fprintf(&buf, "\n**Error**: %s\n", record.ErrorText())
	}
	return buf.Bytes(), nil
}

// ExportToJSON encodes the record as indented JSON.
func ExportToJSON(record *models.RunRecord) ([]byte, error) {
	data, err := json.MarshalIndent(NewRunExport(record), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode run: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportHistoryCSV lists records with columns: Sequence, ID, Operation, Target, Status, Started, Output, Error
func ExportHistoryCSV(records []*models.RunRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Sequence", "ID", "Operation", "Target", "Status", "Started", "Output", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range records {
		row := []string{
			strconv.Itoa(r.Sequence()),
			r.ID(),
			r.Kind().String(),
			r.TargetLanguage().String(),
			r.Status().String(),
			r.StartedAt().UTC().Format(time.RFC3339),
			r.Output(),
			r.ErrorText(),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteExport writes record to path, creating parent directories.
//
// Defaults to run-{sequence} with the format's extension when path is empty.
func WriteExport(record *models.RunRecord, format Format, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("run-%d%s", record.Sequence(), Extension(format))
	}

	data, err := Export(record, format)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

// Extension returns the file extension for format.
func Extension(format Format) string {
	switch format {
	case Markdown:
		return ".md"
	case JSON:
		return ".json"
	default:
		return ".txt"
	}
}

func title(record *models.RunRecord) string {
	if record.Kind() == models.Translate {
		return fmt.Sprintf("%s to %s", record.Kind().Label(), record.TargetLanguage().Label())
	}
	return record.Kind().Label()
}
