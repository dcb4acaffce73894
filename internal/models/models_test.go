package models

import (
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/scribe/internal/shared"
)

func TestRequest(t *testing.T) {
	tc := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{name: "expand", req: NewRequest(Expand, "hello")},
		{name: "translate with target", req: NewTranslation("hola", English)},
		{name: "unknown kind", req: Request{Kind: "shout", Text: "hi"}, wantErr: true},
		{name: "empty text", req: NewRequest(Summarize, ""), wantErr: true},
		{name: "translate without target", req: Request{Kind: Translate, Text: "hi"}, wantErr: true},
		{name: "target on non-translate", req: Request{Kind: Paraphrase, Text: "hi", TargetLanguage: Spanish}, wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidRequest) {
					t.Errorf("expected ErrInvalidRequest, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestParse(t *testing.T) {
	t.Run("ParseKind", func(t *testing.T) {
		k, err := ParseKind(" Summarize ")
		if err != nil || k != Summarize {
			t.Errorf("ParseKind() = %v, %v", k, err)
		}
		if _, err := ParseKind("rewrite"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("ParseLanguage", func(t *testing.T) {
		l, err := ParseLanguage("SPANISH")
		if err != nil || l != Spanish {
			t.Errorf("ParseLanguage() = %v, %v", l, err)
		}
		if _, err := ParseLanguage("klingon"); err == nil {
			t.Error("expected error for unsupported language")
		}
		if English.Next() != Spanish || Spanish.Next() != English {
			t.Error("Next() should cycle between english and spanish")
		}
	})

	t.Run("Label", func(t *testing.T) {
		if Paraphrase.Label() != "Paraphrase" {
			t.Errorf("Label() = %q", Paraphrase.Label())
		}
	})
}

func TestStatus(t *testing.T) {
	if !StatusCompleted.Terminal() || !StatusFailed.Terminal() {
		t.Error("completed and failed should be terminal")
	}
	if StatusStreaming.Terminal() || StatusIdle.Terminal() {
		t.Error("streaming and idle should not be terminal")
	}
	if !StatusPending.Active() || !StatusStreaming.Active() || StatusIdle.Active() {
		t.Error("only pending and streaming are active")
	}
}

func TestRunRecord(t *testing.T) {
	start := time.Now().Add(-time.Second)
	run := Run{
		ID:         "run-1",
		Request:    NewTranslation("hola", English),
		Status:     StatusFailed,
		Output:     "hel",
		Err:        shared.NewDisplayError(shared.ErrStreamFailed, shared.MsgProcessingError),
		StartedAt:  start,
		FinishedAt: start.Add(500 * time.Millisecond),
	}

	record := NewRunRecord(3, run)
	if err := record.Validate(); err != nil {
		t.Fatalf("expected valid record, got %v", err)
	}
	if record.ErrorText() != shared.MsgProcessingError {
		t.Errorf("ErrorText() = %q", record.ErrorText())
	}
	if record.Request() != run.Request {
		t.Errorf("Request() = %+v, want %+v", record.Request(), run.Request)
	}
	if run.Duration() != 500*time.Millisecond {
		t.Errorf("Duration() = %v", run.Duration())
	}

	record.SetStatus(StatusStreaming, "")
	if err := record.Validate(); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("expected non-terminal status to fail validation, got %v", err)
	}
}
