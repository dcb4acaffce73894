// Package editor maps editor actions onto operation requests.
//
// The controller reads the document's selection, picks the request kind and hands it
// to the streaming client. Translate is two-step: the first call opens the target
// selector, the second submits with the chosen target.
package editor

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/scribe/internal/models"
)

// Runner is the streaming client as seen by the controller.
type Runner interface {
	Run(ctx context.Context, req models.Request) string
	Reset()
	ResetOutput()
	Snapshot() models.Run
}

// Controller is the Operation Controller.
type Controller struct {
	runner Runner
	logger *log.Logger

	mu       sync.Mutex
	target   models.Language
	choosing bool
}

// NewController creates a controller with English as the translation target.
func NewController(runner Runner, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{runner: runner, logger: logger, target: models.English}
}

// Enabled reports whether operations can be invoked for doc: text is present and no
// run is in progress.
func (c *Controller) Enabled(doc Document) bool {
	return doc.Text != "" && !c.runner.Snapshot().Processing()
}

// Invoke runs a non-translate operation on doc's input and returns the run ID, or ""
// when nothing was started.
func (c *Controller) Invoke(ctx context.Context, kind models.Kind, doc Document) string {
	if kind == models.Translate {
		return c.Translate(ctx, doc)
	}
	if !c.Enabled(doc) {
		return ""
	}

	c.runner.ResetOutput()
	input := doc.Input()
	if input == "" {
		return ""
	}

	c.logger.Debug("invoking operation", "kind", kind, "selection", doc.Selection() != "")
	return c.runner.Run(ctx, models.NewRequest(kind, input))
}

// Translate opens the target selector on the first call and submits on the second.
func (c *Controller) Translate(ctx context.Context, doc Document) string {
	c.mu.Lock()
	if !c.choosing {
		if doc.Text != "" && !c.runner.Snapshot().Processing() {
			c.choosing = true
		}
		c.mu.Unlock()
		return ""
	}
	target := c.target
	c.mu.Unlock()

	if !c.Enabled(doc) {
		return ""
	}

	c.runner.ResetOutput()
	input := doc.Input()
	if input == "" {
		return ""
	}

	id := c.runner.Run(ctx, models.NewTranslation(input, target))

	c.mu.Lock()
	c.choosing = false
	c.mu.Unlock()

	c.logger.Debug("submitted translation", "target", target)
	return id
}

// Cancel aborts the current run and closes the target selector.
func (c *Controller) Cancel() {
	c.mu.Lock()
	c.choosing = false
	c.mu.Unlock()
	c.runner.Reset()
}

// Choosing reports whether the target selector is open.
func (c *Controller) Choosing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.choosing
}

// Target returns the translation target.
func (c *Controller) Target() models.Language {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

// SetTarget sets the translation target. Unknown languages are ignored.
func (c *Controller) SetTarget(l models.Language) {
	if !l.Valid() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = l
}

// CycleTarget switches to the next target language and returns it.
func (c *Controller) CycleTarget() models.Language {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = c.target.Next()
	return c.target
}
