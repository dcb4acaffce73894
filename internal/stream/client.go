// Package stream runs text operations over Server-Sent Events channels.
//
// A [Client] holds at most one active run. Every state change is tagged with the run's
// generation; changes from a channel that was superseded or reset are dropped, so stale
// fragments can never reach the output.
package stream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/scribe/internal/credentials"
	"github.com/desertthunder/scribe/internal/models"
	"github.com/desertthunder/scribe/internal/services"
	"github.com/desertthunder/scribe/internal/shared"
)

const (
	// DefaultIdleTimeout fails a run when the server sends nothing for this long.
	DefaultIdleTimeout = 2 * time.Minute
	// DefaultBufferSize is the capacity of the updates channel.
	DefaultBufferSize = 64

	// EventDone ends a run successfully.
	EventDone = "done"

	maxErrorBody = 64 << 10
)

// CredentialSource yields the current, in-sync credential.
type CredentialSource interface {
	Current() (string, *credentials.Claims, error)
}

// Recorder receives every run once it reaches a terminal state.
type Recorder interface {
	RecordRun(run models.Run) error
}

// Update is published after every state change.
type Update struct {
	Run models.Run
}

// Client is the streaming operation client.
type Client struct {
	store      CredentialSource
	httpClient *http.Client
	baseURL    string
	logger     *log.Logger
	recorder   Recorder
	idle       time.Duration
	limiter    *rate.Limiter
	now        func() time.Time
	updates    chan Update

	mu     sync.Mutex
	gen    uint64
	run    models.Run
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a [Client].
type Option func(*Client)

// WithLogger sets the client's logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRecorder stores terminal runs, e.g. in the local history.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithIdleTimeout sets how long a channel may stay silent. Zero disables the timeout.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.idle = d
		}
	}
}

// WithRateLimit caps how many channels are opened per second. Zero disables the limit.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			c.limiter = nil
		}
	}
}

// WithBufferSize sets the capacity of the updates channel.
func WithBufferSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.updates = make(chan Update, n)
		}
	}
}

// WithClock sets the clock used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a client that opens channels under baseURL with httpClient.
//
// httpClient should carry the cookie jar the credential store writes to.
func NewClient(store CredentialSource, httpClient *http.Client, baseURL string, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		store:      store,
		httpClient: httpClient,
		baseURL:    baseURL,
		logger:     log.Default(),
		idle:       DefaultIdleTimeout,
		now:        time.Now,
		updates:    make(chan Update, DefaultBufferSize),
		run:        models.Run{Status: models.StatusIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Updates returns the channel of state changes.
//
// Sends never block; a slow reader misses intermediate updates but every update
// carries the full output so far.
func (c *Client) Updates() <-chan Update { return c.updates }

// Snapshot returns the current run.
func (c *Client) Snapshot() models.Run {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run
}

// Run starts req and returns its ID without waiting for the channel.
//
// Empty text is a no-op that returns "". Invalid requests and missing or invalid
// credentials fail the run before any request is made. Callers observe the outcome
// through [Client.Snapshot], [Client.Updates] or [Client.Wait].
func (c *Client) Run(ctx context.Context, req models.Request) string {
	if req.Text == "" {
		c.logger.Debug("ignoring empty input", "kind", req.Kind)
		return ""
	}

	id := shared.GenerateID()

	if err := req.Validate(); err != nil {
		c.reject(id, req, shared.NewDisplayError(shared.ErrInvalidRequest, err.Error()))
		return id
	}

	if _, _, err := c.store.Current(); err != nil {
		c.reject(id, req, err)
		return id
	}

	runCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.supersedeLocked()
	c.cancel = cancel
	c.done = make(chan struct{})
	c.run = models.Run{ID: id, Request: req, Status: models.StatusPending, StartedAt: c.now()}
	snap := c.run
	c.mu.Unlock()

	c.publish(snap)
	go c.read(runCtx, gen, snap.ID, req)
	return id
}

// reject installs a run that failed before any channel was opened.
func (c *Client) reject(id string, req models.Request, err error) {
	c.logger.Warn("run rejected", "run", id, "kind", req.Kind, "error", err)
	now := c.now()

	c.mu.Lock()
	c.gen++
	c.supersedeLocked()
	c.run = models.Run{ID: id, Request: req, Status: models.StatusFailed, Err: err, StartedAt: now, FinishedAt: now}
	snap := c.run
	c.mu.Unlock()

	c.publish(snap)
}

// Reset closes any open channel and returns the client to idle.
func (c *Client) Reset() {
	c.mu.Lock()
	c.gen++
	c.supersedeLocked()
	c.run = models.Run{Status: models.StatusIdle}
	snap := c.run
	c.mu.Unlock()

	c.publish(snap)
}

// ResetOutput clears the output and error. The current run keeps streaming.
func (c *Client) ResetOutput() {
	c.mu.Lock()
	c.run.Output = ""
	c.run.Err = nil
	snap := c.run
	c.mu.Unlock()

	c.publish(snap)
}

// Wait blocks until the current run is terminal, superseded or reset, or ctx ends.
func (c *Client) Wait(ctx context.Context) (models.Run, error) {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		}
	}
	return c.Snapshot(), nil
}

// supersedeLocked cancels the current channel and releases its waiters. c.mu must be held.
func (c *Client) supersedeLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
}

// apply runs fn against the current run if gen is still current and the run is not
// yet terminal. It reports whether fn ran.
func (c *Client) apply(gen uint64, fn func(r *models.Run)) bool {
	c.mu.Lock()
	if gen != c.gen || c.run.Status.Terminal() {
		c.mu.Unlock()
		return false
	}

	fn(&c.run)
	snap := c.run
	terminal := snap.Status.Terminal()
	var done chan struct{}
	if terminal {
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
		done, c.done = c.done, nil
	}
	c.mu.Unlock()

	c.publish(snap)
	if terminal {
		// waiters see the run only once it is in history
		c.record(snap)
		if done != nil {
			close(done)
		}
	}
	return true
}

func (c *Client) publish(run models.Run) {
	select {
	case c.updates <- Update{Run: run}:
	default:
	}
}

func (c *Client) record(run models.Run) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.RecordRun(run); err != nil {
		c.logger.Error("failed to record run", "run", run.ID, "error", err)
	}
}

func (c *Client) fail(gen uint64, err error) bool {
	return c.apply(gen, func(r *models.Run) {
		r.Status = models.StatusFailed
		r.Err = err
		r.FinishedAt = c.now()
	})
}

func (c *Client) complete(gen uint64) bool {
	return c.apply(gen, func(r *models.Run) {
		r.Status = models.StatusCompleted
		r.FinishedAt = c.now()
	})
}

func (c *Client) appendFragment(gen uint64, text string) bool {
	return c.apply(gen, func(r *models.Run) {
		r.Output += text
		r.Fragments++
		r.Status = models.StatusStreaming
	})
}

// read owns one channel from open to close.
func (c *Client) read(ctx context.Context, gen uint64, id string, req models.Request) {
	logger := c.logger.With("run", id, "kind", req.Kind)

	// Canceled by supersede or Reset: gen is already stale and every apply is a no-op.
	// Canceled by the caller: the run is still current and fails.
	canceled := func() {
		c.fail(gen, shared.NewDisplayError(shared.ErrStreamFailed, shared.MsgCanceled))
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			canceled()
			return
		}
	}

	target, err := BuildURL(c.baseURL, req)
	if err != nil {
		logger.Error("invalid channel url", "error", err)
		c.fail(gen, shared.NewDisplayError(shared.ErrChannelSetupFailed, shared.MsgUnexpected))
		return
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		logger.Error("failed to create request", "error", err)
		c.fail(gen, shared.NewDisplayError(shared.ErrChannelSetupFailed, shared.MsgUnexpected))
		return
	}
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			canceled()
			return
		}
		logger.Warn("channel setup failed", "error", err)
		c.fail(gen, shared.NewDisplayError(shared.ErrChannelSetupFailed, shared.MsgUnexpected))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := services.ErrorMessage(body)
		if msg == "" {
			msg = shared.MsgRequestError
		}
		logger.Warn("channel rejected", "status", resp.StatusCode, "message", msg)
		c.fail(gen, shared.NewDisplayError(shared.ErrChannelSetupFailed, msg))
		return
	}

	logger.Debug("channel open", "status", resp.StatusCode)

	var stalled atomic.Bool
	var timer *time.Timer
	if c.idle > 0 {
		timer = time.AfterFunc(c.idle, func() {
			stalled.Store(true)
			resp.Body.Close()
		})
		defer timer.Stop()
	}

	scanner := NewScanner(resp.Body)
	for scanner.Next() {
		if timer != nil {
			timer.Reset(c.idle)
		}

		event := scanner.Event()
		switch event.Type {
		case EventDone:
			if c.complete(gen) {
				logger.Debug("run completed")
			}
			return
		case "", "message":
			frag := ParseFragment(event.Data)
			if frag.Failed {
				msg := frag.Err
				if msg == "" {
					msg = shared.MsgProcessingError
				}
				logger.Warn("backend reported an error", "message", msg)
				c.fail(gen, shared.NewDisplayError(shared.ErrStreamFailed, msg))
				return
			}
			if frag.Fallback {
				logger.Debug("fragment is not framed, using raw data", "bytes", len(frag.Text))
			}
			if !c.appendFragment(gen, frag.Text) {
				return
			}
		default:
			logger.Debug("ignoring event", "type", event.Type)
		}
	}

	switch {
	case ctx.Err() != nil:
		canceled()
	case stalled.Load():
		logger.Warn("channel idle timeout", "after", c.idle)
		c.fail(gen, shared.NewDisplayError(shared.ErrStreamFailed, shared.MsgStalledStream))
	default:
		if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
			logger.Warn("channel read failed", "error", err)
		} else {
			logger.Warn("channel closed without done event")
		}
		c.fail(gen, shared.NewDisplayError(shared.ErrStreamFailed, shared.MsgProcessingError))
	}
}
