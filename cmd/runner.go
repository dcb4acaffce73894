package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/scribe/internal/credentials"
	"github.com/desertthunder/scribe/internal/editor"
	"github.com/desertthunder/scribe/internal/repositories"
	"github.com/desertthunder/scribe/internal/services"
	"github.com/desertthunder/scribe/internal/session"
	"github.com/desertthunder/scribe/internal/shared"
	"github.com/desertthunder/scribe/internal/stream"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The credential store, session and streaming client are built on first use so that
// commands like setup and serve never touch the database, and so the TUI can swap the
// logger before anything captures it.
type Runner struct {
	config     *shared.Config
	configPath string
	baseURL    string
	db         *sql.DB
	ownsDB     bool
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	input      io.Reader
	env        *environment
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	BaseURL    string
	DB         *sql.DB
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
}

// environment is the wired client stack shared by the text, auth, history and tui commands.
type environment struct {
	store      *credentials.Store
	session    *session.Manager
	api        *services.APIService
	stream     *stream.Client
	controller *editor.Controller
	runs       *repositories.RunRepository
	prefs      *repositories.KeyValueRepository
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.BaseURL == "" {
		opts.BaseURL = opts.Config.APIURL(defaultAPIURL)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		baseURL:    opts.BaseURL,
		db:         opts.DB,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
	}
}

// SetLogger replaces the runner's logger. It only affects components built afterwards.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Close releases the database if the runner opened it.
func (r *Runner) Close() error {
	if r.ownsDB && r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, textCommand, historyCommand, apiCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// open wires the client stack, opening and migrating the database when none was injected.
func (r *Runner) open() (*environment, error) {
	if r.env != nil {
		return r.env, nil
	}

	if r.db == nil {
		db, err := shared.NewDatabase(r.config.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
		if err := shared.RunMigrations(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		r.db, r.ownsDB = db, true
	}

	scope, err := credentials.ScopeFor(r.baseURL, r.config.Credentials.Cookie)
	if err != nil {
		return nil, err
	}
	jar, err := credentials.NewJar()
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	store := credentials.NewStore(
		repositories.NewCredentialRepository(r.db), jar, scope,
		credentials.WithLogger(shared.WithLogger(r.logger, "component", "credentials")),
	)

	apiClient := &http.Client{Jar: jar, Transport: r.httpClient.Transport, Timeout: 30 * time.Second}
	streamClient := &http.Client{Jar: jar, Transport: r.httpClient.Transport}

	api := services.NewAPIService(r.baseURL, apiClient)
	runs := repositories.NewRunRepository(r.db)

	client := stream.NewClient(store, streamClient, r.baseURL,
		stream.WithLogger(shared.WithLogger(r.logger, "component", "stream")),
		stream.WithRecorder(repositories.NewRunRecorder(runs)),
		stream.WithIdleTimeout(r.config.Stream.IdleTimeout.Duration),
		stream.WithRateLimit(r.config.Stream.RateLimit),
		stream.WithBufferSize(r.config.Stream.Buffer),
	)

	r.env = &environment{
		store:      store,
		session:    session.New(store, api, shared.WithLogger(r.logger, "component", "session")),
		api:        api,
		stream:     client,
		controller: editor.NewController(client, shared.WithLogger(r.logger, "component", "editor")),
		runs:       runs,
		prefs:      repositories.NewPreferenceRepository(r.db),
	}
	return r.env, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
