package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/scribe/internal/services"
	"github.com/desertthunder/scribe/internal/shared"
)

// authorizedAPI returns an [services.APIService] that sends the stored token as a Bearer header.
func (r *Runner) authorizedAPI(ctx context.Context) (*services.APIService, error) {
	env, err := r.open()
	if err != nil {
		return nil, err
	}
	if err := env.session.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}
	if _, _, err := env.store.Current(); err != nil {
		return nil, err
	}

	base := &http.Client{Transport: r.httpClient.Transport, Timeout: 30 * time.Second}
	return env.api.WithClient(services.NewAuthorizedClient(env.store, base)), nil
}

// APIGet makes an authorized GET request to the backend
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	api, err := r.authorizedAPI(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("GET request", "path", path)

	resp, err := api.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	if !resp.OK() {
		return services.NewAPIError(resp.StatusCode, resp.Body)
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, cmd.Bool("pretty"))
	}

	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}

// APIPost makes an authorized POST request with a JSON body
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	data := cmd.String("data")

	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}
	if data == "" {
		return fmt.Errorf("%w: --data flag is required", shared.ErrMissingArgument)
	}

	var jsonTest any
	if err := json.Unmarshal([]byte(data), &jsonTest); err != nil {
		return fmt.Errorf("%w: data is not valid JSON: %v", shared.ErrInvalidInput, err)
	}

	api, err := r.authorizedAPI(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("POST request", "path", path)

	resp, err := api.Post(ctx, path, []byte(data))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	if !resp.OK() {
		return services.NewAPIError(resp.StatusCode, resp.Body)
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, true)
	}

	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}
