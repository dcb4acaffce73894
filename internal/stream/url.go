package stream

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/scribe/internal/models"
	"github.com/desertthunder/scribe/internal/shared"
)

// OperationPath is the endpoint prefix for streaming operations.
const OperationPath = "/api/text/"

// BuildURL returns the channel URL for req under baseURL.
//
// Query values are percent-encoded with spaces as %20.
func BuildURL(baseURL string, req models.Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("%w: base url %q", shared.ErrInvalidConfig, baseURL)
	}

	query := "text=" + escape(req.Text)
	if req.Kind == models.Translate {
		query += "&target_language=" + escape(string(req.TargetLanguage))
	}

	base.Path += OperationPath + string(req.Kind)
	base.RawQuery = query
	return base.String(), nil
}

// escape percent-encodes s the way encodeURIComponent does for '+' and space.
// QueryEscape already turns a literal '+' into %2B, so every remaining '+' is a space.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
