// Package fetch talks to the GBIF species API and persists raw payloads into
// the staging area. It knows nothing about the canonical record shape; the
// transform stage owns that mapping.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"animalia/internal/staging"
)

// Error is a per-species fetch failure: network error, non-2xx status,
// undecodable body or an unknown species.
type Error struct {
	Species string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %q: %v", e.Species, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Client fetches species data from GBIF.
type Client struct {
	BaseURL string
	RawDir  string
	HTTP    *http.Client
	Log     *zap.Logger
}

// New creates a GBIF client with a per-request timeout.
func New(baseURL, rawDir string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		BaseURL: baseURL,
		RawDir:  rawDir,
		HTTP:    &http.Client{Timeout: timeout},
		Log:     log,
	}
}

// SpeciesDetail resolves a species name to its GBIF usage key, downloads the
// full taxon detail and writes it to the raw staging file. It returns the
// path of the written file.
//
// Two requests per species: GET /species/search?q=<name>&limit=1 to find the
// usage key, then GET /species/<key> for the detail payload.
func (c *Client) SpeciesDetail(ctx context.Context, species string) (string, error) {
	c.Log.Info("searching GBIF", zap.String("species", species))

	key, err := c.searchUsageKey(ctx, species)
	if err != nil {
		return "", &Error{Species: species, Err: err}
	}
	c.Log.Info("species resolved", zap.String("species", species), zap.Int64("usageKey", key))

	detail, err := c.getJSON(ctx, fmt.Sprintf("%s/species/%d", c.BaseURL, key))
	if err != nil {
		return "", &Error{Species: species, Err: err}
	}

	var payload map[string]any
	if err := json.Unmarshal(detail, &payload); err != nil {
		return "", &Error{Species: species, Err: fmt.Errorf("decode detail: %w", err)}
	}

	path := staging.RawFile(c.RawDir, species)
	if err := staging.WriteJSON(path, payload); err != nil {
		return "", &Error{Species: species, Err: err}
	}

	c.Log.Info("raw payload saved", zap.String("species", species), zap.String("path", path))
	return path, nil
}

// SpeciesDetailAll fetches every species in the list. Failures are logged and
// skipped so one unknown or unreachable species does not kill the batch; the
// returned map holds the staging path per species that succeeded.
func (c *Client) SpeciesDetailAll(ctx context.Context, species []string) map[string]string {
	paths := make(map[string]string, len(species))
	for _, name := range species {
		path, err := c.SpeciesDetail(ctx, name)
		if err != nil {
			c.Log.Error("species skipped", zap.String("species", name), zap.Error(err))
			continue
		}
		paths[name] = path
	}
	return paths
}

func (c *Client) searchUsageKey(ctx context.Context, species string) (int64, error) {
	u, err := url.Parse(c.BaseURL + "/species/search")
	if err != nil {
		return 0, fmt.Errorf("base url: %w", err)
	}
	q := u.Query()
	q.Set("q", species)
	q.Set("limit", "1")
	u.RawQuery = q.Encode()

	body, err := c.getJSON(ctx, u.String())
	if err != nil {
		return 0, err
	}

	var sr struct {
		Results []struct {
			Key int64 `json:"key"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &sr); err != nil {
		return 0, fmt.Errorf("decode search: %w", err)
	}
	if len(sr.Results) == 0 {
		return 0, fmt.Errorf("no GBIF match")
	}
	return sr.Results[0].Key, nil
}

// getJSON issues a GET and returns the body for any 2xx response.
func (c *Client) getJSON(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
