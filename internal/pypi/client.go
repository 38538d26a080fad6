// SPDX-License-Identifier: MPL-2.0

// Package pypi is a minimal client for the PyPI JSON API. It exposes exactly
// the two operations the reconciler needs: fetching a project's release
// listing and streaming an artifact download. There is no retry or backoff;
// a failed request propagates immediately to the caller.
package pypi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	// maxJSONResponseBytes is the upper bound on JSON API response size (30 MB).
	// Prevents unbounded memory consumption from malformed responses; projects
	// with very long release histories stay well under this.
	maxJSONResponseBytes = 30 << 20

	// PackageTypeWheel is the packagetype value for a prebuilt binary wheel.
	PackageTypeWheel = "bdist_wheel"
	// PackageTypeSourceDist is the packagetype value for a source distribution.
	PackageTypeSourceDist = "sdist"
)

// ErrProjectNotFound is returned when the index has no project with the
// requested name.
var ErrProjectNotFound = errors.New("project not found")

type (
	// ReleaseFile is one published artifact within a release.
	ReleaseFile struct {
		Filename    string `json:"filename"`
		PackageType string `json:"packagetype"`
		URL         string `json:"url"`
		Size        int64  `json:"size"`
	}

	// Release is one published version together with its artifact files.
	Release struct {
		Version string
		Files   []ReleaseFile
	}

	// Project is a project's full publication history. Releases preserve the
	// index's own enumeration order.
	Project struct {
		Name     string
		Releases []Release
	}

	// Client queries the PyPI JSON API.
	Client struct {
		httpClient *http.Client
		baseURL    string // API base URL (default: "https://pypi.org", overridable for tests)
		userAgent  string // User-Agent header value
	}

	// ClientOption configures a Client during construction.
	ClientOption func(*Client)
)

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy
// configurations.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(p *Client) {
		p.httpClient = c
	}
}

// WithBaseURL overrides the index base URL, primarily for test servers.
func WithBaseURL(base string) ClientOption {
	return func(p *Client) {
		p.baseURL = strings.TrimRight(base, "/")
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(p *Client) {
		p.userAgent = ua
	}
}

// NewClient creates a Client with sensible defaults.
// Defaults: baseURL="https://pypi.org", userAgent="wheelsmith/dev",
// httpClient=http.DefaultClient.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		baseURL:    "https://pypi.org",
		userAgent:  "wheelsmith/dev",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Project fetches the publication history for the named project from
// GET {base}/pypi/{name}/json. Returns ErrProjectNotFound on 404.
func (c *Client) Project(ctx context.Context, name string) (*Project, error) {
	reqURL := fmt.Sprintf("%s/pypi/%s/json", c.baseURL, url.PathEscape(name))

	resp, err := c.doRequest(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("fetching project %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("project %s: %w", name, ErrProjectNotFound)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching project %s: unexpected status %d", name, resp.StatusCode)
	}

	releases, err := parseReleases(io.LimitReader(resp.Body, maxJSONResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("fetching project %s: %w", name, err)
	}

	return &Project{Name: name, Releases: releases}, nil
}

// Download fetches the file at the given URL and returns the response body as
// a streaming reader. The caller is responsible for closing the returned
// ReadCloser.
func (c *Client) Download(ctx context.Context, fileURL string) (io.ReadCloser, error) {
	resp, err := c.doRequest(ctx, fileURL)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", redactURL(fileURL), err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("downloading %s: unexpected status %d", redactURL(fileURL), resp.StatusCode)
	}

	return resp.Body, nil
}

// doRequest creates and executes a GET request with common headers.
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	return resp, nil
}

// parseReleases decodes the "releases" object of a project response. A plain
// json.Unmarshal into a map would randomize release order, so the object is
// walked token by token to preserve the index's own enumeration order.
func parseReleases(body io.Reader) ([]Release, error) {
	dec := json.NewDecoder(body)

	// Advance to the value of the top-level "releases" key.
	if err := seekKey(dec, "releases"); err != nil {
		return nil, err
	}

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decoding releases: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("decoding releases: expected object, got %v", tok)
	}

	var releases []Release
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decoding release version: %w", err)
		}
		ver, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("decoding release version: unexpected token %v", keyTok)
		}

		var files []ReleaseFile
		if err := dec.Decode(&files); err != nil {
			return nil, fmt.Errorf("decoding files for release %s: %w", ver, err)
		}

		releases = append(releases, Release{Version: ver, Files: files})
	}

	return releases, nil
}

// seekKey advances the decoder inside the top-level object until the value of
// the named key is next, skipping the values of all other keys.
func seekKey(dec *json.Decoder, key string) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("decoding response: expected object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decoding response key: %w", err)
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("decoding response key: unexpected token %v", keyTok)
		}
		if name == key {
			return nil
		}
		// Skip this key's value wholesale.
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return fmt.Errorf("skipping key %s: %w", name, err)
		}
	}

	return fmt.Errorf("decoding response: missing %q object", key)
}

// redactURL strips query parameters and fragments from a URL for safe
// inclusion in error messages.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
