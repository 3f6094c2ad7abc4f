package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/justyntemme/filepane/internal/debug"
	"github.com/justyntemme/filepane/internal/fs"
	"github.com/justyntemme/filepane/internal/metrics"
)

// Wire types of the HTTP store API, shared with internal/server.
type (
	EntriesResponse struct {
		Path    string     `json:"path"`
		Version uint64     `json:"version"`
		Entries []fs.Entry `json:"entries"`
	}

	WriteRequest struct {
		Entries []fs.Entry `json:"entries"`
		Version *uint64    `json:"version,omitempty"`
	}

	ErrorResponse struct {
		Error string `json:"error"`
	}
)

// API routes served by internal/server.
const (
	RouteEntries = "/api/v1/entries"
	RouteInit    = "/api/v1/init"
)

const defaultUpdateAttempts = 5

// Remote implements Store against a filepane server. Update runs as an
// optimistic read / conditional write loop.
type Remote struct {
	base     string
	client   *http.Client
	attempts int
}

// NewRemote returns a client for the server at baseURL. A nil client uses a
// default with a 10 second timeout.
func NewRemote(baseURL string, client *http.Client) (*Remote, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("remote store: invalid base URL %q", baseURL)
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Remote{
		base:     strings.TrimRight(baseURL, "/"),
		client:   client,
		attempts: defaultUpdateAttempts,
	}, nil
}

func (r *Remote) EnsureInitialized(ctx context.Context) error {
	resp, err := r.do(ctx, http.MethodPost, RouteInit, "", nil)
	if err != nil {
		return &Error{Op: "init", Err: err}
	}
	defer resp.Body.Close()
	return r.check(resp, "init", "")
}

func (r *Remote) Read(ctx context.Context, path string) ([]fs.Entry, error) {
	entries, _, err := r.ReadVersion(ctx, path)
	return entries, err
}

func (r *Remote) ReadVersion(ctx context.Context, path string) ([]fs.Entry, uint64, error) {
	resp, err := r.do(ctx, http.MethodGet, RouteEntries, path, nil)
	if err != nil {
		return nil, 0, &Error{Op: "read", Path: path, Err: err}
	}
	defer resp.Body.Close()

	if err := r.check(resp, "read", path); err != nil {
		return nil, 0, err
	}

	var out EntriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, 0, &Error{Op: "read", Path: path, Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.Entries == nil {
		out.Entries = []fs.Entry{}
	}
	return out.Entries, out.Version, nil
}

func (r *Remote) Write(ctx context.Context, path string, entries []fs.Entry) error {
	return r.put(ctx, path, WriteRequest{Entries: entries})
}

func (r *Remote) WriteIfVersion(ctx context.Context, path string, version uint64, entries []fs.Entry) error {
	return r.put(ctx, path, WriteRequest{Entries: entries, Version: &version})
}

func (r *Remote) Update(ctx context.Context, path string, fn UpdateFunc) error {
	for attempt := 1; attempt <= r.attempts; attempt++ {
		entries, version, err := r.ReadVersion(ctx, path)
		if err != nil {
			return err
		}
		next, err := fn(entries)
		if err != nil {
			return err
		}

		err = r.WriteIfVersion(ctx, path, version, next)
		if !errors.Is(err, ErrConflict) {
			return err
		}
		metrics.RecordRemoteRetry()
		debug.Log(debug.STORE, "remote update %s: conflict on attempt %d", path, attempt)
	}
	return fmt.Errorf("update %s: gave up after %d attempts: %w", path, r.attempts, ErrConflict)
}

func (r *Remote) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

func (r *Remote) put(ctx context.Context, path string, req WriteRequest) error {
	if req.Entries == nil {
		req.Entries = []fs.Entry{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return &Error{Op: "write", Path: path, Err: err}
	}

	resp, err := r.do(ctx, http.MethodPut, RouteEntries, path, body)
	if err != nil {
		return &Error{Op: "write", Path: path, Err: err}
	}
	defer resp.Body.Close()
	return r.check(resp, "write", path)
}

func (r *Remote) do(ctx context.Context, method, route, path string, body []byte) (*http.Response, error) {
	target := r.base + route
	if path != "" {
		target += "?path=" + url.QueryEscape(path)
	}

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return r.client.Do(req)
}

// check maps a non-2xx response to an error.
func (r *Remote) check(resp *http.Response, op, path string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg := resp.Status
	var er ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&er); err == nil && er.Error != "" {
		msg = er.Error
	}

	if resp.StatusCode == http.StatusConflict {
		return fmt.Errorf("%s %s: %s: %w", op, path, msg, ErrConflict)
	}
	return &Error{Op: op, Path: path, Err: fmt.Errorf("server returned %d: %s", resp.StatusCode, msg)}
}
