package docstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
)

// HTTPStore talks to the key-value JSON API: GET and POST on base URL +
// "/" + resource, authenticated by a static `token` header.
//
// The API may or may not return ETags. When it does, writes carry If-Match
// (or If-None-Match: * for a first write) and a 412 response is reported as
// ErrVersionConflict.
type HTTPStore struct {
	baseURL string
	token   string
	client  *http.Client
	etags   atomic.Bool
}

// NewHTTPStore creates a KV client. A nil client falls back to http.DefaultClient;
// deadlines come from the caller's context.
func NewHTTPStore(baseURL, token string, client *http.Client) *HTTPStore {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
	}
}

func (s *HTTPStore) Name() string { return "kv" }

// Conditional is true once the API has been seen returning ETags.
func (s *HTTPStore) Conditional() bool { return s.etags.Load() }

func (s *HTTPStore) url(resource string) string {
	return s.baseURL + "/" + strings.TrimLeft(resource, "/")
}

func (s *HTTPStore) Get(ctx context.Context, resource string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url(resource), nil)
	if err != nil {
		return nil, fmt.Errorf("build get %s: %w", resource, err)
	}
	req.Header.Set("token", s.token)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", resource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError("get "+resource, resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", resource, err)
	}
	etag := resp.Header.Get("ETag")
	if etag != "" {
		s.etags.Store(true)
	}
	return &Document{Body: body, Version: etag}, nil
}

func (s *HTTPStore) Put(ctx context.Context, resource string, body []byte, cond Condition) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url(resource), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build post %s: %w", resource, err)
	}
	req.Header.Set("token", s.token)
	req.Header.Set("Content-Type", "application/json")
	if cond.IfMatch != "" {
		req.Header.Set("If-Match", cond.IfMatch)
	} else if cond.IfAbsent && s.etags.Load() {
		req.Header.Set("If-None-Match", "*")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("post %s: %w", resource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusPreconditionFailed {
		return "", ErrVersionConflict
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", statusError("post "+resource, resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Header.Get("ETag"), nil
}

// statusError drains a short prefix of the body into a StatusError.
func statusError(op string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
}

// IsStatus reports whether err is a StatusError with the given status.
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}
