package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// GistStore uses one GitHub Gist as the database. Each resource is a file named
// "<resource>.json" inside the gist and writes replace the file content through
// PATCH /gists/{id}.
//
// The Gist API has no conditional PATCH. Put re-reads the gist revision before
// writing, which narrows the race window but does not close it, so Conditional
// reports false and cross-instance safety relies on running a single instance.
type GistStore struct {
	apiURL string
	gistID string
	token  string
	client *http.Client
}

type gistFile struct {
	Content   string `json:"content"`
	Truncated bool   `json:"truncated,omitempty"`
	RawURL    string `json:"raw_url,omitempty"`
}

type gistResponse struct {
	Files   map[string]*gistFile `json:"files"`
	History []struct {
		Version string `json:"version"`
	} `json:"history"`
	UpdatedAt string `json:"updated_at"`
}

type gistPatch struct {
	Files map[string]gistFile `json:"files"`
}

// NewGistStore creates a Gist-backed store. apiURL is normally https://api.github.com.
func NewGistStore(apiURL, gistID, token string, client *http.Client) *GistStore {
	if client == nil {
		client = http.DefaultClient
	}
	return &GistStore{
		apiURL: strings.TrimRight(apiURL, "/"),
		gistID: gistID,
		token:  token,
		client: client,
	}
}

func (s *GistStore) Name() string { return "gist" }

func (s *GistStore) Conditional() bool { return false }

func fileName(resource string) string { return resource + ".json" }

func (s *GistStore) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (s *GistStore) fetch(ctx context.Context) (*gistResponse, error) {
	req, err := s.newRequest(ctx, http.MethodGet, s.apiURL+"/gists/"+s.gistID, nil)
	if err != nil {
		return nil, fmt.Errorf("build gist get: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get gist: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError("get gist", resp)
	}

	var g gistResponse
	if err := json.NewDecoder(resp.Body).Decode(&g); err != nil {
		return nil, fmt.Errorf("decode gist: %w", err)
	}
	return &g, nil
}

func (g *gistResponse) version() string {
	if len(g.History) > 0 && g.History[0].Version != "" {
		return g.History[0].Version
	}
	return g.UpdatedAt
}

// fetchRaw loads file content that the API truncated in the gist listing.
func (s *GistStore) fetchRaw(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := s.newRequest(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build raw get: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get raw file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError("get raw file", resp)
	}
	return io.ReadAll(resp.Body)
}

func (s *GistStore) Get(ctx context.Context, resource string) (*Document, error) {
	g, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	f, ok := g.Files[fileName(resource)]
	if !ok || f == nil {
		return nil, ErrNotFound
	}

	body := []byte(f.Content)
	if f.Truncated && f.RawURL != "" {
		if body, err = s.fetchRaw(ctx, f.RawURL); err != nil {
			return nil, err
		}
	}
	return &Document{Body: body, Version: g.version()}, nil
}

func (s *GistStore) Put(ctx context.Context, resource string, body []byte, cond Condition) (string, error) {
	if !cond.IsZero() {
		g, err := s.fetch(ctx)
		if err != nil {
			return "", err
		}
		_, exists := g.Files[fileName(resource)]
		if cond.IfAbsent && exists {
			return "", ErrVersionConflict
		}
		if cond.IfMatch != "" && g.version() != cond.IfMatch {
			return "", ErrVersionConflict
		}
	}

	payload, err := json.Marshal(gistPatch{Files: map[string]gistFile{
		fileName(resource): {Content: string(body)},
	}})
	if err != nil {
		return "", fmt.Errorf("encode gist patch: %w", err)
	}

	req, err := s.newRequest(ctx, http.MethodPatch, s.apiURL+"/gists/"+s.gistID, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build gist patch: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("patch gist: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", statusError("patch gist", resp)
	}

	var g gistResponse
	if err := json.NewDecoder(resp.Body).Decode(&g); err != nil {
		// The write went through; only the new revision is unknown.
		return "", nil
	}
	return g.version(), nil
}
