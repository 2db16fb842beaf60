// Package storage fetches source document bytes by object key.
//
// Two implementations exist: a local upload directory (the default for
// single-host deployments and tests) and an HTTP object store fronted
// by a base URL. Both honor bounded timeouts via context / client
// configuration.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotFound is returned when the object key does not resolve to a
// stored document.
var ErrNotFound = errors.New("storage: object not found")

// Fetcher retrieves the full byte content of a stored document.
type Fetcher interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// DirStore serves documents from a local directory. Keys are relative
// paths under the root.
type DirStore struct {
	root string
}

// NewDirStore creates a DirStore rooted at dir, creating it if missing.
func NewDirStore(dir string) (*DirStore, error) {
	if dir == "" {
		return nil, errors.New("storage dir is empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &DirStore{root: dir}, nil
}

// Fetch reads the document at key.
func (d *DirStore) Fetch(_ context.Context, key string) ([]byte, error) {
	path, err := d.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return data, err
}

// Put stores document bytes under key and returns the key. Used by the
// upload API and the enqueue CLI command.
func (d *DirStore) Put(key string, data []byte) (string, error) {
	path, err := d.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return key, nil
}

// resolve maps a key to an on-disk path, rejecting escapes from root.
func (d *DirStore) resolve(key string) (string, error) {
	if key == "" {
		return "", errors.New("object key is empty")
	}
	clean := filepath.Clean("/" + key)
	if strings.Contains(clean, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(d.root, clean), nil
}

// HTTPStore fetches documents from an HTTP object store.
type HTTPStore struct {
	baseURL string
	client  *http.Client
}

// NewHTTPStore creates an HTTPStore for the given base URL with a
// bounded per-request timeout.
func NewHTTPStore(baseURL string, timeout time.Duration) *HTTPStore {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Fetch downloads the document at baseURL/key.
func (h *HTTPStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errors.New("object key is empty")
	}

	url := h.baseURL + "/" + strings.TrimLeft(key, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return io.ReadAll(resp.Body)
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	default:
		return nil, fmt.Errorf("storage fetch %s: %s", key, resp.Status)
	}
}
