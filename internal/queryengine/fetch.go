package queryengine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	searcherrors "github.com/mia-cx/docsearch/internal/errors"
)

// Fetcher retrieves the raw bytes at a URL, honoring ctx cancellation.
// The worker holds one Fetcher for its lifetime so a Reset can abort
// every in-flight request sharing its context.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// HTTPFetcher fetches over HTTP(S); a "file://" URL (or a bare local
// path) is read directly from disk, the common case for a personal
// docs-site generator whose build output and query worker run on the
// same machine.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher returns a fetcher using client, or http.DefaultClient
// if nil.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{Client: client}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Scheme == "file" {
		return fetchLocal(rawURL, u)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, searcherrors.Asset(fmt.Sprintf("build request for %s", rawURL), err)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, searcherrors.Asset(fmt.Sprintf("fetch %s", rawURL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, searcherrors.Asset(fmt.Sprintf("fetch %s: status %d", rawURL, resp.StatusCode), nil)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, searcherrors.Asset(fmt.Sprintf("read body for %s", rawURL), err)
	}
	return data, nil
}

func fetchLocal(rawURL string, u *url.URL) ([]byte, error) {
	path := rawURL
	if u != nil && u.Scheme == "file" {
		path = filepath.FromSlash(u.Path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, searcherrors.Asset(fmt.Sprintf("read local asset %s", path), err)
	}
	return data, nil
}

// Join resolves ref (a shard/graph path from the manifest) against
// baseURL, the directory the manifest itself was fetched from.
func Join(baseURL, ref string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" {
		return filepath.Join(filepath.Dir(baseURL), ref)
	}
	u.Path = filepath.ToSlash(filepath.Join(filepath.Dir(u.Path), ref))
	return u.String()
}
