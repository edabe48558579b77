package geography

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Source fetches a named geography resource.
type Source interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// maxResourceSize bounds a single geography document.
const maxResourceSize = 32 << 20

// HTTPSource fetches resources relative to a deployment base URL.
type HTTPSource struct {
	base   *url.URL
	client *http.Client
}

// NewHTTPSource returns a source rooted at baseURL. A missing trailing slash
// is added so resource names resolve below the base path.
func NewHTTPSource(baseURL string, client *http.Client) (*HTTPSource, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPSource{base: u, client: client}, nil
}

// Fetch GETs base+name. Non-2xx responses are errors.
func (s *HTTPSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	ref, err := url.Parse(name)
	if err != nil {
		return nil, fmt.Errorf("invalid resource name %q: %w", name, err)
	}
	u := s.base.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch %s: status %s", u, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResourceSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", u, err)
	}
	return data, nil
}

// FSSource reads resources from a file system, e.g. the embedded sample data
// or os.DirFS of a data directory.
type FSSource struct {
	FS fs.FS
}

// Fetch reads name from the file system. The context is only checked before
// reading.
func (s FSSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(s.FS, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}
