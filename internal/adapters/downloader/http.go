package downloader

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"ytproxy/internal/core/domain"
	"ytproxy/internal/core/ports"
)

// HTTPDownloader implements ports.Fetcher using standard HTTP.
type HTTPDownloader struct {
	client *http.Client
}

// NewHTTPDownloader creates a new HTTPDownloader. No overall timeout is set
// because media bodies are streamed for as long as the client reads; the
// request context bounds the transfer instead.
func NewHTTPDownloader() *HTTPDownloader {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = 30 * time.Second
	return &HTTPDownloader{
		client: &http.Client{Transport: transport},
	}
}

// NewHTTPDownloaderWithClient wraps an existing client.
func NewHTTPDownloaderWithClient(client *http.Client) *HTTPDownloader {
	return &HTTPDownloader{client: client}
}

// Fetch opens mediaURL, forwarding rangeHeader verbatim when set. Redirects
// are followed. Any non-2xx answer is returned as *domain.UpstreamStatusError.
func (d *HTTPDownloader) Fetch(ctx context.Context, mediaURL, rangeHeader string) (*ports.Upstream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFetch, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &domain.UpstreamStatusError{StatusCode: resp.StatusCode}
	}

	return &ports.Upstream{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}
