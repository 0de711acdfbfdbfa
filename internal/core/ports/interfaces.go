package ports

import (
	"context"
	"io"
	"net/http"

	"ytproxy/internal/core/domain"
)

// Extractor defines the contract for reading metadata with the extraction tool.
type Extractor interface {
	// Video returns full metadata, including formats, for a single video URL.
	Video(ctx context.Context, videoURL string) (*domain.VideoInfo, error)

	// Playlist returns a flat listing of the playlist without per-video formats.
	Playlist(ctx context.Context, playlistURL string) (*domain.PlaylistInfo, error)
}

// Upstream is an open response from a direct media URL.
type Upstream struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// Fetcher defines the contract for opening a direct media URL.
type Fetcher interface {
	// Fetch issues one GET, forwarding rangeHeader when non-empty.
	// The caller must close Upstream.Body.
	Fetch(ctx context.Context, mediaURL, rangeHeader string) (*Upstream, error)
}
