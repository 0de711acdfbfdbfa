package service

import (
	"context"
	"fmt"
	"net/http"

	"ytproxy/internal/core/domain"
	"ytproxy/internal/core/ports"
	"ytproxy/internal/core/selection"
)

// DownloadRequest describes one single-video download.
type DownloadRequest struct {
	URL string
	// FormatID wins over MediaType when set; suffixed ids like "95-4" match "95".
	FormatID  string
	MediaType string
	Filename  string
	Range     string
}

// Download is an open upstream media response ready to be relayed.
type Download struct {
	Upstream *ports.Upstream
	Format   domain.Format
	Filename string
}

// Close releases the upstream connection.
func (d *Download) Close() error {
	return d.Upstream.Body.Close()
}

// Header builds the response headers relayed to the client.
func (d *Download) Header() http.Header {
	up := d.Upstream.Header
	h := make(http.Header)

	h.Set("Content-Type", headerOr(up, "Content-Type", "application/octet-stream"))
	if v := up.Get("Content-Length"); v != "" {
		h.Set("Content-Length", v)
	}
	h.Set("Accept-Ranges", headerOr(up, "Accept-Ranges", "bytes"))
	if v := up.Get("Content-Range"); v != "" {
		h.Set("Content-Range", v)
	}
	h.Set("Content-Disposition", ContentDisposition(d.Filename))
	return h
}

func headerOr(h http.Header, key, def string) string {
	if v := h.Get(key); v != "" {
		return v
	}
	return def
}

// OpenDownload resolves the requested format and opens its direct URL.
// The caller must Close the returned Download.
func (s *Service) OpenDownload(ctx context.Context, req DownloadRequest) (*Download, error) {
	if err := requireURL(req.URL); err != nil {
		return nil, err
	}

	info, err := s.extractor.Video(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	format, err := s.pickFormat(info.Formats, req)
	if err != nil {
		return nil, err
	}
	if format.URL == "" {
		return nil, fmt.Errorf("%w: format %s", domain.ErrMissingDirectURL, format.ID)
	}

	s.logger.Debugf("Fetching format %s (%s) for %s", format.ID, format.Kind(), req.URL)
	up, err := s.fetcher.Fetch(ctx, format.URL, req.Range)
	if err != nil {
		return nil, err
	}

	return &Download{
		Upstream: up,
		Format:   format,
		Filename: ComputeFilename(req.Filename, info.DisplayTitle(), format),
	}, nil
}

func (s *Service) pickFormat(formats []domain.Format, req DownloadRequest) (domain.Format, error) {
	if req.FormatID != "" {
		f, ok := selection.MatchFormatID(formats, req.FormatID)
		if !ok {
			return domain.Format{}, fmt.Errorf("%w: requested format_id %q not found", domain.ErrNoMatchingFormat, req.FormatID)
		}
		return f, nil
	}

	kind, err := domain.ParseMediaKind(req.MediaType)
	if err != nil {
		return domain.Format{}, err
	}
	f, ok := s.selector.Select(formats, domain.SelectionRequest{Kind: kind})
	if !ok && kind == domain.KindVideoAudio {
		// No combined stream: serve the best single stream instead.
		f, ok = selection.Best(formats)
	}
	if !ok {
		return domain.Format{}, fmt.Errorf("%w: could not determine a suitable %s format", domain.ErrNoMatchingFormat, kind)
	}
	return f, nil
}
