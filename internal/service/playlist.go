package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"ytproxy/internal/core/domain"
	"ytproxy/internal/core/selection"
)

// DownloadPath is the single-video download endpoint that playlist results
// point at.
const DownloadPath = "/api/download"

// PlaylistDownloadRequest asks for a download link per playlist video.
type PlaylistDownloadRequest struct {
	URL       string
	MediaType string
	Quality   string
}

// PlaylistDownloadResult holds one EntryResult per playlist entry. MediaType
// echoes the lowercased request value.
type PlaylistDownloadResult struct {
	Playlist   PlaylistMeta         `json:"playlist"`
	MediaType  string               `json:"media_type"`
	Quality    *string              `json:"quality"`
	VideoCount int                  `json:"video_count"`
	Videos     []domain.EntryResult `json:"videos"`
}

// PlaylistDownload lists a playlist and resolves a format for every entry.
// baseURL is the externally visible origin used to build download links.
func (s *Service) PlaylistDownload(ctx context.Context, req PlaylistDownloadRequest, baseURL string) (*PlaylistDownloadResult, error) {
	if err := requireURL(req.URL); err != nil {
		return nil, err
	}

	// Only "audio" selects audio; every other value resolves combined
	// streams, and only an explicit "video+audio" honours the quality target.
	mediaType := strings.ToLower(strings.TrimSpace(req.MediaType))
	if mediaType == "" {
		mediaType = string(domain.KindVideoAudio)
	}
	sel := domain.SelectionRequest{Kind: domain.KindVideoAudio}
	switch domain.MediaKind(mediaType) {
	case domain.KindAudio:
		sel.Kind = domain.KindAudio
	case domain.KindVideoAudio:
		sel.TargetHeight = selection.QualityHeight(req.Quality)
	}

	info, err := s.extractor.Playlist(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	results := s.ResolveAll(ctx, videoRefs(info.Entries), sel, baseURL)
	s.logger.Infof("Resolved %d playlist entries for %s in %s", len(results), req.URL, time.Since(start).Round(time.Millisecond))

	var quality *string
	if req.Quality != "" {
		quality = &req.Quality
	}
	return &PlaylistDownloadResult{
		Playlist:   playlistMeta(info, req.URL),
		MediaType:  mediaType,
		Quality:    quality,
		VideoCount: len(results),
		Videos:     results,
	}, nil
}

// ResolveAll runs extraction and format selection for every ref. Refs are
// processed in batches of the configured size: concurrently within a batch,
// sequentially across batches. The result has one entry per ref, in order,
// and a failing entry never affects the others.
func (s *Service) ResolveAll(ctx context.Context, refs []domain.VideoRef, sel domain.SelectionRequest, baseURL string) []domain.EntryResult {
	results := make([]domain.EntryResult, len(refs))
	for start := 0; start < len(refs); start += s.batchSize {
		end := min(start+s.batchSize, len(refs))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				results[i] = s.resolveEntry(ctx, refs[i], sel, baseURL)
				return nil
			})
		}
		_ = g.Wait()
	}
	return results
}

func (s *Service) resolveEntry(ctx context.Context, ref domain.VideoRef, sel domain.SelectionRequest, baseURL string) domain.EntryResult {
	res := domain.EntryResult{Title: ref.Title, ID: ref.ID, URL: ref.URL}

	if !ValidURL(ref.URL) {
		res.Error = "Invalid video URL, skipped"
		return res
	}

	info, err := s.extractor.Video(ctx, ref.URL)
	if err != nil {
		s.logger.Warnf("Playlist entry %s failed: %v", ref.URL, err)
		res.Error = err.Error()
		return res
	}

	f, ok := s.selector.Select(info.Formats, sel)
	if !ok || f.ID == "" {
		res.Error = "No matching format found"
		return res
	}

	data := domain.NewFormatData(f, sel.Kind)
	res.Format = &data
	res.DownloadURL = DownloadURL(baseURL, ref.URL, f.ID)
	return res
}

// DownloadURL builds a single-video download link for the given format.
func DownloadURL(baseURL, videoURL, formatID string) string {
	q := url.Values{}
	q.Set("url", videoURL)
	q.Set("format_id", formatID)
	return strings.TrimRight(baseURL, "/") + DownloadPath + "?" + q.Encode()
}
