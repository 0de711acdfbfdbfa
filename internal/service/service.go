// Package service coordinates metadata extraction, format selection and
// media streaming for the HTTP API.
package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"ytproxy/internal/core/domain"
	"ytproxy/internal/core/ports"
	"ytproxy/internal/core/selection"
	"ytproxy/internal/logger"
)

// DefaultBatchSize is how many playlist entries are resolved at once.
const DefaultBatchSize = 3

// Service coordinates the extraction workflow.
type Service struct {
	extractor ports.Extractor
	fetcher   ports.Fetcher
	selector  *selection.Selector
	batchSize int
	logger    logger.Logger
}

// NewService creates a new Service. A batchSize below 1 uses DefaultBatchSize.
func NewService(
	extractor ports.Extractor,
	fetcher ports.Fetcher,
	selector *selection.Selector,
	batchSize int,
	log logger.Logger,
) *Service {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	if selector == nil {
		selector = selection.New(selection.DefaultCombinedIDs)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		extractor: extractor,
		fetcher:   fetcher,
		selector:  selector,
		batchSize: batchSize,
		logger:    log,
	}
}

// ValidURL reports whether raw is an absolute http or https URL.
func ValidURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func requireURL(raw string) error {
	if !ValidURL(raw) {
		return fmt.Errorf("%w: invalid or missing URL", domain.ErrInvalidInput)
	}
	return nil
}

// AnalyzeResult is the metadata returned for a single video.
type AnalyzeResult struct {
	ID         string              `json:"id"`
	Title      string              `json:"title"`
	Thumbnail  string              `json:"thumbnail,omitempty"`
	Duration   *float64            `json:"duration"`
	Uploader   string              `json:"uploader"`
	Channel    string              `json:"channel"`
	WebpageURL string              `json:"webpage_url"`
	Formats    []domain.FormatData `json:"formats"`
}

// Analyze fetches metadata for one video and classifies its formats.
// Formats without a direct URL are left out.
func (s *Service) Analyze(ctx context.Context, videoURL string) (*AnalyzeResult, error) {
	if err := requireURL(videoURL); err != nil {
		return nil, err
	}

	start := time.Now()
	info, err := s.extractor.Video(ctx, videoURL)
	if err != nil {
		return nil, err
	}
	s.logger.Infof("Analyzed %s (%d formats) in %s", videoURL, len(info.Formats), time.Since(start).Round(time.Millisecond))

	formats := make([]domain.FormatData, 0, len(info.Formats))
	for _, f := range info.Formats {
		if f.URL == "" {
			continue
		}
		formats = append(formats, domain.NewFormatData(f, f.Kind()))
	}

	return &AnalyzeResult{
		ID:         info.ID,
		Title:      info.DisplayTitle(),
		Thumbnail:  info.BestThumbnail(),
		Duration:   info.Duration,
		Uploader:   info.Uploader,
		Channel:    info.Channel,
		WebpageURL: orDefault(info.WebpageURL, videoURL),
		Formats:    formats,
	}, nil
}

// PlaylistMeta describes a playlist without its entries.
type PlaylistMeta struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Thumbnail  string `json:"thumbnail,omitempty"`
	Uploader   string `json:"uploader"`
	Channel    string `json:"channel"`
	WebpageURL string `json:"webpage_url"`
}

// PlaylistResult is a flat playlist listing.
type PlaylistResult struct {
	VideoCount int               `json:"video_count"`
	Videos     []domain.VideoRef `json:"videos"`
	PlaylistMeta
}

// Playlist lists the videos of a playlist without resolving their formats.
func (s *Service) Playlist(ctx context.Context, playlistURL string) (*PlaylistResult, error) {
	if err := requireURL(playlistURL); err != nil {
		return nil, err
	}

	info, err := s.extractor.Playlist(ctx, playlistURL)
	if err != nil {
		return nil, err
	}
	refs := videoRefs(info.Entries)
	s.logger.Infof("Listed playlist %s with %d entries", playlistURL, len(refs))

	return &PlaylistResult{
		VideoCount:   len(refs),
		Videos:       refs,
		PlaylistMeta: playlistMeta(info, playlistURL),
	}, nil
}

func playlistMeta(info *domain.PlaylistInfo, requested string) PlaylistMeta {
	return PlaylistMeta{
		ID:         info.ID,
		Title:      info.Title,
		Thumbnail:  info.BestThumbnail(),
		Uploader:   info.Uploader,
		Channel:    info.Channel,
		WebpageURL: orDefault(info.WebpageURL, requested),
	}
}

const unavailableTitle = "<<unavailable or removed video>>"

// videoRefs normalizes flat playlist entries, filling in a watch URL from the
// id when the entry has no URL of its own.
func videoRefs(entries []domain.PlaylistEntry) []domain.VideoRef {
	refs := make([]domain.VideoRef, 0, len(entries))
	for _, e := range entries {
		ref := domain.VideoRef{
			Title: orDefault(e.Title, unavailableTitle),
			ID:    e.ID,
			URL:   orDefault(e.URL, e.WebpageURL),
		}
		if ref.URL == "" && ref.ID != "" {
			ref.URL = "https://www.youtube.com/watch?v=" + url.QueryEscape(ref.ID)
		}
		refs = append(refs, ref)
	}
	return refs
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
