// Package selection picks a single format out of a yt-dlp format list.
package selection

import (
	"math"
	"strings"

	"ytproxy/internal/core/domain"
)

// preferredAudioBonus lifts m4a/mp4 audio above any other container.
const preferredAudioBonus = 10_000_000

// DefaultCombinedIDs are YouTube HLS formats (144p-1080p) that carry both
// streams even when yt-dlp does not report both codecs.
var DefaultCombinedIDs = []string{"91", "92", "93", "94", "95", "96"}

// Selector chooses formats. The zero value treats no ids as always-combined.
type Selector struct {
	combined map[string]struct{}
}

// New creates a Selector with the given always-combined format ids.
func New(combinedIDs []string) *Selector {
	combined := make(map[string]struct{}, len(combinedIDs))
	for _, id := range combinedIDs {
		id = strings.TrimSpace(id)
		if id != "" {
			combined[id] = struct{}{}
		}
	}
	return &Selector{combined: combined}
}

// Select returns the best format for req, or false when nothing qualifies.
func (s *Selector) Select(formats []domain.Format, req domain.SelectionRequest) (domain.Format, bool) {
	candidates := s.Filter(formats, req.Kind)
	if len(candidates) == 0 {
		return domain.Format{}, false
	}

	switch req.Kind {
	case domain.KindAudio:
		return pickMax(candidates, audioScore), true
	case domain.KindVideoAudio:
		if req.TargetHeight > 0 {
			if f, ok := closestHeight(candidates, req.TargetHeight); ok {
				return f, true
			}
		}
	}
	return pickMax(candidates, domain.Format.Bitrate), true
}

// Best returns the highest-bitrate format of any kind, first occurrence
// winning ties. It is false only for an empty list.
func Best(formats []domain.Format) (domain.Format, bool) {
	if len(formats) == 0 {
		return domain.Format{}, false
	}
	return pickMax(formats, domain.Format.Bitrate), true
}

// Filter keeps the formats of the requested kind, preserving order.
func (s *Selector) Filter(formats []domain.Format, kind domain.MediaKind) []domain.Format {
	var out []domain.Format
	for _, f := range formats {
		if s.matches(f, kind) {
			out = append(out, f)
		}
	}
	return out
}

func (s *Selector) matches(f domain.Format, kind domain.MediaKind) bool {
	switch kind {
	case domain.KindAudio:
		return f.VideoCodec == domain.CodecNone
	case domain.KindVideo:
		return f.AudioCodec == domain.CodecNone && f.HasVideo()
	case domain.KindVideoAudio:
		if f.HasVideo() && f.HasAudio() {
			return true
		}
		_, ok := s.combined[f.ID]
		return ok
	}
	return false
}

func audioScore(f domain.Format) float64 {
	score := f.AudioBitrate()
	switch strings.ToLower(f.Ext) {
	case "m4a", "mp4":
		score += preferredAudioBonus
	}
	return score
}

// pickMax returns the first format with the highest score.
func pickMax(formats []domain.Format, score func(domain.Format) float64) domain.Format {
	best := formats[0]
	bestScore := score(best)
	for _, f := range formats[1:] {
		if sc := score(f); sc > bestScore {
			best, bestScore = f, sc
		}
	}
	return best
}

// closestHeight picks the smallest height distance, then the highest bitrate.
// Formats without a known height are ignored.
func closestHeight(formats []domain.Format, target int) (domain.Format, bool) {
	var (
		best      domain.Format
		found     bool
		bestDist  = math.MaxInt
		bestScore = math.Inf(-1)
	)
	for _, f := range formats {
		h, ok := f.KnownHeight()
		if !ok {
			continue
		}
		dist := h - target
		if dist < 0 {
			dist = -dist
		}
		score := f.Bitrate()
		if dist < bestDist || (dist == bestDist && score > bestScore) {
			best, found, bestDist, bestScore = f, true, dist, score
		}
	}
	return best, found
}

// MatchFormatID finds the format a client asked for. Suffixed ids such as
// "95-4" or "140-drc" also match the bare id before the first hyphen.
func MatchFormatID(formats []domain.Format, raw string) (domain.Format, bool) {
	if raw == "" {
		return domain.Format{}, false
	}
	norm, _, _ := strings.Cut(raw, "-")
	for _, f := range formats {
		switch {
		case f.ID == raw, f.ID == norm:
			return f, true
		case f.ID != "" && strings.HasPrefix(raw, f.ID+"-"):
			return f, true
		}
	}
	return domain.Format{}, false
}
