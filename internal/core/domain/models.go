package domain

import (
	"fmt"
	"strings"
)

// CodecNone is the value yt-dlp uses for a codec that is absent from a stream.
const CodecNone = "none"

// MediaKind classifies a format by the streams it carries.
type MediaKind string

const (
	KindAudio      MediaKind = "audio"
	KindVideo      MediaKind = "video"
	KindVideoAudio MediaKind = "video+audio"
)

// ParseMediaKind maps request values onto a MediaKind. "both" and the empty
// string mean video+audio.
func ParseMediaKind(s string) (MediaKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "audio":
		return KindAudio, nil
	case "video":
		return KindVideo, nil
	case "", "both", "video+audio":
		return KindVideoAudio, nil
	default:
		return "", fmt.Errorf("%w: unknown media type %q", ErrInvalidInput, s)
	}
}

// Format is one downloadable media variant as reported by yt-dlp.
type Format struct {
	ID             string   `json:"format_id"`
	Ext            string   `json:"ext"`
	VideoCodec     string   `json:"vcodec"`
	AudioCodec     string   `json:"acodec"`
	Width          *int     `json:"width"`
	Height         *int     `json:"height"`
	FPS            *float64 `json:"fps"`
	TBR            *float64 `json:"tbr"`
	ABR            *float64 `json:"abr"`
	FileSize       *int64   `json:"filesize"`
	FileSizeApprox *int64   `json:"filesize_approx"`
	Note           string   `json:"format_note"`
	URL            string   `json:"url"`
}

// HasVideo reports whether the format carries a known video stream.
func (f Format) HasVideo() bool {
	return f.VideoCodec != "" && f.VideoCodec != CodecNone
}

// HasAudio reports whether the format carries a known audio stream.
func (f Format) HasAudio() bool {
	return f.AudioCodec != "" && f.AudioCodec != CodecNone
}

// AudioOnly is true when the video codec is explicitly absent.
func (f Format) AudioOnly() bool {
	return f.VideoCodec == CodecNone
}

// Kind derives the media kind from the codec sentinels.
func (f Format) Kind() MediaKind {
	switch {
	case f.VideoCodec == CodecNone:
		return KindAudio
	case f.AudioCodec == CodecNone:
		return KindVideo
	default:
		return KindVideoAudio
	}
}

// Bitrate is tbr, falling back to abr, falling back to zero.
func (f Format) Bitrate() float64 {
	if f.TBR != nil {
		return *f.TBR
	}
	if f.ABR != nil {
		return *f.ABR
	}
	return 0
}

// AudioBitrate is abr, falling back to tbr, falling back to zero.
func (f Format) AudioBitrate() float64 {
	if f.ABR != nil {
		return *f.ABR
	}
	if f.TBR != nil {
		return *f.TBR
	}
	return 0
}

// KnownHeight returns the pixel height when it is reported and positive.
func (f Format) KnownHeight() (int, bool) {
	if f.Height == nil || *f.Height <= 0 {
		return 0, false
	}
	return *f.Height, true
}

// Size prefers the exact file size over the approximation.
func (f Format) Size() *int64 {
	if f.FileSize != nil {
		return f.FileSize
	}
	return f.FileSizeApprox
}

// Resolution is the format note, or "WxH" built from whatever is known.
func (f Format) Resolution() string {
	if f.Note != "" {
		return f.Note
	}
	var w, h string
	if f.Width != nil {
		w = fmt.Sprint(*f.Width)
	}
	if f.Height != nil {
		h = fmt.Sprint(*f.Height)
	}
	return strings.TrimSpace(w + "x" + h)
}

// SelectionRequest asks the selector for one format of a given kind.
// TargetHeight is only honoured for KindVideoAudio; zero means no target.
type SelectionRequest struct {
	Kind         MediaKind
	TargetHeight int
}

// Thumbnail is one entry of yt-dlp's thumbnails list.
type Thumbnail struct {
	URL string `json:"url"`
}

// VideoInfo is the subset of yt-dlp's single-video JSON we consume.
type VideoInfo struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	FullTitle  string      `json:"fulltitle"`
	Thumbnail  string      `json:"thumbnail"`
	Thumbnails []Thumbnail `json:"thumbnails"`
	Duration   *float64    `json:"duration"`
	Uploader   string      `json:"uploader"`
	Channel    string      `json:"channel"`
	WebpageURL string      `json:"webpage_url"`
	Formats    []Format    `json:"formats"`
}

// DisplayTitle is the title, falling back to fulltitle.
func (v *VideoInfo) DisplayTitle() string {
	if v.Title != "" {
		return v.Title
	}
	return v.FullTitle
}

// BestThumbnail is the thumbnail, falling back to the first listed one.
func (v *VideoInfo) BestThumbnail() string {
	return pickThumbnail(v.Thumbnail, v.Thumbnails)
}

// PlaylistEntry is one item of a flat playlist listing.
type PlaylistEntry struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	WebpageURL string `json:"webpage_url"`
}

// PlaylistInfo is the subset of yt-dlp's --flat-playlist JSON we consume.
type PlaylistInfo struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Thumbnail  string          `json:"thumbnail"`
	Thumbnails []Thumbnail     `json:"thumbnails"`
	Uploader   string          `json:"uploader"`
	Channel    string          `json:"channel"`
	WebpageURL string          `json:"webpage_url"`
	Entries    []PlaylistEntry `json:"entries"`
}

// BestThumbnail is the thumbnail, falling back to the first listed one.
func (p *PlaylistInfo) BestThumbnail() string {
	return pickThumbnail(p.Thumbnail, p.Thumbnails)
}

func pickThumbnail(primary string, all []Thumbnail) string {
	if primary != "" {
		return primary
	}
	if len(all) > 0 {
		return all[0].URL
	}
	return ""
}

// VideoRef identifies one playlist video to resolve.
type VideoRef struct {
	Title string `json:"title"`
	ID    string `json:"id"`
	URL   string `json:"url"`
}

// FormatData is the client-facing view of a format.
type FormatData struct {
	FormatID   string    `json:"format_id"`
	Ext        *string   `json:"ext"`
	Resolution *string   `json:"resolution"`
	FileSize   *int64    `json:"filesize"`
	FPS        *float64  `json:"fps"`
	TBR        *float64  `json:"tbr"`
	VideoCodec *string   `json:"vcodec"`
	AudioCodec *string   `json:"acodec"`
	Type       MediaKind `json:"type"`
}

// NewFormatData converts a format, tagging it with the given kind.
func NewFormatData(f Format, kind MediaKind) FormatData {
	return FormatData{
		FormatID:   f.ID,
		Ext:        optional(f.Ext),
		Resolution: optional(f.Resolution()),
		FileSize:   f.Size(),
		FPS:        f.FPS,
		TBR:        f.TBR,
		VideoCodec: optional(f.VideoCodec),
		AudioCodec: optional(f.AudioCodec),
		Type:       kind,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// EntryResult is the outcome of resolving one playlist entry. Exactly one of
// Format/DownloadURL or Error is set.
type EntryResult struct {
	Title       string      `json:"title"`
	ID          string      `json:"id"`
	URL         string      `json:"url"`
	Format      *FormatData `json:"format,omitempty"`
	DownloadURL string      `json:"download_url,omitempty"`
	Error       string      `json:"error,omitempty"`
}
