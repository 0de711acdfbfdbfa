package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytproxy/internal/adapters/downloader"
	"ytproxy/internal/adapters/ytdlp"
	"ytproxy/internal/api"
	"ytproxy/internal/core/domain"
	"ytproxy/internal/core/selection"
	"ytproxy/internal/service"
)

// scriptedStrategy answers yt-dlp invocations from a table keyed by target URL.
type scriptedStrategy struct {
	name string
	out  map[string]string
	err  error
}

func (s *scriptedStrategy) Name() string { return s.name }

func (s *scriptedStrategy) Extract(ctx context.Context, args []string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	target := args[len(args)-1]
	out, ok := s.out[target]
	if !ok {
		return nil, errors.New("ERROR: Video unavailable")
	}
	return []byte(out), nil
}

const watchURL = "https://www.youtube.com/watch?v=abc"

func newServer(t *testing.T, strategies []ytdlp.Strategy, opts api.Options) *httptest.Server {
	t.Helper()
	inv := ytdlp.NewInvoker(strategies, ytdlp.Options{}, nil)
	svc := service.NewService(inv, downloader.NewHTTPDownloader(), selection.New(selection.DefaultCombinedIDs), 3, nil)
	srv := httptest.NewServer(api.New(svc, nil, opts))
	t.Cleanup(srv.Close)
	return srv
}

func videoJSON(t *testing.T, mediaBase string) string {
	t.Helper()
	info := map[string]any{
		"id":        "abc",
		"title":     "My: Clip?",
		"thumbnail": "https://img/abc.jpg",
		"duration":  212,
		"uploader":  "Someone",
		"formats": []map[string]any{
			{"format_id": "140", "ext": "m4a", "vcodec": "none", "acodec": "mp4a.40.2", "abr": 129.5, "url": mediaBase + "/140"},
			{"format_id": "18", "ext": "mp4", "vcodec": "avc1", "acodec": "mp4a", "width": 640, "height": 360, "tbr": 500, "url": mediaBase + "/18"},
			{"format_id": "95", "ext": "mp4", "vcodec": "avc1", "acodec": "mp4a", "height": 720, "tbr": 2500, "url": mediaBase + "/95"},
			{"format_id": "nourl", "ext": "mp4", "vcodec": "avc1", "acodec": "mp4a", "height": 144, "tbr": 10},
		},
	}
	b, err := json.Marshal(info)
	require.NoError(t, err)
	return string(b)
}

func postJSON(t *testing.T, u string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(u, "application/json", strings.NewReader(string(b)))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestAnalyze(t *testing.T) {
	srv := newServer(t, []ytdlp.Strategy{&scriptedStrategy{name: "fake", out: map[string]string{watchURL: videoJSON(t, "https://media")}}}, api.Options{})

	t.Run("OK", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/analyze", map[string]string{"url": watchURL})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decode(t, resp)
		assert.Equal(t, "abc", body["id"])
		assert.Equal(t, "My: Clip?", body["title"])
		assert.Equal(t, watchURL, body["webpage_url"])
		formats := body["formats"].([]any)
		require.Len(t, formats, 3)
		assert.Equal(t, "audio", formats[0].(map[string]any)["type"])
		assert.Equal(t, "640x360", formats[1].(map[string]any)["resolution"])
	})

	t.Run("Missing URL", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/analyze", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Not JSON", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/api/analyze", "application/json", strings.NewReader("{"))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Wrong method", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/analyze")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestAnalyze_MalformedOutputEverywhere(t *testing.T) {
	srv := newServer(t, []ytdlp.Strategy{
		&scriptedStrategy{name: "system yt-dlp", out: map[string]string{watchURL: "not json at all"}},
		&scriptedStrategy{name: "python -m yt_dlp", out: map[string]string{watchURL: "<html>"}},
	}, api.Options{})

	resp := postJSON(t, srv.URL+"/api/analyze", map[string]string{"url": watchURL})
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	body := decode(t, resp)
	assert.Equal(t, "Failed to retrieve video information", body["error"])
	detail := body["detail"].(string)
	assert.Contains(t, detail, "system yt-dlp: yt-dlp returned invalid JSON")
	assert.Contains(t, detail, "python -m yt_dlp: yt-dlp returned invalid JSON")
	assert.Len(t, body["attempts"], 2)
}

func TestAnalyze_BotCheck(t *testing.T) {
	srv := newServer(t, []ytdlp.Strategy{
		&scriptedStrategy{name: "system yt-dlp", err: errors.New("ERROR: [youtube] abc: Sign in to confirm you're not a bot. Use --cookies")},
	}, api.Options{})

	resp := postJSON(t, srv.URL+"/api/analyze", map[string]string{"url": watchURL})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	body := decode(t, resp)
	assert.Contains(t, body["hint"], "YTDLP_COOKIE_FILE")
}

func newMediaServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/140", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mp4")
		io.WriteString(w, "audio-bytes")
	})
	mux.HandleFunc("/95", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/95/real", http.StatusFound)
	})
	mux.HandleFunc("/95/real", func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "", time.Time{}, strings.NewReader("0123456789"))
	})
	mux.HandleFunc("/18", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestDownload(t *testing.T) {
	media := newMediaServer(t)
	srv := newServer(t, []ytdlp.Strategy{&scriptedStrategy{name: "fake", out: map[string]string{watchURL: videoJSON(t, media.URL)}}}, api.Options{})

	get := func(t *testing.T, params url.Values, header http.Header) *http.Response {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/download?"+params.Encode(), nil)
		require.NoError(t, err)
		for k, v := range header {
			req.Header[k] = v
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	t.Run("Audio by media type", func(t *testing.T) {
		resp := get(t, url.Values{"url": {watchURL}, "media_type": {"audio"}}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "audio/mp4", resp.Header.Get("Content-Type"))
		assert.Equal(t, "bytes", resp.Header.Get("Accept-Ranges"))
		assert.Equal(t, `attachment; filename="My Clip.m4a"`, resp.Header.Get("Content-Disposition"))
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "audio-bytes", string(body))
	})

	t.Run("Suffixed format id with range", func(t *testing.T) {
		resp := get(t, url.Values{"url": {watchURL}, "format_id": {"95-4"}, "filename": {"take two"}}, http.Header{"Range": {"bytes=2-5"}})
		require.Equal(t, http.StatusPartialContent, resp.StatusCode)
		assert.Equal(t, "bytes 2-5/10", resp.Header.Get("Content-Range"))
		assert.Equal(t, "4", resp.Header.Get("Content-Length"))
		assert.Equal(t, `attachment; filename="take two.mp4"`, resp.Header.Get("Content-Disposition"))
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "2345", string(body))
	})

	t.Run("Unknown format", func(t *testing.T) {
		resp := get(t, url.Values{"url": {watchURL}, "format_id": {"999"}}, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("No direct URL", func(t *testing.T) {
		resp := get(t, url.Values{"url": {watchURL}, "format_id": {"nourl"}}, nil)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})

	t.Run("Upstream error", func(t *testing.T) {
		resp := get(t, url.Values{"url": {watchURL}, "format_id": {"18"}}, nil)
		require.Equal(t, http.StatusBadGateway, resp.StatusCode)
		body := decode(t, resp)
		assert.Equal(t, float64(http.StatusForbidden), body["status_code"])
	})

	t.Run("Invalid URL", func(t *testing.T) {
		resp := get(t, url.Values{"url": {"file:///etc/passwd"}}, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Extraction failure", func(t *testing.T) {
		resp := get(t, url.Values{"url": {"https://www.youtube.com/watch?v=gone"}}, nil)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	})
}

const playlistURL = "https://www.youtube.com/playlist?list=PL1"

func playlistStrategy(t *testing.T) *scriptedStrategy {
	flat := `{"id":"PL1","title":"Mix","uploader":"Someone","entries":[{"id":"abc","title":"Clip","url":"` + watchURL + `"},{"id":"","title":""},{"id":"gone","title":"Gone"}]}`
	return &scriptedStrategy{name: "fake", out: map[string]string{
		playlistURL: flat,
		watchURL:    videoJSON(t, "https://media"),
	}}
}

func TestPlaylist(t *testing.T) {
	srv := newServer(t, []ytdlp.Strategy{playlistStrategy(t)}, api.Options{})

	t.Run("JSON", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/playlist", map[string]string{"url": playlistURL})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decode(t, resp)
		assert.Equal(t, float64(3), body["video_count"])
		assert.Equal(t, "Mix", body["title"])
		videos := body["videos"].([]any)
		assert.Equal(t, "<<unavailable or removed video>>", videos[1].(map[string]any)["title"])
		assert.Equal(t, "https://www.youtube.com/watch?v=gone", videos[2].(map[string]any)["url"])
	})

	t.Run("Form", func(t *testing.T) {
		resp, err := http.PostForm(srv.URL+"/api/playlist", url.Values{"url": {playlistURL}})
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Missing URL", func(t *testing.T) {
		resp, err := http.PostForm(srv.URL+"/api/playlist", url.Values{})
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestPlaylistDownload(t *testing.T) {
	srv := newServer(t, []ytdlp.Strategy{playlistStrategy(t)}, api.Options{})

	resp := postJSON(t, srv.URL+"/api/playlist/download", map[string]string{"url": playlistURL, "quality": "720p"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Playlist   map[string]any       `json:"playlist"`
		MediaType  string               `json:"media_type"`
		Quality    string               `json:"quality"`
		VideoCount int                  `json:"video_count"`
		Videos     []domain.EntryResult `json:"videos"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Equal(t, "PL1", body.Playlist["id"])
	assert.Equal(t, "video+audio", body.MediaType)
	assert.Equal(t, "720p", body.Quality)
	require.Equal(t, 3, body.VideoCount)
	require.Len(t, body.Videos, 3)

	first := body.Videos[0]
	require.NotNil(t, first.Format)
	assert.Equal(t, "95", first.Format.FormatID)
	dl, err := url.Parse(first.DownloadURL)
	require.NoError(t, err)
	assert.Equal(t, srv.URL, dl.Scheme+"://"+dl.Host)
	assert.Equal(t, "/api/download", dl.Path)
	assert.Equal(t, watchURL, dl.Query().Get("url"))

	assert.Equal(t, "Invalid video URL, skipped", body.Videos[1].Error)
	assert.Contains(t, body.Videos[2].Error, "Video unavailable")
}

func TestHealthAndRequestID(t *testing.T) {
	srv := newServer(t, nil, api.Options{})

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, resp.Header.Get("X-Request-ID"), 36)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	req.Header.Set("X-Request-ID", "trace-1")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, "trace-1", resp2.Header.Get("X-Request-ID"))
}

func TestRateLimit(t *testing.T) {
	srv := newServer(t, nil, api.Options{RateLimit: 0.001, RateBurst: 1})

	first := postJSON(t, srv.URL+"/api/analyze", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, first.StatusCode, "first request passes the limiter")

	second := postJSON(t, srv.URL+"/api/analyze", map[string]string{})
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
	assert.Equal(t, "1", second.Header.Get("Retry-After"))

	for i := 0; i < 3; i++ {
		resp, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, "health checks are never limited")
	}
}
