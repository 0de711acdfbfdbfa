package api

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"

	"ytproxy/internal/service"
)

const maxBodyBytes = 1 << 20

type urlRequest struct {
	URL string `json:"url"`
}

type playlistDownloadRequest struct {
	URL       string `json:"url"`
	MediaType string `json:"media_type"`
	Quality   string `json:"quality"`
}

// decodeJSON reads a JSON body into v. Empty or malformed bodies leave v at
// its zero value so that validation reports the missing URL.
func decodeJSON(r *http.Request, v any) {
	_ = json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

func (a *API) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	decodeJSON(r, &req)

	res, err := a.svc.Analyze(r.Context(), strings.TrimSpace(req.URL))
	if err != nil {
		a.writeError(w, r, err, "video")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleDownload(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	d, err := a.svc.OpenDownload(r.Context(), service.DownloadRequest{
		URL:       strings.TrimSpace(q.Get("url")),
		FormatID:  q.Get("format_id"),
		MediaType: q.Get("media_type"),
		Filename:  q.Get("filename"),
		Range:     r.Header.Get("Range"),
	})
	if err != nil {
		a.writeError(w, r, err, "video")
		return
	}
	defer d.Close()

	for k, v := range d.Header() {
		w.Header()[k] = v
	}
	w.WriteHeader(d.Upstream.StatusCode)

	// The upstream request shares r.Context(), so a client disconnect aborts
	// the upstream read and io.Copy returns.
	n, err := io.Copy(w, d.Upstream.Body)
	if err != nil {
		a.logger.Warnf("Stream of %q aborted after %s: %v", d.Filename, humanize.Bytes(uint64(n)), err)
		return
	}
	a.logger.Debugf("Streamed %q (format %s, %s)", d.Filename, d.Format.ID, humanize.Bytes(uint64(n)))
}

func (a *API) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	res, err := a.svc.Playlist(r.Context(), playlistURL(w, r))
	if err != nil {
		a.writeError(w, r, err, "playlist")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// playlistURL reads url from a JSON body, or from a urlencoded or multipart
// form otherwise.
func playlistURL(w http.ResponseWriter, r *http.Request) string {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req urlRequest
		decodeJSON(r, &req)
		return strings.TrimSpace(req.URL)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return ""
		}
	} else if err := r.ParseForm(); err != nil {
		return ""
	}
	return strings.TrimSpace(r.PostFormValue("url"))
}

func (a *API) handlePlaylistDownload(w http.ResponseWriter, r *http.Request) {
	var req playlistDownloadRequest
	decodeJSON(r, &req)

	res, err := a.svc.PlaylistDownload(r.Context(), service.PlaylistDownloadRequest{
		URL:       strings.TrimSpace(req.URL),
		MediaType: req.MediaType,
		Quality:   req.Quality,
	}, baseURL(r))
	if err != nil {
		a.writeError(w, r, err, "playlist")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// baseURL is the origin the client used to reach us.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host, _, _ = strings.Cut(fwd, ",")
		host = strings.TrimSpace(host)
	}
	return scheme + "://" + host
}
