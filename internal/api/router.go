package api

import (
	"net/http"

	"golang.org/x/time/rate"

	"ytproxy/internal/logger"
	"ytproxy/internal/service"
)

type API struct {
	svc    *service.Service
	logger logger.Logger
}

// Options tunes the middleware stack.
type Options struct {
	// RateLimit is requests per second per client address; 0 disables it.
	// Health checks are never limited.
	RateLimit float64
	RateBurst int
}

func New(svc *service.Service, log logger.Logger, opts Options) http.Handler {
	if log == nil {
		log = logger.Nop()
	}
	api := &API{
		svc:    svc,
		logger: log,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/analyze", api.handleAnalyze)
	mux.HandleFunc("GET /api/download", api.handleDownload)
	mux.HandleFunc("POST /api/playlist", api.handlePlaylist)
	mux.HandleFunc("POST /api/playlist/download", api.handlePlaylistDownload)
	mux.HandleFunc("GET /healthz", api.handleHealth)

	var h http.Handler = mux
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		h = rateLimit(newClientLimiters(rate.Limit(opts.RateLimit), burst), map[string]bool{"/healthz": true}, h)
	}
	h = recoverPanics(log, h)
	h = accessLog(log, h)
	return requestID(h)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
