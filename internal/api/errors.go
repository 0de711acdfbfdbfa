package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ytproxy/internal/core/domain"
)

const botCheckHint = "This %s requires authentication / bot verification. Configure YTDLP_COOKIE_FILE with a cookies.txt file."

// errorBody is the JSON envelope for every failed request.
type errorBody struct {
	Error      string           `json:"error"`
	Detail     string           `json:"detail,omitempty"`
	Hint       string           `json:"hint,omitempty"`
	Attempts   []domain.Attempt `json:"attempts,omitempty"`
	StatusCode int              `json:"status_code,omitempty"`
}

// writeError maps a service error onto a status code and JSON body. subject
// ("video" or "playlist") only changes the wording.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error, subject string) {
	status, body := classify(err, subject)
	if status >= http.StatusInternalServerError {
		a.logger.Errorf("%s %s failed: %v", r.Method, r.URL.Path, err)
	} else {
		a.logger.Debugf("%s %s rejected: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, body)
}

func classify(err error, subject string) (int, errorBody) {
	var extErr *domain.ExtractionError
	errors.As(err, &extErr)

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, errorBody{Error: "Invalid request", Detail: err.Error()}
	case errors.Is(err, domain.ErrAuthRequired):
		body := errorBody{
			Error:  "YouTube is blocking this request",
			Detail: err.Error(),
			Hint:   fmt.Sprintf(botCheckHint, subject),
		}
		if extErr != nil {
			body.Attempts = extErr.Attempts
		}
		return http.StatusForbidden, body
	case errors.Is(err, domain.ErrExtractionFailed):
		body := errorBody{Error: "Failed to retrieve " + subject + " information", Detail: err.Error()}
		if extErr != nil {
			body.Attempts = extErr.Attempts
		}
		return http.StatusBadGateway, body
	case errors.Is(err, domain.ErrNoMatchingFormat):
		return http.StatusBadRequest, errorBody{Error: "Could not determine a suitable format to download", Detail: err.Error()}
	case errors.Is(err, domain.ErrMissingDirectURL):
		return http.StatusInternalServerError, errorBody{Error: "No direct URL available for the requested format.", Detail: err.Error()}
	case errors.Is(err, domain.ErrUpstreamFetch):
		body := errorBody{Error: "Upstream responded with error", Detail: err.Error()}
		var statusErr *domain.UpstreamStatusError
		if errors.As(err, &statusErr) {
			body.StatusCode = statusErr.StatusCode
		}
		return http.StatusBadGateway, body
	default:
		return http.StatusInternalServerError, errorBody{Error: "Internal server error", Detail: err.Error()}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
