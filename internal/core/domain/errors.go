package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput indicates a bad or missing request value, usually the URL.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAuthRequired indicates the provider demanded sign-in or a bot check.
	ErrAuthRequired = errors.New("upstream authentication required")
	// ErrExtractionFailed indicates every extraction strategy failed.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrNoMatchingFormat indicates no format fits the request.
	ErrNoMatchingFormat = errors.New("no matching format")
	// ErrMissingDirectURL indicates the selected format has no media URL.
	ErrMissingDirectURL = errors.New("no direct url for format")
	// ErrUpstreamFetch indicates the media host answered with an error.
	ErrUpstreamFetch = errors.New("upstream fetch failed")
)

// botCheckMarkers are substrings yt-dlp prints when YouTube wants a sign-in.
var botCheckMarkers = []string{
	"Sign in to confirm you’re not a bot",
	"Sign in to confirm you're not a bot",
}

// IsBotCheck reports whether a tool message is a sign-in / bot-check refusal.
func IsBotCheck(msg string) bool {
	for _, m := range botCheckMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// Attempt records one failed extraction strategy.
type Attempt struct {
	Strategy string `json:"strategy"`
	Err      string `json:"error"`
}

// ExtractionError carries every attempt made before giving up.
type ExtractionError struct {
	Attempts []Attempt
}

func (e *ExtractionError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Strategy+": "+a.Err)
	}
	return "yt-dlp invocation failed: " + strings.Join(parts, "; ")
}

// Is makes errors.Is match ErrExtractionFailed, and ErrAuthRequired when any
// attempt hit the bot check.
func (e *ExtractionError) Is(target error) bool {
	switch target {
	case ErrExtractionFailed:
		return true
	case ErrAuthRequired:
		return IsBotCheck(e.Error())
	}
	return false
}

// UpstreamStatusError is returned when the direct media URL answers non-2xx.
type UpstreamStatusError struct {
	StatusCode int
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("upstream responded with status %d", e.StatusCode)
}

func (e *UpstreamStatusError) Unwrap() error {
	return ErrUpstreamFetch
}
