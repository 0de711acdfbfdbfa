package ytdlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ytproxy/internal/core/domain"
	"ytproxy/internal/logger"
)

// Strategy is one way of running yt-dlp. Extract returns raw stdout.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, args []string) ([]byte, error)
}

// Options configures an Invoker.
type Options struct {
	// CookieFile is passed via --cookies when it resolves to a regular file.
	CookieFile string
	// Timeout bounds a single invocation across all strategies; 0 means none.
	Timeout time.Duration
}

// Invoker runs yt-dlp through an ordered list of strategies and returns the
// first parseable result. It implements ports.Extractor.
type Invoker struct {
	strategies []Strategy
	opts       Options
	logger     logger.Logger
}

// NewInvoker creates an Invoker trying strategies in the given order.
func NewInvoker(strategies []Strategy, opts Options, log logger.Logger) *Invoker {
	if log == nil {
		log = logger.Nop()
	}
	return &Invoker{strategies: strategies, opts: opts, logger: log}
}

// Video fetches full metadata for one video.
func (i *Invoker) Video(ctx context.Context, videoURL string) (*domain.VideoInfo, error) {
	var info domain.VideoInfo
	if err := i.run(ctx, i.Args(videoURL, false), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Playlist fetches a flat playlist listing.
func (i *Invoker) Playlist(ctx context.Context, playlistURL string) (*domain.PlaylistInfo, error) {
	var info domain.PlaylistInfo
	if err := i.run(ctx, i.Args(playlistURL, true), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Args builds the yt-dlp argument list for a metadata dump.
func (i *Invoker) Args(target string, flat bool) []string {
	var args []string
	if cookie := validCookieFile(i.opts.CookieFile); cookie != "" {
		args = append(args, "--cookies", cookie)
	}
	if flat {
		args = append(args, "--flat-playlist")
	}
	return append(args, "-J", "--no-warnings", "--skip-download", target)
}

func (i *Invoker) run(ctx context.Context, args []string, v any) error {
	if len(i.strategies) == 0 {
		return &domain.ExtractionError{Attempts: []domain.Attempt{{Strategy: "none", Err: "no extraction strategies configured"}}}
	}
	if i.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.opts.Timeout)
		defer cancel()
	}

	var attempts []domain.Attempt
	for _, s := range i.strategies {
		start := time.Now()
		out, err := s.Extract(ctx, args)
		if err == nil {
			err = decodeOutput(out, v)
		}
		if err == nil {
			i.logger.Debugf("%s succeeded in %s", s.Name(), time.Since(start).Round(time.Millisecond))
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		}
		i.logger.Debugf("%s failed: %v", s.Name(), err)
		attempts = append(attempts, domain.Attempt{Strategy: s.Name(), Err: err.Error()})
		if ctx.Err() != nil {
			break
		}
	}
	return &domain.ExtractionError{Attempts: attempts}
}

// decodeOutput accepts a whole JSON document or, failing that, the first
// non-empty line of output.
func decodeOutput(out []byte, v any) error {
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return errors.New("yt-dlp returned empty output")
	}
	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}
	first, _, _ := strings.Cut(trimmed, "\n")
	if err := json.Unmarshal([]byte(strings.TrimSpace(first)), v); err != nil {
		return fmt.Errorf("yt-dlp returned invalid JSON: %w", err)
	}
	return nil
}

func validCookieFile(path string) string {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	st, err := os.Stat(abs)
	if err != nil || !st.Mode().IsRegular() {
		return ""
	}
	return abs
}
