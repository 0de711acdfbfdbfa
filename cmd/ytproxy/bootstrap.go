package main

import (
	"ytproxy/internal/adapters/downloader"
	"ytproxy/internal/adapters/ytdlp"
	"ytproxy/internal/config"
	"ytproxy/internal/core/selection"
	"ytproxy/internal/logger"
	"ytproxy/internal/service"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
}

// load reads the configuration and applies flag overrides.
func (o *globalOptions) load() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	return cfg, logger.NewLogger(cfg.LogLevel, cfg.LogFormat), nil
}

// newService wires the extraction chain, the upstream fetcher and the
// format selector into a Service.
func newService(cfg *config.Config, log logger.Logger) *service.Service {
	strategies := ytdlp.DefaultStrategies(ytdlp.StrategyConfig{
		LocalBinDir: cfg.LocalBinDir,
		SystemPath:  cfg.YtDlpPath,
		PythonPath:  cfg.PythonPath,
		MaxOutput:   cfg.MaxOutputBytes,
	})
	names := make([]string, 0, len(strategies))
	for _, s := range strategies {
		names = append(names, s.Name())
	}
	log.Debugf("yt-dlp strategies: %v", names)

	invoker := ytdlp.NewInvoker(strategies, ytdlp.Options{
		CookieFile: cfg.CookieFile,
		Timeout:    cfg.ExtractTimeoutDuration(),
	}, log.With("component", "ytdlp"))

	return service.NewService(
		invoker,
		downloader.NewHTTPDownloader(),
		selection.New(cfg.CombinedFormatIDs),
		cfg.BatchSize,
		log.With("component", "service"),
	)
}
