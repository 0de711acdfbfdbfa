package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Environment variables read by Load. They override the config file.
const (
	EnvCookieFile     = "YTDLP_COOKIE_FILE"
	EnvListenAddr     = "YTPROXY_LISTEN_ADDR"
	EnvLogLevel       = "YTPROXY_LOG_LEVEL"
	EnvLogFormat      = "YTPROXY_LOG_FORMAT"
	EnvExtractTimeout = "YTPROXY_EXTRACT_TIMEOUT"
	EnvBatchSize      = "YTPROXY_BATCH_SIZE"
	EnvYtDlpPath      = "YTPROXY_YTDLP_PATH"
	EnvPythonPath     = "YTPROXY_PYTHON_PATH"
)

// Config holds the application configuration.
type Config struct {
	ListenAddr string `toml:"listen_addr"`
	LogLevel   string `toml:"log_level"`
	LogFormat  string `toml:"log_format"`

	// CookieFile is handed to yt-dlp via --cookies when it names a regular file.
	CookieFile string `toml:"cookie_file"`
	// ExtractTimeout bounds one metadata extraction in seconds; 0 disables it.
	ExtractTimeout int `toml:"extract_timeout"`
	// MaxOutputBytes caps the tool's stdout.
	MaxOutputBytes int64 `toml:"max_output_bytes"`

	YtDlpPath   string `toml:"ytdlp_path"`
	PythonPath  string `toml:"python_path"`
	LocalBinDir string `toml:"local_bin_dir"`

	// BatchSize is how many playlist entries resolve concurrently.
	BatchSize         int      `toml:"batch_size"`
	CombinedFormatIDs []string `toml:"combined_format_ids"`

	// RateLimit is requests per second per client address; 0 disables limiting.
	RateLimit float64 `toml:"rate_limit"`
	RateBurst int     `toml:"rate_burst"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ListenAddr:        ":8080",
		LogLevel:          "info",
		LogFormat:         "auto",
		MaxOutputBytes:    30 << 20,
		YtDlpPath:         "yt-dlp",
		PythonPath:        "python",
		LocalBinDir:       "bin",
		BatchSize:         3,
		CombinedFormatIDs: []string{"91", "92", "93", "94", "95", "96"},
		RateLimit:         10,
		RateBurst:         20,
	}
}

// Load builds the configuration from defaults, the optional TOML file at path,
// a .env file in the working directory and the process environment.
// A missing file at path is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file at %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	// It's okay if .env doesn't exist; variables may be set manually.
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.CookieFile, EnvCookieFile)
	setString(&c.ListenAddr, EnvListenAddr)
	setString(&c.LogLevel, EnvLogLevel)
	setString(&c.LogFormat, EnvLogFormat)
	setString(&c.YtDlpPath, EnvYtDlpPath)
	setString(&c.PythonPath, EnvPythonPath)

	if err := setInt(&c.ExtractTimeout, EnvExtractTimeout); err != nil {
		return err
	}
	return setInt(&c.BatchSize, EnvBatchSize)
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1, got %d", c.BatchSize)
	}
	if c.ExtractTimeout < 0 {
		return fmt.Errorf("extract_timeout must not be negative, got %d", c.ExtractTimeout)
	}
	if c.MaxOutputBytes <= 0 {
		return fmt.Errorf("max_output_bytes must be positive, got %d", c.MaxOutputBytes)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative, got %v", c.RateLimit)
	}
	return nil
}

// ExtractTimeoutDuration converts ExtractTimeout to a time.Duration.
func (c *Config) ExtractTimeoutDuration() time.Duration {
	return time.Duration(c.ExtractTimeout) * time.Second
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	*dst = n
	return nil
}
