package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{EnvCookieFile, EnvListenAddr, EnvLogLevel, EnvLogFormat, EnvExtractTimeout, EnvBatchSize, EnvYtDlpPath, EnvPythonPath} {
		t.Setenv(k, "")
	}
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 3, cfg.BatchSize)
	assert.Equal(t, []string{"91", "92", "93", "94", "95", "96"}, cfg.CombinedFormatIDs)
	assert.Equal(t, time.Duration(0), cfg.ExtractTimeoutDuration())
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "ytproxy.toml")
	content := `
listen_addr = ":9000"
batch_size = 5
extract_timeout = 45
combined_format_ids = ["300", "301"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv(EnvBatchSize, "2")
	t.Setenv(EnvCookieFile, "/tmp/cookies.txt")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, 2, cfg.BatchSize)
	assert.Equal(t, 45*time.Second, cfg.ExtractTimeoutDuration())
	assert.Equal(t, []string{"300", "301"}, cfg.CombinedFormatIDs)
	assert.Equal(t, "/tmp/cookies.txt", cfg.CookieFile)
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv(EnvLogLevel)
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvLogLevel+"=debug\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv(EnvLogLevel) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	t.Setenv(EnvBatchSize, "zero")
	_, err := Load("")
	assert.Error(t, err)

	t.Setenv(EnvBatchSize, "0")
	_, err = Load("")
	assert.ErrorContains(t, err, "batch_size")
}

func TestLoad_ExampleFileMatchesDefaults(t *testing.T) {
	clearEnv(t)
	example, err := filepath.Abs(filepath.Join("..", "..", "ytproxy.example.toml"))
	require.NoError(t, err)
	t.Chdir(t.TempDir())

	cfg, err := Load(example)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
