package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytproxy/internal/core/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "ytproxy.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := newRootCommand()
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "analyze")
}

func TestGlobalOptions_Load(t *testing.T) {
	path := writeConfig(t, "log_level = \"warn\"\nbatch_size = 5\n")

	opts := &globalOptions{configPath: path}
	cfg, log, err := opts.load()
	require.NoError(t, err)
	assert.NotNil(t, log)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 5, cfg.BatchSize)

	opts.logLevel = "debug"
	cfg, _, err = opts.load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestGlobalOptions_LoadInvalid(t *testing.T) {
	path := writeConfig(t, "batch_size = 0\n")

	_, _, err := (&globalOptions{configPath: path}).load()
	assert.Error(t, err)
}

func TestAnalyzeCommand_RejectsInvalidURL(t *testing.T) {
	path := writeConfig(t, "")

	_, err := runCLI(t, "--config", path, "analyze", "not-a-url")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAnalyzeCommand_RequiresOneArg(t *testing.T) {
	path := writeConfig(t, "")

	_, err := runCLI(t, "--config", path, "analyze")
	assert.Error(t, err)
}
