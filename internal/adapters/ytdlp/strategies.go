package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	goytdlp "github.com/lrstanley/go-ytdlp"
)

// DefaultMaxOutput caps the stdout accepted from one invocation.
const DefaultMaxOutput = 30 << 20

var errOutputTooLarge = errors.New("yt-dlp output exceeded limit")

// StrategyConfig locates the executables used by DefaultStrategies.
type StrategyConfig struct {
	LocalBinDir string
	SystemPath  string
	PythonPath  string
	MaxOutput   int64
}

// DefaultStrategies returns the standard fallback chain: the go-ytdlp managed
// binary, a project-local binary, the system binary, then the Python module.
func DefaultStrategies(cfg StrategyConfig) []Strategy {
	library := NewLibraryStrategy(cfg.MaxOutput)
	strategies := []Strategy{library}
	if cfg.LocalBinDir != "" {
		strategies = append(strategies, NewLocalStrategy(cfg.LocalBinDir, cfg.MaxOutput))
	}
	system := cfg.SystemPath
	if system == "" {
		system = "yt-dlp"
	}
	python := cfg.PythonPath
	if python == "" {
		python = "python"
	}
	systemStrategy := NewExecStrategy("system yt-dlp", system, nil, cfg.MaxOutput)
	systemStrategy.skipSameAs = library
	return append(strategies,
		systemStrategy,
		NewExecStrategy("python -m yt_dlp", python, []string{"-m", "yt_dlp"}, cfg.MaxOutput),
	)
}

// LibraryStrategy runs yt-dlp through github.com/lrstanley/go-ytdlp, which
// resolves the binary it manages before falling back to PATH.
type LibraryStrategy struct {
	maxOutput  int64
	executable atomic.Pointer[string]
}

// NewLibraryStrategy creates a LibraryStrategy rejecting stdout larger than
// maxOutput bytes.
func NewLibraryStrategy(maxOutput int64) *LibraryStrategy {
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutput
	}
	return &LibraryStrategy{maxOutput: maxOutput}
}

func (l *LibraryStrategy) Name() string { return "go-ytdlp" }

// Executable is the binary go-ytdlp last ran, or "" before the first run.
func (l *LibraryStrategy) Executable() string {
	if p := l.executable.Load(); p != nil {
		return *p
	}
	return ""
}

func (l *LibraryStrategy) Extract(ctx context.Context, args []string) ([]byte, error) {
	res, err := goytdlp.New().Run(ctx, args...)
	if res != nil && res.Executable != "" {
		exe := res.Executable
		l.executable.Store(&exe)
	}
	if err != nil {
		if res != nil && strings.TrimSpace(res.Stderr) != "" {
			return nil, fmt.Errorf("go-ytdlp failed: %w: %s", err, strings.TrimSpace(res.Stderr))
		}
		return nil, fmt.Errorf("go-ytdlp failed: %w", err)
	}
	if int64(len(res.Stdout)) > l.maxOutput {
		return nil, fmt.Errorf("go-ytdlp: %w (%d bytes)", errOutputTooLarge, l.maxOutput)
	}
	return []byte(res.Stdout), nil
}

// ExecStrategy runs an executable directly with a sanitized environment.
type ExecStrategy struct {
	name        string
	path        string
	prefix      []string
	maxOutput   int64
	requireFile bool
	// skipSameAs names a library strategy; when it already ran the binary
	// this strategy resolves to, running it again is skipped.
	skipSameAs *LibraryStrategy
}

// NewExecStrategy creates a strategy running path with prefix prepended to
// the yt-dlp arguments.
func NewExecStrategy(name, path string, prefix []string, maxOutput int64) *ExecStrategy {
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutput
	}
	return &ExecStrategy{name: name, path: path, prefix: prefix, maxOutput: maxOutput}
}

// NewLocalStrategy runs dir/yt-dlp (yt-dlp.exe on Windows) if it exists.
func NewLocalStrategy(dir string, maxOutput int64) *ExecStrategy {
	bin := "yt-dlp"
	if runtime.GOOS == "windows" {
		bin = "yt-dlp.exe"
	}
	s := NewExecStrategy("local yt-dlp", filepath.Join(dir, bin), nil, maxOutput)
	s.requireFile = true
	return s
}

func (s *ExecStrategy) Name() string { return s.name }

func (s *ExecStrategy) Extract(ctx context.Context, args []string) ([]byte, error) {
	if s.requireFile {
		if _, err := os.Stat(s.path); err != nil {
			return nil, fmt.Errorf("%s not found at %s", s.name, s.path)
		}
	}

	if s.skipSameAs != nil {
		if exe := s.skipSameAs.Executable(); exe != "" && sameExecutable(s.path, exe) {
			return nil, fmt.Errorf("%s skipped: %s already ran %s", s.name, s.skipSameAs.Name(), exe)
		}
	}

	full := make([]string, 0, len(s.prefix)+len(args))
	full = append(full, s.prefix...)
	full = append(full, args...)

	cmd := exec.CommandContext(ctx, s.path, full...)
	cmd.Env = SanitizedEnv(os.Environ())

	stdout := &cappedBuffer{max: s.maxOutput}
	var stderr bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stdout.exceeded {
			return nil, fmt.Errorf("%s: %w (%d bytes)", s.name, errOutputTooLarge, s.maxOutput)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%s failed (code %d): %s", s.name, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("%s failed: %w", s.name, err)
	}
	if stdout.buf.Len() == 0 {
		return nil, fmt.Errorf("%s returned no output: %s", s.name, strings.TrimSpace(stderr.String()))
	}
	return stdout.buf.Bytes(), nil
}

// sameExecutable reports whether name, looked up on PATH, is the file at exe.
func sameExecutable(name, exe string) bool {
	resolved, err := exec.LookPath(name)
	if err != nil {
		return false
	}
	a, errA := os.Stat(resolved)
	b, errB := os.Stat(exe)
	return errA == nil && errB == nil && os.SameFile(a, b)
}

// cappedBuffer fails writes once max bytes would be exceeded.
type cappedBuffer struct {
	buf      bytes.Buffer
	max      int64
	exceeded bool
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	if int64(c.buf.Len())+int64(len(p)) > c.max {
		c.exceeded = true
		return 0, errOutputTooLarge
	}
	return c.buf.Write(p)
}
