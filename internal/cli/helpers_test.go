package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/alnah/go-scribe/internal/config"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

// The notification dispatcher and the logger both write to Stderr from
// different goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testMocks - convenience struct for grouping all mocks
// ---------------------------------------------------------------------------

type testMocks struct {
	ffmpegResolver *mockFFmpegResolver
	configLoader   *mockConfigLoader
	clients        *mockClientFactory
	media          *mockMediaFactory
	backend        *mockBackendFactory
	stdout         *syncBuffer
	stderr         *syncBuffer
}

// testEnv creates an Env with every dependency mocked. cfg is returned by
// the config loader on each call.
func testEnv(cfg config.Config) (*Env, *testMocks) {
	m := &testMocks{
		ffmpegResolver: &mockFFmpegResolver{},
		configLoader:   &mockConfigLoader{LoadFunc: func() (config.Config, error) { return cfg, nil }},
		clients:        &mockClientFactory{client: &mockClient{}},
		media:          &mockMediaFactory{prober: &mockProber{seconds: 45}, extractor: &mockExtractor{}},
		backend:        &mockBackendFactory{},
		stdout:         &syncBuffer{},
		stderr:         &syncBuffer{},
	}

	env := &Env{
		Stdout:         m.stdout,
		Stderr:         m.stderr,
		Getenv:         staticEnv(nil),
		Now:            fixedTime(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)),
		FFmpegResolver: m.ffmpegResolver,
		ConfigLoader:   m.configLoader,
		ClientFactory:  m.clients,
		MediaFactory:   m.media,
		BackendFactory: m.backend,
	}
	return env, m
}

// testConfig returns the compiled defaults with transcripts and chunks kept
// under t's temp dir and fast retries.
func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")
	cfg.WorkDir = filepath.Join(t.TempDir(), "work")
	cfg.RetryDelay = time.Millisecond
	cfg.LogLevel = "error"
	if err := os.MkdirAll(cfg.OutputDir, 0o750); err != nil {
		t.Fatalf("create output dir: %v", err)
	}
	return cfg
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func fixedTime(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// staticEnv returns a getenv function that returns values from the given map.
func staticEnv(env map[string]string) func(string) string {
	return func(key string) string {
		return env[key]
	}
}

// createTestMediaFile creates a non-empty media file and returns its path.
func createTestMediaFile(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte("fake audio content"), 0o600); err != nil {
		t.Fatalf("failed to create test media file: %v", err)
	}
	return p
}

// execute runs cmd with args the way main does, with cobra's own output
// silenced.
func execute(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return cmd.ExecuteContext(context.Background())
}

// dirEntries lists the names under dir, or nil when dir does not exist.
func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
