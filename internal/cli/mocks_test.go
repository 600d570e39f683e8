package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/alnah/go-scribe/internal/billing"
	"github.com/alnah/go-scribe/internal/config"
	"github.com/alnah/go-scribe/internal/media"
	"github.com/alnah/go-scribe/internal/settings"
	"github.com/alnah/go-scribe/internal/transcribe"
	"github.com/alnah/go-scribe/internal/transcript"
	"github.com/alnah/go-scribe/internal/workflow"
)

// ---------------------------------------------------------------------------
// Mock FFmpegResolver
// ---------------------------------------------------------------------------

type mockFFmpegResolver struct {
	ResolveFunc func(ctx context.Context) (string, error)

	mu           sync.Mutex
	resolveCalls int
}

func (m *mockFFmpegResolver) Resolve(ctx context.Context) (string, error) {
	m.mu.Lock()
	m.resolveCalls++
	m.mu.Unlock()

	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx)
	}
	return "/usr/bin/ffmpeg", nil
}

func (m *mockFFmpegResolver) CheckVersion(context.Context, string) {}

func (m *mockFFmpegResolver) ResolveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveCalls
}

// ---------------------------------------------------------------------------
// Mock ConfigLoader
// ---------------------------------------------------------------------------

type mockConfigLoader struct {
	LoadFunc func() (config.Config, error)
}

func (m *mockConfigLoader) Load() (config.Config, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc()
	}
	return config.Defaults(), nil
}

// ---------------------------------------------------------------------------
// Mock ClientFactory + Client
// ---------------------------------------------------------------------------

type mockClientFactory struct {
	NewClientFunc func(cfg config.Config, getenv func(string) string) (transcribe.Client, error)
	client        *mockClient
}

func (m *mockClientFactory) NewClient(cfg config.Config, getenv func(string) string) (transcribe.Client, error) {
	if m.NewClientFunc != nil {
		return m.NewClientFunc(cfg, getenv)
	}
	if m.client == nil {
		m.client = &mockClient{}
	}
	return m.client, nil
}

type mockClient struct {
	TranscribeFunc func(ctx context.Context, audioPath string, s settings.Settings) (transcript.Transcript, error)

	mu    sync.Mutex
	paths []string
}

func (m *mockClient) Transcribe(ctx context.Context, audioPath string, s settings.Settings) (transcript.Transcript, error) {
	m.mu.Lock()
	m.paths = append(m.paths, audioPath)
	m.mu.Unlock()

	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, audioPath, s)
	}
	return transcript.Transcript{
		Text:     "hello world",
		Segments: []transcript.Segment{{Start: 0, End: 2, Text: "hello world"}},
		Language: "en",
	}, nil
}

func (m *mockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.paths)
}

// ---------------------------------------------------------------------------
// Mock MediaFactory + Prober + Extractor
// ---------------------------------------------------------------------------

type mockMediaFactory struct {
	prober    *mockProber
	extractor *mockExtractor
}

func (m *mockMediaFactory) NewProber(string, float64, *slog.Logger) workflow.Prober {
	if m.prober == nil {
		m.prober = &mockProber{seconds: 45}
	}
	return m.prober
}

func (m *mockMediaFactory) NewExtractor(string) workflow.Extractor {
	if m.extractor == nil {
		m.extractor = &mockExtractor{}
	}
	return m.extractor
}

type mockProber struct {
	seconds float64

	mu    sync.Mutex
	calls int
}

func (m *mockProber) Probe(context.Context, string) media.ProbeResult {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return media.ProbeResult{Seconds: m.seconds}
}

func (m *mockProber) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockExtractor writes a small file per window so cleanup has something to remove.
type mockExtractor struct{}

func (m *mockExtractor) Extract(_ context.Context, _ string, w media.Window, dir string) (media.ChunkArtifact, error) {
	p := media.ChunkPath(dir, w)
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return media.ChunkArtifact{}, err
	}
	if err := os.WriteFile(p, []byte("chunk"), 0o600); err != nil {
		return media.ChunkArtifact{}, err
	}
	return media.ChunkArtifact{Window: w, Path: p}, nil
}

// ---------------------------------------------------------------------------
// Mock BackendFactory
// ---------------------------------------------------------------------------

// mockBackendFactory hands out the same in-memory ledger and store on every
// call, so state survives across commands within one test.
type mockBackendFactory struct {
	NewBackendFunc func(ctx context.Context, cfg config.Config) (*Backend, error)
	persistent     bool

	mu     sync.Mutex
	ledger *billing.MemoryLedger
	store  *workflow.MemoryStore
}

func (m *mockBackendFactory) NewBackend(ctx context.Context, cfg config.Config) (*Backend, error) {
	if m.NewBackendFunc != nil {
		return m.NewBackendFunc(ctx, cfg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ledger == nil {
		m.ledger = billing.NewMemoryLedger(billing.WithInitialBalance(cfg.LocalCredits))
		m.store = workflow.NewMemoryStore()
	}
	return &Backend{Ledger: m.ledger, Store: m.store, Persistent: m.persistent}, nil
}

// Compile-time interface verification.
var (
	_ FFmpegResolver    = (*mockFFmpegResolver)(nil)
	_ ConfigLoader      = (*mockConfigLoader)(nil)
	_ ClientFactory     = (*mockClientFactory)(nil)
	_ MediaFactory      = (*mockMediaFactory)(nil)
	_ BackendFactory    = (*mockBackendFactory)(nil)
	_ transcribe.Client = (*mockClient)(nil)
)
