package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-scribe/internal/billing"
	"github.com/alnah/go-scribe/internal/config"
	"github.com/alnah/go-scribe/internal/ffmpeg"
	"github.com/alnah/go-scribe/internal/media"
	"github.com/alnah/go-scribe/internal/transcribe"
	"github.com/alnah/go-scribe/internal/workflow"
)

// Environment variables read directly by the CLI.
const (
	EnvOpenAIAPIKey   = "OPENAI_API_KEY"
	EnvProviderAPIKey = "SCRIBE_PROVIDER_KEY"
	EnvUser           = "SCRIBE_USER"
)

// defaultUser owns local runs when neither --user nor SCRIBE_USER is set.
const defaultUser = "local"

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have sensible defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
type Env struct {
	// I/O and environment
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
	Now    func() time.Time

	// Global flag overrides; empty means "use the config".
	LogLevel    string
	MetricsAddr string

	// Factories for domain objects
	FFmpegResolver FFmpegResolver
	ConfigLoader   ConfigLoader
	ClientFactory  ClientFactory
	MediaFactory   MediaFactory
	BackendFactory BackendFactory
}

// FFmpegResolver resolves the path to the FFmpeg binary.
type FFmpegResolver interface {
	Resolve(ctx context.Context) (string, error)
	CheckVersion(ctx context.Context, ffmpegPath string)
}

// ConfigLoader loads and provides access to configuration.
type ConfigLoader interface {
	Load() (config.Config, error)
}

// ClientFactory creates the speech-to-text client selected by the config.
type ClientFactory interface {
	NewClient(cfg config.Config, getenv func(string) string) (transcribe.Client, error)
}

// MediaFactory creates the FFmpeg-backed media tools.
type MediaFactory interface {
	NewProber(ffmpegPath string, fallback float64, logger *slog.Logger) workflow.Prober
	NewExtractor(ffmpegPath string) workflow.Extractor
}

// BackendFactory opens the ledger and run store.
type BackendFactory interface {
	NewBackend(ctx context.Context, cfg config.Config) (*Backend, error)
}

// Backend is where credits and runs live. Persistent is false for the
// in-memory backend, whose state ends with the process.
type Backend struct {
	Ledger     billing.Ledger
	Store      workflow.Store
	Persistent bool
	closer     io.Closer
}

// Close releases the backend's connections.
func (b *Backend) Close() error {
	if b == nil || b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) { e.Stdout = w }
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) { e.Stderr = w }
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) { e.Getenv = fn }
}

// WithNow sets the time provider.
func WithNow(fn func() time.Time) EnvOption {
	return func(e *Env) { e.Now = fn }
}

// WithFFmpegResolver sets the FFmpeg resolver.
func WithFFmpegResolver(r FFmpegResolver) EnvOption {
	return func(e *Env) { e.FFmpegResolver = r }
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) { e.ConfigLoader = l }
}

// WithClientFactory sets the transcription client factory.
func WithClientFactory(f ClientFactory) EnvOption {
	return func(e *Env) { e.ClientFactory = f }
}

// WithMediaFactory sets the media tools factory.
func WithMediaFactory(f MediaFactory) EnvOption {
	return func(e *Env) { e.MediaFactory = f }
}

// WithBackendFactory sets the backend factory.
func WithBackendFactory(f BackendFactory) EnvOption {
	return func(e *Env) { e.BackendFactory = f }
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
		Getenv:         os.Getenv,
		Now:            time.Now,
		FFmpegResolver: &defaultFFmpegResolver{},
		ConfigLoader:   &defaultConfigLoader{},
		ClientFactory:  &defaultClientFactory{},
		MediaFactory:   &defaultMediaFactory{},
		BackendFactory: &defaultBackendFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// defaultFFmpegResolver implements FFmpegResolver using the ffmpeg package.
type defaultFFmpegResolver struct{}

func (defaultFFmpegResolver) Resolve(ctx context.Context) (string, error) {
	return ffmpeg.NewResolver().Resolve(ctx)
}

func (defaultFFmpegResolver) CheckVersion(ctx context.Context, ffmpegPath string) {
	ffmpeg.NewVersionChecker().Check(ctx, ffmpegPath)
}

// defaultConfigLoader implements ConfigLoader using the config package.
type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (config.Config, error) {
	return config.Load()
}

// defaultClientFactory picks OpenAI or a whisper-compatible HTTP endpoint.
type defaultClientFactory struct{}

func (defaultClientFactory) NewClient(cfg config.Config, getenv func(string) string) (transcribe.Client, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		key := getenv(EnvOpenAIAPIKey)
		if key == "" {
			return nil, fmt.Errorf("%w (set it with: export %s=sk-...)", transcribe.ErrAPIKeyMissing, EnvOpenAIAPIKey)
		}
		oc := openai.DefaultConfig(key)
		if cfg.ProviderURL != "" {
			oc.BaseURL = cfg.ProviderURL
		}
		return transcribe.NewOpenAIClient(openai.NewClientWithConfig(oc)), nil
	case config.ProviderHTTP:
		if cfg.ProviderURL == "" {
			return nil, fmt.Errorf("%w (set it with: scribe config set %s <url>)", ErrProviderURLMissing, config.KeyProviderURL)
		}
		return transcribe.NewHTTPClient(cfg.ProviderURL,
			transcribe.WithAPIKey(getenv(EnvProviderAPIKey)),
			transcribe.WithHTTPClient(&http.Client{Timeout: cfg.CallTimeout}),
		), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
}

// defaultMediaFactory runs FFmpeg for real.
type defaultMediaFactory struct{}

func (defaultMediaFactory) NewProber(ffmpegPath string, fallback float64, logger *slog.Logger) workflow.Prober {
	return media.NewProber(ffmpegPath, ffmpeg.NewExecutor(),
		media.WithFallback(fallback), media.WithProberLogger(logger))
}

func (defaultMediaFactory) NewExtractor(ffmpegPath string) workflow.Extractor {
	return media.NewExtractor(ffmpegPath, ffmpeg.NewExecutor())
}

// defaultBackendFactory uses redis when an address is configured and
// process memory otherwise.
type defaultBackendFactory struct{}

func (defaultBackendFactory) NewBackend(ctx context.Context, cfg config.Config) (*Backend, error) {
	if cfg.RedisAddr == "" {
		return &Backend{
			Ledger: billing.NewMemoryLedger(billing.WithInitialBalance(cfg.LocalCredits)),
			Store:  workflow.NewMemoryStore(),
		}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis %s: %v", ErrBackendUnavailable, cfg.RedisAddr, err)
	}
	return &Backend{
		Ledger:     billing.NewRedisLedger(client),
		Store:      workflow.NewRedisStore(client),
		Persistent: true,
		closer:     client,
	}, nil
}

// Compile-time interface verification.
var (
	_ FFmpegResolver = (*defaultFFmpegResolver)(nil)
	_ ConfigLoader   = (*defaultConfigLoader)(nil)
	_ ClientFactory  = (*defaultClientFactory)(nil)
	_ MediaFactory   = (*defaultMediaFactory)(nil)
	_ BackendFactory = (*defaultBackendFactory)(nil)
)
