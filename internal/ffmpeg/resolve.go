// Package ffmpeg locates the FFmpeg binary used to probe and cut media, and
// runs it.
package ffmpeg

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const (
	// envFFmpegPath overrides binary lookup.
	envFFmpegPath = "FFMPEG_PATH"

	// minFFmpegMajorVersion is the oldest release known to handle -ss/-to
	// input seeking with libvorbis output correctly.
	minFFmpegMajorVersion = 4
)

// ---------------------------------------------------------------------------
// Resolver
// ---------------------------------------------------------------------------

// Resolver finds FFmpeg on the host.
type Resolver struct {
	configured string
	statter    fileStatter
	env        envProvider
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithPath pins the binary path, taking precedence over FFMPEG_PATH.
func WithPath(path string) ResolverOption {
	return func(r *Resolver) { r.configured = path }
}

// WithFileStatter sets the file statter implementation.
func WithFileStatter(s fileStatter) ResolverOption {
	return func(r *Resolver) { r.statter = s }
}

// WithEnvProvider sets the environment provider implementation.
func WithEnvProvider(e envProvider) ResolverOption {
	return func(r *Resolver) { r.env = e }
}

// NewResolver creates a Resolver with the given options.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		statter: osFileStatter{},
		env:     osEnvProvider{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds ffmpeg using the following precedence:
//  1. the path given with WithPath
//  2. FFMPEG_PATH environment variable
//  3. system PATH
//
// An explicit path that does not exist is an error rather than a fallthrough.
func (r *Resolver) Resolve(_ context.Context) (string, error) {
	explicit, source := r.configured, "configured path"
	if explicit == "" {
		explicit, source = r.env.Getenv(envFFmpegPath), envFFmpegPath
	}
	if explicit != "" {
		if _, err := r.statter.Stat(explicit); err != nil {
			return "", fmt.Errorf("%w: %s %q does not exist", ErrNotFound, source, explicit)
		}
		return explicit, nil
	}

	path, err := r.env.LookPath("ffmpeg")
	if err != nil {
		return "", fmt.Errorf("%w: not in PATH (install ffmpeg or set %s)", ErrNotFound, envFFmpegPath)
	}
	return path, nil
}

// ---------------------------------------------------------------------------
// VersionChecker
// ---------------------------------------------------------------------------

// VersionChecker verifies FFmpeg version requirements.
type VersionChecker struct {
	executor *Executor
	logger   *slog.Logger
}

// VersionCheckerOption configures a VersionChecker.
type VersionCheckerOption func(*VersionChecker)

// WithVersionExecutor sets the executor for running FFmpeg.
func WithVersionExecutor(e *Executor) VersionCheckerOption {
	return func(vc *VersionChecker) { vc.executor = e }
}

// WithVersionLogger sets the logger receiving the "too old" warning.
func WithVersionLogger(l *slog.Logger) VersionCheckerOption {
	return func(vc *VersionChecker) { vc.logger = l }
}

// NewVersionChecker creates a VersionChecker with the given options.
func NewVersionChecker(opts ...VersionCheckerOption) *VersionChecker {
	vc := &VersionChecker{
		executor: NewExecutor(),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(vc)
	}
	return vc
}

// Check reports the detected major version, or 0 and false when the output
// could not be parsed. A version below the minimum is logged, not rejected.
func (vc *VersionChecker) Check(ctx context.Context, ffmpegPath string) (int, bool) {
	output, err := vc.executor.RunOutput(ctx, ffmpegPath, []string{"-version"})
	if err != nil && output == "" {
		return 0, false
	}

	major, ok := parseMajorVersion(output)
	if !ok {
		return 0, false
	}
	if major < minFFmpegMajorVersion {
		vc.logger.Warn("ffmpeg older than recommended",
			"path", ffmpegPath, "version", major, "minimum", minFFmpegMajorVersion)
	}
	return major, true
}

// parseMajorVersion reads "ffmpeg version 6.1.1 ..." or "ffmpeg version n6.1 ...".
func parseMajorVersion(output string) (int, bool) {
	first, _, _ := strings.Cut(output, "\n")
	var major int
	if _, err := fmt.Sscanf(first, "ffmpeg version %d", &major); err == nil {
		return major, true
	}
	if _, err := fmt.Sscanf(first, "ffmpeg version n%d", &major); err == nil {
		return major, true
	}
	return 0, false
}
