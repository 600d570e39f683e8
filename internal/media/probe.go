package media

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
)

// DefaultFallbackDuration is used when the real duration cannot be read.
const DefaultFallbackDuration = 300.0

var (
	durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)(?:\.(\d+))?`)
	progressRe = regexp.MustCompile(`time=(\d+):(\d+):(\d+)(?:\.(\d+))?`)
)

// ProbeResult is the outcome of a duration probe.
type ProbeResult struct {
	Seconds float64 `json:"seconds"`

	// Estimated is true when Seconds is the fallback, not a measurement.
	Estimated bool `json:"estimated"`
}

// Prober reads media duration with FFmpeg.
type Prober struct {
	ffmpegPath string
	fallback   float64
	cmd        commandRunner
	logger     *slog.Logger
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithFallback sets the duration reported when probing fails.
func WithFallback(seconds float64) ProberOption {
	return func(p *Prober) {
		if validSeconds(seconds) {
			p.fallback = seconds
		}
	}
}

// WithProberLogger sets the logger receiving probe failures.
func WithProberLogger(l *slog.Logger) ProberOption {
	return func(p *Prober) { p.logger = l }
}

// NewProber creates a Prober that runs ffmpegPath through cmd.
func NewProber(ffmpegPath string, cmd commandRunner, opts ...ProberOption) *Prober {
	p := &Prober{
		ffmpegPath: ffmpegPath,
		fallback:   DefaultFallbackDuration,
		cmd:        cmd,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe returns the duration of path. It never fails: any error is logged
// and the fallback is returned with Estimated set.
func (p *Prober) Probe(ctx context.Context, path string) ProbeResult {
	seconds, err := p.probe(ctx, path)
	if err != nil {
		p.logger.Warn("using fallback duration",
			"path", path, "fallback_seconds", p.fallback,
			"error", fmt.Errorf("%w: %v", ErrProbeFailed, err))
		return ProbeResult{Seconds: p.fallback, Estimated: true}
	}
	return ProbeResult{Seconds: seconds}
}

func (p *Prober) probe(ctx context.Context, path string) (float64, error) {
	// Without an output file ffmpeg prints the stream info and exits 1.
	output, err := p.cmd.RunOutput(ctx, p.ffmpegPath, []string{"-hide_banner", "-i", path})
	if err != nil && output == "" {
		return 0, err
	}
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	return parseDurationFromFFmpegOutput(output)
}

// parseDurationFromFFmpegOutput extracts seconds from FFmpeg stderr.
// Looks for "Duration: HH:MM:SS.ms", then the last "time=HH:MM:SS.ms".
func parseDurationFromFFmpegOutput(output string) (float64, error) {
	var seconds float64
	if m := durationRe.FindStringSubmatch(output); m != nil {
		seconds = parseTimeComponents(m[1], m[2], m[3], m[4])
	} else if all := progressRe.FindAllStringSubmatch(output, -1); len(all) > 0 {
		m := all[len(all)-1]
		seconds = parseTimeComponents(m[1], m[2], m[3], m[4])
	} else {
		return 0, fmt.Errorf("could not parse duration from ffmpeg output")
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("ffmpeg reported zero duration")
	}
	return seconds, nil
}

// parseTimeComponents converts HH:MM:SS.frac strings to seconds.
// The fractional part may have any number of digits.
func parseTimeComponents(hours, minutes, secs, fractional string) float64 {
	h, _ := strconv.Atoi(hours)
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(secs)

	var frac float64
	if fractional != "" {
		frac, _ = strconv.ParseFloat("0."+fractional, 64)
	}
	return float64(h*3600+m*60+s) + frac
}
