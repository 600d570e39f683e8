package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Config keys.
const (
	KeyOutputDir        = "output-dir"
	KeyWorkDir          = "work-dir"
	KeyMaxWindow        = "max-window"
	KeyFallbackDuration = "fallback-duration"
	KeyMaxUploadMB      = "max-upload-mb"
	KeyMaxRetries       = "max-retries"
	KeyRetryDelay       = "retry-delay"
	KeyCallTimeout      = "call-timeout"
	KeyParallel         = "parallel"
	KeyOffsetMode       = "offset-mode"
	KeyRefundOnFailure  = "refund-on-failure"
	KeyLocalCredits     = "local-credits"
	KeyProvider         = "provider"
	KeyProviderURL      = "provider-url"
	KeyRedisAddr        = "redis-addr"
	KeyPricingFile      = "pricing-file"
	KeyLogLevel         = "log-level"
	KeyLogFormat        = "log-format"
	KeyLogFile          = "log-file"
	KeyMetricsAddr      = "metrics-addr"
)

// Offset modes for merging window transcripts.
const (
	OffsetModeWindow      = "window"
	OffsetModeLastSegment = "last-segment"
)

// Provider names.
const (
	ProviderOpenAI = "openai"
	ProviderHTTP   = "http"
)

// Defaults returns the compiled defaults.
func Defaults() Config {
	return Config{
		MaxWindow:        600,
		FallbackDuration: 300,
		MaxUploadMB:      100,
		MaxRetries:       3,
		RetryDelay:       time.Second,
		CallTimeout:      5 * time.Minute,
		Parallel:         1,
		OffsetMode:       OffsetModeWindow,
		LocalCredits:     1000,
		Provider:         ProviderOpenAI,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// keySpec ties a key to its environment fallback and its parser.
type keySpec struct {
	name string
	env  string
	help string
	set  func(*Config, string) error
}

var keys = []keySpec{
	{KeyOutputDir, "SCRIBE_OUTPUT_DIR", "default directory for transcripts",
		func(c *Config, v string) error { c.OutputDir = v; return nil }},
	{KeyWorkDir, "SCRIBE_WORK_DIR", "parent directory for chunk files",
		func(c *Config, v string) error { c.WorkDir = v; return nil }},
	{KeyMaxWindow, "SCRIBE_MAX_WINDOW", "longest single transcription window, seconds",
		positiveFloat(func(c *Config, f float64) { c.MaxWindow = f })},
	{KeyFallbackDuration, "SCRIBE_FALLBACK_DURATION", "duration assumed when probing fails, seconds",
		positiveFloat(func(c *Config, f float64) { c.FallbackDuration = f })},
	{KeyMaxUploadMB, "SCRIBE_MAX_UPLOAD_MB", "largest accepted media file, MB",
		positiveInt(func(c *Config, n int64) { c.MaxUploadMB = n })},
	{KeyMaxRetries, "SCRIBE_MAX_RETRIES", "retries per provider call",
		nonNegativeInt(func(c *Config, n int64) { c.MaxRetries = int(n) })},
	{KeyRetryDelay, "SCRIBE_RETRY_DELAY", "initial backoff delay (e.g. 1s)",
		positiveDuration(func(c *Config, d time.Duration) { c.RetryDelay = d })},
	{KeyCallTimeout, "SCRIBE_CALL_TIMEOUT", "timeout of one provider call (e.g. 5m)",
		positiveDuration(func(c *Config, d time.Duration) { c.CallTimeout = d })},
	{KeyParallel, "SCRIBE_PARALLEL", "windows transcribed concurrently",
		positiveInt(func(c *Config, n int64) { c.Parallel = int(n) })},
	{KeyOffsetMode, "SCRIBE_OFFSET_MODE", "how window timestamps are shifted: window or last-segment",
		func(c *Config, v string) error {
			if v != OffsetModeWindow && v != OffsetModeLastSegment {
				return fmt.Errorf("want %s or %s", OffsetModeWindow, OffsetModeLastSegment)
			}
			c.OffsetMode = v
			return nil
		}},
	{KeyRefundOnFailure, "SCRIBE_REFUND_ON_FAILURE", "refund credits when a paid run fails",
		func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return errors.New("want true or false")
			}
			c.RefundOnFailure = b
			return nil
		}},
	{KeyLocalCredits, "SCRIBE_LOCAL_CREDITS", "starting balance of the in-memory ledger",
		nonNegativeInt(func(c *Config, n int64) { c.LocalCredits = n })},
	{KeyProvider, "SCRIBE_PROVIDER", "speech-to-text provider: openai or http",
		func(c *Config, v string) error {
			if v != ProviderOpenAI && v != ProviderHTTP {
				return fmt.Errorf("want %s or %s", ProviderOpenAI, ProviderHTTP)
			}
			c.Provider = v
			return nil
		}},
	{KeyProviderURL, "SCRIBE_PROVIDER_URL", "endpoint of the http provider",
		func(c *Config, v string) error { c.ProviderURL = v; return nil }},
	{KeyRedisAddr, "SCRIBE_REDIS_ADDR", "redis host:port for ledger and runs; empty keeps them in memory",
		func(c *Config, v string) error { c.RedisAddr = v; return nil }},
	{KeyPricingFile, "SCRIBE_PRICING_FILE", "YAML price table",
		func(c *Config, v string) error { c.PricingFile = v; return nil }},
	{KeyLogLevel, "SCRIBE_LOG_LEVEL", "debug, info, warn or error",
		func(c *Config, v string) error { c.LogLevel = v; return nil }},
	{KeyLogFormat, "SCRIBE_LOG_FORMAT", "text or json",
		func(c *Config, v string) error { c.LogFormat = v; return nil }},
	{KeyLogFile, "SCRIBE_LOG_FILE", "rotated log file instead of stderr",
		func(c *Config, v string) error { c.LogFile = v; return nil }},
	{KeyMetricsAddr, "SCRIBE_METRICS_ADDR", "listen address for /metrics",
		func(c *Config, v string) error { c.MetricsAddr = v; return nil }},
}

// Key describes one setting for display.
type Key struct {
	Name string
	Env  string
	Help string
}

// Keys lists the recognized settings in display order.
func Keys() []Key {
	out := make([]Key, len(keys))
	for i, k := range keys {
		out[i] = Key{Name: k.name, Env: k.env, Help: k.help}
	}
	return out
}

// Validate checks that value parses for key without saving it.
func Validate(key, value string) error {
	k, ok := lookup(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	var scratch Config
	if err := k.set(&scratch, value); err != nil {
		return fmt.Errorf("%w: %s=%q: %v", ErrInvalidValue, key, value, err)
	}
	return nil
}

func lookup(name string) (keySpec, bool) {
	for _, k := range keys {
		if k.name == name {
			return k, true
		}
	}
	return keySpec{}, false
}

func positiveFloat(assign func(*Config, float64)) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return errors.New("want a positive number")
		}
		assign(c, f)
		return nil
	}
}

func positiveInt(assign func(*Config, int64)) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return errors.New("want a positive integer")
		}
		assign(c, n)
		return nil
	}
}

func nonNegativeInt(assign func(*Config, int64)) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return errors.New("want a non-negative integer")
		}
		assign(c, n)
		return nil
	}
}

func positiveDuration(assign func(*Config, time.Duration)) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return errors.New("want a positive duration such as 1s or 5m")
		}
		assign(c, d)
		return nil
	}
}
