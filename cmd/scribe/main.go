package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alnah/go-scribe/internal/apierr"
	"github.com/alnah/go-scribe/internal/billing"
	"github.com/alnah/go-scribe/internal/cli"
	"github.com/alnah/go-scribe/internal/config"
	"github.com/alnah/go-scribe/internal/ffmpeg"
	"github.com/alnah/go-scribe/internal/interrupt"
	"github.com/alnah/go-scribe/internal/lang"
	"github.com/alnah/go-scribe/internal/logger"
	"github.com/alnah/go-scribe/internal/media"
	"github.com/alnah/go-scribe/internal/settings"
	"github.com/alnah/go-scribe/internal/transcribe"
	"github.com/alnah/go-scribe/internal/transcript"
	"github.com/alnah/go-scribe/internal/workflow"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK            = 0
	ExitGeneral       = 1
	ExitUsage         = 2
	ExitSetup         = 3
	ExitValidation    = 4
	ExitTranscription = 5
	ExitBilling       = 6
	ExitInterrupt     = interrupt.ExitInterrupt
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// First Ctrl+C cancels the run so cleanup and refunds still happen;
	// a second one exits immediately.
	handler, ctx := interrupt.NewHandler(context.Background())

	env := cli.DefaultEnv()

	rootCmd := &cobra.Command{
		Use:     "scribe",
		Short:   "Transcribe media files with per-user credits",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cli.BindGlobalFlags(rootCmd, env)

	rootCmd.AddCommand(cli.TranscribeCmd(env))
	rootCmd.AddCommand(cli.ResumeCmd(env))
	rootCmd.AddCommand(cli.BalanceCmd(env))
	rootCmd.AddCommand(cli.TopupCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))

	err := rootCmd.ExecuteContext(ctx)
	handler.Stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	// Interrupt: either the context itself or a run that ended cancelled.
	if errors.Is(err, context.Canceled) || errors.Is(err, workflow.ErrCancelled) {
		return ExitInterrupt
	}

	// Usage errors: Cobra flag/arg parsing errors.
	// Cobra doesn't expose typed errors, so we check for known error message patterns.
	if isCobraUsageError(err) {
		return ExitUsage
	}

	// Setup errors.
	if errors.Is(err, ffmpeg.ErrNotFound) || errors.Is(err, transcribe.ErrAPIKeyMissing) ||
		errors.Is(err, cli.ErrUnsupportedProvider) || errors.Is(err, cli.ErrProviderURLMissing) ||
		errors.Is(err, cli.ErrPersistenceRequired) || errors.Is(err, cli.ErrBackendUnavailable) ||
		errors.Is(err, config.ErrInvalidValue) || errors.Is(err, config.ErrInvalidSyntax) ||
		errors.Is(err, logger.ErrInvalidLevel) || errors.Is(err, logger.ErrInvalidFormat) ||
		errors.Is(err, workflow.ErrMissingDependency) {
		return ExitSetup
	}

	// Billing errors.
	if errors.Is(err, billing.ErrInsufficientFunds) || errors.Is(err, billing.ErrUnknownTier) ||
		errors.Is(err, billing.ErrInvalidAmount) || errors.Is(err, billing.ErrLedger) {
		return ExitBilling
	}

	// Validation errors.
	if errors.Is(err, settings.ErrInvalidRequest) || errors.Is(err, settings.ErrInvalidModel) ||
		errors.Is(err, settings.ErrInvalidAccuracy) || errors.Is(err, lang.ErrInvalid) ||
		errors.Is(err, media.ErrUnsupportedFormat) || errors.Is(err, media.ErrFileTooLarge) ||
		errors.Is(err, media.ErrMediaNotFound) || errors.Is(err, cli.ErrOutputExists) ||
		errors.Is(err, config.ErrNotDirectory) || errors.Is(err, config.ErrNotWritable) ||
		errors.Is(err, cli.ErrInvalidArgument) || errors.Is(err, config.ErrUnknownKey) ||
		errors.Is(err, workflow.ErrRunNotFound) || errors.Is(err, workflow.ErrRunTerminal) {
		return ExitValidation
	}

	// Transcription errors.
	if errors.Is(err, transcribe.ErrTranscriptionFailed) || errors.Is(err, media.ErrChunkExtractionFailed) ||
		errors.Is(err, transcript.ErrAggregationInvariant) || errors.Is(err, apierr.ErrRateLimit) ||
		errors.Is(err, apierr.ErrQuotaExceeded) || errors.Is(err, apierr.ErrTimeout) ||
		errors.Is(err, apierr.ErrAuthFailed) {
		return ExitTranscription
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
// These patterns are stable across Cobra versions (tested with v1.8+).
var cobraUsageErrorPatterns = []string{
	"required flag",             // Missing required flag
	"unknown flag",              // Flag doesn't exist
	"unknown shorthand",         // Short flag doesn't exist
	"unknown command",           // Subcommand doesn't exist
	"flag needs an argument",    // Flag provided without value
	"invalid argument",          // Invalid flag value type
	"if any flags in the group", // Mutually exclusive flag violation
	"accepts ",                  // Wrong number of arguments (e.g., "accepts 1 arg(s)")
	"requires at least",         // Too few arguments
	"requires at most",          // Too many arguments
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
