package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-scribe/internal/config"
	"github.com/alnah/go-scribe/internal/format"
	"github.com/alnah/go-scribe/internal/lang"
	"github.com/alnah/go-scribe/internal/media"
	"github.com/alnah/go-scribe/internal/settings"
	"github.com/alnah/go-scribe/internal/transcribe"
	"github.com/alnah/go-scribe/internal/workflow"
)

// transcribeFlags are the raw flag values of the transcribe command.
type transcribeFlags struct {
	output   string
	user     string
	model    string
	language string
	accuracy string
	parallel int
	duration float64
	keep     bool
}

// transcribeOptions are validated transcribe flags.
type transcribeOptions struct {
	output   string
	user     string
	settings settings.Settings
	duration *float64
	run      runOptions
}

// parseTranscribeOptions validates flags before any I/O.
func parseTranscribeOptions(env *Env, f transcribeFlags) (transcribeOptions, error) {
	model, err := settings.ParseModel(f.model)
	if err != nil {
		return transcribeOptions{}, err
	}
	accuracy, err := settings.ParseAccuracy(f.accuracy)
	if err != nil {
		return transcribeOptions{}, err
	}
	if err := lang.Validate(f.language); err != nil {
		return transcribeOptions{}, err
	}
	language := f.language
	if lang.IsAuto(language) {
		language = lang.Auto
	}

	user := strings.TrimSpace(f.user)
	if user == "" {
		user = env.Getenv(EnvUser)
	}
	if user == "" {
		user = defaultUser
	}

	opts := transcribeOptions{
		output:   f.output,
		user:     user,
		settings: settings.Settings{Model: model, Language: language, Accuracy: accuracy},
		run:      runOptions{parallel: f.parallel, keep: f.keep},
	}
	if f.duration < 0 {
		return transcribeOptions{}, fmt.Errorf("%w: --duration must be positive", settings.ErrInvalidRequest)
	}
	if f.duration > 0 {
		d := f.duration
		opts.duration = &d
	}
	return opts, nil
}

// TranscribeCmd creates the transcribe command.
// The env parameter provides injectable dependencies for testing.
func TranscribeCmd(env *Env) *cobra.Command {
	var f transcribeFlags

	cmd := &cobra.Command{
		Use:   "transcribe <media-file>",
		Short: "Transcribe a media file",
		Long: `Transcribe an audio or video file.

The file's duration is probed, the user's credits are charged once for it,
and the media is split into windows of at most max-window seconds when it is
too long for a single provider call. Window transcripts are merged back onto
the original timeline.

The transcript is written as plain text, or as JSON with timed segments when
the output path ends in .json.

Supported formats: ` + strings.Join(media.SupportedFormats(), ", "),
		Example: `  scribe transcribe interview.mp3
  scribe transcribe lecture.mp4 -m large -l en -a high -o lecture.json
  scribe transcribe call.ogg --user alice --keep`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := parseTranscribeOptions(env, f)
			if err != nil {
				return err
			}
			return runTranscribe(cmd, env, args[0], opts)
		},
	}

	def := settings.Default()
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output file path (default: <input>.txt)")
	cmd.Flags().StringVarP(&f.user, "user", "u", "", "Account charged for the run (default: $"+EnvUser+" or \""+defaultUser+"\")")
	cmd.Flags().StringVarP(&f.model, "model", "m", string(def.Model), "Model tier: tiny, base, small, medium, large")
	cmd.Flags().StringVarP(&f.language, "language", "l", def.Language, "Spoken language (ISO 639-1, e.g. en, pt-BR) or auto")
	cmd.Flags().StringVarP(&f.accuracy, "accuracy", "a", string(def.Accuracy), "Accuracy: high, medium, low")
	cmd.Flags().IntVarP(&f.parallel, "parallel", "p", 0, fmt.Sprintf("Windows transcribed at once (1-%d, default from config)", transcribe.MaxRecommendedParallel))
	cmd.Flags().Float64Var(&f.duration, "duration", 0, "Known duration in seconds; skips probing")
	cmd.Flags().BoolVar(&f.keep, "keep", false, "Keep the finished run in the store")

	return cmd
}

// runTranscribe validates the output, runs the workflow and writes the result.
func runTranscribe(cmd *cobra.Command, env *Env, inputPath string, opts transcribeOptions) error {
	ctx := cmd.Context()

	s, err := openSession(ctx, env)
	if err != nil {
		return err
	}
	defer s.close()

	output := config.ResolveOutputPath(opts.output, config.ExpandPath(s.cfg.OutputDir), deriveOutputPath(filepath.Base(inputPath)))
	if err := prepareOutput(output); err != nil {
		return err
	}

	o, stop, err := s.orchestrator(ctx, env, opts.run)
	if err != nil {
		return err
	}

	run, err := o.Start(ctx, settings.Request{
		UserID:   opts.user,
		MediaRef: inputPath,
		Settings: opts.settings,
		Duration: opts.duration,
	})
	stop()
	if err != nil {
		reportFailure(env, run)
		return err
	}

	return writeResult(env, output, run)
}

// reportFailure names the failed run so its logs can be found.
func reportFailure(env *Env, run *workflow.Run) {
	if run == nil || !run.Failed() {
		return
	}
	fmt.Fprintf(env.Stderr, "Run %s failed: %s\n", run.ID, run.FailureReason)
}

func writeResult(env *Env, output string, run *workflow.Run) error {
	content, err := renderTranscript(output, *run.Result)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(output, content); err != nil {
		return err
	}
	if run.Billing != nil {
		fmt.Fprintf(env.Stderr, "Charged %s, balance %s\n",
			format.Credits(run.Billing.AmountCharged), format.Credits(run.Billing.BalanceAfter))
	}
	fmt.Fprintf(env.Stderr, "Done: %s (%s, run %s)\n", output, format.Seconds(run.Duration), run.ID)
	return nil
}
