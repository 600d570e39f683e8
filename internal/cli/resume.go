package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alnah/go-scribe/internal/config"
)

// ResumeCmd creates the resume command.
func ResumeCmd(env *Env) *cobra.Command {
	var (
		output   string
		parallel int
		keep     bool
	)

	cmd := &cobra.Command{
		Use:   "resume <run-id>",
		Short: "Resume an interrupted run",
		Long: `Resume a run that was interrupted before it finished, for example by a
crash or a lost connection.

Steps that already recorded their output are skipped: the run is never
charged twice and finished windows are not transcribed again. Requires the
redis backend (redis-addr).`,
		Example: `  scribe resume 6f1c2d9e-1b7a-4c1e-9a53-0d6f3f1e8b42 -o interview.txt`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResume(cmd, env, args[0], output, runOptions{parallel: parallel, keep: keep})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (default: <run-id>.txt)")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 0, "Windows transcribed at once (default from config)")
	cmd.Flags().BoolVar(&keep, "keep", false, "Keep the finished run in the store")

	return cmd
}

func runResume(cmd *cobra.Command, env *Env, runID, output string, opts runOptions) error {
	ctx := cmd.Context()

	s, err := openSession(ctx, env)
	if err != nil {
		return err
	}
	defer s.close()

	if !s.backend.Persistent {
		return fmt.Errorf("%w: in-memory runs cannot be resumed", ErrPersistenceRequired)
	}

	output = config.ResolveOutputPath(output, config.ExpandPath(s.cfg.OutputDir), runID+".txt")
	if err := prepareOutput(output); err != nil {
		return err
	}

	o, stop, err := s.orchestrator(ctx, env, opts)
	if err != nil {
		return err
	}

	run, err := o.Resume(ctx, runID)
	stop()
	if err != nil {
		reportFailure(env, run)
		return err
	}
	return writeResult(env, output, run)
}
