package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/Skryldev/voiceprep/application/inputs"
	"github.com/Skryldev/voiceprep/domain/model"
	"github.com/Skryldev/voiceprep/domain/ports"
	pkgerrors "github.com/Skryldev/voiceprep/pkg/errors"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func (a *app) processCommand() *cobra.Command {
	var (
		outputDir    string
		beside       bool
		workers      int
		stageTimeout time.Duration
		publish      bool
		showProgress bool
	)

	cmd := &cobra.Command{
		Use:   "process <file|dir>...",
		Short: "Process files and directories into *_processed.mp3",
		Long: `Process runs every input through the speech preparation chain.

Directories contribute their supported media files (not recursive). Without
--output-dir or --beside the output location comes from the desktop settings
file. Files that fail are reported and the rest of the batch continues; the
exit status is 1 when any file failed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if beside && outputDir != "" {
				return fmt.Errorf("--beside and --output-dir are mutually exclusive")
			}

			paths, err := inputs.Expand(args)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no supported media files in %v", args)
			}

			policy, err := a.resolvePolicy(outputDir, beside)
			if err != nil {
				return err
			}

			svc, err := a.newService(cmd.Context(), serviceOptions{
				workers:  workers,
				timeouts: ports.Timeouts{Stage: stageTimeout},
				publish:  publish,
				progress: showProgress,
			})
			if err != nil {
				return err
			}

			result, err := svc.Process(cmd.Context(), paths, policy)
			if err != nil {
				return err
			}

			printBatch(a.out, result)
			if result.Failed() > 0 || result.Skipped() > 0 {
				return errBatchFailed
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&outputDir, "output-dir", "o", "", "write every output into this folder")
	f.BoolVar(&beside, "beside", false, "write each output next to its input")
	f.IntVarP(&workers, "workers", "w", 0, "concurrent files (default VOICEPREP_WORKERS or min(NumCPU, 4))")
	f.DurationVar(&stageTimeout, "stage-timeout", 0, "limit per engine invocation (default VOICEPREP_STAGE_TIMEOUT or 10m)")
	f.BoolVar(&publish, "publish", false, "upload outputs to the configured MinIO bucket")
	f.BoolVar(&showProgress, "progress", false, "print stage progress to stderr")

	cmd.Example = `  # Process two recordings, outputs beside them
  voiceprep process --beside talk.m4a interview.wav

  # Process a folder into ./out
  voiceprep process -o out recordings/`
	return cmd
}

func (a *app) resolvePolicy(outputDir string, beside bool) (model.OutputPolicy, error) {
	switch {
	case outputDir != "":
		return model.IntoFolder(outputDir), nil
	case beside:
		return model.BesideInputs(), nil
	}
	settings, err := a.settingsStore().Load()
	if err != nil {
		return model.OutputPolicy{}, fmt.Errorf("read settings %s: %w", a.settingsPath, err)
	}
	return settings.ResolvePolicy(), nil
}

func printBatch(w io.Writer, result *model.BatchResult) {
	for _, o := range result.Outcomes {
		switch o.Status {
		case model.StatusSucceeded:
			r := o.Result
			fmt.Fprintf(w, "ok      %s\n        -> %s\n        %s -> %s (%s smaller, %s)\n",
				o.InputPath, o.OutputPath,
				humanize.Bytes(uint64(r.Input.Size)),
				humanize.Bytes(uint64(r.Output.Size)),
				r.Reduction, r.Elapsed.Round(time.Millisecond))
			if o.PublishedURL != "" {
				fmt.Fprintf(w, "        published %s\n", o.PublishedURL)
			}
			if o.PublishErr != nil {
				fmt.Fprintf(w, "        publish failed: %v\n", o.PublishErr)
			}
		case model.StatusFailed:
			fmt.Fprintf(w, "FAILED  %s\n        %s\n", o.InputPath, describeFailure(o.Err))
		default:
			fmt.Fprintf(w, "skipped %s\n", o.InputPath)
		}
	}
	fmt.Fprintf(w, "\n%d succeeded, %d failed, %d skipped in %s\n",
		result.Succeeded(), result.Failed(), result.Skipped(),
		result.Finished.Sub(result.Started).Round(time.Millisecond))
}

func describeFailure(err error) string {
	if se, ok := pkgerrors.As[*pkgerrors.StageExecutionError](err); ok {
		return fmt.Sprintf("stage %s: %s", se.Stage, se.Diagnostic)
	}
	return err.Error()
}
