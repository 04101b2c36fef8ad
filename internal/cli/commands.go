package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Skryldev/voiceprep/application/watch"
	"github.com/Skryldev/voiceprep/domain/model"
	"github.com/Skryldev/voiceprep/internal/config"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func (a *app) probeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>",
		Short: "Show what the engine sees in a media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.newService(cmd.Context(), serviceOptions{})
			if err != nil {
				return err
			}
			asset, err := svc.ProbeAudio(cmd.Context(), args[0])
			fmt.Fprintf(a.out, "%s\n  %s\n  size %s\n", args[0], asset.Describe(), humanize.Bytes(uint64(asset.Size)))
			return err
		},
	}
}

func (a *app) checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify ffmpeg and ffprobe can run every stage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.newExecutor()
			if err != nil {
				return err
			}
			svc, err := a.newServiceWith(cmd.Context(), engine, serviceOptions{})
			if err != nil {
				return err
			}
			if err := svc.CheckEngine(cmd.Context()); err != nil {
				return err
			}
			version, err := engine.Version(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "ffmpeg  %s\n        %s\nffprobe %s\n", engine.FFmpegPath(), version, engine.FFprobePath())
			fmt.Fprintln(a.out, "engine ok; stages:")
			for _, s := range svc.Stages() {
				fmt.Fprintf(a.out, "  %s\n", s)
			}
			return nil
		},
	}
}

func (a *app) watchCommand() *cobra.Command {
	var (
		outputDir string
		settle    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Process media files as they are written into a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := a.resolvePolicy(outputDir, false)
			if err != nil {
				return err
			}
			svc, err := a.newService(cmd.Context(), serviceOptions{})
			if err != nil {
				return err
			}
			if err := svc.CheckEngine(cmd.Context()); err != nil {
				return err
			}

			w, err := watch.New(svc, watch.Config{
				Dir:    args[0],
				Policy: policy,
				Settle: settle,
				Logger: a.log,
				OnResult: func(path string, result *model.BatchResult, err error) {
					if err != nil {
						fmt.Fprintf(a.out, "FAILED  %s\n        %v\n", path, err)
						return
					}
					printBatch(a.out, result)
				},
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "watching %s (Ctrl-C to stop)\n", args[0])
			return w.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "write outputs into this folder instead of the saved setting")
	cmd.Flags().DurationVar(&settle, "settle", 2*time.Second, "quiet period before a new file is processed")
	return cmd
}

func (a *app) settingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the saved output location",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the saved settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := a.settingsStore().Load()
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(settings, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "# %s\n%s\npolicy: %s\n", a.settingsPath, data, settings.ResolvePolicy())
			return nil
		},
	}

	setOutput := &cobra.Command{
		Use:   "set-output <dir>",
		Short: "Write outputs into dir by default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			return a.updateSettings(func(s *config.Settings) {
				s.OutputFolder = dir
				s.UseCustomOutput = true
			})
		},
	}

	clearOutput := &cobra.Command{
		Use:   "clear-output",
		Short: "Write outputs beside their inputs by default",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.updateSettings(func(s *config.Settings) {
				s.UseCustomOutput = false
			})
		},
	}

	cmd.AddCommand(show, setOutput, clearOutput)
	return cmd
}

func (a *app) updateSettings(change func(*config.Settings)) error {
	store := a.settingsStore()
	settings, err := store.Load()
	if err != nil {
		return err
	}
	change(&settings)
	if err := store.Save(settings); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "policy: %s\n", settings.ResolvePolicy())
	return nil
}
