// Package cli implements the voiceprep command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Skryldev/voiceprep/application/usecase"
	"github.com/Skryldev/voiceprep/domain/ports"
	"github.com/Skryldev/voiceprep/infrastructure/ffmpeg"
	"github.com/Skryldev/voiceprep/infrastructure/storage"
	"github.com/Skryldev/voiceprep/internal/config"
	"github.com/Skryldev/voiceprep/pkg/logger"
	"github.com/Skryldev/voiceprep/pkg/progress"
	"github.com/spf13/cobra"
)

// errBatchFailed makes the process exit non-zero after a report was printed.
var errBatchFailed = errors.New("one or more files failed")

type app struct {
	out io.Writer
	err io.Writer

	verbose      bool
	logFile      string
	envFile      string
	settingsPath string

	cfg *config.Config
	log *logger.Logger
}

// NewRootCommand builds the command tree writing to out and errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, err: errOut}

	root := &cobra.Command{
		Use:   "voiceprep",
		Short: "Prepare recorded speech for speech-to-text",
		Long: `voiceprep converts audio and video recordings into small mono MP3 files
tuned for speech-to-text: downmix and resample to 16 kHz, band-limit, compress,
shorten long silences, normalize loudness and encode at 64 kbit/s.

Originals are never modified; each output is written as <name>_processed.mp3.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")
	pf.StringVar(&a.logFile, "log-file", "", "also write JSON logs to this rotated file")
	pf.StringVar(&a.envFile, "env-file", "", "load VOICEPREP_* settings from this file (default .env)")
	pf.StringVar(&a.settingsPath, "settings", config.DefaultSettingsPath(), "desktop settings file")

	root.AddCommand(
		a.processCommand(),
		a.probeCommand(),
		a.checkCommand(),
		a.watchCommand(),
		a.settingsCommand(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context) int {
	root := NewRootCommand(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errBatchFailed) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		return 1
	}
	return 0
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	if a.envFile != "" {
		a.cfg = config.Load(a.envFile)
	} else {
		a.cfg = config.Load()
	}

	opts := logger.Options{
		Development: a.cfg.Development || a.verbose,
		Level:       a.cfg.LogLevel,
		FilePath:    a.cfg.LogFile,
	}
	if a.verbose {
		opts.Level = "debug"
	}
	if a.logFile != "" {
		opts.FilePath = a.logFile
	}

	log, err := logger.NewWithOptions(opts)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.log = log
	return nil
}

type serviceOptions struct {
	workers  int
	timeouts ports.Timeouts
	publish  bool
	progress bool
}

func (a *app) settingsStore() config.Store {
	return config.NewJSONStore(a.settingsPath)
}

func (a *app) newExecutor() (*ffmpeg.Executor, error) {
	return ffmpeg.NewExecutor(ffmpeg.ExecutorConfig{
		FFmpegPath:  a.cfg.FFmpegPath,
		FFprobePath: a.cfg.FFprobePath,
		Logger:      a.log,
	})
}

func (a *app) newService(ctx context.Context, opts serviceOptions) (*usecase.PrepService, error) {
	exec, err := a.newExecutor()
	if err != nil {
		return nil, err
	}
	return a.newServiceWith(ctx, exec, opts)
}

func (a *app) newServiceWith(ctx context.Context, exec ports.FFmpegExecutor, opts serviceOptions) (*usecase.PrepService, error) {
	reporter := progress.NewMultiReporter(progress.NewLogReporter(a.log))
	if opts.progress {
		reporter.Add(&printReporter{w: a.err})
	}

	var publisher ports.Publisher
	if opts.publish {
		minioCfg := storage.MinioConfig{
			Endpoint:  a.cfg.MinioEndpoint,
			AccessKey: a.cfg.MinioAccessKey,
			SecretKey: a.cfg.MinioSecretKey,
			Bucket:    a.cfg.MinioBucket,
			Region:    a.cfg.MinioRegion,
			UseSSL:    a.cfg.MinioUseSSL,
			Prefix:    a.cfg.MinioPrefix,
		}
		pub, err := storage.NewMinioPublisher(minioCfg, a.log)
		if err != nil {
			return nil, fmt.Errorf("--publish: %w", err)
		}
		if err := pub.EnsureBucket(ctx, minioCfg.Region); err != nil {
			return nil, fmt.Errorf("--publish: %w", err)
		}
		publisher = pub
	}

	workers := opts.workers
	if workers <= 0 {
		workers = a.cfg.Workers
	}
	timeouts := ports.Timeouts{Stage: a.cfg.StageTimeout, Probe: a.cfg.ProbeTimeout}
	if opts.timeouts.Stage > 0 {
		timeouts.Stage = opts.timeouts.Stage
	}

	return usecase.NewPrepService(usecase.Config{
		Executor:  exec,
		Storage:   storage.NewLocalStorage(),
		Publisher: publisher,
		Reporter:  reporter,
		Logger:    a.log,
		Workers:   workers,
		Timeouts:  timeouts,
		TempDir:   a.cfg.TempDir,
	})
}

// printReporter writes one line per progress update.
type printReporter struct {
	w io.Writer
}

func (r *printReporter) Report(u progress.Update) {
	id := u.JobID
	if len(id) > 8 {
		id = id[:8]
	}
	fmt.Fprintf(r.w, "[%s] %-18s %3.0f%%  %s\n", id, u.Stage, u.Percent, u.Message)
}
