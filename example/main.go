package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Skryldev/voiceprep"
)

func main() {
	// ── Graceful shutdown via signal ──────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Progress channel ──────────────────────────────────────────────────
	progressCh := make(chan voiceprep.ProgressUpdate, 32)
	go func() {
		for upd := range progressCh {
			fmt.Printf("[%s] stage=%-18s %3.0f%%  %s\n",
				upd.JobID[:8], upd.Stage, upd.Percent, upd.Message)
		}
	}()

	// ── Create processor ──────────────────────────────────────────────────
	processor, err := voiceprep.New(voiceprep.Config{
		Workers:    2,
		ProgressCh: progressCh,
	})
	if err != nil {
		log.Fatalf("failed to create processor: %v", err)
	}
	defer func() {
		close(progressCh)
		processor.Close()
	}()

	inputs := os.Args[1:]
	if len(inputs) == 0 {
		inputs = []string{"/tmp/sample.wav"}
	}

	// ── Probe ─────────────────────────────────────────────────────────────
	fmt.Println("\n── Probe ──")
	for _, in := range inputs {
		asset, err := processor.ProbeAudio(ctx, in)
		if err != nil {
			fmt.Printf("%s: %v\n", in, err)
			continue
		}
		fmt.Printf("%s: %s\n", in, asset.Describe())
	}

	// ── Batch beside inputs ───────────────────────────────────────────────
	fmt.Println("\n── Batch ──")
	result, err := processor.Process(ctx, inputs, voiceprep.BesideInputs())
	switch {
	case errors.Is(err, voiceprep.ErrEngineUnavailable):
		log.Fatalf("ffmpeg is not usable: %v", err)
	case errors.Is(err, voiceprep.ErrInputNotFound):
		log.Fatalf("missing input: %v", err)
	case err != nil:
		log.Fatalf("batch rejected: %v", err)
	}

	for _, o := range result.Outcomes {
		if o.Status != voiceprep.StatusSucceeded {
			fmt.Printf("  %-8s %s: %v\n", o.Status, o.InputPath, o.Err)
			continue
		}
		fmt.Printf("  %-8s %s -> %s (reduction %s)\n",
			o.Status, o.InputPath, o.OutputPath, o.Result.Reduction)
	}
	fmt.Printf("\n%d succeeded, %d failed, %d skipped\n",
		result.Succeeded(), result.Failed(), result.Skipped())
}
