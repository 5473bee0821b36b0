// ABOUTME: Entry point for the resample command line tool
// ABOUTME: Parses CLI flags and converts each input to the target sample rate
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/resample-go/internal/convert"
	"github.com/Resonate-Protocol/resample-go/internal/ui"
	"github.com/Resonate-Protocol/resample-go/internal/version"
	"github.com/Resonate-Protocol/resample-go/pkg/audio/output"
	"github.com/Resonate-Protocol/resample-go/pkg/audio/source"
	tea "github.com/charmbracelet/bubbletea"
)

var (
	rate         = flag.Int("rate", 48000, "Target sample rate in Hz")
	bits         = flag.Int("bits", 16, "Output bit depth (16 or 24)")
	chunk        = flag.Int("chunk", source.DefaultChunkFrames, "Frames fed to the resampler per pass")
	format       = flag.String("format", "", "Output format: wav or pcm (default: from output extension, else wav)")
	outPath      = flag.String("o", "", "Output path (single input only)")
	outDir       = flag.String("out-dir", "", "Directory for outputs (default: next to each input)")
	play         = flag.Bool("play", false, "Play the resampled audio instead of writing files")
	volume       = flag.Int("volume", 100, "Playback volume (0-100)")
	workers      = flag.Int("workers", runtime.NumCPU(), "Parallel conversions")
	inRate       = flag.Int("in-rate", source.DefaultRawSampleRate, "Sample rate of raw PCM input and the test tone")
	inChannels   = flag.Int("in-channels", source.DefaultRawChannels, "Channels of raw PCM input and the test tone")
	inBits       = flag.Int("in-bits", source.DefaultRawBitDepth, "Bit depth of raw PCM input")
	toneDuration = flag.Duration("tone-duration", source.DefaultToneDuration, "Length of the generated test tone")
	logFile      = flag.String("log-file", "resample.log", "Log file path")
	noTUI        = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	showVersion  = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] input...\n\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "Inputs are .mp3, .flac, .wav, .pcm/.raw files, http(s) URLs, or \"tone\".\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", version.Product, version.Version)
		return
	}

	inputs := flag.Args()
	if len(inputs) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if *outPath != "" && len(inputs) > 1 {
		fmt.Fprintln(os.Stderr, "-o can only be used with a single input")
		os.Exit(2)
	}

	// Playback shares one device, so there is nothing for a TUI to track
	useTUI := !*noTUI && !*play

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		// Streaming logs mode: log to both stdout and file
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	debugf("Flags: rate=%d bits=%d chunk=%d format=%q workers=%d", *rate, *bits, *chunk, *format, *workers)

	jobs, err := buildJobs(inputs)
	if err != nil {
		log.Fatalf("Invalid arguments: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := convert.Options{}

	if *play {
		player := output.NewOto()
		player.SetVolume(*volume)
		defer player.Close()
		opts.Player = player
	}

	// TUI setup
	var tuiProg *tea.Program
	tuiDone := make(chan struct{})

	if useTUI {
		ctrl := ui.NewControl()
		tuiProg = ui.Run(jobs, ctrl)
		go func() {
			defer close(tuiDone)
			if _, err := tuiProg.Run(); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()
		go func() {
			select {
			case <-ctrl.Quit:
				log.Printf("Received quit signal from TUI")
				cancel()
			case <-ctx.Done():
			}
		}()
		opts.OnProgress = func(p convert.Progress) {
			tuiProg.Send(ui.ProgressMsg(p))
		}
	} else {
		close(tuiDone)
		opts.OnProgress = func(p convert.Progress) {
			if *debug && !p.Finished {
				debugf("%s: %d/%d frames", p.Input, p.Done, p.Total)
			}
		}
	}

	log.Printf("Starting %s %s: %d inputs -> %dHz", version.Product, version.Version, len(jobs), *rate)

	started := time.Now()
	results, err := convert.RunBatch(ctx, jobs, *workers, opts)

	if tuiProg != nil {
		tuiProg.Send(ui.DoneMsg{})
	}
	<-tuiDone

	for _, res := range results {
		if res.JobID == "" {
			continue
		}
		target := res.Output
		if *play {
			target = "playback"
		}
		fmt.Printf("%s -> %s (%dHz -> %dHz, %d frames)\n", res.Input, target, res.InputRate, res.OutputRate, res.Frames)
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Printf("Conversion cancelled")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "resample: %v\n", err)
		os.Exit(1)
	}

	log.Printf("Done in %v", time.Since(started).Round(time.Millisecond))
}

// buildJobs turns the positional inputs into conversion jobs
func buildJobs(inputs []string) ([]convert.Job, error) {
	if *rate <= 0 {
		return nil, fmt.Errorf("invalid -rate %d", *rate)
	}
	if *bits != 16 && *bits != 24 {
		return nil, fmt.Errorf("invalid -bits %d (supported: 16, 24)", *bits)
	}

	jobs := make([]convert.Job, 0, len(inputs))
	for _, input := range inputs {
		dst := *outPath
		if dst == "" {
			dst = convert.DefaultOutputPath(input, *rate, *format)
			if *outDir != "" {
				dst = filepath.Join(*outDir, filepath.Base(dst))
			}
		}

		job := convert.NewJob(input, dst, *rate)
		if *play {
			job.Output = ""
		}
		job.Format = *format
		job.BitDepth = *bits
		job.ChunkFrames = *chunk
		job.Play = *play
		job.Source = source.Options{
			SampleRate: *inRate,
			Channels:   *inChannels,
			BitDepth:   *inBits,
			Duration:   *toneDuration,
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// debugf logs only when -debug is set
func debugf(msg string, args ...any) {
	if *debug {
		log.Printf("[DEBUG] "+msg, args...)
	}
}
