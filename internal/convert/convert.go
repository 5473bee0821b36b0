// ABOUTME: Conversion job runner for the resample CLI
// ABOUTME: Opens a source, resamples it and writes WAV, raw PCM or plays it
package convert

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Resonate-Protocol/resample-go/pkg/audio"
	"github.com/Resonate-Protocol/resample-go/pkg/audio/encode"
	"github.com/Resonate-Protocol/resample-go/pkg/audio/output"
	"github.com/Resonate-Protocol/resample-go/pkg/audio/source"
	"github.com/google/uuid"
)

// Output formats
const (
	FormatWAV = "wav"
	FormatPCM = "pcm"
)

// DefaultReadFrames is the number of output frames pulled per write
const DefaultReadFrames = 2048

// ErrNoOutput is returned for jobs that neither write a file nor play
var ErrNoOutput = errors.New("no output path and no player")

// Job describes one input converted to one output
type Job struct {
	ID     string
	Input  string
	Output string
	// Format is FormatWAV or FormatPCM; empty infers it from Output
	Format      string
	Rate        int
	BitDepth    int
	ChunkFrames int
	Play        bool

	// Source describes headerless PCM input and the test tone
	Source source.Options
}

// NewJob creates a job with a fresh ID and the output path derived from the
// input when output is empty
func NewJob(input, outputPath string, rate int) Job {
	if outputPath == "" {
		outputPath = DefaultOutputPath(input, rate, FormatWAV)
	}
	return Job{
		ID:       uuid.NewString(),
		Input:    input,
		Output:   outputPath,
		Rate:     rate,
		BitDepth: 16,
	}
}

// DefaultOutputPath places the output next to the input, tagged with the
// target rate: song.mp3 becomes song-48000.wav
func DefaultOutputPath(input string, rate int, format string) string {
	if format == "" {
		format = FormatWAV
	}
	if input == "" || input == "tone" {
		return fmt.Sprintf("tone-%d.%s", rate, format)
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	if strings.Contains(base, "://") {
		base = filepath.Base(base)
	}
	return fmt.Sprintf("%s-%d.%s", base, rate, format)
}

// format resolves the output format from the job or the output extension
func (j Job) format() (string, error) {
	f := strings.ToLower(j.Format)
	if f == "" {
		switch strings.ToLower(filepath.Ext(j.Output)) {
		case ".pcm", ".raw":
			f = FormatPCM
		default:
			f = FormatWAV
		}
	}
	if f != FormatWAV && f != FormatPCM {
		return "", fmt.Errorf("unsupported output format %q", j.Format)
	}
	return f, nil
}

// Progress reports how far a job has got. Total is zero when the input
// length is unknown.
type Progress struct {
	JobID    string
	Input    string
	Done     int64
	Total    int64
	Finished bool
	Err      error
}

// Fraction returns completion between 0 and 1, or 0 when Total is unknown
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		if p.Finished {
			return 1
		}
		return 0
	}
	return min(1, float64(p.Done)/float64(p.Total))
}

// Result summarizes a finished job
type Result struct {
	JobID      string
	Input      string
	Output     string
	InputRate  int
	OutputRate int
	Channels   int
	// Frames is the number of output frames written
	Frames   int64
	Duration time.Duration
}

// Options are shared by every job in a run
type Options struct {
	// OnProgress is called from the job's goroutine; it must not block
	OnProgress func(Progress)
	// Player receives the samples of jobs with Play set
	Player output.Output
	// ReadFrames is the number of output frames written at a time
	ReadFrames int
}

// Run converts one job. Cancelling ctx stops it between reads.
func Run(ctx context.Context, job Job, opts Options) (result Result, err error) {
	started := time.Now()
	result = Result{JobID: job.ID, Input: job.Input, Output: job.Output, OutputRate: job.Rate}

	report := func(p Progress) {
		if opts.OnProgress != nil {
			p.JobID, p.Input = job.ID, job.Input
			opts.OnProgress(p)
		}
	}
	defer func() {
		if err != nil {
			report(Progress{Finished: true, Err: err})
		}
	}()

	if job.Rate <= 0 {
		return result, fmt.Errorf("invalid target rate %d", job.Rate)
	}

	src, err := source.Open(job.Input, job.Source)
	if err != nil {
		return result, fmt.Errorf("failed to open %s: %w", job.Input, err)
	}

	resampled, err := source.NewResampled(src, job.Rate, job.ChunkFrames)
	if err != nil {
		src.Close()
		return result, err
	}
	defer resampled.Close()

	result.InputRate = src.SampleRate()
	result.Channels = src.Channels()

	var total int64
	if sized, ok := src.(source.Sized); ok {
		total = sized.Frames()
	}

	log.Printf("Converting %s: %dHz -> %dHz, %d channels", job.Input, result.InputRate, job.Rate, result.Channels)

	reader := &progressReader{
		ctx:      ctx,
		source:   resampled,
		channels: result.Channels,
		report: func(done int64) {
			report(Progress{Done: done, Total: total})
		},
	}

	bitDepth := job.BitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}

	switch {
	case job.Play:
		err = play(reader, opts, job.Rate, result.Channels, opts.readFrames())
	case job.Output == "":
		err = ErrNoOutput
	default:
		err = writeFile(reader, job, bitDepth, result.Channels, opts.readFrames())
	}
	if err != nil {
		return result, err
	}

	result.Frames = reader.frames
	result.Duration = time.Since(started)
	report(Progress{Done: resampled.Consumed(), Total: max(total, resampled.Consumed()), Finished: true})

	log.Printf("Converted %s -> %s: %d frames in %v", job.Input, job.Output, result.Frames, result.Duration.Round(time.Millisecond))
	return result, nil
}

func (o Options) readFrames() int {
	if o.ReadFrames > 0 {
		return o.ReadFrames
	}
	return DefaultReadFrames
}

func writeFile(r *progressReader, job Job, bitDepth, channels, readFrames int) (err error) {
	format, err := job.format()
	if err != nil {
		return err
	}

	f, err := os.Create(job.Output)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close output: %w", cerr)
		}
		if err != nil {
			os.Remove(job.Output)
		}
	}()

	af := audio.Format{Codec: format, SampleRate: job.Rate, Channels: channels, BitDepth: bitDepth}

	if format == FormatWAV {
		if err := encode.WriteWAV(f, r, af); err != nil {
			return fmt.Errorf("failed to write wav: %w", err)
		}
		return nil
	}

	af.Codec = "pcm"
	encoder, err := encode.NewPCM(af)
	if err != nil {
		return err
	}
	defer encoder.Close()

	w := bufio.NewWriter(f)
	buf := make([]int32, readFrames*channels)
	var out []byte
	for {
		n, err := r.Read(buf)
		if n > 0 {
			out = encoder.AppendEncoded(out[:0], buf[:n])
			if _, werr := w.Write(out); werr != nil {
				return fmt.Errorf("failed to write pcm: %w", werr)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
	}
	return w.Flush()
}

func play(r *progressReader, opts Options, rate, channels, readFrames int) error {
	if opts.Player == nil {
		return ErrNoOutput
	}
	if err := opts.Player.Open(rate, channels, 16); err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}

	buf := make([]int32, readFrames*channels)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if werr := opts.Player.Write(buf[:n]); werr != nil {
				return fmt.Errorf("failed to write output: %w", werr)
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// progressReader counts output frames, reports progress each time the
// resampler accepts more input and stops on cancellation
type progressReader struct {
	ctx      context.Context
	source   *source.Resampled
	channels int
	frames   int64
	reported int64
	report   func(done int64)
}

func (p *progressReader) Read(samples []int32) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := p.source.Read(samples)
	p.frames += int64(n / p.channels)
	if done := p.source.Consumed(); done != p.reported {
		p.reported = done
		p.report(done)
	}
	return n, err
}
