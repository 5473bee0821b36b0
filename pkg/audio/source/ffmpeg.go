// ABOUTME: Source that decodes HLS and other streaming inputs through ffmpeg
// ABOUTME: Reads 16-bit PCM from the ffmpeg process's stdout
package source

import (
	"fmt"
	"io"
	"log"
	"os/exec"
	"strconv"

	"github.com/Resonate-Protocol/resample-go/pkg/audio"
)

// FFmpeg streams audio from any URL ffmpeg understands
type FFmpeg struct {
	*PCM
	url    string
	cmd    *exec.Cmd
	stdout io.ReadCloser
}

// NewFFmpeg starts ffmpeg decoding url to 16-bit PCM at sampleRate with
// the given channel count
func NewFFmpeg(url string, sampleRate, channels int) (*FFmpeg, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	cmd := exec.Command("ffmpeg",
		"-loglevel", "error",
		"-i", url,
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-")

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get ffmpeg stdout: %w", err)
	}

	pcm, err := NewPCM(stdout, audio.Format{SampleRate: sampleRate, Channels: channels, BitDepth: 16})
	if err != nil {
		return nil, err
	}
	pcm.title = "Live Stream"

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	log.Printf("Streaming via ffmpeg: %s (sample rate: %d Hz, channels: %d)", url, sampleRate, channels)

	return &FFmpeg{
		PCM:    pcm,
		url:    url,
		cmd:    cmd,
		stdout: stdout,
	}, nil
}

func (s *FFmpeg) Metadata() (string, string, string) {
	return s.title, s.url, ""
}

func (s *FFmpeg) Close() error {
	s.stdout.Close()
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
		s.cmd.Wait()
	}
	return nil
}
