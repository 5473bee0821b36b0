// ABOUTME: Audio source abstraction for reading files, URLs and generated tones
// ABOUTME: Opens MP3, FLAC, WAV and raw PCM inputs by extension or URL scheme
package source

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Source provides interleaved PCM samples in the 24-bit range
type Source interface {
	// Read reads samples into the buffer. Returns the number of samples read,
	// or io.EOF once the source is exhausted.
	Read(samples []int32) (int, error)
	// SampleRate returns the sample rate of the audio
	SampleRate() int
	// Channels returns the number of channels
	Channels() int
	// Metadata returns title, artist, album
	Metadata() (title, artist, album string)
	// Close closes the audio source
	Close() error
}

// Sized is implemented by sources that know their length in frames up front
type Sized interface {
	Frames() int64
}

// ErrUnsupported is returned for inputs no source can read
var ErrUnsupported = errors.New("unsupported audio input")

// Options configure Open. The raw PCM fields describe headerless input and
// the tone generator; decoded formats carry their own.
type Options struct {
	SampleRate int
	Channels   int
	BitDepth   int

	// Duration bounds the generated tone
	Duration time.Duration

	// HTTPClient fetches URLs; nil means http.DefaultClient
	HTTPClient *http.Client
}

const (
	DefaultRawSampleRate = 44100
	DefaultRawChannels   = 2
	DefaultRawBitDepth   = 16
	DefaultToneDuration  = 5 * time.Second
)

func (o Options) withDefaults() Options {
	if o.SampleRate == 0 {
		o.SampleRate = DefaultRawSampleRate
	}
	if o.Channels == 0 {
		o.Channels = DefaultRawChannels
	}
	if o.BitDepth == 0 {
		o.BitDepth = DefaultRawBitDepth
	}
	if o.Duration == 0 {
		o.Duration = DefaultToneDuration
	}
	if o.HTTPClient == nil {
		o.HTTPClient = http.DefaultClient
	}
	return o
}

// Open creates a source from a file path or HTTP URL.
// An empty path or "tone" generates a test tone of opts.Duration.
func Open(pathOrURL string, opts Options) (Source, error) {
	opts = opts.withDefaults()

	if pathOrURL == "" || pathOrURL == "tone" {
		frames := int64(opts.Duration.Seconds() * float64(opts.SampleRate))
		return NewTone(ToneConfig{
			SampleRate: opts.SampleRate,
			Channels:   opts.Channels,
			Frames:     frames,
		}), nil
	}

	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		if strings.Contains(pathOrURL, ".m3u8") {
			log.Printf("Streaming from HLS URL: %s", pathOrURL)
			return opened(NewFFmpeg(pathOrURL, opts.SampleRate, opts.Channels))
		}
		log.Printf("Streaming from HTTP URL: %s", pathOrURL)
		return opened(NewHTTPMP3(opts.HTTPClient, pathOrURL))
	}

	if _, err := os.Stat(pathOrURL); err != nil {
		return nil, fmt.Errorf("audio file not found: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(pathOrURL))
	switch ext {
	case ".mp3":
		return opened(NewMP3(pathOrURL))
	case ".flac":
		return opened(NewFLAC(pathOrURL))
	case ".wav", ".wave":
		return opened(NewWAV(pathOrURL))
	case ".pcm", ".raw":
		return opened(OpenPCM(pathOrURL, opts.SampleRate, opts.Channels, opts.BitDepth))
	default:
		return nil, fmt.Errorf("%w: %q (supported: .mp3, .flac, .wav, .pcm, .raw)", ErrUnsupported, ext)
	}
}

// opened keeps a failed constructor's typed nil out of the interface
func opened[S Source](s S, err error) (Source, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

// titleFromPath uses the file name without extension as the title
func titleFromPath(path string) string {
	filename := filepath.Base(path)
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}
