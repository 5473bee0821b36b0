// ABOUTME: MP3 sources for local files and HTTP streams
// ABOUTME: Decodes with go-mp3, which always yields 16-bit stereo
package source

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/Resonate-Protocol/resample-go/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// mp3Stream converts decoder bytes to samples
type mp3Stream struct {
	decoder *mp3.Decoder
	buf     []byte
}

func (m *mp3Stream) read(samples []int32) (int, error) {
	need := len(samples) * 2
	if cap(m.buf) < need {
		m.buf = make([]byte, need)
	}
	buf := m.buf[:need]

	n, err := io.ReadFull(m.decoder, buf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}

	numSamples := n / 2
	for i := 0; i < numSamples; i++ {
		samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(buf[i*2:])))
	}
	return numSamples, err
}

// MP3 reads from an MP3 file
type MP3 struct {
	mp3Stream
	file  *os.File
	title string
}

// NewMP3 opens an MP3 file
func NewMP3(filePath string) (*MP3, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	title := titleFromPath(filePath)
	log.Printf("Loaded MP3: %s (sample rate: %d Hz)", title, decoder.SampleRate())

	return &MP3{
		mp3Stream: mp3Stream{decoder: decoder},
		file:      f,
		title:     title,
	}, nil
}

func (s *MP3) Read(samples []int32) (int, error) { return s.read(samples) }
func (s *MP3) SampleRate() int                   { return s.decoder.SampleRate() }
func (s *MP3) Channels() int                     { return 2 }
func (s *MP3) Metadata() (string, string, string) {
	return s.title, "Unknown Artist", "Unknown Album"
}
func (s *MP3) Close() error { return s.file.Close() }

// Frames returns the decoded length, 4 bytes per stereo frame
func (s *MP3) Frames() int64 {
	if l := s.decoder.Length(); l > 0 {
		return l / 4
	}
	return 0
}

// HTTPMP3 streams MP3 from an HTTP URL
type HTTPMP3 struct {
	mp3Stream
	url  string
	body io.ReadCloser
}

// NewHTTPMP3 fetches url with client and decodes the body as it arrives
func NewHTTPMP3(client *http.Client, url string) (*HTTPMP3, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch HTTP stream: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	decoder, err := mp3.NewDecoder(resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to decode MP3 stream: %w", err)
	}

	log.Printf("Streaming MP3 from HTTP: %s (sample rate: %d Hz)", url, decoder.SampleRate())

	return &HTTPMP3{
		mp3Stream: mp3Stream{decoder: decoder},
		url:       url,
		body:      resp.Body,
	}, nil
}

func (s *HTTPMP3) Read(samples []int32) (int, error) { return s.read(samples) }
func (s *HTTPMP3) SampleRate() int                   { return s.decoder.SampleRate() }
func (s *HTTPMP3) Channels() int                     { return 2 }
func (s *HTTPMP3) Metadata() (string, string, string) {
	return "HTTP Stream", s.url, ""
}
func (s *HTTPMP3) Close() error { return s.body.Close() }
