// ABOUTME: Tests for audio sources
// ABOUTME: Covers tone, raw PCM and WAV reading plus Open dispatch and errors
package source

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Resonate-Protocol/resample-go/pkg/audio"
	"github.com/Resonate-Protocol/resample-go/pkg/audio/encode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readAll drains a source using a buffer of bufSize samples
func readAll(t *testing.T, s Source, bufSize int) []int32 {
	t.Helper()
	buf := make([]int32, bufSize)
	var out []int32
	for {
		n, err := s.Read(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
	}
}

func TestToneFixedLength(t *testing.T) {
	tone := NewTone(ToneConfig{SampleRate: 8000, Channels: 2, Frames: 1000})

	got := readAll(t, tone, 300)
	require.Len(t, got, 2000)

	peak := int32(0)
	for i := 0; i < len(got); i += 2 {
		assert.Equal(t, got[i], got[i+1], "channels differ at frame %d", i/2)
		peak = max(peak, got[i])
	}
	assert.InDelta(t, 0.5*audio.Max24Bit, float64(peak), 0.01*audio.Max24Bit)
	assert.Equal(t, int64(1000), tone.Frames())
}

func TestToneEndless(t *testing.T) {
	tone := NewTone(ToneConfig{})
	assert.Equal(t, 48000, tone.SampleRate())
	assert.Equal(t, 2, tone.Channels())

	buf := make([]int32, 1024)
	for range 100 {
		n, err := tone.Read(buf)
		require.NoError(t, err)
		require.Equal(t, len(buf), n)
	}
}

func TestPCMSource(t *testing.T) {
	samples := []int32{0, 1 << 8, -1 << 8, 0x7FFF00, -0x800000, 0x123400}

	for _, bits := range []int{16, 24} {
		format := audio.Format{Codec: "pcm", SampleRate: 44100, Channels: 2, BitDepth: bits}
		enc, err := encode.NewPCM(format)
		require.NoError(t, err)
		data, err := enc.Encode(samples)
		require.NoError(t, err)

		// A trailing partial sample is ignored
		data = append(data, 0x7F)

		src, err := NewPCM(bytes.NewReader(data), format)
		require.NoError(t, err)
		assert.Equal(t, samples, readAll(t, src, 4), "%d-bit", bits)
		assert.NoError(t, src.Close())
	}
}

func TestPCMSourceRejectsFormat(t *testing.T) {
	_, err := NewPCM(bytes.NewReader(nil), audio.Format{SampleRate: 44100, Channels: 6, BitDepth: 16})
	assert.Error(t, err)
}

func TestOpenPCMFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.raw")
	data := make([]byte, 4*100) // 100 stereo 16-bit frames
	require.NoError(t, os.WriteFile(path, data, 0o644))

	src, err := Open(path, Options{SampleRate: 22050})
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, 22050, src.SampleRate())
	assert.Equal(t, 2, src.Channels())
	require.Implements(t, (*Sized)(nil), src)
	assert.Equal(t, int64(100), src.(Sized).Frames())

	title, _, _ := src.Metadata()
	assert.Equal(t, "clip", title)
	assert.Len(t, readAll(t, src, 64), 200)
}

type sliceSource struct {
	samples  []int32
	rate     int
	channels int
}

func (s *sliceSource) Read(p []int32) (int, error) {
	if len(s.samples) == 0 {
		return 0, io.EOF
	}
	n := copy(p, s.samples)
	s.samples = s.samples[n:]
	return n, nil
}
func (s *sliceSource) SampleRate() int                     { return s.rate }
func (s *sliceSource) Channels() int                       { return s.channels }
func (s *sliceSource) Metadata() (string, string, string) { return "slice", "", "" }
func (s *sliceSource) Close() error                        { return nil }

func writeWAV(t *testing.T, samples []int32, format audio.Format) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	src := &sliceSource{samples: samples, rate: format.SampleRate, channels: format.Channels}
	require.NoError(t, encode.WriteWAV(f, src, format))
	require.NoError(t, f.Close())
	return path
}

func TestWAVSource(t *testing.T) {
	samples := []int32{0, 0, 0x123456, -0x123456, audio.Max24Bit, audio.Min24Bit, 1000, -1000}
	format := audio.Format{Codec: "wav", SampleRate: 32000, Channels: 2, BitDepth: 24}
	path := writeWAV(t, samples, format)

	src, err := Open(path, Options{})
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, 32000, src.SampleRate())
	assert.Equal(t, 2, src.Channels())
	assert.Equal(t, int64(4), src.(Sized).Frames())

	assert.Equal(t, samples, readAll(t, src, 2))
}

func TestWAVSourceMono16(t *testing.T) {
	samples := []int32{0, 100 << 8, -100 << 8, 25600 << 8, 0x7FFF00, -0x800000}
	format := audio.Format{Codec: "wav", SampleRate: 8000, Channels: 1, BitDepth: 16}
	path := writeWAV(t, samples, format)

	src, err := NewWAV(path)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, samples, readAll(t, src, 3))
}

func TestOpenTone(t *testing.T) {
	src, err := Open("", Options{SampleRate: 16000, Channels: 1, Duration: 250 * time.Millisecond})
	require.NoError(t, err)
	defer src.Close()

	assert.Len(t, readAll(t, src, 1000), 4000)
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data []byte) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, data, 0o644))
		return path
	}

	t.Run("missing file", func(t *testing.T) {
		src, err := Open(filepath.Join(dir, "missing.mp3"), Options{})
		assert.Nil(t, src)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		src, err := Open(write("song.ogg", []byte("OggS")), Options{})
		assert.Nil(t, src)
		assert.ErrorIs(t, err, ErrUnsupported)
	})

	t.Run("empty mp3", func(t *testing.T) {
		src, err := Open(write("empty.mp3", nil), Options{})
		assert.Nil(t, src)
		assert.Error(t, err)
	})

	t.Run("not flac", func(t *testing.T) {
		src, err := Open(write("bogus.flac", []byte("this is not a flac stream")), Options{})
		assert.Nil(t, src)
		assert.Error(t, err)
	})

	t.Run("not wav", func(t *testing.T) {
		src, err := Open(write("bogus.wav", []byte("RIFX0000")), Options{})
		assert.Nil(t, src)
		assert.Error(t, err)
	})

	t.Run("http error", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		src, err := Open(srv.URL+"/stream.mp3", Options{HTTPClient: srv.Client()})
		assert.Nil(t, src)
		assert.ErrorContains(t, err, "404")
	})
}
