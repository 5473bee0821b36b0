// ABOUTME: Tests for PCM decoder
// ABOUTME: Tests 16-bit and 24-bit PCM decoding and partial sample handling
package decode

import (
	"errors"
	"testing"

	"github.com/Resonate-Protocol/resample-go/pkg/audio"
)

func pcmFormat(bitDepth int) audio.Format {
	return audio.Format{
		Codec:      "pcm",
		SampleRate: 48000,
		Channels:   2,
		BitDepth:   bitDepth,
	}
}

func TestNewPCM(t *testing.T) {
	tests := []struct {
		name     string
		format   audio.Format
		wantErr  string
		wantBits int
	}{
		{name: "16-bit", format: pcmFormat(16), wantBits: 16},
		{name: "24-bit", format: pcmFormat(24), wantBits: 24},
		{
			name:    "invalid codec",
			format:  audio.Format{Codec: "opus", SampleRate: 48000, Channels: 2, BitDepth: 16},
			wantErr: "invalid codec for PCM decoder: opus",
		},
		{
			name:    "unsupported bit depth",
			format:  pcmFormat(32),
			wantErr: "unsupported bit depth: 32 (supported: 16, 24)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoder, err := NewPCM(tt.format)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if decoder != nil {
					t.Fatal("expected decoder to be nil on error")
				}
				if err.Error() != tt.wantErr {
					t.Errorf("expected error %q, got %q", tt.wantErr, err.Error())
				}
				return
			}

			if err != nil {
				t.Fatalf("failed to create decoder: %v", err)
			}
			if decoder.BitDepth() != tt.wantBits {
				t.Errorf("expected bit depth %d, got %d", tt.wantBits, decoder.BitDepth())
			}
		})
	}
}

func TestPCMDecode16Bit(t *testing.T) {
	decoder, err := NewPCM(pcmFormat(16))
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	// 0x00, 0x01 -> 0x0100 = 256 (16-bit) -> 256<<8 = 65536 (24-bit)
	// 0x02, 0x03 -> 0x0302 = 770 (16-bit) -> 770<<8 = 197120 (24-bit)
	// 0x00, 0x80 -> -32768 (16-bit) -> -32768<<8 (24-bit)
	output, err := decoder.Decode([]byte{0x00, 0x01, 0x02, 0x03, 0x00, 0x80})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	expected := []int32{256 << 8, 770 << 8, -32768 << 8}
	if len(output) != len(expected) {
		t.Fatalf("expected %d samples, got %d", len(expected), len(output))
	}
	for i := range expected {
		if output[i] != expected[i] {
			t.Errorf("sample %d: expected %d, got %d", i, expected[i], output[i])
		}
	}
}

func TestPCMDecode24Bit(t *testing.T) {
	decoder, err := NewPCM(pcmFormat(24))
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	output, err := decoder.Decode([]byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0xFF, 0xFF, 0xFF})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	// 0x020100, 0x050403, then sign-extended -1
	expected := []int32{0x020100, 0x050403, -1}
	if len(output) != len(expected) {
		t.Fatalf("expected %d samples, got %d", len(expected), len(output))
	}
	for i := range expected {
		if output[i] != expected[i] {
			t.Errorf("sample %d: expected %d, got %d", i, expected[i], output[i])
		}
	}
}

func TestPCMDecodeInto(t *testing.T) {
	decoder, err := NewPCM(pcmFormat(16))
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	buf := []int32{7}
	buf, err = decoder.DecodeInto(buf, []byte{0x01, 0x00})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if len(buf) != 2 || buf[0] != 7 || buf[1] != 1<<8 {
		t.Errorf("expected [7 256], got %v", buf)
	}
}

func TestPCMDecode_PartialSample(t *testing.T) {
	tests := []struct {
		bitDepth int
		data     []byte
	}{
		{16, []byte{0x00, 0x01, 0x02}},
		{24, []byte{0x00, 0x01, 0x02, 0x03}},
	}

	for _, tt := range tests {
		decoder, err := NewPCM(pcmFormat(tt.bitDepth))
		if err != nil {
			t.Fatalf("failed to create decoder: %v", err)
		}

		_, err = decoder.Decode(tt.data)
		if !errors.Is(err, ErrPartialSample) {
			t.Errorf("%d-bit: expected ErrPartialSample, got %v", tt.bitDepth, err)
		}
	}
}

func TestPCMDecode_EmptyInput(t *testing.T) {
	decoder, err := NewPCM(pcmFormat(16))
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	output, err := decoder.Decode([]byte{})
	if err != nil {
		t.Fatalf("decode failed with empty input: %v", err)
	}

	if len(output) != 0 {
		t.Errorf("expected 0 samples from empty input, got %d", len(output))
	}

	if err := decoder.Close(); err != nil {
		t.Errorf("expected Close to succeed, got error: %v", err)
	}
}
