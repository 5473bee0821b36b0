// ABOUTME: Unit tests for PCM encoder
// ABOUTME: Tests 16-bit and 24-bit PCM encoding
package encode

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/Resonate-Protocol/resample-go/pkg/audio"
	"github.com/Resonate-Protocol/resample-go/pkg/audio/decode"
)

func TestNewPCM(t *testing.T) {
	tests := []struct {
		name        string
		format      audio.Format
		wantErr     bool
		errContains string
	}{
		{
			name:   "valid 16-bit PCM",
			format: audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 16},
		},
		{
			name:   "valid 24-bit PCM",
			format: audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 24},
		},
		{
			name:        "invalid codec",
			format:      audio.Format{Codec: "opus", SampleRate: 48000, Channels: 2, BitDepth: 16},
			wantErr:     true,
			errContains: "invalid codec",
		},
		{
			name:        "unsupported bit depth",
			format:      audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 32},
			wantErr:     true,
			errContains: "unsupported bit depth",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoder, err := NewPCM(tt.format)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NewPCM() expected error, got nil")
				} else if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("NewPCM() error = %v, want error containing %v", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Errorf("NewPCM() unexpected error = %v", err)
			}
			if encoder == nil {
				t.Errorf("NewPCM() returned nil encoder")
			}
		})
	}
}

func TestPCMEncoder_Encode16Bit(t *testing.T) {
	encoder, err := NewPCM(audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 16})
	if err != nil {
		t.Fatalf("NewPCM() failed: %v", err)
	}
	defer encoder.Close()

	samples := []int32{
		0,         // silence
		0x7FFF00,  // max positive 16-bit (left-justified in 24-bit)
		-0x800000, // max negative 16-bit (left-justified in 24-bit)
		0x123400,  // arbitrary positive value
		-0x567800, // arbitrary negative value
	}

	output, err := encoder.Encode(samples)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}

	if len(output) != len(samples)*2 {
		t.Fatalf("Encode() output size = %d, want %d", len(output), len(samples)*2)
	}

	for i, sample := range samples {
		expected := audio.SampleToInt16(sample)
		actual := int16(binary.LittleEndian.Uint16(output[i*2:]))
		if actual != expected {
			t.Errorf("Sample %d: got %d, want %d", i, actual, expected)
		}
	}
}

func TestPCMEncoder_Encode24Bit(t *testing.T) {
	encoder, err := NewPCM(audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 24})
	if err != nil {
		t.Fatalf("NewPCM() failed: %v", err)
	}
	defer encoder.Close()

	samples := []int32{0, 0x7FFFFF, -0x800000, 0x123456, -0x567890}

	output, err := encoder.Encode(samples)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}

	if len(output) != len(samples)*3 {
		t.Fatalf("Encode() output size = %d, want %d", len(output), len(samples)*3)
	}

	for i, sample := range samples {
		expected := audio.SampleTo24Bit(sample)
		actual := [3]byte{output[i*3], output[i*3+1], output[i*3+2]}
		if actual != expected {
			t.Errorf("Sample %d: got %v, want %v", i, actual, expected)
		}
	}
}

func TestPCMEncoder_AppendEncoded(t *testing.T) {
	encoder, err := NewPCM(audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 1, BitDepth: 16})
	if err != nil {
		t.Fatalf("NewPCM() failed: %v", err)
	}

	buf := []byte{0xAA}
	buf = encoder.AppendEncoded(buf, []int32{1 << 8})
	if len(buf) != 3 || buf[0] != 0xAA || buf[1] != 0x01 || buf[2] != 0x00 {
		t.Errorf("AppendEncoded() = %v, want [170 1 0]", buf)
	}
}

func TestPCMRoundTrip(t *testing.T) {
	samples := []int32{0, 1 << 8, -1 << 8, 0x7FFF00, -0x800000, 0x123400}

	for _, bits := range []int{16, 24} {
		format := audio.Format{Codec: "pcm", SampleRate: 44100, Channels: 2, BitDepth: bits}

		encoder, err := NewPCM(format)
		if err != nil {
			t.Fatalf("NewPCM() failed: %v", err)
		}
		decoder, err := decode.NewPCM(format)
		if err != nil {
			t.Fatalf("decode.NewPCM() failed: %v", err)
		}

		data, _ := encoder.Encode(samples)
		got, err := decoder.Decode(data)
		if err != nil {
			t.Fatalf("%d-bit decode failed: %v", bits, err)
		}
		for i := range samples {
			if got[i] != samples[i] {
				t.Errorf("%d-bit sample %d: got %d, want %d", bits, i, got[i], samples[i])
			}
		}
	}
}
