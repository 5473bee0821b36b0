// ABOUTME: Binary audio frame format for the resample service
// ABOUTME: Header of message type and frame index followed by little-endian PCM
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Binary message types
const (
	// AudioOutMessageType carries resampled audio from the server
	AudioOutMessageType = 1
	// AudioInMessageType carries input audio from the client
	AudioInMessageType = 2
)

// AudioHeaderSize is the size of [message_type:1][frame_index:8]
const AudioHeaderSize = 9

// ErrShortFrame is returned for binary messages without a full header
var ErrShortFrame = errors.New("binary message shorter than audio header")

// AudioFrame is a decoded binary audio message. Index is the stream
// position, in frames, of the first frame in Data.
type AudioFrame struct {
	Type  byte
	Index int64
	Data  []byte
}

// CreateAudioFrame builds a binary audio message
func CreateAudioFrame(msgType byte, index int64, pcm []byte) []byte {
	return AppendAudioFrame(make([]byte, 0, AudioHeaderSize+len(pcm)), msgType, index, pcm)
}

// AppendAudioFrame appends a binary audio message to dst
func AppendAudioFrame(dst []byte, msgType byte, index int64, pcm []byte) []byte {
	dst = append(dst, msgType)
	dst = binary.BigEndian.AppendUint64(dst, uint64(index))
	return append(dst, pcm...)
}

// ParseAudioFrame decodes a binary audio message. Data aliases the input.
func ParseAudioFrame(data []byte) (AudioFrame, error) {
	if len(data) < AudioHeaderSize {
		return AudioFrame{}, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(data))
	}
	msgType := data[0]
	if msgType != AudioOutMessageType && msgType != AudioInMessageType {
		return AudioFrame{}, fmt.Errorf("unknown binary message type: %d", msgType)
	}
	return AudioFrame{
		Type:  msgType,
		Index: int64(binary.BigEndian.Uint64(data[1:AudioHeaderSize])),
		Data:  data[AudioHeaderSize:],
	}, nil
}
