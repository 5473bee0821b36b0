// ABOUTME: Resample service message type definitions
// ABOUTME: Defines structs for the JSON control messages of the streaming protocol
package protocol

import (
	"encoding/json"
	"fmt"
)

// Version is the protocol version exchanged in the handshake
const Version = 1

// Path is the WebSocket endpoint of the resample service
const Path = "/resample"

// Message types
const (
	TypeClientHello = "client/hello"
	TypeServerHello = "server/hello"
	TypeStreamStart = "stream/start"
	TypeStreamReady = "stream/ready"
	TypeStreamEnd   = "stream/end"
	TypeStreamDone  = "stream/done"
	TypeServerError = "server/error"
)

// Error codes carried by server/error
const (
	ErrorDuplicateClient = "duplicate_client_id"
	ErrorBadRequest      = "bad_request"
	ErrorNoStream        = "no_stream"
	ErrorStreamActive    = "stream_active"
	ErrorResample        = "resample_failed"
)

// Message is the top-level wrapper for all protocol messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ClientHello is sent by clients to initiate the handshake
type ClientHello struct {
	ClientID   string      `json:"client_id"`
	Name       string      `json:"name"`
	Version    int         `json:"version"`
	DeviceInfo *DeviceInfo `json:"device_info,omitempty"`
}

// DeviceInfo contains device identification
type DeviceInfo struct {
	ProductName     string `json:"product_name"`
	Manufacturer    string `json:"manufacturer"`
	SoftwareVersion string `json:"software_version"`
}

// ServerHello is the server's response to client/hello
type ServerHello struct {
	ServerID string `json:"server_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
}

// StreamStart opens a resampling stream. Audio frames the client sends
// after stream/ready are PCM in this format.
type StreamStart struct {
	InputRate  int `json:"input_rate"`
	OutputRate int `json:"output_rate"`
	Channels   int `json:"channels"`
	BitDepth   int `json:"bit_depth"`
}

// StreamReady acknowledges stream/start. MaxChunkFrames is the largest
// frame count the server resamples in one pass; larger audio messages are
// split by the server.
type StreamReady struct {
	SessionID      string `json:"session_id"`
	InputRate      int    `json:"input_rate"`
	OutputRate     int    `json:"output_rate"`
	Channels       int    `json:"channels"`
	BitDepth       int    `json:"bit_depth"`
	MaxChunkFrames int    `json:"max_chunk_frames"`
}

// StreamEnd marks the last input; the server flushes the tail and answers
// with stream/done
type StreamEnd struct{}

// StreamDone closes a stream after its final audio
type StreamDone struct {
	SessionID    string `json:"session_id"`
	InputFrames  int64  `json:"input_frames"`
	OutputFrames int64  `json:"output_frames"`
}

// ServerError reports a rejected request
type ServerError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// DecodePayload converts a decoded message's generic payload into v
func DecodePayload(msg Message, v interface{}) error {
	data, err := json.Marshal(msg.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", msg.Type, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w", msg.Type, err)
	}
	return nil
}
