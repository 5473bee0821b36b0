// ABOUTME: WebSocket client for the resample service
// ABOUTME: Handles connection, handshake, streaming audio and routing server messages
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/Resonate-Protocol/resample-go/internal/protocol"
	"github.com/Resonate-Protocol/resample-go/internal/version"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

// ErrNotConnected is returned when sending on a closed client
var ErrNotConnected = errors.New("not connected")

// Config holds client configuration
type Config struct {
	ServerAddr string
	// Path defaults to the service endpoint
	Path       string
	ClientID   string
	Name       string
	DeviceInfo protocol.DeviceInfo
	// HandshakeTimeout bounds dialing and the hello exchange
	HandshakeTimeout time.Duration
}

// Event is one message from the server, in arrival order. Exactly one
// field is set.
type Event struct {
	Audio *AudioChunk
	Ready *protocol.StreamReady
	Done  *protocol.StreamDone
	Error *protocol.ServerError
}

// AudioChunk represents resampled audio from the server
type AudioChunk struct {
	Index int64  // Stream position of the first frame
	Data  []byte // Little-endian PCM
}

// ServerError is a server/error message received as an error
type ServerError struct {
	Code    string
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %s: %s", e.Code, e.Message)
}

func newServerError(msg *protocol.ServerError) *ServerError {
	return &ServerError{Code: msg.Error, Message: msg.Message}
}

// Client represents a WebSocket client
type Client struct {
	config Config
	conn   *websocket.Conn
	mu     sync.RWMutex
	// gorilla connections allow one writer at a time
	writeMu sync.Mutex

	// Events delivers server messages in order
	Events chan Event

	server protocol.ServerHello

	// Stream state
	bytesPerFrame int
	nextIndex     int64

	// State
	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a new WebSocket client
func NewClient(config Config) *Client {
	if config.Path == "" {
		config.Path = protocol.Path
	}
	if config.ClientID == "" {
		config.ClientID = uuid.NewString()
	}
	if config.Name == "" {
		config.Name = config.ClientID
	}
	if config.DeviceInfo.ProductName == "" {
		config.DeviceInfo = protocol.DeviceInfo{
			ProductName:     version.Product,
			Manufacturer:    version.Manufacturer,
			SoftwareVersion: version.Version,
		}
	}
	if config.HandshakeTimeout == 0 {
		config.HandshakeTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config: config,
		Events: make(chan Event, 100),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Connect establishes WebSocket connection and performs handshake
func (c *Client) Connect(ctx context.Context) error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: c.config.Path}
	log.Printf("Connecting to %s", u.String())

	dialer := websocket.Dialer{HandshakeTimeout: c.config.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()

	return nil
}

// handshake performs the protocol handshake
func (c *Client) handshake() error {
	hello := protocol.ClientHello{
		ClientID:   c.config.ClientID,
		Name:       c.config.Name,
		Version:    protocol.Version,
		DeviceInfo: &c.config.DeviceInfo,
	}

	if err := c.sendJSON(protocol.TypeClientHello, hello); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(c.config.HandshakeTimeout))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to parse server/hello: %w", err)
	}

	switch msg.Type {
	case protocol.TypeServerHello:
	case protocol.TypeServerError:
		var serverErr protocol.ServerError
		if err := protocol.DecodePayload(msg, &serverErr); err != nil {
			return err
		}
		return newServerError(&serverErr)
	default:
		return fmt.Errorf("expected server/hello, got %s", msg.Type)
	}

	if err := protocol.DecodePayload(msg, &c.server); err != nil {
		return err
	}

	log.Printf("Handshake complete with server %s (ID: %s)", c.server.Name, c.server.ServerID)
	return nil
}

// Server returns the server/hello received during Connect
func (c *Client) Server() protocol.ServerHello {
	return c.server
}

// sendJSON sends a JSON message
func (c *Client) sendJSON(msgType string, payload interface{}) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(protocol.Message{Type: msgType, Payload: payload})
}

// sendBinary sends a binary message
func (c *Client) sendBinary(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

// readMessages reads and routes incoming messages
func (c *Client) readMessages() {
	defer close(c.Events)
	defer c.Close()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.IsConnected() {
				log.Printf("Read error: %v", err)
			}
			return
		}

		var event Event
		switch messageType {
		case websocket.BinaryMessage:
			event, err = binaryEvent(data)
		case websocket.TextMessage:
			event, err = jsonEvent(data)
		default:
			continue
		}
		if err != nil {
			log.Printf("Dropping server message: %v", err)
			continue
		}

		select {
		case c.Events <- event:
		case <-c.ctx.Done():
			return
		}
	}
}

// binaryEvent decodes an audio message
func binaryEvent(data []byte) (Event, error) {
	frame, err := protocol.ParseAudioFrame(data)
	if err != nil {
		return Event{}, err
	}
	if frame.Type != protocol.AudioOutMessageType {
		return Event{}, fmt.Errorf("unexpected binary message type: %d", frame.Type)
	}
	return Event{Audio: &AudioChunk{Index: frame.Index, Data: frame.Data}}, nil
}

// jsonEvent routes a JSON message
func jsonEvent(data []byte) (Event, error) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Event{}, fmt.Errorf("failed to parse JSON message: %w", err)
	}

	switch msg.Type {
	case protocol.TypeStreamReady:
		var ready protocol.StreamReady
		err := protocol.DecodePayload(msg, &ready)
		return Event{Ready: &ready}, err
	case protocol.TypeStreamDone:
		var done protocol.StreamDone
		err := protocol.DecodePayload(msg, &done)
		return Event{Done: &done}, err
	case protocol.TypeServerError:
		var serverErr protocol.ServerError
		err := protocol.DecodePayload(msg, &serverErr)
		return Event{Error: &serverErr}, err
	default:
		return Event{}, fmt.Errorf("unknown message type: %s", msg.Type)
	}
}

// StartStream sends stream/start and waits for stream/ready
func (c *Client) StartStream(ctx context.Context, start protocol.StreamStart) (protocol.StreamReady, error) {
	if err := c.sendJSON(protocol.TypeStreamStart, start); err != nil {
		return protocol.StreamReady{}, err
	}

	event, err := c.next(ctx)
	if err != nil {
		return protocol.StreamReady{}, err
	}
	if event.Ready == nil {
		return protocol.StreamReady{}, fmt.Errorf("expected %s, got %+v", protocol.TypeStreamReady, event)
	}

	c.bytesPerFrame = start.Channels * start.BitDepth / 8
	c.nextIndex = 0
	return *event.Ready, nil
}

// SendAudio sends interleaved little-endian PCM in the stream's format
func (c *Client) SendAudio(pcm []byte) error {
	if c.bytesPerFrame == 0 {
		return errors.New("no stream started")
	}
	if len(pcm)%c.bytesPerFrame != 0 {
		return fmt.Errorf("audio of %d bytes is not a whole number of %d-byte frames", len(pcm), c.bytesPerFrame)
	}

	if err := c.sendBinary(protocol.CreateAudioFrame(protocol.AudioInMessageType, c.nextIndex, pcm)); err != nil {
		return err
	}
	c.nextIndex += int64(len(pcm) / c.bytesPerFrame)
	return nil
}

// EndStream sends stream/end; the server answers with the tail audio and
// stream/done
func (c *Client) EndStream() error {
	c.bytesPerFrame = 0
	return c.sendJSON(protocol.TypeStreamEnd, protocol.StreamEnd{})
}

// next waits for the next event
func (c *Client) next(ctx context.Context) (Event, error) {
	select {
	case event, ok := <-c.Events:
		if !ok {
			return Event{}, ErrNotConnected
		}
		if event.Error != nil {
			return event, newServerError(event.Error)
		}
		return event, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Resample streams pcm through the server in messages of at most
// chunkFrames frames and returns the resampled PCM. Sending and receiving
// run concurrently so neither side stalls on a full connection.
func (c *Client) Resample(ctx context.Context, start protocol.StreamStart, pcm []byte, chunkFrames int) ([]byte, protocol.StreamDone, error) {
	ready, err := c.StartStream(ctx, start)
	if err != nil {
		return nil, protocol.StreamDone{}, err
	}
	if chunkFrames <= 0 {
		chunkFrames = ready.MaxChunkFrames
	}
	chunkBytes := chunkFrames * c.bytesPerFrame

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for off := 0; off < len(pcm); off += chunkBytes {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := c.SendAudio(pcm[off:min(off+chunkBytes, len(pcm))]); err != nil {
				return fmt.Errorf("failed to send audio: %w", err)
			}
		}
		return c.EndStream()
	})

	var out []byte
	var done protocol.StreamDone
	g.Go(func() error {
		var expected int64
		outFrameBytes := ready.Channels * ready.BitDepth / 8
		for {
			event, err := c.next(gctx)
			if err != nil {
				return err
			}
			switch {
			case event.Audio != nil:
				if event.Audio.Index != expected {
					return fmt.Errorf("audio gap: got frame %d, expected %d", event.Audio.Index, expected)
				}
				out = append(out, event.Audio.Data...)
				expected += int64(len(event.Audio.Data) / outFrameBytes)
			case event.Done != nil:
				done = *event.Done
				return nil
			}
		}
	})

	if err := g.Wait(); err != nil {
		return nil, protocol.StreamDone{}, err
	}
	return out, done, nil
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		log.Printf("Connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
