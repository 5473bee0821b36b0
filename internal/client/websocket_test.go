// ABOUTME: Tests for WebSocket client implementation
// ABOUTME: Tests connection, handshake, streaming and message routing against a scripted server
package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Resonate-Protocol/resample-go/internal/protocol"
	"github.com/Resonate-Protocol/resample-go/internal/version"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer answers the hello and hands every later message to handle
type fakeServer struct {
	hello  func(conn *websocket.Conn, hello protocol.ClientHello)
	handle func(conn *websocket.Conn, messageType int, data []byte)
}

func (f *fakeServer) serve(t *testing.T) string {
	t.Helper()
	upgrader := websocket.Upgrader{}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var msg protocol.Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		var hello protocol.ClientHello
		if err := protocol.DecodePayload(msg, &hello); err != nil {
			return
		}
		if f.hello != nil {
			f.hello(conn, hello)
		} else {
			conn.WriteJSON(protocol.Message{
				Type:    protocol.TypeServerHello,
				Payload: protocol.ServerHello{ServerID: "fake", Name: "Fake", Version: protocol.Version},
			})
		}

		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if f.handle != nil {
				f.handle(conn, messageType, data)
			}
		}
	}))
	t.Cleanup(ts.Close)
	return strings.TrimPrefix(ts.URL, "http://")
}

// echo answers stream/start with stream/ready and returns each audio
// message unchanged
func echo(gap int64) func(conn *websocket.Conn, messageType int, data []byte) {
	var start protocol.StreamStart
	var frames int64
	return func(conn *websocket.Conn, messageType int, data []byte) {
		if messageType == websocket.BinaryMessage {
			frame, err := protocol.ParseAudioFrame(data)
			if err != nil {
				return
			}
			conn.WriteMessage(websocket.BinaryMessage,
				protocol.CreateAudioFrame(protocol.AudioOutMessageType, frames+gap, frame.Data))
			frames += int64(len(frame.Data) / (start.Channels * start.BitDepth / 8))
			return
		}

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
		switch msg.Type {
		case protocol.TypeStreamStart:
			protocol.DecodePayload(msg, &start)
			frames = 0
			conn.WriteJSON(protocol.Message{Type: protocol.TypeStreamReady, Payload: protocol.StreamReady{
				SessionID:      "session",
				InputRate:      start.InputRate,
				OutputRate:     start.OutputRate,
				Channels:       start.Channels,
				BitDepth:       start.BitDepth,
				MaxChunkFrames: 4,
			}})
		case protocol.TypeStreamEnd:
			conn.WriteJSON(protocol.Message{Type: protocol.TypeStreamDone, Payload: protocol.StreamDone{
				SessionID:    "session",
				InputFrames:  frames,
				OutputFrames: frames,
			}})
		}
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{ServerAddr: "localhost:8927"})

	assert.Equal(t, "localhost:8927", c.config.ServerAddr)
	assert.Equal(t, protocol.Path, c.config.Path)
	assert.NotEmpty(t, c.config.ClientID)
	assert.Equal(t, c.config.ClientID, c.config.Name)
	assert.Equal(t, version.Product, c.config.DeviceInfo.ProductName)
	assert.Equal(t, 5*time.Second, c.config.HandshakeTimeout)
	assert.False(t, c.IsConnected())

	other := NewClient(Config{ServerAddr: "localhost:8927"})
	assert.NotEqual(t, c.config.ClientID, other.config.ClientID)
}

func TestSendWithoutStream(t *testing.T) {
	c := NewClient(Config{ServerAddr: "localhost:8927"})
	assert.Error(t, c.SendAudio([]byte{0, 0}))
	assert.ErrorIs(t, c.EndStream(), ErrNotConnected)
}

func TestConnectFailure(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	addr := strings.TrimPrefix(ts.URL, "http://")
	ts.Close()

	c := NewClient(Config{ServerAddr: addr, HandshakeTimeout: time.Second})
	assert.Error(t, c.Connect(context.Background()))
	assert.False(t, c.IsConnected())
}

func TestConnectHandshake(t *testing.T) {
	var got protocol.ClientHello
	f := &fakeServer{hello: func(conn *websocket.Conn, hello protocol.ClientHello) {
		got = hello
		conn.WriteJSON(protocol.Message{
			Type:    protocol.TypeServerHello,
			Payload: protocol.ServerHello{ServerID: "srv-1", Name: "Studio", Version: protocol.Version},
		})
	}}
	addr := f.serve(t)

	c := NewClient(Config{ServerAddr: addr, ClientID: "c-1", Name: "Desk"})
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	assert.True(t, c.IsConnected())
	assert.Equal(t, "srv-1", c.Server().ServerID)
	assert.Equal(t, "Studio", c.Server().Name)
	assert.Equal(t, "c-1", got.ClientID)
	assert.Equal(t, "Desk", got.Name)
	assert.Equal(t, protocol.Version, got.Version)
	require.NotNil(t, got.DeviceInfo)
	assert.Equal(t, version.Version, got.DeviceInfo.SoftwareVersion)
}

func TestConnectRejected(t *testing.T) {
	f := &fakeServer{hello: func(conn *websocket.Conn, hello protocol.ClientHello) {
		conn.WriteJSON(protocol.Message{
			Type:    protocol.TypeServerError,
			Payload: protocol.ServerError{Error: protocol.ErrorDuplicateClient, Message: "taken"},
		})
	}}
	addr := f.serve(t)

	c := NewClient(Config{ServerAddr: addr, ClientID: "dup"})
	err := c.Connect(context.Background())
	require.Error(t, err)

	var serverErr *ServerError
	require.True(t, errors.As(err, &serverErr))
	assert.Equal(t, protocol.ErrorDuplicateClient, serverErr.Code)
	assert.Equal(t, "taken", serverErr.Message)
	assert.False(t, c.IsConnected())
}

func TestSendAudioPartialFrame(t *testing.T) {
	addr := (&fakeServer{handle: echo(0)}).serve(t)

	c := NewClient(Config{ServerAddr: addr})
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	ready, err := c.StartStream(context.Background(), protocol.StreamStart{
		InputRate: 8000, OutputRate: 16000, Channels: 2, BitDepth: 16,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, ready.MaxChunkFrames)

	assert.Error(t, c.SendAudio(make([]byte, 6)))
	assert.NoError(t, c.SendAudio(make([]byte, 8)))
}

func TestResample(t *testing.T) {
	addr := (&fakeServer{handle: echo(0)}).serve(t)

	c := NewClient(Config{ServerAddr: addr})
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	pcm := make([]byte, 2*23)
	for i := range pcm {
		pcm[i] = byte(i)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, done, err := c.Resample(ctx, protocol.StreamStart{
		InputRate: 8000, OutputRate: 8000, Channels: 1, BitDepth: 16,
	}, pcm, 0)
	require.NoError(t, err)
	assert.Equal(t, pcm, out)
	assert.Equal(t, int64(23), done.InputFrames)
	assert.Equal(t, "session", done.SessionID)

	// The connection carries another stream afterwards
	out, _, err = c.Resample(ctx, protocol.StreamStart{
		InputRate: 8000, OutputRate: 8000, Channels: 1, BitDepth: 16,
	}, pcm[:4], 1)
	require.NoError(t, err)
	assert.Equal(t, pcm[:4], out)
}

func TestResampleDetectsGap(t *testing.T) {
	addr := (&fakeServer{handle: echo(3)}).serve(t)

	c := NewClient(Config{ServerAddr: addr})
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, _, err := c.Resample(ctx, protocol.StreamStart{
		InputRate: 8000, OutputRate: 8000, Channels: 1, BitDepth: 16,
	}, make([]byte, 16), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audio gap")
}

func TestStartStreamServerError(t *testing.T) {
	addr := (&fakeServer{handle: func(conn *websocket.Conn, messageType int, data []byte) {
		conn.WriteJSON(protocol.Message{
			Type:    protocol.TypeServerError,
			Payload: protocol.ServerError{Error: protocol.ErrorBadRequest, Message: "unsupported bit depth"},
		})
	}}).serve(t)

	c := NewClient(Config{ServerAddr: addr})
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	_, err := c.StartStream(context.Background(), protocol.StreamStart{
		InputRate: 8000, OutputRate: 16000, Channels: 1, BitDepth: 8,
	})
	var serverErr *ServerError
	require.True(t, errors.As(err, &serverErr))
	assert.Equal(t, protocol.ErrorBadRequest, serverErr.Code)
}

func TestCloseStopsEvents(t *testing.T) {
	addr := (&fakeServer{}).serve(t)

	c := NewClient(Config{ServerAddr: addr})
	require.NoError(t, c.Connect(context.Background()))

	c.Close()
	c.Close()
	assert.False(t, c.IsConnected())

	select {
	case _, ok := <-c.Events:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("events channel not closed after Close")
	}

	assert.ErrorIs(t, c.EndStream(), ErrNotConnected)
}
