// ABOUTME: Main server implementation for the resample service
// ABOUTME: Manages WebSocket connections, client sessions, and resampled audio streaming
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Resonate-Protocol/resample-go/internal/discovery"
	"github.com/Resonate-Protocol/resample-go/internal/protocol"
	"github.com/Resonate-Protocol/resample-go/internal/version"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrClientGone is returned when a client disconnects mid-stream
var ErrClientGone = errors.New("client disconnected")

// Config holds server configuration
type Config struct {
	Port       int
	Name       string
	EnableMDNS bool
	Debug      bool
	UseTUI     bool
	// Capacity is the per-channel resampler capacity of each session;
	// zero uses the resampler default
	Capacity int
}

// Server represents the resample server
type Server struct {
	config   Config
	serverID string

	// WebSocket upgrader
	upgrader websocket.Upgrader

	// HTTP server
	httpServer *http.Server
	mux        *http.ServeMux

	// Client management
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// mDNS discovery
	mdnsManager *discovery.Manager

	// TUI
	tui       *ServerTUI
	startTime time.Time

	// Control
	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// Client represents a connected client
type Client struct {
	ID   string
	Name string
	Conn *websocket.Conn

	// session is touched only by the connection's read loop
	session *Session

	// Snapshot for status displays
	State     string
	Stream    string
	InFrames  int64
	OutFrames int64
	Streams   int

	// Output channel for messages
	sendChan   chan interface{}
	writerDone chan struct{}

	mu sync.RWMutex
}

// New creates a new server instance
func New(config Config) *Server {
	if config.Name == "" {
		config.Name = version.Product
	}

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Non-browser clients send no Origin header
				if origin := r.Header.Get("Origin"); origin != "" {
					log.Printf("Warning: accepting WebSocket from origin: %s", origin)
				}
				return true
			},
		},
		clients:   make(map[string]*Client),
		startTime: time.Now(),
		stopChan:  make(chan struct{}),
	}
	s.mux.HandleFunc(protocol.Path, s.handleWebSocket)
	return s
}

// Handler returns the HTTP handler serving the WebSocket endpoint
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ID returns the server ID sent in server/hello
func (s *Server) ID() string {
	return s.serverID
}

// Start starts the server and blocks until Stop, a TUI quit or a listener
// failure
func (s *Server) Start() error {
	// Start TUI if enabled
	if s.config.UseTUI {
		s.tui = NewServerTUI(s.config.Name, s.config.Port)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.tui.Start(s.config.Name, s.config.Port); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()
	}

	log.Printf("Server starting: %s (ID: %s)", s.config.Name, s.serverID)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		s.shutdownTUI()
		return fmt.Errorf("failed to listen: %w", err)
	}
	log.Printf("WebSocket server listening on %s%s", listener.Addr(), protocol.Path)

	// Start mDNS advertisement if enabled
	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        listener.Addr().(*net.TCPAddr).Port,
			Text: []string{
				"path=" + protocol.Path,
				"version=" + strconv.Itoa(protocol.Version),
				"product=" + version.Product,
			},
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			log.Printf("mDNS advertisement started")
		}
	}

	s.httpServer = &http.Server{Handler: s.mux}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for stop signal, TUI quit, or server error
	var serverErr error
	var tuiQuitChan <-chan struct{}
	if s.tui != nil {
		tuiQuitChan = s.tui.QuitChan()
	}

	statusDone := make(chan struct{})
	if s.tui != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.statusLoop(statusDone)
		}()
	}

	select {
	case <-s.stopChan:
		log.Printf("Server shutting down...")
	case <-tuiQuitChan:
		log.Printf("TUI quit requested, shutting down...")
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		serverErr = err
	}

	close(statusDone)

	// Reject new connections
	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	s.shutdownTUI()

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Hijacked WebSocket connections survive Shutdown
	s.clientsMu.RLock()
	for _, client := range s.clients {
		client.Conn.Close()
	}
	s.clientsMu.RUnlock()

	s.wg.Wait()
	log.Printf("Server stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// statusLoop refreshes the TUI frame counters while streams run
func (s *Server) statusLoop(done <-chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.updateTUI()
		case <-done:
			return
		}
	}
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

func (s *Server) shutdownTUI() {
	if s.tui != nil {
		s.tui.Stop()
	}
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New WebSocket connection from %s", r.RemoteAddr)

	s.wg.Add(1)
	defer s.wg.Done()
	s.handleConnection(conn)
}

// handleConnection manages a client connection
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		log.Printf("Rejecting connection during shutdown")
		return
	}
	s.shutdownMu.RUnlock()

	if s.config.Debug {
		log.Printf("[DEBUG] New connection, waiting for handshake")
	}

	hello, err := readHello(conn)
	if err != nil {
		log.Printf("Handshake failed: %v", err)
		writeError(conn, protocol.ErrorBadRequest, err.Error())
		return
	}

	log.Printf("Client hello: %s (ID: %s)", hello.Name, hello.ClientID)

	client := &Client{
		ID:         hello.ClientID,
		Name:       hello.Name,
		Conn:       conn,
		State:      "idle",
		sendChan:   make(chan interface{}, 100),
		writerDone: make(chan struct{}),
	}

	// Check for duplicate client ID and register atomically
	s.clientsMu.Lock()
	if existing, exists := s.clients[hello.ClientID]; exists {
		s.clientsMu.Unlock()
		log.Printf("Client ID %s already connected (name: %s), rejecting duplicate", hello.ClientID, existing.Name)
		writeError(conn, protocol.ErrorDuplicateClient, "Client ID already connected")
		return
	}
	s.clients[client.ID] = client
	s.clientsMu.Unlock()

	s.updateTUI()

	defer func() {
		if client.session != nil {
			in, out := client.session.Frames()
			log.Printf("Abandoning stream %s of %s after %d/%d frames", client.session.ID, client.Name, in, out)
			client.session.Close()
			client.session = nil
		}
		s.clientsMu.Lock()
		delete(s.clients, client.ID)
		s.clientsMu.Unlock()
		close(client.sendChan)
		<-client.writerDone
		log.Printf("Client disconnected: %s", client.Name)

		s.updateTUI()
	}()

	go s.clientWriter(client)

	serverHello := protocol.ServerHello{
		ServerID: s.serverID,
		Name:     s.config.Name,
		Version:  protocol.Version,
	}
	if err := s.sendMessage(client, protocol.TypeServerHello, serverHello); err != nil {
		log.Printf("Error sending server hello: %v", err)
		return
	}

	// Read messages from client
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		switch messageType {
		case websocket.BinaryMessage:
			err = s.handleAudio(client, data)
		case websocket.TextMessage:
			err = s.handleClientMessage(client, data)
		}
		if errors.Is(err, ErrClientGone) {
			break
		}
	}
}

// readHello waits for client/hello
func readHello(conn *websocket.Conn) (protocol.ClientHello, error) {
	var hello protocol.ClientHello

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	defer conn.SetReadDeadline(time.Time{})

	_, data, err := conn.ReadMessage()
	if err != nil {
		return hello, fmt.Errorf("error reading hello: %w", err)
	}

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return hello, fmt.Errorf("error unmarshaling message: %w", err)
	}
	if msg.Type != protocol.TypeClientHello {
		return hello, fmt.Errorf("expected %s, got %s", protocol.TypeClientHello, msg.Type)
	}
	if err := protocol.DecodePayload(msg, &hello); err != nil {
		return hello, err
	}

	if hello.ClientID == "" {
		return hello, errors.New("client hello missing client_id")
	}
	if hello.Name == "" {
		return hello, errors.New("client hello missing name")
	}
	if hello.Version != protocol.Version {
		return hello, fmt.Errorf("unsupported protocol version %d", hello.Version)
	}
	return hello, nil
}

// writeError writes server/error directly, before the writer goroutine runs
func writeError(conn *websocket.Conn, code, message string) {
	msg := protocol.Message{
		Type:    protocol.TypeServerError,
		Payload: protocol.ServerError{Error: code, Message: message},
	}
	if data, err := json.Marshal(msg); err == nil {
		conn.WriteMessage(websocket.TextMessage, data)
	}
}

// clientWriter sends messages to the client
func (s *Server) clientWriter(client *Client) {
	defer close(client.writerDone)

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	const writeDeadline = 10 * time.Second

	for {
		select {
		case msg, ok := <-client.sendChan:
			if !ok {
				return
			}

			switch v := msg.(type) {
			case []byte:
				client.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := client.Conn.WriteMessage(websocket.BinaryMessage, v); err != nil {
					log.Printf("Error writing binary message: %v", err)
					s.dropClient(client)
					return
				}
			default:
				data, err := json.Marshal(v)
				if err != nil {
					log.Printf("Error marshaling message: %v", err)
					continue
				}
				client.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
					log.Printf("Error writing text message: %v", err)
					s.dropClient(client)
					return
				}
			}

		case <-ticker.C:
			if err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				s.dropClient(client)
				return
			}
		}
	}
}

// dropClient closes the connection so the read loop ends, then drains the
// queue until the read loop closes it
func (s *Server) dropClient(client *Client) {
	client.Conn.Close()
	go func() {
		for range client.sendChan {
		}
	}()
}

// handleClientMessage processes JSON messages from clients
func (s *Server) handleClientMessage(client *Client, data []byte) error {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		return s.sendError(client, protocol.ErrorBadRequest, "invalid JSON message")
	}

	switch msg.Type {
	case protocol.TypeStreamStart:
		return s.handleStreamStart(client, msg)
	case protocol.TypeStreamEnd:
		return s.handleStreamEnd(client)
	default:
		log.Printf("Unknown message type: %s", msg.Type)
		return s.sendError(client, protocol.ErrorBadRequest, "unknown message type "+msg.Type)
	}
}

// handleStreamStart opens a session
func (s *Server) handleStreamStart(client *Client, msg protocol.Message) error {
	if client.session != nil {
		return s.sendError(client, protocol.ErrorStreamActive, "stream already started")
	}

	var start protocol.StreamStart
	if err := protocol.DecodePayload(msg, &start); err != nil {
		return s.sendError(client, protocol.ErrorBadRequest, err.Error())
	}

	session, err := newSession(start, s.config.Capacity)
	if err != nil {
		log.Printf("Rejecting stream from %s: %v", client.Name, err)
		return s.sendError(client, protocol.ErrorBadRequest, err.Error())
	}
	client.session = session

	log.Printf("Stream %s for %s: %dHz -> %dHz, %d channels, %d-bit",
		session.ID, client.Name, start.InputRate, start.OutputRate, start.Channels, start.BitDepth)

	client.mu.Lock()
	client.State = "streaming"
	client.Stream = fmt.Sprintf("%dHz -> %dHz %dch", start.InputRate, start.OutputRate, start.Channels)
	client.InFrames, client.OutFrames = 0, 0
	client.mu.Unlock()
	s.updateTUI()

	return s.sendMessage(client, protocol.TypeStreamReady, session.Ready())
}

// handleStreamEnd flushes and closes the session
func (s *Server) handleStreamEnd(client *Client) error {
	session := client.session
	if session == nil {
		return s.sendError(client, protocol.ErrorNoStream, "no stream started")
	}
	client.session = nil
	defer session.Close()

	done, err := session.Finish(func(frame []byte) error {
		return s.sendBinary(client, frame)
	})
	if err != nil {
		return s.failStream(client, err)
	}

	log.Printf("Stream %s finished: %d frames in, %d frames out", done.SessionID, done.InputFrames, done.OutputFrames)

	client.mu.Lock()
	client.State = "idle"
	client.InFrames, client.OutFrames = done.InputFrames, done.OutputFrames
	client.Streams++
	client.mu.Unlock()
	s.updateTUI()

	return s.sendMessage(client, protocol.TypeStreamDone, done)
}

// handleAudio resamples one binary audio message
func (s *Server) handleAudio(client *Client, data []byte) error {
	frame, err := protocol.ParseAudioFrame(data)
	if err != nil {
		return s.sendError(client, protocol.ErrorBadRequest, err.Error())
	}
	if frame.Type != protocol.AudioInMessageType {
		return s.sendError(client, protocol.ErrorBadRequest, "unexpected audio message type")
	}

	session := client.session
	if session == nil {
		return s.sendError(client, protocol.ErrorNoStream, "audio before stream/start")
	}

	err = session.Write(frame.Index, frame.Data, func(out []byte) error {
		return s.sendBinary(client, out)
	})
	if err != nil {
		return s.failStream(client, err)
	}

	in, out := session.Frames()
	if s.config.Debug {
		log.Printf("[DEBUG] Stream %s: %d frames in, %d frames out", session.ID, in, out)
	}

	client.mu.Lock()
	client.InFrames, client.OutFrames = in, out
	client.mu.Unlock()
	return nil
}

// failStream reports a stream error and drops the session. The client may
// start a new stream afterwards.
func (s *Server) failStream(client *Client, err error) error {
	if errors.Is(err, ErrClientGone) {
		return err
	}
	log.Printf("Stream error for %s: %v", client.Name, err)
	if client.session != nil {
		client.session.Close()
		client.session = nil
	}

	client.mu.Lock()
	client.State = "error"
	client.mu.Unlock()
	s.updateTUI()

	return s.sendError(client, protocol.ErrorResample, err.Error())
}

// sendError sends server/error
func (s *Server) sendError(client *Client, code, message string) error {
	return s.sendMessage(client, protocol.TypeServerError, protocol.ServerError{Error: code, Message: message})
}

// sendMessage queues a JSON message to a client
func (s *Server) sendMessage(client *Client, msgType string, payload interface{}) error {
	return s.enqueue(client, protocol.Message{Type: msgType, Payload: payload})
}

// sendBinary queues binary data to a client
func (s *Server) sendBinary(client *Client, data []byte) error {
	return s.enqueue(client, data)
}

// enqueue blocks while the send queue is full, so a slow client slows its
// own stream instead of losing audio
func (s *Server) enqueue(client *Client, msg interface{}) error {
	select {
	case client.sendChan <- msg:
		return nil
	case <-client.writerDone:
		return ErrClientGone
	}
}
