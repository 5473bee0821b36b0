// ABOUTME: TUI update helpers for server
// ABOUTME: Functions to send server state updates to TUI
package server

import (
	"sort"
	"time"
)

// updateTUI sends current server state to TUI
func (s *Server) updateTUI() {
	if s.tui == nil {
		return
	}
	s.tui.Update(s.Status())
}

// Status snapshots the connected clients, ordered by name
func (s *Server) Status() ServerStatus {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	status := ServerStatus{
		Name:    s.config.Name,
		Port:    s.config.Port,
		Uptime:  time.Since(s.startTime),
		Clients: make([]ClientInfo, 0, len(s.clients)),
	}

	for _, client := range s.clients {
		client.mu.RLock()
		status.Clients = append(status.Clients, ClientInfo{
			Name:      client.Name,
			ID:        client.ID,
			Stream:    client.Stream,
			State:     client.State,
			InFrames:  client.InFrames,
			OutFrames: client.OutFrames,
		})
		status.Streams += client.Streams
		client.mu.RUnlock()
	}

	sort.Slice(status.Clients, func(i, j int) bool {
		return status.Clients[i].Name < status.Clients[j].Name
	})
	return status
}
