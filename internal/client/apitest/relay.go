package apitest

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// relay accepts a workspace channel and rebroadcasts every text frame it
// receives to all connections of that workspace, sender included.
func (s *Server) relay(w http.ResponseWriter, r *http.Request) {
	workspaceID := pathID(r, "workspaceID")
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.relayMu.Lock()
	if s.peers[workspaceID] == nil {
		s.peers[workspaceID] = map[*websocket.Conn]*sync.Mutex{}
	}
	s.peers[workspaceID][conn] = &sync.Mutex{}
	s.relayMu.Unlock()

	defer func() {
		s.relayMu.Lock()
		delete(s.peers[workspaceID], conn)
		s.relayMu.Unlock()
		_ = conn.Close()
	}()

	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind == websocket.TextMessage {
			s.Broadcast(workspaceID, msg)
		}
	}
}

// Broadcast sends msg as a text frame to every connection of workspaceID.
func (s *Server) Broadcast(workspaceID int64, msg []byte) {
	s.relayMu.Lock()
	targets := make(map[*websocket.Conn]*sync.Mutex, len(s.peers[workspaceID]))
	for c, mu := range s.peers[workspaceID] {
		targets[c] = mu
	}
	s.relayMu.Unlock()

	for c, mu := range targets {
		mu.Lock()
		_ = c.SetWriteDeadline(time.Now().Add(time.Second))
		_ = c.WriteMessage(websocket.TextMessage, msg)
		mu.Unlock()
	}
}

// Subscribers counts open channels of workspaceID.
func (s *Server) Subscribers(workspaceID int64) int {
	s.relayMu.Lock()
	defer s.relayMu.Unlock()
	return len(s.peers[workspaceID])
}

// DropSubscribers closes every channel of workspaceID from the server side.
func (s *Server) DropSubscribers(workspaceID int64) {
	s.relayMu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.peers[workspaceID]))
	for c := range s.peers[workspaceID] {
		conns = append(conns, c)
	}
	s.relayMu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
}

func (s *Server) closePeers() {
	s.relayMu.Lock()
	ids := make([]int64, 0, len(s.peers))
	for id := range s.peers {
		ids = append(ids, id)
	}
	s.relayMu.Unlock()
	for _, id := range ids {
		s.DropSubscribers(id)
	}
}
