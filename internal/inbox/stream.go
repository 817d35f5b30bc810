package inbox

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/careops/platform/internal/tenancy"
	"github.com/careops/platform/pkg/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

// StreamEvent is pushed to connected inbox clients when a message lands.
type StreamEvent struct {
	Type           string   `json:"type"`
	ConversationID string   `json:"conversation_id"`
	Message        *Message `json:"message,omitempty"`
}

// Stream fans new-message events out to websocket subscribers per workspace.
type Stream struct {
	logger   *logging.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]map[*streamClient]struct{} // workspaceID -> clients
}

type streamClient struct {
	conn *websocket.Conn
	send chan StreamEvent
}

// NewStream creates an inbox event stream.
func NewStream(logger *logging.Logger) *Stream {
	if logger == nil {
		logger = logging.Default()
	}
	return &Stream{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin enforcement happens in the CORS middleware; the socket
			// endpoint sits behind auth already.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[string]map[*streamClient]struct{}),
	}
}

// Publish delivers an event to every subscriber of the workspace. Slow
// subscribers are dropped rather than blocking the publisher.
func (s *Stream) Publish(workspaceID string, event StreamEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for client := range s.clients[workspaceID] {
		select {
		case client.send <- event:
		default:
			s.logger.Warn("dropping slow inbox subscriber", "workspace_id", workspaceID)
			s.dropLocked(workspaceID, client)
		}
	}
}

// dropLocked unregisters the client and closes its channel in one step, so
// no later Publish can see the client and send on the closed channel. The
// write pump observes the close, emits a close frame, and tears down the
// connection. Caller holds mu.
func (s *Stream) dropLocked(workspaceID string, client *streamClient) {
	clients := s.clients[workspaceID]
	delete(clients, client)
	if len(clients) == 0 {
		delete(s.clients, workspaceID)
	}
	close(client.send)
}

// Subscribers returns the number of live connections for a workspace.
func (s *Stream) Subscribers(workspaceID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients[workspaceID])
}

// ServeHTTP upgrades the connection and streams inbox events until the client
// disconnects.
func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := tenancy.WorkspaceIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing workspace context", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &streamClient{conn: conn, send: make(chan StreamEvent, 16)}
	s.add(workspaceID, client)

	go s.writePump(workspaceID, client)
	s.readPump(workspaceID, client)
}

func (s *Stream) add(workspaceID string, client *streamClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients[workspaceID] == nil {
		s.clients[workspaceID] = make(map[*streamClient]struct{})
	}
	s.clients[workspaceID][client] = struct{}{}
}

func (s *Stream) remove(workspaceID string, client *streamClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if clients, ok := s.clients[workspaceID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(s.clients, workspaceID)
		}
	}
}

// readPump discards inbound frames; the stream is one-way. It exists to keep
// control frames (pong, close) flowing.
func (s *Stream) readPump(workspaceID string, client *streamClient) {
	defer func() {
		s.remove(workspaceID, client)
		client.conn.Close()
	}()
	client.conn.SetReadLimit(512)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Stream) writePump(workspaceID string, client *streamClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()
	for {
		select {
		case event, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := client.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
