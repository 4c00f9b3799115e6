package realtime

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/GonnyTech/canDrive-Pro/internal/protocol"
	"github.com/GonnyTech/canDrive-Pro/internal/session"
)

const (
	pingInterval  = 30 * time.Second
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
	sendTimeout   = 5 * time.Second
	clientBuffer  = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow localhost origins for dev.
	},
}

// Server exposes the session manager over REST and pushes frames and state
// changes to WebSocket clients.
type Server struct {
	mgr       *session.Manager
	staticDir string
	clients   map[*client]bool
	clientsMu sync.RWMutex
}

type client struct {
	conn      *websocket.Conn
	send      chan []byte
	enc       protocol.Encoding
	sub       *session.Subscription
	server    *Server
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a new realtime server.
func New(mgr *session.Manager, staticDir string) *Server {
	return &Server{
		mgr:       mgr,
		staticDir: staticDir,
		clients:   make(map[*client]bool),
	}
}

// Handler returns an http.Handler with all routes configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint.
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	// REST API endpoints.
	mux.HandleFunc("GET /api/ports", s.handlePorts)
	mux.HandleFunc("POST /api/connect", s.handleConnect)
	mux.HandleFunc("POST /api/disconnect", s.handleDisconnect)
	mux.HandleFunc("POST /api/start_sniffing", s.handleStartSniffing)
	mux.HandleFunc("POST /api/stop_sniffing", s.handleStopSniffing)
	mux.HandleFunc("GET /api/packets", s.handlePackets)
	mux.HandleFunc("GET /api/ids", s.handleIDs)
	mux.HandleFunc("GET /api/labels", s.handleLabels)
	mux.HandleFunc("POST /api/send_packet", s.handleSendPacket)
	mux.HandleFunc("GET /api/status", s.handleStatus)

	mux.Handle("GET /metrics", promhttp.Handler())

	// Static file serving.
	if s.staticDir != "" {
		fileServer := http.FileServer(http.Dir(s.staticDir))
		mux.Handle("/", fileServer)
	}

	return corsMiddleware(requestLogger(mux))
}

// Close disconnects every WebSocket client.
func (s *Server) Close() {
	s.clientsMu.RLock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.clientsMu.RUnlock()

	for _, c := range clients {
		c.close()
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleWebSocket upgrades an HTTP connection to WebSocket. The encoding
// query parameter selects JSON text frames (default) or CBOR binary frames.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	enc, err := protocol.ParseEncoding(r.URL.Query().Get("encoding"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{
		conn:   conn,
		send:   make(chan []byte, clientBuffer),
		enc:    enc,
		sub:    s.mgr.Subscribe(),
		server: s,
		done:   make(chan struct{}),
	}

	s.clientsMu.Lock()
	s.clients[c] = true
	s.clientsMu.Unlock()

	log.Debug().Str("subscriber", c.sub.ID).Str("encoding", string(enc)).Msg("websocket client connected")

	// The initial status tells the client its subscription is live.
	c.trySend(protocol.NewMessage(protocol.TypeStatusUpdate, s.mgr.Status()))

	go c.writePump()
	go c.forward()
	go c.readPump()
}

// forward pushes frames from the client's subscription. The channel closes
// when the registry drops the client or the manager shuts down, and either
// way the connection is closed.
func (c *client) forward() {
	defer c.close()

	for f := range c.sub.C {
		data, err := protocol.NewMessage(protocol.TypePacket, protocol.PacketFromFrame(f)).Encode(c.enc)
		if err != nil {
			log.Error().Err(err).Msg("encode frame")
			continue
		}
		select {
		case c.send <- data:
		case <-c.done:
			return
		}
	}
}

// readPump reads messages from the WebSocket connection.
func (c *client) readPump() {
	defer c.server.removeClient(c)

	c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("subscriber", c.sub.ID).Msg("websocket read error")
			}
			return
		}

		c.server.handleMessage(c, message)
	}
}

// writePump writes messages to the WebSocket connection. It is the only
// writer on conn.
func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	msgType := websocket.TextMessage
	if c.enc.Binary() {
		msgType = websocket.BinaryMessage
	}

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(msgType, message); err != nil {
				c.close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// close signals the pumps to stop. Safe to call more than once.
func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// trySend queues msg without blocking. Messages for a full client are
// dropped.
func (c *client) trySend(msg *protocol.Message) {
	data, err := msg.Encode(c.enc)
	if err != nil {
		log.Error().Err(err).Str("type", msg.Type).Msg("encode message")
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	default:
	}
}

// removeClient cleans up a disconnected client.
func (s *Server) removeClient(c *client) {
	s.clientsMu.Lock()
	delete(s.clients, c)
	s.clientsMu.Unlock()

	s.mgr.Unsubscribe(c.sub.ID)
	c.close()

	log.Debug().Str("subscriber", c.sub.ID).Msg("websocket client disconnected")
}

// handleMessage processes a validated client message.
func (s *Server) handleMessage(c *client, raw []byte) {
	msg, err := protocol.ValidateClientMessage(c.enc, raw)
	if err != nil {
		c.trySend(protocol.NewErrorMessage(protocol.ErrInvalidMessage, err.Error()))
		return
	}

	switch msg.Type {
	case protocol.TypePacketSend:
		s.handleWSSend(c, msg.Payload)
	case protocol.TypeStatusRequest:
		c.trySend(protocol.NewMessage(protocol.TypeStatusUpdate, s.mgr.Status()))
	}
}

func (s *Server) handleWSSend(c *client, p protocol.SendPacketPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if err := s.mgr.Send(ctx, p.ID, p.Ext, p.RTR, p.Data); err != nil {
		code := protocol.ErrSendFailed
		if errors.Is(err, session.ErrNotConnected) {
			code = protocol.ErrNotConnected
		}
		c.trySend(protocol.NewErrorMessage(code, err.Error()))
	}
}

// broadcastStatus sends the current status to all connected clients.
func (s *Server) broadcastStatus() {
	s.broadcast(protocol.NewMessage(protocol.TypeStatusUpdate, s.mgr.Status()))
}

// broadcast sends a message to all connected clients.
func (s *Server) broadcast(msg *protocol.Message) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for c := range s.clients {
		c.trySend(msg)
	}
}
