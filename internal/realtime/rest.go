package realtime

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/GonnyTech/canDrive-Pro/internal/protocol"
	"github.com/GonnyTech/canDrive-Pro/internal/session"
)

const defaultPacketLimit = 100

type connectRequest struct {
	Port     string `json:"port"`
	BaudRate int    `json:"baudrate"`
}

type transitionResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps manager errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrInvalidTransition), errors.Is(err, session.ErrNotConnected):
		return http.StatusConflict
	case errors.Is(err, session.ErrTransportUnavailable),
		errors.Is(err, session.ErrTransport),
		errors.Is(err, session.ErrDisconnect):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeTransition answers a state-changing request and, on success, pushes
// the new status to WebSocket clients.
func (s *Server) writeTransition(w http.ResponseWriter, err error) {
	if err != nil {
		writeJSON(w, statusFor(err), transitionResponse{Success: false, Error: err.Error()})
		// A failed disconnect still leaves the manager disconnected.
		s.broadcastStatus()
		return
	}
	writeJSON(w, http.StatusOK, transitionResponse{Success: true})
	s.broadcastStatus()
}

func (s *Server) handlePorts(w http.ResponseWriter, r *http.Request) {
	ports, err := s.mgr.ScanPorts()
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if ports == nil {
		ports = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"ports": ports})
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, transitionResponse{Error: "invalid request body"})
		return
	}

	if req.Port == "" {
		writeJSON(w, http.StatusBadRequest, transitionResponse{Error: "port is required"})
		return
	}

	s.writeTransition(w, s.mgr.Connect(req.Port, req.BaudRate))
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	s.writeTransition(w, s.mgr.Disconnect())
}

func (s *Server) handleStartSniffing(w http.ResponseWriter, r *http.Request) {
	s.writeTransition(w, s.mgr.StartSniffing())
}

func (s *Server) handleStopSniffing(w http.ResponseWriter, r *http.Request) {
	s.writeTransition(w, s.mgr.StopSniffing())
}

func (s *Server) handlePackets(w http.ResponseWriter, r *http.Request) {
	limit := defaultPacketLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	frames := s.mgr.Recent(limit)
	packets := make([]protocol.PacketPayload, 0, len(frames))
	for _, f := range frames {
		packets = append(packets, protocol.PacketFromFrame(f))
	}
	writeJSON(w, http.StatusOK, map[string]any{"packets": packets})
}

func (s *Server) handleIDs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ids": s.mgr.IdentifierCounts()})
}

func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"labels": s.mgr.Labels()})
}

func (s *Server) handleSendPacket(w http.ResponseWriter, r *http.Request) {
	var req protocol.SendPacketPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, transitionResponse{Error: "invalid request body"})
		return
	}

	if req.ID == "" {
		writeJSON(w, http.StatusBadRequest, transitionResponse{Error: "id is required"})
		return
	}
	req = req.WithDefaults()

	if err := s.mgr.Send(r.Context(), req.ID, req.Ext, req.RTR, req.Data); err != nil {
		writeJSON(w, statusFor(err), transitionResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, transitionResponse{Success: true})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.mgr.Status())
}
