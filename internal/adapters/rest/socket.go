package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/vibecheck/internal/adapters/camera"
	"github.com/ewilliams-labs/vibecheck/internal/capture"
	"github.com/ewilliams-labs/vibecheck/internal/core/domain"
	"github.com/ewilliams-labs/vibecheck/internal/core/services"
)

const socketWriteWait = 10 * time.Second

// Message types on the camera socket.
const (
	msgState  = "state"
	msgCamera = "camera"
	msgError  = "error"
)

// stateSummary is what the browser needs to notice a transition. The
// snapshot itself is served by /image.
type stateSummary struct {
	Phase      domain.Phase `json:"phase"`
	Generation uint64       `json:"generation"`
	Selected   int          `json:"selected"`
	Error      string       `json:"error,omitempty"`
}

type outboundMessage struct {
	Type   string                 `json:"type"`
	State  *stateSummary          `json:"state,omitempty"`
	Camera *services.CameraStatus `json:"camera,omitempty"`
}

type inboundMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// socketConn serializes writes from the read loop and the state pump.
type socketConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *socketConn) send(msg outboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
	return c.conn.WriteJSON(msg)
}

func summarize(st domain.SessionState) *stateSummary {
	return &stateSummary{Phase: st.Phase, Generation: st.Generation, Selected: st.Selected, Error: st.Error}
}

// CameraSocket handles GET /sessions/{id}/camera. Binary messages are
// preview frames; text messages are JSON reports from the browser. State
// changes and camera status are pushed back as JSON.
func (h *Handler) CameraSocket(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	states, unsubscribe, err := h.events.Subscribe(s.ID)
	if err != nil {
		h.logger.Error("subscribe to session", zap.String("session", s.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to subscribe")
		return
	}
	defer unsubscribe()

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		h.logger.Debug("websocket upgrade", zap.String("session", s.ID), zap.Error(err))
		return
	}
	defer ws.Close()
	ws.SetReadLimit(h.maxFrameBytes)

	log := h.logger.With(zap.String("session", s.ID))
	conn := &socketConn{conn: ws}

	cam := s.Camera()
	if err := conn.send(outboundMessage{Type: msgState, State: summarize(s.State())}); err != nil {
		return
	}
	if err := conn.send(outboundMessage{Type: msgCamera, Camera: &cam}); err != nil {
		return
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.pumpStates(conn, states, done, log)
	}()
	defer wg.Wait()
	defer close(done)

	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("camera socket closed", zap.Error(err))
			}
			return
		}

		switch mt {
		case websocket.BinaryMessage:
			h.handleFrame(s, data, log)
		case websocket.TextMessage:
			h.handleReport(s, data, log)
		}

		if next := s.Camera(); next != cam {
			cam = next
			if err := conn.send(outboundMessage{Type: msgCamera, Camera: &cam}); err != nil {
				return
			}
		}
	}
}

func (h *Handler) pumpStates(conn *socketConn, states <-chan domain.SessionState, done <-chan struct{}, log *zap.Logger) {
	for {
		select {
		case <-done:
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			if err := conn.send(outboundMessage{Type: msgState, State: summarize(st)}); err != nil {
				log.Debug("push state", zap.Error(err))
				return
			}
		}
	}
}

func (h *Handler) handleFrame(s *services.Session, data []byte, log *zap.Logger) {
	frame, err := capture.DecodeFrame(data)
	if err != nil {
		log.Debug("drop frame", zap.Error(err))
		return
	}
	if err := s.PushFrame(frame); err != nil && !errors.Is(err, domain.ErrNotReady) {
		log.Debug("push frame", zap.Error(err))
	}
}

func (h *Handler) handleReport(s *services.Session, data []byte, log *zap.Logger) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Debug("bad socket message", zap.Error(err))
		return
	}
	if msg.Type == msgError {
		s.ReportCameraFailure(camera.FailureFromCode(msg.Code, msg.Message))
	}
}
