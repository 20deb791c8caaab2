package ws

import (
	"encoding/base64"
	"net/http"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/termstack/termd/internal/infrastructure/logging"
	"github.com/termstack/termd/internal/infrastructure/monitoring"
	"github.com/termstack/termd/internal/session"
	"github.com/termstack/termd/internal/shared/id"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // The daemon fronts a local UI shell.
	},
}

// clientMessage is one client-to-server message. Input bytes are
// base64 encoded, mirroring the output frames.
type clientMessage struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
	Rows int    `json:"rows,omitempty"`
	Cols int    `json:"cols,omitempty"`
}

// Handler upgrades attachment requests and bridges one connection to
// one session.
type Handler struct {
	mgr     *session.Manager
	hub     *Hub
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewHandler creates the WebSocket handler.
func NewHandler(mgr *session.Manager, hub *Hub, logger *logging.Logger, metrics *monitoring.Metrics) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{mgr: mgr, hub: hub, logger: logger.Named("ws"), metrics: metrics}
}

// Attach handles GET /sessions/:id/stream: it upgrades the connection,
// replays buffered output, then relays frames both ways until either
// side closes.
func (h *Handler) Attach(c *gin.Context) {
	sid := id.SessionID(c.Param("id"))
	if _, err := h.mgr.Get(sid); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	h.logger.Debug("attached",
		zap.String("session_id", sid.String()),
		zap.String("conn_id", connID),
	)
	defer h.logger.Debug("detached",
		zap.String("session_id", sid.String()),
		zap.String("conn_id", connID),
	)

	if h.metrics != nil {
		h.metrics.WSConnections.Inc()
		defer h.metrics.WSConnections.Dec()
	}

	sub := h.hub.attach(sid)
	defer h.hub.detach(sid, sub)

	// Both the hub pump and control-message replies write to the
	// socket; gorilla allows one writer at a time, so writes share a
	// lock.
	link := &wsLink{conn: conn}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for payload := range sub {
			if err := link.write(payload); err != nil {
				return
			}
		}
	}()

	// Reader side: relay client input and control messages.
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var msg clientMessage
		if err := sonic.Unmarshal(raw, &msg); err != nil {
			h.sendError(link, "malformed message")
			continue
		}
		h.handleMessage(link, sid, msg)
	}

	h.hub.detach(sid, sub)
	<-done
}

// wsLink serializes writes to one connection.
type wsLink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (l *wsLink) write(payload []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn.WriteMessage(websocket.TextMessage, payload)
}

func (h *Handler) handleMessage(link *wsLink, sid id.SessionID, msg clientMessage) {
	switch msg.Type {
	case "input":
		data, err := base64.StdEncoding.DecodeString(msg.Data)
		if err != nil {
			h.sendError(link, "input data is not valid base64")
			return
		}
		if err := h.mgr.Write(sid, data); err != nil {
			h.sendError(link, err.Error())
		}
	case "resize":
		if err := h.mgr.Resize(sid, msg.Rows, msg.Cols); err != nil {
			h.sendError(link, err.Error())
		}
	case "interrupt":
		if err := h.mgr.Interrupt(sid); err != nil {
			h.sendError(link, err.Error())
		}
	case "ping":
		h.send(link, Frame{Type: "pong"})
	default:
		h.sendError(link, "unknown message type")
	}
}

func (h *Handler) send(link *wsLink, f Frame) {
	payload, err := sonic.Marshal(f)
	if err != nil {
		return
	}
	link.write(payload)
}

func (h *Handler) sendError(link *wsLink, msg string) {
	h.send(link, Frame{Type: "error", Message: msg})
}
