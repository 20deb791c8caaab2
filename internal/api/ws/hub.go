// Package ws streams terminal sessions over WebSocket. A single hub
// goroutine is the one consumer of the session manager's event stream
// and fans frames out to attached connections, so per-session ordering
// is preserved end to end.
package ws

import (
	"encoding/base64"
	"sync"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/termstack/termd/internal/infrastructure/logging"
	"github.com/termstack/termd/internal/session"
	"github.com/termstack/termd/internal/shared/id"
)

// Frame is one server-to-client message. Output bytes are base64
// encoded because PTY output is raw bytes, not guaranteed UTF-8.
type Frame struct {
	Type     string `json:"type"`
	Data     string `json:"data,omitempty"`
	ExitCode *int   `json:"exit_code,omitempty"`
	Message  string `json:"message,omitempty"`
}

// subscriber is one attached connection's outbound queue. Frames are
// pre-encoded once per event, not once per connection.
type subscriber chan []byte

// subscriberBuffer bounds the per-connection queue; a consumer that
// falls this far behind is detached rather than allowed to stall the
// hub.
const subscriberBuffer = 256

// Hub fans session events out to WebSocket subscribers. It also keeps
// a bounded per-session backlog so a client attaching after spawn
// still receives everything the session produced, in order.
type Hub struct {
	mgr    *session.Manager
	logger *logging.Logger

	mu      sync.Mutex
	subs    map[id.SessionID]map[subscriber]struct{}
	backlog map[id.SessionID][]byte
	// scrollback bounds each session's backlog in bytes.
	scrollback int
}

// NewHub creates a hub over the manager's event stream. Run must be
// started for frames to flow.
func NewHub(mgr *session.Manager, scrollback int, logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	if scrollback <= 0 {
		scrollback = 1 << 20
	}
	return &Hub{
		mgr:        mgr,
		logger:     logger.Named("ws"),
		subs:       make(map[id.SessionID]map[subscriber]struct{}),
		backlog:    make(map[id.SessionID][]byte),
		scrollback: scrollback,
	}
}

// Run consumes the manager's event stream until it is exhausted. It is
// the sole consumer; run exactly one.
func (h *Hub) Run() {
	for ev := range h.mgr.Events() {
		switch ev.Type {
		case session.EventOutput:
			h.appendBacklog(ev.Session, ev.Data)
			h.broadcast(ev.Session, Frame{
				Type: "output",
				Data: base64.StdEncoding.EncodeToString(ev.Data),
			})
		case session.EventExited:
			h.broadcast(ev.Session, Frame{Type: "exited", ExitCode: ev.ExitCode})
			h.dropBacklog(ev.Session)
		case session.EventRespawned:
			h.broadcast(ev.Session, Frame{Type: "respawned"})
		case session.EventRespawnFailed:
			h.broadcast(ev.Session, Frame{Type: "error", Message: ev.Err.Error()})
		}
	}
}

func (h *Hub) appendBacklog(sid id.SessionID, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	buf := append(h.backlog[sid], data...)
	if len(buf) > h.scrollback {
		buf = buf[len(buf)-h.scrollback:]
	}
	h.backlog[sid] = buf
}

func (h *Hub) dropBacklog(sid id.SessionID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.backlog, sid)
}

func (h *Hub) broadcast(sid id.SessionID, f Frame) {
	payload, err := sonic.Marshal(f)
	if err != nil {
		h.logger.Error("frame encode failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[sid] {
		select {
		case sub <- payload:
		default:
			// Slow consumer: detach instead of blocking the stream.
			delete(h.subs[sid], sub)
			close(sub)
		}
	}
}

// attach registers a connection's queue and replays the session's
// backlog as the first frame, before any live output.
func (h *Hub) attach(sid id.SessionID) subscriber {
	sub := make(subscriber, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	if replay := h.backlog[sid]; len(replay) > 0 {
		payload, err := sonic.Marshal(Frame{
			Type: "output",
			Data: base64.StdEncoding.EncodeToString(replay),
		})
		if err == nil {
			sub <- payload
		}
	}

	if h.subs[sid] == nil {
		h.subs[sid] = make(map[subscriber]struct{})
	}
	h.subs[sid][sub] = struct{}{}
	return sub
}

func (h *Hub) detach(sid id.SessionID, sub subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[sid]; ok {
		if _, live := set[sub]; live {
			delete(set, sub)
			close(sub)
		}
		if len(set) == 0 {
			delete(h.subs, sid)
		}
	}
}
