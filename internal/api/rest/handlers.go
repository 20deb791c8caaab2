// Package rest exposes the session manager's command surface over
// HTTP: spawn, write, resize, interrupt, descendant kill, session
// kill, and shell discovery.
package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/termstack/termd/internal/infrastructure/logging"
	"github.com/termstack/termd/internal/session"
	"github.com/termstack/termd/internal/shared/id"
)

// Handler serves the session endpoints.
type Handler struct {
	mgr    *session.Manager
	logger *logging.Logger
}

// NewHandler creates the REST handler set.
func NewHandler(mgr *session.Manager, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{mgr: mgr, logger: logger.Named("rest")}
}

// Register attaches all routes to the router.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.GET("/shells", h.ListShells)

	r.POST("/sessions", h.Spawn)
	r.GET("/sessions", h.List)
	r.GET("/sessions/:id", h.Get)
	r.POST("/sessions/:id/write", h.Write)
	r.POST("/sessions/:id/resize", h.Resize)
	r.POST("/sessions/:id/interrupt", h.Interrupt)
	r.POST("/sessions/:id/kill-descendants", h.KillDescendants)
	r.POST("/sessions/:id/kill", h.Kill)
	r.DELETE("/sessions/:id", h.Remove)
}

// Health reports daemon liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": len(h.mgr.List()),
	})
}

// ListShells reports every shell kind with its availability.
func (h *Handler) ListShells(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"shells": session.ListShells()})
}

type spawnRequest struct {
	Kind    string `json:"kind" binding:"required"`
	Dir     string `json:"dir"`
	Rows    int    `json:"rows"`
	Cols    int    `json:"cols"`
	Command string `json:"command"`
}

// Spawn creates a session. The id is returned before any output is
// consumed, so a client that attaches afterwards still sees every
// byte.
func (h *Handler) Spawn(c *gin.Context) {
	var req spawnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sid, err := h.mgr.Spawn(session.SpawnParams{
		Kind:    session.ShellKind(req.Kind),
		Dir:     req.Dir,
		Rows:    req.Rows,
		Cols:    req.Cols,
		Command: req.Command,
	})
	if err != nil {
		h.logger.Warn("spawn rejected", zap.String("kind", req.Kind), zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": sid})
}

// List snapshots every session.
func (h *Handler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.mgr.List()})
}

// Get snapshots one session.
func (h *Handler) Get(c *gin.Context) {
	info, err := h.mgr.Get(sessionID(c))
	if err != nil {
		h.notFoundOr(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

type writeRequest struct {
	Data string `json:"data" binding:"required"`
}

// Write delivers bytes to the session's input. A dead session is a
// conflict, not a daemon error.
func (h *Handler) Write(c *gin.Context) {
	var req writeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.mgr.Write(sessionID(c), []byte(req.Data)); err != nil {
		h.notFoundOr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type resizeRequest struct {
	Rows int `json:"rows" binding:"required"`
	Cols int `json:"cols" binding:"required"`
}

// Resize applies a new terminal size.
func (h *Handler) Resize(c *gin.Context) {
	var req resizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.mgr.Resize(sessionID(c), req.Rows, req.Cols); err != nil {
		h.notFoundOr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Interrupt applies the session's interrupt debounce policy.
func (h *Handler) Interrupt(c *gin.Context) {
	if err := h.mgr.Interrupt(sessionID(c)); err != nil {
		h.notFoundOr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// KillDescendants terminates everything below the session's shell.
func (h *Handler) KillDescendants(c *gin.Context) {
	if err := h.mgr.KillDescendants(sessionID(c)); err != nil {
		h.notFoundOr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Kill terminates the session's root process. No respawn follows.
func (h *Handler) Kill(c *gin.Context) {
	if err := h.mgr.KillSession(sessionID(c)); err != nil {
		h.notFoundOr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Remove kills the session and drops it from the table.
func (h *Handler) Remove(c *gin.Context) {
	if err := h.mgr.Remove(sessionID(c)); err != nil {
		h.notFoundOr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func sessionID(c *gin.Context) id.SessionID {
	return id.SessionID(c.Param("id"))
}

func (h *Handler) notFoundOr(c *gin.Context, err error) {
	if errors.Is(err, session.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
}
