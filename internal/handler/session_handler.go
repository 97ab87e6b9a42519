package handler

import (
	"net/http"

	"Med_Community/internal/projection"

	"github.com/gin-gonic/gin"
)

// SessionHandler 返回当前会话视图的快照
type SessionHandler struct {
	sessions *projection.Registry
}

func NewSessionHandler(sessions *projection.Registry) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func (h *SessionHandler) Snapshot(c *gin.Context) {
	id := identity(c)
	if id == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHENTICATED", "msg": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, h.sessions.Get(id.UserID).Snapshot())
}
