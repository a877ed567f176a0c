package handler

import (
	"context"
	"net/http"

	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/common"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/domain"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/middleware"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/service"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/ws"
	pkglogger "github.com/SwanHacks2025/2025-swan-hacks-sub000/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WSHandler handles the live conversation stream
type WSHandler struct {
	hub            *ws.Hub
	liveSync       *service.LiveSync
	allowedOrigins []string
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler
func NewWSHandler(hub *ws.Hub, liveSync *service.LiveSync, allowedOrigins []string) *WSHandler {
	h := &WSHandler{
		hub:            hub,
		liveSync:       liveSync,
		allowedOrigins: allowedOrigins,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin validates the request origin against allowed origins
func (h *WSHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // Same-origin requests don't have Origin header
	}

	// If no allowed origins configured, allow all (development mode)
	if len(h.allowedOrigins) == 0 {
		return true
	}

	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || origin == allowed {
			return true
		}
	}
	return false
}

// Connect handles GET /ws/conversations. The connection receives the
// caller's conversation view on connect and after every relevant change,
// plus new_message and friend_request notifications.
func (h *WSHandler) Connect(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		common.ErrorResponse(c, http.StatusUnauthorized, "로그인이 필요합니다", nil)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		pkglogger.GetLogger().Debug().Err(err).Str("user_id", userID).Msg("websocket upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn, userID)
	h.hub.Register(client)

	// the request context ends when this handler returns
	watcher := h.liveSync.Watch(context.Background(), userID, func(view *domain.ConversationView) {
		client.Push(&ws.Event{Type: service.EventConversations, Payload: view})
	})
	client.OnClose(watcher.Close)

	go client.WritePump()
	go client.ReadPump()
}
