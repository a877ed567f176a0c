package handler

import (
	"net/http"

	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/common"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/domain"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/middleware"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/service"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/pkg/ginutil"
	"github.com/gin-gonic/gin"
)

// ConversationHandler handles conversation and message HTTP requests
type ConversationHandler struct {
	conversations service.ConversationService
	messages      service.MessageService
}

// NewConversationHandler creates a new ConversationHandler
func NewConversationHandler(conversations service.ConversationService, messages service.MessageService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, messages: messages}
}

// ListConversations handles GET /conversations
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		common.ErrorResponse(c, http.StatusUnauthorized, "로그인이 필요합니다", nil)
		return
	}

	view, err := h.conversations.BuildView(c.Request.Context(), userID)
	if err != nil {
		common.HandleServiceError(c, err, "대화 목록 조회 실패")
		return
	}

	common.SuccessResponse(c, view, &common.Meta{Total: int64(len(view.Conversations))})
}

// EnsureConversation handles POST /conversations/with/:user_id
func (h *ConversationHandler) EnsureConversation(c *gin.Context) {
	userID, targetID, ok := pair(c)
	if !ok {
		return
	}

	summary, err := h.conversations.EnsureConversation(c.Request.Context(), userID, targetID)
	if err != nil {
		common.HandleServiceError(c, err, "대화방 생성 실패")
		return
	}

	common.SuccessResponse(c, summary, nil)
}

// CanMessage handles GET /conversations/can-message/:user_id
func (h *ConversationHandler) CanMessage(c *gin.Context) {
	userID, targetID, ok := pair(c)
	if !ok {
		return
	}

	allowed, err := h.conversations.CanMessage(c.Request.Context(), userID, targetID)
	if err != nil {
		common.HandleServiceError(c, err, "메시지 권한 확인 실패")
		return
	}

	common.SuccessResponse(c, gin.H{
		"user_id":         targetID,
		"can_message":     allowed,
		"conversation_id": domain.ChatID(userID, targetID),
	}, nil)
}

// ListMessages handles GET /conversations/:id/messages
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		common.ErrorResponse(c, http.StatusUnauthorized, "로그인이 필요합니다", nil)
		return
	}

	limit := ginutil.QueryInt(c, "limit", 0)

	messages, err := h.conversations.Messages(c.Request.Context(), userID, c.Param("id"), limit)
	if err != nil {
		common.HandleServiceError(c, err, "메시지 조회 실패")
		return
	}

	common.SuccessResponse(c, messages, &common.Meta{Limit: limit, Total: int64(len(messages))})
}

// SendMessage handles POST /conversations/:id/messages
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		common.ErrorResponse(c, http.StatusUnauthorized, "로그인이 필요합니다", nil)
		return
	}

	var req domain.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "메시지 내용을 입력해주세요", err)
		return
	}

	msg, err := h.messages.SendMessage(c.Request.Context(), userID, c.Param("id"), req.Text)
	if err != nil {
		common.HandleServiceError(c, err, "메시지 전송 실패")
		return
	}

	c.JSON(http.StatusCreated, common.APIResponse{Data: msg})
}
