package handler

import (
	"net/http"

	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/common"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/middleware"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/service"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/pkg/ginutil"
	"github.com/gin-gonic/gin"
)

// FriendHandler handles friend graph HTTP requests
type FriendHandler struct {
	service service.FriendService
}

// NewFriendHandler creates a new FriendHandler
func NewFriendHandler(service service.FriendService) *FriendHandler {
	return &FriendHandler{service: service}
}

// pair extracts the caller and the :user_id target; it writes the error
// response and returns ok=false when either is missing
func pair(c *gin.Context) (userID, targetID string, ok bool) {
	userID = middleware.GetUserID(c)
	if userID == "" {
		common.ErrorResponse(c, http.StatusUnauthorized, "로그인이 필요합니다", nil)
		return "", "", false
	}
	targetID, ok = ginutil.ParamID(c, "user_id")
	if !ok {
		common.ErrorResponse(c, http.StatusBadRequest, "대상 회원 ID가 필요합니다", nil)
		return "", "", false
	}
	return userID, targetID, true
}

// ListFriends handles GET /friends
func (h *FriendHandler) ListFriends(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		common.ErrorResponse(c, http.StatusUnauthorized, "로그인이 필요합니다", nil)
		return
	}

	friends, err := h.service.ListFriends(c.Request.Context(), userID)
	if err != nil {
		common.HandleServiceError(c, err, "친구 목록 조회 실패")
		return
	}

	common.SuccessResponse(c, friends, &common.Meta{Total: int64(len(friends))})
}

// ListRequests handles GET /friends/requests
func (h *FriendHandler) ListRequests(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		common.ErrorResponse(c, http.StatusUnauthorized, "로그인이 필요합니다", nil)
		return
	}

	requests, err := h.service.ListRequests(c.Request.Context(), userID)
	if err != nil {
		common.HandleServiceError(c, err, "친구 요청 목록 조회 실패")
		return
	}

	common.SuccessResponse(c, requests, nil)
}

// Status handles GET /friends/:user_id/status
func (h *FriendHandler) Status(c *gin.Context) {
	userID, targetID, ok := pair(c)
	if !ok {
		return
	}

	status, err := h.service.Status(c.Request.Context(), userID, targetID)
	if err != nil {
		common.HandleServiceError(c, err, "친구 상태 조회 실패")
		return
	}

	common.SuccessResponse(c, status, nil)
}

// SendRequest handles POST /friends/:user_id/request
func (h *FriendHandler) SendRequest(c *gin.Context) {
	userID, targetID, ok := pair(c)
	if !ok {
		return
	}

	if err := h.service.SendRequest(c.Request.Context(), userID, targetID); err != nil {
		common.HandleServiceError(c, err, "친구 요청 실패")
		return
	}

	h.respondStatus(c, userID, targetID)
}

// AcceptRequest handles POST /friends/:user_id/accept
func (h *FriendHandler) AcceptRequest(c *gin.Context) {
	userID, targetID, ok := pair(c)
	if !ok {
		return
	}

	if err := h.service.AcceptRequest(c.Request.Context(), userID, targetID); err != nil {
		common.HandleServiceError(c, err, "친구 요청 수락 실패")
		return
	}

	h.respondStatus(c, userID, targetID)
}

// DeclineRequest handles POST /friends/:user_id/decline
func (h *FriendHandler) DeclineRequest(c *gin.Context) {
	userID, targetID, ok := pair(c)
	if !ok {
		return
	}

	if err := h.service.DeclineRequest(c.Request.Context(), userID, targetID); err != nil {
		common.HandleServiceError(c, err, "친구 요청 거절 실패")
		return
	}

	c.Status(http.StatusNoContent)
}

// RemoveFriend handles DELETE /friends/:user_id
func (h *FriendHandler) RemoveFriend(c *gin.Context) {
	userID, targetID, ok := pair(c)
	if !ok {
		return
	}

	if err := h.service.RemoveFriend(c.Request.Context(), userID, targetID); err != nil {
		common.HandleServiceError(c, err, "친구 삭제 실패")
		return
	}

	c.Status(http.StatusNoContent)
}

// respondStatus answers a successful mutation with the resulting status
func (h *FriendHandler) respondStatus(c *gin.Context, userID, targetID string) {
	status, err := h.service.Status(c.Request.Context(), userID, targetID)
	if err != nil {
		common.HandleServiceError(c, err, "친구 상태 조회 실패")
		return
	}
	common.SuccessResponse(c, status, nil)
}
