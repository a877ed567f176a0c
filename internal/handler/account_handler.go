package handler

import (
	"net/http"

	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/common"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/domain"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/middleware"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

// AccountHandler handles account HTTP requests
type AccountHandler struct {
	service service.AccountService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(service service.AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

// GetMe handles GET /accounts/me. The account is created on first sign-in.
func (h *AccountHandler) GetMe(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		common.ErrorResponse(c, http.StatusUnauthorized, "로그인이 필요합니다", nil)
		return
	}

	account, err := h.service.EnsureAccount(c.Request.Context(), userID, middleware.GetNickname(c))
	if err != nil {
		common.HandleServiceError(c, err, "계정 조회 실패")
		return
	}

	common.SuccessResponse(c, account.ToResponse(), nil)
}

// UpdateSettings handles PATCH /accounts/me/settings
func (h *AccountHandler) UpdateSettings(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		common.ErrorResponse(c, http.StatusUnauthorized, "로그인이 필요합니다", nil)
		return
	}

	var req domain.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "잘못된 요청입니다", err)
		return
	}

	account, err := h.service.UpdateSettings(c.Request.Context(), userID, &req)
	if err != nil {
		common.HandleServiceError(c, err, "설정 변경 실패")
		return
	}

	common.SuccessResponse(c, account.ToResponse(), nil)
}
