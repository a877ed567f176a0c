package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/common"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/domain"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/pkg/jwt"
	"github.com/gin-gonic/gin"
)

const (
	ctxUserID   = "userID"
	ctxNickname = "nickname"
)

// JWTAuth JWT authentication middleware. Browsers cannot set headers on a
// WebSocket handshake, so a token query parameter is accepted as well.
func JWTAuth(jwtManager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			common.ErrorResponse(c, http.StatusUnauthorized, "로그인이 필요합니다", common.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := jwtManager.VerifyToken(tokenString)
		if err != nil {
			if errors.Is(err, jwt.ErrExpiredToken) {
				common.ErrorResponse(c, http.StatusUnauthorized, "토큰이 만료되었습니다", err)
			} else {
				common.ErrorResponse(c, http.StatusUnauthorized, "유효하지 않은 토큰입니다", err)
			}
			c.Abort()
			return
		}
		// 계정 ID는 대화방 ID의 구성 요소
		if !domain.ValidAccountID(claims.UserID) {
			common.ErrorResponse(c, http.StatusUnauthorized, "유효하지 않은 사용자 ID입니다", common.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxNickname, claims.Nickname)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		token := c.Query("token")
		return token, token != ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// GetUserID extracts user ID from context
func GetUserID(c *gin.Context) string {
	return getString(c, ctxUserID)
}

// GetNickname extracts nickname from context
func GetNickname(c *gin.Context) string {
	return getString(c, ctxNickname)
}

func getString(c *gin.Context, key string) string {
	v, exists := c.Get(key)
	if !exists {
		return ""
	}
	if str, ok := v.(string); ok {
		return str
	}
	return ""
}
