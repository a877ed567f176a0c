package routes

import (
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/config"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/handler"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/middleware"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Setup configures all API routes. redisClient may be nil.
func Setup(
	router *gin.Engine,
	accountHandler *handler.AccountHandler,
	friendHandler *handler.FriendHandler,
	conversationHandler *handler.ConversationHandler,
	wsHandler *handler.WSHandler,
	jwtManager *jwt.Manager,
	redisClient *redis.Client,
	cfg *config.Config,
) {
	auth := middleware.JWTAuth(jwtManager)
	api := router.Group("/api/v1", auth)

	// 계정
	accounts := api.Group("/accounts")
	accounts.GET("/me", accountHandler.GetMe)                      // 첫 로그인 시 생성
	accounts.PATCH("/me/settings", accountHandler.UpdateSettings) // 공개 범위, 닉네임

	// 친구
	friends := api.Group("/friends")
	friends.GET("", friendHandler.ListFriends)
	friends.GET("/requests", friendHandler.ListRequests)
	friends.GET("/:user_id/status", friendHandler.Status)
	friends.POST("/:user_id/request", friendHandler.SendRequest)
	friends.POST("/:user_id/accept", friendHandler.AcceptRequest)
	friends.POST("/:user_id/decline", friendHandler.DeclineRequest) // 거절 또는 보낸 요청 취소
	friends.DELETE("/:user_id", friendHandler.RemoveFriend)

	// 대화
	conversations := api.Group("/conversations")
	conversations.GET("", conversationHandler.ListConversations)
	conversations.POST("/with/:user_id", conversationHandler.EnsureConversation)
	conversations.GET("/can-message/:user_id", conversationHandler.CanMessage)
	conversations.GET("/:id/messages", conversationHandler.ListMessages)
	conversations.POST("/:id/messages",
		middleware.RateLimitPerUser(redisClient, cfg.RateLimit.MessagesPerMinute),
		conversationHandler.SendMessage,
	)

	// 실시간 대화 목록
	if wsHandler != nil {
		router.GET("/ws/conversations", auth, wsHandler.Connect)
	}
}
