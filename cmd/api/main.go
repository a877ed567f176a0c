package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/config"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/database"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/feed"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/handler"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/middleware"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/migration"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/repository"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/routes"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/service"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/ws"
	pkgcache "github.com/SwanHacks2025/2025-swan-hacks-sub000/pkg/cache"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/pkg/jwt"
	pkglogger "github.com/SwanHacks2025/2025-swan-hacks-sub000/pkg/logger"
	pkgredis "github.com/SwanHacks2025/2025-swan-hacks-sub000/pkg/redis"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	gormlogger "gorm.io/gorm/logger"
)

// getConfigPath returns config file path based on APP_ENV environment variable
func getConfigPath() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("configs/config.%s.yaml", env)
}

func main() {
	dotenvFiles, err := config.LoadDotEnv()
	if err != nil {
		log.Printf("Warning: %v", err)
	}

	// 로거 초기화
	pkglogger.Init()
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	pkglogger.InitStructured(env)
	pkglogger.Info("APP_ENV=%s, loaded env files: %v", env, dotenvFiles)

	// 설정 로드
	configPath := getConfigPath()
	pkglogger.Info("Loading config from: %s", configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	config.LogResolved(cfg)
	gin.SetMode(cfg.Server.Mode)

	// DB 연결. 소셜 그래프는 DB 없이 동작할 수 없음
	logLevel := gormlogger.Warn
	if cfg.Server.Mode == gin.DebugMode {
		logLevel = gormlogger.Info
	}
	db, err := database.Open(cfg.Database, logLevel)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	pkglogger.Info("Connected to %s", cfg.Database.Driver)
	if err := migration.Run(db, cfg.Social.OrganizerIDs); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	// Redis 연결 (선택)
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
		)
		if err != nil {
			pkglogger.Info("Warning: Failed to connect to Redis: %v (continuing without Redis)", err)
			redisClient = nil
		} else {
			pkglogger.Info("Connected to Redis")
		}
	}

	// 마지막 정상 대화 목록 캐시
	var cacheService pkgcache.Service
	if redisClient != nil {
		cacheService = pkgcache.NewService(redisClient)
		pkglogger.Info("Cache service initialized")
	}

	// 변경 피드. Redis가 있으면 인스턴스 간에 공유
	var broker feed.Broker
	if redisClient != nil {
		redisBroker := feed.NewRedisBroker(redisClient)
		go redisBroker.Run()
		defer redisBroker.Stop()
		broker = redisBroker
	} else {
		broker = feed.NewLocalBroker()
	}

	// WebSocket Hub
	wsHub := ws.NewHub(redisClient)
	go wsHub.Run()
	defer wsHub.Stop()

	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.ExpiresIn)

	// Repositories
	accountRepo := repository.NewAccountRepository(db, broker)
	conversationRepo := repository.NewConversationRepository(db, broker)
	messageRepo := repository.NewMessageRepository(db)

	// Services
	accessPolicy := service.NewAccessPolicy(messageRepo)
	accountService := service.NewAccountService(accountRepo, cfg.Social)
	friendService := service.NewFriendService(accountRepo, wsHub)
	conversationService := service.NewConversationService(
		accountRepo, conversationRepo, messageRepo, accessPolicy, cacheService, cfg.Social,
	)
	messageService := service.NewMessageService(accountRepo, conversationRepo, messageRepo, accessPolicy, wsHub, cfg.Social)
	liveSync := service.NewLiveSync(conversationService, broker)

	// Handlers
	accountHandler := handler.NewAccountHandler(accountService)
	friendHandler := handler.NewFriendHandler(friendService)
	conversationHandler := handler.NewConversationHandler(conversationService, messageService)
	wsHandler := handler.NewWSHandler(wsHub, liveSync, cfg.CORS.Origins())

	// Gin 라우터 생성
	router := gin.Default()

	// CORS 설정
	allowOrigins := cfg.CORS.Origins()
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Remaining"},
		MaxAge:           86400,
	}))

	// Middleware
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestLogger())

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "social-backend",
			"time":    time.Now().Unix(),
		})
	})

	routes.Setup(router, accountHandler, friendHandler, conversationHandler, wsHandler, jwtManager, redisClient, cfg)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		pkglogger.Info("Server starting on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	pkglogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		pkglogger.Info("Server forced to shutdown: %v", err)
	}

	if redisClient != nil {
		redisClient.Close() //nolint:errcheck
	}
	pkglogger.Info("Server exited")
}
