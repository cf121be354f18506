package main

import (
	"context"
	"fmt"
	"log"

	"github.com/wzlab/deal_go_server/config"
	"github.com/wzlab/deal_go_server/internal/api"
	"github.com/wzlab/deal_go_server/internal/api/handler"
	"github.com/wzlab/deal_go_server/internal/api/middleware"
	"github.com/wzlab/deal_go_server/internal/database"
	"github.com/wzlab/deal_go_server/internal/pkg/oss"
	"github.com/wzlab/deal_go_server/internal/pkg/pubsub"
	"github.com/wzlab/deal_go_server/internal/pkg/queue"
	"github.com/wzlab/deal_go_server/internal/pkg/ws"
	"github.com/wzlab/deal_go_server/internal/repository"
	"github.com/wzlab/deal_go_server/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Println("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// 初始化 Queue
	jobQueue := queue.NewQueue(rdb, cfg.Queue.JobQueue)

	// 初始化 OSS（可选）
	var ossClient *oss.Client
	if cfg.OSS.Endpoint != "" && cfg.OSS.AccessKeyID != "" {
		ossClient, err = oss.NewClient(&cfg.OSS)
		if err != nil {
			log.Printf("Warning: Failed to init OSS client: %v", err)
		} else {
			log.Println("OSS client initialized")
		}
	}

	// 初始化 WebSocket Hub
	wsHub := ws.NewHub()
	log.Println("WebSocket hub initialized")

	// 订阅任务进度，转发到在线客户端
	subscriber := pubsub.NewSubscriber(rdb)
	go func() {
		if err := subscriber.Subscribe(context.Background(), handler.BridgeProgress(wsHub)); err != nil {
			log.Printf("Progress subscriber stopped: %v", err)
		}
	}()

	// 初始化 Repository
	dealRepo := repository.NewDealRepository(db)
	versionRepo := repository.NewVersionRepository(db)
	crRepo := repository.NewChangeRequestRepository(db)
	jobRepo := repository.NewJobRepository(db)
	letterRepo := repository.NewOfferLetterRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// 初始化 Service
	jobService := service.NewJobService(jobRepo, jobQueue)
	dealService := service.NewDealService(dealRepo, versionRepo, auditRepo, jobService, ossClient, cfg)
	crService := service.NewChangeRequestService(crRepo, versionRepo, dealService, jobService)
	versionService := service.NewVersionService(versionRepo, dealService)
	letterService := service.NewOfferLetterService(letterRepo, dealService, jobService)

	// 初始化 Handler
	dealHandler := handler.NewDealHandler(dealService)
	crHandler := handler.NewChangeRequestHandler(crService)
	versionHandler := handler.NewVersionHandler(versionService)
	jobHandler := handler.NewJobHandler(jobService, dealService)
	letterHandler := handler.NewOfferLetterHandler(letterService)
	websocketHandler := handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret)

	// 初始化限流器
	limiter := middleware.NewSlidingWindowLimiter(cfg.RateLimit)

	// 初始化 Router
	router := api.NewRouter(
		dealHandler,
		crHandler,
		versionHandler,
		jobHandler,
		letterHandler,
		websocketHandler,
		limiter,
		cfg,
	)
	engine := router.Setup()

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
