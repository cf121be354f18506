package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wzlab/deal_go_server/config"
	"github.com/wzlab/deal_go_server/internal/database"
	"github.com/wzlab/deal_go_server/internal/pkg/cron"
	"github.com/wzlab/deal_go_server/internal/pkg/email"
	"github.com/wzlab/deal_go_server/internal/pkg/llm"
	"github.com/wzlab/deal_go_server/internal/pkg/oss"
	"github.com/wzlab/deal_go_server/internal/pkg/pubsub"
	"github.com/wzlab/deal_go_server/internal/pkg/queue"
	"github.com/wzlab/deal_go_server/internal/repository"
	"github.com/wzlab/deal_go_server/internal/worker"
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

	// 初始化 Email（可选）
	var emailService *email.Service
	if cfg.Email.SMTPHost != "" {
		emailService = email.NewService(&cfg.Email)
		log.Println("Email service initialized")
	}

	// 初始化 Queue 和 Pub/Sub
	jobQueue := queue.NewQueue(rdb, cfg.Queue.JobQueue)
	publisher := pubsub.NewPublisher(rdb)

	// 初始化 LLM 客户端
	llmClient := llm.NewClient(cfg.LLM)
	if cfg.LLM.MockMode {
		log.Println("LLM client running in mock mode")
	}

	// 初始化 Repository
	dealRepo := repository.NewDealRepository(db)
	versionRepo := repository.NewVersionRepository(db)
	crRepo := repository.NewChangeRequestRepository(db)
	jobRepo := repository.NewJobRepository(db)
	letterRepo := repository.NewOfferLetterRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// 创建任务处理器
	processor := worker.NewProcessor(
		jobRepo,
		dealRepo,
		versionRepo,
		crRepo,
		letterRepo,
		auditRepo,
		llmClient,
		ossClient,
		publisher,
		emailService,
		cfg,
	)

	// 启动定时任务（闲置交易提醒 + 孤儿任务重新入队）
	cronService := cron.NewService(dealRepo, jobRepo, auditRepo, emailService, jobQueue, cfg.Cron.StaleDealDays)
	cronService.Start()
	defer cronService.Stop()

	// 创建 context 用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	log.Printf("Worker started, max workers: %d", cfg.Queue.MaxWorkers)

	// 启动 worker 循环
	for i := 0; i < cfg.Queue.MaxWorkers; i++ {
		go func(workerID int) {
			for {
				select {
				case <-ctx.Done():
					log.Printf("Worker %d shutting down", workerID)
					return
				default:
					// 从队列获取任务
					msg, err := jobQueue.Pop(ctx, 5*time.Second)
					if err != nil {
						if ctx.Err() != nil {
							return
						}
						log.Printf("Worker %d: failed to pop job: %v", workerID, err)
						continue
					}

					if msg == nil {
						continue // 超时，继续等待
					}

					log.Printf("Worker %d: processing job %d (%s)", workerID, msg.JobID, msg.JobType)
					if err := processor.Process(ctx, msg); err != nil {
						log.Printf("Worker %d: job %d failed: %v", workerID, msg.JobID, err)
					}
				}
			}
		}(i)
	}

	// 等待 context 取消
	<-ctx.Done()
	log.Println("Worker shutdown complete")
}
