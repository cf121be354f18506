package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/wzlab/deal_go_server/config"
	"github.com/wzlab/deal_go_server/internal/database"
	"github.com/wzlab/deal_go_server/internal/pkg/cron"
	"github.com/wzlab/deal_go_server/internal/pkg/email"
	"github.com/wzlab/deal_go_server/internal/pkg/queue"
	"github.com/wzlab/deal_go_server/internal/repository"
)

var (
	requeueJobs = flag.Bool("requeue-jobs", true, "Requeue orphaned processing jobs")
	sweepDeals  = flag.Bool("sweep-deals", true, "Send reminders for stale deals")
)

func main() {
	flag.Parse()

	log.Println("Starting maintenance task...")

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 连接数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}

	// 连接 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}

	dealRepo := repository.NewDealRepository(db)
	jobRepo := repository.NewJobRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	jobQueue := queue.NewQueue(rdb, cfg.Queue.JobQueue)

	var emailService *email.Service
	if cfg.Email.SMTPHost != "" {
		emailService = email.NewService(&cfg.Email)
	}

	svc := cron.NewService(dealRepo, jobRepo, auditRepo, emailService, jobQueue, cfg.Cron.StaleDealDays)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if *requeueJobs {
		n := svc.RequeueOrphanedJobs(ctx)
		log.Printf("Requeued %d orphaned jobs", n)
	}

	if *sweepDeals {
		n := svc.SweepStaleDeals()
		log.Printf("Reminded %d stale deals", n)
	}

	log.Println("Maintenance task completed")
}
