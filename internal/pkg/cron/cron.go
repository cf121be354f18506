package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/wzlab/deal_go_server/internal/model"
	"github.com/wzlab/deal_go_server/internal/pkg/email"
	"github.com/wzlab/deal_go_server/internal/pkg/queue"
	"github.com/wzlab/deal_go_server/internal/repository"
)

const (
	orphanAge       = 30 * time.Minute
	orphanInterval  = 10 * time.Minute
	staleBatchLimit = 200
)

type Service struct {
	dealRepo      *repository.DealRepository
	jobRepo       *repository.JobRepository
	auditRepo     *repository.AuditRepository
	emailService  *email.Service
	jobQueue      *queue.Queue
	staleDealDays int
	stopChan      chan struct{}
}

func NewService(
	dealRepo *repository.DealRepository,
	jobRepo *repository.JobRepository,
	auditRepo *repository.AuditRepository,
	emailService *email.Service,
	jobQueue *queue.Queue,
	staleDealDays int,
) *Service {
	if staleDealDays <= 0 {
		staleDealDays = 7
	}
	return &Service{
		dealRepo:      dealRepo,
		jobRepo:       jobRepo,
		auditRepo:     auditRepo,
		emailService:  emailService,
		jobQueue:      jobQueue,
		staleDealDays: staleDealDays,
		stopChan:      make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runStaleDealSweep()
	go s.runOrphanSweep()
	log.Println("Cron service started (stale deal reminders + orphaned job requeue)")
}

// Stop 停止定时任务
func (s *Service) Stop() {
	close(s.stopChan)
	log.Println("Cron service stopped")
}

// runStaleDealSweep 每日提醒一次停滞的交易
func (s *Service) runStaleDealSweep() {
	now := time.Now().UTC()
	nextMidnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	timer := time.NewTimer(nextMidnight.Sub(now))

	for {
		select {
		case <-s.stopChan:
			timer.Stop()
			return
		case <-timer.C:
			s.SweepStaleDeals()
			timer.Reset(24 * time.Hour)
		}
	}
}

// SweepStaleDeals 对超过 staleDealDays 未更新且仍在谈判中的交易发送提醒。
// 邮件失败只记日志，审计记录保证提醒行为可追溯
func (s *Service) SweepStaleDeals() int {
	before := time.Now().AddDate(0, 0, -s.staleDealDays)
	deals, err := s.dealRepo.ListStale(before, staleBatchLimit)
	if err != nil {
		log.Printf("Stale deal sweep: failed to list deals: %v", err)
		return 0
	}

	reminded := 0
	for _, deal := range deals {
		idleDays := int(time.Since(deal.UpdatedAt).Hours() / 24)
		if deal.NotifyEmail != "" && s.emailService != nil {
			if err := s.emailService.SendStaleDealReminder(deal.NotifyEmail, deal.Title, idleDays); err != nil {
				log.Printf("Stale deal sweep: failed to send reminder for deal %d: %v", deal.ID, err)
			}
		}
		if err := s.auditRepo.Record(deal.ID, nil, "stale_deal_reminder", model.JSONMap{
			"idle_days": idleDays,
			"state":     deal.CurrentState,
		}); err != nil {
			log.Printf("Stale deal sweep: failed to record audit for deal %d: %v", deal.ID, err)
			continue
		}
		reminded++
	}

	if reminded > 0 {
		log.Printf("Stale deal sweep: reminded %d deals", reminded)
	}
	return reminded
}

// runOrphanSweep 周期回收 worker 中途挂掉留下的孤儿任务
func (s *Service) runOrphanSweep() {
	ticker := time.NewTicker(orphanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.RequeueOrphanedJobs(context.Background())
		}
	}
}

// RequeueOrphanedJobs 将卡在 processing 超过 orphanAge 的任务重新入队。
// 没有留存消息原文的任务直接标记失败
func (s *Service) RequeueOrphanedJobs(ctx context.Context) int {
	jobs, err := s.jobRepo.ListOrphaned(time.Now().Add(-orphanAge))
	if err != nil {
		log.Printf("Orphan sweep: failed to list jobs: %v", err)
		return 0
	}

	requeued := 0
	for _, job := range jobs {
		if job.Payload == "" {
			if err := s.jobRepo.MarkFailed(job.ID, "worker timed out"); err != nil {
				log.Printf("Orphan sweep: failed to mark job %d: %v", job.ID, err)
			}
			continue
		}

		var msg queue.JobMessage
		if err := json.Unmarshal([]byte(job.Payload), &msg); err != nil {
			log.Printf("Orphan sweep: job %d has invalid payload: %v", job.ID, err)
			if err := s.jobRepo.MarkFailed(job.ID, "invalid job payload"); err != nil {
				log.Printf("Orphan sweep: failed to mark job %d: %v", job.ID, err)
			}
			continue
		}

		if err := s.jobQueue.Push(ctx, &msg); err != nil {
			log.Printf("Orphan sweep: failed to requeue job %d: %v", job.ID, err)
			continue
		}
		if err := s.jobRepo.Requeue(job.ID); err != nil {
			log.Printf("Orphan sweep: failed to reset job %d: %v", job.ID, err)
			continue
		}
		requeued++
	}

	if requeued > 0 {
		log.Printf("Orphan sweep: requeued %d jobs", requeued)
	}
	return requeued
}
