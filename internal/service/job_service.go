package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"gorm.io/gorm"

	"github.com/wzlab/deal_go_server/internal/model"
	"github.com/wzlab/deal_go_server/internal/pkg/queue"
	"github.com/wzlab/deal_go_server/internal/repository"
)

var (
	ErrJobNotFound   = errors.New("任务不存在")
	ErrJobPermission = errors.New("无权查看此任务")
)

// JobService 异步任务派发。先落库再入队：任务记录是轮询凭据，
// 队列消息丢失时可以通过 cleanup 扫描重新入队
type JobService struct {
	jobRepo  *repository.JobRepository
	jobQueue *queue.Queue
}

func NewJobService(jobRepo *repository.JobRepository, jobQueue *queue.Queue) *JobService {
	return &JobService{
		jobRepo:  jobRepo,
		jobQueue: jobQueue,
	}
}

// Dispatch 创建任务记录并投递队列消息，返回任务 ID 供轮询。
// msg.JobID 由本方法填充，调用方无需设置
func (s *JobService) Dispatch(ctx context.Context, msg *queue.JobMessage) (int64, error) {
	job := &model.JobRecord{
		DealID:  msg.DealID,
		UserID:  msg.UserID,
		JobType: msg.JobType,
		Status:  model.JobStatusPending,
	}
	if err := s.jobRepo.Create(job); err != nil {
		return 0, err
	}

	msg.JobID = job.ID
	if payload, err := json.Marshal(msg); err == nil {
		job.Payload = string(payload)
		if err := s.jobRepo.Update(job); err != nil {
			return 0, err
		}
	}

	if err := s.jobQueue.Push(ctx, msg); err != nil {
		// 入队失败时任务记录保留为 failed，轮询方能看到明确的终态
		if markErr := s.jobRepo.MarkFailed(job.ID, "failed to enqueue job"); markErr != nil {
			log.Printf("Job %d: failed to mark enqueue failure: %v", job.ID, markErr)
		}
		return 0, err
	}

	return job.ID, nil
}

// Get 查询任务状态
func (s *JobService) Get(userID, jobID int64) (*model.JobRecord, error) {
	job, err := s.jobRepo.GetByID(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	if job.UserID != userID {
		return nil, ErrJobPermission
	}

	return job, nil
}

// ListByDeal 某个交易最近的任务记录
func (s *JobService) ListByDeal(dealID int64, limit int) ([]*model.JobRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.jobRepo.ListByDeal(dealID, limit)
}
