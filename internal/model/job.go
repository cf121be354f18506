package model

import (
	"time"
)

// 任务类型，与流水线阶段一一对应
const (
	JobParseContract           = "parse_contract"
	JobAnalyzeChangeRequest    = "analyze_change_request"
	JobGenerateVersion         = "generate_version"
	JobGenerateInitialContract = "generate_initial_contract"
	JobGenerateTimeline        = "generate_timeline"
	JobGenerateOfferLetter     = "generate_offer_letter"
)

// 任务状态
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// JobRecord 异步任务的轮询记录。创建后最多更新三次
// （processing，然后 completed 或 failed），永不删除
type JobRecord struct {
	ID           int64      `gorm:"primaryKey" json:"id"`
	DealID       int64      `gorm:"not null;index" json:"deal_id"`
	UserID       int64      `gorm:"not null;index" json:"user_id"`
	JobType      string     `gorm:"size:40;not null" json:"job_type"`
	Status       string     `gorm:"size:20;default:pending;index" json:"status"`
	Payload      string     `gorm:"type:text" json:"-"` // 队列消息原文，孤儿任务重新入队时使用
	Result       JSONMap    `gorm:"type:json" json:"result,omitempty"`
	ErrorMessage string     `gorm:"type:text" json:"error,omitempty"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

func (JobRecord) TableName() string {
	return "job_records"
}
