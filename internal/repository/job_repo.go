package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/wzlab/deal_go_server/internal/model"
)

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(job *model.JobRecord) error {
	return r.db.Create(job).Error
}

func (r *JobRepository) GetByID(id int64) (*model.JobRecord, error) {
	var job model.JobRecord
	err := r.db.Where("id = ?", id).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) Update(job *model.JobRecord) error {
	return r.db.Save(job).Error
}

// MarkProcessing 任务开始执行
func (r *JobRepository) MarkProcessing(id int64) error {
	now := time.Now()
	return r.db.Model(&model.JobRecord{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     model.JobStatusProcessing,
		"started_at": &now,
	}).Error
}

// MarkCompleted 任务成功结束，写入结果
func (r *JobRepository) MarkCompleted(id int64, result model.JSONMap) error {
	now := time.Now()
	return r.db.Model(&model.JobRecord{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":       model.JobStatusCompleted,
		"result":       result,
		"completed_at": &now,
	}).Error
}

// MarkFailed 任务失败，记录错误信息
func (r *JobRepository) MarkFailed(id int64, errMsg string) error {
	now := time.Now()
	return r.db.Model(&model.JobRecord{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":        model.JobStatusFailed,
		"error_message": errMsg,
		"completed_at":  &now,
	}).Error
}

// Requeue 孤儿任务重置回待执行状态
func (r *JobRepository) Requeue(id int64) error {
	return r.db.Model(&model.JobRecord{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     model.JobStatusPending,
		"started_at": nil,
	}).Error
}

// ListByDeal 某个交易的任务记录，倒序
func (r *JobRepository) ListByDeal(dealID int64, limit int) ([]*model.JobRecord, error) {
	var jobs []*model.JobRecord
	err := r.db.Where("deal_id = ?", dealID).
		Order("created_at DESC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

// ListOrphaned 获取卡在 processing 超过指定时间的任务（worker 崩溃残留）
func (r *JobRepository) ListOrphaned(olderThan time.Time) ([]*model.JobRecord, error) {
	var jobs []*model.JobRecord
	err := r.db.Where("status = ? AND started_at < ?", model.JobStatusProcessing, olderThan).
		Find(&jobs).Error
	return jobs, err
}
