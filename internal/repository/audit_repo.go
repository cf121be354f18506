package repository

import (
	"gorm.io/gorm"

	"github.com/wzlab/deal_go_server/internal/model"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(event *model.AuditEvent) error {
	return r.db.Create(event).Error
}

// Record 便捷写入。审计属于尽力而为，调用方通常忽略返回值
func (r *AuditRepository) Record(dealID int64, userID *int64, action string, details model.JSONMap) error {
	return r.db.Create(&model.AuditEvent{
		DealID:  dealID,
		UserID:  userID,
		Action:  action,
		Details: details,
	}).Error
}

// ListByDeal 某个交易的审计流水，倒序分页
func (r *AuditRepository) ListByDeal(dealID int64, page, pageSize int) ([]*model.AuditEvent, int64, error) {
	var events []*model.AuditEvent
	var total int64

	query := r.db.Model(&model.AuditEvent{}).Where("deal_id = ?", dealID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&events).Error; err != nil {
		return nil, 0, err
	}

	return events, total, nil
}
