package repository

import (
	"gorm.io/gorm"

	"github.com/wzlab/deal_go_server/internal/model"
)

type ChangeRequestRepository struct {
	db *gorm.DB
}

func NewChangeRequestRepository(db *gorm.DB) *ChangeRequestRepository {
	return &ChangeRequestRepository{db: db}
}

func (r *ChangeRequestRepository) Create(cr *model.ChangeRequest) error {
	return r.db.Create(cr).Error
}

func (r *ChangeRequestRepository) GetByID(id int64) (*model.ChangeRequest, error) {
	var cr model.ChangeRequest
	err := r.db.Where("id = ?", id).First(&cr).Error
	if err != nil {
		return nil, err
	}
	return &cr, nil
}

// GetByIDInDeal 带 deal 范围校验的查询，防止跨交易访问
func (r *ChangeRequestRepository) GetByIDInDeal(id, dealID int64) (*model.ChangeRequest, error) {
	var cr model.ChangeRequest
	err := r.db.Where("id = ? AND deal_id = ?", id, dealID).First(&cr).Error
	if err != nil {
		return nil, err
	}
	return &cr, nil
}

func (r *ChangeRequestRepository) Update(cr *model.ChangeRequest) error {
	return r.db.Save(cr).Error
}

func (r *ChangeRequestRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.ChangeRequest{}).Where("id = ?", id).Updates(fields).Error
}

// ListByDeal 按创建时间倒序返回某个交易的变更请求
func (r *ChangeRequestRepository) ListByDeal(dealID int64, status string) ([]*model.ChangeRequest, error) {
	var crs []*model.ChangeRequest

	query := r.db.Where("deal_id = ?", dealID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	err := query.Order("created_at DESC").Find(&crs).Error
	return crs, err
}

// ListOpenByBatch 获取某个批次中仍处于 open 状态的变更请求
func (r *ChangeRequestRepository) ListOpenByBatch(dealID int64, batchID string) ([]*model.ChangeRequest, error) {
	var crs []*model.ChangeRequest
	err := r.db.Where("deal_id = ? AND batch_id = ? AND status = ?", dealID, batchID, model.CRStatusOpen).
		Order("id ASC").
		Find(&crs).Error
	return crs, err
}

// CountOpen 某个交易当前 open 状态的变更请求数
func (r *ChangeRequestRepository) CountOpen(dealID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.ChangeRequest{}).
		Where("deal_id = ? AND status = ?", dealID, model.CRStatusOpen).
		Count(&count).Error
	return count, err
}
