package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/wzlab/deal_go_server/internal/model"
)

type DealRepository struct {
	db *gorm.DB
}

func NewDealRepository(db *gorm.DB) *DealRepository {
	return &DealRepository{db: db}
}

func (r *DealRepository) Create(deal *model.Deal) error {
	return r.db.Create(deal).Error
}

func (r *DealRepository) GetByID(id int64) (*model.Deal, error) {
	var deal model.Deal
	err := r.db.Where("id = ?", id).First(&deal).Error
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

func (r *DealRepository) Update(deal *model.Deal) error {
	return r.db.Save(deal).Error
}

func (r *DealRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.Deal{}).Where("id = ?", id).Updates(fields).Error
}

func (r *DealRepository) UpdateState(id int64, state string) error {
	return r.db.Model(&model.Deal{}).Where("id = ?", id).Update("current_state", state).Error
}

// ListByUserID 获取用户的交易列表
func (r *DealRepository) ListByUserID(userID int64, page, pageSize int, search, state string) ([]*model.Deal, int64, error) {
	var deals []*model.Deal
	var total int64

	query := r.db.Model(&model.Deal{}).Where("created_by = ?", userID)

	if search != "" {
		query = query.Where("title LIKE ? OR address LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if state != "" {
		query = query.Where("current_state = ?", state)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("updated_at DESC").Offset(offset).Limit(pageSize).Find(&deals).Error; err != nil {
		return nil, 0, err
	}

	return deals, total, nil
}

// ListStale 获取指定时间之前就没有更新、且尚未成交的交易
func (r *DealRepository) ListStale(before time.Time, limit int) ([]*model.Deal, error) {
	var deals []*model.Deal
	err := r.db.Where("updated_at < ? AND current_state NOT IN ?", before,
		[]string{model.StateDraft, model.StateAccepted}).
		Order("updated_at ASC").
		Limit(limit).
		Find(&deals).Error
	return deals, err
}
