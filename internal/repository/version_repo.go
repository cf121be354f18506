package repository

import (
	"gorm.io/gorm"

	"github.com/wzlab/deal_go_server/internal/model"
)

type VersionRepository struct {
	db *gorm.DB
}

func NewVersionRepository(db *gorm.DB) *VersionRepository {
	return &VersionRepository{db: db}
}

// Create 在事务内分配下一个版本号并插入。版本号在同一 deal 内
// 从 0 开始连续递增，分配和插入放在一个事务里保证不出现空洞
func (r *VersionRepository) Create(version *model.ContractVersion) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var next int
		err := tx.Model(&model.ContractVersion{}).
			Where("deal_id = ?", version.DealID).
			Select("COALESCE(MAX(version_number), -1) + 1").
			Scan(&next).Error
		if err != nil {
			return err
		}

		version.VersionNumber = next
		return tx.Create(version).Error
	})
}

func (r *VersionRepository) GetByID(id int64) (*model.ContractVersion, error) {
	var version model.ContractVersion
	err := r.db.Where("id = ?", id).First(&version).Error
	if err != nil {
		return nil, err
	}
	return &version, nil
}

// GetLatest 获取某个交易的最新版本
func (r *VersionRepository) GetLatest(dealID int64) (*model.ContractVersion, error) {
	var version model.ContractVersion
	err := r.db.Where("deal_id = ?", dealID).
		Order("version_number DESC").
		First(&version).Error
	if err != nil {
		return nil, err
	}
	return &version, nil
}

// GetByNumber 按版本号获取
func (r *VersionRepository) GetByNumber(dealID int64, versionNumber int) (*model.ContractVersion, error) {
	var version model.ContractVersion
	err := r.db.Where("deal_id = ? AND version_number = ?", dealID, versionNumber).
		First(&version).Error
	if err != nil {
		return nil, err
	}
	return &version, nil
}

// ListByDeal 按版本号升序返回某个交易的全部版本
func (r *VersionRepository) ListByDeal(dealID int64) ([]*model.ContractVersion, error) {
	var versions []*model.ContractVersion
	err := r.db.Where("deal_id = ?", dealID).
		Order("version_number ASC").
		Find(&versions).Error
	return versions, err
}

// UpdateDocumentURL 回写归档文档地址
func (r *VersionRepository) UpdateDocumentURL(id int64, ossURL string) error {
	return r.db.Model(&model.ContractVersion{}).Where("id = ?", id).
		Update("document_oss_url", ossURL).Error
}

// Count 某个交易的版本数
func (r *VersionRepository) Count(dealID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.ContractVersion{}).
		Where("deal_id = ?", dealID).
		Count(&count).Error
	return count, err
}

// UpdateParsedContent 解析任务回填首版本的提取结果。版本文本不可变，
// 这里只允许补充解析产物和 OSS 快照地址
func (r *VersionRepository) UpdateParsedContent(id int64, fields model.JSONMap, clauses model.ClauseList, contractType, ossURL string) error {
	updates := map[string]interface{}{
		"extracted_fields": fields,
		"clause_tags":      clauses,
		"contract_type":    contractType,
	}
	if ossURL != "" {
		updates["document_oss_url"] = ossURL
	}
	return r.db.Model(&model.ContractVersion{}).Where("id = ?", id).Updates(updates).Error
}
