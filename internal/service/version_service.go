package service

import (
	"errors"

	"gorm.io/gorm"

	"github.com/wzlab/deal_go_server/internal/model"
	"github.com/wzlab/deal_go_server/internal/model/dto"
	"github.com/wzlab/deal_go_server/internal/pkg/diffengine"
	"github.com/wzlab/deal_go_server/internal/repository"
)

var (
	ErrVersionNotFound   = errors.New("版本不存在")
	ErrNoPreviousVersion = errors.New("该版本没有更早的版本可比较")
	ErrSameVersion       = errors.New("不能与自身比较")
)

type VersionService struct {
	versionRepo *repository.VersionRepository
	dealService *DealService
}

func NewVersionService(versionRepo *repository.VersionRepository, dealService *DealService) *VersionService {
	return &VersionService{
		versionRepo: versionRepo,
		dealService: dealService,
	}
}

// List 按版本号升序列出交易的全部版本
func (s *VersionService) List(userID, dealID int64) ([]*model.ContractVersion, error) {
	if _, err := s.dealService.getOwnedDeal(userID, dealID); err != nil {
		return nil, err
	}
	return s.versionRepo.ListByDeal(dealID)
}

// Get 获取版本详情
func (s *VersionService) Get(userID, dealID, versionID int64) (*model.ContractVersion, error) {
	if _, err := s.dealService.getOwnedDeal(userID, dealID); err != nil {
		return nil, err
	}
	return s.getVersionInDeal(dealID, versionID)
}

// Diff 比较两个版本。versionAID 为 0 时取 versionB 的上一个版本，
// 0 号版本没有上一个版本
func (s *VersionService) Diff(userID, dealID, versionBID, versionAID int64) (*dto.DiffResponse, error) {
	if _, err := s.dealService.getOwnedDeal(userID, dealID); err != nil {
		return nil, err
	}

	versionB, err := s.getVersionInDeal(dealID, versionBID)
	if err != nil {
		return nil, err
	}

	var versionA *model.ContractVersion
	if versionAID == 0 {
		if versionB.VersionNumber == 0 {
			return nil, ErrNoPreviousVersion
		}
		versionA, err = s.versionRepo.GetByNumber(dealID, versionB.VersionNumber-1)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNoPreviousVersion
			}
			return nil, err
		}
	} else {
		if versionAID == versionBID {
			return nil, ErrSameVersion
		}
		versionA, err = s.getVersionInDeal(dealID, versionAID)
		if err != nil {
			return nil, err
		}
	}

	lineDiff, err := diffengine.DiffText(versionA.FullText, versionB.FullText)
	if err != nil {
		return nil, err
	}

	return &dto.DiffResponse{
		VersionAID:     versionA.ID,
		VersionBID:     versionB.ID,
		VersionANumber: versionA.VersionNumber,
		VersionBNumber: versionB.VersionNumber,
		Unified:        lineDiff.Unified,
		Lines:          lineDiff.Lines,
		FieldChanges:   diffengine.DiffFields(versionA.ExtractedFields, versionB.ExtractedFields),
	}, nil
}

func (s *VersionService) getVersionInDeal(dealID, versionID int64) (*model.ContractVersion, error) {
	version, err := s.versionRepo.GetByID(versionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, err
	}
	if version.DealID != dealID {
		return nil, ErrVersionNotFound
	}
	return version, nil
}
