package service

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/wzlab/deal_go_server/internal/model"
	"github.com/wzlab/deal_go_server/internal/model/dto"
	"github.com/wzlab/deal_go_server/internal/pkg/queue"
	"github.com/wzlab/deal_go_server/internal/repository"
)

var ErrLetterNotFound = errors.New("报价函不存在")

type OfferLetterService struct {
	letterRepo  *repository.OfferLetterRepository
	dealService *DealService
	jobService  *JobService
}

func NewOfferLetterService(
	letterRepo *repository.OfferLetterRepository,
	dealService *DealService,
	jobService *JobService,
) *OfferLetterService {
	return &OfferLetterService{
		letterRepo:  letterRepo,
		dealService: dealService,
		jobService:  jobService,
	}
}

// Generate 创建报价函草稿并派发生成任务，正文由 worker 异步填充
func (s *OfferLetterService) Generate(ctx context.Context, userID, dealID int64, req *dto.GenerateOfferLetterRequest) (*dto.DispatchResponse, error) {
	if _, err := s.dealService.getOwnedDeal(userID, dealID); err != nil {
		return nil, err
	}

	letter := &model.OfferLetter{
		DealID:     dealID,
		UserPrompt: req.Prompt,
		Status:     "draft",
		CreatedBy:  userID,
	}
	if err := s.letterRepo.Create(letter); err != nil {
		return nil, err
	}

	details, err := json.Marshal(map[string]interface{}{"letter_id": letter.ID})
	if err != nil {
		return nil, err
	}

	jobID, err := s.jobService.Dispatch(ctx, &queue.JobMessage{
		DealID:      dealID,
		UserID:      userID,
		JobType:     model.JobGenerateOfferLetter,
		Tone:        req.Tone,
		DealDetails: details,
	})
	if err != nil {
		return nil, err
	}

	return &dto.DispatchResponse{JobID: jobID, Status: model.JobStatusPending}, nil
}

// List 按创建时间倒序列出交易的报价函
func (s *OfferLetterService) List(userID, dealID int64) ([]*model.OfferLetter, error) {
	if _, err := s.dealService.getOwnedDeal(userID, dealID); err != nil {
		return nil, err
	}
	return s.letterRepo.ListByDeal(dealID)
}

// Get 获取报价函详情
func (s *OfferLetterService) Get(userID, dealID, letterID int64) (*model.OfferLetter, error) {
	if _, err := s.dealService.getOwnedDeal(userID, dealID); err != nil {
		return nil, err
	}

	letter, err := s.letterRepo.GetByID(letterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLetterNotFound
		}
		return nil, err
	}
	if letter.DealID != dealID {
		return nil, ErrLetterNotFound
	}
	return letter, nil
}
