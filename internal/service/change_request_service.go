package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wzlab/deal_go_server/internal/model"
	"github.com/wzlab/deal_go_server/internal/model/dto"
	"github.com/wzlab/deal_go_server/internal/pkg/queue"
	"github.com/wzlab/deal_go_server/internal/repository"
)

var (
	ErrCRNotFound      = errors.New("变更请求不存在")
	ErrCRNotOpen       = errors.New("该变更请求已处理")
	ErrCRNotAnalyzed   = errors.New("变更请求尚未完成分析")
	ErrCREmptyRequest  = errors.New("变更请求内容不能为空")
	ErrBatchNotFound   = errors.New("批次不存在或已全部处理")
	ErrAnalysisRunning = errors.New("分析正在进行中")
)

// ChangeRequestService 变更请求的创建与处置。每次处置都会经过
// 状态机推进谈判状态，接受会触发新版本生成
type ChangeRequestService struct {
	crRepo      *repository.ChangeRequestRepository
	versionRepo *repository.VersionRepository
	dealService *DealService
	jobService  *JobService
}

func NewChangeRequestService(
	crRepo *repository.ChangeRequestRepository,
	versionRepo *repository.VersionRepository,
	dealService *DealService,
	jobService *JobService,
) *ChangeRequestService {
	return &ChangeRequestService{
		crRepo:      crRepo,
		versionRepo: versionRepo,
		dealService: dealService,
		jobService:  jobService,
	}
}

// Create 提交变更请求并派发分析任务。Items 非空时批量创建，
// 同一批次共享 batch_id；单条与批量互斥，Items 优先
func (s *ChangeRequestService) Create(ctx context.Context, userID, dealID int64, role string, req *dto.CreateChangeRequestRequest) ([]*model.ChangeRequest, error) {
	deal, err := s.dealService.getOwnedDeal(userID, dealID)
	if err != nil {
		return nil, err
	}
	if deal.CurrentState == model.StateAccepted {
		return nil, ErrDealAlreadyAccepted
	}

	texts := req.Items
	if len(texts) == 0 {
		if req.RawText == "" {
			return nil, ErrCREmptyRequest
		}
		texts = []string{req.RawText}
	}

	batchID := ""
	if len(texts) > 1 {
		batchID = uuid.New().String()
	}
	if role == "" {
		role = "buyer_agent"
	}

	created := make([]*model.ChangeRequest, 0, len(texts))
	for _, text := range texts {
		cr := &model.ChangeRequest{
			DealID:         dealID,
			RawText:        text,
			CreatedBy:      userID,
			Role:           role,
			Status:         model.CRStatusOpen,
			BatchID:        batchID,
			AnalysisStatus: model.AnalysisPending,
		}
		if err := s.crRepo.Create(cr); err != nil {
			return nil, err
		}

		if err := s.dispatchAnalysis(ctx, cr, userID); err != nil {
			return nil, err
		}
		created = append(created, cr)
	}

	// 收到变更请求即推进状态：视角以提出方为准
	if _, err := s.dealService.ApplyTransition(dealID, &userID, ActionCRCreated, model.IsBuyerRole(role)); err != nil {
		return nil, err
	}

	return created, nil
}

// Analyze 对分析失败的变更请求重新派发分析
func (s *ChangeRequestService) Analyze(ctx context.Context, userID, dealID, crID int64) (*dto.DispatchResponse, error) {
	cr, err := s.getOwnedCR(userID, dealID, crID)
	if err != nil {
		return nil, err
	}

	switch cr.AnalysisStatus {
	case model.AnalysisPending, model.AnalysisProcessing:
		return nil, ErrAnalysisRunning
	case model.AnalysisCompleted:
		return nil, ErrCRNotOpen
	}

	if err := s.dispatchAnalysis(ctx, cr, userID); err != nil {
		return nil, err
	}
	return &dto.DispatchResponse{JobID: *cr.AnalysisJobID, Status: model.JobStatusPending}, nil
}

// Accept 接受变更请求并派发新版本生成。要求分析已完成且请求仍为 open
func (s *ChangeRequestService) Accept(ctx context.Context, userID, dealID, crID int64) (*dto.AcceptResponse, error) {
	cr, err := s.getOwnedCR(userID, dealID, crID)
	if err != nil {
		return nil, err
	}
	if err := s.checkActionable(cr); err != nil {
		return nil, err
	}

	if err := s.crRepo.UpdateFields(cr.ID, map[string]interface{}{
		"status": model.CRStatusAccepted,
	}); err != nil {
		return nil, err
	}

	jobID, err := s.jobService.Dispatch(ctx, &queue.JobMessage{
		DealID:  dealID,
		UserID:  userID,
		JobType: model.JobGenerateVersion,
		CRID:    cr.ID,
	})
	if err != nil {
		return nil, err
	}

	// 接受方是提出方的对手方
	newState, err := s.dealService.ApplyTransition(dealID, &userID, ActionAccept, !model.IsBuyerRole(cr.Role))
	if err != nil {
		return nil, err
	}

	return &dto.AcceptResponse{JobID: jobID, NewState: newState}, nil
}

// Reject 拒绝变更请求。不要求分析完成
func (s *ChangeRequestService) Reject(userID, dealID, crID int64, reason string) (*dto.RejectResponse, error) {
	cr, err := s.getOwnedCR(userID, dealID, crID)
	if err != nil {
		return nil, err
	}
	if cr.Status != model.CRStatusOpen {
		return nil, ErrCRNotOpen
	}

	if err := s.crRepo.UpdateFields(cr.ID, map[string]interface{}{
		"status":           model.CRStatusRejected,
		"rejection_reason": reason,
	}); err != nil {
		return nil, err
	}

	newState, err := s.dealService.ApplyTransition(dealID, &userID, ActionReject, !model.IsBuyerRole(cr.Role))
	if err != nil {
		return nil, err
	}

	return &dto.RejectResponse{NewState: newState}, nil
}

// Counter 反提案：关闭原请求并以对手方身份创建新请求，
// 新请求通过 parent_cr_id 关联原请求
func (s *ChangeRequestService) Counter(ctx context.Context, userID, dealID, crID int64, counterText string) (*dto.CounterResponse, error) {
	cr, err := s.getOwnedCR(userID, dealID, crID)
	if err != nil {
		return nil, err
	}
	if cr.Status != model.CRStatusOpen {
		return nil, ErrCRNotOpen
	}

	if err := s.crRepo.UpdateFields(cr.ID, map[string]interface{}{
		"status": model.CRStatusCountered,
	}); err != nil {
		return nil, err
	}

	counterRole := "seller_agent"
	if !model.IsBuyerRole(cr.Role) {
		counterRole = "buyer_agent"
	}

	child := &model.ChangeRequest{
		DealID:         dealID,
		RawText:        counterText,
		CreatedBy:      userID,
		Role:           counterRole,
		Status:         model.CRStatusOpen,
		ParentCRID:     &cr.ID,
		AnalysisStatus: model.AnalysisPending,
	}
	if err := s.crRepo.Create(child); err != nil {
		return nil, err
	}

	if err := s.dispatchAnalysis(ctx, child, userID); err != nil {
		return nil, err
	}

	newState, err := s.dealService.ApplyTransition(dealID, &userID, ActionCounter, !model.IsBuyerRole(cr.Role))
	if err != nil {
		return nil, err
	}

	return &dto.CounterResponse{
		NewCRID:    child.ID,
		ParentCRID: cr.ID,
		JobID:      *child.AnalysisJobID,
		NewState:   newState,
	}, nil
}

// BatchAction 对同一批次的所有 open 请求统一处置。
// 前置条件不满足的项记录原因后跳过，不中断其余项
func (s *ChangeRequestService) BatchAction(ctx context.Context, userID, dealID int64, req *dto.BatchActionRequest) (*dto.BatchActionResponse, error) {
	if _, err := s.dealService.getOwnedDeal(userID, dealID); err != nil {
		return nil, err
	}

	crs, err := s.crRepo.ListOpenByBatch(dealID, req.BatchID)
	if err != nil {
		return nil, err
	}
	if len(crs) == 0 {
		return nil, ErrBatchNotFound
	}

	results := make([]dto.BatchItemResult, 0, len(crs))
	lastState := ""
	for _, cr := range crs {
		item := dto.BatchItemResult{CRID: cr.ID, Action: req.Action}

		switch req.Action {
		case "accept":
			resp, err := s.Accept(ctx, userID, dealID, cr.ID)
			if err != nil {
				item.Skipped = true
				item.Reason = err.Error()
			} else {
				item.JobID = resp.JobID
				lastState = resp.NewState
			}
		case "reject":
			resp, err := s.Reject(userID, dealID, cr.ID, req.Reason)
			if err != nil {
				item.Skipped = true
				item.Reason = err.Error()
			} else {
				lastState = resp.NewState
			}
		case "counter":
			resp, err := s.Counter(ctx, userID, dealID, cr.ID, req.CounterText)
			if err != nil {
				item.Skipped = true
				item.Reason = err.Error()
			} else {
				item.NewCRID = resp.NewCRID
				item.JobID = resp.JobID
				lastState = resp.NewState
			}
		}

		results = append(results, item)
	}

	if lastState == "" {
		deal, err := s.dealService.dealRepo.GetByID(dealID)
		if err != nil {
			return nil, err
		}
		lastState = deal.CurrentState
	}

	return &dto.BatchActionResponse{
		BatchID:  req.BatchID,
		NewState: lastState,
		Results:  results,
	}, nil
}

// List 列出交易的变更请求，status 为空时不过滤
func (s *ChangeRequestService) List(userID, dealID int64, status string) ([]*model.ChangeRequest, error) {
	if _, err := s.dealService.getOwnedDeal(userID, dealID); err != nil {
		return nil, err
	}
	return s.crRepo.ListByDeal(dealID, status)
}

// Get 获取变更请求详情
func (s *ChangeRequestService) Get(userID, dealID, crID int64) (*model.ChangeRequest, error) {
	return s.getOwnedCR(userID, dealID, crID)
}

func (s *ChangeRequestService) dispatchAnalysis(ctx context.Context, cr *model.ChangeRequest, userID int64) error {
	jobID, err := s.jobService.Dispatch(ctx, &queue.JobMessage{
		DealID:  cr.DealID,
		UserID:  userID,
		JobType: model.JobAnalyzeChangeRequest,
		CRID:    cr.ID,
	})
	if err != nil {
		return err
	}

	cr.AnalysisStatus = model.AnalysisProcessing
	cr.AnalysisJobID = &jobID
	return s.crRepo.UpdateFields(cr.ID, map[string]interface{}{
		"analysis_status": model.AnalysisProcessing,
		"analysis_job_id": jobID,
	})
}

func (s *ChangeRequestService) checkActionable(cr *model.ChangeRequest) error {
	if cr.Status != model.CRStatusOpen {
		return ErrCRNotOpen
	}
	if cr.AnalysisStatus != model.AnalysisCompleted {
		return ErrCRNotAnalyzed
	}
	return nil
}

func (s *ChangeRequestService) getOwnedCR(userID, dealID, crID int64) (*model.ChangeRequest, error) {
	if _, err := s.dealService.getOwnedDeal(userID, dealID); err != nil {
		return nil, err
	}

	cr, err := s.crRepo.GetByIDInDeal(crID, dealID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCRNotFound
		}
		return nil, err
	}
	return cr, nil
}
