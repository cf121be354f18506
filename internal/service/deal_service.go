package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/wzlab/deal_go_server/config"
	"github.com/wzlab/deal_go_server/internal/model"
	"github.com/wzlab/deal_go_server/internal/model/dto"
	"github.com/wzlab/deal_go_server/internal/pkg/extract"
	"github.com/wzlab/deal_go_server/internal/pkg/oss"
	"github.com/wzlab/deal_go_server/internal/pkg/queue"
	"github.com/wzlab/deal_go_server/internal/repository"
)

var (
	ErrDealNotFound        = errors.New("交易不存在")
	ErrDealPermission      = errors.New("无权操作此交易")
	ErrDealHasContract     = errors.New("交易已有合同版本")
	ErrDealNoContract      = errors.New("交易尚无合同版本")
	ErrUnsupportedFile     = errors.New("不支持的文件类型")
	ErrFileTooLarge        = errors.New("文件大小超出限制")
	ErrDealAlreadyAccepted = errors.New("交易已达成，无法修改")
)

type DealService struct {
	dealRepo    *repository.DealRepository
	versionRepo *repository.VersionRepository
	auditRepo   *repository.AuditRepository
	jobService  *JobService
	ossClient   *oss.Client
	cfg         *config.Config
}

func NewDealService(
	dealRepo *repository.DealRepository,
	versionRepo *repository.VersionRepository,
	auditRepo *repository.AuditRepository,
	jobService *JobService,
	ossClient *oss.Client,
	cfg *config.Config,
) *DealService {
	return &DealService{
		dealRepo:    dealRepo,
		versionRepo: versionRepo,
		auditRepo:   auditRepo,
		jobService:  jobService,
		ossClient:   ossClient,
		cfg:         cfg,
	}
}

// Create 创建交易，初始状态为 draft
func (s *DealService) Create(userID int64, req *dto.CreateDealRequest) (*model.Deal, error) {
	dealType := req.DealType
	if dealType == "" {
		dealType = "sale"
	}

	deal := &model.Deal{
		Title:        req.Title,
		Address:      req.Address,
		Description:  req.Description,
		DealType:     dealType,
		NotifyEmail:  req.NotifyEmail,
		CreatedBy:    userID,
		CurrentState: model.StateDraft,
	}

	if err := s.dealRepo.Create(deal); err != nil {
		return nil, err
	}

	s.recordAudit(deal.ID, &userID, "deal_created", model.JSONMap{
		"title":     deal.Title,
		"deal_type": deal.DealType,
	})

	return deal, nil
}

// GetByID 获取交易详情
func (s *DealService) GetByID(userID, dealID int64) (*model.Deal, error) {
	return s.getOwnedDeal(userID, dealID)
}

// List 分页列出用户的交易，支持标题/地址搜索和状态过滤
func (s *DealService) List(userID int64, page, pageSize int, search, state string) (*dto.DealListResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	deals, total, err := s.dealRepo.ListByUserID(userID, page, pageSize, search, state)
	if err != nil {
		return nil, err
	}

	items := make([]dto.DealListItem, 0, len(deals))
	for _, d := range deals {
		count, err := s.versionRepo.Count(d.ID)
		if err != nil {
			return nil, err
		}
		items = append(items, dto.DealListItem{
			ID:           d.ID,
			Title:        d.Title,
			Address:      d.Address,
			DealType:     d.DealType,
			CurrentState: d.CurrentState,
			VersionCount: count,
			CreatedAt:    d.CreatedAt.Format(time.RFC3339),
			UpdatedAt:    d.UpdatedAt.Format(time.RFC3339),
		})
	}

	return &dto.DealListResponse{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Items:    items,
	}, nil
}

// Update 更新交易基础信息。已达成的交易不可修改
func (s *DealService) Update(userID, dealID int64, req *dto.UpdateDealRequest) (*model.Deal, error) {
	deal, err := s.getOwnedDeal(userID, dealID)
	if err != nil {
		return nil, err
	}

	if deal.CurrentState == model.StateAccepted {
		return nil, ErrDealAlreadyAccepted
	}

	updates := map[string]interface{}{}
	if req.Title != "" {
		updates["title"] = req.Title
	}
	if req.Address != "" {
		updates["address"] = req.Address
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.NotifyEmail != "" {
		updates["notify_email"] = req.NotifyEmail
	}

	if len(updates) > 0 {
		if err := s.dealRepo.UpdateFields(dealID, updates); err != nil {
			return nil, err
		}
	}

	return s.dealRepo.GetByID(dealID)
}

// UploadContract 上传合同文件并创建 0 号版本，随后派发解析任务。
// 文本提取失败不阻断创建，响应中以 text_quality_ok 提示
func (s *DealService) UploadContract(ctx context.Context, userID, dealID int64, filename string, data []byte) (*dto.UploadContractResponse, error) {
	deal, err := s.getOwnedDeal(userID, dealID)
	if err != nil {
		return nil, err
	}

	if s.cfg.Upload.MaxSize > 0 && int64(len(data)) > s.cfg.Upload.MaxSize {
		return nil, ErrFileTooLarge
	}
	if !s.extensionAllowed(filename) {
		return nil, ErrUnsupportedFile
	}

	count, err := s.versionRepo.Count(dealID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrDealHasContract
	}

	text, ok := extract.ExtractText(filename, data)
	if !ok {
		return nil, ErrUnsupportedFile
	}

	return s.createBootstrapVersion(ctx, deal, userID, text, model.SourceUpload, filename, data)
}

// PasteContract 粘贴合同文本并创建 0 号版本，随后派发解析任务
func (s *DealService) PasteContract(ctx context.Context, userID, dealID int64, req *dto.PasteContractRequest) (*dto.UploadContractResponse, error) {
	deal, err := s.getOwnedDeal(userID, dealID)
	if err != nil {
		return nil, err
	}

	count, err := s.versionRepo.Count(dealID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrDealHasContract
	}

	return s.createBootstrapVersion(ctx, deal, userID, req.Text, model.SourcePaste, "", nil)
}

// GenerateInitial 由 AI 起草初始合同。仅在尚无版本时允许
func (s *DealService) GenerateInitial(ctx context.Context, userID, dealID int64, req *dto.GenerateInitialRequest) (*dto.DispatchResponse, error) {
	if _, err := s.getOwnedDeal(userID, dealID); err != nil {
		return nil, err
	}

	count, err := s.versionRepo.Count(dealID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrDealHasContract
	}

	details := map[string]interface{}{}
	for k, v := range req.DealDetails {
		details[k] = v
	}
	if len(req.SupportingTexts) > 0 {
		details["supporting_texts"] = req.SupportingTexts
	}
	rawDetails, err := json.Marshal(details)
	if err != nil {
		return nil, err
	}

	jobID, err := s.jobService.Dispatch(ctx, &queue.JobMessage{
		DealID:       dealID,
		UserID:       userID,
		JobType:      model.JobGenerateInitialContract,
		TemplateSlug: req.TemplateSlug,
		DealDetails:  rawDetails,
	})
	if err != nil {
		return nil, err
	}

	return &dto.DispatchResponse{JobID: jobID, Status: model.JobStatusPending}, nil
}

// GenerateTimeline 基于最新版本生成关键日期时间线
func (s *DealService) GenerateTimeline(ctx context.Context, userID, dealID int64) (*dto.DispatchResponse, error) {
	if _, err := s.getOwnedDeal(userID, dealID); err != nil {
		return nil, err
	}

	latest, err := s.versionRepo.GetLatest(dealID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDealNoContract
		}
		return nil, err
	}

	jobID, err := s.jobService.Dispatch(ctx, &queue.JobMessage{
		DealID:    dealID,
		UserID:    userID,
		JobType:   model.JobGenerateTimeline,
		VersionID: latest.ID,
	})
	if err != nil {
		return nil, err
	}

	return &dto.DispatchResponse{JobID: jobID, Status: model.JobStatusPending}, nil
}

// ApplyTransition 按状态机推进谈判状态。无对应迁移时状态保持不变，
// 返回当前（可能未变的）状态
func (s *DealService) ApplyTransition(dealID int64, userID *int64, action string, actorIsBuyer bool) (string, error) {
	deal, err := s.dealRepo.GetByID(dealID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrDealNotFound
		}
		return "", err
	}

	next, ok := NextState(deal.CurrentState, action, actorIsBuyer)
	if !ok {
		return deal.CurrentState, nil
	}

	updates := map[string]interface{}{"current_state": next}
	if next == model.StateAccepted && action == ActionAccept {
		now := time.Now()
		if actorIsBuyer {
			updates["buyer_accepted_at"] = now
		} else {
			updates["seller_accepted_at"] = now
		}
	}

	if err := s.dealRepo.UpdateFields(dealID, updates); err != nil {
		return "", err
	}

	s.recordAudit(dealID, userID, "state_transition", model.JSONMap{
		"from":   deal.CurrentState,
		"to":     next,
		"action": action,
	})

	return next, nil
}

// ListAudit 分页查询交易的审计记录
func (s *DealService) ListAudit(userID, dealID int64, page, pageSize int) ([]*model.AuditEvent, int64, error) {
	if _, err := s.getOwnedDeal(userID, dealID); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}
	return s.auditRepo.ListByDeal(dealID, page, pageSize)
}

func (s *DealService) createBootstrapVersion(ctx context.Context, deal *model.Deal, userID int64, text, source, filename string, raw []byte) (*dto.UploadContractResponse, error) {
	version := &model.ContractVersion{
		DealID:    deal.ID,
		FullText:  text,
		Source:    source,
		CreatedBy: userID,
	}
	if err := s.versionRepo.Create(version); err != nil {
		return nil, err
	}

	// 原始文件留档，失败不影响主流程
	if s.ossClient != nil && len(raw) > 0 {
		if _, err := s.ossClient.UploadSourceFile(deal.ID, filename, raw); err != nil {
			log.Printf("Deal %d: failed to upload source file to OSS: %v", deal.ID, err)
		}
	}

	auditAction := "contract_uploaded"
	if source == model.SourcePaste {
		auditAction = "contract_pasted"
	}
	s.recordAudit(deal.ID, &userID, auditAction, model.JSONMap{
		"version_id": version.ID,
		"length":     len(text),
	})

	resp := &dto.UploadContractResponse{
		VersionID:     version.ID,
		TextQualityOK: extract.QualityOK(text),
	}
	if !resp.TextQualityOK {
		resp.Message = "提取的文本过短，解析结果可能不完整"
	}

	jobID, err := s.jobService.Dispatch(ctx, &queue.JobMessage{
		DealID:    deal.ID,
		UserID:    userID,
		JobType:   model.JobParseContract,
		VersionID: version.ID,
	})
	if err != nil {
		return nil, err
	}
	resp.JobID = jobID

	return resp, nil
}

func (s *DealService) getOwnedDeal(userID, dealID int64) (*model.Deal, error) {
	deal, err := s.dealRepo.GetByID(dealID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDealNotFound
		}
		return nil, err
	}
	if deal.CreatedBy != userID {
		return nil, ErrDealPermission
	}
	return deal, nil
}

func (s *DealService) extensionAllowed(filename string) bool {
	allowed := s.cfg.Upload.AllowedExtensions
	if len(allowed) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for _, a := range allowed {
		if ext == strings.ToLower(a) {
			return true
		}
	}
	return false
}

func (s *DealService) recordAudit(dealID int64, userID *int64, action string, details model.JSONMap) {
	if err := s.auditRepo.Record(dealID, userID, action, details); err != nil {
		log.Printf("Deal %d: failed to record audit event %s: %v", dealID, action, err)
	}
}
