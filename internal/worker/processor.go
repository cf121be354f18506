package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/wzlab/deal_go_server/config"
	"github.com/wzlab/deal_go_server/internal/model"
	"github.com/wzlab/deal_go_server/internal/pkg/contract"
	"github.com/wzlab/deal_go_server/internal/pkg/email"
	"github.com/wzlab/deal_go_server/internal/pkg/llm"
	"github.com/wzlab/deal_go_server/internal/pkg/oss"
	"github.com/wzlab/deal_go_server/internal/pkg/pubsub"
	"github.com/wzlab/deal_go_server/internal/pkg/queue"
	"github.com/wzlab/deal_go_server/internal/repository"
)

// Processor 任务处理器。六类任务共用一个入口，
// 涉及版本写入的任务按交易加锁串行执行
type Processor struct {
	jobRepo      *repository.JobRepository
	dealRepo     *repository.DealRepository
	versionRepo  *repository.VersionRepository
	crRepo       *repository.ChangeRequestRepository
	letterRepo   *repository.OfferLetterRepository
	auditRepo    *repository.AuditRepository
	llmClient    *llm.Client
	ossClient    *oss.Client
	publisher    *pubsub.Publisher
	emailService *email.Service
	locks        *dealLocks
	cfg          *config.Config
}

func NewProcessor(
	jobRepo *repository.JobRepository,
	dealRepo *repository.DealRepository,
	versionRepo *repository.VersionRepository,
	crRepo *repository.ChangeRequestRepository,
	letterRepo *repository.OfferLetterRepository,
	auditRepo *repository.AuditRepository,
	llmClient *llm.Client,
	ossClient *oss.Client,
	publisher *pubsub.Publisher,
	emailService *email.Service,
	cfg *config.Config,
) *Processor {
	return &Processor{
		jobRepo:      jobRepo,
		dealRepo:     dealRepo,
		versionRepo:  versionRepo,
		crRepo:       crRepo,
		letterRepo:   letterRepo,
		auditRepo:    auditRepo,
		llmClient:    llmClient,
		ossClient:    ossClient,
		publisher:    publisher,
		emailService: emailService,
		locks:        newDealLocks(),
		cfg:          cfg,
	}
}

// Process 处理一条队列消息
func (p *Processor) Process(ctx context.Context, msg *queue.JobMessage) error {
	job, err := p.jobRepo.GetByID(msg.JobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}
	if job.Status != model.JobStatusPending {
		log.Printf("Job %d: skipping, status is %s", job.ID, job.Status)
		return nil
	}

	if err := p.jobRepo.MarkProcessing(job.ID); err != nil {
		return fmt.Errorf("failed to mark job processing: %w", err)
	}
	log.Printf("Job %d: started, type=%s, deal=%d", job.ID, msg.JobType, msg.DealID)

	switch msg.JobType {
	case model.JobParseContract:
		err = p.processParseContract(ctx, msg)
	case model.JobAnalyzeChangeRequest:
		err = p.processAnalyzeChangeRequest(ctx, msg)
	case model.JobGenerateVersion:
		err = p.processGenerateVersion(ctx, msg)
	case model.JobGenerateInitialContract:
		err = p.processGenerateInitialContract(ctx, msg)
	case model.JobGenerateTimeline:
		err = p.processGenerateTimeline(ctx, msg)
	case model.JobGenerateOfferLetter:
		err = p.processGenerateOfferLetter(ctx, msg)
	default:
		err = p.fail(ctx, msg, "", fmt.Errorf("unknown job type: %s", msg.JobType))
	}

	if err != nil {
		log.Printf("Job %d: failed: %v", job.ID, err)
		return err
	}
	log.Printf("Job %d: completed", job.ID)
	return nil
}

// processParseContract 解析合同文本，回填字段与条款标签
func (p *Processor) processParseContract(ctx context.Context, msg *queue.JobMessage) error {
	version, err := p.versionRepo.GetByID(msg.VersionID)
	if err != nil {
		return p.fail(ctx, msg, pubsub.StepParsing, fmt.Errorf("failed to get version: %w", err))
	}

	p.publishStep(ctx, msg, pubsub.StepParsing)

	prompt := llm.BuildParsePrompt(version.FullText)
	result, usage, err := p.llmClient.GenerateJSON(ctx, prompt, "")
	if err != nil {
		return p.fail(ctx, msg, pubsub.StepParsing, fmt.Errorf("parse failed: %w", err))
	}
	logUsage(msg.JobID, usage)

	contractType, _ := result["contract_type"].(string)
	if contractType == "" {
		contractType = "UNKNOWN"
	}

	fields := model.JSONMap{}
	if raw, ok := result["fields"].(map[string]interface{}); ok {
		for key, value := range raw {
			if _, allowed := contract.AllowedFields[key]; allowed {
				fields[key] = value
			}
		}
	}
	clauses := parseClauseTags(result["clauses"])

	p.publishStep(ctx, msg, pubsub.StepPersisting)

	ossURL := ""
	if p.ossClient != nil {
		url, err := p.ossClient.UploadContractDocument(msg.DealID, version.ID, []byte(version.FullText))
		if err != nil {
			log.Printf("Job %d: failed to archive contract to OSS: %v", msg.JobID, err)
		} else {
			ossURL = url
		}
	}

	if err := p.versionRepo.UpdateParsedContent(version.ID, fields, clauses, contractType, ossURL); err != nil {
		return p.fail(ctx, msg, pubsub.StepPersisting, fmt.Errorf("failed to save parsed content: %w", err))
	}

	p.recordAudit(msg.DealID, msg.UserID, "contract_parsed", model.JSONMap{
		"version_id":    version.ID,
		"contract_type": contractType,
		"field_count":   len(fields),
	})

	return p.complete(ctx, msg, model.JSONMap{
		"version_id":    version.ID,
		"contract_type": contractType,
		"field_count":   len(fields),
	})
}

// processAnalyzeChangeRequest 解读变更请求，落结构化分析结果
func (p *Processor) processAnalyzeChangeRequest(ctx context.Context, msg *queue.JobMessage) error {
	cr, err := p.crRepo.GetByID(msg.CRID)
	if err != nil {
		return p.fail(ctx, msg, pubsub.StepAnalyzing, fmt.Errorf("failed to get change request: %w", err))
	}

	p.publishStep(ctx, msg, pubsub.StepAnalyzing)

	fields, clauses, contractType := p.currentContractState(msg.DealID)
	prompt := llm.BuildAnalyzePrompt(contractType, clauses, fields, cr.RawText)
	result, usage, err := p.llmClient.GenerateJSON(ctx, prompt, "")
	if err != nil {
		if updateErr := p.crRepo.UpdateFields(cr.ID, map[string]interface{}{
			"analysis_status": model.AnalysisFailed,
		}); updateErr != nil {
			log.Printf("Job %d: failed to mark analysis failed: %v", msg.JobID, updateErr)
		}
		return p.fail(ctx, msg, pubsub.StepAnalyzing, fmt.Errorf("analysis failed: %w", err))
	}
	logUsage(msg.JobID, usage)

	analysis, err := decodeAnalysisResult(result)
	if err != nil {
		if updateErr := p.crRepo.UpdateFields(cr.ID, map[string]interface{}{
			"analysis_status": model.AnalysisFailed,
		}); updateErr != nil {
			log.Printf("Job %d: failed to mark analysis failed: %v", msg.JobID, updateErr)
		}
		return p.fail(ctx, msg, pubsub.StepAnalyzing, err)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"analysis_status": model.AnalysisCompleted,
		"analysis_result": analysis,
		"analyzed_at":     &now,
	}
	if usage != nil {
		updates["input_tokens"] = usage.InputTokens
		updates["output_tokens"] = usage.OutputTokens
	}
	if err := p.crRepo.UpdateFields(cr.ID, updates); err != nil {
		return p.fail(ctx, msg, pubsub.StepPersisting, fmt.Errorf("failed to save analysis: %w", err))
	}

	p.recordAudit(msg.DealID, msg.UserID, "change_request_analyzed", model.JSONMap{
		"cr_id":          cr.ID,
		"recommendation": analysis.Recommendation,
	})
	p.notifyAnalysisComplete(msg.DealID, analysis.Recommendation)

	return p.complete(ctx, msg, model.JSONMap{
		"cr_id":          cr.ID,
		"recommendation": analysis.Recommendation,
	})
}

// processGenerateVersion 接受变更请求后生成新版本。
// 按交易加锁，保证同一交易的版本串行产生
func (p *Processor) processGenerateVersion(ctx context.Context, msg *queue.JobMessage) error {
	p.locks.Lock(msg.DealID)
	defer p.locks.Unlock(msg.DealID)

	cr, err := p.crRepo.GetByID(msg.CRID)
	if err != nil {
		return p.fail(ctx, msg, pubsub.StepApplying, fmt.Errorf("failed to get change request: %w", err))
	}
	if cr.AnalysisResult == nil {
		return p.fail(ctx, msg, pubsub.StepApplying, fmt.Errorf("change request %d has no analysis result", cr.ID))
	}

	latest, err := p.versionRepo.GetLatest(msg.DealID)
	if err != nil {
		return p.fail(ctx, msg, pubsub.StepApplying, fmt.Errorf("failed to get latest version: %w", err))
	}

	p.publishStep(ctx, msg, pubsub.StepApplying)
	newFields := contract.ApplyFieldChanges(latest.ExtractedFields, cr.AnalysisResult.Changes)
	newClauses := contract.ApplyClauseActions(latest.ClauseTags, cr.AnalysisResult.ClauseActions)

	p.publishStep(ctx, msg, pubsub.StepGenerating)
	prompt := llm.BuildGenerateVersionPrompt(cr.AnalysisResult.Changes, cr.AnalysisResult.ClauseActions, latest.FullText)
	text, usage, err := p.llmClient.GenerateText(ctx, prompt, "")
	if err != nil {
		return p.fail(ctx, msg, pubsub.StepGenerating, fmt.Errorf("generation failed: %w", err))
	}
	logUsage(msg.JobID, usage)

	p.publishStep(ctx, msg, pubsub.StepPersisting)
	version := &model.ContractVersion{
		DealID:          msg.DealID,
		FullText:        text,
		ExtractedFields: newFields,
		ClauseTags:      newClauses,
		ContractType:    latest.ContractType,
		ChangeSummary: model.JSONMap{
			"changes":        cr.AnalysisResult.Changes,
			"clause_actions": cr.AnalysisResult.ClauseActions,
		},
		Source:     model.SourceGenerated,
		SourceCRID: &cr.ID,
		CreatedBy:  msg.UserID,
	}
	if err := p.versionRepo.Create(version); err != nil {
		return p.fail(ctx, msg, pubsub.StepPersisting, fmt.Errorf("failed to create version: %w", err))
	}

	p.archiveVersion(msg.JobID, version)

	p.recordAudit(msg.DealID, msg.UserID, "version_generated", model.JSONMap{
		"version_id":     version.ID,
		"version_number": version.VersionNumber,
		"source_cr_id":   cr.ID,
	})
	p.notifyVersionGenerated(msg.DealID, version.VersionNumber)

	return p.complete(ctx, msg, model.JSONMap{
		"version_id":     version.ID,
		"version_number": version.VersionNumber,
	})
}

// processGenerateInitialContract 从模板起草 0 号版本
func (p *Processor) processGenerateInitialContract(ctx context.Context, msg *queue.JobMessage) error {
	p.locks.Lock(msg.DealID)
	defer p.locks.Unlock(msg.DealID)

	var details map[string]interface{}
	if len(msg.DealDetails) > 0 {
		if err := json.Unmarshal(msg.DealDetails, &details); err != nil {
			return p.fail(ctx, msg, pubsub.StepGenerating, fmt.Errorf("invalid deal details: %w", err))
		}
	}

	p.publishStep(ctx, msg, pubsub.StepGenerating)
	prompt := llm.BuildInitialContractPrompt(msg.TemplateSlug, details)
	text, usage, err := p.llmClient.GenerateText(ctx, prompt, "")
	if err != nil {
		return p.fail(ctx, msg, pubsub.StepGenerating, fmt.Errorf("generation failed: %w", err))
	}
	logUsage(msg.JobID, usage)

	fields, clauses := contract.BuildEmptyState()
	for key, value := range details {
		if _, allowed := contract.AllowedFields[key]; allowed {
			fields[key] = value
		}
	}

	p.publishStep(ctx, msg, pubsub.StepPersisting)
	version := &model.ContractVersion{
		DealID:          msg.DealID,
		FullText:        text,
		ExtractedFields: fields,
		ClauseTags:      clauses,
		ContractType:    strings.ToUpper(msg.TemplateSlug),
		Source:          model.SourceAIGenerated,
		CreatedBy:       msg.UserID,
	}
	if err := p.versionRepo.Create(version); err != nil {
		return p.fail(ctx, msg, pubsub.StepPersisting, fmt.Errorf("failed to create version: %w", err))
	}

	p.archiveVersion(msg.JobID, version)

	p.recordAudit(msg.DealID, msg.UserID, "initial_contract_generated", model.JSONMap{
		"version_id": version.ID,
		"template":   msg.TemplateSlug,
	})

	return p.complete(ctx, msg, model.JSONMap{
		"version_id":     version.ID,
		"version_number": version.VersionNumber,
	})
}

// processGenerateTimeline 提取合同关键日期，回写到交易
func (p *Processor) processGenerateTimeline(ctx context.Context, msg *queue.JobMessage) error {
	version, err := p.versionRepo.GetByID(msg.VersionID)
	if err != nil {
		return p.fail(ctx, msg, pubsub.StepAnalyzing, fmt.Errorf("failed to get version: %w", err))
	}

	p.publishStep(ctx, msg, pubsub.StepAnalyzing)
	prompt := llm.BuildTimelinePrompt(version.FullText)
	result, usage, err := p.llmClient.GenerateJSON(ctx, prompt, "")
	if err != nil {
		return p.fail(ctx, msg, pubsub.StepAnalyzing, fmt.Errorf("timeline generation failed: %w", err))
	}
	logUsage(msg.JobID, usage)

	items, err := decodeTimeline(result["timeline"])
	if err != nil {
		return p.fail(ctx, msg, pubsub.StepAnalyzing, err)
	}

	now := time.Now()
	if err := p.dealRepo.UpdateFields(msg.DealID, map[string]interface{}{
		"timeline":              items,
		"timeline_generated_at": &now,
	}); err != nil {
		return p.fail(ctx, msg, pubsub.StepPersisting, fmt.Errorf("failed to save timeline: %w", err))
	}

	p.recordAudit(msg.DealID, msg.UserID, "timeline_generated", model.JSONMap{
		"version_id": version.ID,
		"item_count": len(items),
	})

	return p.complete(ctx, msg, model.JSONMap{"item_count": len(items)})
}

// processGenerateOfferLetter 生成报价函正文并回填摘要条款
func (p *Processor) processGenerateOfferLetter(ctx context.Context, msg *queue.JobMessage) error {
	var params struct {
		LetterID int64 `json:"letter_id"`
	}
	if err := json.Unmarshal(msg.DealDetails, &params); err != nil || params.LetterID == 0 {
		return p.fail(ctx, msg, pubsub.StepGenerating, fmt.Errorf("invalid offer letter params"))
	}

	letter, err := p.letterRepo.GetByID(params.LetterID)
	if err != nil {
		return p.fail(ctx, msg, pubsub.StepGenerating, fmt.Errorf("failed to get offer letter: %w", err))
	}
	deal, err := p.dealRepo.GetByID(msg.DealID)
	if err != nil {
		return p.fail(ctx, msg, pubsub.StepGenerating, fmt.Errorf("failed to get deal: %w", err))
	}

	fields, _, _ := p.currentContractState(msg.DealID)

	p.publishStep(ctx, msg, pubsub.StepGenerating)
	details := map[string]interface{}{
		"title":     deal.Title,
		"address":   deal.Address,
		"deal_type": deal.DealType,
		"prompt":    letter.UserPrompt,
	}
	prompt := llm.BuildOfferLetterPrompt(details, fields, msg.Tone)
	result, usage, err := p.llmClient.GenerateJSON(ctx, prompt, "")
	if err != nil {
		return p.fail(ctx, msg, pubsub.StepGenerating, fmt.Errorf("offer letter generation failed: %w", err))
	}
	logUsage(msg.JobID, usage)

	letterText, _ := result["letter_text"].(string)
	if letterText == "" {
		return p.fail(ctx, msg, pubsub.StepGenerating, fmt.Errorf("offer letter response missing letter_text"))
	}

	p.publishStep(ctx, msg, pubsub.StepPersisting)
	letter.FullText = letterText
	letter.PropertyAddress = deal.Address
	if terms, ok := result["headline_terms"].(map[string]interface{}); ok {
		letter.PurchasePrice = termString(terms["purchase_price"])
		letter.EarnestMoney = termString(terms["earnest_money"])
		letter.ClosingDate = termString(terms["closing_date"])
	}
	if err := p.letterRepo.Update(letter); err != nil {
		return p.fail(ctx, msg, pubsub.StepPersisting, fmt.Errorf("failed to save offer letter: %w", err))
	}

	if p.ossClient != nil {
		if _, err := p.ossClient.UploadOfferLetter(msg.DealID, letter.ID, []byte(letterText)); err != nil {
			log.Printf("Job %d: failed to archive offer letter to OSS: %v", msg.JobID, err)
		}
	}

	p.recordAudit(msg.DealID, msg.UserID, "offer_letter_generated", model.JSONMap{
		"letter_id": letter.ID,
	})

	return p.complete(ctx, msg, model.JSONMap{"letter_id": letter.ID})
}

// currentContractState 最新版本的字段与条款快照，没有版本时返回空白状态
func (p *Processor) currentContractState(dealID int64) (model.JSONMap, model.ClauseList, string) {
	latest, err := p.versionRepo.GetLatest(dealID)
	if err != nil {
		fields, clauses := contract.BuildEmptyState()
		return fields, clauses, "UNKNOWN"
	}
	return latest.ExtractedFields, latest.ClauseTags, latest.ContractType
}

func (p *Processor) archiveVersion(jobID int64, version *model.ContractVersion) {
	if p.ossClient == nil {
		return
	}
	url, err := p.ossClient.UploadContractDocument(version.DealID, version.ID, []byte(version.FullText))
	if err != nil {
		log.Printf("Job %d: failed to archive version %d to OSS: %v", jobID, version.ID, err)
		return
	}
	if err := p.versionRepo.UpdateDocumentURL(version.ID, url); err != nil {
		log.Printf("Job %d: failed to save OSS URL for version %d: %v", jobID, version.ID, err)
	}
}

func (p *Processor) complete(ctx context.Context, msg *queue.JobMessage, result model.JSONMap) error {
	if err := p.jobRepo.MarkCompleted(msg.JobID, result); err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}
	p.publish(ctx, msg, pubsub.StepDone, model.JobStatusCompleted, "")
	return nil
}

func (p *Processor) fail(ctx context.Context, msg *queue.JobMessage, step string, err error) error {
	if markErr := p.jobRepo.MarkFailed(msg.JobID, err.Error()); markErr != nil {
		log.Printf("Job %d: failed to mark job failed: %v", msg.JobID, markErr)
	}
	p.publish(ctx, msg, step, model.JobStatusFailed, err.Error())
	return err
}

func (p *Processor) publishStep(ctx context.Context, msg *queue.JobMessage, step string) {
	p.publish(ctx, msg, step, model.JobStatusProcessing, "")
}

func (p *Processor) publish(ctx context.Context, msg *queue.JobMessage, step, status, errMsg string) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.PublishProgress(ctx, &pubsub.ProgressMessage{
		UserID:  msg.UserID,
		DealID:  msg.DealID,
		JobID:   msg.JobID,
		JobType: msg.JobType,
		Status:  status,
		Step:    step,
		Error:   errMsg,
	}); err != nil {
		log.Printf("Job %d: failed to publish progress: %v", msg.JobID, err)
	}
}

func (p *Processor) recordAudit(dealID, userID int64, action string, details model.JSONMap) {
	if err := p.auditRepo.Record(dealID, &userID, action, details); err != nil {
		log.Printf("Deal %d: failed to record audit event %s: %v", dealID, action, err)
	}
}

func (p *Processor) notifyAnalysisComplete(dealID int64, recommendation string) {
	if p.emailService == nil {
		return
	}
	deal, err := p.dealRepo.GetByID(dealID)
	if err != nil || deal.NotifyEmail == "" {
		return
	}
	if err := p.emailService.SendAnalysisComplete(deal.NotifyEmail, deal.Title, recommendation); err != nil {
		log.Printf("Deal %d: failed to send analysis email: %v", dealID, err)
	}
}

func (p *Processor) notifyVersionGenerated(dealID int64, versionNumber int) {
	if p.emailService == nil {
		return
	}
	deal, err := p.dealRepo.GetByID(dealID)
	if err != nil || deal.NotifyEmail == "" {
		return
	}
	if err := p.emailService.SendVersionGenerated(deal.NotifyEmail, deal.Title, versionNumber); err != nil {
		log.Printf("Deal %d: failed to send version email: %v", dealID, err)
	}
}

func logUsage(jobID int64, usage *llm.Usage) {
	if usage == nil {
		return
	}
	log.Printf("Job %d: model=%s, input_tokens=%d, output_tokens=%d",
		jobID, usage.Model, usage.InputTokens, usage.OutputTokens)
}

func parseClauseTags(raw interface{}) model.ClauseList {
	items, ok := raw.([]interface{})
	if !ok {
		_, clauses := contract.BuildEmptyState()
		return clauses
	}

	clauses := make(model.ClauseList, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			clauses = append(clauses, model.Clause{Key: v, Status: model.ClauseActive, Editable: true})
		case map[string]interface{}:
			key, _ := v["key"].(string)
			if key == "" {
				continue
			}
			status, _ := v["status"].(string)
			if status == "" {
				status = model.ClauseActive
			}
			editable := true
			if e, ok := v["editable"].(bool); ok {
				editable = e
			}
			clauses = append(clauses, model.Clause{Key: key, Status: status, Editable: editable})
		}
	}
	return clauses
}

func decodeAnalysisResult(result map[string]interface{}) (*model.AnalysisResult, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis result: %w", err)
	}
	var analysis model.AnalysisResult
	if err := json.Unmarshal(raw, &analysis); err != nil {
		return nil, fmt.Errorf("failed to decode analysis result: %w", err)
	}
	if analysis.Recommendation == "" {
		return nil, fmt.Errorf("analysis result missing recommendation")
	}
	return &analysis, nil
}

func decodeTimeline(raw interface{}) (model.TimelineItems, error) {
	if raw == nil {
		return nil, fmt.Errorf("timeline response missing timeline")
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode timeline: %w", err)
	}
	var items model.TimelineItems
	if err := json.Unmarshal(encoded, &items); err != nil {
		return nil, fmt.Errorf("failed to decode timeline: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("timeline response is empty")
	}
	return items, nil
}

func termString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
