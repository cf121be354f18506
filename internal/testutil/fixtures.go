package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/wzlab/deal_go_server/internal/model"
)

// TestDeal 创建测试交易
func TestDeal(t *testing.T, db *gorm.DB, createdBy int64, opts ...func(*model.Deal)) *model.Deal {
	t.Helper()

	deal := &model.Deal{
		Title:        fmt.Sprintf("Test Deal %d", time.Now().UnixNano()%10000),
		Address:      "123 Palm Avenue, Miami, FL 33101",
		DealType:     "purchase",
		CreatedBy:    createdBy,
		CurrentState: model.StateDraft,
	}

	for _, opt := range opts {
		opt(deal)
	}

	if err := db.Create(deal).Error; err != nil {
		t.Fatalf("Failed to create test deal: %v", err)
	}

	return deal
}

// WithState 设置谈判状态
func WithState(state string) func(*model.Deal) {
	return func(d *model.Deal) {
		d.CurrentState = state
	}
}

// WithTitle 设置标题
func WithTitle(title string) func(*model.Deal) {
	return func(d *model.Deal) {
		d.Title = title
	}
}

// WithNotifyEmail 设置对方代理邮箱
func WithNotifyEmail(email string) func(*model.Deal) {
	return func(d *model.Deal) {
		d.NotifyEmail = email
	}
}

// TestVersion 创建测试合同版本
func TestVersion(t *testing.T, db *gorm.DB, dealID int64, versionNumber int, opts ...func(*model.ContractVersion)) *model.ContractVersion {
	t.Helper()

	version := &model.ContractVersion{
		DealID:        dealID,
		VersionNumber: versionNumber,
		FullText:      "PURCHASE AGREEMENT\n1. PURCHASE PRICE: $350,000.00\n2. CLOSING DATE: July 15, 2025",
		ExtractedFields: model.JSONMap{
			"purchase_price": "350000",
			"closing_date":   "2025-07-15",
		},
		ClauseTags: model.ClauseList{
			{Key: "inspection_contingency", Status: model.ClauseActive, Editable: true},
		},
		ContractType: "FAR_BAR_ASIS",
		Source:       model.SourceUpload,
		CreatedBy:    1,
	}

	for _, opt := range opts {
		opt(version)
	}

	if err := db.Create(version).Error; err != nil {
		t.Fatalf("Failed to create test version: %v", err)
	}

	return version
}

// WithFullText 设置合同文本
func WithFullText(text string) func(*model.ContractVersion) {
	return func(v *model.ContractVersion) {
		v.FullText = text
	}
}

// WithFields 设置提取字段
func WithFields(fields model.JSONMap) func(*model.ContractVersion) {
	return func(v *model.ContractVersion) {
		v.ExtractedFields = fields
	}
}

// WithSource 设置版本来源
func WithSource(source string) func(*model.ContractVersion) {
	return func(v *model.ContractVersion) {
		v.Source = source
	}
}

// TestChangeRequest 创建测试变更请求
func TestChangeRequest(t *testing.T, db *gorm.DB, dealID, createdBy int64, opts ...func(*model.ChangeRequest)) *model.ChangeRequest {
	t.Helper()

	cr := &model.ChangeRequest{
		DealID:         dealID,
		RawText:        "Please lower the purchase price to $340,000",
		CreatedBy:      createdBy,
		Role:           "buyer_agent",
		Status:         model.CRStatusOpen,
		AnalysisStatus: model.AnalysisPending,
	}

	for _, opt := range opts {
		opt(cr)
	}

	if err := db.Create(cr).Error; err != nil {
		t.Fatalf("Failed to create test change request: %v", err)
	}

	return cr
}

// WithCRStatus 设置处置状态
func WithCRStatus(status string) func(*model.ChangeRequest) {
	return func(cr *model.ChangeRequest) {
		cr.Status = status
	}
}

// WithAnalysisCompleted 填充已完成的分析结果
func WithAnalysisCompleted(result *model.AnalysisResult) func(*model.ChangeRequest) {
	return func(cr *model.ChangeRequest) {
		now := time.Now()
		cr.AnalysisStatus = model.AnalysisCompleted
		cr.AnalysisResult = result
		cr.AnalyzedAt = &now
	}
}

// WithRole 设置提交方角色
func WithRole(role string) func(*model.ChangeRequest) {
	return func(cr *model.ChangeRequest) {
		cr.Role = role
	}
}

// WithBatchID 设置批次
func WithBatchID(batchID string) func(*model.ChangeRequest) {
	return func(cr *model.ChangeRequest) {
		cr.BatchID = batchID
	}
}

// DefaultAnalysisResult mock 分析结果，与 LLM mock 数据保持一致
func DefaultAnalysisResult() *model.AnalysisResult {
	return &model.AnalysisResult{
		Changes: []model.FieldChange{
			{Field: "purchase_price", Action: "update", From: "350000", To: "340000", Confidence: 0.95},
		},
		ClauseActions:   []model.ClauseAction{},
		Questions:       []string{},
		Recommendation:  model.RecommendCounter,
		CounterProposal: map[string]interface{}{"purchase_price": 345000},
	}
}

// TestJob 创建测试任务记录
func TestJob(t *testing.T, db *gorm.DB, dealID, userID int64, jobType, status string) *model.JobRecord {
	t.Helper()

	job := &model.JobRecord{
		DealID:  dealID,
		UserID:  userID,
		JobType: jobType,
		Status:  status,
	}

	if err := db.Create(job).Error; err != nil {
		t.Fatalf("Failed to create test job: %v", err)
	}

	return job
}
