package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// 变更请求处置状态
const (
	CRStatusOpen      = "open"
	CRStatusAccepted  = "accepted"
	CRStatusRejected  = "rejected"
	CRStatusCountered = "countered"
)

// AI 分析状态
const (
	AnalysisPending    = "pending"
	AnalysisProcessing = "processing"
	AnalysisCompleted  = "completed"
	AnalysisFailed     = "failed"
)

// 分析建议
const (
	RecommendAccept  = "accept"
	RecommendReject  = "reject"
	RecommendCounter = "counter"
)

// FieldChange 单个字段编辑，action 为 update 或 remove
type FieldChange struct {
	Field      string      `json:"field"`
	Action     string      `json:"action"`
	From       interface{} `json:"from,omitempty"`
	To         interface{} `json:"to,omitempty"`
	Confidence float64     `json:"confidence,omitempty"`
}

// ClauseAction 单个条款编辑，action 为 add、modify 或 remove
type ClauseAction struct {
	ClauseKey string `json:"clause_key"`
	Action    string `json:"action"`
}

// AnalysisResult 变更请求的结构化解读
type AnalysisResult struct {
	Changes         []FieldChange          `json:"changes"`
	ClauseActions   []ClauseAction         `json:"clause_actions"`
	Questions       []string               `json:"questions"`
	Recommendation  string                 `json:"recommendation"`
	CounterProposal map[string]interface{} `json:"counter_proposal,omitempty"`
}

func (a AnalysisResult) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *AnalysisResult) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return nil
		}
	}
	return json.Unmarshal(bytes, a)
}

type ChangeRequest struct {
	ID              int64           `gorm:"primaryKey" json:"id"`
	DealID          int64           `gorm:"not null;index" json:"deal_id"`
	RawText         string          `gorm:"type:text;not null" json:"raw_text"`
	CreatedBy       int64           `gorm:"not null" json:"created_by"`
	Role            string          `gorm:"size:30;default:buyer_agent" json:"role"`
	Status          string          `gorm:"size:20;default:open;index" json:"status"`
	RejectionReason string          `gorm:"type:text" json:"rejection_reason,omitempty"`
	ParentCRID      *int64          `gorm:"index" json:"parent_cr_id,omitempty"` // 反提案指向原 CR
	BatchID         string          `gorm:"size:64;index" json:"batch_id,omitempty"`
	AnalysisStatus  string          `gorm:"size:20;default:pending;index" json:"analysis_status"`
	AnalysisResult  *AnalysisResult `gorm:"type:json" json:"analysis_result,omitempty"`
	AnalysisJobID   *int64          `json:"analysis_job_id,omitempty"`
	InputTokens     int             `json:"input_tokens,omitempty"`
	OutputTokens    int             `json:"output_tokens,omitempty"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
	AnalyzedAt      *time.Time      `json:"analyzed_at,omitempty"`
}

func (ChangeRequest) TableName() string {
	return "change_requests"
}

// IsBuyerRole 判断角色属于买方
func IsBuyerRole(role string) bool {
	switch role {
	case "buyer_agent", "buyer":
		return true
	}
	return false
}
