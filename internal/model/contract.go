package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// 版本来源
const (
	SourceUpload      = "upload"
	SourcePaste       = "paste"
	SourceGenerated   = "generated"
	SourceAIGenerated = "ai_generated"
)

// 条款状态
const (
	ClauseActive   = "active"
	ClauseModified = "modified"
	ClauseRemoved  = "removed"
)

// Clause 条款标签：key 稳定，status 跟随谈判演进
type Clause struct {
	Key      string `json:"key"`
	Status   string `json:"status"`
	Editable bool   `json:"editable"`
}

type ClauseList []Clause

func (c ClauseList) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	return json.Marshal(c)
}

func (c *ClauseList) Scan(value interface{}) error {
	if value == nil {
		*c = ClauseList{}
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
	return json.Unmarshal(bytes, c)
}

// ContractVersion 合同版本快照。版本号从 0 开始、同一 deal 内连续递增，
// 生成后不可变（新的修改产生新版本，而不是原地更新）
type ContractVersion struct {
	ID              int64      `gorm:"primaryKey" json:"id"`
	DealID          int64      `gorm:"not null;index" json:"deal_id"`
	VersionNumber   int        `gorm:"not null;index" json:"version_number"`
	FullText        string     `gorm:"type:text" json:"full_text"`
	ExtractedFields JSONMap    `gorm:"type:json" json:"extracted_fields,omitempty"`
	ClauseTags      ClauseList `gorm:"type:json" json:"clause_tags,omitempty"`
	ContractType    string     `gorm:"size:50;default:UNKNOWN" json:"contract_type"`
	ChangeSummary   JSONMap    `gorm:"type:json" json:"change_summary,omitempty"`
	Source          string     `gorm:"size:20;default:upload" json:"source"`
	SourceCRID      *int64     `gorm:"index" json:"source_cr_id,omitempty"`
	DocumentOSSURL  string     `gorm:"size:500" json:"document_oss_url,omitempty"`
	CreatedBy       int64      `gorm:"not null" json:"created_by"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
}

func (ContractVersion) TableName() string {
	return "contract_versions"
}
