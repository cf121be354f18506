package dto

import (
	"github.com/wzlab/deal_go_server/internal/pkg/diffengine"
)

// DiffResponse 两个版本之间的差异
type DiffResponse struct {
	VersionAID     int64                   `json:"version_a_id"`
	VersionBID     int64                   `json:"version_b_id"`
	VersionANumber int                     `json:"version_a_number"`
	VersionBNumber int                     `json:"version_b_number"`
	Unified        string                  `json:"unified"`
	Lines          []diffengine.Line       `json:"lines"`
	FieldChanges   []diffengine.FieldDelta `json:"field_changes"`
}
