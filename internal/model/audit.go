package model

import (
	"time"
)

// AuditEvent 不可变审计记录，例如 "state_transition"、"version_generated"
type AuditEvent struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	DealID    int64     `gorm:"not null;index" json:"deal_id"`
	UserID    *int64    `json:"user_id,omitempty"`
	Action    string    `gorm:"size:60;not null" json:"action"`
	Details   JSONMap   `gorm:"type:json" json:"details,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
