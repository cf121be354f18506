package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// 谈判状态
const (
	StateDraft           = "draft"
	StateWaitingOnSeller = "waiting_on_seller"
	StateWaitingOnBuyer  = "waiting_on_buyer"
	StateCounterSent     = "counter_sent"
	StateFinalReview     = "final_review"
	StateAccepted        = "accepted"
)

// TimelineItem 合同关键日期条目
type TimelineItem struct {
	Description      string `json:"description"`
	DueDate          string `json:"due_date"`
	Category         string `json:"category"`
	ResponsibleParty string `json:"responsible_party"`
}

type TimelineItems []TimelineItem

func (t TimelineItems) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	return json.Marshal(t)
}

func (t *TimelineItems) Scan(value interface{}) error {
	if value == nil {
		*t = TimelineItems{}
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
	return json.Unmarshal(bytes, t)
}

type Deal struct {
	ID                  int64         `gorm:"primaryKey" json:"id"`
	Title               string        `gorm:"size:200;not null" json:"title"`
	Address             string        `gorm:"size:500" json:"address,omitempty"`
	Description         string        `gorm:"type:text" json:"description,omitempty"`
	DealType            string        `gorm:"size:20;default:sale" json:"deal_type"` // sale, purchase
	CreatedBy           int64         `gorm:"not null;index" json:"created_by"`
	CurrentState        string        `gorm:"size:30;default:draft;index" json:"current_state"`
	NotifyEmail         string        `gorm:"size:200" json:"notify_email,omitempty"` // 对方代理邮箱，通知尽力而为
	BuyerAcceptedAt     *time.Time    `json:"buyer_accepted_at,omitempty"`
	SellerAcceptedAt    *time.Time    `json:"seller_accepted_at,omitempty"`
	Timeline            TimelineItems `gorm:"type:json" json:"timeline,omitempty"`
	TimelineGeneratedAt *time.Time    `json:"timeline_generated_at,omitempty"`
	CreatedAt           time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

func (Deal) TableName() string {
	return "deals"
}
