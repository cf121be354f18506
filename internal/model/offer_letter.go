package model

import (
	"time"
)

// OfferLetter AI 起草的报价函
type OfferLetter struct {
	ID              int64     `gorm:"primaryKey" json:"id"`
	DealID          int64     `gorm:"not null;index" json:"deal_id"`
	UserPrompt      string    `gorm:"type:text;not null" json:"user_prompt"`
	FullText        string    `gorm:"type:text" json:"full_text"`
	BuyerName       string    `gorm:"size:200" json:"buyer_name,omitempty"`
	SellerName      string    `gorm:"size:200" json:"seller_name,omitempty"`
	PropertyAddress string    `gorm:"size:500" json:"property_address,omitempty"`
	PurchasePrice   string    `gorm:"size:50" json:"purchase_price,omitempty"`
	EarnestMoney    string    `gorm:"size:50" json:"earnest_money,omitempty"`
	ClosingDate     string    `gorm:"size:50" json:"closing_date,omitempty"`
	Contingencies   string    `gorm:"type:text" json:"contingencies,omitempty"`
	AdditionalTerms string    `gorm:"type:text" json:"additional_terms,omitempty"`
	Status          string    `gorm:"size:20;default:draft" json:"status"` // draft, sent
	CreatedBy       int64     `gorm:"not null" json:"created_by"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
}

func (OfferLetter) TableName() string {
	return "offer_letters"
}
