package repository

import (
	"gorm.io/gorm"

	"github.com/wzlab/deal_go_server/internal/model"
)

type OfferLetterRepository struct {
	db *gorm.DB
}

func NewOfferLetterRepository(db *gorm.DB) *OfferLetterRepository {
	return &OfferLetterRepository{db: db}
}

func (r *OfferLetterRepository) Create(letter *model.OfferLetter) error {
	return r.db.Create(letter).Error
}

func (r *OfferLetterRepository) GetByID(id int64) (*model.OfferLetter, error) {
	var letter model.OfferLetter
	err := r.db.Where("id = ?", id).First(&letter).Error
	if err != nil {
		return nil, err
	}
	return &letter, nil
}

func (r *OfferLetterRepository) Update(letter *model.OfferLetter) error {
	return r.db.Save(letter).Error
}

// ListByDeal 某个交易的报价函，倒序
func (r *OfferLetterRepository) ListByDeal(dealID int64) ([]*model.OfferLetter, error) {
	var letters []*model.OfferLetter
	err := r.db.Where("deal_id = ?", dealID).
		Order("created_at DESC").
		Find(&letters).Error
	return letters, err
}
