package repository

import (
	"context"
	"errors"

	"shisha/internal/model"

	"gorm.io/gorm"
)

var ErrDuplicateRating = errors.New("该核销已评价过")

type RatingRepository struct {
	db *gorm.DB
}

func NewRatingRepository(db *gorm.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Create 写入评价
// (user_id, redemption_no) 唯一索引兜底，并发下撞索引同样返回重复错误
func (r *RatingRepository) Create(ctx context.Context, rating *model.Rating) error {
	err := r.db.WithContext(ctx).Create(rating).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateRating
		}
		return err
	}
	return nil
}

// Exists 查询用户是否已评价过某次核销
func (r *RatingRepository) Exists(ctx context.Context, userID int64, redemptionNo string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Rating{}).
		Where("user_id = ? AND redemption_no = ?", userID, redemptionNo).
		Count(&count).Error
	return count > 0, err
}

func (r *RatingRepository) ListByRestaurant(ctx context.Context, restaurantID int64, page, pageSize int) ([]*model.Rating, int64, error) {
	// 评价通过核销流水间接关联餐厅
	sub := r.db.Model(&model.ConsumptionRecord{}).
		Select("redemption_no").
		Where("restaurant_id = ?", restaurantID)

	query := r.db.WithContext(ctx).Model(&model.Rating{}).Where("redemption_no IN (?)", sub)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ratings []*model.Rating
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&ratings).Error

	return ratings, total, err
}
