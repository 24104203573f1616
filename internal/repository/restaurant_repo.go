package repository

import (
	"context"
	"errors"

	"shisha/internal/model"

	"gorm.io/gorm"
)

var ErrRestaurantNotFound = errors.New("餐厅不存在")

type RestaurantRepository struct {
	db *gorm.DB
}

func NewRestaurantRepository(db *gorm.DB) *RestaurantRepository {
	return &RestaurantRepository{db: db}
}

func (r *RestaurantRepository) GetByID(ctx context.Context, restaurantID int64) (*model.Restaurant, error) {
	var restaurant model.Restaurant
	err := r.db.WithContext(ctx).Where("id = ?", restaurantID).First(&restaurant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRestaurantNotFound
		}
		return nil, err
	}
	return &restaurant, nil
}

func (r *RestaurantRepository) ListActive(ctx context.Context) ([]*model.Restaurant, error) {
	var restaurants []*model.Restaurant
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("id ASC").
		Find(&restaurants).Error
	return restaurants, err
}

func (r *RestaurantRepository) Create(ctx context.Context, restaurant *model.Restaurant) error {
	return r.db.WithContext(ctx).Create(restaurant).Error
}

// MapByIDs 按ID批量取餐厅，结算汇总填名称用
func (r *RestaurantRepository) MapByIDs(ctx context.Context, ids []int64) (map[int64]*model.Restaurant, error) {
	var restaurants []*model.Restaurant
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&restaurants).Error
	if err != nil {
		return nil, err
	}

	result := make(map[int64]*model.Restaurant, len(restaurants))
	for _, restaurant := range restaurants {
		result[restaurant.ID] = restaurant
	}
	return result, nil
}
