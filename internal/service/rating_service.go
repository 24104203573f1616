package service

import (
	"context"
	"time"

	"shisha/internal/model"
	"shisha/internal/repository"

	"gorm.io/gorm"
)

// RatingService 核销评价
// 一次核销只能被其发起用户评价一次，重复提交按重复错误拒绝
type RatingService struct {
	ratingRepo *repository.RatingRepository
	recordRepo *repository.RecordRepository
	now        func() time.Time
}

func NewRatingService(db *gorm.DB) *RatingService {
	return &RatingService{
		ratingRepo: repository.NewRatingRepository(db),
		recordRepo: repository.NewRecordRepository(db),
		now:        time.Now,
	}
}

type RateRequest struct {
	UserID       int64  `json:"-"`
	RedemptionNo string `json:"redemption_no" binding:"required"`
	Stars        int    `json:"stars" binding:"required,min=1,max=5"`
	Comment      string `json:"comment"`
}

// Rate 提交评价
// 核销记录必须存在且属于该用户；先查重给出确定性错误，唯一索引兜底并发
func (s *RatingService) Rate(ctx context.Context, req *RateRequest) (*model.Rating, error) {
	record, err := s.recordRepo.GetByRedemptionNo(ctx, req.RedemptionNo)
	if err != nil {
		return nil, err
	}
	if record.UserID != req.UserID {
		return nil, repository.ErrRedemptionNotFound
	}

	exists, err := s.ratingRepo.Exists(ctx, req.UserID, req.RedemptionNo)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, repository.ErrDuplicateRating
	}

	rating := &model.Rating{
		UserID:       req.UserID,
		RedemptionNo: req.RedemptionNo,
		Stars:        req.Stars,
		Comment:      req.Comment,
	}
	if err := s.ratingRepo.Create(ctx, rating); err != nil {
		return nil, err
	}
	return rating, nil
}

func (s *RatingService) ListByRestaurant(ctx context.Context, restaurantID int64, page, pageSize int) ([]*model.Rating, int64, error) {
	return s.ratingRepo.ListByRestaurant(ctx, restaurantID, page, pageSize)
}
