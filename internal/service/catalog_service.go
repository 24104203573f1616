package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shisha/internal/model"
	"shisha/internal/repository"

	"gorm.io/gorm"
)

var ErrInvalidTimeWindow = errors.New("时段配置不合法")

// CatalogService 套餐目录与餐厅管理
// 读取面向所有人，写入仅管理员入口可达（权限在处理器层校验）
type CatalogService struct {
	packageRepo *repository.PackageRepository
	restRepo    *repository.RestaurantRepository
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{
		packageRepo: repository.NewPackageRepository(db),
		restRepo:    repository.NewRestaurantRepository(db),
	}
}

func (s *CatalogService) ListPackages(ctx context.Context) ([]*model.Package, error) {
	return s.packageRepo.ListEnabled(ctx)
}

func (s *CatalogService) GetPackage(ctx context.Context, packageID int64) (*model.Package, error) {
	return s.packageRepo.GetByID(ctx, packageID)
}

type TimeWindowInput struct {
	StartMinute int    `json:"start_minute" binding:"min=0,max=1439"`
	EndMinute   int    `json:"end_minute" binding:"min=1,max=1440"`
	Timezone    string `json:"timezone"`
}

type SavePackageRequest struct {
	Name         string            `json:"name" binding:"required"`
	NameEn       string            `json:"name_en"`
	Count        int               `json:"count" binding:"required,gt=0"`
	Price        int64             `json:"price" binding:"required,gt=0"`
	Badge        string            `json:"badge"`
	DurationDays *int              `json:"duration_days"`
	Enabled      *bool             `json:"enabled"`
	TimeWindows  []TimeWindowInput `json:"time_windows"`
}

// CreatePackage 新建套餐
func (s *CatalogService) CreatePackage(ctx context.Context, req *SavePackageRequest) (*model.Package, error) {
	pkg, err := buildPackage(req)
	if err != nil {
		return nil, err
	}
	if err := s.packageRepo.Create(ctx, pkg); err != nil {
		return nil, err
	}
	return pkg, nil
}

// UpdatePackage 编辑套餐，时段整体替换
func (s *CatalogService) UpdatePackage(ctx context.Context, packageID int64, req *SavePackageRequest) (*model.Package, error) {
	existing, err := s.packageRepo.GetByID(ctx, packageID)
	if err != nil {
		return nil, err
	}

	pkg, err := buildPackage(req)
	if err != nil {
		return nil, err
	}
	pkg.ID = existing.ID
	pkg.CreatedAt = existing.CreatedAt
	for i := range pkg.TimeWindows {
		pkg.TimeWindows[i].PackageID = existing.ID
	}

	if err := s.packageRepo.Update(ctx, pkg); err != nil {
		return nil, err
	}
	return pkg, nil
}

func buildPackage(req *SavePackageRequest) (*model.Package, error) {
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	pkg := &model.Package{
		Name:         req.Name,
		NameEn:       req.NameEn,
		Count:        req.Count,
		Price:        req.Price,
		Badge:        req.Badge,
		DurationDays: req.DurationDays,
		Enabled:      enabled,
	}

	for _, w := range req.TimeWindows {
		if w.StartMinute < 0 || w.EndMinute > 1440 || w.StartMinute >= w.EndMinute {
			return nil, fmt.Errorf("%w: [%d, %d)", ErrInvalidTimeWindow, w.StartMinute, w.EndMinute)
		}
		tz := w.Timezone
		if tz == "" {
			tz = "Asia/Riyadh"
		}
		if _, err := time.LoadLocation(tz); err != nil {
			return nil, fmt.Errorf("%w: 未知时区 %s", ErrInvalidTimeWindow, tz)
		}
		pkg.TimeWindows = append(pkg.TimeWindows, model.PackageTimeWindow{
			StartMinute: w.StartMinute,
			EndMinute:   w.EndMinute,
			Timezone:    tz,
		})
	}

	return pkg, nil
}

func (s *CatalogService) ListRestaurants(ctx context.Context) ([]*model.Restaurant, error) {
	return s.restRepo.ListActive(ctx)
}

func (s *CatalogService) GetRestaurant(ctx context.Context, restaurantID int64) (*model.Restaurant, error) {
	return s.restRepo.GetByID(ctx, restaurantID)
}

type CreateRestaurantRequest struct {
	Name                 string `json:"name" binding:"required"`
	Phone                string `json:"phone"`
	CommissionPercentage *int   `json:"commission_percentage"`
}

// CreateRestaurant 新增合作餐厅
func (s *CatalogService) CreateRestaurant(ctx context.Context, req *CreateRestaurantRequest) (*model.Restaurant, error) {
	if req.CommissionPercentage != nil {
		pct := *req.CommissionPercentage
		if pct < 0 || pct > 100 {
			return nil, fmt.Errorf("%w: 佣金比例 %d", ErrInvalidQuantity, pct)
		}
	}

	restaurant := &model.Restaurant{
		Name:                 req.Name,
		Phone:                req.Phone,
		Active:               true,
		CommissionPercentage: req.CommissionPercentage,
	}
	if err := s.restRepo.Create(ctx, restaurant); err != nil {
		return nil, err
	}
	return restaurant, nil
}
