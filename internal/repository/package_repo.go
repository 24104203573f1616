package repository

import (
	"context"
	"errors"

	"shisha/internal/model"

	"gorm.io/gorm"
)

var ErrPackageNotFound = errors.New("套餐不存在")

type PackageRepository struct {
	db *gorm.DB
}

func NewPackageRepository(db *gorm.DB) *PackageRepository {
	return &PackageRepository{db: db}
}

func (r *PackageRepository) GetByID(ctx context.Context, packageID int64) (*model.Package, error) {
	var pkg model.Package
	err := r.db.WithContext(ctx).
		Preload("TimeWindows").
		Where("id = ?", packageID).
		First(&pkg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPackageNotFound
		}
		return nil, err
	}
	return &pkg, nil
}

func (r *PackageRepository) ListEnabled(ctx context.Context) ([]*model.Package, error) {
	var packages []*model.Package
	err := r.db.WithContext(ctx).
		Preload("TimeWindows").
		Where("enabled = ?", true).
		Order("id ASC").
		Find(&packages).Error
	return packages, err
}

// Create 创建套餐（含时段），仅管理员入口可达
func (r *PackageRepository) Create(ctx context.Context, pkg *model.Package) error {
	return r.db.WithContext(ctx).Create(pkg).Error
}

// Update 管理员编辑套餐基本信息；时段整体替换
func (r *PackageRepository) Update(ctx context.Context, pkg *model.Package) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("package_id = ?", pkg.ID).Delete(&model.PackageTimeWindow{}).Error; err != nil {
			return err
		}
		return tx.Save(pkg).Error
	})
}
