package repository

import (
	"context"
	"errors"

	"shisha/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUserNotFound = errors.New("用户不存在")
	// ErrProtectedEntity 管理员账号不可删除
	// 这是仓储层的显式策略，不依赖存储引擎的生命周期钩子
	ErrProtectedEntity = errors.New("受保护的实体，禁止删除")
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetOrCreateByPhone 登录验证通过后按手机号取用户，没有则注册普通用户
func (r *UserRepository) GetOrCreateByPhone(ctx context.Context, phone string) (*model.User, error) {
	user, err := r.GetByPhone(ctx, phone)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	newUser := &model.User{
		Phone: phone,
		Role:  model.RoleUser,
	}

	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "phone"}},
			DoNothing: true,
		}).
		Create(newUser).Error
	if err != nil {
		return nil, err
	}

	return r.GetByPhone(ctx, phone)
}

// Delete 删除用户
// 管理员账号直接拒绝（ErrProtectedEntity），防止误删最后一个管理员
func (r *UserRepository) Delete(ctx context.Context, userID int64) error {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.Role == model.RoleAdmin {
		return ErrProtectedEntity
	}

	return r.db.WithContext(ctx).Delete(&model.User{}, userID).Error
}
