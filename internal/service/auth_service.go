package service

import (
	"context"
	"log"
	"time"

	"shisha/internal/auth"
	"shisha/internal/config"
	"shisha/internal/repository"

	"gorm.io/gorm"
)

// AuthService 登录认证
// 手机号 + 登录码换取 JWT，首次登录自动注册普通用户
type AuthService struct {
	cfg         *config.Config
	codeService *CodeService
	codeRepo    *repository.CodeRepository
	userRepo    *repository.UserRepository
	now         func() time.Time
}

func NewAuthService(db *gorm.DB, cfg *config.Config) *AuthService {
	return &AuthService{
		cfg:         cfg,
		codeService: NewCodeService(db, cfg),
		codeRepo:    repository.NewCodeRepository(db),
		userRepo:    repository.NewUserRepository(db),
		now:         time.Now,
	}
}

// RequestLoginCode 请求登录码，新码签发后旧码立即失效
func (s *AuthService) RequestLoginCode(ctx context.Context, phone string) (*IssueLoginCodeResponse, error) {
	return s.codeService.IssueLoginCode(ctx, phone)
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Kind      string    `json:"kind"`
	UserID    int64     `json:"user_id"`
}

// VerifyLoginCode 校验登录码并签发令牌
// 码的认领是条件更新，同一个码并发登录只有一次会成功
func (s *AuthService) VerifyLoginCode(ctx context.Context, phone, code string) (*LoginResponse, error) {
	now := s.now()

	otc, err := s.codeRepo.GetLoginCode(ctx, phone, code)
	if err != nil {
		return nil, err
	}
	if otc.IsExpired(now) {
		return nil, ErrCodeExpired
	}
	if err := s.codeRepo.MarkUsed(ctx, nil, otc.ID, now); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetOrCreateByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}

	principal := auth.PrincipalFromUser(user)
	ttl := time.Duration(s.cfg.Auth.TokenTTLHours) * time.Hour
	token, err := auth.GenerateToken(s.cfg.Auth.JWTSecret, ttl, principal, now)
	if err != nil {
		return nil, err
	}

	log.Printf("登录成功: userID=%d, kind=%s", user.ID, principal.Kind)

	return &LoginResponse{
		Token:     token,
		ExpiresAt: now.Add(ttl),
		Kind:      principal.Kind,
		UserID:    user.ID,
	}, nil
}

// DeleteUser 删除用户，管理员账号受保护（仓储层直接拒绝）
func (s *AuthService) DeleteUser(ctx context.Context, userID int64) error {
	return s.userRepo.Delete(ctx, userID)
}
