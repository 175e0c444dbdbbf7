package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/minimall-next/internal/config"
	"github.com/minimall-next/internal/logger"
	"github.com/minimall-next/internal/models"
	"github.com/minimall-next/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// JWTClaims 管理端令牌声明
type JWTClaims struct {
	AdminID  uint   `json:"admin_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AuthService 管理端认证服务
type AuthService struct {
	adminRepo repository.AdminRepository
	jwtCfg    config.JWTConfig
}

// NewAuthService 创建认证服务
func NewAuthService(adminRepo repository.AdminRepository, jwtCfg config.JWTConfig) *AuthService {
	if jwtCfg.ExpireHours <= 0 {
		jwtCfg.ExpireHours = 24
	}
	return &AuthService{adminRepo: adminRepo, jwtCfg: jwtCfg}
}

// Login 用户名密码登录，成功返回 JWT
func (s *AuthService) Login(username, password string) (string, *models.Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}

	admin, err := s.adminRepo.GetByUsername(username)
	if err != nil {
		logger.S().Errorw("admin_login_lookup_failed", "username", username, "error", err)
		return "", nil, ErrInvalidCredentials
	}
	if admin == nil {
		logger.S().Warnw("admin_login_unknown_username", "username", username)
		return "", nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		logger.S().Warnw("admin_login_password_rejected", "username", username)
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.GenerateJWT(admin)
	if err != nil {
		logger.S().Errorw("admin_login_token_sign_failed", "username", username, "error", err)
		return "", nil, ErrInvalidCredentials
	}

	now := time.Now()
	admin.LastLoginAt = &now
	if err := s.adminRepo.Update(admin); err != nil {
		logger.S().Warnw("admin_login_timestamp_update_failed", "admin_id", admin.ID, "error", err)
	}
	logger.S().Infow("admin_login_success", "admin_id", admin.ID, "username", admin.Username)
	return token, admin, nil
}

// GenerateJWT 签发管理端令牌
func (s *AuthService) GenerateJWT(admin *models.Admin) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		AdminID:  admin.ID,
		Username: admin.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.jwtCfg.ExpireHours) * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtCfg.SecretKey))
}

// ParseJWT 校验并解析令牌
func (s *AuthService) ParseJWT(tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.jwtCfg.SecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("解析令牌失败: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("令牌无效")
	}
	return claims, nil
}

// GetAdmin 按 ID 获取管理员
func (s *AuthService) GetAdmin(id uint) (*models.Admin, error) {
	admin, err := s.adminRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, ErrInvalidCredentials
	}
	return admin, nil
}

// HashPassword 生成密码哈希
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
