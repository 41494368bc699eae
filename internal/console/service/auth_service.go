package service

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/xela07ax/restguard/internal/capability"
	"github.com/xela07ax/restguard/internal/domain"
	"github.com/xela07ax/restguard/internal/infra/auth"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type AuthProvider interface {
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}

// AuthService выпускает RS256 токены для консоли и шлюза и сам же их проверяет
// (BaseValidator встроен, поэтому сервис реализует auth.TokenValidator).
type AuthService struct {
	*auth.BaseValidator
	repo       AuthProvider
	roles      capability.RoleSource
	privateKey *rsa.PrivateKey
	issuer     string
	ttl        time.Duration
}

func NewAuthService(repo AuthProvider, roles capability.RoleSource, privateKey *rsa.PrivateKey, issuer string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		BaseValidator: auth.NewBaseValidator(&privateKey.PublicKey, issuer),
		repo:          repo,
		roles:         roles,
		privateKey:    privateKey,
		issuer:        issuer,
		ttl:           ttl,
	}
}

func (s *AuthService) GenerateToken(ctx context.Context, username, password string) (*domain.TokenResponse, error) {
	// 1. Аутентификация (Источник правды: Postgres)
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("auth: lookup user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	// 2. Проверка пароля (используем bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 3. Права выводим из ролей пользователя
	caps, err := s.capabilitiesOf(ctx, user.Roles)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	expiresAt := now.Add(s.ttl)
	claims := &domain.CustomClaims{
		UserID:       user.ID,
		Capabilities: caps,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	// 4. Подпись токена ЗАКРЫТЫМ КЛЮЧОМ (RS256)
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signedToken, err := token.SignedString(s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &domain.TokenResponse{
		AccessToken: signedToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.ttl.Seconds()),
	}, nil
}

// capabilitiesOf: объединение прав всех ролей пользователя (только выданные, true).
func (s *AuthService) capabilitiesOf(ctx context.Context, userRoles []string) (map[string]bool, error) {
	caps := make(map[string]bool)
	if len(userRoles) == 0 {
		return caps, nil
	}
	roles, err := s.roles.ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth: load roles: %w", err)
	}
	wanted := make(map[string]struct{}, len(userRoles))
	for _, r := range userRoles {
		wanted[r] = struct{}{}
	}
	for _, role := range roles {
		if _, ok := wanted[role.Name]; !ok {
			continue
		}
		for c, granted := range role.Capabilities {
			if granted {
				caps[c] = true
			}
		}
	}
	return caps, nil
}
