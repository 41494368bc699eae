package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type CustomClaims struct {
	UserID       string          `json:"user_id"`
	Capabilities map[string]bool `json:"capabilities"` // "list_users": true, "manage_options": true
	jwt.RegisteredClaims
}

// Secure Token Issuing
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"` // Всегда "Bearer"
	ExpiresIn   int64  `json:"expires_in"`
}

// User: учетная запись консоли/сайта. Права выводятся из ролей.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Никогда не отправляем на фронт
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity: аутентифицированный вызывающий. nil означает гостя.
type Identity struct {
	UserID       string
	Capabilities map[string]bool
}

// Can: буквальный поиск права, без дополнительной валидации имени.
func (i *Identity) Can(capability string) bool {
	if i == nil {
		return false
	}
	return i.Capabilities[capability]
}

// Role: роль хоста с набором прав.
type Role struct {
	Name         string          `json:"name" yaml:"name"`
	DisplayName  string          `json:"display_name" yaml:"display_name"`
	Capabilities map[string]bool `json:"capabilities" yaml:"capabilities"`
}
