package auth

import (
	"context"

	"github.com/xela07ax/restguard/internal/domain"
)

// Тип для ключа в контексте (избегаем коллизий)
type ctxKey string

const identityKey ctxKey = "identity"

// WithIdentity кладет аутентифицированного пользователя в контекст.
func WithIdentity(ctx context.Context, id *domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext возвращает nil для гостя.
func IdentityFromContext(ctx context.Context) *domain.Identity {
	id, _ := ctx.Value(identityKey).(*domain.Identity)
	return id
}

// IdentityFromClaims: права берем из токена как есть.
func IdentityFromClaims(c *domain.CustomClaims) *domain.Identity {
	if c == nil {
		return nil
	}
	caps := make(map[string]bool, len(c.Capabilities))
	for k, v := range c.Capabilities {
		if v {
			caps[k] = true
		}
	}
	return &domain.Identity{UserID: c.UserID, Capabilities: caps}
}
