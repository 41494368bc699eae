package auth

import (
	"net/http"

	"github.com/xela07ax/restguard/internal/domain"
	"go.uber.org/zap"
)

// TokenValidator: интерфейс, который должны реализовать и шлюз, и консоль
type TokenValidator interface {
	VerifyToken(tokenStr string) (*domain.CustomClaims, error)
}

// NewMiddleware: обязательная аутентификация (периметр консоли).
func NewMiddleware(v TokenValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := v.VerifyToken(authHeader)
			if err != nil {
				logger.Warn("auth failure", zap.Error(err))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			// Прокидываем данные в контекст
			ctx := WithIdentity(r.Context(), IdentityFromClaims(claims))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewOptionalMiddleware: для шлюза: без токена или с битым токеном вызывающий просто гость.
// Решение, пускать ли гостя, принимает движок политики, а не этот слой.
func NewOptionalMiddleware(v TokenValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := v.VerifyToken(authHeader)
			if err != nil {
				logger.Debug("invalid token, treating caller as guest", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), IdentityFromClaims(claims))))
		})
	}
}

// RequireCapability пропускает только пользователей с правом (для консоли это manage_options).
func RequireCapability(capability string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFromContext(r.Context())
			if id == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if !id.Can(capability) {
				http.Error(w, "You do not have sufficient permissions to access this page.", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
