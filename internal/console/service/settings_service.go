package service

import (
	"context"

	"github.com/xela07ax/restguard/internal/domain"
	"github.com/xela07ax/restguard/internal/protection"
)

// TokenMask: так токен обновлений показывается в консоли.
// Если форма вернула маску без изменений, сохраненный токен остается.
const TokenMask = "********"

type SettingsWriter interface {
	Get(ctx context.Context) (domain.Settings, error)
	Mutate(ctx context.Context, fn func(*domain.Settings) error) (domain.Settings, error)
}

type SettingsService struct {
	writer    SettingsWriter
	validator *protection.Validator
}

func NewSettingsService(writer SettingsWriter, validator *protection.Validator) *SettingsService {
	return &SettingsService{writer: writer, validator: validator}
}

func (s *SettingsService) Get(ctx context.Context) (domain.Settings, error) {
	return s.writer.Get(ctx)
}

// Update валидирует форму и сохраняет исправленные значения. Ошибок валидации не бывает:
// неверное значение заменяется безопасным.
func (s *SettingsService) Update(ctx context.Context, raw map[string]any) (domain.Settings, error) {
	return s.writer.Mutate(ctx, func(cur *domain.Settings) error {
		form := make(map[string]any, len(raw))
		for k, v := range raw {
			form[k] = v
		}
		if tok, ok := form[protection.FieldUpdateToken].(string); ok && tok == TokenMask {
			form[protection.FieldUpdateToken] = cur.UpdateToken
		}
		*cur = s.validator.Validate(ctx, form, *cur)
		return nil
	})
}

// Masked: настройки для выдачи наружу.
func Masked(st domain.Settings) domain.Settings {
	if st.UpdateToken != "" {
		st.UpdateToken = TokenMask
	}
	return st
}
