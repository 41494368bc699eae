package protection

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"unicode"

	"github.com/spf13/cast"
	"github.com/xela07ax/restguard/internal/domain"
)

// Ключи формы настроек
const (
	FieldEnabled            = "enabled"
	FieldProtectionMode     = "protection_mode"
	FieldRequiredCapability = "required_capability"
	FieldUpdateRepoURL      = "update_repo_url"
	FieldUpdateToken        = "update_token"
)

// CapabilitySet: реестр известных прав, против которого проверяется ввод.
type CapabilitySet interface {
	Exists(ctx context.Context, capability string) bool
}

// Validator нормализует сырой ввод формы в типизированные настройки.
// Ошибок не возвращает: всё некорректное молча приводится к безопасному значению.
type Validator struct {
	caps CapabilitySet
}

func NewValidator(caps CapabilitySet) *Validator {
	return &Validator{caps: caps}
}

// Validate строит Settings из формы. Modules переносится из текущих настроек как есть,
// их меняет только менеджер модулей.
func (v *Validator) Validate(ctx context.Context, raw map[string]any, current domain.Settings) domain.Settings {
	out := domain.Settings{
		Enabled:            coerceBool(raw[FieldEnabled]),
		ProtectionMode:     validateMode(raw[FieldProtectionMode]),
		RequiredCapability: v.validateCapability(ctx, raw[FieldRequiredCapability]),
		UpdateRepoURL:      validateRepoURL(raw[FieldUpdateRepoURL]),
		UpdateToken:        validateToken(raw[FieldUpdateToken]),
		Modules:            current.Modules,
	}
	return out
}

// validateMode: только буквальное совпадение, регистр важен.
func validateMode(v any) domain.ProtectionMode {
	s, ok := v.(string)
	if !ok {
		return domain.ModeBlock
	}
	switch domain.ProtectionMode(s) {
	case domain.ModeBlock, domain.ModeSanitize:
		return domain.ProtectionMode(s)
	}
	return domain.ModeBlock
}

// validateCapability не дает подсунуть произвольное имя права:
// имя потом напрямую используется в проверке авторизации.
func (v *Validator) validateCapability(ctx context.Context, raw any) string {
	capability := StripCapability(cast.ToString(raw))
	if capability == "" || v.caps == nil || !v.caps.Exists(ctx, capability) {
		return domain.DefaultCapability
	}
	return capability
}

// StripCapability оставляет только [a-z0-9_-].
func StripCapability(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func validateRepoURL(raw any) string {
	s := strings.TrimSpace(cast.ToString(raw))
	if s == "" {
		return ""
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return u.String()
}

func validateToken(raw any) string {
	s := strings.TrimSpace(cast.ToString(raw))
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// coerceBool повторяет семантику чекбокса формы: отсутствие и "пустые" значения → false.
func coerceBool(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "", "0", "false", "off", "no":
			return false
		}
		return true
	case json.Number:
		f, err := b.Float64()
		return err == nil && f != 0
	}

	f, err := cast.ToFloat64E(v)
	if err != nil {
		return false
	}
	return f != 0
}
