package domain

import (
	"go.uber.org/zap/zapcore"
)

// Settings: персистентная форма настроек (одна запись на сайт).
type Settings struct {
	Enabled            bool            `json:"enabled"`
	ProtectionMode     ProtectionMode  `json:"protection_mode"`
	RequiredCapability string          `json:"required_capability"`
	UpdateRepoURL      string          `json:"update_repo_url"`
	UpdateToken        string          `json:"update_token"` // Секрет: не логируем, в консоли маскируем
	Modules            map[string]bool `json:"modules,omitempty"`
}

// DefaultSettings: значения, которые подставляются под всё, чего нет в хранилище.
func DefaultSettings() Settings {
	return Settings{
		Enabled:            true,
		ProtectionMode:     ModeBlock,
		RequiredCapability: DefaultCapability,
	}
}

// Protection выводит конфиг движка. Здесь же read-time фолбэки:
// неизвестный режим → Block, пустое право → list_users.
func (s Settings) Protection() ProtectionConfig {
	capability := s.RequiredCapability
	if capability == "" {
		capability = DefaultCapability
	}
	return ProtectionConfig{
		Enabled:            s.Enabled,
		Mode:               ParseMode(string(s.ProtectionMode)),
		RequiredCapability: capability,
	}
}

// ModuleEnabled возвращает флаг модуля из карты (для всех, кроме встроенной защиты).
func (s Settings) ModuleEnabled(id string) bool {
	return s.Modules[id]
}

// MarshalLogObject позволяет писать настройки в zap без токена.
func (s Settings) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddBool("enabled", s.Enabled)
	enc.AddString("protection_mode", string(s.ProtectionMode))
	enc.AddString("required_capability", s.RequiredCapability)
	enc.AddString("update_repo_url", s.UpdateRepoURL)
	enc.AddBool("update_token_set", s.UpdateToken != "")
	return nil
}
