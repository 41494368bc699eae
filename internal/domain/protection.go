package domain

import "net/http"

// ProtectionMode определяет, что делать с неавторизованным запросом к /wp/v2/users
type ProtectionMode string

const (
	ModeBlock    ProtectionMode = "block"    // Отказать (401/403)
	ModeSanitize ProtectionMode = "sanitize" // Пропустить, но обезличить записи
)

// DefaultCapability: право, которое требуется, если в настройках ничего не задано.
const DefaultCapability = "list_users"

// ParseMode гарантирует валидный режим: всё, что не "sanitize" буквально,: это Block.
func ParseMode(s string) ProtectionMode {
	if ProtectionMode(s) == ModeSanitize {
		return ModeSanitize
	}
	return ModeBlock
}

// ProtectionConfig: типизированный срез настроек, который нужен движку решений.
type ProtectionConfig struct {
	Enabled            bool           `json:"enabled"`
	Mode               ProtectionMode `json:"mode"`
	RequiredCapability string         `json:"required_capability"`
}

// RequestContext строится на каждый запрос из личности вызывающего и не хранится.
type RequestContext struct {
	IsLoggedIn    bool `json:"is_logged_in"`
	HasCapability bool `json:"has_capability"`
}

// NewRequestContext выводит контекст из личности.
// Гость никогда не обладает правом, даже если кто-то подсунул ему claims.
func NewRequestContext(id *Identity, capability string) RequestContext {
	if id == nil {
		return RequestContext{}
	}
	return RequestContext{
		IsLoggedIn:    true,
		HasCapability: id.Can(capability),
	}
}

type Outcome string

const (
	OutcomeAllowed                Outcome = "allowed"
	OutcomeAllowedSanitized       Outcome = "allowed_sanitized"
	OutcomeBlockedUnauthenticated Outcome = "blocked_unauthenticated"
	OutcomeBlockedForbidden       Outcome = "blocked_forbidden"
)

// Decision: результат работы движка для одного запроса.
type Decision struct {
	Outcome    Outcome `json:"outcome"`
	HTTPStatus int     `json:"http_status"`
}

func Allow() Decision {
	return Decision{Outcome: OutcomeAllowed, HTTPStatus: http.StatusOK}
}

func AllowSanitized() Decision {
	return Decision{Outcome: OutcomeAllowedSanitized, HTTPStatus: http.StatusOK}
}

func BlockUnauthenticated() Decision {
	return Decision{Outcome: OutcomeBlockedUnauthenticated, HTTPStatus: http.StatusUnauthorized}
}

func BlockForbidden() Decision {
	return Decision{Outcome: OutcomeBlockedForbidden, HTTPStatus: http.StatusForbidden}
}

// Blocked: запрос не должен дойти до WordPress.
func (d Decision) Blocked() bool {
	return d.Outcome == OutcomeBlockedUnauthenticated || d.Outcome == OutcomeBlockedForbidden
}

// UserRecord: одна запись пользователя в ответе REST API (name, slug, avatar_urls, meta ...).
type UserRecord map[string]any
