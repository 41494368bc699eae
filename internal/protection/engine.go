// Package protection содержит политику доступа к /wp/v2/users:
// движок решений, обезличивание записей и валидацию настроек на запись.
package protection

import "github.com/xela07ax/restguard/internal/domain"

// Сообщение статичное: не раскрываем, какое именно право требуется.
const (
	ErrorCode    = "rest_user_cannot_view"
	ErrorMessage = "Sorry, you are not allowed to view the users endpoint."
)

// Decide: чистая функция политики. Порядок проверок важен: условия не взаимоисключающие.
func Decide(cfg domain.ProtectionConfig, rc domain.RequestContext) domain.Decision {
	// 1. Защита выключена: эндпоинт ведет себя как незащищенный
	if !cfg.Enabled {
		return domain.Allow()
	}

	// 2. Sanitize: гость и залогиненный без права не различаются
	if cfg.Mode == domain.ModeSanitize {
		if !rc.HasCapability {
			return domain.AllowSanitized()
		}
		return domain.Allow()
	}

	// 3. Block (сюда же попадает любой нераспознанный режим)
	if !rc.IsLoggedIn {
		return domain.BlockUnauthenticated()
	}
	if !rc.HasCapability {
		return domain.BlockForbidden()
	}
	return domain.Allow()
}

// DecideFor: удобная обертка: контекст строится из личности вызывающего.
func DecideFor(cfg domain.ProtectionConfig, id *domain.Identity) domain.Decision {
	return Decide(cfg, domain.NewRequestContext(id, cfg.RequiredCapability))
}
