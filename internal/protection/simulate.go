package protection

import (
	"github.com/xela07ax/restguard/internal/domain"
)

// Simulate считает решение для выбранного сценария, не выполняя реального запроса.
// current берет личность вызывающего как есть, остальные сценарии подменяют контекст.
func Simulate(cfg domain.ProtectionConfig, scenario domain.Scenario, current *domain.Identity) domain.TestResult {
	var rc domain.RequestContext
	switch scenario {
	case domain.ScenarioGuest:
		rc = domain.RequestContext{}
	case domain.ScenarioNoCap:
		rc = domain.RequestContext{IsLoggedIn: true}
	case domain.ScenarioHasCap:
		rc = domain.RequestContext{IsLoggedIn: true, HasCapability: true}
	default:
		scenario = domain.ScenarioCurrent
		rc = domain.NewRequestContext(current, cfg.RequiredCapability)
	}

	d := Decide(cfg, rc)
	return domain.TestResult{
		Scenario:       scenario,
		Outcome:        d.Outcome,
		HTTPStatus:     d.HTTPStatus,
		Message:        outcomeMessage(d),
		ProtectionMode: cfg.Mode,
		RequiredCap:    cfg.RequiredCapability,
		Enabled:        cfg.Enabled,
	}
}

func outcomeMessage(d domain.Decision) string {
	switch d.Outcome {
	case domain.OutcomeAllowedSanitized:
		return "Access allowed, user data will be sanitized."
	case domain.OutcomeBlockedUnauthenticated, domain.OutcomeBlockedForbidden:
		return ErrorMessage
	}
	return "Access allowed."
}
