package domain

// Scenario: симулируемый вызывающий для диагностики "что будет, если".
type Scenario string

const (
	ScenarioCurrent Scenario = "current" // Текущий админ как есть
	ScenarioGuest   Scenario = "guest"   // Не залогинен
	ScenarioNoCap   Scenario = "no_cap"  // Залогинен, но без права
	ScenarioHasCap  Scenario = "has_cap" // Залогинен и с правом
)

func (s Scenario) Valid() bool {
	switch s {
	case ScenarioCurrent, ScenarioGuest, ScenarioNoCap, ScenarioHasCap:
		return true
	}
	return false
}

// TestResult: ответ диагностического эндпоинта.
type TestResult struct {
	Scenario       Scenario       `json:"scenario"`
	Outcome        Outcome        `json:"outcome"`
	HTTPStatus     int            `json:"http_status"`
	Message        string         `json:"message"`
	ProtectionMode ProtectionMode `json:"protection_mode"`
	RequiredCap    string         `json:"required_cap"`
	Enabled        bool           `json:"enabled"`
}
