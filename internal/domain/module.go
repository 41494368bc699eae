package domain

// Module: подключаемый защитный модуль (патч), который админ может включать/выключать.
type Module struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"` // Значение по умолчанию при регистрации
	Locked      bool   `json:"locked"`  // Locked-модуль всегда активен и не переключается
	HasSettings bool   `json:"has_settings"`
	Priority    int    `json:"priority"`
}

// ModuleState: модуль вместе с его текущим состоянием для выдачи в консоль.
type ModuleState struct {
	Module
	Active bool `json:"active"`
}
