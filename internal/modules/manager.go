// Package modules: реестр защитных модулей, которые администратор включает и выключает из консоли.
package modules

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/xela07ax/restguard/internal/domain"
)

const (
	// ProtectionModule: встроенная защита /wp/v2/users, ее флаг это Settings.Enabled.
	ProtectionModule = "rest_users_protection"
	// AuditModule: журнал решений шлюза.
	AuditModule = "access_audit"

	defaultPriority = 10
)

var (
	ErrUnknownModule = errors.New("unknown module")
	ErrModuleLocked  = errors.New("module is locked")
)

// SettingsAccess: путь чтения/записи настроек (settings.Writer).
type SettingsAccess interface {
	Get(ctx context.Context) (domain.Settings, error)
	Mutate(ctx context.Context, fn func(*domain.Settings) error) (domain.Settings, error)
}

type Manager struct {
	settings SettingsAccess

	mu      sync.RWMutex
	modules map[string]domain.Module
}

func NewManager(settings SettingsAccess) *Manager {
	m := &Manager{settings: settings, modules: make(map[string]domain.Module)}
	for _, mod := range Builtin() {
		_ = m.Register(mod)
	}
	return m
}

// Builtin: модули, которые есть всегда.
func Builtin() []domain.Module {
	return []domain.Module{
		{
			ID:          ProtectionModule,
			Name:        "REST Users Protection",
			Description: "Restrict access to /wp/v2/users REST endpoint based on capabilities.",
			Enabled:     true,
			HasSettings: true,
			Priority:    defaultPriority,
		},
		{
			ID:          AuditModule,
			Name:        "Access Audit",
			Description: "Record every decision taken on the users endpoint.",
			Enabled:     true,
			Priority:    20,
		},
	}
}

// Register добавляет модуль. Модуль без имени не регистрируется.
func (m *Manager) Register(mod domain.Module) error {
	if mod.ID == "" || mod.Name == "" {
		return fmt.Errorf("module %q: id and name are required", mod.ID)
	}
	if mod.Priority == 0 {
		mod.Priority = defaultPriority
	}
	m.mu.Lock()
	m.modules[mod.ID] = mod
	m.mu.Unlock()
	return nil
}

// Modules: зарегистрированные модули по приоритету.
func (m *Manager) Modules() []domain.Module {
	m.mu.RLock()
	out := make([]domain.Module, 0, len(m.modules))
	for _, mod := range m.modules {
		out = append(out, mod)
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *Manager) Module(id string) (domain.Module, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mod, ok := m.modules[id]
	return mod, ok
}

// IsEnabled вычисляет состояние модуля по настройкам. Locked-модуль активен всегда.
func (m *Manager) IsEnabled(s domain.Settings, id string) bool {
	if mod, ok := m.Module(id); ok && mod.Locked {
		return true
	}
	if id == ProtectionModule {
		return s.Enabled
	}
	return s.ModuleEnabled(id)
}

// EnabledIDs: id активных модулей в порядке приоритета.
func (m *Manager) EnabledIDs(s domain.Settings) []string {
	ids := make([]string, 0)
	for _, mod := range m.Modules() {
		if m.IsEnabled(s, mod.ID) {
			ids = append(ids, mod.ID)
		}
	}
	return ids
}

// States: модули вместе с текущим состоянием (для консоли).
func (m *Manager) States(ctx context.Context) ([]domain.ModuleState, error) {
	s, err := m.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	mods := m.Modules()
	out := make([]domain.ModuleState, 0, len(mods))
	for _, mod := range mods {
		out = append(out, domain.ModuleState{Module: mod, Active: m.IsEnabled(s, mod.ID)})
	}
	return out, nil
}

func (m *Manager) Enable(ctx context.Context, id string) (domain.Settings, error) {
	return m.toggle(ctx, id, true)
}

func (m *Manager) Disable(ctx context.Context, id string) (domain.Settings, error) {
	return m.toggle(ctx, id, false)
}

func (m *Manager) toggle(ctx context.Context, id string, on bool) (domain.Settings, error) {
	mod, ok := m.Module(id)
	if !ok {
		return domain.Settings{}, fmt.Errorf("%w: %s", ErrUnknownModule, id)
	}
	if mod.Locked {
		return domain.Settings{}, fmt.Errorf("%w: %s", ErrModuleLocked, id)
	}

	return m.settings.Mutate(ctx, func(s *domain.Settings) error {
		Apply(s, id, on)
		return nil
	})
}

// Apply меняет флаг модуля в настройках. Выключенный модуль удаляется из карты.
func Apply(s *domain.Settings, id string, on bool) {
	if id == ProtectionModule {
		s.Enabled = on
		return
	}
	if on {
		if s.Modules == nil {
			s.Modules = make(map[string]bool)
		}
		s.Modules[id] = true
		return
	}
	delete(s.Modules, id)
}

// ApplyDefaults включает модули, которые по умолчанию активны (для установки).
func (m *Manager) ApplyDefaults(s *domain.Settings) {
	for _, mod := range m.Modules() {
		if mod.ID != ProtectionModule && mod.Enabled {
			Apply(s, mod.ID, true)
		}
	}
}
