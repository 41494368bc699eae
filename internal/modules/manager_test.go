package modules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/restguard/internal/domain"
)

type memSettings struct {
	s       domain.Settings
	mutates int
}

func (m *memSettings) Get(context.Context) (domain.Settings, error) {
	return m.s, nil
}

func (m *memSettings) Mutate(_ context.Context, fn func(*domain.Settings) error) (domain.Settings, error) {
	m.mutates++
	if err := fn(&m.s); err != nil {
		return domain.Settings{}, err
	}
	return m.s, nil
}

func TestModulesSortedByPriority(t *testing.T) {
	m := NewManager(&memSettings{s: domain.DefaultSettings()})
	require.NoError(t, m.Register(domain.Module{ID: "early", Name: "Early", Priority: 1}))
	require.NoError(t, m.Register(domain.Module{ID: "plain", Name: "Plain"}))
	assert.Error(t, m.Register(domain.Module{ID: "nameless"}))

	var ids []string
	for _, mod := range m.Modules() {
		ids = append(ids, mod.ID)
	}
	assert.Equal(t, []string{"early", "plain", ProtectionModule, AuditModule}, ids)
}

func TestToggleProtectionModule(t *testing.T) {
	ctx := context.Background()
	store := &memSettings{s: domain.DefaultSettings()}
	m := NewManager(store)

	s, err := m.Disable(ctx, ProtectionModule)
	require.NoError(t, err)
	assert.False(t, s.Enabled)
	assert.False(t, m.IsEnabled(store.s, ProtectionModule))

	s, err = m.Enable(ctx, ProtectionModule)
	require.NoError(t, err)
	assert.True(t, s.Enabled)
}

func TestToggleRegularModule(t *testing.T) {
	ctx := context.Background()
	store := &memSettings{s: domain.DefaultSettings()}
	m := NewManager(store)

	assert.False(t, m.IsEnabled(store.s, AuditModule))

	_, err := m.Enable(ctx, AuditModule)
	require.NoError(t, err)
	assert.True(t, store.s.Modules[AuditModule])
	assert.Equal(t, []string{ProtectionModule, AuditModule}, m.EnabledIDs(store.s))

	_, err = m.Disable(ctx, AuditModule)
	require.NoError(t, err)
	_, present := store.s.Modules[AuditModule]
	assert.False(t, present)
}

func TestToggleRejected(t *testing.T) {
	ctx := context.Background()
	store := &memSettings{s: domain.DefaultSettings()}
	m := NewManager(store)
	require.NoError(t, m.Register(domain.Module{ID: "core", Name: "Core", Locked: true}))

	_, err := m.Disable(ctx, "core")
	assert.ErrorIs(t, err, ErrModuleLocked)

	_, err = m.Enable(ctx, "missing")
	assert.ErrorIs(t, err, ErrUnknownModule)

	assert.Zero(t, store.mutates)
	assert.True(t, m.IsEnabled(store.s, "core"), "locked module is always active")
}

func TestStatesAndDefaults(t *testing.T) {
	s := domain.DefaultSettings()
	m := NewManager(&memSettings{s: s})
	m.ApplyDefaults(&s)
	assert.Equal(t, map[string]bool{AuditModule: true}, s.Modules)
	assert.True(t, s.Enabled)

	m2 := NewManager(&memSettings{s: s})
	states, err := m2.States(context.Background())
	require.NoError(t, err)
	require.Len(t, states, 2)
	for _, st := range states {
		assert.True(t, st.Active, st.ID)
	}
}
