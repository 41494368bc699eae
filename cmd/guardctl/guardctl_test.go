package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/restguard/internal/domain"
	"github.com/xela07ax/restguard/internal/modules"
	"go.uber.org/zap"
)

type fakeInstaller struct {
	settings map[int64]domain.Settings
	roles    map[string]domain.Role
	sites    []int64
	listErr  error
}

func newFakeInstaller() *fakeInstaller {
	return &fakeInstaller{settings: map[int64]domain.Settings{}, roles: map[string]domain.Role{}}
}

func (f *fakeInstaller) SeedSettings(_ context.Context, siteID int64, s domain.Settings) (bool, error) {
	if _, ok := f.settings[siteID]; ok {
		return false, nil
	}
	f.settings[siteID] = s
	return true, nil
}

func (f *fakeInstaller) SeedRoles(_ context.Context, roles []domain.Role) (int, error) {
	n := 0
	for _, r := range roles {
		if _, ok := f.roles[r.Name]; ok {
			continue
		}
		f.roles[r.Name] = r
		n++
	}
	return n, nil
}

func (f *fakeInstaller) DeleteSettings(_ context.Context, siteID int64) error {
	delete(f.settings, siteID)
	return nil
}

func (f *fakeInstaller) ListSiteIDs(context.Context) ([]int64, error) {
	return f.sites, f.listErr
}

func TestInstall(t *testing.T) {
	ctx := context.Background()
	repo := newFakeInstaller()
	var out bytes.Buffer

	require.NoError(t, install(ctx, repo, 1, &out, zap.NewNop()))
	s := repo.settings[1]
	assert.True(t, s.Enabled)
	assert.Equal(t, domain.ModeBlock, s.ProtectionMode)
	assert.Equal(t, domain.DefaultCapability, s.RequiredCapability)
	assert.True(t, s.Modules[modules.AuditModule])
	assert.Contains(t, repo.roles, "administrator")
	assert.Contains(t, out.String(), "defaults written for site 1")

	// Повторная установка ничего не перезаписывает
	repo.settings[1] = domain.Settings{ProtectionMode: domain.ModeSanitize}
	out.Reset()
	require.NoError(t, install(ctx, repo, 1, &out, zap.NewNop()))
	assert.Equal(t, domain.ModeSanitize, repo.settings[1].ProtectionMode)
	assert.Contains(t, out.String(), "already configured")
	assert.Contains(t, out.String(), "roles: 0 of")
}

func TestUninstall(t *testing.T) {
	ctx := context.Background()

	t.Run("single site", func(t *testing.T) {
		repo := newFakeInstaller()
		repo.settings[1] = domain.DefaultSettings()
		repo.settings[2] = domain.DefaultSettings()

		require.NoError(t, uninstall(ctx, repo, 1, false, &bytes.Buffer{}, zap.NewNop()))
		assert.NotContains(t, repo.settings, int64(1))
		assert.Contains(t, repo.settings, int64(2))
	})

	t.Run("multisite", func(t *testing.T) {
		repo := newFakeInstaller()
		repo.settings[1] = domain.DefaultSettings()
		repo.settings[2] = domain.DefaultSettings()
		repo.sites = []int64{1, 2}

		require.NoError(t, uninstall(ctx, repo, 1, true, &bytes.Buffer{}, zap.NewNop()))
		assert.Empty(t, repo.settings)
	})

	t.Run("site list failure", func(t *testing.T) {
		repo := newFakeInstaller()
		repo.listErr = errors.New("db down")
		assert.Error(t, uninstall(ctx, repo, 1, true, &bytes.Buffer{}, zap.NewNop()))
	})
}

func TestSimulateCommand(t *testing.T) {
	run := func(t *testing.T, args ...string) []domain.TestResult {
		t.Helper()
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetArgs(append([]string{"simulate"}, args...))
		require.NoError(t, cmd.Execute())

		var res []domain.TestResult
		dec := json.NewDecoder(&out)
		for dec.More() {
			var r domain.TestResult
			require.NoError(t, dec.Decode(&r))
			res = append(res, r)
		}
		return res
	}

	res := run(t, "--mode", "block", "--capability", "list_users")
	require.Len(t, res, 3)
	assert.Equal(t, domain.OutcomeBlockedUnauthenticated, res[0].Outcome)
	assert.Equal(t, domain.OutcomeBlockedForbidden, res[1].Outcome)
	assert.Equal(t, domain.OutcomeAllowed, res[2].Outcome)

	res = run(t, "guest", "--mode", "sanitize")
	require.Len(t, res, 1)
	assert.Equal(t, domain.OutcomeAllowedSanitized, res[0].Outcome)

	res = run(t, "guest", "--mode", "block", "--disabled")
	require.Len(t, res, 1)
	assert.Equal(t, domain.OutcomeAllowed, res[0].Outcome)

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"simulate", "current"})
	assert.Error(t, cmd.Execute())
}
