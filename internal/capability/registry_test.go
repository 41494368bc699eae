package capability

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/restguard/internal/domain"
	"go.uber.org/zap"
)

type MockRoleSource struct {
	mock.Mock
}

func (m *MockRoleSource) ListRoles(ctx context.Context) ([]domain.Role, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Role), args.Error(1)
}

func TestRegistryCapabilities(t *testing.T) {
	ctx := context.Background()

	t.Run("union of common set and roles, deduplicated and sorted", func(t *testing.T) {
		src := new(MockRoleSource)
		src.On("ListRoles", mock.Anything).Return([]domain.Role{
			{Name: "shop_manager", Capabilities: map[string]bool{"Manage_Woocommerce": true, "read": true}},
			{Name: "seo", Capabilities: map[string]bool{"aioseo_manage": false}},
		}, nil).Once()

		r := NewRegistry(src, zap.NewNop())
		caps := r.Capabilities(ctx)

		assert.Contains(t, caps, "Manage_Woocommerce")
		assert.Contains(t, caps, "aioseo_manage")
		assert.Len(t, caps, len(common)+2)
		assert.Equal(t, "activate_plugins", caps[0])
		assert.IsIncreasing(t, lowered(caps))
		src.AssertExpectations(t)
	})

	t.Run("computed once and cached", func(t *testing.T) {
		src := new(MockRoleSource)
		src.On("ListRoles", mock.Anything).Return([]domain.Role{}, nil).Once()

		r := NewRegistry(src, zap.NewNop())
		r.Capabilities(ctx)
		r.Capabilities(ctx)
		assert.True(t, r.Exists(ctx, "list_users"))

		src.AssertNumberOfCalls(t, "ListRoles", 1)
	})

	t.Run("role changes are visible only after refresh", func(t *testing.T) {
		src := new(MockRoleSource)
		src.On("ListRoles", mock.Anything).Return([]domain.Role{}, nil).Once()
		src.On("ListRoles", mock.Anything).Return([]domain.Role{
			{Name: "auditor", Capabilities: map[string]bool{"view_audit": true}},
		}, nil).Once()

		r := NewRegistry(src, zap.NewNop())
		assert.False(t, r.Exists(ctx, "view_audit"))
		assert.False(t, r.Exists(ctx, "view_audit"))

		caps, err := r.Refresh(ctx)
		require.NoError(t, err)
		assert.Contains(t, caps, "view_audit")
		assert.True(t, r.Exists(ctx, "view_audit"))
		src.AssertExpectations(t)
	})

	t.Run("source failure falls back to common set and is not cached", func(t *testing.T) {
		src := new(MockRoleSource)
		src.On("ListRoles", mock.Anything).Return(nil, errors.New("db down")).Once()
		src.On("ListRoles", mock.Anything).Return([]domain.Role{}, nil).Once()

		r := NewRegistry(src, zap.NewNop())
		assert.True(t, r.Exists(ctx, "manage_options"))
		assert.Len(t, r.Capabilities(ctx), len(common))
		src.AssertNumberOfCalls(t, "ListRoles", 2)
	})

	t.Run("membership is case sensitive", func(t *testing.T) {
		r := NewRegistry(nil, zap.NewNop())
		assert.True(t, r.Exists(ctx, "list_users"))
		assert.False(t, r.Exists(ctx, "LIST_USERS"))
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		r := NewRegistry(nil, zap.NewNop())
		caps := r.Capabilities(ctx)
		caps[0] = "tampered"
		assert.NotEqual(t, "tampered", r.Capabilities(ctx)[0])
	})
}

func TestDefaultRoles(t *testing.T) {
	roles, err := DefaultRoles()
	require.NoError(t, err)
	require.Len(t, roles, 5)
	assert.Equal(t, "administrator", roles[0].Name)
	assert.True(t, roles[0].Capabilities["list_users"])
	assert.True(t, roles[4].Capabilities["read"])

	r := NewRegistry(StaticSource(roles), zap.NewNop())
	assert.True(t, r.Exists(context.Background(), "promote_users"))
}

func TestParseRolesRejectsNameless(t *testing.T) {
	_, err := ParseRoles([]byte("roles:\n  - capabilities: {read: true}\n"))
	assert.Error(t, err)
}

func lowered(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
