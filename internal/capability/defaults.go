package capability

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/xela07ax/restguard/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed roles.yaml
var defaultRolesYAML []byte

type rolesFile struct {
	Roles []domain.Role `yaml:"roles"`
}

// DefaultRoles: стандартные роли WordPress, которыми guardctl install засевает таблицу roles.
func DefaultRoles() ([]domain.Role, error) {
	return ParseRoles(defaultRolesYAML)
}

// ParseRoles разбирает yaml вида roles: [{name, display_name, capabilities: {cap: true}}].
func ParseRoles(data []byte) ([]domain.Role, error) {
	var f rolesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("capability: invalid roles file: %w", err)
	}
	for i, r := range f.Roles {
		if r.Name == "" {
			return nil, fmt.Errorf("capability: role #%d has no name", i)
		}
	}
	return f.Roles, nil
}

// StaticSource: RoleSource поверх фиксированного списка (CLI без БД, тесты).
type StaticSource []domain.Role

func (s StaticSource) ListRoles(context.Context) ([]domain.Role, error) {
	return s, nil
}
