package updater

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// NormalizeVersion: тег без одного префикса "v" или "V" ("vv1.2" остается "v1.2").
func NormalizeVersion(tag string) string {
	tag = strings.TrimSpace(tag)
	if strings.HasPrefix(tag, "v") || strings.HasPrefix(tag, "V") {
		return tag[1:]
	}
	return tag
}

// IsNewer: remote строго больше current.
func IsNewer(current, remote string) (bool, error) {
	cur, err := semver.NewVersion(NormalizeVersion(current))
	if err != nil {
		return false, fmt.Errorf("bad current version %q: %w", current, err)
	}
	rem, err := semver.NewVersion(NormalizeVersion(remote))
	if err != nil {
		return false, fmt.Errorf("bad remote version %q: %w", remote, err)
	}
	return rem.GreaterThan(cur), nil
}
