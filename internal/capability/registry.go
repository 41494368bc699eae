package capability

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/xela07ax/restguard/internal/domain"
	"go.uber.org/zap"
)

// RoleSource: откуда берутся роли хоста (Postgres, yaml и т.п.)
type RoleSource interface {
	ListRoles(ctx context.Context) ([]domain.Role, error)
}

// common: базовый набор прав, чтобы в селекте всегда были полезные варианты.
var common = []string{
	"read",
	"list_users",
	"manage_options",
	"edit_posts",
	"edit_pages",
	"publish_posts",
	"delete_posts",
	"moderate_comments",
	"install_plugins",
	"activate_plugins",
	"edit_theme_options",
	"manage_categories",
}

// Registry: ленивый кэш известных прав. Вычисляется один раз и живет, пока жив владелец.
// Изменения ролей после первого вычисления не видны до Refresh().
type Registry struct {
	source RoleSource
	logger *zap.Logger

	mu     sync.RWMutex
	caps   []string
	index  map[string]struct{}
	loaded bool
}

func NewRegistry(source RoleSource, logger *zap.Logger) *Registry {
	return &Registry{
		source: source,
		logger: logger.Named("capabilities"),
	}
}

// Capabilities возвращает отсортированный список (копию).
func (r *Registry) Capabilities(ctx context.Context) []string {
	r.mu.RLock()
	if r.loaded {
		out := slices.Clone(r.caps)
		r.mu.RUnlock()
		return out
	}
	r.mu.RUnlock()

	caps, _ := r.load(ctx)
	return slices.Clone(caps)
}

// Exists: регистрозависимая проверка членства.
func (r *Registry) Exists(ctx context.Context, capability string) bool {
	r.mu.RLock()
	if r.loaded {
		_, ok := r.index[capability]
		r.mu.RUnlock()
		return ok
	}
	r.mu.RUnlock()

	caps, _ := r.load(ctx)
	_, found := slices.BinarySearchFunc(caps, capability, compareCaps)
	return found
}

// Refresh принудительно пересчитывает набор (например, после изменения ролей).
func (r *Registry) Refresh(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	r.loaded = false
	r.mu.Unlock()

	caps, err := r.load(ctx)
	return slices.Clone(caps), err
}

func (r *Registry) load(ctx context.Context) ([]string, error) {
	set := make(map[string]struct{}, len(common)+64)
	for _, c := range common {
		set[c] = struct{}{}
	}

	var sourceErr error
	if r.source != nil {
		roles, err := r.source.ListRoles(ctx)
		if err != nil {
			// Отдаем базовый набор, но не кэшируем: следующий вызов попробует снова
			r.logger.Warn("failed to load roles, using common capabilities only", zap.Error(err))
			sourceErr = err
		}
		for _, role := range roles {
			for c := range role.Capabilities {
				set[c] = struct{}{}
			}
		}
	}

	caps := make([]string, 0, len(set))
	for c := range set {
		caps = append(caps, c)
	}
	sort.Slice(caps, func(i, j int) bool { return compareCaps(caps[i], caps[j]) < 0 })

	if sourceErr != nil {
		return caps, sourceErr
	}

	r.mu.Lock()
	r.caps = caps
	r.index = set
	r.loaded = true
	r.mu.Unlock()

	r.logger.Debug("capability registry computed", zap.Int("count", len(caps)))
	return caps, nil
}

// compareCaps: регистронезависимая сортировка, при равенстве решает исходная строка.
func compareCaps(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}
