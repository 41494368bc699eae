// Package updater проверяет новые версии restguard по релизам GitHub.
// Любой сбой проверки означает "обновлений нет": ошибка логируется, повторов нет.
package updater

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xela07ax/restguard/internal/domain"
	"go.uber.org/zap"
)

const noReleaseNotes = "No release notes available."

// SettingsSource отдает текущие настройки (ссылка на репозиторий и токен живут там).
type SettingsSource interface {
	Get(ctx context.Context) (domain.Settings, error)
}

type Options struct {
	Name           string
	Slug           string
	CurrentVersion string
	CacheTTL       time.Duration
}

type Updater struct {
	settings SettingsSource
	client   *GitHubClient
	cache    ReleaseCache
	opts     Options
	logger   *zap.Logger
}

func New(settings SettingsSource, client *GitHubClient, cache ReleaseCache, opts Options, logger *zap.Logger) *Updater {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 12 * time.Hour
	}
	if opts.Name == "" {
		opts.Name = "REST Guard"
	}
	return &Updater{
		settings: settings,
		client:   client,
		cache:    cache,
		opts:     opts,
		logger:   logger.Named("updater"),
	}
}

func (u *Updater) CurrentVersion() string {
	return u.opts.CurrentVersion
}

// target: репозиторий и токен из настроек.
func (u *Updater) target(ctx context.Context) (Repo, string, error) {
	s, err := u.settings.Get(ctx)
	if err != nil {
		return Repo{}, "", fmt.Errorf("load settings: %w", err)
	}
	repo, ok := ParseRepoURL(s.UpdateRepoURL)
	if !ok {
		return Repo{}, "", ErrNotConfigured
	}
	return repo, s.UpdateToken, nil
}

// Configured: проверка обновлений активна, только если задан репозиторий.
func (u *Updater) Configured(ctx context.Context) bool {
	_, _, err := u.target(ctx)
	return err == nil
}

func (u *Updater) latest(ctx context.Context, repo Repo, token string, bypassCache bool) (*domain.Release, error) {
	if !bypassCache && u.cache != nil {
		rel, ok, err := u.cache.Get(ctx, repo)
		if err != nil {
			u.logger.Warn("release cache unavailable", zap.String("repo", repo.String()), zap.Error(err))
		}
		if ok {
			return rel, nil
		}
	}

	rel, err := u.client.LatestRelease(ctx, repo, token)
	if err != nil {
		return nil, err
	}

	if u.cache != nil {
		if err := u.cache.Set(ctx, repo, rel, u.opts.CacheTTL); err != nil {
			u.logger.Warn("release cache write failed", zap.String("repo", repo.String()), zap.Error(err))
		}
	}
	return rel, nil
}

// Check возвращает данные обновления или nil, если обновления нет или проверить не удалось.
func (u *Updater) Check(ctx context.Context, bypassCache bool) *domain.UpdateInfo {
	repo, token, err := u.target(ctx)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			u.logger.Debug("update check skipped", zap.Error(err))
		} else {
			u.logger.Error("update check failed", zap.Error(err))
		}
		return nil
	}

	rel, err := u.latest(ctx, repo, token, bypassCache)
	if err != nil {
		u.logger.Warn("update check failed", zap.String("repo", repo.String()), zap.Error(err))
		return nil
	}

	remote := NormalizeVersion(rel.TagName)
	if remote == "" {
		u.logger.Warn("release without tag", zap.String("repo", repo.String()))
		return nil
	}

	newer, err := IsNewer(u.opts.CurrentVersion, remote)
	if err != nil {
		u.logger.Warn("version comparison failed", zap.String("remote", remote), zap.Error(err))
		return nil
	}
	if !newer {
		u.logger.Debug("no update available", zap.String("current", u.opts.CurrentVersion), zap.String("remote", remote))
		return nil
	}

	u.logger.Info("update available", zap.String("current", u.opts.CurrentVersion), zap.String("remote", remote))
	return &domain.UpdateInfo{
		Version:     remote,
		DownloadURL: DownloadURL(repo, rel),
		InfoURL:     rel.HTMLURL,
	}
}

// PluginInfo: карточка последнего релиза для консоли.
func (u *Updater) PluginInfo(ctx context.Context) (*domain.PluginInfo, error) {
	repo, token, err := u.target(ctx)
	if err != nil {
		return nil, err
	}
	rel, err := u.latest(ctx, repo, token, false)
	if err != nil {
		return nil, fmt.Errorf("fetch latest release: %w", err)
	}

	notes := rel.Body
	if notes == "" {
		notes = noReleaseNotes
	}
	info := &domain.PluginInfo{
		Name:         u.opts.Name,
		Slug:         u.opts.Slug,
		Version:      NormalizeVersion(rel.TagName),
		Homepage:     rel.HTMLURL,
		DownloadLink: DownloadURL(repo, rel),
		Sections:     map[string]string{"description": notes},
		Requires:     "6.0",
		Tested:       "6.4",
		RequiresPHP:  "8.1",
	}
	if !rel.PublishedAt.IsZero() {
		info.LastUpdated = rel.PublishedAt.UTC().Format(time.RFC3339)
	}
	return info, nil
}

// ReleaseByTag: конкретный релиз, мимо кэша.
func (u *Updater) ReleaseByTag(ctx context.Context, tag string) (*domain.Release, error) {
	repo, token, err := u.target(ctx)
	if err != nil {
		return nil, err
	}
	return u.client.ReleaseByTag(ctx, repo, tag, token)
}

// ClearCache сбрасывает кэш релиза (после обновления).
func (u *Updater) ClearCache(ctx context.Context) error {
	repo, _, err := u.target(ctx)
	if err != nil {
		return err
	}
	if u.cache == nil {
		return nil
	}
	if err := u.cache.Delete(ctx, repo); err != nil {
		return fmt.Errorf("clear release cache: %w", err)
	}
	u.logger.Info("release cache cleared", zap.String("repo", repo.String()))
	return nil
}
