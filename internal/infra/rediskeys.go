package infra

import "fmt"

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "restguard"
)

// Ключи кэша
const (
	RedisKeyReleasePrefix = RedisNamespace + ":updater:release:"
	RedisKeyLockSettings  = RedisNamespace + ":lock:settings:"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanSettingsUpdate: консоль сохранила настройки, payload = site_id.
	RedisChanSettingsUpdate = RedisNamespace + ":settings:updated"
	// RedisChanCapabilityRefresh: пересчитать реестр прав на всех инстансах консоли.
	RedisChanCapabilityRefresh = RedisNamespace + ":capabilities:refresh"
)

// ReleaseCacheKey: transient для ответа GitHub по конкретному репозиторию
func ReleaseCacheKey(owner, repo string) string {
	return fmt.Sprintf("%s%s/%s", RedisKeyReleasePrefix, owner, repo)
}

// SettingsLockKey: блокировка на запись настроек сайта
func SettingsLockKey(siteID int64) string {
	return fmt.Sprintf("%s%d", RedisKeyLockSettings, siteID)
}
