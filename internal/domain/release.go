package domain

import "time"

// Release: ответ GitHub API /releases/latest (только нужные поля).
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Body        string    `json:"body"`
	HTMLURL     string    `json:"html_url"`
	ZipballURL  string    `json:"zipball_url"`
	PublishedAt time.Time `json:"published_at"`
}

// UpdateInfo отдается, только если удаленная версия строго больше текущей.
type UpdateInfo struct {
	Version     string `json:"version"`
	DownloadURL string `json:"download_url"`
	InfoURL     string `json:"info_url"`
}

// PluginInfo: карточка "подробнее об обновлении".
type PluginInfo struct {
	Name         string            `json:"name"`
	Slug         string            `json:"slug"`
	Version      string            `json:"version"`
	Homepage     string            `json:"homepage"`
	DownloadLink string            `json:"download_link"`
	Sections     map[string]string `json:"sections"`
	LastUpdated  string            `json:"last_updated"`
	Requires     string            `json:"requires"`
	Tested       string            `json:"tested"`
	RequiresPHP  string            `json:"requires_php"`
}
