package updater

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/xela07ax/restguard/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrNotConfigured: в настройках нет ссылки на репозиторий GitHub.
var ErrNotConfigured = errors.New("github repository not configured")

var repoPattern = regexp.MustCompile(`(?i)github\.com/([^/]+)/([^/]+)`)

// Repo: owner/repo на GitHub.
type Repo struct {
	Owner string
	Name  string
}

func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// ParseRepoURL понимает https://github.com/owner/repo и github.com/owner/repo.
func ParseRepoURL(raw string) (Repo, bool) {
	m := repoPattern.FindStringSubmatch(strings.TrimSpace(raw) + "/")
	if m == nil {
		return Repo{}, false
	}
	repo := Repo{Owner: m[1], Name: strings.TrimSuffix(m[2], ".git")}
	if repo.Owner == "" || repo.Name == "" {
		return Repo{}, false
	}
	return repo, true
}

// StatusError: GitHub ответил не 200.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("github api returned error code %d", e.Code)
}

// GitHubClient ходит в releases API через лимитер и предохранитель.
// Токен передается на каждый вызов: он живет в настройках и может поменяться.
type GitHubClient struct {
	apiURL  string
	http    *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewGitHubClient(apiURL string, timeout time.Duration, ratePerMinute int, logger *zap.Logger) *GitHubClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if ratePerMinute <= 0 {
		ratePerMinute = 30
	}
	l := logger.With(zap.String("mod", "github"))

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "github-releases",
		MaxRequests: 1,
		Timeout:     5 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn("circuit breaker state changed",
				zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})

	return &GitHubClient{
		apiURL:  strings.TrimRight(apiURL, "/"),
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(ratePerMinute)), 1),
		cb:      cb,
		logger:  l,
	}
}

// LatestRelease: GET /repos/{owner}/{repo}/releases/latest
func (c *GitHubClient) LatestRelease(ctx context.Context, repo Repo, token string) (*domain.Release, error) {
	return c.fetch(ctx, fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.apiURL, repo.Owner, repo.Name), token)
}

// ReleaseByTag: GET /repos/{owner}/{repo}/releases/tags/{tag}
func (c *GitHubClient) ReleaseByTag(ctx context.Context, repo Repo, tag, token string) (*domain.Release, error) {
	return c.fetch(ctx, fmt.Sprintf("%s/repos/%s/%s/releases/tags/%s", c.apiURL, repo.Owner, repo.Name, url.PathEscape(tag)), token)
}

func (c *GitHubClient) fetch(ctx context.Context, url, token string) (*domain.Release, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	res, err := c.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/vnd.github.v3+json")
		if token != "" {
			req.Header.Set("Authorization", "token "+token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, fmt.Errorf("read github response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &StatusError{Code: resp.StatusCode}
		}

		var rel domain.Release
		if err := json.Unmarshal(body, &rel); err != nil {
			return nil, fmt.Errorf("failed to decode github api response: %w", err)
		}
		return &rel, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*domain.Release), nil
}

// DownloadURL: zipball_url, иначе архив по тегу.
func DownloadURL(repo Repo, rel *domain.Release) string {
	if rel == nil {
		return ""
	}
	if rel.ZipballURL != "" {
		return rel.ZipballURL
	}
	if rel.TagName != "" {
		return fmt.Sprintf("https://github.com/%s/%s/archive/refs/tags/%s.zip", repo.Owner, repo.Name, rel.TagName)
	}
	return ""
}
