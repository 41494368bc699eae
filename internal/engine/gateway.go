package engine

/*
Gateway: data plane restguard. Стоит перед WordPress REST API:

- /wp/v2/users: движок решает allow / 401 / 403 / allow-sanitized.
  Заблокированный запрос до WordPress не доходит.
- /wp/v2/users/{id}: никогда не блокируется, но в режиме sanitize
  записи в ответе обезличиваются так же, как и для списка.
- всё остальное проксируется без изменений; исключение: в режиме sanitize
  вложенные авторы (?_embed) обезличиваются и на чужих маршрутах.
*/

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/xela07ax/restguard/internal/audit"
	"github.com/xela07ax/restguard/internal/domain"
	"github.com/xela07ax/restguard/internal/infra/auth"
	"github.com/xela07ax/restguard/internal/modules"
	"github.com/xela07ax/restguard/internal/protection"
	"go.uber.org/zap"
)

// SettingsView: L1 кэш настроек (settings.Store).
type SettingsView interface {
	Current() domain.Settings
}

type Gateway struct {
	settings SettingsView
	upstream http.Handler
	auditor  audit.Auditor
	metrics  *Metrics
	siteID   int64
	logger   *zap.Logger
}

func NewGateway(settings SettingsView, upstream http.Handler, auditor audit.Auditor, metrics *Metrics, siteID int64, logger *zap.Logger) *Gateway {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Gateway{
		settings: settings,
		upstream: upstream,
		auditor:  auditor,
		metrics:  metrics,
		siteID:   siteID,
		logger:   logger.With(zap.String("mod", "gateway")),
	}
}

// blockedBody: ответ в формате ошибок WordPress REST.
type blockedBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Status int `json:"status"`
	} `json:"data"`
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route := protection.RESTRoute(r)
	if !protection.IsUsersRoute(route) {
		g.passThrough(w, r, route)
		return
	}

	start := time.Now()
	s := g.settings.Current()
	id := auth.IdentityFromContext(r.Context())
	d := protection.DecideFor(s.Protection(), id)

	kind := "collection"
	if !protection.IsUsersCollection(route) {
		// Одиночная запись: доступ решает WordPress, мы только обезличиваем
		kind = "single"
		if d.Blocked() {
			d = domain.Allow()
		}
	}

	g.metrics.Decisions.WithLabelValues(kind, string(d.Outcome)).Inc()
	defer func() {
		g.metrics.RequestDuration.WithLabelValues(kind, string(d.Outcome)).Observe(time.Since(start).Seconds())
		g.audit(r, s, route, id, d, start)
	}()

	if d.Blocked() {
		g.logger.Info("users route blocked",
			zap.String("trace_id", TraceID(r.Context())),
			zap.String("outcome", string(d.Outcome)),
			zap.String("remote", r.RemoteAddr),
		)
		writeBlocked(w, d)
		return
	}

	g.upstream.ServeHTTP(w, r.WithContext(withDecision(r.Context(), d)))
}

// passThrough: маршрут без блокировки. Записи пользователей здесь приходят
// только во вложениях (_embedded.author), их обезличиваем по тем же правилам.
func (g *Gateway) passThrough(w http.ResponseWriter, r *http.Request, route string) {
	if route == "" || !hasQueryParam(r.URL.RawQuery, embedParam) {
		g.upstream.ServeHTTP(w, r)
		return
	}
	s := g.settings.Current()
	d := protection.DecideFor(s.Protection(), auth.IdentityFromContext(r.Context()))
	if d.Outcome != domain.OutcomeAllowedSanitized {
		g.upstream.ServeHTTP(w, r)
		return
	}
	ctx := withEmbeddedOnly(withDecision(r.Context(), d))
	g.upstream.ServeHTTP(w, r.WithContext(ctx))
}

func (g *Gateway) audit(r *http.Request, s domain.Settings, route string, id *domain.Identity, d domain.Decision, start time.Time) {
	if g.auditor == nil || !s.ModuleEnabled(modules.AuditModule) {
		return
	}
	event := audit.AccessEvent{
		TraceID:    TraceID(r.Context()),
		SiteID:     g.siteID,
		Method:     r.Method,
		Route:      route,
		Outcome:    string(d.Outcome),
		HTTPStatus: d.HTTPStatus,
		RemoteAddr: clientIP(r),
		Timestamp:  start,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if id != nil {
		event.UserID = id.UserID
	}
	g.auditor.Log(event)
}

func writeBlocked(w http.ResponseWriter, d domain.Decision) {
	var body blockedBody
	body.Code = protection.ErrorCode
	body.Message = protection.ErrorMessage
	body.Data.Status = d.HTTPStatus

	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(d.HTTPStatus)
	_ = json.NewEncoder(w).Encode(body)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
