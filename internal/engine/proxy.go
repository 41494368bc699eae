package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/httputil"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/xela07ax/restguard/internal/domain"
	"github.com/xela07ax/restguard/internal/protection"
	"go.uber.org/zap"
)

// maxUsersBody: предел тела ответа, которое переписываем в памяти.
const maxUsersBody = 16 << 20

var errBodyTooLarge = errors.New("users response too large to sanitize")

// Параметры WordPress, которые меняют форму ответа.
const (
	embedParam    = "_embed"
	envelopeParam = "_envelope"
	jsonpParam    = "_jsonp"
)

// NewProxy: reverse proxy к WordPress. Для запросов, которым шлюз назначил
// allow-sanitized, тело ответа переписывается (ModifyResponse).
func NewProxy(upstream *url.URL, metrics *Metrics, logger *zap.Logger) *httputil.ReverseProxy {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	l := logger.With(zap.String("mod", "proxy"))

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(upstream)
			pr.SetXForwarded()
			// WordPress строит ссылки по Host, отдаем исходный
			pr.Out.Host = pr.In.Host

			if d, ok := decisionFrom(pr.In.Context()); ok && d.Outcome == domain.OutcomeAllowedSanitized {
				// Тело будем переписывать: просим без сжатия и без обертки
				pr.Out.Header.Set("Accept-Encoding", "identity")
				stripParams(pr.Out.URL, envelopeParam, jsonpParam)
			}
		},
		ModifyResponse: func(resp *http.Response) error {
			d, ok := decisionFrom(resp.Request.Context())
			if !ok || d.Outcome != domain.OutcomeAllowedSanitized {
				return nil
			}
			n, err := sanitizeResponse(resp, d, embeddedOnly(resp.Request.Context()))
			if err != nil {
				return err
			}
			metrics.SanitizedRecords.Add(float64(n))
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			metrics.UpstreamErrors.Inc()
			l.Error("upstream failure",
				zap.String("trace_id", TraceID(r.Context())),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			w.WriteHeader(http.StatusBadGateway)
		},
	}
}

// sanitizeResponse переписывает JSON со списком пользователей или одной записью.
// embedded: тело не из users-маршрута, трогаем только _embedded.author.
// Ответ, который не удалось разобрать, наружу не отдается.
func sanitizeResponse(resp *http.Response, d domain.Decision, embedded bool) (int, error) {
	if resp.StatusCode < 200 || resp.StatusCode > 299 || resp.StatusCode == http.StatusNoContent {
		return 0, nil
	}
	if resp.Request != nil && resp.Request.Method == http.MethodHead {
		return 0, nil
	}
	if ct := resp.Header.Get("Content-Type"); !isJSON(ct) {
		return 0, fmt.Errorf("cannot sanitize users response of type %q", ct)
	}
	if enc := resp.Header.Get("Content-Encoding"); enc != "" && enc != "identity" {
		return 0, fmt.Errorf("cannot sanitize %s-encoded users response", enc)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxUsersBody+1))
	resp.Body.Close()
	if err != nil {
		return 0, fmt.Errorf("read users response: %w", err)
	}
	if len(raw) > maxUsersBody {
		return 0, errBodyTooLarge
	}

	out, n, err := sanitizeJSON(raw, d, embedded)
	if err != nil {
		return 0, err
	}

	resp.Body = io.NopCloser(bytes.NewReader(out))
	resp.ContentLength = int64(len(out))
	resp.Header.Set("Content-Length", strconv.Itoa(len(out)))
	resp.Header.Del("Content-Encoding")
	return n, nil
}

// sanitizeJSON понимает массив записей и одиночный объект. Вложенные
// авторы (_embedded.author) обезличиваются в обоих случаях.
func sanitizeJSON(raw []byte, d domain.Decision, embedded bool) ([]byte, int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return raw, 0, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var (
		result any
		count  int
	)
	switch trimmed[0] {
	case '[':
		var items []any
		if err := dec.Decode(&items); err != nil {
			return nil, 0, fmt.Errorf("decode users list: %w", err)
		}
		if !embedded {
			count = sanitizeList(items, d)
		}
		for _, item := range items {
			if obj, ok := item.(map[string]any); ok {
				count += sanitizeEmbedded(obj, d)
			}
		}
		result = items
	case '{':
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			return nil, 0, fmt.Errorf("decode user: %w", err)
		}
		if !embedded {
			obj = protection.Sanitize(obj, d)
			count = 1
		}
		count += sanitizeEmbedded(obj, d)
		result = obj
	default:
		return raw, 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(result); err != nil {
		return nil, 0, fmt.Errorf("encode users: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), count, nil
}

// sanitizeList заменяет объекты списка их обезличенными копиями, прочие элементы не трогает.
func sanitizeList(items []any, d domain.Decision) int {
	idx := make([]int, 0, len(items))
	records := make([]domain.UserRecord, 0, len(items))
	for i, item := range items {
		if rec, ok := item.(map[string]any); ok {
			idx = append(idx, i)
			records = append(records, rec)
		}
	}
	for j, rec := range protection.SanitizeAll(records, d) {
		items[idx[j]] = map[string]any(rec)
	}
	return len(records)
}

// sanitizeEmbedded: записи пользователей, вложенные через ?_embed=author.
func sanitizeEmbedded(obj map[string]any, d domain.Decision) int {
	embedded, ok := obj["_embedded"].(map[string]any)
	if !ok {
		return 0
	}
	authors, ok := embedded["author"].([]any)
	if !ok {
		return 0
	}
	count := 0
	for i, a := range authors {
		rec, ok := a.(map[string]any)
		if !ok {
			continue
		}
		// Ошибка вместо автора (rest_user_invalid_id) записью не является
		if _, hasID := rec["id"]; !hasID {
			continue
		}
		authors[i] = map[string]any(protection.Sanitize(rec, d))
		count++
	}
	return count
}

// phpParamName: имя параметра так, как его увидит PHP в $_GET.
// Точки и пробелы становятся "_", у "a[]" и "a[x]" остается "a".
func phpParamName(key string) string {
	key = strings.TrimLeft(key, " ")
	if i := strings.IndexByte(key, '['); i > 0 {
		key = key[:i]
	}
	return strings.NewReplacer(".", "_", " ", "_").Replace(key)
}

func hasQueryParam(rawQuery, name string) bool {
	for _, pair := range strings.Split(rawQuery, "&") {
		if phpParamName(queryKey(pair)) == name {
			return true
		}
	}
	return false
}

// stripParams убирает из запроса к WordPress перечисленные параметры в любом написании.
// Пары разбираются как в PHP (только по "&"), остальные идут без изменений.
func stripParams(u *url.URL, names ...string) {
	pairs := strings.Split(u.RawQuery, "&")
	kept := pairs[:0]
	for _, pair := range pairs {
		if slices.Contains(names, phpParamName(queryKey(pair))) {
			continue
		}
		kept = append(kept, pair)
	}
	u.RawQuery = strings.Join(kept, "&")
}

func queryKey(pair string) string {
	k, _, _ := strings.Cut(pair, "=")
	if uk, err := url.QueryUnescape(k); err == nil {
		return uk
	}
	return k
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || (len(mt) > 5 && mt[len(mt)-5:] == "+json")
}
