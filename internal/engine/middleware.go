package engine

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/xela07ax/restguard/internal/domain"
)

// Тип для ключа в контексте (избегаем коллизий)
type ctxKey string

const (
	traceIDKey  ctxKey = "trace_id"
	decisionKey ctxKey = "decision"
	embedKey    ctxKey = "embedded_only"
)

// TracingMiddleware инициализирует Trace-ID для каждого запроса
func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 1. Пытаемся достать ID из заголовка (если пришел от балансировщика)
		traceID := r.Header.Get("X-Trace-ID")

		// 2. Если его нет: генерируем новый
		if traceID == "" {
			traceID = uuid.New().String()
		}

		// 3. Кладем в контекст и прокидываем в WordPress
		ctx := context.WithValue(r.Context(), traceIDKey, traceID)
		r.Header.Set("X-Trace-ID", traceID)

		// 4. Добавляем в ответ, чтобы клиент тоже знал ID своего запроса
		w.Header().Set("X-Trace-ID", traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TraceID помогает безопасно достать ID в любом месте кода
func TraceID(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDKey).(string); ok {
		return id
	}
	return "00000000-0000-0000-0000-000000000000" // Fallback
}

func withDecision(ctx context.Context, d domain.Decision) context.Context {
	return context.WithValue(ctx, decisionKey, d)
}

// decisionFrom: решение, принятое для этого запроса шлюзом (если было).
func decisionFrom(ctx context.Context) (domain.Decision, bool) {
	d, ok := ctx.Value(decisionKey).(domain.Decision)
	return d, ok
}

// withEmbeddedOnly: ответ не users-маршрута, обезличиваем только вложенных авторов (_embed).
func withEmbeddedOnly(ctx context.Context) context.Context {
	return context.WithValue(ctx, embedKey, true)
}

func embeddedOnly(ctx context.Context) bool {
	v, _ := ctx.Value(embedKey).(bool)
	return v
}
