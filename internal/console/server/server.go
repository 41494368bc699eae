package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/xela07ax/restguard/internal/console/handler"
	"github.com/xela07ax/restguard/internal/infra/auth"
	"go.uber.org/zap"
)

// AdminCapability: право, без которого в консоль не пускаем.
const AdminCapability = "manage_options"

// Handlers: обработчики бизнес-доменов консоли.
type Handlers struct {
	Auth         *handler.AuthHandler         // /auth/token
	Settings     *handler.SettingsHandler     // /v1/settings
	Modules      *handler.ModulesHandler      // /v1/modules
	Diagnostics  *handler.DiagnosticsHandler  // /v1/protection
	Capabilities *handler.CapabilitiesHandler // /v1/capabilities
	Updates      *handler.UpdatesHandler      // /v1/updates
	Audit        *handler.AuditHandler        // /v1/audit
}

type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger

	// Интерфейс для проверки токенов (RS256)
	// Реализуется через embedding BaseValidator в AuthService
	authValidator  auth.TokenValidator
	allowedOrigins []string
	h              Handlers
}

// NewConsoleServer инициализирует сервер админки со всеми зависимостями
func NewConsoleServer(logger *zap.Logger, validator auth.TokenValidator, allowedOrigins []string, h Handlers) *ConsoleServer {
	s := &ConsoleServer{
		router:         chi.NewRouter(),
		logger:         logger.Named("console-api"),
		authValidator:  validator,
		allowedOrigins: allowedOrigins,
		h:              h,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if len(s.allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ (Открыты для всех) ---
	r.Group(func(r chi.Router) {
		// Логин должен быть доступен без токена
		r.Post("/auth/token", s.h.Auth.Login)

		// Healthcheck для мониторинга
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР (RS256 токен + manage_options) ---
	r.Group(func(r chi.Router) {
		r.Use(auth.NewMiddleware(s.authValidator, s.logger))
		r.Use(auth.RequireCapability(AdminCapability))

		// Форма настроек
		r.Get("/v1/settings", s.h.Settings.Get)
		r.Put("/v1/settings", s.h.Settings.Update)

		// Патчи/модули
		r.Route("/v1/modules", func(r chi.Router) {
			r.Get("/", s.h.Modules.List)
			r.Post("/{id}/enable", s.h.Modules.Enable)
			r.Post("/{id}/disable", s.h.Modules.Disable)
		})

		// Диагностика "что будет, если"
		r.Get("/v1/protection/nonce", s.h.Diagnostics.Nonce)
		r.Post("/v1/protection/test", s.h.Diagnostics.Test)

		// Известные права
		r.Get("/v1/capabilities", s.h.Capabilities.List)
		r.Post("/v1/capabilities/refresh", s.h.Capabilities.Refresh)

		// Обновления
		r.Get("/v1/updates", s.h.Updates.Check)
		r.Get("/v1/updates/info", s.h.Updates.Info)
		r.Get("/v1/updates/release/{tag}", s.h.Updates.Release)
		r.Post("/v1/updates/cache/clear", s.h.Updates.ClearCache)

		// Аудит и статистика
		r.Get("/v1/audit", s.h.Audit.GetLogs)
		r.Get("/v1/audit/stats", s.h.Audit.GetStats)
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
