package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-food-platform/internal/gateway/http/handlers"
	"github.com/pribylovaa/go-food-platform/internal/gateway/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
// Auth-роуты регистрируются явно; всё остальное уходит в catch-all
// Forward, который сам решает судьбу запроса по первому сегменту пути.
func NewRouter(h *handlers.Handlers, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	// auth
	root.Post("/auth/login", h.Login)
	root.Post("/auth/signup", h.SignUp)
	root.Post("/auth/logout", h.Logout)

	// всё остальное: любой метод, любой путь
	root.Handle("/*", http.HandlerFunc(h.Forward))

	return root
}
