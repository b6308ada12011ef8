package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/blog-service/internal/metrics"
	"github.com/pribylovaa/blog-service/internal/service"
	apierrors "github.com/pribylovaa/blog-service/internal/transport/http/errors"
	"github.com/pribylovaa/blog-service/internal/transport/http/handlers"
	"github.com/pribylovaa/blog-service/internal/transport/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Timeout time.Duration
	// BasePath — например, "/api/v1"; если пустой — роуты регистрируются на корне.
	BasePath string
	// SecureCookies включает Secure и SameSite=Strict для cookie с токенами.
	SecureCookies  bool
	MaxUploadBytes int64
	// Uploads — раздача локально сохранённых картинок; nil — не раздаём.
	Uploads *StaticFiles
}

// StaticFiles — каталог, отдаваемый только на чтение под префиксом URL.
type StaticFiles struct {
	Prefix string
	Dir    string
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc *service.Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
		middleware.Metrics(opts.Metrics),
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	// До Mount: chi передаёт NotFound смонтированным роутерам.
	root.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apierrors.WriteError(w, r, service.ErrNotFound)
	})

	if opts.Uploads != nil {
		mountStatic(root, *opts.Uploads)
	}

	basePath := strings.TrimRight(opts.BasePath, "/")

	h := handlers.New(svc, handlers.Options{
		BasePath:       basePath,
		SecureCookies:  opts.SecureCookies,
		MaxUploadBytes: opts.MaxUploadBytes,
	})
	auth := middleware.AuthCookie(svc)

	if basePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, auth)
		root.Mount(basePath, sub)
		return root
	}

	registerRoutes(root, h, auth)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, auth middleware.Middleware) {
	// auth (публичные)
	r.Post("/auth/sign-up", h.SignUp)
	r.Post("/auth/sign-in", h.SignIn)
	r.Post("/auth/refresh", h.Refresh)

	r.Group(func(r chi.Router) {
		r.Use(auth)

		r.Post("/auth/sign-out", h.SignOut)

		// posts
		r.Get("/posts", h.ListPosts)
		r.Post("/posts", h.CreatePost)
		r.Get("/posts/{id}", h.GetPost)
		r.Put("/posts/{id}", h.UpdatePost)
		r.Delete("/posts/{id}", h.DeletePost)

		// users
		r.Get("/users", h.ListUsers)
		r.Get("/users/{id}", h.GetUser)
		r.Put("/users/{id}", h.UpdateUser)
		r.Put("/users/{id}/password", h.ChangePassword)
		r.Delete("/users/{id}", h.DeleteUser)
	})
}

// mountStatic раздаёт файлы из каталога без листинга директорий.
func mountStatic(r chi.Router, sf StaticFiles) {
	prefix := "/" + strings.Trim(sf.Prefix, "/")
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(sf.Dir)))

	r.Get(prefix+"/*", func(w http.ResponseWriter, req *http.Request) {
		if strings.HasSuffix(req.URL.Path, "/") {
			apierrors.WriteError(w, req, service.ErrNotFound)
			return
		}

		fs.ServeHTTP(w, req)
	})
}
