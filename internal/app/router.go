package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumen-lms/lumen-lms/internal/comments"
	"github.com/lumen-lms/lumen-lms/internal/courses"
	"github.com/lumen-lms/lumen-lms/internal/likes"
	"github.com/lumen-lms/lumen-lms/internal/notifications"
	"github.com/lumen-lms/lumen-lms/internal/observability"
	"github.com/lumen-lms/lumen-lms/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger               *slog.Logger
	Config               *Config
	Pool                 *pgxpool.Pool
	CoursesHandler       *courses.Handler
	UsersHandler         *users.Handler
	CommentsHandler      *comments.Handler
	LikesHandler         *likes.Handler
	NotificationsHandler *notifications.Handler
	Metrics              *observability.Metrics
}

// NewRouter constructs the chi.Router with Lumen defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if params.Pool != nil {
			if err := params.Pool.Ping(r.Context()); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		if params.UsersHandler != nil {
			api.Group(func(pub chi.Router) {
				params.UsersHandler.MountPublicRoutes(pub)
			})
		}

		api.Group(func(priv chi.Router) {
			priv.Use(ActorMiddleware(params.Config.JWTSecret, params.Logger))
			if params.CoursesHandler != nil {
				priv.Route("/courses", params.CoursesHandler.MountRoutes)
			}
			if params.UsersHandler != nil {
				priv.Route("/users", params.UsersHandler.MountRoutes)
			}
			if params.CommentsHandler != nil {
				priv.Route("/comments", params.CommentsHandler.MountRoutes)
			}
			if params.LikesHandler != nil {
				priv.Route("/likes", params.LikesHandler.MountRoutes)
			}
			if params.NotificationsHandler != nil {
				priv.Route("/notifications", params.NotificationsHandler.MountRoutes)
			}
		})
	})

	return r
}
