package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/lumen-lms/lumen-lms/internal/app"
	"github.com/lumen-lms/lumen-lms/internal/authz"
	"github.com/lumen-lms/lumen-lms/internal/comments"
	"github.com/lumen-lms/lumen-lms/internal/courses"
	"github.com/lumen-lms/lumen-lms/internal/events"
	"github.com/lumen-lms/lumen-lms/internal/likes"
	"github.com/lumen-lms/lumen-lms/internal/notifications"
	"github.com/lumen-lms/lumen-lms/internal/observability"
	"github.com/lumen-lms/lumen-lms/internal/platform/cache"
	"github.com/lumen-lms/lumen-lms/internal/platform/db"
	"github.com/lumen-lms/lumen-lms/internal/shared"
	"github.com/lumen-lms/lumen-lms/internal/users"
	"github.com/lumen-lms/lumen-lms/jobs"
)

// directory adapts the domain repositories to the recipient lookups the
// notification dispatcher needs.
type directory struct {
	courses  *courses.PGRepository
	users    *users.PGRepository
	comments *comments.PGRepository
}

func (d directory) EnrolledStudents(ctx context.Context, courseID string) ([]notifications.UserRef, error) {
	refs, err := d.courses.EnrolledStudents(ctx, courseID)
	if err != nil {
		return nil, err
	}
	out := make([]notifications.UserRef, 0, len(refs))
	for _, ref := range refs {
		out = append(out, notifications.UserRef{ID: ref.ID, Name: ref.Name})
	}
	return out, nil
}

func (d directory) TenantStudents(ctx context.Context, tenantID string) ([]notifications.UserRef, error) {
	refs, err := d.users.TenantStudents(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]notifications.UserRef, 0, len(refs))
	for _, ref := range refs {
		out = append(out, notifications.UserRef{ID: ref.ID, Name: ref.Name})
	}
	return out, nil
}

func (d directory) CourseInstructor(ctx context.Context, courseID string) (notifications.UserRef, error) {
	ref, err := d.courses.CourseInstructor(ctx, courseID)
	if err != nil {
		return notifications.UserRef{}, err
	}
	return notifications.UserRef{ID: ref.ID, Name: ref.Name}, nil
}

func (d directory) Comment(ctx context.Context, commentID string) (notifications.CommentRef, error) {
	c, err := d.comments.Get(ctx, commentID)
	if err != nil {
		return notifications.CommentRef{}, err
	}
	return notifications.CommentRef{ID: c.ID, AuthorID: c.AuthorID, Content: c.Content}, nil
}

// likeTargets resolves like targets to their policy context so the toggle can
// run the tenant and visibility checks before writing.
type likeTargets struct {
	courses  *courses.PGRepository
	comments *comments.PGRepository
}

func (l likeTargets) Resolve(ctx context.Context, targetID string, kind likes.TargetKind) (likes.Target, error) {
	switch kind {
	case likes.TargetLesson:
		// A lesson is as visible as its course.
		lesson, err := l.courses.GetLesson(ctx, targetID)
		if err != nil {
			return likes.Target{}, err
		}
		course, err := l.courses.GetCourse(ctx, lesson.CourseID)
		if err != nil {
			return likes.Target{}, err
		}
		return likes.Target{TenantID: course.TenantID, OwnerID: course.InstructorID, Status: course.Status}, nil
	case likes.TargetComment:
		c, err := l.comments.Get(ctx, targetID)
		if err != nil {
			return likes.Target{}, err
		}
		return likes.Target{TenantID: c.TenantID, OwnerID: c.AuthorID, Status: authz.StatusPublished}, nil
	default:
		return likes.Target{}, fmt.Errorf("unknown like target kind %q", kind)
	}
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	store := cache.NewStore(redisClient, logger).WithMetrics(metrics)
	auditLogger := shared.NewAuditLogger(pool)

	bus := events.NewBus(logger, metrics, cfg.EventQueueSize)

	mailClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := mailClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	coursesRepo := courses.NewRepository(pool)
	usersRepo := users.NewRepository(pool)
	commentsRepo := comments.NewRepository(pool)
	notificationsRepo := notifications.NewRepository(pool)
	likesRepo := likes.NewRepository(pool)

	dispatcher := notifications.NewDispatcher(
		notificationsRepo,
		directory{courses: coursesRepo, users: usersRepo, comments: commentsRepo},
		mailClient,
		logger,
		metrics,
	)
	if err := dispatcher.Register(bus); err != nil {
		logger.Error("register dispatcher", slog.Any("error", err))
		os.Exit(1)
	}
	bus.Start(ctx)

	coursesService := courses.NewService(coursesRepo, bus, store, auditLogger, logger)
	usersService := users.NewService(usersRepo, bus, auditLogger, logger)
	commentsService := comments.NewService(commentsRepo, bus, logger)
	notificationsService := notifications.NewService(notificationsRepo)
	likesService := likes.NewService(likesRepo, likeTargets{courses: coursesRepo, comments: commentsRepo}, bus)

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		Pool:                 pool,
		CoursesHandler:       courses.NewHandler(logger, coursesService),
		UsersHandler:         users.NewHandler(logger, usersService),
		CommentsHandler:      comments.NewHandler(logger, commentsService),
		LikesHandler:         likes.NewHandler(logger, likesService),
		NotificationsHandler: notifications.NewHandler(logger, notificationsService),
		Metrics:              metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	if err := bus.Drain(shutdownCtx); err != nil {
		logger.Warn("event bus drain", slog.Any("error", err))
	}
	bus.Close()
}
