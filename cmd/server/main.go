package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/yukikurage/workspace-api/internal/config"
	"github.com/yukikurage/workspace-api/internal/database"
	"github.com/yukikurage/workspace-api/internal/events"
	"github.com/yukikurage/workspace-api/internal/handlers"
	"github.com/yukikurage/workspace-api/internal/jobs"
	"github.com/yukikurage/workspace-api/internal/logger"
	"github.com/yukikurage/workspace-api/internal/mailer"
	"github.com/yukikurage/workspace-api/internal/metrics"
	"github.com/yukikurage/workspace-api/internal/repository"
	"github.com/yukikurage/workspace-api/internal/services"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(logger.Conf{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	db, err := database.Open(cfg, zlog)
	if err != nil {
		return err
	}

	// Run migrations
	if err := database.Migrate(db, zlog); err != nil {
		return err
	}

	m := metrics.New()

	// Domain events go to the log, the metrics and Redis subscribers
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr()})
	defer redisClient.Close()

	bus := events.NewBus()
	bus.SubscribeAll(events.LogHandler(zlog))
	bus.SubscribeAll(m.EventHandler())
	publisher := events.Multi{bus, events.NewRedisPublisher(redisClient, cfg.RedisEventsChannel)}

	// Outgoing mail
	var sender mailer.Sender = mailer.NewLogSender(zlog)
	if cfg.SMTPEnabled() {
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	}
	dispatcher := mailer.NewDispatcher(sender, zlog, cfg.MailWorkers, cfg.MailQueueSize, m.ObserveEmail)
	dispatcher.Start()
	defer dispatcher.Stop()

	// Services
	store := repository.NewStore(db)
	perms := services.NewProjectPermissions()
	authorizer := services.NewRoleAuthorizer(store)
	workspaceService := services.NewWorkspaceService(store, perms, publisher, zlog)
	inviteService := services.NewInviteService(store, authorizer, workspaceService, perms, dispatcher, publisher, zlog, services.InviteConfig{
		TTL:            cfg.InviteTTL,
		ResendCooldown: cfg.InviteResendCooldown,
		AppOrigin:      cfg.AppOrigin,
		DefaultLocale:  cfg.DefaultLocale,
		ServerName:     "Workspace API",
	})
	authService := services.NewAuthService(store, inviteService, dispatcher, zlog, services.AuthConfig{
		InviteOnly:    cfg.ServerInviteOnly,
		AppOrigin:     cfg.AppOrigin,
		DefaultLocale: cfg.DefaultLocale,
	})
	projectService := services.NewProjectService(store, perms, zlog)

	// Expired invite cleanup
	scheduler := jobs.NewScheduler(zlog)
	if err := scheduler.AddInvitePurge(cfg.InvitePurgeSchedule, inviteService); err != nil {
		return err
	}
	scheduler.Start()

	// Setup session middleware with Redis
	sessionStore, err := redisStore.NewStore(
		10,              // Redis pool size
		"tcp",           // network type
		cfg.RedisAddr(), // Redis address from config
		"",              // password (empty = no password)
		[]byte(cfg.SessionSecret),
	)
	if err != nil {
		return err
	}
	isProduction := cfg.GinMode == gin.ReleaseMode
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	})

	router := handlers.NewRouter(handlers.RouterConfig{
		Sessions:          sessionStore,
		Logger:            zlog,
		Calls:             m,
		Metrics:           m.Handler(),
		Authorizer:        authorizer,
		AuthService:       authService,
		WorkspaceService:  workspaceService,
		InviteService:     inviteService,
		ProjectService:    projectService,
		WorkspacesEnabled: cfg.WorkspacesEnabled,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("server starting", zap.String("addr", cfg.HTTPAddr), zap.Bool("workspaces_enabled", cfg.WorkspacesEnabled))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	zlog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	scheduler.Stop(shutdownCtx)
	return srv.Shutdown(shutdownCtx)
}
