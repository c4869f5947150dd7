package app

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"vaxbot/internal/adapter/external/cowin"
	"vaxbot/internal/adapter/scheduler"
	"vaxbot/internal/adapter/telegram"
	"vaxbot/internal/adapter/telegram/handlers"
	"vaxbot/internal/adapter/telegram/middleware"
	"vaxbot/internal/config"
	"vaxbot/internal/platform/httpclient"
	"vaxbot/internal/platform/logger"
	"vaxbot/internal/tracking"
	"vaxbot/pkg/retry"
)

// App wires application components.
type App struct {
	cfg config.Config
	log *slog.Logger
}

// New creates a new App instance and loads configuration.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Options{
		Env:          cfg.Env,
		ConsoleLevel: cfg.Log.ConsoleLevel,
		FileLevel:    cfg.Log.FileLevel,
		File:         cfg.Log.File,
		App:          "vaxbot",
	})
	return &App{cfg: cfg, log: log}, nil
}

// Run starts the application.
func (a *App) Run() error {
	a.log.Info("starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := httpclient.New(
		httpclient.WithLogger(a.log),
		httpclient.WithRetries(2, 200*time.Millisecond),
		httpclient.WithMaxBackoff(2*time.Second),
	)
	fetcher := cowin.New(client, a.cfg.CoWIN.BaseURL, a.cfg.CoWIN.Token)

	sched := scheduler.NewWithContext(ctx, scheduler.Config{Logger: a.log})

	rate := middleware.NewRateLimiter(time.Second)
	admins := middleware.NewACL(middleware.ParseIDs(a.cfg.Telegram.AdminIDs))

	var disp *telegram.Dispatcher
	opts := []bot.Option{
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, upd *models.Update) {
			disp.Dispatch(ctx, upd)
		}),
		bot.WithAllowedUpdates([]string{"message"}),
	}
	if a.cfg.Telegram.WebhookSecret != "" {
		opts = append(opts, bot.WithWebhookSecretToken(a.cfg.Telegram.WebhookSecret))
	}

	b, err := bot.New(a.cfg.Telegram.Token, opts...)
	if err != nil {
		return err
	}

	notifier := telegram.NewNotifier(b, a.log)
	registry := tracking.NewRegistry(sched, fetcher, notifier, a.log)
	router := handlers.New(registry, admins, a.log)
	handler := middleware.Chain(router.Handle, rate.Middleware)
	disp = telegram.NewDispatcher(b, 8, handler)

	// Daily registry summary in the logs, for operators without /clients access.
	_, err = sched.AddCronJob("@daily", func(ctx context.Context) error {
		snaps := registry.ListAll()
		a.log.Info("tracking summary", slog.Int("registered_users", len(snaps)))
		return nil
	})
	if err != nil {
		return err
	}

	sched.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sched.StopContext(stopCtx); err != nil {
			a.log.Warn("scheduler stop", slog.Any("error", err))
		}
	}()

	if a.cfg.Telegram.WebhookURL != "" {
		// Telegram sporadically rejects SetWebhook right after deploys.
		err := retry.RetryWithTimeout(ctx, 30*time.Second, 5, func(ctx context.Context) error {
			_, err := b.SetWebhook(ctx, &bot.SetWebhookParams{
				URL:         a.cfg.Telegram.WebhookURL,
				SecretToken: a.cfg.Telegram.WebhookSecret,
			})
			return err
		})
		if err != nil {
			return err
		}

		r := gin.New()
		r.Use(gin.Recovery())
		r.GET("/healthz", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		r.POST("/telegram/webhook", gin.WrapH(b.WebhookHandler()))

		srv := &http.Server{Addr: a.cfg.HTTP.Addr, Handler: r}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				a.log.Error("server", slog.Any("err", err))
			}
		}()
		go b.StartWebhook(ctx)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}

	go b.Start(ctx)
	<-ctx.Done()
	return nil
}
