package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-mentoring-notifier/internal/application/channel"
	"github.com/go-mentoring-notifier/internal/application/device"
	"github.com/go-mentoring-notifier/internal/application/directory"
	"github.com/go-mentoring-notifier/internal/application/dispatch"
	"github.com/go-mentoring-notifier/internal/application/preference"
	"github.com/go-mentoring-notifier/internal/application/reminder"
	"github.com/go-mentoring-notifier/internal/config"
	"github.com/go-mentoring-notifier/internal/eventbus"
	"github.com/go-mentoring-notifier/internal/infrastructure/dynamo"
	"github.com/go-mentoring-notifier/internal/infrastructure/fcm"
	"github.com/go-mentoring-notifier/internal/infrastructure/google"
	jwtinfra "github.com/go-mentoring-notifier/internal/infrastructure/jwt"
	"github.com/go-mentoring-notifier/internal/infrastructure/smtp"
	"github.com/go-mentoring-notifier/internal/infrastructure/sns"
	"github.com/go-mentoring-notifier/internal/pkg/invocation"
	"github.com/go-mentoring-notifier/internal/pkg/metrics"
	transporthttp "github.com/go-mentoring-notifier/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	cfg := config.Load()
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("dynamodb client: %w", err)
	}
	if cfg.AWSEndpointURL != "" {
		// Local stacks start empty.
		dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)
	}
	users := dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users)
	teams := dynamo.NewTeamRepo(dynamoClient, cfg.DynamoTables.Teams)
	events := dynamo.NewEventRepo(dynamoClient, cfg.DynamoTables.Events)
	guests := dynamo.NewGuestRepo(dynamoClient, cfg.DynamoTables.EventGuests)
	prefs := dynamo.NewPreferenceRepo(dynamoClient, cfg.DynamoTables.Preferences)
	devices := dynamo.NewDeviceRepo(dynamoClient, cfg.DynamoTables.Devices)

	push, err := fcm.NewClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("fcm client: %w", err)
	}
	sms, err := sns.NewSender(ctx, cfg)
	if err != nil {
		return fmt.Errorf("sns sender: %w", err)
	}
	mailer := smtp.NewMailer(cfg)

	m := metrics.New()
	guard := invocation.NewGuard()

	// The bus outlives the signal context so in-flight deliveries can drain.
	bus := eventbus.New(context.Background(), eventbus.Config{
		Workers:      cfg.BusWorkers,
		RetryInitial: cfg.BusRetryInitial,
		RetryMax:     cfg.BusRetryMax,
	}, m, logger)

	dir := directory.New(directory.Deps{
		Users:  users,
		Teams:  teams,
		Events: events,
		Guests: guests,
		Guard:  guard,
		Logger: logger,
	})
	prefSvc := preference.NewService(prefs)
	deviceSvc := device.NewService(devices, push, logger)

	dispatcher := dispatch.New(dispatch.Deps{
		Directory:   dir,
		Preferences: prefSvc,
		Devices:     deviceSvc,
		Push:        channel.NewPushSender(push, bus, cfg.SendTimeout, m, logger),
		Email:       channel.NewEmailSender(mailer, cfg.SendTimeout, m),
		SMS:         channel.NewSMSSender(sms, cfg.SendTimeout, m),
		Guard:       guard,
		Metrics:     m,
		Logger:      logger,
		AppName:     cfg.AppName,
		Concurrency: cfg.FanoutConcurrency,
	})
	dispatcher.Subscribe(bus)

	sweeper := reminder.NewSweeper(dispatcher, guard, m, logger)
	stopCron := func() {}
	if cfg.ReminderCronEnabled {
		c, err := reminder.Schedule(cfg.ReminderSchedule, sweeper, 5*time.Minute, logger)
		if err != nil {
			return fmt.Errorf("reminder schedule: %w", err)
		}
		c.Start()
		stopCron = func() { <-c.Stop().Done() }
	}

	deps := &transporthttp.Deps{
		Devices:     deviceSvc,
		Preferences: prefSvc,
		Bus:         bus,
		Reminders:   sweeper,
		Metrics:     m,
	}
	// JWT provider is optional; without it only health and metrics are served.
	if p, err := jwtinfra.NewProvider(cfg.JWTPublicKeyPath); err == nil {
		deps.JWTProvider = p
	} else {
		logger.Warn("JWT provider not available", "error", err)
	}
	if cfg.SchedulerAudience != "" {
		deps.Scheduler = google.NewVerifier(cfg.SchedulerAudience, cfg.SchedulerServiceAccounts)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	stopCron()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}
	if err := bus.Close(shutdownCtx); err != nil {
		logger.Error("bus did not drain", "error", err)
	}
	logger.Info("server stopped")
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.AppEnv == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
