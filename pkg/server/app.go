package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"FinAlert/internal/usecase"
	"FinAlert/pkg/config"
	xhttp "FinAlert/pkg/http"
	pkgkafka "FinAlert/pkg/kafka"
	applogger "FinAlert/pkg/logger"
)

// App encapsulates the application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	scheduler  *usecase.Scheduler
	consumer   *pkgkafka.Consumer
	httpServer *xhttp.Server
}

// New creates a new App. consumer may be nil when snapshot ingestion is disabled.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	scheduler *usecase.Scheduler,
	consumer *pkgkafka.Consumer,
	httpServer *xhttp.Server,
) *App {
	return &App{
		cfg:        cfg,
		log:        l,
		scheduler:  scheduler,
		consumer:   consumer,
		httpServer: httpServer,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.run(ctx)
}

func (a *App) run(ctx context.Context) error {
	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
		a.log.Info("market snapshot ingestion enabled", applogger.String("topic", a.cfg.Kafka.Consumer.Topic))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		a.stopConsumer(context.Background())
		return err
	}

	if a.cfg.Scheduler.ManualStart {
		a.log.Info("scheduler waiting for manual start")
	} else {
		a.scheduler.Start(ctx)
		a.log.Info("scheduler started",
			applogger.Duration("collection_interval", a.cfg.Scheduler.CollectionInterval),
			applogger.Duration("alert_interval", a.cfg.Scheduler.AlertInterval))
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown stops intake first, then lets in-flight cycles drain within the timeout.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if err := a.scheduler.Shutdown(ctx); err != nil {
		a.log.Warn("scheduler did not drain before timeout", applogger.Error(err))
	}

	a.stopConsumer(ctx)

	a.log.Info("shutdown complete")
	return nil
}

func (a *App) stopConsumer(ctx context.Context) {
	if a.consumer == nil {
		return
	}
	if err := a.consumer.Stop(ctx); err != nil {
		a.log.Warn("kafka consumer stop error", applogger.Error(err))
	}
}
