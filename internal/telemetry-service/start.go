package telemetryservice

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fleetflow/internal/config"
	"fleetflow/internal/metrics"
	"fleetflow/internal/mylogger"
	"fleetflow/internal/telemetry-service/adapters/driven/bm"
	"fleetflow/internal/telemetry-service/adapters/driven/cache"
	"fleetflow/internal/telemetry-service/adapters/driven/db"
	"fleetflow/internal/telemetry-service/adapters/driven/worker"
	"fleetflow/internal/telemetry-service/adapters/driver/myhttp"
	"fleetflow/internal/telemetry-service/core/ports"
	"fleetflow/internal/telemetry-service/core/services"
)

// Run wires the pipeline and blocks until a signal or a fatal error.
// runApi and runWorker select which halves live in this process, a
// production deployment runs them separately against the same store
// and queue.
func Run(ctx context.Context, mylog mylogger.Logger, cfg *config.Config, runApi, runWorker bool) error {
	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	m := metrics.New()

	database, err := db.New(ctx, cfg.DB, mylog)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()
	mylog.Action("db_connected").Info("Successful database connection")

	broker, err := bm.New(ctx, *cfg.RabbitMq, mylog)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	defer broker.Close()
	mylog.Action("mb_connected").Info("Successful message broker connection")

	tripsRepo := db.NewTripsRepo(database)
	scoresRepo := db.NewScoresRepo(database)

	var scoreCache ports.IScoreCache
	if cfg.Cache.RedisAddr != "" {
		scoreCache, err = cache.New(ctx, cfg.Cache)
		if err != nil {
			// The cache is an optimization, lookups fall through to
			// the store without it.
			mylog.Warn("score cache unavailable, continuing without it", "err", err)
		} else {
			defer scoreCache.Close()
			mylog.Action("cache_connected").Info("Successful score cache connection")
		}
	}

	errCh := make(chan error, 2)

	var consumer *worker.ScoringConsumer
	if runWorker {
		workerService := services.NewWorkerService(
			mylog,
			tripsRepo,
			scoresRepo,
			m,
			cfg.Worker.MaxAttempts,
			time.Duration(cfg.Worker.RetryBaseMs)*time.Millisecond,
		)
		consumer = worker.NewScoringConsumer(shutdownCtx, cfg.Worker, mylog, broker, workerService, m)
		if err := consumer.Run(); err != nil {
			return fmt.Errorf("failed to start scoring consumer: %w", err)
		}
		// A broker drop closes the delivery channel and kills every
		// receive loop. Surface that so the process exits and the
		// orchestrator restarts it instead of idling with a dead pipeline.
		go func() {
			if err := <-consumer.Dead(); err != nil {
				errCh <- fmt.Errorf("scoring consumer stopped: %w", err)
			}
		}()
	}

	var srv *myhttp.Server
	if runApi {
		ingestService := services.NewIngestService(shutdownCtx, mylog, tripsRepo, broker)
		scoreService := services.NewScoreService(mylog, tripsRepo, scoresRepo, scoreCache)

		srv = myhttp.NewServer(shutdownCtx, mylog, cfg, m, ingestService, scoreService, database.IsAlive, broker.IsAlive)
		go func() {
			errCh <- srv.Run()
		}()
	}

	select {
	case <-shutdownCtx.Done():
		fmt.Println("Gracefully shutting down...")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	stopCtx := context.Background()
	if srv != nil {
		if err := srv.Stop(stopCtx); err != nil {
			mylog.Error("http server stop failed", err)
		}
	}
	if consumer != nil {
		if err := consumer.Stop(stopCtx); err != nil {
			mylog.Error("consumer stop failed", err)
		}
	}
	return nil
}
