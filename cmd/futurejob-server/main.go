// futurejob-server — планировщик отложенных jobs.
//
// Server:
//   - Принимает jobs через HTTP API и очередь jobs.submit
//   - Выполняет их в назначенное время (http, publish, log)
//   - Пишет историю в PostgreSQL (если задан DB_URL)
//   - Публикует job.completed в RabbitMQ
//
// Очередь живёт в памяти процесса: при остановке невыполненные jobs
// помечаются DISCARDED.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/futurejob/internal/api"
	"github.com/shaiso/futurejob/internal/jobs"
	"github.com/shaiso/futurejob/internal/mq"
	"github.com/shaiso/futurejob/internal/repo"
	"github.com/shaiso/futurejob/internal/scheduler"
	"github.com/shaiso/futurejob/internal/telemetry"
	"github.com/shaiso/futurejob/internal/worker"
)

var startTime = time.Now()

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "futurejob-server:", err)
		os.Exit(1)
	}
}

func run() error {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting futurejob-server")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	var maxSleep time.Duration
	if v := os.Getenv("FUTUREJOB_MAX_SLEEP"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse FUTUREJOB_MAX_SLEEP: %w", err)
		}
		maxSleep = d
	}

	// Журнал: PostgreSQL, если задан DB_URL, иначе в памяти
	var store jobs.Store
	if os.Getenv("DB_URL") != "" {
		pool, err := repo.NewPool(ctx)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()

		if err := repo.Migrate(ctx, pool); err != nil {
			return err
		}
		store = repo.NewJobRepo(pool)
		logger.Info("database connected")
	} else {
		store = jobs.NewMemoryStore()
		logger.Warn("DB_URL not set, job journal is kept in memory")
	}

	registry := worker.NewRegistry()

	// RabbitMQ (опционально)
	var (
		mqConn *mq.Connection
		events jobs.EventPublisher
	)
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	conn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, publish jobs and jobs.submit are disabled", "error", err)
	} else {
		mqConn = conn
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		publisher := mq.NewPublisher(mqConn, logger)
		registry.Register("publish", worker.NewPublishExecutor(publisher))
		events = publisher
	}

	sched := scheduler.New(scheduler.Config{
		Logger:   logger,
		Metrics:  metrics,
		MaxSleep: maxSleep,
	})

	svc := jobs.New(jobs.Config{
		Scheduler: sched,
		Store:     store,
		Registry:  registry,
		Events:    events,
		Logger:    logger,
	})

	if _, err := svc.Recover(ctx); err != nil {
		logger.Error("failed to recover journal", "error", err)
	}

	// HTTP mux: API + /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	api.NewHandler(api.Config{Jobs: svc, Logger: logger}).RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if mqConn != nil {
		consumer := mq.NewConsumer(mqConn, logger, mq.ConsumerConfig{
			Queue:    string(mq.QueueJobsSubmit),
			Handler:  svc.HandleSubmit,
			Prefetch: 10,
		})
		g.Go(func() error {
			if err := consumer.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("jobs.submit consumer: %w", err)
			}
			return nil
		})
	}

	err = g.Wait()
	logger.Info("shutting down")

	discarded := svc.Shutdown(context.Background())
	logger.Info("futurejob-server stopped", "discarded", discarded)

	return err
}
