package server

import (
	"bufio"
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/mattn/go-sqlite3"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/prodfloor/scheduler/internal/api"
	"github.com/prodfloor/scheduler/internal/auth"
	"github.com/prodfloor/scheduler/internal/calendar"
	"github.com/prodfloor/scheduler/internal/config"
	"github.com/prodfloor/scheduler/internal/db"
	"github.com/prodfloor/scheduler/internal/scheduler"
)

// schedulerStore is the union of collaborator interfaces a backend (SQLite
// or Postgres) must satisfy to back the scheduling engine.
type schedulerStore interface {
	scheduler.JobStore
	scheduler.ProcedureStore
	scheduler.ScheduleStore
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack implements http.Hijacker for WebSocket support.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

func requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.RequestURI(), wrapped.status, time.Since(start).Round(time.Millisecond))
	})
}

// Options controls server wiring.
type Options struct {
	DisableSweep bool
}

// NewHandler builds the HTTP handler and returns a shutdown function.
func NewHandler(cfg config.Config, options Options) (http.Handler, func(context.Context) error, error) {
	jobsStore, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	cal, err := calendar.LoadWeek(cfg.CalendarConfigPath)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	calInstance, err := calendar.New(cal, cfg.CalendarLocation)
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	batch := scheduler.NewBatchScheduler(calInstance, jobsStore, jobsStore, jobsStore)

	var lock scheduler.RegenerateLock
	if cfg.RegenerateLockRedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RegenerateLockRedisAddr})
		lock = scheduler.NewRedisLock(client, "scheduler:regenerate-lock", time.Duration(cfg.RegenerateLockTTLSec)*time.Second)
	} else {
		lock = scheduler.NewLocalLock()
	}

	logger := logrus.StandardLogger()

	var amqpConn *amqp.Connection
	var amqpCh *amqp.Channel
	if cfg.AMQPURL != "" {
		amqpConn, err = amqp.Dial(cfg.AMQPURL)
		if err != nil {
			logger.WithError(err).Warn("server: amqp dial failed, publishing disabled")
		} else {
			amqpCh, err = amqpConn.Channel()
			if err != nil {
				logger.WithError(err).Warn("server: amqp channel failed, publishing disabled")
			}
		}
	}
	notifier := scheduler.NewScheduleNotifier(amqpCh, cfg.AMQPExchange, logger)

	cronRunner := cron.New()
	if !options.DisableSweep {
		sweep := scheduler.NewInvariantSweep(jobsStore, jobsStore, logger)
		durationMinutes := func(row scheduler.Schedule) int {
			return calInstance.WorkingDurationMinutes(row.Start, row.End)
		}
		if err := scheduler.ScheduleSweepJob(cronRunner, cfg.InvariantSweepCron, sweep, durationMinutes); err != nil {
			logger.WithError(err).Warn("server: invariant sweep not scheduled")
		}
		cronRunner.Start()
	}

	router := chi.NewRouter()
	router.Use(middleware.StripSlashes)
	router.Use(requestLoggerMiddleware)
	router.Use(api.RequestIDMiddleware)
	router.Use(api.RecovererMiddleware)
	router.Use(auth.Middleware(cfg))

	registerHealthRoutes(router)

	scheduler.RegisterRoutes(router, scheduler.Routes{
		Jobs:       jobsStore,
		Procedures: jobsStore,
		Schedules:  jobsStore,
		Batch:      batch,
		Lock:       lock,
		Notifier:   notifier,
		Logger:     logger,
	})

	shutdown := func(ctx context.Context) error {
		cronRunner.Stop()
		if amqpCh != nil {
			amqpCh.Close()
		}
		if amqpConn != nil {
			amqpConn.Close()
		}
		return closeStore()
	}

	return router, shutdown, nil
}

// openStore selects and opens the ScheduleStore backend: Postgres via pgx
// when cfg.PostgresDSN is set, SQLite otherwise. Both satisfy the same
// JobStore/ProcedureStore/ScheduleStore interfaces, so the rest of the
// wiring is backend-agnostic.
func openStore(cfg config.Config) (schedulerStore, func() error, error) {
	if cfg.PostgresDSN != "" {
		log.Printf("Using postgres database")
		pool, err := pgxpool.New(context.Background(), cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := scheduler.EnsurePGSchema(context.Background(), pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		closeFn := func() error {
			pool.Close()
			return nil
		}
		return scheduler.NewPGStore(pool), closeFn, nil
	}

	log.Printf("Using database: %s", cfg.SQLiteDBPath)
	dbPair, err := db.Init(cfg.SQLiteDBPath)
	if err != nil {
		return nil, nil, err
	}
	return scheduler.NewSQLiteStore(dbPair), dbPair.Close, nil
}

func registerHealthRoutes(router chi.Router) {
	router.Method(http.MethodGet, "/v1/health", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteJSON(w, http.StatusOK, map[string]any{
			"status":    "healthy",
			"service":   "prodfloor-scheduler",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}))
	router.Method(http.MethodGet, "/v1/health/live", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}))
	router.Method(http.MethodGet, "/v1/health/ready", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	}))
}
